// AngelaMos | 2026
// service.go

package admin

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/carterperez-dev/templates/nz-market/internal/core"
	"github.com/carterperez-dev/templates/nz-market/internal/events"
	"github.com/carterperez-dev/templates/nz-market/internal/metrics"
)

// SessionInvalidator drops whatever a user's access tokens are checked
// against, so a ban takes effect before the tokens expire.
type SessionInvalidator interface {
	InvalidateUser(ctx context.Context, userID string)
}

type UserBannedEvent struct {
	UserID  string    `json:"user_id"`
	AdminID string    `json:"admin_id"`
	Banned  bool      `json:"banned"`
	Reason  string    `json:"reason"`
	At      time.Time `json:"at"`
}

type ItemModeratedEvent struct {
	ItemID  string    `json:"item_id"`
	AdminID string    `json:"admin_id"`
	Status  string    `json:"status"`
	Reason  string    `json:"reason"`
	At      time.Time `json:"at"`
}

type ServiceConfig struct {
	Repo     Repository
	Sessions SessionInvalidator
	Events   events.Publisher
	Metrics  *metrics.Registry
	Logger   *slog.Logger
}

type Service struct {
	repo     Repository
	sessions SessionInvalidator
	events   events.Publisher
	metrics  *metrics.Registry
	logger   *slog.Logger
}

func NewService(cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		repo:     cfg.Repo,
		sessions: cfg.Sessions,
		events:   cfg.Events,
		metrics:  cfg.Metrics,
		logger:   logger,
	}
}

func (s *Service) CreateReport(
	ctx context.Context,
	reporterID string,
	req CreateReportRequest,
) (*Report, error) {
	if req.TargetType == TargetUser && req.TargetID == reporterID {
		return nil, fmt.Errorf("cannot report yourself: %w", core.ErrInvalidInput)
	}

	rp := &Report{
		ID:         uuid.New().String(),
		ReporterID: reporterID,
		TargetType: req.TargetType,
		TargetID:   req.TargetID,
		Reason:     req.Reason,
	}
	if err := s.repo.CreateReport(ctx, rp); err != nil {
		return nil, err
	}

	return rp, nil
}

func (s *Service) ListReports(
	ctx context.Context,
	status string,
	page core.PageParams,
) ([]Report, int, error) {
	switch status {
	case "", ReportOpen, ReportResolved, ReportDismissed:
	default:
		return nil, 0, fmt.Errorf("unknown report status: %w", core.ErrInvalidInput)
	}

	page.Normalize()
	return s.repo.ListReports(ctx, status, page)
}

func (s *Service) ResolveReport(ctx context.Context, id, adminID, notes string) (*Report, error) {
	return s.closeReport(ctx, id, adminID, notes, ReportResolved, ActionResolveReport)
}

func (s *Service) DismissReport(ctx context.Context, id, adminID, notes string) (*Report, error) {
	return s.closeReport(ctx, id, adminID, notes, ReportDismissed, ActionDismissReport)
}

// closeReport moves an OPEN report and writes its audit row in one
// transaction. A report closed by someone else first is a conflict.
func (s *Service) closeReport(
	ctx context.Context,
	id, adminID, notes, status, action string,
) (*Report, error) {
	var out *Report

	err := s.repo.WithTx(ctx, func(repo Repository) error {
		closed, err := repo.CloseReport(ctx, id, status, adminID, notes, time.Now().UTC())
		if err != nil {
			return err
		}

		rp, err := repo.GetReport(ctx, id)
		if err != nil {
			return err
		}
		if !closed {
			return fmt.Errorf("report is already %s: %w", rp.Status, core.ErrInvalidState)
		}

		out = rp
		return s.audit(ctx, repo, adminID, action, TargetReport, id, notes)
	})
	if err != nil {
		return nil, err
	}

	s.countModeration(action)
	return out, nil
}

func (s *Service) BanUser(ctx context.Context, userID, adminID, reason string) error {
	if userID == adminID {
		return fmt.Errorf("cannot ban yourself: %w", core.ErrInvalidInput)
	}

	err := s.repo.WithTx(ctx, func(repo Repository) error {
		if err := repo.SetUserStatus(ctx, userID, userBanned, true); err != nil {
			return err
		}
		if _, err := repo.RevokeRefreshTokens(ctx, userID); err != nil {
			return err
		}
		return s.audit(ctx, repo, adminID, ActionBanUser, TargetUser, userID, reason)
	})
	if err != nil {
		return err
	}

	s.afterUserStatus(ctx, userID, adminID, reason, true, ActionBanUser)
	return nil
}

func (s *Service) UnbanUser(ctx context.Context, userID, adminID, reason string) error {
	err := s.repo.WithTx(ctx, func(repo Repository) error {
		if err := repo.SetUserStatus(ctx, userID, userActive, false); err != nil {
			return err
		}
		return s.audit(ctx, repo, adminID, ActionUnbanUser, TargetUser, userID, reason)
	})
	if err != nil {
		return err
	}

	s.afterUserStatus(ctx, userID, adminID, reason, false, ActionUnbanUser)
	return nil
}

func (s *Service) afterUserStatus(
	ctx context.Context,
	userID, adminID, reason string,
	banned bool,
	action string,
) {
	if s.sessions != nil {
		s.sessions.InvalidateUser(ctx, userID)
	}

	s.countModeration(action)
	s.logger.InfoContext(ctx, "user status changed",
		"user_id", userID,
		"admin_id", adminID,
		"action", action,
	)

	events.Emit(ctx, s.events, s.logger, events.SubjectUserBanned, UserBannedEvent{
		UserID:  userID,
		AdminID: adminID,
		Banned:  banned,
		Reason:  reason,
		At:      time.Now().UTC(),
	})
}

func (s *Service) ApproveItem(ctx context.Context, itemID, adminID, reason string) error {
	return s.moderateItem(ctx, itemID, adminID, reason, itemActive, ActionApproveItem)
}

func (s *Service) RejectItem(ctx context.Context, itemID, adminID, reason string) error {
	return s.moderateItem(ctx, itemID, adminID, reason, itemInactive, ActionRejectItem)
}

func (s *Service) moderateItem(
	ctx context.Context,
	itemID, adminID, reason, status, action string,
) error {
	err := s.repo.WithTx(ctx, func(repo Repository) error {
		if err := repo.SetItemStatus(ctx, itemID, status); err != nil {
			return err
		}
		return s.audit(ctx, repo, adminID, action, TargetItem, itemID, reason)
	})
	if err != nil {
		return err
	}

	s.countModeration(action)
	events.Emit(ctx, s.events, s.logger, events.SubjectItemModerated, ItemModeratedEvent{
		ItemID:  itemID,
		AdminID: adminID,
		Status:  status,
		Reason:  reason,
		At:      time.Now().UTC(),
	})

	return nil
}

// RecordAudit appends an audit row outside any transaction, for
// actions owned by other packages such as order refunds.
func (s *Service) RecordAudit(
	ctx context.Context,
	actorID, action, targetType, targetID, metadata string,
) error {
	if err := s.audit(ctx, s.repo, actorID, action, targetType, targetID, metadata); err != nil {
		return err
	}
	s.countModeration(action)
	return nil
}

func (s *Service) ListAuditLogs(
	ctx context.Context,
	page core.PageParams,
) ([]AuditLog, int, error) {
	page.Normalize()
	return s.repo.ListAuditLogs(ctx, page)
}

// Dashboard is recomputed on every call. The five queries are
// independent so they run concurrently.
func (s *Service) Dashboard(ctx context.Context) (*DashboardResponse, error) {
	kinds := []string{TargetUser, TargetItem, TargetOrder, TargetReport}
	lists := make([][]Activity, len(kinds))
	var counts *Counts

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c, err := s.repo.Counts(gctx)
		counts = c
		return err
	})
	for i, kind := range kinds {
		g.Go(func() error {
			rows, err := s.repo.Recent(gctx, kind, recentActivityLimit)
			lists[i] = rows
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &DashboardResponse{
		Stats: ToDashboardStats(counts),
		RecentActivity: RecentActivity{
			NewUsers:   ToActivityResponses(lists[0]),
			NewItems:   ToActivityResponses(lists[1]),
			NewOrders:  ToActivityResponses(lists[2]),
			NewReports: ToActivityResponses(lists[3]),
		},
	}, nil
}

func (s *Service) audit(
	ctx context.Context,
	repo Repository,
	actorID, action, targetType, targetID, metadata string,
) error {
	entry := &AuditLog{
		ID:         uuid.New().String(),
		ActorID:    actorID,
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		Metadata:   metadata,
	}
	if err := repo.CreateAuditLog(ctx, entry); err != nil {
		return fmt.Errorf("record %s: %w", action, err)
	}
	return nil
}

func (s *Service) countModeration(action string) {
	if s.metrics != nil {
		s.metrics.Moderation.WithLabelValues(action).Inc()
	}
}
