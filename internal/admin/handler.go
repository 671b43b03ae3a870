// AngelaMos | 2026
// handler.go

package admin

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"

	"github.com/carterperez-dev/templates/nz-market/internal/core"
	"github.com/carterperez-dev/templates/nz-market/internal/middleware"
)

type Handler struct {
	service    *Service
	validator  *validator.Validate
	dbStats    func() sql.DBStats
	redisStats func() *redis.PoolStats
	dbPing     func(ctx context.Context) error
	redisPing  func(ctx context.Context) error
}

type HandlerConfig struct {
	Service    *Service
	DBStats    func() sql.DBStats
	RedisStats func() *redis.PoolStats
	DBPing     func(ctx context.Context) error
	RedisPing  func(ctx context.Context) error
}

func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{
		service:    cfg.Service,
		validator:  validator.New(validator.WithRequiredStructEnabled()),
		dbStats:    cfg.DBStats,
		redisStats: cfg.RedisStats,
		dbPing:     cfg.DBPing,
		redisPing:  cfg.RedisPing,
	}
}

// RegisterReportRoutes mounts the user-facing report endpoint.
func (h *Handler) RegisterReportRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.With(authenticator).Post("/reports", h.CreateReport)
}

// RegisterRoutes expects r to already be mounted under /admin with
// authentication and the admin role enforced.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/dashboard", h.Dashboard)
	r.Get("/system", h.GetSystemStats)
	r.Get("/audit-logs", h.ListAuditLogs)

	r.Get("/reports", h.ListReports)
	r.Post("/reports/{reportID}/resolve", h.ResolveReport)
	r.Post("/reports/{reportID}/dismiss", h.DismissReport)

	r.Post("/users/{userID}/ban", h.BanUser)
	r.Post("/users/{userID}/unban", h.UnbanUser)

	r.Post("/items/{itemID}/approve", h.ApproveItem)
	r.Post("/items/{itemID}/reject", h.RejectItem)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		core.BadRequest(w, "invalid request body")
		return false
	}

	if err := h.validator.Struct(dst); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return false
	}

	return true
}

// decodeOptional accepts an empty body for actions whose reason or
// notes are optional.
func (h *Handler) decodeOptional(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err != nil && !errors.Is(err, io.EOF) {
		core.BadRequest(w, "invalid request body")
		return false
	}

	if err := h.validator.Struct(dst); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return false
	}

	return true
}

func pathID(w http.ResponseWriter, r *http.Request, param, resource string) (string, bool) {
	id := chi.URLParam(r, param)
	if !core.IsValidID(id) {
		core.NotFound(w, resource)
		return "", false
	}
	return id, true
}

func (h *Handler) CreateReport(w http.ResponseWriter, r *http.Request) {
	var req CreateReportRequest
	if !h.decode(w, r, &req) {
		return
	}

	rp, err := h.service.CreateReport(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		core.WriteServiceError(w, err, "report")
		return
	}

	core.Created(w, ToReportResponse(rp))
}

func (h *Handler) ListReports(w http.ResponseWriter, r *http.Request) {
	page := core.PageFromRequest(r)

	reports, total, err := h.service.ListReports(r.Context(), r.URL.Query().Get("status"), page)
	if err != nil {
		core.WriteServiceError(w, err, "report")
		return
	}

	out := make([]ReportResponse, len(reports))
	for i := range reports {
		out[i] = ToReportResponse(&reports[i])
	}

	core.Paginated(w, out, page.Page, page.PageSize, total)
}

func (h *Handler) ResolveReport(w http.ResponseWriter, r *http.Request) {
	h.closeReport(w, r, h.service.ResolveReport)
}

func (h *Handler) DismissReport(w http.ResponseWriter, r *http.Request) {
	h.closeReport(w, r, h.service.DismissReport)
}

func (h *Handler) closeReport(
	w http.ResponseWriter,
	r *http.Request,
	action func(ctx context.Context, id, adminID, notes string) (*Report, error),
) {
	id, ok := pathID(w, r, "reportID", "report")
	if !ok {
		return
	}

	var req ResolveReportRequest
	if !h.decodeOptional(w, r, &req) {
		return
	}

	rp, err := action(r.Context(), id, middleware.GetUserID(r.Context()), req.Notes)
	if err != nil {
		core.WriteServiceError(w, err, "report")
		return
	}

	core.OK(w, ToReportResponse(rp))
}

func (h *Handler) BanUser(w http.ResponseWriter, r *http.Request) {
	h.moderate(w, r, "userID", "user", userBanned, h.service.BanUser)
}

func (h *Handler) UnbanUser(w http.ResponseWriter, r *http.Request) {
	h.moderate(w, r, "userID", "user", userActive, h.service.UnbanUser)
}

func (h *Handler) ApproveItem(w http.ResponseWriter, r *http.Request) {
	h.moderate(w, r, "itemID", "item", itemActive, h.service.ApproveItem)
}

func (h *Handler) RejectItem(w http.ResponseWriter, r *http.Request) {
	h.moderate(w, r, "itemID", "item", itemInactive, h.service.RejectItem)
}

func (h *Handler) moderate(
	w http.ResponseWriter,
	r *http.Request,
	param, resource, status string,
	action func(ctx context.Context, id, adminID, reason string) error,
) {
	id, ok := pathID(w, r, param, resource)
	if !ok {
		return
	}

	var req ModerationRequest
	if !h.decodeOptional(w, r, &req) {
		return
	}

	if err := action(r.Context(), id, middleware.GetUserID(r.Context()), req.Reason); err != nil {
		core.WriteServiceError(w, err, resource)
		return
	}

	core.OK(w, StatusResponse{ID: id, Status: status})
}

func (h *Handler) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	page := core.PageFromRequest(r)

	logs, total, err := h.service.ListAuditLogs(r.Context(), page)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	out := make([]AuditLogResponse, len(logs))
	for i := range logs {
		out[i] = ToAuditLogResponse(&logs[i])
	}

	core.Paginated(w, out, page.Page, page.PageSize, total)
}

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	dash, err := h.service.Dashboard(r.Context())
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, dash)
}
