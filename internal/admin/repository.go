// AngelaMos | 2026
// repository.go

package admin

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/carterperez-dev/templates/nz-market/internal/core"
)

type Repository interface {
	CreateReport(ctx context.Context, r *Report) error
	GetReport(ctx context.Context, id string) (*Report, error)
	ListReports(ctx context.Context, status string, page core.PageParams) ([]Report, int, error)
	CloseReport(ctx context.Context, id, status, resolverID, notes string, at time.Time) (bool, error)

	SetUserStatus(ctx context.Context, id, status string, bumpTokenVersion bool) error
	RevokeRefreshTokens(ctx context.Context, userID string) (int64, error)
	SetItemStatus(ctx context.Context, id, status string) error

	CreateAuditLog(ctx context.Context, a *AuditLog) error
	ListAuditLogs(ctx context.Context, page core.PageParams) ([]AuditLog, int, error)

	Counts(ctx context.Context) (*Counts, error)
	Recent(ctx context.Context, kind string, limit int) ([]Activity, error)

	WithTx(ctx context.Context, fn func(Repository) error) error
}

type repository struct {
	db   core.DBTX
	pool *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db, pool: db}
}

const reportColumns = `
	id, reporter_id, target_type, target_id, reason, status,
	resolver_id, resolution_notes, resolved_at, created_at, updated_at`

func (r *repository) WithTx(
	ctx context.Context,
	fn func(Repository) error,
) error {
	return core.InTx(ctx, r.pool, func(tx *sqlx.Tx) error {
		return fn(&repository{db: tx, pool: r.pool})
	})
}

func (r *repository) CreateReport(ctx context.Context, rp *Report) error {
	query := `
		INSERT INTO reports (id, reporter_id, target_type, target_id, reason)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING status, created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		rp.ID, rp.ReporterID, rp.TargetType, rp.TargetID, rp.Reason,
	).Scan(&rp.Status, &rp.CreatedAt, &rp.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}

	return nil
}

func (r *repository) GetReport(ctx context.Context, id string) (*Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports WHERE id = $1`

	var rp Report
	err := r.db.GetContext(ctx, &rp, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get report: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}

	return &rp, nil
}

func (r *repository) ListReports(
	ctx context.Context,
	status string,
	page core.PageParams,
) ([]Report, int, error) {
	where := ""
	args := []any{}
	if status != "" {
		where = " WHERE status = $1"
		args = append(args, status)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM reports`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count reports: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM reports%s
		ORDER BY created_at DESC, id
		LIMIT $%d OFFSET $%d`, reportColumns, where, len(args)+1, len(args)+2)
	args = append(args, page.PageSize, page.Offset())

	var out []Report
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list reports: %w", err)
	}

	return out, total, nil
}

// CloseReport only moves a report that is still OPEN and reports
// whether it did.
func (r *repository) CloseReport(
	ctx context.Context,
	id, status, resolverID, notes string,
	at time.Time,
) (bool, error) {
	query := `
		UPDATE reports
		SET status = $2, resolver_id = $3, resolution_notes = $4,
		    resolved_at = $5, updated_at = $5
		WHERE id = $1 AND status = 'OPEN'`

	result, err := r.db.ExecContext(ctx, query, id, status, resolverID, notes, at)
	if err != nil {
		return false, fmt.Errorf("close report: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("close report: %w", err)
	}

	return rows == 1, nil
}

func (r *repository) SetUserStatus(
	ctx context.Context,
	id, status string,
	bumpTokenVersion bool,
) error {
	query := `UPDATE users SET status = $2, updated_at = NOW() WHERE id = $1`
	if bumpTokenVersion {
		query = `
			UPDATE users
			SET status = $2, token_version = token_version + 1, updated_at = NOW()
			WHERE id = $1`
	}

	return r.execOne(ctx, "set user status", query, id, status)
}

func (r *repository) RevokeRefreshTokens(ctx context.Context, userID string) (int64, error) {
	query := `
		UPDATE refresh_tokens SET revoked_at = NOW()
		WHERE user_id = $1 AND revoked_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("revoke refresh tokens: %w", err)
	}

	return result.RowsAffected()
}

func (r *repository) SetItemStatus(ctx context.Context, id, status string) error {
	query := `UPDATE items SET status = $2, updated_at = NOW() WHERE id = $1`
	return r.execOne(ctx, "set item status", query, id, status)
}

func (r *repository) execOne(
	ctx context.Context,
	op, query string,
	args ...any,
) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}

	return nil
}

func (r *repository) CreateAuditLog(ctx context.Context, a *AuditLog) error {
	query := `
		INSERT INTO audit_logs (id, actor_id, action, target_type, target_id, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	err := r.db.GetContext(ctx, &a.CreatedAt, query,
		a.ID, a.ActorID, a.Action, a.TargetType, a.TargetID, a.Metadata,
	)
	if err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}

	return nil
}

func (r *repository) ListAuditLogs(
	ctx context.Context,
	page core.PageParams,
) ([]AuditLog, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM audit_logs`); err != nil {
		return nil, 0, fmt.Errorf("count audit logs: %w", err)
	}

	query := `
		SELECT id, actor_id, action, target_type, target_id, metadata, created_at
		FROM audit_logs
		ORDER BY created_at DESC, id
		LIMIT $1 OFFSET $2`

	var out []AuditLog
	if err := r.db.SelectContext(ctx, &out, query, page.PageSize, page.Offset()); err != nil {
		return nil, 0, fmt.Errorf("list audit logs: %w", err)
	}

	return out, total, nil
}

func (r *repository) Counts(ctx context.Context) (*Counts, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM users) AS total_users,
			(SELECT COUNT(*) FROM users WHERE status = 'ACTIVE') AS active_users,
			(SELECT COUNT(*) FROM items) AS total_items,
			(SELECT COUNT(*) FROM items WHERE status = 'PENDING_APPROVAL') AS pending_items,
			(SELECT COUNT(*) FROM orders) AS total_orders,
			(SELECT COUNT(*) FROM orders WHERE status = 'DELIVERED') AS completed_orders,
			(SELECT COUNT(*) FROM reports) AS total_reports,
			(SELECT COUNT(*) FROM reports WHERE status = 'OPEN') AS open_reports,
			(SELECT COALESCE(SUM(amount), 0) FROM payments WHERE status = 'SUCCEEDED') AS total_revenue`

	var c Counts
	if err := r.db.GetContext(ctx, &c, query); err != nil {
		return nil, fmt.Errorf("dashboard counts: %w", err)
	}

	return &c, nil
}

var recentQueries = map[string]string{
	TargetUser: `
		SELECT id, 'New user registered: ' || display_name AS description,
		       created_at, 'USER' AS type
		FROM users ORDER BY created_at DESC LIMIT $1`,
	TargetItem: `
		SELECT id, 'New item listed: ' || title AS description,
		       created_at, 'ITEM' AS type
		FROM items ORDER BY created_at DESC LIMIT $1`,
	TargetOrder: `
		SELECT id, 'New order created' AS description,
		       created_at, 'ORDER' AS type
		FROM orders ORDER BY created_at DESC LIMIT $1`,
	TargetReport: `
		SELECT id, 'New report submitted' AS description,
		       created_at, 'REPORT' AS type
		FROM reports ORDER BY created_at DESC LIMIT $1`,
}

func (r *repository) Recent(
	ctx context.Context,
	kind string,
	limit int,
) ([]Activity, error) {
	query, ok := recentQueries[kind]
	if !ok {
		return nil, fmt.Errorf("unknown activity kind %q: %w", kind, core.ErrInvalidInput)
	}

	out := []Activity{}
	if err := r.db.SelectContext(ctx, &out, query, limit); err != nil {
		return nil, fmt.Errorf("recent %s: %w", kind, err)
	}

	return out, nil
}
