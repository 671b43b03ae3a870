// AngelaMos | 2026
// entity.go

package admin

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	ReportOpen      = "OPEN"
	ReportResolved  = "RESOLVED"
	ReportDismissed = "DISMISSED"
)

const (
	TargetItem    = "ITEM"
	TargetUser    = "USER"
	TargetMessage = "MESSAGE"
	TargetReport  = "REPORT"
	TargetOrder   = "ORDER"
)

const (
	ActionResolveReport = "RESOLVE_REPORT"
	ActionDismissReport = "DISMISS_REPORT"
	ActionBanUser       = "BAN_USER"
	ActionUnbanUser     = "UNBAN_USER"
	ActionApproveItem   = "APPROVE_ITEM"
	ActionRejectItem    = "REJECT_ITEM"
)

const (
	userActive = "ACTIVE"
	userBanned = "BANNED"

	itemActive   = "ACTIVE"
	itemInactive = "INACTIVE"
)

const recentActivityLimit = 5

type Report struct {
	ID              string     `db:"id"`
	ReporterID      string     `db:"reporter_id"`
	TargetType      string     `db:"target_type"`
	TargetID        string     `db:"target_id"`
	Reason          string     `db:"reason"`
	Status          string     `db:"status"`
	ResolverID      *string    `db:"resolver_id"`
	ResolutionNotes *string    `db:"resolution_notes"`
	ResolvedAt      *time.Time `db:"resolved_at"`
	CreatedAt       time.Time  `db:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"`
}

type AuditLog struct {
	ID         string    `db:"id"`
	ActorID    string    `db:"actor_id"`
	Action     string    `db:"action"`
	TargetType string    `db:"target_type"`
	TargetID   string    `db:"target_id"`
	Metadata   string    `db:"metadata"`
	CreatedAt  time.Time `db:"created_at"`
}

type Counts struct {
	TotalUsers      int64           `db:"total_users"`
	ActiveUsers     int64           `db:"active_users"`
	TotalItems      int64           `db:"total_items"`
	PendingItems    int64           `db:"pending_items"`
	TotalOrders     int64           `db:"total_orders"`
	CompletedOrders int64           `db:"completed_orders"`
	TotalReports    int64           `db:"total_reports"`
	OpenReports     int64           `db:"open_reports"`
	TotalRevenue    decimal.Decimal `db:"total_revenue"`
}

// Activity is one row of the dashboard feed.
type Activity struct {
	ID          string    `db:"id"`
	Description string    `db:"description"`
	Timestamp   time.Time `db:"created_at"`
	Type        string    `db:"type"`
}
