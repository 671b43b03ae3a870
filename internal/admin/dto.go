// AngelaMos | 2026
// dto.go

package admin

import (
	"time"

	"github.com/shopspring/decimal"
)

type CreateReportRequest struct {
	TargetType string `json:"target_type" validate:"required,oneof=ITEM USER MESSAGE"`
	TargetID   string `json:"target_id"   validate:"required,uuid"`
	Reason     string `json:"reason"      validate:"required,max=1000"`
}

type ResolveReportRequest struct {
	Notes string `json:"notes" validate:"max=2000"`
}

type ModerationRequest struct {
	Reason string `json:"reason" validate:"max=1000"`
}

type ReportResponse struct {
	ID              string     `json:"id"`
	ReporterID      string     `json:"reporter_id"`
	TargetType      string     `json:"target_type"`
	TargetID        string     `json:"target_id"`
	Reason          string     `json:"reason"`
	Status          string     `json:"status"`
	ResolverID      *string    `json:"resolver_id"`
	ResolutionNotes *string    `json:"resolution_notes"`
	ResolvedAt      *time.Time `json:"resolved_at"`
	CreatedAt       time.Time  `json:"created_at"`
}

type AuditLogResponse struct {
	ID         string    `json:"id"`
	ActorID    string    `json:"actor_id"`
	Action     string    `json:"action"`
	TargetType string    `json:"target_type"`
	TargetID   string    `json:"target_id"`
	Metadata   string    `json:"metadata"`
	CreatedAt  time.Time `json:"created_at"`
}

type DashboardStats struct {
	TotalUsers      int64           `json:"total_users"`
	ActiveUsers     int64           `json:"active_users"`
	TotalItems      int64           `json:"total_items"`
	PendingItems    int64           `json:"pending_items"`
	TotalOrders     int64           `json:"total_orders"`
	CompletedOrders int64           `json:"completed_orders"`
	TotalReports    int64           `json:"total_reports"`
	OpenReports     int64           `json:"open_reports"`
	TotalRevenue    decimal.Decimal `json:"total_revenue"`
}

type ActivityResponse struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
	Type        string    `json:"type"`
}

type RecentActivity struct {
	NewUsers   []ActivityResponse `json:"new_users"`
	NewItems   []ActivityResponse `json:"new_items"`
	NewOrders  []ActivityResponse `json:"new_orders"`
	NewReports []ActivityResponse `json:"new_reports"`
}

type DashboardResponse struct {
	Stats          DashboardStats `json:"stats"`
	RecentActivity RecentActivity `json:"recent_activity"`
}

type StatusResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func ToReportResponse(r *Report) ReportResponse {
	return ReportResponse{
		ID:              r.ID,
		ReporterID:      r.ReporterID,
		TargetType:      r.TargetType,
		TargetID:        r.TargetID,
		Reason:          r.Reason,
		Status:          r.Status,
		ResolverID:      r.ResolverID,
		ResolutionNotes: r.ResolutionNotes,
		ResolvedAt:      r.ResolvedAt,
		CreatedAt:       r.CreatedAt,
	}
}

func ToAuditLogResponse(a *AuditLog) AuditLogResponse {
	return AuditLogResponse{
		ID:         a.ID,
		ActorID:    a.ActorID,
		Action:     a.Action,
		TargetType: a.TargetType,
		TargetID:   a.TargetID,
		Metadata:   a.Metadata,
		CreatedAt:  a.CreatedAt,
	}
}

func ToDashboardStats(c *Counts) DashboardStats {
	return DashboardStats{
		TotalUsers:      c.TotalUsers,
		ActiveUsers:     c.ActiveUsers,
		TotalItems:      c.TotalItems,
		PendingItems:    c.PendingItems,
		TotalOrders:     c.TotalOrders,
		CompletedOrders: c.CompletedOrders,
		TotalReports:    c.TotalReports,
		OpenReports:     c.OpenReports,
		TotalRevenue:    c.TotalRevenue,
	}
}

func ToActivityResponses(rows []Activity) []ActivityResponse {
	out := make([]ActivityResponse, len(rows))
	for i, a := range rows {
		out[i] = ActivityResponse{
			ID:          a.ID,
			Description: a.Description,
			Timestamp:   a.Timestamp,
			Type:        a.Type,
		}
	}
	return out
}
