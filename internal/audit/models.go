// Package audit is the append-only trail of credit application mutations.
// Entries are never updated or deleted; every workflow mutation produces
// exactly one entry, written after the application row is durable.
package audit

import (
	"time"

	id "creditdesk/pkg/domain"
)

// Actions recorded by the credit workflow. Action is free text so future
// subsystems can add their own classifiers without a schema change.
const (
	ActionCreate       = "CREATE"
	ActionStatusUpdate = "STATUS_UPDATE"
)

// Entry is one immutable audit record. PreviousStatus and NewStatus are both
// set for status updates; creation entries carry only NewStatus.
type Entry struct {
	ID             int64                 `json:"id"`
	ApplicationID  id.ApplicationID      `json:"applicationId"`
	UserID         id.UserID             `json:"userId"`
	Action         string                `json:"action"`
	Details        string                `json:"details"`
	PreviousStatus *id.ApplicationStatus `json:"previousStatus,omitempty"`
	NewStatus      *id.ApplicationStatus `json:"newStatus,omitempty"`
	Timestamp      time.Time             `json:"timestamp"`
}

// Filter narrows read-side queries. Zero-value fields are ignored.
type Filter struct {
	ApplicationID *id.ApplicationID
	UserID        *id.UserID
	Action        string
	StartDate     *time.Time
	EndDate       *time.Time
}

// IsZero reports whether no filter criteria are set.
func (f *Filter) IsZero() bool {
	return f == nil || (f.ApplicationID == nil && f.UserID == nil && f.Action == "" &&
		f.StartDate == nil && f.EndDate == nil)
}

// PaginatedResult is one page of entries plus paging metadata.
type PaginatedResult struct {
	Items       []Entry `json:"items"`
	TotalCount  int     `json:"totalCount"`
	TotalPages  int     `json:"totalPages"`
	CurrentPage int     `json:"currentPage"`
	PageSize    int     `json:"pageSize"`
}

// UserActivity ranks a user by recorded actions within a window.
type UserActivity struct {
	UserID      id.UserID `json:"userId"`
	Email       string    `json:"email"`
	FullName    string    `json:"fullName"`
	Role        string    `json:"role"`
	ActionCount int       `json:"actionCount"`
}

// Statistics aggregates the trail over a date window.
type Statistics struct {
	TotalLogs      int            `json:"totalLogs"`
	LogsByAction   map[string]int `json:"logsByAction"`
	LogsByDate     map[string]int `json:"logsByDate"`
	TopActiveUsers []UserActivity `json:"topActiveUsers"`
	StatusChanges  map[string]int `json:"statusChanges"`
}
