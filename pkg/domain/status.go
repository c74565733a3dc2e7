package domain

import dErrors "creditdesk/pkg/domain-errors"

// ApplicationStatus tracks a credit application through its workflow.
// Invariant: the value must be one of the supported statuses.
//
// Usage: construct via ParseApplicationStatus at trust boundaries to enforce
// the allowlist; direct casting bypasses validation.
type ApplicationStatus string

const (
	StatusPending  ApplicationStatus = "Pending"
	StatusApproved ApplicationStatus = "Approved"
	StatusRejected ApplicationStatus = "Rejected"
)

// validApplicationStatuses is the single source of truth for valid statuses.
var validApplicationStatuses = map[ApplicationStatus]bool{
	StatusPending:  true,
	StatusApproved: true,
	StatusRejected: true,
}

// ParseApplicationStatus constructs an ApplicationStatus from external input.
//
// Errors: returns CodeInvalidInput when the value is empty or unsupported.
func ParseApplicationStatus(s string) (ApplicationStatus, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "status cannot be empty")
	}
	st := ApplicationStatus(s)
	if !st.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid status: "+s)
	}
	return st, nil
}

// IsValid checks if the status is one of the supported enum values.
func (s ApplicationStatus) IsValid() bool {
	return validApplicationStatuses[s]
}

func (s ApplicationStatus) String() string {
	return string(s)
}
