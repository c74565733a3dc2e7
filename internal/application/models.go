// Package application defines the credit application entity and its workflow
// requests.
package application

import (
	"time"

	id "creditdesk/pkg/domain"
)

// CreditApplication is the workflow's aggregate. Status starts at Pending and
// is only mutated through the status update operation; SuggestedStatus is
// computed once at creation and never overwrites Status.
type CreditApplication struct {
	ID                  id.ApplicationID      `json:"id"`
	UserID              id.UserID             `json:"userId"`
	RequestedAmount     float64               `json:"requestedAmount"`
	TermMonths          int                   `json:"termMonths"`
	MonthlyIncome       float64               `json:"monthlyIncome"`
	WorkExperienceYears int                   `json:"workExperienceYears"`
	Status              id.ApplicationStatus  `json:"status"`
	SuggestedStatus     *id.ApplicationStatus `json:"suggestedStatus,omitempty"`
	CreatedAt           time.Time             `json:"createdAt"`
	UpdatedAt           *time.Time            `json:"updatedAt,omitempty"`
}

// Attributes are the financial facts submitted with a new application.
type Attributes struct {
	RequestedAmount     float64 `json:"requestedAmount"`
	TermMonths          int     `json:"termMonths"`
	MonthlyIncome       float64 `json:"monthlyIncome"`
	WorkExperienceYears int     `json:"workExperienceYears"`
}
