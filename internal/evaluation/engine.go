// Package evaluation holds the automatic credit evaluation rules.
// This is pure domain logic - no I/O, no side effects. The goal is to keep
// the rules centralized and testable.
package evaluation

import (
	id "creditdesk/pkg/domain"
	dErrors "creditdesk/pkg/domain-errors"
)

// MinRequestedAmount is the floor below which an application is not a
// business rejection but a caller error.
const MinRequestedAmount = 10.00

// Thresholds for the rule chain. Amounts are currency units, experience is
// whole years.
const (
	approveIncome     = 1500.00
	approveExperience = 2
	reviewIncome      = 1000.00
	reviewExperience  = 1
)

// Input groups the financial attributes considered by the engine.
type Input struct {
	RequestedAmount     float64
	TermMonths          int
	MonthlyIncome       float64
	WorkExperienceYears int
}

// Evaluate applies the rule chain and returns the suggested status.
// Rule priority (first match wins):
//  1. income >= 1500 and experience >= 2 years: Approved
//  2. income >= 1000 and experience >= 1 year: Pending, flagged for manual review
//  3. otherwise: Rejected
//
// Errors: returns CodeInvalidInput when the requested amount is at or below
// the floor; that is a caller error, not a Rejected outcome.
func Evaluate(in Input) (id.ApplicationStatus, error) {
	if in.RequestedAmount <= MinRequestedAmount {
		return "", dErrors.New(dErrors.CodeInvalidInput, "requested amount must be greater than 10.00")
	}

	if in.MonthlyIncome >= approveIncome && in.WorkExperienceYears >= approveExperience {
		return id.StatusApproved, nil
	}
	if in.MonthlyIncome >= reviewIncome && in.WorkExperienceYears >= reviewExperience {
		return id.StatusPending, nil
	}
	return id.StatusRejected, nil
}
