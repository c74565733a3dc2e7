// Package service orchestrates the credit application lifecycle: creation
// with automatic evaluation, analyst status transitions, and the read-side
// queries. Every mutation is paired with exactly one audit entry.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"creditdesk/internal/application"
	"creditdesk/internal/audit"
	"creditdesk/internal/evaluation"
	"creditdesk/internal/platform/metrics"
	id "creditdesk/pkg/domain"
	dErrors "creditdesk/pkg/domain-errors"
	"creditdesk/pkg/platform/tx"
	"creditdesk/pkg/requestcontext"
)

// Store persists credit applications. Create assigns the ID.
type Store interface {
	Create(ctx context.Context, app *application.CreditApplication) error
	GetByID(ctx context.Context, applicationID id.ApplicationID) (*application.CreditApplication, error)
	GetByUserID(ctx context.Context, userID id.UserID) ([]application.CreditApplication, error)
	GetAll(ctx context.Context, statusFilter *id.ApplicationStatus) ([]application.CreditApplication, error)
	Update(ctx context.Context, app *application.CreditApplication) error
}

// Recorder appends one audit entry per mutation. Failures are terminal for
// the surrounding operation.
type Recorder interface {
	Record(
		ctx context.Context,
		applicationID id.ApplicationID,
		actorID id.UserID,
		action string,
		details string,
		previousStatus, newStatus *id.ApplicationStatus,
	) error
}

// Service is the workflow orchestrator.
//
// The application write and the audit append run inside the injected tx
// runner, in that order. With the SQL runner both land in one transaction;
// with the passthrough runner an audit failure after a durable application
// write leaves a row without a trail entry. That at-least-once gap is
// surfaced to the caller as an error, never hidden.
type Service struct {
	store    Store
	recorder Recorder
	tx       tx.Runner
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
}

func NewService(store Store, recorder Recorder, runner tx.Runner, logger *slog.Logger, m *metrics.Metrics) *Service {
	if runner == nil {
		runner = tx.NewPassthroughRunner()
	}
	return &Service{
		store:    store,
		recorder: recorder,
		tx:       runner,
		logger:   logger,
		metrics:  m,
		tracer:   otel.Tracer("creditdesk/application"),
	}
}

// CreateApplication evaluates, persists, and audits a new application.
// Status is always Pending regardless of the engine's suggestion.
//
// Errors: CodeInvalidInput when the attributes violate the amount floor or
// basic bounds (nothing is written); store failures propagate.
func (s *Service) CreateApplication(ctx context.Context, userID id.UserID, attrs application.Attributes) (*application.CreditApplication, error) {
	ctx, span := s.tracer.Start(ctx, "CreateApplication")
	defer span.End()

	if err := validateAttributes(attrs); err != nil {
		return nil, err
	}

	start := time.Now()
	suggested, err := evaluation.Evaluate(evaluation.Input{
		RequestedAmount:     attrs.RequestedAmount,
		TermMonths:          attrs.TermMonths,
		MonthlyIncome:       attrs.MonthlyIncome,
		WorkExperienceYears: attrs.WorkExperienceYears,
	})
	s.metrics.ObserveEvaluation(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	app := &application.CreditApplication{
		UserID:              userID,
		RequestedAmount:     attrs.RequestedAmount,
		TermMonths:          attrs.TermMonths,
		MonthlyIncome:       attrs.MonthlyIncome,
		WorkExperienceYears: attrs.WorkExperienceYears,
		Status:              id.StatusPending,
		SuggestedStatus:     &suggested,
		CreatedAt:           now,
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.store.Create(txCtx, app); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "create application")
		}
		pending := id.StatusPending
		details := fmt.Sprintf("Credit application created: amount %.2f, term %d months",
			app.RequestedAmount, app.TermMonths)
		return s.recorder.Record(txCtx, app.ID, userID, audit.ActionCreate, details, nil, &pending)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncApplicationsCreated(suggested.String())
	s.logger.InfoContext(ctx, "credit application created",
		"application_id", app.ID.String(),
		"user_id", userID.String(),
		"suggested_status", suggested.String(),
	)
	return app, nil
}

// UpdateStatus applies an analyst decision and audits the transition.
// Any current status may move to any of the three statuses; repeating a
// transition appends another audit entry. Authorization is the caller's
// responsibility.
//
// Errors: CodeNotFound for an unknown id; CodeInvalidInput for an unsupported
// status; store failures propagate.
func (s *Service) UpdateStatus(ctx context.Context, applicationID id.ApplicationID, newStatus id.ApplicationStatus, actorID id.UserID) (*application.CreditApplication, error) {
	ctx, span := s.tracer.Start(ctx, "UpdateStatus")
	defer span.End()

	if !newStatus.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid status: "+newStatus.String())
	}

	app, err := s.store.GetByID(ctx, applicationID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load application")
	}

	previous := app.Status
	now := requestcontext.Now(ctx)
	app.Status = newStatus
	app.UpdatedAt = &now

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.store.Update(txCtx, app); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "update application status")
		}
		details := fmt.Sprintf("Status changed from %s to %s (amount %.2f)",
			previous, newStatus, app.RequestedAmount)
		return s.recorder.Record(txCtx, app.ID, actorID, audit.ActionStatusUpdate, details, &previous, &newStatus)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncStatusUpdates(newStatus.String())
	s.logger.InfoContext(ctx, "credit application status updated",
		"application_id", app.ID.String(),
		"actor_id", actorID.String(),
		"previous_status", previous.String(),
		"new_status", newStatus.String(),
	)
	return app, nil
}

// GetUserApplications returns the user's applications, newest first.
func (s *Service) GetUserApplications(ctx context.Context, userID id.UserID) ([]application.CreditApplication, error) {
	return s.store.GetByUserID(ctx, userID)
}

// GetAllApplications returns every application, optionally restricted to one
// status, newest first.
func (s *Service) GetAllApplications(ctx context.Context, statusFilter *id.ApplicationStatus) ([]application.CreditApplication, error) {
	if statusFilter != nil && !statusFilter.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid status filter")
	}
	return s.store.GetAll(ctx, statusFilter)
}

func validateAttributes(attrs application.Attributes) error {
	if attrs.TermMonths <= 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "term must be a positive number of months")
	}
	if attrs.MonthlyIncome < 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "monthly income must not be negative")
	}
	if attrs.WorkExperienceYears < 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "work experience must not be negative")
	}
	return nil
}
