package service

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"creditdesk/internal/application"
	appstore "creditdesk/internal/application/store"
	"creditdesk/internal/audit"
	auditstore "creditdesk/internal/audit/store"
	id "creditdesk/pkg/domain"
	dErrors "creditdesk/pkg/domain-errors"
	"creditdesk/pkg/requestcontext"
)

type stubDirectory struct{}

func (stubDirectory) FindByID(context.Context, id.UserID) (*audit.UserInfo, error) {
	return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
}

// failingRecorder rejects every append so audit-failure handling can be
// exercised.
type failingRecorder struct{}

func (failingRecorder) Record(context.Context, id.ApplicationID, id.UserID, string, string, *id.ApplicationStatus, *id.ApplicationStatus) error {
	return errors.New("audit store down")
}

type WorkflowSuite struct {
	suite.Suite
	apps     *appstore.InMemoryStore
	trail    *auditstore.InMemoryStore
	auditSvc *audit.Service
	svc      *Service
	userID   id.UserID
	analyst  id.UserID
}

func (s *WorkflowSuite) SetupTest() {
	logger := slog.New(slog.DiscardHandler)
	s.apps = appstore.NewInMemoryStore()
	s.trail = auditstore.NewInMemoryStore()
	s.auditSvc = audit.NewService(s.trail, stubDirectory{}, logger, nil)
	s.svc = NewService(s.apps, s.auditSvc, nil, logger, nil)
	s.userID = id.NewUserID()
	s.analyst = id.NewUserID()
}

func (s *WorkflowSuite) SetupSubTest() {
	s.SetupTest()
}

func TestWorkflowSuite(t *testing.T) {
	suite.Run(t, new(WorkflowSuite))
}

func (s *WorkflowSuite) ctx() context.Context {
	return requestcontext.WithTime(context.Background(), time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
}

func validAttrs() application.Attributes {
	return application.Attributes{
		RequestedAmount:     5000,
		TermMonths:          24,
		MonthlyIncome:       2000,
		WorkExperienceYears: 3,
	}
}

func (s *WorkflowSuite) TestCreateApplication() {
	s.Run("persists with Pending status and the engine suggestion", func() {
		app, err := s.svc.CreateApplication(s.ctx(), s.userID, validAttrs())
		s.Require().NoError(err)

		s.Equal(id.StatusPending, app.Status)
		s.Require().NotNil(app.SuggestedStatus)
		s.Equal(id.StatusApproved, *app.SuggestedStatus)
		s.NotZero(app.ID)
		s.Nil(app.UpdatedAt)

		stored, err := s.apps.GetByID(context.Background(), app.ID)
		s.Require().NoError(err)
		s.Equal(id.StatusPending, stored.Status)
	})

	s.Run("writes exactly one creation audit entry", func() {
		app, err := s.svc.CreateApplication(s.ctx(), s.userID, validAttrs())
		s.Require().NoError(err)

		entries, err := s.trail.ListByApplication(context.Background(), app.ID)
		s.Require().NoError(err)
		s.Require().Len(entries, 1)
		s.Equal(audit.ActionCreate, entries[0].Action)
		s.Equal(s.userID, entries[0].UserID)
		s.Nil(entries[0].PreviousStatus)
		s.Require().NotNil(entries[0].NewStatus)
		s.Equal(id.StatusPending, *entries[0].NewStatus)
	})

	s.Run("marginal profile is suggested Pending but still stored Pending", func() {
		attrs := validAttrs()
		attrs.MonthlyIncome = 1200
		attrs.WorkExperienceYears = 1

		app, err := s.svc.CreateApplication(s.ctx(), s.userID, attrs)
		s.Require().NoError(err)
		s.Equal(id.StatusPending, app.Status)
		s.Equal(id.StatusPending, *app.SuggestedStatus)
	})

	s.Run("weak profile is suggested Rejected but still stored Pending", func() {
		attrs := validAttrs()
		attrs.MonthlyIncome = 800
		attrs.WorkExperienceYears = 0

		app, err := s.svc.CreateApplication(s.ctx(), s.userID, attrs)
		s.Require().NoError(err)
		s.Equal(id.StatusPending, app.Status)
		s.Equal(id.StatusRejected, *app.SuggestedStatus)
	})

	s.Run("amount at the floor writes nothing", func() {
		attrs := validAttrs()
		attrs.RequestedAmount = 10.00

		_, err := s.svc.CreateApplication(s.ctx(), s.userID, attrs)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

		apps, err := s.apps.GetByUserID(context.Background(), s.userID)
		s.Require().NoError(err)
		s.Empty(apps)
		entries, err := s.trail.ListAll(context.Background())
		s.Require().NoError(err)
		s.Empty(entries)
	})

	s.Run("non-positive term is rejected before evaluation", func() {
		attrs := validAttrs()
		attrs.TermMonths = 0

		_, err := s.svc.CreateApplication(s.ctx(), s.userID, attrs)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("audit failure fails the operation", func() {
		logger := slog.New(slog.DiscardHandler)
		svc := NewService(appstore.NewInMemoryStore(), failingRecorder{}, nil, logger, nil)

		_, err := svc.CreateApplication(s.ctx(), s.userID, validAttrs())
		s.Require().Error(err)
	})
}

func (s *WorkflowSuite) TestUpdateStatus() {
	s.Run("applies the transition and audits it", func() {
		app, err := s.svc.CreateApplication(s.ctx(), s.userID, validAttrs())
		s.Require().NoError(err)

		updated, err := s.svc.UpdateStatus(s.ctx(), app.ID, id.StatusApproved, s.analyst)
		s.Require().NoError(err)
		s.Equal(id.StatusApproved, updated.Status)
		s.Require().NotNil(updated.UpdatedAt)

		entries, err := s.trail.ListByApplication(context.Background(), app.ID)
		s.Require().NoError(err)
		s.Require().Len(entries, 2)
		s.Equal(audit.ActionStatusUpdate, entries[0].Action)
		s.Equal(s.analyst, entries[0].UserID)
		s.Equal(id.StatusPending, *entries[0].PreviousStatus)
		s.Equal(id.StatusApproved, *entries[0].NewStatus)
		s.Contains(entries[0].Details, "Status changed from Pending to Approved")
	})

	s.Run("any transition is allowed, including reversals", func() {
		app, err := s.svc.CreateApplication(s.ctx(), s.userID, validAttrs())
		s.Require().NoError(err)

		_, err = s.svc.UpdateStatus(s.ctx(), app.ID, id.StatusApproved, s.analyst)
		s.Require().NoError(err)
		updated, err := s.svc.UpdateStatus(s.ctx(), app.ID, id.StatusRejected, s.analyst)
		s.Require().NoError(err)
		s.Equal(id.StatusRejected, updated.Status)
	})

	s.Run("repeating a transition appends another entry", func() {
		app, err := s.svc.CreateApplication(s.ctx(), s.userID, validAttrs())
		s.Require().NoError(err)

		_, err = s.svc.UpdateStatus(s.ctx(), app.ID, id.StatusApproved, s.analyst)
		s.Require().NoError(err)
		_, err = s.svc.UpdateStatus(s.ctx(), app.ID, id.StatusApproved, s.analyst)
		s.Require().NoError(err)

		entries, err := s.trail.ListByAction(context.Background(), audit.ActionStatusUpdate)
		s.Require().NoError(err)
		s.Len(entries, 2)
		s.Contains(entries[0].Details, "Status changed from Approved to Approved")
	})

	s.Run("unknown application returns not found and writes nothing", func() {
		_, err := s.svc.UpdateStatus(s.ctx(), id.ApplicationID(9999), id.StatusApproved, s.analyst)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

		entries, err := s.trail.ListAll(context.Background())
		s.Require().NoError(err)
		s.Empty(entries)
	})

	s.Run("unsupported status is rejected", func() {
		app, err := s.svc.CreateApplication(s.ctx(), s.userID, validAttrs())
		s.Require().NoError(err)

		_, err = s.svc.UpdateStatus(s.ctx(), app.ID, id.ApplicationStatus("Cancelled"), s.analyst)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func (s *WorkflowSuite) TestQueries() {
	s.Run("user sees only their own applications, newest first", func() {
		other := id.NewUserID()
		base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

		for i := 0; i < 3; i++ {
			ctx := requestcontext.WithTime(context.Background(), base.Add(time.Duration(i)*time.Minute))
			_, err := s.svc.CreateApplication(ctx, s.userID, validAttrs())
			s.Require().NoError(err)
		}
		_, err := s.svc.CreateApplication(s.ctx(), other, validAttrs())
		s.Require().NoError(err)

		mine, err := s.svc.GetUserApplications(context.Background(), s.userID)
		s.Require().NoError(err)
		s.Require().Len(mine, 3)
		for i := 1; i < len(mine); i++ {
			s.False(mine[i-1].CreatedAt.Before(mine[i].CreatedAt))
		}
	})

	s.Run("status filter narrows the full listing", func() {
		a, err := s.svc.CreateApplication(s.ctx(), s.userID, validAttrs())
		s.Require().NoError(err)
		_, err = s.svc.CreateApplication(s.ctx(), s.userID, validAttrs())
		s.Require().NoError(err)
		_, err = s.svc.UpdateStatus(s.ctx(), a.ID, id.StatusApproved, s.analyst)
		s.Require().NoError(err)

		approved := id.StatusApproved
		apps, err := s.svc.GetAllApplications(context.Background(), &approved)
		s.Require().NoError(err)
		s.Require().Len(apps, 1)
		s.Equal(a.ID, apps[0].ID)
	})

	s.Run("invalid status filter is rejected", func() {
		bogus := id.ApplicationStatus("Unknown")
		_, err := s.svc.GetAllApplications(context.Background(), &bogus)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

// TestApplicationLifecycle walks one application through creation, review,
// and the audit trail it leaves behind.
func (s *WorkflowSuite) TestApplicationLifecycle() {
	app, err := s.svc.CreateApplication(s.ctx(), s.userID, application.Attributes{
		RequestedAmount:     12000,
		TermMonths:          36,
		MonthlyIncome:       1600,
		WorkExperienceYears: 4,
	})
	s.Require().NoError(err)
	s.Equal(id.StatusPending, app.Status)
	s.Equal(id.StatusApproved, *app.SuggestedStatus)

	_, err = s.svc.UpdateStatus(s.ctx(), app.ID, id.StatusApproved, s.analyst)
	s.Require().NoError(err)

	entries, err := s.trail.ListByApplication(context.Background(), app.ID)
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	s.Equal(audit.ActionStatusUpdate, entries[0].Action)
	s.Equal(audit.ActionCreate, entries[1].Action)

	final, err := s.apps.GetByID(context.Background(), app.ID)
	s.Require().NoError(err)
	s.Equal(id.StatusApproved, final.Status)
	s.Equal(id.StatusApproved, *final.SuggestedStatus)
}
