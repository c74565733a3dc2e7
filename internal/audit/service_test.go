package audit_test

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	. "creditdesk/internal/audit"
	"creditdesk/internal/audit/store"
	id "creditdesk/pkg/domain"
	dErrors "creditdesk/pkg/domain-errors"
	"creditdesk/pkg/requestcontext"
)

// fakeDirectory serves a fixed set of users.
type fakeDirectory struct {
	users map[id.UserID]*UserInfo
}

func (d *fakeDirectory) FindByID(_ context.Context, userID id.UserID) (*UserInfo, error) {
	info, ok := d.users[userID]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
	}
	return info, nil
}

type AuditServiceSuite struct {
	suite.Suite
	store     *store.InMemoryStore
	directory *fakeDirectory
	svc       *Service
}

func (s *AuditServiceSuite) SetupTest() {
	s.store = store.NewInMemoryStore()
	s.directory = &fakeDirectory{users: map[id.UserID]*UserInfo{}}
	s.svc = NewService(s.store, s.directory, slog.New(slog.DiscardHandler), nil)
}

func TestAuditServiceSuite(t *testing.T) {
	suite.Run(t, new(AuditServiceSuite))
}

func (s *AuditServiceSuite) record(appID int64, userID id.UserID, action string, at time.Time, prev, next *id.ApplicationStatus) {
	ctx := requestcontext.WithTime(context.Background(), at)
	err := s.svc.Record(ctx, id.ApplicationID(appID), userID, action, "details", prev, next)
	s.Require().NoError(err)
}

func (s *AuditServiceSuite) TestRecord() {
	s.Run("stamps entries with the request time", func() {
		at := time.Date(2026, 2, 1, 9, 30, 0, 0, time.UTC)
		s.record(1, id.NewUserID(), ActionCreate, at, nil, nil)

		entries, err := s.svc.List(context.Background())
		s.Require().NoError(err)
		s.Require().Len(entries, 1)
		s.Equal(at, entries[0].Timestamp)
		s.NotZero(entries[0].ID)
	})
}

func (s *AuditServiceSuite) TestListFiltered() {
	appFilter := id.ApplicationID(1)
	actor := id.NewUserID()
	other := id.NewUserID()
	day1 := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)

	pending, approved := id.StatusPending, id.StatusApproved
	s.record(1, actor, ActionCreate, day1, nil, &pending)
	s.record(1, other, ActionStatusUpdate, day2, &pending, &approved)
	s.record(2, other, ActionCreate, day2, nil, &pending)

	s.Run("application filter wins over all others", func() {
		entries, err := s.svc.ListFiltered(context.Background(), Filter{
			ApplicationID: &appFilter,
			UserID:        &other,
			Action:        ActionCreate,
		})
		s.Require().NoError(err)
		s.Require().Len(entries, 2)
		for _, e := range entries {
			s.Equal(appFilter, e.ApplicationID)
		}
	})

	s.Run("user filter wins over action", func() {
		entries, err := s.svc.ListFiltered(context.Background(), Filter{
			UserID: &actor,
			Action: ActionStatusUpdate,
		})
		s.Require().NoError(err)
		s.Require().Len(entries, 1)
		s.Equal(actor, entries[0].UserID)
	})

	s.Run("action filter", func() {
		entries, err := s.svc.ListFiltered(context.Background(), Filter{Action: ActionCreate})
		s.Require().NoError(err)
		s.Len(entries, 2)
	})

	s.Run("date range needs both bounds", func() {
		entries, err := s.svc.ListFiltered(context.Background(), Filter{
			StartDate: &day1,
			EndDate:   &day1,
		})
		s.Require().NoError(err)
		s.Len(entries, 1)

		// Only one bound set falls through to the full listing.
		entries, err = s.svc.ListFiltered(context.Background(), Filter{StartDate: &day1})
		s.Require().NoError(err)
		s.Len(entries, 3)
	})

	s.Run("empty filter returns everything newest first", func() {
		entries, err := s.svc.ListFiltered(context.Background(), Filter{})
		s.Require().NoError(err)
		s.Require().Len(entries, 3)
		s.False(entries[0].Timestamp.Before(entries[1].Timestamp))
	})
}

func (s *AuditServiceSuite) TestListPaginated() {
	actor := id.NewUserID()
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 25; i++ {
		s.record(int64(i+1), actor, ActionCreate, base.Add(time.Duration(i)*time.Minute), nil, nil)
	}

	s.Run("returns one page with totals", func() {
		result, err := s.svc.ListPaginated(context.Background(), 2, 10, nil)
		s.Require().NoError(err)
		s.Len(result.Items, 10)
		s.Equal(25, result.TotalCount)
		s.Equal(3, result.TotalPages)
		s.Equal(2, result.CurrentPage)
	})

	s.Run("last page is short", func() {
		result, err := s.svc.ListPaginated(context.Background(), 3, 10, nil)
		s.Require().NoError(err)
		s.Len(result.Items, 5)
	})

	s.Run("page past the end is empty, not an error", func() {
		result, err := s.svc.ListPaginated(context.Background(), 9, 10, nil)
		s.Require().NoError(err)
		s.Empty(result.Items)
		s.Equal(25, result.TotalCount)
	})

	s.Run("rejects page zero and oversized pages", func() {
		_, err := s.svc.ListPaginated(context.Background(), 0, 10, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
		_, err = s.svc.ListPaginated(context.Background(), 1, 101, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})
}

func (s *AuditServiceSuite) TestGetStatistics() {
	now := time.Date(2026, 2, 15, 12, 0, 0, 0, time.UTC)
	analyst := id.NewUserID()
	applicant := id.NewUserID()
	s.directory.users[analyst] = &UserInfo{
		ID: analyst, Email: "ana@example.com", FirstName: "Ana", LastName: "Lyst", Role: id.RoleAnalyst,
	}
	s.directory.users[applicant] = &UserInfo{
		ID: applicant, Email: "app@example.com", FirstName: "App", Role: id.RoleApplicant,
	}

	pending, approved := id.StatusPending, id.StatusApproved
	s.record(1, applicant, ActionCreate, now.AddDate(0, 0, -2), nil, &pending)
	s.record(1, analyst, ActionStatusUpdate, now.AddDate(0, 0, -1), &pending, &approved)
	s.record(2, analyst, ActionCreate, now.AddDate(0, 0, -1), nil, &pending)
	// Outside the default 30-day window.
	s.record(3, applicant, ActionCreate, now.AddDate(0, 0, -40), nil, &pending)

	ctx := requestcontext.WithTime(context.Background(), now)

	s.Run("defaults to the trailing 30 days", func() {
		stats, err := s.svc.GetStatistics(ctx, nil, nil)
		s.Require().NoError(err)
		s.Equal(3, stats.TotalLogs)
		s.Equal(2, stats.LogsByAction[ActionCreate])
		s.Equal(1, stats.LogsByAction[ActionStatusUpdate])
		s.Equal(1, stats.LogsByDate["2026-02-13"])
		s.Equal(2, stats.LogsByDate["2026-02-14"])
		s.Equal(1, stats.StatusChanges["Pending -> Approved"])
	})

	s.Run("ranks users by activity with directory details", func() {
		stats, err := s.svc.GetStatistics(ctx, nil, nil)
		s.Require().NoError(err)
		s.Require().Len(stats.TopActiveUsers, 2)
		s.Equal(analyst, stats.TopActiveUsers[0].UserID)
		s.Equal(2, stats.TopActiveUsers[0].ActionCount)
		s.Equal("Ana Lyst", stats.TopActiveUsers[0].FullName)
		s.Equal("Analyst", stats.TopActiveUsers[0].Role)
		s.Equal("App", stats.TopActiveUsers[1].FullName)
	})

	s.Run("skips users the directory cannot resolve", func() {
		ghost := id.NewUserID()
		s.record(5, ghost, ActionCreate, now.AddDate(0, 0, -3), nil, nil)

		stats, err := s.svc.GetStatistics(ctx, nil, nil)
		s.Require().NoError(err)
		for _, u := range stats.TopActiveUsers {
			s.NotEqual(ghost, u.UserID)
		}
	})

	s.Run("caps the ranking at five users", func() {
		for i := 0; i < 7; i++ {
			userID := id.NewUserID()
			s.directory.users[userID] = &UserInfo{
				ID: userID, Email: fmt.Sprintf("u%d@example.com", i), FirstName: "U", Role: id.RoleApplicant,
			}
			for j := 0; j < 3; j++ {
				s.record(int64(10+i), userID, ActionCreate, now.AddDate(0, 0, -1), nil, nil)
			}
		}
		stats, err := s.svc.GetStatistics(ctx, nil, nil)
		s.Require().NoError(err)
		s.Len(stats.TopActiveUsers, 5)
	})

	s.Run("explicit window bounds the aggregate", func() {
		start := now.AddDate(0, 0, -50)
		end := now.AddDate(0, 0, -35)
		stats, err := s.svc.GetStatistics(ctx, &start, &end)
		s.Require().NoError(err)
		s.Equal(1, stats.TotalLogs)
	})

	s.Run("inverted window is rejected", func() {
		start := now
		end := now.AddDate(0, 0, -1)
		_, err := s.svc.GetStatistics(ctx, &start, &end)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})
}
