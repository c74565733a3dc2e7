package audit

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"creditdesk/internal/platform/metrics"
	id "creditdesk/pkg/domain"
	dErrors "creditdesk/pkg/domain-errors"
	"creditdesk/pkg/requestcontext"
)

// statisticsWindow is the default trailing window for aggregate statistics.
const statisticsWindow = 30 * 24 * time.Hour

// topActiveUserLimit caps the activity ranking.
const topActiveUserLimit = 5

// Store persists audit entries. Append is the only write; everything else is
// a read-only projection over the append-only log.
type Store interface {
	Append(ctx context.Context, entry *Entry) error
	ListAll(ctx context.Context) ([]Entry, error)
	ListByApplication(ctx context.Context, applicationID id.ApplicationID) ([]Entry, error)
	ListByUser(ctx context.Context, userID id.UserID) ([]Entry, error)
	ListByAction(ctx context.Context, action string) ([]Entry, error)
	ListByDateRange(ctx context.Context, start, end time.Time) ([]Entry, error)
	ListPaginated(ctx context.Context, page, pageSize int, filter *Filter) ([]Entry, int, error)
}

// UserInfo is the directory projection used to enrich statistics.
type UserInfo struct {
	ID        id.UserID
	Email     string
	FirstName string
	LastName  string
	Role      id.Role
}

// UserDirectory resolves user details for statistics enrichment. Related
// records are fetched through explicit calls composed here, never through
// lazy-loaded relations on the entry itself.
type UserDirectory interface {
	FindByID(ctx context.Context, userID id.UserID) (*UserInfo, error)
}

// Service records and queries the audit trail. Record is fail-closed: if the
// entry cannot be persisted the surrounding operation must fail too.
type Service struct {
	store   Store
	users   UserDirectory
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewService(store Store, users UserDirectory, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{store: store, users: users, logger: logger, metrics: m}
}

// Record appends one entry. The timestamp is assigned here, at write time,
// never by the caller.
func (s *Service) Record(
	ctx context.Context,
	applicationID id.ApplicationID,
	actorID id.UserID,
	action string,
	details string,
	previousStatus, newStatus *id.ApplicationStatus,
) error {
	entry := &Entry{
		ApplicationID:  applicationID,
		UserID:         actorID,
		Action:         action,
		Details:        details,
		PreviousStatus: previousStatus,
		NewStatus:      newStatus,
		Timestamp:      requestcontext.Now(ctx),
	}
	if err := s.store.Append(ctx, entry); err != nil {
		s.logger.ErrorContext(ctx, "audit append failed",
			"application_id", applicationID.String(),
			"action", action,
			"error", err,
		)
		return dErrors.Wrap(err, dErrors.CodeInternal, "audit append failed")
	}
	s.metrics.IncAuditEvents(action)
	return nil
}

// List returns the full trail, newest first.
func (s *Service) List(ctx context.Context) ([]Entry, error) {
	return s.store.ListAll(ctx)
}

// ListByApplication returns all entries for one application, newest first.
func (s *Service) ListByApplication(ctx context.Context, applicationID id.ApplicationID) ([]Entry, error) {
	return s.store.ListByApplication(ctx, applicationID)
}

// ListByUser returns all entries recorded by one user, newest first.
func (s *Service) ListByUser(ctx context.Context, userID id.UserID) ([]Entry, error) {
	return s.store.ListByUser(ctx, userID)
}

// ListFiltered applies the first matching criterion, mirroring the query
// precedence of the HTTP filter endpoint: application, user, action, date
// range, then everything.
func (s *Service) ListFiltered(ctx context.Context, filter Filter) ([]Entry, error) {
	switch {
	case filter.ApplicationID != nil:
		return s.store.ListByApplication(ctx, *filter.ApplicationID)
	case filter.UserID != nil:
		return s.store.ListByUser(ctx, *filter.UserID)
	case filter.Action != "":
		return s.store.ListByAction(ctx, filter.Action)
	case filter.StartDate != nil && filter.EndDate != nil:
		return s.store.ListByDateRange(ctx, *filter.StartDate, *filter.EndDate)
	default:
		return s.store.ListAll(ctx)
	}
}

// ListPaginated returns one page of the (optionally filtered) trail.
func (s *Service) ListPaginated(ctx context.Context, page, pageSize int, filter *Filter) (*PaginatedResult, error) {
	if page < 1 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "page must be at least 1")
	}
	if pageSize < 1 || pageSize > 100 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "pageSize must be between 1 and 100")
	}

	items, total, err := s.store.ListPaginated(ctx, page, pageSize, filter)
	if err != nil {
		return nil, err
	}
	totalPages := (total + pageSize - 1) / pageSize
	if items == nil {
		items = []Entry{}
	}
	return &PaginatedResult{
		Items:       items,
		TotalCount:  total,
		TotalPages:  totalPages,
		CurrentPage: page,
		PageSize:    pageSize,
	}, nil
}

// GetStatistics aggregates the trail over [start, end]. A missing end
// defaults to now, a missing start to 30 days before end.
func (s *Service) GetStatistics(ctx context.Context, start, end *time.Time) (*Statistics, error) {
	to := requestcontext.Now(ctx)
	if end != nil {
		to = *end
	}
	from := to.Add(-statisticsWindow)
	if start != nil {
		from = *start
	}
	if from.After(to) {
		return nil, dErrors.New(dErrors.CodeBadRequest, "start date must not be after end date")
	}

	entries, err := s.store.ListByDateRange(ctx, from, to)
	if err != nil {
		return nil, err
	}

	stats := &Statistics{
		TotalLogs:      len(entries),
		LogsByAction:   make(map[string]int),
		LogsByDate:     make(map[string]int),
		TopActiveUsers: []UserActivity{},
		StatusChanges:  make(map[string]int),
	}

	byUser := make(map[id.UserID]int)
	for _, entry := range entries {
		stats.LogsByAction[entry.Action]++
		stats.LogsByDate[entry.Timestamp.UTC().Format("2006-01-02")]++
		byUser[entry.UserID]++
		if entry.PreviousStatus != nil && entry.NewStatus != nil && *entry.PreviousStatus != *entry.NewStatus {
			stats.StatusChanges[entry.PreviousStatus.String()+" -> "+entry.NewStatus.String()]++
		}
	}

	stats.TopActiveUsers = s.rankUsers(ctx, byUser)
	return stats, nil
}

// rankUsers resolves the most active users through the directory. Users that
// can no longer be resolved are skipped rather than failing the whole report.
func (s *Service) rankUsers(ctx context.Context, byUser map[id.UserID]int) []UserActivity {
	type userCount struct {
		userID id.UserID
		count  int
	}
	counts := make([]userCount, 0, len(byUser))
	for userID, count := range byUser {
		counts = append(counts, userCount{userID: userID, count: count})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].count != counts[j].count {
			return counts[i].count > counts[j].count
		}
		return counts[i].userID.String() < counts[j].userID.String()
	})
	if len(counts) > topActiveUserLimit {
		counts = counts[:topActiveUserLimit]
	}

	ranked := make([]UserActivity, 0, len(counts))
	for _, c := range counts {
		info, err := s.users.FindByID(ctx, c.userID)
		if err != nil || info == nil {
			s.logger.WarnContext(ctx, "skipping unresolved user in statistics",
				"user_id", c.userID.String(),
			)
			continue
		}
		fullName := info.FirstName
		if info.LastName != "" {
			if fullName != "" {
				fullName += " "
			}
			fullName += info.LastName
		}
		ranked = append(ranked, UserActivity{
			UserID:      c.userID,
			Email:       info.Email,
			FullName:    fullName,
			Role:        info.Role.String(),
			ActionCount: c.count,
		})
	}
	return ranked
}
