package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"creditdesk/internal/audit"
	id "creditdesk/pkg/domain"
	txcontext "creditdesk/pkg/platform/tx"
)

// PostgresStore persists audit entries. Every append also writes an outbox
// row in the same statement scope, so when the caller runs inside a
// transaction the query table and the outbox stay consistent. The outbox
// worker drains those rows to Kafka.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// outboxPayload is the JSON structure published to Kafka. Field names match
// audit.Entry so consumers can deserialize with the same model.
type outboxPayload struct {
	ID             string `json:"id"`
	ApplicationID  int64  `json:"applicationId"`
	UserID         string `json:"userId"`
	Action         string `json:"action"`
	Details        string `json:"details"`
	PreviousStatus string `json:"previousStatus,omitempty"`
	NewStatus      string `json:"newStatus,omitempty"`
	Timestamp      string `json:"timestamp"`
}

func (s *PostgresStore) Append(ctx context.Context, entry *audit.Entry) error {
	execer := s.execer(ctx)

	var prev, next sql.NullString
	if entry.PreviousStatus != nil {
		prev = sql.NullString{String: entry.PreviousStatus.String(), Valid: true}
	}
	if entry.NewStatus != nil {
		next = sql.NullString{String: entry.NewStatus.String(), Valid: true}
	}

	err := execer.QueryRowContext(ctx, `
		INSERT INTO audit_logs (application_id, user_id, action, details, previous_status, new_status, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`,
		entry.ApplicationID.Int64(),
		uuid.UUID(entry.UserID),
		entry.Action,
		entry.Details,
		prev,
		next,
		entry.Timestamp,
	).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}

	eventID := uuid.New()
	payload := outboxPayload{
		ID:            eventID.String(),
		ApplicationID: entry.ApplicationID.Int64(),
		UserID:        entry.UserID.String(),
		Action:        entry.Action,
		Details:       entry.Details,
		Timestamp:     entry.Timestamp.Format(time.RFC3339Nano),
	}
	if entry.PreviousStatus != nil {
		payload.PreviousStatus = entry.PreviousStatus.String()
	}
	if entry.NewStatus != nil {
		payload.NewStatus = entry.NewStatus.String()
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal outbox payload: %w", err)
	}

	_, err = execer.ExecContext(ctx, `
		INSERT INTO audit_outbox (id, payload, created_at)
		VALUES ($1, $2, $3)
	`, eventID, payloadBytes, entry.Timestamp)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

const selectEntry = `
	SELECT id, application_id, user_id, action, details, previous_status, new_status, recorded_at
	FROM audit_logs
`

func (s *PostgresStore) ListAll(ctx context.Context) ([]audit.Entry, error) {
	rows, err := s.db.QueryContext(ctx, selectEntry+` ORDER BY recorded_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query audit logs: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (s *PostgresStore) ListByApplication(ctx context.Context, applicationID id.ApplicationID) ([]audit.Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		selectEntry+` WHERE application_id = $1 ORDER BY recorded_at DESC, id DESC`,
		applicationID.Int64())
	if err != nil {
		return nil, fmt.Errorf("query audit logs by application: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID) ([]audit.Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		selectEntry+` WHERE user_id = $1 ORDER BY recorded_at DESC, id DESC`,
		uuid.UUID(userID))
	if err != nil {
		return nil, fmt.Errorf("query audit logs by user: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (s *PostgresStore) ListByAction(ctx context.Context, action string) ([]audit.Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		selectEntry+` WHERE action = $1 ORDER BY recorded_at DESC, id DESC`,
		action)
	if err != nil {
		return nil, fmt.Errorf("query audit logs by action: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (s *PostgresStore) ListByDateRange(ctx context.Context, start, end time.Time) ([]audit.Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		selectEntry+` WHERE recorded_at >= $1 AND recorded_at <= $2 ORDER BY recorded_at DESC, id DESC`,
		start, end)
	if err != nil {
		return nil, fmt.Errorf("query audit logs by date range: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (s *PostgresStore) ListPaginated(ctx context.Context, page, pageSize int, filter *audit.Filter) ([]audit.Entry, int, error) {
	where, args := buildFilter(filter)

	var total int
	countQuery := `SELECT COUNT(*) FROM audit_logs` + where
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count audit logs: %w", err)
	}

	args = append(args, pageSize, (page-1)*pageSize)
	query := fmt.Sprintf("%s%s ORDER BY recorded_at DESC, id DESC LIMIT $%d OFFSET $%d",
		selectEntry, where, len(args)-1, len(args))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query audit logs page: %w", err)
	}
	defer rows.Close()

	entries, err := scanEntries(rows)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func buildFilter(filter *audit.Filter) (string, []any) {
	if filter.IsZero() {
		return "", nil
	}
	var clauses []string
	var args []any
	add := func(clause string, arg any) {
		args = append(args, arg)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}
	if filter.ApplicationID != nil {
		add("application_id = $%d", filter.ApplicationID.Int64())
	}
	if filter.UserID != nil {
		add("user_id = $%d", uuid.UUID(*filter.UserID))
	}
	if filter.Action != "" {
		add("action = $%d", filter.Action)
	}
	if filter.StartDate != nil {
		add("recorded_at >= $%d", *filter.StartDate)
	}
	if filter.EndDate != nil {
		add("recorded_at <= $%d", *filter.EndDate)
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func scanEntries(rows *sql.Rows) ([]audit.Entry, error) {
	var entries []audit.Entry
	for rows.Next() {
		var (
			entry      audit.Entry
			appID      int64
			userID     uuid.UUID
			prev, next sql.NullString
		)
		err := rows.Scan(&entry.ID, &appID, &userID, &entry.Action, &entry.Details, &prev, &next, &entry.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("scan audit log: %w", err)
		}
		entry.ApplicationID = id.ApplicationID(appID)
		entry.UserID = id.UserID(userID)
		if prev.Valid {
			status := id.ApplicationStatus(prev.String)
			entry.PreviousStatus = &status
		}
		if next.Valid {
			status := id.ApplicationStatus(next.String)
			entry.NewStatus = &status
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit logs: %w", err)
	}
	return entries, nil
}

// OutboxRow is one undelivered audit event.
type OutboxRow struct {
	ID      uuid.UUID
	Payload []byte
}

// ListUnpublished returns up to limit undelivered outbox rows, oldest first.
func (s *PostgresStore) ListUnpublished(ctx context.Context, limit int) ([]OutboxRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, payload
		FROM audit_outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer rows.Close()

	var out []OutboxRow
	for rows.Next() {
		var row OutboxRow
		if err := rows.Scan(&row.ID, &row.Payload); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox: %w", err)
	}
	return out, nil
}

// MarkPublished stamps rows as delivered. Rows are never deleted so the
// outbox doubles as a delivery ledger.
func (s *PostgresStore) MarkPublished(ctx context.Context, ids []uuid.UUID, publishedAt time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := make([]string, len(ids))
	args := make([]any, 0, len(ids)+1)
	args = append(args, publishedAt)
	for i, rowID := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+2)
		args = append(args, rowID)
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE audit_outbox SET published_at = $1 WHERE id IN (`+strings.Join(placeholders, ", ")+`)`,
		args...)
	if err != nil {
		return fmt.Errorf("mark outbox published: %w", err)
	}
	return nil
}
