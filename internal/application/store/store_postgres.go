package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"creditdesk/internal/application"
	id "creditdesk/pkg/domain"
	dErrors "creditdesk/pkg/domain-errors"
	txcontext "creditdesk/pkg/platform/tx"
)

// PostgresStore persists credit applications. Mutations join the caller's
// transaction when one is carried in context.
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

func (s *PostgresStore) Create(ctx context.Context, app *application.CreditApplication) error {
	var suggested sql.NullString
	if app.SuggestedStatus != nil {
		suggested = sql.NullString{String: app.SuggestedStatus.String(), Valid: true}
	}
	err := s.execer(ctx).QueryRowContext(ctx, `
		INSERT INTO credit_applications
			(user_id, requested_amount, term_months, monthly_income, work_experience_years,
			 status, suggested_status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`,
		uuid.UUID(app.UserID),
		app.RequestedAmount,
		app.TermMonths,
		app.MonthlyIncome,
		app.WorkExperienceYears,
		app.Status.String(),
		suggested,
		app.CreatedAt,
	).Scan(&app.ID)
	if err != nil {
		return fmt.Errorf("insert credit application: %w", err)
	}
	return nil
}

const selectApplication = `
	SELECT id, user_id, requested_amount, term_months, monthly_income, work_experience_years,
	       status, suggested_status, created_at, updated_at
	FROM credit_applications
`

func (s *PostgresStore) GetByID(ctx context.Context, applicationID id.ApplicationID) (*application.CreditApplication, error) {
	row := s.db.QueryRowContext(ctx, selectApplication+` WHERE id = $1`, applicationID.Int64())
	app, err := scanApplication(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, dErrors.New(dErrors.CodeNotFound, "credit application not found")
	}
	if err != nil {
		return nil, fmt.Errorf("query credit application: %w", err)
	}
	return app, nil
}

func (s *PostgresStore) GetByUserID(ctx context.Context, userID id.UserID) ([]application.CreditApplication, error) {
	rows, err := s.db.QueryContext(ctx,
		selectApplication+` WHERE user_id = $1 ORDER BY created_at DESC, id DESC`,
		uuid.UUID(userID))
	if err != nil {
		return nil, fmt.Errorf("query user applications: %w", err)
	}
	defer rows.Close()
	return scanApplications(rows)
}

func (s *PostgresStore) GetAll(ctx context.Context, statusFilter *id.ApplicationStatus) ([]application.CreditApplication, error) {
	query := selectApplication
	args := []any{}
	if statusFilter != nil {
		query += ` WHERE status = $1`
		args = append(args, statusFilter.String())
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query applications: %w", err)
	}
	defer rows.Close()
	return scanApplications(rows)
}

func (s *PostgresStore) Update(ctx context.Context, app *application.CreditApplication) error {
	result, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE credit_applications
		SET status = $1, updated_at = $2
		WHERE id = $3
	`, app.Status.String(), app.UpdatedAt, app.ID.Int64())
	if err != nil {
		return fmt.Errorf("update credit application: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update credit application: %w", err)
	}
	if affected == 0 {
		return dErrors.New(dErrors.CodeNotFound, "credit application not found")
	}
	return nil
}

func scanApplication(scan func(...any) error) (*application.CreditApplication, error) {
	var (
		app       application.CreditApplication
		appID     int64
		userID    uuid.UUID
		status    string
		suggested sql.NullString
		updatedAt sql.NullTime
	)
	err := scan(&appID, &userID, &app.RequestedAmount, &app.TermMonths, &app.MonthlyIncome,
		&app.WorkExperienceYears, &status, &suggested, &app.CreatedAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	app.ID = id.ApplicationID(appID)
	app.UserID = id.UserID(userID)
	app.Status = id.ApplicationStatus(status)
	if suggested.Valid {
		st := id.ApplicationStatus(suggested.String)
		app.SuggestedStatus = &st
	}
	if updatedAt.Valid {
		t := updatedAt.Time
		app.UpdatedAt = &t
	}
	return &app, nil
}

func scanApplications(rows *sql.Rows) ([]application.CreditApplication, error) {
	var apps []application.CreditApplication
	for rows.Next() {
		app, err := scanApplication(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan credit application: %w", err)
		}
		apps = append(apps, *app)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate credit applications: %w", err)
	}
	return apps, nil
}
