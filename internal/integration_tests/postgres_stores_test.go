//go:build integration

// Package integration exercises the postgres-backed stores against a real
// database started through testcontainers.
package integration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"creditdesk/internal/application"
	appstore "creditdesk/internal/application/store"
	"creditdesk/internal/audit"
	auditstore "creditdesk/internal/audit/store"
	"creditdesk/internal/auth"
	userstore "creditdesk/internal/auth/store/user"
	id "creditdesk/pkg/domain"
	dErrors "creditdesk/pkg/domain-errors"
	"creditdesk/pkg/platform/tx"
	"creditdesk/pkg/testutil/containers"
)

func seedUser(t *testing.T, users *userstore.PostgresStore) id.UserID {
	t.Helper()
	u := &auth.User{
		ID:           id.NewUserID(),
		Email:        id.NewUserID().String() + "@example.com",
		PasswordHash: "x",
		FirstName:    "Integration",
		LastName:     "User",
		Role:         id.RoleApplicant,
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, users.Create(context.Background(), u))
	return u.ID
}

func TestPostgresStores(t *testing.T) {
	pg := containers.NewPostgresContainer(t)
	ctx := context.Background()

	apps := appstore.NewPostgresStore(pg.DB)
	trail := auditstore.NewPostgresStore(pg.DB)
	users := userstore.NewPostgresStore(pg.DB)
	runner := tx.NewSQLRunner(pg.DB)

	t.Run("application round trip", func(t *testing.T) {
		userID := seedUser(t, users)
		suggested := id.StatusApproved
		app := &application.CreditApplication{
			UserID:              userID,
			RequestedAmount:     7500.50,
			TermMonths:          36,
			MonthlyIncome:       2100,
			WorkExperienceYears: 4,
			Status:              id.StatusPending,
			SuggestedStatus:     &suggested,
			CreatedAt:           time.Now().UTC().Truncate(time.Microsecond),
		}
		require.NoError(t, apps.Create(ctx, app))
		require.NotZero(t, app.ID)

		loaded, err := apps.GetByID(ctx, app.ID)
		require.NoError(t, err)
		assert.Equal(t, app.UserID, loaded.UserID)
		assert.InDelta(t, 7500.50, loaded.RequestedAmount, 0.001)
		require.NotNil(t, loaded.SuggestedStatus)
		assert.Equal(t, id.StatusApproved, *loaded.SuggestedStatus)
		assert.Nil(t, loaded.UpdatedAt)

		now := time.Now().UTC().Truncate(time.Microsecond)
		loaded.Status = id.StatusApproved
		loaded.UpdatedAt = &now
		require.NoError(t, apps.Update(ctx, loaded))

		reloaded, err := apps.GetByID(ctx, app.ID)
		require.NoError(t, err)
		assert.Equal(t, id.StatusApproved, reloaded.Status)
		require.NotNil(t, reloaded.UpdatedAt)
	})

	t.Run("missing application is not found", func(t *testing.T) {
		_, err := apps.GetByID(ctx, id.ApplicationID(99999))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))

		err = apps.Update(ctx, &application.CreditApplication{ID: 99999, Status: id.StatusApproved})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	t.Run("audit append writes the log and an outbox row", func(t *testing.T) {
		userID := seedUser(t, users)
		pending := id.StatusPending
		entry := &audit.Entry{
			ApplicationID: 1,
			UserID:        userID,
			Action:        audit.ActionCreate,
			Details:       "Credit application created",
			NewStatus:     &pending,
			Timestamp:     time.Now().UTC().Truncate(time.Microsecond),
		}
		require.NoError(t, trail.Append(ctx, entry))
		require.NotZero(t, entry.ID)

		rows, err := trail.ListUnpublished(ctx, 100)
		require.NoError(t, err)
		require.NotEmpty(t, rows)

		ids := make([]uuid.UUID, 0, len(rows))
		for _, row := range rows {
			ids = append(ids, row.ID)
		}
		require.NoError(t, trail.MarkPublished(ctx, ids, time.Now().UTC()))

		remaining, err := trail.ListUnpublished(ctx, 100)
		require.NoError(t, err)
		assert.Empty(t, remaining)
	})

	t.Run("rolled back transaction leaves no trace", func(t *testing.T) {
		userID := seedUser(t, users)
		boom := errors.New("boom")

		err := runner.RunInTx(ctx, func(txCtx context.Context) error {
			app := &application.CreditApplication{
				UserID:          userID,
				RequestedAmount: 500,
				TermMonths:      12,
				MonthlyIncome:   1000,
				Status:          id.StatusPending,
				CreatedAt:       time.Now().UTC(),
			}
			if err := apps.Create(txCtx, app); err != nil {
				return err
			}
			entry := &audit.Entry{
				ApplicationID: app.ID,
				UserID:        userID,
				Action:        audit.ActionCreate,
				Timestamp:     time.Now().UTC(),
			}
			if err := trail.Append(txCtx, entry); err != nil {
				return err
			}
			return boom
		})
		require.ErrorIs(t, err, boom)

		stored, err := apps.GetByUserID(ctx, userID)
		require.NoError(t, err)
		assert.Empty(t, stored)
		entries, err := trail.ListByUser(ctx, userID)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("duplicate user email conflicts", func(t *testing.T) {
		u := &auth.User{
			ID:           id.NewUserID(),
			Email:        "same@example.com",
			PasswordHash: "x",
			FirstName:    "A",
			Role:         id.RoleAnalyst,
			CreatedAt:    time.Now().UTC(),
		}
		require.NoError(t, users.Create(ctx, u))

		dup := *u
		dup.ID = id.NewUserID()
		err := users.Create(ctx, &dup)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})
}
