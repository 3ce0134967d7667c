package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stwalsh4118/loadcalc/api/internal/database"
	"github.com/stwalsh4118/loadcalc/api/internal/database/dbtest"
	"github.com/stwalsh4118/loadcalc/api/internal/models"
)

// setupTestRepository starts Postgres, applies the schema and returns a
// repository. Skipped unless Docker is available.
func setupTestRepository(t *testing.T) CalculationRepository {
	t.Helper()
	cfg := dbtest.Start(t)

	ctx := context.Background()
	db, err := database.NewPostgresPool(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.EnsureSchema(ctx))

	return NewCalculationRepository(db)
}

func record(projectID string, kind models.CalculationKind, amps float64) *models.Calculation {
	return &models.Calculation{
		ProjectID:    projectID,
		Kind:         kind,
		Input:        json.RawMessage(`{"square_footage":2000}`),
		Result:       json.RawMessage(`{"service_amps":119.3}`),
		Amps:         amps,
		Rating:       150,
		WarningCount: 1,
	}
}

func TestCalculationRepository_Integration(t *testing.T) {
	repo := setupTestRepository(t)
	ctx := context.Background()

	t.Run("save assigns id and timestamp", func(t *testing.T) {
		calc := record("proj-1", models.KindDwelling, 119.3)

		require.NoError(t, repo.Save(ctx, calc))

		assert.NotEqual(t, uuid.Nil, calc.ID)
		assert.False(t, calc.CreatedAt.IsZero())
	})

	t.Run("find by id round trips the record", func(t *testing.T) {
		calc := record("proj-2", models.KindFeeder, 99.92)
		calc.Status = "compliant"
		require.NoError(t, repo.Save(ctx, calc))

		got, err := repo.FindByID(ctx, calc.ID)

		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, calc.ID, got.ID)
		assert.Equal(t, "proj-2", got.ProjectID)
		assert.Equal(t, models.KindFeeder, got.Kind)
		assert.JSONEq(t, `{"square_footage":2000}`, string(got.Input))
		assert.JSONEq(t, `{"service_amps":119.3}`, string(got.Result))
		assert.InDelta(t, 99.92, got.Amps, 1e-9)
		assert.Equal(t, 150, got.Rating)
		assert.Equal(t, "compliant", got.Status)
		assert.Equal(t, 1, got.WarningCount)
	})

	t.Run("find by unknown id returns nil without error", func(t *testing.T) {
		got, err := repo.FindByID(ctx, uuid.New())

		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("record without project is stored", func(t *testing.T) {
		calc := record("", models.KindServiceCheck, 190)
		require.NoError(t, repo.Save(ctx, calc))

		got, err := repo.FindByID(ctx, calc.ID)

		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Empty(t, got.ProjectID)
	})

	t.Run("list by project is newest first and limited", func(t *testing.T) {
		base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		for i := 0; i < 3; i++ {
			calc := record("proj-list", models.KindPanel, float64(i))
			calc.CreatedAt = base.Add(time.Duration(i) * time.Hour)
			require.NoError(t, repo.Save(ctx, calc))
		}
		require.NoError(t, repo.Save(ctx, record("other-project", models.KindPanel, 9)))

		all, err := repo.ListByProject(ctx, "proj-list", 0)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, 2.0, all[0].Amps)
		assert.Equal(t, 0.0, all[2].Amps)

		limited, err := repo.ListByProject(ctx, "proj-list", 2)
		require.NoError(t, err)
		assert.Len(t, limited, 2)
	})

	t.Run("list for unknown project is empty", func(t *testing.T) {
		got, err := repo.ListByProject(ctx, "nobody", 10)

		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})
}
