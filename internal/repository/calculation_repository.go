package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/stwalsh4118/loadcalc/api/internal/database"
	"github.com/stwalsh4118/loadcalc/api/internal/models"
)

// DefaultListLimit caps ListByProject when the caller passes no limit.
const DefaultListLimit = 50

// CalculationRepository defines data access for stored calculations.
type CalculationRepository interface {
	// Save inserts calc. A zero ID is replaced with a new UUID and a zero
	// CreatedAt with the database time; both are written back to calc.
	Save(ctx context.Context, calc *models.Calculation) error

	// FindByID returns nil, nil when no record has the given id.
	// Returns error only for actual database failures.
	FindByID(ctx context.Context, id uuid.UUID) (*models.Calculation, error)

	// ListByProject returns a project's records, newest first.
	// Returns an empty slice if none are found (not an error).
	ListByProject(ctx context.Context, projectID string, limit int) ([]models.Calculation, error)
}

type calculationRepository struct {
	db *database.Database
}

// NewCalculationRepository creates a CalculationRepository backed by db.
func NewCalculationRepository(db *database.Database) CalculationRepository {
	return &calculationRepository{db: db}
}

const selectColumns = `
	id, COALESCE(project_id, ''), kind, input, result,
	amps, rating, status, warning_count, created_at`

func (r *calculationRepository) Save(ctx context.Context, calc *models.Calculation) error {
	if calc.ID == uuid.Nil {
		calc.ID = uuid.New()
	}
	var createdAt *time.Time
	if !calc.CreatedAt.IsZero() {
		createdAt = &calc.CreatedAt
	}

	query := `
		INSERT INTO load_calculations
			(id, project_id, kind, input, result, amps, rating, status, warning_count, created_at)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8, $9, COALESCE($10, now()))
		RETURNING created_at`

	err := r.db.Pool.QueryRow(ctx, query,
		calc.ID,
		calc.ProjectID,
		string(calc.Kind),
		[]byte(calc.Input),
		[]byte(calc.Result),
		calc.Amps,
		calc.Rating,
		calc.Status,
		calc.WarningCount,
		createdAt,
	).Scan(&calc.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert calculation %s: %w", calc.ID, err)
	}
	return nil
}

func (r *calculationRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Calculation, error) {
	query := `SELECT` + selectColumns + ` FROM load_calculations WHERE id = $1`

	calc, err := scanCalculation(r.db.Pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query calculation %s: %w", id, err)
	}
	return calc, nil
}

func (r *calculationRepository) ListByProject(ctx context.Context, projectID string, limit int) ([]models.Calculation, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	query := `SELECT` + selectColumns + `
		FROM load_calculations
		WHERE project_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2`

	rows, err := r.db.Pool.Query(ctx, query, projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list calculations for project %q: %w", projectID, err)
	}
	defer rows.Close()

	results := []models.Calculation{}
	for rows.Next() {
		calc, err := scanCalculation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan calculation row: %w", err)
		}
		results = append(results, *calc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating calculation rows: %w", err)
	}
	return results, nil
}

func scanCalculation(row pgx.Row) (*models.Calculation, error) {
	var (
		calc          models.Calculation
		kind          string
		input, result []byte
	)
	err := row.Scan(
		&calc.ID,
		&calc.ProjectID,
		&kind,
		&input,
		&result,
		&calc.Amps,
		&calc.Rating,
		&calc.Status,
		&calc.WarningCount,
		&calc.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	calc.Kind = models.CalculationKind(kind)
	calc.Input = input
	calc.Result = result
	return &calc, nil
}
