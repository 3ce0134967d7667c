package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/stwalsh4118/loadcalc/api/internal/calc"
	"github.com/stwalsh4118/loadcalc/api/internal/logger"
	"github.com/stwalsh4118/loadcalc/api/internal/metrics"
	"github.com/stwalsh4118/loadcalc/api/internal/models"
	"github.com/stwalsh4118/loadcalc/api/internal/repository"
)

// Service-level errors
var (
	ErrCalculationNotFound = errors.New("calculation not found")
	ErrPersistenceDisabled = errors.New("calculation history is disabled")
)

// Outcome is an engine result plus the id it was stored under. RecordID is
// nil when history is disabled or the save failed.
type Outcome[T any] struct {
	Result   *T
	RecordID *uuid.UUID
}

// CalculationService runs engine operations for the API and CLI.
//
// Every calculation method returns an error wrapping calc.ErrValidation
// (as a *calc.ValidationError) for rejected input. A failure to store the
// result is logged and counted but never fails the call.
type CalculationService interface {
	Dwelling(ctx context.Context, projectID string, in calc.DwellingInput) (*Outcome[calc.LoadCalculationResult], error)
	MultiFamily(ctx context.Context, projectID string, in calc.MultiUnitInput) (*Outcome[calc.MultiUnitResult], error)
	Commercial(ctx context.Context, projectID string, in calc.CommercialInput) (*Outcome[calc.LoadCalculationResult], error)
	Feeder(ctx context.Context, projectID string, in calc.FeederInput) (*Outcome[calc.FeederResult], error)
	ServiceCheck(ctx context.Context, projectID string, in calc.QuickCheckInput) (*Outcome[calc.QuickCheckResult], error)
	Panel(ctx context.Context, projectID string, in calc.PanelInput) (*Outcome[calc.PanelUtilizationResult], error)

	// Get returns ErrPersistenceDisabled without a store and
	// ErrCalculationNotFound for an unknown id.
	Get(ctx context.Context, id uuid.UUID) (*models.Calculation, error)

	// ListByProject returns ErrPersistenceDisabled without a store.
	ListByProject(ctx context.Context, projectID string, limit int) ([]models.Calculation, error)
}

type calculationService struct {
	engine  *calc.Engine
	repo    repository.CalculationRepository
	metrics *metrics.Metrics
	log     *logger.Logger
}

// NewCalculationService creates a CalculationService. repo and m may be nil.
func NewCalculationService(engine *calc.Engine, repo repository.CalculationRepository, m *metrics.Metrics, log *logger.Logger) CalculationService {
	if log == nil {
		log = logger.Nop()
	}
	return &calculationService{
		engine:  engine,
		repo:    repo,
		metrics: m,
		log:     log,
	}
}

// summary is what a finished calculation reports to logs, metrics and the
// history listing.
type summary struct {
	amps     float64
	rating   int
	status   string
	warnings int
	// service is set for the load calculations that size a service.
	service bool
}

func loadSummary(r *calc.LoadCalculationResult) summary {
	return summary{
		amps:     r.ServiceAmps,
		rating:   r.RecommendedServiceSize,
		warnings: len(r.Warnings),
		service:  true,
	}
}

func (s *calculationService) Dwelling(ctx context.Context, projectID string, in calc.DwellingInput) (*Outcome[calc.LoadCalculationResult], error) {
	return run(ctx, s, models.KindDwelling, projectID, in, s.engine.CalculateSingleDwelling, loadSummary)
}

func (s *calculationService) MultiFamily(ctx context.Context, projectID string, in calc.MultiUnitInput) (*Outcome[calc.MultiUnitResult], error) {
	return run(ctx, s, models.KindMultiFamily, projectID, in, s.engine.CalculateMultiUnit,
		func(r *calc.MultiUnitResult) summary { return loadSummary(&r.LoadCalculationResult) })
}

func (s *calculationService) Commercial(ctx context.Context, projectID string, in calc.CommercialInput) (*Outcome[calc.LoadCalculationResult], error) {
	return run(ctx, s, models.KindCommercial, projectID, in, s.engine.CalculateCommercial, loadSummary)
}

func (s *calculationService) Feeder(ctx context.Context, projectID string, in calc.FeederInput) (*Outcome[calc.FeederResult], error) {
	return run(ctx, s, models.KindFeeder, projectID, in, s.engine.CalculateFeederSizing,
		func(r *calc.FeederResult) summary {
			status := "voltage_drop_ok"
			if !r.VoltageDropCompliant {
				status = "voltage_drop_exceeded"
			}
			return summary{amps: r.LoadAmps, rating: r.OCPDRating, status: status, warnings: len(r.Warnings)}
		})
}

func (s *calculationService) ServiceCheck(ctx context.Context, projectID string, in calc.QuickCheckInput) (*Outcome[calc.QuickCheckResult], error) {
	return run(ctx, s, models.KindServiceCheck, projectID, in, s.engine.QuickServiceCheck,
		func(r *calc.QuickCheckResult) summary {
			return summary{amps: r.TotalAmps, rating: r.RecommendedServiceSize, status: string(r.Status), warnings: len(r.Warnings)}
		})
}

func (s *calculationService) Panel(ctx context.Context, projectID string, in calc.PanelInput) (*Outcome[calc.PanelUtilizationResult], error) {
	return run(ctx, s, models.KindPanel, projectID, in, s.engine.PanelUtilization,
		func(r *calc.PanelUtilizationResult) summary {
			return summary{amps: r.LoadAmps, status: string(r.Status), warnings: len(r.Warnings)}
		})
}

// run executes one engine operation with logging, metrics and the optional
// history save around it.
func run[In, Out any](
	ctx context.Context,
	s *calculationService,
	kind models.CalculationKind,
	projectID string,
	in In,
	calculate func(In) (*Out, error),
	summarize func(*Out) summary,
) (*Outcome[Out], error) {
	log := s.log.WithCalculation(string(kind))
	start := time.Now()

	res, err := calculate(in)
	elapsed := time.Since(start)
	if err != nil {
		if errors.Is(err, calc.ErrValidation) {
			s.metrics.ObserveCalculation(string(kind), metrics.OutcomeInvalid, elapsed, 0)
			log.Warn("Calculation input rejected", map[string]interface{}{
				"project_id": projectID,
				"error":      err.Error(),
			})
			return nil, fmt.Errorf("%s calculation: %w", kind, err)
		}
		s.metrics.ObserveCalculation(string(kind), metrics.OutcomeError, elapsed, 0)
		log.Error("Calculation failed", err, map[string]interface{}{"project_id": projectID})
		return nil, fmt.Errorf("%s calculation: %w", kind, err)
	}

	sum := summarize(res)
	s.metrics.ObserveCalculation(string(kind), metrics.OutcomeSuccess, elapsed, sum.warnings)
	if sum.service {
		s.metrics.ObserveServiceAmps(string(kind), sum.amps)
	}
	log.Info("Calculation completed", map[string]interface{}{
		"project_id":  projectID,
		"amps":        sum.amps,
		"rating":      sum.rating,
		"status":      sum.status,
		"warnings":    sum.warnings,
		"duration_us": elapsed.Microseconds(),
	})

	out := &Outcome[Out]{Result: res}
	if s.repo == nil {
		return out, nil
	}
	id, err := s.save(ctx, kind, projectID, in, res, sum)
	if err != nil {
		s.metrics.PersistenceFailed()
		log.Error("Failed to store calculation", err, map[string]interface{}{"project_id": projectID})
		return out, nil
	}
	out.RecordID = &id
	return out, nil
}

func (s *calculationService) save(ctx context.Context, kind models.CalculationKind, projectID string, in, res interface{}, sum summary) (uuid.UUID, error) {
	input, err := json.Marshal(in)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to encode input: %w", err)
	}
	result, err := json.Marshal(res)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to encode result: %w", err)
	}
	record := &models.Calculation{
		ID:           uuid.New(),
		ProjectID:    projectID,
		Kind:         kind,
		Input:        input,
		Result:       result,
		Amps:         sum.amps,
		Rating:       sum.rating,
		Status:       sum.status,
		WarningCount: sum.warnings,
	}
	if err := s.repo.Save(ctx, record); err != nil {
		return uuid.Nil, err
	}
	return record.ID, nil
}

func (s *calculationService) Get(ctx context.Context, id uuid.UUID) (*models.Calculation, error) {
	if s.repo == nil {
		return nil, ErrPersistenceDisabled
	}
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		s.log.Error("Failed to load calculation", err, map[string]interface{}{"id": id.String()})
		return nil, fmt.Errorf("failed to load calculation: %w", err)
	}
	if record == nil {
		return nil, ErrCalculationNotFound
	}
	return record, nil
}

func (s *calculationService) ListByProject(ctx context.Context, projectID string, limit int) ([]models.Calculation, error) {
	if s.repo == nil {
		return nil, ErrPersistenceDisabled
	}
	records, err := s.repo.ListByProject(ctx, projectID, limit)
	if err != nil {
		s.log.Error("Failed to list calculations", err, map[string]interface{}{"project_id": projectID})
		return nil, fmt.Errorf("failed to list calculations: %w", err)
	}
	s.log.Debug("Listed calculations", map[string]interface{}{
		"project_id": projectID,
		"count":      len(records),
	})
	return records, nil
}
