package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/stwalsh4118/loadcalc/api/internal/calc"
	"github.com/stwalsh4118/loadcalc/api/internal/logger"
	"github.com/stwalsh4118/loadcalc/api/internal/metrics"
	"github.com/stwalsh4118/loadcalc/api/internal/models"
)

// MockCalculationRepository is a mock implementation of CalculationRepository for testing
type MockCalculationRepository struct {
	mock.Mock
}

func (m *MockCalculationRepository) Save(ctx context.Context, calc *models.Calculation) error {
	args := m.Called(ctx, calc)
	return args.Error(0)
}

func (m *MockCalculationRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Calculation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Calculation), args.Error(1)
}

func (m *MockCalculationRepository) ListByProject(ctx context.Context, projectID string, limit int) ([]models.Calculation, error) {
	args := m.Called(ctx, projectID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Calculation), args.Error(1)
}

func newMetrics(t *testing.T) (*metrics.Metrics, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)
	return m, reg
}

func quickCheck() calc.QuickCheckInput {
	return calc.QuickCheckInput{ServiceAmps: 200, UsageAmps: 140, ProposedAmps: 50}
}

func TestServiceCheck_WithoutPersistence(t *testing.T) {
	// Arrange
	m, reg := newMetrics(t)
	service := NewCalculationService(calc.NewEngine(nil, calc.Options{}), nil, m, logger.Nop())

	// Act
	out, err := service.ServiceCheck(context.Background(), "", quickCheck())

	// Assert
	require.NoError(t, err)
	require.NotNil(t, out.Result)
	assert.Nil(t, out.RecordID)
	assert.Equal(t, 95.0, out.Result.UtilizationPercent)
	assert.Equal(t, calc.QuickCheckHigh, out.Result.Status)
	assertCalculations(t, reg, "service_check", metrics.OutcomeSuccess)
}

func TestServiceCheck_PersistsRecord(t *testing.T) {
	// Arrange
	mockRepo := new(MockCalculationRepository)
	service := NewCalculationService(calc.NewEngine(nil, calc.Options{}), mockRepo, nil, logger.Nop())
	ctx := context.Background()

	var saved *models.Calculation
	mockRepo.On("Save", ctx, mock.AnythingOfType("*models.Calculation")).
		Run(func(args mock.Arguments) { saved = args.Get(1).(*models.Calculation) }).
		Return(nil)

	// Act
	out, err := service.ServiceCheck(ctx, "proj-7", quickCheck())

	// Assert
	require.NoError(t, err)
	require.NotNil(t, out.RecordID)
	require.NotNil(t, saved)
	assert.Equal(t, saved.ID, *out.RecordID)
	assert.Equal(t, "proj-7", saved.ProjectID)
	assert.Equal(t, models.KindServiceCheck, saved.Kind)
	assert.Equal(t, 190.0, saved.Amps)
	assert.Equal(t, "HIGH", saved.Status)

	var input calc.QuickCheckInput
	require.NoError(t, json.Unmarshal(saved.Input, &input))
	assert.Equal(t, quickCheck(), input)
	var result calc.QuickCheckResult
	require.NoError(t, json.Unmarshal(saved.Result, &result))
	assert.Equal(t, 95.0, result.UtilizationPercent)
	mockRepo.AssertExpectations(t)
}

func TestServiceCheck_SaveFailureStillReturnsResult(t *testing.T) {
	// Arrange
	mockRepo := new(MockCalculationRepository)
	m, reg := newMetrics(t)
	service := NewCalculationService(calc.NewEngine(nil, calc.Options{}), mockRepo, m, logger.Nop())
	ctx := context.Background()
	mockRepo.On("Save", ctx, mock.Anything).Return(errors.New("connection reset"))

	// Act
	out, err := service.ServiceCheck(ctx, "proj-7", quickCheck())

	// Assert
	require.NoError(t, err)
	assert.NotNil(t, out.Result)
	assert.Nil(t, out.RecordID)
	count, err := testutil.GatherAndCount(reg, "loadcalc_persistence_failures_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	mockRepo.AssertExpectations(t)
}

func TestDwelling_InvalidInput(t *testing.T) {
	// Arrange
	mockRepo := new(MockCalculationRepository)
	m, reg := newMetrics(t)
	service := NewCalculationService(calc.NewEngine(nil, calc.Options{}), mockRepo, m, logger.Nop())

	// Act
	out, err := service.Dwelling(context.Background(), "", calc.DwellingInput{SquareFootage: -10})

	// Assert
	assert.Nil(t, out)
	require.Error(t, err)
	assert.ErrorIs(t, err, calc.ErrValidation)
	var verr *calc.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "square_footage")
	assertCalculations(t, reg, "dwelling", metrics.OutcomeInvalid)
	// Repository should not be called for validation errors
	mockRepo.AssertNotCalled(t, "Save")
}

func TestDwelling_ObservesServiceAmps(t *testing.T) {
	m, reg := newMetrics(t)
	service := NewCalculationService(calc.NewEngine(nil, calc.Options{}), nil, m, nil)

	out, err := service.Dwelling(context.Background(), "", calc.DwellingInput{
		SquareFootage:          2000,
		SmallApplianceCircuits: 2,
		LaundryCircuit:         true,
	})

	require.NoError(t, err)
	assert.Greater(t, out.Result.ServiceAmps, 0.0)
	count, err := testutil.GatherAndCount(reg, "loadcalc_service_amps")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestFeederAndPanel_Succeed(t *testing.T) {
	service := NewCalculationService(calc.NewEngine(nil, calc.Options{}), nil, nil, logger.Nop())
	ctx := context.Background()

	feeder, err := service.Feeder(ctx, "", calc.FeederInput{
		TotalLoadVA:         24000,
		NonContinuousLoadVA: 24000,
		DistanceFt:          50,
	})
	require.NoError(t, err)
	assert.Equal(t, 100, feeder.Result.OCPDRating)

	panel, err := service.Panel(ctx, "", calc.PanelInput{
		BusRatingAmps: 200,
		Circuits:      []calc.PanelCircuit{{LoadVA: 18000, Poles: 2}},
	})
	require.NoError(t, err)
	assert.Equal(t, calc.PanelOK, panel.Result.Status)
}

func TestMultiFamilyAndCommercial_Succeed(t *testing.T) {
	service := NewCalculationService(calc.NewEngine(nil, calc.Options{}), nil, nil, logger.Nop())
	ctx := context.Background()

	mf, err := service.MultiFamily(ctx, "", calc.MultiUnitInput{
		Units: []calc.UnitTemplate{{Name: "A", SquareFootage: 900, UnitCount: 4, SmallApplianceCircuits: 2}},
	})
	require.NoError(t, err)
	assert.Equal(t, 4, mf.Result.TotalUnits)

	com, err := service.Commercial(ctx, "", calc.CommercialInput{Occupancy: "office", SquareFootage: 10000})
	require.NoError(t, err)
	assert.Greater(t, com.Result.TotalDemandVA, 0.0)
}

func TestGet(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()

	t.Run("found", func(t *testing.T) {
		mockRepo := new(MockCalculationRepository)
		service := NewCalculationService(calc.NewEngine(nil, calc.Options{}), mockRepo, nil, logger.Nop())
		mockRepo.On("FindByID", ctx, id).Return(&models.Calculation{ID: id, Kind: models.KindFeeder}, nil)

		record, err := service.Get(ctx, id)

		require.NoError(t, err)
		assert.Equal(t, id, record.ID)
		mockRepo.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		mockRepo := new(MockCalculationRepository)
		service := NewCalculationService(calc.NewEngine(nil, calc.Options{}), mockRepo, nil, logger.Nop())
		mockRepo.On("FindByID", ctx, id).Return(nil, nil)

		record, err := service.Get(ctx, id)

		assert.Nil(t, record)
		assert.ErrorIs(t, err, ErrCalculationNotFound)
	})

	t.Run("repository error", func(t *testing.T) {
		mockRepo := new(MockCalculationRepository)
		service := NewCalculationService(calc.NewEngine(nil, calc.Options{}), mockRepo, nil, logger.Nop())
		dbErr := errors.New("database unavailable")
		mockRepo.On("FindByID", ctx, id).Return(nil, dbErr)

		_, err := service.Get(ctx, id)

		assert.ErrorIs(t, err, dbErr)
		assert.Contains(t, err.Error(), "failed to load calculation")
	})

	t.Run("persistence disabled", func(t *testing.T) {
		service := NewCalculationService(calc.NewEngine(nil, calc.Options{}), nil, nil, logger.Nop())

		_, err := service.Get(ctx, id)

		assert.ErrorIs(t, err, ErrPersistenceDisabled)
	})
}

func TestListByProject(t *testing.T) {
	ctx := context.Background()

	t.Run("returns records", func(t *testing.T) {
		mockRepo := new(MockCalculationRepository)
		service := NewCalculationService(calc.NewEngine(nil, calc.Options{}), mockRepo, nil, logger.Nop())
		records := []models.Calculation{{ID: uuid.New()}, {ID: uuid.New()}}
		mockRepo.On("ListByProject", ctx, "proj-1", 10).Return(records, nil)

		got, err := service.ListByProject(ctx, "proj-1", 10)

		require.NoError(t, err)
		assert.Len(t, got, 2)
		mockRepo.AssertExpectations(t)
	})

	t.Run("persistence disabled", func(t *testing.T) {
		service := NewCalculationService(calc.NewEngine(nil, calc.Options{}), nil, nil, logger.Nop())

		_, err := service.ListByProject(ctx, "proj-1", 10)

		assert.ErrorIs(t, err, ErrPersistenceDisabled)
	})
}

// assertCalculations checks that exactly one calculation of kind was
// counted, with the given outcome.
func assertCalculations(t *testing.T, reg *prometheus.Registry, kind, outcome string) {
	t.Helper()
	expected := fmt.Sprintf(`
# HELP loadcalc_calculations_total Calculations run, by kind and outcome
# TYPE loadcalc_calculations_total counter
loadcalc_calculations_total{kind=%q,outcome=%q} 1
`, kind, outcome)
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "loadcalc_calculations_total"))
}
