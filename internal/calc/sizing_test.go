package calc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stwalsh4118/loadcalc/api/internal/tables"
)

func TestRecommendServiceSize_MarginProperty(t *testing.T) {
	store := tables.Default()
	catalog := store.ServiceCatalog
	margin := store.ContinuousDutyMargin

	for amps := 0.0; amps <= float64(catalog[len(catalog)-1])*margin; amps += 0.7 {
		size, warning := RecommendServiceSize(amps, catalog, margin)
		require.Empty(t, warning, "amps=%v", amps)
		assert.GreaterOrEqual(t, float64(size)*margin, amps, "amps=%v", amps)
		for _, smaller := range catalog {
			if smaller >= size {
				break
			}
			assert.Less(t, float64(smaller)*margin, amps, "amps=%v: %d would also fit", amps, smaller)
		}
	}
}

func TestRecommendServiceSize_Boundaries(t *testing.T) {
	store := tables.Default()

	size, _ := RecommendServiceSize(119.3, store.ServiceCatalog, store.ContinuousDutyMargin)
	assert.Equal(t, 150, size)

	size, _ = RecommendServiceSize(100.5, store.ServiceCatalog, store.ContinuousDutyMargin)
	assert.Equal(t, 150, size)

	size, _ = RecommendServiceSize(0, store.ServiceCatalog, store.ContinuousDutyMargin)
	assert.Equal(t, 100, size)
}

func TestRecommendServiceSize_Overflow(t *testing.T) {
	store := tables.Default()

	size, warning := RecommendServiceSize(3500, store.ServiceCatalog, store.ContinuousDutyMargin)

	assert.Equal(t, 4000, size)
	assert.Contains(t, warning, "custom or paralleled")
	assert.Contains(t, warning, "3500.0 A")
}

func TestConductorSelect(t *testing.T) {
	table := tables.Default().ServiceConductors

	tests := []struct {
		amps     float64
		material tables.Material
		want     string
		overflow bool
	}{
		{50, tables.Copper, "4", false},
		{100, tables.Copper, "4", false},
		{100.1, tables.Copper, "3", false},
		{200, tables.Aluminum, "4/0", false},
		{400, tables.Copper, "400", false},
		{401, tables.Aluminum, "600", true},
	}
	for _, tt := range tests {
		size, _, overflow := table.Select(tt.amps, tt.material)
		assert.Equal(t, tt.want, size, "amps=%v %s", tt.amps, tt.material)
		assert.Equal(t, tt.overflow, overflow, "amps=%v %s", tt.amps, tt.material)
	}
}

func TestCalculateNeutral_Threshold(t *testing.T) {
	rule := tables.Default().Neutral

	at := CalculateNeutral([]BreakdownEntry{{Category: CategoryGeneral, DemandVA: 48000}}, 240, 1, rule)
	assert.Equal(t, 200.0, at.Amps)
	assert.Equal(t, 0.0, at.ReductionPercent)
	assert.Empty(t, at.Note)

	above := CalculateNeutral([]BreakdownEntry{{Category: CategoryGeneral, DemandVA: 48240}}, 240, 1, rule)
	assert.Equal(t, 30.0, above.ReductionPercent)
	assert.InDelta(t, 200.7, above.Amps, 1e-9)
	assert.Equal(t, 201.0, above.UnreducedAmps)
	assert.Contains(t, above.Note, "220.61(B)")
}

func TestCalculateNeutral_Classification(t *testing.T) {
	rule := tables.Default().Neutral
	entries := []BreakdownEntry{
		{Category: CategoryGeneral, DemandVA: 5000},
		{Category: CategoryDishwasher, DemandVA: 1200},
		{Category: CategoryHVAC, DemandVA: 3000},
		{Category: Category("unknown_future_load"), DemandVA: 100},
		{Category: CategoryRange, DemandVA: 8000},
		{Category: CategoryDryer, DemandVA: 5000},
		{Category: CategoryWaterHeater, DemandVA: 4500},
		{Category: CategoryEVCharger, DemandVA: 7200},
		{Category: CategoryPoolPump, DemandVA: 2000},
		{Category: CategoryHotTub, DemandVA: 6000},
		{Category: CategoryWellPump, DemandVA: 1900},
	}

	res := CalculateNeutral(entries, 240, 1, rule)

	assert.InDelta(t, 9300.0, res.LoadVA, 1e-9)
	assert.True(t, UsesNeutral(CategoryDisposal))
	assert.False(t, UsesNeutral(CategorySauna))
	assert.False(t, UsesNeutral(CategoryPoolHeater))
}
