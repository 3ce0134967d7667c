package calc

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stwalsh4118/loadcalc/api/internal/tables"
)

func referenceDwelling() DwellingInput {
	return DwellingInput{
		SquareFootage:          2000,
		SmallApplianceCircuits: 2,
		LaundryCircuit:         true,
		Appliances: Appliances{
			Range{Enabled: true, KW: 8, Fuel: FuelElectric},
			Dryer{Enabled: true, KW: 5, Fuel: FuelElectric},
			WaterHeater{Enabled: true, KW: 5, Fuel: FuelElectric},
			HVAC{Enabled: true, CoolingKW: 5, HeatType: HeatNone},
		},
	}
}

func entryFor(t *testing.T, entries []BreakdownEntry, c Category) BreakdownEntry {
	t.Helper()
	for _, e := range entries {
		if e.Category == c {
			return e
		}
	}
	t.Fatalf("no breakdown entry for %s", c)
	return BreakdownEntry{}
}

func hasCategory(entries []BreakdownEntry, c Category) bool {
	for _, e := range entries {
		if e.Category == c {
			return true
		}
	}
	return false
}

func TestCalculateSingleDwelling_ReferenceHouse(t *testing.T) {
	// Arrange
	e := newTestEngine()

	// Act
	res, err := e.CalculateSingleDwelling(referenceDwelling())

	// Assert
	require.NoError(t, err)

	general := entryFor(t, res.Breakdown, CategoryGeneral)
	assert.InDelta(t, 10500.0, general.ConnectedVA, 1e-6)
	assert.InDelta(t, 5625.0, general.DemandVA, 1e-6)

	assert.InDelta(t, 8000.0, entryFor(t, res.Breakdown, CategoryRange).DemandVA, 1e-6)
	assert.InDelta(t, 5000.0, entryFor(t, res.Breakdown, CategoryDryer).DemandVA, 1e-6)
	assert.InDelta(t, 5000.0, entryFor(t, res.Breakdown, CategoryWaterHeater).DemandVA, 1e-6)
	assert.InDelta(t, 5000.0, entryFor(t, res.Breakdown, CategoryHVAC).DemandVA, 1e-6)

	assert.InDelta(t, 28625.0, res.TotalDemandVA, 1e-6)
	assert.InDelta(t, 33500.0, res.TotalConnectedVA, 1e-6)
	assert.InDelta(t, 119.27, res.ServiceAmps, 0.01)
	assert.Equal(t, 150, res.RecommendedServiceSize)
	assert.Equal(t, "2", res.ServiceConductorSize)
	assert.Equal(t, "8", res.GECSize)
	assert.Equal(t, tables.Copper, res.ConductorMaterial)
	assert.Equal(t, 240.0, res.Voltage)
	assert.Equal(t, 1, res.Phases)
	assert.Empty(t, res.Warnings)

	// Neutral carries general loads and HVAC, not the 240 V appliances.
	assert.InDelta(t, 10625.0, res.NeutralLoadVA, 1e-6)
	assert.Equal(t, 0.0, res.NeutralReductionPercent)
	assert.Contains(t, res.CodeReferences, "NEC 220.45")
	assert.Contains(t, res.CodeReferences, "NEC 220.55")
}

func TestCalculateSingleDwelling_BreakdownInvariants(t *testing.T) {
	e := newTestEngine()
	res, err := e.CalculateSingleDwelling(referenceDwelling())
	require.NoError(t, err)

	for _, entry := range res.Breakdown {
		assert.LessOrEqual(t, entry.DemandVA, entry.ConnectedVA+1e-9, entry.Description)
		assert.GreaterOrEqual(t, entry.DemandVA, 0.0)
		assert.LessOrEqual(t, entry.DemandFactor, 1.0+1e-9)
	}
}

func TestCalculateSingleDwelling_HVACNonCoincident(t *testing.T) {
	e := newTestEngine()

	tests := []struct {
		name     string
		hvac     HVAC
		expected float64
	}{
		{"electric resistance heat wins", HVAC{Enabled: true, CoolingKW: 5, HeatingKW: 8, HeatType: HeatResistance}, 8000},
		{"heat pump heat wins", HVAC{Enabled: true, CoolingKW: 5, HeatingKW: 8, HeatType: HeatPump}, 8000},
		{"gas heat ignored", HVAC{Enabled: true, CoolingKW: 5, HeatingKW: 8, HeatType: HeatGas}, 5000},
		{"cooling larger", HVAC{Enabled: true, CoolingKW: 9, HeatingKW: 8, HeatType: HeatResistance}, 9000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := e.CalculateSingleDwelling(DwellingInput{
				SquareFootage:          1000,
				SmallApplianceCircuits: 2,
				LaundryCircuit:         true,
				Appliances:             Appliances{tt.hvac},
			})
			require.NoError(t, err)

			hvac := entryFor(t, res.Breakdown, CategoryHVAC)
			assert.Equal(t, tt.expected, hvac.DemandVA)
			assert.Equal(t, tt.expected, hvac.ConnectedVA)
			assert.Equal(t, 1.0, hvac.DemandFactor)
		})
	}
}

func TestCalculateSingleDwelling_RangeRule(t *testing.T) {
	e := newTestEngine()

	tests := []struct {
		kw        float64
		connected float64
		demand    float64
	}{
		{6, 6000, 6000},
		{8, 8000, 8000},
		{12, 12000, 8000},
		{14, 14000, 14000},
	}
	for _, tt := range tests {
		res, err := e.CalculateSingleDwelling(DwellingInput{
			SmallApplianceCircuits: 2,
			LaundryCircuit:         true,
			Appliances:             Appliances{Range{Enabled: true, KW: tt.kw}},
		})
		require.NoError(t, err)

		r := entryFor(t, res.Breakdown, CategoryRange)
		assert.Equal(t, tt.connected, r.ConnectedVA, "kw=%v", tt.kw)
		assert.Equal(t, tt.demand, r.DemandVA, "kw=%v", tt.kw)
	}
}

func TestCalculateSingleDwelling_DryerRule(t *testing.T) {
	e := newTestEngine()

	t.Run("small dryer floored at 5000 VA", func(t *testing.T) {
		res, err := e.CalculateSingleDwelling(DwellingInput{
			SmallApplianceCircuits: 2,
			LaundryCircuit:         true,
			Appliances:             Appliances{Dryer{Enabled: true, KW: 4}},
		})
		require.NoError(t, err)
		d := entryFor(t, res.Breakdown, CategoryDryer)
		assert.Equal(t, 5000.0, d.ConnectedVA)
		assert.Equal(t, 5000.0, d.DemandVA)
	})

	t.Run("five dryers take the count factor", func(t *testing.T) {
		apps := Appliances{}
		for i := 0; i < 5; i++ {
			apps = append(apps, Dryer{Enabled: true, KW: 5})
		}
		res, err := e.CalculateSingleDwelling(DwellingInput{
			SmallApplianceCircuits: 2,
			LaundryCircuit:         true,
			Appliances:             apps,
		})
		require.NoError(t, err)
		d := entryFor(t, res.Breakdown, CategoryDryer)
		assert.Equal(t, 25000.0, d.ConnectedVA)
		assert.InDelta(t, 21250.0, d.DemandVA, 1e-6)
	})
}

func TestCalculateSingleDwelling_GasAndDisabledAppliancesContributeNothing(t *testing.T) {
	e := newTestEngine()

	res, err := e.CalculateSingleDwelling(DwellingInput{
		SquareFootage:          1500,
		SmallApplianceCircuits: 2,
		LaundryCircuit:         true,
		Appliances: Appliances{
			Range{Enabled: true, KW: 10, Fuel: FuelGas},
			Dryer{Enabled: true, KW: 5, Fuel: FuelGas},
			WaterHeater{Enabled: false, KW: 4.5},
			PoolHeater{Enabled: true, KW: 11, Fuel: FuelGas},
		},
	})

	require.NoError(t, err)
	require.Len(t, res.Breakdown, 1)
	assert.Equal(t, CategoryGeneral, res.Breakdown[0].Category)
}

func TestCalculateSingleDwelling_FixedAppliancesAtNameplate(t *testing.T) {
	e := newTestEngine()

	res, err := e.CalculateSingleDwelling(DwellingInput{
		SmallApplianceCircuits: 2,
		LaundryCircuit:         true,
		Appliances: Appliances{
			Dishwasher{Enabled: true, KW: 1.2},
			Disposal{Enabled: true, HP: 0.5},
			EVCharger{Enabled: true, KW: 9.6, Continuous: true},
			PoolPump{Enabled: true, HP: 1.5},
			WellPump{Enabled: true, HP: 1, Volts: 240},
			CustomLoad{Enabled: true, Name: "Workshop compressor", KW: 2.4},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 1200.0, entryFor(t, res.Breakdown, CategoryDishwasher).DemandVA)
	// 1/2 HP at 120 V: 9.8 A.
	assert.InDelta(t, 9.8*120, entryFor(t, res.Breakdown, CategoryDisposal).DemandVA, 1e-9)
	// 1-1/2 HP at 240 V: 10 A.
	assert.InDelta(t, 2400.0, entryFor(t, res.Breakdown, CategoryPoolPump).DemandVA, 1e-9)
	assert.InDelta(t, 1920.0, entryFor(t, res.Breakdown, CategoryWellPump).DemandVA, 1e-9)

	ev := entryFor(t, res.Breakdown, CategoryEVCharger)
	assert.Equal(t, 9600.0, ev.DemandVA)
	assert.True(t, ev.Continuous)
	assert.Equal(t, 9600.0, res.ContinuousVA)

	custom := entryFor(t, res.Breakdown, CategoryCustom)
	assert.Contains(t, custom.Description, "Workshop compressor")
	assert.Equal(t, 1.0, custom.DemandFactor)
}

func TestCalculateSingleDwelling_ComplianceWarnings(t *testing.T) {
	e := newTestEngine()

	res, err := e.CalculateSingleDwelling(DwellingInput{
		SquareFootage:          1200,
		SmallApplianceCircuits: 1,
		LaundryCircuit:         false,
	})

	require.NoError(t, err)
	require.Len(t, res.Warnings, 2)
	assert.Contains(t, res.Warnings[0], "210.11(C)(1)")
	assert.Contains(t, res.Warnings[1], "laundry")
	// Calculated with the two-circuit minimum and no laundry circuit.
	assert.InDelta(t, 1200*3+2*1500.0, res.Breakdown[0].ConnectedVA, 1e-9)
}

func TestCalculateSingleDwelling_LargeServiceOverflow(t *testing.T) {
	e := newTestEngine()

	apps := Appliances{}
	for i := 0; i < 40; i++ {
		apps = append(apps, CustomLoad{Enabled: true, Name: "Process heater", KW: 25})
	}
	res, err := e.CalculateSingleDwelling(DwellingInput{
		SmallApplianceCircuits: 2,
		LaundryCircuit:         true,
		Appliances:             apps,
	})
	require.NoError(t, err)

	assert.Equal(t, 4000, res.RecommendedServiceSize)
	assert.Equal(t, "400", res.ServiceConductorSize)
	require.NotEmpty(t, res.Warnings)
	assert.Contains(t, res.Warnings[0], "custom or paralleled")
}

func TestCalculateSingleDwelling_Aluminum(t *testing.T) {
	e := newTestEngine()
	in := referenceDwelling()
	in.ConductorMaterial = tables.Aluminum

	res, err := e.CalculateSingleDwelling(in)

	require.NoError(t, err)
	assert.Equal(t, "1/0", res.ServiceConductorSize)
	assert.Equal(t, "8", res.GECSize)
}

func TestCalculateSingleDwelling_Idempotent(t *testing.T) {
	e := newTestEngine()
	in := referenceDwelling()

	first, err := e.CalculateSingleDwelling(in)
	require.NoError(t, err)
	second, err := e.CalculateSingleDwelling(in)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestCalculateSingleDwelling_ValidationErrors(t *testing.T) {
	e := newTestEngine()

	tests := []struct {
		name  string
		input DwellingInput
		field string
	}{
		{"negative area", DwellingInput{SquareFootage: -1}, "square_footage"},
		{"non-finite area", DwellingInput{SquareFootage: math.NaN()}, "square_footage"},
		{"infinite area", DwellingInput{SquareFootage: math.Inf(1)}, "square_footage"},
		{"negative circuits", DwellingInput{SmallApplianceCircuits: -2}, "small_appliance_circuits"},
		{"negative voltage", DwellingInput{Voltage: -240}, "voltage"},
		{"unknown material", DwellingInput{ConductorMaterial: "gold"}, "conductor_material"},
		{"negative appliance rating", DwellingInput{Appliances: Appliances{Range{Enabled: true, KW: -8}}}, "appliances[0].kw"},
		{"custom load without name", DwellingInput{Appliances: Appliances{CustomLoad{Enabled: true, KW: 1}}}, "appliances[0].name"},
		{"motor without horsepower", DwellingInput{Appliances: Appliances{PoolPump{Enabled: true}}}, "appliances[0].hp"},
		{"motor beyond table", DwellingInput{Appliances: Appliances{WellPump{Enabled: true, HP: 15}}}, "appliances[0].hp"},
		{"bad heat type", DwellingInput{Appliances: Appliances{HVAC{Enabled: true, HeatType: "coal"}}}, "appliances[0].heat_type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := e.CalculateSingleDwelling(tt.input)

			assert.Nil(t, res)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidation))
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Contains(t, verr.Fields, tt.field)
		})
	}
}

func TestValidationError_MessageIsTranslated(t *testing.T) {
	err := Validate(DwellingInput{SquareFootage: math.NaN()})

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "square_footage must be a finite number", verr.Fields["square_footage"])
	assert.Contains(t, err.Error(), "validation failed: square_footage")
}

func TestValidate_DisabledCustomLoadNeedsNoName(t *testing.T) {
	err := Validate(DwellingInput{Appliances: Appliances{CustomLoad{Enabled: false}}})
	assert.NoError(t, err)
}
