package calc

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/stwalsh4118/loadcalc/api/internal/tables"
)

// Category names a breakdown line. The neutral calculator keys off it.
type Category string

const (
	CategoryGeneral     Category = "general_loads"
	CategoryRange       Category = "range"
	CategoryDryer       Category = "dryer"
	CategoryWaterHeater Category = "water_heater"
	CategoryHVAC        Category = "hvac"
	CategoryDishwasher  Category = "dishwasher"
	CategoryDisposal    Category = "disposal"
	CategoryMicrowave   Category = "microwave"
	CategoryEVCharger   Category = "ev_charger"
	CategoryPoolPump    Category = "pool_pump"
	CategoryPoolHeater  Category = "pool_heater"
	CategoryHotTub      Category = "hot_tub"
	CategorySauna       Category = "sauna"
	CategoryWellPump    Category = "well_pump"
	CategoryCustom      Category = "custom"

	CategoryLighting    Category = "lighting"
	CategoryReceptacles Category = "receptacles"
	CategoryShowWindow  Category = "show_window"
	CategorySigns       Category = "signs"
	CategoryMotor       Category = "motor"
	CategoryKitchen     Category = "kitchen"
	CategorySpecial     Category = "special"
	CategoryHouse       Category = "house_load"
)

// BreakdownEntry is one line of a load calculation.
type BreakdownEntry struct {
	Category      Category `json:"category"`
	Description   string   `json:"description"`
	ConnectedVA   float64  `json:"connected_va"`
	DemandVA      float64  `json:"demand_va"`
	DemandFactor  float64  `json:"demand_factor"`
	CodeReference string   `json:"code_reference"`
	Continuous    bool     `json:"continuous,omitempty"`
}

// LoadCalculationResult is the outcome of a dwelling, multi-family or
// commercial calculation.
type LoadCalculationResult struct {
	TotalConnectedVA        float64          `json:"total_connected_va"`
	TotalDemandVA           float64          `json:"total_demand_va"`
	ContinuousVA            float64          `json:"continuous_va"`
	ServiceAmps             float64          `json:"service_amps"`
	RecommendedServiceSize  int              `json:"recommended_service_size"`
	Voltage                 float64          `json:"voltage"`
	Phases                  int              `json:"phases"`
	ConductorMaterial       tables.Material  `json:"conductor_material"`
	ServiceConductorSize    string           `json:"service_conductor_size"`
	NeutralConductorSize    string           `json:"neutral_conductor_size"`
	GECSize                 string           `json:"gec_size"`
	NeutralLoadVA           float64          `json:"neutral_load_va"`
	NeutralAmps             float64          `json:"neutral_amps"`
	NeutralReductionPercent float64          `json:"neutral_reduction_percent"`
	NeutralNote             string           `json:"neutral_note,omitempty"`
	Breakdown               []BreakdownEntry `json:"breakdown"`
	CodeReferences          []string         `json:"code_references"`
	Warnings                []string         `json:"warnings"`
}

// breakdown accumulates entries, references and warnings for one calculation.
type breakdown struct {
	entries  []BreakdownEntry
	refs     []string
	seen     map[string]bool
	warnings []string
}

func newBreakdown() *breakdown {
	return &breakdown{seen: make(map[string]bool)}
}

func (b *breakdown) add(e BreakdownEntry) {
	switch {
	case e.ConnectedVA > 0:
		e.DemandFactor = e.DemandVA / e.ConnectedVA
	case e.DemandFactor == 0:
		e.DemandFactor = 1
	}
	b.entries = append(b.entries, e)
	b.ref(e.CodeReference)
}

func (b *breakdown) ref(r string) {
	if r == "" || b.seen[r] {
		return
	}
	b.seen[r] = true
	b.refs = append(b.refs, r)
}

func (b *breakdown) warn(format string, args ...interface{}) {
	b.warnings = append(b.warnings, fmt.Sprintf(format, args...))
}

func (b *breakdown) totals() (connected, demand, continuous float64) {
	c := make([]float64, len(b.entries))
	d := make([]float64, len(b.entries))
	var cont []float64
	for i, e := range b.entries {
		c[i] = e.ConnectedVA
		d[i] = e.DemandVA
		if e.Continuous {
			cont = append(cont, e.DemandVA)
		}
	}
	return floats.Sum(c), floats.Sum(d), floats.Sum(cont)
}

// serviceParams describes how the service stage sizes a finished breakdown.
type serviceParams struct {
	voltage     float64
	phases      int
	material    tables.Material
	gecMaterial tables.Material
	conductors  tables.ConductorTable
	// continuousAdder adds 25% of continuous VA to the sizing load.
	continuousAdder bool
}

// finish derives the service, conductor, GEC and neutral figures for b.
func (e *Engine) finish(b *breakdown, p serviceParams) *LoadCalculationResult {
	connected, demand, continuous := b.totals()

	res := &LoadCalculationResult{
		TotalConnectedVA:  connected,
		TotalDemandVA:     demand,
		ContinuousVA:      continuous,
		Voltage:           p.voltage,
		Phases:            p.phases,
		ConductorMaterial: p.material,
	}

	sizingVA := demand
	if p.continuousAdder && continuous > 0 {
		sizingVA += 0.25 * continuous
		b.ref("NEC 215.2(A)(1)")
	}
	res.ServiceAmps = LineCurrent(sizingVA, p.voltage, p.phases)

	size, warning := RecommendServiceSize(res.ServiceAmps, e.store.ServiceCatalog, e.store.ContinuousDutyMargin)
	res.RecommendedServiceSize = size
	if warning != "" {
		b.warnings = append(b.warnings, warning)
	}
	b.ref("NEC 230.79")

	conductor, _, overflow := p.conductors.Select(res.ServiceAmps, p.material)
	res.ServiceConductorSize = conductor
	if overflow {
		b.warn("Service current of %.1f A exceeds the conductor table; parallel service conductors are required", res.ServiceAmps)
	}

	if gec, ok := e.store.GECSize(conductor, p.material, p.gecMaterial); ok {
		res.GECSize = gec
		b.ref("NEC 250.66")
	}

	neutral := CalculateNeutral(b.entries, p.voltage, p.phases, e.store.Neutral)
	res.NeutralLoadVA = neutral.LoadVA
	res.NeutralAmps = neutral.Amps
	res.NeutralReductionPercent = neutral.ReductionPercent
	res.NeutralNote = neutral.Note
	res.NeutralConductorSize, _, _ = p.conductors.Select(neutral.Amps, p.material)
	b.ref("NEC 220.61")

	res.Breakdown = b.entries
	res.CodeReferences = b.refs
	res.Warnings = b.warnings
	if res.Breakdown == nil {
		res.Breakdown = []BreakdownEntry{}
	}
	if res.Warnings == nil {
		res.Warnings = []string{}
	}
	return res
}
