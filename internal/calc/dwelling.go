package calc

import (
	"fmt"
	"math"

	"github.com/stwalsh4118/loadcalc/api/internal/tables"
)

// DwellingInput describes one dwelling unit.
type DwellingInput struct {
	SquareFootage          float64         `json:"square_footage" validate:"finite,gte=0"`
	SmallApplianceCircuits int             `json:"small_appliance_circuits" validate:"gte=0"`
	LaundryCircuit         bool            `json:"laundry_circuit"`
	Appliances             Appliances      `json:"appliances" validate:"dive"`
	Voltage                float64         `json:"voltage,omitempty" validate:"omitempty,finite,gt=0"`
	ConductorMaterial      tables.Material `json:"conductor_material,omitempty" validate:"omitempty,oneof=copper aluminum"`
	GECMaterial            tables.Material `json:"gec_material,omitempty" validate:"omitempty,oneof=copper aluminum"`
}

// CalculateSingleDwelling runs the standard dwelling load calculation.
func (e *Engine) CalculateSingleDwelling(in DwellingInput) (*LoadCalculationResult, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}
	if err := e.checkMotors(in.Appliances, ""); err != nil {
		return nil, err
	}
	return e.dwelling(in), nil
}

// dwelling assumes in has been validated.
func (e *Engine) dwelling(in DwellingInput) *LoadCalculationResult {
	b := newBreakdown()
	e.generalLoads(b, in.SquareFootage, in.SmallApplianceCircuits, in.LaundryCircuit)
	e.dwellingAppliances(b, in.Appliances)

	material := e.materialOr(in.ConductorMaterial)
	return e.finish(b, serviceParams{
		voltage:     e.voltageOr(in.Voltage),
		phases:      1,
		material:    material,
		gecMaterial: gecMaterialOr(in.GECMaterial),
		conductors:  e.store.ServiceConductors,
	})
}

// generalLoads adds lighting, small-appliance and laundry load as a single
// pool run through the dwelling lighting schedule.
func (e *Engine) generalLoads(b *breakdown, sqft float64, saCircuits int, laundry bool) {
	d := e.store.Dwelling

	if saCircuits < d.MinSmallApplianceCircuits {
		b.warn("%d small-appliance circuit(s) specified; NEC 210.11(C)(1) requires at least %d, calculated with %d",
			saCircuits, d.MinSmallApplianceCircuits, d.MinSmallApplianceCircuits)
		saCircuits = d.MinSmallApplianceCircuits
	}
	if !laundry {
		b.warn("No laundry circuit specified; NEC 210.11(C)(2) requires at least one 20 A laundry branch circuit")
	}

	lighting := sqft * d.UnitLoadVAPerFt2
	smallAppliance := float64(saCircuits) * d.SmallApplianceCircuitVA
	laundryVA := 0.0
	if laundry {
		laundryVA = d.LaundryCircuitVA
	}
	connected := lighting + smallAppliance + laundryVA

	b.ref("NEC 220.14(J)")
	b.ref("NEC 220.52")
	b.add(BreakdownEntry{
		Category: CategoryGeneral,
		Description: fmt.Sprintf("General lighting %.0f ft² @ %g VA/ft², %d small-appliance circuits, laundry %s",
			sqft, d.UnitLoadVAPerFt2, saCircuits, yesNo(laundry)),
		ConnectedVA:   connected,
		DemandVA:      ApplyTieredDemand(connected, e.store.DwellingLightingSchedule()),
		CodeReference: "NEC 220.45",
	})
}

// dwellingAppliances applies the per-appliance demand rules of a single
// dwelling: range and dryer rules, non-coincident HVAC, everything else at
// nameplate.
func (e *Engine) dwellingAppliances(b *breakdown, apps Appliances) {
	var dryers []float64
	var cooling, heating float64
	hasHVAC := false

	for _, a := range apps {
		if a == nil || !a.IsEnabled() {
			continue
		}
		switch v := a.(type) {
		case Range:
			if l, ok := e.nameplate(v); ok {
				b.add(e.rangeEntry(l))
			}
		case Dryer:
			if l, ok := e.nameplate(v); ok {
				dryers = append(dryers, l.va)
			}
		case HVAC:
			c, h := hvacVA(v)
			cooling += c
			heating += h
			hasHVAC = true
		default:
			if l, ok := e.nameplate(v); ok {
				b.add(BreakdownEntry{
					Category:      l.category,
					Description:   l.description,
					ConnectedVA:   l.va,
					DemandVA:      l.va,
					CodeReference: l.codeRef,
					Continuous:    l.continuous,
				})
			}
		}
	}

	if len(dryers) > 0 {
		b.add(e.dryerEntry(dryers))
	}
	if hasHVAC && (cooling > 0 || heating > 0) {
		b.add(hvacEntry(cooling, heating))
	}
}

// rangeEntry applies the cooking rule: at or below the threshold the demand
// is the nameplate capped at the floor value, above it the full nameplate.
func (e *Engine) rangeEntry(l applianceLoad) BreakdownEntry {
	rule := e.store.Range
	demand := l.va
	note := "100% above 12 kW"
	if l.va <= rule.ThresholdVA {
		demand = math.Min(l.va, rule.FloorVA)
		note = fmt.Sprintf("%.0f VA maximum at or below %.0f kW", rule.FloorVA, rule.ThresholdVA/1000)
	}
	return BreakdownEntry{
		Category:      CategoryRange,
		Description:   fmt.Sprintf("%s, %s", l.description, note),
		ConnectedVA:   l.va,
		DemandVA:      demand,
		CodeReference: l.codeRef,
	}
}

// dryerEntry floors each dryer at the minimum rating, then applies the
// count factor to the sum.
func (e *Engine) dryerEntry(nameplates []float64) BreakdownEntry {
	rule := e.store.Dryer
	connected := 0.0
	for _, va := range nameplates {
		connected += math.Max(va, rule.MinimumVA)
	}
	factor := e.store.DryerFactor(len(nameplates))
	return BreakdownEntry{
		Category:      CategoryDryer,
		Description:   fmt.Sprintf("%d clothes dryer(s), %.0f VA minimum each, %.0f%% demand", len(nameplates), rule.MinimumVA, factor*100),
		ConnectedVA:   connected,
		DemandVA:      connected * factor,
		CodeReference: "NEC 220.54",
	}
}

// hvacEntry takes the larger of cooling and electric heating, never the sum.
func hvacEntry(cooling, heating float64) BreakdownEntry {
	va := math.Max(cooling, heating)
	selected := "cooling"
	if heating > cooling {
		selected = "heating"
	}
	return BreakdownEntry{
		Category:      CategoryHVAC,
		Description:   fmt.Sprintf("HVAC non-coincident: cooling %.0f VA vs electric heat %.0f VA, %s selected", cooling, heating, selected),
		ConnectedVA:   va,
		DemandVA:      va,
		DemandFactor:  1,
		CodeReference: "NEC 220.60",
	}
}

func gecMaterialOr(m tables.Material) tables.Material {
	if m.Valid() {
		return m
	}
	return tables.Copper
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
