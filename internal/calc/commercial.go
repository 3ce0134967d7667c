package calc

import (
	"fmt"
	"math"
	"sort"

	"github.com/stwalsh4118/loadcalc/api/internal/tables"
)

// HVACMode says when a commercial HVAC unit runs.
type HVACMode string

const (
	ModeHeating   HVACMode = "heating"
	ModeCooling   HVACMode = "cooling"
	ModeYearRound HVACMode = "year_round"
)

// HVACUnit is a commercial heating or cooling unit rated by full-load amps.
type HVACUnit struct {
	Description string   `json:"description" validate:"max=120"`
	Mode        HVACMode `json:"mode" validate:"required,oneof=heating cooling year_round"`
	FLA         float64  `json:"fla" validate:"finite,gte=0"`
	Volts       float64  `json:"volts,omitempty" validate:"omitempty,finite,gt=0"`
	Phases      int      `json:"phases,omitempty" validate:"omitempty,oneof=1 3"`
	Continuous  bool     `json:"continuous"`
}

// MotorLoad is a group of identical motors rated by full-load amps.
type MotorLoad struct {
	Description string  `json:"description" validate:"max=120"`
	FLA         float64 `json:"fla" validate:"finite,gte=0"`
	Volts       float64 `json:"volts,omitempty" validate:"omitempty,finite,gt=0"`
	Phases      int     `json:"phases,omitempty" validate:"omitempty,oneof=1 3"`
	Quantity    int     `json:"quantity,omitempty" validate:"omitempty,gte=1"`
	Continuous  bool    `json:"continuous"`
}

// KitchenItem is one piece of commercial cooking equipment.
type KitchenItem struct {
	Description string  `json:"description" validate:"max=120"`
	KW          float64 `json:"kw" validate:"finite,gte=0"`
}

// SpecialLoad is a miscellaneous load taken at 100%.
type SpecialLoad struct {
	Description string  `json:"description" validate:"max=120"`
	VA          float64 `json:"va" validate:"finite,gte=0"`
	Continuous  bool    `json:"continuous"`
}

// CommercialInput describes a non-dwelling occupancy.
type CommercialInput struct {
	Occupancy         string          `json:"occupancy" validate:"required"`
	SquareFootage     float64         `json:"square_footage" validate:"finite,gte=0"`
	Receptacles       int             `json:"receptacles" validate:"gte=0"`
	ShowWindowFt      float64         `json:"show_window_ft" validate:"finite,gte=0"`
	SignOutlets       int             `json:"sign_outlets" validate:"gte=0"`
	HVAC              []HVACUnit      `json:"hvac" validate:"dive"`
	Motors            []MotorLoad     `json:"motors" validate:"dive"`
	Kitchen           []KitchenItem   `json:"kitchen" validate:"dive"`
	IncludeKitchen    *bool           `json:"include_kitchen,omitempty"`
	SpecialLoads      []SpecialLoad   `json:"special_loads" validate:"dive"`
	Voltage           float64         `json:"voltage,omitempty" validate:"omitempty,finite,gt=0"`
	Phases            int             `json:"phases,omitempty" validate:"omitempty,oneof=1 3"`
	ConductorMaterial tables.Material `json:"conductor_material,omitempty" validate:"omitempty,oneof=copper aluminum"`
	GECMaterial       tables.Material `json:"gec_material,omitempty" validate:"omitempty,oneof=copper aluminum"`
}

// CalculateCommercial runs the non-dwelling load calculation. The service
// is sized on the demand load plus 25% of the continuous loads.
func (e *Engine) CalculateCommercial(in CommercialInput) (*LoadCalculationResult, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}
	occ, ok := e.store.Occupancy(in.Occupancy)
	if !ok {
		return nil, invalidField("occupancy", "unknown occupancy %q", in.Occupancy)
	}

	voltage := in.Voltage
	if voltage <= 0 {
		voltage = DefaultCommercialVoltage
	}
	phases := phasesOr(in.Phases, 3)

	b := newBreakdown()
	e.commercialLighting(b, occ, in.SquareFootage)
	e.commercialReceptacles(b, in)
	commercialHVAC(b, in.HVAC, voltage, phases)
	commercialMotors(b, in.Motors, voltage, phases)

	includeKitchen := occ.Kitchen
	if in.IncludeKitchen != nil {
		includeKitchen = *in.IncludeKitchen
	}
	if includeKitchen {
		e.commercialKitchen(b, in.Kitchen)
	} else if len(in.Kitchen) > 0 {
		b.warn("%d kitchen item(s) ignored because kitchen equipment is excluded for this calculation", len(in.Kitchen))
	}
	specialLoads(b, in.SpecialLoads)

	material := e.materialOr(in.ConductorMaterial)
	conductors, _ := e.store.FeederConductors(material, tables.Rating75C)
	return e.finish(b, serviceParams{
		voltage:         voltage,
		phases:          phases,
		material:        material,
		gecMaterial:     gecMaterialOr(in.GECMaterial),
		conductors:      conductors,
		continuousAdder: true,
	}), nil
}

func (e *Engine) commercialLighting(b *breakdown, occ tables.Occupancy, sqft float64) {
	connected := sqft * occ.UnitLoadVAPerFt2
	if connected <= 0 {
		return
	}
	sched, _ := e.store.Schedule(occ.LightingSchedule)
	b.ref("NEC Table 220.12")
	b.add(BreakdownEntry{
		Category:      CategoryLighting,
		Description:   fmt.Sprintf("%s lighting %.0f ft² @ %g VA/ft²", occ.Label, sqft, occ.UnitLoadVAPerFt2),
		ConnectedVA:   connected,
		DemandVA:      ApplyTieredDemand(connected, sched),
		CodeReference: "NEC Table 220.42",
	})
}

func (e *Engine) commercialReceptacles(b *breakdown, in CommercialInput) {
	c := e.store.Commercial
	if in.Receptacles > 0 {
		connected := float64(in.Receptacles) * c.ReceptacleVA
		b.ref("NEC 220.14(I)")
		b.add(BreakdownEntry{
			Category:      CategoryReceptacles,
			Description:   fmt.Sprintf("%d receptacle outlets @ %.0f VA", in.Receptacles, c.ReceptacleVA),
			ConnectedVA:   connected,
			DemandVA:      ApplyTieredDemand(connected, e.store.ReceptacleSchedule()),
			CodeReference: "NEC Table 220.44",
		})
	}
	if in.ShowWindowFt > 0 {
		va := in.ShowWindowFt * c.ShowWindowVAPerFt
		b.add(BreakdownEntry{
			Category:      CategoryShowWindow,
			Description:   fmt.Sprintf("Show window %.0f ft @ %.0f VA/ft", in.ShowWindowFt, c.ShowWindowVAPerFt),
			ConnectedVA:   va,
			DemandVA:      va,
			CodeReference: "NEC 220.14(G)",
		})
	}
	if in.SignOutlets > 0 {
		va := float64(in.SignOutlets) * c.SignOutletVA
		b.add(BreakdownEntry{
			Category:      CategorySigns,
			Description:   fmt.Sprintf("%d sign outlet(s) @ %.0f VA", in.SignOutlets, c.SignOutletVA),
			ConnectedVA:   va,
			DemandVA:      va,
			CodeReference: "NEC 220.14(F)",
		})
	}
}

// hvacLoad sums one HVAC mode, keeping the continuous share apart.
type hvacLoad struct {
	total, continuous float64
}

func (l *hvacLoad) add(va float64, continuous bool) {
	l.total += va
	if continuous {
		l.continuous += va
	}
}

// commercialHVAC treats heating and cooling as non-coincident and adds
// year-round units on top. Continuous units are flagged for the 125% adder.
func commercialHVAC(b *breakdown, units []HVACUnit, voltage float64, phases int) {
	var heating, cooling, yearRound hvacLoad
	for _, u := range units {
		va := equipmentVA(u.FLA, u.Volts, u.Phases, voltage, phases)
		switch u.Mode {
		case ModeHeating:
			heating.add(va, u.Continuous)
		case ModeCooling:
			cooling.add(va, u.Continuous)
		case ModeYearRound:
			yearRound.add(va, u.Continuous)
		}
	}
	if heating.total > 0 || cooling.total > 0 {
		entry := hvacEntry(cooling.total, heating.total)
		entry.Description = fmt.Sprintf("HVAC non-coincident: cooling %.0f VA vs heating %.0f VA", cooling.total, heating.total)
		selected := cooling
		if heating.total > cooling.total {
			selected = heating
		}
		for _, part := range splitContinuous(entry, selected.continuous) {
			b.add(part)
		}
	}
	if yearRound.total > 0 {
		entry := BreakdownEntry{
			Category:      CategoryHVAC,
			Description:   "Year-round HVAC equipment",
			ConnectedVA:   yearRound.total,
			DemandVA:      yearRound.total,
			CodeReference: "NEC 220.50",
		}
		for _, part := range splitContinuous(entry, yearRound.continuous) {
			b.add(part)
		}
	}
}

// splitContinuous marks the continuous part of a 100% entry. A partly
// continuous entry becomes two entries with the same reference.
func splitContinuous(e BreakdownEntry, continuousVA float64) []BreakdownEntry {
	switch {
	case continuousVA <= 0:
		return []BreakdownEntry{e}
	case continuousVA >= e.DemandVA:
		e.Continuous = true
		return []BreakdownEntry{e}
	}
	cont, rest := e, e
	cont.Description += ", continuous"
	cont.ConnectedVA, cont.DemandVA, cont.Continuous = continuousVA, continuousVA, true
	rest.Description += ", non-continuous"
	rest.ConnectedVA, rest.DemandVA = e.DemandVA-continuousVA, e.DemandVA-continuousVA
	return []BreakdownEntry{cont, rest}
}

func commercialMotors(b *breakdown, motors []MotorLoad, voltage float64, phases int) {
	for i, m := range motors {
		qty := m.Quantity
		if qty == 0 {
			qty = 1
		}
		va := equipmentVA(m.FLA, m.Volts, m.Phases, voltage, phases) * float64(qty)
		if va <= 0 {
			continue
		}
		desc := m.Description
		if desc == "" {
			desc = fmt.Sprintf("Motor %d", i+1)
		}
		b.add(BreakdownEntry{
			Category:      CategoryMotor,
			Description:   fmt.Sprintf("%s, %d x %.1f A", desc, qty, m.FLA),
			ConnectedVA:   va,
			DemandVA:      va,
			CodeReference: "NEC 220.50",
			Continuous:    m.Continuous,
		})
	}
}

// commercialKitchen applies the equipment-count factor, never going below
// the sum of the two largest items.
func (e *Engine) commercialKitchen(b *breakdown, items []KitchenItem) {
	vas := make([]float64, 0, len(items))
	connected := 0.0
	for _, it := range items {
		if it.KW <= 0 {
			continue
		}
		vas = append(vas, it.KW*1000)
		connected += it.KW * 1000
	}
	if len(vas) == 0 {
		return
	}
	factor := e.store.KitchenFactor(len(vas))
	demand := connected * factor

	sort.Sort(sort.Reverse(sort.Float64Slice(vas)))
	twoLargest := vas[0]
	if len(vas) > 1 {
		twoLargest += vas[1]
	}
	desc := fmt.Sprintf("%d kitchen equipment item(s) at %.0f%%", len(vas), factor*100)
	if twoLargest > demand {
		demand = twoLargest
		desc = fmt.Sprintf("%d kitchen equipment item(s), two largest items govern", len(vas))
	}
	b.add(BreakdownEntry{
		Category:      CategoryKitchen,
		Description:   desc,
		ConnectedVA:   connected,
		DemandVA:      demand,
		CodeReference: "NEC Table 220.56",
	})
}

func specialLoads(b *breakdown, loads []SpecialLoad) {
	var continuous, other float64
	for _, l := range loads {
		if l.Continuous {
			continuous += l.VA
		} else {
			other += l.VA
		}
	}
	if continuous > 0 {
		b.add(BreakdownEntry{
			Category:      CategorySpecial,
			Description:   "Special loads, continuous",
			ConnectedVA:   continuous,
			DemandVA:      continuous,
			CodeReference: "NEC 215.2(A)(1)",
			Continuous:    true,
		})
	}
	if other > 0 {
		b.add(BreakdownEntry{
			Category:      CategorySpecial,
			Description:   "Special loads, non-continuous",
			ConnectedVA:   other,
			DemandVA:      other,
			CodeReference: "NEC 220.14(A)",
		})
	}
}

// equipmentVA converts full-load amps to VA using the equipment's own supply
// when given and the building supply otherwise.
func equipmentVA(fla, volts float64, phases int, defVolts float64, defPhases int) float64 {
	if volts <= 0 {
		volts = defVolts
	}
	return math.Max(PhaseVA(fla, volts, phasesOr(phases, defPhases)), 0)
}
