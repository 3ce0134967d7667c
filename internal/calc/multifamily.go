package calc

import (
	"fmt"

	"github.com/stwalsh4118/loadcalc/api/internal/tables"
)

// UnitTemplate is a dwelling unit type repeated UnitCount times in a building.
type UnitTemplate struct {
	Name                   string       `json:"name" validate:"max=120"`
	SquareFootage          float64      `json:"square_footage" validate:"finite,gte=0"`
	UnitCount              int          `json:"unit_count" validate:"gte=1"`
	SmallApplianceCircuits int          `json:"small_appliance_circuits" validate:"gte=0"`
	LaundryCircuit         bool         `json:"laundry_circuit"`
	Appliances             Appliances   `json:"appliances" validate:"dive"`
	Derived                *UnitDerived `json:"derived,omitempty" validate:"-"`
}

// UnitDerived holds the per-unit panel figures attached to result templates.
type UnitDerived struct {
	CalculatedLoadVA float64 `json:"calculated_load_va"`
	ServiceAmps      float64 `json:"service_amps"`
	PanelSize        int     `json:"panel_size"`
}

// MultiUnitInput describes a multi-family building.
type MultiUnitInput struct {
	Units             []UnitTemplate  `json:"units" validate:"required,min=1,dive"`
	HouseLoadVA       float64         `json:"house_load_va" validate:"finite,gte=0"`
	Voltage           float64         `json:"voltage,omitempty" validate:"omitempty,finite,gt=0"`
	Phases            int             `json:"phases,omitempty" validate:"omitempty,oneof=1 3"`
	UnitVoltage       float64         `json:"unit_voltage,omitempty" validate:"omitempty,finite,gt=0"`
	ConductorMaterial tables.Material `json:"conductor_material,omitempty" validate:"omitempty,oneof=copper aluminum"`
	GECMaterial       tables.Material `json:"gec_material,omitempty" validate:"omitempty,oneof=copper aluminum"`
}

// MultiUnitResult is the building calculation plus the per-unit figures.
type MultiUnitResult struct {
	LoadCalculationResult
	TotalUnits   int            `json:"total_units"`
	DemandFactor float64        `json:"demand_factor"`
	Units        []UnitTemplate `json:"units"`
}

// CalculateMultiUnit runs the optional multi-family method: nameplate loads of
// every unit are summed per category, a single unit-count factor is applied,
// and house load is added at 100% afterwards. Each template is also sized as
// an individual dwelling for its own panel.
func (e *Engine) CalculateMultiUnit(in MultiUnitInput) (*MultiUnitResult, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}
	for i, u := range in.Units {
		if err := e.checkMotors(u.Appliances, fmt.Sprintf("units[%d].", i)); err != nil {
			return nil, err
		}
	}

	unitVoltage := e.voltageOr(in.UnitVoltage)
	units := make([]UnitTemplate, len(in.Units))
	var unitWarnings []string
	totalUnits := 0
	for i, u := range in.Units {
		per := e.dwelling(DwellingInput{
			SquareFootage:          u.SquareFootage,
			SmallApplianceCircuits: u.SmallApplianceCircuits,
			LaundryCircuit:         u.LaundryCircuit,
			Appliances:             u.Appliances,
			Voltage:                unitVoltage,
			ConductorMaterial:      in.ConductorMaterial,
			GECMaterial:            in.GECMaterial,
		})
		units[i] = u
		units[i].Appliances = append(Appliances(nil), u.Appliances...)
		units[i].Derived = &UnitDerived{
			CalculatedLoadVA: per.TotalDemandVA,
			ServiceAmps:      per.ServiceAmps,
			PanelSize:        per.RecommendedServiceSize,
		}
		for _, w := range per.Warnings {
			unitWarnings = append(unitWarnings, fmt.Sprintf("%s: %s", unitLabel(u, i), w))
		}
		totalUnits += u.UnitCount
	}

	b := newBreakdown()
	factor := e.store.MultiFamilyFactor(totalUnits)
	if totalUnits < e.store.MultiFamily.MinUnits {
		factor = 1.0
		b.warn("The optional multi-family method applies to %d or more dwelling units; %d unit(s) calculated at 100%%. Use the single-dwelling method instead",
			e.store.MultiFamily.MinUnits, totalUnits)
	}
	b.warnings = append(b.warnings, unitWarnings...)
	b.ref("NEC 220.84")

	for _, agg := range e.buildingNameplate(in.Units) {
		b.add(BreakdownEntry{
			Category:      agg.category,
			Description:   fmt.Sprintf("%s, %.0f%% building demand factor", agg.description, factor*100),
			ConnectedVA:   agg.va,
			DemandVA:      agg.va * factor,
			CodeReference: "NEC Table 220.84(B)",
			Continuous:    agg.continuous,
		})
	}
	if in.HouseLoadVA > 0 {
		b.add(BreakdownEntry{
			Category:      CategoryHouse,
			Description:   "House and common-area load at 100%",
			ConnectedVA:   in.HouseLoadVA,
			DemandVA:      in.HouseLoadVA,
			CodeReference: "NEC 220.84(A)",
		})
	}

	phases := phasesOr(in.Phases, 1)
	material := e.materialOr(in.ConductorMaterial)
	conductors, _ := e.store.FeederConductors(material, tables.Rating75C)
	res := e.finish(b, serviceParams{
		voltage:     e.voltageOr(in.Voltage),
		phases:      phases,
		material:    material,
		gecMaterial: gecMaterialOr(in.GECMaterial),
		conductors:  conductors,
	})

	return &MultiUnitResult{
		LoadCalculationResult: *res,
		TotalUnits:            totalUnits,
		DemandFactor:          factor,
		Units:                 units,
	}, nil
}

// buildingNameplate sums nameplate VA per category across all units, in the
// order categories first appear. No per-appliance demand rule is applied.
func (e *Engine) buildingNameplate(units []UnitTemplate) []applianceLoad {
	var order []Category
	sums := map[Category]*applianceLoad{}
	add := func(c Category, desc string, va float64, continuous bool, count int) {
		if va <= 0 {
			return
		}
		agg, ok := sums[c]
		if !ok {
			agg = &applianceLoad{category: c, description: desc}
			sums[c] = agg
			order = append(order, c)
		}
		agg.va += va * float64(count)
		agg.continuous = agg.continuous || continuous
	}

	d := e.store.Dwelling
	for _, u := range units {
		sa := u.SmallApplianceCircuits
		if sa < d.MinSmallApplianceCircuits {
			sa = d.MinSmallApplianceCircuits
		}
		add(CategoryLighting, "General lighting at unit load", u.SquareFootage*d.UnitLoadVAPerFt2, false, u.UnitCount)
		add(CategoryGeneral, "Small-appliance and laundry circuits", float64(sa)*d.SmallApplianceCircuitVA, false, u.UnitCount)
		if u.LaundryCircuit {
			add(CategoryGeneral, "Small-appliance and laundry circuits", d.LaundryCircuitVA, false, u.UnitCount)
		}
		for _, a := range u.Appliances {
			if l, ok := e.nameplate(a); ok {
				add(l.category, categoryLabel(l.category), l.va, l.continuous, u.UnitCount)
			}
		}
	}

	out := make([]applianceLoad, 0, len(order))
	for _, c := range order {
		out = append(out, *sums[c])
	}
	return out
}

func unitLabel(u UnitTemplate, i int) string {
	if u.Name != "" {
		return u.Name
	}
	return fmt.Sprintf("Unit type %d", i+1)
}

var categoryLabels = map[Category]string{
	CategoryRange:       "Ranges",
	CategoryDryer:       "Clothes dryers",
	CategoryWaterHeater: "Water heaters",
	CategoryHVAC:        "HVAC (larger of heating or cooling)",
	CategoryDishwasher:  "Dishwashers",
	CategoryDisposal:    "Disposals",
	CategoryMicrowave:   "Microwaves",
	CategoryEVCharger:   "EV chargers",
	CategoryPoolPump:    "Pool pumps",
	CategoryPoolHeater:  "Pool heaters",
	CategoryHotTub:      "Hot tubs",
	CategorySauna:       "Saunas",
	CategoryWellPump:    "Well pumps",
	CategoryCustom:      "Other fixed loads",
}

func categoryLabel(c Category) string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return string(c)
}
