package calc

import (
	"fmt"
	"math"

	"github.com/stwalsh4118/loadcalc/api/internal/tables"
)

// FeederInput describes a feeder to size.
type FeederInput struct {
	TotalLoadVA               float64         `json:"total_load_va" validate:"finite,gte=0"`
	ContinuousLoadVA          float64         `json:"continuous_load_va" validate:"finite,gte=0"`
	NonContinuousLoadVA       float64         `json:"non_continuous_load_va" validate:"finite,gte=0"`
	DistanceFt                float64         `json:"distance_ft" validate:"finite,gte=0"`
	Voltage                   float64         `json:"voltage,omitempty" validate:"omitempty,finite,gt=0"`
	Phases                    int             `json:"phases,omitempty" validate:"omitempty,oneof=1 3"`
	Material                  tables.Material `json:"material,omitempty" validate:"omitempty,oneof=copper aluminum"`
	TemperatureRating         int             `json:"temperature_rating,omitempty" validate:"omitempty,oneof=60 75 90"`
	AmbientTempC              *float64        `json:"ambient_temp_c,omitempty" validate:"omitempty,finite,gte=-40,lte=85"`
	CurrentCarryingConductors int             `json:"current_carrying_conductors,omitempty" validate:"omitempty,gte=1,lte=100"`
	IncludeNeutral            bool            `json:"include_neutral"`
	VoltageDropLimitPercent   float64         `json:"voltage_drop_limit_percent,omitempty" validate:"omitempty,finite,gt=0,lte=100"`
}

// FeederResult is a sized feeder.
type FeederResult struct {
	ContinuousLoadVA        float64         `json:"continuous_load_va"`
	NonContinuousLoadVA     float64         `json:"non_continuous_load_va"`
	LoadAmps                float64         `json:"load_amps"`
	DesignAmps              float64         `json:"design_amps"`
	OCPDRating              int             `json:"ocpd_rating"`
	AmbientCorrection       float64         `json:"ambient_correction"`
	AdjustmentFactor        float64         `json:"adjustment_factor"`
	RequiredAmpacity        float64         `json:"required_ampacity"`
	ConductorSize           string          `json:"conductor_size"`
	ConductorAmpacity       float64         `json:"conductor_ampacity"`
	DeratedAmpacity         float64         `json:"derated_ampacity"`
	NeutralSize             string          `json:"neutral_size,omitempty"`
	EGCSize                 string          `json:"egc_size"`
	ConduitSize             string          `json:"conduit_size"`
	ConductorAreaIn2        float64         `json:"conductor_area_in2"`
	Material                tables.Material `json:"material"`
	TemperatureRating       int             `json:"temperature_rating"`
	Voltage                 float64         `json:"voltage"`
	Phases                  int             `json:"phases"`
	DistanceFt              float64         `json:"distance_ft"`
	VoltageDropVolts        float64         `json:"voltage_drop_volts"`
	VoltageDropPercent      float64         `json:"voltage_drop_percent"`
	VoltageDropLimitPercent float64         `json:"voltage_drop_limit_percent"`
	VoltageDropCompliant    bool            `json:"voltage_drop_compliant"`
	UpsizedConductorSize    string          `json:"upsized_conductor_size,omitempty"`
	CodeReferences          []string        `json:"code_references"`
	Warnings                []string        `json:"warnings"`
}

// CalculateFeederSizing sizes a feeder's conductors, protection, grounding,
// raceway and voltage drop. Continuous load is taken at 125%. A total larger
// than the continuous and non-continuous split counts as extra
// non-continuous load.
func (e *Engine) CalculateFeederSizing(in FeederInput) (*FeederResult, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}

	voltage := e.voltageOr(in.Voltage)
	phases := phasesOr(in.Phases, 1)
	material := e.materialOr(in.Material)
	rating := in.TemperatureRating
	if rating == 0 {
		rating = DefaultTemperatureRating
	}
	ambient := DefaultAmbientTempC
	if in.AmbientTempC != nil {
		ambient = *in.AmbientTempC
	}
	ccc := in.CurrentCarryingConductors
	if ccc == 0 {
		ccc = DefaultCurrentCarrying
	}
	limit := in.VoltageDropLimitPercent
	if limit <= 0 {
		limit = e.opts.VoltageDropLimitPercent
	}

	correction, ok := e.store.AmbientCorrection(ambient, rating)
	if !ok {
		return nil, invalidField("ambient_temp_c", "%g C ambient is not permitted for %d C rated conductors", ambient, rating)
	}

	b := newBreakdown()
	res := &FeederResult{
		Material:                material,
		TemperatureRating:       rating,
		Voltage:                 voltage,
		Phases:                  phases,
		DistanceFt:              in.DistanceFt,
		AmbientCorrection:       correction,
		AdjustmentFactor:        e.store.AdjustmentFactor(ccc),
		VoltageDropLimitPercent: limit,
	}

	continuous := in.ContinuousLoadVA
	other := in.NonContinuousLoadVA
	if extra := in.TotalLoadVA - (continuous + other); extra > 0 {
		other += extra
	}
	res.ContinuousLoadVA = continuous
	res.NonContinuousLoadVA = other
	res.LoadAmps = LineCurrent(continuous+other, voltage, phases)
	res.DesignAmps = LineCurrent(1.25*continuous+other, voltage, phases)
	b.ref("NEC 215.2(A)(1)")

	ocpd, ok := e.store.NextOCPD(res.DesignAmps)
	res.OCPDRating = ocpd
	if !ok {
		b.warn("Design current of %.1f A exceeds the largest standard overcurrent device (%d A)", res.DesignAmps, ocpd)
	}
	b.ref("NEC 240.6(A)")

	res.RequiredAmpacity = res.DesignAmps / (correction * res.AdjustmentFactor)
	if correction != 1 {
		b.ref("NEC 310.15(B)(1)")
	}
	if res.AdjustmentFactor != 1 {
		b.ref("NEC 310.15(C)(1)")
	}

	table, _ := e.store.FeederConductors(material, rating)
	size, ampacity, overflow := table.Select(res.RequiredAmpacity, material)
	res.ConductorSize = size
	res.ConductorAmpacity = ampacity
	res.DeratedAmpacity = ampacity * correction * res.AdjustmentFactor
	if overflow {
		b.warn("Required ampacity of %.1f A exceeds a single %s %s conductor; parallel conductors are required",
			res.RequiredAmpacity, size, material.Abbrev())
	}
	b.ref("NEC Table 310.16")
	if in.IncludeNeutral {
		res.NeutralSize = size
	}

	if egc, ok := e.store.EGCSize(ocpd, material); ok {
		res.EGCSize = egc
	} else {
		b.warn("No equipment grounding conductor listed for a %d A device", ocpd)
	}
	b.ref("NEC Table 250.122")

	e.sizeConduit(b, res, phases)

	k := e.store.VoltageDropConstant(material)
	res.VoltageDropVolts, res.VoltageDropPercent = e.voltageDrop(size, k, res.LoadAmps, in.DistanceFt, voltage, phases)
	res.VoltageDropCompliant = res.VoltageDropPercent <= limit
	if !res.VoltageDropCompliant {
		res.UpsizedConductorSize = e.upsizeForVoltageDrop(table, size, material, k, res.LoadAmps, in.DistanceFt, voltage, phases, limit)
		if res.UpsizedConductorSize != "" {
			b.warn("Voltage drop of %.2f%% exceeds the %.1f%% limit; upsize to %s %s", res.VoltageDropPercent, limit, res.UpsizedConductorSize, material.Abbrev())
		} else {
			b.warn("Voltage drop of %.2f%% exceeds the %.1f%% limit and no single conductor size complies", res.VoltageDropPercent, limit)
		}
	}
	b.ref("NEC 215.2(A)(2) Informational Note")

	res.CodeReferences = b.refs
	res.Warnings = b.warnings
	if res.Warnings == nil {
		res.Warnings = []string{}
	}
	return res, nil
}

// sizeConduit picks the smallest EMT for the phase conductors, the neutral
// when present and the EGC.
func (e *Engine) sizeConduit(b *breakdown, res *FeederResult, phases int) {
	phaseArea, ok := e.store.ConductorArea(res.ConductorSize)
	if !ok {
		b.warn("No insulated area listed for %s; conduit not sized", res.ConductorSize)
		return
	}
	egcArea, _ := e.store.ConductorArea(res.EGCSize)

	conductors := 2
	if phases == 3 {
		conductors = 3
	}
	if res.NeutralSize != "" {
		conductors++
	}
	res.ConductorAreaIn2 = float64(conductors)*phaseArea + egcArea

	if trade, ok := e.store.ConduitFor(res.ConductorAreaIn2); ok {
		res.ConduitSize = trade
	} else {
		b.warn("Conductor fill of %.3f in² exceeds the largest EMT trade size; use parallel raceways", res.ConductorAreaIn2)
	}
	b.ref("NEC Chapter 9 Table 1")
}

// voltageDrop returns the drop in volts and percent using the K-factor
// method: 2KIL/CM single-phase, sqrt(3)KIL/CM three-phase.
func (e *Engine) voltageDrop(size string, k, amps, lengthFt, voltage float64, phases int) (float64, float64) {
	cmil, ok := e.store.Cmil(size)
	if !ok || cmil <= 0 || voltage <= 0 {
		return 0, 0
	}
	mult := 2.0
	if phases == 3 {
		mult = math.Sqrt(3)
	}
	vd := mult * k * amps * lengthFt / cmil
	return vd, vd / voltage * 100
}

func (e *Engine) upsizeForVoltageDrop(table tables.ConductorTable, from string, m tables.Material, k, amps, lengthFt, voltage float64, phases int, limit float64) string {
	past := false
	for _, row := range table {
		s := row.Size(m)
		if s == from {
			past = true
			continue
		}
		if !past {
			continue
		}
		if _, pct := e.voltageDrop(s, k, amps, lengthFt, voltage, phases); pct <= limit {
			return s
		}
	}
	return ""
}

// String renders a one-line summary, as used in logs and the CLI.
func (r *FeederResult) String() string {
	return fmt.Sprintf("%s %s, %d A OCPD, EGC %s, %s EMT, %.2f%% drop",
		r.ConductorSize, r.Material.Abbrev(), r.OCPDRating, r.EGCSize, r.ConduitSize, r.VoltageDropPercent)
}
