package calc

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// PanelStatus grades panel bus loading.
type PanelStatus string

const (
	PanelOK         PanelStatus = "OK"
	PanelWarning    PanelStatus = "WARNING"
	PanelOverloaded PanelStatus = "OVERLOADED"
)

// PanelCircuit is one branch circuit in a panelboard.
type PanelCircuit struct {
	Description string  `json:"description" validate:"max=120"`
	LoadVA      float64 `json:"load_va" validate:"finite,gte=0"`
	Poles       int     `json:"poles,omitempty" validate:"omitempty,oneof=1 2 3"`
	Continuous  bool    `json:"continuous"`
}

// PanelInput describes a panelboard and its circuits.
type PanelInput struct {
	Name          string         `json:"name" validate:"max=120"`
	BusRatingAmps float64        `json:"bus_rating_amps" validate:"finite,gt=0"`
	Voltage       float64        `json:"voltage,omitempty" validate:"omitempty,finite,gt=0"`
	Phases        int            `json:"phases,omitempty" validate:"omitempty,oneof=1 3"`
	Spaces        int            `json:"spaces,omitempty" validate:"omitempty,gte=1,lte=84"`
	Circuits      []PanelCircuit `json:"circuits" validate:"dive"`
}

// PanelUtilizationResult reports bus loading and space usage.
type PanelUtilizationResult struct {
	Name               string      `json:"name,omitempty"`
	BusRatingAmps      float64     `json:"bus_rating_amps"`
	Voltage            float64     `json:"voltage"`
	Phases             int         `json:"phases"`
	CapacityVA         float64     `json:"capacity_va"`
	LoadVA             float64     `json:"load_va"`
	ContinuousVA       float64     `json:"continuous_va"`
	LoadAmps           float64     `json:"load_amps"`
	AvailableAmps      float64     `json:"available_amps"`
	UtilizationPercent float64     `json:"utilization_percent"`
	Spaces             int         `json:"spaces"`
	SpacesUsed         int         `json:"spaces_used"`
	SpacesAvailable    int         `json:"spaces_available"`
	CircuitCount       int         `json:"circuit_count"`
	CanAddLoad         bool        `json:"can_add_load"`
	Status             PanelStatus `json:"status"`
	Warnings           []string    `json:"warnings"`
}

// PanelUtilization compares a panel's connected circuits to its bus rating.
func (e *Engine) PanelUtilization(in PanelInput) (*PanelUtilizationResult, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}
	voltage := e.voltageOr(in.Voltage)
	phases := phasesOr(in.Phases, 1)
	spaces := in.Spaces
	if spaces == 0 {
		spaces = DefaultPanelSpaces
	}

	res := &PanelUtilizationResult{
		Name:          in.Name,
		BusRatingAmps: in.BusRatingAmps,
		Voltage:       voltage,
		Phases:        phases,
		CapacityVA:    PhaseVA(in.BusRatingAmps, voltage, phases),
		Spaces:        spaces,
		CircuitCount:  len(in.Circuits),
		Warnings:      []string{},
	}
	for _, c := range in.Circuits {
		res.LoadVA += c.LoadVA
		if c.Continuous {
			res.ContinuousVA += c.LoadVA
		}
		poles := c.Poles
		if poles == 0 {
			poles = 1
		}
		res.SpacesUsed += poles
	}
	res.SpacesAvailable = spaces - res.SpacesUsed
	res.LoadAmps = round1(LineCurrent(res.LoadVA, voltage, phases))
	res.AvailableAmps = round1(in.BusRatingAmps - LineCurrent(res.LoadVA, voltage, phases))
	ratio := res.LoadVA / res.CapacityVA * 100
	res.UtilizationPercent = round1(ratio)

	// A bus loaded to its full rating counts as overloaded.
	switch {
	case ratio < 80:
		res.Status = PanelOK
	case ratio < 100:
		res.Status = PanelWarning
	default:
		res.Status = PanelOverloaded
	}
	res.CanAddLoad = res.Status == PanelOK

	if res.SpacesUsed > spaces {
		res.Warnings = append(res.Warnings, fmt.Sprintf(
			"%d poles used exceeds the %d spaces available (NEC 408.54)", res.SpacesUsed, spaces))
	}
	if res.ContinuousVA > 0 {
		design := res.LoadVA + 0.25*res.ContinuousVA
		if design > res.CapacityVA {
			res.Warnings = append(res.Warnings, fmt.Sprintf(
				"Load with continuous circuits at 125%% (%.0f VA) exceeds the bus capacity of %.0f VA (NEC 215.2(A)(1))", design, res.CapacityVA))
		}
	}
	if res.Status == PanelOverloaded {
		res.Warnings = append(res.Warnings, fmt.Sprintf(
			"Connected load of %.0f VA reaches or exceeds the %.0f A bus rating", res.LoadVA, in.BusRatingAmps))
	}
	return res, nil
}

func round1(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(1).Float64()
	return f
}
