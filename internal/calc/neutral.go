package calc

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/stwalsh4118/loadcalc/api/internal/tables"
)

// lineToLineOnly lists categories served without a neutral. Anything not
// listed, including unknown categories, is assumed to load the neutral.
var lineToLineOnly = map[Category]bool{
	CategoryRange:       true,
	CategoryDryer:       true,
	CategoryWaterHeater: true,
	CategoryEVCharger:   true,
	CategoryPoolPump:    true,
	CategoryPoolHeater:  true,
	CategoryHotTub:      true,
	CategorySauna:       true,
	CategoryWellPump:    true,
}

// UsesNeutral reports whether a breakdown category contributes neutral load.
func UsesNeutral(c Category) bool {
	return !lineToLineOnly[c]
}

// NeutralResult is the neutral load after any reduction.
type NeutralResult struct {
	LoadVA           float64 `json:"load_va"`
	UnreducedAmps    float64 `json:"unreduced_amps"`
	Amps             float64 `json:"amps"`
	ReductionPercent float64 `json:"reduction_percent"`
	Note             string  `json:"note,omitempty"`
}

// CalculateNeutral sums the neutral-bearing demand in entries and applies
// the reduction rule to the portion above the threshold.
func CalculateNeutral(entries []BreakdownEntry, voltage float64, phases int, rule tables.NeutralRule) NeutralResult {
	var included []float64
	for _, e := range entries {
		if UsesNeutral(e.Category) {
			included = append(included, e.DemandVA)
		}
	}
	va := floats.Sum(included)
	amps := LineCurrent(va, voltage, phases)

	res := NeutralResult{LoadVA: va, UnreducedAmps: amps, Amps: amps}
	if amps <= rule.ThresholdAmps {
		return res
	}

	excess := amps - rule.ThresholdAmps
	res.Amps = rule.ThresholdAmps + excess*rule.ExcessFactor
	res.ReductionPercent = math.Round((1-rule.ExcessFactor)*1000) / 10
	res.Note = fmt.Sprintf(
		"Neutral load above %.0f A (%.1f A) taken at %.0f%% per NEC 220.61(B)",
		rule.ThresholdAmps, excess, rule.ExcessFactor*100)
	return res
}
