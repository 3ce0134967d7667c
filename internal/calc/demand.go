package calc

import (
	"math"

	"github.com/stwalsh4118/loadcalc/api/internal/tables"
)

// ApplyTieredDemand distributes totalVA across the schedule's bands and
// applies each band's factor to its own slice of the load.
func ApplyTieredDemand(totalVA float64, schedule tables.DemandSchedule) float64 {
	if totalVA <= 0 {
		return 0
	}
	remaining := totalVA
	lower := 0.0
	demand := 0.0
	for _, tier := range schedule {
		if remaining <= 0 {
			break
		}
		portion := math.Min(remaining, tier.UpperVA-lower)
		demand += portion * tier.Factor
		remaining -= portion
		lower = tier.UpperVA
	}
	return demand
}
