package calc

import (
	"fmt"

	"github.com/stwalsh4118/loadcalc/api/internal/tables"
)

// RecommendServiceSize returns the smallest catalog rating whose continuous
// duty capacity (rating x margin) covers amps. When none does, the largest
// rating is returned together with a warning.
func RecommendServiceSize(amps float64, catalog tables.ServiceCatalog, margin float64) (int, string) {
	for _, size := range catalog {
		if float64(size)*margin >= amps {
			return size, ""
		}
	}
	if len(catalog) == 0 {
		return 0, "No service catalog is configured"
	}
	largest := catalog[len(catalog)-1]
	return largest, fmt.Sprintf(
		"Calculated load of %.1f A exceeds the largest standard service (%d A at %.0f%% continuous duty); custom or paralleled service equipment is required",
		amps, largest, margin*100)
}
