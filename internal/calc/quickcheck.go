package calc

// ExistingLoadMethod records how the existing usage figure was obtained.
// The arithmetic is the same for every method; only the annotation differs.
type ExistingLoadMethod string

const (
	MethodUtilityBilling  ExistingLoadMethod = "utility_billing"
	MethodLoadStudy       ExistingLoadMethod = "load_study"
	MethodCalculatedPanel ExistingLoadMethod = "calculated_panel"
	MethodManual          ExistingLoadMethod = "manual"
)

type methodInfo struct {
	label   string
	note    string
	codeRef string
}

var existingLoadMethods = map[ExistingLoadMethod]methodInfo{
	MethodUtilityBilling: {
		label:   "Utility billing peak demand",
		note:    "Maximum demand from 12 months of utility billing data; acceptable basis for existing load.",
		codeRef: "NEC 220.87(1)",
	},
	MethodLoadStudy: {
		label:   "Load study peak",
		note:    "Highest average demand from a 30-day recorded load study; acceptable basis for existing load.",
		codeRef: "NEC 220.87(2)",
	},
	MethodCalculatedPanel: {
		label: "Calculated from panel schedule",
		note:  "Existing load calculated from the panel schedule rather than measured; verify before relying on it for compliance.",
	},
	MethodManual: {
		label: "Manual entry",
		note:  "Existing load entered manually and not verified; use for preliminary checks only.",
	},
}

// QuickCheckStatus is the verdict of a quick service check.
type QuickCheckStatus string

const (
	QuickCheckOK       QuickCheckStatus = "OK"
	QuickCheckHigh     QuickCheckStatus = "HIGH"
	QuickCheckCritical QuickCheckStatus = "CRITICAL"
)

// Recommendation strings for each verdict.
const (
	RecommendationOK       = "Service has adequate capacity for the proposed load."
	RecommendationHigh     = "Service will exceed 80% utilization. Perform a full load calculation and consider load management or a service upgrade."
	RecommendationCritical = "Proposed load exceeds service capacity. A service upgrade or load management system is required."
)

// QuickCheckInput is an amp-based field check for adding load.
type QuickCheckInput struct {
	ServiceAmps  float64            `json:"service_amps" validate:"finite,gt=0"`
	UsageAmps    float64            `json:"usage_amps" validate:"finite,gte=0"`
	ProposedAmps float64            `json:"proposed_amps" validate:"finite,gte=0"`
	Method       ExistingLoadMethod `json:"method,omitempty" validate:"omitempty,oneof=utility_billing load_study calculated_panel manual"`
}

// QuickCheckResult is the outcome of QuickServiceCheck.
type QuickCheckResult struct {
	ServiceAmps            float64            `json:"service_amps"`
	UsageAmps              float64            `json:"usage_amps"`
	ProposedAmps           float64            `json:"proposed_amps"`
	TotalAmps              float64            `json:"total_amps"`
	UtilizationPercent     float64            `json:"utilization_percent"`
	Status                 QuickCheckStatus   `json:"status"`
	Recommendation         string             `json:"recommendation"`
	AvailableAmps          float64            `json:"available_amps"`
	RemainingAmps          float64            `json:"remaining_amps"`
	RecommendedServiceSize int                `json:"recommended_service_size,omitempty"`
	Method                 ExistingLoadMethod `json:"method"`
	MethodLabel            string             `json:"method_label"`
	MethodNote             string             `json:"method_note"`
	CodeReference          string             `json:"code_reference,omitempty"`
	Warnings               []string           `json:"warnings"`
}

// QuickServiceCheck adds proposed amps to existing usage and grades the
// resulting utilization of the service.
func (e *Engine) QuickServiceCheck(in QuickCheckInput) (*QuickCheckResult, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}
	method := in.Method
	if method == "" {
		method = MethodManual
	}
	info := existingLoadMethods[method]

	total := in.UsageAmps + in.ProposedAmps
	// Verdicts use the exact ratio; only the reported percentage is rounded.
	ratio := total / in.ServiceAmps * 100

	res := &QuickCheckResult{
		ServiceAmps:        in.ServiceAmps,
		UsageAmps:          in.UsageAmps,
		ProposedAmps:       in.ProposedAmps,
		TotalAmps:          total,
		UtilizationPercent: round1(ratio),
		AvailableAmps:      in.ServiceAmps - in.UsageAmps,
		RemainingAmps:      in.ServiceAmps - total,
		Method:             method,
		MethodLabel:        info.label,
		MethodNote:         info.note,
		CodeReference:      info.codeRef,
		Warnings:           []string{},
	}

	switch {
	case ratio < 80:
		res.Status, res.Recommendation = QuickCheckOK, RecommendationOK
	case ratio <= 100:
		res.Status, res.Recommendation = QuickCheckHigh, RecommendationHigh
	default:
		res.Status, res.Recommendation = QuickCheckCritical, RecommendationCritical
		size, warning := RecommendServiceSize(total, e.store.ServiceCatalog, e.store.ContinuousDutyMargin)
		res.RecommendedServiceSize = size
		if warning != "" {
			res.Warnings = append(res.Warnings, warning)
		}
	}
	return res, nil
}
