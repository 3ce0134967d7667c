// Package models holds the records persisted by the repository layer.
package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// CalculationKind names the engine operation that produced a record.
type CalculationKind string

// Calculation kinds, one per engine operation.
const (
	KindDwelling     CalculationKind = "dwelling"
	KindMultiFamily  CalculationKind = "multi_family"
	KindCommercial   CalculationKind = "commercial"
	KindFeeder       CalculationKind = "feeder"
	KindServiceCheck CalculationKind = "service_check"
	KindPanel        CalculationKind = "panel_utilization"
)

// Valid reports whether k is a known kind.
func (k CalculationKind) Valid() bool {
	switch k {
	case KindDwelling, KindMultiFamily, KindCommercial, KindFeeder, KindServiceCheck, KindPanel:
		return true
	}
	return false
}

// Calculation is one stored run of the engine. Input and Result keep the
// exact JSON exchanged with the caller; the summary columns exist so history
// listings need not decode them.
type Calculation struct {
	ID        uuid.UUID       `json:"id"`
	ProjectID string          `json:"project_id,omitempty"`
	Kind      CalculationKind `json:"kind"`
	Input     json.RawMessage `json:"input"`
	Result    json.RawMessage `json:"result"`

	// Amps is the headline current: service amps, feeder load amps,
	// quick-check total amps or panel load amps.
	Amps float64 `json:"amps"`
	// Rating is the recommended service size or OCPD rating, 0 when none.
	Rating       int       `json:"rating,omitempty"`
	Status       string    `json:"status,omitempty"`
	WarningCount int       `json:"warning_count"`
	CreatedAt    time.Time `json:"created_at"`
}
