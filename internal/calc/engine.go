// Package calc implements the load calculation and sizing engine: demand
// factor application, dwelling, multi-family and commercial aggregation,
// neutral reduction, service, feeder and panel sizing.
//
// Every exported operation is a pure function of its input and the
// read-only table store, so an Engine may be shared across goroutines.
package calc

import (
	"math"

	"github.com/stwalsh4118/loadcalc/api/internal/tables"
)

// Engine defaults applied when an input leaves a field at its zero value.
const (
	DefaultVoltage                 = 240.0
	DefaultCommercialVoltage       = 208.0
	DefaultVoltageDropLimitPercent = 3.0
	DefaultTemperatureRating       = tables.Rating75C
	DefaultAmbientTempC            = 30.0
	DefaultCurrentCarrying         = 3
	DefaultPanelSpaces             = 42
)

// Options configures engine-wide defaults.
type Options struct {
	DefaultVoltage          float64
	DefaultMaterial         tables.Material
	VoltageDropLimitPercent float64
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{
		DefaultVoltage:          DefaultVoltage,
		DefaultMaterial:         tables.Copper,
		VoltageDropLimitPercent: DefaultVoltageDropLimitPercent,
	}
}

// Engine runs load calculations against a table edition.
type Engine struct {
	store *tables.Store
	opts  Options
}

// NewEngine creates an Engine. A nil store selects the embedded edition and
// zero-valued options fall back to DefaultOptions.
func NewEngine(store *tables.Store, opts Options) *Engine {
	if store == nil {
		store = tables.Default()
	}
	def := DefaultOptions()
	if opts.DefaultVoltage <= 0 {
		opts.DefaultVoltage = def.DefaultVoltage
	}
	if !opts.DefaultMaterial.Valid() {
		opts.DefaultMaterial = def.DefaultMaterial
	}
	if opts.VoltageDropLimitPercent <= 0 {
		opts.VoltageDropLimitPercent = def.VoltageDropLimitPercent
	}
	return &Engine{store: store, opts: opts}
}

// Tables returns the table edition the engine consults.
func (e *Engine) Tables() *tables.Store {
	return e.store
}

// Options returns the effective engine options.
func (e *Engine) Options() Options {
	return e.opts
}

func (e *Engine) voltageOr(v float64) float64 {
	if v > 0 {
		return v
	}
	return e.opts.DefaultVoltage
}

func (e *Engine) materialOr(m tables.Material) tables.Material {
	if m.Valid() {
		return m
	}
	return e.opts.DefaultMaterial
}

func phasesOr(p, def int) int {
	if p == 1 || p == 3 {
		return p
	}
	return def
}

// LineCurrent converts VA to line current: VA/V for single-phase and
// VA/(V*sqrt(3)) for three-phase.
func LineCurrent(va, volts float64, phases int) float64 {
	if volts <= 0 {
		return 0
	}
	if phases == 3 {
		return va / (volts * math.Sqrt(3))
	}
	return va / volts
}

// PhaseVA converts a line current back to VA.
func PhaseVA(amps, volts float64, phases int) float64 {
	if phases == 3 {
		return amps * volts * math.Sqrt(3)
	}
	return amps * volts
}
