// Package tables holds the regulatory lookup tables consulted by the load
// calculation engine. Tables are loaded once from an embedded YAML edition
// (or an operator-supplied file) and are read-only afterwards.
package tables

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"math"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed nec2023.yaml
var defaultEdition []byte

// Material identifies a conductor material column.
type Material string

const (
	Copper   Material = "copper"
	Aluminum Material = "aluminum"
)

// Valid reports whether m names a supported conductor material.
func (m Material) Valid() bool {
	return m == Copper || m == Aluminum
}

// Abbrev returns the short label used in size strings ("Cu"/"Al").
func (m Material) Abbrev() string {
	if m == Aluminum {
		return "Al"
	}
	return "Cu"
}

// DemandTier is one band of a demand schedule. UpperVA is the cumulative
// upper bound of the band; the last tier of a schedule is unbounded (+Inf).
type DemandTier struct {
	UpperVA float64 `yaml:"upper_va" json:"upper_va"`
	Factor  float64 `yaml:"factor" json:"factor"`
}

// DemandSchedule is an ordered sequence of demand tiers.
type DemandSchedule []DemandTier

// Step is a row of a count-keyed step function: Factor applies from Min upwards
// until the next row's Min.
type Step struct {
	Min    int     `yaml:"min" json:"min"`
	Factor float64 `yaml:"factor" json:"factor"`
}

// StepTable is an ascending list of steps.
type StepTable []Step

// Factor returns the factor for count n. Counts below the first row get 1.0.
func (t StepTable) Factor(n int) float64 {
	factor := 1.0
	for _, s := range t {
		if n < s.Min {
			break
		}
		factor = s.Factor
	}
	return factor
}

// ServiceCatalog lists standard service ampere ratings, strictly increasing.
type ServiceCatalog []int

// ConductorRow maps an ampacity ceiling to the conductor size per material.
// An empty size means the material has no entry in that row.
type ConductorRow struct {
	AmpacityCeiling float64 `yaml:"amps" json:"amps"`
	CopperSize      string  `yaml:"cu" json:"cu,omitempty"`
	AluminumSize    string  `yaml:"al" json:"al,omitempty"`
}

// Size returns the column for m.
func (r ConductorRow) Size(m Material) string {
	if m == Aluminum {
		return r.AluminumSize
	}
	return r.CopperSize
}

// ConductorTable is ordered by ascending ampacity ceiling.
type ConductorTable []ConductorRow

// GecRow is a Table 250.66 bucket keyed by the largest service-entrance
// conductor, expressed in circular mils for each conductor material.
type GecRow struct {
	MaxCopperCmil   float64 `yaml:"max_cu_cmil"`
	MaxAluminumCmil float64 `yaml:"max_al_cmil"`
	CopperGEC       string  `yaml:"cu"`
	AluminumGEC     string  `yaml:"al"`
}

// GecTable is ordered by ascending bucket.
type GecTable []GecRow

// FeederConductor is a Table 310.16 row. Ampacity slices are indexed by
// temperature column: 0 = 60 C, 1 = 75 C, 2 = 90 C.
type FeederConductor struct {
	Size     string     `yaml:"size"`
	Cmil     float64    `yaml:"cmil"`
	Copper   [3]float64 `yaml:"cu"`
	Aluminum [3]float64 `yaml:"al"`
}

// AmbientBand is a row of the ambient temperature correction table.
type AmbientBand struct {
	MaxC float64 `yaml:"max_c"`
	F60  float64 `yaml:"f60"`
	F75  float64 `yaml:"f75"`
	F90  float64 `yaml:"f90"`
}

// EGCRow is a Table 250.122 row.
type EGCRow struct {
	MaxOCPD      int    `yaml:"max_ocpd"`
	CopperSize   string `yaml:"cu"`
	AluminumSize string `yaml:"al"`
}

// MotorFLCRow is a Table 430.248 row.
type MotorFLCRow struct {
	HP   float64 `yaml:"hp"`
	V115 float64 `yaml:"v115"`
	V230 float64 `yaml:"v230"`
}

// ConduitRow is the usable (40% fill) cross-section of a raceway trade size.
type ConduitRow struct {
	TradeSize string  `yaml:"trade_size"`
	FillIn2   float64 `yaml:"fill_in2"`
}

// Occupancy is a Table 220.12 occupancy type.
type Occupancy struct {
	Label            string  `yaml:"label" json:"label"`
	UnitLoadVAPerFt2 float64 `yaml:"unit_load_va_per_sqft" json:"unit_load_va_per_sqft"`
	LightingSchedule string  `yaml:"lighting_schedule" json:"lighting_schedule"`
	Kitchen          bool    `yaml:"kitchen" json:"kitchen"`
}

// DwellingTables holds the per-dwelling constants.
type DwellingTables struct {
	UnitLoadVAPerFt2          float64 `yaml:"unit_load_va_per_sqft"`
	SmallApplianceCircuitVA   float64 `yaml:"small_appliance_circuit_va"`
	MinSmallApplianceCircuits int     `yaml:"min_small_appliance_circuits"`
	LaundryCircuitVA          float64 `yaml:"laundry_circuit_va"`
	LightingSchedule          string  `yaml:"lighting_schedule"`
}

// RangeRule is the household cooking demand rule.
type RangeRule struct {
	ThresholdVA float64 `yaml:"threshold_va"`
	FloorVA     float64 `yaml:"floor_va"`
}

// DryerRule is the household clothes dryer demand rule.
type DryerRule struct {
	MinimumVA    float64   `yaml:"minimum_va"`
	CountFactors StepTable `yaml:"count_factors"`
}

// MultiFamilyTables is the unit-count curve of the optional multifamily method.
type MultiFamilyTables struct {
	MinUnits int       `yaml:"min_units"`
	Factors  StepTable `yaml:"factors"`
}

// CommercialTables holds the non-dwelling constants.
type CommercialTables struct {
	ReceptacleVA       float64   `yaml:"receptacle_va"`
	ReceptacleSchedule string    `yaml:"receptacle_schedule"`
	ShowWindowVAPerFt  float64   `yaml:"show_window_va_per_ft"`
	SignOutletVA       float64   `yaml:"sign_outlet_va"`
	KitchenFactors     StepTable `yaml:"kitchen_factors"`
}

// NeutralRule is the feeder/service neutral reduction rule.
type NeutralRule struct {
	ThresholdAmps float64 `yaml:"threshold_amps"`
	ExcessFactor  float64 `yaml:"excess_factor"`
}

// Store is a complete, validated table edition.
type Store struct {
	Edition              string                    `yaml:"edition"`
	Dwelling             DwellingTables            `yaml:"dwelling"`
	Range                RangeRule                 `yaml:"range"`
	Dryer                DryerRule                 `yaml:"dryer"`
	MultiFamily          MultiFamilyTables         `yaml:"multi_family"`
	Schedules            map[string]DemandSchedule `yaml:"schedules"`
	Occupancies          map[string]Occupancy      `yaml:"occupancies"`
	Commercial           CommercialTables          `yaml:"commercial"`
	Neutral              NeutralRule               `yaml:"neutral"`
	ContinuousDutyMargin float64                   `yaml:"continuous_duty_margin"`
	ServiceCatalog       ServiceCatalog            `yaml:"service_catalog"`
	ServiceConductors    ConductorTable            `yaml:"service_conductors"`
	Feeders              []FeederConductor         `yaml:"feeder_conductors"`
	Ambient              []AmbientBand             `yaml:"ambient_correction"`
	Adjustment           StepTable                 `yaml:"conductor_adjustment"`
	OCPDRatings          []int                     `yaml:"ocpd_ratings"`
	EGC                  []EGCRow                  `yaml:"egc"`
	GEC                  GecTable                  `yaml:"gec"`
	Motors               []MotorFLCRow             `yaml:"motor_flc"`
	Conduit              []ConduitRow              `yaml:"conduit"`
	ConductorAreas       map[string]float64        `yaml:"conductor_areas"`
	VoltageDropK         map[Material]float64      `yaml:"voltage_drop_k"`
}

var (
	defaultOnce  sync.Once
	defaultStore *Store
	defaultErr   error
)

// Default returns the embedded edition. It panics if the embedded data is
// invalid, which the package tests guard against.
func Default() *Store {
	defaultOnce.Do(func() {
		defaultStore, defaultErr = Load(bytes.NewReader(defaultEdition))
	})
	if defaultErr != nil {
		panic(fmt.Sprintf("tables: embedded edition is invalid: %v", defaultErr))
	}
	return defaultStore
}

// Load parses and validates a table edition.
func Load(r io.Reader) (*Store, error) {
	var s Store
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to decode table edition: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("invalid table edition %q: %w", s.Edition, err)
	}
	return &s, nil
}

// LoadFile reads an edition from path. An empty path selects the embedded
// edition.
func LoadFile(path string) (*Store, error) {
	if path == "" {
		return Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open table edition: %w", err)
	}
	defer f.Close()
	return Load(f)
}

func (s *Store) validate() error {
	for name, sched := range s.Schedules {
		if err := sched.Validate(); err != nil {
			return fmt.Errorf("schedule %s: %w", name, err)
		}
	}
	if _, ok := s.Schedules[s.Dwelling.LightingSchedule]; !ok {
		return fmt.Errorf("dwelling lighting schedule %q not defined", s.Dwelling.LightingSchedule)
	}
	if _, ok := s.Schedules[s.Commercial.ReceptacleSchedule]; !ok {
		return fmt.Errorf("receptacle schedule %q not defined", s.Commercial.ReceptacleSchedule)
	}
	for key, occ := range s.Occupancies {
		if _, ok := s.Schedules[occ.LightingSchedule]; !ok {
			return fmt.Errorf("occupancy %s references unknown schedule %q", key, occ.LightingSchedule)
		}
		if occ.UnitLoadVAPerFt2 <= 0 {
			return fmt.Errorf("occupancy %s has no unit load", key)
		}
	}
	steps := map[string]StepTable{
		"dryer count factors":  s.Dryer.CountFactors,
		"multi-family factors": s.MultiFamily.Factors,
		"kitchen factors":      s.Commercial.KitchenFactors,
		"conductor adjustment": s.Adjustment,
	}
	for name, t := range steps {
		if err := t.validate(); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	if len(s.ServiceCatalog) == 0 {
		return fmt.Errorf("service catalog is empty")
	}
	for i := 1; i < len(s.ServiceCatalog); i++ {
		if s.ServiceCatalog[i] <= s.ServiceCatalog[i-1] {
			return fmt.Errorf("service catalog must be strictly increasing at %d", s.ServiceCatalog[i])
		}
	}
	if err := s.ServiceConductors.validate(); err != nil {
		return fmt.Errorf("service conductors: %w", err)
	}
	for i := 1; i < len(s.OCPDRatings); i++ {
		if s.OCPDRatings[i] <= s.OCPDRatings[i-1] {
			return fmt.Errorf("ocpd ratings must be strictly increasing at %d", s.OCPDRatings[i])
		}
	}
	if len(s.GEC) == 0 || !math.IsInf(s.GEC[len(s.GEC)-1].MaxCopperCmil, 1) {
		return fmt.Errorf("gec table must end with an unbounded bucket")
	}
	if s.ContinuousDutyMargin <= 0 || s.ContinuousDutyMargin > 1 {
		return fmt.Errorf("continuous duty margin must be in (0,1]")
	}
	for _, m := range []Material{Copper, Aluminum} {
		if s.VoltageDropK[m] <= 0 {
			return fmt.Errorf("voltage drop K missing for %s", m)
		}
	}
	return nil
}

// Validate checks the schedule invariants: at least one tier, strictly
// increasing bounds, an unbounded last tier and factors within [0,1].
func (d DemandSchedule) Validate() error {
	if len(d) == 0 {
		return fmt.Errorf("schedule has no tiers")
	}
	prev := 0.0
	for i, t := range d {
		if t.Factor < 0 || t.Factor > 1 || math.IsNaN(t.Factor) {
			return fmt.Errorf("tier %d factor %v outside [0,1]", i, t.Factor)
		}
		if !(t.UpperVA > prev) {
			return fmt.Errorf("tier %d bound %v is not above %v", i, t.UpperVA, prev)
		}
		prev = t.UpperVA
	}
	if !math.IsInf(prev, 1) {
		return fmt.Errorf("last tier must be unbounded")
	}
	return nil
}

func (t StepTable) validate() error {
	if len(t) == 0 {
		return fmt.Errorf("no steps")
	}
	for i, s := range t {
		if s.Factor < 0 || s.Factor > 1 {
			return fmt.Errorf("step %d factor %v outside [0,1]", i, s.Factor)
		}
		if i > 0 && s.Min <= t[i-1].Min {
			return fmt.Errorf("step %d min %d is not ascending", i, s.Min)
		}
	}
	return nil
}

func (t ConductorTable) validate() error {
	if len(t) == 0 {
		return fmt.Errorf("no rows")
	}
	for i := 1; i < len(t); i++ {
		if t[i].AmpacityCeiling <= t[i-1].AmpacityCeiling {
			return fmt.Errorf("ampacity ceilings must be strictly increasing at %v", t[i].AmpacityCeiling)
		}
	}
	return nil
}
