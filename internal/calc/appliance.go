package calc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Kind discriminates appliance variants on the wire.
type Kind string

const (
	KindRange       Kind = "range"
	KindDryer       Kind = "dryer"
	KindWaterHeater Kind = "water_heater"
	KindHVAC        Kind = "hvac"
	KindDishwasher  Kind = "dishwasher"
	KindDisposal    Kind = "disposal"
	KindMicrowave   Kind = "microwave"
	KindEVCharger   Kind = "ev_charger"
	KindPoolPump    Kind = "pool_pump"
	KindPoolHeater  Kind = "pool_heater"
	KindHotTub      Kind = "hot_tub"
	KindSauna       Kind = "sauna"
	KindWellPump    Kind = "well_pump"
	KindCustom      Kind = "custom"
)

// Fuel is the energy source of a fuel-fired appliance.
type Fuel string

const (
	FuelElectric Fuel = "electric"
	FuelGas      Fuel = "gas"
)

// electric reports whether f draws on the electrical service. An unset fuel
// is treated as electric.
func (f Fuel) electric() bool {
	return f == "" || f == FuelElectric
}

// HeatType is the heating source paired with an HVAC system.
type HeatType string

const (
	HeatNone       HeatType = "none"
	HeatResistance HeatType = "electric_resistance"
	HeatPump       HeatType = "heat_pump"
	HeatGas        HeatType = "gas"
)

func (h HeatType) electric() bool {
	return h == HeatResistance || h == HeatPump
}

// Appliance is implemented only by the variant types in this file.
type Appliance interface {
	Kind() Kind
	IsEnabled() bool
	appliance()
}

// Range is a household cooking appliance.
type Range struct {
	Enabled bool    `json:"enabled"`
	KW      float64 `json:"kw" validate:"finite,gte=0"`
	Fuel    Fuel    `json:"fuel,omitempty" validate:"omitempty,oneof=electric gas"`
}

// Dryer is a household clothes dryer.
type Dryer struct {
	Enabled bool    `json:"enabled"`
	KW      float64 `json:"kw" validate:"finite,gte=0"`
	Fuel    Fuel    `json:"fuel,omitempty" validate:"omitempty,oneof=electric gas"`
}

// WaterHeater is a storage or tankless water heater.
type WaterHeater struct {
	Enabled bool    `json:"enabled"`
	KW      float64 `json:"kw" validate:"finite,gte=0"`
	Fuel    Fuel    `json:"fuel,omitempty" validate:"omitempty,oneof=electric gas"`
}

// HVAC is a heating and cooling system. Heating only counts when the heat
// source is electric.
type HVAC struct {
	Enabled   bool     `json:"enabled"`
	CoolingKW float64  `json:"cooling_kw" validate:"finite,gte=0"`
	HeatingKW float64  `json:"heating_kw" validate:"finite,gte=0"`
	HeatType  HeatType `json:"heat_type,omitempty" validate:"omitempty,oneof=none electric_resistance heat_pump gas"`
}

type Dishwasher struct {
	Enabled bool    `json:"enabled"`
	KW      float64 `json:"kw" validate:"finite,gte=0"`
}

// Disposal is rated in horsepower; the default supply is 120 V.
type Disposal struct {
	Enabled bool    `json:"enabled"`
	HP      float64 `json:"hp" validate:"finite,gte=0,required_if=Enabled true"`
	Volts   int     `json:"volts,omitempty" validate:"omitempty,oneof=120 240"`
}

type Microwave struct {
	Enabled bool    `json:"enabled"`
	KW      float64 `json:"kw" validate:"finite,gte=0"`
}

// EVCharger is electric vehicle supply equipment.
type EVCharger struct {
	Enabled    bool    `json:"enabled"`
	KW         float64 `json:"kw" validate:"finite,gte=0"`
	Continuous bool    `json:"continuous"`
}

// PoolPump is rated in horsepower; the default supply is 240 V.
type PoolPump struct {
	Enabled bool    `json:"enabled"`
	HP      float64 `json:"hp" validate:"finite,gte=0,required_if=Enabled true"`
	Volts   int     `json:"volts,omitempty" validate:"omitempty,oneof=120 240"`
}

type PoolHeater struct {
	Enabled bool    `json:"enabled"`
	KW      float64 `json:"kw" validate:"finite,gte=0"`
	Fuel    Fuel    `json:"fuel,omitempty" validate:"omitempty,oneof=electric gas"`
}

type HotTub struct {
	Enabled bool    `json:"enabled"`
	KW      float64 `json:"kw" validate:"finite,gte=0"`
}

type Sauna struct {
	Enabled bool    `json:"enabled"`
	KW      float64 `json:"kw" validate:"finite,gte=0"`
}

// WellPump is rated in horsepower; the default supply is 240 V.
type WellPump struct {
	Enabled bool    `json:"enabled"`
	HP      float64 `json:"hp" validate:"finite,gte=0,required_if=Enabled true"`
	Volts   int     `json:"volts,omitempty" validate:"omitempty,oneof=120 240"`
}

// CustomLoad is any other fixed load, named by the caller.
type CustomLoad struct {
	Enabled    bool    `json:"enabled"`
	Name       string  `json:"name" validate:"required_if=Enabled true,max=120"`
	KW         float64 `json:"kw" validate:"finite,gte=0"`
	Continuous bool    `json:"continuous"`
}

func (Range) Kind() Kind       { return KindRange }
func (Dryer) Kind() Kind       { return KindDryer }
func (WaterHeater) Kind() Kind { return KindWaterHeater }
func (HVAC) Kind() Kind        { return KindHVAC }
func (Dishwasher) Kind() Kind  { return KindDishwasher }
func (Disposal) Kind() Kind    { return KindDisposal }
func (Microwave) Kind() Kind   { return KindMicrowave }
func (EVCharger) Kind() Kind   { return KindEVCharger }
func (PoolPump) Kind() Kind    { return KindPoolPump }
func (PoolHeater) Kind() Kind  { return KindPoolHeater }
func (HotTub) Kind() Kind      { return KindHotTub }
func (Sauna) Kind() Kind       { return KindSauna }
func (WellPump) Kind() Kind    { return KindWellPump }
func (CustomLoad) Kind() Kind  { return KindCustom }

func (a Range) IsEnabled() bool       { return a.Enabled }
func (a Dryer) IsEnabled() bool       { return a.Enabled }
func (a WaterHeater) IsEnabled() bool { return a.Enabled }
func (a HVAC) IsEnabled() bool        { return a.Enabled }
func (a Dishwasher) IsEnabled() bool  { return a.Enabled }
func (a Disposal) IsEnabled() bool    { return a.Enabled }
func (a Microwave) IsEnabled() bool   { return a.Enabled }
func (a EVCharger) IsEnabled() bool   { return a.Enabled }
func (a PoolPump) IsEnabled() bool    { return a.Enabled }
func (a PoolHeater) IsEnabled() bool  { return a.Enabled }
func (a HotTub) IsEnabled() bool      { return a.Enabled }
func (a Sauna) IsEnabled() bool       { return a.Enabled }
func (a WellPump) IsEnabled() bool    { return a.Enabled }
func (a CustomLoad) IsEnabled() bool  { return a.Enabled }

func (Range) appliance()       {}
func (Dryer) appliance()       {}
func (WaterHeater) appliance() {}
func (HVAC) appliance()        {}
func (Dishwasher) appliance()  {}
func (Disposal) appliance()    {}
func (Microwave) appliance()   {}
func (EVCharger) appliance()   {}
func (PoolPump) appliance()    {}
func (PoolHeater) appliance()  {}
func (HotTub) appliance()      {}
func (Sauna) appliance()       {}
func (WellPump) appliance()    {}
func (CustomLoad) appliance()  {}

// Appliances is a list of appliance variants. On the wire each element is an
// object carrying a "kind" discriminator alongside the variant's fields.
type Appliances []Appliance

// MarshalJSON writes each appliance with its kind.
func (l Appliances) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	out := make([]json.RawMessage, 0, len(l))
	for i, a := range l {
		if a == nil {
			return nil, fmt.Errorf("appliance %d is nil", i)
		}
		body, err := json.Marshal(a)
		if err != nil {
			return nil, fmt.Errorf("failed to encode appliance %d: %w", i, err)
		}
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(body, &fields); err != nil {
			return nil, fmt.Errorf("failed to encode appliance %d: %w", i, err)
		}
		fields["kind"] = json.RawMessage(strconv.Quote(string(a.Kind())))
		encoded, err := json.Marshal(fields)
		if err != nil {
			return nil, fmt.Errorf("failed to encode appliance %d: %w", i, err)
		}
		out = append(out, encoded)
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a list of kind-tagged objects. A missing or unknown
// kind is reported as a *ValidationError for that element.
func (l *Appliances) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*l = nil
		return nil
	}
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return fmt.Errorf("appliances must be a list: %w", err)
	}
	list := make(Appliances, 0, len(raws))
	for i, raw := range raws {
		var head struct {
			Kind Kind `json:"kind"`
		}
		if err := json.Unmarshal(raw, &head); err != nil {
			return fmt.Errorf("appliance %d: %w", i, err)
		}
		a, err := decodeAppliance(head.Kind, raw)
		if err != nil {
			return err
		}
		if a == nil {
			return invalidField(fmt.Sprintf("appliances[%d].kind", i), "unknown appliance kind %q", head.Kind)
		}
		list = append(list, a)
	}
	*l = list
	return nil
}

// decodeAppliance returns nil, nil for an unknown kind.
func decodeAppliance(kind Kind, raw []byte) (Appliance, error) {
	switch kind {
	case KindRange:
		return decodeAs[Range](raw)
	case KindDryer:
		return decodeAs[Dryer](raw)
	case KindWaterHeater:
		return decodeAs[WaterHeater](raw)
	case KindHVAC:
		return decodeAs[HVAC](raw)
	case KindDishwasher:
		return decodeAs[Dishwasher](raw)
	case KindDisposal:
		return decodeAs[Disposal](raw)
	case KindMicrowave:
		return decodeAs[Microwave](raw)
	case KindEVCharger:
		return decodeAs[EVCharger](raw)
	case KindPoolPump:
		return decodeAs[PoolPump](raw)
	case KindPoolHeater:
		return decodeAs[PoolHeater](raw)
	case KindHotTub:
		return decodeAs[HotTub](raw)
	case KindSauna:
		return decodeAs[Sauna](raw)
	case KindWellPump:
		return decodeAs[WellPump](raw)
	case KindCustom:
		return decodeAs[CustomLoad](raw)
	}
	return nil, nil
}

func decodeAs[T Appliance](raw []byte) (Appliance, error) {
	var a T
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", a.Kind(), err)
	}
	return a, nil
}
