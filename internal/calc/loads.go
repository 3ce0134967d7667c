package calc

import (
	"fmt"
	"math"
)

const (
	refFixedAppliance = "NEC 220.53"
	refMotorFLC       = "NEC Table 430.248"
	refPoolSpa        = "NEC 680"
)

// applianceLoad is the nameplate contribution of one appliance.
type applianceLoad struct {
	category    Category
	description string
	va          float64
	continuous  bool
	codeRef     string
}

// nameplate resolves an enabled, electrically supplied appliance to its
// nameplate VA. HVAC reports the larger of cooling and electric heating.
// ok is false when the appliance draws nothing from the service.
func (e *Engine) nameplate(a Appliance) (applianceLoad, bool) {
	if a == nil || !a.IsEnabled() {
		return applianceLoad{}, false
	}
	switch v := a.(type) {
	case Range:
		return e.fuelFired(CategoryRange, "Range", v.KW, v.Fuel, "NEC 220.55")
	case Dryer:
		return e.fuelFired(CategoryDryer, "Clothes dryer", v.KW, v.Fuel, "NEC 220.54")
	case WaterHeater:
		return e.fuelFired(CategoryWaterHeater, "Water heater", v.KW, v.Fuel, refFixedAppliance)
	case PoolHeater:
		return e.fuelFired(CategoryPoolHeater, "Pool heater", v.KW, v.Fuel, refPoolSpa)
	case HVAC:
		cooling, heating := hvacVA(v)
		va := math.Max(cooling, heating)
		if va == 0 {
			return applianceLoad{}, false
		}
		return applianceLoad{category: CategoryHVAC, description: "HVAC (larger of heating or cooling)", va: va, codeRef: "NEC 220.60"}, true
	case Dishwasher:
		return kwLoad(CategoryDishwasher, "Dishwasher", v.KW, refFixedAppliance)
	case Microwave:
		return kwLoad(CategoryMicrowave, "Microwave", v.KW, refFixedAppliance)
	case HotTub:
		return kwLoad(CategoryHotTub, "Hot tub", v.KW, refPoolSpa)
	case Sauna:
		return kwLoad(CategorySauna, "Sauna", v.KW, refFixedAppliance)
	case EVCharger:
		l, ok := kwLoad(CategoryEVCharger, "EV charger", v.KW, "NEC 220.57")
		l.continuous = v.Continuous
		return l, ok
	case CustomLoad:
		l, ok := kwLoad(CategoryCustom, v.Name, v.KW, refFixedAppliance)
		l.continuous = v.Continuous
		return l, ok
	case Disposal:
		return e.motorLoad(CategoryDisposal, "Disposal", v.HP, v.Volts, 120)
	case PoolPump:
		return e.motorLoad(CategoryPoolPump, "Pool pump", v.HP, v.Volts, 240)
	case WellPump:
		return e.motorLoad(CategoryWellPump, "Well pump", v.HP, v.Volts, 240)
	}
	return applianceLoad{}, false
}

func (e *Engine) fuelFired(c Category, desc string, kw float64, fuel Fuel, ref string) (applianceLoad, bool) {
	if !fuel.electric() {
		return applianceLoad{}, false
	}
	return kwLoad(c, desc, kw, ref)
}

func kwLoad(c Category, desc string, kw float64, ref string) (applianceLoad, bool) {
	if kw <= 0 {
		return applianceLoad{}, false
	}
	return applianceLoad{category: c, description: fmt.Sprintf("%s (%.1f kW)", desc, kw), va: kw * 1000, codeRef: ref}, true
}

func (e *Engine) motorLoad(c Category, desc string, hp float64, volts, defVolts int) (applianceLoad, bool) {
	if hp <= 0 {
		return applianceLoad{}, false
	}
	if volts == 0 {
		volts = defVolts
	}
	flc, ok := e.store.MotorFLC(hp, float64(volts))
	if !ok {
		return applianceLoad{}, false
	}
	return applianceLoad{
		category:    c,
		description: fmt.Sprintf("%s (%s HP, %.1f A at %d V)", desc, formatHP(hp), flc, volts),
		va:          flc * float64(volts),
		codeRef:     refMotorFLC,
	}, true
}

// hvacVA returns the cooling VA and the electric heating VA of a system.
func hvacVA(h HVAC) (cooling, heating float64) {
	cooling = h.CoolingKW * 1000
	if h.HeatType.electric() {
		heating = h.HeatingKW * 1000
	}
	return cooling, heating
}

func formatHP(hp float64) string {
	return fmt.Sprintf("%g", math.Round(hp*100)/100)
}

// checkMotors rejects enabled motor appliances whose horsepower is beyond
// the full-load current table.
func (e *Engine) checkMotors(apps Appliances, prefix string) error {
	fields := map[string]string{}
	for i, a := range apps {
		var hp float64
		switch v := a.(type) {
		case Disposal:
			hp = v.HP
		case PoolPump:
			hp = v.HP
		case WellPump:
			hp = v.HP
		default:
			continue
		}
		if !a.IsEnabled() || hp <= 0 {
			continue
		}
		if _, ok := e.store.MotorFLC(hp, DefaultVoltage); !ok {
			fields[fmt.Sprintf("%sappliances[%d].hp", prefix, i)] = fmt.Sprintf("hp %g exceeds the largest single-phase motor rating in the full-load current table", hp)
		}
	}
	for i, a := range apps {
		if a == nil {
			fields[fmt.Sprintf("%sappliances[%d]", prefix, i)] = "appliance is required"
		}
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
