package tables

import (
	"sort"
)

// Temperature ratings supported by the feeder ampacity table.
const (
	Rating60C = 60
	Rating75C = 75
	Rating90C = 90
)

func ratingColumn(rating int) (int, bool) {
	switch rating {
	case Rating60C:
		return 0, true
	case Rating75C:
		return 1, true
	case Rating90C:
		return 2, true
	}
	return 0, false
}

// Schedule returns the named demand schedule.
func (s *Store) Schedule(name string) (DemandSchedule, bool) {
	d, ok := s.Schedules[name]
	return d, ok
}

// DwellingLightingSchedule returns the general lighting schedule for dwellings.
func (s *Store) DwellingLightingSchedule() DemandSchedule {
	return s.Schedules[s.Dwelling.LightingSchedule]
}

// ReceptacleSchedule returns the non-dwelling receptacle schedule.
func (s *Store) ReceptacleSchedule() DemandSchedule {
	return s.Schedules[s.Commercial.ReceptacleSchedule]
}

// Occupancy returns the occupancy keyed by name.
func (s *Store) Occupancy(key string) (Occupancy, bool) {
	o, ok := s.Occupancies[key]
	return o, ok
}

// OccupancyKeys lists the occupancy keys in sorted order.
func (s *Store) OccupancyKeys() []string {
	keys := make([]string, 0, len(s.Occupancies))
	for k := range s.Occupancies {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MultiFamilyFactor returns the building demand factor for a total unit count.
func (s *Store) MultiFamilyFactor(units int) float64 {
	return s.MultiFamily.Factors.Factor(units)
}

// DryerFactor returns the demand factor for n household dryers.
func (s *Store) DryerFactor(n int) float64 {
	return s.Dryer.CountFactors.Factor(n)
}

// KitchenFactor returns the demand factor for n pieces of commercial kitchen equipment.
func (s *Store) KitchenFactor(n int) float64 {
	return s.Commercial.KitchenFactors.Factor(n)
}

// AdjustmentFactor returns the ampacity adjustment for n current-carrying conductors.
func (s *Store) AdjustmentFactor(n int) float64 {
	return s.Adjustment.Factor(n)
}

// FeederConductors projects Table 310.16 onto a ConductorTable for one
// material and temperature column. Sizes not listed for the material are skipped.
func (s *Store) FeederConductors(m Material, rating int) (ConductorTable, bool) {
	col, ok := ratingColumn(rating)
	if !ok || !m.Valid() {
		return nil, false
	}
	out := make(ConductorTable, 0, len(s.Feeders))
	for _, f := range s.Feeders {
		amps := f.Copper[col]
		if m == Aluminum {
			amps = f.Aluminum[col]
		}
		if amps <= 0 {
			continue
		}
		row := ConductorRow{AmpacityCeiling: amps}
		if m == Aluminum {
			row.AluminumSize = f.Size
		} else {
			row.CopperSize = f.Size
		}
		out = append(out, row)
	}
	return out, true
}

// Cmil returns the cross-sectional area of a conductor size in circular mils.
func (s *Store) Cmil(size string) (float64, bool) {
	for _, f := range s.Feeders {
		if f.Size == size {
			return f.Cmil, true
		}
	}
	return 0, false
}

// GECSize returns the grounding electrode conductor for the largest service
// conductor of the given size and material, in the requested GEC material.
func (s *Store) GECSize(serviceSize string, serviceMaterial, gecMaterial Material) (string, bool) {
	cmil, ok := s.Cmil(serviceSize)
	if !ok {
		return "", false
	}
	for _, row := range s.GEC {
		limit := row.MaxCopperCmil
		if serviceMaterial == Aluminum {
			limit = row.MaxAluminumCmil
		}
		if cmil <= limit {
			if gecMaterial == Aluminum {
				return row.AluminumGEC, true
			}
			return row.CopperGEC, true
		}
	}
	return "", false
}

// EGCSize returns the equipment grounding conductor for an OCPD rating.
// ok is false when the rating exceeds the table.
func (s *Store) EGCSize(ocpd int, m Material) (string, bool) {
	for _, row := range s.EGC {
		if ocpd <= row.MaxOCPD {
			if m == Aluminum {
				return row.AluminumSize, true
			}
			return row.CopperSize, true
		}
	}
	return "", false
}

// NextOCPD returns the smallest standard overcurrent device rating not below amps.
func (s *Store) NextOCPD(amps float64) (int, bool) {
	for _, r := range s.OCPDRatings {
		if float64(r) >= amps {
			return r, true
		}
	}
	if len(s.OCPDRatings) == 0 {
		return 0, false
	}
	return s.OCPDRatings[len(s.OCPDRatings)-1], false
}

// AmbientCorrection returns the ampacity correction for an ambient temperature
// and conductor temperature rating. ok is false when the combination is not permitted.
func (s *Store) AmbientCorrection(tempC float64, rating int) (float64, bool) {
	col, ok := ratingColumn(rating)
	if !ok {
		return 0, false
	}
	for _, band := range s.Ambient {
		if tempC <= band.MaxC {
			f := [3]float64{band.F60, band.F75, band.F90}[col]
			return f, f > 0
		}
	}
	return 0, false
}

// MotorFLC returns the full-load current of a single-phase motor, rounding the
// horsepower up to the next listed rating. Motors at or below 120 V use the
// 115 V column.
func (s *Store) MotorFLC(hp, volts float64) (float64, bool) {
	const tolerance = 1e-3
	for _, row := range s.Motors {
		if hp <= row.HP+tolerance {
			if volts <= 120 {
				return row.V115, true
			}
			return row.V230, true
		}
	}
	return 0, false
}

// ConductorArea returns the insulated conductor area in square inches.
func (s *Store) ConductorArea(size string) (float64, bool) {
	a, ok := s.ConductorAreas[size]
	return a, ok
}

// ConduitFor returns the smallest trade size whose 40% fill covers areaIn2.
func (s *Store) ConduitFor(areaIn2 float64) (string, bool) {
	for _, c := range s.Conduit {
		if c.FillIn2 >= areaIn2 {
			return c.TradeSize, true
		}
	}
	return "", false
}

// VoltageDropConstant returns the K-factor for a conductor material.
func (s *Store) VoltageDropConstant(m Material) float64 {
	return s.VoltageDropK[m]
}

// Select returns the first row whose ampacity ceiling covers amps in the
// column for m. When amps exceed the table, the largest listed size is
// returned with overflow set.
func (t ConductorTable) Select(amps float64, m Material) (size string, ceiling float64, overflow bool) {
	for _, row := range t {
		s := row.Size(m)
		if s == "" {
			continue
		}
		if row.AmpacityCeiling >= amps {
			return s, row.AmpacityCeiling, false
		}
		size, ceiling = s, row.AmpacityCeiling
	}
	return size, ceiling, true
}
