package features

import (
	"math"
	"time"
)

// FAO-56 constants.
const (
	albedo            = 0.23     // reference grass surface
	solarConstant     = 0.0820   // MJ/m2/min
	stefanBoltzmann   = 4.903e-9 // MJ/K4/m2/day
	psychrometricSea  = 0.0665   // kPa/degC at sea level pressure
	soilHeatFluxDaily = 0.0      // G is negligible for daily steps
)

// saturationVapourPressure returns e degrees(T) in kPa (FAO-56 eq. 11).
func saturationVapourPressure(tempC float64) float64 {
	return 0.6108 * math.Exp(17.27*tempC/(tempC+237.3))
}

// vapourPressureSlope returns the slope of the saturation vapour pressure
// curve at tempC in kPa/degC (FAO-56 eq. 13).
func vapourPressureSlope(tempC float64) float64 {
	es := saturationVapourPressure(tempC)
	d := tempC + 237.3
	return 4098 * es / (d * d)
}

// extraterrestrialRadiation returns Ra in MJ/m2/day for a latitude (degrees)
// and day of year (FAO-56 eq. 21).
func extraterrestrialRadiation(latDeg float64, dayOfYear int) float64 {
	phi := latDeg * math.Pi / 180
	j := float64(dayOfYear)

	dr := 1 + 0.033*math.Cos(2*math.Pi*j/365)
	delta := 0.409 * math.Sin(2*math.Pi*j/365-1.39)

	x := -math.Tan(phi) * math.Tan(delta)
	// Polar day/night clamp.
	if x < -1 {
		x = -1
	} else if x > 1 {
		x = 1
	}
	omega := math.Acos(x)

	return 24 * 60 / math.Pi * solarConstant * dr *
		(omega*math.Sin(phi)*math.Sin(delta) + math.Cos(phi)*math.Cos(delta)*math.Sin(omega))
}

// ReferenceET0 computes daily reference evapotranspiration (mm/day) with the
// FAO-56 Penman-Monteith equation at sea-level pressure.
//
// tMax/tMin in degC, humidity as mean relative humidity percent, wind as
// speed at 2 m in m/s, solar as measured shortwave radiation in MJ/m2/day.
func ReferenceET0(tMaxC, tMinC, humidityPct, windMS, solarMJ, latDeg float64, date time.Time) float64 {
	tMean := (tMaxC + tMinC) / 2

	esMax := saturationVapourPressure(tMaxC)
	esMin := saturationVapourPressure(tMinC)
	es := (esMax + esMin) / 2
	ea := humidityPct / 100 * es

	slope := vapourPressureSlope(tMean)
	gamma := psychrometricSea

	// Net shortwave radiation.
	rns := (1 - albedo) * solarMJ

	// Net longwave radiation needs clear-sky radiation from Ra.
	ra := extraterrestrialRadiation(latDeg, date.YearDay())
	rso := 0.75 * ra
	relShortwave := 1.0
	if rso > 0 {
		relShortwave = solarMJ / rso
		if relShortwave > 1 {
			relShortwave = 1
		}
	}
	tMaxK := tMaxC + 273.16
	tMinK := tMinC + 273.16
	rnl := stefanBoltzmann *
		(math.Pow(tMaxK, 4)+math.Pow(tMinK, 4)) / 2 *
		(0.34 - 0.14*math.Sqrt(math.Max(ea, 0))) *
		(1.35*relShortwave - 0.35)

	rn := rns - rnl

	num := 0.408*slope*(rn-soilHeatFluxDaily) +
		gamma*900/(tMean+273)*windMS*(es-ea)
	den := slope + gamma*(1+0.34*windMS)

	et0 := num / den
	if et0 < 0 {
		return 0
	}
	return et0
}
