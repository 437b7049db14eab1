package features

import (
	"fmt"
	"math"
	"time"

	"github.com/agroflow/irrigation-advisor/internal/agro"
	"github.com/agroflow/irrigation-advisor/internal/weather"
)

// Vector is the fixed, ordered feature contract between feature derivation
// and prediction. Every field is guaranteed present and within its declared
// range on return from Derive.
type Vector struct {
	ET0MMDay        float64 // reference evapotranspiration
	ETcMMDay        float64 // crop evapotranspiration
	DeficitMM       float64 // running soil water deficit
	SoilMoisturePct float64 // estimated or sensor-measured
	TempStress      float64 // [0,1], 0 = no stress
	HumidityStress  float64
	WindStress      float64
	PrecipProb01    float64 // precipitation probability scaled to [0,1]
	KcApplied       float64 // crop coefficient used for ETc
	StageIndex      float64 // growth stage as 0..3
}

// Range declares the valid bounds for one vector field.
type Range struct {
	Min float64
	Max float64
}

// fieldRanges declares the valid bounds per vector field, in field order.
var fieldRanges = map[string]Range{
	"et0":          {0, 15},
	"etc":          {0, 20},
	"deficit":      {0, 400},
	"soilMoisture": {0, 100},
	"tempStress":   {0, 1},
	"humStress":    {0, 1},
	"windStress":   {0, 1},
	"precipProb":   {0, 1},
	"kc":           {0.1, 1.5},
	"stage":        {0, 3},
}

// Audit records non-numeric derivation outcomes: imputations, range clamps,
// and sensor disagreement. It travels alongside the vector, never inside it.
type Audit struct {
	Imputations        []string
	Warnings           []string
	DiscrepancyFlagged bool
}

// Inputs bundles everything Derive consumes. Now is injected so derivation
// stays a pure function of its inputs.
type Inputs struct {
	Weather           weather.Forecast
	Crop              agro.CropProfile
	Soil              agro.SoilProfile
	Sensor            *agro.SensorReading
	PriorDeficitMM    float64
	PriorIrrigationMM float64
	Now               time.Time
}

// Config holds the engine's tunables. Zero values are replaced by defaults.
type Config struct {
	SensorFreshness      time.Duration // window in which a reading supersedes estimates
	DiscrepancyTolerance float64       // moisture percentage points before flagging
}

const (
	defaultSensorFreshness      = time.Hour
	defaultDiscrepancyTolerance = 15.0

	// Climatological fallbacks for imputation when a provider omits a field.
	fallbackSolarMJ     = 16.5
	fallbackHumidityPct = 60.0
)

// Engine derives feature vectors. Stateless; safe for concurrent use.
type Engine struct {
	cfg Config
}

func NewEngine(cfg Config) *Engine {
	if cfg.SensorFreshness <= 0 {
		cfg.SensorFreshness = defaultSensorFreshness
	}
	if cfg.DiscrepancyTolerance <= 0 {
		cfg.DiscrepancyTolerance = defaultDiscrepancyTolerance
	}
	return &Engine{cfg: cfg}
}

// Derive turns weather, crop, soil, and optional sensor inputs into a
// validated feature vector. Deterministic: identical inputs produce an
// identical vector and audit.
func (e *Engine) Derive(in Inputs) (Vector, Audit, error) {
	var audit Audit

	if len(in.Weather) == 0 {
		return Vector{}, audit, fmt.Errorf("no weather observations")
	}
	obs := in.Weather[0]

	// Imputation of missing upstream fields before any computation.
	solar := obs.SolarRadiationMJ
	if solar <= 0 {
		solar = fallbackSolarMJ
		audit.Imputations = append(audit.Imputations,
			fmt.Sprintf("solarRadiation: climatological fallback %.1f MJ/m2/day", solar))
	}
	humidity := obs.HumidityPct
	if humidity <= 0 {
		humidity = fallbackHumidityPct
		audit.Imputations = append(audit.Imputations,
			fmt.Sprintf("humidity: climatological fallback %.0f%%", humidity))
	}

	// Reference and crop evapotranspiration.
	et0 := ReferenceET0(obs.TMaxC, obs.TMinC, humidity, obs.WindSpeedMS, solar, obs.Location.Lat, obs.Date)
	stage := in.Crop.StageFor(in.Now)
	kc := in.Crop.KcFor(stage)
	etc := et0 * kc

	// Soil water balance over the forecast day.
	expectedPrecip := expectedPrecipMM(obs)
	deficit, capacity := waterBalance(in.PriorDeficitMM, etc, expectedPrecip, in.PriorIrrigationMM, in.Crop, in.Soil)

	moisture := 100.0
	if capacity > 0 {
		moisture = (1 - deficit/capacity) * 100
	}

	// Stress factors from deviation outside crop-optimal bands.
	tMean := (obs.TMaxC + obs.TMinC) / 2
	tempStress := bandStress(tMean, in.Crop.OptimalTempC, 10)
	humStress := bandStress(humidity, in.Crop.OptimalHumidity, 30)
	windStress := 0.0
	if in.Crop.MaxTolerableWindMS > 0 && obs.WindSpeedMS > in.Crop.MaxTolerableWindMS {
		windStress = math.Min(1, (obs.WindSpeedMS-in.Crop.MaxTolerableWindMS)/in.Crop.MaxTolerableWindMS)
	}

	// Sensor fusion: a fresh reading supersedes the derived estimates.
	if in.Sensor != nil && in.Sensor.FreshWithin(e.cfg.SensorFreshness, in.Now) {
		if math.Abs(in.Sensor.MoisturePct-moisture) > e.cfg.DiscrepancyTolerance {
			audit.DiscrepancyFlagged = true
			audit.Warnings = append(audit.Warnings,
				fmt.Sprintf("sensor moisture %.1f%% disagrees with estimate %.1f%% beyond tolerance %.1f",
					in.Sensor.MoisturePct, moisture, e.cfg.DiscrepancyTolerance))
		}
		moisture = in.Sensor.MoisturePct
		if in.Sensor.TemperatureC != 0 {
			tempStress = bandStress(in.Sensor.TemperatureC, in.Crop.OptimalTempC, 10)
		}
		if in.Sensor.HumidityPct != 0 {
			humStress = bandStress(in.Sensor.HumidityPct, in.Crop.OptimalHumidity, 30)
		}
	}

	v := Vector{
		ET0MMDay:        et0,
		ETcMMDay:        etc,
		DeficitMM:       deficit,
		SoilMoisturePct: moisture,
		TempStress:      tempStress,
		HumidityStress:  humStress,
		WindStress:      windStress,
		PrecipProb01:    obs.PrecipProbPct / 100,
		KcApplied:       kc,
		StageIndex:      stageIndex(stage),
	}

	clampField(&v.ET0MMDay, "et0", &audit)
	clampField(&v.ETcMMDay, "etc", &audit)
	clampField(&v.DeficitMM, "deficit", &audit)
	clampField(&v.SoilMoisturePct, "soilMoisture", &audit)
	clampField(&v.TempStress, "tempStress", &audit)
	clampField(&v.HumidityStress, "humStress", &audit)
	clampField(&v.WindStress, "windStress", &audit)
	clampField(&v.PrecipProb01, "precipProb", &audit)
	clampField(&v.KcApplied, "kc", &audit)
	clampField(&v.StageIndex, "stage", &audit)

	return v, audit, nil
}

// expectedPrecipMM converts precipitation probability into an expected depth.
// Forecast providers used here report probability, not depth, so a nominal
// 10 mm event is weighted by probability.
func expectedPrecipMM(obs weather.Observation) float64 {
	const nominalEventMM = 10.0
	return obs.PrecipProbPct / 100 * nominalEventMM
}

// waterBalance advances the running deficit by one day and returns it with
// the usable capacity ceiling. Drainage reduces how much of the capacity can
// be recovered in a single day.
func waterBalance(priorDeficit, etc, precip, irrigation float64, crop agro.CropProfile, soil agro.SoilProfile) (deficit, capacity float64) {
	capacity = soil.WaterHoldingCapacity * crop.RootDepthM
	if capacity <= 0 {
		capacity = soil.WaterHoldingCapacity
	}

	recovery := precip + irrigation
	if soil.DrainageRate > 0 && recovery > soil.DrainageRate {
		// Water beyond what the soil can absorb in a day drains away.
		recovery = soil.DrainageRate
	}

	deficit = priorDeficit + etc - recovery
	if deficit < 0 {
		deficit = 0
	}
	if deficit > capacity {
		deficit = capacity
	}
	return deficit, capacity
}

// bandStress returns a penalty in [0,1]: zero inside the optimal band,
// scaling linearly to one at `scale` units outside it.
func bandStress(value float64, band agro.Band, scale float64) float64 {
	if band.Max <= band.Min || scale <= 0 {
		return 0
	}
	var deviation float64
	switch {
	case value < band.Min:
		deviation = band.Min - value
	case value > band.Max:
		deviation = value - band.Max
	default:
		return 0
	}
	return math.Min(1, deviation/scale)
}

func stageIndex(stage agro.GrowthStage) float64 {
	switch stage {
	case agro.StageInitial:
		return 0
	case agro.StageDevelopment:
		return 1
	case agro.StageMid:
		return 2
	default:
		return 3
	}
}

// clampField forces a field to its declared range, recording a warning when
// it had to move. Out-of-range values never propagate past the engine.
func clampField(val *float64, name string, audit *Audit) {
	r, ok := fieldRanges[name]
	if !ok {
		return
	}
	if math.IsNaN(*val) {
		*val = r.Min
		audit.Warnings = append(audit.Warnings, fmt.Sprintf("%s: NaN replaced with %.2f", name, r.Min))
		return
	}
	if *val < r.Min {
		audit.Warnings = append(audit.Warnings, fmt.Sprintf("%s: %.3f clamped to %.2f", name, *val, r.Min))
		*val = r.Min
	} else if *val > r.Max {
		audit.Warnings = append(audit.Warnings, fmt.Sprintf("%s: %.3f clamped to %.2f", name, *val, r.Max))
		*val = r.Max
	}
}
