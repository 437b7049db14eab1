package weather

import (
	"fmt"
	"time"
)

// Location represents a field or farm position for which forecasts are tracked.
type Location struct {
	Name    string  `json:"name"`
	Country string  `json:"country"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// Key returns a canonical string key for indexing this location in the cache.
func (l Location) Key() string {
	return l.Name + ":" + l.Country
}

// Observation is one day's normalized forecast for a location.
// Immutable once fetched; identified by (Location, Date).
type Observation struct {
	Location Location  `json:"location"`
	Date     time.Time `json:"date"` // midnight UTC of the forecast day

	TMaxC            float64 `json:"tMaxC"`
	TMinC            float64 `json:"tMinC"`
	HumidityPct      float64 `json:"humidityPct"`
	WindSpeedMS      float64 `json:"windSpeedMs"`
	PrecipProbPct    float64 `json:"precipProbPct"`
	SolarRadiationMJ float64 `json:"solarRadiationMj"` // MJ/m2/day

	FetchedAt time.Time `json:"fetchedAt"`
}

// Forecast is a multi-day series of observations ordered by Date ascending.
type Forecast []Observation

// Plausibility bounds for provider data. Anything outside is a provider bug
// or a unit mixup and must not reach the feature pipeline.
const (
	minTempC   = -60.0
	maxTempC   = 60.0
	maxWindMS  = 120.0
	maxSolarMJ = 45.0
)

// Validate checks that an observation carries all required fields within
// physically plausible bounds.
func (o Observation) Validate() error {
	if o.Date.IsZero() {
		return fmt.Errorf("observation missing date")
	}
	if o.TMaxC < minTempC || o.TMaxC > maxTempC {
		return fmt.Errorf("tMax %.1f out of range", o.TMaxC)
	}
	if o.TMinC < minTempC || o.TMinC > maxTempC {
		return fmt.Errorf("tMin %.1f out of range", o.TMinC)
	}
	if o.TMinC > o.TMaxC {
		return fmt.Errorf("tMin %.1f above tMax %.1f", o.TMinC, o.TMaxC)
	}
	if o.HumidityPct < 0 || o.HumidityPct > 100 {
		return fmt.Errorf("humidity %.1f out of range", o.HumidityPct)
	}
	if o.WindSpeedMS < 0 || o.WindSpeedMS > maxWindMS {
		return fmt.Errorf("wind speed %.1f out of range", o.WindSpeedMS)
	}
	if o.PrecipProbPct < 0 || o.PrecipProbPct > 100 {
		return fmt.Errorf("precipitation probability %.1f out of range", o.PrecipProbPct)
	}
	if o.SolarRadiationMJ < 0 || o.SolarRadiationMJ > maxSolarMJ {
		return fmt.Errorf("solar radiation %.1f out of range", o.SolarRadiationMJ)
	}
	return nil
}
