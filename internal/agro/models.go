package agro

import (
	"time"
)

// GrowthStage identifies where a crop is in its season.
type GrowthStage string

const (
	StageInitial     GrowthStage = "initial"
	StageDevelopment GrowthStage = "development"
	StageMid         GrowthStage = "mid"
	StageLate        GrowthStage = "late"
)

// stageOrder is the fixed progression used when deriving the stage from
// elapsed time since planting.
var stageOrder = []GrowthStage{StageInitial, StageDevelopment, StageMid, StageLate}

// Band is an inclusive optimal range for an environmental variable.
type Band struct {
	Min float64
	Max float64
}

// CropProfile describes a crop variety and its water-use characteristics.
// The prediction path treats profiles as read-only; only stage transition
// (driven by elapsed time) moves the stage.
type CropProfile struct {
	Type         string
	Variety      string
	PlantingDate time.Time
	RootDepthM   float64

	// Kc per growth stage (FAO-56 crop coefficients).
	Kc map[GrowthStage]float64

	// StageLengthDays gives the duration of each stage in order.
	StageLengthDays map[GrowthStage]int

	// Optimal environmental bands for stress scoring.
	OptimalTempC       Band
	OptimalHumidity    Band
	MaxTolerableWindMS float64
}

// StageFor derives the growth stage from elapsed days since planting using
// the crop's stage-length table. Past the end of the table the crop stays in
// the late stage.
func (c CropProfile) StageFor(now time.Time) GrowthStage {
	elapsed := int(now.Sub(c.PlantingDate).Hours() / 24)
	if elapsed < 0 {
		return StageInitial
	}
	for _, stage := range stageOrder {
		length, ok := c.StageLengthDays[stage]
		if !ok {
			continue
		}
		if elapsed < length {
			return stage
		}
		elapsed -= length
	}
	return StageLate
}

// KcFor returns the crop coefficient for a stage, falling back to the mid
// stage coefficient when the table is incomplete.
func (c CropProfile) KcFor(stage GrowthStage) float64 {
	if kc, ok := c.Kc[stage]; ok {
		return kc
	}
	if kc, ok := c.Kc[StageMid]; ok {
		return kc
	}
	return 1.0
}

// SoilProfile describes the water-holding behaviour of a field's soil.
// Read-only input to feature derivation.
type SoilProfile struct {
	Type                 string
	WaterHoldingCapacity float64 // mm per m of root depth
	DrainageRate         float64 // mm/day
	OrganicMatterPct     float64
	PH                   float64
	BulkDensity          float64 // g/cm3
}

// SensorReading is an optional in-field measurement. When fresh it supersedes
// the corresponding derived estimates.
type SensorReading struct {
	DeviceID     string    `json:"deviceId"`
	MoisturePct  float64   `json:"moisturePct"`
	TemperatureC float64   `json:"temperatureC"`
	HumidityPct  float64   `json:"humidityPct"`
	PH           float64   `json:"ph"`
	LightLux     float64   `json:"lightLux"`
	Timestamp    time.Time `json:"timestamp"`
}

// FreshWithin reports whether the reading is recent enough to trust.
func (r SensorReading) FreshWithin(window time.Duration, now time.Time) bool {
	if r.Timestamp.IsZero() {
		return false
	}
	age := now.Sub(r.Timestamp)
	return age >= 0 && age <= window
}
