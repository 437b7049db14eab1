package agro

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned when a crop or soil type is absent from the
// reference tables.
var ErrNotFound = errors.New("not found in reference database")

// ReferenceDB holds seeded crop and soil reference tables. The pipeline only
// reads from it; registration flows that would extend it live elsewhere.
type ReferenceDB struct {
	crops map[string]CropProfile
	soils map[string]SoilProfile
}

// NewReferenceDB creates a ReferenceDB seeded with common crop and soil types.
func NewReferenceDB() *ReferenceDB {
	return &ReferenceDB{
		crops: seedCrops(),
		soils: seedSoils(),
	}
}

// CropByType looks up a crop profile. PlantingDate is zero in the returned
// template; callers stamp the farmer's actual planting date before use.
func (db *ReferenceDB) CropByType(cropType string) (CropProfile, error) {
	c, ok := db.crops[strings.ToLower(strings.TrimSpace(cropType))]
	if !ok {
		return CropProfile{}, fmt.Errorf("crop %q: %w", cropType, ErrNotFound)
	}
	return c, nil
}

// SoilByType looks up a soil profile.
func (db *ReferenceDB) SoilByType(soilType string) (SoilProfile, error) {
	s, ok := db.soils[strings.ToLower(strings.TrimSpace(soilType))]
	if !ok {
		return SoilProfile{}, fmt.Errorf("soil %q: %w", soilType, ErrNotFound)
	}
	return s, nil
}

// CropWithPlanting returns the crop profile stamped with a planting date.
func (db *ReferenceDB) CropWithPlanting(cropType string, planted time.Time) (CropProfile, error) {
	c, err := db.CropByType(cropType)
	if err != nil {
		return CropProfile{}, err
	}
	c.PlantingDate = planted
	return c, nil
}

// Kc values and stage lengths follow FAO-56 tables; optimal bands are
// agronomy rules of thumb good enough for stress scoring.
func seedCrops() map[string]CropProfile {
	return map[string]CropProfile{
		"rice": {
			Type:       "rice",
			RootDepthM: 0.6,
			Kc: map[GrowthStage]float64{
				StageInitial: 1.05, StageDevelopment: 1.1, StageMid: 1.2, StageLate: 0.9,
			},
			StageLengthDays: map[GrowthStage]int{
				StageInitial: 30, StageDevelopment: 30, StageMid: 60, StageLate: 30,
			},
			OptimalTempC:       Band{Min: 20, Max: 35},
			OptimalHumidity:    Band{Min: 60, Max: 90},
			MaxTolerableWindMS: 8,
		},
		"wheat": {
			Type:       "wheat",
			RootDepthM: 1.2,
			Kc: map[GrowthStage]float64{
				StageInitial: 0.4, StageDevelopment: 0.8, StageMid: 1.15, StageLate: 0.35,
			},
			StageLengthDays: map[GrowthStage]int{
				StageInitial: 20, StageDevelopment: 40, StageMid: 60, StageLate: 30,
			},
			OptimalTempC:       Band{Min: 12, Max: 25},
			OptimalHumidity:    Band{Min: 40, Max: 70},
			MaxTolerableWindMS: 10,
		},
		"maize": {
			Type:       "maize",
			RootDepthM: 1.0,
			Kc: map[GrowthStage]float64{
				StageInitial: 0.35, StageDevelopment: 0.75, StageMid: 1.15, StageLate: 0.6,
			},
			StageLengthDays: map[GrowthStage]int{
				StageInitial: 20, StageDevelopment: 35, StageMid: 40, StageLate: 30,
			},
			OptimalTempC:       Band{Min: 18, Max: 32},
			OptimalHumidity:    Band{Min: 45, Max: 75},
			MaxTolerableWindMS: 9,
		},
		"tomato": {
			Type:       "tomato",
			RootDepthM: 0.8,
			Kc: map[GrowthStage]float64{
				StageInitial: 0.6, StageDevelopment: 0.85, StageMid: 1.15, StageLate: 0.8,
			},
			StageLengthDays: map[GrowthStage]int{
				StageInitial: 30, StageDevelopment: 40, StageMid: 45, StageLate: 25,
			},
			OptimalTempC:       Band{Min: 18, Max: 29},
			OptimalHumidity:    Band{Min: 50, Max: 80},
			MaxTolerableWindMS: 7,
		},
	}
}

func seedSoils() map[string]SoilProfile {
	return map[string]SoilProfile{
		"loam": {
			Type: "loam", WaterHoldingCapacity: 150, DrainageRate: 12,
			OrganicMatterPct: 3.5, PH: 6.5, BulkDensity: 1.35,
		},
		"clay": {
			Type: "clay", WaterHoldingCapacity: 200, DrainageRate: 4,
			OrganicMatterPct: 2.5, PH: 7.2, BulkDensity: 1.25,
		},
		"sandy": {
			Type: "sandy", WaterHoldingCapacity: 80, DrainageRate: 30,
			OrganicMatterPct: 1.0, PH: 6.0, BulkDensity: 1.55,
		},
		"silt": {
			Type: "silt", WaterHoldingCapacity: 170, DrainageRate: 8,
			OrganicMatterPct: 3.0, PH: 6.8, BulkDensity: 1.3,
		},
	}
}
