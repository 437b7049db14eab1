package agro

import (
	"errors"
	"testing"
	"time"
)

func TestStageFor_Progression(t *testing.T) {
	db := NewReferenceDB()
	planted := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	crop, err := db.CropWithPlanting("rice", planted)
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		daysAfter int
		want      GrowthStage
	}{
		{0, StageInitial},
		{29, StageInitial},
		{30, StageDevelopment},
		{59, StageDevelopment},
		{60, StageMid},
		{119, StageMid},
		{120, StageLate},
		{400, StageLate}, // past the table, stays late
	}
	for _, tc := range cases {
		now := planted.AddDate(0, 0, tc.daysAfter)
		if got := crop.StageFor(now); got != tc.want {
			t.Errorf("day %d: expected %s, got %s", tc.daysAfter, tc.want, got)
		}
	}
}

func TestStageFor_BeforePlanting(t *testing.T) {
	crop := CropProfile{
		PlantingDate:    time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
		StageLengthDays: map[GrowthStage]int{StageInitial: 10},
	}
	now := crop.PlantingDate.AddDate(0, 0, -5)
	if got := crop.StageFor(now); got != StageInitial {
		t.Errorf("expected initial before planting, got %s", got)
	}
}

func TestReferenceDB_Lookups(t *testing.T) {
	db := NewReferenceDB()

	crop, err := db.CropByType("  Rice ")
	if err != nil {
		t.Fatalf("expected rice lookup to succeed, got %v", err)
	}
	if crop.KcFor(StageMid) != 1.2 {
		t.Errorf("expected rice mid Kc 1.2, got %.2f", crop.KcFor(StageMid))
	}

	soil, err := db.SoilByType("loam")
	if err != nil {
		t.Fatalf("expected loam lookup to succeed, got %v", err)
	}
	if soil.WaterHoldingCapacity != 150 {
		t.Errorf("expected loam WHC 150, got %.0f", soil.WaterHoldingCapacity)
	}

	if _, err := db.CropByType("kale"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown crop, got %v", err)
	}
	if _, err := db.SoilByType("peat"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown soil, got %v", err)
	}
}

func TestSensorReading_FreshWithin(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	fresh := SensorReading{Timestamp: now.Add(-30 * time.Minute)}
	if !fresh.FreshWithin(time.Hour, now) {
		t.Error("expected 30-minute-old reading to be fresh within 1h")
	}

	stale := SensorReading{Timestamp: now.Add(-2 * time.Hour)}
	if stale.FreshWithin(time.Hour, now) {
		t.Error("expected 2-hour-old reading to be stale")
	}

	future := SensorReading{Timestamp: now.Add(10 * time.Minute)}
	if future.FreshWithin(time.Hour, now) {
		t.Error("clock-skewed future reading must not count as fresh")
	}

	var zero SensorReading
	if zero.FreshWithin(time.Hour, now) {
		t.Error("zero-valued reading must not count as fresh")
	}
}
