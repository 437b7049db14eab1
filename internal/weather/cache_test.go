package weather

import (
	"errors"
	"testing"
	"time"
)

func testLocation() Location {
	return Location{Name: "Nashik", Country: "IN", Lat: 19.99, Lon: 73.79}
}

func testForecast(fetchedAt time.Time) Forecast {
	day := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	return Forecast{{
		Location:         testLocation(),
		Date:             day,
		TMaxC:            34,
		TMinC:            22,
		HumidityPct:      55,
		WindSpeedMS:      2.1,
		PrecipProbPct:    10,
		SolarRadiationMJ: 18,
		FetchedAt:        fetchedAt,
	}}
}

func TestCache_PutAndGet(t *testing.T) {
	c := NewCache()
	loc := testLocation()

	if err := c.Put(loc, testForecast(time.Now().UTC())); err != nil {
		t.Fatalf("unexpected put error: %v", err)
	}

	f, ok := c.Get(loc, 6*time.Hour)
	if !ok {
		t.Fatal("expected cache hit")
	}
	if f[0].TMaxC != 34 {
		t.Errorf("expected tMax 34, got %.1f", f[0].TMaxC)
	}
}

func TestCache_StaleEntryMissesButSurvives(t *testing.T) {
	c := NewCache()
	loc := testLocation()

	fetchedAt := time.Now().UTC().Add(-7 * time.Hour)
	if err := c.Put(loc, testForecast(fetchedAt)); err != nil {
		t.Fatalf("unexpected put error: %v", err)
	}

	if _, ok := c.Get(loc, 6*time.Hour); ok {
		t.Fatal("expected miss for entry older than maxAge")
	}

	// Stale data stays available for degraded serving.
	f, age, err := c.GetAny(loc)
	if err != nil {
		t.Fatalf("expected stale entry to survive, got %v", err)
	}
	if len(f) != 1 {
		t.Fatalf("expected 1 observation, got %d", len(f))
	}
	if age < 6*time.Hour {
		t.Errorf("expected reported age above 6h, got %v", age)
	}
}

func TestCache_GetAnyMiss(t *testing.T) {
	c := NewCache()
	if _, _, err := c.GetAny(testLocation()); !errors.Is(err, ErrNotCached) {
		t.Fatalf("expected ErrNotCached, got %v", err)
	}
}

func TestCache_PutRejectsInvalidForecast(t *testing.T) {
	c := NewCache()
	loc := testLocation()

	bad := testForecast(time.Now().UTC())
	bad[0].HumidityPct = 180

	if err := c.Put(loc, bad); err == nil {
		t.Fatal("expected put to reject out-of-range humidity")
	}
	if _, _, err := c.GetAny(loc); !errors.Is(err, ErrNotCached) {
		t.Fatal("invalid forecast must not be stored")
	}
}

func TestCache_PutSupersedesPrevious(t *testing.T) {
	c := NewCache()
	loc := testLocation()

	old := testForecast(time.Now().UTC())
	old[0].TMaxC = 30
	if err := c.Put(loc, old); err != nil {
		t.Fatal(err)
	}

	fresh := testForecast(time.Now().UTC())
	if err := c.Put(loc, fresh); err != nil {
		t.Fatal(err)
	}

	f, ok := c.Get(loc, time.Hour)
	if !ok {
		t.Fatal("expected hit")
	}
	if f[0].TMaxC != 34 {
		t.Errorf("expected newest forecast to win, got tMax %.1f", f[0].TMaxC)
	}
}
