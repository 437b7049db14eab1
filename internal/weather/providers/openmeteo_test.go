package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/agroflow/irrigation-advisor/internal/resilience"
	"github.com/agroflow/irrigation-advisor/internal/weather"
)

const openMeteoDaily = `{
	"daily": {
		"time": ["2026-08-30", "2026-08-31"],
		"temperature_2m_max": [34.0, 33.1],
		"temperature_2m_min": [22.0, 21.4],
		"relative_humidity_2m_mean": [55.0, 58.0],
		"wind_speed_10m_max": [2.1, 3.0],
		"precipitation_probability_max": [10.0, 35.0],
		"shortwave_radiation_sum": [18.0, 17.2]
	}
}`

func testProviderAt(url string) *OpenMeteoProvider {
	p := NewOpenMeteoProvider(&http.Client{Timeout: 5 * time.Second})
	p.baseURL = url
	p.httpCfg.Retry = resilience.RetryPolicy{
		MaxAttempts:     3,
		InitialInterval: time.Millisecond,
		Factor:          2,
	}
	return p
}

func TestOpenMeteo_ParsesDailyForecast(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("wind_speed_unit"); got != "ms" {
			t.Errorf("expected wind_speed_unit=ms, got %q", got)
		}
		w.Write([]byte(openMeteoDaily))
	}))
	defer srv.Close()

	p := testProviderAt(srv.URL)
	loc := weather.Location{Name: "Nashik", Country: "IN", Lat: 19.99, Lon: 73.79}

	f, err := p.FetchForecast(context.Background(), loc, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(f) != 2 {
		t.Fatalf("expected 2 days, got %d", len(f))
	}
	first := f[0]
	if first.TMaxC != 34 || first.TMinC != 22 || first.HumidityPct != 55 {
		t.Errorf("unexpected first day: %+v", first)
	}
	if first.SolarRadiationMJ != 18 {
		t.Errorf("expected solar radiation 18, got %.1f", first.SolarRadiationMJ)
	}
	if first.Date != time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC) {
		t.Errorf("unexpected date %v", first.Date)
	}
	if err := first.Validate(); err != nil {
		t.Errorf("parsed observation failed validation: %v", err)
	}
}

func TestOpenMeteo_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(openMeteoDaily))
	}))
	defer srv.Close()

	p := testProviderAt(srv.URL)
	loc := weather.Location{Name: "Nashik", Country: "IN", Lat: 19.99, Lon: 73.79}

	f, err := p.FetchForecast(context.Background(), loc, 2)
	if err != nil {
		t.Fatalf("expected recovery on third attempt, got %v", err)
	}
	if len(f) != 2 {
		t.Fatalf("expected 2 days, got %d", len(f))
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 calls, got %d", calls.Load())
	}
}

func TestOpenMeteo_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	p := testProviderAt(srv.URL)
	loc := weather.Location{Name: "Nashik", Country: "IN", Lat: 19.99, Lon: 73.79}

	if _, err := p.FetchForecast(context.Background(), loc, 2); err == nil {
		t.Fatal("expected error for 400 response")
	}
	if calls.Load() != 1 {
		t.Errorf("client errors must not be retried, got %d calls", calls.Load())
	}
}
