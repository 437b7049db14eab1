package httpapi

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/agroflow/irrigation-advisor/internal/agro"
	"github.com/agroflow/irrigation-advisor/internal/features"
	"github.com/agroflow/irrigation-advisor/internal/notify"
	"github.com/agroflow/irrigation-advisor/internal/pipeline"
	"github.com/agroflow/irrigation-advisor/internal/predict"
	"github.com/agroflow/irrigation-advisor/internal/queue"
	"github.com/agroflow/irrigation-advisor/internal/resilience"
	"github.com/agroflow/irrigation-advisor/internal/store"
	"github.com/agroflow/irrigation-advisor/internal/weather"
)

func testApp(t *testing.T, capacity int) (*fiber.App, *store.AuditStore, *weather.Cache) {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cache := weather.NewCache()
	wsvc := weather.NewService(nil, cache, 6*time.Hour, log)
	dispatcher := notify.NewDispatcher(nil,
		resilience.RetryPolicy{MaxAttempts: 1, InitialInterval: time.Millisecond, Factor: 2}, log)
	audit := store.NewAuditStore(10, 0)
	refDB := agro.NewReferenceDB()

	orch := pipeline.New(
		pipeline.Config{},
		queue.New[pipeline.Request](capacity),
		wsvc,
		refDB,
		features.NewEngine(features.Config{}),
		predict.NewEngine(predict.DefaultStrategies(), nil, predict.Config{}, log),
		dispatcher,
		audit,
		nil,
		log,
	)

	app := fiber.New()
	RegisterRoutes(app, orch, refDB, audit, cache)
	return app, audit, cache
}

func validBody() string {
	return `{
		"farmerId": "farmer-1",
		"address": "+919800000001",
		"locationName": "Nashik",
		"locationCountry": "IN",
		"lat": 19.99,
		"lon": 73.79,
		"cropType": "rice",
		"soilType": "loam",
		"plantingDate": "2026-06-15"
	}`
}

func TestSubmitRecommendation_Accepted(t *testing.T) {
	app, _, _ := testApp(t, 10)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/recommendations", strings.NewReader(validBody()))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}

	var body struct {
		RequestID string `json:"requestId"`
		Status    string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if _, err := uuid.Parse(body.RequestID); err != nil {
		t.Errorf("expected a uuid request id, got %q", body.RequestID)
	}
}

func TestSubmitRecommendation_ValidationErrors(t *testing.T) {
	app, _, _ := testApp(t, 10)

	cases := []string{
		`{}`,
		`{"farmerId":"f","address":"a","locationName":"N","locationCountry":"IN","cropType":"rice","soilType":"loam","plantingDate":"not-a-date"}`,
		`{"farmerId":"f","address":"a","locationName":"N","locationCountry":"IN","lat":95,"cropType":"rice","soilType":"loam","plantingDate":"2026-06-15"}`,
	}
	for i, body := range cases {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/recommendations", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		if err != nil {
			t.Fatal(err)
		}
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("case %d: expected 400, got %d", i, resp.StatusCode)
		}
	}
}

func TestSubmitRecommendation_UnknownReferenceTypesRejectedUpFront(t *testing.T) {
	app, audit, _ := testApp(t, 10)

	cases := []struct {
		name  string
		body  string
		field string
	}{
		{
			"unknown crop",
			strings.Replace(validBody(), `"rice"`, `"kale"`, 1),
			"cropType",
		},
		{
			"unknown soil",
			strings.Replace(validBody(), `"loam"`, `"peat"`, 1),
			"soilType",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/recommendations", strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")
			resp, err := app.Test(req)
			if err != nil {
				t.Fatal(err)
			}
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("expected 400 before admission, got %d", resp.StatusCode)
			}

			body, err := io.ReadAll(resp.Body)
			if err != nil {
				t.Fatal(err)
			}
			if !strings.Contains(string(body), tc.field) {
				t.Errorf("expected field-specific message naming %s, got %s", tc.field, body)
			}
		})
	}

	if got := audit.Undelivered(); len(got) != 0 {
		t.Errorf("rejected submissions must not reach the store, got %d", len(got))
	}
}

func TestSubmitRecommendation_CapacityExceeded(t *testing.T) {
	app, _, _ := testApp(t, 1)

	post := func() *http.Response {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/recommendations", strings.NewReader(validBody()))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		if err != nil {
			t.Fatal(err)
		}
		return resp
	}

	if resp := post(); resp.StatusCode != http.StatusAccepted {
		t.Fatalf("first request should be admitted, got %d", resp.StatusCode)
	}

	resp := post()
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429 at capacity, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Retry-After") == "" {
		t.Error("expected Retry-After header on capacity refusal")
	}
}

func TestGetRecommendation(t *testing.T) {
	app, audit, _ := testApp(t, 10)

	rec := store.Record{
		RequestID: uuid.New(),
		FarmerID:  "farmer-1",
		Result:    predict.Result{TimingDays: 2, QuantityMM: 25, Confidence: 0.8},
		Outcome:   notify.Outcome{Channel: notify.ChannelWhatsApp, Delivered: true},
		CreatedAt: time.Now().UTC(),
	}
	audit.Save(rec)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/recommendations/"+rec.RequestID.String(), nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/recommendations/"+uuid.NewString(), nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown id, got %d", resp.StatusCode)
	}

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/recommendations/not-a-uuid", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed id, got %d", resp.StatusCode)
	}
}

func TestGetCachedWeather(t *testing.T) {
	app, _, cache := testApp(t, 10)

	loc := weather.Location{Name: "Nashik", Country: "IN", Lat: 19.99, Lon: 73.79}
	err := cache.Put(loc, weather.Forecast{{
		Location:         loc,
		Date:             time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC),
		TMaxC:            34,
		TMinC:            22,
		HumidityPct:      55,
		WindSpeedMS:      2.1,
		PrecipProbPct:    10,
		SolarRadiationMJ: 18,
		FetchedAt:        time.Now().UTC(),
	}})
	if err != nil {
		t.Fatal(err)
	}

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/weather/cached?name=Nashik&country=IN", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/weather/cached?name=Pune&country=IN", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for cold location, got %d", resp.StatusCode)
	}

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/weather/cached", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 without query params, got %d", resp.StatusCode)
	}
}
