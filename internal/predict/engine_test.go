package predict

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/agroflow/irrigation-advisor/internal/features"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func dryVector() features.Vector {
	return features.Vector{
		ET0MMDay:        5.2,
		ETcMMDay:        6.2,
		DeficitMM:       60,
		SoilMoisturePct: 33,
		TempStress:      0.2,
		HumidityStress:  0.1,
		WindStress:      0,
		PrecipProb01:    0.1,
		KcApplied:       1.2,
		StageIndex:      2,
	}
}

type failingStrategy struct{ name string }

func (f failingStrategy) Name() string { return f.name }
func (f failingStrategy) Predict(features.Vector) (Raw, error) {
	return Raw{}, errors.New("model exploded")
}

type insaneStrategy struct{}

func (insaneStrategy) Name() string { return "insane" }
func (insaneStrategy) Predict(features.Vector) (Raw, error) {
	return Raw{TimingDays: -3, QuantityMM: -40}, nil
}

type fixedHistory struct{ score float64 }

func (h fixedHistory) Score() (float64, bool) { return h.score, true }

func TestPredict_PrimaryProducesResult(t *testing.T) {
	eng := NewEngine(DefaultStrategies(), nil, Config{}, discardLogger())

	res, err := eng.Predict(dryVector())
	if err != nil {
		t.Fatal(err)
	}
	if res.ModelUsed != "forest" {
		t.Errorf("expected primary model, got %s", res.ModelUsed)
	}
	if res.DegradedModel {
		t.Error("primary result must not carry the degraded-model flag")
	}
	if res.TimingDays < 0 || res.TimingDays > 30 {
		t.Errorf("timing %d outside sanity bounds", res.TimingDays)
	}
	if res.QuantityMM < 0 {
		t.Errorf("negative quantity %.1f", res.QuantityMM)
	}
	// Dry soil below the trigger must be irrigated promptly.
	if res.TimingDays > 2 {
		t.Errorf("expected prompt irrigation for 33%% moisture, got %d days", res.TimingDays)
	}
}

func TestPredict_Deterministic(t *testing.T) {
	eng := NewEngine(DefaultStrategies(), nil, Config{}, discardLogger())
	v := dryVector()

	r1, err := eng.Predict(v)
	if err != nil {
		t.Fatal(err)
	}
	r2, err := eng.Predict(v)
	if err != nil {
		t.Fatal(err)
	}
	if r1 != r2 {
		t.Errorf("identical vectors produced different results:\n%+v\n%+v", r1, r2)
	}
}

func TestPredict_EscalatesToFallback(t *testing.T) {
	eng := NewEngine([]Strategy{
		failingStrategy{name: "forest"},
		insaneStrategy{},
		NewLinearRegressor(),
	}, nil, Config{}, discardLogger())

	res, err := eng.Predict(dryVector())
	if err != nil {
		t.Fatal(err)
	}
	if res.ModelUsed != "linear" {
		t.Errorf("expected linear fallback, got %s", res.ModelUsed)
	}
	if !res.DegradedModel {
		t.Error("fallback result must carry the degraded-model flag")
	}
	if res.TimingDays < 0 || res.QuantityMM < 0 {
		t.Errorf("fallback produced invalid result: %+v", res)
	}
}

func TestPredict_LowConfidenceBoundary(t *testing.T) {
	cases := []struct {
		conf    float64
		wantLow bool
	}{
		{0.49, true},
		{0.5, false}, // exactly at threshold is not low
		{0.51, false},
	}
	for _, tc := range cases {
		eng := NewEngine([]Strategy{stubStrategy{conf: tc.conf}}, nil, Config{ConfidenceThreshold: 0.5}, discardLogger())
		res, err := eng.Predict(dryVector())
		if err != nil {
			t.Fatal(err)
		}
		if res.LowConfidence != tc.wantLow {
			t.Errorf("confidence %.2f: expected lowConfidence=%v", tc.conf, tc.wantLow)
		}
	}
}

type stubStrategy struct{ conf float64 }

func (s stubStrategy) Name() string { return "stub" }
func (s stubStrategy) Predict(features.Vector) (Raw, error) {
	return Raw{TimingDays: 1, QuantityMM: 20, RawConfidence: s.conf}, nil
}

func TestPredict_HistoricalScoreBlended(t *testing.T) {
	withHistory := NewEngine([]Strategy{stubStrategy{conf: 0.8}}, fixedHistory{score: 0.2}, Config{}, discardLogger())
	res, err := withHistory.Predict(dryVector())
	if err != nil {
		t.Fatal(err)
	}
	want := 0.7*0.8 + 0.3*0.2
	if diff := res.Confidence - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("expected blended confidence %.3f, got %.3f", want, res.Confidence)
	}
}

func TestReasoning_DominantContributor(t *testing.T) {
	v := dryVector()
	v.TempStress = 0.9
	v.DeficitMM = 10

	eng := NewEngine(DefaultStrategies(), nil, Config{}, discardLogger())
	res, err := eng.Predict(v)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(res.Reasoning, "temperature") {
		t.Errorf("expected temperature-driven reasoning, got %q", res.Reasoning)
	}

	v.TempStress = 0
	v.DeficitMM = 350
	res, err = eng.Predict(v)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(res.Reasoning, "deficit") {
		t.Errorf("expected deficit-driven reasoning, got %q", res.Reasoning)
	}
}

func TestLinearRegressor_NeverFails(t *testing.T) {
	lin := NewLinearRegressor()
	vectors := []features.Vector{
		{}, // all zero
		dryVector(),
		{DeficitMM: 400, SoilMoisturePct: 0, TempStress: 1, HumidityStress: 1, WindStress: 1, ETcMMDay: 20},
		{SoilMoisturePct: 100, PrecipProb01: 1},
	}
	for i, v := range vectors {
		raw, err := lin.Predict(v)
		if err != nil {
			t.Fatalf("vector %d: linear fallback must not fail: %v", i, err)
		}
		if !sane(raw) {
			t.Errorf("vector %d: fallback output failed sanity: %+v", i, raw)
		}
	}
}
