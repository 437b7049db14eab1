package predict

import (
	"fmt"
	"log/slog"

	"github.com/agroflow/irrigation-advisor/internal/features"
)

// Result is an immutable irrigation recommendation.
type Result struct {
	TimingDays int     `json:"timingDays"`
	QuantityMM float64 `json:"quantityMm"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`

	LowConfidence    bool   `json:"lowConfidence"`
	DegradedModel    bool   `json:"degradedModel"`    // primary strategy did not produce this
	AccuracyDegraded bool   `json:"accuracyDegraded"` // stale cached weather fed the features
	ModelUsed        string `json:"modelUsed"`
}

// HistoricalScorer supplies a validation score in [0,1] from past
// recommendation effectiveness, when one exists.
type HistoricalScorer interface {
	Score() (float64, bool)
}

// Config holds the engine's tunables.
type Config struct {
	// ConfidenceThreshold marks results below it as low confidence.
	// Exactly at the threshold is not low.
	ConfidenceThreshold float64
}

const defaultConfidenceThreshold = 0.5

// Engine runs an ordered list of strategies behind a uniform sanity gate.
// The last strategy must be infallible on a valid vector.
type Engine struct {
	strategies []Strategy
	history    HistoricalScorer
	cfg        Config
	log        *slog.Logger
}

// NewEngine creates an Engine. history may be nil.
func NewEngine(strategies []Strategy, history HistoricalScorer, cfg Config, log *slog.Logger) *Engine {
	if cfg.ConfidenceThreshold <= 0 {
		cfg.ConfidenceThreshold = defaultConfidenceThreshold
	}
	return &Engine{
		strategies: strategies,
		history:    history,
		cfg:        cfg,
		log:        log,
	}
}

// DefaultStrategies returns forest, gradient, and linear in escalation order.
func DefaultStrategies() []Strategy {
	return []Strategy{
		NewForestRegressor(0),
		NewGradientRegressor(),
		NewLinearRegressor(),
	}
}

// Predict walks the strategy list until one produces a sane result. A
// strategy error or insane output escalates to the next; the fallback linear
// model guarantees the walk terminates with a result.
func (e *Engine) Predict(v features.Vector) (Result, error) {
	for i, s := range e.strategies {
		raw, err := s.Predict(v)
		if err != nil {
			e.log.Warn("strategy failed", "strategy", s.Name(), "error", err)
			continue
		}
		if !sane(raw) {
			e.log.Warn("strategy output failed sanity check",
				"strategy", s.Name(), "timingDays", raw.TimingDays, "quantityMm", raw.QuantityMM)
			continue
		}

		conf := e.calculateConfidence(raw)
		res := Result{
			TimingDays:    raw.TimingDays,
			QuantityMM:    raw.QuantityMM,
			Confidence:    conf,
			Reasoning:     reasoning(v, raw),
			LowConfidence: conf < e.cfg.ConfidenceThreshold,
			DegradedModel: i > 0,
			ModelUsed:     s.Name(),
		}
		return res, nil
	}
	return Result{}, fmt.Errorf("no strategy produced a sane prediction")
}

// calculateConfidence blends the strategy's agreement-based raw confidence
// with the historical validation score when one is available.
func (e *Engine) calculateConfidence(raw Raw) float64 {
	conf := raw.RawConfidence
	if conf < 0 {
		conf = 0
	}
	if conf > 1 {
		conf = 1
	}
	if e.history != nil {
		if score, ok := e.history.Score(); ok {
			conf = 0.7*conf + 0.3*score
		}
	}
	return conf
}

// reasoning fills a deterministic template from the dominant contributing
// feature. Not free text.
func reasoning(v features.Vector, raw Raw) string {
	type contributor struct {
		name  string
		value float64
		text  string
	}
	// Deficit is normalized against its declared ceiling so it competes on
	// the same scale as the stress factors.
	contributors := []contributor{
		{"deficit", v.DeficitMM / 400, fmt.Sprintf("soil water deficit of %.0f mm", v.DeficitMM)},
		{"tempStress", v.TempStress, "temperature outside the crop's optimal range"},
		{"humStress", v.HumidityStress, "humidity outside the crop's optimal range"},
		{"windStress", v.WindStress, "wind stress on the crop"},
	}

	dominant := contributors[0]
	for _, c := range contributors[1:] {
		if c.value > dominant.value {
			dominant = c
		}
	}

	if raw.TimingDays == 0 {
		return fmt.Sprintf("Irrigate today with %.0f mm: driven by %s.", raw.QuantityMM, dominant.text)
	}
	return fmt.Sprintf("Irrigate in %d day(s) with %.0f mm: driven by %s.", raw.TimingDays, raw.QuantityMM, dominant.text)
}
