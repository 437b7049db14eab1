package predict

import (
	"github.com/agroflow/irrigation-advisor/internal/features"
)

// Raw is one strategy's unvalidated output.
type Raw struct {
	TimingDays    int
	QuantityMM    float64
	RawConfidence float64

	// Members holds individual ensemble member outputs (quantity, mm) when
	// the strategy is an ensemble; used for agreement-based confidence.
	Members []float64
}

// Strategy is one interchangeable regression model. Implementations must be
// deterministic for a given vector.
type Strategy interface {
	Name() string
	Predict(v features.Vector) (Raw, error)
}

// Sanity bounds every accepted prediction must satisfy.
const (
	maxTimingDays = 30
	maxQuantityMM = 200
)

// sane gates a strategy's output before it is accepted. A failing result
// causes escalation to the next strategy in order.
func sane(r Raw) bool {
	if r.TimingDays < 0 || r.TimingDays > maxTimingDays {
		return false
	}
	if r.QuantityMM < 0 || r.QuantityMM > maxQuantityMM {
		return false
	}
	return true
}

// moistureTrigger is the soil moisture percentage at which irrigation is due.
const moistureTrigger = 40.0

// baseTiming estimates days until soil moisture reaches the trigger, given
// the current draw-down rate. Shared starting point for all strategies.
func baseTiming(v features.Vector) float64 {
	if v.SoilMoisturePct <= moistureTrigger {
		return 0
	}
	// Approximate daily moisture loss in percentage points from ETc against
	// a nominal 100 mm usable reserve.
	dailyLossPct := v.ETcMMDay
	if dailyLossPct < 0.5 {
		dailyLossPct = 0.5
	}
	return (v.SoilMoisturePct - moistureTrigger) / dailyLossPct
}

// baseQuantity estimates the refill depth: the standing deficit discounted by
// expected rain.
func baseQuantity(v features.Vector) float64 {
	q := v.DeficitMM * (1 - 0.7*v.PrecipProb01)
	if q < 0 {
		return 0
	}
	return q
}
