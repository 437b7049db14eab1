package predict

import (
	"math"

	"github.com/agroflow/irrigation-advisor/internal/features"
)

// GradientRegressor is the secondary model: staged additive corrections on
// the shared base estimate, each stage shrinking the residual toward a
// stress- and rain-adjusted target.
type GradientRegressor struct {
	stages       int
	learningRate float64
}

func NewGradientRegressor() *GradientRegressor {
	return &GradientRegressor{stages: 8, learningRate: 0.5}
}

func (g *GradientRegressor) Name() string { return "gradient" }

func (g *GradientRegressor) Predict(v features.Vector) (Raw, error) {
	stress := math.Max(v.TempStress, math.Max(v.HumidityStress, v.WindStress))

	// Targets the booster converges toward.
	targetTiming := baseTiming(v) * (1 - 0.3*stress)
	targetQuantity := baseQuantity(v) + 6*stress

	timing := baseTiming(v)
	quantity := baseQuantity(v)
	for i := 0; i < g.stages; i++ {
		timing += g.learningRate * (targetTiming - timing)
		quantity += g.learningRate * (targetQuantity - quantity)
	}

	if timing < 0 {
		timing = 0
	}
	if quantity < 0 {
		quantity = 0
	}

	// Confidence decays with how far the correction had to travel.
	shift := math.Abs(targetQuantity-baseQuantity(v)) / (baseQuantity(v) + 1)
	conf := 0.75 - 0.3*math.Min(1, shift)

	return Raw{
		TimingDays:    int(math.Round(timing)),
		QuantityMM:    quantity,
		RawConfidence: conf,
	}, nil
}
