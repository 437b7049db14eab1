package predict

import (
	"math"

	"github.com/agroflow/irrigation-advisor/internal/features"
)

// LinearRegressor is the fallback model: fixed-weight linear combination of
// the vector fields, clamped into the sanity bounds. It cannot fail on a
// valid vector, which the selection policy relies on.
type LinearRegressor struct{}

func NewLinearRegressor() *LinearRegressor { return &LinearRegressor{} }

func (l *LinearRegressor) Name() string { return "linear" }

func (l *LinearRegressor) Predict(v features.Vector) (Raw, error) {
	timing := baseTiming(v) -
		1.5*v.TempStress -
		1.0*v.HumidityStress -
		0.5*v.WindStress +
		2.0*v.PrecipProb01

	quantity := baseQuantity(v) +
		4.0*v.TempStress +
		2.0*v.ETcMMDay*0.25

	// Hard clamps keep the fallback inside the sanity gate no matter what
	// the vector holds.
	timing = math.Max(0, math.Min(maxTimingDays, timing))
	quantity = math.Max(0, math.Min(maxQuantityMM, quantity))

	return Raw{
		TimingDays:    int(math.Round(timing)),
		QuantityMM:    quantity,
		RawConfidence: 0.55,
	}, nil
}
