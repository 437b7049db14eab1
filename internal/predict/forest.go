package predict

import (
	"math"

	"github.com/agroflow/irrigation-advisor/internal/features"
)

// ForestRegressor is the primary model: an ensemble of perturbed regression
// trees voting on timing and quantity. Each tree applies a fixed, seeded
// perturbation to the shared base estimate, so the whole ensemble is
// deterministic for a given vector.
type ForestRegressor struct {
	trees int
}

func NewForestRegressor(trees int) *ForestRegressor {
	if trees <= 0 {
		trees = 25
	}
	return &ForestRegressor{trees: trees}
}

func (f *ForestRegressor) Name() string { return "forest" }

func (f *ForestRegressor) Predict(v features.Vector) (Raw, error) {
	timing := baseTiming(v)
	quantity := baseQuantity(v)

	stress := math.Max(v.TempStress, math.Max(v.HumidityStress, v.WindStress))

	var sumT, sumQ float64
	members := make([]float64, 0, f.trees)
	for i := 0; i < f.trees; i++ {
		// Deterministic per-tree perturbation in [-1, 1).
		p := perturbation(v, i)

		t := timing * (1 + 0.15*p)
		// Stressed crops get irrigated sooner.
		t -= 2 * stress
		if t < 0 {
			t = 0
		}

		q := quantity * (1 + 0.1*p)
		// Each tree adds a stress-driven top-up.
		q += 5 * stress * (1 + 0.2*p)

		sumT += t
		sumQ += q
		members = append(members, q)
	}

	n := float64(f.trees)
	meanQ := sumQ / n

	return Raw{
		TimingDays:    int(math.Round(sumT / n)),
		QuantityMM:    meanQ,
		RawConfidence: agreementConfidence(members, meanQ),
		Members:       members,
	}, nil
}

// perturbation derives a stable pseudo-random value in [-1, 1) from the
// vector contents and a tree index. No state, no RNG.
func perturbation(v features.Vector, tree int) float64 {
	h := uint64(2166136261)
	mix := func(x float64) {
		bits := math.Float64bits(x)
		h ^= bits
		h *= 16777619
	}
	mix(v.ET0MMDay)
	mix(v.DeficitMM)
	mix(v.SoilMoisturePct)
	mix(float64(tree + 1))
	return float64(h%2000)/1000 - 1
}

// agreementConfidence maps member spread to [0,1]: tight agreement scores
// high, wide disagreement low.
func agreementConfidence(members []float64, mean float64) float64 {
	if len(members) < 2 {
		return 0.5
	}
	var variance float64
	for _, m := range members {
		d := m - mean
		variance += d * d
	}
	variance /= float64(len(members))

	// Scale variance against the mean so large absolute quantities are not
	// unfairly penalized.
	denom := math.Abs(mean) + 1
	rel := math.Sqrt(variance) / denom
	conf := 1 / (1 + 5*rel)
	if conf > 1 {
		conf = 1
	}
	return conf
}
