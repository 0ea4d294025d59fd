package model

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/enroll-data/footfall.report/internal/monitoring"
)

// Params controls training. Zero values fall back to the defaults below.
type Params struct {
	Rounds       int     `json:"rounds"`
	LearningRate float64 `json:"learning_rate"`
	MinLeaf      int     `json:"min_leaf"`
}

const (
	defaultRounds       = 300
	defaultLearningRate = 0.1
	defaultMinLeaf      = 5
)

func (p Params) withDefaults() Params {
	if p.Rounds <= 0 {
		p.Rounds = defaultRounds
	}
	if p.LearningRate <= 0 {
		p.LearningRate = defaultLearningRate
	}
	if p.MinLeaf <= 0 {
		p.MinLeaf = defaultMinLeaf
	}
	return p
}

// Stump is one boosting round: a single split on one feature, with an
// additive value for each side. Already scaled by the learning rate.
type Stump struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      float64 `json:"left"`  // feature value <= threshold
	Right     float64 `json:"right"` // feature value > threshold
}

// GBT is a gradient-boosted ensemble of regression stumps fit to squared
// error. Prediction is the base value plus the sum of stump contributions.
// Training is deterministic: the same table and params always produce the
// same model.
type GBT struct {
	FeatureNames []string  `json:"feature_names"`
	Base         float64   `json:"base"`
	Stumps       []Stump   `json:"stumps"`
	Params       Params    `json:"params"`
	TrainedAt    time.Time `json:"trained_at"`
}

// NumFeatures implements Regressor.
func (m *GBT) NumFeatures() int { return len(m.FeatureNames) }

// Predict implements Regressor. Predictions are clamped at zero; footfall is
// a count.
func (m *GBT) Predict(vectors [][]float64) ([]float64, error) {
	if len(m.Stumps) == 0 {
		return nil, ErrUntrained
	}
	if err := checkWidth(vectors, len(m.FeatureNames)); err != nil {
		return nil, err
	}
	out := make([]float64, len(vectors))
	for i, v := range vectors {
		y := m.Base
		for _, s := range m.Stumps {
			if v[s.Feature] <= s.Threshold {
				y += s.Left
			} else {
				y += s.Right
			}
		}
		out[i] = math.Max(0, y)
	}
	return out, nil
}

// Train fits a boosted-stump regressor to the given rows. names fixes the
// column interpretation of the vectors and is persisted with the model.
func Train(vectors [][]float64, targets []float64, names []string, p Params) (*GBT, error) {
	if len(vectors) == 0 {
		return nil, fmt.Errorf("no training rows")
	}
	if len(vectors) != len(targets) {
		return nil, fmt.Errorf("%d vectors but %d targets", len(vectors), len(targets))
	}
	if err := checkWidth(vectors, len(names)); err != nil {
		return nil, err
	}
	p = p.withDefaults()

	m := &GBT{
		FeatureNames: append([]string(nil), names...),
		Base:         stat.Mean(targets, nil),
		Params:       p,
		TrainedAt:    time.Now().UTC(),
	}

	// Per-feature sort orders, computed once.
	orders := make([][]int, len(names))
	for j := range names {
		order := make([]int, len(vectors))
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(a, b int) bool {
			return vectors[order[a]][j] < vectors[order[b]][j]
		})
		orders[j] = order
	}

	residual := make([]float64, len(targets))
	pred := make([]float64, len(targets))
	for i := range pred {
		pred[i] = m.Base
	}

	for round := 0; round < p.Rounds; round++ {
		for i := range residual {
			residual[i] = targets[i] - pred[i]
		}
		s, ok := bestStump(vectors, residual, orders, p.MinLeaf)
		if !ok {
			// No split improves on the constant fit; further rounds would
			// repeat the same no-op.
			break
		}
		s.Left *= p.LearningRate
		s.Right *= p.LearningRate
		m.Stumps = append(m.Stumps, s)

		for i, v := range vectors {
			if v[s.Feature] <= s.Threshold {
				pred[i] += s.Left
			} else {
				pred[i] += s.Right
			}
		}
	}

	if len(m.Stumps) == 0 {
		return nil, fmt.Errorf("training produced no usable splits")
	}
	monitoring.Logf("trained boosted-stump model: %d rounds, %d features, base %.2f",
		len(m.Stumps), len(names), m.Base)
	return m, nil
}

// bestStump finds the squared-error-optimal single split over all features,
// scanning each feature in sorted order with running sums. Ties resolve to
// the lowest feature index, keeping training deterministic.
func bestStump(vectors [][]float64, residual []float64, orders [][]int, minLeaf int) (Stump, bool) {
	n := len(residual)
	var total float64
	for _, r := range residual {
		total += r
	}

	best := Stump{Feature: -1}
	bestGain := 0.0

	for j, order := range orders {
		var leftSum float64
		for k := 0; k < n-1; k++ {
			i := order[k]
			leftSum += residual[i]

			// Split only between distinct feature values.
			cur, next := vectors[i][j], vectors[order[k+1]][j]
			if cur == next {
				continue
			}
			nl, nr := k+1, n-k-1
			if nl < minLeaf || nr < minLeaf {
				continue
			}
			rightSum := total - leftSum

			// SSE reduction of the two-mean fit relative to the zero fit.
			gain := leftSum*leftSum/float64(nl) + rightSum*rightSum/float64(nr)
			if gain > bestGain {
				bestGain = gain
				best = Stump{
					Feature:   j,
					Threshold: (cur + next) / 2,
					Left:      leftSum / float64(nl),
					Right:     rightSum / float64(nr),
				}
			}
		}
	}
	return best, best.Feature >= 0
}
