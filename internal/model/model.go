// Package model trains and evaluates the footfall regressor: gradient-boosted
// regression stumps over the engineered feature table, persisted as a JSON
// artifact so a serving process can load exactly what training produced.
package model

import (
	"errors"
	"fmt"
)

// Regressor is the prediction-side view of a trained model. Implementations
// must be safe for concurrent Predict calls.
type Regressor interface {
	// Predict scores one row per feature vector. Every vector must have
	// NumFeatures columns.
	Predict(vectors [][]float64) ([]float64, error)

	// NumFeatures returns the width of the feature vectors the model was
	// trained on.
	NumFeatures() int
}

// ErrUntrained reports a Predict call on a model that has no boosting rounds.
var ErrUntrained = errors.New("model has not been trained")

func checkWidth(vectors [][]float64, want int) error {
	for i, v := range vectors {
		if len(v) != want {
			return fmt.Errorf("vector %d has %d features, model wants %d", i, len(v), want)
		}
	}
	return nil
}
