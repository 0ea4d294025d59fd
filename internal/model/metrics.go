package model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Metrics are the held-out evaluation numbers persisted with each artifact.
type Metrics struct {
	MAE  float64 `json:"mae"`
	RMSE float64 `json:"rmse"`
	R2   float64 `json:"r2"`
	MAPE float64 `json:"mape"` // percent, over nonzero actuals
	N    int     `json:"n"`
}

// Evaluate scores predictions against actuals. MAPE skips zero actuals
// rather than dividing by them.
func Evaluate(actual, predicted []float64) (Metrics, error) {
	if len(actual) == 0 || len(actual) != len(predicted) {
		return Metrics{}, fmt.Errorf("evaluate: %d actuals, %d predictions", len(actual), len(predicted))
	}

	var absSum, sqSum, pctSum float64
	pctN := 0
	for i := range actual {
		diff := predicted[i] - actual[i]
		absSum += math.Abs(diff)
		sqSum += diff * diff
		if actual[i] != 0 {
			pctSum += math.Abs(diff) / math.Abs(actual[i])
			pctN++
		}
	}

	n := float64(len(actual))
	m := Metrics{
		MAE:  absSum / n,
		RMSE: math.Sqrt(sqSum / n),
		R2:   stat.RSquaredFrom(predicted, actual, nil),
		N:    len(actual),
	}
	if pctN > 0 {
		m.MAPE = 100 * pctSum / float64(pctN)
	}
	return m, nil
}
