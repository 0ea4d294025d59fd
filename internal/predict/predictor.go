// Package predict serves footfall forecasts from a trained model bundle and
// orchestrates retraining. The serving bundle (feature table, metadata,
// reconstructor, regressor) swaps atomically, so in-flight requests always
// see a mutually consistent set of artifacts.
package predict

import (
	"fmt"
	"math"
	"sort"
	"sync/atomic"
	"time"

	"github.com/enroll-data/footfall.report/internal/features"
	"github.com/enroll-data/footfall.report/internal/model"
	"github.com/enroll-data/footfall.report/internal/schema"
)

// Artifacts is one consistent serving bundle: the feature table and metadata
// a model was trained against, the reconstructor bound to them, and the
// model itself. Never mix pieces from different training runs.
type Artifacts struct {
	Table *features.Table
	Meta  *features.Metadata
	Recon *features.Reconstructor
	Model model.Regressor
}

// Predictor answers forecast requests against the current artifact bundle.
// Safe for concurrent use; Swap replaces the bundle without blocking readers.
type Predictor struct {
	current atomic.Pointer[Artifacts]
}

// NewPredictor starts serving from the given bundle.
func NewPredictor(art *Artifacts) *Predictor {
	p := &Predictor{}
	p.current.Store(art)
	return p
}

// Swap atomically replaces the serving bundle. Requests already holding the
// old bundle finish against it.
func (p *Predictor) Swap(art *Artifacts) {
	p.current.Store(art)
}

// Artifacts returns the current serving bundle.
func (p *Predictor) Artifacts() *Artifacts {
	return p.current.Load()
}

// Prediction is a single-day forecast. Footfall is a non-negative count.
// Warnings list any history substitutions behind the feature vector. Error is
// set (and Footfall meaningless) when the day failed inside a multi-day
// request.
type Prediction struct {
	Pincode  string   `json:"pincode"`
	Date     string   `json:"date"`
	Footfall int      `json:"predicted_footfall"`
	Warnings []string `json:"warnings,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// Day forecasts footfall for one pincode on one date.
func (p *Predictor) Day(pincode string, date time.Time) (Prediction, error) {
	art := p.current.Load()
	return art.day(pincode, date)
}

func (a *Artifacts) day(pincode string, date time.Time) (Prediction, error) {
	vector, warnings, err := a.Recon.Vector(pincode, date)
	if err != nil {
		return Prediction{}, err
	}
	if len(vector) != a.Model.NumFeatures() {
		return Prediction{}, &features.ShapeError{Got: len(vector), Want: a.Model.NumFeatures()}
	}
	out, err := a.Model.Predict([][]float64{vector})
	if err != nil {
		return Prediction{}, fmt.Errorf("predict %s %s: %w", pincode, date.Format(schema.DateLayout), err)
	}
	return Prediction{
		Pincode:  pincode,
		Date:     date.Format(schema.DateLayout),
		Footfall: clampCount(out[0]),
		Warnings: warnings,
	}, nil
}

// clampCount rounds a raw model output to a non-negative count.
func clampCount(v float64) int {
	if v < 0 {
		return 0
	}
	return int(math.Round(v))
}

// RangeForecast is a multi-day forecast for one pincode. The aggregates cover
// successful days only; Failed counts days whose entry carries an Error.
type RangeForecast struct {
	Pincode string       `json:"pincode"`
	Days    []Prediction `json:"days"`
	Total   int          `json:"total"`
	Mean    float64      `json:"mean"`
	Peak    Prediction   `json:"peak"`
	Low     Prediction   `json:"low"`
	Failed  int          `json:"failed,omitempty"`
}

// Week forecasts the 7 days starting at start.
func (p *Predictor) Week(pincode string, start time.Time) (RangeForecast, error) {
	return p.Range(pincode, start, 7)
}

// Month forecasts every calendar day of the given month.
func (p *Predictor) Month(pincode string, year int, month time.Month) (RangeForecast, error) {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	days := first.AddDate(0, 1, 0).Sub(first).Hours() / 24
	return p.Range(pincode, first, int(days))
}

// Range forecasts n consecutive days starting at start. All days score
// against the same bundle even if a retrain lands mid-request. A day that
// fails stays in Days with its Error set and is excluded from the
// aggregates; the call itself errors only when every day failed.
func (p *Predictor) Range(pincode string, start time.Time, n int) (RangeForecast, error) {
	if n <= 0 {
		return RangeForecast{}, fmt.Errorf("forecast horizon must be positive, got %d", n)
	}
	art := p.current.Load()

	fc := RangeForecast{Pincode: pincode, Days: make([]Prediction, 0, n)}
	total, succeeded := 0, 0
	var firstErr error
	for i := 0; i < n; i++ {
		date := start.AddDate(0, 0, i)
		day, err := art.day(pincode, date)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			fc.Days = append(fc.Days, Prediction{
				Pincode: pincode,
				Date:    date.Format(schema.DateLayout),
				Error:   err.Error(),
			})
			continue
		}
		fc.Days = append(fc.Days, day)
		total += day.Footfall
		if succeeded == 0 || day.Footfall > fc.Peak.Footfall {
			fc.Peak = day
		}
		if succeeded == 0 || day.Footfall < fc.Low.Footfall {
			fc.Low = day
		}
		succeeded++
	}
	if succeeded == 0 {
		return RangeForecast{}, firstErr
	}
	fc.Total = total
	fc.Mean = float64(total) / float64(succeeded)
	fc.Failed = n - succeeded
	return fc, nil
}

// ComparisonItem is one pincode's entry in a multi-center comparison. Error
// is set (and Footfall meaningless) when that pincode failed; one bad
// pincode never fails the batch.
type ComparisonItem struct {
	Pincode  string   `json:"pincode"`
	Footfall int      `json:"predicted_footfall"`
	Warnings []string `json:"warnings,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// Compare forecasts the same date across several pincodes. Successful items
// come first, ordered by predicted footfall descending; ties keep the
// caller's order. Failed items follow, ordered by pincode.
func (p *Predictor) Compare(pincodes []string, date time.Time) ([]ComparisonItem, error) {
	if len(pincodes) == 0 {
		return nil, fmt.Errorf("no pincodes to compare")
	}
	art := p.current.Load()

	items := make([]ComparisonItem, 0, len(pincodes))
	for _, pincode := range pincodes {
		day, err := art.day(pincode, date)
		if err != nil {
			items = append(items, ComparisonItem{Pincode: pincode, Error: err.Error()})
			continue
		}
		items = append(items, ComparisonItem{
			Pincode:  pincode,
			Footfall: day.Footfall,
			Warnings: day.Warnings,
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if (a.Error == "") != (b.Error == "") {
			return a.Error == ""
		}
		if a.Error != "" {
			return a.Pincode < b.Pincode
		}
		return a.Footfall > b.Footfall
	})
	return items, nil
}
