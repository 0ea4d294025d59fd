package features

import (
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/enroll-data/footfall.report/internal/schema"
)

// Lag and rolling window spans, in trailing observations.
var lagWindows = []int{7, 14, 30}

// maxLag is the longest lag; rows without that much prior history have
// undefined lag features and are dropped from the bulk table.
const maxLag = 30

// featureNames is the canonical feature ordering: the column contract
// between the engineered table, the trained model, and reconstructed
// vectors. Order matters and is persisted in the table metadata.
var featureNames = []string{
	// temporal
	"day_of_week", "is_weekend", "is_monday",
	"month", "quarter", "week_of_month", "day_of_month", "is_first_week",
	"is_holiday", "is_day_after_holiday",
	"is_enrollment_season", "is_pension_month", "is_festival_season",
	"day_of_year",

	// geographic
	"center_type_encoded", "is_urban", "is_rural",
	"state_encoded", "district_encoded",

	// historical
	"footfall_lag_7", "footfall_lag_14", "footfall_lag_30",
	"footfall_rolling_mean_7", "footfall_rolling_mean_14", "footfall_rolling_mean_30",
	"footfall_rolling_std_7", "footfall_rolling_std_14", "footfall_rolling_std_30",
	"footfall_rolling_max_7", "footfall_rolling_max_14", "footfall_rolling_max_30",
	"footfall_rolling_min_7", "footfall_rolling_min_14", "footfall_rolling_min_30",
	"lag_ratio_7_to_30",

	// interactions
	"rural_pension_interaction", "urban_enrollment_interaction",
	"monday_first_week", "weekend_holiday",
}

// FeatureNames returns a copy of the canonical feature ordering.
func FeatureNames() []string {
	names := make([]string, len(featureNames))
	copy(names, featureNames)
	return names
}

// dayOfWeek converts Go's Sunday-based weekday to Monday=0..Sunday=6.
func dayOfWeek(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

func weekOfMonth(t time.Time) int {
	return (t.Day()-1)/7 + 1
}

func b2f(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// setTemporal fills every date-derived feature except is_day_after_holiday,
// which the two call sites source differently (per-entity shift in the bulk
// build, calendar lookup of the previous day at reconstruction).
func setTemporal(f map[string]float64, t time.Time, cal *Calendar) {
	dow := dayOfWeek(t)
	wom := weekOfMonth(t)
	month := int(t.Month())

	f["day_of_week"] = float64(dow)
	f["is_weekend"] = b2f(dow >= 5)
	f["is_monday"] = b2f(dow == 0)
	f["month"] = float64(month)
	f["quarter"] = float64((month-1)/3 + 1)
	f["week_of_month"] = float64(wom)
	f["day_of_month"] = float64(t.Day())
	f["is_first_week"] = b2f(wom == 1)
	f["is_holiday"] = b2f(cal.IsHoliday(t))
	f["is_enrollment_season"] = b2f(month == 6 || month == 7)
	f["is_pension_month"] = b2f(month == 11)
	f["is_festival_season"] = b2f(month == 10)
	f["day_of_year"] = float64(t.YearDay())
}

// setGeographic fills the ordinal center-type features and the label-encoded
// district/state, using the training-time encoding table.
func setGeographic(f map[string]float64, district, state, centerType string, enc Encodings) {
	f["center_type_encoded"] = float64(CenterTypeOrdinal(centerType))
	f["is_urban"] = b2f(centerType == schema.CenterUrban)
	f["is_rural"] = b2f(centerType == schema.CenterRural)
	f["state_encoded"] = float64(enc.StateIndex(state))
	f["district_encoded"] = float64(enc.DistrictIndex(district))
}

// setInteractions fills the pairwise indicator products. All inputs are
// already-computed 0/1 features; no independent logic lives here.
func setInteractions(f map[string]float64) {
	f["rural_pension_interaction"] = f["is_rural"] * f["is_pension_month"]
	f["urban_enrollment_interaction"] = f["is_urban"] * f["is_enrollment_season"]
	f["monday_first_week"] = f["is_monday"] * f["is_first_week"]
	f["weekend_holiday"] = f["is_weekend"] * f["is_holiday"]
}

// setLagRatio fills the trend-vs-average ratio from the already-set lag
// features.
func setLagRatio(f map[string]float64) {
	f["lag_ratio_7_to_30"] = f["footfall_lag_7"] / (f["footfall_rolling_mean_30"] + 1)
}

// tail returns the trailing w elements of prior (all of them when fewer).
func tail(prior []float64, w int) []float64 {
	if len(prior) <= w {
		return prior
	}
	return prior[len(prior)-w:]
}

// sampleStd is the sample standard deviation, defined as 0 for windows too
// short to estimate spread. Lag features must never be NaN.
func sampleStd(window []float64) float64 {
	if len(window) < 2 {
		return 0
	}
	return stat.StdDev(window, nil)
}

// setRolling fills the rolling mean/std/max/min features for every window
// span from prior values (oldest first, strictly before the target row).
// Windows shorter than their span still produce values from what is
// available (min-periods 1). prior must be non-empty.
func setRolling(f map[string]float64, prior []float64) {
	for i, w := range lagWindows {
		window := tail(prior, w)
		f[rollingNames.mean[i]] = stat.Mean(window, nil)
		f[rollingNames.std[i]] = sampleStd(window)
		f[rollingNames.max[i]] = floats.Max(window)
		f[rollingNames.min[i]] = floats.Min(window)
	}
}

// windowNames caches the per-window feature names so the two lag paths
// cannot drift apart on naming.
type windowNames struct {
	lag, mean, std, max, min []string
}

var rollingNames = windowNames{
	lag:  []string{"footfall_lag_7", "footfall_lag_14", "footfall_lag_30"},
	mean: []string{"footfall_rolling_mean_7", "footfall_rolling_mean_14", "footfall_rolling_mean_30"},
	std:  []string{"footfall_rolling_std_7", "footfall_rolling_std_14", "footfall_rolling_std_30"},
	max:  []string{"footfall_rolling_max_7", "footfall_rolling_max_14", "footfall_rolling_max_30"},
	min:  []string{"footfall_rolling_min_7", "footfall_rolling_min_14", "footfall_rolling_min_30"},
}

// setLagsExact fills lag and rolling features when the full maxLag of prior
// history exists. Returns false when the row's lag features are undefined;
// such rows are dropped from the bulk table.
func setLagsExact(f map[string]float64, prior []float64) bool {
	if len(prior) < maxLag {
		return false
	}
	for i, k := range lagWindows {
		f[rollingNames.lag[i]] = prior[len(prior)-k]
	}
	setRolling(f, prior)
	setLagRatio(f)
	return true
}

// GlobalStats are the training table's footfall summary statistics,
// persisted with the table metadata. They supply the cold-start defaults at
// reconstruction time instead of dataset-specific literals.
type GlobalStats struct {
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
	Max   float64 `json:"max"`
	Min   float64 `json:"min"`
	Count int     `json:"count"`
}

// Cold-start fallbacks used only when no global stats were persisted.
const (
	fallbackMean = 100
	fallbackStd  = 10
	fallbackMax  = 150
	fallbackMin  = 50
)

// ComputeGlobalStats summarises the raw footfall values of the training
// table.
func ComputeGlobalStats(values []float64) GlobalStats {
	if len(values) == 0 {
		return GlobalStats{}
	}
	return GlobalStats{
		Mean:  stat.Mean(values, nil),
		Std:   sampleStd(values),
		Max:   floats.Max(values),
		Min:   floats.Min(values),
		Count: len(values),
	}
}

// orFallback returns the persisted stats, or the documented literal
// fallbacks when none were recorded.
func (g GlobalStats) orFallback() GlobalStats {
	if g.Count > 0 {
		return g
	}
	return GlobalStats{Mean: fallbackMean, Std: fallbackStd, Max: fallbackMax, Min: fallbackMin}
}

// setLagsSubstituted fills lag and rolling features from whatever history is
// available, per the inference substitution rules: cold-start entities get
// the global-stat defaults, short histories substitute the mean of available
// history for undefined lags. Inference never propagates nulls into the
// regressor. Returns human-readable warnings for every substitution made.
func setLagsSubstituted(f map[string]float64, prior []float64, global GlobalStats) []string {
	if len(prior) == 0 {
		g := global.orFallback()
		for i := range lagWindows {
			f[rollingNames.lag[i]] = g.Mean
			f[rollingNames.mean[i]] = g.Mean
			f[rollingNames.std[i]] = g.Std
			f[rollingNames.max[i]] = g.Max
			f[rollingNames.min[i]] = g.Min
		}
		setLagRatio(f)
		return []string{"no history: lag features use global defaults"}
	}

	var warnings []string
	for i, k := range lagWindows {
		if len(prior) >= k {
			f[rollingNames.lag[i]] = prior[len(prior)-k]
			continue
		}
		f[rollingNames.lag[i]] = stat.Mean(prior, nil)
		warnings = append(warnings,
			"history shorter than "+rollingNames.lag[i]+": substituted mean of available history")
	}
	setRolling(f, prior)
	setLagRatio(f)
	return warnings
}
