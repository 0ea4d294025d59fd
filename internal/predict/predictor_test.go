package predict

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enroll-data/footfall.report/internal/features"
	"github.com/enroll-data/footfall.report/internal/fsutil"
	"github.com/enroll-data/footfall.report/internal/model"
	"github.com/enroll-data/footfall.report/internal/obsdb"
	"github.com/enroll-data/footfall.report/internal/schema"
)

var testStart = time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC) // a Monday

// seedCenter inserts days consecutive observations with a weekday/weekend
// pattern around the given level.
func seedCenter(t *testing.T, db *obsdb.DB, pincode, district, state, centerType string, level float64, days int) {
	t.Helper()

	records := make([]schema.Record, 0, days)
	for i := 0; i < days; i++ {
		date := testStart.AddDate(0, 0, i)
		footfall := level
		if wd := date.Weekday(); wd == time.Saturday || wd == time.Sunday {
			footfall = level * 0.6
		}
		records = append(records, schema.Record{
			Date: date, Pincode: pincode, Footfall: footfall,
			District: district, State: state, CenterType: centerType,
		})
	}
	require.NoError(t, db.InsertBatch(records))
}

// newTestWorld seeds two centers, retrains, and returns the serving pieces.
func newTestWorld(t *testing.T) (*obsdb.DB, *Predictor, *model.Store) {
	t.Helper()

	db, err := obsdb.NewDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	seedCenter(t, db, "110001", "Central Delhi", "Delhi", schema.CenterUrban, 250, 120)
	seedCenter(t, db, "400001", "Mumbai City", "Maharashtra", schema.CenterUrban, 150, 120)

	store, err := model.NewStore("models", fsutil.NewMemoryFileSystem())
	require.NoError(t, err)

	bundle, art, err := Retrain(db, features.DefaultCalendar(), model.Params{Rounds: 120}, store)
	require.NoError(t, err)
	require.NotEmpty(t, art.ID)

	return db, NewPredictor(bundle), store
}

func TestDayPrediction(t *testing.T) {
	t.Parallel()

	_, p, _ := newTestWorld(t)
	target := testStart.AddDate(0, 0, 120) // first day past the data

	got, err := p.Day("110001", target)
	require.NoError(t, err)
	assert.Equal(t, "110001", got.Pincode)
	assert.Equal(t, target.Format(schema.DateLayout), got.Date)
	assert.Empty(t, got.Warnings, "full history needs no substitutions")
	assert.InDelta(t, 250, got.Footfall, 80)
}

func TestDayUnknownPincode(t *testing.T) {
	t.Parallel()

	_, p, _ := newTestWorld(t)
	_, err := p.Day("000000", testStart.AddDate(0, 0, 120))
	assert.ErrorIs(t, err, features.ErrUnknownPincode)
}

func TestWeekForecast(t *testing.T) {
	t.Parallel()

	_, p, _ := newTestWorld(t)
	start := testStart.AddDate(0, 0, 126) // a Monday past the data

	fc, err := p.Week("110001", start)
	require.NoError(t, err)
	require.Len(t, fc.Days, 7)

	total := 0
	for i, day := range fc.Days {
		assert.Equal(t, start.AddDate(0, 0, i).Format(schema.DateLayout), day.Date)
		assert.GreaterOrEqual(t, day.Footfall, 0)
		total += day.Footfall
	}
	assert.Equal(t, total, fc.Total)
	assert.InDelta(t, float64(total)/7, fc.Mean, 1e-9)
	assert.GreaterOrEqual(t, fc.Peak.Footfall, fc.Low.Footfall)
	assert.InDelta(t, 250, float64(fc.Peak.Footfall), 120, "peak stays near the training level")
}

func TestMonthForecast(t *testing.T) {
	t.Parallel()

	_, p, _ := newTestWorld(t)
	fc, err := p.Month("400001", 2025, time.June)
	require.NoError(t, err)
	require.Len(t, fc.Days, 30)
	assert.Equal(t, "2025-06-01", fc.Days[0].Date)
	assert.Equal(t, "2025-06-30", fc.Days[29].Date)
}

func TestRangeRejectsBadHorizon(t *testing.T) {
	t.Parallel()

	_, p, _ := newTestWorld(t)
	_, err := p.Range("110001", testStart, 0)
	assert.Error(t, err)
	_, err = p.Range("110001", testStart, -5)
	assert.Error(t, err)
}

func TestCompareOrdering(t *testing.T) {
	t.Parallel()

	_, p, _ := newTestWorld(t)
	target := testStart.AddDate(0, 0, 121)

	items, err := p.Compare([]string{"400001", "999999", "110001"}, target)
	require.NoError(t, err)
	require.Len(t, items, 3)

	// Successes first, busiest center first, failures last.
	assert.Equal(t, "110001", items[0].Pincode)
	assert.Empty(t, items[0].Error)
	assert.Equal(t, "400001", items[1].Pincode)
	assert.Empty(t, items[1].Error)
	assert.GreaterOrEqual(t, items[0].Footfall, items[1].Footfall)

	assert.Equal(t, "999999", items[2].Pincode)
	assert.NotEmpty(t, items[2].Error)

	_, err = p.Compare(nil, target)
	assert.Error(t, err)
}

// fixedModel predicts a constant, whatever the input.
type fixedModel struct {
	value float64
	width int
}

func (m fixedModel) NumFeatures() int { return m.width }

func (m fixedModel) Predict(vectors [][]float64) ([]float64, error) {
	out := make([]float64, len(vectors))
	for i := range out {
		out[i] = m.value
	}
	return out, nil
}

// failAfterModel succeeds for the first left predictions, then errors.
type failAfterModel struct {
	width int
	left  int
}

func (m *failAfterModel) NumFeatures() int { return m.width }

func (m *failAfterModel) Predict(vectors [][]float64) ([]float64, error) {
	if m.left <= 0 {
		return nil, errors.New("scoring backend unavailable")
	}
	m.left--
	out := make([]float64, len(vectors))
	for i := range out {
		out[i] = 100
	}
	return out, nil
}

func TestCompareTiesKeepInputOrder(t *testing.T) {
	t.Parallel()

	_, p, _ := newTestWorld(t)
	old := p.Artifacts()
	p.Swap(&Artifacts{
		Table: old.Table,
		Meta:  old.Meta,
		Recon: old.Recon,
		Model: fixedModel{value: 42, width: len(old.Meta.FeatureNames)},
	})

	items, err := p.Compare([]string{"400001", "110001"}, testStart.AddDate(0, 0, 121))
	require.NoError(t, err)
	require.Len(t, items, 2)

	// Every prediction ties at 42; the caller's order stands.
	assert.Equal(t, items[0].Footfall, items[1].Footfall)
	assert.Equal(t, "400001", items[0].Pincode)
	assert.Equal(t, "110001", items[1].Pincode)
}

func TestRangeReportsPerDayFailures(t *testing.T) {
	t.Parallel()

	_, p, _ := newTestWorld(t)
	old := p.Artifacts()
	p.Swap(&Artifacts{
		Table: old.Table,
		Meta:  old.Meta,
		Recon: old.Recon,
		Model: &failAfterModel{width: len(old.Meta.FeatureNames), left: 4},
	})

	fc, err := p.Week("110001", testStart.AddDate(0, 0, 121))
	require.NoError(t, err)
	require.Len(t, fc.Days, 7)
	assert.Equal(t, 3, fc.Failed)

	for _, day := range fc.Days[:4] {
		assert.Empty(t, day.Error)
		assert.Equal(t, 100, day.Footfall)
	}
	for _, day := range fc.Days[4:] {
		assert.NotEmpty(t, day.Error)
	}

	// Aggregates cover the successful days only.
	assert.Equal(t, 400, fc.Total)
	assert.InDelta(t, 100, fc.Mean, 1e-9)

	// When every day fails the call itself fails.
	p.Swap(&Artifacts{
		Table: old.Table,
		Meta:  old.Meta,
		Recon: old.Recon,
		Model: &failAfterModel{width: len(old.Meta.FeatureNames)},
	})
	_, err = p.Week("110001", testStart.AddDate(0, 0, 121))
	assert.Error(t, err)
}

func TestSwapReplacesBundle(t *testing.T) {
	t.Parallel()

	_, p, _ := newTestWorld(t)
	target := testStart.AddDate(0, 0, 121)

	before, err := p.Day("110001", target)
	require.NoError(t, err)

	old := p.Artifacts()
	p.Swap(&Artifacts{
		Table: old.Table,
		Meta:  old.Meta,
		Recon: old.Recon,
		Model: fixedModel{value: 42, width: len(old.Meta.FeatureNames)},
	})

	after, err := p.Day("110001", target)
	require.NoError(t, err)
	assert.Equal(t, 42, after.Footfall)
	assert.NotEqual(t, before.Footfall, after.Footfall)
}

func TestRetrainPromotesArtifact(t *testing.T) {
	t.Parallel()

	_, _, store := newTestWorld(t)
	require.True(t, store.HasCurrent())

	art, err := store.LoadCurrent()
	require.NoError(t, err)
	assert.Greater(t, art.Metrics.N, 0, "holdout evaluation recorded")
	assert.NotEmpty(t, art.Model.Stumps)
}

func TestColdStartPredictionIsDeterministic(t *testing.T) {
	t.Parallel()

	db, p, _ := newTestWorld(t)

	// A center known to the store but with all observations after the target:
	// cold start, served from global defaults.
	require.NoError(t, db.Insert(schema.Record{
		Date: testStart.AddDate(2, 0, 0), Pincode: "560001", Footfall: 90,
		District: "Bangalore Urban", State: "Karnataka", CenterType: schema.CenterRural,
	}))

	target := testStart.AddDate(1, 0, 0)
	a, err := p.Day("560001", target)
	require.NoError(t, err)
	require.NotEmpty(t, a.Warnings)

	b, err := p.Day("560001", target)
	require.NoError(t, err)
	assert.Equal(t, a.Footfall, b.Footfall)
}
