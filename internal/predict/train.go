package predict

import (
	"fmt"
	"sort"

	"github.com/enroll-data/footfall.report/internal/features"
	"github.com/enroll-data/footfall.report/internal/model"
	"github.com/enroll-data/footfall.report/internal/monitoring"
	"github.com/enroll-data/footfall.report/internal/obsdb"
)

// holdoutFraction of the most recent rows is held out for evaluation.
// The split is chronological; evaluating on randomly shuffled rows would
// leak future observations into training.
const holdoutFraction = 0.2

// Retrain builds a fresh artifact bundle from everything in the observation
// store: engineers the feature table, trains a model on the older rows,
// evaluates on the most recent ones, and persists the model artifact. The
// returned bundle is ready for Predictor.Swap.
func Retrain(db *obsdb.DB, cal *features.Calendar, params model.Params, store *model.Store) (*Artifacts, *model.Artifact, error) {
	records, err := db.All()
	if err != nil {
		return nil, nil, fmt.Errorf("load observations: %w", err)
	}

	table, meta, err := features.NewEngineer(cal).Build(records)
	if err != nil {
		return nil, nil, err
	}

	train, hold := chronoSplit(table)
	if len(train) == 0 {
		return nil, nil, fmt.Errorf("feature table too small to train on")
	}

	m, err := model.Train(vectors(train, meta.FeatureNames), targets(train), meta.FeatureNames, params)
	if err != nil {
		return nil, nil, err
	}

	metrics, err := evaluate(m, hold, meta.FeatureNames)
	if err != nil {
		return nil, nil, err
	}
	monitoring.Logf("holdout evaluation: mae %.2f rmse %.2f r2 %.3f mape %.1f%% (n=%d)",
		metrics.MAE, metrics.RMSE, metrics.R2, metrics.MAPE, metrics.N)

	art, err := store.Save(m, metrics)
	if err != nil {
		return nil, nil, err
	}

	bundle := &Artifacts{
		Table: table,
		Meta:  meta,
		Recon: features.NewReconstructor(table, meta, cal, StoreSource{DB: db}),
		Model: m,
	}
	return bundle, art, nil
}

// chronoSplit orders rows by date and holds out the trailing fraction.
func chronoSplit(table *features.Table) (train, hold []features.FeatureRow) {
	rows := make([]features.FeatureRow, len(table.Rows))
	copy(rows, table.Rows)
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })

	cut := len(rows) - int(float64(len(rows))*holdoutFraction)
	if cut <= 0 || cut >= len(rows) {
		return rows, nil
	}
	return rows[:cut], rows[cut:]
}

func vectors(rows []features.FeatureRow, names []string) [][]float64 {
	out := make([][]float64, len(rows))
	for i, r := range rows {
		out[i] = r.Vector(names)
	}
	return out
}

func targets(rows []features.FeatureRow) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = r.Footfall
	}
	return out
}

// evaluate scores the model on held-out rows. Tiny tables with nothing held
// out record zero metrics rather than scoring on training rows.
func evaluate(m *model.GBT, hold []features.FeatureRow, names []string) (model.Metrics, error) {
	if len(hold) == 0 {
		return model.Metrics{}, nil
	}
	pred, err := m.Predict(vectors(hold, names))
	if err != nil {
		return model.Metrics{}, err
	}
	return model.Evaluate(targets(hold), pred)
}
