package features

import (
	"errors"
	"fmt"
	"time"

	"github.com/enroll-data/footfall.report/internal/monitoring"
	"github.com/enroll-data/footfall.report/internal/schema"
)

// ErrUnknownPincode reports a prediction request for a pincode absent from
// the historical store. Callers decide whether to skip (batch comparisons)
// or abort (single predictions).
var ErrUnknownPincode = errors.New("unknown pincode")

// ShapeError reports a reconstructed feature vector whose columns do not
// align with the regressor's trained feature set. It indicates drift between
// the persisted encodings/table and the model and is never recovered
// locally.
type ShapeError struct {
	Got, Want int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("feature vector has %d columns, model wants %d", e.Got, e.Want)
}

// CenterInfo is the static metadata the reconstructor needs for a pincode.
type CenterInfo struct {
	District   string
	State      string
	CenterType string
}

// HistorySource supplies the reconstructor with trailing history and center
// metadata. The observation store implements it (see predict.StoreSource);
// tests supply fixtures.
type HistorySource interface {
	// FootfallBefore returns the pincode's footfall values strictly before
	// the given date, oldest first.
	FootfallBefore(pincode string, before time.Time) ([]float64, error)

	// CenterInfo returns the pincode's metadata; ok is false when the
	// pincode has no observations at all.
	CenterInfo(pincode string) (info CenterInfo, ok bool, err error)
}

// Reconstructor produces, for any (pincode, date) pair, the exact feature
// vector the Engineer would have materialized, sourcing lag values from
// trailing history instead of a precomputed table. It is a pure function of
// the table, the persisted metadata, and the history source; safe for
// concurrent use.
type Reconstructor struct {
	table  *Table
	meta   *Metadata
	cal    *Calendar
	source HistorySource
}

// NewReconstructor wires a reconstructor to the materialized table, its
// metadata (feature order, encodings, global stats), the holiday calendar,
// and the historical store.
func NewReconstructor(table *Table, meta *Metadata, cal *Calendar, source HistorySource) *Reconstructor {
	return &Reconstructor{table: table, meta: meta, cal: cal, source: source}
}

// Names returns the authoritative feature column order.
func (r *Reconstructor) Names() []string {
	return r.meta.FeatureNames
}

// Row builds the feature row for (pincode, target). For dates already
// materialized in the table it returns the stored row unchanged, guaranteeing
// bit-exact agreement with training data. For other dates (typically future)
// it recomputes every feature with the shared definitions, substituting for
// missing history per the documented rules. The returned warnings list the
// substitutions applied; a non-empty list means the prediction rests on thin
// history.
func (r *Reconstructor) Row(pincode string, target time.Time) (FeatureRow, []string, error) {
	if row, ok := r.table.Lookup(pincode, target); ok {
		return row, nil, nil
	}

	info, ok, err := r.source.CenterInfo(pincode)
	if err != nil {
		return FeatureRow{}, nil, fmt.Errorf("center info for %s: %w", pincode, err)
	}
	if !ok {
		return FeatureRow{}, nil, fmt.Errorf("%w: %s", ErrUnknownPincode, pincode)
	}

	f := make(map[string]float64, len(r.meta.FeatureNames))
	setTemporal(f, target, r.cal)
	f["is_day_after_holiday"] = b2f(r.cal.IsHoliday(target.AddDate(0, 0, -1)))

	setGeographic(f, info.District, info.State, info.CenterType, r.meta.Encodings)

	prior, err := r.source.FootfallBefore(pincode, target)
	if err != nil {
		return FeatureRow{}, nil, fmt.Errorf("history for %s: %w", pincode, err)
	}
	warnings := setLagsSubstituted(f, prior, r.meta.Global)
	for _, w := range warnings {
		monitoring.Warnf("%s %s: %s", pincode, target.Format(schema.DateLayout), w)
	}

	setInteractions(f)

	return FeatureRow{
		Date:       target,
		Pincode:    pincode,
		District:   info.District,
		State:      info.State,
		CenterType: info.CenterType,
		Features:   f,
	}, warnings, nil
}

// Vector builds the aligned feature vector for (pincode, target): the row's
// features flattened into the persisted column order, zero-filled for any
// training column the row lacks.
func (r *Reconstructor) Vector(pincode string, target time.Time) ([]float64, []string, error) {
	row, warnings, err := r.Row(pincode, target)
	if err != nil {
		return nil, nil, err
	}
	return row.Vector(r.meta.FeatureNames), warnings, nil
}
