package features

import (
	"fmt"
	"time"

	"github.com/enroll-data/footfall.report/internal/monitoring"
	"github.com/enroll-data/footfall.report/internal/schema"
)

// Engineer turns canonical observation records into the materialized feature
// table. It is a pure transformation: the same input always yields the same
// table, and no feature for date d reads observations at or after d.
type Engineer struct {
	cal *Calendar
}

// NewEngineer builds an engineer using the given holiday calendar.
func NewEngineer(cal *Calendar) *Engineer {
	return &Engineer{cal: cal}
}

// Build engineers the full feature table and its sidecar metadata from
// canonical records. The input is re-sorted by (pincode, date) internally;
// caller order is not trusted. Rows whose lag windows are undefined (the
// first maxLag observations of each pincode) are dropped and counted.
func (e *Engineer) Build(records []schema.Record) (*Table, *Metadata, error) {
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("no observations to engineer features from")
	}

	sorted := make([]schema.Record, len(records))
	copy(sorted, records)
	schema.SortRecords(sorted)

	// Frozen at build time and persisted; inference looks these up verbatim.
	enc := BuildEncodings(sorted)

	footfalls := make([]float64, len(sorted))
	for i, r := range sorted {
		footfalls[i] = r.Footfall
	}
	global := ComputeGlobalStats(footfalls)

	table := &Table{Names: FeatureNames()}

	for start := 0; start < len(sorted); {
		end := start
		for end < len(sorted) && sorted[end].Pincode == sorted[start].Pincode {
			end++
		}
		e.buildPincode(table, sorted[start:end], enc)
		start = end
	}
	table.buildIndex()

	monitoring.Logf("engineered %d feature rows (%d dropped for missing lag history)",
		len(table.Rows), table.Dropped)

	meta := &Metadata{
		FeatureNames: table.Names,
		Encodings:    enc,
		Global:       global,
		BuiltAt:      time.Now().UTC(),
		RowCount:     len(table.Rows),
		Dropped:      table.Dropped,
	}
	return table, meta, nil
}

// buildPincode engineers the rows for one pincode's time series (already
// sorted ascending by date).
func (e *Engineer) buildPincode(table *Table, series []schema.Record, enc Encodings) {
	prior := make([]float64, 0, len(series))

	for _, r := range series {
		f := make(map[string]float64, len(featureNames))
		setTemporal(f, r.Date, e.cal)

		// Calendar yesterday, not the previous row: gapped series must not
		// inherit the flag from a non-adjacent observation. Reconstruction
		// uses the same lookup.
		f["is_day_after_holiday"] = b2f(e.cal.IsHoliday(r.Date.AddDate(0, 0, -1)))

		setGeographic(f, r.District, r.State, r.CenterType, enc)

		ok := setLagsExact(f, prior)
		prior = append(prior, r.Footfall)
		if !ok {
			table.Dropped++
			continue
		}

		setInteractions(f)
		table.Rows = append(table.Rows, FeatureRow{
			Date:       r.Date,
			Pincode:    r.Pincode,
			Footfall:   r.Footfall,
			District:   r.District,
			State:      r.State,
			CenterType: r.CenterType,
			Features:   f,
		})
	}
}
