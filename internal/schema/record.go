// Package schema defines the canonical observation record for the footfall
// pipeline and the reconciler that normalises arbitrary input tables into it.
//
// Every downstream component (feature engineering, training, prediction)
// operates on typed Records; loosely-typed column lookups stop at this
// package boundary.
package schema

import (
	"fmt"
	"sort"
	"time"
)

// Canonical center type values.
const (
	CenterUrban     = "Urban"
	CenterRural     = "Rural"
	CenterSemiUrban = "Semi-Urban"
)

// DateLayout is the canonical on-disk date format for all tabular files.
const DateLayout = "2006-01-02"

// PincodeWidth is the fixed width pincodes are padded to, so numeric and
// string sources produce the same keys.
const PincodeWidth = 6

// Record is one canonical observation: the daily visitor count for one
// enrollment center. Immutable once ingested; uniquely keyed by
// (Pincode, Date).
type Record struct {
	Date       time.Time
	Pincode    string
	Footfall   float64
	District   string
	State      string
	CenterType string
}

// Row converts the record back into a raw row keyed by canonical column
// names. Reconciling the result is a no-op.
func (r Record) Row() map[string]string {
	return map[string]string{
		ColDate:       r.Date.Format(DateLayout),
		ColPincode:    r.Pincode,
		ColFootfall:   fmt.Sprintf("%g", r.Footfall),
		ColDistrict:   r.District,
		ColState:      r.State,
		ColCenterType: r.CenterType,
	}
}

// SortRecords orders records by (pincode, date) ascending, the order the
// feature engineer requires.
func SortRecords(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Pincode != records[j].Pincode {
			return records[i].Pincode < records[j].Pincode
		}
		return records[i].Date.Before(records[j].Date)
	})
}
