package obsdb

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/enroll-data/footfall.report/internal/schema"
)

// Info is the static metadata for one enrollment center, taken from its
// earliest observation.
type Info struct {
	Pincode    string `json:"pincode"`
	District   string `json:"district"`
	State      string `json:"state"`
	CenterType string `json:"center_type"`
}

// Insert appends one observation. Duplicate (pincode, date) pairs violate
// the store invariant and return an error.
func (db *DB) Insert(r schema.Record) error {
	_, err := db.Exec(
		`INSERT INTO observations (pincode, date, footfall, district, state, center_type)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		r.Pincode, r.Date.Format(schema.DateLayout), r.Footfall,
		r.District, r.State, r.CenterType,
	)
	if err != nil {
		return fmt.Errorf("insert observation %s/%s: %w",
			r.Pincode, r.Date.Format(schema.DateLayout), err)
	}
	return nil
}

// InsertBatch appends records inside a single transaction. The whole batch
// is rolled back if any record fails.
func (db *DB) InsertBatch(records []schema.Record) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin batch insert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO observations (pincode, date, footfall, district, state, center_type)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare batch insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.Exec(
			r.Pincode, r.Date.Format(schema.DateLayout), r.Footfall,
			r.District, r.State, r.CenterType,
		); err != nil {
			return fmt.Errorf("insert observation %s/%s: %w",
				r.Pincode, r.Date.Format(schema.DateLayout), err)
		}
	}
	return tx.Commit()
}

// All returns every observation ordered by (pincode, date) ascending, the
// order feature engineering expects.
func (db *DB) All() ([]schema.Record, error) {
	return db.queryRecords(
		`SELECT pincode, date, footfall, district, state, center_type
		 FROM observations ORDER BY pincode, date`)
}

// History returns the full time series for one pincode, oldest first.
func (db *DB) History(pincode string) ([]schema.Record, error) {
	return db.queryRecords(
		`SELECT pincode, date, footfall, district, state, center_type
		 FROM observations WHERE pincode = ? ORDER BY date`, pincode)
}

// HistoryBefore returns the pincode's observations strictly before the given
// date, oldest first. This is the leakage-safe slice the feature
// reconstructor sources lag values from.
func (db *DB) HistoryBefore(pincode string, before time.Time) ([]schema.Record, error) {
	return db.queryRecords(
		`SELECT pincode, date, footfall, district, state, center_type
		 FROM observations WHERE pincode = ? AND date < ? ORDER BY date`,
		pincode, before.Format(schema.DateLayout))
}

// FootfallBefore returns just the footfall values strictly before the given
// date for one pincode, oldest first.
func (db *DB) FootfallBefore(pincode string, before time.Time) ([]float64, error) {
	rows, err := db.Query(
		`SELECT footfall FROM observations
		 WHERE pincode = ? AND date < ? ORDER BY date`,
		pincode, before.Format(schema.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("query footfall history: %w", err)
	}
	defer rows.Close()

	var values []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// Pincodes returns the distinct pincodes in the store, sorted.
func (db *DB) Pincodes() ([]string, error) {
	rows, err := db.Query(`SELECT DISTINCT pincode FROM observations ORDER BY pincode`)
	if err != nil {
		return nil, fmt.Errorf("query pincodes: %w", err)
	}
	defer rows.Close()

	var pincodes []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		pincodes = append(pincodes, p)
	}
	return pincodes, rows.Err()
}

// PincodeInfo returns the static metadata for one pincode, or sql.ErrNoRows
// wrapped if the pincode has no observations.
func (db *DB) PincodeInfo(pincode string) (Info, error) {
	var info Info
	err := db.QueryRow(
		`SELECT pincode, district, state, center_type FROM observations
		 WHERE pincode = ? ORDER BY date LIMIT 1`, pincode).
		Scan(&info.Pincode, &info.District, &info.State, &info.CenterType)
	if err == sql.ErrNoRows {
		return Info{}, fmt.Errorf("pincode %s: %w", pincode, err)
	}
	if err != nil {
		return Info{}, fmt.Errorf("query pincode info: %w", err)
	}
	return info, nil
}

// Count returns the total number of observations.
func (db *DB) Count() (int, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM observations`).Scan(&n)
	return n, err
}

// DateRange returns the earliest and latest observation dates in the store.
func (db *DB) DateRange() (first, last time.Time, err error) {
	var lo, hi sql.NullString
	err = db.QueryRow(`SELECT MIN(date), MAX(date) FROM observations`).Scan(&lo, &hi)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if !lo.Valid || !hi.Valid {
		return time.Time{}, time.Time{}, fmt.Errorf("observation store is empty")
	}
	if first, err = time.Parse(schema.DateLayout, lo.String); err != nil {
		return time.Time{}, time.Time{}, err
	}
	if last, err = time.Parse(schema.DateLayout, hi.String); err != nil {
		return time.Time{}, time.Time{}, err
	}
	return first, last, nil
}

func (db *DB) queryRecords(query string, args ...interface{}) ([]schema.Record, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query observations: %w", err)
	}
	defer rows.Close()

	var records []schema.Record
	for rows.Next() {
		var r schema.Record
		var date string
		if err := rows.Scan(&r.Pincode, &date, &r.Footfall, &r.District, &r.State, &r.CenterType); err != nil {
			return nil, err
		}
		if r.Date, err = time.Parse(schema.DateLayout, date); err != nil {
			return nil, fmt.Errorf("stored date %q: %w", date, err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
