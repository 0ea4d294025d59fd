// Package loader ingests real footfall extracts: CSV in whatever column
// spelling the source system uses, reconciled to the canonical schema and
// batch-inserted into the observation store.
package loader

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/enroll-data/footfall.report/internal/monitoring"
	"github.com/enroll-data/footfall.report/internal/obsdb"
	"github.com/enroll-data/footfall.report/internal/schema"
)

// Report summarises one ingest: what was read, what the reconciler changed,
// and what reached the store.
type Report struct {
	Read       int          `json:"rows_read"`
	Inserted   int          `json:"rows_inserted"`
	Duplicates int          `json:"duplicates_dropped"`
	Fixes      []schema.Fix `json:"fixes,omitempty"`
}

// ReadCSV parses a raw extract into header-keyed rows. Cell values are kept
// verbatim; reconciliation happens later.
func ReadCSV(path string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open extract: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read extract header: %w", err)
	}

	var rows []map[string]string
	for line := 2; ; line++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read extract line %d: %w", line, err)
		}
		row := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(rec) {
				row[col] = rec[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Load reads, reconciles, and stores one extract. Duplicate (pincode, date)
// pairs within the file keep the first occurrence; duplicates against rows
// already in the store fail the batch.
func Load(db *obsdb.DB, path string) (*Report, error) {
	rows, err := ReadCSV(path)
	if err != nil {
		return nil, err
	}

	records, fixes, err := schema.Reconcile(rows)
	if err != nil {
		return nil, err
	}
	for _, fix := range fixes {
		monitoring.Logf("reconciled %s: %s (%s)", fix.Column, fix.Action, fix.Detail)
	}

	deduped, dropped := dedupe(records)
	if dropped > 0 {
		monitoring.Warnf("extract %s: dropped %d duplicate (pincode, date) rows", path, dropped)
	}

	if err := db.InsertBatch(deduped); err != nil {
		return nil, err
	}
	monitoring.Logf("loaded %d observations from %s", len(deduped), path)

	return &Report{
		Read:       len(rows),
		Inserted:   len(deduped),
		Duplicates: dropped,
		Fixes:      fixes,
	}, nil
}

// Export writes the full observation table as canonical CSV, the inverse of
// Load. The output reconciles as a no-op, so an exported file can seed
// another store.
func Export(db *obsdb.DB, path string) (int, error) {
	records, err := db.All()
	if err != nil {
		return 0, err
	}
	schema.SortRecords(records)

	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create export: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(schema.RequiredColumns); err != nil {
		return 0, fmt.Errorf("write export header: %w", err)
	}
	for _, r := range records {
		row := r.Row()
		line := make([]string, len(schema.RequiredColumns))
		for i, col := range schema.RequiredColumns {
			line[i] = row[col]
		}
		if err := w.Write(line); err != nil {
			return 0, fmt.Errorf("write export row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return 0, fmt.Errorf("flush export: %w", err)
	}
	return len(records), nil
}

// dedupe keeps the first record per (pincode, date).
func dedupe(records []schema.Record) ([]schema.Record, int) {
	seen := make(map[string]bool, len(records))
	out := records[:0:0]
	for _, r := range records {
		key := r.Pincode + "|" + r.Date.Format(schema.DateLayout)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	return out, len(records) - len(out)
}
