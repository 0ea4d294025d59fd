package features

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/enroll-data/footfall.report/internal/schema"
)

// FeatureRow is one materialized row of the supervised learning table: the
// feature map for a (pincode, date) pair plus the target and the raw
// categorical attributes the encodings were derived from. Footfall is the
// training target and is never part of the feature vector.
type FeatureRow struct {
	Date       time.Time
	Pincode    string
	Footfall   float64
	District   string
	State      string
	CenterType string
	Features   map[string]float64
}

// Vector flattens the row's features into the given column order. Features
// present in names but absent from the row are zero-filled, never dropped,
// so the vector length always equals len(names).
func (r FeatureRow) Vector(names []string) []float64 {
	v := make([]float64, len(names))
	for i, name := range names {
		v[i] = r.Features[name]
	}
	return v
}

// Table is the materialized feature table for all (pincode, date) pairs with
// fully defined lag windows. Immutable after Build; the prediction layer
// swaps whole tables, never mutates one.
type Table struct {
	Names   []string
	Rows    []FeatureRow
	Dropped int // rows removed because lag windows were undefined

	index map[string]map[string]int // pincode -> date -> row position
}

func (t *Table) buildIndex() {
	t.index = make(map[string]map[string]int)
	for i, row := range t.Rows {
		byDate, ok := t.index[row.Pincode]
		if !ok {
			byDate = make(map[string]int)
			t.index[row.Pincode] = byDate
		}
		byDate[row.Date.Format(schema.DateLayout)] = i
	}
}

// Lookup returns the materialized row for (pincode, date), if present.
func (t *Table) Lookup(pincode string, date time.Time) (FeatureRow, bool) {
	byDate, ok := t.index[pincode]
	if !ok {
		return FeatureRow{}, false
	}
	i, ok := byDate[date.Format(schema.DateLayout)]
	if !ok {
		return FeatureRow{}, false
	}
	return t.Rows[i], true
}

// HasPincode reports whether the table contains any row for the pincode.
func (t *Table) HasPincode(pincode string) bool {
	_, ok := t.index[pincode]
	return ok
}

// Pincodes returns the distinct pincodes in the table, sorted.
func (t *Table) Pincodes() []string {
	pincodes := make([]string, 0, len(t.index))
	for p := range t.index {
		pincodes = append(pincodes, p)
	}
	sort.Strings(pincodes)
	return pincodes
}

// Metadata is the sidecar artifact persisted next to the feature table: the
// authoritative column order, the frozen categorical encodings, and the
// training table's global footfall statistics. Training and inference must
// read the same copy.
type Metadata struct {
	FeatureNames []string    `json:"feature_names"`
	Encodings    Encodings   `json:"encodings"`
	Global       GlobalStats `json:"global_stats"`
	BuiltAt      time.Time   `json:"built_at"`
	RowCount     int         `json:"row_count"`
	Dropped      int         `json:"dropped_rows"`
}

// WriteCSV persists the feature table: key columns, target, raw categorical
// columns, then the feature columns in canonical order.
func (t *Table) WriteCSV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create feature table: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := append([]string{"date", "pincode", "footfall", "district", "state", "center_type"},
		t.Names...)
	if err := w.Write(header); err != nil {
		return err
	}

	rec := make([]string, len(header))
	for _, row := range t.Rows {
		rec[0] = row.Date.Format(schema.DateLayout)
		rec[1] = row.Pincode
		rec[2] = strconv.FormatFloat(row.Footfall, 'g', -1, 64)
		rec[3] = row.District
		rec[4] = row.State
		rec[5] = row.CenterType
		for i, name := range t.Names {
			rec[6+i] = strconv.FormatFloat(row.Features[name], 'g', -1, 64)
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// ReadTableCSV loads a feature table previously written by WriteCSV. The
// feature column order is taken from the header.
func ReadTableCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open feature table: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read feature table header: %w", err)
	}
	if len(header) < 7 {
		return nil, fmt.Errorf("feature table header too short: %v", header)
	}
	names := header[6:]

	table := &Table{Names: append([]string(nil), names...)}
	for line := 2; ; line++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read feature table line %d: %w", line, err)
		}
		if len(rec) != len(header) {
			return nil, fmt.Errorf("feature table line %d: %d columns, want %d",
				line, len(rec), len(header))
		}
		row := FeatureRow{
			Pincode:    rec[1],
			District:   rec[3],
			State:      rec[4],
			CenterType: rec[5],
			Features:   make(map[string]float64, len(names)),
		}
		if row.Date, err = time.Parse(schema.DateLayout, rec[0]); err != nil {
			return nil, fmt.Errorf("feature table line %d: %w", line, err)
		}
		if row.Footfall, err = strconv.ParseFloat(rec[2], 64); err != nil {
			return nil, fmt.Errorf("feature table line %d: %w", line, err)
		}
		for i, name := range names {
			if row.Features[name], err = strconv.ParseFloat(rec[6+i], 64); err != nil {
				return nil, fmt.Errorf("feature table line %d, column %s: %w", line, name, err)
			}
		}
		table.Rows = append(table.Rows, row)
	}
	table.buildIndex()
	return table, nil
}

// WriteMetadata persists the sidecar metadata as JSON.
func (m *Metadata) WriteMetadata(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write table metadata: %w", err)
	}
	return nil
}

// ReadMetadata loads the sidecar metadata.
func ReadMetadata(path string) (*Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read table metadata: %w", err)
	}
	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse table metadata: %w", err)
	}
	if len(m.FeatureNames) == 0 {
		return nil, fmt.Errorf("table metadata %s has no feature names", path)
	}
	return &m, nil
}
