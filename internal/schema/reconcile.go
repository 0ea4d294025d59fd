package schema

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Canonical column names.
const (
	ColDate       = "date"
	ColPincode    = "pincode"
	ColFootfall   = "footfall"
	ColDistrict   = "district"
	ColState      = "state"
	ColCenterType = "center_type"
)

// RequiredColumns lists the canonical schema every downstream component
// assumes, in canonical order.
var RequiredColumns = []string{
	ColDate, ColPincode, ColFootfall, ColDistrict, ColState, ColCenterType,
}

// columnSynonyms maps known column-name variants to canonical names. The
// mapping is injective per canonical target: a rename only applies when the
// canonical column is absent.
var columnSynonyms = map[string]string{
	// date
	"Date":             ColDate,
	"DATE":             ColDate,
	"transaction_date": ColDate,
	"visit_date":       ColDate,

	// pincode
	"PIN":       ColPincode,
	"pin":       ColPincode,
	"PIN_code":  ColPincode,
	"pin_code":  ColPincode,
	"PINCODE":   ColPincode,
	"pec_id":    ColPincode,
	"center_id": ColPincode,

	// footfall
	"Footfall":       ColFootfall,
	"FOOTFALL":       ColFootfall,
	"count":          ColFootfall,
	"visitors":       ColFootfall,
	"footfall_count": ColFootfall,
	"daily_count":    ColFootfall,
	"transactions":   ColFootfall,
	"enrollments":    ColFootfall,

	// district
	"District": ColDistrict,
	"DISTRICT": ColDistrict,
	"dist":     ColDistrict,

	// state
	"State": ColState,
	"STATE": ColState,

	// center type
	"Center_Type":   ColCenterType,
	"CENTER_TYPE":   ColCenterType,
	"type":          ColCenterType,
	"location_type": ColCenterType,
	"pec_type":      ColCenterType,
}

// centerTypeSynonyms canonicalises center-type spelling variants.
var centerTypeSynonyms = map[string]string{
	"urban":      CenterUrban,
	"URBAN":      CenterUrban,
	"U":          CenterUrban,
	"rural":      CenterRural,
	"RURAL":      CenterRural,
	"R":          CenterRural,
	"semi-urban": CenterSemiUrban,
	"semi urban": CenterSemiUrban,
	"SEMI-URBAN": CenterSemiUrban,
	"SEMI URBAN": CenterSemiUrban,
	"semiurban":  CenterSemiUrban,
	"S":          CenterSemiUrban,
}

// Center type inference thresholds, used only when the input carries no
// center_type column. Best-effort heuristic, not authoritative.
const (
	urbanFootfallThreshold = 150
	ruralFootfallThreshold = 100
)

// Fix records one normalisation applied by Reconcile, for audit.
type Fix struct {
	Column string `json:"column"`
	Action string `json:"action"`
	Detail string `json:"detail,omitempty"`
}

func (f Fix) String() string {
	if f.Detail == "" {
		return fmt.Sprintf("%s: %s", f.Column, f.Action)
	}
	return fmt.Sprintf("%s: %s (%s)", f.Column, f.Action, f.Detail)
}

// SchemaError reports required columns that remain absent after every
// fallback step. It is fatal for the ingestion call that produced it.
type SchemaError struct {
	Missing   []string
	Available []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("missing required columns %v (available: %v)",
		e.Missing, e.Available)
}

// Reconcile normalises an arbitrary raw table into canonical Records. Rows
// are maps from column name to cell value; the column set is the union over
// all rows. Reconcile is pure: the input is not modified, and feeding the
// output of a previous run back in yields identical records with no fixes.
//
// Returns the records, the audit list of fixes applied, and an error if the
// canonical schema cannot be satisfied or a cell cannot be parsed. On error
// no partial result is returned.
func Reconcile(rows []map[string]string) ([]Record, []Fix, error) {
	columns := columnSet(rows)
	var fixes []Fix

	// Rename known synonyms where the canonical column is absent.
	renames := map[string]string{}
	for _, col := range sortedKeys(columns) {
		canonical, ok := columnSynonyms[col]
		if !ok || columns[canonical] {
			continue
		}
		renames[col] = canonical
		columns[canonical] = true
		fixes = append(fixes, Fix{Column: canonical, Action: "renamed", Detail: col})
	}

	// Columns with fallbacks when still absent.
	inferCenterType := !columns[ColCenterType]
	defaultDistrict := !columns[ColDistrict]
	defaultState := !columns[ColState]
	if inferCenterType {
		fixes = append(fixes, Fix{Column: ColCenterType, Action: "inferred", Detail: "from footfall thresholds"})
	}
	if defaultDistrict {
		fixes = append(fixes, Fix{Column: ColDistrict, Action: "defaulted", Detail: "Unknown District"})
	}
	if defaultState {
		fixes = append(fixes, Fix{Column: ColState, Action: "defaulted", Detail: "Unknown State"})
	}

	// Columns with no fallback must be present now.
	var missing []string
	for _, col := range []string{ColDate, ColPincode, ColFootfall} {
		if !columns[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, nil, &SchemaError{Missing: missing, Available: sortedKeys(columns)}
	}

	records := make([]Record, 0, len(rows))
	padded, coerced := 0, 0
	for i, row := range rows {
		cell := func(col string) string {
			if v, ok := row[col]; ok {
				return v
			}
			for raw, canonical := range renames {
				if canonical == col {
					return row[raw]
				}
			}
			return ""
		}

		date, err := parseDate(cell(ColDate))
		if err != nil {
			return nil, nil, fmt.Errorf("row %d: %w", i, err)
		}
		footfall, err := strconv.ParseFloat(strings.TrimSpace(cell(ColFootfall)), 64)
		if err != nil {
			return nil, nil, fmt.Errorf("row %d: parse footfall %q: %w", i, cell(ColFootfall), err)
		}

		pincode := strings.TrimSpace(cell(ColPincode))
		if p := padPincode(pincode); p != pincode {
			pincode = p
			padded++
		}

		district := strings.TrimSpace(cell(ColDistrict))
		if defaultDistrict || district == "" {
			district = "Unknown District"
		}
		state := strings.TrimSpace(cell(ColState))
		if defaultState || state == "" {
			state = "Unknown State"
		}

		var centerType string
		if inferCenterType {
			centerType = inferCenterTypeFromFootfall(footfall)
		} else {
			var ok bool
			centerType, ok = canonicalCenterType(strings.TrimSpace(cell(ColCenterType)))
			if !ok {
				coerced++
			}
		}

		records = append(records, Record{
			Date:       date,
			Pincode:    pincode,
			Footfall:   footfall,
			District:   district,
			State:      state,
			CenterType: centerType,
		})
	}

	if padded > 0 {
		fixes = append(fixes, Fix{Column: ColPincode, Action: "zero-padded",
			Detail: fmt.Sprintf("%d rows", padded)})
	}
	if coerced > 0 {
		fixes = append(fixes, Fix{Column: ColCenterType, Action: "defaulted to Urban",
			Detail: fmt.Sprintf("%d unrecognised values", coerced)})
	}

	return records, fixes, nil
}

// canonicalCenterType maps a raw center-type value to one of the canonical
// values. The second return is false when the value was unrecognised and
// defaulted to Urban.
func canonicalCenterType(v string) (string, bool) {
	switch v {
	case CenterUrban, CenterRural, CenterSemiUrban:
		return v, true
	}
	if canonical, ok := centerTypeSynonyms[v]; ok {
		return canonical, true
	}
	return CenterUrban, false
}

func inferCenterTypeFromFootfall(footfall float64) string {
	switch {
	case footfall > urbanFootfallThreshold:
		return CenterUrban
	case footfall < ruralFootfallThreshold:
		return CenterRural
	default:
		return CenterSemiUrban
	}
}

// padPincode left-pads short pincodes with zeros so numeric sources that
// stripped leading zeros produce the same keys as string sources.
func padPincode(p string) string {
	if len(p) >= PincodeWidth {
		return p
	}
	return strings.Repeat("0", PincodeWidth-len(p)) + p
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	return time.Time{}, fmt.Errorf("parse date %q: want %s", s, DateLayout)
}

func columnSet(rows []map[string]string) map[string]bool {
	set := map[string]bool{}
	for _, row := range rows {
		for col := range row {
			set[col] = true
		}
	}
	return set
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
