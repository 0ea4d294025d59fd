package schema

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawRow(date, pincode, footfall string) map[string]string {
	return map[string]string{
		"date":        date,
		"pincode":     pincode,
		"footfall":    footfall,
		"district":    "Central Delhi",
		"state":       "Delhi",
		"center_type": "Urban",
	}
}

func TestReconcileCanonicalInputIsNoOp(t *testing.T) {
	t.Parallel()

	rows := []map[string]string{
		rawRow("2025-06-02", "110001", "180"),
		rawRow("2025-06-03", "110001", "175"),
	}

	records, fixes, err := Reconcile(rows)
	require.NoError(t, err)
	assert.Empty(t, fixes)
	require.Len(t, records, 2)
	assert.Equal(t, "110001", records[0].Pincode)
	assert.Equal(t, 180.0, records[0].Footfall)
	assert.Equal(t, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), records[0].Date)
}

func TestReconcileIdempotent(t *testing.T) {
	t.Parallel()

	rows := []map[string]string{
		{
			"visit_date": "2025-06-02",
			"PIN":        "1001",
			"visitors":   "120",
			"type":       "semi urban",
		},
	}

	first, fixes, err := Reconcile(rows)
	require.NoError(t, err)
	assert.NotEmpty(t, fixes)

	// Feed the reconciled output back through: identical records, no fixes.
	roundTrip := make([]map[string]string, len(first))
	for i, r := range first {
		roundTrip[i] = r.Row()
	}
	second, fixes2, err := Reconcile(roundTrip)
	require.NoError(t, err)
	assert.Empty(t, fixes2)
	assert.Equal(t, first, second)
}

func TestReconcileRenamesSynonyms(t *testing.T) {
	t.Parallel()

	rows := []map[string]string{
		{
			"Date":       "2025-06-02",
			"center_id":  "110001",
			"daily_count": "95",
			"dist":       "Bangalore Rural",
			"State":      "Karnataka",
			"pec_type":   "R",
		},
	}

	records, fixes, err := Reconcile(rows)
	require.NoError(t, err)
	require.Len(t, records, 1)

	r := records[0]
	assert.Equal(t, "110001", r.Pincode)
	assert.Equal(t, 95.0, r.Footfall)
	assert.Equal(t, "Bangalore Rural", r.District)
	assert.Equal(t, "Karnataka", r.State)
	assert.Equal(t, CenterRural, r.CenterType)

	renamed := map[string]bool{}
	for _, f := range fixes {
		if f.Action == "renamed" {
			renamed[f.Column] = true
		}
	}
	for _, col := range []string{ColDate, ColPincode, ColFootfall, ColDistrict, ColState, ColCenterType} {
		assert.True(t, renamed[col], "expected rename fix for %s", col)
	}
}

func TestReconcileInfersCenterTypeFromFootfall(t *testing.T) {
	t.Parallel()

	rows := []map[string]string{
		{"date": "2025-06-02", "pincode": "110001", "footfall": "200"},
		{"date": "2025-06-02", "pincode": "562157", "footfall": "80"},
		{"date": "2025-06-02", "pincode": "431001", "footfall": "120"},
	}

	records, fixes, err := Reconcile(rows)
	require.NoError(t, err)

	assert.Equal(t, CenterUrban, records[0].CenterType)
	assert.Equal(t, CenterRural, records[1].CenterType)
	assert.Equal(t, CenterSemiUrban, records[2].CenterType)

	// District and state fall back to the Unknown markers.
	assert.Equal(t, "Unknown District", records[0].District)
	assert.Equal(t, "Unknown State", records[0].State)

	actions := map[string]bool{}
	for _, f := range fixes {
		actions[f.Column+"/"+f.Action] = true
	}
	assert.True(t, actions["center_type/inferred"])
	assert.True(t, actions["district/defaulted"])
	assert.True(t, actions["state/defaulted"])
}

func TestReconcilePadsPincodes(t *testing.T) {
	t.Parallel()

	rows := []map[string]string{
		{"date": "2025-06-02", "pincode": "1001", "footfall": "100", "district": "X", "state": "Y", "center_type": "Urban"},
	}
	records, fixes, err := Reconcile(rows)
	require.NoError(t, err)
	assert.Equal(t, "001001", records[0].Pincode)

	found := false
	for _, f := range fixes {
		if f.Column == ColPincode && f.Action == "zero-padded" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestReconcileCanonicalisesCenterTypeSpelling(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"urban":      CenterUrban,
		"SEMI-URBAN": CenterSemiUrban,
		"semi urban": CenterSemiUrban,
		"semiurban":  CenterSemiUrban,
		"RURAL":      CenterRural,
		"garbage":    CenterUrban, // unrecognised defaults to Urban
	}
	for in, want := range cases {
		rows := []map[string]string{
			{"date": "2025-06-02", "pincode": "110001", "footfall": "100",
				"district": "X", "state": "Y", "center_type": in},
		}
		records, _, err := Reconcile(rows)
		require.NoError(t, err)
		assert.Equal(t, want, records[0].CenterType, "input %q", in)
	}
}

func TestReconcileMissingUnrecoverableColumns(t *testing.T) {
	t.Parallel()

	rows := []map[string]string{
		{"pincode": "110001", "footfall": "100"},
	}
	_, _, err := Reconcile(rows)
	require.Error(t, err)

	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Contains(t, schemaErr.Missing, ColDate)
}

func TestReconcileRejectsBadCells(t *testing.T) {
	t.Parallel()

	rows := []map[string]string{
		rawRow("not-a-date", "110001", "100"),
	}
	_, _, err := Reconcile(rows)
	assert.Error(t, err)

	rows = []map[string]string{
		rawRow("2025-06-02", "110001", "many"),
	}
	_, _, err = Reconcile(rows)
	assert.Error(t, err)
}

func TestSortRecords(t *testing.T) {
	t.Parallel()

	d := func(day int) time.Time { return time.Date(2025, 6, day, 0, 0, 0, 0, time.UTC) }
	records := []Record{
		{Pincode: "400001", Date: d(2)},
		{Pincode: "110001", Date: d(3)},
		{Pincode: "110001", Date: d(1)},
	}
	SortRecords(records)
	assert.Equal(t, "110001", records[0].Pincode)
	assert.Equal(t, d(1), records[0].Date)
	assert.Equal(t, d(3), records[1].Date)
	assert.Equal(t, "400001", records[2].Pincode)
}
