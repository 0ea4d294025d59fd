package obsdb

import (
	"testing"
	"time"

	"github.com/enroll-data/footfall.report/internal/schema"
)

// newTestDB opens an in-memory observation store that is torn down with the
// test.
func newTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := NewDB(":memory:")
	if err != nil {
		t.Fatalf("NewDB failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// seedDailySeries inserts count consecutive daily observations for one
// pincode starting at start, with footfall values produced by value(i).
func seedDailySeries(t *testing.T, db *DB, pincode string, start time.Time, count int, value func(i int) float64) {
	t.Helper()

	records := make([]schema.Record, 0, count)
	for i := 0; i < count; i++ {
		records = append(records, schema.Record{
			Date:       start.AddDate(0, 0, i),
			Pincode:    pincode,
			Footfall:   value(i),
			District:   "Central Delhi",
			State:      "Delhi",
			CenterType: schema.CenterUrban,
		})
	}
	if err := db.InsertBatch(records); err != nil {
		t.Fatalf("InsertBatch failed: %v", err)
	}
}
