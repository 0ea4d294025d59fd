// Package features builds the supervised learning table for footfall
// forecasting and reconstructs identical feature vectors at prediction time.
//
// Every feature is defined exactly once in this package; the bulk table
// build and the single-row reconstruction differ only in where lag/rolling
// values are sourced from (table slice vs trailing history). The single
// correctness property everything here protects is leakage safety: the
// features attached to a row for date d are computable from observations
// strictly before d.
package features

import (
	"fmt"
	"time"

	"github.com/enroll-data/footfall.report/internal/schema"
)

// defaultHolidays is the embedded fallback calendar: Indian public holidays
// for 2025-2026. Deployments supply their own list through the config file.
var defaultHolidays = []string{
	"2025-01-26", "2025-03-14", "2025-03-31", "2025-04-10", "2025-04-14",
	"2025-05-01", "2025-08-15", "2025-08-27", "2025-10-02", "2025-10-24",
	"2025-11-01", "2025-12-25",
	"2026-01-26", "2026-03-03", "2026-03-25", "2026-03-30", "2026-04-14",
	"2026-05-01", "2026-08-15", "2026-08-16", "2026-10-02", "2026-10-13",
	"2026-11-01", "2026-11-14", "2026-12-25",
}

// Calendar answers holiday lookups for the feature definitions. Immutable
// after construction so multiple calendars can coexist (production config,
// test fixtures).
type Calendar struct {
	holidays map[string]struct{}
}

// NewCalendar builds a calendar from ISO-8601 date strings.
func NewCalendar(dates []string) (*Calendar, error) {
	set := make(map[string]struct{}, len(dates))
	for _, d := range dates {
		if _, err := time.Parse(schema.DateLayout, d); err != nil {
			return nil, fmt.Errorf("holiday %q: %w", d, err)
		}
		set[d] = struct{}{}
	}
	return &Calendar{holidays: set}, nil
}

// DefaultCalendar returns the embedded holiday calendar.
func DefaultCalendar() *Calendar {
	cal, err := NewCalendar(defaultHolidays)
	if err != nil {
		panic("embedded holiday calendar invalid: " + err.Error())
	}
	return cal
}

// IsHoliday reports whether the date is in the calendar.
func (c *Calendar) IsHoliday(t time.Time) bool {
	_, ok := c.holidays[t.Format(schema.DateLayout)]
	return ok
}

// Len returns the number of holidays in the calendar.
func (c *Calendar) Len() int { return len(c.holidays) }
