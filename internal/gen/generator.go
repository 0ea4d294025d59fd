// Package gen produces synthetic daily footfall observations with the
// seasonal structure of real enrollment-center demand: a Monday peak and
// weekend trough, holiday drops with next-day spikes, enrollment and pension
// season surges, and per-center noise. Used to bootstrap a database when no
// real extract is available.
package gen

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/enroll-data/footfall.report/internal/features"
	"github.com/enroll-data/footfall.report/internal/schema"
)

// Center describes one synthetic enrollment center.
type Center struct {
	Pincode    string  `json:"pincode"`
	District   string  `json:"district"`
	State      string  `json:"state"`
	CenterType string  `json:"center_type"`
	Base       float64 `json:"base_footfall"`
}

// DefaultCenters returns the built-in roster of 20 centers across Indian
// states, mixing urban, semi-urban and rural profiles.
func DefaultCenters() []Center {
	return []Center{
		{"110001", "Central Delhi", "Delhi", schema.CenterUrban, 180},
		{"400001", "Mumbai City", "Maharashtra", schema.CenterUrban, 220},
		{"560001", "Bangalore Urban", "Karnataka", schema.CenterUrban, 200},
		{"600001", "Chennai", "Tamil Nadu", schema.CenterUrban, 190},
		{"700001", "Kolkata", "West Bengal", schema.CenterUrban, 175},
		{"500001", "Hyderabad", "Telangana", schema.CenterUrban, 185},
		{"411001", "Pune", "Maharashtra", schema.CenterUrban, 165},
		{"380001", "Ahmedabad", "Gujarat", schema.CenterUrban, 170},
		{"562157", "Bangalore Rural", "Karnataka", schema.CenterRural, 85},
		{"431001", "Aurangabad", "Maharashtra", schema.CenterSemiUrban, 110},
		{"226001", "Lucknow", "Uttar Pradesh", schema.CenterUrban, 160},
		{"302001", "Jaipur", "Rajasthan", schema.CenterUrban, 155},
		{"160001", "Chandigarh", "Chandigarh", schema.CenterUrban, 140},
		{"682001", "Ernakulam", "Kerala", schema.CenterUrban, 135},
		{"800001", "Patna", "Bihar", schema.CenterUrban, 125},
		{"751001", "Khordha", "Odisha", schema.CenterUrban, 115},
		{"641001", "Coimbatore", "Tamil Nadu", schema.CenterUrban, 145},
		{"530001", "Visakhapatnam", "Andhra Pradesh", schema.CenterUrban, 130},
		{"784001", "Sonitpur", "Assam", schema.CenterSemiUrban, 95},
		{"361001", "Jamnagar", "Gujarat", schema.CenterSemiUrban, 100},
	}
}

// Weekday demand multipliers, Monday first.
var dayMultipliers = [7]float64{1.25, 1.15, 1.10, 1.05, 1.00, 0.70, 0.50}

// Calendar-month demand multipliers. June/July carry the school enrollment
// peak, November the pension life-certificate peak.
var monthMultipliers = [13]float64{0,
	0.95, 0.90, 1.00, 1.15, 1.10, 1.35, 1.40, 1.05, 1.00, 1.20, 1.45, 1.10}

// Per-center-type noise spread; rural demand is the least predictable.
var typeSpread = map[string]float64{
	schema.CenterUrban:     0.15,
	schema.CenterRural:     0.25,
	schema.CenterSemiUrban: 0.18,
}

// Config controls generation. Zero-value Centers and Calendar fall back to
// the built-in roster and holiday list.
type Config struct {
	Start    time.Time
	End      time.Time // inclusive
	Seed     int64
	Centers  []Center
	Calendar *features.Calendar
}

// Generate produces one observation per center per day over [Start, End].
// Output is deterministic for a given config and ordered by (center, date).
func Generate(cfg Config) ([]schema.Record, error) {
	if cfg.End.Before(cfg.Start) {
		return nil, fmt.Errorf("generate: end %s before start %s",
			cfg.End.Format(schema.DateLayout), cfg.Start.Format(schema.DateLayout))
	}
	centers := cfg.Centers
	if len(centers) == 0 {
		centers = DefaultCenters()
	}
	cal := cfg.Calendar
	if cal == nil {
		cal = features.DefaultCalendar()
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	days := int(cfg.End.Sub(cfg.Start).Hours()/24) + 1

	records := make([]schema.Record, 0, days*len(centers))
	for _, c := range centers {
		for i := 0; i < days; i++ {
			date := cfg.Start.AddDate(0, 0, i)
			records = append(records, schema.Record{
				Date:       date,
				Pincode:    c.Pincode,
				Footfall:   footfall(rng, c, date, cfg.Start, cal),
				District:   c.District,
				State:      c.State,
				CenterType: c.CenterType,
			})
		}
	}
	return records, nil
}

func footfall(rng *rand.Rand, c Center, date, start time.Time, cal *features.Calendar) float64 {
	dayMult := dayMultipliers[(int(date.Weekday())+6)%7]

	// Holidays nearly empty the center; the backlog returns the next day.
	if cal.IsHoliday(date) {
		dayMult *= 0.20
	} else if cal.IsHoliday(date.AddDate(0, 0, -1)) {
		dayMult *= 1.40
	}

	monthMult := monthMultipliers[date.Month()]
	if c.CenterType == schema.CenterRural && date.Month() == time.November {
		monthMult *= 1.60
	}

	weekMult := 1.0
	switch (date.Day()-1)/7 + 1 {
	case 1:
		weekMult = 1.10
	case 4:
		weekMult = 0.95
	}

	variance := 1.0 + rng.NormFloat64()*typeSpread[c.CenterType]

	// Slow organic growth, anchored at the series start.
	trend := 1.0 + float64(int(date.Sub(start).Hours()/24))/365*0.05

	v := c.Base*dayMult*monthMult*weekMult*variance*trend + rng.NormFloat64()*c.Base*0.08
	return math.Max(0, math.Round(v))
}
