package insight

import (
	"database/sql"
	"fmt"
	"math"
)

// Stats summarises the present readings of one parameter. Count == 0 is the
// insufficient-data result; the other fields are meaningless in that case.
type Stats struct {
	Count  int
	Mean   float64
	Min    float64
	Max    float64
	Sum    float64
	Latest float64
}

func ComputeStats(values []sql.NullFloat64) Stats {
	var s Stats
	for _, v := range values {
		if !v.Valid {
			continue
		}
		s.add(v.Float64)
	}
	return s.finish()
}

// StatsOf is ComputeStats for a slice that only holds present values.
func StatsOf(values []float64) Stats {
	var s Stats
	for _, v := range values {
		s.add(v)
	}
	return s.finish()
}

func (s *Stats) add(v float64) {
	if math.IsNaN(v) {
		return
	}
	if s.Count == 0 || v < s.Min {
		s.Min = v
	}
	if s.Count == 0 || v > s.Max {
		s.Max = v
	}
	s.Sum += v
	s.Count++
	s.Latest = v
}

func (s Stats) finish() Stats {
	if s.Count > 0 {
		s.Mean = s.Sum / float64(s.Count)
	}
	return s
}

func (s Stats) OK() bool {
	return s.Count > 0
}

// StatsText is the display form of Stats.
type StatsText struct {
	Mean   string `json:"mean"`
	Min    string `json:"min"`
	Max    string `json:"max"`
	Latest string `json:"latest"`
}

const notAvailable = "N/A"

// Text renders every field at two decimals, or N/A when insufficient.
func (s Stats) Text() StatsText {
	if !s.OK() {
		return StatsText{notAvailable, notAvailable, notAvailable, notAvailable}
	}
	return StatsText{
		Mean:   fmt.Sprintf("%.2f", s.Mean),
		Min:    fmt.Sprintf("%.2f", s.Min),
		Max:    fmt.Sprintf("%.2f", s.Max),
		Latest: fmt.Sprintf("%.2f", s.Latest),
	}
}
