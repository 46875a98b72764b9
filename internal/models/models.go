package models

import (
	"database/sql"
	"sort"
	"time"
)

// MissingSentinel is the value the NASA POWER API uses for "no reading".
const MissingSentinel = -999

type Parameter string

const (
	ParamTemperature   Parameter = "T2M"
	ParamPrecipitation Parameter = "PRECTOTCORR"
	ParamWind          Parameter = "WS2M"
	ParamHumidity      Parameter = "RH2M"
	ParamSnowDepth     Parameter = "SNODP"
)

// AllParameters lists the supported codes in display order.
var AllParameters = []Parameter{
	ParamTemperature,
	ParamPrecipitation,
	ParamWind,
	ParamHumidity,
	ParamSnowDepth,
}

type parameterInfo struct {
	label string
	noun  string
	unit  string
}

var parameterTable = map[Parameter]parameterInfo{
	ParamTemperature:   {"Temperature", "temperature", "°C"},
	ParamPrecipitation: {"Precipitation", "precipitation", "mm/day"},
	ParamWind:          {"Wind Speed", "wind speed", "m/s"},
	ParamHumidity:      {"Relative Humidity", "humidity", "%"},
	ParamSnowDepth:     {"Snow Depth", "snow depth", "cm"},
}

func (p Parameter) Valid() bool {
	_, ok := parameterTable[p]
	return ok
}

// Label is the display name used in headings and chart panels.
func (p Parameter) Label() string {
	if info, ok := parameterTable[p]; ok {
		return info.label
	}
	return string(p)
}

// Noun is the lower-case name used inside narrative sentences.
func (p Parameter) Noun() string {
	if info, ok := parameterTable[p]; ok {
		return info.noun
	}
	return string(p)
}

func (p Parameter) DefaultUnit() string {
	if info, ok := parameterTable[p]; ok {
		return info.unit
	}
	return ""
}

// ParseParameters accepts codes as sent by clients and drops unknown or repeated ones.
func ParseParameters(codes []string) []Parameter {
	seen := make(map[Parameter]bool, len(codes))
	var out []Parameter
	for _, c := range codes {
		p := Parameter(c)
		if !p.Valid() || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

type Temporal string

const (
	TemporalDaily   Temporal = "daily"
	TemporalMonthly Temporal = "monthly"
)

// DateLayout returns the upstream key layout for the temporal resolution.
func (t Temporal) DateLayout() string {
	if t == TemporalMonthly {
		return "200601"
	}
	return "20060102"
}

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Name      string  `json:"name,omitempty"`
}

// DisplayName falls back to coordinates when no name was given.
func (l Location) DisplayName() string {
	if l.Name != "" {
		return l.Name
	}
	return formatCoords(l.Latitude, l.Longitude)
}

type Observation struct {
	Date   time.Time
	Values map[Parameter]sql.NullFloat64
}

// Value returns the reading for p; Valid is false when absent.
func (o Observation) Value(p Parameter) sql.NullFloat64 {
	if o.Values == nil {
		return sql.NullFloat64{}
	}
	return o.Values[p]
}

// Reported reports whether any reading is present.
func (o Observation) Reported() bool {
	for _, v := range o.Values {
		if v.Valid {
			return true
		}
	}
	return false
}

type Series struct {
	Location     Location
	Temporal     Temporal
	Parameters   []Parameter
	Units        map[Parameter]string
	Observations []Observation
}

func (s Series) Empty() bool {
	return len(s.Observations) == 0
}

func (s Series) Unit(p Parameter) string {
	if u, ok := s.Units[p]; ok && u != "" {
		return u
	}
	return p.DefaultUnit()
}

// Column returns every reading for p in chronological order, absent ones included.
func (s Series) Column(p Parameter) []sql.NullFloat64 {
	out := make([]sql.NullFloat64, len(s.Observations))
	for i, o := range s.Observations {
		out[i] = o.Value(p)
	}
	return out
}

// Present returns only the readings for p that exist, in order.
func (s Series) Present(p Parameter) []float64 {
	var out []float64
	for _, o := range s.Observations {
		if v := o.Value(p); v.Valid {
			out = append(out, v.Float64)
		}
	}
	return out
}

// Latest returns the most recent observation.
func (s Series) Latest() (Observation, bool) {
	if len(s.Observations) == 0 {
		return Observation{}, false
	}
	return s.Observations[len(s.Observations)-1], true
}

// LatestReported returns the most recent observation with at least one
// reading. POWER usually publishes the final day or two as all missing.
func (s Series) LatestReported() (Observation, bool) {
	for i := len(s.Observations) - 1; i >= 0; i-- {
		if s.Observations[i].Reported() {
			return s.Observations[i], true
		}
	}
	return Observation{}, false
}

// Span returns the first and last observation dates.
func (s Series) Span() (time.Time, time.Time) {
	if len(s.Observations) == 0 {
		return time.Time{}, time.Time{}
	}
	return s.Observations[0].Date, s.Observations[len(s.Observations)-1].Date
}

// Tail returns a series restricted to the last n observations.
func (s Series) Tail(n int) Series {
	if n >= len(s.Observations) || n < 0 {
		return s
	}
	out := s
	out.Observations = s.Observations[len(s.Observations)-n:]
	return out
}

// SortObservations orders observations chronologically in place.
func (s *Series) SortObservations() {
	sort.SliceStable(s.Observations, func(i, j int) bool {
		return s.Observations[i].Date.Before(s.Observations[j].Date)
	})
}

type ForecastPoint struct {
	Parameter  Parameter `json:"parameter"`
	Date       time.Time `json:"date"`
	Value      float64   `json:"value"`
	Confidence float64   `json:"confidence"`
}

// Forecasts holds predicted points per parameter, nearest first.
type Forecasts map[Parameter][]ForecastPoint

// Next returns the nearest forecast point for p.
func (f Forecasts) Next(p Parameter) (ForecastPoint, bool) {
	points := f[p]
	if len(points) == 0 {
		return ForecastPoint{}, false
	}
	return points[0], true
}
