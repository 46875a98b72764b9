package insight

import (
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/lox/powerweather/internal/models"
)

// Grid is the upstream shape: parameter code to date key to reading.
type Grid map[models.Parameter]map[string]float64

const (
	FlagMissing          = "missing"
	FlagTempOutOfRange   = "temp_out_of_range"
	FlagHumidityInvalid  = "humidity_invalid"
	FlagPrecipNegative   = "precip_negative"
	FlagWindSpeedInvalid = "wind_speed_invalid"
	FlagSnowNegative     = "snow_negative"
)

// CheckReading returns a quality flag for a reading that cannot be used, or
// the empty string when it is fine.
func CheckReading(p models.Parameter, v float64) string {
	if v == models.MissingSentinel || math.IsNaN(v) || math.IsInf(v, 0) {
		return FlagMissing
	}
	switch p {
	case models.ParamTemperature:
		if v < -90 || v > 60 {
			return FlagTempOutOfRange
		}
	case models.ParamHumidity:
		if v < 0 || v > 100 {
			return FlagHumidityInvalid
		}
	case models.ParamPrecipitation:
		if v < 0 {
			return FlagPrecipNegative
		}
	case models.ParamWind:
		if v < 0 || v > 120 {
			return FlagWindSpeedInvalid
		}
	case models.ParamSnowDepth:
		if v < 0 {
			return FlagSnowNegative
		}
	}
	return ""
}

// AdaptResult carries the series plus counts of readings dropped per flag.
type AdaptResult struct {
	Series  models.Series
	Dropped map[string]int
}

// NewSeries converts an upstream grid into a chronological series. The
// missing sentinel and implausible readings become absent. Monthly grids
// carry a thirteenth "annual" month which is skipped.
func NewSeries(loc models.Location, temporal models.Temporal, params []models.Parameter, grid Grid, units map[models.Parameter]string) (AdaptResult, error) {
	if temporal == "" {
		temporal = models.TemporalDaily
	}
	if len(params) == 0 {
		for _, p := range models.AllParameters {
			if _, ok := grid[p]; ok {
				params = append(params, p)
			}
		}
	}

	res := AdaptResult{Dropped: map[string]int{}}
	byDate := map[time.Time]*models.Observation{}
	layout := temporal.DateLayout()

	for _, p := range params {
		for key, v := range grid[p] {
			if temporal == models.TemporalMonthly && strings.HasSuffix(key, "13") && len(key) == 6 {
				continue
			}
			date, err := time.Parse(layout, key)
			if err != nil {
				return res, fmt.Errorf("%w: date key %q for %s", ErrInvalidInput, key, p)
			}
			obs, ok := byDate[date]
			if !ok {
				obs = &models.Observation{Date: date, Values: map[models.Parameter]sql.NullFloat64{}}
				byDate[date] = obs
			}
			if flag := CheckReading(p, v); flag != "" {
				res.Dropped[flag]++
				obs.Values[p] = sql.NullFloat64{}
				continue
			}
			obs.Values[p] = sql.NullFloat64{Float64: v, Valid: true}
		}
	}

	s := models.Series{
		Location:     loc,
		Temporal:     temporal,
		Parameters:   params,
		Units:        map[models.Parameter]string{},
		Observations: make([]models.Observation, 0, len(byDate)),
	}
	for _, p := range params {
		if u := units[p]; u != "" {
			s.Units[p] = u
		}
	}
	for _, o := range byDate {
		s.Observations = append(s.Observations, *o)
	}
	s.SortObservations()
	res.Series = s
	return res, nil
}
