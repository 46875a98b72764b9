package insight

import (
	"errors"
	"testing"

	"github.com/lox/powerweather/internal/models"
)

func TestNewSeriesNormalizesSentinel(t *testing.T) {
	grid := Grid{
		models.ParamTemperature: {"20240103": 12, "20240101": -999, "20240102": 10},
		models.ParamHumidity:    {"20240101": 140, "20240102": 50, "20240103": 55},
	}
	res, err := NewSeries(models.Location{Name: "Bright"}, models.TemporalDaily, nil, grid, map[models.Parameter]string{models.ParamTemperature: "C"})
	if err != nil {
		t.Fatal(err)
	}
	s := res.Series
	if len(s.Observations) != 3 {
		t.Fatalf("observations = %d", len(s.Observations))
	}
	if !s.Observations[0].Date.Before(s.Observations[1].Date) {
		t.Error("observations not sorted")
	}
	if s.Observations[0].Value(models.ParamTemperature).Valid {
		t.Error("sentinel reading should be absent")
	}
	if s.Observations[0].Value(models.ParamHumidity).Valid {
		t.Error("out-of-range humidity should be absent")
	}
	if res.Dropped[FlagMissing] != 1 || res.Dropped[FlagHumidityInvalid] != 1 {
		t.Errorf("dropped = %v", res.Dropped)
	}
	st := ComputeStats(s.Column(models.ParamTemperature))
	if st.Count != 2 || st.Mean != 11 {
		t.Errorf("stats = %+v, sentinel leaked into aggregates", st)
	}
	if s.Unit(models.ParamTemperature) != "C" {
		t.Errorf("unit = %q", s.Unit(models.ParamTemperature))
	}
}

func TestNewSeriesMonthlySkipsAnnual(t *testing.T) {
	grid := Grid{models.ParamPrecipitation: {"202401": 2, "202402": 3, "202413": 2.5}}
	res, err := NewSeries(models.Location{}, models.TemporalMonthly, nil, grid, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Series.Observations) != 2 {
		t.Errorf("observations = %d, want 2", len(res.Series.Observations))
	}
}

func TestNewSeriesBadDate(t *testing.T) {
	grid := Grid{models.ParamTemperature: {"2024-01-01": 1}}
	_, err := NewSeries(models.Location{}, models.TemporalDaily, nil, grid, nil)
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}

func TestParseThresholds(t *testing.T) {
	th, err := ParseThresholds([]byte("trend_epsilon: 0.25\nhot_from: 32\n"))
	if err != nil {
		t.Fatal(err)
	}
	if th.TrendEpsilon != 0.25 || th.HotFrom != 32 || th.PleasantFrom != 20 {
		t.Errorf("thresholds = %+v", th)
	}

	if _, err := ParseThresholds([]byte("hot_from: 5\n")); err == nil {
		t.Error("expected validation error when hot_from is below pleasant_from")
	}
}
