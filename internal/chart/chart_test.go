package chart

import (
	"bytes"
	"database/sql"
	"errors"
	"image/png"
	"testing"
	"time"

	"github.com/lox/powerweather/internal/insight"
	"github.com/lox/powerweather/internal/models"
)

func testSeries() models.Series {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	s := models.Series{
		Location:   models.Location{Latitude: -36.79, Longitude: 146.98},
		Temporal:   models.TemporalDaily,
		Parameters: []models.Parameter{models.ParamTemperature, models.ParamWind},
	}
	for i := 0; i < 10; i++ {
		vals := map[models.Parameter]sql.NullFloat64{
			models.ParamTemperature: {Float64: 15 + float64(i), Valid: i != 4},
			models.ParamWind:        {Float64: 3, Valid: true},
		}
		s.Observations = append(s.Observations, models.Observation{Date: start.AddDate(0, 0, i), Values: vals})
	}
	return s
}

func TestRender(t *testing.T) {
	s := testSeries()
	f := models.Forecasts{models.ParamTemperature: {
		{Parameter: models.ParamTemperature, Date: time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), Value: 26, Confidence: 0.8},
		{Parameter: models.ParamTemperature, Date: time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC), Value: 27, Confidence: 0.7},
	}}

	tests := []struct {
		name   string
		params []models.Parameter
		panels int
	}{
		{"all parameters", nil, 2},
		{"single parameter", []models.Parameter{models.ParamTemperature}, 1},
		{"parameter without data", []models.Parameter{models.ParamHumidity}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Render(s, f, tt.params)
			if err != nil {
				t.Fatalf("Render: %v", err)
			}
			img, err := png.Decode(bytes.NewReader(out))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if b := img.Bounds(); b.Dx() != Width || b.Dy() != PanelHeight*tt.panels {
				t.Errorf("bounds = %v", b)
			}
		})
	}
}

func TestRenderEmpty(t *testing.T) {
	if _, err := Render(models.Series{}, nil, nil); !errors.Is(err, insight.ErrInsufficientData) {
		t.Errorf("err = %v", err)
	}
}

func TestTitle(t *testing.T) {
	if got := title(models.ParamTemperature, "°C"); got != "Temperature (deg C)" {
		t.Errorf("title = %q", got)
	}
}
