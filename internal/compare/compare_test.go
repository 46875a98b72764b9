package compare

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lox/powerweather/internal/assist"
	"github.com/lox/powerweather/internal/insight"
	"github.com/lox/powerweather/internal/models"
	"github.com/lox/powerweather/internal/power"
)

type fakeWeather struct {
	temps map[string]float64
	fail  string
}

func (f *fakeWeather) Fetch(ctx context.Context, req power.Request) (insight.AdaptResult, error) {
	if req.Location.Name == f.fail {
		return insight.AdaptResult{}, power.ErrUpstream
	}
	s := models.Series{Location: req.Location, Temporal: req.Temporal, Parameters: req.Parameters}
	for d := req.Start; !d.After(req.End); d = d.AddDate(0, 0, 1) {
		s.Observations = append(s.Observations, models.Observation{
			Date: d,
			Values: map[models.Parameter]sql.NullFloat64{
				models.ParamTemperature:   {Float64: f.temps[req.Location.Name], Valid: true},
				models.ParamPrecipitation: {Float64: 0, Valid: true},
				models.ParamWind:          {Float64: 3, Valid: true},
			},
		})
	}
	return insight.AdaptResult{Series: s}, nil
}

type fakeImages struct {
	calls atomic.Int32
	urls  map[string]string
}

func (f *fakeImages) Lookup(ctx context.Context, place string) string {
	f.calls.Add(1)
	return f.urls[place]
}

func newService(w WeatherSource, img ImageSource) *Service {
	s := NewService(w, img, assist.NewFacade(insight.Default(), nil))
	s.now = func() time.Time { return time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC) }
	return s
}

func TestCompare(t *testing.T) {
	w := &fakeWeather{temps: map[string]float64{"Darwin": 33, "Hobart": 18}}
	img := &fakeImages{urls: map[string]string{"Hobart": "https://img/hobart.jpg"}}
	s := newService(w, img)

	res, err := s.Compare(context.Background(), Request{
		A: models.Location{Name: "Darwin", Latitude: -12.46, Longitude: 130.84},
		B: models.Location{Name: "Hobart", Latitude: -42.88, Longitude: 147.33},
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.A.Profile.HotDaysPct != 100 || res.B.Profile.HotDaysPct != 0 {
		t.Errorf("profiles = %+v / %+v", res.A.Profile, res.B.Profile)
	}
	if res.Headline != "Hobart is cooler with 0% hot days vs 100%" {
		t.Errorf("headline = %q", res.Headline)
	}
	if !strings.HasPrefix(res.Recommendation.Text, "WINNER: Hobart") || res.Recommendation.Source != assist.SourceFallback {
		t.Errorf("recommendation = %+v", res.Recommendation)
	}
	if res.A.Image != "" || res.B.Image != "https://img/hobart.jpg" {
		t.Errorf("images = %q / %q", res.A.Image, res.B.Image)
	}
	if got := res.End.Sub(res.Start); got != DefaultDays*24*time.Hour {
		t.Errorf("window = %v", got)
	}
}

func TestCompareWeatherFailureAborts(t *testing.T) {
	w := &fakeWeather{temps: map[string]float64{"Darwin": 33}, fail: "Nowhere"}
	_, err := newService(w, nil).Compare(context.Background(), Request{
		A: models.Location{Name: "Darwin"},
		B: models.Location{Name: "Nowhere"},
	})
	if !errors.Is(err, power.ErrUpstream) {
		t.Errorf("err = %v, want ErrUpstream", err)
	}
}

func TestCompareSkipsImagesForUnnamed(t *testing.T) {
	w := &fakeWeather{}
	img := &fakeImages{}
	res, err := newService(w, img).Compare(context.Background(), Request{
		A: models.Location{Latitude: 1, Longitude: 2},
		B: models.Location{Latitude: 3, Longitude: 4},
	})
	if err != nil {
		t.Fatal(err)
	}
	if img.calls.Load() != 0 || res.A.Image != "" {
		t.Errorf("image calls = %d", img.calls.Load())
	}
}
