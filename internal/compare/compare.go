// Package compare runs a side-by-side weather comparison of two locations.
package compare

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lox/powerweather/internal/assist"
	"github.com/lox/powerweather/internal/insight"
	"github.com/lox/powerweather/internal/models"
	"github.com/lox/powerweather/internal/power"
)

const DefaultDays = 30

// Parameters fetched for each side of a comparison.
var Parameters = []models.Parameter{models.ParamTemperature, models.ParamPrecipitation, models.ParamWind}

type WeatherSource interface {
	Fetch(ctx context.Context, req power.Request) (insight.AdaptResult, error)
}

type ImageSource interface {
	Lookup(ctx context.Context, place string) string
}

type Request struct {
	A       models.Location
	B       models.Location
	Purpose string
	Days    int
}

type Side struct {
	Location models.Location `json:"location"`
	Profile  insight.Profile `json:"profile"`
	Image    string          `json:"image,omitempty"`
	Series   models.Series   `json:"-"`
}

type Result struct {
	A              Side         `json:"a"`
	B              Side         `json:"b"`
	Start          time.Time    `json:"start"`
	End            time.Time    `json:"end"`
	Headline       string       `json:"headline"`
	Recommendation assist.Reply `json:"recommendation"`
}

type Service struct {
	weather WeatherSource
	images  ImageSource
	facade  *assist.Facade
	now     func() time.Time
}

// NewService creates a comparison service. images may be nil.
func NewService(weather WeatherSource, images ImageSource, facade *assist.Facade) *Service {
	return &Service{
		weather: weather,
		images:  images,
		facade:  facade,
		now:     time.Now,
	}
}

// Compare fetches both locations concurrently. A weather failure on either
// side fails the comparison; image lookups only ever degrade to no image.
func (s *Service) Compare(ctx context.Context, req Request) (*Result, error) {
	days := req.Days
	if days <= 0 {
		days = DefaultDays
	}
	end := s.now().UTC().Truncate(24 * time.Hour)
	start := end.AddDate(0, 0, -days)

	res := &Result{
		A:     Side{Location: req.A},
		B:     Side{Location: req.B},
		Start: start,
		End:   end,
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, side := range []*Side{&res.A, &res.B} {
		g.Go(func() error {
			r, err := s.weather.Fetch(gctx, power.Request{
				Location:   side.Location,
				Temporal:   models.TemporalDaily,
				Parameters: Parameters,
				Start:      start,
				End:        end,
			})
			if err != nil {
				return fmt.Errorf("fetch %s: %w", side.Location.DisplayName(), err)
			}
			side.Series = r.Series
			return nil
		})
	}

	// Image lookups must not be cancelled by a weather failure on the other
	// side, so they use the caller's context and their own wait.
	images := make(chan struct{})
	go func() {
		defer close(images)
		if s.images == nil {
			return
		}
		var ig errgroup.Group
		for _, side := range []*Side{&res.A, &res.B} {
			ig.Go(func() error {
				if name := strings.TrimSpace(side.Location.Name); name != "" {
					side.Image = s.images.Lookup(ctx, name)
				}
				return nil
			})
		}
		ig.Wait()
	}()

	err := g.Wait()
	<-images
	if err != nil {
		return nil, err
	}

	engine := s.facade.Engine()
	res.A.Profile = engine.Profile(res.A.Series)
	res.B.Profile = engine.Profile(res.B.Series)
	res.Headline = insight.Headline(res.A.Profile, res.B.Profile)
	res.Recommendation = s.facade.Recommend(ctx, res.A.Profile, res.B.Profile, req.Purpose)
	return res, nil
}
