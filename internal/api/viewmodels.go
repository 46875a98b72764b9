package api

import (
	"time"

	"github.com/dustin/go-humanize"

	"github.com/lox/powerweather/internal/insight"
	"github.com/lox/powerweather/internal/models"
	"github.com/lox/powerweather/internal/store"
)

type observationView struct {
	Date   string                        `json:"date"`
	Values map[models.Parameter]*float64 `json:"values"`
}

type WeatherView struct {
	Location     models.Location                        `json:"location"`
	Temporal     models.Temporal                        `json:"temporal"`
	Parameters   []models.Parameter                     `json:"parameters"`
	Units        map[models.Parameter]string            `json:"units"`
	Observations []observationView                      `json:"observations"`
	Statistics   map[models.Parameter]insight.StatsText `json:"statistics"`
	Trends       map[models.Parameter]insight.Trend     `json:"trends"`
	Forecasts    models.Forecasts                       `json:"forecasts"`
	Dropped      map[string]int                         `json:"dropped,omitempty"`
}

func newWeatherView(e *insight.Engine, l *loaded) WeatherView {
	s := l.series
	v := WeatherView{
		Location:     s.Location,
		Temporal:     s.Temporal,
		Parameters:   s.Parameters,
		Units:        map[models.Parameter]string{},
		Observations: make([]observationView, 0, len(s.Observations)),
		Statistics:   map[models.Parameter]insight.StatsText{},
		Trends:       map[models.Parameter]insight.Trend{},
		Forecasts:    l.forecasts,
		Dropped:      l.dropped,
	}
	for _, p := range s.Parameters {
		v.Units[p] = s.Unit(p)
		v.Statistics[p] = insight.ComputeStats(s.Column(p)).Text()
		v.Trends[p] = e.Trend(s.Present(p))
	}
	for _, o := range s.Observations {
		ov := observationView{Date: o.Date.Format("2006-01-02"), Values: map[models.Parameter]*float64{}}
		for _, p := range s.Parameters {
			if r := o.Value(p); r.Valid {
				f := r.Float64
				ov.Values[p] = &f
			} else {
				ov.Values[p] = nil
			}
		}
		v.Observations = append(v.Observations, ov)
	}
	return v
}

type recentView struct {
	Location   models.Location    `json:"location"`
	Temporal   models.Temporal    `json:"temporal"`
	Start      string             `json:"start"`
	End        string             `json:"end"`
	Parameters []models.Parameter `json:"parameters"`
	When       string             `json:"when"`
	CreatedAt  time.Time          `json:"created_at"`
}

func newRecentViews(qs []store.Query, now time.Time) []recentView {
	out := make([]recentView, 0, len(qs))
	for _, q := range qs {
		out = append(out, recentView{
			Location:   q.Location,
			Temporal:   q.Temporal,
			Start:      q.Start,
			End:        q.End,
			Parameters: q.Parameters,
			When:       humanize.RelTime(q.CreatedAt, now, "ago", "from now"),
			CreatedAt:  q.CreatedAt,
		})
	}
	return out
}
