package api

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/lox/powerweather/internal/forecast"
	"github.com/lox/powerweather/internal/geocode"
	"github.com/lox/powerweather/internal/insight"
	"github.com/lox/powerweather/internal/models"
	"github.com/lox/powerweather/internal/store"
)

type loaded struct {
	series    models.Series
	forecasts models.Forecasts
	dropped   map[string]int
}

type statusError struct {
	status int
	err    error
}

func (e *statusError) Error() string { return e.err.Error() }
func (e *statusError) Unwrap() error { return e.err }

// load validates wq, fetches the series and runs the forecast model over it.
func (s *Server) load(r *http.Request, wq WeatherQuery) (*loaded, error) {
	if err := s.validate.Struct(wq); err != nil {
		return nil, &statusError{http.StatusBadRequest, validationError(err)}
	}
	req, err := wq.request(s.now())
	if err != nil {
		return nil, &statusError{http.StatusBadRequest, err}
	}
	res, err := s.Weather.Fetch(r.Context(), req)
	if err != nil {
		log.Printf("api: fetch %s: %v", req.Location.DisplayName(), err)
		return nil, &statusError{statusFor(err), err}
	}

	if s.Store != nil {
		layout := req.Temporal.DateLayout()
		if err := s.Store.RecordQuery(store.Query{
			Location:   req.Location,
			Temporal:   req.Temporal,
			Start:      req.Start.Format(layout),
			End:        req.End.Format(layout),
			Parameters: req.Parameters,
		}); err != nil {
			log.Printf("api: record query: %v", err)
		}
	}

	m := wq.model()
	if m == nil {
		m = s.Forecast
	}
	return &loaded{
		series:    res.Series,
		forecasts: forecast.ForSeries(m, res.Series),
		dropped:   res.Dropped,
	}, nil
}

func (s *Server) loadFromURL(w http.ResponseWriter, r *http.Request) (*loaded, bool) {
	wq, err := queryFromURL(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return nil, false
	}
	l, err := s.load(r, wq)
	if err != nil {
		writeLoadError(w, err)
		return nil, false
	}
	return l, true
}

func writeLoadError(w http.ResponseWriter, err error) {
	var se *statusError
	if errors.As(err, &se) {
		writeError(w, se.status, se.err)
		return
	}
	writeError(w, http.StatusInternalServerError, err)
}

func (s *Server) handleAPIWeather(w http.ResponseWriter, r *http.Request) {
	l, ok := s.loadFromURL(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newWeatherView(s.Facade.Engine(), l))
}

func (s *Server) handleAPISummary(w http.ResponseWriter, r *http.Request) {
	l, ok := s.loadFromURL(w, r)
	if !ok {
		return
	}
	in := insight.SummaryInput{Series: l.series, Forecasts: l.forecasts}
	writeJSON(w, http.StatusOK, map[string]any{
		"summary":   s.Facade.Summary(r.Context(), in),
		"narrative": s.Facade.Engine().Summarize(in),
	})
}

func (s *Server) handleAPIInterpret(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("param"))
	if raw == "" {
		writeError(w, http.StatusBadRequest, errors.New("param: required"))
		return
	}
	p := models.Parameter(strings.ToUpper(raw))
	if !p.Valid() {
		writeError(w, http.StatusBadRequest, fmt.Errorf("param: unknown parameter code %q", raw))
		return
	}
	l, ok := s.loadFromURL(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"parameter":      p,
		"interpretation": s.Facade.Interpret(r.Context(), l.series, p, l.forecasts),
	})
}

type statsView struct {
	Parameter models.Parameter  `json:"parameter"`
	Label     string            `json:"label"`
	Unit      string            `json:"unit"`
	Count     int               `json:"count"`
	Stats     insight.StatsText `json:"stats"`
	Trend     insight.Trend     `json:"trend"`
}

func (s *Server) handleAPIStats(w http.ResponseWriter, r *http.Request) {
	l, ok := s.loadFromURL(w, r)
	if !ok {
		return
	}
	e := s.Facade.Engine()
	out := make([]statsView, 0, len(l.series.Parameters))
	for _, p := range l.series.Parameters {
		st := insight.ComputeStats(l.series.Column(p))
		out = append(out, statsView{
			Parameter: p,
			Label:     p.Label(),
			Unit:      l.series.Unit(p),
			Count:     st.Count,
			Stats:     st.Text(),
			Trend:     e.Trend(l.series.Present(p)),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAPITips(w http.ResponseWriter, r *http.Request) {
	l, ok := s.loadFromURL(w, r)
	if !ok {
		return
	}
	tips := s.Facade.Engine().Tips(l.series)
	if tips == nil {
		tips = []insight.Tip{}
	}
	writeJSON(w, http.StatusOK, tips)
}

func (s *Server) handleAPIRecent(w http.ResponseWriter, r *http.Request) {
	if s.Store == nil {
		writeJSON(w, http.StatusOK, []recentView{})
		return
	}
	limit := 10
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 50 {
		limit = v
	}
	qs, err := s.Store.RecentQueries(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, newRecentViews(qs, s.now()))
}

// handleAPIGeocode searches by q, or names the point given by lat and lon.
func (s *Server) handleAPIGeocode(w http.ResponseWriter, r *http.Request) {
	if s.Geocoder == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("geocoding disabled"))
		return
	}
	q := r.URL.Query()
	if query := strings.TrimSpace(q.Get("q")); query != "" {
		loc, err := s.Geocoder.Search(r.Context(), query)
		if errors.Is(err, geocode.ErrNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		if err != nil {
			writeError(w, http.StatusBadGateway, err)
			return
		}
		writeJSON(w, http.StatusOK, loc)
		return
	}

	wq, err := queryFromURL(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.validate.StructPartial(wq, "Latitude", "Longitude"); err != nil {
		writeError(w, http.StatusBadRequest, validationError(err))
		return
	}
	name := geocode.ReverseName(r.Context(), s.Geocoder, *wq.Latitude, *wq.Longitude)
	writeJSON(w, http.StatusOK, models.Location{Latitude: *wq.Latitude, Longitude: *wq.Longitude, Name: name})
}
