package power

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/lox/powerweather/internal/insight"
	"github.com/lox/powerweather/internal/models"
	"github.com/lox/powerweather/internal/store"
)

const dailyBody = `{
  "type": "Feature",
  "properties": {
    "parameter": {
      "T2M": {"20240101": 21.5, "20240102": -999, "20240103": 24.1},
      "PRECTOTCORR": {"20240101": 0.0, "20240102": 3.2, "20240103": 0.4}
    }
  },
  "parameters": {
    "T2M": {"units": "C", "longname": "Temperature at 2 Meters"},
    "PRECTOTCORR": {"units": "mm/day", "longname": "Precipitation Corrected"}
  },
  "messages": []
}`

func testRequest() Request {
	return Request{
		Location:   models.Location{Latitude: -36.794, Longitude: 146.977, Name: "Wandiligong"},
		Temporal:   models.TemporalDaily,
		Parameters: []models.Parameter{models.ParamTemperature, models.ParamPrecipitation},
		Start:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:        time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
	}
}

func TestFetch(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/temporal/daily/point" {
			t.Errorf("path = %s", r.URL.Path)
		}
		gotQuery = r.URL.RawQuery
		w.Write([]byte(dailyBody))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	res, err := c.Fetch(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	for _, want := range []string{"parameters=T2M%2CPRECTOTCORR", "community=AG", "start=20240101", "end=20240103", "format=JSON"} {
		if !strings.Contains(gotQuery, want) {
			t.Errorf("query %q missing %q", gotQuery, want)
		}
	}

	s := res.Series
	if len(s.Observations) != 3 {
		t.Fatalf("observations = %d", len(s.Observations))
	}
	if s.Observations[1].Value(models.ParamTemperature).Valid {
		t.Error("sentinel should be absent")
	}
	if s.Unit(models.ParamTemperature) != "°C" {
		t.Errorf("unit = %q", s.Unit(models.ParamTemperature))
	}
	if res.Dropped[insight.FlagMissing] != 1 {
		t.Errorf("dropped = %v", res.Dropped)
	}
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(dailyBody))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithMaxElapsed(10*time.Second))
	if _, err := c.Fetch(context.Background(), testRequest()); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestFetchUnprocessableIsPermanent(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"header":"Validation","messages":["The end date is before the start date"]}`))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	_, err := c.Fetch(context.Background(), testRequest())
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("err = %v, want ErrUpstream", err)
	}
	if !strings.Contains(err.Error(), "end date is before") {
		t.Errorf("err = %v, want upstream message", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want no retry", calls.Load())
	}
}

func TestFetchUsesCache(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	db.SetMaxOpenConns(1)
	defer db.Close()
	st := store.New(db)
	if err := st.Migrate(); err != nil {
		t.Fatal(err)
	}

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(dailyBody))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithCache(st, time.Hour))
	for i := 0; i < 3; i++ {
		if _, err := c.Fetch(context.Background(), testRequest()); err != nil {
			t.Fatalf("Fetch %d: %v", i, err)
		}
	}
	if calls.Load() != 1 {
		t.Errorf("upstream calls = %d, want 1", calls.Load())
	}
}

func TestMonthlyURLUsesYears(t *testing.T) {
	req := testRequest()
	req.Temporal = models.TemporalMonthly
	req.End = time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)
	req.Start = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	u := NewClient().URL(req)
	if !strings.Contains(u, "/api/temporal/monthly/point?") || !strings.Contains(u, "start=2020") || !strings.Contains(u, "end=2023") {
		t.Errorf("URL = %s", u)
	}
}

func TestDecodeTopLevelParameter(t *testing.T) {
	grid, _, err := Decode([]byte(`{"parameter": {"WS2M": {"20240101": 3.5}}}`))
	if err != nil {
		t.Fatal(err)
	}
	if grid[models.ParamWind]["20240101"] != 3.5 {
		t.Errorf("grid = %v", grid)
	}

	if _, _, err := Decode([]byte(`{"messages": []}`)); !errors.Is(err, ErrNoData) {
		t.Errorf("err = %v, want ErrNoData", err)
	}
}
