package geocode

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNominatimSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("User-Agent") == "" {
			t.Error("missing User-Agent")
		}
		if r.URL.Query().Get("q") == "Nowhere" {
			w.Write([]byte(`[]`))
			return
		}
		w.Write([]byte(`[{"lat":"28.6139","lon":"77.2090","display_name":"New Delhi, Delhi, India"}]`))
	}))
	defer srv.Close()

	n := NewNominatim(srv.URL)
	loc, err := n.Search(context.Background(), "New Delhi")
	if err != nil {
		t.Fatal(err)
	}
	if loc.Latitude != 28.6139 || loc.Longitude != 77.2090 || loc.Name != "New Delhi, Delhi, India" {
		t.Errorf("loc = %+v", loc)
	}

	if _, err := n.Search(context.Background(), "Nowhere"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if _, err := n.Search(context.Background(), "  "); !errors.Is(err, ErrNotFound) {
		t.Errorf("blank err = %v", err)
	}
}

func TestReverseName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("lat") == "0.000000" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"display_name":"Bright, Victoria, Australia"}`))
	}))
	defer srv.Close()

	n := NewNominatim(srv.URL)
	if got := ReverseName(context.Background(), n, -36.73, 146.96); got != "Bright, Victoria, Australia" {
		t.Errorf("ReverseName = %q", got)
	}
	if got := ReverseName(context.Background(), n, 0, 0); got != "Lat: 0.000, Lon: 0.000" {
		t.Errorf("ReverseName fallback = %q", got)
	}
	if got := ReverseName(context.Background(), nil, 1.5, 2.25); got != "Lat: 1.500, Lon: 2.250" {
		t.Errorf("ReverseName nil = %q", got)
	}
}

func TestNewPicksBackend(t *testing.T) {
	if _, ok := New("", "").(*Nominatim); !ok {
		t.Error("expected Nominatim without a google key")
	}
	if _, ok := New("key", "").(*Google); !ok {
		t.Error("expected Google with a key")
	}
}
