package cityimage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestLookup(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if got := r.Header.Get("Authorization"); got != "Client-ID key" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.URL.Query().Get("query"); got != "Melbourne city skyline" {
			t.Errorf("query = %q", got)
		}
		if r.URL.Query().Get("orientation") != "landscape" || r.URL.Query().Get("per_page") != "1" {
			t.Errorf("raw query = %s", r.URL.RawQuery)
		}
		w.Write([]byte(`{"results":[{"urls":{"regular":"https://images.example/mel.jpg"}}]}`))
	}))
	defer srv.Close()

	c := NewClient("key", WithBaseURL(srv.URL))
	for i := 0; i < 2; i++ {
		if got := c.Lookup(context.Background(), "Melbourne"); got != "https://images.example/mel.jpg" {
			t.Fatalf("Lookup = %q", got)
		}
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want cached second lookup", calls.Load())
	}
}

func TestLookupExpires(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"results":[{"urls":{"regular":"u"}}]}`))
	}))
	defer srv.Close()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewClient("key", WithBaseURL(srv.URL), WithTTL(time.Hour))
	c.now = func() time.Time { return now }

	c.Lookup(context.Background(), "Perth")
	now = now.Add(2 * time.Hour)
	c.Lookup(context.Background(), "Perth")
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestLookupDegrades(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		handler http.HandlerFunc
	}{
		{"no key", "", func(w http.ResponseWriter, r *http.Request) {
			t.Error("unexpected request")
		}},
		{"server error", "key", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{"no results", "key", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"results":[]}`))
		}},
		{"bad json", "key", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{`))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()
			c := NewClient(tt.key, WithBaseURL(srv.URL))
			if got := c.Lookup(context.Background(), "Hobart"); got != "" {
				t.Errorf("Lookup = %q, want no image", got)
			}
		})
	}
}
