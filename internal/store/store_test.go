package store

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/lox/powerweather/internal/models"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	store := New(db)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

// clock lets tests move the store's notion of now.
type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func TestMigrateIsIdempotent(t *testing.T) {
	store := setupTestStore(t)
	if err := store.Migrate(); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
	v, err := store.MigrationVersion()
	if err != nil {
		t.Fatal(err)
	}
	if v != len(migrations) {
		t.Errorf("version = %d, want %d", v, len(migrations))
	}
}

func TestPayloadCache(t *testing.T) {
	store := setupTestStore(t)
	c := &clock{t: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	store.now = c.now

	key := PayloadKey("daily", "-36.79", "146.98", "20240101", "20240131")
	if key == PayloadKey("daily", "-36.79", "146.98", "20240101", "20240130") {
		t.Fatal("different requests produced the same key")
	}

	if _, err := store.CachedPayload(key, time.Hour); !errors.Is(err, ErrNotFound) {
		t.Fatalf("empty cache err = %v, want ErrNotFound", err)
	}

	payload := []byte(`{"properties":{"parameter":{}}}`)
	if err := store.StorePayload(key, "power", "/api/temporal/daily/point", payload); err != nil {
		t.Fatalf("StorePayload: %v", err)
	}
	if err := store.StorePayload(key, "power", "/api/temporal/daily/point", payload); err != nil {
		t.Fatalf("StorePayload duplicate: %v", err)
	}

	got, err := store.CachedPayload(key, time.Hour)
	if err != nil {
		t.Fatalf("CachedPayload: %v", err)
	}
	if string(got) != string(payload) {
		t.Errorf("payload = %q", got)
	}

	stats, err := store.PayloadStats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalCount != 1 || stats.CountBySource["power"] != 1 {
		t.Errorf("stats = %+v, duplicate not collapsed", stats)
	}

	c.t = c.t.Add(2 * time.Hour)
	if _, err := store.CachedPayload(key, time.Hour); !errors.Is(err, ErrNotFound) {
		t.Errorf("expired payload err = %v, want ErrNotFound", err)
	}
}

func TestCleanupPayloads(t *testing.T) {
	store := setupTestStore(t)
	c := &clock{t: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)}
	store.now = c.now

	if err := store.StorePayload("old", "power", "/x", []byte("a")); err != nil {
		t.Fatal(err)
	}
	c.t = c.t.AddDate(0, 0, 10)
	if err := store.StorePayload("new", "power", "/x", []byte("b")); err != nil {
		t.Fatal(err)
	}

	n, err := store.CleanupPayloads(7 * 24 * time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("deleted %d, want 1", n)
	}
	if _, err := store.CachedPayload("new", 24*time.Hour); err != nil {
		t.Errorf("recent payload removed: %v", err)
	}
}

func TestRecentQueries(t *testing.T) {
	store := setupTestStore(t)
	c := &clock{t: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)}
	store.now = c.now

	bright := models.Location{Name: "Bright", Latitude: -36.73, Longitude: 146.96}
	hobart := models.Location{Name: "Hobart", Latitude: -42.88, Longitude: 147.32}
	for _, loc := range []models.Location{bright, hobart, bright} {
		c.t = c.t.Add(time.Minute)
		err := store.RecordQuery(Query{
			Location:   loc,
			Temporal:   models.TemporalDaily,
			Start:      "20240101",
			End:        "20240131",
			Parameters: []models.Parameter{models.ParamTemperature, models.ParamWind},
		})
		if err != nil {
			t.Fatalf("RecordQuery: %v", err)
		}
	}

	got, err := store.RecentQueries(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2 distinct locations", len(got))
	}
	if got[0].Location.Name != "Bright" || got[1].Location.Name != "Hobart" {
		t.Errorf("order = %s, %s", got[0].Location.Name, got[1].Location.Name)
	}
	if len(got[0].Parameters) != 2 {
		t.Errorf("parameters = %v", got[0].Parameters)
	}

	n, err := store.PruneQueries(1)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("pruned %d, want 2", n)
	}
}
