package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lox/powerweather/internal/insight"
	"github.com/lox/powerweather/internal/models"
	"github.com/lox/powerweather/internal/power"
)

type fakeStore struct {
	cleanups  atomic.Int32
	retention time.Duration
	keep      int
	err       error
}

func (f *fakeStore) CleanupPayloads(retention time.Duration) (int64, error) {
	f.cleanups.Add(1)
	f.retention = retention
	return 2, f.err
}

func (f *fakeStore) PruneQueries(keep int) (int64, error) {
	f.keep = keep
	return 1, nil
}

type fakeSessions struct{ maxAge time.Duration }

func (f *fakeSessions) Prune(maxAge time.Duration) int {
	f.maxAge = maxAge
	return 3
}

func TestRunCleanup(t *testing.T) {
	st := &fakeStore{}
	sess := &fakeSessions{}
	s := New(st, DefaultConfig())
	s.SetSessions(sess)

	if err := s.RunCleanup(); err != nil {
		t.Fatal(err)
	}
	if st.retention != 7*24*time.Hour || st.keep != 50 || sess.maxAge != 6*time.Hour {
		t.Errorf("retention=%v keep=%d sessions=%v", st.retention, st.keep, sess.maxAge)
	}

	st.err = errors.New("disk full")
	if err := s.RunCleanup(); err == nil {
		t.Error("expected error")
	}
}

func TestStartRunsCleanup(t *testing.T) {
	st := &fakeStore{}
	s := New(st, DefaultConfig())
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	defer s.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for st.cleanups.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if st.cleanups.Load() == 0 {
		t.Error("cleanup did not run after Start")
	}
}

type fakeFetcher struct {
	reqs []power.Request
}

func (f *fakeFetcher) Fetch(ctx context.Context, req power.Request) (insight.AdaptResult, error) {
	f.reqs = append(f.reqs, req)
	if req.Location.Name == "bad" {
		return insight.AdaptResult{}, power.ErrNoData
	}
	return insight.AdaptResult{}, nil
}

func TestPrefetch(t *testing.T) {
	f := &fakeFetcher{}
	s := New(&fakeStore{}, DefaultConfig())
	s.now = func() time.Time { return time.Date(2024, 5, 31, 9, 30, 0, 0, time.UTC) }
	s.SetPrefetch(f, []models.Location{{Name: "Bright"}, {Name: "bad"}})

	if got := s.Prefetch(context.Background()); got != 1 {
		t.Errorf("Prefetch = %d, want 1", got)
	}
	if len(f.reqs) != 2 {
		t.Fatalf("requests = %d", len(f.reqs))
	}
	r := f.reqs[0]
	if !r.End.Equal(time.Date(2024, 5, 30, 0, 0, 0, 0, time.UTC)) || !r.Start.Equal(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("window = %v..%v", r.Start, r.End)
	}

	c := power.NewClient()
	want := c.URL(power.DefaultRequest(models.Location{Name: "Bright"}, models.TemporalDaily, s.now()))
	if got := c.URL(r); got != want {
		t.Errorf("prefetch URL = %s\nwant dashboard default %s", got, want)
	}
}
