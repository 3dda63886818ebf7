package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/memovault/memovault/internal/service"
)

type countingSweeper struct {
	calls atomic.Int64
	block chan struct{}
}

func (s *countingSweeper) RunIfDue(context.Context, bool) service.CleanupReport {
	s.calls.Add(1)
	if s.block != nil {
		<-s.block
	}
	return service.CleanupReport{}
}

type panickingSweeper struct{}

func (panickingSweeper) RunIfDue(context.Context, bool) service.CleanupReport {
	panic("sweep blew up")
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestCleanupTriggerFiresInBackground(t *testing.T) {
	sweeper := &countingSweeper{}
	h := CleanupTrigger(sweeper)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/notes", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("request must not be affected, got %d", rec.Code)
	}
	waitFor(t, func() bool { return sweeper.calls.Load() == 1 })
}

func TestCleanupTriggerCoalescesConcurrentRuns(t *testing.T) {
	sweeper := &countingSweeper{block: make(chan struct{})}
	h := CleanupTrigger(sweeper)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 10; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/notes", nil))
	}
	// Wait until the single in-flight sweep is holding the group, then
	// release it. The held call blocks every later Do on the same key.
	waitFor(t, func() bool { return sweeper.calls.Load() >= 1 })
	close(sweeper.block)
	time.Sleep(50 * time.Millisecond)

	if got := sweeper.calls.Load(); got > 2 {
		t.Fatalf("expected coalesced sweeps, got %d calls", got)
	}
}

func TestCleanupTriggerSwallowsPanics(t *testing.T) {
	h := CleanupTrigger(panickingSweeper{})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/notes", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("panicking sweeper must not affect the response, got %d", rec.Code)
	}
	// Give the background goroutine a beat; the test passes by not
	// crashing the process.
	time.Sleep(20 * time.Millisecond)
}
