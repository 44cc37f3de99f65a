package services

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/pulsepoll/pulsepoll/internal/repo"
	"github.com/pulsepoll/pulsepoll/internal/storage/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testClock is a manually advanced clock shared by the services under test.
// Watcher goroutines read it while the test goroutine advances it, so access
// is locked.
type testClock struct {
	mu      sync.Mutex
	current time.Time
}

func newTestClock() *testClock {
	return &testClock{current: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
}

func newTestLifecycle(t *testing.T) (*Lifecycle, *repo.Records, *testClock) {
	t.Helper()

	records := repo.New(memory.New())
	clock := newTestClock()

	lc := NewLifecycle(testLogger(), records, records, 50)
	lc.now = clock.Now

	return lc, records, clock
}
