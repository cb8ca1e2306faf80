package scheduler

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingSweeper struct {
	calls  atomic.Int64
	cutoff atomic.Int64
}

func (c *countingSweeper) Sweep(cutoff time.Time) int {
	c.calls.Add(1)
	c.cutoff.Store(cutoff.Unix())
	return 1
}

func TestSchedulerSweepsUntilStopped(t *testing.T) {
	sw := &countingSweeper{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s := New(sw, 10*time.Millisecond, time.Hour, logger)
	fixed := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	s.Start(context.Background())
	s.Start(context.Background()) // second start is a no-op

	assert.Eventually(t, func() bool { return sw.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	s.Stop()
	s.Stop()

	assert.Equal(t, fixed.Add(-time.Hour).Unix(), sw.cutoff.Load())

	calls := sw.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, calls, sw.calls.Load())
}
