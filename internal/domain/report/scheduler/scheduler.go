package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// WorkspaceSweeper drops image workspaces idle since before cutoff
type WorkspaceSweeper interface {
	Sweep(cutoff time.Time) int
}

// Scheduler periodically releases the uploaded images of abandoned sessions
type Scheduler struct {
	sweeper  WorkspaceSweeper
	interval time.Duration
	idleTTL  time.Duration
	logger   *slog.Logger
	now      func() time.Time
	stopCh   chan struct{}
	wg       sync.WaitGroup
	running  bool
	mu       sync.Mutex
}

// New creates a new scheduler
func New(sweeper WorkspaceSweeper, interval, idleTTL time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		sweeper:  sweeper,
		interval: interval,
		idleTTL:  idleTTL,
		logger:   logger,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
}

// Start starts the scheduler
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	s.logger.Info("workspace sweeper started", "interval", s.interval, "idle_ttl", s.idleTTL)

	s.wg.Add(1)
	go s.run(ctx)
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopCh)
	s.wg.Wait()
	s.logger.Info("workspace sweeper stopped")
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) sweep() {
	dropped := s.sweeper.Sweep(s.now().Add(-s.idleTTL))
	if dropped > 0 {
		s.logger.Info("released idle image workspaces", "count", dropped)
	} else {
		s.logger.Debug("no idle image workspaces")
	}
}
