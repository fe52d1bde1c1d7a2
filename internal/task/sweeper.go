package task

import (
	"log/slog"
	"sync"
	"time"
)

// Sweepable is anything the sweeper can ask to drop expired state. Cache
// instances register themselves through it.
type Sweepable interface {
	Name() string
	Sweep() int
}

// SweeperConfig holds the sweeper's schedule settings.
type SweeperConfig struct {
	// Interval between sweep passes.
	Interval time.Duration

	// Retention is how long terminal tasks are kept after completion.
	Retention time.Duration
}

// DefaultSweeperConfig returns the sweeper defaults: a pass every five
// minutes, retaining terminal tasks for 24 hours.
func DefaultSweeperConfig() SweeperConfig {
	return SweeperConfig{
		Interval:  5 * time.Minute,
		Retention: 24 * time.Hour,
	}
}

// Sweeper periodically reaps aged-out terminal tasks from the queue and
// triggers a sweep on every registered cache. A failure in one pass is
// logged and never halts the schedule.
type Sweeper struct {
	queue  *Queue
	caches []Sweepable
	config SweeperConfig
	logger *slog.Logger

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewSweeper creates a sweeper for the given queue. Zero config values fall
// back to the defaults.
func NewSweeper(queue *Queue, config SweeperConfig, logger *slog.Logger) *Sweeper {
	defaults := DefaultSweeperConfig()
	if config.Interval <= 0 {
		config.Interval = defaults.Interval
	}
	if config.Retention <= 0 {
		config.Retention = defaults.Retention
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		queue:  queue,
		config: config,
		logger: logger,
		stopCh: make(chan struct{}),
	}
}

// Register adds a cache to the sweep schedule. Must be called before Start.
func (s *Sweeper) Register(c Sweepable) {
	s.caches = append(s.caches, c)
}

// Start launches the periodic sweep loop.
func (s *Sweeper) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.config.Interval)
		defer ticker.Stop()

		s.logger.Info("sweeper started",
			"interval", s.config.Interval,
			"retention", s.config.Retention)

		for {
			select {
			case <-s.stopCh:
				s.logger.Debug("sweeper stopped")
				return
			case <-ticker.C:
				s.sweepOnce()
			}
		}
	}()
}

// Stop terminates the sweep loop and waits for any in-flight pass.
func (s *Sweeper) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}

// sweepOnce runs a single pass over the queue and all registered caches,
// isolating panics so a malformed record cannot kill the schedule.
func (s *Sweeper) sweepOnce() {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("sweep pass panicked", "panic", r)
		}
	}()

	cutoff := time.Now().Add(-s.config.Retention)
	removed := s.queue.Cleanup(cutoff)

	for _, c := range s.caches {
		s.sweepCache(c)
	}

	s.logger.Debug("sweep pass finished", "tasks_removed", removed, "caches", len(s.caches))
}

func (s *Sweeper) sweepCache(c Sweepable) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("cache sweep panicked", "cache", c.Name(), "panic", r)
		}
	}()
	c.Sweep()
}
