// Package scheduler runs the overdue pickup sweep: a background loop that
// flags PLANNED pickups whose scheduled date has passed.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/pkg/errors"

	"github.com/ecotrace/collect-api/pkg/events"
	"github.com/ecotrace/collect-api/pkg/metrics"
	"github.com/ecotrace/collect-api/pkg/redis"
	"github.com/ecotrace/collect-api/pkg/repositories"
	"github.com/ecotrace/collect-api/pkg/tracing"
)

var (
	// ErrSweepAlreadyRunning is returned when trying to start a running sweep
	ErrSweepAlreadyRunning = errors.New("sweep already running")
)

const (
	// DefaultPollInterval is the default interval between sweep runs
	DefaultPollInterval = 5 * time.Minute

	// DefaultLockTTL is the default TTL for the sweep lock
	DefaultLockTTL = 2 * time.Minute

	// lockKey guards the sweep across instances
	lockKey = "sweep:overdue-pickups"
)

// Config holds configuration for the sweep
type Config struct {
	// PollInterval is how often to scan for overdue pickups
	PollInterval time.Duration

	// LockTTL is how long the distributed lock is held
	LockTTL time.Duration
}

// DefaultConfig returns the default sweep configuration
func DefaultConfig() Config {
	return Config{
		PollInterval: DefaultPollInterval,
		LockTTL:      DefaultLockTTL,
	}
}

// Sweep scans for overdue planned pickups and emits pickup.overdue events.
// The redis lock keeps the scan single-flight across instances; without a
// locker each instance sweeps on its own (events are at-least-once anyway).
type Sweep struct {
	pickups repositories.PickupStore
	emitter *events.Emitter
	locker  *redis.Locker
	config  Config
	logger  ectologger.Logger

	// Coordination
	stopCh   chan struct{}
	stoppedC chan struct{}
	running  bool
	mu       sync.RWMutex
}

// NewSweep creates a new overdue pickup sweep
func NewSweep(
	pickups repositories.PickupStore,
	emitter *events.Emitter,
	locker *redis.Locker,
	config Config,
	logger ectologger.Logger,
) *Sweep {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollInterval
	}
	if config.LockTTL <= 0 {
		config.LockTTL = DefaultLockTTL
	}

	return &Sweep{
		pickups:  pickups,
		emitter:  emitter,
		locker:   locker,
		config:   config,
		logger:   logger,
		stopCh:   make(chan struct{}),
		stoppedC: make(chan struct{}),
	}
}

// Start starts the sweep loop
func (s *Sweep) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrSweepAlreadyRunning
	}
	s.running = true
	s.mu.Unlock()

	s.logger.WithContext(ctx).Infof("Starting overdue pickup sweep: poll_interval=%s", s.config.PollInterval)

	go s.pollLoop(ctx)

	return nil
}

// Stop stops the sweep gracefully
func (s *Sweep) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	s.logger.WithContext(ctx).Info("Stopping overdue pickup sweep...")

	close(s.stopCh)

	select {
	case <-s.stoppedC:
		s.logger.WithContext(ctx).Info("Sweep stopped gracefully")
	case <-ctx.Done():
		s.logger.WithContext(ctx).Warn("Sweep shutdown timed out")
		return ctx.Err()
	}

	return nil
}

// IsRunning returns whether the sweep is running
func (s *Sweep) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

func (s *Sweep) pollLoop(ctx context.Context) {
	defer close(s.stoppedC)

	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	// Run immediately on start
	s.runOnce(ctx)

	for {
		select {
		case <-s.stopCh:
			s.logger.WithContext(ctx).Debug("Sweep poll loop stopping")
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

// runOnce runs a single sweep cycle under the distributed lock
func (s *Sweep) runOnce(ctx context.Context) {
	ctx, span := tracing.StartSpan(ctx, "Sweep.runOnce")
	defer span.End()

	if s.locker == nil {
		s.sweep(ctx)
		return
	}

	err := s.locker.WithLock(ctx, lockKey, s.config.LockTTL, func() error {
		s.sweep(ctx)
		return nil
	})
	if errors.Is(err, redis.ErrLockNotAcquired) {
		s.logger.WithContext(ctx).Debug("Another instance holds the sweep lock, skipping")
		metrics.RecordSweepRun("skipped", 0)
		return
	}
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("Sweep lock error")
		metrics.RecordSweepRun("error", 0)
	}
}

func (s *Sweep) sweep(ctx context.Context) {
	overdue, err := s.pickups.ListOverduePlanned(ctx, time.Now().UTC())
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("Failed to list overdue pickups")
		metrics.RecordSweepRun("error", 0)
		return
	}

	if len(overdue) == 0 {
		s.logger.WithContext(ctx).Debug("No overdue pickups")
		metrics.RecordSweepRun("ok", 0)
		return
	}

	s.logger.WithContext(ctx).Infof("Found %d overdue pickups", len(overdue))
	for i := range overdue {
		s.emitter.PickupOverdue(ctx, &overdue[i])
	}
	metrics.RecordSweepRun("ok", len(overdue))
}
