package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Combine-Capital/pgcache/pkg/logging"
)

// Purger removes expired entries. DistributedCache implements it.
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// Sweeper periodically deletes expired entries so the table does not grow
// without bound. Reads never depend on it: expired entries are invisible
// whether or not they have been swept.
//
// Sweeper satisfies service.Service.
type Sweeper struct {
	purger   Purger
	interval time.Duration
	logger   *logging.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	lastErr error
}

// NewSweeper returns a sweeper that purges every interval.
func NewSweeper(purger Purger, interval time.Duration, logger *logging.Logger) *Sweeper {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Sweeper{
		purger:   purger,
		interval: interval,
		logger:   logger.WithComponent("sweeper"),
	}
}

func (s *Sweeper) Name() string { return "cache-sweeper" }

// Start launches the sweep loop and returns immediately. The loop stops when
// ctx is done or Stop is called.
func (s *Sweeper) Start(ctx context.Context) error {
	if s.interval <= 0 {
		return fmt.Errorf("sweeper interval must be positive, got %v", s.interval)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != nil {
		return fmt.Errorf("service %s already started", s.Name())
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.loop(ctx, s.done)

	s.logger.Info().Dur("interval", s.interval).Msg("expired entry sweeper started")
	return nil
}

// Stop ends the sweep loop and waits for an in-flight purge to return.
func (s *Sweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if done == nil {
		return nil
	}
	cancel()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Health reports the error of the most recent sweep, if it failed.
func (s *Sweeper) Health() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done == nil {
		return fmt.Errorf("service %s not running", s.Name())
	}
	return s.lastErr
}

func (s *Sweeper) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	n, err := s.purger.PurgeExpired(ctx)
	if ctx.Err() != nil {
		return
	}

	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn().Err(err).Msg("expired entry sweep failed")
		return
	}
	if n > 0 {
		s.logger.Debug().Int64("purged", n).Msg("expired entries purged")
	}
}
