package ttl

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// Purger drops whatever has expired and reports how many records went.
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// Sweeper calls a Purger on a fixed period.
type Sweeper struct {
	purger Purger
	every  time.Duration
	logger *log.Logger
}

// NewSweeper returns a sweeper that purges p every period.
func NewSweeper(p Purger, every time.Duration, logger *log.Logger) *Sweeper {
	return &Sweeper{purger: p, every: every, logger: logger}
}

// Run sweeps until ctx is canceled. A failed sweep is logged and retried on
// the next tick.
func (s *Sweeper) Run(ctx context.Context) {
	tick := time.NewTicker(s.every)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) int64 {
	n, err := s.purger.PurgeExpired(ctx)
	switch {
	case err != nil:
		s.logger.Warn("expiry sweep failed", "every", s.every, "error", err)
		return 0
	case n > 0:
		s.logger.Info("expiry sweep removed session records", "count", n)
	default:
		s.logger.Debug("expiry sweep found nothing to remove")
	}
	return n
}
