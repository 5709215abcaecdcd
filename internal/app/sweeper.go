package app

import (
	"context"
	"time"

	"github.com/bao99257/flashsale-engine/internal/metrics"
	"github.com/rs/zerolog"
)

const sweepBatchSize = 100

// Sweeper periodically reclaims expired, unconfirmed holds. It shares the
// release path with manual cancellation, so racing a concurrent confirm or
// release is harmless.
type Sweeper struct {
	sessions *SessionService
	interval time.Duration
	logger   zerolog.Logger
}

func NewSweeper(sessions *SessionService, interval time.Duration, logger zerolog.Logger) *Sweeper {
	return &Sweeper{
		sessions: sessions,
		interval: interval,
		logger:   logger,
	}
}

// Run blocks until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
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
	metrics.SweepRuns.Inc()

	released, err := s.sessions.ReleaseExpired(ctx, sweepBatchSize)
	if err != nil {
		s.logger.Error().Err(err).Msg("expiry sweep failed")
		return
	}
	if released > 0 {
		metrics.SessionsReleasedTotal.WithLabelValues("sweep").Add(float64(released))
		s.logger.Info().Int("released", released).Msg("released expired sessions")
	}
}
