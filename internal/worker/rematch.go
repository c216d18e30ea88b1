// Package worker runs the background jobs that do not belong to a
// conversation turn: the periodic rematch sweep over open ride requests.
package worker

import (
	"context"
	"time"

	"routerider/internal/bot"
	"routerider/internal/domain"
	"routerider/internal/service"

	"github.com/rs/zerolog"
)

// sweepBackoff doubles the wait after each consecutive failed sweep, capped.
// A successful sweep resets to the regular interval.
type sweepBackoff struct {
	initial time.Duration
	max     time.Duration
}

func (b sweepBackoff) delay(failures int) time.Duration {
	initial := b.initial
	if initial <= 0 {
		initial = time.Second
	}
	ceiling := b.max
	if ceiling <= 0 {
		ceiling = time.Minute
	}

	d := initial
	for i := 1; i < failures && d < ceiling; i++ {
		d *= 2
	}
	if d > ceiling {
		d = ceiling
	}
	return d
}

// RematchWorker periodically retries matching for ride requests that found
// no trip when they were created. The worker notifies the matched passenger
// directly; the driver push rides the ride-matched event, same as a
// turn-time match, so the driver is never notified twice.
type RematchWorker struct {
	rides    *service.RideService
	repo     domain.Repository
	notifier domain.Notifier
	interval time.Duration
	backoff  sweepBackoff
	logger   *zerolog.Logger
}

func NewRematchWorker(
	rides *service.RideService,
	repo domain.Repository,
	notifier domain.Notifier,
	interval time.Duration,
	logger *zerolog.Logger,
) *RematchWorker {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &RematchWorker{
		rides:    rides,
		repo:     repo,
		notifier: notifier,
		interval: interval,
		backoff:  sweepBackoff{initial: 2 * time.Second, max: time.Minute},
		logger:   logger,
	}
}

// Run sweeps until ctx is cancelled. Sweep failures back off exponentially
// and reset on the next success.
func (w *RematchWorker) Run(ctx context.Context) {
	w.logger.Info().Dur("interval", w.interval).Msg("rematch worker started")
	defer w.logger.Info().Msg("rematch worker stopped")

	failures := 0
	for {
		wait := w.interval
		if failures > 0 {
			wait = w.backoff.delay(failures)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}

		if err := w.Sweep(ctx); err != nil {
			failures++
			w.logger.Error().Err(err).Int("failures", failures).Msg("rematch sweep failed")
			continue
		}
		failures = 0
	}
}

// Sweep runs one rematch pass and tells each matched passenger about their
// late match.
func (w *RematchWorker) Sweep(ctx context.Context) error {
	matched, err := w.rides.Rematch(ctx)
	if err != nil {
		return err
	}
	if len(matched) == 0 {
		return nil
	}

	w.logger.Info().Int("matched", len(matched)).Msg("rematch sweep bound open requests")
	for _, result := range matched {
		w.notifyPassenger(ctx, result)
	}
	return nil
}

func (w *RematchWorker) notifyPassenger(ctx context.Context, result *service.MatchResult) {
	if w.notifier == nil || !result.Matched() {
		return
	}

	passenger, err := w.repo.GetUserByID(ctx, result.Request.PassengerUserID)
	if err != nil {
		w.logger.Error().Err(err).
			Int64("user_id", result.Request.PassengerUserID).
			Msg("failed to resolve matched passenger")
		return
	}

	w.notifier.Notify(ctx, passenger.Phone,
		bot.PassengerMatchNotification(result.Trip, result.Booking))
}
