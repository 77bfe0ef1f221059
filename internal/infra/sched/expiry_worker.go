package sched

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"

	"telegram-medkit/internal/infra/metrics"
	"telegram-medkit/internal/usecase"
)

// ExpiryChecker is satisfied by usecase.ExpiryUseCase.
type ExpiryChecker interface {
	CheckAndNotify(ctx context.Context) (*usecase.ExpiryReport, error)
}

// ExpiryWorker runs the expiry scan once a day at a wall-clock time.
type ExpiryWorker struct {
	at        string // HH:MM
	loc       *time.Location
	scheduler *gocron.Scheduler
	checker   ExpiryChecker
	log       *zerolog.Logger
}

func NewExpiryWorker(loc *time.Location, at string, checker ExpiryChecker, logger *zerolog.Logger) *ExpiryWorker {
	if loc == nil {
		loc = time.Local
	}
	exprLog := logger.With().Str("component", "ExpiryWorker").Logger()
	s := gocron.NewScheduler(loc)
	// a slow scan must never overlap the next one
	s.SingletonModeAll()
	return &ExpiryWorker{
		at:        at,
		loc:       loc,
		scheduler: s,
		checker:   checker,
		log:       &exprLog,
	}
}

// Run blocks until ctx is done.
func (w *ExpiryWorker) Run(ctx context.Context) error {
	if err := w.schedule(ctx); err != nil {
		return err
	}
	w.scheduler.StartAsync()
	next, _ := nextRun(time.Now(), w.at, w.loc)
	w.log.Info().Str("at", w.at).Time("next_run", next).Msg("Starting expiry worker")

	<-ctx.Done()
	w.scheduler.Stop()
	w.log.Info().Msg("Stopping expiry worker")
	return ctx.Err()
}

func (w *ExpiryWorker) schedule(ctx context.Context) error {
	if _, err := w.scheduler.Every(1).Day().At(w.at).Do(func() { w.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("schedule expiry check at %s: %w", w.at, err)
	}
	return nil
}

// nextRun is the first HH:MM wall-clock time in loc strictly after now.
func nextRun(now time.Time, at string, loc *time.Location) (time.Time, error) {
	hm, err := time.Parse("15:04", at)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse check time %q: %w", at, err)
	}
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), hm.Hour(), hm.Minute(), 0, 0, loc)
	if !next.After(local) {
		next = next.AddDate(0, 0, 1)
	}
	return next, nil
}

// RunOnce performs one scheduled scan. Errors are logged and counted only.
func (w *ExpiryWorker) RunOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	report, err := w.checker.CheckAndNotify(ctx)
	switch {
	case report == nil:
		metrics.IncExpiryScan("schedule", "error")
		w.log.Error().Err(err).Msg("expiry worker error")
	case err != nil:
		metrics.IncExpiryScan("schedule", "partial")
		w.log.Warn().Err(err).Int("sent", report.Sent).Msg("expiry scan finished with errors")
	default:
		metrics.IncExpiryScan("schedule", "ok")
		if report.Expired > 0 {
			w.log.Info().Int("expired", report.Expired).Int("sent", report.Sent).Msg("expired medicines reported")
		}
	}
}
