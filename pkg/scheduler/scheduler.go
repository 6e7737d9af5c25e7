// Package scheduler fires a job once a day at a fixed wall-clock time and
// derives the settings for each daily run.
package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"goesbot/pkg/config"
	"goesbot/pkg/logger"
	"goesbot/pkg/poll"
)

// DatePlaceholder is replaced with the formatted window start in daily messages
const DatePlaceholder = "{date}"

// Job is one scheduled run. fire is the instant the run was due.
type Job func(ctx context.Context, fire time.Time) error

// Scheduler runs a Job every day at hour:minute in loc
type Scheduler struct {
	hour   int
	minute int
	loc    *time.Location
	now    func() time.Time
	wait   func(ctx context.Context, d time.Duration) error
	logger logger.Logger
}

// New creates a scheduler firing daily at the HH:MM clock time at
func New(at string, loc *time.Location, log logger.Logger) (*Scheduler, error) {
	hour, minute, err := config.ParseClock(at)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &Scheduler{
		hour:   hour,
		minute: minute,
		loc:    loc,
		now:    time.Now,
		wait:   poll.Wait,
		logger: log,
	}, nil
}

// NextFire returns the next hour:minute in loc strictly after now. A call at
// exactly the fire time returns the following day.
func NextFire(now time.Time, hour, minute int, loc *time.Location) time.Time {
	local := now.In(loc)
	fire := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
	if !fire.After(local) {
		fire = time.Date(local.Year(), local.Month(), local.Day()+1, hour, minute, 0, 0, loc)
	}
	return fire
}

// Next returns the next fire time from the current clock
func (s *Scheduler) Next() time.Time {
	return NextFire(s.now(), s.hour, s.minute, s.loc)
}

// Run waits for each fire time and runs job, until ctx is cancelled. A job
// error is logged and the loop continues with the next day.
func (s *Scheduler) Run(ctx context.Context, job Job) error {
	for {
		fire := s.Next()
		s.logger.InfoWithFields("Next run scheduled", map[string]interface{}{
			"at": fire.Format(time.RFC3339),
			"in": fire.Sub(s.now()).Round(time.Second).String(),
		})

		if err := s.waitUntil(ctx, fire); err != nil {
			s.logger.Info("Scheduler stopped")
			return err
		}

		s.logger.InfoWithFields("Scheduled run starting", map[string]interface{}{
			"fire": fire.Format(time.RFC3339),
		})
		if err := job(ctx, fire); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.WithError(err).Error("Scheduled run failed")
		}
	}
}

// waitUntil sleeps until the wall clock reaches t
func (s *Scheduler) waitUntil(ctx context.Context, t time.Time) error {
	for {
		d := t.Sub(s.now())
		if d <= 0 {
			return nil
		}
		if err := s.wait(ctx, d); err != nil {
			return err
		}
	}
}

// DailyWindow returns the window start for a run firing at fire (the day
// before, at hour:minute in fire's location) and the message for it
func DailyWindow(fire time.Time, hour, minute int, message, dateLayout string) (time.Time, string) {
	start := time.Date(fire.Year(), fire.Month(), fire.Day()-1, hour, minute, 0, 0, fire.Location())
	return start, strings.ReplaceAll(message, DatePlaceholder, start.Format(dateLayout))
}

// ForDailyRun returns a copy of cfg set up for the run firing at fire
func ForDailyRun(cfg *config.Config, fire time.Time) (*config.Config, error) {
	hour, minute, err := config.ParseClock(cfg.Schedule.WindowStart)
	if err != nil {
		return nil, fmt.Errorf("schedule.window_start: %w", err)
	}
	start, message := DailyWindow(fire.In(cfg.Location()), hour, minute, cfg.Schedule.Message, cfg.Schedule.DateLayout)
	return cfg.WithStart(start).WithMessage(message), nil
}
