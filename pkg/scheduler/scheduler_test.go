package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goesbot/pkg/config"
	"goesbot/pkg/logger"
)

func TestNextFire(t *testing.T) {
	noon := func(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 12, 0, 0, 0, time.UTC) }

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"before noon", time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC), noon(2024, 3, 15)},
		{"exactly noon", noon(2024, 3, 15), noon(2024, 3, 16)},
		{"after noon", time.Date(2024, 3, 15, 12, 0, 1, 0, time.UTC), noon(2024, 3, 16)},
		{"end of year", time.Date(2024, 12, 31, 18, 0, 0, 0, time.UTC), noon(2025, 1, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.want.Equal(NextFire(tt.now, 12, 0, time.UTC)), "got %v", NextFire(tt.now, 12, 0, time.UTC))
		})
	}
}

func TestNextFireInTimezone(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// 15:00 UTC is 11:00 in New York (EDT)
	now := time.Date(2024, 6, 1, 15, 0, 0, 0, time.UTC)
	fire := NextFire(now, 12, 0, ny)

	assert.Equal(t, 12, fire.Hour())
	assert.Equal(t, 1, fire.Day())
	assert.Equal(t, time.Hour, fire.Sub(now))
}

func TestDailyWindow(t *testing.T) {
	fire := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	start, msg := DailyWindow(fire, 10, 0, "24-hour GOES16 GEOCOLOR sequence for {date}.", "Monday, January 02, 2006")

	assert.Equal(t, time.Date(2024, 3, 14, 10, 0, 0, 0, time.UTC), start)
	assert.Equal(t, "24-hour GOES16 GEOCOLOR sequence for Thursday, March 14, 2024.", msg)
}

func TestDailyWindowAcrossMonthAndYear(t *testing.T) {
	start, _ := DailyWindow(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC), 10, 0, "", "")
	assert.Equal(t, time.Date(2023, 12, 31, 10, 0, 0, 0, time.UTC), start)

	start, _ = DailyWindow(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), 10, 0, "", "")
	assert.Equal(t, time.Date(2024, 2, 29, 10, 0, 0, 0, time.UTC), start)
}

func TestForDailyRun(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Parameters.Message = "static"

	derived, err := ForDailyRun(cfg, time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, 3, 14, 10, 0, 0, 0, time.UTC), derived.Start)
	assert.Equal(t, "2024-03-14-10:00", derived.Parameters.StartDatetime)
	assert.Equal(t, "24-hour GOES16 GEOCOLOR sequence for Thursday, March 14, 2024.", derived.Parameters.Message)
	assert.Equal(t, "static", cfg.Parameters.Message, "original settings untouched")

	cfg.Schedule.WindowStart = "ten"
	_, err = ForDailyRun(cfg, time.Now())
	assert.Error(t, err)
}

// fakeClock advances instantly when the scheduler waits
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }
func (c *fakeClock) wait(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.t = c.t.Add(d)
	return nil
}

func newTestScheduler(t *testing.T, clock *fakeClock) *Scheduler {
	t.Helper()
	s, err := New("12:00", time.UTC, logger.NewNopLogger())
	require.NoError(t, err)
	s.now = clock.now
	s.wait = clock.wait
	return s
}

func TestRunFiresDaily(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC)}
	s := newTestScheduler(t, clock)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var fires []time.Time
	err := s.Run(ctx, func(ctx context.Context, fire time.Time) error {
		fires = append(fires, fire)
		if len(fires) == 2 {
			return errors.New("publish failed")
		}
		if len(fires) == 3 {
			cancel()
		}
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, fires, 3, "a failed run does not stop the loop")
	assert.Equal(t, time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC), fires[0])
	assert.Equal(t, time.Date(2024, 3, 16, 12, 0, 0, 0, time.UTC), fires[1])
	assert.Equal(t, time.Date(2024, 3, 17, 12, 0, 0, 0, time.UTC), fires[2])
}

func TestRunStopsWhileWaiting(t *testing.T) {
	s, err := New("12:00", time.UTC, logger.NewNopLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	called := false
	err = s.Run(ctx, func(context.Context, time.Time) error {
		called = true
		return nil
	})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, called)
}

func TestNewRejectsBadClock(t *testing.T) {
	_, err := New("25:99", time.UTC, nil)
	assert.Error(t, err)
}
