package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const defaultInterval = 15 * time.Millisecond

// Scheduler fires retry ticks at a fixed cadence. Ticks are delivered on a
// 1-buffered channel; a tick that finds the buffer full is coalesced with the
// one already waiting, so a busy consumer never sees a backlog.
type Scheduler struct {
	interval time.Duration
	logger   *zap.Logger
	ticks    chan time.Time
	dropped  uint64
}

// New creates a scheduler.
func New(interval time.Duration, logger *zap.Logger) *Scheduler {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Scheduler{
		interval: interval,
		logger:   logger,
		ticks:    make(chan time.Time, 1),
	}
}

// C returns the tick channel consumed by the event loop.
func (s *Scheduler) C() <-chan time.Time {
	return s.ticks
}

// Interval returns the configured cadence.
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

// Run arms the timer, delivers a tick on each expiry and re-arms until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	timer := time.NewTimer(s.interval)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			if s.logger != nil {
				s.logger.Debug("retry scheduler stopped", zap.Uint64("coalesced_ticks", s.dropped))
			}
			return
		case now := <-timer.C:
			select {
			case s.ticks <- now:
			default:
				s.dropped++
			}
			timer.Reset(s.interval)
		}
	}
}
