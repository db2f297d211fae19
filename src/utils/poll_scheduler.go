package utils

import (
	"sync"
	"time"

	"coindash/src/logger"
)

// -----------------------------------------------------------------------------
// PollScheduler drives the periodic forced-refresh fallback for one consumer.
// It owns at most one timer at a time: rescheduling for a new tuple replaces
// the previous timer, Stop revokes it. The interval depends on the range
// bucket (intraday polls faster).
// -----------------------------------------------------------------------------

type PollScheduler struct {
	Logger *logger.Logger

	mu    sync.Mutex
	done  chan struct{}
	topic string
}

// -----------------------------------------------------------------------------

func NewPollScheduler(l *logger.Logger) *PollScheduler {
	return &PollScheduler{Logger: l}
}

// -----------------------------------------------------------------------------

// Schedule starts polling for the tuple, replacing any previous timer.
// tick is invoked from a dedicated goroutine once per interval.
func (ps *PollScheduler) Schedule(assetID, rng, currency string, tick func()) {
	ps.ScheduleEvery(assetID, rng, currency, PollInterval(rng), tick)
}

// -----------------------------------------------------------------------------

// ScheduleEvery is Schedule with an explicit interval.
func (ps *PollScheduler) ScheduleEvery(assetID, rng, currency string, interval time.Duration, tick func()) {
	ps.mu.Lock()
	if ps.done != nil {
		close(ps.done)
	}
	done := make(chan struct{})
	ps.done = done
	ps.topic = TopicKey(assetID, rng, currency)
	topic := ps.topic
	ps.mu.Unlock()

	ps.Logger.Debug("Polling %s every %v", topic, interval)

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				tick()
			}
		}
	}()
}

// -----------------------------------------------------------------------------

// Stop revokes the current timer, if any.
func (ps *PollScheduler) Stop() {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if ps.done != nil {
		close(ps.done)
		ps.done = nil
		ps.Logger.Debug("Polling stopped for %s", ps.topic)
		ps.topic = ""
	}
}

// -----------------------------------------------------------------------------

// Active reports whether a timer is currently scheduled.
func (ps *PollScheduler) Active() bool {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ps.done != nil
}
