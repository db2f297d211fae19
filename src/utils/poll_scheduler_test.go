package utils

import (
	"sync/atomic"
	"testing"
	"time"

	"coindash/src/logger"
)

func newTestScheduler() *PollScheduler {
	return NewPollScheduler(logger.NewLogger("ERROR", "test"))
}

func TestPollScheduler_TicksAtInterval(t *testing.T) {
	ps := newTestScheduler()
	defer ps.Stop()

	var ticks int64
	ps.ScheduleEvery("bitcoin", "7", "usd", 10*time.Millisecond, func() {
		atomic.AddInt64(&ticks, 1)
	})

	time.Sleep(55 * time.Millisecond)
	if got := atomic.LoadInt64(&ticks); got < 2 {
		t.Errorf("expected at least 2 ticks, got %d", got)
	}
	if !ps.Active() {
		t.Error("scheduler must report active while a timer runs")
	}
}

func TestPollScheduler_RescheduleReplacesTimer(t *testing.T) {
	ps := newTestScheduler()
	defer ps.Stop()

	var first, second int64
	ps.ScheduleEvery("bitcoin", "7", "usd", 10*time.Millisecond, func() {
		atomic.AddInt64(&first, 1)
	})
	ps.ScheduleEvery("bitcoin", "1", "usd", 10*time.Millisecond, func() {
		atomic.AddInt64(&second, 1)
	})

	time.Sleep(50 * time.Millisecond)
	firstNow := atomic.LoadInt64(&first)
	time.Sleep(30 * time.Millisecond)

	if got := atomic.LoadInt64(&first); got != firstNow {
		t.Error("replaced timer must stop ticking")
	}
	if atomic.LoadInt64(&second) < 2 {
		t.Error("replacement timer must keep ticking")
	}
}

func TestPollScheduler_Stop(t *testing.T) {
	ps := newTestScheduler()

	var ticks int64
	ps.ScheduleEvery("bitcoin", "7", "usd", 10*time.Millisecond, func() {
		atomic.AddInt64(&ticks, 1)
	})
	ps.Stop()

	settled := atomic.LoadInt64(&ticks)
	time.Sleep(40 * time.Millisecond)

	if got := atomic.LoadInt64(&ticks); got != settled {
		t.Error("stopped scheduler must not tick")
	}
	if ps.Active() {
		t.Error("scheduler must report inactive after Stop")
	}

	// Stop on an idle scheduler is a no-op.
	ps.Stop()
}

func TestPollScheduler_IntervalByRange(t *testing.T) {
	ps := newTestScheduler()
	defer ps.Stop()

	// Schedule uses the range-derived interval; the long production values
	// mean no tick fires here, only the bookkeeping is observable.
	ps.Schedule("bitcoin", "1", "usd", func() {})
	if !ps.Active() {
		t.Error("expected an active timer after Schedule")
	}
}
