package realtime

import (
	"sync"
	"time"

	"coindash/src/helpers"
	"coindash/src/interfaces"
	"coindash/src/logger"
	"coindash/src/models"
	"coindash/src/utils"
)

// -----------------------------------------------------------------------------
// SubscriptionManager keeps one push channel per (assetId, range, currency)
// topic. Channels are reference-shared: the first subscriber opens the
// transport, later subscribers attach to it, and teardown happens only when
// the last reference is released or reconnection is exhausted.
//
// Per channel: Connecting -> Subscribed -> (ChannelError|Closed) ->
// ReconnectScheduled -> Connecting ... with at most MaxAttempts consecutive
// reconnects; a SUBSCRIBED transition resets the counter. Exhaustion removes
// the channel and raises a single degraded-connectivity notice, after which
// consumers run purely on polling.
// -----------------------------------------------------------------------------

type subscription struct {
	id      int
	onEvent func(*models.MSeriesEvent)
}

type channelState struct {
	assetID  string
	rng      string
	currency string

	handle         interfaces.IChannelHandle
	gen            int // bumped per transport (re)creation; stale callbacks are ignored
	refs           int
	attempts       int
	reconnectTimer *time.Timer
	subs           []subscription
}

// -----------------------------------------------------------------------------

type SubscriptionManager struct {
	Transport interfaces.ITransport
	Notifier  interfaces.INotifier
	Logger    *logger.Logger

	ReconnectDelay time.Duration
	MaxAttempts    int

	mu       sync.Mutex
	channels map[string]*channelState
	nextID   int
}

// -----------------------------------------------------------------------------

func NewSubscriptionManager(t interfaces.ITransport, n interfaces.INotifier, l *logger.Logger) *SubscriptionManager {
	return &SubscriptionManager{
		Transport:      t,
		Notifier:       n,
		Logger:         l,
		ReconnectDelay: utils.ReconnectDelay,
		MaxAttempts:    utils.MaxReconnectAttempts,
		channels:       make(map[string]*channelState),
	}
}

// -----------------------------------------------------------------------------

// Subscribe attaches onEvent to the topic channel, creating the transport on
// first use. The returned func releases this subscriber's reference; the
// transport is torn down only when no references remain.
func (m *SubscriptionManager) Subscribe(assetID, rng, currency string, onEvent func(*models.MSeriesEvent)) func() {
	key := utils.TopicKey(assetID, rng, currency)

	m.mu.Lock()
	m.nextID++
	sub := subscription{id: m.nextID, onEvent: onEvent}

	ch, ok := m.channels[key]
	if ok {
		ch.refs++
		ch.subs = append(ch.subs, sub)
		m.mu.Unlock()
		return m.releaseFunc(key, sub.id)
	}

	ch = &channelState{
		assetID:  assetID,
		rng:      rng,
		currency: currency,
		refs:     1,
		subs:     []subscription{sub},
	}
	m.channels[key] = ch
	m.openLocked(key, ch)
	m.mu.Unlock()

	return m.releaseFunc(key, sub.id)
}

// -----------------------------------------------------------------------------

// openLocked (re)creates the transport for ch. Caller holds m.mu.
func (m *SubscriptionManager) openLocked(key string, ch *channelState) {
	ch.gen++
	gen := ch.gen

	handle, err := m.Transport.Open(ch.assetID, ch.rng, ch.currency,
		func(ev *models.MSeriesEvent) { m.dispatch(key, gen, ev) },
		func(status string) { m.handleStatus(key, gen, status) },
	)
	if err != nil {
		m.Logger.Warning("Channel open failed for %s: %v", key, err)
		m.failureLocked(key, ch)
		return
	}
	ch.handle = handle
}

// -----------------------------------------------------------------------------

// dispatch filters an incoming event against the channel tuple and fans it
// out. The transport may be shared, so mismatched payloads are dropped.
func (m *SubscriptionManager) dispatch(key string, gen int, ev *models.MSeriesEvent) {
	if ev == nil || ev.Series == nil {
		return
	}

	m.mu.Lock()
	ch, ok := m.channels[key]
	if !ok || ch.gen != gen {
		m.mu.Unlock()
		return
	}
	if ev.AssetID != ch.assetID || ev.Range != ch.rng || ev.Currency != ch.currency {
		m.mu.Unlock()
		return
	}
	subs := make([]subscription, len(ch.subs))
	copy(subs, ch.subs)
	m.mu.Unlock()

	for _, s := range subs {
		s.onEvent(ev)
	}
}

// -----------------------------------------------------------------------------

func (m *SubscriptionManager) handleStatus(key string, gen int, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch, ok := m.channels[key]
	if !ok || ch.gen != gen {
		return
	}

	switch status {
	case interfaces.StatusSubscribed:
		ch.attempts = 0
		m.Logger.Info("Channel subscribed: %s", key)
	case interfaces.StatusChannelError, interfaces.StatusClosed:
		m.Logger.Warning("Channel %s: %s", status, key)
		m.failureLocked(key, ch)
	}
}

// -----------------------------------------------------------------------------

// failureLocked handles a channel failure: either schedules a reconnect
// (cancelling any pending timer first, so at most one is ever armed) or,
// with attempts exhausted, removes the channel and notifies once.
func (m *SubscriptionManager) failureLocked(key string, ch *channelState) {
	if ch.reconnectTimer != nil {
		ch.reconnectTimer.Stop()
		ch.reconnectTimer = nil
	}

	if ch.attempts >= m.MaxAttempts {
		exhausted := helpers.NewReconnectExhaustedError(key)
		m.Logger.Error("%v, realtime degraded", exhausted)
		if ch.handle != nil {
			ch.handle.Close()
			ch.handle = nil
		}
		delete(m.channels, key)
		if m.Notifier != nil {
			m.Notifier.Notify("realtime-degraded", exhausted.Error()+", falling back to polling")
		}
		return
	}

	ch.attempts++
	attempt := ch.attempts
	m.Logger.Info("Scheduling reconnect %d/%d for %s", attempt, m.MaxAttempts, key)

	ch.reconnectTimer = time.AfterFunc(m.ReconnectDelay, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		cur, ok := m.channels[key]
		if !ok || cur != ch {
			return
		}
		cur.reconnectTimer = nil
		// Tear the old transport down before recreating it.
		if cur.handle != nil {
			cur.handle.Close()
			cur.handle = nil
		}
		m.openLocked(key, cur)
	})
}

// -----------------------------------------------------------------------------

// releaseFunc builds the per-subscriber unsubscribe closure. Safe to call
// more than once.
func (m *SubscriptionManager) releaseFunc(key string, subID int) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()

			ch, ok := m.channels[key]
			if !ok {
				return
			}
			for i, s := range ch.subs {
				if s.id == subID {
					ch.subs = append(ch.subs[:i], ch.subs[i+1:]...)
					break
				}
			}
			ch.refs--
			if ch.refs > 0 {
				return
			}

			if ch.reconnectTimer != nil {
				ch.reconnectTimer.Stop()
				ch.reconnectTimer = nil
			}
			if ch.handle != nil {
				ch.handle.Close()
				ch.handle = nil
			}
			delete(m.channels, key)
			m.Logger.Debug("Channel released: %s", key)
		})
	}
}

// -----------------------------------------------------------------------------

// ActiveChannels returns the number of registered topic channels.
func (m *SubscriptionManager) ActiveChannels() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.channels)
}

// -----------------------------------------------------------------------------

// Close tears down every channel, for process shutdown.
func (m *SubscriptionManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, ch := range m.channels {
		if ch.reconnectTimer != nil {
			ch.reconnectTimer.Stop()
		}
		if ch.handle != nil {
			ch.handle.Close()
		}
		delete(m.channels, key)
	}
}
