package activity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/fulfillment/internal/config"
	"github.com/Additional-Code/fulfillment/internal/journal"
	"github.com/Additional-Code/fulfillment/internal/kitchen"
)

// Module provides the monitor and runs its idle check with the app.
var Module = fx.Options(
	fx.Provide(New),
	fx.Invoke(func(lc fx.Lifecycle, m *Monitor) {
		lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				m.Start()
				return nil
			},
			OnStop: m.Stop,
		})
	}),
)

// Stations is what gets paused and resumed.
type Stations interface {
	StartAll()
	StopAll()
}

// Monitor pauses every station after an idle period and resumes them on the
// next activity. Pause and resume are serialized so neither runs twice.
type Monitor struct {
	stations Stations
	cfg      config.Activity
	sink     journal.Sink
	logger   *zap.Logger
	now      func() time.Time

	mu            sync.Mutex
	last          time.Time
	paused        bool
	pausing       bool
	resumePending bool
	subs          []func(paused bool)

	// transition serializes StopAll and StartAll. mu is never held across them.
	transition sync.Mutex

	lifecycle sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
}

// Params defines dependencies for constructing Monitor.
type Params struct {
	fx.In

	Config config.Config
	Router *kitchen.Router
	Sink   journal.Sink
	Logger *zap.Logger
}

// New wires a Monitor over the kitchen router.
func New(p Params) *Monitor {
	return NewMonitor(p.Router, p.Config.Activity, p.Sink, p.Logger)
}

// NewMonitor builds a monitor whose idle clock starts now.
func NewMonitor(stations Stations, cfg config.Activity, sink journal.Sink, logger *zap.Logger) *Monitor {
	if sink == nil {
		sink = journal.Discard
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = 5 * time.Second
	}
	if cfg.IdleThreshold <= 0 {
		cfg.IdleThreshold = 5 * time.Minute
	}
	m := &Monitor{
		stations: stations,
		cfg:      cfg,
		sink:     sink,
		logger:   logger,
		now:      time.Now,
	}
	m.last = m.now()
	return m
}

// Subscribe registers fn to hear about pause (true) and resume (false).
func (m *Monitor) Subscribe(fn func(paused bool)) {
	m.mu.Lock()
	m.subs = append(m.subs, fn)
	m.mu.Unlock()
}

// NotifyActivity resets the idle clock and resumes the stations if paused.
// Activity that lands while a pause is still stopping the stations is picked
// up by that pause once it finishes, so this never waits on a station's grace
// period.
func (m *Monitor) NotifyActivity() {
	m.mu.Lock()
	m.last = m.now()
	if !m.paused {
		m.mu.Unlock()
		return
	}
	if m.pausing {
		m.resumePending = true
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	m.transition.Lock()
	defer m.transition.Unlock()
	m.resume()
}

// CheckIdle pauses the stations once the idle threshold is exceeded and
// reports whether this call paused them.
func (m *Monitor) CheckIdle() bool {
	m.transition.Lock()
	defer m.transition.Unlock()

	m.mu.Lock()
	if m.paused {
		m.mu.Unlock()
		return false
	}
	idle := m.now().Sub(m.last)
	if idle <= m.cfg.IdleThreshold {
		m.mu.Unlock()
		return false
	}
	m.paused, m.pausing = true, true
	m.mu.Unlock()

	m.stations.StopAll()

	m.mu.Lock()
	m.pausing = false
	pending := m.resumePending
	m.resumePending = false
	subs := m.subscribers()
	m.mu.Unlock()

	m.logger.Info("kitchen idle, stations paused", zap.Duration("idle", idle))
	m.sink.Log(journal.TopicActivity, fmt.Sprintf("stations paused after %s idle", idle.Truncate(time.Second)))
	publish(subs, true)

	if pending {
		m.resume()
	}
	return true
}

// resume runs with transition held.
func (m *Monitor) resume() {
	m.mu.Lock()
	if !m.paused || m.pausing {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	m.stations.StartAll()

	m.mu.Lock()
	m.paused = false
	subs := m.subscribers()
	m.mu.Unlock()

	m.logger.Info("activity detected, stations resumed")
	m.sink.Log(journal.TopicActivity, "stations resumed")
	publish(subs, false)
}

// subscribers runs with mu held.
func (m *Monitor) subscribers() []func(paused bool) {
	return append(([]func(paused bool))(nil), m.subs...)
}

func publish(subs []func(paused bool), paused bool) {
	for _, fn := range subs {
		fn(paused)
	}
}

func (m *Monitor) Paused() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.paused
}

func (m *Monitor) LastActivity() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// Start launches the periodic idle check.
func (m *Monitor) Start() {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()
	if m.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.done = make(chan struct{})
	go m.loop(ctx, m.done)
}

// Stop ends the idle check.
func (m *Monitor) Stop(ctx context.Context) error {
	m.lifecycle.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.lifecycle.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Monitor) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(m.cfg.CheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.CheckIdle()
		}
	}
}
