package activity

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Additional-Code/fulfillment/internal/config"
)

type countingStations struct {
	starts  atomic.Int64
	stops   atomic.Int64
	running atomic.Bool
}

func (c *countingStations) StartAll() {
	c.starts.Add(1)
	c.running.Store(true)
}

func (c *countingStations) StopAll() {
	c.stops.Add(1)
	c.running.Store(false)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestMonitor() (*Monitor, *countingStations, *fakeClock) {
	st := &countingStations{}
	st.running.Store(true)
	clock := &fakeClock{now: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}
	m := NewMonitor(st, config.Activity{CheckInterval: time.Hour, IdleThreshold: 5 * time.Minute}, nil, nil)
	m.now = clock.Now
	m.last = clock.Now()
	return m, st, clock
}

func TestCheckIdleRespectsThreshold(t *testing.T) {
	m, st, clock := newTestMonitor()

	clock.Advance(5 * time.Minute)
	assert.False(t, m.CheckIdle())
	assert.False(t, m.Paused())

	clock.Advance(time.Second)
	assert.True(t, m.CheckIdle())
	assert.True(t, m.Paused())
	assert.False(t, st.running.Load())

	assert.False(t, m.CheckIdle())
	assert.Equal(t, int64(1), st.stops.Load())
}

func TestNotifyActivityResumesExactlyOnce(t *testing.T) {
	m, st, clock := newTestMonitor()
	clock.Advance(10 * time.Minute)
	require.True(t, m.CheckIdle())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.NotifyActivity()
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), st.starts.Load())
	assert.True(t, st.running.Load())
	assert.False(t, m.Paused())
	assert.Equal(t, clock.Now(), m.LastActivity())
}

func TestNotifyActivityResetsIdleClock(t *testing.T) {
	m, st, clock := newTestMonitor()
	clock.Advance(4 * time.Minute)
	m.NotifyActivity()
	clock.Advance(4 * time.Minute)

	assert.False(t, m.CheckIdle())
	assert.Zero(t, st.starts.Load())
	assert.Zero(t, st.stops.Load())
}

func TestSubscribersHearPauseAndResume(t *testing.T) {
	m, _, clock := newTestMonitor()
	var events []bool
	m.Subscribe(func(paused bool) { events = append(events, paused) })

	clock.Advance(time.Hour)
	m.CheckIdle()
	m.NotifyActivity()
	m.NotifyActivity()

	assert.Equal(t, []bool{true, false}, events)
}

func TestLoopPausesIdleKitchen(t *testing.T) {
	st := &countingStations{}
	m := NewMonitor(st, config.Activity{CheckInterval: 5 * time.Millisecond, IdleThreshold: 10 * time.Millisecond}, nil, nil)
	m.Start()
	m.Start()
	defer m.Stop(context.Background())

	assert.Eventually(t, m.Paused, time.Second, 5*time.Millisecond)
	assert.Equal(t, int64(1), st.stops.Load())
}

type slowStations struct {
	countingStations
	stopping chan struct{}
	release  chan struct{}
}

func (s *slowStations) StopAll() {
	close(s.stopping)
	<-s.release
	s.countingStations.StopAll()
}

func TestActivityDuringPauseDoesNotWaitForStations(t *testing.T) {
	st := &slowStations{stopping: make(chan struct{}), release: make(chan struct{})}
	clock := &fakeClock{now: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}
	m := NewMonitor(st, config.Activity{CheckInterval: time.Hour, IdleThreshold: 5 * time.Minute}, nil, nil)
	m.now = clock.Now
	m.last = clock.Now()

	var mu sync.Mutex
	var events []bool
	m.Subscribe(func(paused bool) {
		mu.Lock()
		events = append(events, paused)
		mu.Unlock()
	})

	clock.Advance(time.Hour)
	paused := make(chan bool, 1)
	go func() { paused <- m.CheckIdle() }()
	<-st.stopping

	notified := make(chan struct{})
	go func() {
		m.NotifyActivity()
		close(notified)
	}()
	select {
	case <-notified:
	case <-time.After(time.Second):
		t.Fatal("NotifyActivity blocked behind StopAll")
	}
	assert.Equal(t, clock.Now(), m.LastActivity())

	close(st.release)
	require.True(t, <-paused)

	assert.False(t, m.Paused())
	assert.Equal(t, int64(1), st.stops.Load())
	assert.Equal(t, int64(1), st.starts.Load())
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []bool{true, false}, events)
}
