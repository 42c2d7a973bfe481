package journal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Additional-Code/fulfillment/internal/config"
	"github.com/Additional-Code/fulfillment/internal/entity"
)

type memoryWriter struct {
	mu      sync.Mutex
	entries []entity.JournalEntry
	err     error
}

func (w *memoryWriter) Enabled() bool { return true }

func (w *memoryWriter) InsertBatch(_ context.Context, entries []entity.JournalEntry) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.entries = append(w.entries, entries...)
	return nil
}

func (w *memoryWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.entries)
}

func TestRecentReturnsNewestFirstAndWraps(t *testing.T) {
	r := NewRecorder(config.Journal{Retain: 3}, nil, nil)
	for i := 1; i <= 5; i++ {
		r.Log(TopicOrder, fmt.Sprintf("line %d", i))
	}

	recent := r.Recent("", 0)
	require.Len(t, recent, 3)
	assert.Equal(t, "line 5", recent[0].Message)
	assert.Equal(t, "line 3", recent[2].Message)
}

func TestRecentFiltersByTopic(t *testing.T) {
	r := NewRecorder(config.Journal{Retain: 10}, nil, nil)
	r.Log(TopicOrder, "placed")
	r.Log(TopicBilling, "billed")
	r.Log(TopicOrder, "cooked")

	recent := r.Recent(TopicOrder, 10)
	require.Len(t, recent, 2)
	assert.Equal(t, "cooked", recent[0].Message)
	assert.Equal(t, "placed", recent[1].Message)
	assert.Len(t, r.Recent(TopicBilling, 1), 1)
}

func TestRecorderFlushesToWriterOnStop(t *testing.T) {
	w := &memoryWriter{}
	r := NewRecorder(config.Journal{Retain: 10, BatchSize: 50, FlushInterval: time.Hour}, w, nil)
	r.Start()

	for i := 0; i < 7; i++ {
		r.Log(TopicInventory, "restock")
	}
	require.NoError(t, r.Stop(context.Background()))
	assert.Equal(t, 7, w.count())
	assert.Zero(t, r.Dropped())
}

func TestRecorderFlushesFullBatches(t *testing.T) {
	w := &memoryWriter{}
	r := NewRecorder(config.Journal{BatchSize: 2, FlushInterval: time.Hour}, w, nil)
	r.Start()
	defer r.Stop(context.Background())

	for i := 0; i < 4; i++ {
		r.Log(TopicSupply, "delivered")
	}
	assert.Eventually(t, func() bool { return w.count() == 4 }, time.Second, 10*time.Millisecond)
}

func TestRecorderCountsDropsWhenBufferFull(t *testing.T) {
	w := &memoryWriter{}
	r := NewRecorder(config.Journal{Buffer: 2}, w, nil)

	for i := 0; i < 5; i++ {
		r.Log(TopicStation, "tick")
	}
	assert.Equal(t, int64(3), r.Dropped())
	assert.Len(t, r.Recent("", 0), 5)
}

func TestRecorderCountsFailedFlushes(t *testing.T) {
	w := &memoryWriter{err: errors.New("boom")}
	r := NewRecorder(config.Journal{FlushInterval: time.Hour}, w, nil)
	r.Start()
	r.Log(TopicActivity, "paused")
	require.NoError(t, r.Stop(context.Background()))
	assert.Equal(t, int64(1), r.Dropped())
}

func TestSinkFuncAndDiscard(t *testing.T) {
	var got []string
	var sink Sink = SinkFunc(func(topic, message string) { got = append(got, topic+":"+message) })
	sink.Log(TopicOrder, "x")
	Discard.Log(TopicOrder, "ignored")
	assert.Equal(t, []string{"order:x"}, got)
}
