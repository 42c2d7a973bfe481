package journal

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/fulfillment/internal/config"
	"github.com/Additional-Code/fulfillment/internal/entity"
	repo "github.com/Additional-Code/fulfillment/internal/repository/journal"
)

// Module provides the recorder and exposes it as the process Sink.
var Module = fx.Options(
	fx.Provide(New),
	fx.Provide(func(r *Recorder) Sink { return r }),
)

// Writer persists flushed batches.
type Writer interface {
	Enabled() bool
	InsertBatch(ctx context.Context, entries []entity.JournalEntry) error
}

// Recorder keeps the most recent entries in memory and mirrors them to a Writer
// in the background. Log never blocks; entries that do not fit the flush buffer
// are counted as dropped.
type Recorder struct {
	cfg    config.Journal
	writer Writer
	logger *zap.Logger
	now    func() time.Time

	mu   sync.RWMutex
	ring []entity.JournalEntry
	next int
	full bool
	seq  int64

	pending chan entity.JournalEntry
	dropped atomic.Int64

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Params defines dependencies for constructing Recorder.
type Params struct {
	fx.In

	Lifecycle  fx.Lifecycle
	Config     config.Config
	Logger     *zap.Logger
	Repository *repo.Repository
}

// New builds a Recorder and ties its flusher to the Fx lifecycle.
func New(p Params) *Recorder {
	r := NewRecorder(p.Config.Journal, p.Repository, p.Logger)
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			r.Start()
			return nil
		},
		OnStop: r.Stop,
	})
	return r
}

// NewRecorder builds a Recorder. writer may be nil.
func NewRecorder(cfg config.Journal, writer Writer, logger *zap.Logger) *Recorder {
	if cfg.Retain <= 0 {
		cfg.Retain = 500
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = 1024
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Recorder{
		cfg:    cfg,
		writer: writer,
		logger: logger,
		now:    time.Now,
		ring:   make([]entity.JournalEntry, cfg.Retain),
	}
	if r.persistent() {
		r.pending = make(chan entity.JournalEntry, cfg.Buffer)
	}
	return r
}

func (r *Recorder) persistent() bool {
	return r.writer != nil && r.writer.Enabled()
}

// Log records one line.
func (r *Recorder) Log(topic, message string) {
	r.mu.Lock()
	r.seq++
	entry := entity.JournalEntry{ID: r.seq, At: r.now().UTC(), Topic: topic, Message: message}
	r.ring[r.next] = entry
	r.next = (r.next + 1) % len(r.ring)
	if r.next == 0 {
		r.full = true
	}
	r.mu.Unlock()

	r.logger.Debug("journal", zap.String("topic", topic), zap.String("message", message))

	if r.pending == nil {
		return
	}
	entry.ID = 0
	select {
	case r.pending <- entry:
	default:
		r.dropped.Add(1)
	}
}

// Recent returns up to n entries for topic, newest first. An empty topic matches all.
func (r *Recorder) Recent(topic string, n int) []entity.JournalEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	size := r.next
	if r.full {
		size = len(r.ring)
	}
	if n <= 0 || n > size {
		n = size
	}
	out := make([]entity.JournalEntry, 0, n)
	for i := 1; i <= size && len(out) < n; i++ {
		idx := (r.next - i + len(r.ring)) % len(r.ring)
		entry := r.ring[idx]
		if topic != "" && entry.Topic != topic {
			continue
		}
		out = append(out, entry)
	}
	return out
}

// Dropped counts entries that never reached the writer.
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

// Start launches the flusher when a writer is attached.
func (r *Recorder) Start() {
	if r.pending == nil || r.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.wg.Add(1)
	go r.flushLoop(ctx)
	r.logger.Info("journal flusher started", zap.Int("batch_size", r.cfg.BatchSize))
}

// Stop drains the buffer and waits for the final flush.
func (r *Recorder) Stop(ctx context.Context) error {
	if r.cancel == nil {
		return nil
	}
	r.cancel()
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Recorder) flushLoop(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.cfg.FlushInterval)
	defer ticker.Stop()

	batch := make([]entity.JournalEntry, 0, r.cfg.BatchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.writer.InsertBatch(flushCtx, batch); err != nil {
			r.dropped.Add(int64(len(batch)))
			r.logger.Warn("journal flush failed", zap.Int("entries", len(batch)), zap.Error(err))
		}
		batch = batch[:0]
	}

	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case entry := <-r.pending:
					batch = append(batch, entry)
				default:
					flush()
					return
				}
			}
		case entry := <-r.pending:
			batch = append(batch, entry)
			if len(batch) >= r.cfg.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}
