package journal

import (
	"context"
	"errors"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/fulfillment/internal/database"
	"github.com/Additional-Code/fulfillment/internal/entity"
)

var repoTracer = otel.Tracer("github.com/Additional-Code/fulfillment/repository/journal")

// ErrDisabled is returned when no database is attached.
var ErrDisabled = errors.New("journal repository disabled")

// Repository mirrors journal entries into SQL.
type Repository struct {
	writer *bun.DB
	reader *bun.DB
}

// NewRepository wires a repository backed by configured database connections.
func NewRepository(conns *database.Connections) *Repository {
	if !conns.Enabled() {
		return &Repository{}
	}
	return &Repository{
		writer: conns.Writer,
		reader: conns.Reader,
	}
}

// Enabled reports whether writes reach a database.
func (r *Repository) Enabled() bool {
	return r != nil && r.writer != nil
}

// InsertBatch persists entries in a single statement.
func (r *Repository) InsertBatch(ctx context.Context, entries []entity.JournalEntry) error {
	if !r.Enabled() {
		return ErrDisabled
	}
	if len(entries) == 0 {
		return nil
	}
	ctx, span := repoTracer.Start(ctx, "JournalRepository.InsertBatch", trace.WithAttributes(attribute.Int("journal.batch", len(entries))))
	defer span.End()

	_, err := r.writer.NewInsert().Model(&entries).Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
	}
	return err
}

// ListByTopic returns the most recent entries, newest first. An empty topic matches all.
func (r *Repository) ListByTopic(ctx context.Context, topic string, limit int) ([]entity.JournalEntry, error) {
	if !r.Enabled() {
		return nil, ErrDisabled
	}
	ctx, span := repoTracer.Start(ctx, "JournalRepository.ListByTopic", trace.WithAttributes(attribute.String("journal.topic", topic)))
	defer span.End()

	var entries []entity.JournalEntry
	q := r.reader.NewSelect().Model(&entries).Order("id DESC")
	if topic != "" {
		q = q.Where("topic = ?", topic)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return entries, nil
}
