package journal

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/Additional-Code/fulfillment/internal/config"
	"github.com/Additional-Code/fulfillment/internal/entity"
	"github.com/Additional-Code/fulfillment/internal/journal"
)

type stubArchive struct {
	enabled bool
	topic   string
	limit   int
}

func (s *stubArchive) Enabled() bool { return s.enabled }
func (s *stubArchive) ListByTopic(_ context.Context, topic string, limit int) ([]entity.JournalEntry, error) {
	s.topic, s.limit = topic, limit
	return []entity.JournalEntry{{ID: 1, Topic: topic, Message: "archived"}}, nil
}

func get(e *echo.Echo, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestJournalFromMemory(t *testing.T) {
	rec := journal.NewRecorder(config.Journal{Retain: 10, Buffer: 10}, nil, zap.NewNop())
	rec.Log(journal.TopicBilling, "table 1 paid")
	rec.Log(journal.TopicOrder, "order 1 placed")

	e := echo.New()
	Register(e, NewHandler(rec, nil))

	res := get(e, "/journal?topic=billing")
	assert.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "table 1 paid")
	assert.NotContains(t, res.Body.String(), "order 1 placed")

	assert.Equal(t, http.StatusBadRequest, get(e, "/journal?limit=-3").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get(e, "/journal?source=db").Code)
}

func TestJournalFromArchive(t *testing.T) {
	archive := &stubArchive{enabled: true}
	e := echo.New()
	Register(e, NewHandler(journal.NewRecorder(config.Journal{}, nil, zap.NewNop()), archive))

	res := get(e, "/journal?source=db&topic=Supply&limit=9000")
	assert.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "archived")
	assert.Equal(t, "supply", archive.topic)
	assert.Equal(t, maxLimit, archive.limit)
}
