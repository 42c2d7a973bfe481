package order

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Additional-Code/fulfillment/internal/cache"
	"github.com/Additional-Code/fulfillment/internal/catalog"
	"github.com/Additional-Code/fulfillment/internal/dispatch"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Kind string `json:"kind"`
	} `json:"error"`
	Meta map[string]any `json:"meta"`
}

func newServer() (*echo.Echo, *dispatch.PriorityQueue) {
	q := dispatch.NewPriorityQueue()
	in := dispatch.NewIntake(dispatch.IntakeParams{Catalog: catalog.Default(), Queue: q})
	keys := dispatch.NewIdempotency(cache.NewMemory(time.Minute), time.Minute)
	e := echo.New()
	Register(e, NewHandler(catalog.Default(), in, keys))
	return e, q
}

func do(t *testing.T, e *echo.Echo, method, path, body string, headers map[string]string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec.Code, env
}

func TestMenuListsCatalog(t *testing.T) {
	e, _ := newServer()
	code, env := do(t, e, http.MethodGet, "/menu", "", nil)
	require.Equal(t, http.StatusOK, code)

	var items []struct {
		ID          int            `json:"id"`
		Name        string         `json:"name"`
		Ingredients map[string]int `json:"ingredients"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &items))
	require.Len(t, items, len(catalog.Default().Menu()))
	assert.Equal(t, 1, items[0].ID)
	assert.NotEmpty(t, items[0].Ingredients)
}

func TestCreateOrderIsIdempotent(t *testing.T) {
	e, q := newServer()
	body := `{"table_number":2,"menu_item_id":11,"quantity":2}`
	hdr := map[string]string{IdempotencyHeader: "abc"}

	code, env := do(t, e, http.MethodPost, "/orders", body, hdr)
	require.Equal(t, http.StatusCreated, code)
	var first struct {
		ID     int64  `json:"id"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &first))
	assert.Equal(t, "NEW", first.Status)

	code, env = do(t, e, http.MethodPost, "/orders", body, hdr)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, env.Meta["replayed"])
	assert.Equal(t, 1, q.Len())

	code, _ = do(t, e, http.MethodGet, "/orders/"+jsonNumber(first.ID), "", nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestCreateOrderRejectsBadInput(t *testing.T) {
	e, q := newServer()

	code, env := do(t, e, http.MethodPost, "/orders", `{"table_number":1,"menu_item_id":99,"quantity":1}`, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "not_found", env.Error.Kind)

	code, env = do(t, e, http.MethodPost, "/orders", `{"table_number":1,"menu_item_id":1,"quantity":0}`, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "bad_request", env.Error.Kind)
	assert.Zero(t, q.Len())
}

func TestReprioritizeQueuedOrder(t *testing.T) {
	e, q := newServer()

	code, env := do(t, e, http.MethodPost, "/orders", `{"table_number":4,"menu_item_id":11,"quantity":1}`, nil)
	require.Equal(t, http.StatusCreated, code)
	var placed struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &placed))

	code, env = do(t, e, http.MethodPut, "/orders/"+jsonNumber(placed.ID)+"/priority", `{"priority":7}`, nil)
	require.Equal(t, http.StatusOK, code)
	var moved struct {
		Priority int `json:"priority"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &moved))
	assert.Equal(t, 7, moved.Priority)

	_, err := q.Take(context.Background())
	require.NoError(t, err)
	code, env = do(t, e, http.MethodPut, "/orders/"+jsonNumber(placed.ID)+"/priority", `{"priority":1}`, nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "conflict", env.Error.Kind)
}

func TestGetOrderUnknown(t *testing.T) {
	e, _ := newServer()
	code, _ := do(t, e, http.MethodGet, "/orders/424242", "", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = do(t, e, http.MethodGet, "/orders/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func jsonNumber(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}
