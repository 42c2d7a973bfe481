package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	echo "github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Additional-Code/fulfillment/internal/config"
	"github.com/Additional-Code/fulfillment/internal/presentation/http/response"
	"github.com/Additional-Code/fulfillment/pkg/errorbank"
)

type fakeHealth struct {
	paused bool
	last   time.Time
}

func (f fakeHealth) Paused() bool            { return f.paused }
func (f fakeHealth) LastActivity() time.Time { return f.last }

func get(e *echo.Echo, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthReportsPause(t *testing.T) {
	e := NewEcho(Params{Config: config.Config{}, Logger: zap.NewNop(), Health: fakeHealth{paused: true, last: time.Unix(100, 0)}})

	rec := get(e, "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, true, body["paused"])
}

func TestHealthWithoutMonitor(t *testing.T) {
	e := NewEcho(Params{Config: config.Config{}, Logger: zap.NewNop()})

	var body map[string]any
	require.NoError(t, json.Unmarshal(get(e, "/health").Body.Bytes(), &body))
	assert.NotContains(t, body, "paused")
}

func TestErrorsRenderThroughEnvelope(t *testing.T) {
	e := NewEcho(Params{Config: config.Config{}, Logger: zap.NewNop()})
	e.GET("/conflict", func(echo.Context) error { return errorbank.Conflict("bill already paid") })
	e.GET("/boom", func(echo.Context) error { return errors.New("disk on fire") })
	e.GET("/panic", func(echo.Context) error { panic("station exploded") })

	rec := get(e, "/conflict")
	assert.Equal(t, http.StatusConflict, rec.Code)
	var env response.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, "conflict", env.Error.Kind)

	rec = get(e, "/boom")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "disk on fire")

	assert.Equal(t, http.StatusInternalServerError, get(e, "/panic").Code)
	assert.NotEmpty(t, get(e, "/health").Header().Get(echo.HeaderXRequestID))
}

func TestUnknownRouteUsesEchoError(t *testing.T) {
	e := NewEcho(Params{Config: config.Config{}, Logger: zap.NewNop()})
	assert.Equal(t, http.StatusNotFound, get(e, "/nope").Code)
}
