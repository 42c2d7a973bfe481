package response

import (
	"net/http"
	"reflect"

	"github.com/labstack/echo/v4"

	"github.com/Additional-Code/fulfillment/pkg/errorbank"
)

// Envelope is the body every handler emits.
type Envelope struct {
	Success bool           `json:"success"`
	Data    any            `json:"data,omitempty"`
	Error   *ErrorBody     `json:"error,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
}

// ErrorBody describes a failed request.
type ErrorBody struct {
	Kind    string         `json:"kind"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// Builder helps construct consistent HTTP responses.
type Builder struct {
	ctx    echo.Context
	status int
	data   any
	err    error
	meta   map[string]any
}

// New instantiates a Builder for the provided request context.
func New(ctx echo.Context) *Builder {
	return &Builder{ctx: ctx, status: http.StatusOK}
}

// WithStatus overrides the response status code.
func (b *Builder) WithStatus(status int) *Builder {
	if status > 0 {
		b.status = status
	}
	return b
}

// WithData attaches a success payload. Slices also set meta.count.
func (b *Builder) WithData(data any) *Builder {
	b.data = data
	if v := reflect.ValueOf(data); v.Kind() == reflect.Slice {
		b.WithMeta("count", v.Len())
	}
	return b
}

// WithError records an error to be rendered.
func (b *Builder) WithError(err error) *Builder {
	b.err = err
	return b
}

// WithMeta appends auxiliary metadata to the response.
func (b *Builder) WithMeta(key string, value any) *Builder {
	if key == "" {
		return b
	}
	if b.meta == nil {
		b.meta = make(map[string]any)
	}
	b.meta[key] = value
	return b
}

// Build finalises and emits the HTTP response.
func (b *Builder) Build() error {
	if id := b.ctx.Response().Header().Get(echo.HeaderXRequestID); id != "" {
		b.WithMeta("request_id", id)
	}
	if b.err != nil {
		return b.buildError()
	}
	if b.status == 0 {
		b.status = http.StatusOK
	}
	return b.ctx.JSON(b.status, Envelope{Success: true, Data: b.data, Meta: b.meta})
}

// buildError renders AppErrors as-is. Anything else becomes an opaque internal
// error so causes never leak to clients.
func (b *Builder) buildError() error {
	appErr := errorbank.From(b.err)
	status := b.status
	if status < 400 {
		status = appErr.StatusCode()
	}

	body := &ErrorBody{Kind: string(appErr.Kind()), Message: appErr.Message(), Details: appErr.Details()}
	if appErr.Kind() == errorbank.KindInternal {
		body.Details = nil
	}
	return b.ctx.JSON(status, Envelope{Success: false, Error: body, Meta: b.meta})
}
