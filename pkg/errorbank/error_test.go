package errorbank

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
)

func TestKindsMapToTransportCodes(t *testing.T) {
	tests := []struct {
		err  *AppError
		http int
		grpc codes.Code
	}{
		{BadRequest("x"), http.StatusBadRequest, codes.InvalidArgument},
		{NotFound("x"), http.StatusNotFound, codes.NotFound},
		{Conflict("x"), http.StatusConflict, codes.AlreadyExists},
		{Unprocessable("x"), http.StatusUnprocessableEntity, codes.FailedPrecondition},
		{PaymentRequired("x"), http.StatusPaymentRequired, codes.FailedPrecondition},
		{Unavailable("x"), http.StatusServiceUnavailable, codes.Unavailable},
		{Internal("x"), http.StatusInternalServerError, codes.Internal},
	}
	for _, tc := range tests {
		t.Run(string(tc.err.Kind()), func(t *testing.T) {
			assert.Equal(t, tc.http, tc.err.StatusCode())
			assert.Equal(t, tc.grpc, tc.err.GRPCCode())
		})
	}
}

func TestFromWrapsUnknownErrors(t *testing.T) {
	cause := errors.New("disk on fire")
	appErr := From(cause)
	assert.Equal(t, KindInternal, appErr.Kind())
	assert.ErrorIs(t, appErr, cause)

	nf := NotFound("order not found", WithDetail("id", 7))
	assert.Same(t, nf, From(nf))
	assert.Equal(t, 7, nf.Details()["id"])
	assert.Nil(t, From(nil))
}
