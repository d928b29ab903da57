package apierr_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/phigros-go/phigros-backend/internal/apierr"
)

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		kind apierr.Kind
		want int
	}{
		{apierr.KindValidation, http.StatusUnprocessableEntity},
		{apierr.KindJSON, http.StatusBadRequest},
		{apierr.KindAuth, http.StatusUnauthorized},
		{apierr.KindForbidden, http.StatusForbidden},
		{apierr.KindNotFound, http.StatusNotFound},
		{apierr.KindConflict, http.StatusConflict},
		{apierr.KindUpstream, http.StatusBadGateway},
		{apierr.KindRateLimited, http.StatusTooManyRequests},
		{apierr.KindTooLarge, http.StatusRequestEntityTooLarge},
		{apierr.KindInternal, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		e := apierr.New(tc.kind, "detail")
		assert.Equal(t, tc.want, e.Status())
	}
}

func TestToProblem_EchoesRequestID(t *testing.T) {
	e := apierr.New(apierr.KindConflict, "alias taken")
	p := e.ToProblem("req_abc123")
	assert.Equal(t, "req_abc123", p.RequestID)
	assert.Equal(t, apierr.KindConflict, p.Code)
	assert.Equal(t, http.StatusConflict, p.Status)
}

func TestAs_WrapsNonApiErrorAsInternal(t *testing.T) {
	plain := errors.New("boom")
	e := apierr.As(plain)
	assert.Equal(t, apierr.KindInternal, e.Kind)
	assert.Equal(t, http.StatusInternalServerError, e.Status())
}

func TestAs_PassesThroughExistingApiError(t *testing.T) {
	original := apierr.New(apierr.KindNotFound, "missing")
	wrapped := apierr.As(original)
	assert.Same(t, original, wrapped)
}
