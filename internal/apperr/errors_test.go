package apperr_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casatico/stayfly/internal/apperr"
)

func TestWrapPreservesKind(t *testing.T) {
	base := apperr.New(apperr.KindTransient, "scrape timeout")
	wrapped := apperr.Wrap("", base, "scrape failed after retries")

	require.Error(t, wrapped)
	assert.Equal(t, apperr.KindTransient, apperr.KindOf(wrapped))
	assert.True(t, errors.Is(wrapped, base))
}

func TestWrapOverridesKind(t *testing.T) {
	base := apperr.New(apperr.KindTransient, "scrape timeout")
	wrapped := apperr.Wrap(apperr.KindExtractionFailed, base, "no method available")

	assert.Equal(t, apperr.KindExtractionFailed, apperr.KindOf(wrapped))
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.Nil(t, apperr.Wrap(apperr.KindInternal, nil, "unused"))
}

func TestKindOfDefaultsToInternal(t *testing.T) {
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(errors.New("plain error")))
}

func TestHTTPStatus(t *testing.T) {
	cases := map[apperr.Kind]int{
		apperr.KindValidation:       http.StatusBadRequest,
		apperr.KindAuth:             http.StatusUnauthorized,
		apperr.KindForbidden:        http.StatusForbidden,
		apperr.KindNotFound:         http.StatusNotFound,
		apperr.KindRateLimited:      http.StatusTooManyRequests,
		apperr.KindTransient:        http.StatusBadGateway,
		apperr.KindExtractionFailed: http.StatusUnprocessableEntity,
		apperr.KindInternal:         http.StatusInternalServerError,
	}
	for kind, status := range cases {
		assert.Equal(t, status, apperr.HTTPStatus(kind), "kind %s", kind)
	}
}

func TestWithFieldAccumulates(t *testing.T) {
	err := apperr.New(apperr.KindValidation, "invalid request").
		WithField("url", "must be http or https").
		WithField("tenant_id", "required")

	assert.Len(t, err.Fields, 2)
	assert.Equal(t, "required", err.Fields["tenant_id"])
}

func TestIs(t *testing.T) {
	err := apperr.New(apperr.KindForbidden, "role lacks visibility")
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
	assert.False(t, apperr.Is(err, apperr.KindNotFound))
}
