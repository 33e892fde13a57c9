package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindStatusCodes(t *testing.T) {
	tests := []struct {
		err  *Error
		want int
	}{
		{Validation("bad"), http.StatusBadRequest},
		{Conflict("twice"), http.StatusBadRequest},
		{Authorization("nope"), http.StatusForbidden},
		{NotFound("gone"), http.StatusNotFound},
		{Unexpected("boom", errors.New("db down")), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Kind.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.StatusCode())
		})
	}
}

func TestKindOfWrapped(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("accept: %w", Unexpected("Failed to accept swap request", cause))

	assert.Equal(t, KindUnexpected, KindOf(err))
	assert.ErrorIs(t, err, cause)
	assert.True(t, Is(fmt.Errorf("x: %w", NotFound("Swap request not found")), KindNotFound))
	assert.False(t, Is(nil, KindNotFound))
	assert.Equal(t, KindUnexpected, KindOf(errors.New("plain")))
}
