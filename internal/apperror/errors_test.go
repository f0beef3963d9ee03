package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSafeMessage_HidesInternalErrors(t *testing.T) {
	assert.Equal(t, "an unexpected error occurred", SafeMessage(errors.New("pq: relation businesses does not exist")))
	assert.Equal(t, "business not found", SafeMessage(NewNotFound("business not found")))

	wrapped := fmt.Errorf("loading: %w", NewForbidden("admins only"))
	assert.Equal(t, "admins only", SafeMessage(wrapped))
	assert.Equal(t, http.StatusForbidden, SafeCode(wrapped))
	assert.Equal(t, http.StatusInternalServerError, SafeCode(errors.New("boom")))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(NewNotFound("x")))
	assert.True(t, IsNotFound(fmt.Errorf("wrapped: %w", NewNotFound("x"))))
	assert.False(t, IsNotFound(NewBadRequest("x")))
	assert.False(t, IsNotFound(nil))
}

func TestServiceUnavailable_KeepsCause(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := NewServiceUnavailable("try again later", cause)

	assert.Equal(t, http.StatusServiceUnavailable, err.Code)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
}
