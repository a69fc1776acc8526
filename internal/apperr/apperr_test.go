package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesCode(t *testing.T) {
	err := ErrOTPLimit.WithMessage("Please try again after 12 minutes.")
	wrapped := fmt.Errorf("request otp: %w", err)

	assert.True(t, errors.Is(wrapped, ErrOTPLimit))
	assert.False(t, errors.Is(wrapped, ErrInvalidOrExpired))
	assert.Equal(t, "Please try again after 12 minutes.", err.Error())
	assert.Equal(t, http.StatusBadRequest, StatusOf(wrapped))
}

func TestInternalUnwraps(t *testing.T) {
	cause := errors.New("connection reset")
	err := Internal(cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, http.StatusInternalServerError, StatusOf(err))
	assert.Equal(t, http.StatusInternalServerError, StatusOf(cause))

	ae, ok := As(err)
	assert.True(t, ok)
	assert.Equal(t, CodeInternal, ae.Code)
}

func TestConstructors(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, Validation("x").Status)
	assert.Equal(t, http.StatusNotFound, NotFound("x").Status)
	assert.Equal(t, http.StatusConflict, Conflict("x").Status)
	assert.Equal(t, http.StatusUnauthorized, Auth("x").Status)
	assert.Equal(t, http.StatusForbidden, Forbidden("x").Status)
	assert.Equal(t, CodeUpstream, Upstream("x", nil).Code)
}
