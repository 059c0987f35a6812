package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneKeepsCodeAndMatches(t *testing.T) {
	clone := Clone(ErrNotFound, "share not found")
	assert.Equal(t, "share not found", clone.Message)
	assert.Equal(t, ErrNotFound.Code, clone.Code)
	assert.True(t, errors.Is(clone, ErrNotFound))
	assert.False(t, errors.Is(clone, ErrForbidden))
	assert.Equal(t, "resource not found", ErrNotFound.Message)
}

func TestFromErrorWrapsUnknown(t *testing.T) {
	err := FromError(fmt.Errorf("boom"))
	assert.Equal(t, ErrInternal.Code, err.Code)
	assert.Equal(t, http.StatusInternalServerError, err.Status)
	assert.Nil(t, FromError(nil))
}

func TestWrappedDomainErrorSurvivesFmtWrap(t *testing.T) {
	wrapped := fmt.Errorf("note n1: %w", ErrMissingAccountID)
	assert.True(t, errors.Is(wrapped, ErrMissingAccountID))
	assert.Equal(t, ErrMissingAccountID.Code, FromError(wrapped).Code)
}
