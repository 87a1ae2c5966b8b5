package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneKeepsIdentity(t *testing.T) {
	err := Clone(ErrConflict, "student already registered for course")
	assert.True(t, stderrors.Is(err, ErrConflict))
	assert.False(t, stderrors.Is(err, ErrNotFound))
	assert.Equal(t, http.StatusConflict, err.Status)
	assert.Equal(t, "CONFLICT", err.Code)
}

func TestFromErrorWrapsUnknown(t *testing.T) {
	appErr := FromError(fmt.Errorf("boom"))
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)

	wrapped := fmt.Errorf("outer: %w", Clone(ErrEligibilityDenied, "credit cap"))
	assert.Equal(t, ErrEligibilityDenied.Code, FromError(wrapped).Code)
	assert.Nil(t, FromError(nil))
}

func TestWithDetails(t *testing.T) {
	err := WithDetails(ErrEligibilityDenied, "missing prerequisites", []string{"CS101"})
	assert.Equal(t, []string{"CS101"}, err.Details)
	assert.Nil(t, ErrEligibilityDenied.Details)
}
