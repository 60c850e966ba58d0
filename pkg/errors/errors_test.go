package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneMatchesTemplateByCode(t *testing.T) {
	err := Clone(ErrConflict, "cannot delete an accepted request")

	assert.True(t, errors.Is(err, ErrConflict))
	assert.False(t, errors.Is(err, ErrValidation))
	assert.Equal(t, http.StatusBadRequest, err.Status)
	assert.Equal(t, "conflict", ErrConflict.Message)
}

func TestWrappedErrorsStillMatch(t *testing.T) {
	cause := errors.New("pq: deadlock detected")
	err := fmt.Errorf("update payment: %w", Internal(cause, "failed to update payment"))

	assert.ErrorIs(t, err, ErrInternal)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "failed to update payment: pq: deadlock detected", FromError(err).Error())
}

func TestFromErrorNormalisesUnknownErrors(t *testing.T) {
	appErr := FromError(errors.New("boom"))

	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.Nil(t, FromError(nil))
}
