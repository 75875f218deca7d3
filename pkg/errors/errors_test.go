package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromStatusClass(t *testing.T) {
	tests := []struct {
		status int
		code   ErrorCode
		class  Class
	}{
		{http.StatusUnauthorized, ErrUnauthorized, ClassUnauthorized},
		{http.StatusForbidden, ErrForbidden, ClassRecoverable},
		{http.StatusNotFound, ErrNotFound, ClassRecoverable},
		{http.StatusConflict, ErrConflict, ClassRecoverable},
		{http.StatusUnprocessableEntity, ErrValidation, ClassRecoverable},
		{http.StatusBadGateway, ErrInternal, ClassFatal},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			err := FromStatus(tt.status, "")
			assert.Equal(t, tt.code, err.Code)
			assert.Equal(t, tt.class, Classify(err))
			assert.Equal(t, http.StatusText(tt.status), err.Message)
		})
	}
}

func TestClassifyWrapped(t *testing.T) {
	err := fmt.Errorf("list doctors: %w", FromStatus(http.StatusConflict, "email taken"))
	assert.Equal(t, ClassRecoverable, Classify(err))
	assert.Equal(t, http.StatusConflict, StatusOf(err))
	assert.Equal(t, "email taken", UserMessage(err))

	assert.Equal(t, ClassFatal, Classify(stderrors.New("plain")))
	assert.Equal(t, 0, StatusOf(stderrors.New("plain")))
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(Transport(stderrors.New("connection refused"))))
	assert.True(t, IsTransient(FromStatus(http.StatusServiceUnavailable, "")))
	assert.False(t, IsTransient(FromStatus(http.StatusUnauthorized, "")))
	assert.False(t, IsTransient(nil))
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "Type the token", UserMessage(Precondition("Type the token")))
	assert.Equal(t, "database down", UserMessage(FromStatus(http.StatusInternalServerError, "database down")))

	msg := UserMessage(FromStatus(http.StatusInternalServerError, ""))
	assert.Contains(t, msg, GenericMessage)
	assert.Empty(t, UserMessage(nil))
}

func TestIsMatchesCode(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", Precondition("x"))
	assert.True(t, stderrors.Is(err, &AppError{Code: ErrPrecondition}))
	assert.False(t, stderrors.Is(err, &AppError{Code: ErrConflict}))
}
