package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapKeepsInnerCode(t *testing.T) {
	base := ConfigInvalid("unknown distribution")
	wrapped := Wrap(fmt.Errorf("prior omega_b: %w", base), "failed to load configuration")

	assert.Equal(t, CodeConfigInvalid, GetCode(wrapped))
	assert.True(t, stderrors.Is(wrapped, base))
	assert.Contains(t, wrapped.Error(), "unknown distribution")
}

func TestWrapPlainErrorIsInternal(t *testing.T) {
	wrapped := Wrap(stderrors.New("boom"), "step failed")
	assert.Equal(t, CodeInternalError, GetCode(wrapped))
	assert.Nil(t, Wrap(nil, "nothing"))
	assert.Nil(t, Wrapf(nil, "nothing %d", 1))
}

func TestGetCodeUnknown(t *testing.T) {
	assert.Equal(t, "UNKNOWN", GetCode(stderrors.New("plain")))
	assert.False(t, IsAppError(stderrors.New("plain")))
}

func TestConstructors(t *testing.T) {
	cause := stderrors.New("no such file")

	tests := []struct {
		name string
		err  *AppError
		code string
	}{
		{"io", IOError("data/lhs_500.csv", cause), CodeIOError},
		{"external", ExternalServiceError("engine", cause), CodeExternalService},
		{"input", InvalidInputf(cause, "row %d", 3), CodeInvalidInput},
		{"config", ConfigInvalidf(cause, "prior %s", "h"), CodeConfigInvalid},
		{"database", DatabaseError("insert run", cause), CodeDatabaseError},
		{"interrupted", Interrupted(cause), CodeInterrupted},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.code, tc.err.Code)
			assert.ErrorIs(t, tc.err, cause)
		})
	}
}

func TestWithCode(t *testing.T) {
	err := WithCode(CodeInvalidInput, stderrors.New("bad value"))
	assert.Equal(t, CodeInvalidInput, GetCode(err))
	assert.Nil(t, WithCode(CodeInvalidInput, nil))
}
