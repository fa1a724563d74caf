package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	err := New(ErrAuth, "Login rejected", "Check the password")
	assert.Equal(t, ErrAuth, err.Code)
	assert.Contains(t, err.Error(), "Login rejected")
	assert.Contains(t, err.Error(), "Check the password")
	assert.Nil(t, err.Cause)
}

func TestWrapWithCode(t *testing.T) {
	cause := fmt.Errorf("dial tcp: i/o timeout")
	err := WrapWithCode(cause, ErrTimeout, "Connection timed out", "Is the host up?")

	assert.Equal(t, ErrTimeout, err.Code)
	assert.Contains(t, err.Error(), "Connection timed out")
	assert.Contains(t, err.Error(), "dial tcp: i/o timeout")
	assert.Equal(t, cause, stderrors.Unwrap(err))
}

func TestWrapDefaultsToNetwork(t *testing.T) {
	err := Wrap(fmt.Errorf("boom"), "Something broke")
	assert.Equal(t, ErrNetwork, err.Code)
}

func TestIsCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
		want bool
	}{
		{"nil error", nil, ErrAuth, false},
		{"matching code", New(ErrAuth, "m", "s"), ErrAuth, true},
		{"different code", New(ErrTimeout, "m", "s"), ErrAuth, false},
		{"plain error", fmt.Errorf("plain"), ErrAuth, false},
		{"wrapped structured error", fmt.Errorf("outer: %w", New(ErrParse, "m", "s")), ErrParse, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsCode(tt.err, tt.code))
		})
	}
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, ErrNotConnected, CodeOf(New(ErrNotConnected, "m", "")))
	assert.Equal(t, "", CodeOf(fmt.Errorf("plain")))
	assert.Equal(t, "", CodeOf(nil))
}
