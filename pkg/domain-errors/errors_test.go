package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCode(t *testing.T) {
	t.Run("matches outer code", func(t *testing.T) {
		err := New(CodeNotFound, "beneficiary not found")
		assert.True(t, HasCode(err, CodeNotFound))
		assert.False(t, HasCode(err, CodeConflict))
	})

	t.Run("matches wrapped domain error", func(t *testing.T) {
		inner := New(CodeInvariantViolation, "name too short")
		outer := Wrap(inner, CodeValidation, "invalid beneficiary")
		assert.True(t, HasCode(outer, CodeValidation))
		assert.True(t, HasCode(outer, CodeInvariantViolation))
	})

	t.Run("plain errors carry no code", func(t *testing.T) {
		assert.False(t, HasCode(errors.New("boom"), CodeInternal))
		assert.False(t, HasCode(nil, CodeInternal))
	})

	t.Run("survives fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("context: %w", New(CodeConflict, "dup"))
		assert.True(t, HasCode(err, CodeConflict))
	})
}

func TestErrorIs(t *testing.T) {
	err := Wrap(errors.New("db down"), CodeInternal, "failed to load item")
	require.ErrorIs(t, err, New(CodeInternal, "failed to load item"))
	assert.NotErrorIs(t, err, New(CodeInternal, "other message"))
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, CodeInternal, "ignored"))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeBadRequest, CodeOf(New(CodeBadRequest, "x")))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("x")))
}
