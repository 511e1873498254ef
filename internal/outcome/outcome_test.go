package outcome

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Message(t *testing.T) {
	err := Timeout("g2g:Kazzak", "navigation exceeded deadline", context.DeadlineExceeded)
	assert.Equal(t, "[timeout] g2g:Kazzak: navigation exceeded deadline: context deadline exceeded", err.Error())

	bare := ParseFailure("", "no decimal in text", nil)
	assert.Equal(t, "parse_failure: no decimal in text", bare.Error())
}

func TestError_Retryable(t *testing.T) {
	tests := []struct {
		kind     Kind
		expected bool
	}{
		{KindTimeout, true},
		{KindTransport, true},
		{KindElementNotFound, false},
		{KindParseFailure, false},
		{KindConfig, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.expected, New(tt.kind, "src", "msg", nil).Retryable())
		})
	}
}

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("leg failed: %w", ElementNotFound("g2g", "price card missing", nil))
	assert.Equal(t, KindElementNotFound, KindOf(wrapped))
	assert.Equal(t, KindTimeout, KindOf(context.DeadlineExceeded))
	assert.Equal(t, KindTransport, KindOf(errors.New("connection refused")))
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.False(t, IsRetryable(context.Canceled))
	assert.False(t, IsRetryable(ParseFailure("s", "m", nil)))
	assert.True(t, IsRetryable(errors.New("dial tcp: i/o timeout")))
	assert.True(t, IsRetryable(Transport("s", "m", nil)))
}

func TestWithSource(t *testing.T) {
	t.Run("tags untagged outcome errors", func(t *testing.T) {
		err := WithSource(ParseFailure("", "bad text", nil), "nobitex-api")
		oe, ok := As(err)
		require.True(t, ok)
		assert.Equal(t, "nobitex-api", oe.Source)
		assert.Equal(t, KindParseFailure, oe.Kind)
	})

	t.Run("retags wrapped outcome errors", func(t *testing.T) {
		inner := Timeout("browser", "navigation timed out", context.DeadlineExceeded)
		err := WithSource(fmt.Errorf("session: %w", inner), "g2g:Kazzak")
		oe, ok := As(err)
		require.True(t, ok)
		assert.Equal(t, "g2g:Kazzak", oe.Source)
		assert.Equal(t, "navigation timed out", oe.Message)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("classifies plain errors", func(t *testing.T) {
		err := WithSource(context.DeadlineExceeded, "g2g")
		oe, ok := As(err)
		require.True(t, ok)
		assert.Equal(t, KindTimeout, oe.Kind)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("nil stays nil", func(t *testing.T) {
		assert.NoError(t, WithSource(nil, "x"))
	})
}
