package errors_test

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	skerrors "github.com/AltairaLabs/speechkit/errors"
)

func TestNew(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := skerrors.New(skerrors.ComponentTTS, "Connect", cause)

	assert.Equal(t, "tts", err.Component)
	assert.Equal(t, "Connect", err.Operation)
	assert.Zero(t, err.StatusCode)
	assert.False(t, err.Retryable)
	assert.Nil(t, err.Details)
	assert.Equal(t, cause, err.Cause)
}

func TestError_Message(t *testing.T) {
	tests := []struct {
		name string
		err  *skerrors.ContextualError
		want string
	}{
		{"with cause", skerrors.New("config", "Load", fmt.Errorf("file not found")), "[config] Load: file not found"},
		{"no cause", skerrors.New("tts", "Start", nil), "[tts] Start"},
		{"status", skerrors.New("tts", "Synthesize", fmt.Errorf("bad voice")).WithStatusCode(400), "[tts] Synthesize (status 400): bad voice"},
		{"formatted", skerrors.Newf("stage", "Process", "element %d", 3), "[stage] Process: element 3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestBuilders_ReturnSamePointer(t *testing.T) {
	err := skerrors.New("transport", "Send", io.ErrClosedPipe)
	details := map[string]any{"bytes": 12}

	assert.Same(t, err, err.WithStatusCode(1006))
	assert.Same(t, err, err.WithDetails(details))
	assert.Same(t, err, err.WithRetryable(true))
	assert.Equal(t, details, err.Details)
	assert.True(t, err.Retryable)
}

func TestUnwrap(t *testing.T) {
	err := skerrors.New("transport", "Receive", io.EOF)
	wrapped := fmt.Errorf("session: %w", err)

	assert.ErrorIs(t, wrapped, io.EOF)

	var ce *skerrors.ContextualError
	require.ErrorAs(t, wrapped, &ce)
	assert.Equal(t, "Receive", ce.Operation)
}

func TestComponentOf(t *testing.T) {
	assert.Equal(t, "audiocache", skerrors.ComponentOf(fmt.Errorf("x: %w", skerrors.New(skerrors.ComponentCache, "Get", nil))))
	assert.Empty(t, skerrors.ComponentOf(errors.New("plain")))
	assert.Empty(t, skerrors.ComponentOf(nil))
}

func TestIsRetryable(t *testing.T) {
	inner := skerrors.New("transport", "Dial", io.ErrUnexpectedEOF).WithRetryable(true)
	outer := skerrors.New("tts", "Connect", inner)

	assert.True(t, skerrors.IsRetryable(outer))
	assert.True(t, skerrors.IsRetryable(fmt.Errorf("wrapped: %w", outer)))
	assert.False(t, skerrors.IsRetryable(skerrors.New("tts", "Connect", io.EOF)))
	assert.False(t, skerrors.IsRetryable(errors.New("plain")))
	assert.False(t, skerrors.IsRetryable(nil))
}
