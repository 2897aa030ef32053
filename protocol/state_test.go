package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateTerminal(t *testing.T) {
	for _, s := range []State{StateIdle, StateHeadersSent, StateStreaming} {
		assert.False(t, s.Terminal(), s.String())
	}
	assert.True(t, StateEnded.Terminal())
	assert.True(t, StateAborted.Terminal())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "Idle", StateIdle.String())
	assert.Equal(t, "Streaming", StateStreaming.String())
	assert.Equal(t, "Unknown", State(42).String())

	assert.Equal(t, "unset", FramingUnset.String())
	assert.Equal(t, "chunked", FramingChunked.String())
	assert.Equal(t, "length", FramingLength.String())

	assert.Equal(t, "none", OutcomeNone.String())
	assert.Equal(t, "completed", OutcomeCompleted.String())
	assert.Equal(t, "aborted", OutcomeAborted.String())
	assert.Equal(t, "closed", OutcomeClosed.String())
}
