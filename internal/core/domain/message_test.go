package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestMessageStatus_String tests the string form of every status
func TestMessageStatus_String(t *testing.T) {
	tests := []struct {
		status   MessageStatus
		expected string
	}{
		{StatusPending, "pending"},
		{StatusStreaming, "streaming"},
		{StatusComplete, "complete"},
		{StatusError, "error"},
		{MessageStatus(42), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.status.String())
		})
	}
}

// TestMessageStatus_IsTerminal tests which statuses are final
func TestMessageStatus_IsTerminal(t *testing.T) {
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusStreaming.IsTerminal())
	assert.True(t, StatusComplete.IsTerminal())
	assert.True(t, StatusError.IsTerminal())
}

// TestMessage_IsTyping tests the typing indicator rule
func TestMessage_IsTyping(t *testing.T) {
	tests := []struct {
		name     string
		msg      Message
		expected bool
	}{
		{"pending empty assistant", Message{Role: RoleAssistant, Status: StatusPending}, true},
		{"streaming assistant", Message{Role: RoleAssistant, Status: StatusStreaming, Content: "Hi"}, false},
		{"complete empty assistant", Message{Role: RoleAssistant, Status: StatusComplete}, false},
		{"user message", Message{Role: RoleUser, Status: StatusPending}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.msg.IsTyping())
		})
	}
}

// TestStreamEvent_Constructors tests the tagged stream event helpers
func TestStreamEvent_Constructors(t *testing.T) {
	assert.Equal(t, EventFragment, Fragment("x").Kind)
	assert.Equal(t, "x", Fragment("x").Text)
	assert.Equal(t, EventDone, Done().Kind)
	assert.Equal(t, EventError, Failed(ErrNoStreamBody).Kind)
	assert.ErrorIs(t, Failed(ErrNoStreamBody).Err, ErrNoStreamBody)
	assert.Equal(t, "fragment", EventFragment.String())
	assert.Equal(t, "done", EventDone.String())
	assert.Equal(t, "error", EventError.String())
}
