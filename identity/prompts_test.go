package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstablishmentPromptIncludesMarkerAndBoundaries(t *testing.T) {
	id := New("agent-1", RoleFrontend, "/work/agent-1", nil)
	prompt := EstablishmentPrompt(id)

	assert.Contains(t, prompt, "IDENTITY-ACK")
	assert.Contains(t, prompt, "agent-1")
	assert.Contains(t, prompt, "/work/agent-1")
	assert.Contains(t, prompt, "does not modify backend API contracts")
}

func TestVerifyAcknowledgement(t *testing.T) {
	assert.True(t, VerifyAcknowledgement("IDENTITY-ACK understood, starting work"))
	assert.False(t, VerifyAcknowledgement("sure, I'll get started"))
}

func TestDriftReminderIsShortAndIdentifying(t *testing.T) {
	id := New("agent-2", RoleBackend, "/work/agent-2", nil)
	reminder := DriftReminder(id)

	assert.Contains(t, reminder, "agent-2")
	assert.Contains(t, reminder, "Backend")
	assert.Less(t, len(reminder), 220)
}
