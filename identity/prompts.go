package identity

import (
	"fmt"
	"strings"
)

// identityMarker is the token a session is asked to echo back at the start
// of its first reply, so EstablishIdentity can verify the prompt actually
// took hold before the session is handed real work.
const identityMarker = "IDENTITY-ACK"

// EstablishmentPrompt renders the one-time, roughly 200-token prompt a
// session receives before its first task: who it is, what it owns, what it
// must not touch, and the acknowledgement marker it must echo back.
func EstablishmentPrompt(id AgentIdentity) string {
	p := ProfileFor(id.Role)

	var b strings.Builder
	fmt.Fprintf(&b, "You are agent %s, role %s, operating in workspace %s.\n", id.AgentID, id.Role, id.WorkspacePath)
	fmt.Fprintf(&b, "Technologies you work with: %s.\n", strings.Join(p.Technologies, ", "))
	fmt.Fprintf(&b, "Your responsibilities: %s.\n", strings.Join(p.Responsibilities, ", "))
	fmt.Fprintf(&b, "Boundaries: %s.\n", strings.Join(p.Boundaries, ", "))
	b.WriteString("Stay within your workspace and role for every task you receive in this session. ")
	fmt.Fprintf(&b, "Begin your reply to this message with the exact token %s, then continue normally.\n", identityMarker)

	return b.String()
}

// VerifyAcknowledgement reports whether a session's first reply confirms
// the identity prompt took hold.
func VerifyAcknowledgement(reply string) bool {
	return strings.Contains(reply, identityMarker)
}

// DriftReminder renders the short (roughly 40-token) reminder reissued
// before each subsequent task in a persistent session, to counteract
// identity drift over a long-lived conversation without repaying the full
// establishment prompt's cost.
func DriftReminder(id AgentIdentity) string {
	return fmt.Sprintf("Reminder: you are agent %s, role %s, scoped to workspace %s. Stay within your role's boundaries.",
		id.AgentID, id.Role, id.WorkspacePath)
}
