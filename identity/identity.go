package identity

import "time"

// AgentIdentity is the fixed record spec.md §3 establishes per agent: its
// id, role, workspace path, environment, bound session, and when it was
// first initialized. It is written once at worker startup and never
// mutated afterward — ExecuteTask reminds a session of it, never rewrites
// it.
type AgentIdentity struct {
	AgentID       string            `json:"agent_id"`
	Role          Role              `json:"role"`
	WorkspacePath string            `json:"workspace_path"`
	Environment   map[string]string `json:"environment"`
	SessionID     string            `json:"session_id"`
	InitializedAt time.Time         `json:"initialized_at"`
}

// New builds an identity for agentID in role, rooted at workspacePath. The
// session is bound later via BindSession once the session pool assigns one.
func New(agentID string, role Role, workspacePath string, env map[string]string) AgentIdentity {
	if env == nil {
		env = map[string]string{}
	}
	return AgentIdentity{
		AgentID:       agentID,
		Role:          role,
		WorkspacePath: workspacePath,
		Environment:   env,
		InitializedAt: time.Now(),
	}
}

// BindSession returns a copy of id with SessionID set, used once the
// identity is handed a live session.
func (id AgentIdentity) BindSession(sessionID string) AgentIdentity {
	id.SessionID = sessionID
	return id
}
