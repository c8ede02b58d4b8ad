// Package workspace isolates each agent's working tree from every other
// agent's, per spec.md §4.2. Grounded on ccswarm's git/shell worktree
// manager (original_source/crates/ccswarm/src/session/worktree_session.rs),
// rendered in Go as an os/exec-driven local git implementation behind a
// small Manager interface, with Container/Hybrid modes stubbed for
// deployments that isolate at the container level instead.
package workspace

import "context"

// IsolationMode selects how a workspace is carved out for an agent.
type IsolationMode string

const (
	// ModeGitWorktree creates a `git worktree` per agent against a shared
	// repository clone. This is the default and the only fully implemented
	// mode; Container and Hybrid are served by ContainerManager, whose
	// Create, Remove and Commit return a not-implemented error.
	ModeGitWorktree IsolationMode = "git_worktree"
	ModeContainer   IsolationMode = "container"
	ModeHybrid      IsolationMode = "hybrid"
)

// Info describes a created workspace.
type Info struct {
	AgentID string
	Path    string
	Branch  string
}

// Manager creates, tracks, and tears down per-agent workspaces.
type Manager interface {
	// Create carves out an isolated workspace for agentID on a new branch
	// derived from agentID, returning its filesystem path.
	Create(ctx context.Context, agentID string) (Info, error)

	// Remove tears down the workspace previously created for agentID.
	Remove(ctx context.Context, agentID string) error

	// List returns every workspace currently tracked by the manager.
	List() []Info

	// Commit stages and commits all pending changes in agentID's
	// workspace with message, returning the new commit hash.
	Commit(ctx context.Context, agentID string, message string) (string, error)
}
