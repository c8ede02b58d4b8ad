package workspace

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	"github.com/swarmforge/swarmctl/core"
)

// GitWorktreeManager implements Manager by shelling out to the system git
// binary, one `git worktree add`/`git worktree remove` per agent against a
// shared bare-or-working repository at RepoPath. Grounded on ccswarm's
// ShellWorktreeManager, which does the same thing from Rust via
// tokio::process::Command.
type GitWorktreeManager struct {
	repoPath  string
	worktrees string
	logger    core.Logger

	mu    sync.Mutex
	infos map[string]Info
}

// NewGitWorktreeManager builds a manager rooted at repoPath, creating
// worktrees under worktreesDir (default "<repoPath>/.worktrees" when
// empty).
func NewGitWorktreeManager(repoPath, worktreesDir string, logger core.Logger) *GitWorktreeManager {
	if worktreesDir == "" {
		worktreesDir = filepath.Join(repoPath, ".worktrees")
	}
	if logger == nil {
		logger = core.NoOpLogger{}
	}
	return &GitWorktreeManager{
		repoPath:  repoPath,
		worktrees: worktreesDir,
		logger:    logger,
		infos:     make(map[string]Info),
	}
}

// InitRepoIfNeeded runs `git init` in repoPath when it isn't already a
// repository, so a fresh swarm can be pointed at an empty directory.
func (m *GitWorktreeManager) InitRepoIfNeeded(ctx context.Context) error {
	if _, err := os.Stat(filepath.Join(m.repoPath, ".git")); err == nil {
		return nil
	}
	if err := os.MkdirAll(m.repoPath, 0o755); err != nil {
		return fmt.Errorf("workspace: create repo path: %w", err)
	}
	return m.run(ctx, m.repoPath, "init")
}

// Create adds a new worktree for agentID on branch "agent/<agentID>",
// creating the branch from the current HEAD if it doesn't exist.
func (m *GitWorktreeManager) Create(ctx context.Context, agentID string) (Info, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.infos[agentID]; ok {
		return existing, nil
	}

	branch := "agent/" + agentID
	path := filepath.Join(m.worktrees, agentID)

	if err := m.run(ctx, m.repoPath, "worktree", "add", "-b", branch, path); err != nil {
		return Info{}, fmt.Errorf("workspace: create worktree for %s: %w", agentID, err)
	}

	info := Info{AgentID: agentID, Path: path, Branch: branch}
	m.infos[agentID] = info
	m.logger.Info("workspace created", map[string]interface{}{"agent_id": agentID, "path": path, "branch": branch})
	return info, nil
}

// Remove force-removes the worktree for agentID.
func (m *GitWorktreeManager) Remove(ctx context.Context, agentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	info, ok := m.infos[agentID]
	if !ok {
		return nil
	}

	if err := m.run(ctx, m.repoPath, "worktree", "remove", "--force", info.Path); err != nil {
		return fmt.Errorf("workspace: remove worktree for %s: %w", agentID, err)
	}
	delete(m.infos, agentID)
	m.logger.Info("workspace removed", map[string]interface{}{"agent_id": agentID})
	return nil
}

// List returns every tracked workspace.
func (m *GitWorktreeManager) List() []Info {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Info, 0, len(m.infos))
	for _, info := range m.infos {
		out = append(out, info)
	}
	return out
}

// Commit stages all changes in the agent's worktree and commits them.
func (m *GitWorktreeManager) Commit(ctx context.Context, agentID string, message string) (string, error) {
	m.mu.Lock()
	info, ok := m.infos[agentID]
	m.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("workspace: no workspace for agent %s", agentID)
	}

	if err := m.run(ctx, info.Path, "add", "-A"); err != nil {
		return "", fmt.Errorf("workspace: stage changes: %w", err)
	}
	if err := m.run(ctx, info.Path, "commit", "-m", message, "--allow-empty"); err != nil {
		return "", fmt.Errorf("workspace: commit: %w", err)
	}

	hash, err := m.output(ctx, info.Path, "rev-parse", "HEAD")
	if err != nil {
		return "", fmt.Errorf("workspace: read commit hash: %w", err)
	}
	return hash, nil
}

func (m *GitWorktreeManager) run(ctx context.Context, dir string, args ...string) error {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("git %v: %w: %s", args, err, stderr.String())
	}
	return nil
}

func (m *GitWorktreeManager) output(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return trimTrailingNewline(out), nil
}

func trimTrailingNewline(b []byte) string {
	s := string(b)
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

var _ Manager = (*GitWorktreeManager)(nil)
