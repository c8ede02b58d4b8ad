package workspace

import (
	"context"
	"fmt"
)

// ContainerManager is the Container/Hybrid isolation mode placeholder.
// spec.md's scope names container-level isolation as a deployment option
// but the reference runtime only exercises git-worktree isolation; this
// type documents the intended shape so a deployment can supply its own
// container orchestration (Docker/Kubernetes Job per agent) without
// changing any caller of the Manager interface.
type ContainerManager struct {
	mode IsolationMode
}

// NewContainerManager builds a stub manager for mode, which must be
// ModeContainer or ModeHybrid.
func NewContainerManager(mode IsolationMode) *ContainerManager {
	return &ContainerManager{mode: mode}
}

func (m *ContainerManager) Create(ctx context.Context, agentID string) (Info, error) {
	return Info{}, fmt.Errorf("workspace: %s isolation is not implemented in this runtime", m.mode)
}

func (m *ContainerManager) Remove(ctx context.Context, agentID string) error {
	return fmt.Errorf("workspace: %s isolation is not implemented in this runtime", m.mode)
}

func (m *ContainerManager) List() []Info { return nil }

func (m *ContainerManager) Commit(ctx context.Context, agentID string, message string) (string, error) {
	return "", fmt.Errorf("workspace: %s isolation is not implemented in this runtime", m.mode)
}

var _ Manager = (*ContainerManager)(nil)
