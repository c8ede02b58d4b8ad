package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewDefaultsNilEnvironmentToEmptyMap(t *testing.T) {
	id := New("agent-1", RoleBackend, "/work/agent-1", nil)
	assert.NotNil(t, id.Environment)
	assert.Empty(t, id.Environment)
	assert.False(t, id.InitializedAt.IsZero())
}

func TestNewPreservesSuppliedEnvironment(t *testing.T) {
	env := map[string]string{"GIT_AUTHOR_NAME": "swarm"}
	id := New("agent-1", RoleQA, "/work/agent-1", env)
	assert.Equal(t, env, id.Environment)
}

func TestBindSessionReturnsCopyWithSessionID(t *testing.T) {
	base := New("agent-1", RoleDevOps, "/work/agent-1", nil)
	bound := base.BindSession("sess-123")

	assert.Equal(t, "sess-123", bound.SessionID)
	assert.Empty(t, base.SessionID, "BindSession must not mutate the receiver")
}
