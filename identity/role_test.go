package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoleForTaskUsesKindWhenAuthoritative(t *testing.T) {
	assert.Equal(t, RoleDevOps, RoleForTask("Infrastructure", "do something"))
	assert.Equal(t, RoleQA, RoleForTask("Testing", "do something"))
	assert.Equal(t, RoleSearch, RoleForTask("Research", "do something"))
}

func TestRoleForTaskFallsBackToDescriptionKeywords(t *testing.T) {
	assert.Equal(t, RoleFrontend, RoleForTask("", "build a new React component for the dashboard"))
	assert.Equal(t, RoleBackend, RoleForTask("", "add a new API endpoint backed by the database"))
	assert.Equal(t, RoleDevOps, RoleForTask("", "write a terraform deployment pipeline"))
	assert.Equal(t, RoleQA, RoleForTask("", "improve test coverage"))
	assert.Equal(t, RoleSearch, RoleForTask("", "research the best caching library"))
}

func TestRoleForTaskDefaultsToBackend(t *testing.T) {
	assert.Equal(t, RoleBackend, RoleForTask("", "do something vague"))
}

func TestHasResearchSignal(t *testing.T) {
	assert.True(t, HasResearchSignal("please investigate the best practices here"))
	assert.False(t, HasResearchSignal("implement the login form"))
}

func TestProfileForUnknownRoleFallsBackToBackend(t *testing.T) {
	p := ProfileFor(Role("bogus"))
	assert.Equal(t, RoleBackend, p.Role)
}
