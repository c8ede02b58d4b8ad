package swarmconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadJSONParsesDocumentAndAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.json", `{
		"project": {
			"name": "swarmctl-demo",
			"repository": {"url": "https://example.com/repo.git"}
		},
		"agents": {
			"backend-1": {
				"specialization": "Backend",
				"worktree_path": "agents/backend-1",
				"branch": "agent/backend-1",
				"llm": {"model": "claude-sonnet"}
			}
		},
		"coordination": {
			"communication_method": "bus"
		}
	}`)

	doc, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "swarmctl-demo", doc.Project.Name)
	assert.Equal(t, "main", doc.Project.Repository.MainBranch, "unset field should fall back to its default tag")
	assert.Equal(t, 0.8, doc.Project.Master.QualityThreshold)
	assert.Equal(t, 30, doc.Coordination.SyncIntervalSeconds)

	agent, ok := doc.Agents["backend-1"]
	require.True(t, ok)
	assert.Equal(t, "claude-sonnet", agent.LLM.Model)
	assert.Equal(t, 4096, agent.LLM.MaxTokens)
}

func TestLoadYAMLParsesEquivalentDocument(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
project:
  name: swarmctl-demo
  repository:
    url: https://example.com/repo.git
agents:
  backend-1:
    specialization: Backend
    llm:
      model: claude-sonnet
coordination:
  communication_method: bus
`)

	doc, err := LoadYAML(path)
	require.NoError(t, err)
	assert.Equal(t, "swarmctl-demo", doc.Project.Name)
	assert.Equal(t, "main", doc.Project.Repository.MainBranch)
	assert.Equal(t, "claude-sonnet", doc.Agents["backend-1"].LLM.Model)
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.json"))
	assert.Error(t, err)
}

func TestLoadInvalidJSONReturnsError(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bad.json", `{not valid json`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvVariableOverridesDefaultForQualityThreshold(t *testing.T) {
	t.Setenv("SWARM_QUALITY_THRESHOLD", "0.95")
	dir := t.TempDir()
	path := writeFile(t, dir, "config.json", `{"project": {"name": "p"}, "agents": {}, "coordination": {}}`)

	doc, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.95, doc.Project.Master.QualityThreshold)
}
