// Package swarmconfig loads the single-JSON-document configuration spec.md
// §6 describes: project/agents/coordination sections, each addressable by
// the caller before wiring an Orchestrator and SessionPool. Grounded on
// core.ApplyEnvDefaults's env-tag convention for the scalar defaults, with a
// YAML alternate loader via gopkg.in/yaml.v3 for operators who prefer it —
// the same dependency gomind, ODSapper, tarsy, kubernaut, and goclaw all
// carry for config documents.
package swarmconfig

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/swarmforge/swarmctl/core"
)

// Repository names the git remote and default branch a project's agents
// work against.
type Repository struct {
	URL         string `json:"url" yaml:"url"`
	MainBranch  string `json:"main_branch" yaml:"main_branch" env:"SWARM_MAIN_BRANCH" default:"main"`
}

// MasterConfig configures the orchestrator's own behavior.
type MasterConfig struct {
	Role               string  `json:"role" yaml:"role" default:"Master"`
	QualityThreshold   float64 `json:"quality_threshold" yaml:"quality_threshold" env:"SWARM_QUALITY_THRESHOLD" default:"0.8"`
	ThinkMode          string  `json:"think_mode" yaml:"think_mode" default:"standard"`
	PermissionLevel    string  `json:"permission_level" yaml:"permission_level" default:"standard"`
	Proactive          bool    `json:"proactive" yaml:"proactive" env:"SWARM_PROACTIVE" default:"true"`
	ProactiveFrequency int     `json:"proactive_frequency" yaml:"proactive_frequency" default:"300"`
	HighFrequency      int     `json:"high_frequency" yaml:"high_frequency" default:"60"`
}

// ProjectConfig is the configuration document's project{} section.
type ProjectConfig struct {
	Name       string       `json:"name" yaml:"name"`
	Repository Repository   `json:"repository" yaml:"repository"`
	Master     MasterConfig `json:"master" yaml:"master"`
}

// LLMConfig is one agent's model configuration.
type LLMConfig struct {
	Model       string  `json:"model" yaml:"model"`
	MaxTokens   int     `json:"max_tokens" yaml:"max_tokens" default:"4096"`
	Temperature float64 `json:"temperature" yaml:"temperature" default:"0.2"`
}

// AgentConfig is one entry of the document's agents{} map.
type AgentConfig struct {
	Specialization string    `json:"specialization" yaml:"specialization"`
	WorktreePath   string    `json:"worktree_path" yaml:"worktree_path"`
	Branch         string    `json:"branch" yaml:"branch"`
	LLM            LLMConfig `json:"llm" yaml:"llm"`
	Template       string    `json:"template" yaml:"template"`
}

// CoordinationConfig is the document's coordination{} section.
type CoordinationConfig struct {
	CommunicationMethod  string `json:"communication_method" yaml:"communication_method" default:"bus"`
	SyncIntervalSeconds  int    `json:"sync_interval" yaml:"sync_interval" default:"30"`
	QualityGateFrequency int    `json:"quality_gate_frequency" yaml:"quality_gate_frequency" default:"30"`
	MasterReviewTrigger  string `json:"master_review_trigger" yaml:"master_review_trigger" default:"on_completion"`
}

// Document is the whole single-file configuration spec.md §6 names.
type Document struct {
	Project      ProjectConfig          `json:"project" yaml:"project"`
	Agents       map[string]AgentConfig `json:"agents" yaml:"agents"`
	Coordination CoordinationConfig     `json:"coordination" yaml:"coordination"`
}

// Load reads and parses a JSON configuration document from path, then, via
// core.ApplyEnvDefaults, overrides tagged scalar fields from any set
// environment variables and fills the remaining zero-valued ones from
// struct-tag defaults.
func Load(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("swarmconfig: read %s: %w", path, err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("swarmconfig: parse %s: %w", path, err)
	}
	if err := applyDefaults(&doc); err != nil {
		return Document{}, fmt.Errorf("swarmconfig: apply defaults: %w", err)
	}
	return doc, nil
}

// LoadYAML reads and parses a YAML configuration document, for operators
// who maintain one instead of JSON. Field shape is identical to Load.
func LoadYAML(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("swarmconfig: read %s: %w", path, err)
	}

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("swarmconfig: parse yaml %s: %w", path, err)
	}
	if err := applyDefaults(&doc); err != nil {
		return Document{}, fmt.Errorf("swarmconfig: apply defaults: %w", err)
	}
	return doc, nil
}

func applyDefaults(doc *Document) error {
	if err := core.ApplyEnvDefaults(&doc.Project.Repository); err != nil {
		return err
	}
	if err := core.ApplyEnvDefaults(&doc.Project.Master); err != nil {
		return err
	}
	if err := core.ApplyEnvDefaults(&doc.Coordination); err != nil {
		return err
	}
	for name, agent := range doc.Agents {
		if err := core.ApplyEnvDefaults(&agent.LLM); err != nil {
			return err
		}
		doc.Agents[name] = agent
	}
	return nil
}
