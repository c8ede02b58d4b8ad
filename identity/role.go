// Package identity models an agent's role and the identity it establishes
// with its bound LLM session: the tagged Role variant, the AgentIdentity
// struct that carries it, and the prompt templates used to fix (and later
// re-remind) a session of its boundaries. Grounded on gomind's ComponentType
// tagged-constant pattern (core/component.go) for the enum shape.
package identity

import "strings"

// Role is the tagged variant spec.md §3 names: Frontend, Backend, DevOps,
// QA, Search, Master. Each carries its own technology/responsibility/
// boundary lists, used both in prompt generation and in selection scoring.
type Role string

const (
	RoleFrontend Role = "Frontend"
	RoleBackend  Role = "Backend"
	RoleDevOps   Role = "DevOps"
	RoleQA       Role = "QA"
	RoleSearch   Role = "Search"
	RoleMaster   Role = "Master"
)

// Profile is the fixed descriptive data a Role carries — the vocabulary
// used both to write its identity prompt and to score it against a task
// during dispatch/delegation.
type Profile struct {
	Role             Role
	Technologies     []string
	Responsibilities []string
	Boundaries       []string
}

var profiles = map[Role]Profile{
	RoleFrontend: {
		Role:             RoleFrontend,
		Technologies:     []string{"React", "TypeScript", "CSS", "HTML", "Vite"},
		Responsibilities: []string{"UI components", "client-side state", "accessibility", "styling"},
		Boundaries:       []string{"does not modify backend API contracts", "does not touch database schema"},
	},
	RoleBackend: {
		Role:             RoleBackend,
		Technologies:     []string{"Go", "PostgreSQL", "Redis", "gRPC", "REST"},
		Responsibilities: []string{"API endpoints", "business logic", "data persistence", "integration"},
		Boundaries:       []string{"does not modify UI components", "does not own deployment pipelines"},
	},
	RoleDevOps: {
		Role:             RoleDevOps,
		Technologies:     []string{"Docker", "Kubernetes", "Terraform", "CI/CD"},
		Responsibilities: []string{"deployment pipelines", "infrastructure as code", "observability", "scaling"},
		Boundaries:       []string{"does not write application business logic", "does not design UI"},
	},
	RoleQA: {
		Role:             RoleQA,
		Technologies:     []string{"testing frameworks", "load testing tools", "linters"},
		Responsibilities: []string{"test coverage", "regression suites", "quality gates", "bug triage"},
		Boundaries:       []string{"does not implement features", "reports issues rather than silently patching them"},
	},
	RoleSearch: {
		Role:             RoleSearch,
		Technologies:     []string{"web search", "documentation lookup", "package registries"},
		Responsibilities: []string{"research", "best-practices lookup", "dependency/version research"},
		Boundaries:       []string{"does not modify code", "produces findings, not patches"},
	},
	RoleMaster: {
		Role:             RoleMaster,
		Technologies:     []string{"orchestration", "project planning"},
		Responsibilities: []string{"task delegation", "quality review", "escalation handling"},
		Boundaries:       []string{"delegates implementation rather than performing it directly"},
	},
}

// ProfileFor returns the fixed descriptive profile for role, falling back
// to the Backend profile for an unrecognized value so callers never need a
// nil check.
func ProfileFor(role Role) Profile {
	if p, ok := profiles[role]; ok {
		return p
	}
	return profiles[RoleBackend]
}

// researchSignals are the keywords spec.md §4.4's dispatch algorithm checks
// for before deciding whether to loop in the Search agent.
var researchSignals = []string{"research", "look up", "best practices", "investigate", "find out", "compare options"}

// HasResearchSignal reports whether description contains a research-signal
// keyword, case-insensitively.
func HasResearchSignal(description string) bool {
	lower := strings.ToLower(description)
	for _, signal := range researchSignals {
		if strings.Contains(lower, signal) {
			return true
		}
	}
	return false
}

// RoleForTask derives the role a task's description heuristically requires,
// per spec.md §4.4's "UI/component/frontend → Frontend; API/backend/
// database → Backend; Infrastructure → DevOps; Testing → QA; Research →
// Search; otherwise Backend" table. kind is checked first since it's an
// authoritative signal; description keywords are the fallback.
func RoleForTask(kind string, description string) Role {
	switch kind {
	case "Infrastructure":
		return RoleDevOps
	case "Testing":
		return RoleQA
	case "Research":
		return RoleSearch
	}

	lower := strings.ToLower(description)
	switch {
	case containsAny(lower, "ui", "component", "frontend", "react", "css", "html"):
		return RoleFrontend
	case containsAny(lower, "api", "backend", "database", "server", "schema"):
		return RoleBackend
	case containsAny(lower, "deploy", "infrastructure", "pipeline", "terraform", "kubernetes"):
		return RoleDevOps
	case containsAny(lower, "test", "coverage", "qa"):
		return RoleQA
	case containsAny(lower, "research", "investigate", "look up"):
		return RoleSearch
	default:
		return RoleBackend
	}
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
