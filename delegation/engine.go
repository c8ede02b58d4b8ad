// Package delegation is spec.md §4.6's delegation engine: a pure selection
// library usable both inside the orchestrator and standalone. Grounded on
// gomind's orchestration/capability_provider.go and
// tiered_capability_provider.go scoring-by-strategy idiom, re-targeted from
// tool-capability matching to agent-role matching. Like its teachers, it
// hand-rolls weighted scoring rather than reaching for a rules-engine
// library — none of the pack repos do that for this kind of decision.
package delegation

import (
	"sort"
	"strings"

	"github.com/swarmforge/swarmctl/identity"
)

// Strategy selects which scoring function Decide uses.
type Strategy string

const (
	StrategyContentBased  Strategy = "ContentBased"
	StrategyLoadBalanced  Strategy = "LoadBalanced"
	StrategyExpertiseBased Strategy = "ExpertiseBased"
	StrategyWorkflowBased Strategy = "WorkflowBased"
	StrategyHybrid        Strategy = "Hybrid"
)

// hybridWeights are the fixed weights spec.md §4.6 assigns to each
// component strategy inside Hybrid, in ContentBased/LoadBalanced/
// ExpertiseBased/WorkflowBased order.
const (
	weightContentBased   = 0.3
	weightLoadBalanced   = 0.2
	weightExpertiseBased = 0.3
	weightWorkflowBased  = 0.2
)

// DecisionTask is the minimal task shape Decide needs: just enough to score
// candidates without importing orchestrator.Task and risking a cycle.
type DecisionTask struct {
	Kind        string
	Description string
}

// CandidateState is one agent's current load/history snapshot, supplied by
// the caller for a given decision (the engine itself never looks anything
// up — it is pure with respect to its inputs).
type CandidateState struct {
	AgentID     string
	Role        identity.Role
	QueueDepth  int     // pending tasks currently routed to this role
	SuccessRate float64 // [0,1], this role's historical success rate
}

// Decision is spec.md §4.6's DelegationDecision.
type Decision struct {
	TargetAgent      string
	Confidence       float64
	Reasoning        string
	EstimatedSeconds float64 // 0 means "no estimate"
}

// workflowRoutingTable maps a task kind directly to the role best suited to
// it, independent of description keywords; used by WorkflowBased.
var workflowRoutingTable = map[string]identity.Role{
	"Infrastructure": identity.RoleDevOps,
	"Testing":        identity.RoleQA,
	"Research":       identity.RoleSearch,
	"Documentation":  identity.RoleBackend,
	"Review":         identity.RoleMaster,
}

// Decide scores every candidate under strategy and returns the best-scoring
// one. It never blocks on IO and never mutates candidates; it is
// deterministic for a given (task, candidates, strategy) triple.
func Decide(task DecisionTask, candidates []CandidateState, strategy Strategy) (Decision, bool) {
	if len(candidates) == 0 {
		return Decision{}, false
	}

	scored := make([]scoredCandidate, 0, len(candidates))
	for _, c := range candidates {
		scored = append(scored, scoredCandidate{
			state: c,
			score: scoreFor(task, c, strategy),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	best := scored[0]
	return Decision{
		TargetAgent: best.state.AgentID,
		Confidence:  clamp01(best.score),
		Reasoning:   reasoningFor(strategy, task, best.state),
	}, true
}

type scoredCandidate struct {
	state CandidateState
	score float64
}

func scoreFor(task DecisionTask, c CandidateState, strategy Strategy) float64 {
	switch strategy {
	case StrategyContentBased:
		return contentBasedScore(task, c)
	case StrategyLoadBalanced:
		return loadBalancedScore(c)
	case StrategyExpertiseBased:
		return expertiseBasedScore(c)
	case StrategyWorkflowBased:
		return workflowBasedScore(task, c)
	case StrategyHybrid:
		return weightContentBased*contentBasedScore(task, c) +
			weightLoadBalanced*loadBalancedScore(c) +
			weightExpertiseBased*expertiseBasedScore(c) +
			weightWorkflowBased*workflowBasedScore(task, c)
	default:
		return weightContentBased*contentBasedScore(task, c) +
			weightLoadBalanced*loadBalancedScore(c) +
			weightExpertiseBased*expertiseBasedScore(c) +
			weightWorkflowBased*workflowBasedScore(task, c)
	}
}

// contentBasedScore matches task description keywords against the
// candidate role's technology/responsibility vocabulary.
func contentBasedScore(task DecisionTask, c CandidateState) float64 {
	profile := identity.ProfileFor(c.Role)
	lower := strings.ToLower(task.Description)

	vocab := make([]string, 0, len(profile.Technologies)+len(profile.Responsibilities))
	vocab = append(vocab, profile.Technologies...)
	vocab = append(vocab, profile.Responsibilities...)

	hits := 0
	for _, word := range vocab {
		if strings.Contains(lower, strings.ToLower(word)) {
			hits++
		}
	}
	if len(vocab) == 0 {
		return 0
	}
	return float64(hits) / float64(len(vocab))
}

// loadBalancedScore favors the least-loaded role: lower queue depth, higher
// score. A role with zero pending tasks scores 1.0.
func loadBalancedScore(c CandidateState) float64 {
	if c.QueueDepth <= 0 {
		return 1.0
	}
	return 1.0 / (1.0 + float64(c.QueueDepth))
}

// expertiseBasedScore rewards a role's historical success rate directly.
func expertiseBasedScore(c CandidateState) float64 {
	return clamp01(c.SuccessRate)
}

// workflowBasedScore gives a full score when the candidate's role matches
// the routing table's entry for the task's kind, falling back to the same
// keyword heuristic the orchestrator's dispatch uses otherwise.
func workflowBasedScore(task DecisionTask, c CandidateState) float64 {
	if role, ok := workflowRoutingTable[task.Kind]; ok {
		if c.Role == role {
			return 1.0
		}
		return 0.0
	}
	if identity.RoleForTask(task.Kind, task.Description) == c.Role {
		return 1.0
	}
	return 0.0
}

func reasoningFor(strategy Strategy, task DecisionTask, c CandidateState) string {
	switch strategy {
	case StrategyContentBased:
		return "description keywords matched " + string(c.Role) + "'s vocabulary"
	case StrategyLoadBalanced:
		return string(c.Role) + " had the lowest queue depth"
	case StrategyExpertiseBased:
		return string(c.Role) + " has the strongest historical success rate"
	case StrategyWorkflowBased:
		return "task kind " + task.Kind + " routes to " + string(c.Role)
	default:
		return "highest weighted score across content, load, expertise, and workflow signals"
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
