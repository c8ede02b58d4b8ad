package review

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/swarmforge/swarmctl/core"
	"github.com/swarmforge/swarmctl/llm"
)

// LLMJudge implements Judge by asking an llm.Client to score a completed
// task, per spec.md §4.5's `evaluate(task, result, role, workspace_path) ->
// QualityEvaluation` contract. The model is instructed to reply with a JSON
// object matching Evaluation's shape; a reply that doesn't parse is treated
// as a transport error so the sweep leaves the task eligible for retry.
type LLMJudge struct {
	client    llm.Client
	model     string
	maxTokens int
	logger    core.Logger
}

// NewLLMJudge builds a judge that calls client with model for every
// evaluation.
func NewLLMJudge(client llm.Client, model string, maxTokens int, logger core.Logger) *LLMJudge {
	if logger == nil {
		logger = core.NoOpLogger{}
	}
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &LLMJudge{client: client, model: model, maxTokens: maxTokens, logger: logger}
}

const judgeSystemPrompt = `You are a strict code-quality reviewer for an autonomous coding agent swarm.
Given a task description, its role, its workspace path, and the output the agent produced, respond with
a single JSON object and nothing else, matching this shape:
{"overall_score": <0.0-1.0>, "pass_flag": <bool>, "confidence": <0.0-1.0>, "feedback": "<string>",
 "issues": [{"severity": "Low|Medium|High|Critical", "category": "TestCoverage|CodeComplexity|Security|Documentation|ErrorHandling|BestPractices",
 "description": "<string>", "suggested_fix": "<string>", "affected_areas": ["<string>"], "fix_effort_minutes": <int>}]}
Omit "issues" or leave it empty when the work is satisfactory.`

// Evaluate implements Judge.
func (j *LLMJudge) Evaluate(ctx context.Context, task TaskSnapshot) (Evaluation, error) {
	prompt := fmt.Sprintf(
		"Task: %s\nRole: %s\nWorkspace: %s\nOutput:\n%s",
		task.Description, task.Role, task.WorkspacePath, task.Output,
	)

	resp, err := j.client.Complete(ctx, j.model, []llm.Message{{Role: "user", Content: prompt}}, judgeSystemPrompt, j.maxTokens)
	if err != nil {
		return Evaluation{}, fmt.Errorf("review: judge transport: %w", err)
	}

	eval, err := parseEvaluation(resp.Content)
	if err != nil {
		return Evaluation{}, fmt.Errorf("review: judge reply: %w", err)
	}
	return eval, nil
}

// jsonEvaluation mirrors Evaluation's shape for unmarshalling the judge's
// JSON reply, including its nested issues.
type jsonEvaluation struct {
	OverallScore float64 `json:"overall_score"`
	PassFlag     bool    `json:"pass_flag"`
	Confidence   float64 `json:"confidence"`
	Feedback     string  `json:"feedback"`
	Issues       []struct {
		Severity         string   `json:"severity"`
		Category         string   `json:"category"`
		Description      string   `json:"description"`
		SuggestedFix     string   `json:"suggested_fix"`
		AffectedAreas    []string `json:"affected_areas"`
		FixEffortMinutes int      `json:"fix_effort_minutes"`
	} `json:"issues"`
}

// parseEvaluation extracts the JSON object from raw (tolerating leading or
// trailing prose some models add despite instructions) and converts it into
// an Evaluation.
func parseEvaluation(raw string) (Evaluation, error) {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start < 0 || end < start {
		return Evaluation{}, fmt.Errorf("no JSON object found in judge reply")
	}

	var parsed jsonEvaluation
	if err := json.Unmarshal([]byte(raw[start:end+1]), &parsed); err != nil {
		return Evaluation{}, fmt.Errorf("unmarshal: %w", err)
	}

	issues := make([]QualityIssue, len(parsed.Issues))
	for i, iss := range parsed.Issues {
		issues[i] = QualityIssue{
			Severity:         Severity(iss.Severity),
			Category:         Category(iss.Category),
			Description:      iss.Description,
			SuggestedFix:     iss.SuggestedFix,
			AffectedAreas:    iss.AffectedAreas,
			FixEffortMinutes: iss.FixEffortMinutes,
		}
	}

	return Evaluation{
		OverallScore: parsed.OverallScore,
		PassFlag:     parsed.PassFlag,
		Confidence:   parsed.Confidence,
		Feedback:     parsed.Feedback,
		Issues:       issues,
	}, nil
}
