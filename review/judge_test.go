package review

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swarmforge/swarmctl/llm"
)

func TestLLMJudgeEvaluateParsesWellFormedJSON(t *testing.T) {
	client := llm.NewMockClient(`{"overall_score": 0.92, "pass_flag": true, "confidence": 0.8, "feedback": "looks solid", "issues": []}`)
	judge := NewLLMJudge(client, "claude-sonnet", 0, nil)

	eval, err := judge.Evaluate(context.Background(), TaskSnapshot{TaskID: "t1", Description: "implement feature"})
	require.NoError(t, err)
	assert.True(t, eval.PassFlag)
	assert.InDelta(t, 0.92, eval.OverallScore, 0.001)
	assert.Empty(t, eval.Issues)
}

func TestLLMJudgeEvaluateParsesIssuesAndTolerartesSurroundingProse(t *testing.T) {
	client := llm.NewMockClient("Here is my assessment:\n" +
		`{"overall_score": 0.4, "pass_flag": false, "confidence": 0.7, "feedback": "needs work",` +
		` "issues": [{"severity": "High", "category": "TestCoverage", "description": "auth.go uncovered", "fix_effort_minutes": 30}]}` +
		"\nLet me know if you have questions.")
	judge := NewLLMJudge(client, "claude-sonnet", 0, nil)

	eval, err := judge.Evaluate(context.Background(), TaskSnapshot{TaskID: "t1"})
	require.NoError(t, err)
	assert.False(t, eval.PassFlag)
	require.Len(t, eval.Issues, 1)
	assert.Equal(t, CategoryTestCoverage, eval.Issues[0].Category)
	assert.Equal(t, "auth.go uncovered", eval.Issues[0].Description)
}

func TestLLMJudgeEvaluateReturnsErrorOnUnparsableReply(t *testing.T) {
	client := llm.NewMockClient("I cannot evaluate this.")
	judge := NewLLMJudge(client, "claude-sonnet", 0, nil)

	_, err := judge.Evaluate(context.Background(), TaskSnapshot{TaskID: "t1"})
	assert.Error(t, err)
}

func TestLLMJudgeEvaluatePropagatesTransportError(t *testing.T) {
	client := llm.NewMockClient()
	client.Err = errors.New("mock transport failure")
	judge := NewLLMJudge(client, "claude-sonnet", 0, nil)

	_, err := judge.Evaluate(context.Background(), TaskSnapshot{TaskID: "t1"})
	assert.Error(t, err)
}
