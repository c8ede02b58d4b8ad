package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/swarmforge/swarmctl/bus"
)

// proactiveStandardInterval and proactiveHighFrequencyInterval are the two
// cadences spec.md §4.4 names for proactive analysis.
const (
	proactiveStandardInterval      = 300 * time.Second
	proactiveHighFrequencyInterval = 60 * time.Second
)

// runProactiveLoop runs the proactive analyzer every interval until ctx is
// cancelled, emitting TaskGenerated messages for any objective that looks
// stalled. Per spec.md §5, this is an independent cooperative task that
// suspends only at its ticker and at bus sends.
func (o *Orchestrator) runProactiveLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.runProactiveAnalysis(ctx)
		}
	}
}

// runProactiveAnalysis inspects registered objectives/milestones against
// the current pending-task set and review history, and may emit a
// TaskGenerated message suggesting new work. This is deliberately
// conservative: it only fires when an objective has no corresponding
// pending or recently-reviewed task, avoiding runaway task generation.
func (o *Orchestrator) runProactiveAnalysis(ctx context.Context) {
	o.mu.RLock()
	objectives := make([]Objective, 0, len(o.objectives))
	for _, obj := range o.objectives {
		objectives = append(objectives, obj)
	}
	b := o.bus
	o.mu.RUnlock()

	if b == nil || len(objectives) == 0 {
		return
	}

	pending := o.state.Pending()
	history := o.state.AllReviewHistory()

	for _, obj := range objectives {
		if objectiveHasActivity(obj, pending, history) {
			continue
		}
		_ = b.Send(ctx, bus.Message{
			Kind: bus.KindTaskGenerated,
			TaskGenerated: &bus.TaskGenerated{
				TaskID:      fmt.Sprintf("proactive-%s-%d", obj.ID, time.Now().UnixNano()),
				Description: fmt.Sprintf("Advance objective: %s", obj.Title),
				Reasoning:   "no pending or reviewed task found for this objective",
			},
		})
	}
}

// objectiveHasActivity reports whether any pending task carries obj's id as
// its orchestration_context objective_id, or any review-history entry is
// keyed by obj's id. Titles are not compared.
func objectiveHasActivity(obj Objective, pending []Task, history map[string][]ReviewHistoryEntry) bool {
	for _, t := range pending {
		if t.Metadata != nil {
			if ctx, ok := t.Metadata["orchestration_context"].(map[string]interface{}); ok {
				if ctx["objective_id"] == obj.ID {
					return true
				}
			}
		}
	}
	for taskID := range history {
		if taskID == obj.ID {
			return true
		}
	}
	return false
}
