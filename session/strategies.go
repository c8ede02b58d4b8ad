package session

import "math"

// SelectionStrategy names one of the pool's configurable session-selection
// algorithms, per spec.md §4.3.
type SelectionStrategy string

const (
	StrategyRoundRobin    SelectionStrategy = "round_robin"
	StrategyLeastLoaded   SelectionStrategy = "least_loaded"
	StrategyAdaptive      SelectionStrategy = "adaptive"
	StrategyWeightedRandom SelectionStrategy = "weighted_random"
)

// candidate is the subset of PooledSession stats a strategy needs to score
// or pick among sessions, decoupled from the concrete pool bookkeeping.
type candidate struct {
	ID                string
	CurrentLoad       float64 // fraction of concurrency cap in use, [0,1]
	SuccessRate       float64 // [0,1]
	MeanExecutionMS   float64
}

// selectRoundRobin returns the candidate at position idx%len(candidates).
func selectRoundRobin(candidates []candidate, idx int) (candidate, bool) {
	if len(candidates) == 0 {
		return candidate{}, false
	}
	return candidates[idx%len(candidates)], true
}

// selectLeastLoaded returns the candidate with the smallest CurrentLoad.
func selectLeastLoaded(candidates []candidate) (candidate, bool) {
	if len(candidates) == 0 {
		return candidate{}, false
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.CurrentLoad < best.CurrentLoad {
			best = c
		}
	}
	return best, true
}

// adaptiveScore computes spec.md §4.3's adaptive score:
// 0.4*(1-load) + 0.4*success_rate + 0.2*min(2, speed_factor), where
// speed_factor = 1000 / mean_execution_ms.
func adaptiveScore(c candidate) float64 {
	speedFactor := 2.0
	if c.MeanExecutionMS > 0 {
		speedFactor = math.Min(2.0, 1000.0/c.MeanExecutionMS)
	}
	return 0.4*(1-c.CurrentLoad) + 0.4*c.SuccessRate + 0.2*speedFactor
}

// selectAdaptive returns the candidate maximizing adaptiveScore.
func selectAdaptive(candidates []candidate) (candidate, bool) {
	if len(candidates) == 0 {
		return candidate{}, false
	}
	best := candidates[0]
	bestScore := adaptiveScore(best)
	for _, c := range candidates[1:] {
		if s := adaptiveScore(c); s > bestScore {
			best, bestScore = c, s
		}
	}
	return best, true
}

// selectWeightedRandom is reserved; it falls back to round-robin per
// spec.md §4.3.
func selectWeightedRandom(candidates []candidate, idx int) (candidate, bool) {
	return selectRoundRobin(candidates, idx)
}

// selectFor dispatches to the strategy named by s.
func selectFor(s SelectionStrategy, candidates []candidate, rrIdx int) (candidate, bool) {
	switch s {
	case StrategyLeastLoaded:
		return selectLeastLoaded(candidates)
	case StrategyAdaptive:
		return selectAdaptive(candidates)
	case StrategyWeightedRandom:
		return selectWeightedRandom(candidates, rrIdx)
	default:
		return selectRoundRobin(candidates, rrIdx)
	}
}
