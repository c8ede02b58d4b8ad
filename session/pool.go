package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/swarmforge/swarmctl/core"
	"github.com/swarmforge/swarmctl/identity"
	"github.com/swarmforge/swarmctl/llm"
)

// WarmupMode controls whether a role's minimum sessions are created eagerly
// at pool startup or on first demand.
type WarmupMode string

const (
	WarmupLazy       WarmupMode = "lazy"
	WarmupEager      WarmupMode = "eager"
	WarmupPredictive WarmupMode = "predictive" // reserved; behaves like Lazy
)

// creationTimeout bounds how long get_optimal_session waits for the
// creation semaphore before failing with ErrSessionTimeout, per spec.md
// §4.3's failure semantics.
const creationTimeout = 30 * time.Second

// Stats accumulates a PooledSession's usage counters.
type Stats struct {
	TotalCount    int
	SuccessCount  int
	FailCount     int
	TotalExecMS   float64
	CurrentLoad   float64
	PeakLoad      float64
	inFlight      int
}

func (s Stats) meanExecMS() float64 {
	if s.TotalCount == 0 {
		return 0
	}
	return s.TotalExecMS / float64(s.TotalCount)
}

func (s Stats) successRate() float64 {
	if s.TotalCount == 0 {
		return 1
	}
	return float64(s.SuccessCount) / float64(s.TotalCount)
}

// PooledSession is a Session plus the pool bookkeeping spec.md §3 names:
// pool id, role, creation time, pool generation, priority score,
// concurrency cap, and usage stats.
type PooledSession struct {
	*Session

	PoolID          string
	Role            identity.Role
	Generation      int
	PriorityScore   float64
	ConcurrencyCap  int
	Stats           Stats
}

func (p *PooledSession) currentLoad() float64 {
	if p.ConcurrencyCap <= 0 {
		return 0
	}
	return float64(p.Stats.inFlight) / float64(p.ConcurrencyCap)
}

// ScalingConfig holds the thresholds and cooldowns governing when the pool
// creates or retires sessions for a role.
type ScalingConfig struct {
	MinSessionsPerRole int
	MaxSessionsPerRole int
	ScaleUpThreshold   float64 // default 0.8
	ScaleDownThreshold float64 // default 0.3
	ScaleUpCooldown    time.Duration
	ScaleDownCooldown  time.Duration
	TargetUtilization  float64 // 0.6, informational
}

// DefaultScalingConfig returns spec.md §4.3's defaults.
func DefaultScalingConfig() ScalingConfig {
	return ScalingConfig{
		MinSessionsPerRole: 1,
		MaxSessionsPerRole: 5,
		ScaleUpThreshold:   0.8,
		ScaleDownThreshold: 0.3,
		ScaleUpCooldown:    1 * time.Minute,
		ScaleDownCooldown:  2 * time.Minute,
		TargetUtilization:  0.6,
	}
}

// LifecycleConfig controls idle and max-age cleanup.
type LifecycleConfig struct {
	IdleTimeout         time.Duration // default 5m
	MaxSessionLifetime  time.Duration // default 1h
	HealthCheckInterval time.Duration // default 30s
}

func DefaultLifecycleConfig() LifecycleConfig {
	return LifecycleConfig{
		IdleTimeout:         5 * time.Minute,
		MaxSessionLifetime:  1 * time.Hour,
		HealthCheckInterval: 30 * time.Second,
	}
}

// Pool multiplexes sessions by role, per spec.md §4.3's SessionPool.
type Pool struct {
	mu sync.Mutex

	byRole    map[identity.Role][]*PooledSession
	rrIndex   map[identity.Role]int
	scaleUpAt map[identity.Role]time.Time
	scaleDnAt map[identity.Role]time.Time

	strategy  SelectionStrategy
	scaling   ScalingConfig
	lifecycle LifecycleConfig
	warmup    WarmupMode
	model     ModelConfig
	client    llm.Client
	logger    core.Logger
	historyCap int

	creationSem *semaphore.Weighted
	generation  int
	nextID      int
}

// NewPool builds a pool backed by client using model, governed by scaling
// and lifecycle config.
func NewPool(strategy SelectionStrategy, scaling ScalingConfig, lifecycle LifecycleConfig, warmup WarmupMode, model ModelConfig, client llm.Client, logger core.Logger) *Pool {
	if logger == nil {
		logger = core.NoOpLogger{}
	}
	return &Pool{
		byRole:      make(map[identity.Role][]*PooledSession),
		rrIndex:     make(map[identity.Role]int),
		scaleUpAt:   make(map[identity.Role]time.Time),
		scaleDnAt:   make(map[identity.Role]time.Time),
		strategy:    strategy,
		scaling:     scaling,
		lifecycle:   lifecycle,
		warmup:      warmup,
		model:       model,
		client:      client,
		logger:      logger,
		historyCap:  DefaultHistoryCap,
		creationSem: semaphore.NewWeighted(int64(scaling.MaxSessionsPerRole) * 8),
	}
}

// Warmup pre-creates MinSessionsPerRole sessions for each of roles when the
// pool's warmup mode is Eager. Lazy and Predictive are no-ops here.
func (p *Pool) Warmup(ctx context.Context, roles []identity.Role) error {
	if p.warmup != WarmupEager {
		return nil
	}
	for _, role := range roles {
		for i := 0; i < p.scaling.MinSessionsPerRole; i++ {
			if _, err := p.createSession(ctx, role); err != nil {
				return fmt.Errorf("session: warmup role %s: %w", role, err)
			}
		}
	}
	return nil
}

// GetOptimalSession returns a session for role, selected by the pool's
// configured strategy, scaling up first if under the min and load
// warrants it. Waits on the creation semaphore up to 30s if a new session
// must be created under contention.
func (p *Pool) GetOptimalSession(ctx context.Context, role identity.Role) (*PooledSession, error) {
	p.mu.Lock()
	existing := p.byRole[role]
	idx := p.rrIndex[role]
	p.mu.Unlock()

	if len(existing) < p.scaling.MinSessionsPerRole {
		sess, err := p.createSession(ctx, role)
		if err != nil {
			return nil, err
		}
		return sess, nil
	}

	p.maybeScaleUp(ctx, role)

	p.mu.Lock()
	existing = p.byRole[role]
	candidates := make([]candidate, len(existing))
	for i, s := range existing {
		candidates[i] = candidate{
			ID:              s.PoolID,
			CurrentLoad:     s.currentLoad(),
			SuccessRate:     s.Stats.successRate(),
			MeanExecutionMS: s.Stats.meanExecMS(),
		}
	}
	p.rrIndex[role] = idx + 1
	p.mu.Unlock()

	picked, ok := selectFor(p.strategy, candidates, idx)
	if !ok {
		return nil, fmt.Errorf("session: %w: no sessions for role %s", core.ErrSessionTimeout, role)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, s := range p.byRole[role] {
		if s.PoolID == picked.ID {
			return s, nil
		}
	}
	return nil, fmt.Errorf("session: %w: selected session vanished", core.ErrSessionTimeout)
}

// createSession allocates a new PooledSession for role, bounded by the
// creation semaphore and a 30s timeout, and bounded above by
// MaxSessionsPerRole.
func (p *Pool) createSession(ctx context.Context, role identity.Role) (*PooledSession, error) {
	p.mu.Lock()
	if len(p.byRole[role]) >= p.scaling.MaxSessionsPerRole {
		p.mu.Unlock()
		return nil, fmt.Errorf("session: role %s at max sessions", role)
	}
	p.mu.Unlock()

	sctx, cancel := context.WithTimeout(ctx, creationTimeout)
	defer cancel()
	if err := p.creationSem.Acquire(sctx, 1); err != nil {
		return nil, fmt.Errorf("session: %w: acquiring creation slot for role %s", core.ErrSessionTimeout, role)
	}
	defer p.creationSem.Release(1)

	p.mu.Lock()
	p.nextID++
	poolID := fmt.Sprintf("pool-%s-%d", role, p.nextID)
	p.generation++
	gen := p.generation
	p.mu.Unlock()

	agentIdentity := identity.New(poolID, role, "", nil)
	underlying := New(poolID, agentIdentity, "", p.model, p.client, p.historyCap, p.logger)

	pooled := &PooledSession{
		Session:        underlying,
		PoolID:         poolID,
		Role:           role,
		Generation:     gen,
		ConcurrencyCap: 4,
	}

	p.mu.Lock()
	p.byRole[role] = append(p.byRole[role], pooled)
	p.mu.Unlock()

	p.logger.Info("session created", map[string]interface{}{"pool_id": poolID, "role": string(role)})
	return pooled, nil
}

// maybeScaleUp creates an additional session for role if average load
// exceeds ScaleUpThreshold, the role is below its max, and the cooldown has
// elapsed. Errors are logged and swallowed: scaling is opportunistic, never
// a precondition for GetOptimalSession's own fallback selection.
func (p *Pool) maybeScaleUp(ctx context.Context, role identity.Role) {
	p.mu.Lock()
	sessions := p.byRole[role]
	if len(sessions) == 0 || len(sessions) >= p.scaling.MaxSessionsPerRole {
		p.mu.Unlock()
		return
	}
	var total float64
	for _, s := range sessions {
		total += s.currentLoad()
	}
	avg := total / float64(len(sessions))
	lastScale := p.scaleUpAt[role]
	p.mu.Unlock()

	if avg <= p.scaling.ScaleUpThreshold {
		return
	}
	if time.Since(lastScale) < p.scaling.ScaleUpCooldown {
		return
	}

	if _, err := p.createSession(ctx, role); err != nil {
		p.logger.Warn("scale-up failed", map[string]interface{}{"role": string(role), "error": err.Error()})
		return
	}
	p.mu.Lock()
	p.scaleUpAt[role] = time.Now()
	p.mu.Unlock()
}

// MaybeScaleDown retires the least-recently-used session for role if
// average load is below ScaleDownThreshold, MinSessionsPerRole is already
// met, and the cooldown has elapsed. Intended to be called by a periodic
// pool-scaling task.
func (p *Pool) MaybeScaleDown(ctx context.Context, role identity.Role) error {
	p.mu.Lock()
	sessions := p.byRole[role]
	if len(sessions) <= p.scaling.MinSessionsPerRole {
		p.mu.Unlock()
		return nil
	}
	var total float64
	for _, s := range sessions {
		total += s.currentLoad()
	}
	avg := total / float64(len(sessions))
	lastScale := p.scaleDnAt[role]
	p.mu.Unlock()

	if avg >= p.scaling.ScaleDownThreshold {
		return nil
	}
	if time.Since(lastScale) < p.scaling.ScaleDownCooldown {
		return nil
	}

	p.mu.Lock()
	sessions = p.byRole[role]
	if len(sessions) <= p.scaling.MinSessionsPerRole {
		p.mu.Unlock()
		return nil
	}
	lru := sessions[0]
	for _, s := range sessions[1:] {
		if s.LastActivity().Before(lru.LastActivity()) {
			lru = s
		}
	}
	p.mu.Unlock()

	if err := lru.Close(ctx); err != nil {
		return fmt.Errorf("session: close lru session: %w", err)
	}

	p.mu.Lock()
	p.removeLocked(role, lru.PoolID)
	p.scaleDnAt[role] = time.Now()
	p.mu.Unlock()
	return nil
}

// CleanupIdle closes and removes every session idle beyond IdleTimeout or
// older than MaxSessionLifetime, across all roles. Intended to be called by
// a periodic session-cleanup task.
func (p *Pool) CleanupIdle(ctx context.Context) error {
	now := time.Now()

	p.mu.Lock()
	var toClose []*PooledSession
	for _, sessions := range p.byRole {
		for _, s := range sessions {
			idle := now.Sub(s.LastActivity())
			age := now.Sub(s.CreatedAt())
			if idle > p.lifecycle.IdleTimeout || age > p.lifecycle.MaxSessionLifetime {
				toClose = append(toClose, s)
			}
		}
	}
	p.mu.Unlock()

	for _, s := range toClose {
		if err := s.Close(ctx); err != nil {
			return fmt.Errorf("session: cleanup close %s: %w", s.PoolID, err)
		}
		p.mu.Lock()
		p.removeLocked(s.Role, s.PoolID)
		p.mu.Unlock()
	}
	return nil
}

// removeLocked deletes poolID from role's slice. Caller must hold p.mu.
func (p *Pool) removeLocked(role identity.Role, poolID string) {
	sessions := p.byRole[role]
	for i, s := range sessions {
		if s.PoolID == poolID {
			p.byRole[role] = append(sessions[:i], sessions[i+1:]...)
			return
		}
	}
}

// RecordExecution updates a PooledSession's usage stats after a task
// completes, for the adaptive strategy and scaling decisions to consult.
func (p *Pool) RecordExecution(poolID string, role identity.Role, success bool, elapsed time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, s := range p.byRole[role] {
		if s.PoolID != poolID {
			continue
		}
		s.Stats.TotalCount++
		if success {
			s.Stats.SuccessCount++
		} else {
			s.Stats.FailCount++
		}
		s.Stats.TotalExecMS += float64(elapsed.Milliseconds())
		load := s.currentLoad()
		if load > s.Stats.PeakLoad {
			s.Stats.PeakLoad = load
		}
		return
	}
}

// Size returns the total number of sessions across all roles.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	total := 0
	for _, sessions := range p.byRole {
		total += len(sessions)
	}
	return total
}

// SizeForRole returns the number of sessions currently held for role.
func (p *Pool) SizeForRole(role identity.Role) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.byRole[role])
}

// Shutdown closes every session in the pool.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	var all []*PooledSession
	for _, sessions := range p.byRole {
		all = append(all, sessions...)
	}
	p.byRole = make(map[identity.Role][]*PooledSession)
	p.mu.Unlock()

	for _, s := range all {
		if err := s.Close(ctx); err != nil {
			return fmt.Errorf("session: shutdown close %s: %w", s.PoolID, err)
		}
	}
	return nil
}
