// Command swarmd wires the orchestrator, session pool, review loop, and
// agent workers into a single running swarm. CLI/TUI front-ends are
// explicitly out of scope (spec.md §1), so this is a minimal local-dev
// entrypoint, not a cobra/pflag command — it reads one config document path
// from the environment and runs until interrupted.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/swarmforge/swarmctl/agentrt"
	"github.com/swarmforge/swarmctl/bus"
	"github.com/swarmforge/swarmctl/core"
	"github.com/swarmforge/swarmctl/identity"
	"github.com/swarmforge/swarmctl/llm"
	"github.com/swarmforge/swarmctl/orchestrator"
	"github.com/swarmforge/swarmctl/resilience"
	"github.com/swarmforge/swarmctl/review"
	"github.com/swarmforge/swarmctl/session"
	"github.com/swarmforge/swarmctl/swarmconfig"
	"github.com/swarmforge/swarmctl/workspace"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "swarmd:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := os.Getenv("SWARMD_CONFIG")
	if configPath == "" {
		configPath = "swarmd.json"
	}

	doc, err := swarmconfig.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logging := core.LoggingConfig{}
	if err := core.ApplyEnvDefaults(&logging); err != nil {
		return fmt.Errorf("apply logging defaults: %w", err)
	}
	dev := core.DevelopmentConfig{}
	if err := core.ApplyEnvDefaults(&dev); err != nil {
		return fmt.Errorf("apply development defaults: %w", err)
	}
	logger := core.NewProductionLogger(logging, dev, doc.Project.Name)

	telemetry, err := core.NewOTelProvider(doc.Project.Name)
	if err != nil {
		return fmt.Errorf("start telemetry: %w", err)
	}

	client, err := buildLLMClient(dev)
	if err != nil {
		return fmt.Errorf("build llm client: %w", err)
	}

	b := bus.NewInMemoryBus(1000)

	worktreesDir := doc.Project.Name + "/.worktrees"
	workspaceMgr := workspace.NewGitWorktreeManager(".", worktreesDir, logger)

	quality := orchestrator.QualityStandards{MinTestCoverage: doc.Project.Master.QualityThreshold * 100}
	orch := orchestrator.New("master", quality, b, workspaceMgr, logger)

	judge := review.NewLLMJudge(client, "claude-sonnet-4", 1024, logger)
	reviewLoop := review.NewLoop(orch, judge, logger)
	orch.SetReviewRunner(reviewLoop)

	pool := session.NewPool(
		session.StrategyAdaptive,
		session.DefaultScalingConfig(),
		session.DefaultLifecycleConfig(),
		session.WarmupLazy,
		session.ModelConfig{Model: "claude-sonnet-4", MaxTokens: 4096, Temperature: 0.2},
		client,
		logger,
	)

	for name, agentCfg := range doc.Agents {
		role := identity.RoleForTask(agentCfg.Specialization, agentCfg.Specialization)
		id := identity.New(name, role, agentCfg.WorktreePath, nil)

		pooled, err := pool.GetOptimalSession(context.Background(), role)
		if err != nil {
			logger.Error("failed to allocate session for agent", map[string]interface{}{"agent_id": name, "error": err.Error()})
			continue
		}

		worker := agentrt.NewWorker(id, workspaceMgr, pooled.Session, logger)
		if err := worker.Initialize(context.Background()); err != nil {
			logger.Error("failed to initialize agent", map[string]interface{}{"agent_id": name, "error": err.Error()})
			continue
		}
		orch.RegisterAgent(name, worker)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutdown signal received", nil)
		_ = orch.Shutdown(ctx)
		cancel()
	}()

	var sessionIndex *session.RedisSessionIndex
	if redisURL := os.Getenv("SWARM_REDIS_URL"); redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			return fmt.Errorf("parse SWARM_REDIS_URL: %w", err)
		}
		sessionIndex = session.NewRedisSessionIndex(redis.NewClient(opts), doc.Project.Name, uuid.NewString())
	}

	go runPoolMaintenance(ctx, pool, sessionIndex, logger)

	logger.Info("swarm starting", map[string]interface{}{"project": doc.Project.Name, "agents": len(doc.Agents)})
	if err := orch.StartCoordination(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("coordination loop: %w", err)
	}

	_ = pool.Shutdown(context.Background())
	return telemetry.Shutdown(context.Background())
}

// buildLLMClient wires the anthropic provider behind a circuit breaker,
// falling back to the deterministic mock client when Development.MockAI is
// set or no API key is configured.
func buildLLMClient(dev core.DevelopmentConfig) (llm.Client, error) {
	if dev.MockAI {
		return llm.NewMockClient(), nil
	}

	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		return llm.NewMockClient(), nil
	}

	registry := llm.NewDefaultRegistry()
	provider, err := registry.Create("anthropic", llm.ProviderConfig{APIKey: apiKey}, nil, nil)
	if err != nil {
		return nil, err
	}

	breakerCfg := resilience.DefaultConfig("llm-anthropic")
	return llm.NewResilientClient(provider, breakerCfg)
}

var allRoles = []identity.Role{
	identity.RoleFrontend, identity.RoleBackend, identity.RoleDevOps, identity.RoleQA, identity.RoleSearch,
}

// runPoolMaintenance runs the pool's periodic idle-cleanup and scale-down
// passes, mirroring the orchestrator's own ticker-driven background loops.
// When a sessionIndex is configured (SWARM_REDIS_URL set), it also announces
// this process's per-role session counts so peer orchestrators sharing the
// same Redis can discover overall swarm capacity.
func runPoolMaintenance(ctx context.Context, pool *session.Pool, sessionIndex *session.RedisSessionIndex, logger core.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	if sessionIndex != nil {
		defer func() {
			for _, role := range allRoles {
				_ = sessionIndex.Withdraw(context.Background(), role)
			}
		}()
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := pool.CleanupIdle(ctx); err != nil {
				logger.Warn("pool cleanup failed", map[string]interface{}{"error": err.Error()})
			}
			for _, role := range allRoles {
				if err := pool.MaybeScaleDown(ctx, role); err != nil {
					logger.Warn("pool scale-down failed", map[string]interface{}{"role": string(role), "error": err.Error()})
				}
				if sessionIndex != nil {
					if err := sessionIndex.Announce(ctx, role, pool.SizeForRole(role), 90*time.Second); err != nil {
						logger.Warn("session index announce failed", map[string]interface{}{"role": string(role), "error": err.Error()})
					}
				}
			}
		}
	}
}
