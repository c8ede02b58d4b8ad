package llm

import (
	"fmt"
	"sort"
	"sync"

	"github.com/swarmforge/swarmctl/core"
)

// Factory builds a provider Client from config. Registered factories let
// swarmconfig name a provider by string ("anthropic", "anthropic-http",
// "openai", "mock") without this package importing the config layer.
type Factory func(cfg ProviderConfig, logger core.Logger, telemetry core.Telemetry) (Client, error)

// ProviderConfig carries the fields any registered factory might need;
// unused fields are simply ignored by a given provider.
type ProviderConfig struct {
	APIKey  string
	BaseURL string
}

// Registry is a name-keyed provider factory catalog.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// NewDefaultRegistry builds a registry pre-populated with every provider
// this package ships.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("anthropic", func(cfg ProviderConfig, logger core.Logger, telemetry core.Telemetry) (Client, error) {
		return NewAnthropicClient(cfg.APIKey, logger, telemetry), nil
	})
	r.Register("anthropic-http", func(cfg ProviderConfig, logger core.Logger, telemetry core.Telemetry) (Client, error) {
		return NewAnthropicHTTPClient(cfg.APIKey, cfg.BaseURL, logger, telemetry), nil
	})
	r.Register("openai", func(cfg ProviderConfig, logger core.Logger, telemetry core.Telemetry) (Client, error) {
		return NewOpenAIClient(cfg.APIKey, cfg.BaseURL, logger, telemetry), nil
	})
	r.Register("mock", func(cfg ProviderConfig, logger core.Logger, telemetry core.Telemetry) (Client, error) {
		return NewMockClient(), nil
	})
	return r
}

// Register adds a named factory, overwriting any prior registration under
// the same name (unlike gomind's registry, which errors on duplicates —
// this runtime's registry is built once at startup from static config, so a
// later registration intentionally wins rather than panicking).
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Create builds a Client for the named provider.
func (r *Registry) Create(name string, cfg ProviderConfig, logger core.Logger, telemetry core.Telemetry) (Client, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("llm: unknown provider %q", name)
	}
	return factory(cfg, logger, telemetry)
}

// Names returns every registered provider name, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
