package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swarmforge/swarmctl/core"
)

func TestNewDefaultRegistryRegistersEveryBuiltinProvider(t *testing.T) {
	registry := NewDefaultRegistry()
	assert.Equal(t, []string{"anthropic", "anthropic-http", "mock", "openai"}, registry.Names())
}

func TestRegistryCreateBuildsMockClient(t *testing.T) {
	registry := NewDefaultRegistry()
	client, err := registry.Create("mock", ProviderConfig{}, nil, nil)
	require.NoError(t, err)
	assert.NotNil(t, client)
}

func TestRegistryCreateUnknownProviderReturnsError(t *testing.T) {
	registry := NewDefaultRegistry()
	_, err := registry.Create("does-not-exist", ProviderConfig{}, nil, nil)
	assert.Error(t, err)
}

func TestRegistryRegisterOverwritesExistingFactory(t *testing.T) {
	registry := NewRegistry()
	registry.Register("mock", func(cfg ProviderConfig, logger core.Logger, telemetry core.Telemetry) (Client, error) {
		return NewMockClient("first"), nil
	})
	registry.Register("mock", func(cfg ProviderConfig, logger core.Logger, telemetry core.Telemetry) (Client, error) {
		return NewMockClient("second"), nil
	})
	assert.ElementsMatch(t, []string{"mock"}, registry.Names())
}

func TestRegistryCreateAnthropicUsesAPIKey(t *testing.T) {
	registry := NewDefaultRegistry()
	client, err := registry.Create("anthropic", ProviderConfig{APIKey: "sk-test"}, nil, nil)
	require.NoError(t, err)
	assert.NotNil(t, client)
}
