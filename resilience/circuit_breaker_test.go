package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swarmforge/swarmctl/core"
)

func testConfig(name string) *Config {
	return &Config{
		Name:             name,
		ErrorThreshold:   0.5,
		VolumeThreshold:  5,
		SleepWindow:      100 * time.Millisecond,
		HalfOpenRequests: 2,
		SuccessThreshold: 0.5,
		WindowSize:       time.Second,
		BucketCount:      10,
		ErrorClassifier:  DefaultErrorClassifier,
		Logger:           core.NoOpLogger{},
	}
}

func TestCircuitBreakerStateTransitions(t *testing.T) {
	cb, err := New(testConfig("test"))
	require.NoError(t, err)
	assert.Equal(t, "closed", cb.GetState())

	for i := 0; i < 6; i++ {
		execErr := cb.Execute(context.Background(), func() error {
			return errors.New("boom")
		})
		assert.Error(t, execErr)
	}
	assert.Equal(t, "open", cb.GetState())

	rejectErr := cb.Execute(context.Background(), func() error { return nil })
	assert.ErrorIs(t, rejectErr, core.ErrCircuitBreakerOpen)

	time.Sleep(250 * time.Millisecond)

	for i := 0; i < 2; i++ {
		execErr := cb.Execute(context.Background(), func() error { return nil })
		assert.NoError(t, execErr)
	}
	assert.Equal(t, "closed", cb.GetState())
}

func TestCircuitBreakerReopensOnHalfOpenFailure(t *testing.T) {
	cb, err := New(testConfig("reopen"))
	require.NoError(t, err)

	for i := 0; i < 6; i++ {
		_ = cb.Execute(context.Background(), func() error { return errors.New("boom") })
	}
	require.Equal(t, "open", cb.GetState())

	time.Sleep(250 * time.Millisecond)

	for i := 0; i < 2; i++ {
		_ = cb.Execute(context.Background(), func() error { return errors.New("still failing") })
	}
	assert.Equal(t, "open", cb.GetState())
}

func TestCircuitBreakerConfigurationErrorsDontCount(t *testing.T) {
	cb, err := New(testConfig("config-errors"))
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		_ = cb.Execute(context.Background(), func() error {
			return core.NewFrameworkError("test", "config", core.ErrConfigInvalid)
		})
	}
	assert.Equal(t, "closed", cb.GetState(), "configuration errors must not trip the breaker")
}

func TestCircuitBreakerReset(t *testing.T) {
	cb, err := New(testConfig("reset"))
	require.NoError(t, err)

	for i := 0; i < 6; i++ {
		_ = cb.Execute(context.Background(), func() error { return errors.New("boom") })
	}
	require.Equal(t, "open", cb.GetState())

	cb.Reset()
	assert.Equal(t, "closed", cb.GetState())
	assert.True(t, cb.CanExecute())
}

func TestCircuitBreakerPanicIsRecovered(t *testing.T) {
	cb, err := New(testConfig("panic"))
	require.NoError(t, err)

	execErr := cb.Execute(context.Background(), func() error {
		panic("boom")
	})
	assert.Error(t, execErr)
	assert.Equal(t, "closed", cb.GetState())
}

func TestCircuitBreakerExecuteWithTimeout(t *testing.T) {
	cb, err := New(testConfig("timeout"))
	require.NoError(t, err)

	execErr := cb.ExecuteWithTimeout(context.Background(), 10*time.Millisecond, func() error {
		time.Sleep(100 * time.Millisecond)
		return nil
	})
	assert.ErrorIs(t, execErr, context.DeadlineExceeded)
}
