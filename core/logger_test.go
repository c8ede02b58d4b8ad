package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewProductionLoggerAppliesLevelAndDebugFromConfig(t *testing.T) {
	logger := NewProductionLogger(LoggingConfig{Level: "DEBUG", Format: "json", Output: "stdout"}, DevelopmentConfig{}, "swarmd")

	assert.Equal(t, "debug", logger.level)
	assert.True(t, logger.debug)
	assert.Equal(t, "framework", logger.component)
}

func TestProductionLoggerDebugLoggingEnabledExplicitly(t *testing.T) {
	logger := NewProductionLogger(LoggingConfig{Level: "info"}, DevelopmentConfig{DebugLogging: true}, "swarmd")
	assert.True(t, logger.debug)
}

func TestProductionLoggerWithComponentClonesWithNewComponent(t *testing.T) {
	base := NewProductionLogger(LoggingConfig{Level: "info"}, DevelopmentConfig{}, "swarmd")
	scoped := base.WithComponent("orchestrator")

	cloned, ok := scoped.(*ProductionLogger)
	assert.True(t, ok)
	assert.Equal(t, "orchestrator", cloned.component)
	assert.Equal(t, "framework", base.component)
}

func TestNoOpLoggerNeverPanics(t *testing.T) {
	var logger Logger = NoOpLogger{}
	logger.Info("msg", map[string]interface{}{"k": "v"})
	logger.Error("msg", nil)
	logger.Warn("msg", nil)
	logger.Debug("msg", nil)
	logger.InfoWithContext(context.Background(), "msg", nil)

	scoped := NoOpLogger{}.WithComponent("agent/frontend")
	scoped.Info("msg", nil)
}

func TestEnableMetricsTogglesMetricsEnabled(t *testing.T) {
	logger := NewProductionLogger(LoggingConfig{Level: "info"}, DevelopmentConfig{}, "swarmd")
	assert.False(t, logger.metricsEnabled)

	logger.EnableMetrics()
	assert.True(t, logger.metricsEnabled)
}

func TestLoggerMethodsDoNotPanicWithNilFields(t *testing.T) {
	logger := NewProductionLogger(LoggingConfig{Level: "info", Format: "text"}, DevelopmentConfig{}, "swarmd")
	assert.NotPanics(t, func() {
		logger.Info("starting", nil)
		logger.Warn("degraded", map[string]interface{}{"reason": "slow"})
		logger.Error("failed", map[string]interface{}{"error": "boom"})
		logger.Debug("should be suppressed", nil)
	})
}
