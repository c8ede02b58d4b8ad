package core

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// LoggingConfig controls ProductionLogger's output shape.
type LoggingConfig struct {
	Level  string `json:"level" env:"SWARM_LOG_LEVEL" default:"info"`
	Format string `json:"format" env:"SWARM_LOG_FORMAT" default:"json"`
	Output string `json:"output" env:"SWARM_LOG_OUTPUT" default:"stdout"`
}

// DevelopmentConfig toggles local-dev conveniences: mock AI responses,
// mock discovery, and verbose debug logging.
type DevelopmentConfig struct {
	DebugLogging  bool `json:"debug_logging" env:"SWARM_DEBUG" default:"false"`
	MockAI        bool `json:"mock_ai" env:"SWARM_MOCK_AI" default:"false"`
	MockDiscovery bool `json:"mock_discovery" env:"SWARM_MOCK_DISCOVERY" default:"false"`
}

// CircuitBreakerConfig configures the resilience circuit breaker.
type CircuitBreakerConfig struct {
	Enabled          bool          `json:"enabled" env:"SWARM_CB_ENABLED" default:"true"`
	Threshold        int           `json:"threshold" env:"SWARM_CB_THRESHOLD" default:"5"`
	Timeout          time.Duration `json:"timeout" env:"SWARM_CB_TIMEOUT" default:"30s"`
	HalfOpenRequests int           `json:"half_open_requests" env:"SWARM_CB_HALF_OPEN" default:"3"`
}

// RetryConfig configures exponential-backoff retry.
type RetryConfig struct {
	MaxAttempts     int           `json:"max_attempts" env:"SWARM_RETRY_MAX_ATTEMPTS" default:"3"`
	InitialInterval time.Duration `json:"initial_interval" env:"SWARM_RETRY_INITIAL_INTERVAL" default:"1s"`
	MaxInterval     time.Duration `json:"max_interval" env:"SWARM_RETRY_MAX_INTERVAL" default:"30s"`
	Multiplier      float64       `json:"multiplier" env:"SWARM_RETRY_MULTIPLIER" default:"2.0"`
}

// TimeoutConfig bounds how long various blocking operations may run.
type TimeoutConfig struct {
	DefaultTimeout time.Duration `json:"default_timeout" env:"SWARM_TIMEOUT_DEFAULT" default:"30s"`
	MaxTimeout     time.Duration `json:"max_timeout" env:"SWARM_TIMEOUT_MAX" default:"5m"`
}

// ResilienceConfig groups the fault-tolerance knobs.
type ResilienceConfig struct {
	CircuitBreaker CircuitBreakerConfig `json:"circuit_breaker"`
	Retry          RetryConfig          `json:"retry"`
	Timeout        TimeoutConfig        `json:"timeout"`
}

// DefaultResilienceConfig returns production-sane defaults, used whenever a
// caller doesn't load a config document.
func DefaultResilienceConfig() ResilienceConfig {
	cfg := ResilienceConfig{}
	if err := ApplyEnvDefaults(&cfg); err != nil {
		// struct-tag defaults are static and validated at compile time by
		// tests; a failure here indicates a programming error, not runtime
		// misconfiguration, so fall back to hard-coded defaults rather than panic.
		return ResilienceConfig{
			CircuitBreaker: CircuitBreakerConfig{Enabled: true, Threshold: 5, Timeout: 30 * time.Second, HalfOpenRequests: 3},
			Retry:          RetryConfig{MaxAttempts: 3, InitialInterval: time.Second, MaxInterval: 30 * time.Second, Multiplier: 2.0},
			Timeout:        TimeoutConfig{DefaultTimeout: 30 * time.Second, MaxTimeout: 5 * time.Minute},
		}
	}
	return cfg
}

// ApplyEnvDefaults walks the fields of a struct pointer. A field whose `env`
// tag names a set environment variable takes that variable's value, even if
// the field already holds one; otherwise a zero field takes its `default`
// tag, and a non-zero field is left as it is. This mirrors gomind's
// three-layer configuration convention: defaults, then env vars, then
// functional options (options are applied by the caller after this runs,
// since they are the highest-priority layer).
func ApplyEnvDefaults(cfgPtr interface{}) error {
	v := reflect.ValueOf(cfgPtr)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("ApplyEnvDefaults: expected pointer to struct, got %T", cfgPtr)
	}
	return applyEnvDefaults(v.Elem())
}

func applyEnvDefaults(v reflect.Value) error {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fv := v.Field(i)
		if !fv.CanSet() {
			continue
		}

		if fv.Kind() == reflect.Struct && fv.Type() != reflect.TypeOf(time.Time{}) {
			if err := applyEnvDefaults(fv); err != nil {
				return err
			}
			continue
		}

		raw := ""
		found := false
		if envNames := field.Tag.Get("env"); envNames != "" {
			for _, name := range strings.Split(envNames, ",") {
				if val, ok := os.LookupEnv(strings.TrimSpace(name)); ok {
					raw, found = val, true
					break
				}
			}
		}
		if !found && isZero(fv) {
			if def, ok := field.Tag.Lookup("default"); ok {
				raw, found = def, true
			}
		}
		if !found {
			continue
		}
		if err := setFieldFromString(fv, raw); err != nil {
			return fmt.Errorf("field %s: %w", field.Name, err)
		}
	}
	return nil
}

func isZero(v reflect.Value) bool {
	return v.IsZero()
}

func setFieldFromString(fv reflect.Value, raw string) error {
	switch fv.Kind() {
	case reflect.String:
		fv.SetString(raw)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		fv.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if fv.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(raw)
			if err != nil {
				return err
			}
			fv.SetInt(int64(d))
			return nil
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return err
		}
		fv.SetInt(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return err
		}
		fv.SetFloat(f)
	case reflect.Slice:
		if fv.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(raw, ",")
			out := make([]string, 0, len(parts))
			for _, p := range parts {
				p = strings.TrimSpace(p)
				if p != "" {
					out = append(out, p)
				}
			}
			fv.Set(reflect.ValueOf(out))
		}
	default:
		return fmt.Errorf("unsupported kind %s", fv.Kind())
	}
	return nil
}
