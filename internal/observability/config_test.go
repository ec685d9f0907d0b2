package observability

import (
	"testing"
	"time"

	"github.com/smallbiznis/webhookharness/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("OTEL_SAMPLING_RATIO", "")
	t.Setenv("OTEL_ENABLED", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("OTEL_EXPORTER_OTLP_PROTOCOL", "")
	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_PROTOCOL", "")

	cfg := LoadConfig(config.Config{AppName: "", Environment: "development", AppVersion: "1.2.3"})

	assert.Equal(t, "webhookharness", cfg.ServiceName)
	assert.Equal(t, "1.2.3", cfg.Version)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "grpc", cfg.OtelExporterProtocol)
	assert.True(t, cfg.OtelEnabled)
	assert.InDelta(t, 0.1, cfg.OtelSamplingRatio, 1e-9)
	assert.True(t, cfg.Debug())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "off")
	t.Setenv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc")
	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_PROTOCOL", "HTTP")
	t.Setenv("LOG_LEVEL", "WARN")

	cfg := LoadConfig(config.Config{AppName: "hooks", Environment: "production"})

	assert.Equal(t, "hooks", cfg.ServiceName)
	assert.False(t, cfg.OtelEnabled)
	assert.Equal(t, "http", cfg.OtelExporterProtocol)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.False(t, cfg.Debug())
}

func TestLoadConfigRequestSettings(t *testing.T) {
	t.Setenv("LOG_SLOW_REQUEST_MS", "250")
	t.Setenv("OTEL_TRACE_PROBES", "")

	cfg := LoadConfig(config.Config{Environment: "production"})

	assert.Equal(t, 250*time.Millisecond, cfg.SlowRequest)
	assert.False(t, cfg.TraceProbeRoutes)
	assert.ElementsMatch(t, []string{"/api/live", "/health", "/metrics"}, cfg.UntracedRoutes())

	t.Setenv("LOG_SLOW_REQUEST_MS", "-5")
	t.Setenv("OTEL_TRACE_PROBES", "true")
	cfg = LoadConfig(config.Config{Environment: "production"})

	assert.Zero(t, cfg.SlowRequest)
	assert.Equal(t, []string{"/api/live"}, cfg.UntracedRoutes())
}
