package instrumentation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func TestConfigFromEnv_Defaults(t *testing.T) {
	cfg, err := ConfigFromEnv(envMap(nil))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.Equal(t, "connectorhub", cfg.ServiceName)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, ExporterPrometheus, cfg.MetricsExporter)
	assert.Equal(t, ExporterNone, cfg.TracingExporter)
	assert.Equal(t, 0.1, cfg.TraceSamplingRate)
	assert.Equal(t, AuditLoggingConfig{Enabled: true}, cfg.AuditLogging)
}

func TestConfigFromEnv_Overrides(t *testing.T) {
	cfg, err := ConfigFromEnv(envMap(map[string]string{
		"OTEL_SERVICE_NAME":           "hub-eu",
		"METRICS_EXPORTER":            "OTLP",
		"TRACING_EXPORTER":            "stdout",
		"OTEL_EXPORTER_OTLP_ENDPOINT": "collector:4318",
		"OTEL_EXPORTER_OTLP_INSECURE": "true",
		"OTEL_TRACES_SAMPLER_ARG":     "0.5",
		"METRICS_DETAILED_LABELS":     "1",
		"AUDIT_LOGGING_INCLUDE_PII":   "true",
		"AUDIT_LOGGING_ENABLED":       " ",
	}))
	require.NoError(t, err)
	assert.Equal(t, "hub-eu", cfg.ServiceName)
	assert.Equal(t, ExporterOTLP, cfg.MetricsExporter)
	assert.Equal(t, ExporterStdout, cfg.TracingExporter)
	assert.Equal(t, "collector:4318", cfg.OTLPEndpoint)
	assert.True(t, cfg.OTLPInsecure)
	assert.Equal(t, 0.5, cfg.TraceSamplingRate)
	assert.True(t, cfg.DetailedLabels)
	assert.Equal(t, AuditLoggingConfig{Enabled: true, IncludePII: true}, cfg.AuditLogging)
}

func TestConfigFromEnv_Errors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "bad boolean",
			env:     map[string]string{"INSTRUMENTATION_ENABLED": "maybe"},
			wantErr: "INSTRUMENTATION_ENABLED",
		},
		{
			name:    "bad sampling rate",
			env:     map[string]string{"OTEL_TRACES_SAMPLER_ARG": "half"},
			wantErr: "OTEL_TRACES_SAMPLER_ARG",
		},
		{
			name:    "errors are joined",
			env:     map[string]string{"AUDIT_LOGGING_ENABLED": "x", "METRICS_DETAILED_LABELS": "y"},
			wantErr: "METRICS_DETAILED_LABELS",
		},
		{
			name:    "sampling rate out of range",
			env:     map[string]string{"OTEL_TRACES_SAMPLER_ARG": "1.5"},
			wantErr: "between 0.0 and 1.0",
		},
		{
			name:    "unknown metrics exporter",
			env:     map[string]string{"METRICS_EXPORTER": "statsd"},
			wantErr: "invalid metrics exporter",
		},
		{
			name:    "otlp tracing without endpoint",
			env:     map[string]string{"TRACING_EXPORTER": "otlp"},
			wantErr: "required for the otlp tracing exporter",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ConfigFromEnv(envMap(tt.env))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_DisabledIgnoresExporters(t *testing.T) {
	cfg := Config{Enabled: false, MetricsExporter: "statsd", TraceSamplingRate: 7}
	assert.NoError(t, cfg.Validate())
}
