package instrumentation

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Exporter types.
const (
	ExporterPrometheus = "prometheus"
	ExporterOTLP       = "otlp"
	ExporterStdout     = "stdout"
	ExporterNone       = "none"
)

// Status values of the bounded status label.
const (
	StatusSuccess  = "success"
	StatusError    = "error"
	StatusCanceled = "canceled"
)

// Credential event results.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultExpired = "expired"
)

// Service label values, one per connector.
const (
	ServiceGmail    = "gmail"
	ServiceCalendar = "calendar"
	ServiceCalDAV   = "caldav"
	ServiceNotion   = "notion"
	ServiceHolded   = "holded"
	ServiceWhatsApp = "whatsapp"
)

// Config holds the telemetry settings of the server.
type Config struct {
	ServiceName    string
	ServiceVersion string
	// InstanceID defaults to the hostname.
	InstanceID string

	// Enabled switches metrics and tracing. Audit logging is configured
	// separately.
	Enabled bool

	// MetricsExporter is one of prometheus, otlp or stdout.
	MetricsExporter string
	// TracingExporter is one of otlp, stdout or none.
	TracingExporter string

	// OTLPEndpoint is host:port without a scheme. TLS is used unless
	// OTLPInsecure is set.
	OTLPEndpoint string
	OTLPInsecure bool

	// TraceSamplingRate is the parent-based ratio of sampled root spans.
	TraceSamplingRate float64

	// DetailedLabels adds the account label to tool metrics, which grows
	// cardinality with the number of accounts.
	DetailedLabels bool

	AuditLogging AuditLoggingConfig
}

// AuditLoggingConfig holds configuration for audit logging.
type AuditLoggingConfig struct {
	Enabled bool

	// IncludePII logs account identifiers verbatim instead of anonymized.
	IncludePII bool
}

// DefaultConfig returns the settings used when no environment variable
// overrides them.
func DefaultConfig() Config {
	return Config{
		ServiceName:       "connectorhub",
		ServiceVersion:    "unknown",
		Enabled:           true,
		MetricsExporter:   ExporterPrometheus,
		TracingExporter:   ExporterNone,
		TraceSamplingRate: 0.1,
		AuditLogging:      AuditLoggingConfig{Enabled: true},
	}
}

// ConfigFromEnv overlays the environment read through lookup on
// DefaultConfig and validates the result. Malformed values are reported
// instead of being replaced by defaults.
func ConfigFromEnv(lookup func(string) (string, bool)) (Config, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	env := envReader{lookup: lookup}
	cfg := DefaultConfig()

	env.str("OTEL_SERVICE_NAME", &cfg.ServiceName)
	env.str("OTEL_SERVICE_INSTANCE_ID", &cfg.InstanceID)
	env.boolean("INSTRUMENTATION_ENABLED", &cfg.Enabled)
	env.str("METRICS_EXPORTER", &cfg.MetricsExporter)
	env.str("TRACING_EXPORTER", &cfg.TracingExporter)
	env.str("OTEL_EXPORTER_OTLP_ENDPOINT", &cfg.OTLPEndpoint)
	env.boolean("OTEL_EXPORTER_OTLP_INSECURE", &cfg.OTLPInsecure)
	env.float("OTEL_TRACES_SAMPLER_ARG", &cfg.TraceSamplingRate)
	env.boolean("METRICS_DETAILED_LABELS", &cfg.DetailedLabels)
	env.boolean("AUDIT_LOGGING_ENABLED", &cfg.AuditLogging.Enabled)
	env.boolean("AUDIT_LOGGING_INCLUDE_PII", &cfg.AuditLogging.IncludePII)

	if err := errors.Join(env.errs...); err != nil {
		return Config{}, err
	}
	cfg.MetricsExporter = strings.ToLower(cfg.MetricsExporter)
	cfg.TracingExporter = strings.ToLower(cfg.TracingExporter)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks exporter names, the sampling rate and that OTLP
// exporters have an endpoint. Disabled configurations are always valid.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.TraceSamplingRate < 0 || c.TraceSamplingRate > 1 {
		return fmt.Errorf("trace sampling rate must be between 0.0 and 1.0, got %g", c.TraceSamplingRate)
	}
	switch c.MetricsExporter {
	case ExporterPrometheus, ExporterStdout:
	case ExporterOTLP:
		if c.OTLPEndpoint == "" {
			return errors.New("OTEL_EXPORTER_OTLP_ENDPOINT is required for the otlp metrics exporter")
		}
	default:
		return fmt.Errorf("invalid metrics exporter %q, must be one of: prometheus, otlp, stdout", c.MetricsExporter)
	}
	switch c.TracingExporter {
	case ExporterNone, ExporterStdout:
	case ExporterOTLP:
		if c.OTLPEndpoint == "" {
			return errors.New("OTEL_EXPORTER_OTLP_ENDPOINT is required for the otlp tracing exporter")
		}
	default:
		return fmt.Errorf("invalid tracing exporter %q, must be one of: otlp, stdout, none", c.TracingExporter)
	}
	return nil
}

type envReader struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (e *envReader) get(key string) (string, bool) {
	v, ok := e.lookup(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (e *envReader) str(key string, dst *string) {
	if v, ok := e.get(key); ok {
		*dst = v
	}
}

func (e *envReader) boolean(key string, dst *bool) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %q is not a boolean", key, v))
		return
	}
	*dst = b
}

func (e *envReader) float(key string, dst *float64) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %q is not a number", key, v))
		return
	}
	*dst = f
}
