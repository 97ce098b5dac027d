package connector

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// DefaultHTTPTimeout bounds a single round trip. There is no other
// cancellation of in-flight calls.
const DefaultHTTPTimeout = 60 * time.Second

// loggingTransport logs method, host, path, status and latency of every
// outgoing request at debug level. Bodies and query strings are not logged
// since they carry message content and tokens.
type loggingTransport struct {
	base    http.RoundTripper
	logger  *slog.Logger
	service string
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.base.RoundTrip(req)
	attrs := []any{
		slog.String("service", t.service),
		slog.String("method", req.Method),
		slog.String("host", req.URL.Host),
		slog.String("path", req.URL.Path),
		slog.Duration("duration", time.Since(start)),
	}
	if err != nil {
		t.logger.Debug("outbound request failed", append(attrs, slog.String("error", err.Error()))...)
		return nil, err
	}
	t.logger.Debug("outbound request", append(attrs, slog.Int("status", resp.StatusCode))...)
	return resp, nil
}

// NewHTTPClient returns the client used for every outbound API call of
// service: traced by otelhttp and logged at debug level. A nil base uses
// http.DefaultTransport.
func NewHTTPClient(service string, base http.RoundTripper, logger *slog.Logger) *http.Client {
	if base == nil {
		base = http.DefaultTransport
	}
	if logger == nil {
		logger = slog.Default()
	}
	rt := otelhttp.NewTransport(&loggingTransport{base: base, logger: logger, service: service},
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return service + " " + r.Method
		}),
	)
	return &http.Client{Transport: rt, Timeout: DefaultHTTPTimeout}
}

// maxErrorBody caps how much of an error response is read for its message.
const maxErrorBody = 64 << 10

func readLimited(r io.Reader, n int64) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, n))
}
