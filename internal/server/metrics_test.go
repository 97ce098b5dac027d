package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/connectorhub/internal/instrumentation"
)

func createTestProvider(t *testing.T, exporter string) *instrumentation.Provider {
	t.Helper()
	cfg := instrumentation.DefaultConfig()
	cfg.ServiceName = "test-service"
	cfg.MetricsExporter = exporter
	provider, err := instrumentation.NewProvider(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return provider
}

func TestNewMetricsServer(t *testing.T) {
	disabled, err := instrumentation.NewProvider(context.Background(), instrumentation.Config{Enabled: false})
	require.NoError(t, err)

	tests := []struct {
		name     string
		config   MetricsServerConfig
		wantAddr string
		wantErr  string
	}{
		{
			name:     "explicit addr",
			config:   MetricsServerConfig{Addr: ":9191", Provider: createTestProvider(t, "prometheus")},
			wantAddr: ":9191",
		},
		{
			name:     "default addr",
			config:   MetricsServerConfig{Provider: createTestProvider(t, "prometheus")},
			wantAddr: DefaultMetricsAddr,
		},
		{
			name:    "nil provider",
			config:  MetricsServerConfig{Addr: ":9090"},
			wantErr: "instrumentation provider is required",
		},
		{
			name:    "disabled provider",
			config:  MetricsServerConfig{Provider: disabled},
			wantErr: "instrumentation provider is not enabled",
		},
		{
			name:    "stdout exporter",
			config:  MetricsServerConfig{Provider: createTestProvider(t, "stdout")},
			wantErr: "not prometheus",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, err := NewMetricsServer(tt.config)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantAddr, srv.Addr())
		})
	}
}

func TestMetricsServer_Routes(t *testing.T) {
	provider := createTestProvider(t, "prometheus")
	provider.Metrics().RecordToolInvocation(context.Background(), "list_calendars", instrumentation.StatusSuccess, time.Second)

	srv, err := NewMetricsServer(MetricsServerConfig{Provider: provider})
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `tool="list_calendars"`)
}

func TestMetricsServer_ListenServeShutdown(t *testing.T) {
	srv, err := NewMetricsServer(MetricsServerConfig{Addr: "127.0.0.1:0", Provider: createTestProvider(t, "prometheus")})
	require.NoError(t, err)
	require.NoError(t, srv.Listen())
	assert.NotEqual(t, "127.0.0.1:0", srv.Addr())

	served := make(chan error, 1)
	go func() { served <- srv.Serve() }()

	resp, err := http.Get("http://" + srv.Addr() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// A second listener on the same port fails at Listen, not later.
	clash, err := NewMetricsServer(MetricsServerConfig{Addr: srv.Addr(), Provider: createTestProvider(t, "prometheus")})
	require.NoError(t, err)
	assert.Error(t, clash.Listen())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))
	assert.NoError(t, <-served)
}

func TestMetricsServer_ShutdownBeforeListen(t *testing.T) {
	srv, err := NewMetricsServer(MetricsServerConfig{Provider: createTestProvider(t, "prometheus")})
	require.NoError(t, err)
	assert.NoError(t, srv.Shutdown(context.Background()))
}
