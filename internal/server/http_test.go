package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/connectorhub/internal/whatsapp"
)

func TestNewHTTPServer_RequiresDependencies(t *testing.T) {
	_, err := NewHTTPServer(nil, nil, HTTPServerConfig{})
	assert.Error(t, err)
}

func TestHTTPServer_Routes(t *testing.T) {
	sc := newTestContext(t, map[string]string{"WHATSAPP_WEBHOOK_VERIFY_TOKEN": "verify-me"})
	mcpSrv := mcpserver.NewMCPServer("test", "0.0.0", mcpserver.WithHooks(sc.SessionHooks()))

	srv, err := NewHTTPServer(mcpSrv, sc, HTTPServerConfig{DisableStreaming: true})
	require.NoError(t, err)
	assert.Equal(t, ":8080", srv.Addr())

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/readyz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + whatsapp.WebhookPath + "?hub.mode=subscribe&hub.verify_token=verify-me&hub.challenge=42")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + whatsapp.WebhookPath + "?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=42")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestHTTPServer_NoWebhookWithoutVerifyToken(t *testing.T) {
	sc := newTestContext(t, nil)
	srv, err := NewHTTPServer(mcpserver.NewMCPServer("test", "0.0.0"), sc, HTTPServerConfig{Addr: ":0"})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, whatsapp.WebhookPath, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHTTPServer_ShutdownDropsReadiness(t *testing.T) {
	sc := newTestContext(t, nil)
	srv, err := NewHTTPServer(mcpserver.NewMCPServer("test", "0.0.0"), sc, HTTPServerConfig{})
	require.NoError(t, err)

	require.NoError(t, srv.Shutdown(sc.Context()))
	assert.False(t, srv.Health().IsReady())
}
