// Package server provides the MCP server context and the HTTP transports of
// connectorhub.
//
// # Key Components
//
// ServerContext builds one Connector per service from the configuration: a
// credential manager over the service's token directory, the authorization
// strategy chain (pre-provisioned refresh token, static secrets, interactive
// browser flow) and an account manager whose handles are created on first
// use. Tool packages reach the use case services through it.
//
// HTTPServer serves the streamable-http MCP endpoint at /mcp together with
// the health endpoints and, when a verify token is configured, the WhatsApp
// webhook. MetricsServer exposes Prometheus metrics on a separate port.
package server
