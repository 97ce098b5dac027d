// Package resources provides MCP resources describing the configured
// connectors. Resources are read-only data sources that MCP clients can
// fetch without calling a tool.
//
// Only account names and defaults are exposed; credentials never leave the
// token store.
package resources
