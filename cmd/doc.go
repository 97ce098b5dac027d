// Package cmd implements the command-line interface for connectorhub.
//
// This package provides the following commands:
//   - serve: Start the MCP server over stdio or streamable-http
//   - accounts: List, add and remove connector accounts
//   - version: Display version information
//   - generate-docs: Generate markdown documentation for all MCP tools
package cmd
