// Package holded_tools exposes the Holded invoicing and accounting use
// cases as MCP tools.
//
// Dates are YYYY-MM-DD. Listings return whole Holded collections truncated
// to max_results. Creating documents, contacts and treasury accounts is
// only registered with --yolo.
package holded_tools
