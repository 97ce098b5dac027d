// Package calendar_tools provides MCP tools for Google Calendar and Apple
// Calendar (CalDAV).
//
// Every tool takes a "provider" argument, "google" (the default) or
// "apple", and an optional "account" of that provider. Event times are RFC
// 3339 timestamps; a bare YYYY-MM-DD date makes an all-day event.
//
// Free/busy queries are only answered by the google provider.
package calendar_tools
