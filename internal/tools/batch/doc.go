// Package batch provides helpers for tools that apply one use case to
// several items, such as marking a list of messages as read.
//
// This package includes helpers for:
//   - Parsing parameters that accept both single values and arrays
//   - Running a use case per item and collecting partial failures
package batch
