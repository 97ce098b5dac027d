// Package connector holds the pieces every external connector is built from:
// the error taxonomy, the Result returned by use cases, and a JSON REST
// client that applies the retry policy, rate limiting and instrumentation to
// each call.
//
// Errors produced by clients are *Error values with a Kind. Use cases convert
// every failure into a Result through Run, so nothing below the tool surface
// needs to worry about how failures are presented.
package connector
