// Package common provides the pieces shared by the MCP tool packages: the
// instrumented handler wrapper, argument parsing, JSON rendering of use case
// results and the account management tools every connector exposes.
package common
