// Package credentials manages the per-account credential lifecycle: a record
// is loaded from its file, refreshed when expired, obtained through an
// Authorizer when missing, and persisted after every change.
//
// EnsureValid is serialized per account. Concurrent callers on an account
// with an expired token share a single refresh, so a rotating refresh token is
// never spent twice.
//
// Files live under one directory per service and are named after the account
// with FileKey. The body is TOML, optionally sealed with AES-256-GCM.
package credentials
