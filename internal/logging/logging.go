package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
)

// Attribute keys used across the codebase.
const (
	KeyOperation = "operation"
	KeyService   = "service"
	KeyAccount   = "account"
	KeyProvider  = "provider"
	KeyDuration  = "duration"
	KeyStatus    = "status"
	KeyError     = "error"
	KeyTool      = "tool"
	KeyAttempt   = "attempt"
)

// Status values. Duplicated in instrumentation to avoid an import cycle.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// New builds the process logger writing text to w. Stdio transports must pass
// os.Stderr since stdout carries the protocol stream.
func New(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// ParseLevel maps a LOG_LEVEL style string to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithService returns a logger scoped to a connector.
func WithService(logger *slog.Logger, service string) *slog.Logger {
	return logger.With(slog.String(KeyService, service))
}

// WithTool returns a logger scoped to a tool invocation.
func WithTool(logger *slog.Logger, tool string) *slog.Logger {
	return logger.With(slog.String(KeyTool, tool))
}

// WithAccount returns a logger scoped to an account. The identifier is hashed.
func WithAccount(logger *slog.Logger, account string) *slog.Logger {
	return logger.With(Account(account))
}

// Attribute constructors for the common log keys.

func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

func Service(svc string) slog.Attr {
	return slog.String(KeyService, svc)
}

func Provider(p string) slog.Attr {
	return slog.String(KeyProvider, p)
}

func Tool(tool string) slog.Attr {
	return slog.String(KeyTool, tool)
}

func Status(status string) slog.Attr {
	return slog.String(KeyStatus, status)
}

func Attempt(n int) slog.Attr {
	return slog.Int(KeyAttempt, n)
}

func Duration(d time.Duration) slog.Attr {
	return slog.Duration(KeyDuration, d)
}

// Account returns the anonymized account attribute.
func Account(account string) slog.Attr {
	return slog.String(KeyAccount, AnonymizeAccount(account))
}

// Err returns the error attribute, or an empty group (omitted by slog) for nil.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}

// AnonymizeAccount hashes an account identifier so log lines can be correlated
// without exposing the address. The domain of email-like identifiers is kept
// since it carries little PII and helps debugging.
func AnonymizeAccount(account string) string {
	if account == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(account))
	id := "acct:" + hex.EncodeToString(sum[:6])
	if domain := ExtractDomain(account); domain != "" {
		id += "@" + domain
	}
	return id
}

// SanitizeToken reports only the length of a secret.
func SanitizeToken(token string) string {
	if token == "" {
		return "<empty>"
	}
	return fmt.Sprintf("[token:%d chars]", len(token))
}

// ExtractDomain returns the part after @ for email-like strings.
func ExtractDomain(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 || parts[1] == "" {
		return ""
	}
	return parts[1]
}
