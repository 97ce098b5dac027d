package connector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
)

// Kind classifies a failure for retry and reporting purposes.
type Kind int

const (
	KindAuthentication Kind = iota + 1
	KindTransient
	KindMalformedRequest
	KindNotFound
	KindMalformedResponse
	KindUnknownAccount
	KindNoDefaultAccount
)

func (k Kind) String() string {
	switch k {
	case KindAuthentication:
		return "authentication error"
	case KindTransient:
		return "transient network error"
	case KindMalformedRequest:
		return "malformed request"
	case KindNotFound:
		return "not found"
	case KindMalformedResponse:
		return "malformed response"
	case KindUnknownAccount:
		return "unknown account"
	case KindNoDefaultAccount:
		return "no default account"
	default:
		return "error"
	}
}

// Error is the single error type produced below the use case boundary.
type Error struct {
	Kind    Kind
	Message string
	// Status is the HTTP status when the error came from a response.
	Status int
	// NoAccess marks a NotFound that the remote reported as a permission
	// failure rather than absence.
	NoAccess bool
	// RetryAfter is the server requested wait, if any.
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	label := e.Kind.String()
	if e.Kind == KindNotFound && e.NoAccess {
		label = "no access"
	}
	var b strings.Builder
	b.WriteString(label)
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind so callers can test against the sentinels below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == "" && t.Err == nil
}

// Retriable reports whether a retry may succeed.
func (e *Error) Retriable() bool { return e.Kind == KindTransient }

// RetryDelay returns the server supplied wait.
func (e *Error) RetryDelay() time.Duration { return e.RetryAfter }

// Sentinels for errors.Is.
var (
	ErrAuthentication    = &Error{Kind: KindAuthentication}
	ErrTransient         = &Error{Kind: KindTransient}
	ErrMalformedRequest  = &Error{Kind: KindMalformedRequest}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrMalformedResponse = &Error{Kind: KindMalformedResponse}
	ErrUnknownAccount    = &Error{Kind: KindUnknownAccount}
	ErrNoDefaultAccount  = &Error{Kind: KindNoDefaultAccount}
)

// NewAuthenticationError reports missing, expired or rejected credentials.
func NewAuthenticationError(msg string, cause error) *Error {
	return &Error{Kind: KindAuthentication, Message: msg, Err: cause}
}

// NewTransientError reports a failure worth retrying, such as a 429 or 5xx.
func NewTransientError(msg string, cause error) *Error {
	return &Error{Kind: KindTransient, Message: msg, Err: cause}
}

// NewMalformedRequestError reports arguments the remote API rejected.
func NewMalformedRequestError(msg string, cause error) *Error {
	return &Error{Kind: KindMalformedRequest, Message: msg, Err: cause}
}

// NewNotFoundError reports a missing remote resource.
func NewNotFoundError(msg string, cause error) *Error {
	return &Error{Kind: KindNotFound, Message: msg, Err: cause}
}

// NewNoAccessError is a not-found the caller may fix by sharing the resource.
func NewNoAccessError(msg string, cause error) *Error {
	return &Error{Kind: KindNotFound, NoAccess: true, Message: msg, Err: cause}
}

// NewMalformedResponseError reports a response body that could not be decoded.
func NewMalformedResponseError(msg string, cause error) *Error {
	return &Error{Kind: KindMalformedResponse, Message: msg, Err: cause}
}

// NewUnknownAccountError names an account that was never registered.
func NewUnknownAccountError(account string) *Error {
	return &Error{Kind: KindUnknownAccount, Message: fmt.Sprintf("account %q is not registered", account)}
}

// NewNoDefaultAccountError is returned when no account is given and none is the default.
func NewNoDefaultAccountError(service string) *Error {
	return &Error{Kind: KindNoDefaultAccount, Message: fmt.Sprintf("no account given and no default %s account configured", service)}
}

// Invalidf reports a request that failed local validation.
func Invalidf(format string, args ...any) *Error {
	return &Error{Kind: KindMalformedRequest, Message: fmt.Sprintf(format, args...)}
}

// Required reports a missing request argument.
func Required(field string) *Error {
	return &Error{Kind: KindMalformedRequest, Message: field + " is required"}
}

// MissingFieldError reports a response lacking a field the mapper depends on.
func MissingFieldError(entity, field string) *Error {
	return &Error{Kind: KindMalformedResponse, Message: fmt.Sprintf("%s response has no %s", entity, field)}
}

// IsKind reports whether err carries kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	return IsKind(err, KindTransient)
}

// FromStatus classifies an HTTP error response. It returns nil for 2xx and
// 3xx statuses.
func FromStatus(status int, message string, header http.Header) *Error {
	if status < 400 {
		return nil
	}
	e := &Error{Status: status, Message: message}
	switch {
	case status == http.StatusUnauthorized:
		e.Kind = KindAuthentication
	case status == http.StatusForbidden:
		e.Kind = KindNotFound
		e.NoAccess = true
	case status == http.StatusNotFound || status == http.StatusGone:
		e.Kind = KindNotFound
	case status == http.StatusTooManyRequests || status == http.StatusRequestTimeout || status >= 500:
		e.Kind = KindTransient
		e.RetryAfter = parseRetryAfter(header)
	default:
		e.Kind = KindMalformedRequest
	}
	if e.Message == "" {
		e.Message = fmt.Sprintf("HTTP %d %s", status, http.StatusText(status))
	}
	return e
}

// Google answers some quota failures with 403.
var googleRateLimitReasons = map[string]bool{
	"rateLimitExceeded":     true,
	"userRateLimitExceeded": true,
	"quotaExceeded":         true,
	"backendError":          true,
}

// Classify converts errors from HTTP clients, the Google client libraries
// and the oauth2 package into an *Error. Errors that are already classified,
// context cancellation and nil pass through unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var ce *Error
	if errors.As(err, &ce) {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		for _, item := range gerr.Errors {
			if googleRateLimitReasons[item.Reason] {
				return &Error{Kind: KindTransient, Status: gerr.Code, Message: gerr.Message, Err: err, RetryAfter: parseRetryAfter(gerr.Header)}
			}
		}
		e := FromStatus(gerr.Code, gerr.Message, gerr.Header)
		if e == nil {
			return err
		}
		e.Err = err
		return e
	}

	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		if rerr.ErrorCode == "invalid_grant" || rerr.ErrorCode == "invalid_client" || rerr.ErrorCode == "unauthorized_client" {
			return NewAuthenticationError("token endpoint rejected credentials", err)
		}
		if rerr.Response != nil {
			if e := FromStatus(rerr.Response.StatusCode, "token endpoint", rerr.Response.Header); e != nil {
				e.Err = err
				if e.Kind != KindTransient {
					e.Kind = KindAuthentication
					e.NoAccess = false
				}
				return e
			}
		}
		return NewAuthenticationError("token endpoint", err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return NewTransientError("request timed out", err)
	}
	var nerr net.Error
	if errors.As(err, &nerr) {
		return NewTransientError("network failure", err)
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return NewTransientError("connection closed", err)
	}
	return err
}

// IsInvalidGrant reports whether err is an OAuth invalid_grant response,
// meaning the refresh token is revoked or expired.
func IsInvalidGrant(err error) bool {
	var rerr *oauth2.RetrieveError
	return errors.As(err, &rerr) && rerr.ErrorCode == "invalid_grant"
}

func parseRetryAfter(h http.Header) time.Duration {
	if h == nil {
		return 0
	}
	v := strings.TrimSpace(h.Get("Retry-After"))
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
