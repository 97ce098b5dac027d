package connector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/teemow/connectorhub/internal/retry"
)

// Observer receives one notification per remote call (after retries) and one
// per retry. instrumentation.Metrics implements it.
type Observer interface {
	ObserveCall(ctx context.Context, service, operation string, err error, d time.Duration)
	ObserveRetry(ctx context.Context, service, operation string, attempt int)
}

// Decorator adds authentication to an outgoing request. It runs on every
// attempt so a refreshed token is picked up by retries.
type Decorator func(ctx context.Context, req *http.Request) error

// BearerToken decorates requests with an Authorization header from token.
func BearerToken(token func(ctx context.Context) (string, error)) Decorator {
	return func(ctx context.Context, req *http.Request) error {
		tok, err := token(ctx)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+tok)
		return nil
	}
}

// HeaderKey decorates requests with a static API key header.
func HeaderKey(name, value string) Decorator {
	return func(_ context.Context, req *http.Request) error {
		req.Header.Set(name, value)
		return nil
	}
}

// REST is a JSON client bound to one base URL and one account's credentials.
type REST struct {
	service  string
	base     *url.URL
	http     *http.Client
	decorate Decorator
	headers  http.Header
	caller   *Caller
}

// RESTOption configures a REST client.
type RESTOption func(*REST)

// WithHTTPClient replaces the default transport client.
func WithHTTPClient(c *http.Client) RESTOption {
	return func(r *REST) { r.http = c }
}

// WithDecorator sets d to authenticate every outgoing request.
func WithDecorator(d Decorator) RESTOption {
	return func(r *REST) { r.decorate = d }
}

// WithHeader adds a header sent with every request.
func WithHeader(name, value string) RESTOption {
	return func(r *REST) { r.headers.Set(name, value) }
}

// WithRetryPolicy replaces the default policy. Nil disables retries.
func WithRetryPolicy(p *retry.Policy) RESTOption {
	return func(r *REST) { r.caller.Retry = p }
}

// WithLimiter replaces the per-service default limiter. Nil disables limiting.
func WithLimiter(l *rate.Limiter) RESTOption {
	return func(r *REST) { r.caller.Limiter = l }
}

// WithObserver reports every call outcome to o.
func WithObserver(o Observer) RESTOption {
	return func(r *REST) { r.caller.Observer = o }
}

// WithLogger replaces slog.Default for call logging.
func WithLogger(l *slog.Logger) RESTOption {
	return func(r *REST) { r.caller.Logger = l }
}

// WithCaller shares an existing caller, so several clients of one account
// draw from the same limiter.
func WithCaller(c *Caller) RESTOption {
	return func(r *REST) { r.caller = c }
}

// NewREST creates a client for service rooted at baseURL.
func NewREST(service, baseURL string, opts ...RESTOption) (*REST, error) {
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid %s base URL %q", service, baseURL)
	}
	r := &REST{
		service: service,
		base:    u,
		headers: http.Header{},
		caller:  NewCaller(service),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.http == nil {
		r.http = NewHTTPClient(service, nil, r.caller.Logger)
	}
	return r, nil
}

// Request describes one API call.
type Request struct {
	// Operation names the call for logs and metrics, e.g. "pages.create".
	Operation string
	Method    string
	// Path is joined to the base URL.
	Path string
	// URL replaces the base URL and Path with an absolute URL, such as a
	// short-lived media link returned by the API.
	URL   string
	Query url.Values
	// Body is JSON encoded unless RawBody is set.
	Body        any
	RawBody     []byte
	ContentType string
	Header      http.Header
}

// Response is a raw response body, used for media downloads.
type Response struct {
	Status      int
	ContentType string
	Body        []byte
}

// Do performs req with retries and decodes a JSON response into out. A nil
// out or an empty body (204) skips decoding.
func (r *REST) Do(ctx context.Context, req Request, out any) error {
	resp, err := r.Raw(ctx, req)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(resp.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return NewMalformedResponseError(req.Operation+" returned invalid JSON", err)
	}
	return nil
}

// Raw performs req with retries and returns the undecoded body.
func (r *REST) Raw(ctx context.Context, req Request) (*Response, error) {
	var body []byte
	switch {
	case req.RawBody != nil:
		body = req.RawBody
	case req.Body != nil:
		b, err := json.Marshal(req.Body)
		if err != nil {
			return nil, NewMalformedRequestError("encode request body", err)
		}
		body = b
		if req.ContentType == "" {
			req.ContentType = "application/json"
		}
	}

	return Call(ctx, r.caller, req.Operation, func(ctx context.Context) (*Response, error) {
		return r.attempt(ctx, req, body)
	})
}

func (r *REST) attempt(ctx context.Context, req Request, body []byte) (*Response, error) {
	u := r.base.JoinPath(req.Path)
	if req.URL != "" {
		abs, err := url.Parse(req.URL)
		if err != nil || abs.Scheme == "" || abs.Host == "" {
			return nil, NewMalformedRequestError(fmt.Sprintf("invalid URL %q", req.URL), err)
		}
		u = abs
	}
	if len(req.Query) > 0 {
		u.RawQuery = req.Query.Encode()
	}
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	hreq, err := http.NewRequestWithContext(ctx, method, u.String(), rdr)
	if err != nil {
		return nil, NewMalformedRequestError("build request", err)
	}
	for k, vs := range r.headers {
		hreq.Header[k] = vs
	}
	for k, vs := range req.Header {
		hreq.Header[k] = vs
	}
	if req.ContentType != "" {
		hreq.Header.Set("Content-Type", req.ContentType)
	}
	if hreq.Header.Get("Accept") == "" {
		hreq.Header.Set("Accept", "application/json")
	}
	if r.decorate != nil {
		if err := r.decorate(ctx, hreq); err != nil {
			return nil, Classify(err)
		}
	}

	hresp, err := r.http.Do(hreq)
	if err != nil {
		return nil, Classify(err)
	}
	defer hresp.Body.Close()

	if hresp.StatusCode >= 400 {
		b, _ := readLimited(hresp.Body, maxErrorBody)
		return nil, FromStatus(hresp.StatusCode, errorMessage(b), hresp.Header)
	}
	b, err := io.ReadAll(hresp.Body)
	if err != nil {
		return nil, Classify(err)
	}
	return &Response{Status: hresp.StatusCode, ContentType: hresp.Header.Get("Content-Type"), Body: b}, nil
}

// errorMessage extracts a human readable message from the common JSON error
// envelopes ({"message":...}, {"error":{"message":...}}, {"error":"..."}).
func errorMessage(body []byte) string {
	var env struct {
		Message string          `json:"message"`
		Info    string          `json:"info"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		s := strings.TrimSpace(string(body))
		if len(s) > 200 {
			s = s[:200]
		}
		return s
	}
	if env.Message != "" {
		return env.Message
	}
	if len(env.Error) > 0 {
		var nested struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(env.Error, &nested) == nil && nested.Message != "" {
			return nested.Message
		}
		var s string
		if json.Unmarshal(env.Error, &s) == nil {
			return s
		}
	}
	return env.Info
}
