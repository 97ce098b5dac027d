package credentials

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/teemow/connectorhub/internal/accounts"
	"github.com/teemow/connectorhub/internal/connector"
	"github.com/teemow/connectorhub/internal/logging"
)

// DefaultExpirySkew treats tokens expiring within a minute as expired.
const DefaultExpirySkew = time.Minute

// Refresher exchanges a record's refresh token for a new access token.
type Refresher interface {
	Refresh(ctx context.Context, rec *Record) (*Record, error)
}

// OAuthRefresher refreshes through an oauth2 token endpoint.
type OAuthRefresher struct {
	Config     *oauth2.Config
	HTTPClient *http.Client
}

// Refresh trades rec's refresh token for a new access token. A rotated
// refresh token replaces the stored one.
func (r OAuthRefresher) Refresh(ctx context.Context, rec *Record) (*Record, error) {
	if r.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, r.HTTPClient)
	}
	// An empty access token forces the token source to hit the endpoint even
	// when the stored expiry is still within oauth2's own leeway.
	tok, err := r.Config.TokenSource(ctx, &oauth2.Token{RefreshToken: rec.RefreshToken}).Token()
	if err != nil {
		return nil, err
	}
	out := rec.Clone()
	out.AccessToken = tok.AccessToken
	out.TokenType = tok.TokenType
	out.Expiry = tok.Expiry
	if tok.RefreshToken != "" {
		out.RefreshToken = tok.RefreshToken
	}
	return out, nil
}

// RefreshObserver is notified of every refresh and authorization outcome.
type RefreshObserver interface {
	ObserveCredential(ctx context.Context, service, event string, err error)
}

// Credential events reported to a RefreshObserver.
const (
	EventRefresh   = "refresh"
	EventAuthorize = "authorize"
	EventRevoke    = "revoke"
)

// Manager owns the handlers of one service, one handler per account.
type Manager struct {
	service    string
	store      *Store
	authorizer Authorizer
	refresher  Refresher
	observer   RefreshObserver
	logger     *slog.Logger
	skew       time.Duration
	now        func() time.Time

	mu       sync.Mutex
	handlers map[string]*Handler
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithRefresher sets how expired access tokens are renewed.
func WithRefresher(r Refresher) ManagerOption {
	return func(m *Manager) { m.refresher = r }
}

// WithObserver reports refresh and authorization outcomes to o.
func WithObserver(o RefreshObserver) ManagerOption {
	return func(m *Manager) { m.observer = o }
}

// WithLogger replaces slog.Default.
func WithLogger(l *slog.Logger) ManagerOption {
	return func(m *Manager) { m.logger = l }
}

// WithClock replaces time.Now when checking token expiry.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

// WithExpirySkew treats tokens expiring within d as already expired.
func WithExpirySkew(d time.Duration) ManagerOption {
	return func(m *Manager) { m.skew = d }
}

// NewManager creates the credential manager of service.
func NewManager(service string, store *Store, authorizer Authorizer, opts ...ManagerOption) *Manager {
	m := &Manager{
		service:    service,
		store:      store,
		authorizer: authorizer,
		logger:     slog.Default(),
		skew:       DefaultExpirySkew,
		now:        time.Now,
		handlers:   make(map[string]*Handler),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.authorizer == nil {
		m.authorizer = Unavailable{}
	}
	m.logger = logging.WithService(m.logger, service)
	return m
}

// Handler returns the handler of account, creating it on first use.
func (m *Manager) Handler(account string) *Handler {
	id := accounts.Normalize(account)
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.handlers[id]
	if !ok {
		h = &Handler{m: m, account: id}
		m.handlers[id] = h
	}
	return h
}

// EnsureValid is a shortcut for Handler(account).EnsureValid.
func (m *Manager) EnsureValid(ctx context.Context, account string) (*Record, error) {
	return m.Handler(account).EnsureValid(ctx)
}

// Revoke is a shortcut for Handler(account).Revoke.
func (m *Manager) Revoke(ctx context.Context, account string) error {
	return m.Handler(account).Revoke(ctx)
}

// Put stores rec for account, replacing any existing record. It is how
// static secrets supplied by a caller enter the store.
func (m *Manager) Put(account string, rec *Record) error {
	return m.Handler(account).put(rec)
}

// Accounts lists accounts with a persisted record.
func (m *Manager) Accounts() ([]string, error) {
	return m.store.List()
}

func (m *Manager) observe(ctx context.Context, event string, err error) {
	if m.observer != nil {
		m.observer.ObserveCredential(ctx, m.service, event, err)
	}
}

// Handler drives the credential state machine of one account.
type Handler struct {
	m       *Manager
	account string

	mu  sync.Mutex
	rec *Record
}

// Account returns the normalized account identifier.
func (h *Handler) Account() string { return h.account }

// Load reads the persisted record.
func (h *Handler) Load() (*Record, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.loadLocked(); err != nil {
		return nil, err
	}
	return h.rec.Clone(), nil
}

func (h *Handler) loadLocked() error {
	if h.rec != nil {
		return nil
	}
	rec, err := h.m.store.Load(h.account)
	if err != nil {
		return err
	}
	h.rec = rec
	return nil
}

// EnsureValid returns a usable credential. An expired token is refreshed; a
// missing credential, or one whose refresh token was rejected, is obtained
// from the authorizer. Network failures while refreshing are returned as
// transient errors for the caller's retry policy.
func (h *Handler) EnsureValid(ctx context.Context) (*Record, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.loadLocked(); err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	now := h.m.now()
	if h.rec.Valid(now, h.m.skew) {
		return h.rec.Clone(), nil
	}

	if h.rec != nil && h.rec.RefreshToken != "" && h.m.refresher != nil {
		rec, err := h.refreshLocked(ctx, h.rec)
		if err == nil {
			return rec, nil
		}
		if !connector.IsKind(err, connector.KindAuthentication) {
			return nil, err
		}
		h.m.logger.Warn("refresh token rejected, starting authorization", logging.Account(h.account), logging.Err(err))
		h.rec = nil
		if derr := h.m.store.Delete(h.account); derr != nil {
			return nil, derr
		}
	}

	rec, err := h.m.authorizer.Authorize(ctx, h.account)
	h.m.observe(ctx, EventAuthorize, err)
	if err != nil {
		if errors.Is(err, ErrNotProvisioned) {
			return nil, connector.NewAuthenticationError("no credentials available", err)
		}
		var ce *connector.Error
		if errors.As(err, &ce) {
			return nil, err
		}
		return nil, connector.NewAuthenticationError("authorization failed", err)
	}
	if rec.Account == "" {
		rec.Account = h.account
	}

	// Pre-provisioned refresh tokens arrive without an access token. A
	// rejection here is final; looping back into authorization would never
	// end.
	if !rec.Valid(h.m.now(), h.m.skew) {
		if rec.RefreshToken == "" || h.m.refresher == nil {
			return nil, connector.NewAuthenticationError("authorizer returned an unusable credential", nil)
		}
		return h.refreshLocked(ctx, rec)
	}

	if err := h.saveLocked(rec); err != nil {
		return nil, err
	}
	h.m.logger.Info("account authorized", logging.Account(h.account))
	return rec.Clone(), nil
}

func (h *Handler) refreshLocked(ctx context.Context, rec *Record) (*Record, error) {
	fresh, err := h.m.refresher.Refresh(ctx, rec)
	if err != nil {
		cerr := connector.Classify(err)
		h.m.observe(ctx, EventRefresh, cerr)
		var ce *connector.Error
		if !errors.As(cerr, &ce) {
			cerr = connector.NewAuthenticationError("refresh failed", err)
		}
		return nil, cerr
	}
	h.m.observe(ctx, EventRefresh, nil)
	if err := h.saveLocked(fresh); err != nil {
		return nil, err
	}
	h.m.logger.Debug("token refreshed", logging.Account(h.account))
	return fresh.Clone(), nil
}

func (h *Handler) saveLocked(rec *Record) error {
	if err := h.m.store.Save(h.account, rec); err != nil {
		return err
	}
	h.rec = rec.Clone()
	h.rec.Account = h.account
	return nil
}

func (h *Handler) put(rec *Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.saveLocked(rec)
}

// Revoke deletes the persisted credential. The next EnsureValid starts the
// authorization flow again.
func (h *Handler) Revoke(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.rec = nil
	err := h.m.store.Delete(h.account)
	h.m.observe(ctx, EventRevoke, err)
	return err
}

// TokenSource adapts the handler to oauth2. Each Token call goes through
// EnsureValid, so oauth2 transports share the per-account serialization.
func (h *Handler) TokenSource(ctx context.Context) oauth2.TokenSource {
	return oauth2.ReuseTokenSource(nil, &tokenSource{ctx: context.WithoutCancel(ctx), h: h})
}

type tokenSource struct {
	ctx context.Context
	h   *Handler
}

func (s *tokenSource) Token() (*oauth2.Token, error) {
	rec, err := s.h.EnsureValid(s.ctx)
	if err != nil {
		return nil, err
	}
	return rec.Token(), nil
}
