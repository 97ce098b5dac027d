package accounts

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/teemow/connectorhub/internal/connector"
	"github.com/teemow/connectorhub/internal/logging"
)

// Factory builds the client handle for account. It usually ensures a valid
// credential first, which may block on interactive authorization.
type Factory[T any] func(ctx context.Context, account string) (T, error)

// RevokeFunc discards the persisted credential of account.
type RevokeFunc func(ctx context.Context, account string) error

// Normalize returns the canonical form of an account identifier. Identifiers
// are compared case-insensitively.
func Normalize(account string) string {
	return strings.ToLower(strings.TrimSpace(account))
}

type entry[T any] struct {
	done   chan struct{}
	handle T
	err    error
}

// Manager owns the handles of one connector.
type Manager[T any] struct {
	service string
	factory Factory[T]
	revoke  RevokeFunc
	known   func(account string) bool
	logger  *slog.Logger

	mu         sync.Mutex
	registered map[string]bool
	handles    map[string]*entry[T]
	def        string
}

// Option configures a Manager.
type Option[T any] func(*Manager[T])

// WithRevoke sets the hook run by Remove.
func WithRevoke[T any](fn RevokeFunc) Option[T] {
	return func(m *Manager[T]) { m.revoke = fn }
}

// WithKnown registers accounts on first resolution when known reports a
// persisted credential for them, e.g. one added from the CLI while the
// server was running.
func WithKnown[T any](known func(account string) bool) Option[T] {
	return func(m *Manager[T]) { m.known = known }
}

// WithLogger sets the logger.
func WithLogger[T any](l *slog.Logger) Option[T] {
	return func(m *Manager[T]) { m.logger = l }
}

// NewManager creates a manager for service.
func NewManager[T any](service string, factory Factory[T], opts ...Option[T]) *Manager[T] {
	m := &Manager[T]{
		service:    service,
		factory:    factory,
		logger:     slog.Default(),
		registered: make(map[string]bool),
		handles:    make(map[string]*entry[T]),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = logging.WithService(m.logger, service)
	return m
}

// Service returns the connector name.
func (m *Manager[T]) Service() string { return m.service }

// Seed registers accounts known from persisted credentials without creating
// handles. A non-empty def becomes the default; otherwise the first seeded
// account does, unless a default already exists.
func (m *Manager[T]) Seed(ids []string, def string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		id = Normalize(id)
		if id == "" {
			continue
		}
		m.registered[id] = true
		if m.def == "" {
			m.def = id
		}
	}
	if def = Normalize(def); def != "" {
		m.registered[def] = true
		m.def = def
	}
}

// Resolve returns the handle for account, or for the default account when
// account is empty. The handle is created on first use.
func (m *Manager[T]) Resolve(ctx context.Context, account string) (T, error) {
	id := Normalize(account)
	if id == "" {
		m.mu.Lock()
		id = m.def
		m.mu.Unlock()
		if id == "" {
			var zero T
			return zero, connector.NewNoDefaultAccountError(m.service)
		}
	}
	return m.handle(ctx, id)
}

// Register adds account and creates its handle. The first registered account
// becomes the default. A failed handle creation leaves the account
// unregistered unless it was known before.
func (m *Manager[T]) Register(ctx context.Context, account string) (T, error) {
	var zero T
	id := Normalize(account)
	if id == "" {
		return zero, connector.Invalidf("account identifier is required")
	}

	m.mu.Lock()
	known := m.registered[id]
	m.registered[id] = true
	m.mu.Unlock()

	h, err := m.handle(ctx, id)
	if err != nil {
		if !known {
			m.mu.Lock()
			delete(m.registered, id)
			m.mu.Unlock()
		}
		return zero, err
	}

	m.mu.Lock()
	if m.def == "" {
		m.def = id
	}
	m.mu.Unlock()
	m.logger.Info("account registered", logging.Account(id))
	return h, nil
}

// SetDefault makes account the default.
func (m *Manager[T]) SetDefault(account string) error {
	id := Normalize(account)
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.registered[id] {
		return connector.NewUnknownAccountError(account)
	}
	m.def = id
	return nil
}

// Default returns the default account, or "" when none is set.
func (m *Manager[T]) Default() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.def
}

// List returns all registered accounts, sorted.
func (m *Manager[T]) List() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.registered))
	for id := range m.registered {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Remove drops the handle of account and revokes its credential. If it was
// the default, the first remaining account takes over.
func (m *Manager[T]) Remove(ctx context.Context, account string) error {
	id := Normalize(account)
	m.mu.Lock()
	if !m.registered[id] {
		m.mu.Unlock()
		return connector.NewUnknownAccountError(account)
	}
	delete(m.registered, id)
	delete(m.handles, id)
	if m.def == id {
		m.def = ""
		remaining := make([]string, 0, len(m.registered))
		for other := range m.registered {
			remaining = append(remaining, other)
		}
		sort.Strings(remaining)
		if len(remaining) > 0 {
			m.def = remaining[0]
		}
	}
	m.mu.Unlock()

	if m.revoke != nil {
		if err := m.revoke(ctx, id); err != nil {
			return err
		}
	}
	m.logger.Info("account removed", logging.Account(id))
	return nil
}

func (m *Manager[T]) handle(ctx context.Context, id string) (T, error) {
	var zero T

	m.mu.Lock()
	if !m.registered[id] {
		if m.known == nil || !m.known(id) {
			m.mu.Unlock()
			return zero, connector.NewUnknownAccountError(id)
		}
		m.registered[id] = true
		if m.def == "" {
			m.def = id
		}
	}
	e, ok := m.handles[id]
	if !ok {
		e = &entry[T]{done: make(chan struct{})}
		m.handles[id] = e
	}
	m.mu.Unlock()

	if !ok {
		e.handle, e.err = m.factory(ctx, id)
		if e.err != nil {
			m.mu.Lock()
			if m.handles[id] == e {
				delete(m.handles, id)
			}
			m.mu.Unlock()
			m.logger.Warn("client creation failed", logging.Account(id), logging.Err(e.err))
		}
		close(e.done)
	}

	select {
	case <-e.done:
	case <-ctx.Done():
		return zero, ctx.Err()
	}
	if e.err != nil {
		return zero, e.err
	}
	return e.handle, nil
}
