package credentials

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"github.com/teemow/connectorhub/internal/accounts"
	"github.com/teemow/connectorhub/internal/connector"
)

// Authorizer obtains a fresh credential for an account that has none, or
// whose refresh token was rejected.
type Authorizer interface {
	Authorize(ctx context.Context, account string) (*Record, error)
}

// AuthorizerFunc adapts a function to Authorizer.
type AuthorizerFunc func(ctx context.Context, account string) (*Record, error)

func (f AuthorizerFunc) Authorize(ctx context.Context, account string) (*Record, error) {
	return f(ctx, account)
}

// ErrNotProvisioned is returned by pre-provisioned authorizers that hold
// nothing for the requested account. Chain moves on to the next authorizer.
var ErrNotProvisioned = errors.New("no pre-provisioned credential for account")

// Wildcard matches any account in the pre-provisioned authorizers.
const Wildcard = "*"

// RefreshToken authorizes with refresh tokens supplied through configuration.
// The returned record has no access token, so the handler refreshes it
// before first use.
type RefreshToken struct {
	// Tokens maps account to refresh token. Wildcard applies to any account.
	Tokens map[string]string
	Scopes []string
}

func (a RefreshToken) Authorize(_ context.Context, account string) (*Record, error) {
	tok := lookup(a.Tokens, account)
	if tok == "" {
		return nil, fmt.Errorf("%w %s", ErrNotProvisioned, account)
	}
	return &Record{Account: account, RefreshToken: tok, Scopes: a.Scopes}, nil
}

// Static authorizes with static secrets such as API keys.
type Static struct {
	// Values maps account to its secrets. Wildcard applies to any account.
	Values map[string]map[string]string
}

// Authorize returns a copy of the secrets for account, falling back to
// Wildcard. It fails with ErrNotProvisioned when neither is present.
func (a Static) Authorize(_ context.Context, account string) (*Record, error) {
	v, ok := a.Values[accounts.Normalize(account)]
	if !ok {
		v, ok = a.Values[Wildcard]
	}
	if !ok || len(v) == 0 {
		return nil, fmt.Errorf("%w %s", ErrNotProvisioned, account)
	}
	return &Record{Account: account, Values: maps.Clone(v)}, nil
}

// Unavailable fails every authorization. It is used for services whose
// accounts must be added explicitly with their secrets.
type Unavailable struct {
	Hint string
}

func (a Unavailable) Authorize(_ context.Context, account string) (*Record, error) {
	msg := fmt.Sprintf("no stored credentials for %s", account)
	if a.Hint != "" {
		msg += "; " + a.Hint
	}
	return nil, connector.NewAuthenticationError(msg, nil)
}

// Chain tries each authorizer in order, skipping those that report
// ErrNotProvisioned.
func Chain(authorizers ...Authorizer) Authorizer {
	return AuthorizerFunc(func(ctx context.Context, account string) (*Record, error) {
		for _, a := range authorizers {
			rec, err := a.Authorize(ctx, account)
			if errors.Is(err, ErrNotProvisioned) {
				continue
			}
			return rec, err
		}
		return nil, connector.NewAuthenticationError(fmt.Sprintf("no authorization strategy can provide credentials for %s", account), nil)
	})
}

func lookup(m map[string]string, account string) string {
	if v := m[accounts.Normalize(account)]; v != "" {
		return v
	}
	return m[Wildcard]
}
