package accounts

import (
	"context"

	"github.com/teemow/connectorhub/internal/connector"
)

// Summary is the payload of the account management tools.
type Summary struct {
	Service  string   `json:"service"`
	Accounts []string `json:"accounts"`
	Default  string   `json:"default_account,omitempty"`
	Count    int      `json:"count"`
	// Account is the account the operation acted on, if any.
	Account string `json:"account,omitempty"`
}

// Admin is the account management surface of a Manager, independent of its
// handle type. The account tools and the accounts CLI work against it.
type Admin interface {
	Service() string
	ListAccounts() connector.Result[Summary]
	AddAccount(ctx context.Context, account string, makeDefault bool) connector.Result[Summary]
	SetDefaultAccount(account string) connector.Result[Summary]
	RemoveAccount(ctx context.Context, account string) connector.Result[Summary]
}

var _ Admin = (*Manager[struct{}])(nil)

func (m *Manager[T]) summary(account string) Summary {
	list := m.List()
	return Summary{
		Service:  m.service,
		Accounts: list,
		Default:  m.Default(),
		Count:    len(list),
		Account:  account,
	}
}

// ListAccounts reports the registered accounts and the default.
func (m *Manager[T]) ListAccounts() connector.Result[Summary] {
	return connector.Ok(m.summary(""))
}

// AddAccount registers account, running the authorization flow if it has no
// credential yet. makeDefault also makes it the default account.
func (m *Manager[T]) AddAccount(ctx context.Context, account string, makeDefault bool) connector.Result[Summary] {
	return connector.Run("add account", func() (Summary, error) {
		if _, err := m.Register(ctx, account); err != nil {
			return Summary{}, err
		}
		if makeDefault {
			if err := m.SetDefault(account); err != nil {
				return Summary{}, err
			}
		}
		return m.summary(Normalize(account)), nil
	})
}

// SetDefaultAccount changes the default account.
func (m *Manager[T]) SetDefaultAccount(account string) connector.Result[Summary] {
	return connector.Run("set default account", func() (Summary, error) {
		if err := m.SetDefault(account); err != nil {
			return Summary{}, err
		}
		return m.summary(Normalize(account)), nil
	})
}

// RemoveAccount unregisters account and deletes its credential.
func (m *Manager[T]) RemoveAccount(ctx context.Context, account string) connector.Result[Summary] {
	return connector.Run("remove account", func() (Summary, error) {
		if err := m.Remove(ctx, account); err != nil {
			return Summary{}, err
		}
		return m.summary(Normalize(account)), nil
	})
}
