package server

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"net/http"

	"golang.org/x/oauth2"
	"google.golang.org/api/option"

	"github.com/teemow/connectorhub/internal/accounts"
	"github.com/teemow/connectorhub/internal/caldav"
	"github.com/teemow/connectorhub/internal/calendar"
	"github.com/teemow/connectorhub/internal/config"
	"github.com/teemow/connectorhub/internal/connector"
	"github.com/teemow/connectorhub/internal/credentials"
	"github.com/teemow/connectorhub/internal/gmail"
	"github.com/teemow/connectorhub/internal/holded"
	"github.com/teemow/connectorhub/internal/logging"
	"github.com/teemow/connectorhub/internal/notion"
	"github.com/teemow/connectorhub/internal/whatsapp"
)

// DefaultAccount is the account pre-provisioned secrets are stored under
// when no default account is configured.
const DefaultAccount = "default"

// Connector bundles the credential and account management of one service.
type Connector struct {
	Name        string
	Credentials *credentials.Manager
	Accounts    accounts.Admin
	// Required and Optional name the credential values accepted when an
	// account is added with explicit secrets. OAuth services have none and
	// accept only a refresh token.
	Required []string
	Optional []string
	OAuth    bool

	defaults map[string]string
}

// AddAccount registers account. With secrets, they are stored as the
// account's credential first; without, the service's authorization strategy
// runs when the client is created.
func (c *Connector) AddAccount(ctx context.Context, account string, secrets map[string]string, makeDefault bool) connector.Result[accounts.Summary] {
	stored := false
	if len(secrets) > 0 {
		res := connector.Run("add account", func() (accounts.Summary, error) {
			rec, err := c.record(account, secrets)
			if err != nil {
				return accounts.Summary{}, err
			}
			return accounts.Summary{}, c.Credentials.Put(account, rec)
		})
		if !res.Success {
			return res
		}
		stored = true
	}
	res := c.Accounts.AddAccount(ctx, account, makeDefault)
	if !res.Success && stored {
		_ = c.Credentials.Revoke(ctx, account)
	}
	return res
}

func (c *Connector) record(account string, secrets map[string]string) (*credentials.Record, error) {
	if c.OAuth {
		tok := secrets["refresh_token"]
		if tok == "" || len(secrets) > 1 {
			return nil, connector.Invalidf("%s accounts accept only a refresh_token", c.Name)
		}
		return &credentials.Record{Account: account, RefreshToken: tok}, nil
	}

	values := maps.Clone(c.defaults)
	if values == nil {
		values = make(map[string]string)
	}
	for k, v := range secrets {
		if !c.accepts(k) {
			return nil, connector.Invalidf("%s does not use credential value %q", c.Name, k)
		}
		if v != "" {
			values[k] = v
		}
	}
	for _, k := range c.Required {
		if values[k] == "" {
			return nil, connector.Required(k)
		}
	}
	return &credentials.Record{Account: account, Values: values}, nil
}

func (c *Connector) accepts(key string) bool {
	for _, k := range c.Required {
		if k == key {
			return true
		}
	}
	for _, k := range c.Optional {
		if k == key {
			return true
		}
	}
	return false
}

// provisionedAccount is the account that pre-provisioned secrets of svc
// belong to.
func provisionedAccount(svc config.Service) string {
	if svc.DefaultAccount != "" {
		return svc.DefaultAccount
	}
	return DefaultAccount
}

func addHint(service string) string {
	return fmt.Sprintf("add it with 'connectorhub accounts add %s <account>'", service)
}

func (sc *ServerContext) buildConnectors() error {
	enc, err := credentials.NewEncryptor(sc.cfg.EncryptionKey)
	if err != nil {
		return fmt.Errorf("credential encryption: %w", err)
	}

	gm, gmCreds, err := googleAccounts(sc, enc, sc.cfg.Gmail, gmail.Scopes,
		func(ctx context.Context, account string, opts []option.ClientOption) (gmail.API, error) {
			c, err := gmail.NewClient(ctx, account, sc.caller(config.ServiceGmail), opts...)
			if err != nil {
				return nil, err
			}
			return c, nil
		})
	if err != nil {
		return err
	}
	sc.gmail = gmail.NewService(gm)
	sc.connectors[config.ServiceGmail] = &Connector{Name: config.ServiceGmail, Credentials: gmCreds, Accounts: gm, OAuth: true}

	gc, gcCreds, err := googleAccounts(sc, enc, sc.cfg.Calendar, calendar.Scopes,
		func(ctx context.Context, account string, opts []option.ClientOption) (calendar.API, error) {
			c, err := calendar.NewClient(ctx, account, sc.caller(config.ServiceCalendar), opts...)
			if err != nil {
				return nil, err
			}
			return c, nil
		})
	if err != nil {
		return err
	}
	sc.connectors[config.ServiceCalendar] = &Connector{Name: config.ServiceCalendar, Credentials: gcCreds, Accounts: gc, OAuth: true}

	apple, appleCreds, err := staticAccounts(sc, enc, sc.cfg.CalDAV,
		func(ctx context.Context, account string, rec *credentials.Record) (calendar.API, error) {
			if rec.Value(credentials.ValueURL) == "" {
				rec = rec.Clone()
				if rec.Values == nil {
					rec.Values = make(map[string]string)
				}
				rec.Values[credentials.ValueURL] = sc.cfg.CalDAV.BaseURL
			}
			hc := connector.NewHTTPClient(config.ServiceCalDAV, sc.transport, sc.logger)
			c, err := caldav.NewClient(account, rec, hc, sc.caller(config.ServiceCalDAV))
			if err != nil {
				return nil, err
			}
			return c, nil
		})
	if err != nil {
		return err
	}
	sc.calendar = calendar.NewService(gc, apple)
	sc.connectors[config.ServiceCalDAV] = &Connector{
		Name:        config.ServiceCalDAV,
		Credentials: appleCreds,
		Accounts:    apple,
		Required:    []string{credentials.ValueUsername, credentials.ValuePassword},
		Optional:    []string{credentials.ValueURL},
		defaults:    map[string]string{credentials.ValueURL: sc.cfg.CalDAV.BaseURL},
	}

	notionCreds, err := sc.credentialManager(enc, sc.cfg.Notion, nil, nil)
	if err != nil {
		return err
	}
	nm := newAccounts(sc, sc.cfg.Notion, notionCreds, func(ctx context.Context, account string) (notion.API, error) {
		h := notionCreds.Handler(account)
		if _, err := h.EnsureValid(ctx); err != nil {
			return nil, err
		}
		auth := connector.BearerToken(func(ctx context.Context) (string, error) {
			rec, err := h.EnsureValid(ctx)
			if err != nil {
				return "", err
			}
			if key := rec.Value(credentials.ValueAPIKey); key != "" {
				return key, nil
			}
			return rec.AccessToken, nil
		})
		c, err := notion.NewClient(account, sc.cfg.Notion.BaseURL, sc.cfg.NotionVersion, auth, sc.restOptions(config.ServiceNotion)...)
		if err != nil {
			return nil, err
		}
		return c, nil
	})
	sc.notion = notion.NewService(nm)
	sc.connectors[config.ServiceNotion] = &Connector{
		Name:        config.ServiceNotion,
		Credentials: notionCreds,
		Accounts:    nm,
		Required:    []string{credentials.ValueAPIKey},
	}

	hm, holdedCreds, err := staticAccounts(sc, enc, sc.cfg.Holded,
		func(_ context.Context, account string, rec *credentials.Record) (holded.API, error) {
			c, err := holded.NewClient(account, sc.cfg.Holded.BaseURL, rec.Value(credentials.ValueAPIKey), sc.restOptions(config.ServiceHolded)...)
			if err != nil {
				return nil, err
			}
			return c, nil
		})
	if err != nil {
		return err
	}
	sc.holded = holded.NewService(hm)
	sc.connectors[config.ServiceHolded] = &Connector{
		Name:        config.ServiceHolded,
		Credentials: holdedCreds,
		Accounts:    hm,
		Required:    []string{credentials.ValueAPIKey},
	}

	wm, waCreds, err := staticAccounts(sc, enc, sc.cfg.WhatsApp.Service,
		func(_ context.Context, account string, rec *credentials.Record) (whatsapp.API, error) {
			token := rec.Value(credentials.ValueAPIKey)
			if token == "" {
				token = rec.AccessToken
			}
			c, err := whatsapp.NewClient(account, sc.cfg.WhatsApp.BaseURL, whatsapp.Credentials{
				AccessToken:       token,
				PhoneNumberID:     rec.Value(credentials.ValuePhoneNumberID),
				BusinessAccountID: rec.Value(credentials.ValueBusinessID),
			}, sc.restOptions(config.ServiceWhatsApp)...)
			if err != nil {
				return nil, err
			}
			return c, nil
		})
	if err != nil {
		return err
	}
	sc.whatsapp = whatsapp.NewService(wm)
	sc.connectors[config.ServiceWhatsApp] = &Connector{
		Name:        config.ServiceWhatsApp,
		Credentials: waCreds,
		Accounts:    wm,
		Required:    []string{credentials.ValueAPIKey, credentials.ValuePhoneNumberID},
		Optional:    []string{credentials.ValueBusinessID},
	}
	return nil
}

// caller returns a fresh caller for one account's client, so accounts do not
// share rate limits.
func (sc *ServerContext) caller(service string) *connector.Caller {
	c := connector.NewCaller(service)
	c.Observer = sc.metrics
	c.Logger = sc.logger
	return c
}

func (sc *ServerContext) restOptions(service string) []connector.RESTOption {
	return []connector.RESTOption{
		connector.WithCaller(sc.caller(service)),
		connector.WithHTTPClient(connector.NewHTTPClient(service, sc.transport, sc.logger)),
	}
}

// credentialManager builds the credential manager of svc. oauthCfg enables
// refreshing and, for the interactive strategy, the browser flow.
func (sc *ServerContext) credentialManager(enc *credentials.Encryptor, svc config.Service, oauthCfg *oauth2.Config, scopes []string) (*credentials.Manager, error) {
	store, err := credentials.NewStore(sc.cfg.ServiceDir(svc.Name), enc)
	if err != nil {
		return nil, fmt.Errorf("%s credential store: %w", svc.Name, err)
	}

	acct := accounts.Normalize(provisionedAccount(svc))
	var chain []credentials.Authorizer
	if svc.RefreshToken != "" {
		chain = append(chain, credentials.RefreshToken{Tokens: map[string]string{acct: svc.RefreshToken}, Scopes: scopes})
	}
	if len(svc.Secrets) > 0 {
		chain = append(chain, credentials.Static{Values: map[string]map[string]string{acct: svc.Secrets}})
	}
	hint := addHint(svc.Name)
	if oauthCfg != nil && svc.Auth == config.AuthInteractive {
		chain = append(chain, &credentials.Interactive{
			Config:      oauthCfg,
			Prompt:      sc.prompt,
			OpenBrowser: sc.openBrowser,
			HTTPClient:  connector.NewHTTPClient(svc.Name, sc.transport, sc.logger),
		})
	} else if oauthCfg == nil && svc.Auth != config.AuthStatic && (svc.Name == config.ServiceGmail || svc.Name == config.ServiceCalendar) {
		hint = config.ErrNoGoogleClient.Error()
	}
	chain = append(chain, credentials.Unavailable{Hint: hint})

	opts := []credentials.ManagerOption{
		credentials.WithObserver(sc.metrics),
		credentials.WithLogger(sc.logger),
	}
	if oauthCfg != nil {
		opts = append(opts, credentials.WithRefresher(credentials.OAuthRefresher{
			Config:     oauthCfg,
			HTTPClient: connector.NewHTTPClient(svc.Name, sc.transport, sc.logger),
		}))
	}
	return credentials.NewManager(svc.Name, store, credentials.Chain(chain...), opts...), nil
}

// newAccounts builds the account manager of svc and registers every account
// with a persisted or pre-provisioned credential.
func newAccounts[T any](sc *ServerContext, svc config.Service, creds *credentials.Manager, factory accounts.Factory[T]) *accounts.Manager[T] {
	m := accounts.NewManager(svc.Name, factory,
		accounts.WithKnown[T](func(account string) bool {
			_, err := creds.Handler(account).Load()
			return err == nil
		}),
		accounts.WithRevoke[T](creds.Revoke),
		accounts.WithLogger[T](sc.logger),
	)

	ids, err := creds.Accounts()
	if err != nil {
		sc.logger.Warn("listing stored accounts failed", logging.Service(svc.Name), logging.Err(err))
	}
	if svc.RefreshToken != "" || len(svc.Secrets) > 0 {
		ids = append(ids, provisionedAccount(svc))
	}
	m.Seed(ids, svc.DefaultAccount)
	return m
}

// googleAccounts wires a Google API service: the oauth2 transport draws
// tokens from the account's credential handler, so a refresh during a call
// is serialized with every other user of the account.
func googleAccounts[T any](sc *ServerContext, enc *credentials.Encryptor, svc config.Service, scopes []string,
	build func(ctx context.Context, account string, opts []option.ClientOption) (T, error),
) (*accounts.Manager[T], *credentials.Manager, error) {
	oauthCfg, err := sc.cfg.Google.OAuth2Config(scopes...)
	if err != nil {
		if !errors.Is(err, config.ErrNoGoogleClient) {
			return nil, nil, fmt.Errorf("%s: %w", svc.Name, err)
		}
		oauthCfg = nil
	}
	creds, err := sc.credentialManager(enc, svc, oauthCfg, scopes)
	if err != nil {
		return nil, nil, err
	}

	m := newAccounts(sc, svc, creds, func(ctx context.Context, account string) (T, error) {
		var zero T
		h := creds.Handler(account)
		if _, err := h.EnsureValid(ctx); err != nil {
			return zero, err
		}
		base := connector.NewHTTPClient(svc.Name, sc.transport, sc.logger)
		hc := &http.Client{
			Transport: &oauth2.Transport{Source: h.TokenSource(sc.ctx), Base: base.Transport},
			Timeout:   base.Timeout,
		}
		opts := []option.ClientOption{option.WithHTTPClient(hc)}
		if svc.BaseURL != "" {
			opts = append(opts, option.WithEndpoint(svc.BaseURL))
		}
		return build(ctx, account, opts)
	})
	return m, creds, nil
}

// staticAccounts wires a service whose clients are built from the account's
// stored record.
func staticAccounts[T any](sc *ServerContext, enc *credentials.Encryptor, svc config.Service,
	build func(ctx context.Context, account string, rec *credentials.Record) (T, error),
) (*accounts.Manager[T], *credentials.Manager, error) {
	creds, err := sc.credentialManager(enc, svc, nil, nil)
	if err != nil {
		return nil, nil, err
	}
	m := newAccounts(sc, svc, creds, func(ctx context.Context, account string) (T, error) {
		rec, err := creds.EnsureValid(ctx, account)
		if err != nil {
			var zero T
			return zero, err
		}
		return build(ctx, account, rec)
	})
	return m, creds, nil
}
