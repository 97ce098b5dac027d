// Package config loads connectorhub settings from the environment.
//
// A .env file in the working directory is read first when present; real
// environment variables take precedence over it. Settings are read once at
// startup.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/teemow/connectorhub/internal/credentials"
	"github.com/teemow/connectorhub/internal/logging"
)

// Service names. They key credential directories, rate limits, metrics and
// the accounts CLI.
const (
	ServiceGmail    = "gmail"
	ServiceCalendar = "calendar"
	ServiceCalDAV   = "caldav"
	ServiceNotion   = "notion"
	ServiceHolded   = "holded"
	ServiceWhatsApp = "whatsapp"
)

// Services lists every service in display order.
var Services = []string{ServiceGmail, ServiceCalendar, ServiceCalDAV, ServiceNotion, ServiceHolded, ServiceWhatsApp}

// AuthStrategy selects how a service obtains credentials for an account that
// has none.
type AuthStrategy string

const (
	AuthInteractive  AuthStrategy = "interactive"
	AuthRefreshToken AuthStrategy = "refresh_token"
	AuthStatic       AuthStrategy = "static"
)

func parseAuthStrategy(s string, def AuthStrategy) (AuthStrategy, error) {
	switch AuthStrategy(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return def, nil
	case AuthInteractive:
		return AuthInteractive, nil
	case AuthRefreshToken:
		return AuthRefreshToken, nil
	case AuthStatic:
		return AuthStatic, nil
	default:
		return "", fmt.Errorf("unknown auth strategy %q (want interactive, refresh_token or static)", s)
	}
}

// Default endpoints.
const (
	DefaultCalDAVURL          = "https://caldav.icloud.com"
	DefaultNotionBaseURL      = "https://api.notion.com/v1"
	DefaultNotionVersion      = "2022-06-28"
	DefaultHoldedBaseURL      = "https://api.holded.com/api"
	DefaultWhatsAppBaseURL    = "https://graph.facebook.com"
	DefaultWhatsAppAPIVersion = "v18.0"
)

// GoogleOAuth is the OAuth client shared by Gmail and Google Calendar.
type GoogleOAuth struct {
	ClientID     string
	ClientSecret string
	// CredentialsFile is a client secret JSON as downloaded from the Google
	// console. It is used when ClientID is empty.
	CredentialsFile string
}

// Service holds the settings common to every connector.
type Service struct {
	Name           string
	BaseURL        string
	DefaultAccount string
	Auth           AuthStrategy
	// RefreshToken is a pre-provisioned refresh token for the default
	// account, used with AuthRefreshToken.
	RefreshToken string
	// Secrets are pre-provisioned static values (credentials.Value* keys)
	// used with AuthStatic.
	Secrets map[string]string
}

// WhatsApp adds the webhook settings to the service settings.
type WhatsApp struct {
	Service
	APIVersion  string
	VerifyToken string
	AppSecret   string
}

// Config is the connectorhub configuration.
type Config struct {
	TokenDir      string
	EncryptionKey []byte
	LogLevel      slog.Level

	Google   GoogleOAuth
	Gmail    Service
	Calendar Service
	CalDAV   Service
	Notion   Service
	Holded   Service
	WhatsApp WhatsApp

	NotionVersion string
}

// Source looks up an environment variable.
type Source func(key string) (string, bool)

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromSource(os.LookupEnv)
}

// LoadFile reads settings from the dotenv file at path, with the process
// environment taking precedence.
func LoadFile(path string) (*Config, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return FromSource(func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := values[key]
		return v, ok
	})
}

// FromSource builds a Config from an arbitrary lookup.
func FromSource(lookup Source) (*Config, error) {
	env := func(key, def string) string {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return def
	}

	cfg := &Config{
		LogLevel: logging.ParseLevel(env("LOG_LEVEL", "info")),
		Google: GoogleOAuth{
			ClientID:        env("GOOGLE_CLIENT_ID", ""),
			ClientSecret:    env("GOOGLE_CLIENT_SECRET", ""),
			CredentialsFile: env("GMAIL_CREDENTIALS_FILE", ""),
		},
		NotionVersion: env("NOTION_VERSION", DefaultNotionVersion),
	}
	if b, err := strconv.ParseBool(env("DEBUG", "false")); err == nil && b {
		cfg.LogLevel = slog.LevelDebug
	}

	cfg.TokenDir = env("CONNECTORHUB_TOKEN_DIR", env("GMAIL_TOKENS_DIR", ""))
	if cfg.TokenDir == "" {
		dir, err := defaultTokenDir()
		if err != nil {
			return nil, err
		}
		cfg.TokenDir = dir
	}

	key, err := credentials.KeyFromBase64(env("CONNECTORHUB_ENCRYPTION_KEY", ""))
	if err != nil {
		return nil, fmt.Errorf("CONNECTORHUB_ENCRYPTION_KEY: %w", err)
	}
	cfg.EncryptionKey = key

	googleDefault := AuthInteractive
	build := func(name, prefix string, def AuthStrategy) (Service, error) {
		s := Service{
			Name:           name,
			DefaultAccount: env(prefix+"_DEFAULT_ACCOUNT", ""),
			RefreshToken:   env(prefix+"_REFRESH_TOKEN", ""),
		}
		if s.RefreshToken != "" && def == AuthInteractive {
			def = AuthRefreshToken
		}
		auth, err := parseAuthStrategy(env(prefix+"_AUTH_STRATEGY", ""), def)
		if err != nil {
			return s, fmt.Errorf("%s_AUTH_STRATEGY: %w", prefix, err)
		}
		s.Auth = auth
		return s, nil
	}

	if cfg.Gmail, err = build(ServiceGmail, "GMAIL", googleDefault); err != nil {
		return nil, err
	}
	if cfg.Calendar, err = build(ServiceCalendar, "CALENDAR", googleDefault); err != nil {
		return nil, err
	}
	if cfg.CalDAV, err = build(ServiceCalDAV, "APPLE_CALENDAR", AuthStatic); err != nil {
		return nil, err
	}
	cfg.CalDAV.BaseURL = env("APPLE_CALENDAR_URL", DefaultCalDAVURL)
	cfg.CalDAV.Secrets = secrets(map[string]string{
		credentials.ValueUsername: env("APPLE_CALENDAR_USERNAME", ""),
		credentials.ValuePassword: env("APPLE_CALENDAR_PASSWORD", ""),
	})
	if cfg.CalDAV.Secrets != nil {
		cfg.CalDAV.Secrets[credentials.ValueURL] = cfg.CalDAV.BaseURL
		if cfg.CalDAV.DefaultAccount == "" {
			cfg.CalDAV.DefaultAccount = cfg.CalDAV.Secrets[credentials.ValueUsername]
		}
	}

	if cfg.Notion, err = build(ServiceNotion, "NOTION", AuthStatic); err != nil {
		return nil, err
	}
	cfg.Notion.BaseURL = env("NOTION_API_BASE_URL", DefaultNotionBaseURL)
	cfg.Notion.Secrets = secrets(map[string]string{credentials.ValueAPIKey: env("NOTION_API_KEY", "")})

	if cfg.Holded, err = build(ServiceHolded, "HOLDED", AuthStatic); err != nil {
		return nil, err
	}
	cfg.Holded.BaseURL = env("HOLDED_API_BASE_URL", DefaultHoldedBaseURL)
	cfg.Holded.Secrets = secrets(map[string]string{credentials.ValueAPIKey: env("HOLDED_API_KEY", "")})

	wa, err := build(ServiceWhatsApp, "WHATSAPP", AuthStatic)
	if err != nil {
		return nil, err
	}
	cfg.WhatsApp = WhatsApp{
		Service:     wa,
		APIVersion:  env("WHATSAPP_API_VERSION", DefaultWhatsAppAPIVersion),
		VerifyToken: env("WHATSAPP_WEBHOOK_VERIFY_TOKEN", ""),
		AppSecret:   env("WHATSAPP_APP_SECRET", ""),
	}
	cfg.WhatsApp.BaseURL = strings.TrimRight(env("WHATSAPP_API_BASE_URL", DefaultWhatsAppBaseURL), "/") + "/" + cfg.WhatsApp.APIVersion
	cfg.WhatsApp.Secrets = secrets(map[string]string{
		credentials.ValueAPIKey:        env("WHATSAPP_ACCESS_TOKEN", ""),
		credentials.ValuePhoneNumberID: env("WHATSAPP_PHONE_NUMBER_ID", ""),
		credentials.ValueBusinessID:    env("WHATSAPP_BUSINESS_ACCOUNT_ID", ""),
	})
	if cfg.WhatsApp.Secrets != nil && cfg.WhatsApp.DefaultAccount == "" {
		cfg.WhatsApp.DefaultAccount = cfg.WhatsApp.Secrets[credentials.ValuePhoneNumberID]
	}

	return cfg, nil
}

// ServiceDir is the credential directory of a service.
func (c *Config) ServiceDir(service string) string {
	return filepath.Join(c.TokenDir, service)
}

// Service returns the common settings of a service by name.
func (c *Config) Service(name string) (Service, bool) {
	switch name {
	case ServiceGmail:
		return c.Gmail, true
	case ServiceCalendar:
		return c.Calendar, true
	case ServiceCalDAV:
		return c.CalDAV, true
	case ServiceNotion:
		return c.Notion, true
	case ServiceHolded:
		return c.Holded, true
	case ServiceWhatsApp:
		return c.WhatsApp.Service, true
	}
	return Service{}, false
}

// secrets drops empty values and returns nil when nothing is left.
func secrets(m map[string]string) map[string]string {
	for k, v := range m {
		if v == "" {
			delete(m, k)
		}
	}
	if len(m) == 0 {
		return nil
	}
	return m
}

func defaultTokenDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("determine config directory: %w", err)
	}
	return filepath.Join(dir, "connectorhub", "tokens"), nil
}
