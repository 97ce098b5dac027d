package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/connectorhub/internal/credentials"
)

func mapSource(m map[string]string) Source {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestFromSourceDefaults(t *testing.T) {
	cfg, err := FromSource(mapSource(map[string]string{"CONNECTORHUB_TOKEN_DIR": "/tmp/tokens"}))
	require.NoError(t, err)

	assert.Equal(t, "/tmp/tokens", cfg.TokenDir)
	assert.Equal(t, filepath.Join("/tmp/tokens", ServiceGmail), cfg.ServiceDir(ServiceGmail))
	assert.Nil(t, cfg.EncryptionKey)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)

	assert.Equal(t, AuthInteractive, cfg.Gmail.Auth)
	assert.Equal(t, AuthInteractive, cfg.Calendar.Auth)
	assert.Equal(t, AuthStatic, cfg.Notion.Auth)
	assert.Equal(t, DefaultCalDAVURL, cfg.CalDAV.BaseURL)
	assert.Equal(t, DefaultNotionBaseURL, cfg.Notion.BaseURL)
	assert.Equal(t, DefaultNotionVersion, cfg.NotionVersion)
	assert.Equal(t, DefaultHoldedBaseURL, cfg.Holded.BaseURL)
	assert.Equal(t, "https://graph.facebook.com/v18.0", cfg.WhatsApp.BaseURL)
	assert.Nil(t, cfg.Notion.Secrets)
	assert.False(t, cfg.Google.Configured())
}

func TestFromSourceServices(t *testing.T) {
	cfg, err := FromSource(mapSource(map[string]string{
		"CONNECTORHUB_TOKEN_DIR":        "/tmp/t",
		"DEBUG":                         "true",
		"GOOGLE_CLIENT_ID":              "id",
		"GOOGLE_CLIENT_SECRET":          "secret",
		"GMAIL_DEFAULT_ACCOUNT":         "me@example.com",
		"GMAIL_REFRESH_TOKEN":           "rt",
		"CALENDAR_AUTH_STRATEGY":        "Static",
		"APPLE_CALENDAR_USERNAME":       "me@icloud.com",
		"APPLE_CALENDAR_PASSWORD":       "app-pass",
		"NOTION_API_KEY":                "secret_n",
		"HOLDED_API_KEY":                "hk",
		"WHATSAPP_ACCESS_TOKEN":         "wa",
		"WHATSAPP_PHONE_NUMBER_ID":      "123",
		"WHATSAPP_API_VERSION":          "v20.0",
		"WHATSAPP_WEBHOOK_VERIFY_TOKEN": "verify",
		"WHATSAPP_APP_SECRET":           "app",
	}))
	require.NoError(t, err)

	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.True(t, cfg.Google.Configured())
	assert.Equal(t, "me@example.com", cfg.Gmail.DefaultAccount)
	assert.Equal(t, AuthRefreshToken, cfg.Gmail.Auth, "a configured refresh token switches the default strategy")
	assert.Equal(t, AuthStatic, cfg.Calendar.Auth)

	assert.Equal(t, "me@icloud.com", cfg.CalDAV.DefaultAccount)
	assert.Equal(t, "app-pass", cfg.CalDAV.Secrets[credentials.ValuePassword])
	assert.Equal(t, DefaultCalDAVURL, cfg.CalDAV.Secrets[credentials.ValueURL])

	assert.Equal(t, "secret_n", cfg.Notion.Secrets[credentials.ValueAPIKey])
	assert.Equal(t, "hk", cfg.Holded.Secrets[credentials.ValueAPIKey])

	assert.Equal(t, "https://graph.facebook.com/v20.0", cfg.WhatsApp.BaseURL)
	assert.Equal(t, "123", cfg.WhatsApp.DefaultAccount)
	assert.Equal(t, "verify", cfg.WhatsApp.VerifyToken)
	assert.Equal(t, "app", cfg.WhatsApp.AppSecret)
	_, ok := cfg.WhatsApp.Secrets[credentials.ValueBusinessID]
	assert.False(t, ok)

	svc, ok := cfg.Service(ServiceWhatsApp)
	require.True(t, ok)
	assert.Equal(t, "123", svc.DefaultAccount)
	_, ok = cfg.Service("fax")
	assert.False(t, ok)
}

func TestFromSourceErrors(t *testing.T) {
	_, err := FromSource(mapSource(map[string]string{"CONNECTORHUB_TOKEN_DIR": "/t", "GMAIL_AUTH_STRATEGY": "magic"}))
	assert.ErrorContains(t, err, "GMAIL_AUTH_STRATEGY")

	_, err = FromSource(mapSource(map[string]string{"CONNECTORHUB_TOKEN_DIR": "/t", "CONNECTORHUB_ENCRYPTION_KEY": "c2hvcnQ="}))
	assert.ErrorContains(t, err, "CONNECTORHUB_ENCRYPTION_KEY")
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("CONNECTORHUB_TOKEN_DIR=/from/file\nHOLDED_API_KEY=file-key\n"), 0o600))
	t.Setenv("HOLDED_API_KEY", "env-key")

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "/from/file", cfg.TokenDir)
	assert.Equal(t, "env-key", cfg.Holded.Secrets[credentials.ValueAPIKey])
}

func TestGoogleOAuth2Config(t *testing.T) {
	cfg, err := GoogleOAuth{ClientID: "id", ClientSecret: "s"}.OAuth2Config("scope")
	require.NoError(t, err)
	assert.Equal(t, "id", cfg.ClientID)
	assert.Equal(t, []string{"scope"}, cfg.Scopes)

	_, err = GoogleOAuth{}.OAuth2Config()
	assert.ErrorIs(t, err, ErrNoGoogleClient)

	path := filepath.Join(t.TempDir(), "client.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"installed":{"client_id":"file-id","client_secret":"fs","auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token","redirect_uris":["http://localhost"]}}`), 0o600))
	cfg, err = GoogleOAuth{CredentialsFile: path}.OAuth2Config("scope")
	require.NoError(t, err)
	assert.Equal(t, "file-id", cfg.ClientID)
}
