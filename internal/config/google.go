package config

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// ErrNoGoogleClient is returned when neither a client id nor a credentials
// file is configured.
var ErrNoGoogleClient = errors.New("google OAuth client is not configured (set GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET or GMAIL_CREDENTIALS_FILE)")

// OAuth2Config returns the oauth2 configuration for the given scopes. The
// redirect URL is filled in by the interactive authorizer.
func (g GoogleOAuth) OAuth2Config(scopes ...string) (*oauth2.Config, error) {
	if g.ClientID != "" {
		return &oauth2.Config{
			ClientID:     g.ClientID,
			ClientSecret: g.ClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       scopes,
		}, nil
	}
	if g.CredentialsFile == "" {
		return nil, ErrNoGoogleClient
	}
	data, err := os.ReadFile(g.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read google credentials file: %w", err)
	}
	cfg, err := google.ConfigFromJSON(data, scopes...)
	if err != nil {
		return nil, fmt.Errorf("parse google credentials file: %w", err)
	}
	return cfg, nil
}

// Configured reports whether an OAuth client is available.
func (g GoogleOAuth) Configured() bool {
	return g.ClientID != "" || g.CredentialsFile != ""
}
