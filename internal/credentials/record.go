package credentials

import (
	"maps"
	"slices"
	"time"

	"golang.org/x/oauth2"
)

// Well known keys in Record.Values.
const (
	ValueAPIKey        = "api_key"
	ValueUsername      = "username"
	ValuePassword      = "password"
	ValueURL           = "url"
	ValuePhoneNumberID = "phone_number_id"
	ValueBusinessID    = "business_account_id"
)

// Record is the persisted credential of one account. OAuth accounts use the
// token fields; accounts with static secrets (API keys, app passwords) keep
// them in Values.
type Record struct {
	Account      string            `toml:"account"`
	AccessToken  string            `toml:"access_token,omitempty"`
	RefreshToken string            `toml:"refresh_token,omitempty"`
	TokenType    string            `toml:"token_type,omitempty"`
	Expiry       time.Time         `toml:"expiry"`
	Scopes       []string          `toml:"scopes,omitempty"`
	Values       map[string]string `toml:"values,omitempty"`
	UpdatedAt    time.Time         `toml:"updated_at"`
}

// RecordFromToken converts an oauth2 token.
func RecordFromToken(account string, tok *oauth2.Token, scopes []string) *Record {
	return &Record{
		Account:      account,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		Expiry:       tok.Expiry,
		Scopes:       slices.Clone(scopes),
	}
}

// Token returns the record as an oauth2 token.
func (r *Record) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		TokenType:    r.TokenType,
		Expiry:       r.Expiry,
	}
}

// Static reports whether the record holds only static secrets.
func (r *Record) Static() bool {
	return r.AccessToken == "" && r.RefreshToken == "" && len(r.Values) > 0
}

// Valid reports whether the record can be used at now without refreshing.
// Tokens expiring within skew count as expired.
func (r *Record) Valid(now time.Time, skew time.Duration) bool {
	if r == nil {
		return false
	}
	if r.Static() {
		return true
	}
	if r.AccessToken == "" {
		return false
	}
	return r.Expiry.IsZero() || now.Add(skew).Before(r.Expiry)
}

// Value returns a static secret.
func (r *Record) Value(key string) string {
	if r == nil {
		return ""
	}
	return r.Values[key]
}

// Clone returns a deep copy.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	cp := *r
	cp.Scopes = slices.Clone(r.Scopes)
	cp.Values = maps.Clone(r.Values)
	return &cp
}
