package credentials

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/teemow/connectorhub/internal/accounts"
)

const (
	filePrefix = "token_"
	fileSuffix = ".toml"
)

// FileKey maps an account identifier to a filesystem and URL safe key.
//
// The identifier is normalized (trimmed, lower-cased), then letters, digits,
// '.' and '-' are kept, '@' becomes "_at_" and every other byte, '_'
// included, is written as "~xx" hex. The mapping is injective and readable:
// "John.Doe@Example.com" becomes "john.doe_at_example.com".
func FileKey(account string) string {
	id := accounts.Normalize(account)
	var b strings.Builder
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '.', c == '-':
			b.WriteByte(c)
		case c == '@':
			b.WriteString("_at_")
		default:
			fmt.Fprintf(&b, "~%02x", c)
		}
	}
	return b.String()
}

// ParseFileKey inverts FileKey.
func ParseFileKey(key string) (string, error) {
	var b strings.Builder
	for i := 0; i < len(key); {
		switch {
		case strings.HasPrefix(key[i:], "_at_"):
			b.WriteByte('@')
			i += 4
		case key[i] == '~':
			if i+3 > len(key) {
				return "", fmt.Errorf("truncated escape in key %q", key)
			}
			v, err := strconv.ParseUint(key[i+1:i+3], 16, 8)
			if err != nil {
				return "", fmt.Errorf("invalid escape in key %q: %w", key, err)
			}
			b.WriteByte(byte(v))
			i += 3
		case key[i] == '_':
			return "", fmt.Errorf("unexpected '_' in key %q", key)
		default:
			b.WriteByte(key[i])
			i++
		}
	}
	return b.String(), nil
}

func fileName(account string) string {
	return filePrefix + FileKey(account) + fileSuffix
}

func accountFromFileName(name string) (string, bool) {
	if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
		return "", false
	}
	id, err := ParseFileKey(strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix))
	if err != nil || id == "" {
		return "", false
	}
	return id, true
}
