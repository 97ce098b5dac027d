package credentials

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/teemow/connectorhub/internal/accounts"
)

// ErrNotFound is returned by Load when an account has no persisted record.
var ErrNotFound = errors.New("credential not found")

// Store persists one Record per account as a file in dir.
type Store struct {
	dir string
	enc *Encryptor
	now func() time.Time
}

// NewStore returns a store rooted at dir, creating it with mode 0700.
func NewStore(dir string, enc *Encryptor) (*Store, error) {
	if dir == "" {
		return nil, errors.New("credential directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create credential directory: %w", err)
	}
	return &Store{dir: dir, enc: enc, now: time.Now}, nil
}

// Dir returns the store directory.
func (s *Store) Dir() string { return s.dir }

// Path returns the file holding account's record.
func (s *Store) Path(account string) string {
	return filepath.Join(s.dir, fileName(account))
}

// Load reads the record of account.
func (s *Store) Load(account string) (*Record, error) {
	data, err := os.ReadFile(s.Path(account))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w for %s", ErrNotFound, account)
	}
	if err != nil {
		return nil, fmt.Errorf("read credential: %w", err)
	}
	plain, err := s.enc.Open(data)
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := toml.Unmarshal(plain, &rec); err != nil {
		return nil, fmt.Errorf("parse credential file %s: %w", s.Path(account), err)
	}
	if rec.Account == "" {
		rec.Account = account
	}
	return &rec, nil
}

// Save writes rec atomically with mode 0600.
func (s *Store) Save(account string, rec *Record) error {
	cp := rec.Clone()
	cp.Account = accounts.Normalize(account)
	cp.UpdatedAt = s.now().UTC()

	data, err := toml.Marshal(cp)
	if err != nil {
		return fmt.Errorf("encode credential: %w", err)
	}
	data, err = s.enc.Seal(data)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp credential file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod credential file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write credential file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close credential file: %w", err)
	}
	if err := os.Rename(tmpName, s.Path(account)); err != nil {
		return fmt.Errorf("replace credential file: %w", err)
	}
	return nil
}

// Delete removes the record of account. Deleting a missing record is not an
// error.
func (s *Store) Delete(account string) error {
	err := os.Remove(s.Path(account))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete credential: %w", err)
	}
	return nil
}

// List returns the accounts with a persisted record, sorted.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if id, ok := accountFromFileName(e.Name()); ok {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out, nil
}
