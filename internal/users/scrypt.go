// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package users

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	ferrors "grimm.is/firelet/internal/errors"
	"golang.org/x/crypto/scrypt"
)

const (
	scryptN      = 1 << 15
	scryptR      = 8
	scryptP      = 1
	scryptKeyLen = 32
	saltLen      = 16
)

type scryptRecord struct {
	Role  Role   `json:"role"`
	Salt  string `json:"salt"`
	Hash  string `json:"hash"`
	Email string `json:"email,omitempty"`
}

// ScryptStore is the opt-in, salted replacement for the legacy SHA-512
// store. It lives in a separate "users_v2.json" file alongside the legacy
// one so an operator can migrate incrementally: MigrateToScrypt copies one
// user across on a successful legacy login, and Authenticate here always
// wins over the legacy store once a user has an entry.
type ScryptStore struct {
	path string
	mu   sync.RWMutex
	data map[string]scryptRecord
}

// OpenScryptStore loads path, treating a missing file as an empty store.
func OpenScryptStore(path string) (*ScryptStore, error) {
	s := &ScryptStore{path: path, data: make(map[string]scryptRecord)}
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, ferrors.Wrapf(err, ferrors.KindInternal, "reading scrypt user store %s", path)
	}
	if err := json.Unmarshal(raw, &s.data); err != nil {
		return nil, ferrors.Wrapf(err, ferrors.KindBadData, "parsing scrypt user store %s", path)
	}
	return s, nil
}

// Has reports whether username has already been migrated.
func (s *ScryptStore) Has(username string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data[username]
	return ok
}

// Authenticate checks password against username's scrypt-derived hash.
func (s *ScryptStore) Authenticate(username, password string) error {
	s.mu.RLock()
	r, ok := s.data[username]
	s.mu.RUnlock()
	if !ok {
		return ferrors.New(ferrors.KindNotFound, "no migrated credential for user")
	}

	salt, err := hex.DecodeString(r.Salt)
	if err != nil {
		return ferrors.Wrap(err, ferrors.KindInternal, "decoding stored salt")
	}
	derived, err := scrypt.Key([]byte(password), salt, scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return ferrors.Wrap(err, ferrors.KindInternal, "deriving scrypt key")
	}
	want, err := hex.DecodeString(r.Hash)
	if err != nil {
		return ferrors.Wrap(err, ferrors.KindInternal, "decoding stored hash")
	}
	if subtle.ConstantTimeCompare(derived, want) != 1 {
		return ferrors.New(ferrors.KindValidation, "incorrect user or password")
	}
	return nil
}

// set stores a freshly derived credential and persists the store. Callers
// hold no lock; set acquires its own.
func (s *ScryptStore) set(username, role, password, email string) error {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return ferrors.Wrap(err, ferrors.KindInternal, "generating salt")
	}
	derived, err := scrypt.Key([]byte(password), salt, scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return ferrors.Wrap(err, ferrors.KindInternal, "deriving scrypt key")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[username] = scryptRecord{
		Role:  role,
		Salt:  hex.EncodeToString(salt),
		Hash:  hex.EncodeToString(derived),
		Email: email,
	}
	return s.save()
}

func (s *ScryptStore) save() error {
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return ferrors.Wrap(err, ferrors.KindInternal, "encoding scrypt user store")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return ferrors.Wrap(err, ferrors.KindInternal, "creating scrypt user store directory")
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return ferrors.Wrap(err, ferrors.KindInternal, "writing scrypt user store")
	}
	return os.Rename(tmp, s.path)
}

// MigrateToScrypt authenticates username against legacy and, on success
// and if not already migrated, writes a salted scrypt credential to
// scryptStore carrying the same password.
func MigrateToScrypt(legacy *Store, scryptStore *ScryptStore, username, password string) error {
	if err := legacy.Authenticate(username, password); err != nil {
		return err
	}
	if scryptStore.Has(username) {
		return nil
	}

	legacy.mu.RLock()
	r := legacy.data[username]
	legacy.mu.RUnlock()

	return scryptStore.set(username, r.Role, password, r.Email)
}

// Authenticate checks the scrypt store first, falling back to the legacy
// store and transparently upgrading on a successful legacy login, so the
// legacy format keeps working through the rollover.
func Authenticate(legacy *Store, scryptStore *ScryptStore, username, password string) error {
	if scryptStore.Has(username) {
		return scryptStore.Authenticate(username, password)
	}
	return MigrateToScrypt(legacy, scryptStore, username, password)
}
