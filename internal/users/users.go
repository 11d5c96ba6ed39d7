// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package users implements firelet's legacy JSON user store — role,
// unsalted SHA-512 password hash, optional email — plus an opt-in scrypt
// migration path for operators who want to stop carrying the legacy
// weakness forward.
package users

import (
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	ferrors "grimm.is/firelet/internal/errors"
)

// Role mirrors the free-form role string the legacy store carries; it is
// never validated against a fixed set.
type Role = string

// Record is one user's stored state: role, password hash, and an optional
// email, as a fixed-arity array in the JSON file ([role, hash, email]).
type Record struct {
	Role  Role
	Hash  string
	Email string
}

// Store is the legacy "{username: [role, sha512hex, email]}" JSON store.
// Concurrent access is guarded by a single mutex.
type Store struct {
	path string
	mu   sync.RWMutex
	data map[string]Record
}

// Open loads path, treating a missing file as an empty store.
func Open(path string) (*Store, error) {
	s := &Store{path: path, data: make(map[string]Record)}
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, ferrors.Wrapf(err, ferrors.KindInternal, "reading user store %s", path)
	}

	var decoded map[string][3]*string
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, ferrors.Wrapf(err, ferrors.KindBadData, "parsing user store %s", path)
	}
	for username, fields := range decoded {
		r := Record{Role: deref(fields[0])}
		if fields[1] != nil {
			r.Hash = *fields[1]
		}
		r.Email = deref(fields[2])
		s.data[username] = r
	}
	return s, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// hashLegacy reproduces the legacy unsalted SHA-512 over "user:::password".
func hashLegacy(username, password string) string {
	sum := sha512.Sum512([]byte(username + ":::" + password))
	return hex.EncodeToString(sum[:])
}

// Create adds a new user, failing with KindConflict if username is taken.
func (s *Store) Create(username, role, password, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if username == "" {
		return ferrors.New(ferrors.KindBadData, "username must be provided")
	}
	if _, exists := s.data[username]; exists {
		return ferrors.Errorf(ferrors.KindConflict, "user %q already exists", username)
	}
	s.data[username] = Record{Role: role, Hash: hashLegacy(username, password), Email: email}
	return s.save()
}

// Update changes role, password, and/or email for an existing user; a zero
// value for a field leaves it unchanged.
func (s *Store) Update(username string, role, password, email *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.data[username]
	if !ok {
		return ferrors.Errorf(ferrors.KindNotFound, "user %q does not exist", username)
	}
	if role != nil {
		r.Role = *role
	}
	if password != nil {
		r.Hash = hashLegacy(username, *password)
	}
	if email != nil {
		r.Email = *email
	}
	s.data[username] = r
	return s.save()
}

// Delete removes username, failing with KindNotFound if it doesn't exist.
func (s *Store) Delete(username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[username]; !ok {
		return ferrors.Errorf(ferrors.KindNotFound, "user %q does not exist", username)
	}
	delete(s.data, username)
	return s.save()
}

// Authenticate checks password against username's stored legacy hash.
func (s *Store) Authenticate(username, password string) error {
	s.mu.RLock()
	r, ok := s.data[username]
	s.mu.RUnlock()

	if !ok {
		return ferrors.New(ferrors.KindValidation, "incorrect user or password")
	}
	if hashLegacy(username, password) != r.Hash {
		return ferrors.New(ferrors.KindValidation, "incorrect user or password")
	}
	return nil
}

// Role returns a user's stored role.
func (s *Store) Role(username string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.data[username]
	return r.Role, ok
}

// save must be called with s.mu held for writing. Writes through a
// temporary file and renames into place so a crash mid-write never leaves
// a truncated store.
func (s *Store) save() error {
	encoded := make(map[string][3]*string, len(s.data))
	for username, r := range s.data {
		role, hash, email := r.Role, r.Hash, r.Email
		encoded[username] = [3]*string{&role, &hash, emailPtr(email)}
	}

	raw, err := json.MarshalIndent(encoded, "", "  ")
	if err != nil {
		return ferrors.Wrap(err, ferrors.KindInternal, "encoding user store")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return ferrors.Wrap(err, ferrors.KindInternal, "creating user store directory")
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return ferrors.Wrap(err, ferrors.KindInternal, "writing user store")
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return ferrors.Wrap(err, ferrors.KindInternal, "replacing user store")
	}
	return nil
}

func emailPtr(email string) *string {
	if email == "" {
		return nil
	}
	return &email
}
