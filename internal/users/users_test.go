// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package users

import (
	"path/filepath"
	"testing"

	ferrors "grimm.is/firelet/internal/errors"
)

func TestCreateAndAuthenticate(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "users.json"))
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Create("alice", "admin", "hunter2", "alice@example.com"); err != nil {
		t.Fatal(err)
	}
	if err := s.Authenticate("alice", "hunter2"); err != nil {
		t.Fatalf("expected valid login, got %v", err)
	}
	if err := s.Authenticate("alice", "wrong"); ferrors.GetKind(err) != ferrors.KindValidation {
		t.Fatalf("expected KindValidation, got %v", err)
	}
}

func TestCreateDuplicateConflict(t *testing.T) {
	dir := t.TempDir()
	s, _ := Open(filepath.Join(dir, "users.json"))
	if err := s.Create("alice", "admin", "hunter2", ""); err != nil {
		t.Fatal(err)
	}
	if err := s.Create("alice", "admin", "other", ""); ferrors.GetKind(err) != ferrors.KindConflict {
		t.Fatalf("expected KindConflict, got %v", err)
	}
}

func TestReopenPreservesUsers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "users.json")

	s1, _ := Open(path)
	if err := s1.Create("bob", "viewer", "correcthorse", "bob@example.com"); err != nil {
		t.Fatal(err)
	}

	s2, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s2.Authenticate("bob", "correcthorse"); err != nil {
		t.Fatalf("expected reopened store to authenticate bob, got %v", err)
	}
}

func TestMigrateToScryptThenPrefersScrypt(t *testing.T) {
	dir := t.TempDir()
	legacy, _ := Open(filepath.Join(dir, "users.json"))
	scryptStore, _ := OpenScryptStore(filepath.Join(dir, "users_v2.json"))

	if err := legacy.Create("carol", "operator", "swordfish", ""); err != nil {
		t.Fatal(err)
	}

	if err := Authenticate(legacy, scryptStore, "carol", "swordfish"); err != nil {
		t.Fatalf("expected legacy login + migration to succeed, got %v", err)
	}
	if !scryptStore.Has("carol") {
		t.Fatal("expected carol to be migrated to the scrypt store")
	}
	if err := Authenticate(legacy, scryptStore, "carol", "swordfish"); err != nil {
		t.Fatalf("expected scrypt-backed login to succeed, got %v", err)
	}
	if err := Authenticate(legacy, scryptStore, "carol", "wrong"); err == nil {
		t.Fatal("expected wrong password to fail")
	}
}

func TestDeleteNonExistentUser(t *testing.T) {
	dir := t.TempDir()
	s, _ := Open(filepath.Join(dir, "users.json"))
	if err := s.Delete("nope"); ferrors.GetKind(err) != ferrors.KindNotFound {
		t.Fatalf("expected KindNotFound, got %v", err)
	}
}
