// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package errors

import (
	"errors"
	"testing"
)

func TestNewAndGetKind(t *testing.T) {
	err := New(KindBadData, "cyclic host group")
	if GetKind(err) != KindBadData {
		t.Fatalf("GetKind = %v, want bad_data", GetKind(err))
	}
	if err.Error() != "cyclic host group" {
		t.Fatalf("Error() = %q", err.Error())
	}
}

func TestWrapPreservesUnderlying(t *testing.T) {
	base := errors.New("dial tcp: timeout")
	wrapped := Wrap(base, KindUnreachable, "host fw1 unreachable")

	if GetKind(wrapped) != KindUnreachable {
		t.Fatalf("GetKind = %v", GetKind(wrapped))
	}
	if !Is(wrapped, base) {
		t.Fatal("Is() should find base in chain")
	}
	if got := wrapped.Error(); got != "host fw1 unreachable: dial tcp: timeout" {
		t.Fatalf("Error() = %q", got)
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(nil, KindInternal, "x") != nil {
		t.Fatal("Wrap(nil, ...) should be nil")
	}
	if Wrapf(nil, KindInternal, "x") != nil {
		t.Fatal("Wrapf(nil, ...) should be nil")
	}
	if Attr(nil, "k", "v") != nil {
		t.Fatal("Attr(nil, ...) should be nil")
	}
}

func TestAttrChain(t *testing.T) {
	err := New(KindInterfaceMismatch, "interface mismatch")
	err = Attr(err, "hostname", "webserver")
	err = Attr(err, "iface", "eth0")

	attrs := GetAttributes(err)
	if attrs["hostname"] != "webserver" || attrs["iface"] != "eth0" {
		t.Fatalf("GetAttributes = %#v", attrs)
	}
}

func TestAttrWrapsPlainError(t *testing.T) {
	plain := errors.New("boom")
	wrapped := Attr(plain, "key", "val")
	if GetKind(wrapped) != KindInternal {
		t.Fatalf("GetKind = %v, want internal", GetKind(wrapped))
	}
	var e *Error
	if !As(wrapped, &e) {
		t.Fatal("As should find *Error")
	}
}

func TestKindString(t *testing.T) {
	cases := map[Kind]string{
		KindBadData:           "bad_data",
		KindBadRule:           "bad_rule",
		KindMissingManagement: "missing_management",
		KindInterfaceMismatch: "interface_mismatch",
		KindSaveRequired:      "save_required",
		KindApplyFailed:       "apply_failed",
		KindUnreachable:       "unreachable",
		KindOutOfRange:        "out_of_range",
		Kind(999):             "unknown",
	}
	for k, want := range cases {
		if got := k.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", k, got, want)
		}
	}
}
