// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package fleet

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fleet.yaml")
	content := "hosts:\n  fw: [\"10.0.0.1\"]\n  webserver: [\"10.0.0.2\", \"webserver.internal\"]\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := LoadManifest(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Hosts["fw"]) != 1 || m.Hosts["fw"][0] != "10.0.0.1" {
		t.Fatalf("unexpected fw entry: %v", m.Hosts["fw"])
	}
	if len(m.Hosts["webserver"]) != 2 {
		t.Fatalf("unexpected webserver entry: %v", m.Hosts["webserver"])
	}
}

func TestLoadManifestMissingFile(t *testing.T) {
	if _, err := LoadManifest("/nonexistent/fleet.yaml"); err == nil {
		t.Fatal("expected error for missing manifest")
	}
}
