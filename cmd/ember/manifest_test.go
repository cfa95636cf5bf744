package main

import (
	"os"
	"path/filepath"
	"testing"
)

const manifestSrc = `[package]
name = "demo"

[run]
backtrace = true
debug-file = "demo.edb"
`

func TestLoadProjectManifest(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "ember.toml"), []byte(manifestSrc), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	// The manifest is discovered upward from a nested directory.
	m, ok, err := loadProjectManifest(nested)
	if err != nil {
		t.Fatalf("loadProjectManifest: %v", err)
	}
	if !ok {
		t.Fatal("manifest not found")
	}
	if m.Config.Package.Name != "demo" {
		t.Errorf("package name = %q, want demo", m.Config.Package.Name)
	}
	if !m.Config.Run.Backtrace {
		t.Error("run.backtrace not parsed")
	}
	if got, want := m.debugFilePath(), filepath.Join(root, "demo.edb"); got != want {
		t.Errorf("debugFilePath = %q, want %q", got, want)
	}
}

func TestLoadProjectManifest_Absent(t *testing.T) {
	_, ok, err := loadProjectManifest(t.TempDir())
	if err != nil {
		t.Fatalf("loadProjectManifest: %v", err)
	}
	if ok {
		t.Fatal("found a manifest in an empty directory")
	}
}

func TestLoadProjectManifest_Invalid(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "ember.toml"), []byte("not [valid toml"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, _, err := loadProjectManifest(root); err == nil {
		t.Fatal("invalid manifest parsed successfully")
	}
}
