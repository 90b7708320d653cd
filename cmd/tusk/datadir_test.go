// ABOUTME: Tests for XDG-based data directory resolution used by the tusk CLI.
// ABOUTME: Covers XDG_DATA_HOME override, home fallback, and on-demand creation.
package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultDataDirUsesXDGDataHome(t *testing.T) {
	customDir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", customDir)

	got, err := defaultDataDir()
	if err != nil {
		t.Fatalf("defaultDataDir failed: %v", err)
	}

	want := filepath.Join(customDir, "tusk")
	if got != want {
		t.Errorf("defaultDataDir() = %q, want %q", got, want)
	}
}

func TestDefaultDataDirFallsBackToHome(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "")

	got, err := defaultDataDir()
	if err != nil {
		t.Fatalf("defaultDataDir failed: %v", err)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		t.Fatalf("UserHomeDir failed: %v", err)
	}

	want := filepath.Join(home, ".local", "share", "tusk")
	if got != want {
		t.Errorf("defaultDataDir() = %q, want %q", got, want)
	}
}

func TestResolveDataDirCreatesOverride(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "state")

	got, err := resolveDataDir(dir)
	if err != nil {
		t.Fatalf("resolveDataDir failed: %v", err)
	}
	if got != dir {
		t.Errorf("resolveDataDir() = %q, want %q", got, dir)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		t.Errorf("data dir not created: %v", err)
	}
}

func TestResolveDataDirDefault(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_DATA_HOME", xdg)

	got, err := resolveDataDir("")
	if err != nil {
		t.Fatalf("resolveDataDir failed: %v", err)
	}
	if want := filepath.Join(xdg, "tusk"); got != want {
		t.Errorf("resolveDataDir() = %q, want %q", got, want)
	}
}
