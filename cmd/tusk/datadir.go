// ABOUTME: XDG-based data directory resolution for the tusk CLI.
// ABOUTME: Checks XDG_DATA_HOME, falls back to ~/.local/share/tusk, and creates the directory on demand.
package main

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	historyFile = "history.db"
	journalFile = "journal.jsonl"
	logFile     = "tusk.log"
)

// defaultDataDir returns the default data directory for tusk state.
func defaultDataDir() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "tusk"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}

	return filepath.Join(home, ".local", "share", "tusk"), nil
}

// resolveDataDir returns override when set, the XDG default otherwise, and
// makes sure the directory exists.
func resolveDataDir(override string) (string, error) {
	dir := override
	if dir == "" {
		d, err := defaultDataDir()
		if err != nil {
			return "", err
		}
		dir = d
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create data dir: %w", err)
	}
	return dir, nil
}
