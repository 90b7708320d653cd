// ABOUTME: Loads environment variables from .env files at startup without clobbering the real environment.
// ABOUTME: Walks from the working directory up to the root, then checks next to the executable.
package main

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// loadDotEnv reads a .env file and sets any variables not already in the
// environment, returning the keys it set. Missing files yield nil.
// Supports KEY=VALUE, quoted values, export prefixes and trailing
// " # comments" on unquoted values.
func loadDotEnv(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var loaded []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		key, value, ok := parseDotEnvLine(scanner.Text())
		if !ok {
			continue
		}
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		if err := os.Setenv(key, value); err == nil {
			loaded = append(loaded, key)
		}
	}
	return loaded
}

// parseDotEnvLine splits one .env line. Blank lines, comments and lines
// without '=' report ok=false.
func parseDotEnvLine(line string) (key, value string, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", "", false
	}
	line = strings.TrimPrefix(line, "export ")

	key, value, ok = strings.Cut(line, "=")
	if !ok {
		return "", "", false
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", "", false
	}
	value = strings.TrimSpace(value)

	if len(value) >= 2 && (value[0] == '"' || value[0] == '\'') {
		if end := strings.IndexByte(value[1:], value[0]); end >= 0 {
			return key, value[1 : end+1], true
		}
	}
	if i := strings.Index(value, " #"); i >= 0 {
		value = strings.TrimSpace(value[:i])
	}
	return key, value, true
}

// loadDotEnvAuto loads .env files from the working directory and its
// parents, then from next to the executable. Nearer files win because
// earlier loads are never overwritten.
func loadDotEnvAuto() []string {
	seen := map[string]bool{}
	var loaded []string

	add := func(p string) {
		if p == "" || seen[p] {
			return
		}
		seen[p] = true
		loaded = append(loaded, loadDotEnv(p)...)
	}

	if wd, err := os.Getwd(); err == nil {
		dir := wd
		for {
			add(filepath.Join(dir, ".env"))
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	if exe, err := os.Executable(); err == nil {
		add(filepath.Join(filepath.Dir(exe), ".env"))
	}
	return loaded
}
