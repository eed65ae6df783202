package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// EnsureUserConfig places the shipped default config into the data dir on
// first run so the user edits a file the engine owns, not the repo copy.
// The write goes through a temp file plus rename: a crash mid-bootstrap
// never leaves a half-written config behind for every later start to choke
// on. The shipped file is parsed before it is installed, so a broken
// default surfaces here instead of at load time.
func EnsureUserConfig(dataDir string, defaultPath string) (string, error) {
	userPath := filepath.Join(dataDir, "config.yml")

	_, err := os.Stat(userPath)
	if err == nil {
		return userPath, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return "", err
	}

	b, err := os.ReadFile(defaultPath)
	if err != nil {
		return "", err
	}
	var probe Config
	if err := yaml.Unmarshal(b, &probe); err != nil {
		return "", err
	}

	tmp := userPath + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return "", err
	}
	if err := os.Rename(tmp, userPath); err != nil {
		return "", err
	}
	return userPath, nil
}
