// Package config loads experiment files, runtime settings and provider credentials for llmsweep.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"

	"llmsweep/internal/logger"
)

// appDirName is the directory under the user config dir holding a global .env.
const appDirName = "llmsweep"

// Credentials is a read-once snapshot of provider secrets and endpoint overrides.
// It is built at startup and passed explicitly to the provider registry.
type Credentials struct {
	values map[string]string
}

// NewCredentials builds a snapshot from an explicit map. Used by tests and embedders.
func NewCredentials(values map[string]string) *Credentials {
	copied := make(map[string]string, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return &Credentials{values: copied}
}

// Get returns the trimmed value for name, or "" when unset.
func (c *Credentials) Get(name string) string {
	if c == nil || name == "" {
		return ""
	}
	return strings.TrimSpace(c.values[name])
}

// Names returns the sorted variable names held in the snapshot.
func (c *Credentials) Names() []string {
	if c == nil {
		return nil
	}
	names := make([]string, 0, len(c.values))
	for k := range c.values {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// DefaultEnvFiles returns the .env files consulted at startup, lowest priority first:
// the user config dir (~/.config/llmsweep/.env) and then the working directory.
func DefaultEnvFiles() []string {
	var files []string
	if dir, err := os.UserConfigDir(); err == nil {
		files = append(files, filepath.Join(dir, appDirName, ".env"))
	}
	if wd, err := os.Getwd(); err == nil {
		files = append(files, filepath.Join(wd, ".env"))
	}
	return files
}

// LoadCredentials reads the given .env files in order (later files win) and
// then overlays the process environment, which always wins. Missing files are skipped.
func LoadCredentials(envFiles ...string) (*Credentials, error) {
	values := make(map[string]string)

	for _, path := range envFiles {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read .env file %s: %w", path, err)
		}
		envMap, err := godotenv.Unmarshal(string(data))
		if err != nil {
			return nil, fmt.Errorf("failed to parse .env file %s: %w", path, err)
		}
		for key, value := range envMap {
			values[key] = value
		}
		logger.Debug("Loaded .env file", "path", path, "keys", len(envMap))
	}

	for _, kv := range os.Environ() {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		values[key] = value
	}

	return &Credentials{values: values}, nil
}
