// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Loader loads an AppConfig from a YAML source-list file, with environment
// variables layered on top for the settings operators commonly override
// without touching the file (credentials, rate limits, bind address).
type Loader struct {
	configPath  string
	lookupEnvFn envLookupFunc
}

// NewLoader returns a Loader reading from configPath (optional — an empty
// path means "defaults + env only") using the real OS environment.
func NewLoader(configPath string) *Loader {
	return NewLoaderWithEnv(configPath, os.LookupEnv)
}

// NewLoaderWithEnv is NewLoader with an injected environment source, for tests.
func NewLoaderWithEnv(configPath string, lookup envLookupFunc) *Loader {
	return &Loader{configPath: configPath, lookupEnvFn: lookup}
}

func (l *Loader) loadFile() (AppConfig, error) {
	cfg := Default()
	if l.configPath == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return AppConfig{}, fmt.Errorf("config: read %q: %w", l.configPath, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return AppConfig{}, fmt.Errorf("config: parse %q: %w", l.configPath, err)
	}
	return cfg, nil
}

// Load reads the configured file (if any), applies environment overrides,
// and returns the fully assembled — but not yet validated — configuration.
// Callers combine this with Validate before acting on the result.
func (l *Loader) Load() (AppConfig, error) {
	cfg, err := l.loadFile()
	if err != nil {
		return AppConfig{}, err
	}

	r := newEnvReader(l.lookupEnvFn)
	cfg = applyEnv(cfg, r)
	return cfg, nil
}
