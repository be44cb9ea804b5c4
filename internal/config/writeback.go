// SPDX-License-Identifier: MIT

package config

import (
	"fmt"

	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"
)

// WriteEffective atomically writes cfg's fully-resolved form (file defaults
// plus env overrides) to path, so an operator can diff what was actually
// loaded against the source file they edited. The write is atomic
// (temp file + rename) so a crash mid-write never leaves a truncated file
// for the next reload to trip over.
func WriteEffective(path string, cfg AppConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal effective config: %w", err)
	}

	t, err := renameio.TempFile("", path)
	if err != nil {
		return fmt.Errorf("config: create temp file: %w", err)
	}
	defer t.Cleanup()

	if _, err := t.Write(data); err != nil {
		return fmt.Errorf("config: write temp file: %w", err)
	}
	if err := t.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("config: atomic replace %q: %w", path, err)
	}
	return nil
}
