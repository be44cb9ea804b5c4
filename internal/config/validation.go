// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidationError collects every problem found in one Validate call, so an
// operator sees all of them at once rather than fixing issues one at a time.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %d validation error(s): %s", len(e.Problems), strings.Join(e.Problems, "; "))
}

func (e *ValidationError) add(format string, args ...any) {
	e.Problems = append(e.Problems, fmt.Sprintf(format, args...))
}

// Validate checks cfg for the minimum set of constraints a RunCycle can
// safely act on. It does not check reachability of the platform or
// filesystem write access to the configured paths — those fail naturally
// and loudly on first use.
func Validate(cfg AppConfig) error {
	verr := &ValidationError{}

	if cfg.DataDir == "" {
		verr.add("data_dir must not be empty")
	}
	if cfg.FanOutLimit <= 0 {
		verr.add("fan_out_limit must be positive, got %d", cfg.FanOutLimit)
	}
	if cfg.PollInterval <= 0 {
		verr.add("poll_interval must be positive, got %s", cfg.PollInterval)
	}

	if cfg.Platform.BaseURL == "" {
		verr.add("platform.base_url must not be empty")
	} else if u, err := url.Parse(cfg.Platform.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		verr.add("platform.base_url must be a valid http(s) URL, got %q", cfg.Platform.BaseURL)
	}
	if cfg.Platform.RateLimit <= 0 {
		verr.add("platform.rate_limit must be positive, got %v", cfg.Platform.RateLimit)
	}

	if cfg.Server.BindAddr == "" {
		verr.add("server.bind_addr must not be empty")
	}

	seen := make(map[string]string) // identity -> which block first claimed it
	claim := func(kind, id, path string) {
		if id == "" {
			verr.add("%s entry has an empty identifier", kind)
			return
		}
		if path == "" {
			verr.add("%s %q has an empty path", kind, id)
		}
		key := kind + ":" + id
		if prior, ok := seen[key]; ok {
			verr.add("%s %q is configured twice (%s)", kind, id, prior)
			return
		}
		seen[key] = kind
	}

	for _, f := range cfg.Sources.Favorites {
		claim("favorite", f.ListID, f.Path)
	}
	for _, c := range cfg.Sources.Collections {
		claim("collection", c.CollectionID+"/"+c.OwnerID, c.Path)
		if c.Kind != "season" && c.Kind != "series" {
			verr.add("collection %q has invalid kind %q (must be \"season\" or \"series\")", c.CollectionID, c.Kind)
		}
	}
	for _, s := range cfg.Sources.Submissions {
		claim("submission", s.CreatorID, s.Path)
	}

	if len(verr.Problems) == 0 {
		return nil
	}
	return verr
}
