// Package config resolves the wrapper's own environment variables (spec
// §6): the cache directory override, the incremental-caching kill switch,
// and the debug-logging flag. These are distinct from the build-affecting
// environment variables fingerprinted individually by
// internal/fingerprint's EnvHash.
package config

import (
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"golang.org/x/xerrors"
)

// Config is the wrapper's own process configuration, loaded once at
// startup.
type Config struct {
	CacheDir string `env:"CARGO_SAVE_CACHE_DIR"`
	// DisableIncremental mirrors spec §6's "set and non-empty" rule
	// literally, rather than parsing it as a bool: CARGO_SAVE_DISABLE_INCREMENTAL=0
	// still disables incremental caching, matching how CI tooling usually
	// treats these switches.
	DisableIncremental string `env:"CARGO_SAVE_DISABLE_INCREMENTAL"`
	Debug              string `env:"CARGO_SAVE_DEBUG"`
}

// Incremental reports whether incremental caching is enabled.
func (c Config) Incremental() bool { return c.DisableIncremental == "" }

// DebugEnabled reports whether verbose internal logging was requested.
func (c Config) DebugEnabled() bool { return c.Debug != "" }

// Load parses the environment into a Config. CacheDir defaults to the
// host's per-user cache directory's "cargo-save" subdirectory when
// CARGO_SAVE_CACHE_DIR is unset; cachestore.Store appends the v<N> schema
// segment itself, so together they resolve to the cargo-save/v<N>/ path
// spec §6 describes.
func Load() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, xerrors.Errorf("parse cargo-save environment: %w", err)
	}
	if c.CacheDir == "" {
		dir, err := defaultCacheRoot()
		if err != nil {
			return Config{}, err
		}
		c.CacheDir = dir
	}
	return c, nil
}

func defaultCacheRoot() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", xerrors.Errorf("resolve user cache dir: %w", err)
	}
	return filepath.Join(base, "cargo-save"), nil
}
