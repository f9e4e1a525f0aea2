package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/cargosave/cargo-save/internal/fingerprint"
)

// statsCmd aggregates counts over the cache store: how many records exist
// per profile, total log bytes, and the oldest/newest record (spec §12).
func statsCmd(ctx context.Context, env *bootstrap, args []string) error {
	recordsByProfile := map[string]int{"debug": 0, "release": 0}
	var totalLogBytes int64
	var oldest, newest time.Time

	records, _ := filepath.Glob(filepath.Join(env.Store.IncrementalDir(), "*.json"))
	for _, r := range records {
		stem := strings.TrimSuffix(filepath.Base(r), ".json")
		switch {
		case strings.Contains(stem, "-debug-"):
			recordsByProfile["debug"]++
		case strings.Contains(stem, "-release-"):
			recordsByProfile["release"]++
		}
		if info, err := os.Stat(r); err == nil {
			if oldest.IsZero() || info.ModTime().Before(oldest) {
				oldest = info.ModTime()
			}
			if info.ModTime().After(newest) {
				newest = info.ModTime()
			}
		}
	}

	logs, _ := filepath.Glob(filepath.Join(filepath.Dir(env.Store.IncrementalDir()), "*.log"))
	for _, l := range logs {
		if info, err := os.Stat(l); err == nil {
			totalLogBytes += info.Size()
		}
	}

	fmt.Printf("records: %d (debug=%d release=%d)\n", len(records), recordsByProfile["debug"], recordsByProfile["release"])
	fmt.Printf("logs: %d (%d bytes)\n", len(logs), totalLogBytes)
	if !oldest.IsZero() {
		fmt.Printf("oldest record: %s\n", oldest.Format(time.RFC3339))
		fmt.Printf("newest record: %s\n", newest.Format(time.RFC3339))
	}
	return nil
}

// cleanCmd deletes every cache record and every stored log (spec §12: alias
// for invalidate_all() plus log deletion).
func cleanCmd(ctx context.Context, env *bootstrap, args []string) error {
	if err := env.Store.InvalidateAll(); err != nil {
		return err
	}
	logs, err := filepath.Glob(filepath.Join(filepath.Dir(env.Store.IncrementalDir()), "*.log"))
	if err != nil {
		return err
	}
	for _, l := range logs {
		if err := os.Remove(l); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	fmt.Println("cargo-save: cache cleared")
	return nil
}

// invalidateCmd deletes every record file for the named package, or every
// record in the store when no package is given (spec §4.E, §12).
func invalidateCmd(ctx context.Context, env *bootstrap, args []string) error {
	if len(args) == 0 {
		return env.Store.InvalidateAll()
	}
	for _, pkg := range args {
		if err := env.Store.Invalidate(pkg); err != nil {
			return err
		}
	}
	return nil
}

// cacheKeyCmd prints a short, platform-flavored string derived from the
// lockfile hash and the environment hash, suitable for a CI cache action's
// key parameter (spec §6).
func cacheKeyCmd(ctx context.Context, env *bootstrap, args []string) error {
	lockfile, err := fingerprint.LockfileHash(env.WS.Root + "/Cargo.lock")
	if err != nil {
		return err
	}
	envHash := fingerprint.EnvHash(os.Environ())
	fmt.Printf("cargo-save-%s-%s-%s-%s\n", runtime.GOOS, runtime.GOARCH, lockfile.Prefix, envHash.Prefix)
	return nil
}
