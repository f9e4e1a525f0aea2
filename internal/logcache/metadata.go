package logcache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/renameio"
	"golang.org/x/xerrors"

	"github.com/cargosave/cargo-save/internal/cachestore"
)

// Metadata is the per-invocation record persisted at
// metadata/<invocation>.json (spec §4.G).
type Metadata struct {
	Invocation      string   `json:"invocation"`
	Command         string   `json:"command"`
	Subcommand      string   `json:"subcommand"`
	Args            []string `json:"args"`
	Timestamp       string   `json:"timestamp"`
	ExitCode        int      `json:"exit_code"`
	WorkspaceDigest string   `json:"workspace_state_digest"`
	Profile         string   `json:"profile"`
	TargetDir       string   `json:"target_dir"`
	LineCount       int      `json:"line_count"`
	DurationMS      int64    `json:"duration_ms"`
	EnvHash         string   `json:"env_hash"`
	// Signal is set when the wrapper received SIGINT/SIGTERM during the run
	// and relayed it to the child (spec §5 cancellation).
	Signal string `json:"signal,omitempty"`
}

// Cache wraps a cachestore.Store to add log and invocation-metadata
// persistence and querying on top of the same on-disk root.
type Cache struct {
	Store *cachestore.Store
}

func (c *Cache) metadataPath(invocation string) string {
	return filepath.Join(c.Store.MetadataDir(), invocation+".json")
}

// WriteMetadata atomically persists meta (spec §5 "Cache record writes...
// are atomic at the record granularity").
func (c *Cache) WriteMetadata(meta Metadata) error {
	if err := c.Store.EnsureDirs(); err != nil {
		return err
	}
	b, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return xerrors.Errorf("marshal invocation metadata: %w", err)
	}
	return renameio.WriteFile(c.metadataPath(meta.Invocation), b, 0644)
}

// ReadMetadata loads the metadata for a specific invocation id.
func (c *Cache) ReadMetadata(invocation string) (*Metadata, error) {
	b, err := os.ReadFile(c.metadataPath(invocation))
	if err != nil {
		return nil, err
	}
	var m Metadata
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, xerrors.Errorf("parse metadata for %s: %w", invocation, err)
	}
	return &m, nil
}

// invocations lists every known invocation id, most recent first (by
// recorded timestamp, falling back to file modification time for
// unparsable timestamps).
func (c *Cache) invocations() ([]string, error) {
	entries, err := os.ReadDir(c.Store.MetadataDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	type withTime struct {
		id string
		ts string
	}
	var all []withTime
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		id := e.Name()[:len(e.Name())-len(filepath.Ext(e.Name()))]
		m, err := c.ReadMetadata(id)
		ts := ""
		if err == nil {
			if _, perr := time.Parse(time.RFC3339, m.Timestamp); perr == nil {
				ts = m.Timestamp
			}
		}
		if ts == "" {
			if info, ierr := e.Info(); ierr == nil {
				ts = info.ModTime().UTC().Format(time.RFC3339)
			}
		}
		all = append(all, withTime{id: id, ts: ts})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ts > all[j].ts })
	ids := make([]string, len(all))
	for i, a := range all {
		ids[i] = a.id
	}
	return ids, nil
}

// MostRecent returns the most recent invocation id, or "" if none exist.
func (c *Cache) MostRecent() (string, error) {
	ids, err := c.invocations()
	if err != nil {
		return "", err
	}
	if len(ids) == 0 {
		return "", nil
	}
	return ids[0], nil
}

// LastN returns up to n of the most recent invocation ids, newest first.
func (c *Cache) LastN(n int) ([]string, error) {
	ids, err := c.invocations()
	if err != nil {
		return nil, err
	}
	if n < len(ids) {
		ids = ids[:n]
	}
	return ids, nil
}

// LogPath returns the log file path for invocation.
func (c *Cache) LogPath(invocation string) string {
	return c.Store.LogPath(invocation)
}
