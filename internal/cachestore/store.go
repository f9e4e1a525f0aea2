package cachestore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/renameio"
	"golang.org/x/xerrors"

	"github.com/cargosave/cargo-save/internal/cacheerr"
)

// Store is the on-disk incremental cache store rooted at Root/v<Schema>/
// (spec §4.E):
//
//	<cache-root>/v<N>/
//	  incremental/<cache-key>.json
//	  metadata/<invocation>.json
//	  <invocation>.log
//
// A mismatched v<N> directory is never read or migrated; it is simply
// ignored (spec §6, §9).
type Store struct {
	Root   string
	Schema int
}

func (s *Store) versionDir() string {
	return filepath.Join(s.Root, fmt.Sprintf("v%d", s.Schema))
}

func (s *Store) IncrementalDir() string { return filepath.Join(s.versionDir(), "incremental") }
func (s *Store) MetadataDir() string    { return filepath.Join(s.versionDir(), "metadata") }
func (s *Store) LogPath(invocation string) string {
	return filepath.Join(s.versionDir(), invocation+".log")
}

// EnsureDirs creates the incremental/ and metadata/ directories, returning
// a CacheRootUnwritable error on failure (spec §7, a fatal kind).
func (s *Store) EnsureDirs() error {
	for _, d := range []string{s.IncrementalDir(), s.MetadataDir()} {
		if err := os.MkdirAll(d, 0755); err != nil {
			return cacheerr.New(cacheerr.CacheRootUnwritable, "", xerrors.Errorf("mkdir %s: %w", d, err))
		}
	}
	return nil
}

// Lookup reads the record for key, if any. A missing file is a plain
// nil-record, nil-error miss. A malformed file (truncated, invalid JSON,
// missing a required field) is deleted and also reported as a nil-record,
// nil-error miss: spec §4.E says corruption is "non-fatal" and degrades to
// a cache miss, not a propagated error (spec §7 RecordCorrupt).
func (s *Store) Lookup(key Key) (*Record, error) {
	path := filepath.Join(s.IncrementalDir(), key.Filename())
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, nil // unreadable for any other reason: treat as absent
	}

	var rec Record
	if err := json.Unmarshal(b, &rec); err != nil || !rec.hasRequiredFields() {
		os.Remove(path) // reject and delete malformed records
		return nil, nil
	}
	return &rec, nil
}

// Store atomically writes rec under key: write to a sibling temp file, then
// rename into place (spec §4.E, §5 "Record atomicity"). It refuses to
// persist a record whose Success is false, enforcing spec §3's invariant
// that only successful builds are ever cached.
func (s *Store) Store(key Key, rec Record) error {
	if !rec.Success {
		return xerrors.Errorf("refusing to store record for %s: Success is false", key.Name)
	}
	if err := s.EnsureDirs(); err != nil {
		return err
	}
	b, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return xerrors.Errorf("marshal record for %s: %w", key.Name, err)
	}
	path := filepath.Join(s.IncrementalDir(), key.Filename())
	if err := renameio.WriteFile(path, b, 0644); err != nil {
		return xerrors.Errorf("write record for %s: %w", key.Name, err)
	}
	return nil
}

// lookupMostRecentForCommand returns the most recently written record
// belonging to packageName for the exact command commandHash identifies,
// regardless of which CacheKey variant (source/env/features/profile
// prefixes) produced its filename. Used when an exact-key lookup misses, so
// Classify can still discriminate *which* hashed input changed instead of
// collapsing every miss to NoRecord (spec §4.E, §8 invariant 5).
//
// The command hash is matched on the record's full stored value, not
// restricted to the filename's truncated prefix: a record from a different
// command (e.g. a prior `test` run's record surfacing while classifying
// `build`) must never be treated as a candidate, since Validate has no
// CommandChanged reason to reject it on and would otherwise wrongly report
// Fresh. A malformed candidate is rejected and deleted exactly as Lookup
// does, and the next-most-recent candidate is tried.
func (s *Store) lookupMostRecentForCommand(packageName, commandHash string) (*Record, error) {
	matches, err := filepath.Glob(filepath.Join(s.IncrementalDir(), packageName+"-*.json"))
	if err != nil {
		return nil, err
	}
	sort.Slice(matches, func(i, j int) bool {
		var ti, tj time.Time
		if info, err := os.Stat(matches[i]); err == nil {
			ti = info.ModTime()
		}
		if info, err := os.Stat(matches[j]); err == nil {
			tj = info.ModTime()
		}
		return ti.After(tj)
	})

	for _, m := range matches {
		b, err := os.ReadFile(m)
		if err != nil {
			continue
		}
		var rec Record
		if err := json.Unmarshal(b, &rec); err != nil || !rec.hasRequiredFields() {
			os.Remove(m) // reject and delete malformed records, same as Lookup
			continue
		}
		if rec.Name != packageName || rec.CommandHash != commandHash {
			continue // different package, or a different command's record
		}
		return &rec, nil
	}
	return nil, nil
}

// Invalidate deletes every record file whose name begins with
// "<packageName>-", regardless of which CacheKey variant produced it (spec
// §4.E). The record contents are not read, so records of a package whose
// name extends packageName with a hyphen (e.g. "foo-bar" for "foo") are
// deleted too.
func (s *Store) Invalidate(packageName string) error {
	matches, err := filepath.Glob(filepath.Join(s.IncrementalDir(), packageName+"-*.json"))
	if err != nil {
		return err
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

// InvalidateAll deletes every record file in the store.
func (s *Store) InvalidateAll() error {
	matches, err := filepath.Glob(filepath.Join(s.IncrementalDir(), "*.json"))
	if err != nil {
		return err
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

// NowISO8601 returns the current time formatted per spec §3's ISO-8601
// timestamp requirement.
func NowISO8601(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// fileSizes lists (path, size) pairs for every regular file directly under
// dir whose name starts with prefix, used by the orchestrator to build
// witnesses (spec §4.F step 6).
func fileSizes(dir, prefix string) ([]Witness, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []Witness
	for _, e := range entries {
		if e.IsDir() || !filepathHasPrefix(e.Name(), prefix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, Witness{ArtifactPath: filepath.Join(dir, e.Name()), ByteSize: info.Size()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ArtifactPath < out[j].ArtifactPath })
	return out, nil
}

func filepathHasPrefix(name, prefix string) bool {
	return len(name) >= len(prefix) && name[:len(prefix)] == prefix
}

// Witnesses lists (artifact_path, byte_size) pairs for packageName by
// scanning targetDir for files whose name prefix encodes the package name
// (spec §4.F step 6).
func Witnesses(targetDir, profile, packageName string) ([]Witness, error) {
	dir := filepath.Join(targetDir, profile)
	return fileSizes(dir, packageName)
}
