package cachestore

import (
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Policy is spec §4.E's prune policy grammar: older-than(days),
// keep-last(N), or their conjunction. A zero value of either field means
// "unbounded" for that dimension.
type Policy struct {
	OlderThan time.Duration // 0 means no age bound
	KeepLast  int           // 0 means no count bound
}

type fileInfo struct {
	path    string
	modTime time.Time
}

func listFiles(dir, pattern string) ([]fileInfo, error) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, err
	}
	out := make([]fileInfo, 0, len(matches))
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil {
			continue
		}
		out = append(out, fileInfo{path: m, modTime: info.ModTime()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].modTime.After(out[j].modTime) }) // newest first
	return out, nil
}

// partition returns which files in files (already sorted newest-first)
// pass policy, and which should be deleted.
func (p Policy) partition(files []fileInfo, now time.Time) (keep, remove []fileInfo) {
	for i, f := range files {
		ageOK := p.OlderThan == 0 || now.Sub(f.modTime) <= p.OlderThan
		countOK := p.KeepLast == 0 || i < p.KeepLast
		if ageOK && countOK {
			keep = append(keep, f)
		} else {
			remove = append(remove, f)
		}
	}
	return keep, remove
}

// Prune deletes incremental records and logs outside policy. Records and
// logs prune independently; no cross-reference between them is required
// (spec §4.E).
func (s *Store) Prune(policy Policy, now time.Time) (removedRecords, removedLogs int, err error) {
	records, err := listFiles(s.IncrementalDir(), "*.json")
	if err != nil {
		return 0, 0, err
	}
	_, toRemove := policy.partition(records, now)
	for _, f := range toRemove {
		if rmErr := os.Remove(f.path); rmErr == nil {
			removedRecords++
		}
	}

	logs, err := listFiles(s.versionDir(), "*.log")
	if err != nil {
		return removedRecords, 0, err
	}
	_, toRemoveLogs := policy.partition(logs, now)
	for _, f := range toRemoveLogs {
		if rmErr := os.Remove(f.path); rmErr == nil {
			removedLogs++
		}
		// Best-effort: also remove the matching metadata/<invocation>.json.
		invocation := fileBaseNoExt(f.path)
		os.Remove(filepath.Join(s.MetadataDir(), invocation+".json"))
	}

	return removedRecords, removedLogs, nil
}

func fileBaseNoExt(path string) string {
	base := filepath.Base(path)
	return base[:len(base)-len(filepath.Ext(base))]
}
