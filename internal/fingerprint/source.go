package fingerprint

import (
	"bytes"
	"context"
	"io/fs"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cargosave/cargo-save/internal/cacheerr"
)

// sourceExtensions are the file extensions the filesystem-walk fallback
// treats as source: at minimum Rust's source extension and its manifest
// extension (spec §4.A).
var sourceExtensions = map[string]bool{
	".rs":   true,
	".toml": true,
}

// skipSegments are directory-name segments the fallback walk never
// descends into.
var skipSegments = map[string]bool{
	"target":       true,
	".git":         true,
	"node_modules": true,
}

const fallbackMaxDepth = 10

const lfsPointerMagic = "version https://git-lfs.github.com/spec/"

// SourceProber computes the content fingerprint of a package's source tree
// (spec §4.A). It is pure aside from the VCS subprocess it shells out to.
type SourceProber struct {
	// VCSBin is the version-control executable, default "git".
	VCSBin string
	// Logger receives the one-shot fallback warning.
	Logger *log.Logger
}

func (p *SourceProber) vcsBin() string {
	if p.VCSBin == "" {
		return "git"
	}
	return p.VCSBin
}

// Hash returns a fixed-width hex digest for pkgRoot, using the repository
// fast path when available and falling back to a filesystem walk
// otherwise. It never returns a VcsUnavailable or filesystem error: those
// degrade into the fallback path, per spec §4.A "Failure".
func (p *SourceProber) Hash(ctx context.Context, pkgRoot string) (string, error) {
	if digest, ok := p.fastPath(ctx, pkgRoot); ok {
		return digest, nil
	}
	warnFallback(p.Logger, "no usable VCS fast path for "+pkgRoot)
	digest, err := p.fallbackWalk(pkgRoot)
	if err != nil {
		return "", cacheerr.New(cacheerr.SourceHashFailed, filepath.Base(pkgRoot), err)
	}
	return digest, nil
}

// fastPath implements spec §4.A's four-step VCS algorithm. ok is false
// whenever any precondition fails (no VCS, path untracked, subprocess
// failure, empty tracked output) and the caller must use the fallback.
func (p *SourceProber) fastPath(ctx context.Context, pkgRoot string) (string, bool) {
	gitDir, err := p.gitOutput(ctx, pkgRoot, "rev-parse", "--git-dir")
	if err != nil {
		return "", false
	}

	// Step 1: tracked-object listing at HEAD.
	tracked, err := p.gitOutput(ctx, pkgRoot, "ls-tree", "-r", "HEAD", "--name-only", ".")
	if err != nil {
		return "", false
	}
	if len(bytes.TrimSpace(tracked)) == 0 {
		// Either an empty repository or the path is not tracked at all;
		// either way the fast path cannot produce a meaningful fingerprint.
		return "", false
	}

	d := NewDigest()
	d.Write(tracked)

	// Step 2: porcelain short-form status.
	status, err := p.gitOutput(ctx, pkgRoot, "status", "--porcelain=v1", "--ignore-submodules=none", "--", ".")
	if err != nil {
		return "", false
	}
	d.Write(status)

	// Step 3: for each status line naming a still-existing regular file,
	// feed the relative path and then its contents.
	for _, line := range splitLines(status) {
		path, ok := parsePorcelainPath(line)
		if !ok {
			continue
		}
		abs := filepath.Join(pkgRoot, path)
		info, err := os.Lstat(abs)
		if err != nil || !info.Mode().IsRegular() {
			continue // file absent or not a plain file: skip silently
		}
		content, err := os.ReadFile(abs)
		if err != nil {
			continue // I/O error: treat as absent
		}
		d.WriteString(path)
		if isLFSPointer(content) {
			d.WriteString(lfsObjectIDLine(content))
		} else {
			d.Write(content)
		}
	}

	// Advanced VCS features, mixed in so toggling them invalidates the
	// cache (spec §4.A).
	if sub, err := p.gitOutput(ctx, pkgRoot, "submodule", "status", "--recursive"); err == nil {
		d.Write(sub)
	}
	if pat, ok := sparseCheckoutPatterns(string(gitDir)); ok {
		d.WriteString(pat)
	}
	if shallowClone(string(gitDir)) {
		d.WriteString("shallow")
	}
	if worktree, err := p.isLinkedWorktree(ctx, pkgRoot); err == nil && worktree {
		d.WriteString("worktree")
	} else {
		d.WriteString("primary")
	}

	return d.Sum(), true
}

func (p *SourceProber) gitOutput(ctx context.Context, dir string, args ...string) ([]byte, error) {
	full := append([]string{"-C", dir}, args...)
	cmd := exec.CommandContext(ctx, p.vcsBin(), full...)
	out, err := cmd.Output()
	if err != nil {
		return nil, cacheerr.New(cacheerr.VcsUnavailable, filepath.Base(dir), err)
	}
	return out, nil
}

func (p *SourceProber) isLinkedWorktree(ctx context.Context, dir string) (bool, error) {
	gd, err := p.gitOutput(ctx, dir, "rev-parse", "--git-dir")
	if err != nil {
		return false, err
	}
	common, err := p.gitOutput(ctx, dir, "rev-parse", "--git-common-dir")
	if err != nil {
		return false, err
	}
	gdAbs, _ := filepath.Abs(strings.TrimSpace(string(gd)))
	commonAbs, _ := filepath.Abs(strings.TrimSpace(string(common)))
	return gdAbs != commonAbs, nil
}

func sparseCheckoutPatterns(gitDir string) (string, bool) {
	fn := filepath.Join(strings.TrimSpace(gitDir), "info", "sparse-checkout")
	b, err := os.ReadFile(fn)
	if err != nil {
		return "", false
	}
	var lines []string
	for _, l := range strings.Split(string(b), "\n") {
		t := strings.TrimSpace(l)
		if t == "" || strings.HasPrefix(t, "#") {
			continue
		}
		lines = append(lines, l)
	}
	return strings.Join(lines, "\n"), true
}

func shallowClone(gitDir string) bool {
	_, err := os.Stat(filepath.Join(strings.TrimSpace(gitDir), "shallow"))
	return err == nil
}

func isLFSPointer(content []byte) bool {
	return bytes.HasPrefix(content, []byte(lfsPointerMagic))
}

// lfsObjectIDLine returns the "oid ..." line of a Git LFS pointer stub, so
// the probe hashes the referenced object id rather than the stub text
// itself (spec §4.A).
func lfsObjectIDLine(content []byte) string {
	for _, line := range strings.Split(string(content), "\n") {
		if strings.HasPrefix(line, "oid ") {
			return strings.TrimSpace(line)
		}
	}
	return ""
}

func splitLines(b []byte) []string {
	s := strings.TrimRight(string(b), "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// parsePorcelainPath extracts the current path from one `git status
// --porcelain=v1` line, resolving rename/copy arrows to the new path.
func parsePorcelainPath(line string) (string, bool) {
	if len(line) < 4 {
		return "", false
	}
	rest := line[3:]
	if idx := strings.Index(rest, " -> "); idx >= 0 {
		rest = rest[idx+4:]
	}
	rest = strings.Trim(rest, "\"")
	if rest == "" {
		return "", false
	}
	return rest, true
}

// fallbackWalk hashes pkgRoot by walking its directory tree directly: no
// VCS involved, deterministic given a sorted traversal order (spec §4.A).
func (p *SourceProber) fallbackWalk(pkgRoot string) (string, error) {
	type entry struct {
		relPath string
		abs     string
	}
	var entries []entry

	err := filepath.WalkDir(pkgRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // I/O errors: treat as absent, skip silently
		}
		rel, relErr := filepath.Rel(pkgRoot, path)
		if relErr != nil {
			return nil
		}
		depth := strings.Count(rel, string(filepath.Separator))
		if rel != "." {
			for _, seg := range strings.Split(rel, string(filepath.Separator)) {
				if skipSegments[seg] {
					if d.IsDir() {
						return filepath.SkipDir
					}
					return nil
				}
			}
		}
		if d.IsDir() {
			if depth >= fallbackMaxDepth {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil // never follow symlinks
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if !sourceExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		entries = append(entries, entry{relPath: rel, abs: path})
		return nil
	})
	if err != nil {
		return "", err
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].relPath < entries[j].relPath })

	d := NewDigest()
	for _, e := range entries {
		content, err := os.ReadFile(e.abs)
		if err != nil {
			continue // I/O error: treat as absent
		}
		d.WriteString(e.abs)
		d.Write(content)
	}
	return d.Sum(), nil
}
