package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cargosave/cargo-save/internal/cachestore"
	"github.com/cargosave/cargo-save/internal/depgraph"
	"github.com/cargosave/cargo-save/internal/fingerprint"
	"github.com/cargosave/cargo-save/internal/logcache"
	"github.com/cargosave/cargo-save/internal/workspace"
)

// fakeCargo writes an executable shell script that behaves like cargo
// enough for the orchestrator to exercise: it prints a fixed stdout/stderr
// line and exits with the given code.
func fakeCargo(t *testing.T, dir string, exitCode int) string {
	t.Helper()
	path := filepath.Join(dir, "fake-cargo.sh")
	script := "#!/bin/sh\necho building\necho a-warning 1>&2\nexit " + string(rune('0'+exitCode)) + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0755))
	return path
}

func newTestWorkspace(t *testing.T) (*workspace.State, string) {
	t.Helper()
	root := t.TempDir()
	pkgRoot := filepath.Join(root, "foo")
	require.NoError(t, os.MkdirAll(pkgRoot, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(pkgRoot, "lib.rs"), []byte("fn main() {}"), 0644))
	targetDir := filepath.Join(root, "target")
	require.NoError(t, os.MkdirAll(filepath.Join(targetDir, "debug"), 0755))

	ws := &workspace.State{
		Root:      root,
		TargetDir: targetDir,
		Packages: []workspace.Package{
			{Name: "foo", Version: "0.1.0", ManifestPath: filepath.Join(pkgRoot, "Cargo.toml"), Root: pkgRoot},
		},
	}
	return ws, root
}

func TestRunSuccessStoresRecordAndLog(t *testing.T) {
	ws, root := newTestWorkspace(t)
	cacheDir := t.TempDir()
	store := &cachestore.Store{Root: cacheDir, Schema: 1}
	cache := &logcache.Cache{Store: store}
	graph := depgraph.Build(ws.Packages)
	prober := &fingerprint.SourceProber{VCSBin: "git"}

	script := fakeCargo(t, t.TempDir(), 0)
	ctx := context.Background()
	sig := make(chan os.Signal)

	opts := Options{
		CargoBin:   script,
		RustcBin:   "/bin/echo",
		WorkDir:    root,
		Subcommand: "build",
		Environ:    os.Environ(),
	}

	res, err := Run(ctx, sig, store, cache, graph, prober, ws, opts)
	require.NoError(t, err)
	require.False(t, res.ShortCircuit)
	require.Equal(t, 0, res.ExitCode)
	require.NotEmpty(t, res.InvocationID)

	fp := res.Classes["foo"]
	require.NotEqual(t, cachestore.Fresh, fp.Classification.Status) // was dirty this run

	records, _ := filepath.Glob(filepath.Join(store.IncrementalDir(), "foo-*.json"))
	require.Len(t, records, 1, "a successful build must write one incremental record for foo")

	content, err := os.ReadFile(res.LogPath)
	require.NoError(t, err)
	require.Contains(t, string(content), "building")
	require.Contains(t, string(content), "a-warning")

	meta, err := cache.ReadMetadata(res.InvocationID)
	require.NoError(t, err)
	require.Equal(t, "build", meta.Subcommand)
	require.Equal(t, 0, meta.ExitCode)
}

func TestRunSecondInvocationShortCircuits(t *testing.T) {
	ws, root := newTestWorkspace(t)
	cacheDir := t.TempDir()
	store := &cachestore.Store{Root: cacheDir, Schema: 1}
	cache := &logcache.Cache{Store: store}
	graph := depgraph.Build(ws.Packages)
	prober := &fingerprint.SourceProber{VCSBin: "git"}
	script := fakeCargo(t, t.TempDir(), 0)
	ctx := context.Background()
	sig := make(chan os.Signal)

	opts := Options{
		CargoBin:   script,
		RustcBin:   "/bin/echo",
		WorkDir:    root,
		Subcommand: "build",
		Environ:    os.Environ(),
	}

	first, err := Run(ctx, sig, store, cache, graph, prober, ws, opts)
	require.NoError(t, err)
	require.False(t, first.ShortCircuit)

	second, err := Run(ctx, sig, store, cache, graph, prober, ws, opts)
	require.NoError(t, err)
	require.True(t, second.ShortCircuit)
	require.Equal(t, 0, second.ExitCode)
}

func TestRunFailureWritesNoRecord(t *testing.T) {
	ws, root := newTestWorkspace(t)
	cacheDir := t.TempDir()
	store := &cachestore.Store{Root: cacheDir, Schema: 1}
	cache := &logcache.Cache{Store: store}
	graph := depgraph.Build(ws.Packages)
	prober := &fingerprint.SourceProber{VCSBin: "git"}
	script := fakeCargo(t, t.TempDir(), 1)
	ctx := context.Background()
	sig := make(chan os.Signal)

	opts := Options{
		CargoBin:   script,
		RustcBin:   "/bin/echo",
		WorkDir:    root,
		Subcommand: "build",
		Environ:    os.Environ(),
	}

	res, err := Run(ctx, sig, store, cache, graph, prober, ws, opts)
	require.NoError(t, err)
	require.Equal(t, 1, res.ExitCode)

	matches, _ := filepath.Glob(filepath.Join(store.IncrementalDir(), "foo-*.json"))
	require.Empty(t, matches, "a failed build must not write an incremental record")

	_, err = os.Stat(res.LogPath)
	require.NoError(t, err, "the log must still be persisted on failure")
}

// TestRunHandlesSignalWithoutPanicAndFinalizesLog exercises the cancellation
// path of spec §5/§4.F step 5: a signal arriving mid-build must not panic on
// a double channel close, must forward the signal to the child, and must
// still flush and mark the log before returning exit code 130.
func TestRunHandlesSignalWithoutPanicAndFinalizesLog(t *testing.T) {
	ws, root := newTestWorkspace(t)
	cacheDir := t.TempDir()
	store := &cachestore.Store{Root: cacheDir, Schema: 1}
	cache := &logcache.Cache{Store: store}
	graph := depgraph.Build(ws.Packages)
	prober := &fingerprint.SourceProber{VCSBin: "git"}

	scriptPath := filepath.Join(t.TempDir(), "slow-cargo.sh")
	script := "#!/bin/sh\necho starting\nsleep 2\necho should-not-appear\nexit 0\n"
	require.NoError(t, os.WriteFile(scriptPath, []byte(script), 0755))

	ctx := context.Background()
	sig := make(chan os.Signal, 1)

	opts := Options{
		CargoBin:   scriptPath,
		RustcBin:   "/bin/echo",
		WorkDir:    root,
		Subcommand: "build",
		Environ:    os.Environ(),
	}

	go func() {
		time.Sleep(100 * time.Millisecond)
		sig <- os.Interrupt
	}()

	res, err := Run(ctx, sig, store, cache, graph, prober, ws, opts)
	require.NoError(t, err)
	require.Equal(t, 130, res.ExitCode)
	require.Equal(t, os.Interrupt.String(), res.Signal)

	content, err := os.ReadFile(res.LogPath)
	require.NoError(t, err)
	require.Contains(t, string(content), "starting")
	require.Contains(t, string(content), "terminated by signal")
	require.NotContains(t, string(content), "should-not-appear")

	matches, _ := filepath.Glob(filepath.Join(store.IncrementalDir(), "foo-*.json"))
	require.Empty(t, matches, "a signaled build must not write an incremental record")
}

func TestExitCodeOf(t *testing.T) {
	require.Equal(t, 130, exitCodeOf(nil, "interrupt"))
	require.Equal(t, 0, exitCodeOf(nil, ""))
}
