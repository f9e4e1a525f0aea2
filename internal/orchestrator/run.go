package orchestrator

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"sync"
	"time"

	"golang.org/x/xerrors"

	"github.com/cargosave/cargo-save/internal/cacheerr"
	"github.com/cargosave/cargo-save/internal/cachestore"
	"github.com/cargosave/cargo-save/internal/depgraph"
	"github.com/cargosave/cargo-save/internal/fingerprint"
	"github.com/cargosave/cargo-save/internal/logcache"
	"github.com/cargosave/cargo-save/internal/workspace"
)

// upToDateLine is the synthesized status line emitted on a short-circuit
// (spec §4.F step 1).
const upToDateLine = "cargo-save: all packages up to date, skipping build\n"

// streamBufferLines bounds the stdout/stderr multiplexing channel. An
// unbounded channel is a correctness risk under a chatty child (spec §9).
const streamBufferLines = 4096

// Options configures one orchestrator invocation.
type Options struct {
	CargoBin           string
	RustcBin           string
	WorkDir            string
	Subcommand         string
	Args               []string
	Environ            []string
	LockfilePath       string
	DisableIncremental bool
	Stdout             *os.File // nil disables terminal echo
	Logger             *log.Logger
}

// Result is what the CLI facade reports to the user after one invocation
// (spec §4.F "Outputs").
type Result struct {
	ExitCode     int
	InvocationID string // empty when short-circuited
	Classes      map[string]PackageClass
	LogPath      string
	ShortCircuit bool
	Signal       string // the signal received during the run and relayed to the child; empty if none
}

// Run executes the full orchestrator procedure of spec §4.F for one
// delegated subcommand.
func Run(ctx context.Context, sigCh <-chan os.Signal, store *cachestore.Store, cache *logcache.Cache, graph *depgraph.Graph, prober *fingerprint.SourceProber, ws *workspace.State, opts Options) (*Result, error) {
	if opts.CargoBin == "" {
		opts.CargoBin = "cargo"
	}
	if opts.RustcBin == "" {
		opts.RustcBin = "rustc"
	}

	shared, err := fingerprint.ComputeShared(ctx, fingerprint.Inputs{
		LockfilePath: opts.LockfilePath,
		Environ:      opts.Environ,
		RustcBin:     opts.RustcBin,
		Subcommand:   opts.Subcommand,
		Args:         opts.Args,
	})
	if err != nil {
		return nil, xerrors.Errorf("compute shared fingerprint inputs: %w", err)
	}

	stat := func(path string) (int64, bool) {
		info, err := os.Stat(path)
		if err != nil {
			return 0, false
		}
		return info.Size(), true
	}

	plan, hashErrs := Build(ctx, prober, store, graph, ws.Packages, shared, stat, opts.Logger)
	for pkg, e := range hashErrs {
		if opts.Logger != nil {
			opts.Logger.Printf("cargo-save: warning: %s: %v", pkg, e)
		}
	}

	dirty := plan.DirtyNames
	if opts.DisableIncremental {
		dirty = ws.Names()
	}

	// Step 1: short-circuit when nothing is dirty.
	if !opts.DisableIncremental && plan.IsClean() {
		fmt.Fprint(os.Stderr, upToDateLine)
		return &Result{ExitCode: 0, Classes: plan.Classes, ShortCircuit: true}, nil
	}

	// Step 3: allocate an invocation id and create the log file.
	started := time.Now()
	invocation := logcache.NewInvocationID(started, shared.Command.Full)
	logPath := store.LogPath(invocation)
	if err := store.EnsureDirs(); err != nil {
		return nil, err
	}
	logFile, err := os.Create(logPath)
	if err != nil {
		return nil, cacheerr.New(cacheerr.CacheRootUnwritable, "", xerrors.Errorf("create log %s: %w", logPath, err))
	}
	defer logFile.Close()

	// Step 4: spawn the child, inheriting working directory and environment.
	cmd := exec.Command(opts.CargoBin, append([]string{opts.Subcommand}, opts.Args...)...)
	cmd.Dir = opts.WorkDir
	cmd.Env = opts.Environ

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, cacheerr.New(cacheerr.ChildSpawnFailed, "", err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, cacheerr.New(cacheerr.ChildSpawnFailed, "", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, cacheerr.New(cacheerr.ChildSpawnFailed, "", err)
	}

	lines := make(chan streamLine, streamBufferLines)
	var producers sync.WaitGroup
	producers.Add(2)
	go pump(stdoutPipe, lines, &producers)
	go pump(stderrPipe, lines, &producers)
	go func() {
		producers.Wait()
		close(lines)
	}()

	echoTerminal := opts.Stdout != nil && isTerminal(opts.Stdout)
	var sigMu sync.Mutex
	var signalRecv string
	done := make(chan struct{})
	sigDone := make(chan struct{})
	go func() {
		defer close(sigDone)
		select {
		case s := <-sigCh:
			sigMu.Lock()
			signalRecv = s.String()
			sigMu.Unlock()
			if cmd.Process != nil {
				cmd.Process.Signal(s)
			}
		case <-done:
		}
	}()

	lineCount := 0
	writer := bufio.NewWriter(logFile)
	for l := range lines {
		if l.err != nil {
			continue // a stream read error is not a log line; the child's exit status is authoritative
		}
		fmt.Fprintln(writer, l.text)
		lineCount++
		if echoTerminal {
			fmt.Fprintln(opts.Stdout, l.text)
		}
	}
	close(done)

	waitErr := cmd.Wait()

	// Wait for the signal-relay goroutine to finish before reading
	// signalRecv: it may still be writing if sigCh fired concurrently with
	// the child's own exit.
	<-sigDone
	sigMu.Lock()
	sig := signalRecv
	sigMu.Unlock()

	// Step 5: flush and fsync the log.
	if err := writer.Flush(); err != nil {
		return nil, xerrors.Errorf("flush log %s: %w", logPath, err)
	}
	if sig != "" {
		fmt.Fprintf(writer, "cargo-save: terminated by signal %s\n", sig)
		writer.Flush()
	}
	if err := logFile.Sync(); err != nil {
		return nil, xerrors.Errorf("fsync log %s: %w", logPath, err)
	}

	duration := time.Since(started)
	exitCode := exitCodeOf(waitErr, sig)

	meta := logcache.Metadata{
		Invocation:      invocation,
		Command:         opts.CargoBin + " " + opts.Subcommand,
		Subcommand:      opts.Subcommand,
		Args:            opts.Args,
		Timestamp:       cachestore.NowISO8601(started),
		ExitCode:        exitCode,
		WorkspaceDigest: shared.Command.Full,
		Profile:         shared.Profile,
		TargetDir:       ws.TargetDir,
		LineCount:       lineCount,
		DurationMS:      duration.Milliseconds(),
		EnvHash:         shared.Env.Full,
		Signal:          sig,
	}
	if err := cache.WriteMetadata(meta); err != nil {
		return nil, err
	}

	result := &Result{
		ExitCode:     exitCode,
		InvocationID: invocation,
		Classes:      plan.Classes,
		LogPath:      logPath,
		Signal:       sig,
	}

	// Signal death or non-zero exit: no incremental records (spec §4.F
	// step 7, §5 cancellation contract).
	if sig != "" || exitCode != 0 {
		return result, nil
	}

	// Step 6: on success, compute witnesses and store a record for every
	// package in the dirty set. Packages outside it keep their existing
	// valid record untouched.
	for _, name := range dirty {
		pkg, ok := ws.ByName(name)
		if !ok {
			continue
		}
		fp, ok := plan.Fingerprints[name]
		if !ok {
			continue
		}
		witnesses, err := cachestore.Witnesses(ws.TargetDir, shared.Profile, name)
		if err != nil && opts.Logger != nil {
			opts.Logger.Printf("cargo-save: warning: list witnesses for %s: %v", name, err)
		}
		rec := cachestore.Record{
			Name:          name,
			Version:       pkg.Version,
			SourceHash:    fp.SourceHash,
			LockfileHash:  fp.LockfileHash,
			CommandHash:   fp.CommandHash,
			EnvHash:       fp.EnvHash,
			FeaturesHash:  fp.FeaturesHash,
			Profile:       fp.Profile,
			ToolchainHash: fp.ToolchainHash,
			Witnesses:     witnesses,
			Timestamp:     cachestore.NowISO8601(time.Now()),
			Success:       true,
			DurationMS:    duration.Milliseconds(),
		}
		if err := store.Store(cachestore.BuildKey(fp), rec); err != nil {
			return result, xerrors.Errorf("store record for %s: %w", name, err)
		}
	}

	return result, nil
}
