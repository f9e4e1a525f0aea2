package fingerprint

import (
	"context"
	"log"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/cargosave/cargo-save/internal/workspace"
)

// PackageFingerprint is spec §3's PackageFingerprint: computed fresh every
// invocation, never persisted by itself (only as part of an
// IncrementalRecord once a build succeeds).
type PackageFingerprint struct {
	Name          string
	SourceHash    string // full digest
	LockfileHash  string // full digest
	EnvHash       string // full digest
	FeaturesHash  string // full digest
	ToolchainHash string // full digest
	Profile       string
	CommandHash   string // full digest
}

// Inputs bundles everything invocation-wide (as opposed to per-package)
// that feeds the auxiliary hashers.
type Inputs struct {
	LockfilePath string
	Environ      []string
	RustcBin     string
	Subcommand   string
	Args         []string
}

// Shared holds the auxiliary hashes that are identical for every package in
// one invocation: lockfile, environment, features, toolchain, command, and
// the profile tag. Computing them once and reusing them across packages
// avoids redundant subprocess calls (spec §5 "cheap enough" reasoning
// applied to the non-source hashers too).
type Shared struct {
	Lockfile  Prefixed
	Env       Prefixed
	Features  Prefixed
	Toolchain Prefixed
	Command   Prefixed
	Profile   string
}

// ComputeShared runs the invocation-wide auxiliary hashers.
func ComputeShared(ctx context.Context, in Inputs) (Shared, error) {
	lockfile, err := LockfileHash(in.LockfilePath)
	if err != nil {
		return Shared{}, err
	}
	toolchain, err := ToolchainHash(ctx, in.RustcBin)
	if err != nil {
		return Shared{}, err
	}
	return Shared{
		Lockfile:  lockfile,
		Env:       EnvHash(in.Environ),
		Features:  FeaturesHash(in.Args),
		Toolchain: toolchain,
		Command:   CommandHash(in.Subcommand, in.Args),
		Profile:   ProfileTag(in.Args),
	}, nil
}

// ComputeAll fingerprints every package in pkgs. Source hashing is the only
// per-package, I/O-bound step, so it runs as a data-parallel fan-out sized
// to the host's CPU count (spec §5: "bag of independent tasks, join at the
// end"); results are aggregated into a map keyed by package name, so
// completion order is unobservable (spec §5 "Ordering guarantees").
//
// A SourceHashFailed error for one package does not abort the others (spec
// §7: "non-fatal"): that package gets a zero-value SourceHash (which can
// never match a stored record, so it classifies Dirty) and its error is
// returned in the errs map, keyed by package name, for the caller to log.
func ComputeAll(ctx context.Context, prober *SourceProber, pkgs []workspace.Package, shared Shared, logger *log.Logger) (results map[string]PackageFingerprint, errs map[string]error) {
	results = make(map[string]PackageFingerprint, len(pkgs))
	errs = make(map[string]error)
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	for _, pkg := range pkgs {
		pkg := pkg
		g.Go(func() error {
			srcHash, err := prober.Hash(gctx, pkg.Root)
			fp := PackageFingerprint{
				Name:          pkg.Name,
				SourceHash:    srcHash,
				LockfileHash:  shared.Lockfile.Full,
				EnvHash:       shared.Env.Full,
				FeaturesHash:  shared.Features.Full,
				ToolchainHash: shared.Toolchain.Full,
				Profile:       shared.Profile,
				CommandHash:   shared.Command.Full,
			}
			mu.Lock()
			results[pkg.Name] = fp
			if err != nil {
				errs[pkg.Name] = err
				if logger != nil {
					logger.Printf("cargo-save: warning: %v", err)
				}
			}
			mu.Unlock()
			return nil // never abort the group for a per-package hash failure
		})
	}

	// Group can never fail (the goroutines themselves never return an
	// error), but Wait still joins all tasks before returning, giving the
	// fan-out its "join at the end" semantics (spec §5).
	_ = g.Wait()
	return results, errs
}
