package main

import (
	"context"
	"fmt"
	"os"

	"github.com/cargosave/cargo-save/internal/cachestore"
	"github.com/cargosave/cargo-save/internal/fingerprint"
	"github.com/cargosave/cargo-save/internal/orchestrator"
)

// statusCmd prints each workspace package's current classification without
// running a build — a pure read over (C), (A)+(B), (D), (E) (spec §12).
func statusCmd(ctx context.Context, env *bootstrap, args []string) error {
	classes, err := classifyCurrentState(ctx, env, args)
	if err != nil {
		return err
	}
	for _, name := range env.WS.Names() {
		c := classes[name]
		if c.Classification.Reason == cachestore.ReasonNone {
			fmt.Printf("%s\t%s\n", name, c.Classification.Status)
			continue
		}
		fmt.Printf("%s\t%s(%s)\n", name, c.Classification.Status, c.Classification.Reason)
	}
	return nil
}

// listCmd prints every workspace member known to the Introspector (spec §12).
func listCmd(ctx context.Context, env *bootstrap, args []string) error {
	for _, p := range env.WS.Packages {
		fmt.Printf("%s %s\t%s\n", p.Name, p.Version, p.Root)
	}
	return nil
}

// warmCmd is a read-only dry-run: it computes the reverse-dependency
// closure over the current dirty set and reports what a real invocation
// would build, without building anything (spec §12).
func warmCmd(ctx context.Context, env *bootstrap, args []string) error {
	classes, err := classifyCurrentState(ctx, env, args)
	if err != nil {
		return err
	}
	var dirty int
	for _, name := range env.WS.Names() {
		if classes[name].Classification.Status != cachestore.Fresh {
			fmt.Printf("would build: %s (%s)\n", name, classes[name].Classification.Reason)
			dirty++
		}
	}
	if dirty == 0 {
		fmt.Println("cargo-save: all packages up to date")
	}
	return nil
}

// classifyCurrentState runs the same classification pipeline as the
// orchestrator (spec §4.F steps 1-2) but never spawns cargo.
func classifyCurrentState(ctx context.Context, env *bootstrap, args []string) (map[string]orchestrator.PackageClass, error) {
	shared, err := fingerprint.ComputeShared(ctx, fingerprint.Inputs{
		LockfilePath: env.WS.Root + "/Cargo.lock",
		Environ:      os.Environ(),
		RustcBin:     "rustc",
		Subcommand:   "build",
		Args:         args,
	})
	if err != nil {
		return nil, err
	}

	stat := func(path string) (int64, bool) {
		info, err := os.Stat(path)
		if err != nil {
			return 0, false
		}
		return info.Size(), true
	}

	plan, _ := orchestrator.Build(ctx, env.Prober, env.Store, env.Graph, env.WS.Packages, shared, stat, env.Logger)
	return plan.Classes, nil
}
