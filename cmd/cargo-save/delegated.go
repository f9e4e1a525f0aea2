package main

import (
	"context"
	"os"

	"github.com/cargosave/cargo-save/internal/orchestrator"
)

// delegatedCmd handles the six subcommands the wrapper applies caching
// logic to (spec §4.F, §6).
func delegatedCmd(ctx context.Context, env *bootstrap, args []string) error {
	subcommand := currentSubcommand(ctx)
	opts := orchestrator.Options{
		CargoBin:           env.CargoBin,
		WorkDir:            env.WS.Root,
		Subcommand:         subcommand,
		Args:               args,
		Environ:            os.Environ(),
		LockfilePath:       env.WS.Root + "/Cargo.lock",
		DisableIncremental: !env.Config.Incremental(),
		Stdout:             os.Stdout,
		Logger:             env.Logger,
	}

	res, err := orchestrator.Run(ctx, env.Signal, env.Store, env.Cache, env.Graph, env.Prober, env.WS, opts)
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		os.Exit(res.ExitCode)
	}
	return nil
}

// currentSubcommand recovers the verb main() dispatched on. funcmain sets
// subcommandKey on the context right before calling v.fn so every delegated
// handler can recover it without changing the shared cmd.fn signature.
type subcommandKeyType struct{}

var subcommandKey = subcommandKeyType{}

func currentSubcommand(ctx context.Context) string {
	if s, ok := ctx.Value(subcommandKey).(string); ok {
		return s
	}
	return "build"
}
