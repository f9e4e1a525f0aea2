// Command cargo-save is a smart caching wrapper around cargo: it fingerprints
// workspace packages, detects what actually changed since the last
// successful build, and short-circuits the six delegated subcommands when
// nothing did. See the root-level cargo-save module documentation for the
// full design.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"golang.org/x/xerrors"

	cargosave "github.com/cargosave/cargo-save"
)

var (
	debug = flag.Bool("debug", false, "format error messages with additional detail")
)

type cmd struct {
	fn func(ctx context.Context, env *bootstrap, args []string) error
}

func verbs() map[string]cmd {
	return map[string]cmd{
		"build":  {delegatedCmd},
		"check":  {delegatedCmd},
		"clippy": {delegatedCmd},
		"test":   {delegatedCmd},
		"doc":    {delegatedCmd},
		"run":    {delegatedCmd},

		"status":     {statusCmd},
		"list":       {listCmd},
		"warm":       {warmCmd},
		"stats":      {statsCmd},
		"clean":      {cleanCmd},
		"invalidate": {invalidateCmd},
		"cache-key":  {cacheKeyCmd},
		"query":      {queryCmd},

		"install-hooks": {notImplementedCmd("install-hooks")},
		"doctor":        {notImplementedCmd("doctor")},
		"setup-sccache": {notImplementedCmd("setup-sccache")},
	}
}

func notImplementedCmd(name string) func(ctx context.Context, env *bootstrap, args []string) error {
	return func(ctx context.Context, env *bootstrap, args []string) error {
		fmt.Fprintf(os.Stderr, "cargo-save: %s: not implemented in this build\n", name)
		return nil
	}
}

func funcmain() error {
	flag.Parse()
	args := flag.Args()
	verb := "build"
	if len(args) > 0 {
		verb, args = args[0], args[1:]
	}

	logger := log.New(os.Stderr, "cargo-save: ", 0)

	ctx, canc, sig := cargosave.InterruptibleContext()
	defer canc()

	v, ok := verbs()[verb]
	if !ok {
		// Any unrecognized subcommand is a pure pass-through: hand it to
		// cargo verbatim, with no caching logic applied (spec §4.F step 1).
		code, err := passthroughVerb(verb, args)
		if err != nil {
			return err
		}
		os.Exit(code)
	}

	env, err := newBootstrap(logger, sig)
	if err != nil {
		return err
	}

	ctx = context.WithValue(ctx, subcommandKey, verb)
	if err := v.fn(ctx, env, args); err != nil {
		if *debug {
			return xerrors.Errorf("%s: %+v", verb, err)
		}
		return xerrors.Errorf("%s: %v", verb, err)
	}
	return nil
}

func main() {
	if err := funcmain(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
