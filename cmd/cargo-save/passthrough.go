package main

import (
	"os"

	"github.com/cargosave/cargo-save/internal/orchestrator"
)

// passthroughVerb runs an unrecognized subcommand through cargo directly,
// with no caching logic applied at all (spec §4.F step 1, §6).
func passthroughVerb(verb string, args []string) (int, error) {
	cargoBin := os.Getenv("CARGO")
	if cargoBin == "" {
		cargoBin = "cargo"
	}
	wd, err := os.Getwd()
	if err != nil {
		return 0, err
	}
	return orchestrator.Passthrough(cargoBin, wd, verb, args, os.Environ())
}
