package orchestrator

import (
	"os"
	"os/exec"
)

// Passthrough runs an unrecognized subcommand with no caching logic
// attached at all (spec §4.F step 1, §6 "any unrecognized subcommand is a
// pass-through"): stdio is inherited directly, nothing is logged or cached.
func Passthrough(cargoBin, workDir string, subcommand string, args []string, environ []string) (int, error) {
	if cargoBin == "" {
		cargoBin = "cargo"
	}
	cmd := exec.Command(cargoBin, append([]string{subcommand}, args...)...)
	cmd.Dir = workDir
	cmd.Env = environ
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	err := cmd.Run()
	return exitCodeOf(err, ""), nil
}
