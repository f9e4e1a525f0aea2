package orchestrator

import "os/exec"

// exitCodeOf derives the wrapper's own exit code from the child's Wait
// error (spec §6 "the child's exit code on real runs") and whether the
// invocation was signal-terminated (spec §5: exit 130 if the child died to
// the signal).
func exitCodeOf(waitErr error, signalRecv string) int {
	if signalRecv != "" {
		return 130
	}
	if waitErr == nil {
		return 0
	}
	if exitErr, ok := waitErr.(*exec.ExitError); ok {
		return exitErr.ExitCode()
	}
	return 1
}
