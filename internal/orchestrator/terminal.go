package orchestrator

import (
	"os"

	"github.com/mattn/go-isatty"
	"golang.org/x/sys/unix"
)

// isTerminal reports whether f looks like an interactive terminal. Two
// independent strategies are tried in turn: go-isatty's check, then a raw
// TCGETS ioctl probe via x/sys/unix; either one succeeding is enough.
func isTerminal(f *os.File) bool {
	if isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()) {
		return true
	}
	_, err := unix.IoctlGetTermios(int(f.Fd()), unix.TCGETS)
	return err == nil
}
