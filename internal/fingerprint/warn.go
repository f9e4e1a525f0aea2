package fingerprint

import (
	"log"
	"sync"
)

// fallbackWarned is the one-shot latch for the "using filesystem-walk
// fallback" notice (spec §4.A, §9 "Global state"). It is process-wide
// mutable state by design, modeled as a run-once latch rather than a
// cross-cutting flag threaded through every call.
var fallbackWarned sync.Once

// warnFallback logs reason at most once per process, regardless of how many
// packages end up taking the fallback path.
func warnFallback(logger *log.Logger, reason string) {
	fallbackWarned.Do(func() {
		if logger == nil {
			logger = log.Default()
		}
		logger.Printf("cargo-save: warning: %s, falling back to filesystem-walk hashing", reason)
	})
}

// ResetFallbackWarningForTest clears the one-shot latch. Test-only.
func ResetFallbackWarningForTest() {
	fallbackWarned = sync.Once{}
}
