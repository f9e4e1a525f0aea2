// Package logcache implements the Log Cache & Query Engine (spec §4.G): it
// persists full build logs and per-invocation metadata, and answers
// head/tail/range/grep/errors/warnings queries over them without ever
// spawning the underlying builder.
package logcache

import (
	"time"

	"github.com/cargosave/cargo-save/internal/fingerprint"
)

// NewInvocationID builds spec §3's BuildInvocation identifier:
// "YYYYMMDD_HHMMSS-xxxxxxxx", combining the local timestamp with an 8-hex
// prefix of the command hash.
func NewInvocationID(t time.Time, commandHashFull string) string {
	return t.Format("20060102_150405") + "-" + fingerprint.Prefix16(commandHashFull)[:8]
}
