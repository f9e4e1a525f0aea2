// Package cargosave holds the small set of types and process-wide helpers
// shared across the cache wrapper: the build profile tag, schema version,
// and the signal-relaying context used by the orchestrator and the CLI
// facade.
package cargosave

// SchemaVersion is the on-disk cache layout version (the "N" in
// "<cache-root>/v<N>/"). Bump it whenever the record or metadata schema
// changes incompatibly; never write a migration, let the next build
// repopulate a fresh v<N> directory.
const SchemaVersion = 1

// Profile is the build profile tag. It is never hashed; it is used as a
// plain string in cache keys and records so debug and release caches are
// visibly separate on disk.
type Profile string

const (
	ProfileDebug   Profile = "debug"
	ProfileRelease Profile = "release"
)

// DelegatedSubcommands is the set of cargo subcommands the wrapper applies
// caching logic to. Any other subcommand is a pure pass-through.
var DelegatedSubcommands = map[string]bool{
	"build":  true,
	"check":  true,
	"clippy": true,
	"test":   true,
	"doc":    true,
	"run":    true,
}
