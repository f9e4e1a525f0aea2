// Package workspace implements the Workspace Introspector (spec §4.C): it
// shells out to the underlying builder's metadata command and parses the
// result into the Package list the rest of the wrapper operates on.
package workspace

// Package is one workspace member. It is read-only for the duration of one
// invocation; the Introspector is the only component that constructs it.
type Package struct {
	// Name is the package's stable name, as declared in its manifest.
	Name string
	// Version is the manifest version string (e.g. "1.2.3").
	Version string
	// ManifestPath is the absolute path to the package's manifest file.
	ManifestPath string
	// Root is the absolute package root (the manifest's parent directory).
	Root string
	// Deps holds this package's declared dependency names, restricted to
	// other workspace members. External dependencies are out of scope:
	// their changes are captured by the lockfile hash instead.
	Deps []string
}

// State is the full set of workspace packages for one invocation.
type State struct {
	Packages []Package
	// Root is the workspace root directory (parent of the root manifest).
	Root string
	// TargetDir is the configured build output directory (respecting
	// CARGO_TARGET_DIR, defaulting to "<Root>/target").
	TargetDir string
}

// ByName returns the package named n, or false if no such workspace member
// exists.
func (s *State) ByName(n string) (Package, bool) {
	for _, p := range s.Packages {
		if p.Name == n {
			return p, true
		}
	}
	return Package{}, false
}

// Names returns all workspace member names in Packages order (which
// Introspect sorts by name); Names itself does not sort.
func (s *State) Names() []string {
	names := make([]string, len(s.Packages))
	for i, p := range s.Packages {
		names[i] = p.Name
	}
	return names
}
