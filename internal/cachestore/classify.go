package cachestore

import "github.com/cargosave/cargo-save/internal/fingerprint"

// Status is a package's classification for one invocation (spec §4.E).
type Status int

const (
	Fresh Status = iota
	Dirty
	DirtyTransitive
)

func (s Status) String() string {
	switch s {
	case Fresh:
		return "Fresh"
	case Dirty:
		return "Dirty"
	case DirtyTransitive:
		return "DirtyTransitive"
	default:
		return "Unknown"
	}
}

// Reason discriminates why a package classified Dirty (spec §4.E). It is
// meaningless when Status is Fresh or DirtyTransitive (the latter's reason
// is "some dependency is dirty", tracked by the caller, not by this type).
type Reason int

const (
	ReasonNone Reason = iota
	SourceChanged
	DepsChanged // lockfile hash mismatch: an external dependency's resolved version changed
	EnvChanged
	FeaturesChanged
	ToolchainChanged
	ProfileChanged
	ArtifactMissing
	NoRecord
	PriorFailure
	CorruptRecord
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "None"
	case SourceChanged:
		return "SourceChanged"
	case DepsChanged:
		return "DepsChanged"
	case EnvChanged:
		return "EnvChanged"
	case FeaturesChanged:
		return "FeaturesChanged"
	case ToolchainChanged:
		return "ToolchainChanged"
	case ProfileChanged:
		return "ProfileChanged"
	case ArtifactMissing:
		return "ArtifactMissing"
	case NoRecord:
		return "NoRecord"
	case PriorFailure:
		return "PriorFailure"
	case CorruptRecord:
		return "CorruptRecord"
	default:
		return "Unknown"
	}
}

// Classification is the outcome of classifying one package for one
// invocation.
type Classification struct {
	Status Status
	Reason Reason
}

// StatFunc reports the current size of an artifact path on the host
// filesystem, and whether it exists at all.
type StatFunc func(path string) (size int64, exists bool)

// Validate implements spec §4.E's validate(record, fingerprint, artifact
// filesystem) -> bool, returning the Dirty reason instead of a bare bool so
// callers can report *why* a package is dirty.
//
// Mtime is never compared: size is a deliberate, cheap structural witness,
// not a strong integrity check (spec §4.E).
func Validate(rec *Record, fp fingerprint.PackageFingerprint, stat StatFunc) (bool, Reason) {
	if rec == nil {
		return false, NoRecord
	}
	if !rec.Success {
		return false, PriorFailure
	}
	if rec.SourceHash != fp.SourceHash {
		return false, SourceChanged
	}
	if rec.LockfileHash != fp.LockfileHash {
		return false, DepsChanged
	}
	if rec.EnvHash != fp.EnvHash {
		return false, EnvChanged
	}
	if rec.FeaturesHash != fp.FeaturesHash {
		return false, FeaturesChanged
	}
	if rec.ToolchainHash != fp.ToolchainHash {
		return false, ToolchainChanged
	}
	if rec.Profile != fp.Profile {
		return false, ProfileChanged
	}
	for _, w := range rec.Witnesses {
		size, exists := stat(w.ArtifactPath)
		if !exists || size != w.ByteSize {
			return false, ArtifactMissing
		}
	}
	return true, ReasonNone
}

// Classify looks up and validates the record for fp, returning the full
// Classification. It does not consider transitive reverse-dependency
// propagation (spec §4.D augments the result separately, in the
// orchestrator).
//
// The exact CacheKey encodes the source/command/env/features/profile
// hashes in its filename (see key.go), so a package whose env (or source,
// features, or profile) changed since its last successful build misses the
// exact-key lookup even though a record for the package still exists under
// the old key. Collapsing that straight to NoRecord would make
// Dirty(EnvChanged)/(SourceChanged)/(FeaturesChanged)/(ProfileChanged)
// unreachable, so on an exact-key miss Classify falls back to the
// package's most recent record for the same command and validates against
// that instead — NoRecord is reserved for a package with no prior record
// under the current command at all.
//
// The fallback is scoped to the current command hash: Validate never
// compares CommandHash (there is no CommandChanged reason — a different
// command is simply a different, independent cache entry), so widening the
// fallback across commands would let a stale record from an unrelated
// command (e.g. `test`'s record surfacing while classifying `build`) be
// reported Fresh.
func (s *Store) Classify(fp fingerprint.PackageFingerprint, stat StatFunc) Classification {
	rec, err := s.Lookup(BuildKey(fp))
	if err != nil {
		// Lookup never actually returns a non-nil error today (corruption
		// degrades to a miss), but keep the escape hatch honest.
		return Classification{Status: Dirty, Reason: CorruptRecord}
	}
	if rec == nil {
		rec, err = s.lookupMostRecentForCommand(fp.Name, fp.CommandHash)
		if err != nil {
			return Classification{Status: Dirty, Reason: CorruptRecord}
		}
	}
	ok, reason := Validate(rec, fp, stat)
	if ok {
		return Classification{Status: Fresh, Reason: ReasonNone}
	}
	return Classification{Status: Dirty, Reason: reason}
}
