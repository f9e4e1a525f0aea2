// Package cacheerr defines the error taxonomy shared by every component of
// the wrapper: a small set of discriminated kinds (not exception classes)
// that the caller switches on to decide whether to abort, degrade to a
// Dirty classification, or silently skip. See spec §7.
package cacheerr

import (
	"fmt"

	"golang.org/x/xerrors"
)

// Kind discriminates the error taxonomy of spec §7.
type Kind int

const (
	// MetadataUnavailable: the underlying builder cannot enumerate the
	// workspace. Fatal.
	MetadataUnavailable Kind = iota
	// CacheRootUnwritable: cannot create or write the cache directory. Fatal.
	CacheRootUnwritable
	// ChildSpawnFailed: the underlying builder could not be executed. Fatal.
	ChildSpawnFailed
	// SourceHashFailed: neither fast nor fallback path produced a digest.
	// Non-fatal, converted to a Dirty classification for that package.
	SourceHashFailed
	// RecordCorrupt: malformed on-disk record. Non-fatal, treated as a miss.
	RecordCorrupt
	// VcsUnavailable: the VCS subprocess failed. Non-fatal, silent fallback.
	VcsUnavailable
	// ChildFailed: the underlying builder returned non-zero. Non-fatal from
	// the wrapper's point of view: its exit code is propagated verbatim.
	ChildFailed
)

func (k Kind) String() string {
	switch k {
	case MetadataUnavailable:
		return "MetadataUnavailable"
	case CacheRootUnwritable:
		return "CacheRootUnwritable"
	case ChildSpawnFailed:
		return "ChildSpawnFailed"
	case SourceHashFailed:
		return "SourceHashFailed"
	case RecordCorrupt:
		return "RecordCorrupt"
	case VcsUnavailable:
		return "VcsUnavailable"
	case ChildFailed:
		return "ChildFailed"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Fatal reports whether this kind aborts the whole invocation (vs. being
// recovered into a Dirty classification or a silent skip).
func (k Kind) Fatal() bool {
	switch k {
	case MetadataUnavailable, CacheRootUnwritable, ChildSpawnFailed:
		return true
	default:
		return false
	}
}

// Error wraps an underlying error with its taxonomy Kind and, where
// applicable, the package it concerns.
type Error struct {
	Kind Kind
	Pkg  string // empty when not package-specific
	Err  error
}

func (e *Error) Error() string {
	if e.Pkg != "" {
		return fmt.Sprintf("%s(%s): %v", e.Kind, e.Pkg, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err as a cacheerr.Error of the given kind.
func New(kind Kind, pkg string, err error) *Error {
	return &Error{Kind: kind, Pkg: pkg, Err: err}
}

// Newf is New with a formatted message in place of a pre-built error.
func Newf(kind Kind, pkg, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Pkg: pkg, Err: xerrors.Errorf(format, args...)}
}

// Is reports whether err is a *Error of the given kind, unwrapping as
// needed.
func Is(err error, kind Kind) bool {
	var e *Error
	if xerrors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
