package cacheerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"
)

func TestFatalKinds(t *testing.T) {
	fatal := []Kind{MetadataUnavailable, CacheRootUnwritable, ChildSpawnFailed}
	for _, k := range fatal {
		require.True(t, k.Fatal(), "%s should be fatal", k)
	}

	recoverable := []Kind{SourceHashFailed, RecordCorrupt, VcsUnavailable, ChildFailed}
	for _, k := range recoverable {
		require.False(t, k.Fatal(), "%s should not be fatal", k)
	}
}

func TestIsUnwrapsThroughWrapping(t *testing.T) {
	base := New(SourceHashFailed, "foo", errors.New("boom"))
	wrapped := xerrors.Errorf("computing fingerprint: %w", base)

	require.True(t, Is(wrapped, SourceHashFailed))
	require.False(t, Is(wrapped, VcsUnavailable))
	require.False(t, Is(errors.New("unrelated"), SourceHashFailed))
}

func TestErrorStringIncludesPackageWhenSet(t *testing.T) {
	withPkg := New(ChildFailed, "foo", errors.New("exit status 1"))
	require.Contains(t, withPkg.Error(), "foo")

	withoutPkg := New(MetadataUnavailable, "", errors.New("no cargo"))
	require.NotContains(t, withoutPkg.Error(), "()")
}

func TestNewfFormatsMessage(t *testing.T) {
	err := Newf(RecordCorrupt, "foo", "record %s: truncated", "foo-abcd.json")
	require.Contains(t, err.Error(), "truncated")
	require.True(t, Is(err, RecordCorrupt))
}
