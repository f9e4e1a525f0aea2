package cachestore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cargosave/cargo-save/internal/fingerprint"
)

func testFingerprint(name string) fingerprint.PackageFingerprint {
	return fingerprint.PackageFingerprint{
		Name:          name,
		SourceHash:    "src",
		LockfileHash:  "lock",
		EnvHash:       "env",
		FeaturesHash:  "feat",
		ToolchainHash: "tool",
		Profile:       "debug",
		CommandHash:   "cmd",
	}
}

func recordFrom(fp fingerprint.PackageFingerprint) Record {
	return Record{
		Name:          fp.Name,
		Version:       "1.0.0",
		SourceHash:    fp.SourceHash,
		LockfileHash:  fp.LockfileHash,
		CommandHash:   fp.CommandHash,
		EnvHash:       fp.EnvHash,
		FeaturesHash:  fp.FeaturesHash,
		Profile:       fp.Profile,
		ToolchainHash: fp.ToolchainHash,
		Timestamp:     NowISO8601(time.Now()),
		Success:       true,
	}
}

func alwaysExists(size int64) StatFunc {
	return func(path string) (int64, bool) { return size, true }
}

func TestStoreRoundTripValidates(t *testing.T) {
	dir := t.TempDir()
	s := &Store{Root: dir, Schema: 1}
	fp := testFingerprint("foo")
	key := BuildKey(fp)
	rec := recordFrom(fp)

	require.NoError(t, s.Store(key, rec))

	got, err := s.Lookup(key)
	require.NoError(t, err)
	require.NotNil(t, got)

	ok, reason := Validate(got, fp, alwaysExists(0))
	require.True(t, ok)
	require.Equal(t, ReasonNone, reason)
}

func TestValidateDetectsEachDrift(t *testing.T) {
	fp := testFingerprint("foo")
	rec := recordFrom(fp)

	cases := []struct {
		name   string
		mutate func(*fingerprint.PackageFingerprint)
		want   Reason
	}{
		{"source", func(f *fingerprint.PackageFingerprint) { f.SourceHash = "other" }, SourceChanged},
		{"lockfile", func(f *fingerprint.PackageFingerprint) { f.LockfileHash = "other" }, DepsChanged},
		{"env", func(f *fingerprint.PackageFingerprint) { f.EnvHash = "other" }, EnvChanged},
		{"features", func(f *fingerprint.PackageFingerprint) { f.FeaturesHash = "other" }, FeaturesChanged},
		{"toolchain", func(f *fingerprint.PackageFingerprint) { f.ToolchainHash = "other" }, ToolchainChanged},
		{"profile", func(f *fingerprint.PackageFingerprint) { f.Profile = "release" }, ProfileChanged},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			mutated := fp
			c.mutate(&mutated)
			ok, reason := Validate(&rec, mutated, alwaysExists(0))
			require.False(t, ok)
			require.Equal(t, c.want, reason)
		})
	}
}

func TestValidateRejectsPriorFailure(t *testing.T) {
	fp := testFingerprint("foo")
	rec := recordFrom(fp)
	rec.Success = false
	ok, reason := Validate(&rec, fp, alwaysExists(0))
	require.False(t, ok)
	require.Equal(t, PriorFailure, reason)
}

func TestValidateChecksWitnessSize(t *testing.T) {
	fp := testFingerprint("foo")
	rec := recordFrom(fp)
	rec.Witnesses = []Witness{{ArtifactPath: "/tmp/foo.rlib", ByteSize: 100}}

	statWrongSize := func(path string) (int64, bool) { return 50, true }
	ok, reason := Validate(&rec, fp, statWrongSize)
	require.False(t, ok)
	require.Equal(t, ArtifactMissing, reason)

	statMissing := func(path string) (int64, bool) { return 0, false }
	ok, reason = Validate(&rec, fp, statMissing)
	require.False(t, ok)
	require.Equal(t, ArtifactMissing, reason)
}

func TestStoreRefusesFailedRecord(t *testing.T) {
	dir := t.TempDir()
	s := &Store{Root: dir, Schema: 1}
	fp := testFingerprint("foo")
	rec := recordFrom(fp)
	rec.Success = false
	require.Error(t, s.Store(BuildKey(fp), rec))
}

func TestLookupDeletesMalformedRecord(t *testing.T) {
	dir := t.TempDir()
	s := &Store{Root: dir, Schema: 1}
	require.NoError(t, s.EnsureDirs())
	fp := testFingerprint("foo")
	key := BuildKey(fp)
	path := filepath.Join(s.IncrementalDir(), key.Filename())
	require.NoError(t, os.WriteFile(path, []byte("{not valid json"), 0644))

	got, err := s.Lookup(key)
	require.NoError(t, err)
	require.Nil(t, got)
	require.NoFileExists(t, path)
}

func TestInvalidateOnlyRemovesMatchingPackage(t *testing.T) {
	dir := t.TempDir()
	s := &Store{Root: dir, Schema: 1}
	fooFP := testFingerprint("foo")
	barFP := testFingerprint("foobar") // shares "foo" as a prefix but is a distinct package
	require.NoError(t, s.Store(BuildKey(fooFP), recordFrom(fooFP)))
	require.NoError(t, s.Store(BuildKey(barFP), recordFrom(barFP)))

	require.NoError(t, s.Invalidate("foo"))

	got, err := s.Lookup(BuildKey(fooFP))
	require.NoError(t, err)
	require.Nil(t, got)

	got, err = s.Lookup(BuildKey(barFP))
	require.NoError(t, err)
	require.NotNil(t, got)
}

func TestSchemaVersionIsolation(t *testing.T) {
	dir := t.TempDir()
	v1 := &Store{Root: dir, Schema: 1}
	v2 := &Store{Root: dir, Schema: 2}
	fp := testFingerprint("foo")
	require.NoError(t, v1.Store(BuildKey(fp), recordFrom(fp)))

	got, err := v2.Lookup(BuildKey(fp))
	require.NoError(t, err)
	require.Nil(t, got, "a v2 store must never read v1 records")
}
