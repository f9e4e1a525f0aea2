package cachestore

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cargosave/cargo-save/internal/fingerprint"
)

func TestClassifyFreshOnExactKeyHit(t *testing.T) {
	dir := t.TempDir()
	s := &Store{Root: dir, Schema: 1}
	fp := testFingerprint("foo")
	require.NoError(t, s.Store(BuildKey(fp), recordFrom(fp)))

	got := s.Classify(fp, alwaysExists(0))
	require.Equal(t, Fresh, got.Status)
	require.Equal(t, ReasonNone, got.Reason)
}

func TestClassifyNoRecordWhenNothingStored(t *testing.T) {
	dir := t.TempDir()
	s := &Store{Root: dir, Schema: 1}
	got := s.Classify(testFingerprint("foo"), alwaysExists(0))
	require.Equal(t, Dirty, got.Status)
	require.Equal(t, NoRecord, got.Reason)
}

// TestClassifyFallsBackToDiscriminateKeyedDrift exercises the fix for
// Dirty(EnvChanged)/(SourceChanged)/(FeaturesChanged)/(ProfileChanged):
// those hashes are embedded in the record's filename, so a package whose
// env/source/features/profile changed misses the exact-key lookup, yet
// Classify must still report the specific reason instead of NoRecord.
func TestClassifyFallsBackToDiscriminateKeyedDrift(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*fingerprint.PackageFingerprint)
		want   Reason
	}{
		{"source", func(f *fingerprint.PackageFingerprint) { f.SourceHash = "changed" }, SourceChanged},
		{"env", func(f *fingerprint.PackageFingerprint) { f.EnvHash = "changed" }, EnvChanged},
		{"features", func(f *fingerprint.PackageFingerprint) { f.FeaturesHash = "changed" }, FeaturesChanged},
		{"profile", func(f *fingerprint.PackageFingerprint) { f.Profile = "release" }, ProfileChanged},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			dir := t.TempDir()
			s := &Store{Root: dir, Schema: 1}
			original := testFingerprint("foo")
			require.NoError(t, s.Store(BuildKey(original), recordFrom(original)))

			current := original
			c.mutate(&current)

			got := s.Classify(current, alwaysExists(0))
			require.Equal(t, Dirty, got.Status)
			require.Equal(t, c.want, got.Reason, "expected the discriminated reason, not a bare NoRecord")
		})
	}
}

// TestClassifyNeverReusesAnotherCommandsRecord guards the fallback's scope:
// Validate has no CommandChanged reason, so a record from a different
// command must never be picked up as a Fresh hit for the current one.
func TestClassifyNeverReusesAnotherCommandsRecord(t *testing.T) {
	dir := t.TempDir()
	s := &Store{Root: dir, Schema: 1}

	buildFP := testFingerprint("foo")
	buildFP.CommandHash = "build-cmd-hash"
	require.NoError(t, s.Store(BuildKey(buildFP), recordFrom(buildFP)))

	testFP := buildFP
	testFP.CommandHash = "test-cmd-hash"

	got := s.Classify(testFP, alwaysExists(0))
	require.Equal(t, Dirty, got.Status)
	require.Equal(t, NoRecord, got.Reason, "a different command must never be classified Fresh off another command's record")
}
