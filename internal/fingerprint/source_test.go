package fingerprint

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParsePorcelainPath(t *testing.T) {
	cases := []struct {
		line string
		want string
		ok   bool
	}{
		{" M src/lib.rs", "src/lib.rs", true},
		{"?? new_file.rs", "new_file.rs", true},
		{"R  old.rs -> new.rs", "new.rs", true},
		{`?? "quoted path.rs"`, "quoted path.rs", true},
		{"xy", "", false},
	}
	for _, c := range cases {
		got, ok := parsePorcelainPath(c.line)
		require.Equal(t, c.ok, ok, c.line)
		if ok {
			require.Equal(t, c.want, got, c.line)
		}
	}
}

func TestIsLFSPointerAndObjectIDLine(t *testing.T) {
	stub := []byte("version https://git-lfs.github.com/spec/v1\noid sha256:abc123\nsize 456\n")
	require.True(t, isLFSPointer(stub))
	require.Equal(t, "oid sha256:abc123", lfsObjectIDLine(stub))

	require.False(t, isLFSPointer([]byte("fn main() {}")))
}

func TestSparseCheckoutPatternsSkipsBlankAndComments(t *testing.T) {
	gitDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(gitDir, "info"), 0755))
	content := "# a comment\n\n/src/*\n!/src/generated/\n"
	require.NoError(t, os.WriteFile(filepath.Join(gitDir, "info", "sparse-checkout"), []byte(content), 0644))

	got, ok := sparseCheckoutPatterns(gitDir)
	require.True(t, ok)
	require.Equal(t, "/src/*\n!/src/generated/", got)

	_, ok = sparseCheckoutPatterns(t.TempDir())
	require.False(t, ok)
}

func TestShallowCloneDetection(t *testing.T) {
	gitDir := t.TempDir()
	require.False(t, shallowClone(gitDir))
	require.NoError(t, os.WriteFile(filepath.Join(gitDir, "shallow"), []byte("abc\n"), 0644))
	require.True(t, shallowClone(gitDir))
}

func TestFallbackWalkIsDeterministicAndSkipsIgnoredDirs(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "target", "debug"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "lib.rs"), []byte("fn lib() {}"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "Cargo.toml"), []byte("[package]\nname=\"foo\""), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "target", "debug", "foo.rlib"), []byte("binary junk"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "README.md"), []byte("not hashed"), 0644))

	p := &SourceProber{}
	d1, err := p.fallbackWalk(root)
	require.NoError(t, err)
	d2, err := p.fallbackWalk(root)
	require.NoError(t, err)
	require.Equal(t, d1, d2, "hashing the same tree twice must be deterministic")

	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "lib.rs"), []byte("fn lib() { changed() }"), 0644))
	d3, err := p.fallbackWalk(root)
	require.NoError(t, err)
	require.NotEqual(t, d1, d3, "changing a hashed file's content must change the digest")

	require.NoError(t, os.WriteFile(filepath.Join(root, "README.md"), []byte("edited, still not hashed"), 0644))
	d4, err := p.fallbackWalk(root)
	require.NoError(t, err)
	require.Equal(t, d3, d4, "non-source extensions must not affect the digest")
}

func TestHashFallsBackWhenNoVCSPresent(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "lib.rs"), []byte("fn x() {}"), 0644))

	p := &SourceProber{VCSBin: "cargo-save-nonexistent-vcs-binary"}
	digest, err := p.Hash(context.Background(), root)
	require.NoError(t, err)
	require.NotEmpty(t, digest)
}
