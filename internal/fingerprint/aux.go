package fingerprint

import (
	"context"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/cargosave/cargo-save/internal/cacheerr"
)

// Prefixed is a (full digest, 16-char prefix) pair, the shape every
// auxiliary hasher returns (spec §4.B).
type Prefixed struct {
	Full   string
	Prefix string
}

func prefixed(full string) Prefixed {
	return Prefixed{Full: full, Prefix: Prefix16(full)}
}

// LockfileHash hashes the full contents of the workspace lockfile, or
// returns the empty-input hash when no lockfile exists (spec §4.B, §8
// "Missing lockfile" boundary behavior).
func LockfileHash(lockfilePath string) (Prefixed, error) {
	b, err := os.ReadFile(lockfilePath)
	if err != nil {
		if os.IsNotExist(err) {
			return prefixed(EmptyHash()), nil
		}
		return Prefixed{}, err
	}
	d := NewDigest()
	d.Write(b)
	return prefixed(d.Sum()), nil
}

// recognizedEnvVars is the fixed, version-stamped list of build-affecting
// environment variables the Environment Hash considers (spec §4.B).
// Bumping cargosave.SchemaVersion is the sanctioned way to change this
// list, since it changes what "Fresh" means.
var recognizedEnvVars = []string{
	"RUSTFLAGS",         // compile-flags variable
	"RUSTDOCFLAGS",      // doc-flags variable
	"CARGO_TARGET_DIR",  // target-directory override
	"CARGO_HOME",        // home directory override
	"CARGO_BUILD_JOBS",  // parallelism override
	"CARGO_BUILD_TARGET", // target triple override
	"CC",
	"CXX",
	"AR",
	"LD",
}

// profileOverridePrefix is the namespace of profile override variables
// (e.g. CARGO_PROFILE_RELEASE_LTO); every variable under this prefix is
// recognized (spec §4.B "profile overrides namespace").
const profileOverridePrefix = "CARGO_PROFILE_"

// EnvHash hashes the fixed recognized-variable list plus any
// CARGO_PROFILE_* variable present in environ. Every name on the fixed list
// is fed; a value is fed only when the variable is set, so an unset variable
// contributes its name alone and hashes differently from one set to the
// empty string. Unrelated variables are never observed (spec §4.B, §8
// invariant 5 "Environment sensitivity").
func EnvHash(environ []string) Prefixed {
	values := make(map[string]string, len(environ))
	for _, kv := range environ {
		if idx := strings.IndexByte(kv, '='); idx >= 0 {
			values[kv[:idx]] = kv[idx+1:]
		}
	}

	d := NewDigest()
	for _, name := range recognizedEnvVars {
		writeEnvVar(d, name, values)
	}

	var profileVars []string
	for name := range values {
		if strings.HasPrefix(name, profileOverridePrefix) {
			profileVars = append(profileVars, name)
		}
	}
	sort.Strings(profileVars)
	for _, name := range profileVars {
		writeEnvVar(d, name, values)
	}

	return prefixed(d.Sum())
}

func writeEnvVar(d *Digest, name string, values map[string]string) {
	d.WriteString(name)
	if v, ok := values[name]; ok {
		d.WriteString("=")
		d.WriteString(v)
	}
	d.WriteString("\x00")
}

// FeaturesHash scans the command argument vector for feature-selection
// tokens and feeds the normalized tokens in the order encountered (spec
// §4.B). Unrelated arguments are ignored.
func FeaturesHash(args []string) Prefixed {
	d := NewDigest()
	for i := 0; i < len(args); i++ {
		a := args[i]
		var token string
		switch {
		case a == "--features":
			token = "--features"
			if i+1 < len(args) {
				i++
				token += "=" + args[i]
			}
		case strings.HasPrefix(a, "--features="):
			token = a
		case a == "--all-features":
			token = a
		case a == "--no-default-features":
			token = a
		default:
			continue // unrelated argument: ignored entirely, not just unread
		}
		d.WriteString(token)
		d.WriteString("\x00")
	}
	return prefixed(d.Sum())
}

// ToolchainHash hashes the `<rustcBin> --version` output, identifying the
// active compiler (spec §4.B).
func ToolchainHash(ctx context.Context, rustcBin string) (Prefixed, error) {
	if rustcBin == "" {
		rustcBin = "rustc"
	}
	out, err := exec.CommandContext(ctx, rustcBin, "--version").Output()
	if err != nil {
		return Prefixed{}, cacheerr.New(cacheerr.SourceHashFailed, "", err)
	}
	d := NewDigest()
	d.Write(out)
	return prefixed(d.Sum()), nil
}

// CommandHash hashes the subcommand name followed by the full argument
// vector (spec §4.B).
func CommandHash(subcommand string, args []string) Prefixed {
	d := NewDigest()
	d.WriteString(subcommand)
	for _, a := range args {
		d.WriteString("\x00")
		d.WriteString(a)
	}
	return prefixed(d.Sum())
}

// ProfileTag returns "release" if --release appears in args, else "debug"
// (spec §4.B). Never hashed: used verbatim in keys and records.
func ProfileTag(args []string) string {
	for _, a := range args {
		if a == "--release" {
			return "release"
		}
	}
	return "debug"
}
