// Package cachestore implements the Incremental Cache Store (spec §4.E):
// serialization, on-disk layout, validation, and the classification rules
// that guarantee a cache hit is sound.
package cachestore

import (
	"fmt"

	"github.com/cargosave/cargo-save/internal/fingerprint"
)

// Key is spec §3's CacheKey: derived from a PackageFingerprint, it serves
// as the filename stem for the incremental record.
//
// The source-hash component is deliberately truncated to 16 hex characters
// to keep filenames short while remaining collision-resistant against one
// user's working set (spec §3). The truncation is for filename addressing
// only: validate() always compares full digests (spec §9 open question).
type Key struct {
	Name           string
	SourcePrefix   string
	CommandPrefix  string
	EnvPrefix      string
	Profile        string
	FeaturesPrefix string
}

// BuildKey derives a Key from a computed fingerprint.
func BuildKey(fp fingerprint.PackageFingerprint) Key {
	return Key{
		Name:           fp.Name,
		SourcePrefix:   fingerprint.Prefix16(fp.SourceHash),
		CommandPrefix:  fingerprint.Prefix16(fp.CommandHash),
		EnvPrefix:      fingerprint.Prefix16(fp.EnvHash),
		Profile:        fp.Profile,
		FeaturesPrefix: fingerprint.Prefix16(fp.FeaturesHash),
	}
}

// String renders the key in the exact format mandated by spec §6:
// "<name>-<src16>-<cmd>-<env16>-<profile>-<feat16>".
func (k Key) String() string {
	return fmt.Sprintf("%s-%s-%s-%s-%s-%s", k.Name, k.SourcePrefix, k.CommandPrefix, k.EnvPrefix, k.Profile, k.FeaturesPrefix)
}

// Filename is the key's record filename within incremental/.
func (k Key) Filename() string {
	return k.String() + ".json"
}
