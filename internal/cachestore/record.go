package cachestore

// Witness is an on-disk artifact whose continued presence and byte-size
// equality is taken as evidence that a prior build's output still exists
// (spec glossary, §3).
type Witness struct {
	ArtifactPath string `json:"artifact_path"`
	ByteSize     int64  `json:"byte_size"`
}

// Record is spec §3's IncrementalRecord: the persistent per-package cache
// record. Field names are stable and unknown fields are ignored on read,
// so the schema can grow without a migration (spec §6, §9).
//
// Invariant: a Record is only ever written when Success is true; a Record
// with Success false must never cause a cache hit (enforced by Store, not
// by this type, since JSON can represent the invalid state on disk from an
// old schema version — Validate rejects it regardless).
type Record struct {
	Name          string    `json:"name"`
	Version       string    `json:"version"`
	SourceHash    string    `json:"source_hash"`
	LockfileHash  string    `json:"lockfile_hash"`
	CommandHash   string    `json:"command_hash"`
	EnvHash       string    `json:"env_hash"`
	FeaturesHash  string    `json:"features_hash"`
	Profile       string    `json:"profile"`
	ToolchainHash string    `json:"toolchain_hash"`
	Witnesses     []Witness `json:"witnesses"`
	Artifacts     []string  `json:"declared_artifacts"`
	Timestamp     string    `json:"timestamp"` // ISO-8601
	Success       bool      `json:"success"`
	DurationMS    int64     `json:"duration_ms"`
}

// hasRequiredFields reports whether rec has every field a valid record must
// carry. A record missing any of these is treated as corrupt (spec §4.E
// "reject and delete if malformed").
func (rec *Record) hasRequiredFields() bool {
	return rec.Name != "" &&
		rec.SourceHash != "" &&
		rec.CommandHash != "" &&
		rec.EnvHash != "" &&
		rec.FeaturesHash != "" &&
		rec.ToolchainHash != "" &&
		rec.Profile != "" &&
		rec.Timestamp != ""
}
