package workspace

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"
	"path/filepath"
	"sort"

	"golang.org/x/xerrors"

	"github.com/cargosave/cargo-save/internal/cacheerr"
)

// metadataOutput is the subset of `cargo metadata --format-version=1` this
// wrapper cares about. Unknown fields are ignored (forward-compatible, per
// spec §6's "UTF-8 JSON ... ignoring unknown fields" convention applied
// equally to data we read from the underlying builder).
type metadataOutput struct {
	Packages []struct {
		Name         string `json:"name"`
		Version      string `json:"version"`
		ID           string `json:"id"`
		ManifestPath string `json:"manifest_path"`
		Dependencies []struct {
			Name string `json:"name"`
		} `json:"dependencies"`
	} `json:"packages"`
	WorkspaceMembers []string `json:"workspace_members"`
	WorkspaceRoot    string   `json:"workspace_root"`
	TargetDirectory  string   `json:"target_directory"`
}

// Introspect shells out to `<cargoBin> metadata --format-version=1` in dir
// and parses the result into a State containing
// only workspace-member packages, with each package's dependency list
// filtered to other workspace members (spec §4.C).
func Introspect(ctx context.Context, cargoBin, dir string) (*State, error) {
	if cargoBin == "" {
		cargoBin = "cargo"
	}
	cmd := exec.CommandContext(ctx, cargoBin, "metadata", "--format-version=1")
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, cacheerr.New(cacheerr.MetadataUnavailable, "", xerrors.Errorf("%s metadata: %v: %s", cargoBin, err, stderr.String()))
	}

	var out metadataOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return nil, cacheerr.New(cacheerr.MetadataUnavailable, "", xerrors.Errorf("parse cargo metadata output: %w", err))
	}

	members := make(map[string]bool, len(out.WorkspaceMembers))
	for _, id := range out.WorkspaceMembers {
		members[id] = true
	}

	nameSet := make(map[string]bool)
	var pkgs []Package
	for _, p := range out.Packages {
		if !members[p.ID] {
			continue
		}
		nameSet[p.Name] = true
		pkgs = append(pkgs, Package{
			Name:         p.Name,
			Version:      p.Version,
			ManifestPath: p.ManifestPath,
			Root:         filepath.Dir(p.ManifestPath),
		})
	}

	// Second pass: now that nameSet is complete, fill in each package's
	// intra-workspace dependency names.
	for _, p := range out.Packages {
		if !members[p.ID] {
			continue
		}
		var deps []string
		for _, d := range p.Dependencies {
			if nameSet[d.Name] && d.Name != p.Name {
				deps = append(deps, d.Name)
			}
		}
		sort.Strings(deps)
		for j := range pkgs {
			if pkgs[j].Name == p.Name {
				pkgs[j].Deps = deps
				break
			}
		}
	}

	sort.Slice(pkgs, func(i, j int) bool { return pkgs[i].Name < pkgs[j].Name })

	targetDir := out.TargetDirectory
	if targetDir == "" {
		targetDir = filepath.Join(out.WorkspaceRoot, "target")
	}

	return &State{
		Packages:  pkgs,
		Root:      out.WorkspaceRoot,
		TargetDir: targetDir,
	}, nil
}
