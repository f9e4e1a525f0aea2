// Package orchestrator implements the Build Orchestrator (spec §4.F): it
// decides skip vs. run for a delegated subcommand, drives the underlying
// builder when a run is required, streams its output into the log cache,
// and updates the incremental cache store on success.
package orchestrator

import (
	"context"
	"log"
	"sort"

	"github.com/cargosave/cargo-save/internal/cachestore"
	"github.com/cargosave/cargo-save/internal/depgraph"
	"github.com/cargosave/cargo-save/internal/fingerprint"
	"github.com/cargosave/cargo-save/internal/workspace"
)

// PackageClass pairs a package name with its invocation-wide classification.
type PackageClass struct {
	Name           string
	Classification cachestore.Classification
}

// Plan is the outcome of classifying every workspace package for one
// invocation (spec §4.F steps 1-2): the initial dirty set D0, its
// reverse-transitive closure D, and every package's final classification
// (Dirty packages keep their original reason; packages pulled in only by
// the closure are DirtyTransitive).
type Plan struct {
	Fingerprints map[string]fingerprint.PackageFingerprint
	Classes      map[string]PackageClass
	DirtyNames   []string // D, sorted: the full dirty set including transitive members
}

// IsClean reports whether D0 was empty, i.e. every package was
// independently Fresh before transitive propagation (spec §4.F step 1's
// short-circuit precondition).
func (p *Plan) IsClean() bool {
	for _, c := range p.Classes {
		if c.Classification.Status != cachestore.Fresh {
			return false
		}
	}
	return true
}

// Build computes a Plan: fingerprint every package, classify it against the
// store, then widen the dirty set by the dependency graph's reverse
// closure (spec §4.D, §4.F steps 1-2).
func Build(ctx context.Context, prober *fingerprint.SourceProber, store *cachestore.Store, graph *depgraph.Graph, pkgs []workspace.Package, shared fingerprint.Shared, stat cachestore.StatFunc, logger *log.Logger) (*Plan, map[string]error) {
	fps, errs := fingerprint.ComputeAll(ctx, prober, pkgs, shared, logger)

	classes := make(map[string]PackageClass, len(pkgs))
	var d0 []string
	for _, pkg := range pkgs {
		fp := fps[pkg.Name]
		c := store.Classify(fp, stat)
		classes[pkg.Name] = PackageClass{Name: pkg.Name, Classification: c}
		if c.Status == cachestore.Dirty {
			d0 = append(d0, pkg.Name)
		}
	}

	d := graph.ReverseClosure(d0)
	dSet := make(map[string]bool, len(d))
	for _, name := range d {
		dSet[name] = true
	}
	for name, c := range classes {
		if dSet[name] && c.Classification.Status == cachestore.Fresh {
			c.Classification.Status = cachestore.DirtyTransitive
			classes[name] = c
		}
	}

	sort.Strings(d)
	return &Plan{Fingerprints: fps, Classes: classes, DirtyNames: d}, errs
}
