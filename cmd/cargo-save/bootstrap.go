package main

import (
	"context"
	"log"
	"os"

	cargosave "github.com/cargosave/cargo-save"
	"github.com/cargosave/cargo-save/internal/cachestore"
	"github.com/cargosave/cargo-save/internal/config"
	"github.com/cargosave/cargo-save/internal/depgraph"
	"github.com/cargosave/cargo-save/internal/fingerprint"
	"github.com/cargosave/cargo-save/internal/logcache"
	"github.com/cargosave/cargo-save/internal/workspace"
)

// bootstrap bundles everything every subcommand needs: the resolved
// configuration, the live workspace state, and handles onto the cache
// store, log cache, and dependency graph.
type bootstrap struct {
	Config   config.Config
	Logger   *log.Logger
	Signal   <-chan os.Signal
	WS       *workspace.State
	Store    *cachestore.Store
	Cache    *logcache.Cache
	Graph    *depgraph.Graph
	Prober   *fingerprint.SourceProber
	CargoBin string
}

func newBootstrap(logger *log.Logger, sig <-chan os.Signal) (*bootstrap, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	cargoBin := os.Getenv("CARGO")
	if cargoBin == "" {
		cargoBin = "cargo"
	}

	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	ws, err := workspace.Introspect(context.Background(), cargoBin, wd)
	if err != nil {
		return nil, err
	}

	store := &cachestore.Store{Root: cfg.CacheDir, Schema: cargosave.SchemaVersion}
	cache := &logcache.Cache{Store: store}
	graph := depgraph.Build(ws.Packages)
	prober := &fingerprint.SourceProber{VCSBin: "git", Logger: logger}

	return &bootstrap{
		Config:   cfg,
		Logger:   logger,
		Signal:   sig,
		WS:       ws,
		Store:    store,
		Cache:    cache,
		Graph:    graph,
		Prober:   prober,
		CargoBin: cargoBin,
	}, nil
}
