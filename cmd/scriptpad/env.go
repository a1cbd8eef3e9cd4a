package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/tklein/scriptpad/internal/cache"
	"github.com/tklein/scriptpad/internal/config"
	"github.com/tklein/scriptpad/internal/control"
	"github.com/tklein/scriptpad/internal/remote"
)

// runtimeEnv bundles everything a command needs: configuration, the remote
// client, and the local cache.
type runtimeEnv struct {
	Manager *config.Manager
	Config  *config.Config
	Cache   *cache.Cache

	client *remote.Client
}

func (e *runtimeEnv) Close() {
	if e.Cache != nil {
		if err := e.Cache.Close(); err != nil {
			log.Printf("⚠️  failed to close cache: %v", err)
		}
	}
}

// prepareRuntimeEnv loads configuration (file, then environment overrides)
// and opens the local cache. The remote client is constructed lazily so
// purely local commands work without a configured server.
func prepareRuntimeEnv(ctx context.Context) (*runtimeEnv, error) {
	manager, err := config.NewManager()
	if err != nil {
		return nil, err
	}

	cfg, err := manager.Load()
	if err != nil {
		log.Printf("⚠️  failed to load config: %v (continuing with defaults)", err)
		cfg = &config.Config{}
	}
	cfg.ApplyEnv()

	if err := os.MkdirAll(manager.Dir(), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	c, err := cache.Open(ctx, manager.Dir())
	if err != nil {
		return nil, fmt.Errorf("failed to open local cache: %w", err)
	}

	return &runtimeEnv{
		Manager: manager,
		Config:  cfg,
		Cache:   c,
	}, nil
}

// ScriptClient returns the remote client, validating the configuration on
// first use.
func (e *runtimeEnv) ScriptClient() (*remote.Client, error) {
	if e.client != nil {
		return e.client, nil
	}
	if e.Config.URL == "" {
		return nil, fmt.Errorf("no server URL configured (set SCRIPTPAD_URL or run 'scriptpad config -url ...')")
	}
	if e.Config.Token == "" {
		return nil, fmt.Errorf("no API token configured (set SCRIPTPAD_TOKEN or run 'scriptpad config -token ...')")
	}
	e.client = remote.NewClient(e.Config.URL, e.Config.Token)
	return e.client, nil
}

// Controller builds the session controller wired to a terminal host whose
// refresh signal re-syncs the local cache.
func (e *runtimeEnv) Controller(ctx context.Context) (*control.Controller, error) {
	client, err := e.ScriptClient()
	if err != nil {
		return nil, err
	}

	host := newTerminalHost(e.Config.Editor, func() {
		scripts, err := client.ListScripts(ctx, 0)
		if err != nil {
			log.Printf("⚠️  cache refresh failed: %v", err)
			return
		}
		if err := e.Cache.Sync(ctx, scripts); err != nil {
			log.Printf("⚠️  cache refresh failed: %v", err)
		}
	})

	return control.New(control.Options{
		Client:    client,
		Host:      host,
		Org:       e.Config.Org,
		NewEvents: host.WatchDocument,
	}), nil
}
