package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/dd0wney/cluso-bim/pkg/aggregate"
	"github.com/dd0wney/cluso-bim/pkg/config"
	"github.com/dd0wney/cluso-bim/pkg/derive"
	"github.com/dd0wney/cluso-bim/pkg/logging"
	"github.com/dd0wney/cluso-bim/pkg/metrics"
	"github.com/dd0wney/cluso-bim/pkg/registry"
	"github.com/dd0wney/cluso-bim/pkg/storage"
	"github.com/dd0wney/cluso-bim/pkg/storage/pgstore"
	"github.com/dd0wney/cluso-bim/pkg/traversal"
)

// globalOptions are the persistent flags shared by every command
type globalOptions struct {
	configPath string
	inputPath  string
	backend    string
	dataDir    string
	logLevel   string
}

// app is the wired object graph a command runs against
type app struct {
	cfg        *config.Config
	logger     logging.Logger
	metrics    *metrics.Registry
	store      storage.GraphStore
	loader     *derive.Loader
	engine     *traversal.Engine
	aggregator *aggregate.Aggregator
	out        io.Writer
}

func loadConfig(opts *globalOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.inputPath != "" {
		cfg.Input.Path = opts.inputPath
	}
	if opts.backend != "" {
		cfg.Store.Backend = opts.backend
	}
	if opts.dataDir != "" {
		cfg.Store.DataDir = opts.dataDir
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newApp(ctx context.Context, opts *globalOptions, out, logOut io.Writer) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	logger := logging.NewJSONLogger(logOut, logging.ParseLevel(cfg.Log.Level))
	logging.SetDefaultLogger(logger)
	m := metrics.NewRegistry()

	store, err := openStore(ctx, cfg, logger, m)
	if err != nil {
		return nil, err
	}
	store = storage.Instrumented(store, m)

	reg := registry.New(
		registry.WithAnchors(cfg.AnchorSet()),
		registry.WithLogger(logger),
		registry.WithMetrics(m),
	)
	engine := traversal.NewEngine(store, traversal.WithLogger(logger), traversal.WithMetrics(m))

	return &app{
		cfg:        cfg,
		logger:     logger,
		metrics:    m,
		store:      store,
		loader:     derive.NewLoader(reg, store, logger, m),
		engine:     engine,
		aggregator: aggregate.New(engine, logger, m),
		out:        out,
	}, nil
}

func openStore(ctx context.Context, cfg *config.Config, logger logging.Logger, m *metrics.Registry) (storage.GraphStore, error) {
	switch cfg.Store.Backend {
	case config.BackendPostgres:
		store, err := pgstore.New(ctx, pgstore.Config{
			DatabaseURL: cfg.Store.DatabaseURL,
			MaxConns:    cfg.Store.MaxConns,
			Logger:      logger,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		store, err := storage.OpenMemoryStore(storage.MemoryConfig{
			DataDir:     cfg.Store.DataDir,
			CompressWAL: cfg.Store.CompressWAL,
			Logger:      logger,
			Metrics:     m,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	}
}

// ensureLoaded loads the configured input when the store is empty. A durable
// or shared store that already holds a graph is queried as is.
func (a *app) ensureLoaded(ctx context.Context) error {
	n, err := a.store.CountVertices(ctx)
	if err != nil {
		return err
	}
	if n > 0 || a.cfg.Input.Path == "" {
		return nil
	}
	_, err = a.loader.Load(ctx, a.cfg.Input.Path)
	return err
}

func (a *app) Close() error {
	return a.store.Close()
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) requireInput() (string, error) {
	if a.cfg.Input.Path == "" {
		return "", fmt.Errorf("no input document: pass --input or set input.path")
	}
	if _, err := os.Stat(a.cfg.Input.Path); err != nil {
		return "", err
	}
	return a.cfg.Input.Path, nil
}
