package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dd0wney/cluso-bim/pkg/api"
	"github.com/dd0wney/cluso-bim/pkg/derive"
	"github.com/dd0wney/cluso-bim/pkg/logging"
	"github.com/dd0wney/cluso-bim/pkg/server"
	"github.com/dd0wney/cluso-bim/pkg/watch"
)

func serveCmd(wrap wrapFunc) *cobra.Command {
	var addr string
	var watchInput bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the read-only HTTP query API",
		Long: `Load the input document and serve queries over HTTP. SIGHUP reloads
the document; with --watch a change to the file reloads it as well. A
document that fails validation keeps the current graph in service.`,
		Args: cobra.NoArgs,
		RunE: wrap(func(ctx context.Context, a *app, args []string) error {
			if addr != "" {
				a.cfg.Server.Addr = addr
			}
			if watchInput {
				a.cfg.Input.Watch = true
			}
			return serve(ctx, a)
		}),
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().BoolVar(&watchInput, "watch", false, "reload when the input document changes")
	return cmd
}

func serve(ctx context.Context, a *app) error {
	logger := a.logger.With(logging.Component("serve"))

	if a.cfg.Input.Path != "" {
		report, err := a.loader.Reload(ctx, a.cfg.Input.Path, derive.TriggerManual)
		if err != nil {
			return err
		}
		logger.Info("initial graph loaded", logging.LoadID(report.LoadID), logging.Count(report.Vertices))
	} else {
		logger.Warn("no input document configured, serving the stored graph")
	}

	apiServer := api.NewServer(api.Config{
		Engine:         a.engine,
		Aggregator:     a.aggregator,
		Loader:         a.loader,
		Anchors:        a.cfg.AnchorSet(),
		Metrics:        a.metrics,
		Logger:         a.logger,
		RequestTimeout: a.cfg.Server.RequestTimeout,
	})

	gs := server.NewGracefulServer(a.cfg.Server.Addr, apiServer.Handler(), a.logger)
	gs.SetShutdownTimeout(a.cfg.Server.ShutdownTimeout)
	if a.cfg.Input.Path != "" {
		gs.SetReloadFunc(func(ctx context.Context) error {
			_, err := a.loader.Reload(ctx, a.cfg.Input.Path, derive.TriggerSignal)
			return err
		})
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return gs.Run(ctx)
	})

	if a.cfg.Input.Watch && a.cfg.Input.Path != "" {
		w, err := watch.New(a.cfg.Input.Path, a.loader,
			watch.WithDebounce(a.cfg.Input.Debounce),
			watch.WithLogger(a.logger))
		if err != nil {
			stop()
			_ = g.Wait()
			return err
		}
		g.Go(func() error {
			err := w.Run(ctx)
			if err == nil && ctx.Err() == nil {
				err = errors.New("input watcher stopped")
			}
			return err
		})
	}

	return g.Wait()
}
