// run.go: The run command drives a simulated game loop
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	pluginhost "github.com/agilira/go-pluginhost"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

type runOptions struct {
	ticks        int
	tickInterval time.Duration
	guiEvery     int
	mapName      string
	metricsAddr  string
	changelog    bool
}

func newRunCommand(configPath *string) *cobra.Command {
	opts := runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the host loop",
		Long: `Boot the host, load a world and a map, then deliver update, fixed update
and tick events until the tick limit is reached or the process is interrupted.`,
		Example: `  # Run 600 ticks at 60 ticks per second
  pluginhost run --ticks 600

  # Run until interrupted and expose Prometheus metrics
  pluginhost run --ticks 0 --metrics-addr :9090`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHost(cmd.Context(), *configPath, opts)
		},
	}
	cmd.Flags().IntVar(&opts.ticks, "ticks", 600, "number of ticks to run, 0 runs until interrupted")
	cmd.Flags().DurationVar(&opts.tickInterval, "tick-interval", time.Second/60, "wall time per tick")
	cmd.Flags().IntVar(&opts.guiEvery, "gui-every", 2, "deliver OnGUI every n ticks")
	cmd.Flags().StringVar(&opts.mapName, "map", "Home", "name of the demo map")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	cmd.Flags().BoolVar(&opts.changelog, "changelog", false, "show the update notices after boot")
	return cmd
}

func runHost(ctx context.Context, configPath string, opts runOptions) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	config, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	rt, err := newHostRuntime(config)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, rt.close()) }()

	if opts.metricsAddr != "" {
		server := &http.Server{
			Addr:              opts.metricsAddr,
			Handler:           promhttp.HandlerFor(rt.registry, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if serveErr := server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
				rt.logger.Error("Metrics server failed", "error", serveErr)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
		}()
	}

	if err := rt.boot(); err != nil {
		return err
	}
	if opts.changelog {
		rt.controller.ShowChangelog()
	}

	dispatcher := rt.controller.Dispatcher()
	dispatcher.SceneLoaded(pluginhost.Scene{Name: "Play", Index: 1})
	dispatcher.WorldLoaded()

	current := pluginhost.Map{ID: 0, Name: opts.mapName}
	dispatcher.MapGenerated(current)
	dispatcher.MapComponentsInitializing(current)
	dispatcher.MapFinalizing(current)
	rt.queue.FinishMapRender()

	ticker := time.NewTicker(opts.tickInterval)
	defer ticker.Stop()

	for tick := 1; opts.ticks == 0 || tick <= opts.ticks; tick++ {
		select {
		case <-ctx.Done():
			rt.logger.Info("Interrupted, shutting down", "tick", tick)
			dispatcher.MapDiscarded(current)
			return nil
		case <-ticker.C:
		}

		rt.queue.SetTick(tick)
		report(rt.logger, dispatcher.Update())
		report(rt.logger, dispatcher.FixedUpdate())
		report(rt.logger, dispatcher.Tick(tick))
		if opts.guiEvery > 0 && tick%opts.guiEvery == 0 {
			report(rt.logger, dispatcher.OnGUI())
		}
		rt.queue.RunPending()
	}

	dispatcher.MapDiscarded(current)
	rt.logger.Info("Run finished", "ticks", opts.ticks, "extensions", rt.controller.Registry().Len())
	return nil
}

// report logs collaborator failures; extension failures are logged by the
// dispatcher itself.
func report(logger pluginhost.Logger, r pluginhost.DispatchReport) {
	for _, err := range r.CollaboratorErrors {
		logger.Warn("Dispatch collaborator error", "event", string(r.Event), "error", err)
	}
}
