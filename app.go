package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smazurov/framefeed/internal/api"
	"github.com/smazurov/framefeed/internal/checkpoint"
	"github.com/smazurov/framefeed/internal/cleanup"
	"github.com/smazurov/framefeed/internal/config"
	"github.com/smazurov/framefeed/internal/events"
	"github.com/smazurov/framefeed/internal/feed"
	"github.com/smazurov/framefeed/internal/ffmpeg"
	"github.com/smazurov/framefeed/internal/logging"
	"github.com/smazurov/framefeed/internal/passthrough"
	"github.com/smazurov/framefeed/internal/sink"
	"github.com/spf13/cobra"
)

// pipelineApp wires the controller to its collaborators and serializes
// lifecycle calls coming from the API and the config watcher.
type pipelineApp struct {
	logger     *slog.Logger
	bus        *events.Bus
	store      checkpoint.Store
	sink       sink.Sink
	cleaner    *cleanup.Deleter
	controller *feed.Controller
	server     *api.Server
	watcher    *config.Watcher[Options]

	mu      sync.Mutex // guards opts and controller lifecycle calls
	opts    Options
	autorun bool
}

func newPipelineApp(opts *Options, root *cobra.Command) (*pipelineApp, error) {
	cfg, err := opts.feedConfig()
	if err != nil {
		return nil, err
	}

	a := &pipelineApp{
		logger:  logging.GetLogger("main"),
		bus:     events.New(),
		opts:    *opts,
		autorun: opts.Autostart,
	}

	logging.SetLogCallback(func(entry logging.LogEntry) {
		a.bus.Publish(api.NewLogEntryEvent(entry))
	})

	a.store, err = checkpoint.Open(opts.CheckpointBackend, cfg.CheckpointPath)
	if err != nil {
		return nil, fmt.Errorf("open checkpoint: %w", err)
	}

	a.sink, err = sink.New(opts.sinkOptions())
	if err != nil {
		a.store.Close()
		return nil, fmt.Errorf("create sink: %w", err)
	}

	a.cleaner = cleanup.New()
	a.cleaner.DryRun = opts.CleanupDryRun

	a.controller = feed.NewController(&feed.ControllerOptions{
		Checkpoint: a.store,
		NewEncoder: a.newEncoder,
		Sink:       a.sink,
		Cleaner:    a.cleaner,
		EventBus:   a.bus,
	})
	if err := a.controller.Configure(cfg); err != nil {
		a.close()
		return nil, err
	}

	serverOpts := &api.Options{
		AuthUsername:      opts.AuthUsername,
		AuthPassword:      opts.AuthPassword,
		Pipeline:          a,
		Checkpoint:        a.store,
		CheckpointBackend: opts.CheckpointBackend,
		EventBus:          a.bus,
	}
	if stats, ok := a.sink.(api.SinkStats); ok {
		serverOpts.SinkStats = stats
	}
	if opts.MetricsEnabled {
		serverOpts.PrometheusHandler = promhttp.Handler()
	}
	a.server = api.NewServer(serverOpts)

	a.watcher = config.NewConfigWatcher(opts.Config, func(string) (Options, error) {
		a.mu.Lock()
		next := a.opts
		a.mu.Unlock()
		if loadErr := config.LoadConfig(&next, root); loadErr != nil {
			return Options{}, loadErr
		}
		return next, nil
	}, logging.GetLogger("config"))
	a.watcher.OnReload(a.reload)

	return a, nil
}

// newEncoder is the controller's encoder factory.
func (a *pipelineApp) newEncoder(cfg feed.Config) (feed.Encoder, error) {
	a.mu.Lock()
	opts := a.opts
	a.mu.Unlock()

	mode, err := opts.encoderMode()
	if err != nil {
		return nil, feed.NewError(feed.ErrCodeEncoderUnavailable, "invalid encoder mode", err)
	}
	if mode == encoderModePassthrough {
		return passthrough.New(), nil
	}

	encoderOpts, err := opts.encoderOptions(cfg)
	if err != nil {
		return nil, feed.NewError(feed.ErrCodeEncoderUnavailable, "invalid encoder settings", err)
	}
	enc, err := ffmpeg.NewEncoder(context.Background(), encoderOpts)
	if err != nil {
		return nil, err
	}
	return enc, nil
}

// start begins watching the config file and starts the pipeline when autostart is set.
func (a *pipelineApp) start() {
	if err := a.watcher.Start(); err != nil {
		a.logger.Warn("Config watcher unavailable, changes need a restart", "path", a.opts.Config, "error", err)
	}
	if !a.autorun {
		a.logger.Info("Autostart disabled, waiting for POST /api/pipeline/start")
		return
	}
	if err := a.Start(); err != nil {
		a.logger.Error("Failed to start pipeline", "error", err)
	}
}

// Start implements api.Pipeline.
func (a *pipelineApp) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.controller.Start()
}

// Stop implements api.Pipeline.
func (a *pipelineApp) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.controller.Stop()
}

// Status implements api.Pipeline.
func (a *pipelineApp) Status() feed.Status {
	return a.controller.Status()
}

// reload applies a changed config file. The pipeline is restarted when it was
// running and resumes from the checkpoint.
func (a *pipelineApp) reload(next Options) {
	logging.Initialize(next.loggingConfig())

	cfg, err := next.feedConfig()
	if err != nil {
		a.logger.Error("Ignoring invalid config change", "error", err)
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	prev := a.opts
	if prev.sinkOptions() != next.sinkOptions() {
		a.logger.Warn("Sink settings changed, restart the service to apply")
	}
	if prev.CheckpointBackend != next.CheckpointBackend || prev.CheckpointPath != next.CheckpointPath {
		a.logger.Warn("Checkpoint settings changed, restart the service to apply")
		cfg.CheckpointPath = prev.CheckpointPath
	}
	if prev.CleanupDryRun != next.CleanupDryRun {
		a.logger.Warn("Cleanup settings changed, restart the service to apply")
	}
	a.opts = next

	wasRunning := a.controller.State() == feed.StateRunning
	if wasRunning {
		if err := a.controller.Stop(); err != nil {
			a.logger.Error("Failed to stop pipeline for reload", "error", err)
			return
		}
	}
	if err := a.controller.Configure(cfg); err != nil {
		a.logger.Error("Failed to apply config change", "error", err)
		return
	}
	if wasRunning {
		if err := a.controller.Start(); err != nil {
			a.logger.Error("Failed to restart pipeline after reload", "error", err)
			return
		}
	}
	a.logger.Info("Config change applied", "restarted", wasRunning)
}

// stop shuts everything down in reverse order of construction.
func (a *pipelineApp) stop() {
	if err := a.watcher.Stop(); err != nil {
		a.logger.Debug("Config watcher stop", "error", err)
	}
	if err := a.server.Stop(); err != nil {
		a.logger.Warn("HTTP server shutdown", "error", err)
	}
	a.mu.Lock()
	if a.controller.State() == feed.StateRunning {
		if err := a.controller.Stop(); err != nil {
			a.logger.Warn("Pipeline stop", "error", err)
		}
	}
	a.mu.Unlock()
	a.close()
}

func (a *pipelineApp) close() {
	if err := a.sink.Close(); err != nil {
		a.logger.Warn("Sink close", "error", err)
	}
	if err := a.store.Close(); err != nil {
		a.logger.Warn("Checkpoint close", "error", err)
	}
	logging.SetLogCallback(nil)
}
