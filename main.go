package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/smazurov/framefeed/cmd"
	"github.com/smazurov/framefeed/internal/config"
	"github.com/smazurov/framefeed/internal/feed"
	"github.com/smazurov/framefeed/internal/ffmpeg"
	"github.com/smazurov/framefeed/internal/logging"
	"github.com/smazurov/framefeed/internal/sink"
	"github.com/smazurov/framefeed/internal/version"
	"github.com/spf13/cobra"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"framefeed.toml"`

	// Server settings
	Port         string `help:"Port to listen on" short:"p" default:":8090" toml:"server.port" env:"SERVER_PORT"`
	AuthUsername string `help:"Basic auth username (empty disables auth)" default:"" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Source settings
	Fps            int    `help:"Frames per second" default:"25" toml:"source.fps" env:"SOURCE_FPS"`
	Dir            string `help:"Directory the numbered images appear in" default:"./frames" toml:"source.dir" env:"SOURCE_DIR"`
	FilenameFormat string `help:"File name template with one integer verb" default:"session1_frame%d.png" toml:"source.filename_format" env:"SOURCE_FILENAME_FORMAT"`
	StartIndex     int    `help:"First file index when no checkpoint exists" default:"1" toml:"source.start_index" env:"SOURCE_START_INDEX"`
	EndIndex       int    `help:"Last file index (0 = unbounded)" default:"1500" toml:"source.end_index" env:"SOURCE_END_INDEX"`
	TotalFiles     int    `help:"Number of files before the index wraps to 0" default:"600" toml:"source.total_files" env:"SOURCE_TOTAL_FILES"`
	Keyframes      int    `help:"Key frame period in frames (0 = fps)" default:"0" toml:"source.key_frame_rate" env:"SOURCE_KEY_FRAME_RATE"`
	Timestamps     string `help:"Timestamp strategy (session, wallclock, filetime)" default:"session" toml:"source.timestamp" env:"SOURCE_TIMESTAMP"`
	QueueSize      int    `help:"Encoded frames buffered between source and sink" default:"1" toml:"source.queue_size" env:"SOURCE_QUEUE_SIZE"`
	Autostart      bool   `help:"Start the pipeline with the server" default:"true" toml:"source.autostart" env:"SOURCE_AUTOSTART"`

	// Retry settings
	// defaults mirror feed.DefaultRetryPolicy
	RetryAttempts    int    `help:"Encode attempts per file index" default:"20" toml:"retry.attempts" env:"RETRY_ATTEMPTS"`
	RetryBackoff     string `help:"Pause between attempts" default:"1s" toml:"retry.backoff" env:"RETRY_BACKOFF"`
	RetryOnExhausted string `help:"After the last failed attempt: skip or block" default:"skip" toml:"retry.on_exhausted" env:"RETRY_ON_EXHAUSTED"`

	// Checkpoint settings
	CheckpointBackend string `help:"Checkpoint backend (file, sqlite)" default:"file" toml:"checkpoint.backend" env:"CHECKPOINT_BACKEND"`
	CheckpointPath    string `help:"Checkpoint location" default:"./checkpoint" toml:"checkpoint.path" env:"CHECKPOINT_PATH"`

	// Encoder settings
	EncoderMode      string `help:"Frame encoder (ffmpeg, passthrough for pre-encoded H.264 files)" default:"ffmpeg" toml:"encoder.mode" env:"ENCODER_MODE"`
	FfmpegPath       string `help:"ffmpeg binary" default:"/usr/local/bin/ffmpeg" toml:"encoder.ffmpeg_path" env:"ENCODER_FFMPEG_PATH"`
	FfprobePath      string `help:"ffprobe binary" default:"/usr/local/bin/ffprobe" toml:"encoder.ffprobe_path" env:"ENCODER_FFPROBE_PATH"`
	EncodePreset     string `help:"x264 preset" default:"ultrafast" toml:"encoder.preset" env:"ENCODER_PRESET"`
	EncodeResolution string `help:"Output resolution" default:"1280x720" toml:"encoder.resolution" env:"ENCODER_RESOLUTION"`
	EncodeTimeout    string `help:"Upper bound for one encode" default:"30s" toml:"encoder.timeout" env:"ENCODER_TIMEOUT"`

	// Cleanup settings
	CleanupDryRun bool `help:"Log instead of deleting consumed files" default:"false" toml:"cleanup.dry_run" env:"CLEANUP_DRY_RUN"`

	// Sink settings
	SinkType        string `help:"Frame sink (rtp, file, log)" default:"log" toml:"sink.type" env:"SINK_TYPE"`
	SinkAddress     string `help:"RTP destination host:port" default:"127.0.0.1:5004" toml:"sink.address" env:"SINK_ADDRESS"`
	SinkPayloadType int    `help:"RTP payload type" default:"96" toml:"sink.payload_type" env:"SINK_PAYLOAD_TYPE"`
	SinkMtu         int    `help:"RTP packet size limit" default:"1200" toml:"sink.mtu" env:"SINK_MTU"`
	SinkPath        string `help:"Output file of the file sink" default:"framefeed.h264" toml:"sink.path" env:"SINK_PATH"`

	// Observability settings
	MetricsEnabled bool `help:"Serve Prometheus metrics at /metrics" default:"true" toml:"metrics.enabled" env:"METRICS_ENABLED"`

	// Logging settings
	LoggingLevel      string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat     string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingBufferSize int    `help:"Log entries kept for the API" default:"1000" toml:"logging.buffer_size" env:"LOGGING_BUFFER_SIZE"`
}

// feedConfig converts the flat options into a validated pipeline configuration.
func (o *Options) feedConfig() (feed.Config, error) {
	cfg, err := o.buildFeedConfig()
	if err != nil {
		return feed.Config{}, err
	}
	if _, err := o.encoderMode(); err != nil {
		return feed.Config{}, err
	}
	return cfg, cfg.Validate()
}

func (o *Options) buildFeedConfig() (feed.Config, error) {
	retry := feed.DefaultRetryPolicy()
	if o.RetryAttempts != 0 {
		retry.MaxAttempts = o.RetryAttempts
	}
	if o.RetryBackoff != "" {
		backoff, err := time.ParseDuration(o.RetryBackoff)
		if err != nil {
			return feed.Config{}, feed.NewError(feed.ErrCodeInvalidConfig, "invalid retry backoff", err)
		}
		retry.Backoff = backoff
	}
	onExhausted, err := feed.ParseExhaustedAction(o.RetryOnExhausted)
	if err != nil {
		return feed.Config{}, feed.NewError(feed.ErrCodeInvalidConfig, "invalid retry action", err)
	}
	retry.OnExhausted = onExhausted

	return feed.Config{
		FPS:            o.Fps,
		Dir:            o.Dir,
		FilenameFormat: o.FilenameFormat,
		StartIndex:     o.StartIndex,
		EndIndex:       o.EndIndex,
		TotalFiles:     o.TotalFiles,
		Retry:          retry,
		CheckpointPath: o.CheckpointPath,
		FFmpegPath:     o.FfmpegPath,
		FFprobePath:    o.FfprobePath,
		KeyFrameRate:   o.Keyframes,
		Timestamp:      o.Timestamps,
		QueueSize:      o.QueueSize,
	}, nil
}

// encoderOptions returns the ffmpeg settings for cfg.
func (o *Options) encoderOptions(cfg feed.Config) (ffmpeg.EncoderOptions, error) {
	timeout, err := time.ParseDuration(o.EncodeTimeout)
	if err != nil {
		return ffmpeg.EncoderOptions{}, fmt.Errorf("invalid encode timeout: %w", err)
	}
	params := ffmpeg.DefaultEncodeParams(cfg.FPS)
	if o.EncodePreset != "" {
		params.Preset = o.EncodePreset
	}
	params.Resolution = o.EncodeResolution
	return ffmpeg.EncoderOptions{
		FFmpegPath:  cfg.FFmpegPath,
		FFprobePath: cfg.FFprobePath,
		Params:      params,
		Timeout:     timeout,
	}, nil
}

// Encoder modes.
const (
	encoderModeFFmpeg      = "ffmpeg"
	encoderModePassthrough = "passthrough"
)

func (o *Options) encoderMode() (string, error) {
	switch mode := strings.ToLower(strings.TrimSpace(o.EncoderMode)); mode {
	case "", encoderModeFFmpeg:
		return encoderModeFFmpeg, nil
	case encoderModePassthrough:
		return mode, nil
	default:
		return "", feed.NewError(feed.ErrCodeInvalidConfig,
			fmt.Sprintf("unknown encoder mode %q (want ffmpeg or passthrough)", o.EncoderMode), nil)
	}
}

func (o *Options) sinkOptions() sink.Options {
	return sink.Options{
		Type:        o.SinkType,
		Address:     o.SinkAddress,
		PayloadType: uint8(o.SinkPayloadType),
		MTU:         uint16(o.SinkMtu),
		Path:        o.SinkPath,
	}
}

func (o *Options) loggingConfig() logging.Config {
	return config.LoggingConfig(o.Config, o.LoggingLevel, o.LoggingFormat, o.LoggingBufferSize)
}

// settings resolves the configuration used by maintenance subcommands.
// Only the parts every subcommand relies on are checked here.
func (o *Options) settings() (cmd.Settings, error) {
	cfg, err := o.buildFeedConfig()
	if err != nil {
		return cmd.Settings{}, err
	}
	if cfg.TotalFiles < 1 {
		return cmd.Settings{}, feed.NewError(feed.ErrCodeInvalidConfig,
			fmt.Sprintf("total files must be >= 1, got %d", cfg.TotalFiles), nil)
	}
	encoderOpts, err := o.encoderOptions(cfg)
	if err != nil {
		return cmd.Settings{}, err
	}
	return cmd.Settings{
		Feed:              cfg,
		CheckpointBackend: o.CheckpointBackend,
		Encoder:           encoderOpts,
	}, nil
}

func main() {
	var cli humacli.CLI
	var app *pipelineApp

	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		// CLI flags > env > config file
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		logging.Initialize(opts.loggingConfig())
		logger := logging.GetLogger("main")

		hooks.OnStart(func() {
			var err error
			app, err = newPipelineApp(opts, cli.Root())
			if err != nil {
				logger.Error("Failed to initialize pipeline", "error", err)
				os.Exit(1)
			}
			app.start()

			if _, notifyErr := daemon.SdNotify(false, daemon.SdNotifyReady); notifyErr != nil {
				logger.Debug("sd_notify failed", "error", notifyErr)
			}

			logger.Info("Starting HTTP server", "port", opts.Port)
			if startErr := app.server.Start(opts.Port); startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
				logger.Error("Failed to start HTTP server", "error", startErr)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down")
			_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
			if app != nil {
				app.stop()
			}
		})
	})

	settings := func(c *cobra.Command) (cmd.Settings, error) {
		var (
			s   cmd.Settings
			err error
		)
		humacli.WithOptions(func(_ *cobra.Command, _ []string, opts *Options) {
			s, err = opts.settings()
		})(c, nil)
		return s, err
	}

	cli.Root().Use = "framefeed"
	cli.Root().Version = version.String()
	cli.Root().AddCommand(cmd.CreateCheckpointCmd(settings))
	cli.Root().AddCommand(cmd.CreateEncodeCmd(settings))

	cli.Run()
}
