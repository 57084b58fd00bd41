// Package logging provides structured logging with per-module log level configuration.
//
// Records are routed to every available output:
//   - the systemd journal when journald is reachable
//   - stdout when a terminal, pipe, socket or file is attached
//   - an in-memory ring buffer served by the HTTP API
//
// Initialize once at startup, then ask for module loggers:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",
//		Format: "text",
//		Modules: map[string]string{
//			"ffmpeg": "debug",
//			"api":    "warn",
//		},
//	})
//
//	logger := logging.GetLogger("source")
//	logger.Info("Encoded frame", "file_index", idx, "bytes", len(data))
//
// Loggers obtained before Initialize are cached and pick up the configured
// level once it runs.
//
// Viewing logs of the service:
//
//	journalctl -t framefeed -f
//	journalctl -t framefeed MODULE=checkpoint
//	journalctl -t framefeed FILE_INDEX=42
//
// Example TOML configuration:
//
//	[logging]
//	level = "info"
//	format = "text"
//	buffer_size = 1000
//
//	[logging.modules]
//	ffmpeg = "debug"
//	sink = "warn"
package logging
