// Package cmd holds the maintenance subcommands of the framefeed binary.
package cmd

import (
	"github.com/smazurov/framefeed/internal/feed"
	"github.com/smazurov/framefeed/internal/ffmpeg"
	"github.com/spf13/cobra"
)

// Settings is the resolved configuration a subcommand works with.
type Settings struct {
	Feed              feed.Config
	CheckpointBackend string
	Encoder           ffmpeg.EncoderOptions
}

// SettingsFunc resolves settings for a running subcommand from flags, env and config file.
type SettingsFunc func(cmd *cobra.Command) (Settings, error)
