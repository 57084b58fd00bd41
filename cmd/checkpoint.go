package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/smazurov/framefeed/internal/checkpoint"
	"github.com/smazurov/framefeed/internal/feed"
	"github.com/spf13/cobra"
)

// timedStore is implemented by backends that record when the checkpoint was written.
type timedStore interface {
	LoadWithTime() (int, time.Time, error)
}

// CreateCheckpointCmd creates the checkpoint command with show, set and reset subcommands.
func CreateCheckpointCmd(settings SettingsFunc) *cobra.Command {
	root := &cobra.Command{
		Use:   "checkpoint",
		Short: "Inspect or modify the resume checkpoint",
	}

	root.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the stored checkpoint and the index the pipeline would resume from",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			s, err := settings(c)
			if err != nil {
				return err
			}
			return withStore(s, false, func(store checkpoint.Store) error {
				renderFields(c.OutOrStdout(), describeCheckpoint(s, store))
				return nil
			})
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "set <index>",
		Short: "Mark <index> as the last consumed file; the pipeline resumes at the one after",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid index %q: %w", args[0], err)
			}
			s, err := settings(c)
			if err != nil {
				return err
			}
			if total := s.Feed.TotalFiles; index < 0 || (total > 0 && index >= total) {
				return fmt.Errorf("index %d outside 0..%d", index, total-1)
			}
			return withStore(s, true, func(store checkpoint.Store) error {
				if err := store.Save(index); err != nil {
					return err
				}
				fmt.Fprintf(c.OutOrStdout(), "checkpoint set to %d, next file index %d\n",
					index, feed.ResumeAfter(index, s.Feed.TotalFiles))
				return nil
			})
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Delete the checkpoint; the pipeline restarts at the configured start index",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			s, err := settings(c)
			if err != nil {
				return err
			}
			return withStore(s, true, func(store checkpoint.Store) error {
				if err := store.Reset(); err != nil {
					return err
				}
				fmt.Fprintf(c.OutOrStdout(), "checkpoint reset, next file index %d\n", s.Feed.StartIndex)
				return nil
			})
		},
	})

	return root
}

// withStore opens the configured store and, for writes, takes the ownership lock
// so a running pipeline is never modified underneath.
func withStore(s Settings, write bool, fn func(checkpoint.Store) error) error {
	store, err := checkpoint.Open(s.CheckpointBackend, s.Feed.CheckpointPath)
	if err != nil {
		return err
	}
	defer store.Close()

	if write {
		if err := store.Lock(); err != nil {
			return fmt.Errorf("pipeline appears to be running: %w", err)
		}
		defer store.Unlock()
	}
	return fn(store)
}

func describeCheckpoint(s Settings, store checkpoint.Store) []field {
	backend := s.CheckpointBackend
	if backend == "" {
		backend = checkpoint.BackendFile
	}
	fields := []field{
		{"Backend", backend},
		{"Path", store.Path()},
	}

	var (
		index   int
		updated time.Time
		err     error
	)
	if ts, ok := store.(timedStore); ok {
		index, updated, err = ts.LoadWithTime()
	} else {
		index, err = store.Load()
	}

	resume := s.Feed.StartIndex
	switch {
	case err == nil:
		fields = append(fields, field{"Stored index", strconv.Itoa(index)})
		if !updated.IsZero() {
			fields = append(fields, field{"Updated", updated.Local().Format(time.DateTime)})
		}
		if s.Feed.TotalFiles > 0 {
			resume = feed.ResumeAfter(index, s.Feed.TotalFiles)
		}
	case checkpoint.IsNotFound(err):
		fields = append(fields, field{"Stored index", "none"})
	default:
		fields = append(fields, field{"Stored index", "unreadable: " + err.Error()})
	}

	fields = append(fields, field{"Resume index", strconv.Itoa(resume)})
	if s.Feed.FilenameFormat != "" {
		fields = append(fields, field{"Next file", s.Feed.Path(s.Feed.Filename(resume))})
	}
	return fields
}
