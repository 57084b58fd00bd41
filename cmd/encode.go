package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/smazurov/framefeed/internal/ffmpeg"
	"github.com/smazurov/framefeed/internal/h264"
	"github.com/spf13/cobra"
)

// CreateEncodeCmd creates the one-shot encode command used to check an ffmpeg setup.
func CreateEncodeCmd(settings SettingsFunc) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "encode <image>",
		Short: "Encode a single image into an H.264 frame and describe the result",
		Long: "Runs the same ffmpeg invocation the pipeline uses on one image, " +
			"then prints the payload size and NAL unit types. The source file is not deleted.",
		Args: cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			s, err := settings(c)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(c.Context())
			defer cancel()

			enc, err := ffmpeg.NewEncoder(ctx, s.Encoder)
			if err != nil {
				return err
			}
			defer enc.Close()

			input := args[0]
			fields := []field{{"Input", input}}
			if w, h, probeErr := enc.Probe(ctx, input); probeErr == nil {
				fields = append(fields, field{"Dimensions", fmt.Sprintf("%dx%d", w, h)})
			}

			start := time.Now()
			payload, err := enc.Encode(ctx, input)
			if err != nil {
				return err
			}
			fields = append(fields,
				field{"Encode time", time.Since(start).Round(time.Millisecond).String()},
				field{"Payload bytes", strconv.Itoa(len(payload))},
				field{"NAL units", nalSummary(payload)},
				field{"Key frame", strconv.FormatBool(h264.ContainsIDR(payload))},
			)

			if output != "" && len(payload) > 0 {
				if err := os.WriteFile(output, payload, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", output, err)
				}
				fields = append(fields, field{"Written to", output})
			}

			renderFields(c.OutOrStdout(), fields)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the Annex-B payload to this file")
	return cmd
}

func nalSummary(payload []byte) string {
	types := h264.Types(payload)
	if len(types) == 0 {
		return "none"
	}
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = h264.TypeName(t)
	}
	return strings.Join(names, ",")
}
