// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"fmt"
	"time"

	"capture/internal/media"

	"github.com/spf13/cobra"
)

func newRecordCmd(opts *options) *cobra.Command {
	var (
		duration  time.Duration
		deviceID  string
		outputDir string
	)
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record the input device to WAV files",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := *opts.cfg
			if deviceID != "" {
				cfg.Audio.InputDevice = deviceID
			}
			if outputDir != "" {
				cfg.Recording.OutputDir = outputDir
			}

			rt, err := openRig(&cfg)
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx := cmd.Context()
			if duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, duration)
				defer cancel()
			}

			s := rt.session
			c := cfg.Constraints()
			s.SetConstraints(&c)
			s.Wait()
			if s.Current() == nil {
				return fmt.Errorf("no stream: %s", s.Snapshot().Error)
			}

			s.SetRecording(true)
			fmt.Fprintf(cmd.OutOrStdout(), "Recording from %s, press Ctrl+C to stop\n",
				media.AudioTracks(s.Current())[0].Label())
			<-ctx.Done()
			s.SetRecording(false)

			snap := s.Snapshot()
			fmt.Fprintf(cmd.OutOrStdout(), "\nRecorded %02d:%02d.%03d\n",
				snap.Elapsed.Minutes, snap.Elapsed.Seconds, snap.Elapsed.Millis)

			paths, err := saveArtifacts(cfg.Recording.OutputDir, s.Result())
			for _, p := range paths {
				fmt.Fprintf(cmd.OutOrStdout(), "Recording saved to: %s\n", p)
			}
			return err
		},
	}
	cmd.Flags().DurationVarP(&duration, "duration", "t", 0,
		"Stop after this long (default: until interrupted)")
	cmd.Flags().StringVarP(&deviceID, "device", "d", "",
		"Input device id. Use the 'list' command to see available devices.")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "",
		"Directory for the recorded WAV files")
	return cmd
}
