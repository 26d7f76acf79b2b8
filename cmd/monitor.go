// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"capture/internal/graph"
	"capture/internal/interval"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

const meterWidth = 40

var meterStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#25A065"))

func newMonitorCmd(opts *options) *cobra.Command {
	var deviceID string
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Show the input level without recording",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := *opts.cfg
			if deviceID != "" {
				cfg.Audio.InputDevice = deviceID
			}
			rt, err := openRig(&cfg)
			if err != nil {
				return err
			}
			defer rt.Close()

			s := rt.session
			c := cfg.Constraints()
			s.SetConstraints(&c)
			s.Wait()
			if s.Current() == nil {
				return fmt.Errorf("no stream: %s", s.Snapshot().Error)
			}

			every := cfg.Analysis.LevelInterval
			if every <= 0 {
				every = 50 * time.Millisecond
			}
			out := cmd.OutOrStdout()
			var t interval.Ticker
			t.Set(every, func(time.Time) { drawMeter(out, s.Level()) })
			<-cmd.Context().Done()
			t.Stop()
			fmt.Fprintln(out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&deviceID, "device", "d", "",
		"Input device id. Use the 'list' command to see available devices.")
	return cmd
}

func meterBar(level float64, width int) string {
	n := int(level*float64(width) + 0.5)
	n = max(0, min(width, n))
	return strings.Repeat("█", n) + strings.Repeat("░", width-n)
}

func drawMeter(w io.Writer, l graph.Level) {
	fmt.Fprintf(w, "\r%s %4.2f", meterStyle.Render(meterBar(l.Value, meterWidth)), l.Value)
}
