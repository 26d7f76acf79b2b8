// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"fmt"
	"io"

	"capture/internal/audio"
	"capture/internal/device"
	"capture/internal/media"
	"capture/internal/permission"
	"capture/internal/tui"

	"github.com/spf13/cobra"
)

func newListCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available audio devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			p := audio.NewPlatform(opts.cfg.AudioOptions())
			if err := p.Open(); err != nil {
				return err
			}
			defer p.Close()

			lists, states := enumerate(cmd.Context(), p)
			printDevices(cmd.OutOrStdout(), lists, states)
			return nil
		},
	}
}

func newDevicesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "Browse devices and pick an input",
		RunE: func(cmd *cobra.Command, args []string) error {
			p := audio.NewPlatform(opts.cfg.AudioOptions())
			if err := p.Open(); err != nil {
				return err
			}
			defer p.Close()

			states := permission.NewWatcher(p, nil).Refresh(cmd.Context())
			e := device.New(p)
			e.List(cmd.Context(), states.Granted(media.Microphone))

			d, ok, err := tui.RunDevicePicker(cmd.Context(), e)
			if err != nil {
				return err
			}
			if ok {
				fmt.Fprintf(cmd.OutOrStdout(), "Selected %s\nUse it with: ENV_INPUT_DEVICE=%q %s record\n",
					d.Label, d.DeviceID, cmd.Root().Name())
			}
			return nil
		},
	}
}

func enumerate(ctx context.Context, p *audio.Platform) (device.Lists, permission.States) {
	states := permission.NewWatcher(p, nil).Refresh(ctx)
	lists := device.New(p).List(ctx, states.Granted(media.Microphone))
	return lists, states
}

func printDevices(w io.Writer, lists device.Lists, states permission.States) {
	fmt.Fprintf(w, "\nAvailable Audio Devices\n\n")
	sections := []struct {
		title   string
		devices []media.DeviceInfo
	}{
		{"Inputs", lists.AudioInputs},
		{"Outputs", lists.AudioOutputs},
	}
	for _, sec := range sections {
		fmt.Fprintf(w, "%s:\n", sec.title)
		if len(sec.devices) == 0 {
			fmt.Fprintln(w, "    none")
		}
		for _, d := range sec.devices {
			fmt.Fprintf(w, "    %s\n", d.DeviceID)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "Permissions: microphone=%s camera=%s\n",
		states[media.Microphone], states[media.Camera])
}
