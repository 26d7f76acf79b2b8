// SPDX-License-Identifier: MIT
package cmd

import (
	"context"

	"capture/internal/config"
	"capture/internal/log"
	"capture/pkg/build"

	"github.com/spf13/cobra"
)

// options are the flags shared by every command.
type options struct {
	configPath string
	verbose    bool
	cfg        *config.Config
}

// Execute runs the command line with args.
func Execute(ctx context.Context, args []string) error {
	root := newRootCmd()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	buildInfo := build.Get()
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         buildInfo.Description,
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load()
		},
	}
	rootCmd.SetVersionTemplate(buildInfo.String() + "\n")

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "",
		"Path to a YAML configuration file (default: ./config.yaml if present)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false,
		"Show verbose output")

	rootCmd.AddCommand(
		newListCmd(opts),
		newDevicesCmd(opts),
		newRecordCmd(opts),
		newMonitorCmd(opts),
	)
	return rootCmd
}

// load reads the configuration and applies the log level.
func (o *options) load() error {
	cfg, err := config.LoadConfig(o.configPath)
	if err != nil {
		return err
	}
	level, _ := log.ParseLevel(cfg.LogLevel)
	if o.verbose {
		level = log.LevelDebug
	}
	log.SetLevel(level)
	o.cfg = cfg
	log.Debugf("configuration loaded: %+v", *cfg)
	return nil
}
