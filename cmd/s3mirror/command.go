package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/mirrorkit/s3mirror/pkg/logging"
)

var configFilePath string
var debug bool

// MirrorCommand represents a subcommand that runs against a configured mirror
type MirrorCommand interface {
	Name() string
	ShortDescription() string
	LongDescription() string
	FxModules() []fx.Option

	// ConfigureCommand lets commands finish their cobra setup (set the Run
	// function, add flags, declare positional arguments)
	ConfigureCommand(*cobra.Command)
}

// CreateMirrorCommand creates a cobra command for a mirror command module
func CreateMirrorCommand(module MirrorCommand) *cobra.Command {
	cmd := &cobra.Command{
		Use:   module.Name(),
		Short: module.ShortDescription(),
		Long:  module.LongDescription(),
	}

	// Common flags go on persistent flags so they reach any subcommands
	cmd.PersistentFlags().StringVarP(&configFilePath, "config", "c", "", "path to config file")
	cmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug mode")

	module.ConfigureCommand(cmd)

	return cmd
}

// runMirrorCommand runs a command action inside a per-command fx app. The
// action runs once the app has started and shuts the app down when it
// finishes.
func runMirrorCommand(cmd *cobra.Command, module MirrorCommand, action func() error) {
	options := []fx.Option{
		configProvider(cmd),
		logging.UseLoggingInterface,
	}

	options = append(options, module.FxModules()...)

	options = append(options, fx.Invoke(func(lc fx.Lifecycle, l *zap.Logger, sh fx.Shutdowner) {
		lc.Append(
			fx.Hook{
				OnStart: func(context.Context) error {
					go func() {
						if err := action(); err != nil {
							l.Error(module.Name()+" encountered an error during execution", zap.Error(err))
							os.Exit(1)
						}
						if err := sh.Shutdown(); err != nil {
							l.Error("Failed to shutdown "+module.Name(), zap.Error(err))
						}
					}()
					return nil
				},
				OnStop: func(ctx context.Context) error {
					return nil
				},
			})
	}))

	app := fx.New(fx.Options(options...))
	app.Run()
	if err := app.Stop(context.Background()); err != nil {
		return
	}
}
