package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/mirrorkit/s3mirror/pkg/afero"
	"github.com/mirrorkit/s3mirror/pkg/logging"
	"github.com/mirrorkit/s3mirror/pkg/mirror"
	"github.com/mirrorkit/s3mirror/pkg/s3store"
)

// PullCommand downloads every matching object into the local mirror
type PullCommand struct {
	mirror    *mirror.Mirror
	args      []string
	overwrite bool
}

// NewPullCommand creates a new pull command
func NewPullCommand() *PullCommand {
	return &PullCommand{}
}

// Name returns the name of the command
func (p *PullCommand) Name() string {
	return "pull"
}

// ShortDescription returns a short description of the command
func (p *PullCommand) ShortDescription() string {
	return "Download objects matching segment patterns into the mirror"
}

// LongDescription returns a detailed description of the command
func (p *PullCommand) LongDescription() string {
	return "Pull matches the configured bucket against the given segment patterns and " +
		"downloads every matching object to its spot under the mirror root. Objects " +
		"already mirrored are skipped unless --overwrite is set."
}

// ConfigureCommand configures the pull command
func (p *PullCommand) ConfigureCommand(cmd *cobra.Command) {
	cmd.Use = "pull PATTERN..."
	cmd.Args = cobra.MinimumNArgs(1)
	cmd.Flags().BoolVar(&p.overwrite, "overwrite", false, "replace cached copies instead of skipping them")
	cmd.Run = func(cmd *cobra.Command, args []string) {
		p.args = args
		runMirrorCommand(cmd, p, p.run)
	}
}

// FxModules returns the fx modules needed by this command
func (p *PullCommand) FxModules() []fx.Option {
	return []fx.Option{
		afero.Module,
		logging.Module,
		s3store.Module,
		mirror.Module,
		fx.Populate(&p.mirror),
	}
}

func (p *PullCommand) run() error {
	ctx := context.Background()

	patterns, err := parsePatterns(p.args)
	if err != nil {
		return err
	}

	paths, err := p.mirror.MatchingPaths(ctx, patterns)
	if err != nil {
		return errors.Wrap(err, "failed to list matching keys")
	}
	if len(paths) == 0 {
		fmt.Println("no keys matched")
		return nil
	}

	if err := p.mirror.DownloadAll(ctx, paths, p.overwrite); err != nil {
		return errors.Wrap(err, "failed to download matched objects")
	}

	fmt.Printf("pulled %d objects into %s\n", len(paths), p.mirror.Root())
	return nil
}
