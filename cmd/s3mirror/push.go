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

// PushCommand uploads mirrored files back to the bucket
type PushCommand struct {
	mirror    *mirror.Mirror
	key       string
	overwrite bool
}

// NewPushCommand creates a new push command
func NewPushCommand() *PushCommand {
	return &PushCommand{}
}

// Name returns the name of the command
func (p *PushCommand) Name() string {
	return "push"
}

// ShortDescription returns a short description of the command
func (p *PushCommand) ShortDescription() string {
	return "Upload a mirrored file or tree back to the bucket"
}

// LongDescription returns a detailed description of the command
func (p *PushCommand) LongDescription() string {
	return "Push walks the mirrored copy under the given key (a single file or a whole " +
		"folder) and uploads every file back to the bucket. Objects that already exist " +
		"in the bucket are skipped unless --overwrite is set."
}

// ConfigureCommand configures the push command
func (p *PushCommand) ConfigureCommand(cmd *cobra.Command) {
	cmd.Use = "push KEY"
	cmd.Args = cobra.ExactArgs(1)
	cmd.Flags().BoolVar(&p.overwrite, "overwrite", false, "replace objects that already exist in the bucket")
	cmd.Run = func(cmd *cobra.Command, args []string) {
		p.key = args[0]
		runMirrorCommand(cmd, p, p.run)
	}
}

// FxModules returns the fx modules needed by this command
func (p *PushCommand) FxModules() []fx.Option {
	return []fx.Option{
		afero.Module,
		logging.Module,
		s3store.Module,
		mirror.Module,
		fx.Populate(&p.mirror),
	}
}

func (p *PushCommand) run() error {
	ctx := context.Background()
	root := p.mirror.FromKey(p.key)

	paths, err := p.mirror.LocalPaths(root)
	if err != nil {
		return errors.Wrapf(err, "failed to walk mirrored files under %s", root.LocalPath())
	}
	if len(paths) == 0 {
		return errors.Errorf("nothing mirrored under %s", root.LocalPath())
	}

	if err := p.mirror.UploadAll(ctx, paths, p.overwrite); err != nil {
		return errors.Wrap(err, "failed to upload mirrored files")
	}

	fmt.Printf("pushed %d objects to s3://%s\n", len(paths), p.mirror.Bucket())
	return nil
}
