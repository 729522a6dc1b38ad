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

// StatCommand reports a key's presence and size on both sides of the mirror
type StatCommand struct {
	mirror *mirror.Mirror
	key    string
}

// NewStatCommand creates a new stat command
func NewStatCommand() *StatCommand {
	return &StatCommand{}
}

// Name returns the name of the command
func (s *StatCommand) Name() string {
	return "stat"
}

// ShortDescription returns a short description of the command
func (s *StatCommand) ShortDescription() string {
	return "Report a key's presence and size in the bucket and the mirror"
}

// LongDescription returns a detailed description of the command
func (s *StatCommand) LongDescription() string {
	return "Stat checks one key on both sides of the mirror and prints whether the " +
		"object exists in the bucket and under the mirror root, with sizes in bytes."
}

// ConfigureCommand configures the stat command
func (s *StatCommand) ConfigureCommand(cmd *cobra.Command) {
	cmd.Use = "stat KEY"
	cmd.Args = cobra.ExactArgs(1)
	cmd.Run = func(cmd *cobra.Command, args []string) {
		s.key = args[0]
		runMirrorCommand(cmd, s, s.run)
	}
}

// FxModules returns the fx modules needed by this command
func (s *StatCommand) FxModules() []fx.Option {
	return []fx.Option{
		afero.Module,
		logging.Module,
		s3store.Module,
		mirror.Module,
		fx.Populate(&s.mirror),
	}
}

func (s *StatCommand) run() error {
	ctx := context.Background()
	p := s.mirror.FromKey(s.key)

	inStore, err := p.ExistsInS3(ctx)
	if err != nil {
		return errors.Wrapf(err, "failed to check %s in the bucket", p.Key())
	}
	if inStore {
		size, err := p.SizeInS3(ctx)
		if err != nil {
			return errors.Wrapf(err, "failed to size %s in the bucket", p.Key())
		}
		fmt.Printf("s3://%s/%s\t%d bytes\n", p.Bucket(), p.Key(), size)
	} else {
		fmt.Printf("s3://%s/%s\tabsent\n", p.Bucket(), p.Key())
	}

	cached, err := p.ExistsInMirror()
	if err != nil {
		return errors.Wrapf(err, "failed to check %s in the mirror", p.Key())
	}
	if cached {
		size, err := p.SizeInMirror()
		if err != nil {
			return errors.Wrapf(err, "failed to size %s in the mirror", p.Key())
		}
		fmt.Printf("%s\t%d bytes\n", p.LocalPath(), size)
	} else {
		fmt.Printf("%s\tabsent\n", p.LocalPath())
	}
	return nil
}
