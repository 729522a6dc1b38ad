package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/mirrorkit/s3mirror/pkg/afero"
	"github.com/mirrorkit/s3mirror/pkg/keys"
	"github.com/mirrorkit/s3mirror/pkg/logging"
	"github.com/mirrorkit/s3mirror/pkg/mirror"
	"github.com/mirrorkit/s3mirror/pkg/s3store"
)

// MatchCommand lists bucket keys matching segment patterns
type MatchCommand struct {
	mirror *mirror.Mirror
	args   []string
}

// NewMatchCommand creates a new match command
func NewMatchCommand() *MatchCommand {
	return &MatchCommand{}
}

// Name returns the name of the command
func (m *MatchCommand) Name() string {
	return "match"
}

// ShortDescription returns a short description of the command
func (m *MatchCommand) ShortDescription() string {
	return "List bucket keys matching segment patterns"
}

// LongDescription returns a detailed description of the command
func (m *MatchCommand) LongDescription() string {
	return "Match lists every key in the configured bucket that satisfies all given " +
		"segment patterns. A pattern constrains one key position: DEPTH alone requires " +
		"the position to exist, DEPTH=NAME requires an exact name, DEPTH~PART requires " +
		"a substring, and DEPTH:file requires the terminal position. Negative depths " +
		"count back from the end of the key, so '0=2016 -1~.png' matches png objects " +
		"under 2016/."
}

// ConfigureCommand configures the match command
func (m *MatchCommand) ConfigureCommand(cmd *cobra.Command) {
	cmd.Use = "match PATTERN..."
	cmd.Args = cobra.MinimumNArgs(1)
	cmd.Run = func(cmd *cobra.Command, args []string) {
		m.args = args
		runMirrorCommand(cmd, m, m.run)
	}
}

// FxModules returns the fx modules needed by this command
func (m *MatchCommand) FxModules() []fx.Option {
	return []fx.Option{
		afero.Module,
		logging.Module,
		s3store.Module,
		mirror.Module,
		fx.Populate(&m.mirror),
	}
}

func (m *MatchCommand) run() error {
	patterns, err := parsePatterns(m.args)
	if err != nil {
		return err
	}

	matched, err := m.mirror.MatchingKeys(context.Background(), patterns)
	if err != nil {
		return errors.Wrap(err, "failed to list matching keys")
	}

	for _, key := range matched {
		fmt.Println(key)
	}
	return nil
}

// parsePatterns parses each argument as a comma separated pattern list and
// concatenates the results.
func parsePatterns(args []string) ([]keys.Segment, error) {
	var patterns []keys.Segment
	for _, arg := range args {
		segs, err := keys.ParsePattern(arg)
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, segs...)
	}
	return patterns, nil
}
