package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/mirrorkit/s3mirror/pkg/configutils"
)

// envPrefix namespaces the environment variables every command reads, so
// S3MIRROR_BUCKET overrides the "bucket" config key.
const envPrefix = "S3MIRROR"

func configProvider(cli *cobra.Command) fx.Option {
	return configutils.ProvideViperFromFile(envPrefix, cli.Flags(), configFilePath)
}
