package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mirrorkit/s3mirror/pkg/version"
)

var rootCmd = &cobra.Command{
	Use:     "s3mirror",
	Short:   "Mirror S3 objects to local disk",
	Long:    "s3mirror matches bucket keys against segment patterns and keeps a local disk mirror of the matching objects.",
	Version: fmt.Sprintf("gitVersion=%s, gitCommit=%s", version.GitVersion, version.GitCommit),
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	// Register all mirror commands
	rootCmd.AddCommand(CreateMirrorCommand(NewMatchCommand()))
	rootCmd.AddCommand(CreateMirrorCommand(NewPullCommand()))
	rootCmd.AddCommand(CreateMirrorCommand(NewPushCommand()))
	rootCmd.AddCommand(CreateMirrorCommand(NewStatCommand()))
}
