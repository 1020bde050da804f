// Package cmd provides command-line interface functionality for GCMTools.
// GCMTools extracts, inspects and rebuilds GameCube disc images (GCM/ISO).
package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/hansbonini/gcmtools/pkg/common"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands.
// It provides the main entry point for the GCMTools application.
var rootCmd = &cobra.Command{
	Use:   "gcmtools",
	Short: "Tools for extracting and rebuilding GameCube disc images",
	Long: `GCMTools - A collection of utilities for extracting, inspecting and
rebuilding GameCube disc images.

Currently supports:
  - Extracting the system data and file system of an image
  - Printing the boot header, apploader, DOL, FST and disc layout
  - Listing the file system of an image
  - Rebuilding an image from an extracted directory tree
  - Disassembling extracted DOL segments with GNU objdump

Examples:
  gcmtools extract game.iso ./game/
  gcmtools extract -s .text0 game.iso text0.bin
  gcmtools info -t layout game.iso
  gcmtools ls -l game.iso /audio
  gcmtools rebuild ./game/ rebuilt.iso
  gcmtools disasm text0.bin

Use 'gcmtools [command] --help' for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main() and serves as the entry point for command execution.
// An interrupt cancels the running command between files.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		common.LogError("%v", err)
		stop()
		os.Exit(1)
	}
}

// setVerbose enables debug output when the command's --verbose flag is set
func setVerbose(cmd *cobra.Command) error {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		return err
	}
	common.SetVerboseMode(verbose)
	return nil
}

// addVerboseFlag registers the --verbose flag shared by every command
func addVerboseFlag(cmd *cobra.Command) {
	cmd.Flags().BoolP("verbose", "v", false, "Enable verbose output (show debug messages)")
}
