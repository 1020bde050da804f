// Package cmd provides command-line interface for GameCube disc images.
// This file contains the ls command.
package cmd

import (
	"fmt"

	"github.com/hansbonini/gcmtools/pkg"
	"github.com/spf13/cobra"
)

// lsCmd lists a directory of the image's file system
var lsCmd = &cobra.Command{
	Use:   "ls [image] [dir]",
	Short: "List the files on a disc image",
	Long: `List the files on a GameCube disc image.

The directory is a path inside the image's file system and defaults to the
root. With --long each entry shows its kind, size (file count for
directories) and disc offset.

Examples:
  gcmtools ls game.iso
  gcmtools ls -l game.iso /audio`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		imageFile := args[0]
		dir := "/"
		if len(args) > 1 {
			dir = args[1]
		}

		// Enable verbose mode if requested
		if err := setVerbose(cmd); err != nil {
			return fmt.Errorf("error getting verbose flag: %w", err)
		}
		long, err := cmd.Flags().GetBool("long")
		if err != nil {
			return fmt.Errorf("error getting long flag: %w", err)
		}

		return pkg.NewGameProcessor().List(imageFile, dir, long)
	},
}

func init() {
	rootCmd.AddCommand(lsCmd)

	lsCmd.Flags().BoolP("long", "l", false, "List the files in an ls -l style format")
	addVerboseFlag(lsCmd)
}
