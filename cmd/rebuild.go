// Package cmd provides command-line interface for GameCube disc images.
// This file contains the rebuild command.
package cmd

import (
	"fmt"

	"github.com/hansbonini/gcmtools/pkg"
	"github.com/hansbonini/gcmtools/pkg/common"
	"github.com/hansbonini/gcmtools/pkg/gcm"
	"github.com/spf13/cobra"
)

// rebuildCmd builds a disc image from an extracted directory tree
var rebuildCmd = &cobra.Command{
	Use:   "rebuild [root] [output]",
	Short: "Rebuild a disc image from an extracted directory",
	Long: `Rebuild a GameCube disc image from a directory created by extract.

The file system table (&&systemdata/Game.toc) is regenerated from the
directory tree and the offsets in &&systemdata/ISO.hdr are updated to match,
unless --no-rebuild-fst is given. Files whose names start with a dot are
skipped. The output file must not exist and is removed if the rebuild fails.

Requirements:
  - root/&&systemdata/ISO.hdr, Apploader.ldr and Start.dol

Examples:
  gcmtools rebuild ./game/ rebuilt.iso
  gcmtools rebuild -a 0x800 ./game/ rebuilt.iso
  gcmtools rebuild --no-rebuild-fst ./game/ rebuilt.iso`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := args[0]
		output := args[1]

		// Enable verbose mode if requested
		if err := setVerbose(cmd); err != nil {
			return fmt.Errorf("error getting verbose flag: %w", err)
		}
		alignmentFlag, err := cmd.Flags().GetString("alignment")
		if err != nil {
			return fmt.Errorf("error getting alignment flag: %w", err)
		}
		alignment, err := common.ParseNumber(alignmentFlag)
		if err != nil {
			return fmt.Errorf("invalid alignment %q: %w", alignmentFlag, err)
		}
		noRebuildFST, err := cmd.Flags().GetBool("no-rebuild-fst")
		if err != nil {
			return fmt.Errorf("error getting no-rebuild-fst flag: %w", err)
		}

		processor := pkg.NewGameProcessor()

		fmt.Printf("Root directory: %s\n", root)
		fmt.Printf("Output disc image: %s\n", output)

		result, err := processor.Rebuild(cmd.Context(), root, output, alignment, !noRebuildFST)
		if err != nil {
			return fmt.Errorf("failed to rebuild disc image: %w", err)
		}

		fmt.Println("Disc image rebuilt successfully!")
		fmt.Printf("Files: %d\n", result.Table.FileCount)
		fmt.Printf("Digest: %s\n", result.Digest)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rebuildCmd)

	rebuildCmd.Flags().StringP("alignment", "a", fmt.Sprint(gcm.DefaultAlignment),
		fmt.Sprintf("Alignment in bytes of the files in the file system (minimum %d)", gcm.MinAlignment))
	rebuildCmd.Flags().Bool("no-rebuild-fst", false, "Use the existing file system table and header rather than creating new ones")
	addVerboseFlag(rebuildCmd)
}
