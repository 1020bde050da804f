// Package cmd provides command-line interface for GameCube disc images.
// This file contains the extract command.
package cmd

import (
	"fmt"

	"github.com/hansbonini/gcmtools/pkg"
	"github.com/spf13/cobra"
)

// extractCmd extracts the contents of a disc image to a directory.
// With --section only one system file, FST path or DOL segment is written.
var extractCmd = &cobra.Command{
	Use:   "extract [image] [output]",
	Short: "Extract a disc image's contents to disk",
	Long: `Extract a GameCube disc image's contents to disk.

The output directory must not exist. The system data (ISO.hdr, Game.toc,
Apploader.ldr and Start.dol) is written to output/&&systemdata and the file
system to output/. Such a directory can be turned back into an image with
the rebuild command.

With --section a single section is extracted to the output path instead:
  - a system data file, e.g. &&systemdata/Start.dol
  - a file or directory of the file system, e.g. /audio/bgm.adp
  - a DOL segment, e.g. .text0 or .data3

Examples:
  gcmtools extract game.iso ./game/
  gcmtools extract -s /audio/bgm.adp game.iso bgm.adp
  gcmtools extract -s .text0 game.iso text0.bin`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		imageFile := args[0]
		output := args[1]

		// Enable verbose mode if requested
		if err := setVerbose(cmd); err != nil {
			return fmt.Errorf("error getting verbose flag: %w", err)
		}
		section, err := cmd.Flags().GetString("section")
		if err != nil {
			return fmt.Errorf("error getting section flag: %w", err)
		}

		processor := pkg.NewGameProcessor()

		fmt.Printf("Processing disc image: %s\n", imageFile)
		if section != "" {
			if _, err := processor.Extract(cmd.Context(), imageFile, output, section); err != nil {
				return err
			}
			fmt.Printf("Section %s extracted to: %s\n", section, output)
			return nil
		}

		fmt.Printf("Output directory: %s\n", output)
		count, err := processor.Extract(cmd.Context(), imageFile, output, "")
		if err != nil {
			return fmt.Errorf("failed to extract disc image: %w", err)
		}
		fmt.Printf("%d files extracted to: %s\n", count, output)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringP("section", "s", "", "Extract a single section of the image rather than everything")
	addVerboseFlag(extractCmd)
}
