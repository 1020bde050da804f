// Package cmd provides command-line interface for GameCube disc images.
// This file contains the info command.
package cmd

import (
	"fmt"
	"strings"

	"github.com/hansbonini/gcmtools/pkg"
	"github.com/hansbonini/gcmtools/pkg/common"
	"github.com/spf13/cobra"
)

// infoCmd prints information about a disc image
var infoCmd = &cobra.Command{
	Use:   "info [image]",
	Short: "Display information about a disc image",
	Long: `Display information about a GameCube disc image.

Without flags a summary and the disc layout are printed. Numbers are
decimal unless --hex is given; --offset and --mem-addr accept decimal or
0x-prefixed hexadecimal values.

Types (--type):
  header      Boot header (ISO.hdr)
  dol         Main executable header and segments
  fst         File system table
  apploader   Apploader
  layout      Every region of the image by offset

Examples:
  gcmtools info game.iso
  gcmtools info -t dol -x game.iso
  gcmtools info -o 0x2440 game.iso
  gcmtools info -m 0x80003100 game.iso
  gcmtools info --yaml --digest game.iso`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		imageFile := args[0]

		// Enable verbose mode if requested
		if err := setVerbose(cmd); err != nil {
			return fmt.Errorf("error getting verbose flag: %w", err)
		}

		flags := cmd.Flags()
		infoType, err := flags.GetString("type")
		if err != nil {
			return fmt.Errorf("error getting type flag: %w", err)
		}
		offset, err := flags.GetString("offset")
		if err != nil {
			return fmt.Errorf("error getting offset flag: %w", err)
		}
		memAddr, err := flags.GetString("mem-addr")
		if err != nil {
			return fmt.Errorf("error getting mem-addr flag: %w", err)
		}
		hex, err := flags.GetBool("hex")
		if err != nil {
			return fmt.Errorf("error getting hex flag: %w", err)
		}
		asYAML, err := flags.GetBool("yaml")
		if err != nil {
			return fmt.Errorf("error getting yaml flag: %w", err)
		}
		withDigest, err := flags.GetBool("digest")
		if err != nil {
			return fmt.Errorf("error getting digest flag: %w", err)
		}

		opts := pkg.InfoOptions{
			Type:       strings.ToLower(infoType),
			YAML:       asYAML,
			WithDigest: withDigest,
		}
		if offset != "" {
			value, err := common.ParseNumber(offset)
			if err != nil {
				return fmt.Errorf("invalid offset: %w", err)
			}
			opts.Offset = &value
		}
		if memAddr != "" {
			value, err := common.ParseNumber(memAddr)
			if err != nil {
				return fmt.Errorf("invalid memory address: %w", err)
			}
			opts.MemAddr = &value
		}

		processor := pkg.NewGameProcessor()
		if hex {
			processor.Style = common.Hexadecimal
		}
		return processor.Info(imageFile, opts)
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)

	infoCmd.Flags().StringP("type", "t", "", "Print a given type of information ("+strings.Join(pkg.InfoTypes, ", ")+")")
	infoCmd.Flags().StringP("offset", "o", "", "Print information about whichever section is at the given offset")
	infoCmd.Flags().StringP("mem-addr", "m", "", "Print information about the DOL segment loaded at the given memory address")
	infoCmd.Flags().BoolP("hex", "x", false, "Display numbers in hexadecimal")
	infoCmd.Flags().Bool("yaml", false, "Print the report as YAML")
	infoCmd.Flags().Bool("digest", false, "Include the sha256 digest of the image")
	infoCmd.MarkFlagsMutuallyExclusive("type", "offset", "mem-addr")
	addVerboseFlag(infoCmd)
}
