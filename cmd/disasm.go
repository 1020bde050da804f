// Package cmd provides command-line interface for GameCube disc images.
// This file contains the disasm command.
package cmd

import (
	"fmt"

	"github.com/hansbonini/gcmtools/pkg"
	"github.com/hansbonini/gcmtools/pkg/gcm"
	"github.com/spf13/cobra"
)

// disasmCmd disassembles raw PowerPC machine code
var disasmCmd = &cobra.Command{
	Use:   "disasm [binary]",
	Short: "Disassemble an extracted DOL segment",
	Long: `Disassemble raw Gekko (PowerPC 750CL) machine code, such as a DOL
segment written by "extract --section .text0".

Requirements:
  - GNU objdump with PowerPC support

Examples:
  gcmtools disasm text0.bin
  gcmtools disasm -n 32 --objdump powerpc-eabi-objdump text0.bin`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		// Enable verbose mode if requested
		if err := setVerbose(cmd); err != nil {
			return fmt.Errorf("error getting verbose flag: %w", err)
		}
		objdump, err := cmd.Flags().GetString("objdump")
		if err != nil {
			return fmt.Errorf("error getting objdump flag: %w", err)
		}
		limit, err := cmd.Flags().GetInt("limit")
		if err != nil {
			return fmt.Errorf("error getting limit flag: %w", err)
		}

		return pkg.NewGameProcessor().Disassemble(cmd.Context(), args[0], objdump, limit)
	},
}

func init() {
	rootCmd.AddCommand(disasmCmd)

	disasmCmd.Flags().String("objdump", gcm.DefaultObjdump, "Path to GNU objdump")
	disasmCmd.Flags().IntP("limit", "n", 0, "Maximum number of instructions to print (0 for all)")
	addVerboseFlag(disasmCmd)
}
