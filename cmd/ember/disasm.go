package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ember/internal/asm"
	"ember/internal/bytecode"
)

var disasmCmd = &cobra.Command{
	Use:   "disasm <file.evm>",
	Short: "Assemble a file and print its bytecode listing",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		prog, err := asm.AssembleFile(args[0])
		if err != nil {
			return fmt.Errorf("assembly failed: %w", err)
		}
		return bytecode.Disasm(cmd.OutOrStdout(), prog.Module)
	},
}
