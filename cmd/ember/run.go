package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"ember/internal/asm"
	"ember/internal/backtrace"
	"ember/internal/debuginfo"
	"ember/internal/vm"
)

var runCmd = &cobra.Command{
	Use:   "run [flags] <file.evm>",
	Short: "Assemble and execute an Ember program",
	Long:  `Assemble an .evm source file and execute it; uncaught exceptions print a decoded backtrace when recording is enabled`,
	Args:  cobra.ExactArgs(1),
	RunE:  runExecution,
}

func init() {
	runCmd.Flags().BoolP("backtrace", "b", false, "record exception backtraces")
	runCmd.Flags().String("debug-file", "", "debug info file to decode with (default: EMBER_DEBUG_FILE, then the manifest)")
	runCmd.Flags().String("emit-debug", "", "write the assembled debug info table to this path")
	runCmd.Flags().Bool("vm-trace", false, "enable VM execution tracing")
	runCmd.Flags().Bool("print-capture", false, "print the last capture-opcode snapshot after the run")
}

func runExecution(cmd *cobra.Command, args []string) error {
	filePath := args[0]

	manifest, haveManifest, err := loadProjectManifest(".")
	if err != nil {
		return err
	}

	prog, err := asm.AssembleFile(filePath)
	if err != nil {
		return fmt.Errorf("assembly failed: %w", err)
	}

	if emitPath, _ := cmd.Flags().GetString("emit-debug"); emitPath != "" {
		if err := debuginfo.Write(emitPath, prog.Debug); err != nil {
			return fmt.Errorf("failed to write debug info: %w", err)
		}
	}

	recording := resolveRecording(cmd, manifest, haveManifest)
	store := resolveStore(cmd, manifest, haveManifest, prog)

	var traceW io.Writer
	if vmTrace, _ := cmd.Flags().GetBool("vm-trace"); vmTrace {
		traceW = os.Stderr
	}

	machine := vm.New(prog.Module, prog.FileSet, vm.Options{
		Recording: recording,
		Trace:     traceW,
	})

	fatal := machine.Run()

	if printCapture, _ := cmd.Flags().GetBool("print-capture"); printCapture {
		if err := backtrace.PrintDefault(cmd.OutOrStdout(), machine.Captured(), store); err != nil {
			return err
		}
	}

	if fatal != nil {
		fatal.Format(os.Stderr, store, prog.FileSet, vm.FormatOptions{
			Color: colorEnabled(cmd, os.Stderr),
			Width: terminalWidth(os.Stderr),
		})
		os.Exit(2)
	}
	return nil
}

// resolveRecording applies flag > environment > manifest precedence.
func resolveRecording(cmd *cobra.Command, manifest *projectManifest, haveManifest bool) bool {
	if cmd.Flags().Changed("backtrace") {
		on, _ := cmd.Flags().GetBool("backtrace")
		return on
	}
	switch os.Getenv("EMBER_BACKTRACE") {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	}
	if haveManifest {
		return manifest.Config.Run.Backtrace
	}
	return false
}

// resolveStore picks the debug-info source: an explicit file beats the
// environment, which beats the manifest; with none of those the assembled
// in-memory table serves directly.
func resolveStore(cmd *cobra.Command, manifest *projectManifest, haveManifest bool, prog *asm.Program) backtrace.Store {
	if path, _ := cmd.Flags().GetString("debug-file"); path != "" {
		return debuginfo.NewStore(path)
	}
	if os.Getenv(debuginfo.EnvDebugFile) != "" {
		return debuginfo.NewStore("")
	}
	if haveManifest && manifest.Config.Run.DebugFile != "" {
		return debuginfo.NewStore(manifest.debugFilePath())
	}
	return debuginfo.NewStoreFromTable(prog.Debug)
}
