package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"ember/internal/asm"
)

var checkCmd = &cobra.Command{
	Use:   "check <file.evm>...",
	Short: "Assemble files without executing them",
	Long:  `Assemble each .evm file in parallel and report the first error per file`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().Int("jobs", 0, "maximum parallel jobs (0 = GOMAXPROCS)")
}

func runCheck(cmd *cobra.Command, args []string) error {
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return fmt.Errorf("failed to get jobs flag: %w", err)
	}
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	// Per-file results land in distinct indices, no mutex needed.
	results := make([]error, len(args))

	g, gctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(min(jobs, len(args)))

	for i, path := range args {
		i, path := i, path
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			_, results[i] = asm.AssembleFile(path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	failed := 0
	for i, path := range args {
		if results[i] != nil {
			failed++
			fmt.Fprintf(cmd.ErrOrStderr(), "%v\n", results[i])
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", path)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed to assemble", failed, len(args))
	}
	return nil
}
