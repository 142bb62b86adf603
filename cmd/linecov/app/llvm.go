package app

import (
	"github.com/spf13/cobra"

	"github.com/zjy-dev/linecov/internal/collector"
	"github.com/zjy-dev/linecov/internal/exec"
)

// NewLLVMCommand creates the "llvm" subcommand.
func NewLLVMCommand(g *globalOptions) *cobra.Command {
	var (
		t        targetOptions
		llvmCov  string
		profdata string
		extra    []string
	)

	cmd := &cobra.Command{
		Use:   "llvm SOURCE [BINARY...]",
		Short: "Collect llvm-cov line coverage of SOURCE.",
		Long: `Run "llvm-cov export -instr-profile PROFDATA -format=text" once per
instrumented binary and merge the reports for SOURCE.

Both shapes of the export document are read: the array form that llvm-cov
prints ("data": [ {...}, ... ], one element per binary) and a single "data"
object. Any other shape of "data" is reported as a parse failure for that
binary.

When no binaries are listed, the llvm artifact globs from the config file are
searched below --root.

Examples:
  linecov llvm --profdata merged.profdata src/foo.cc out/unit_tests out/fuzz_tests`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := g.cfg
			if !cmd.Flags().Changed("llvm-cov") {
				llvmCov = cfg.LLVM.Path
			}
			if !cmd.Flags().Changed("profdata") {
				profdata = cfg.LLVM.Profdata
			}
			if !cmd.Flags().Changed("llvm-cov-args") {
				extra = cfg.LLVM.Args
			}

			tg, err := t.resolve(args, cfg.Root, cfg.LLVM.Artifacts)
			if err != nil {
				return err
			}

			launcher := &collector.LLVMCovLauncher{
				Executor: exec.NewCommandExecutor(),
				Path:     llvmCov,
				Profdata: profdata,
				Args:     extra,
			}
			opts := g.collectOptions()
			opts.Filter = tg.filter
			res, err := collector.LLVMCoverage(cmd.Context(), launcher, opts, tg.artifacts, tg.source)
			if err != nil {
				return err
			}
			return tg.write(cmd.OutOrStdout(), "llvm-cov", res)
		},
	}

	t.register(cmd)
	cmd.Flags().StringVar(&llvmCov, "llvm-cov", "llvm-cov", "Path to the llvm-cov executable")
	cmd.Flags().StringVar(&profdata, "profdata", "default.profdata", "Indexed profile passed as -instr-profile")
	cmd.Flags().StringSliceVar(&extra, "llvm-cov-args", nil, "Extra flags passed to llvm-cov export before the binary")

	return cmd
}
