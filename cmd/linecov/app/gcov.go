package app

import (
	"github.com/spf13/cobra"

	"github.com/zjy-dev/linecov/internal/collector"
	"github.com/zjy-dev/linecov/internal/exec"
)

// NewGcovCommand creates the "gcov" subcommand.
func NewGcovCommand(g *globalOptions) *cobra.Command {
	var (
		t        targetOptions
		gcovPath string
		gcovArgs []string
	)

	cmd := &cobra.Command{
		Use:   "gcov SOURCE [OBJECT...]",
		Short: "Collect gcov line coverage of SOURCE.",
		Long: `Run "gcov --stdout --json-format" once per object file and merge the
reports for SOURCE.

When no objects are listed, the gcov artifact globs (default **/*.gcno) are
searched below --root.

Examples:
  # Coverage of one file, objects discovered below the current directory
  linecov gcov src/main.c

  # Explicit objects, at most 4 gcov processes at a time
  linecov gcov -j 4 src/main.c build/main.gcno build/util.gcno

  # Every header under include/, as JSON
  linecov gcov --files 'include/**/*.h' --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := g.cfg
			if !cmd.Flags().Changed("gcov") {
				gcovPath = cfg.Gcov.Path
			}
			if !cmd.Flags().Changed("gcov-args") {
				gcovArgs = cfg.Gcov.Args
			}

			tg, err := t.resolve(args, cfg.Root, cfg.Gcov.Artifacts)
			if err != nil {
				return err
			}

			launcher := &collector.GcovLauncher{
				Executor: exec.NewCommandExecutor(),
				Path:     gcovPath,
				Args:     gcovArgs,
			}
			opts := g.collectOptions()
			opts.Filter = tg.filter
			res, err := collector.GcovCoverage(cmd.Context(), launcher, opts, tg.artifacts, tg.source)
			if err != nil {
				return err
			}
			return tg.write(cmd.OutOrStdout(), "gcov", res)
		},
	}

	t.register(cmd)
	cmd.Flags().StringVar(&gcovPath, "gcov", "gcov", "Path to the gcov executable")
	cmd.Flags().StringSliceVar(&gcovArgs, "gcov-args", collector.DefaultGcovArgs, "Flags passed to gcov before the object file")

	return cmd
}
