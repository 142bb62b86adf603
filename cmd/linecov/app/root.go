package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zjy-dev/linecov/internal/collector"
	"github.com/zjy-dev/linecov/internal/config"
	"github.com/zjy-dev/linecov/internal/logger"
)

// globalOptions are the flags shared by every subcommand. After
// PersistentPreRunE, cfg holds the config file values with flag overrides
// applied.
type globalOptions struct {
	configFile string
	jobs       int
	sliding    bool
	logLevel   string
	color      bool
	root       string

	cfg *config.Config
}

// NewLinecovCommand creates the root command for the linecov tool.
func NewLinecovCommand() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "linecov",
		Short: "Merge gcov and llvm-cov line coverage for one source file.",
		Long: `linecov runs gcov or llvm-cov over every compiled artifact, merges the
JSON reports into one table of covered and uncovered lines, and prints it
for an editor to highlight.

A line counts as covered as soon as any report shows it executed; it stays
uncovered only while every report that mentions it agrees.

Configuration:
  Defaults are read from linecov.yaml (in ., configs/ or ../configs/) and
  LINECOV_* environment variables. Command line flags override both.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "Config file (default: linecov.yaml in ., configs/ or ../configs/)")
	flags.IntVarP(&opts.jobs, "jobs", "j", 0, "Maximum concurrent tool processes (0 = one per CPU)")
	flags.BoolVar(&opts.sliding, "sliding", false, "Keep the process pool full instead of running whole wavefronts")
	flags.StringVar(&opts.logLevel, "log-level", "info", "Log level: debug, info, warn or error")
	flags.BoolVar(&opts.color, "color", false, "Colorize log output")
	flags.StringVar(&opts.root, "root", ".", "Directory searched for artifacts when none are given")

	cmd.AddCommand(NewGcovCommand(opts))
	cmd.AddCommand(NewLLVMCommand(opts))
	cmd.AddCommand(NewToolsCommand(opts))

	return cmd
}

func (o *globalOptions) load(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig(o.configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Use config values as defaults, command line flags override
	if cmd.Flags().Changed("jobs") {
		cfg.Jobs = o.jobs
	}
	if cmd.Flags().Changed("sliding") {
		cfg.Sliding = o.sliding
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}
	if cmd.Flags().Changed("color") {
		cfg.Color = o.color
	}
	if cmd.Flags().Changed("root") {
		cfg.Root = o.root
	}

	if err := logger.Init(cfg.LogLevel, os.Stderr, cfg.Color); err != nil {
		return err
	}
	o.cfg = cfg
	return nil
}

func (o *globalOptions) collectOptions() collector.Options {
	return collector.Options{Jobs: o.cfg.Jobs, Sliding: o.cfg.Sliding}
}
