package app

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zjy-dev/linecov/internal/exec"
)

// NewToolsCommand creates the "tools" subcommand, which checks that the
// configured coverage tools can be run.
func NewToolsCommand(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "Show the versions of the configured gcov and llvm-cov.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			executor := exec.NewCommandExecutor()
			out := cmd.OutOrStdout()
			missing := 0
			for _, tool := range []string{g.cfg.Gcov.Path, g.cfg.LLVM.Path} {
				result, err := executor.Run(cmd.Context(), tool, "--version")
				if err != nil || result.ExitCode != 0 {
					missing++
					fmt.Fprintf(out, "%s: not usable", tool)
					if err != nil {
						fmt.Fprintf(out, " (%v)", err)
					}
					fmt.Fprintln(out)
					continue
				}
				fmt.Fprintf(out, "%s: %s\n", tool, firstLine(string(result.Stdout)))
			}
			if missing == 2 {
				return fmt.Errorf("neither gcov nor llvm-cov could be run")
			}
			return nil
		},
	}
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}
