//go:build integration

package collector

import (
	"context"
	"os"
	osexec "os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zjy-dev/linecov/internal/exec"
)

const integrationSource = `int pick(int x) {
  if (x > 0)
    return 1;
  return 0;
}

int main(int argc, char **argv) {
  (void)argv;
  return pick(argc) - 1;
}
`

// TestGcovCoverage_Integration compiles a program with --coverage, runs it
// once and collects its line coverage through the real gcov.
func TestGcovCoverage_Integration(t *testing.T) {
	for _, tool := range []string{"gcc", "gcov"} {
		if _, err := osexec.LookPath(tool); err != nil {
			t.Skipf("Skipping test: %s not found in PATH", tool)
		}
	}

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.c"), []byte(integrationSource), 0644))

	executor := &exec.CommandExecutor{Dir: dir}
	ctx := context.Background()

	result, err := executor.Run(ctx, "gcc", "--coverage", "-O0", "-o", "prog", "main.c")
	require.NoError(t, err)
	require.Equal(t, 0, result.ExitCode, string(result.Stderr))

	result, err = executor.Run(ctx, filepath.Join(dir, "prog"))
	require.NoError(t, err)
	require.Equal(t, 0, result.ExitCode)

	objects, err := filepath.Glob(filepath.Join(dir, "*.gcno"))
	require.NoError(t, err)
	require.NotEmpty(t, objects)

	launcher := &GcovLauncher{Executor: executor, Path: "gcov"}
	res, err := GcovCoverage(ctx, launcher, Options{Jobs: 2}, objects, "main.c")
	require.NoError(t, err)
	if len(res.Diagnostics) > 0 {
		t.Skipf("Skipping test: gcov lacks JSON output support: %v", res.Err())
	}

	lines := res.Value["main.c"]
	require.NotEmpty(t, lines)

	covered, uncovered := lines.Split()
	t.Logf("covered: %v uncovered: %v", covered, uncovered)
	assert.Contains(t, covered, uint(3), "the taken branch should be covered")
	assert.Contains(t, uncovered, uint(4), "the untaken return should be uncovered")

	_, ok := lines.Lookup(3)
	assert.True(t, ok)
	assert.Equal(t, []string{"main.c"}, res.Value.Files())
}
