// Package collector wires the batch runner to the gcov and llvm-cov report
// parsers.
package collector

import (
	"context"

	"github.com/zjy-dev/linecov/internal/batch"
	"github.com/zjy-dev/linecov/internal/coverage"
	"github.com/zjy-dev/linecov/internal/exec"
)

// GcovLauncher runs `gcov --stdout --json-format <object>` per artifact.
type GcovLauncher struct {
	Executor exec.Executor
	// Path is the gcov executable, "gcov" when empty.
	Path string
	// Args replaces the default flags when non-empty. The artifact is
	// always appended last.
	Args []string
}

// DefaultGcovArgs are the flags that make gcov print its JSON report to stdout.
var DefaultGcovArgs = []string{"--stdout", "--json-format"}

// Launch implements batch.Launcher.
func (l *GcovLauncher) Launch(ctx context.Context, object string) (batch.Process, error) {
	path := l.Path
	if path == "" {
		path = "gcov"
	}
	args := l.Args
	if len(args) == 0 {
		args = DefaultGcovArgs
	}
	return start(ctx, l.Executor, path, append(append([]string(nil), args...), object))
}

// LLVMCovLauncher runs
// `llvm-cov export -instr-profile <profdata> -format=text <binary>` per
// artifact.
type LLVMCovLauncher struct {
	Executor exec.Executor
	// Path is the llvm-cov executable, "llvm-cov" when empty.
	Path string
	// Profdata is the indexed profile produced by llvm-profdata merge.
	Profdata string
	// Args are extra flags inserted before the binary.
	Args []string
}

// Launch implements batch.Launcher.
func (l *LLVMCovLauncher) Launch(ctx context.Context, binary string) (batch.Process, error) {
	path := l.Path
	if path == "" {
		path = "llvm-cov"
	}
	args := []string{"export", "-instr-profile", l.Profdata, "-format=text"}
	args = append(args, l.Args...)
	return start(ctx, l.Executor, path, append(args, binary))
}

func start(ctx context.Context, e exec.Executor, path string, args []string) (batch.Process, error) {
	if e == nil {
		e = exec.NewCommandExecutor()
	}
	p, err := e.Start(ctx, path, args...)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Options tune a collection run.
type Options struct {
	// Jobs caps concurrent tool processes; zero or less means one per CPU.
	Jobs int
	// Sliding keeps the process pool full instead of running wavefronts.
	Sliding bool
	// Filter overrides the single-file filter derived from the source path.
	Filter coverage.FileFilter
}

func (o Options) filter(source string) coverage.FileFilter {
	if o.Filter != nil {
		return o.Filter
	}
	if source == "" {
		return coverage.AnyFile()
	}
	return coverage.ExactFile(source)
}

// Collect runs launcher over artifacts and merges every report with parse.
func Collect(
	ctx context.Context,
	launcher batch.Launcher,
	parse func(coverage.Table, []byte, coverage.FileFilter) error,
	filter coverage.FileFilter,
	opts Options,
	artifacts []string,
) (*batch.Result[coverage.Table], error) {
	r := &batch.Runner[coverage.Table]{
		Launcher: launcher,
		Consume: func(t coverage.Table, stdout []byte) error {
			return parse(t, stdout, filter)
		},
		Jobs:    opts.Jobs,
		Sliding: opts.Sliding,
	}
	return r.Run(ctx, coverage.NewTable(), artifacts)
}

// GcovCoverage collects gcov line coverage of source from the given object
// files. An empty source keeps every file.
func GcovCoverage(ctx context.Context, l *GcovLauncher, opts Options, objects []string, source string) (*batch.Result[coverage.Table], error) {
	return Collect(ctx, l, coverage.ParseGcov, opts.filter(source), opts, objects)
}

// LLVMCoverage collects llvm-cov line coverage of source from the given
// instrumented binaries. An empty source keeps every file. Reports may use
// either the array or the single-object form of "data".
func LLVMCoverage(ctx context.Context, l *LLVMCovLauncher, opts Options, binaries []string, source string) (*batch.Result[coverage.Table], error) {
	return Collect(ctx, l, coverage.ParseLLVMExport, opts.filter(source), opts, binaries)
}
