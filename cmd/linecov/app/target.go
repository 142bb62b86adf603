package app

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/zjy-dev/linecov/internal/batch"
	"github.com/zjy-dev/linecov/internal/coverage"
	"github.com/zjy-dev/linecov/internal/discover"
	"github.com/zjy-dev/linecov/internal/logger"
	"github.com/zjy-dev/linecov/internal/report"
)

// targetOptions select what a collection command reports on and how.
type targetOptions struct {
	files     string
	format    string
	artifacts []string
}

func (t *targetOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&t.files, "files", "", "Report every file matching this glob instead of a single SOURCE")
	cmd.Flags().StringVarP(&t.format, "format", "f", string(report.FormatText), fmt.Sprintf("Output format %v", report.Formats))
	cmd.Flags().StringSliceVar(&t.artifacts, "artifacts", nil, "Glob(s) below --root used to find artifacts when none are given")
}

// target is a resolved collection request.
type target struct {
	source    string
	filter    coverage.FileFilter
	artifacts []string
	format    report.Format
}

// resolve interprets "SOURCE [ARTIFACT...]" (or "[ARTIFACT...]" with
// --files) and discovers artifacts below root when none are listed.
func (t *targetOptions) resolve(args []string, root string, defaultPatterns []string) (*target, error) {
	format, err := report.ParseFormat(t.format)
	if err != nil {
		return nil, err
	}
	tg := &target{format: format}

	if t.files != "" {
		if tg.filter, err = coverage.GlobFile(t.files); err != nil {
			return nil, err
		}
		tg.artifacts = args
	} else {
		if len(args) == 0 {
			return nil, errors.New("missing SOURCE file (or use --files)")
		}
		tg.source = args[0]
		info, err := os.Stat(tg.source)
		if err != nil {
			return nil, fmt.Errorf("source file: %w", err)
		}
		if !info.Mode().IsRegular() {
			return nil, fmt.Errorf("source %s is not a regular file", tg.source)
		}
		tg.filter = coverage.ExactFile(tg.source)
		tg.artifacts = args[1:]
	}

	if len(tg.artifacts) == 0 {
		patterns := t.artifacts
		if len(patterns) == 0 {
			patterns = defaultPatterns
		}
		if len(patterns) == 0 {
			return nil, errors.New("no artifacts given and no artifact patterns configured")
		}
		if tg.artifacts, err = discover.Artifacts(root, patterns...); err != nil {
			return nil, err
		}
		logger.Debugf("found %d artifacts below %s", len(tg.artifacts), root)
	}
	if len(tg.artifacts) == 0 {
		return nil, fmt.Errorf("no artifacts found below %s", root)
	}
	return tg, nil
}

// write renders a finished batch.
func (tg *target) write(w io.Writer, tool string, res *batch.Result[coverage.Table]) error {
	failures := multierr.Errors(res.Err())
	if len(failures) > 0 {
		logger.Warnf("%d of %d artifacts failed", len(failures), len(tg.artifacts))
	}

	r := &report.Report{
		Tool:      tool,
		Table:     res.Value,
		File:      tg.source,
		Artifacts: len(tg.artifacts),
		Failures:  failures,
	}
	return r.Write(w, tg.format)
}
