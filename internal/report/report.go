// Package report renders a merged coverage table for editors and humans.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/zjy-dev/linecov/internal/coverage"
)

// Format selects how a Report is written.
type Format string

const (
	// FormatText prints covered and uncovered line lists per file.
	FormatText Format = "text"
	// FormatJSON prints {"file": {"covered": [...], "uncovered": [...]}}.
	FormatJSON Format = "json"
	// FormatLines prints one "file:line:state" record per line, for editor
	// sign placement.
	FormatLines Format = "lines"
	// FormatMarkdown prints a summary table with the batch failures.
	FormatMarkdown Format = "markdown"
)

// Formats lists every supported format.
var Formats = []Format{FormatText, FormatJSON, FormatLines, FormatMarkdown}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	for _, f := range Formats {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown format %q (want one of %v)", s, Formats)
}

// ErrNoCoverage is returned when the requested file has no coverage data.
var ErrNoCoverage = errors.New("no coverage data")

// Report is the result of one collection run.
type Report struct {
	// Tool names the coverage tool, e.g. "gcov".
	Tool  string
	Table coverage.Table
	// File restricts output to one source file; empty means all files.
	File string
	// Artifacts is the number of artifacts processed.
	Artifacts int
	// Failures are the per-artifact diagnostics of the run.
	Failures []error
}

type fileLines struct {
	Covered   []uint `json:"covered"`
	Uncovered []uint `json:"uncovered"`
}

func (r *Report) files() ([]string, error) {
	if r.File == "" {
		return r.Table.Files(), nil
	}
	if _, ok := r.Table[r.File]; !ok {
		return nil, fmt.Errorf("%w for %s", ErrNoCoverage, r.File)
	}
	return []string{r.File}, nil
}

// Write renders r to w.
func (r *Report) Write(w io.Writer, format Format) error {
	files, err := r.files()
	if err != nil {
		return err
	}
	switch format {
	case FormatText:
		return r.writeText(w, files)
	case FormatJSON:
		return r.writeJSON(w, files)
	case FormatLines:
		return r.writeLines(w, files)
	case FormatMarkdown:
		return r.writeMarkdown(w, files)
	}
	return fmt.Errorf("unknown format %q", format)
}

func (r *Report) writeText(w io.Writer, files []string) error {
	for _, file := range files {
		covered, uncovered := r.Table[file].Split()
		if _, err := fmt.Fprintf(w, "%s\n  covered:   %s\n  uncovered: %s\n",
			file, joinLines(covered), joinLines(uncovered)); err != nil {
			return err
		}
	}
	return nil
}

func (r *Report) writeJSON(w io.Writer, files []string) error {
	out := make(map[string]fileLines, len(files))
	for _, file := range files {
		covered, uncovered := r.Table[file].Split()
		out[file] = fileLines{Covered: nonNil(covered), Uncovered: nonNil(uncovered)}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func (r *Report) writeLines(w io.Writer, files []string) error {
	for _, file := range files {
		for _, rec := range r.Table[file] {
			state := "covered"
			if rec.Uncovered {
				state = "uncovered"
			}
			if _, err := fmt.Fprintf(w, "%s:%d:%s\n", file, rec.Line, state); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Report) writeMarkdown(w io.Writer, files []string) error {
	var b strings.Builder
	tool := r.Tool
	if tool == "" {
		tool = "coverage"
	}
	fmt.Fprintf(&b, "# Line Coverage (%s)\n\n", tool)
	fmt.Fprintf(&b, "**Artifacts:** %d processed, %d failed\n\n", r.Artifacts, len(r.Failures))

	b.WriteString("| File | Lines | Covered | Uncovered | Percent |\n")
	b.WriteString("|------|-------|---------|-----------|---------|\n")
	for _, file := range files {
		covered, uncovered := r.Table[file].Split()
		total := len(covered) + len(uncovered)
		percent := 0.0
		if total > 0 {
			percent = 100 * float64(len(covered)) / float64(total)
		}
		fmt.Fprintf(&b, "| %s | %d | %d | %d | %.1f%% |\n", file, total, len(covered), len(uncovered), percent)
	}

	if len(r.Failures) > 0 {
		b.WriteString("\n## Failures\n\n")
		for _, f := range r.Failures {
			fmt.Fprintf(&b, "```\n%s\n```\n\n", strings.TrimSpace(f.Error()))
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func joinLines(lines []uint) string {
	parts := make([]string, len(lines))
	for i, l := range lines {
		parts[i] = fmt.Sprint(l)
	}
	return strings.Join(parts, " ")
}

func nonNil(lines []uint) []uint {
	if lines == nil {
		return []uint{}
	}
	return lines
}
