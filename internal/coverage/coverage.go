// Package coverage holds the merged line-coverage model and the parsers that
// fill it from gcov and llvm-cov JSON reports.
package coverage

import (
	"sort"
)

// LineRecord is the merged verdict for one source line.
type LineRecord struct {
	// Line is the 1-based line number as reported by the tool.
	Line uint `json:"line"`

	// Uncovered is true while every report that mentions the line agrees that
	// its block was never entered.
	Uncovered bool `json:"uncovered"`
}

// FileCoverage is the per-file list of line records, strictly increasing and
// unique by Line.
type FileCoverage []LineRecord

// Table maps a file path, exactly as the tool reported it, to its lines.
type Table map[string]FileCoverage

// NewTable returns an empty table.
func NewTable() Table {
	return make(Table)
}

// search returns the index of the first record whose line is >= line.
func (fc FileCoverage) search(line uint) int {
	return sort.Search(len(fc), func(i int) bool {
		return fc[i].Line >= line
	})
}

// Lookup returns the record for line, if any.
func (fc FileCoverage) Lookup(line uint) (LineRecord, bool) {
	i := fc.search(line)
	if i < len(fc) && fc[i].Line == line {
		return fc[i], true
	}
	return LineRecord{}, false
}

// Split partitions the records into covered and uncovered line numbers, both
// in increasing order.
func (fc FileCoverage) Split() (covered, uncovered []uint) {
	for _, r := range fc {
		if r.Uncovered {
			uncovered = append(uncovered, r.Line)
		} else {
			covered = append(covered, r.Line)
		}
	}
	return covered, uncovered
}

// merge folds one verdict into fc and returns the updated slice.
// An existing record keeps Uncovered only if the incoming verdict agrees.
func (fc FileCoverage) merge(line uint, uncovered bool) FileCoverage {
	i := fc.search(line)
	if i < len(fc) && fc[i].Line == line {
		fc[i].Uncovered = fc[i].Uncovered && uncovered
		return fc
	}
	fc = append(fc, LineRecord{})
	copy(fc[i+1:], fc[i:])
	fc[i] = LineRecord{Line: line, Uncovered: uncovered}
	return fc
}

// Touch makes sure file has an entry, even if no line is ever merged into it.
func (t Table) Touch(file string) {
	if _, ok := t[file]; !ok {
		t[file] = FileCoverage{}
	}
}

// Merge folds a single (file, line) verdict into the table.
func (t Table) Merge(file string, line uint, uncovered bool) {
	t[file] = t[file].merge(line, uncovered)
}

// MergeTable folds every record of other into t. Since the per-line merge is
// a conjunction, the result does not depend on the order tables are merged in.
func (t Table) MergeTable(other Table) {
	for file, lines := range other {
		dst, ok := t[file]
		if !ok {
			dst = make(FileCoverage, 0, len(lines))
		}
		for _, r := range lines {
			dst = dst.merge(r.Line, r.Uncovered)
		}
		t[file] = dst
	}
}

// Clone returns a deep copy of t.
func (t Table) Clone() Table {
	out := make(Table, len(t))
	for file, lines := range t {
		out[file] = append(make(FileCoverage, 0, len(lines)), lines...)
	}
	return out
}

// Files returns the table's file paths in sorted order.
func (t Table) Files() []string {
	files := make([]string, 0, len(t))
	for file := range t {
		files = append(files, file)
	}
	sort.Strings(files)
	return files
}
