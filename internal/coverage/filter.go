package coverage

import (
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
)

// FileFilter selects the source files a parser keeps. A nil FileFilter
// accepts every file.
type FileFilter func(path string) bool

// Accept reports whether path passes the filter.
func (f FileFilter) Accept(path string) bool {
	return f == nil || f(path)
}

// AnyFile accepts every path.
func AnyFile() FileFilter {
	return func(string) bool { return true }
}

// ExactFile accepts only path, compared byte for byte with what the tool
// reports.
func ExactFile(path string) FileFilter {
	return func(p string) bool { return p == path }
}

// GlobFile accepts paths matching a doublestar pattern such as "src/**/*.c".
func GlobFile(pattern string) (FileFilter, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid file pattern %q", pattern)
	}
	return func(p string) bool {
		ok, err := doublestar.Match(pattern, p)
		return err == nil && ok
	}, nil
}
