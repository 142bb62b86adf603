package coverage

import (
	"errors"
	"fmt"
	"strings"
)

// ErrParse is matched by every *ParseError via errors.Is.
var ErrParse = errors.New("coverage report parse error")

// Schema names a supported report format.
type Schema string

const (
	SchemaGcov Schema = "gcov"
	SchemaLLVM Schema = "llvm"
)

// ParseError describes the first schema violation found in a report.
type ParseError struct {
	Schema Schema
	// Field is the JSON path of the offending value, e.g. "files[2].lines[0].count".
	Field string
	// File is the source file the offending entry belongs to, when known.
	File string
	// Reason is a short description such as "missing" or "isn't array".
	Reason string
	// Err is the strconv error behind a rejected number, if any.
	Err error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s report: ", e.Schema)
	if e.Field != "" {
		fmt.Fprintf(&b, "'%s' ", e.Field)
	}
	b.WriteString(e.Reason)
	if e.File != "" {
		fmt.Fprintf(&b, " (file %s)", e.File)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrParse }
