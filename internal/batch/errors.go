package batch

import (
	"errors"
	"fmt"
	"strings"
)

// ErrProcess is matched by every *ProcessError via errors.Is.
var ErrProcess = errors.New("coverage tool process failed")

// ProcessError reports an artifact whose process could not be started or
// exited with a non-zero status.
type ProcessError struct {
	Artifact string
	ExitCode int
	// Stderr is the process's captured standard error.
	Stderr string
	// Err is set when the process could not be launched or waited on.
	Err error
}

func (e *ProcessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Artifact, e.Err)
	}
	msg := fmt.Sprintf("%s: exit status %d", e.Artifact, e.ExitCode)
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += "\n" + stderr
	}
	return msg
}

func (e *ProcessError) Unwrap() error { return e.Err }

func (e *ProcessError) Is(target error) bool { return target == ErrProcess }

// Diagnostic records why one artifact contributed nothing to the result.
type Diagnostic struct {
	Artifact string
	// Err is a *ProcessError or the error returned by the consume function,
	// typically a *coverage.ParseError.
	Err error
}

func (d Diagnostic) Error() string {
	var perr *ProcessError
	if errors.As(d.Err, &perr) {
		return d.Err.Error()
	}
	return fmt.Sprintf("%s: %v", d.Artifact, d.Err)
}

func (d Diagnostic) Unwrap() error { return d.Err }
