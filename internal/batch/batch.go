// Package batch runs one external process per artifact under a concurrency
// cap and feeds each successful process's stdout to a consume function.
//
// The runner knows nothing about report formats. Failures of single
// artifacts, whether the process fails or its output cannot be consumed,
// are collected as diagnostics and never abort the batch.
package batch

import (
	"context"
	"errors"
	"runtime"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/zjy-dev/linecov/internal/exec"
	"github.com/zjy-dev/linecov/internal/logger"
)

// Process is a launched command. Wait returns once the process has exited
// and its output has been captured in full.
type Process interface {
	Wait() (*exec.ExecutionResult, error)
}

// Launcher starts the process for one artifact.
type Launcher interface {
	Launch(ctx context.Context, artifact string) (Process, error)
}

// LauncherFunc adapts a function to Launcher.
type LauncherFunc func(ctx context.Context, artifact string) (Process, error)

// Launch calls f.
func (f LauncherFunc) Launch(ctx context.Context, artifact string) (Process, error) {
	return f(ctx, artifact)
}

// ConsumeFunc folds one process's stdout into the accumulator. It must leave
// acc unchanged when it returns an error.
type ConsumeFunc[A any] func(acc A, stdout []byte) error

// Runner drives artifacts through Launcher and Consume.
type Runner[A any] struct {
	Launcher Launcher
	Consume  ConsumeFunc[A]

	// Jobs caps the number of processes in flight. Zero or less means one per
	// CPU.
	Jobs int

	// Sliding starts a new process as soon as any in-flight one exits instead
	// of draining whole wavefronts. Outputs are consumed in artifact order
	// either way.
	Sliding bool
}

// Result is the outcome of a batch.
type Result[A any] struct {
	Value       A
	Diagnostics []Diagnostic
	// Succeeded counts artifacts whose output was consumed.
	Succeeded int
}

// Err combines every diagnostic into one error, or nil when the batch was
// clean.
func (r *Result[A]) Err() error {
	var err error
	for _, d := range r.Diagnostics {
		err = multierr.Append(err, d)
	}
	return err
}

var errNoResult = errors.New("process reported no result")

// tracked is the per-artifact record. It is written by exactly one goroutine
// before being handed to the draining goroutine.
type tracked struct {
	artifact  string
	launchErr error
	result    *exec.ExecutionResult
	waitErr   error
	skipped   bool
}

func (r *Runner[A]) jobs() int {
	if r.Jobs > 0 {
		return r.Jobs
	}
	return runtime.NumCPU()
}

// Run processes artifacts and returns acc with every successful output
// consumed into it. Only the goroutine calling Run touches acc.
//
// Once ctx is done no further processes are launched; Run then returns the
// partial result together with ctx.Err().
func (r *Runner[A]) Run(ctx context.Context, acc A, artifacts []string) (*Result[A], error) {
	res := &Result[A]{Value: acc}
	jobs := r.jobs()
	logger.Debugf("running %d artifacts, %d at a time", len(artifacts), jobs)

	var err error
	if r.Sliding {
		err = r.runSliding(ctx, res, artifacts, jobs)
	} else {
		err = r.runWavefronts(ctx, res, artifacts, jobs)
	}

	logger.Debugf("batch done: %d consumed, %d failed", res.Succeeded, len(res.Diagnostics))
	return res, err
}

// runWavefronts launches up to jobs processes, waits for all of them to
// finish, consumes their outputs in launch order, then starts the next wave.
func (r *Runner[A]) runWavefronts(ctx context.Context, res *Result[A], artifacts []string, jobs int) error {
	for start := 0; start < len(artifacts); start += jobs {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := start + jobs
		if end > len(artifacts) {
			end = len(artifacts)
		}

		wave := make([]*tracked, 0, end-start)
		var g errgroup.Group
		for _, artifact := range artifacts[start:end] {
			tr := &tracked{artifact: artifact}
			wave = append(wave, tr)
			proc, err := r.Launcher.Launch(ctx, artifact)
			if err != nil {
				tr.launchErr = err
				continue
			}
			g.Go(func() error {
				tr.result, tr.waitErr = proc.Wait()
				return nil
			})
		}
		_ = g.Wait()

		for _, tr := range wave {
			r.drain(res, tr)
		}
	}
	return ctx.Err()
}

// runSliding keeps up to jobs processes running at all times. Finished
// records are consumed strictly in artifact order.
func (r *Runner[A]) runSliding(ctx context.Context, res *Result[A], artifacts []string, jobs int) error {
	done := make([]chan *tracked, len(artifacts))
	for i := range done {
		done[i] = make(chan *tracked, 1)
	}

	var g errgroup.Group
	g.SetLimit(jobs)
	go func() {
		for i, artifact := range artifacts {
			ch := done[i]
			if ctx.Err() != nil {
				ch <- &tracked{artifact: artifact, skipped: true}
				continue
			}
			g.Go(func() error {
				ch <- r.launchAndWait(ctx, artifact)
				return nil
			})
		}
	}()

	for _, ch := range done {
		r.drain(res, <-ch)
	}
	return ctx.Err()
}

func (r *Runner[A]) launchAndWait(ctx context.Context, artifact string) *tracked {
	tr := &tracked{artifact: artifact}
	proc, err := r.Launcher.Launch(ctx, artifact)
	if err != nil {
		tr.launchErr = err
		return tr
	}
	tr.result, tr.waitErr = proc.Wait()
	return tr
}

// drain consumes one finished record into res.
func (r *Runner[A]) drain(res *Result[A], tr *tracked) {
	if tr.skipped {
		return
	}
	if err := tr.processErr(); err != nil {
		r.report(res, tr.artifact, err)
		return
	}
	if err := r.Consume(res.Value, tr.result.Stdout); err != nil {
		r.report(res, tr.artifact, err)
		return
	}
	res.Succeeded++
	logger.Debugf("%s: consumed %d bytes", tr.artifact, len(tr.result.Stdout))
}

func (tr *tracked) processErr() error {
	switch {
	case tr.launchErr != nil:
		return &ProcessError{Artifact: tr.artifact, ExitCode: -1, Err: tr.launchErr}
	case tr.waitErr != nil:
		pe := &ProcessError{Artifact: tr.artifact, ExitCode: -1, Err: tr.waitErr}
		if tr.result != nil {
			pe.ExitCode = tr.result.ExitCode
			pe.Stderr = string(tr.result.Stderr)
		}
		return pe
	case tr.result == nil:
		return &ProcessError{Artifact: tr.artifact, ExitCode: -1, Err: errNoResult}
	case tr.result.ExitCode != 0:
		return &ProcessError{
			Artifact: tr.artifact,
			ExitCode: tr.result.ExitCode,
			Stderr:   string(tr.result.Stderr),
		}
	}
	return nil
}

func (r *Runner[A]) report(res *Result[A], artifact string, err error) {
	d := Diagnostic{Artifact: artifact, Err: err}
	res.Diagnostics = append(res.Diagnostics, d)
	logger.Warnf("%v", d)
}
