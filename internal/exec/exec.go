package exec

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
)

// ExecutionResult holds the outcome of a command execution.
type ExecutionResult struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Executor defines an interface for running external commands.
// This allows for mocking in tests.
type Executor interface {
	// Run executes a command to completion.
	Run(ctx context.Context, command string, args ...string) (*ExecutionResult, error)

	// Start launches a command and returns immediately. Its output is captured
	// in the background until Wait.
	Start(ctx context.Context, command string, args ...string) (*Process, error)
}

// CommandExecutor is a concrete implementation of the Executor interface
// that runs actual commands on the host system.
type CommandExecutor struct {
	// Dir is the working directory of launched commands; empty means the
	// current directory.
	Dir string
}

// NewCommandExecutor creates a new CommandExecutor.
func NewCommandExecutor() *CommandExecutor {
	return &CommandExecutor{}
}

// Process is a running command whose stdout and stderr are being captured.
type Process struct {
	cmd    *exec.Cmd
	stdout bytes.Buffer
	stderr bytes.Buffer
}

// Start launches command. A missing executable or a failed spawn is
// returned as an error.
func (e *CommandExecutor) Start(ctx context.Context, command string, args ...string) (*Process, error) {
	p := &Process{cmd: exec.CommandContext(ctx, command, args...)}
	p.cmd.Dir = e.Dir
	p.cmd.Stdout = &p.stdout
	p.cmd.Stderr = &p.stderr
	if err := p.cmd.Start(); err != nil {
		return nil, err
	}
	return p, nil
}

// Wait blocks until the process exits and both output streams are fully
// drained. A non-zero exit is reported through ExitCode, not as an error.
func (p *Process) Wait() (*ExecutionResult, error) {
	err := p.cmd.Wait()

	result := &ExecutionResult{
		Stdout:   p.stdout.Bytes(),
		Stderr:   p.stderr.Bytes(),
		ExitCode: p.cmd.ProcessState.ExitCode(),
	}

	// cmd.Wait() returns an error for non-zero exit codes, but we handle
	// the exit code explicitly. So, we only return other kinds of errors
	// (e.g., copying output failed).
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return result, err
		}
	}

	return result, nil
}

// Run executes the given command and returns its result.
func (e *CommandExecutor) Run(ctx context.Context, command string, args ...string) (*ExecutionResult, error) {
	p, err := e.Start(ctx, command, args...)
	if err != nil {
		return nil, err
	}
	return p.Wait()
}
