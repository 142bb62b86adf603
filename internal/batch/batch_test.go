package batch

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zjy-dev/linecov/internal/coverage"
	"github.com/zjy-dev/linecov/internal/exec"
)

// fakeProcess finishes after delay with a canned result.
type fakeProcess struct {
	result *exec.ExecutionResult
	err    error
	delay  time.Duration
	onExit func()
}

func (p *fakeProcess) Wait() (*exec.ExecutionResult, error) {
	time.Sleep(p.delay)
	if p.onExit != nil {
		p.onExit()
	}
	return p.result, p.err
}

// echoLauncher "runs" a process whose stdout is the artifact itself.
func echoLauncher() Launcher {
	return LauncherFunc(func(ctx context.Context, artifact string) (Process, error) {
		return &fakeProcess{result: &exec.ExecutionResult{Stdout: []byte(artifact)}}, nil
	})
}

// countLines stores as many empty line records as the stdout's numeric value.
func countLines(acc coverage.Table, stdout []byte) error {
	n, err := strconv.Atoi(string(stdout))
	if err != nil {
		return err
	}
	acc[string(stdout)] = make(coverage.FileCoverage, n)
	return nil
}

func TestRunner_Run(t *testing.T) {
	for _, sliding := range []bool{false, true} {
		t.Run(fmt.Sprintf("sliding=%v", sliding), func(t *testing.T) {
			r := &Runner[coverage.Table]{
				Launcher: echoLauncher(),
				Consume:  countLines,
				Jobs:     1,
				Sliding:  sliding,
			}

			res, err := r.Run(context.Background(), coverage.NewTable(), []string{"1", "2", "3"})
			require.NoError(t, err)
			require.NoError(t, res.Err())
			assert.Equal(t, 3, res.Succeeded)
			assert.Equal(t, coverage.Table{
				"1": make(coverage.FileCoverage, 1),
				"2": make(coverage.FileCoverage, 2),
				"3": make(coverage.FileCoverage, 3),
			}, res.Value)
		})
	}
}

func TestRunner_Run_Empty(t *testing.T) {
	r := &Runner[coverage.Table]{Launcher: echoLauncher(), Consume: countLines, Jobs: 4}
	res, err := r.Run(context.Background(), coverage.NewTable(), nil)
	require.NoError(t, err)
	assert.Empty(t, res.Value)
	assert.Empty(t, res.Diagnostics)
}

func TestRunner_Run_FailureIsolation(t *testing.T) {
	launcher := LauncherFunc(func(ctx context.Context, artifact string) (Process, error) {
		switch artifact {
		case "crash":
			return &fakeProcess{result: &exec.ExecutionResult{ExitCode: 2, Stdout: []byte("5"), Stderr: []byte("gcov: cannot open notes file\n")}}, nil
		case "missing":
			return nil, errors.New("executable file not found")
		case "garbage":
			return &fakeProcess{result: &exec.ExecutionResult{Stdout: []byte("not a number")}}, nil
		case "waitfail":
			return &fakeProcess{err: errors.New("read |0: file already closed")}, nil
		}
		return &fakeProcess{result: &exec.ExecutionResult{Stdout: []byte(artifact)}}, nil
	})

	for _, sliding := range []bool{false, true} {
		t.Run(fmt.Sprintf("sliding=%v", sliding), func(t *testing.T) {
			r := &Runner[coverage.Table]{Launcher: launcher, Consume: countLines, Jobs: 2, Sliding: sliding}
			res, err := r.Run(context.Background(), coverage.NewTable(), []string{"crash", "1", "missing", "garbage", "waitfail", "2"})
			require.NoError(t, err, "per-artifact failures never fail the batch")

			assert.Equal(t, 2, res.Succeeded)
			assert.Equal(t, []string{"1", "2"}, res.Value.Files())

			require.Len(t, res.Diagnostics, 4)
			var got []string
			for _, d := range res.Diagnostics {
				got = append(got, d.Artifact)
			}
			assert.Equal(t, []string{"crash", "missing", "garbage", "waitfail"}, got)

			var perr *ProcessError
			require.True(t, errors.As(res.Diagnostics[0].Err, &perr))
			assert.Equal(t, 2, perr.ExitCode)
			assert.Contains(t, perr.Stderr, "cannot open notes file")
			assert.Contains(t, res.Diagnostics[0].Error(), "exit status 2")

			assert.True(t, errors.Is(res.Diagnostics[1].Err, ErrProcess))
			assert.False(t, errors.Is(res.Diagnostics[2].Err, ErrProcess))
			assert.True(t, errors.Is(res.Diagnostics[3].Err, ErrProcess))

			combined := res.Err()
			require.Error(t, combined)
			assert.Contains(t, combined.Error(), "garbage")
			assert.Contains(t, combined.Error(), "executable file not found")
		})
	}
}

func TestRunner_Run_ConcurrencyCap(t *testing.T) {
	for _, sliding := range []bool{false, true} {
		t.Run(fmt.Sprintf("sliding=%v", sliding), func(t *testing.T) {
			var inFlight, peak int32
			launcher := LauncherFunc(func(ctx context.Context, artifact string) (Process, error) {
				n := atomic.AddInt32(&inFlight, 1)
				for {
					p := atomic.LoadInt32(&peak)
					if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
						break
					}
				}
				return &fakeProcess{
					result: &exec.ExecutionResult{Stdout: []byte("1")},
					delay:  5 * time.Millisecond,
					onExit: func() { atomic.AddInt32(&inFlight, -1) },
				}, nil
			})

			artifacts := make([]string, 20)
			for i := range artifacts {
				artifacts[i] = strconv.Itoa(i)
			}

			r := &Runner[*int]{
				Launcher: launcher,
				Consume: func(acc *int, _ []byte) error {
					*acc++
					return nil
				},
				Jobs:    3,
				Sliding: sliding,
			}
			count := 0
			res, err := r.Run(context.Background(), &count, artifacts)
			require.NoError(t, err)
			assert.Equal(t, 20, count)
			assert.Equal(t, 20, res.Succeeded)
			assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(3))
			assert.Greater(t, atomic.LoadInt32(&peak), int32(1), "processes should overlap")
		})
	}
}

func TestRunner_Run_ConsumesInLaunchOrder(t *testing.T) {
	// Later artifacts finish first.
	launcher := LauncherFunc(func(ctx context.Context, artifact string) (Process, error) {
		n, _ := strconv.Atoi(artifact)
		return &fakeProcess{
			result: &exec.ExecutionResult{Stdout: []byte(artifact)},
			delay:  time.Duration(10-n) * time.Millisecond,
		}, nil
	})

	for _, sliding := range []bool{false, true} {
		t.Run(fmt.Sprintf("sliding=%v", sliding), func(t *testing.T) {
			var order []string
			r := &Runner[*[]string]{
				Launcher: launcher,
				Consume: func(acc *[]string, stdout []byte) error {
					*acc = append(*acc, string(stdout))
					return nil
				},
				Jobs:    4,
				Sliding: sliding,
			}
			artifacts := []string{"0", "1", "2", "3", "4", "5", "6", "7", "8", "9"}
			_, err := r.Run(context.Background(), &order, artifacts)
			require.NoError(t, err)
			assert.Equal(t, artifacts, order)
		})
	}
}

func TestRunner_Run_WavefrontBarrier(t *testing.T) {
	// No process of the second wave may start before the first wave is fully
	// consumed.
	var mu sync.Mutex
	var events []string
	record := func(e string) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, e)
	}

	launcher := LauncherFunc(func(ctx context.Context, artifact string) (Process, error) {
		record("launch " + artifact)
		return &fakeProcess{result: &exec.ExecutionResult{Stdout: []byte(artifact)}}, nil
	})
	r := &Runner[coverage.Table]{
		Launcher: launcher,
		Consume: func(acc coverage.Table, stdout []byte) error {
			record("consume " + string(stdout))
			return nil
		},
		Jobs: 2,
	}

	_, err := r.Run(context.Background(), coverage.NewTable(), []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"launch a", "launch b",
		"consume a", "consume b",
		"launch c",
		"consume c",
	}, events)
}

func TestRunner_Run_ParseFailureLeavesTableIntact(t *testing.T) {
	reports := map[string]string{
		"good.gcno": `{"files": [{"file": "a.c", "lines": [{"line_number": 3, "count": 0, "unexecuted_block": true}]}]}`,
		"bad.gcno":  `{"files": [{"file": "a.c", "lines": [{"line_number": 3, "count": 1, "unexecuted_block": false}, {"line_number": "4"}]}]}`,
	}
	launcher := LauncherFunc(func(ctx context.Context, artifact string) (Process, error) {
		return &fakeProcess{result: &exec.ExecutionResult{Stdout: []byte(reports[artifact])}}, nil
	})
	r := &Runner[coverage.Table]{
		Launcher: launcher,
		Consume: func(acc coverage.Table, stdout []byte) error {
			return coverage.ParseGcov(acc, stdout, nil)
		},
		Jobs: 2,
	}

	res, err := r.Run(context.Background(), coverage.NewTable(), []string{"good.gcno", "bad.gcno"})
	require.NoError(t, err)
	require.Len(t, res.Diagnostics, 1)
	assert.True(t, errors.Is(res.Diagnostics[0], coverage.ErrParse))
	assert.Equal(t, coverage.Table{"a.c": {{Line: 3, Uncovered: true}}}, res.Value)
}

func TestRunner_Run_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, sliding := range []bool{false, true} {
		t.Run(fmt.Sprintf("sliding=%v", sliding), func(t *testing.T) {
			r := &Runner[coverage.Table]{Launcher: echoLauncher(), Consume: countLines, Jobs: 1, Sliding: sliding}
			res, err := r.Run(ctx, coverage.NewTable(), []string{"1", "2"})
			assert.ErrorIs(t, err, context.Canceled)
			assert.Empty(t, res.Value)
			assert.Empty(t, res.Diagnostics)
		})
	}
}

func TestRunner_Run_CancelledDuringLastWave(t *testing.T) {
	for _, sliding := range []bool{false, true} {
		t.Run(fmt.Sprintf("sliding=%v", sliding), func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			launcher := LauncherFunc(func(ctx context.Context, artifact string) (Process, error) {
				return &fakeProcess{
					result: &exec.ExecutionResult{Stdout: []byte(artifact)},
					onExit: cancel,
				}, nil
			})

			r := &Runner[coverage.Table]{Launcher: launcher, Consume: countLines, Jobs: 4, Sliding: sliding}
			res, err := r.Run(ctx, coverage.NewTable(), []string{"1", "2"})
			assert.ErrorIs(t, err, context.Canceled)
			require.NotNil(t, res)
			assert.Empty(t, res.Diagnostics)
		})
	}
}

func TestRunner_Run_RealProcesses(t *testing.T) {
	executor := exec.NewCommandExecutor()
	launcher := LauncherFunc(func(ctx context.Context, artifact string) (Process, error) {
		if artifact == "fail" {
			return executor.Start(ctx, "sh", "-c", "echo 'no such object' 1>&2; exit 3")
		}
		return executor.Start(ctx, "sh", "-c", `printf '%s' "$0"`, artifact)
	})

	r := &Runner[coverage.Table]{Launcher: launcher, Consume: countLines, Jobs: 2}
	res, err := r.Run(context.Background(), coverage.NewTable(), []string{"1", "fail", "3"})
	require.NoError(t, err)

	assert.Equal(t, []string{"1", "3"}, res.Value.Files())
	assert.Len(t, res.Value["3"], 3)

	require.Len(t, res.Diagnostics, 1)
	var perr *ProcessError
	require.True(t, errors.As(res.Diagnostics[0].Err, &perr))
	assert.Equal(t, "fail", perr.Artifact)
	assert.Equal(t, 3, perr.ExitCode)
	assert.Contains(t, perr.Stderr, "no such object")
}
