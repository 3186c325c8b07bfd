package assistant

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"tagwarden/internal/logging"
)

// State is a phase of one tool invocation.
type State int

const (
	StateIdle State = iota
	StateSpawned
	StateStreaming
	StateDraining
	StateExited
)

func (s State) String() string {
	switch s {
	case StateSpawned:
		return "spawned"
	case StateStreaming:
		return "streaming"
	case StateDraining:
		return "draining"
	case StateExited:
		return "exited"
	default:
		return "idle"
	}
}

// RunResult captures a finished invocation. A non-zero ExitCode or TimedOut
// is reported here rather than as an error.
type RunResult struct {
	Command       []string
	ExitCode      int
	Stdout        string
	Stderr        string
	TimedOut      bool
	DrainTimedOut bool
	Duration      time.Duration
}

// Runner executes one external tool at a time, feeding the prompt on stdin
// and collecting stdout and stderr concurrently.
type Runner struct {
	logger           *slog.Logger
	runTimeout       time.Duration
	drainTimeout     time.Duration
	progressInterval time.Duration

	mu       sync.Mutex
	state    State
	observer func(State)
}

// NewRunner constructs a runner. A zero runTimeout disables the overall limit.
func NewRunner(runTimeout, drainTimeout time.Duration, logger *slog.Logger) *Runner {
	return &Runner{
		logger:           logging.NewComponentLogger(logger, "assistant-runner"),
		runTimeout:       runTimeout,
		drainTimeout:     drainTimeout,
		progressInterval: time.Second,
	}
}

// OnState registers a callback invoked on every state transition.
func (r *Runner) OnState(fn func(State)) {
	r.mu.Lock()
	r.observer = fn
	r.mu.Unlock()
}

// State reports the current phase.
func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Runner) setState(s State) {
	r.mu.Lock()
	r.state = s
	fn := r.observer
	r.mu.Unlock()
	r.logger.Debug("runner state", logging.String("state", s.String()))
	if fn != nil {
		fn(s)
	}
}

// Run starts argv, writes input to its stdin and waits for it to exit. After
// exit, output still buffered in the pipes is drained for at most the drain
// timeout; descendants that keep the pipes open do not hold the run.
func (r *Runner) Run(ctx context.Context, argv []string, input string) (RunResult, error) {
	if len(argv) == 0 {
		return RunResult{}, errors.New("empty command")
	}
	result := RunResult{Command: append([]string(nil), argv...)}

	runCtx := ctx
	if r.runTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.runTimeout)
		defer cancel()
	}

	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		return result, fmt.Errorf("stdout pipe: %w", err)
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		stdoutR.Close()
		stdoutW.Close()
		return result, fmt.Errorf("stderr pipe: %w", err)
	}
	closeReaders := func() {
		_ = stdoutR.Close()
		_ = stderrR.Close()
	}

	cmd := exec.CommandContext(runCtx, argv[0], argv[1:]...)
	cmd.Stdin = strings.NewReader(input)
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	started := time.Now()
	startErr := cmd.Start()
	_ = stdoutW.Close()
	_ = stderrW.Close()
	if startErr != nil {
		closeReaders()
		return result, fmt.Errorf("start %s: %w", argv[0], startErr)
	}
	r.setState(StateSpawned)

	var stdout, stderr bytes.Buffer
	var received atomic.Int64
	var readers errgroup.Group
	readers.Go(func() error { return pump(stdoutR, &stdout, &received) })
	readers.Go(func() error { return pump(stderrR, &stderr, &received) })
	r.setState(StateStreaming)

	stopProgress := make(chan struct{})
	progressDone := make(chan struct{})
	go r.reportProgress(argv[0], &received, stopProgress, progressDone)

	waitErr := cmd.Wait()
	close(stopProgress)
	<-progressDone

	r.setState(StateDraining)
	drained := make(chan error, 1)
	go func() { drained <- readers.Wait() }()
	var readErr error
	if r.drainTimeout > 0 {
		timer := time.NewTimer(r.drainTimeout)
		select {
		case readErr = <-drained:
			timer.Stop()
		case <-timer.C:
			result.DrainTimedOut = true
			logging.WarnWithContext(r.logger, "output drain timed out", "assistant_drain_timeout",
				logging.String("tool", argv[0]),
				logging.Duration("drain_timeout", r.drainTimeout),
			)
			closeReaders()
			readErr = <-drained
		}
	} else {
		readErr = <-drained
	}
	closeReaders()
	r.setState(StateExited)

	result.Duration = time.Since(started)
	result.Stdout = stdout.String()
	result.Stderr = stderr.String()
	if runCtx.Err() != nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		result.TimedOut = true
	}

	var exitErr *exec.ExitError
	switch {
	case waitErr == nil:
	case errors.As(waitErr, &exitErr):
		result.ExitCode = exitErr.ExitCode()
	default:
		return result, fmt.Errorf("wait %s: %w", argv[0], waitErr)
	}
	if ctx.Err() != nil {
		return result, ctx.Err()
	}
	if readErr != nil && !result.DrainTimedOut {
		return result, fmt.Errorf("read %s output: %w", argv[0], readErr)
	}
	return result, nil
}

func (r *Runner) reportProgress(tool string, received *atomic.Int64, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	if r.progressInterval <= 0 {
		<-stop
		return
	}
	ticker := time.NewTicker(r.progressInterval)
	defer ticker.Stop()
	var last int64
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if n := received.Load(); n != last {
				last = n
				r.logger.Info("receiving output", logging.String("tool", tool), logging.Int64("bytes", n))
			}
		}
	}
}

func pump(src io.Reader, dst *bytes.Buffer, received *atomic.Int64) error {
	buf := make([]byte, 4096)
	for {
		n, err := src.Read(buf)
		if n > 0 {
			dst.Write(buf[:n])
			received.Add(int64(n))
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, os.ErrClosed) {
				return nil
			}
			return err
		}
	}
}
