package scan

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/avareg/quickscan/internal/executor"
	"github.com/avareg/quickscan/pkg/types"
)

// preflightBinary is the external compliance-scanning tool.
const preflightBinary = "preflight"

const (
	// defaultSettleDelay is how long to wait after the tool exits for its
	// log file to finish flushing before reading it back.
	defaultSettleDelay = 200 * time.Millisecond
	// DefaultScanTimeout bounds a single tool invocation.
	DefaultScanTimeout = 30 * time.Minute
)

// ErrScanTimeout is returned when a tool invocation exceeds its timeout.
var ErrScanTimeout = errors.New("preflight scan timed out")

// InvokeResult is the raw product of one tool invocation.
type InvokeResult struct {
	// CombinedOutput is the tool's stdout followed by its stderr.
	CombinedOutput string
	// LogContent is the content of the per-task log file; empty when the
	// file could not be read back.
	LogContent string
	// ExitCode is the tool's exit status.
	ExitCode int
	// Elapsed is the wall-clock duration of the invocation.
	Elapsed time.Duration
}

// Invoker runs the preflight tool once per task. Every invocation gets an
// exclusive temporary log file whose path is handed to the tool through
// the child process's own environment block, so concurrent invocations
// cannot observe each other's log paths. The temporary file is removed on
// every return path.
type Invoker struct {
	logger       types.Logger
	authJSONPath string
	settleDelay  time.Duration
	timeout      time.Duration
	newExecutor  func(ctx context.Context) types.CommandExecutor
}

// NewInvoker creates an Invoker. authJSONPath may be empty; when set it
// must reference an existing docker auth file. A non-positive timeout
// falls back to DefaultScanTimeout.
func NewInvoker(logger types.Logger, authJSONPath string, timeout time.Duration) *Invoker {
	if timeout <= 0 {
		timeout = DefaultScanTimeout
	}
	return &Invoker{
		logger:       logger,
		authJSONPath: authJSONPath,
		settleDelay:  defaultSettleDelay,
		timeout:      timeout,
		newExecutor:  executor.NewCommandExecutor,
	}
}

// Invoke runs `preflight check container --platform amd64 <pullTarget>`
// for one task and captures its combined output, exit code, and per-task
// log content.
//
// A non-zero exit is not an error here: the raw output is still returned
// for parsing and the exit code reports the failure. Errors are reserved
// for invocations that produced no usable output at all: spawn failures,
// a missing auth file, or a timeout (ErrScanTimeout).
func (iv *Invoker) Invoke(ctx context.Context, task types.ScanTask) (*InvokeResult, error) {
	start := time.Now()

	if task.PullTarget == "" {
		return nil, fmt.Errorf("task %q has no pull target", task.RawReference)
	}
	if iv.authJSONPath != "" {
		if _, err := os.Stat(iv.authJSONPath); err != nil {
			return nil, fmt.Errorf("auth config %s not usable: %w", iv.authJSONPath, err)
		}
	}

	logFile, err := os.CreateTemp("", "preflight-*.log")
	if err != nil {
		return nil, fmt.Errorf("error creating temporary log file: %w", err)
	}
	logPath := logFile.Name()
	if err := logFile.Close(); err != nil {
		os.Remove(logPath)
		return nil, fmt.Errorf("error closing temporary log file: %w", err)
	}
	defer os.Remove(logPath)

	args := []string{"check", "container", "--platform", "amd64", task.PullTarget}
	if iv.authJSONPath != "" {
		args = append(args, "-d", iv.authJSONPath)
	}

	// The log path rides in the child's env block only. Setting it on the
	// parent process would race between concurrent tasks.
	env := append(os.Environ(),
		"PFLT_LOGFILE="+logPath,
		"PFLT_JUNIT=true",
		"PFLT_LOGLEVEL=debug",
	)

	runCtx, cancel := context.WithTimeout(ctx, iv.timeout)
	defer cancel()

	commandExecutor := iv.newExecutor(runCtx)
	stdout, stderr, runErr := commandExecutor.ExecuteCommand(preflightBinary, args, env)

	exitCode := 0
	if runErr != nil {
		if runCtx.Err() != nil {
			return nil, fmt.Errorf("%w after %s: %s", ErrScanTimeout, iv.timeout, task.PullTarget)
		}
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			return nil, fmt.Errorf("error running %s for %s: %w", preflightBinary, task.PullTarget, runErr)
		}
		exitCode = exitErr.ExitCode()
	}

	time.Sleep(iv.settleDelay)

	logContent := ""
	if content, err := os.ReadFile(logPath); err != nil {
		iv.logger.Warn("error reading preflight log for " + task.PullTarget + ": " + err.Error())
	} else {
		logContent = string(content)
	}

	return &InvokeResult{
		CombinedOutput: stdout + stderr,
		LogContent:     logContent,
		ExitCode:       exitCode,
		Elapsed:        time.Since(start),
	}, nil
}
