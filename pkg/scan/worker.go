package scan

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/avareg/quickscan/pkg/types"
)

// Worker scans exactly one task: invoke the tool, parse what came back,
// and always hand back a ScanOutcome. Nothing escapes the worker — any
// failure in the invoke/parse sequence, panics included, becomes an
// outcome with ToolExitFailed set. The coordinator relies on this to run
// tasks concurrently without one image aborting the run.
type Worker struct {
	logger  types.Logger
	invoker *Invoker
	parser  *Parser
}

// NewWorker creates a Worker around the given invoker and parser.
func NewWorker(logger types.Logger, invoker *Invoker, parser *Parser) *Worker {
	return &Worker{logger: logger, invoker: invoker, parser: parser}
}

// Run produces the outcome for one task.
func (w *Worker) Run(ctx context.Context, task types.ScanTask) (outcome types.ScanOutcome) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			outcome = w.failedOutcome(task, fmt.Errorf("panic while scanning %s: %v", task.PullTarget, r),
				types.StatusNotApplicable, time.Since(start))
		}
	}()

	res, err := w.invoker.Invoke(ctx, task)
	if err != nil {
		w.logger.Error("scan failed for " + task.PullTarget + ": " + err.Error())
		// A timeout means the tool ran and was killed; surface it as an
		// outright failure. Everything else defaults to NOT_APPLICABLE.
		verdict := types.StatusNotApplicable
		if errors.Is(err, ErrScanTimeout) {
			verdict = types.StatusFailed
		}
		return w.failedOutcome(task, err, verdict, time.Since(start))
	}

	results, detailed, verdict := w.parser.Parse(task, res.CombinedOutput, res.LogContent)

	toolExitFailed := res.ExitCode != 0
	if toolExitFailed {
		w.logger.Warn(fmt.Sprintf("preflight exited %d for %s", res.ExitCode, task.PullTarget))
	}

	return types.ScanOutcome{
		Task:           task,
		CheckResults:   results,
		DetailedChecks: detailed,
		Verdict:        verdict,
		ToolExitFailed: toolExitFailed,
		Elapsed:        time.Since(start),
		ConsoleOutput:  formatTranscript(task, results, verdict, time.Since(start)),
	}
}

func (w *Worker) failedOutcome(task types.ScanTask, err error, verdict types.Status,
	elapsed time.Duration) types.ScanOutcome {
	return types.ScanOutcome{
		Task:           task,
		Verdict:        verdict,
		ToolExitFailed: true,
		Elapsed:        elapsed,
		ConsoleOutput:  fmt.Sprintf("Error scanning %s: %v\n", task.PullTarget, err),
	}
}

// formatTranscript renders the per-image console block: header, one
// aligned line per check, the verdict, and the elapsed time.
func formatTranscript(task types.ScanTask, results []types.CheckResult,
	verdict types.Status, elapsed time.Duration) string {
	var b strings.Builder

	fmt.Fprintf(&b, "\nScanning image: %s\n%s\n", task.PullTarget, strings.Repeat("=", 80))
	fmt.Fprintf(&b, "%-36s %-26s %-10s\n", "Image Name", "Test Case", "Status")
	b.WriteString(strings.Repeat("-", 79) + "\n")
	for _, r := range results {
		fmt.Fprintf(&b, "%-36s %-26s %-10s\n", r.ImageName, r.CheckName, r.Status)
	}
	fmt.Fprintf(&b, "Verdict: %s\n", verdict)
	fmt.Fprintf(&b, "Time elapsed: %.3f seconds\n", elapsed.Seconds())

	return b.String()
}
