package scan

import (
	"context"
	"time"

	"github.com/avareg/quickscan/pkg/types"
)

// WorkerRunner produces exactly one outcome per task and never fails.
type WorkerRunner interface {
	Run(ctx context.Context, task types.ScanTask) types.ScanOutcome
}

// OutcomeObserver is notified of each outcome as the coordinator folds it
// in, from the single drain goroutine.
type OutcomeObserver func(types.ScanOutcome)

// Coordinator fans tasks out to at most P concurrent workers and folds
// their outcomes into one AggregateResult.
//
// Aggregation happens in a single drain loop: workers only send on the
// outcome channel and never touch the aggregate, so no lock guards it.
// Rows land in completion order, which carries no meaning downstream. A
// failing image never cancels pending ones; the coordinator returns once
// every submitted task has completed.
type Coordinator struct {
	logger      types.Logger
	worker      WorkerRunner
	parallelism int
	observer    OutcomeObserver
}

// NewCoordinator creates a Coordinator. Parallelism below 1 means fully
// sequential. observer may be nil.
func NewCoordinator(logger types.Logger, worker WorkerRunner, parallelism int,
	observer OutcomeObserver) *Coordinator {
	if parallelism < 1 {
		parallelism = 1
	}
	return &Coordinator{
		logger:      logger,
		worker:      worker,
		parallelism: parallelism,
		observer:    observer,
	}
}

// Run scans every task and returns the aggregate. Every task yields
// exactly one outcome regardless of failures, so ImagesScanned always
// equals len(tasks).
func (c *Coordinator) Run(ctx context.Context, tasks []types.ScanTask) types.AggregateResult {
	start := time.Now()

	slots := make(chan struct{}, c.parallelism)
	outcomes := make(chan types.ScanOutcome)

	for _, task := range tasks {
		go func(task types.ScanTask) {
			slots <- struct{}{}
			defer func() { <-slots }()
			outcomes <- c.worker.Run(ctx, task)
		}(task)
	}

	var agg types.AggregateResult
	for range tasks {
		outcome := <-outcomes
		agg.Rows = append(agg.Rows, outcome.CheckResults...)
		agg.DetailedRows = append(agg.DetailedRows, outcome.DetailedChecks...)
		agg.AnyFailure = agg.AnyFailure || outcome.ToolExitFailed
		agg.ImagesScanned++
		if c.observer != nil {
			c.observer(outcome)
		}
	}

	agg.TotalElapsed = time.Since(start)
	return agg
}
