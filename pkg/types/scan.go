package types

import "time"

// Status is the normalized outcome of a single compliance check or of a
// whole image scan.
type Status string

const (
	// StatusPassed indicates the check (or scan) passed.
	StatusPassed Status = "PASSED"
	// StatusFailed indicates the check (or scan) failed.
	StatusFailed Status = "FAILED"
	// StatusNotApplicable indicates the check did not apply or reported
	// something other than a pass or a fail.
	StatusNotApplicable Status = "NOT_APPLICABLE"
)

// NormalizeStatus maps a raw status label reported by the scanning tool
// onto the three canonical values. Anything that is not PASSED or FAILED,
// including the tool's ERROR label, becomes NOT_APPLICABLE.
func NormalizeStatus(raw string) Status {
	switch Status(raw) {
	case StatusPassed:
		return StatusPassed
	case StatusFailed:
		return StatusFailed
	default:
		return StatusNotApplicable
	}
}

// ScanTask is one unit of scanning work: an image reference plus the
// identity resolved from it. Tasks are immutable once created and a task
// handed to a worker always carries a non-empty PullTarget.
type ScanTask struct {
	// RawReference is the reference exactly as supplied by the caller.
	RawReference string
	// ImageName is the short name used for display and row grouping.
	ImageName string
	// Tag is the resolved tag or digest; may be empty if unresolvable.
	Tag string
	// PullTarget is the fully-qualified string passed to the scanning tool.
	PullTarget string
}

// CheckResult is one row of the aggregated report: the outcome of one
// named check against one image.
type CheckResult struct {
	ImageName string
	Tag       string
	CheckName string
	Status    Status
	// ModifiedFiles is a colon-joined list of affected file paths. It is
	// only populated on HasModifiedFiles rows when that check failed.
	ModifiedFiles string
}

// DetailedCheck is optional enrichment metadata for one check, recovered
// opportunistically from JSON embedded in the tool output. Absence of
// detailed checks for an image is not an error.
type DetailedCheck struct {
	ImageName        string
	Tag              string
	Name             string
	ElapsedTime      string
	Description      string
	Help             string
	Suggestion       string
	KnowledgeBaseURL string
	CheckURL         string
}

// ScanOutcome is the complete result of scanning one task. A worker
// produces exactly one outcome per task, errors included.
type ScanOutcome struct {
	Task           ScanTask
	CheckResults   []CheckResult
	DetailedChecks []DetailedCheck
	// Verdict is the overall status the tool itself reported for the
	// image. It is not derived from the per-check rows.
	Verdict Status
	// ToolExitFailed is true when the tool's exit status indicated
	// failure, independent of individual check statuses.
	ToolExitFailed bool
	Elapsed        time.Duration
	// ConsoleOutput is a human-readable transcript of the scan.
	ConsoleOutput string
}

// AggregateResult is the report-ready dataset for one whole run. Row
// order reflects worker completion order, not submission order; any
// stable ordering is the renderer's job.
type AggregateResult struct {
	Rows          []CheckResult
	DetailedRows  []DetailedCheck
	ImagesScanned int
	AnyFailure    bool
	TotalElapsed  time.Duration
}
