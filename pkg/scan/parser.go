package scan

import (
	"regexp"
	"strings"

	"github.com/avareg/quickscan/pkg/types"
)

// modifiedFilesCheck is the check whose failures carry a list of files
// modified inside the image, written as file= tokens in the tool log.
const modifiedFilesCheck = "HasModifiedFiles"

var (
	checkTokenRe  = regexp.MustCompile(`check=([^\s]+)`)
	resultTokenRe = regexp.MustCompile(`result=([^\s]+)`)
	fileTokenRe   = regexp.MustCompile(`file=([^\s]+)`)

	logVerdictRe    = regexp.MustCompile(`result:\s*(PASSED|FAILED|NOT_APPLICABLE)`)
	outputVerdictRe = regexp.MustCompile(`Preflight result:\s*(PASSED|FAILED|NOT_APPLICABLE)`)
)

// Parser converts one invocation's raw output and log content into check
// rows, detailed-check records, and the tool's verdict. Parsing never
// fails: lines that don't match are skipped and JSON enrichment is
// strictly best-effort.
type Parser struct {
	logger types.Logger
}

// NewParser creates a Parser.
func NewParser(logger types.Logger) *Parser {
	return &Parser{logger: logger}
}

// Parse extracts everything usable from a single scan's captured text.
//
// Check rows come from output lines carrying both a check= and a result=
// token (order-independent within the line). Statuses are normalized into
// the three canonical values. When HasModifiedFiles failed, the file=
// tokens found in the log are colon-joined onto every HasModifiedFiles
// row for the image.
//
// The verdict is whatever the tool itself reported: a `result:` line in
// the log wins, then a `Preflight result:` line in the output, then
// NOT_APPLICABLE. It is never recomputed from the rows.
func (p *Parser) Parse(task types.ScanTask, combinedOutput, logContent string) (
	[]types.CheckResult, []types.DetailedCheck, types.Status) {
	type rawCheck struct {
		name   string
		status types.Status
	}

	var raw []rawCheck
	for _, line := range strings.Split(combinedOutput, "\n") {
		checkMatch := checkTokenRe.FindStringSubmatch(line)
		resultMatch := resultTokenRe.FindStringSubmatch(line)
		if checkMatch == nil || resultMatch == nil {
			continue
		}
		raw = append(raw, rawCheck{
			name:   checkMatch[1],
			status: types.NormalizeStatus(resultMatch[1]),
		})
	}

	modifiedFiles := ""
	for _, rc := range raw {
		if rc.name == modifiedFilesCheck && rc.status == types.StatusFailed {
			modifiedFiles = joinFileTokens(logContent)
			break
		}
	}

	results := make([]types.CheckResult, 0, len(raw))
	for _, rc := range raw {
		row := types.CheckResult{
			ImageName: task.ImageName,
			Tag:       task.Tag,
			CheckName: rc.name,
			Status:    rc.status,
		}
		if rc.name == modifiedFilesCheck {
			row.ModifiedFiles = modifiedFiles
		}
		results = append(results, row)
	}

	detailed := extractDetailedChecks(task, combinedOutput, logContent)

	return results, detailed, parseVerdict(combinedOutput, logContent)
}

// joinFileTokens collects every file= token from the log and joins the
// paths with colons.
func joinFileTokens(logContent string) string {
	matches := fileTokenRe.FindAllStringSubmatch(logContent, -1)
	if len(matches) == 0 {
		return ""
	}
	files := make([]string, 0, len(matches))
	for _, m := range matches {
		files = append(files, m[1])
	}
	return strings.Join(files, ":")
}

func parseVerdict(combinedOutput, logContent string) types.Status {
	if m := logVerdictRe.FindStringSubmatch(logContent); m != nil {
		return types.Status(m[1])
	}
	if m := outputVerdictRe.FindStringSubmatch(combinedOutput); m != nil {
		return types.Status(m[1])
	}
	return types.StatusNotApplicable
}
