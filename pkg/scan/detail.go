package scan

import (
	"encoding/json"
	"strings"

	"github.com/avareg/quickscan/pkg/types"
)

// The tool has shipped two JSON layouts for per-check metadata: the
// current one nests passed/failed/errors arrays under a results object,
// the legacy one is a flat checks array. Both may appear either in the
// console output or in the log file, surrounded by arbitrary non-JSON
// text. Recovery probes the structured shapes first and falls back to
// sniffing individual lines for JSON objects carrying a name field.

// detailRecord mirrors one check entry in either JSON layout.
type detailRecord struct {
	Name             string     `json:"name"`
	ElapsedTime      flexString `json:"elapsed_time"`
	Description      string     `json:"description"`
	Help             string     `json:"help"`
	Suggestion       string     `json:"suggestion"`
	KnowledgeBaseURL string     `json:"knowledgebase_url"`
	CheckURL         string     `json:"check_url"`
}

// flexString decodes a JSON string or number into a string. Tool versions
// disagree on whether elapsed_time is quoted.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexString(n.String())
		return nil
	}
	// Unusable value; enrichment is best-effort, so drop it.
	*f = ""
	return nil
}

// embeddedChecksDocument is the union of the two structured layouts,
// discriminated by which field is populated after decoding.
type embeddedChecksDocument struct {
	Results *struct {
		Passed []detailRecord `json:"passed"`
		Failed []detailRecord `json:"failed"`
		Errors []detailRecord `json:"errors"`
	} `json:"results"`
	Checks []detailRecord `json:"checks"`
}

// extractDetailedChecks recovers detailed-check records from the raw
// output and the log content. Sources are probed for the structured
// layouts in order, stopping at the first source that yields a match;
// if neither does, every line of both sources is sniffed for standalone
// JSON objects with a name. Returns nil when nothing parses.
func extractDetailedChecks(task types.ScanTask, sources ...string) []types.DetailedCheck {
	for _, src := range sources {
		if records := parseStructuredChecks(src); len(records) > 0 {
			return tagRecords(task, records)
		}
	}

	var records []detailRecord
	for _, src := range sources {
		records = append(records, sniffCheckLines(src)...)
	}
	return tagRecords(task, records)
}

// parseStructuredChecks tries to decode one of the two structured layouts
// out of src. The JSON may be surrounded by log noise, so it first tries
// the widest brace-delimited slice of the source, then each line on its
// own.
func parseStructuredChecks(src string) []detailRecord {
	if candidate, ok := sliceJSONCandidate(src); ok {
		if records := decodeChecksDocument(candidate); len(records) > 0 {
			return records
		}
	}
	for _, line := range strings.Split(src, "\n") {
		candidate, ok := sliceJSONCandidate(line)
		if !ok {
			continue
		}
		if records := decodeChecksDocument(candidate); len(records) > 0 {
			return records
		}
	}
	return nil
}

// decodeChecksDocument decodes a candidate JSON document and flattens
// whichever layout it turned out to be into a record list.
func decodeChecksDocument(candidate []byte) []detailRecord {
	var doc embeddedChecksDocument
	if err := json.Unmarshal(candidate, &doc); err != nil {
		return nil
	}
	if doc.Results != nil {
		var records []detailRecord
		records = append(records, doc.Results.Passed...)
		records = append(records, doc.Results.Failed...)
		records = append(records, doc.Results.Errors...)
		return records
	}
	return doc.Checks
}

// sniffCheckLines is the last-resort recovery: any line that is itself a
// JSON object with a non-empty name field counts as one record.
func sniffCheckLines(src string) []detailRecord {
	var records []detailRecord
	for _, line := range strings.Split(src, "\n") {
		if !strings.Contains(line, `"name"`) {
			continue
		}
		candidate, ok := sliceJSONCandidate(line)
		if !ok {
			continue
		}
		var record detailRecord
		if err := json.Unmarshal(candidate, &record); err != nil {
			continue
		}
		if record.Name != "" {
			records = append(records, record)
		}
	}
	return records
}

// sliceJSONCandidate trims src down to its widest brace-delimited slice.
func sliceJSONCandidate(src string) ([]byte, bool) {
	start := strings.Index(src, "{")
	end := strings.LastIndex(src, "}")
	if start == -1 || end <= start {
		return nil, false
	}
	return []byte(src[start : end+1]), true
}

func tagRecords(task types.ScanTask, records []detailRecord) []types.DetailedCheck {
	if len(records) == 0 {
		return nil
	}
	detailed := make([]types.DetailedCheck, 0, len(records))
	for _, r := range records {
		detailed = append(detailed, types.DetailedCheck{
			ImageName:        task.ImageName,
			Tag:              task.Tag,
			Name:             r.Name,
			ElapsedTime:      string(r.ElapsedTime),
			Description:      r.Description,
			Help:             r.Help,
			Suggestion:       r.Suggestion,
			KnowledgeBaseURL: r.KnowledgeBaseURL,
			CheckURL:         r.CheckURL,
		})
	}
	return detailed
}
