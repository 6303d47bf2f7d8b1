// Package report renders one AggregateResult into the supported output
// formats. All ordering concerns live here: the engine hands rows over in
// completion order, and each renderer applies whatever stable ordering
// its format wants.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"

	"github.com/avareg/quickscan/pkg/types"
)

// csvHeader is the fixed column set of the check-result report.
var csvHeader = []string{"Image Name", "Image Tag", "Has Modified Files", "Test Case", "Status"}

// statusSortOrder puts failures first so they are the first thing a
// reader sees: FAILED, then NOT_APPLICABLE, then PASSED.
var statusSortOrder = map[types.Status]int{
	types.StatusFailed:        0,
	types.StatusNotApplicable: 1,
	types.StatusPassed:        2,
}

// sortedRows returns the rows ordered by status severity, then image
// name, then check name. The input is not modified.
func sortedRows(rows []types.CheckResult) []types.CheckResult {
	sorted := append([]types.CheckResult(nil), rows...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if statusSortOrder[sorted[i].Status] != statusSortOrder[sorted[j].Status] {
			return statusSortOrder[sorted[i].Status] < statusSortOrder[sorted[j].Status]
		}
		if sorted[i].ImageName != sorted[j].ImageName {
			return sorted[i].ImageName < sorted[j].ImageName
		}
		return sorted[i].CheckName < sorted[j].CheckName
	})
	return sorted
}

// WriteCSV writes the check rows as CSV.
func WriteCSV(w io.Writer, agg *types.AggregateResult) error {
	csvWriter := csv.NewWriter(w)

	if err := csvWriter.Write(csvHeader); err != nil {
		return fmt.Errorf("error writing csv header: %w", err)
	}

	for _, row := range sortedRows(agg.Rows) {
		record := []string{row.ImageName, row.Tag, row.ModifiedFiles, row.CheckName, string(row.Status)}
		if err := csvWriter.Write(record); err != nil {
			return fmt.Errorf("error writing csv record: %w", err)
		}
	}

	csvWriter.Flush()
	if err := csvWriter.Error(); err != nil {
		return fmt.Errorf("error flushing csv: %w", err)
	}
	return nil
}
