package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/avareg/quickscan/pkg/types"
)

const xlsxSheet = "Sheet1"

// Status font colors: dark green for passes, red for failures, dark
// orange for everything else.
var statusFontColors = map[types.Status]string{
	types.StatusPassed:        "006400",
	types.StatusFailed:        "FF0000",
	types.StatusNotApplicable: "FFA500",
}

var xlsxColumnWidths = map[string]float64{
	"A": 20, // Image Name
	"B": 30, // Image Tag
	"C": 40, // Has Modified Files
	"D": 30, // Test Case
	"E": 20, // Status
}

// WriteXLSX writes the check rows as a formatted spreadsheet: failures
// sorted to the top, a filled bold header row, colored status cells, and
// wrapped text in the modified-files column.
func WriteXLSX(path string, agg *types.AggregateResult) error {
	f := excelize.NewFile()
	defer f.Close()

	for col, width := range xlsxColumnWidths {
		if err := f.SetColWidth(xlsxSheet, col, col, width); err != nil {
			return fmt.Errorf("error setting column width: %w", err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "000000"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"ADD8E6"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("error creating header style: %w", err)
	}

	leftStyle, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("error creating cell style: %w", err)
	}

	wrapStyle, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center", WrapText: true},
	})
	if err != nil {
		return fmt.Errorf("error creating wrap style: %w", err)
	}

	centerStyles := make(map[types.Status]int, len(statusFontColors))
	for status, color := range statusFontColors {
		styleID, err := f.NewStyle(&excelize.Style{
			Font:      &excelize.Font{Color: color},
			Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		})
		if err != nil {
			return fmt.Errorf("error creating status style: %w", err)
		}
		centerStyles[status] = styleID
	}

	centerStyle, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("error creating center style: %w", err)
	}

	for i, title := range csvHeader {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return fmt.Errorf("error computing header cell: %w", err)
		}
		if err := f.SetCellValue(xlsxSheet, cell, title); err != nil {
			return fmt.Errorf("error writing header cell: %w", err)
		}
	}
	if err := f.SetCellStyle(xlsxSheet, "A1", "E1", headerStyle); err != nil {
		return fmt.Errorf("error styling header row: %w", err)
	}

	for i, row := range sortedRows(agg.Rows) {
		rowNum := i + 2
		values := []interface{}{row.ImageName, row.Tag, row.ModifiedFiles, row.CheckName, string(row.Status)}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, rowNum)
			if err != nil {
				return fmt.Errorf("error computing cell: %w", err)
			}
			if err := f.SetCellValue(xlsxSheet, cell, v); err != nil {
				return fmt.Errorf("error writing cell %s: %w", cell, err)
			}
		}

		rowRef := fmt.Sprintf("%d", rowNum)
		// Image Tag and Status centered, everything else left-aligned;
		// the modified-files column wraps.
		if err := f.SetCellStyle(xlsxSheet, "A"+rowRef, "A"+rowRef, leftStyle); err != nil {
			return fmt.Errorf("error styling row: %w", err)
		}
		if err := f.SetCellStyle(xlsxSheet, "B"+rowRef, "B"+rowRef, centerStyle); err != nil {
			return fmt.Errorf("error styling row: %w", err)
		}
		if err := f.SetCellStyle(xlsxSheet, "C"+rowRef, "C"+rowRef, wrapStyle); err != nil {
			return fmt.Errorf("error styling row: %w", err)
		}
		if err := f.SetCellStyle(xlsxSheet, "D"+rowRef, "D"+rowRef, leftStyle); err != nil {
			return fmt.Errorf("error styling row: %w", err)
		}
		if err := f.SetCellStyle(xlsxSheet, "E"+rowRef, "E"+rowRef, centerStyles[row.Status]); err != nil {
			return fmt.Errorf("error styling status cell: %w", err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("error saving spreadsheet %s: %w", path, err)
	}
	return nil
}
