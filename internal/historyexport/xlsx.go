package historyexport

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"scandesk/internal/domain"
)

const sheetName = "History"

// WriteXLSX renders items as a single-sheet workbook and returns its bytes.
func WriteXLSX(items []domain.HistoryItem) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("renaming sheet: %w", err)
	}

	for i, h := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheetName, cell, h)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("creating header style: %w", err)
	}
	if err := f.SetRowStyle(sheetName, 1, 1, bold); err != nil {
		return nil, fmt.Errorf("styling header: %w", err)
	}

	for r := range items {
		row := itemToRow(&items[r])
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			// Score is numeric so spreadsheets can sort it.
			if c == 3 {
				_ = f.SetCellValue(sheetName, cell, items[r].ScoreInt)
				continue
			}
			_ = f.SetCellValue(sheetName, cell, v)
		}
	}

	_ = f.SetColWidth(sheetName, "A", "A", 38) // job id
	_ = f.SetColWidth(sheetName, "B", "B", 32) // filename
	_ = f.SetColWidth(sheetName, "C", "F", 14)
	_ = f.SetColWidth(sheetName, "G", "G", 24) // created at

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}
