package extract

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

func (e *Extractor) extractWorkbook(path, name string) Result {
	book, err := excelize.OpenFile(path)
	if err != nil {
		return errorResult(name, err)
	}
	defer book.Close()

	var b strings.Builder
	for _, sheet := range book.GetSheetList() {
		rows, err := book.GetRows(sheet)
		if err != nil {
			return errorResult(name, fmt.Errorf("sheet %s: %w", sheet, err))
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "=== Sheet: %s ===\n", sheet)
		for _, row := range rows {
			line := strings.Join(row, "\t")
			if strings.TrimSpace(line) == "" {
				continue
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	// sheet headers count as extracted text: a workbook of blank rows
	// still reports which sheets were scanned
	text := b.String()
	if strings.TrimSpace(text) == "" {
		return Result{
			FileName: name,
			Status:   StatusEmpty,
			Message:  fmt.Sprintf("no cell data found in %s", name),
		}
	}
	return Result{FileName: name, Status: StatusOK, Text: text}
}
