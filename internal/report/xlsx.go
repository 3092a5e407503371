package report

import (
	"errors"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// ErrNoData is returned when every table to export is empty
var ErrNoData = errors.New("no data to export")

const columnWidth = 15

// WriteXLSX writes each table to its own sheet, in order
func WriteXLSX(w io.Writer, tables ...Table) error {
	empty := true
	for _, t := range tables {
		if len(t.Rows) > 0 {
			empty = false
		}
	}
	if empty {
		return ErrNoData
	}

	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"CCE5FF"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	for i, t := range tables {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), t.Name); err != nil {
				return fmt.Errorf("failed to name sheet %s: %w", t.Name, err)
			}
		} else if _, err := f.NewSheet(t.Name); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", t.Name, err)
		}
		if err := writeSheet(f, t, headerStyle); err != nil {
			return fmt.Errorf("failed to write sheet %s: %w", t.Name, err)
		}
	}

	return f.Write(w)
}

func writeSheet(f *excelize.File, t Table, headerStyle int) error {
	header := make([]any, len(t.Headers))
	for i, h := range t.Headers {
		header[i] = h
	}
	if err := f.SetSheetRow(t.Name, "A1", &header); err != nil {
		return err
	}

	lastCol, err := excelize.ColumnNumberToName(len(t.Headers))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(t.Name, "A1", lastCol+"1", headerStyle); err != nil {
		return err
	}
	if err := f.SetColWidth(t.Name, "A", lastCol, columnWidth); err != nil {
		return err
	}

	for r, row := range t.Rows {
		values := make([]any, len(row))
		for i, c := range row {
			if c.Numeric {
				values[i] = c.Number.InexactFloat64()
			} else {
				values[i] = c.Text
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(t.Name, cell, &values); err != nil {
			return err
		}
	}
	return nil
}
