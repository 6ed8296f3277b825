// Package xlsx loads Office Open XML workbooks using excelize.
package xlsx

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/mvp-joe/formulax/internal/document"
	"github.com/xuri/excelize/v2"
)

// workbookScope is the scope excelize reports for document-level defined names.
const workbookScope = "Workbook"

// Loader implements document.Loader for .xlsx files.
type Loader struct{}

// New creates an XLSX loader.
func New() *Loader {
	return &Loader{}
}

// Load opens path and copies its sheets, cells and defined names into a workbook.
func (l *Loader) Load(ctx context.Context, path string) (document.Document, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Convert(ctx, f)
}

// Convert builds a workbook from an already opened excelize file.
func Convert(ctx context.Context, f *excelize.File) (*document.Workbook, error) {
	wb := document.NewWorkbook()

	for _, name := range f.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ws := wb.AddSheet(name)
		if err := readSheet(f, name, ws); err != nil {
			return nil, fmt.Errorf("sheet %q: %w", name, err)
		}
	}

	for _, dn := range f.GetDefinedName() {
		ne := document.NewNamedExpression(dn.Name, dn.RefersTo)
		if dn.Scope == "" || dn.Scope == workbookScope {
			wb.AddNamedExpression(ne)
			continue
		}
		if ws := wb.Sheet(dn.Scope); ws != nil {
			ws.AddNamedExpression(ne)
		} else {
			wb.AddNamedExpression(ne)
		}
	}

	return wb, nil
}

func readSheet(f *excelize.File, sheet string, ws *document.Worksheet) error {
	rows, cols, err := extent(f, sheet)
	if err != nil {
		return err
	}

	for r := 1; r <= rows; r++ {
		for c := 1; c <= cols; c++ {
			axis, err := excelize.CoordinatesToCellName(c, r)
			if err != nil {
				return err
			}
			cell, err := readCell(f, sheet, axis)
			if err != nil {
				return fmt.Errorf("cell %s: %w", axis, err)
			}
			if cell.Kind != document.CellEmpty {
				ws.Set(r-1, c-1, cell)
			}
		}
	}
	return nil
}

func readCell(f *excelize.File, sheet, axis string) (document.Cell, error) {
	text, err := f.GetCellFormula(sheet, axis)
	if err != nil {
		return document.Cell{}, err
	}
	if text != "" {
		return document.NewFormulaCell(text), nil
	}

	value, err := f.GetCellValue(sheet, axis)
	if err != nil {
		return document.Cell{}, err
	}
	typ, err := f.GetCellType(sheet, axis)
	if err != nil {
		return document.Cell{}, err
	}

	switch typ {
	case excelize.CellTypeBool:
		return document.Cell{Kind: document.CellBoolean, Value: value}, nil
	case excelize.CellTypeNumber, excelize.CellTypeDate:
		return document.Cell{Kind: document.CellNumeric, Value: value}, nil
	case excelize.CellTypeError:
		return document.Cell{Kind: document.CellStringWithError, Value: value}, nil
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeFormula:
		return document.Cell{Kind: document.CellString, Value: value}, nil
	}

	if value == "" {
		return document.Cell{Kind: document.CellEmpty}, nil
	}
	if _, err := strconv.ParseFloat(value, 64); err == nil {
		return document.Cell{Kind: document.CellNumeric, Value: value}, nil
	}
	return document.Cell{Kind: document.CellString, Value: value}, nil
}

// extent returns the number of rows and columns to scan: the larger of the
// declared sheet dimension and the populated area excelize reports.
func extent(f *excelize.File, sheet string) (rows, cols int, err error) {
	if dim, derr := f.GetSheetDimension(sheet); derr == nil && dim != "" {
		parts := strings.Split(dim, ":")
		c, r, cerr := excelize.CellNameToCoordinates(parts[len(parts)-1])
		if cerr == nil {
			rows, cols = r, c
		}
	}

	values, err := f.GetRows(sheet)
	if err != nil {
		return 0, 0, err
	}
	if len(values) > rows {
		rows = len(values)
	}
	for _, row := range values {
		if len(row) > cols {
			cols = len(row)
		}
	}
	return rows, cols, nil
}
