// Package csvdoc loads comma-separated files as single-sheet documents.
// Fields starting with '=' are formulas.
package csvdoc

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mvp-joe/formulax/internal/document"
)

// Loader implements document.Loader for CSV files.
type Loader struct {
	// Comma is the field delimiter; zero means ','.
	Comma rune
}

// New creates a CSV loader with the default delimiter.
func New() *Loader {
	return &Loader{}
}

// Load reads path into a workbook with one sheet named after the file.
func (l *Loader) Load(ctx context.Context, path string) (document.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return l.Read(ctx, name, f)
}

// Read parses CSV content from r into a workbook with one sheet.
func (l *Loader) Read(ctx context.Context, sheetName string, r io.Reader) (*document.Workbook, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	if l.Comma != 0 {
		cr.Comma = l.Comma
	}

	wb := document.NewWorkbook()
	ws := wb.AddSheet(sheetName)

	for row := 0; ; row++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse csv: %w", err)
		}
		for col, field := range record {
			ws.Set(row, col, classify(field))
		}
	}

	return wb, nil
}

// classify maps a raw CSV field to a cell.
func classify(field string) document.Cell {
	switch {
	case field == "":
		return document.Cell{Kind: document.CellEmpty}
	case strings.HasPrefix(field, "=") && len(field) > 1:
		return document.NewFormulaCell(field)
	case strings.EqualFold(field, "true"), strings.EqualFold(field, "false"):
		return document.Cell{Kind: document.CellBoolean, Value: strings.ToUpper(field)}
	case strings.HasPrefix(field, "#") && strings.HasSuffix(field, "!") || field == "#N/A":
		return document.Cell{Kind: document.CellStringWithError, Value: field}
	}
	if _, err := strconv.ParseFloat(field, 64); err == nil {
		return document.Cell{Kind: document.CellNumeric, Value: field}
	}
	return document.Cell{Kind: document.CellString, Value: field}
}
