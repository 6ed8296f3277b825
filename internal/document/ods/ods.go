// Package ods loads OpenDocument spreadsheets by streaming content.xml out
// of the ZIP container.
package ods

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mvp-joe/formulax/internal/document"
)

// maxRepeat bounds number-rows-repeated and number-columns-repeated
// expansion for cells that carry content.
const maxRepeat = 1 << 20

// Loader implements document.Loader for .ods files.
type Loader struct{}

// New creates an ODS loader.
func New() *Loader {
	return &Loader{}
}

// Load reads content.xml from the archive at path.
func (l *Loader) Load(ctx context.Context, path string) (document.Document, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}
	defer r.Close()

	var contentFile *zip.File
	for _, f := range r.File {
		if f.Name == "content.xml" {
			contentFile = f
			break
		}
	}
	if contentFile == nil {
		return nil, fmt.Errorf("content.xml not found in archive")
	}

	rc, err := contentFile.Open()
	if err != nil {
		return nil, fmt.Errorf("open content.xml: %w", err)
	}
	defer rc.Close()

	return Parse(ctx, rc)
}

type pendingCell struct {
	col  int
	cell document.Cell
}

// Parse reads an OpenDocument content.xml stream.
func Parse(ctx context.Context, r io.Reader) (*document.Workbook, error) {
	decoder := xml.NewDecoder(r)
	wb := document.NewWorkbook()

	var (
		sheet     *document.Worksheet
		row       int
		col       int
		rowRepeat int
		cells     []pendingCell

		inCell     bool
		cell       document.Cell
		cellRepeat int
		text       strings.Builder
		paragraphs int
	)

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse content.xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "table":
				if err := ctx.Err(); err != nil {
					return nil, err
				}
				sheet = wb.AddSheet(attr(t, "name"))
				row = 0

			case "table-row":
				col = 0
				cells = cells[:0]
				rowRepeat = repeat(t, "number-rows-repeated")

			case "table-cell", "covered-table-cell":
				inCell = true
				cell = startCell(t)
				cellRepeat = repeat(t, "number-columns-repeated")
				text.Reset()
				paragraphs = 0

			case "p":
				if inCell {
					if paragraphs > 0 {
						text.WriteByte('\n')
					}
					paragraphs++
				}

			case "named-range":
				ne := document.NewNamedExpression(attr(t, "name"), convertReference(attr(t, "cell-range-address")))
				addNamed(wb, sheet, ne)

			case "named-expression":
				ne := document.NewNamedExpression(attr(t, "name"), ConvertFormula(attr(t, "expression")))
				addNamed(wb, sheet, ne)
			}

		case xml.CharData:
			if inCell && paragraphs > 0 {
				text.Write(t)
			}

		case xml.EndElement:
			switch t.Name.Local {
			case "table":
				sheet = nil

			case "table-cell", "covered-table-cell":
				inCell = false
				finishCell(&cell, text.String())
				if cell.Kind != document.CellEmpty {
					n := min(cellRepeat, maxRepeat)
					for i := 0; i < n; i++ {
						cells = append(cells, pendingCell{col: col + i, cell: cell})
					}
				}
				col += cellRepeat

			case "table-row":
				if sheet != nil && len(cells) > 0 {
					n := min(rowRepeat, maxRepeat)
					for i := 0; i < n; i++ {
						for _, pc := range cells {
							sheet.Set(row+i, pc.col, pc.cell)
						}
					}
				}
				row += rowRepeat
			}
		}
	}

	return wb, nil
}

// addNamed attaches a named expression to the sheet being read, or to the
// document when it appears outside any table.
func addNamed(wb *document.Workbook, sheet *document.Worksheet, ne document.NamedExpression) {
	if sheet != nil {
		sheet.AddNamedExpression(ne)
		return
	}
	wb.AddNamedExpression(ne)
}

func startCell(t xml.StartElement) document.Cell {
	if f := attr(t, "formula"); f != "" {
		return document.NewFormulaCell(ConvertFormula(f))
	}

	switch attr(t, "value-type") {
	case "float", "percentage", "currency", "date", "time":
		return document.Cell{Kind: document.CellNumeric, Value: firstNonEmpty(attr(t, "value"), attr(t, "date-value"), attr(t, "time-value"))}
	case "boolean":
		return document.Cell{Kind: document.CellBoolean, Value: strings.ToUpper(attr(t, "boolean-value"))}
	case "string":
		return document.Cell{Kind: document.CellString, Value: attr(t, "string-value")}
	}
	return document.Cell{Kind: document.CellEmpty}
}

// finishCell fills in the displayed text once the cell's paragraphs are read.
func finishCell(c *document.Cell, text string) {
	if c.Kind == document.CellString && c.Value == "" {
		c.Value = text
	}
	if c.Kind == document.CellEmpty && text != "" {
		c.Kind = document.CellString
		c.Value = text
	}
}

func attr(t xml.StartElement, local string) string {
	for _, a := range t.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

func repeat(t xml.StartElement, local string) int {
	n, err := strconv.Atoi(attr(t, local))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
