// Package extract turns loaded spreadsheet documents into formula records
// and drives the extraction pass over a directory tree.
package extract

import (
	"fmt"

	"github.com/mvp-joe/formulax/internal/document"
	"github.com/mvp-joe/formulax/internal/record"
)

// Extract builds the formula record for a loaded document. Document-level
// named expressions come first, then each sheet in declaration order with its
// own named expressions followed by its formula cells in row-major order.
// Cells without a formula are skipped. Extract never fails: a malformed
// formula becomes an InvalidFormula entry.
func Extract(path string, doc document.Document) *record.Document {
	rec := &record.Document{
		Filepath:         path,
		Sheets:           []string{},
		Formulas:         []record.FormulaCell{},
		NamedExpressions: []record.NamedExpression{},
	}

	for _, ne := range doc.NamedExpressions() {
		rec.NamedExpressions = append(rec.NamedExpressions, namedExpression(ne, record.ScopeGlobal, ""))
	}

	for _, sheet := range doc.Sheets() {
		name := sheet.Name()
		rec.Sheets = append(rec.Sheets, name)

		for _, ne := range sheet.NamedExpressions() {
			rec.NamedExpressions = append(rec.NamedExpressions, namedExpression(ne, record.ScopeSheet, name))
		}

		for row, cells := range sheet.Rows() {
			for col, cell := range cells {
				switch cell.Kind {
				case document.CellFormula:
					rec.Formulas = append(rec.Formulas, record.FormulaCell{
						Sheet:   name,
						Row:     row,
						Column:  col,
						Formula: cell.Formula,
						Result:  record.Valid(NormalizeTokens(cell.Tokens)),
					})
				case document.CellFormulaWithError:
					rec.Formulas = append(rec.Formulas, record.FormulaCell{
						Sheet:   name,
						Row:     row,
						Column:  col,
						Formula: cell.Formula,
						Result:  record.Invalid(cell.Error),
					})
				}
			}
		}
	}

	return rec
}

func namedExpression(ne document.NamedExpression, scope record.Scope, sheet string) record.NamedExpression {
	return record.NamedExpression{
		Name:    ne.Name,
		Formula: ne.Formula,
		Tokens:  NormalizeTokens(ne.Tokens),
		Scope:   scope,
		Sheet:   sheet,
	}
}

// Summary returns the console lines printed after a document is extracted.
func Summary(rec *record.Document) []string {
	lines := make([]string, 0, len(rec.Sheets)+2)
	for _, s := range rec.Sheets {
		lines = append(lines, fmt.Sprintf("* sheet: %s", s))
	}
	lines = append(lines, fmt.Sprintf("* formula cell count: %d", len(rec.Formulas)))
	if n := rec.InvalidCount(); n > 0 {
		lines = append(lines, fmt.Sprintf("* invalid formula count: %d", n))
	}
	return lines
}
