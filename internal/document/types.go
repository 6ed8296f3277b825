// Package document defines the read-only spreadsheet model the extraction
// pass consumes. Format loaders (xlsx, ods, csv) build values that satisfy
// Document; nothing downstream depends on a concrete format.
package document

import (
	"github.com/mvp-joe/formulax/internal/formula"
)

// CellKind classifies the content of a cell.
type CellKind int

const (
	CellUnknown CellKind = iota
	CellEmpty
	CellBoolean
	CellNumeric
	CellString
	CellStringWithError
	CellFormula
	CellFormulaWithError
)

var cellKindNames = [...]string{
	CellUnknown:          "unknown",
	CellEmpty:            "empty",
	CellBoolean:          "boolean",
	CellNumeric:          "numeric",
	CellString:           "string",
	CellStringWithError:  "string-with-error",
	CellFormula:          "formula",
	CellFormulaWithError: "formula-with-error",
}

func (k CellKind) String() string {
	if k < 0 || int(k) >= len(cellKindNames) {
		return cellKindNames[CellUnknown]
	}
	return cellKindNames[k]
}

// Cell is one cell of a sheet.
//
// For CellFormula, Formula holds the formula text without the leading '='
// and Tokens its lexical decomposition. For CellFormulaWithError, Formula
// holds the original text as written and Error the reason it could not be
// parsed; Tokens is nil.
type Cell struct {
	Kind    CellKind
	Value   string
	Formula string
	Error   string
	Tokens  []formula.Token
}

// NamedExpression is a user-defined name bound to a formula.
type NamedExpression struct {
	Name    string
	Formula string
	Tokens  []formula.Token
}

// Sheet is one worksheet of a document.
type Sheet interface {
	// Name returns the sheet name.
	Name() string

	// Rows returns the cells in row-major order. Row and column positions
	// are slice indices; missing cells are CellEmpty.
	Rows() [][]Cell

	// NamedExpressions returns expressions scoped to this sheet, in
	// declaration order.
	NamedExpressions() []NamedExpression
}

// Document is a loaded spreadsheet.
type Document interface {
	// Sheets returns sheets in declaration order.
	Sheets() []Sheet

	// NamedExpressions returns document-scoped expressions in declaration order.
	NamedExpressions() []NamedExpression
}

// NewFormulaCell classifies formula text. Well-formed text becomes a
// CellFormula with tokens; malformed text becomes a CellFormulaWithError
// carrying the parse error. Both keep the text as written, minus the
// leading '='.
func NewFormulaCell(text string) Cell {
	tokens, err := formula.Parse(text)
	if err != nil {
		return Cell{
			Kind:    CellFormulaWithError,
			Formula: formula.Strip(text),
			Error:   err.Error(),
		}
	}
	return Cell{
		Kind:    CellFormula,
		Formula: formula.Strip(text),
		Tokens:  tokens,
	}
}

// NewNamedExpression tokenizes the expression text. Named expressions are
// recorded even when malformed, so tokenization here never fails.
func NewNamedExpression(name, text string) NamedExpression {
	return NamedExpression{
		Name:    name,
		Formula: formula.Strip(text),
		Tokens:  formula.Tokenize(text),
	}
}
