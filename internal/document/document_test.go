package document

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Document Model:
// - NewFormulaCell classifies well-formed text as CellFormula with tokens
// - NewFormulaCell keeps malformed text as written and records the error
// - Valid and malformed formula text share one format: no leading '='
// - Worksheet.Set grows the grid with empty cells
// - Workbook keeps sheets in insertion order and finds them by name
// - Registry looks up loaders case-insensitively by extension
// - Registry reports unsupported extensions with ErrUnsupportedFormat
// - Registry.Extensions is sorted

func TestNewFormulaCell_WellFormed(t *testing.T) {
	t.Parallel()

	c := NewFormulaCell("=B1+1")

	assert.Equal(t, CellFormula, c.Kind)
	assert.Equal(t, "B1+1", c.Formula)
	assert.Len(t, c.Tokens, 3)
	assert.Empty(t, c.Error)
}

func TestNewFormulaCell_Malformed(t *testing.T) {
	t.Parallel()

	c := NewFormulaCell("=SUM(A1")

	assert.Equal(t, CellFormulaWithError, c.Kind)
	assert.Equal(t, "SUM(A1", c.Formula)
	assert.Contains(t, c.Error, "unbalanced parentheses")
	assert.Nil(t, c.Tokens)
}

func TestNewFormulaCell_SameTextFormat(t *testing.T) {
	t.Parallel()

	valid := NewFormulaCell("=B1+1")
	invalid := NewFormulaCell("=IF(A1<2")

	require.Equal(t, CellFormula, valid.Kind)
	require.Equal(t, CellFormulaWithError, invalid.Kind)
	assert.Equal(t, "B1+1", valid.Formula)
	assert.Equal(t, "IF(A1<2", invalid.Formula)

	// Text without '=' is kept as it is
	assert.Equal(t, "IF(A1<2", NewFormulaCell("IF(A1<2").Formula)
}

func TestWorksheet_SetGrowsGrid(t *testing.T) {
	t.Parallel()

	wb := NewWorkbook()
	ws := wb.AddSheet("Sheet1")
	ws.Set(2, 1, Cell{Kind: CellNumeric, Value: "5"})

	rows := ws.Rows()
	require.Len(t, rows, 3)
	assert.Nil(t, rows[0])
	require.Len(t, rows[2], 2)
	assert.Equal(t, CellEmpty, rows[2][0].Kind)
	assert.Equal(t, CellNumeric, rows[2][1].Kind)
}

func TestWorkbook_SheetOrder(t *testing.T) {
	t.Parallel()

	wb := NewWorkbook()
	wb.AddSheet("B")
	wb.AddSheet("A")

	sheets := wb.Sheets()
	require.Len(t, sheets, 2)
	assert.Equal(t, "B", sheets[0].Name())
	assert.Equal(t, "A", sheets[1].Name())
	assert.NotNil(t, wb.Sheet("A"))
	assert.Nil(t, wb.Sheet("C"))
}

func TestRegistry_Lookup(t *testing.T) {
	t.Parallel()

	loaded := 0
	r := NewRegistry()
	r.Register("xlsx", LoaderFunc(func(ctx context.Context, path string) (Document, error) {
		loaded++
		return NewWorkbook(), nil
	}))

	assert.True(t, r.Supports("/data/Book.XLSX"))
	assert.False(t, r.Supports("/data/book.ods"))

	doc, err := r.Load(context.Background(), "/data/book.xlsx")
	require.NoError(t, err)
	assert.NotNil(t, doc)
	assert.Equal(t, 1, loaded)

	_, err = r.Lookup("notes.txt")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestRegistry_Extensions(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	noop := LoaderFunc(func(ctx context.Context, path string) (Document, error) { return nil, nil })
	r.Register(".ods", noop)
	r.Register(".csv", noop)
	r.Register(".xlsx", noop)

	assert.Equal(t, []string{".csv", ".ods", ".xlsx"}, r.Extensions())
}

func TestCellKind_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "formula-with-error", CellFormulaWithError.String())
	assert.Equal(t, "unknown", CellKind(99).String())
}
