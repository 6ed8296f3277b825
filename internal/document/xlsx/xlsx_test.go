package xlsx

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/mvp-joe/formulax/internal/document"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// Test Plan for XLSX Loader:
// - Sheets are returned in workbook order, including sheets without formulas
// - Formula cells become CellFormula with tokens
// - Malformed formulas become CellFormulaWithError
// - Plain values are classified by cell type
// - Workbook-scoped defined names are document-level named expressions
// - Sheet-scoped defined names attach to their sheet
// - Load round-trips through a saved file

func buildWorkbook(t *testing.T) *excelize.File {
	t.Helper()

	f := excelize.NewFile()
	t.Cleanup(func() { f.Close() })

	require.NoError(t, f.SetCellFormula("Sheet1", "A1", "B1+1"))
	require.NoError(t, f.SetCellValue("Sheet1", "B1", 2))
	require.NoError(t, f.SetCellFormula("Sheet1", "A2", "SUM(B1"))
	require.NoError(t, f.SetCellValue("Sheet1", "B2", "label"))

	_, err := f.NewSheet("Sheet2")
	require.NoError(t, err)

	require.NoError(t, f.SetDefinedName(&excelize.DefinedName{
		Name:     "MyRange",
		RefersTo: "Sheet1!$A$1:$A$5",
	}))
	require.NoError(t, f.SetDefinedName(&excelize.DefinedName{
		Name:     "Local",
		RefersTo: "Sheet2!$B$2",
		Scope:    "Sheet2",
	}))

	return f
}

func TestConvert_SheetsAndCells(t *testing.T) {
	t.Parallel()

	wb, err := Convert(context.Background(), buildWorkbook(t))
	require.NoError(t, err)

	sheets := wb.Sheets()
	require.Len(t, sheets, 2)
	assert.Equal(t, "Sheet1", sheets[0].Name())
	assert.Equal(t, "Sheet2", sheets[1].Name())

	rows := sheets[0].Rows()
	require.GreaterOrEqual(t, len(rows), 2)

	a1 := rows[0][0]
	assert.Equal(t, document.CellFormula, a1.Kind)
	assert.Equal(t, "B1+1", a1.Formula)
	assert.Len(t, a1.Tokens, 3)

	assert.Equal(t, document.CellNumeric, rows[0][1].Kind)

	a2 := rows[1][0]
	assert.Equal(t, document.CellFormulaWithError, a2.Kind)
	assert.NotEmpty(t, a2.Error)

	assert.Equal(t, document.CellString, rows[1][1].Kind)
}

func TestConvert_DefinedNameScopes(t *testing.T) {
	t.Parallel()

	wb, err := Convert(context.Background(), buildWorkbook(t))
	require.NoError(t, err)

	global := wb.NamedExpressions()
	require.Len(t, global, 1)
	assert.Equal(t, "MyRange", global[0].Name)
	assert.Equal(t, "Sheet1!$A$1:$A$5", global[0].Formula)

	local := wb.Sheet("Sheet2").NamedExpressions()
	require.Len(t, local, 1)
	assert.Equal(t, "Local", local[0].Name)
	assert.Empty(t, wb.Sheet("Sheet1").NamedExpressions())
}

func TestLoad_SavedFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "book.xlsx")
	require.NoError(t, buildWorkbook(t).SaveAs(path))

	doc, err := New().Load(context.Background(), path)
	require.NoError(t, err)

	require.Len(t, doc.Sheets(), 2)
	assert.Equal(t, document.CellFormula, doc.Sheets()[0].Rows()[0][0].Kind)
}

func TestLoad_NotAWorkbook(t *testing.T) {
	t.Parallel()

	_, err := New().Load(context.Background(), filepath.Join(t.TempDir(), "missing.xlsx"))
	assert.Error(t, err)
}
