package document

// Workbook is an in-memory Document. Loaders fill one in as they read a
// file; it is not safe for concurrent mutation.
type Workbook struct {
	sheets []Sheet
	names  []NamedExpression
}

// NewWorkbook creates an empty workbook.
func NewWorkbook() *Workbook {
	return &Workbook{}
}

// AddSheet appends a sheet and returns it for population.
func (w *Workbook) AddSheet(name string) *Worksheet {
	ws := &Worksheet{name: name}
	w.sheets = append(w.sheets, ws)
	return ws
}

// AddNamedExpression appends a document-scoped named expression.
func (w *Workbook) AddNamedExpression(ne NamedExpression) {
	w.names = append(w.names, ne)
}

// Sheet returns the sheet with the given name, or nil.
func (w *Workbook) Sheet(name string) *Worksheet {
	for _, s := range w.sheets {
		if ws := s.(*Worksheet); ws.name == name {
			return ws
		}
	}
	return nil
}

func (w *Workbook) Sheets() []Sheet                     { return w.sheets }
func (w *Workbook) NamedExpressions() []NamedExpression { return w.names }

// Worksheet is an in-memory Sheet backed by a dense row-major grid.
type Worksheet struct {
	name  string
	rows  [][]Cell
	names []NamedExpression
}

// Set stores a cell, growing the grid with empty cells as needed.
func (ws *Worksheet) Set(row, col int, c Cell) {
	for len(ws.rows) <= row {
		ws.rows = append(ws.rows, nil)
	}
	r := ws.rows[row]
	for len(r) <= col {
		r = append(r, Cell{Kind: CellEmpty})
	}
	r[col] = c
	ws.rows[row] = r
}

// AddNamedExpression appends a sheet-scoped named expression.
func (ws *Worksheet) AddNamedExpression(ne NamedExpression) {
	ws.names = append(ws.names, ne)
}

func (ws *Worksheet) Name() string                        { return ws.name }
func (ws *Worksheet) Rows() [][]Cell                      { return ws.rows }
func (ws *Worksheet) NamedExpressions() []NamedExpression { return ws.names }
