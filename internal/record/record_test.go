package record

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Record:
// - TokenType and Scope serialize as lower-case symbolic names
// - Unknown names are rejected on decode
// - Out-of-range TokenType values print as "unknown"
// - A valid cell serializes tokens and no error; an invalid cell the reverse
// - A valid cell with zero tokens still serializes an empty token list
// - Documents round-trip field for field, including token order
// - Cells whose valid flag disagrees with the payload are rejected
// - Formula text keeps "<", ">" and "&" unescaped

func sampleDocument() *Document {
	return &Document{
		Filepath: "/data/q1/book.ods",
		Sheets:   []string{"Sheet1", "Sheet2"},
		Formulas: []FormulaCell{
			{
				Sheet: "Sheet1", Row: 0, Column: 0, Formula: "B1+1",
				Result: Valid([]Token{
					{Text: "B1", Type: TokenReference},
					{Text: "+", Type: TokenOperator},
					{Text: "1", Type: TokenValue},
				}),
			},
			{
				Sheet: "Sheet2", Row: 4, Column: 2, Formula: "=SUM(A1",
				Result: Invalid("unbalanced parentheses: 1 unclosed '('"),
			},
			{
				Sheet: "Sheet2", Row: 5, Column: 0, Formula: "",
				Result: Valid(nil),
			},
		},
		NamedExpressions: []NamedExpression{
			{
				Name: "MyRange", Formula: "$A$1:$A$5", Scope: ScopeGlobal,
				Tokens: []Token{{Text: "$A$1:$A$5", Type: TokenReference}},
			},
			{
				Name: "MyRange", Formula: "Sheet2!$B$1", Scope: ScopeSheet, Sheet: "Sheet2",
				Tokens: []Token{{Text: "Sheet2!$B$1", Type: TokenReference}},
			},
		},
	}
}

func TestTokenType_Names(t *testing.T) {
	t.Parallel()

	for tt := TokenUnknown; tt <= TokenError; tt++ {
		parsed, err := ParseTokenType(tt.String())
		require.NoError(t, err)
		assert.Equal(t, tt, parsed)
	}

	assert.Equal(t, "reference", TokenReference.String())
	assert.Equal(t, "unknown", TokenType(42).String())

	_, err := ParseTokenType("REFERENCE")
	assert.Error(t, err)
}

func TestScope_Names(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "global", ScopeGlobal.String())
	assert.Equal(t, "sheet-local", ScopeSheet.String())

	_, err := ParseScope("local")
	assert.Error(t, err)
}

func TestFormulaCell_MutualExclusivity(t *testing.T) {
	t.Parallel()

	doc := sampleDocument()

	for _, cell := range doc.Formulas {
		data, err := json.Marshal(cell)
		require.NoError(t, err)

		var raw map[string]any
		require.NoError(t, json.Unmarshal(data, &raw))

		_, hasTokens := raw["tokens"]
		_, hasError := raw["error"]
		assert.Equal(t, cell.Valid(), raw["valid"])
		assert.Equal(t, cell.Valid(), hasTokens)
		assert.Equal(t, !cell.Valid(), hasError)
	}
}

func TestFormulaCell_ZeroTokens(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(FormulaCell{Sheet: "S", Result: ValidFormula{}})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"tokens":[]`)
}

func TestDocument_RoundTrip(t *testing.T) {
	t.Parallel()

	doc := sampleDocument()
	data, err := json.Marshal(doc)
	require.NoError(t, err)

	assert.Contains(t, string(data), `"type":"reference"`)
	assert.Contains(t, string(data), `"scope":"sheet-local"`)

	var got Document
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, doc, &got)
	assert.Equal(t, 1, got.InvalidCount())
}

func TestFormulaCell_RejectsInconsistent(t *testing.T) {
	t.Parallel()

	tests := []string{
		`{"sheet":"S","row":0,"column":0,"valid":true,"formula":"A1"}`,
		`{"sheet":"S","row":0,"column":0,"valid":true,"formula":"A1","tokens":[],"error":"x"}`,
		`{"sheet":"S","row":0,"column":0,"valid":false,"formula":"A1"}`,
		`{"sheet":"S","row":0,"column":0,"valid":false,"formula":"A1","tokens":[]}`,
	}

	for _, in := range tests {
		var c FormulaCell
		err := json.Unmarshal([]byte(in), &c)
		assert.ErrorIs(t, err, ErrInconsistentCell, in)
	}
}

func TestFormulaCell_RejectsUnknownTokenType(t *testing.T) {
	t.Parallel()

	in := `{"sheet":"S","row":0,"column":0,"valid":true,"formula":"A1","tokens":[{"s":"A1","type":"cell"}]}`
	var c FormulaCell
	assert.Error(t, json.Unmarshal([]byte(in), &c))
}

func TestFormulaCell_NoHTMLEscaping(t *testing.T) {
	t.Parallel()

	cell := FormulaCell{
		Sheet: "S", Formula: `IF(A1<B1,"a&b",">")`,
		Result: Invalid("x"),
	}
	data, err := cell.MarshalJSON()
	require.NoError(t, err)
	assert.Contains(t, string(data), `IF(A1<B1,\"a&b\",\">\")`)
}

func TestFormulaCell_Accessors(t *testing.T) {
	t.Parallel()

	doc := sampleDocument()

	assert.True(t, doc.Formulas[0].Valid())
	assert.Len(t, doc.Formulas[0].Tokens(), 3)
	assert.Empty(t, doc.Formulas[0].ErrorText())

	assert.False(t, doc.Formulas[1].Valid())
	assert.Nil(t, doc.Formulas[1].Tokens())
	assert.NotEmpty(t, doc.Formulas[1].ErrorText())
}
