package batch

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"strings"
	"testing"

	"github.com/mvp-joe/formulax/internal/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Encoders:
// - EncoderFor accepts json, json-literal and xml (any case) and rejects others
// - FileName zero-pads the 1-based index to four digits
// - The literal dump keeps a fitting container on one line
// - A container that does not fit hangs its children one column past the bracket
// - Literal output is valid JSON that decodes to the batch
// - Literal lines stay within the width for records with short scalars
// - XML carries the declaration, four-space indentation and count attributes
//   equal to child counts, including zero-formula documents
// - Valid formulas carry token-count, invalid ones carry error
// - Literal and XML renderings of one batch carry the same information

func mixedBatch() *Batch {
	withNames := sampleRecord("/data/a/book.ods", 2)
	withNames.Sheets = []string{"Sheet1", "Sheet2"}
	withNames.Formulas = append(withNames.Formulas, record.FormulaCell{
		Sheet: "Sheet2", Row: 7, Column: 3, Formula: `=IF(A1<2,"a&b"`,
		Result: record.Invalid("unbalanced parentheses: 1 unclosed '('"),
	})
	withNames.NamedExpressions = []record.NamedExpression{
		{
			Name: "MyRange", Formula: "$A$1:$A$5", Scope: record.ScopeGlobal,
			Tokens: []record.Token{{Text: "$A$1:$A$5", Type: record.TokenReference}},
		},
		{
			Name: "MyRange", Formula: "Sheet2!$B$1", Scope: record.ScopeSheet, Sheet: "Sheet2",
			Tokens: []record.Token{{Text: "Sheet2!$B$1", Type: record.TokenReference}},
		},
	}

	empty := sampleRecord("/data/b/empty.csv", 0)

	return &Batch{Index: 1, Documents: []*record.Document{withNames, empty}}
}

func TestEncoderFor(t *testing.T) {
	t.Parallel()

	for _, format := range []string{"json", "json-literal", "JSON", "xml", "XML"} {
		enc, err := EncoderFor(format, 0)
		require.NoError(t, err, format)
		assert.NotEmpty(t, enc.Extension())
	}

	enc, err := EncoderFor("json-literal", 0)
	require.NoError(t, err)
	assert.Equal(t, "json", enc.Extension())
	assert.Equal(t, DefaultWidth, enc.(*LiteralEncoder).Width)

	_, err = EncoderFor("yaml", 0)
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestFileName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "0001.json", FileName(1, "json"))
	assert.Equal(t, "0042.xml", FileName(42, "xml"))
	assert.Equal(t, "12345.xml", FileName(12345, "xml"))
}

func TestFormatLiteral_Layout(t *testing.T) {
	t.Parallel()

	input := []byte(`[{"a":[1,2],"b":"x"}]`)

	var wide bytes.Buffer
	require.NoError(t, FormatLiteral(&wide, input, 256))
	assert.Equal(t, "[{\"a\": [1, 2], \"b\": \"x\"}]\n", wide.String())

	var narrow bytes.Buffer
	require.NoError(t, FormatLiteral(&narrow, input, 10))
	want := "" +
		"[{\"a\": [1,\n" +
		"        2],\n" +
		"  \"b\": \"x\"}]\n"
	assert.Equal(t, want, narrow.String())
}

func TestFormatLiteral_Scalars(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, FormatLiteral(&buf, []byte(`[true,null,1.50,"<&>",{},[]]`), 256))
	assert.Equal(t, "[true, null, 1.50, \"<&>\", {}, []]\n", buf.String())
}

func TestLiteralEncoder_ValidJSON(t *testing.T) {
	t.Parallel()

	b := mixedBatch()
	for _, width := range []int{1, 40, 80, 256, 1 << 20} {
		var buf bytes.Buffer
		require.NoError(t, (&LiteralEncoder{Width: width}).Encode(&buf, b))

		var got []*record.Document
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got), "width %d", width)
		assert.Equal(t, b.Documents, got, "width %d", width)
	}
}

func TestLiteralEncoder_Width(t *testing.T) {
	t.Parallel()

	b := mixedBatch()

	var buf bytes.Buffer
	require.NoError(t, (&LiteralEncoder{Width: 80}).Encode(&buf, b))
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	assert.Greater(t, len(lines), 1)
	for _, line := range lines {
		assert.LessOrEqual(t, len(line), 80, line)
	}

	buf.Reset()
	require.NoError(t, (&LiteralEncoder{Width: 1 << 20}).Encode(&buf, b))
	assert.Equal(t, 1, strings.Count(buf.String(), "\n"))
}

func TestXMLEncoder_Structure(t *testing.T) {
	t.Parallel()

	b := mixedBatch()
	var buf bytes.Buffer
	require.NoError(t, (&XMLEncoder{}).Encode(&buf, b))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, `<?xml version="1.0" encoding="UTF-8"?>`+"\n"))
	assert.Contains(t, out, "\n<docs count=\"2\">\n    <doc filepath=\"/data/a/book.ods\">\n        <sheets count=\"2\">")
	assert.Contains(t, out, `<formulas count="0"></formulas>`)
	assert.Contains(t, out, `<named-expression name="MyRange" formula="Sheet2!$B$1" scope="sheet-local" sheet="Sheet2" token-count="1">`)

	var parsed xmlDocs
	require.NoError(t, xml.Unmarshal(buf.Bytes(), &parsed))
	assert.Equal(t, len(parsed.Docs), parsed.Count)
	for _, d := range parsed.Docs {
		assert.Equal(t, len(d.Sheets.Sheets), d.Sheets.Count)
		assert.Equal(t, len(d.Formulas.Formulas), d.Formulas.Count)
		assert.Equal(t, len(d.NamedExpressions.NamedExpressions), d.NamedExpressions.Count)
		for _, f := range d.Formulas.Formulas {
			if f.Valid {
				require.NotNil(t, f.TokenCount)
				assert.Equal(t, len(f.Tokens), *f.TokenCount)
				assert.Nil(t, f.Error)
			} else {
				assert.Nil(t, f.TokenCount)
				require.NotNil(t, f.Error)
				assert.Empty(t, f.Tokens)
			}
		}
		for _, ne := range d.NamedExpressions.NamedExpressions {
			assert.Equal(t, len(ne.Tokens), ne.TokenCount)
		}
	}
}

// fromXML converts a parsed XML batch back to records.
func fromXML(t *testing.T, docs xmlDocs) []*record.Document {
	t.Helper()

	tokens := func(in []xmlToken) []record.Token {
		out := []record.Token{}
		for _, tk := range in {
			tt, err := record.ParseTokenType(tk.Type)
			require.NoError(t, err)
			out = append(out, record.Token{Text: tk.Text, Type: tt})
		}
		return out
	}

	var out []*record.Document
	for _, d := range docs.Docs {
		rec := &record.Document{
			Filepath:         d.Filepath,
			Sheets:           []string{},
			Formulas:         []record.FormulaCell{},
			NamedExpressions: []record.NamedExpression{},
		}
		for _, s := range d.Sheets.Sheets {
			rec.Sheets = append(rec.Sheets, s.Name)
		}
		for _, f := range d.Formulas.Formulas {
			cell := record.FormulaCell{Sheet: f.Sheet, Row: f.Row, Column: f.Column, Formula: f.Formula}
			if f.Valid {
				cell.Result = record.Valid(tokens(f.Tokens))
			} else {
				cell.Result = record.Invalid(*f.Error)
			}
			rec.Formulas = append(rec.Formulas, cell)
		}
		for _, ne := range d.NamedExpressions.NamedExpressions {
			scope, err := record.ParseScope(ne.Scope)
			require.NoError(t, err)
			rec.NamedExpressions = append(rec.NamedExpressions, record.NamedExpression{
				Name: ne.Name, Formula: ne.Formula, Scope: scope, Sheet: ne.Sheet,
				Tokens: tokens(ne.Tokens),
			})
		}
		out = append(out, rec)
	}
	return out
}

func TestEncoders_Equivalent(t *testing.T) {
	t.Parallel()

	b := mixedBatch()

	var lit bytes.Buffer
	require.NoError(t, (&LiteralEncoder{Width: DefaultWidth}).Encode(&lit, b))
	var fromLiteral []*record.Document
	require.NoError(t, json.Unmarshal(lit.Bytes(), &fromLiteral))

	var x bytes.Buffer
	require.NoError(t, (&XMLEncoder{}).Encode(&x, b))
	var parsed xmlDocs
	require.NoError(t, xml.Unmarshal(x.Bytes(), &parsed))

	assert.Equal(t, fromLiteral, fromXML(t, parsed))
	assert.Equal(t, b.Documents, fromLiteral)
}
