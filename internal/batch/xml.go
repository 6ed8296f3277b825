package batch

import (
	"encoding/xml"
	"fmt"
	"io"

	"github.com/mvp-joe/formulax/internal/record"
)

// XMLEncoder renders a batch as a <docs> element with an XML declaration and
// four-space indentation. Every container element carries a count attribute
// equal to its number of children.
type XMLEncoder struct{}

type xmlDocs struct {
	XMLName xml.Name `xml:"docs"`
	Count   int      `xml:"count,attr"`
	Docs    []xmlDoc `xml:"doc"`
}

type xmlDoc struct {
	Filepath         string              `xml:"filepath,attr"`
	Sheets           xmlSheets           `xml:"sheets"`
	Formulas         xmlFormulas         `xml:"formulas"`
	NamedExpressions xmlNamedExpressions `xml:"named-expressions"`
}

type xmlSheets struct {
	Count  int        `xml:"count,attr"`
	Sheets []xmlSheet `xml:"sheet"`
}

type xmlSheet struct {
	Name string `xml:"name,attr"`
}

type xmlFormulas struct {
	Count    int          `xml:"count,attr"`
	Formulas []xmlFormula `xml:"formula"`
}

type xmlFormula struct {
	Sheet      string     `xml:"sheet,attr"`
	Row        int        `xml:"row,attr"`
	Column     int        `xml:"column,attr"`
	Formula    string     `xml:"s,attr"`
	Valid      bool       `xml:"valid,attr"`
	TokenCount *int       `xml:"token-count,attr,omitempty"`
	Error      *string    `xml:"error,attr,omitempty"`
	Tokens     []xmlToken `xml:"token"`
}

type xmlNamedExpressions struct {
	Count            int                  `xml:"count,attr"`
	NamedExpressions []xmlNamedExpression `xml:"named-expression"`
}

type xmlNamedExpression struct {
	Name       string     `xml:"name,attr"`
	Formula    string     `xml:"formula,attr"`
	Scope      string     `xml:"scope,attr"`
	Sheet      string     `xml:"sheet,attr,omitempty"`
	TokenCount int        `xml:"token-count,attr"`
	Tokens     []xmlToken `xml:"token"`
}

type xmlToken struct {
	Text string `xml:"s,attr"`
	Type string `xml:"type,attr"`
}

func (e *XMLEncoder) Extension() string { return "xml" }

func (e *XMLEncoder) Encode(w io.Writer, b *Batch) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}

	enc := xml.NewEncoder(w)
	enc.Indent("", "    ")
	if err := enc.Encode(toXML(b.Documents)); err != nil {
		return fmt.Errorf("failed to encode batch %d: %w", b.Index, err)
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func toXML(docs []*record.Document) xmlDocs {
	out := xmlDocs{Count: len(docs), Docs: make([]xmlDoc, 0, len(docs))}
	for _, d := range docs {
		out.Docs = append(out.Docs, toXMLDoc(d))
	}
	return out
}

func toXMLDoc(d *record.Document) xmlDoc {
	doc := xmlDoc{Filepath: d.Filepath}

	doc.Sheets.Count = len(d.Sheets)
	for _, s := range d.Sheets {
		doc.Sheets.Sheets = append(doc.Sheets.Sheets, xmlSheet{Name: s})
	}

	doc.Formulas.Count = len(d.Formulas)
	for _, f := range d.Formulas {
		xf := xmlFormula{
			Sheet:   f.Sheet,
			Row:     f.Row,
			Column:  f.Column,
			Formula: f.Formula,
			Valid:   f.Valid(),
		}
		if xf.Valid {
			tokens := f.Tokens()
			n := len(tokens)
			xf.TokenCount = &n
			xf.Tokens = toXMLTokens(tokens)
		} else {
			msg := f.ErrorText()
			xf.Error = &msg
		}
		doc.Formulas.Formulas = append(doc.Formulas.Formulas, xf)
	}

	doc.NamedExpressions.Count = len(d.NamedExpressions)
	for _, ne := range d.NamedExpressions {
		doc.NamedExpressions.NamedExpressions = append(doc.NamedExpressions.NamedExpressions, xmlNamedExpression{
			Name:       ne.Name,
			Formula:    ne.Formula,
			Scope:      ne.Scope.String(),
			Sheet:      ne.Sheet,
			TokenCount: len(ne.Tokens),
			Tokens:     toXMLTokens(ne.Tokens),
		})
	}

	return doc
}

func toXMLTokens(tokens []record.Token) []xmlToken {
	out := make([]xmlToken, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, xmlToken{Text: t.Text, Type: t.Type.String()})
	}
	return out
}
