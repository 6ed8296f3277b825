// Package record defines the normalized, serializable summary of one
// spreadsheet document's formula surface.
package record

import "fmt"

// TokenType classifies a formula token.
type TokenType int

const (
	TokenUnknown TokenType = iota
	TokenReference
	TokenValue
	TokenName
	TokenFunction
	TokenOperator
	TokenError
)

var tokenTypeNames = [...]string{
	TokenUnknown:   "unknown",
	TokenReference: "reference",
	TokenValue:     "value",
	TokenName:      "name",
	TokenFunction:  "function",
	TokenOperator:  "operator",
	TokenError:     "error",
}

// String returns the lower-case symbolic name used in every output format.
func (t TokenType) String() string {
	if t < 0 || int(t) >= len(tokenTypeNames) {
		return tokenTypeNames[TokenUnknown]
	}
	return tokenTypeNames[t]
}

// ParseTokenType is the inverse of String.
func ParseTokenType(s string) (TokenType, error) {
	for i, name := range tokenTypeNames {
		if name == s {
			return TokenType(i), nil
		}
	}
	return TokenUnknown, fmt.Errorf("unknown token type %q", s)
}

func (t TokenType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *TokenType) UnmarshalText(b []byte) error {
	v, err := ParseTokenType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Token is one lexical unit of a formula.
type Token struct {
	Text string    `json:"s"`
	Type TokenType `json:"type"`
}

// Scope tells where a named expression is defined.
type Scope int

const (
	ScopeGlobal Scope = iota
	ScopeSheet
)

func (s Scope) String() string {
	if s == ScopeSheet {
		return "sheet-local"
	}
	return "global"
}

// ParseScope is the inverse of String.
func ParseScope(s string) (Scope, error) {
	switch s {
	case "global":
		return ScopeGlobal, nil
	case "sheet-local":
		return ScopeSheet, nil
	}
	return ScopeGlobal, fmt.Errorf("unknown scope %q", s)
}

func (s Scope) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Scope) UnmarshalText(b []byte) error {
	v, err := ParseScope(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Result is the outcome of parsing a formula cell: either ValidFormula or
// InvalidFormula. The set is closed.
type Result interface {
	isResult()
}

// ValidFormula carries the tokens of a formula that parsed.
type ValidFormula struct {
	Tokens []Token
}

// InvalidFormula carries the reason a formula did not parse.
type InvalidFormula struct {
	Error string
}

func (ValidFormula) isResult()   {}
func (InvalidFormula) isResult() {}

// Valid wraps tokens in a ValidFormula. A nil slice is stored as empty so
// that a zero-token formula survives serialization unchanged.
func Valid(tokens []Token) ValidFormula {
	if tokens == nil {
		tokens = []Token{}
	}
	return ValidFormula{Tokens: tokens}
}

// Invalid wraps an error message in an InvalidFormula.
func Invalid(msg string) InvalidFormula {
	return InvalidFormula{Error: msg}
}

// FormulaCell is one formula-bearing cell.
type FormulaCell struct {
	Sheet   string
	Row     int
	Column  int
	Formula string
	Result  Result
}

// Valid reports whether the formula parsed.
func (c FormulaCell) Valid() bool {
	_, ok := c.Result.(ValidFormula)
	return ok
}

// Tokens returns the formula tokens, or nil for an invalid formula.
func (c FormulaCell) Tokens() []Token {
	if v, ok := c.Result.(ValidFormula); ok {
		return v.Tokens
	}
	return nil
}

// ErrorText returns the parse error, or "" for a valid formula.
func (c FormulaCell) ErrorText() string {
	if v, ok := c.Result.(InvalidFormula); ok {
		return v.Error
	}
	return ""
}

// NamedExpression is a name bound to a formula. Sheet is set only for
// sheet-local expressions.
type NamedExpression struct {
	Name    string  `json:"name"`
	Formula string  `json:"formula"`
	Tokens  []Token `json:"tokens"`
	Scope   Scope   `json:"scope"`
	Sheet   string  `json:"sheet,omitempty"`
}

// Document is the record produced for one source document.
type Document struct {
	Filepath         string            `json:"filepath"`
	Sheets           []string          `json:"sheets"`
	Formulas         []FormulaCell     `json:"formulas"`
	NamedExpressions []NamedExpression `json:"named_expressions"`
}

// InvalidCount returns the number of formula cells that failed to parse.
func (d *Document) InvalidCount() int {
	n := 0
	for _, f := range d.Formulas {
		if !f.Valid() {
			n++
		}
	}
	return n
}
