// Package formula splits spreadsheet formula text into lexical tokens.
//
// Tokenization is delegated to the efp Excel formula parser. The lexer adds
// the things efp leaves out: a well-formedness check, quoting of text
// literals, and explicit parenthesis tokens after function names so the
// token stream reads left to right like the source formula.
package formula

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/efp"
)

// Token types emitted by the lexer. All but TypeParen are efp's own type
// names; TypeParen marks the "(" that opens a function's argument list and
// TypeArray marks the "{", ";" and "}" of an array constant.
const (
	TypeOperand         = efp.TokenTypeOperand
	TypeFunction        = efp.TokenTypeFunction
	TypeSubexpression   = efp.TokenTypeSubexpression
	TypeArgument        = efp.TokenTypeArgument
	TypeOperatorPrefix  = efp.TokenTypeOperatorPrefix
	TypeOperatorInfix   = efp.TokenTypeOperatorInfix
	TypeOperatorPostfix = efp.TokenTypeOperatorPostfix
	TypeUnknown         = efp.TokenTypeUnknown
	TypeParen           = "Paren"
	TypeArray           = "Array"
)

// Token subtypes emitted by the lexer.
const (
	SubTypeNone    = ""
	SubTypeStart   = efp.TokenSubTypeStart
	SubTypeStop    = efp.TokenSubTypeStop
	SubTypeText    = efp.TokenSubTypeText
	SubTypeNumber  = efp.TokenSubTypeNumber
	SubTypeLogical = efp.TokenSubTypeLogical
	SubTypeError   = efp.TokenSubTypeError
	SubTypeRange   = efp.TokenSubTypeRange

	SubTypeIntersection = efp.TokenSubTypeIntersection
	SubTypeRowSeparator = "RowSeparator"
)

// efp reports array constants as calls to these pseudo-functions.
const (
	efpArray    = "ARRAY"
	efpArrayRow = "ARRAYROW"
)

// Kinds of open groups tracked while tokenizing.
const (
	groupFunction = iota
	groupArray
	groupArrayRow
)

var (
	// ErrEmptyFormula is returned for a formula with no content after '='.
	ErrEmptyFormula = errors.New("empty formula")

	// ErrUnbalancedParens is returned when parentheses do not pair up.
	ErrUnbalancedParens = errors.New("unbalanced parentheses")

	// ErrUnterminatedString is returned when a quoted literal or sheet name is not closed.
	ErrUnterminatedString = errors.New("unterminated string")
)

// Token is one lexical unit of a formula in the lexer's native representation.
type Token struct {
	Text    string
	Type    string
	SubType string
}

// Parse validates formula text and tokenizes it. The text may carry a
// leading '='. A malformed formula yields a nil token slice and an error
// describing the problem.
func Parse(text string) ([]Token, error) {
	body := Strip(text)
	if strings.TrimSpace(body) == "" {
		return nil, ErrEmptyFormula
	}
	if err := check(body); err != nil {
		return nil, err
	}
	return Tokenize(text), nil
}

// Tokenize splits formula text into tokens without validating it. It never
// fails; input the underlying parser cannot handle comes back as a single
// unknown token holding the whole text.
func Tokenize(text string) (tokens []Token) {
	body := Strip(text)
	if body == "" {
		return []Token{}
	}

	defer func() {
		if r := recover(); r != nil {
			tokens = []Token{{Text: body, Type: TypeUnknown}}
		}
	}()

	ps := efp.ExcelParser()
	raw := ps.Parse("=" + body)

	tokens = make([]Token, 0, len(raw))
	var open []int
	for i, t := range raw {
		switch t.TType {
		case efp.TokenTypeWhitespace, efp.TokenTypeNoop:
			continue
		case efp.TokenTypeFunction:
			if t.TSubType == efp.TokenSubTypeStart {
				switch {
				case t.TValue == efpArray && i+1 < len(raw) && isArrayRowStart(raw[i+1]):
					open = append(open, groupArray)
					tokens = append(tokens, Token{Text: "{", Type: TypeArray, SubType: SubTypeStart})
				case isArrayRowStart(t) && len(open) > 0 && open[len(open)-1] == groupArray:
					open = append(open, groupArrayRow)
				default:
					open = append(open, groupFunction)
					tokens = append(tokens,
						Token{Text: t.TValue, Type: TypeFunction, SubType: SubTypeStart},
						Token{Text: "(", Type: TypeParen, SubType: SubTypeStart})
				}
				continue
			}

			group := groupFunction
			if len(open) > 0 {
				group = open[len(open)-1]
				open = open[:len(open)-1]
			}
			switch group {
			case groupArray:
				tokens = append(tokens, Token{Text: "}", Type: TypeArray, SubType: SubTypeStop})
			case groupArrayRow:
				// a row ends at the ";" or "}" that follows
			default:
				tokens = append(tokens, Token{Text: ")", Type: TypeFunction, SubType: SubTypeStop})
			}
		case efp.TokenTypeSubexpression:
			text := "("
			if t.TSubType == efp.TokenSubTypeStop {
				text = ")"
			}
			tokens = append(tokens, Token{Text: text, Type: TypeSubexpression, SubType: t.TSubType})
		case efp.TokenTypeArgument:
			// Between rows only the array itself is open
			if len(open) > 0 && open[len(open)-1] == groupArray {
				tokens = append(tokens, Token{Text: ";", Type: TypeArray, SubType: SubTypeRowSeparator})
				continue
			}
			tokens = append(tokens, Token{Text: ",", Type: TypeArgument})
		case efp.TokenTypeOperand:
			text := t.TValue
			if t.TSubType == efp.TokenSubTypeText {
				text = `"` + strings.ReplaceAll(t.TValue, `"`, `""`) + `"`
			}
			tokens = append(tokens, Token{Text: text, Type: TypeOperand, SubType: t.TSubType})
		case efp.TokenTypeOperatorInfix:
			text := t.TValue
			if t.TSubType == efp.TokenSubTypeIntersection {
				text = " "
			}
			tokens = append(tokens, Token{Text: text, Type: TypeOperatorInfix, SubType: t.TSubType})
		default:
			tokens = append(tokens, Token{Text: t.TValue, Type: t.TType, SubType: t.TSubType})
		}
	}
	return tokens
}

func isArrayRowStart(t efp.Token) bool {
	return t.TType == efp.TokenTypeFunction && t.TSubType == efp.TokenSubTypeStart && t.TValue == efpArrayRow
}

// Strip removes surrounding whitespace and a single leading '='.
func Strip(text string) string {
	text = strings.TrimSpace(text)
	return strings.TrimPrefix(text, "=")
}

// check scans formula text for unbalanced parentheses and unterminated
// quoted sections. Double quotes delimit text literals, single quotes delimit
// sheet names and square brackets delimit structured references; parentheses
// inside any of them are ignored.
func check(body string) error {
	depth := 0
	for i := 0; i < len(body); i++ {
		switch c := body[i]; c {
		case '"', '\'':
			end := closing(body, i+1, c)
			if end < 0 {
				return fmt.Errorf("%w at offset %d", ErrUnterminatedString, i)
			}
			i = end
		case '[':
			end := strings.IndexByte(body[i+1:], ']')
			if end < 0 {
				return fmt.Errorf("%w: '[' at offset %d", ErrUnterminatedString, i)
			}
			i += end + 1
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return fmt.Errorf("%w: unexpected ')' at offset %d", ErrUnbalancedParens, i)
			}
		}
	}
	if depth != 0 {
		return fmt.Errorf("%w: %d unclosed '('", ErrUnbalancedParens, depth)
	}
	return nil
}

// closing returns the index of the quote that ends a section opened before
// start, treating a doubled quote as an escaped one. Returns -1 if the
// section never closes.
func closing(body string, start int, quote byte) int {
	for i := start; i < len(body); i++ {
		if body[i] != quote {
			continue
		}
		if i+1 < len(body) && body[i+1] == quote {
			i++
			continue
		}
		return i
	}
	return -1
}
