package extract

import (
	"regexp"

	"github.com/mvp-joe/formulax/internal/formula"
	"github.com/mvp-joe/formulax/internal/record"
)

// referencePattern matches A1 and R1C1 references with an optional sheet
// prefix: cells, cell ranges, whole columns and whole rows.
var referencePattern = regexp.MustCompile(`^` +
	`(?:(?:'(?:[^']|'')+'|[A-Za-z0-9_.]+(?::[A-Za-z0-9_.]+)?)!)?` +
	`(?:` +
	`\$?[A-Za-z]{1,3}\$?[0-9]+(?::\$?[A-Za-z]{1,3}\$?[0-9]+)?` +
	`|\$?[A-Za-z]{1,3}:\$?[A-Za-z]{1,3}` +
	`|\$?[0-9]+:\$?[0-9]+` +
	`|[Rr](?:\[-?[0-9]+\]|[0-9]+)?[Cc](?:\[-?[0-9]+\]|[0-9]+)?(?::[Rr](?:\[-?[0-9]+\]|[0-9]+)?[Cc](?:\[-?[0-9]+\]|[0-9]+)?)?` +
	`)$`)

// NormalizeTokens maps lexer tokens to record tokens. Order is preserved and
// nothing is dropped. The result is never nil.
func NormalizeTokens(native []formula.Token) []record.Token {
	out := make([]record.Token, 0, len(native))
	for _, t := range native {
		out = append(out, record.Token{Text: t.Text, Type: classify(t)})
	}
	return out
}

func classify(t formula.Token) record.TokenType {
	switch t.Type {
	case formula.TypeOperand:
		switch t.SubType {
		case formula.SubTypeRange:
			if referencePattern.MatchString(t.Text) {
				return record.TokenReference
			}
			return record.TokenName
		case formula.SubTypeNumber, formula.SubTypeText, formula.SubTypeLogical:
			return record.TokenValue
		case formula.SubTypeError:
			return record.TokenError
		}
	case formula.TypeFunction:
		if t.SubType == formula.SubTypeStart {
			return record.TokenFunction
		}
		return record.TokenOperator
	case formula.TypeParen, formula.TypeArray, formula.TypeSubexpression, formula.TypeArgument,
		formula.TypeOperatorPrefix, formula.TypeOperatorInfix, formula.TypeOperatorPostfix:
		return record.TokenOperator
	}
	return record.TokenUnknown
}
