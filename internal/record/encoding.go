package record

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInconsistentCell indicates a serialized formula cell whose valid flag
// disagrees with its payload.
var ErrInconsistentCell = errors.New("inconsistent formula cell")

// formulaCellJSON is the wire form of FormulaCell. Exactly one of Tokens and
// Error is present, selected by Valid.
type formulaCellJSON struct {
	Sheet   string   `json:"sheet"`
	Row     int      `json:"row"`
	Column  int      `json:"column"`
	Valid   bool     `json:"valid"`
	Formula string   `json:"formula"`
	Tokens  *[]Token `json:"tokens,omitempty"`
	Error   *string  `json:"error,omitempty"`
}

func (c FormulaCell) MarshalJSON() ([]byte, error) {
	w := formulaCellJSON{
		Sheet:   c.Sheet,
		Row:     c.Row,
		Column:  c.Column,
		Formula: c.Formula,
	}

	switch r := c.Result.(type) {
	case ValidFormula:
		tokens := r.Tokens
		if tokens == nil {
			tokens = []Token{}
		}
		w.Valid = true
		w.Tokens = &tokens
	case InvalidFormula:
		msg := r.Error
		w.Error = &msg
	default:
		return nil, fmt.Errorf("%w: %s!R%dC%d has no result", ErrInconsistentCell, c.Sheet, c.Row, c.Column)
	}

	return marshal(w)
}

func (c *FormulaCell) UnmarshalJSON(data []byte) error {
	var w formulaCellJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	*c = FormulaCell{
		Sheet:   w.Sheet,
		Row:     w.Row,
		Column:  w.Column,
		Formula: w.Formula,
	}

	switch {
	case w.Valid && w.Tokens != nil && w.Error == nil:
		c.Result = Valid(*w.Tokens)
	case !w.Valid && w.Error != nil && w.Tokens == nil:
		c.Result = Invalid(*w.Error)
	default:
		return fmt.Errorf("%w: %s!R%dC%d valid=%t", ErrInconsistentCell, w.Sheet, w.Row, w.Column, w.Valid)
	}
	return nil
}

// marshal encodes v without HTML escaping so operators such as "<" and "&"
// stay readable in formula text.
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
