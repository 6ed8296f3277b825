package batch

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// Output formats accepted by EncoderFor.
const (
	FormatJSON        = "json"
	FormatJSONLiteral = "json-literal"
	FormatXML         = "xml"
)

// DefaultWidth is the line width of the literal dump.
const DefaultWidth = 256

// ErrUnknownFormat is returned by EncoderFor for an unrecognized format name.
var ErrUnknownFormat = errors.New("unknown output format")

// Encoder renders a whole batch to a writer.
type Encoder interface {
	// Extension is the output file extension without a dot.
	Extension() string

	// Encode writes the rendered batch to w.
	Encode(w io.Writer, b *Batch) error
}

// Formats returns the accepted format names.
func Formats() []string {
	return []string{FormatJSON, FormatJSONLiteral, FormatXML}
}

// EncoderFor returns the encoder for a format name. width applies to the
// literal dump only; values below 1 select DefaultWidth.
func EncoderFor(format string, width int) (Encoder, error) {
	if width < 1 {
		width = DefaultWidth
	}

	switch strings.ToLower(format) {
	case FormatJSON, FormatJSONLiteral:
		return &LiteralEncoder{Width: width}, nil
	case FormatXML:
		return &XMLEncoder{}, nil
	}
	return nil, fmt.Errorf("%w: %q (want one of %s)", ErrUnknownFormat, format, strings.Join(Formats(), ", "))
}

// FileName returns the output file name for a 1-based batch index.
func FileName(index int, ext string) string {
	return fmt.Sprintf("%04d.%s", index, ext)
}
