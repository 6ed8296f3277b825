package batch

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// LiteralEncoder renders a batch as a list of document mappings laid out to
// a line width. A container that fits in the remaining width is written on
// one line; otherwise its children are stacked one per line, hanging one
// column past the opening bracket. The output is valid JSON.
type LiteralEncoder struct {
	Width int
}

func (e *LiteralEncoder) Extension() string { return "json" }

func (e *LiteralEncoder) Encode(w io.Writer, b *Batch) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(b.Documents); err != nil {
		return fmt.Errorf("failed to marshal batch %d: %w", b.Index, err)
	}
	return FormatLiteral(w, buf.Bytes(), e.Width)
}

// FormatLiteral lays out a JSON value to the given width.
func FormatLiteral(w io.Writer, data []byte, width int) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	root, err := parseNode(dec)
	if err != nil {
		return fmt.Errorf("failed to parse literal input: %w", err)
	}

	bw := bufio.NewWriter(w)
	p := &printer{w: bw, width: width}
	p.format(root, 0, 0)
	bw.WriteByte('\n')
	return bw.Flush()
}

type nodeKind int

const (
	scalarNode nodeKind = iota
	arrayNode
	objectNode
)

type node struct {
	kind     nodeKind
	text     string // encoded scalar
	keys     []string
	children []*node
	flat     int // width when written on one line
}

func parseNode(dec *json.Decoder) (*node, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	switch v := tok.(type) {
	case json.Delim:
		switch v {
		case '[':
			n := &node{kind: arrayNode}
			for dec.More() {
				child, err := parseNode(dec)
				if err != nil {
					return nil, err
				}
				n.children = append(n.children, child)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			n.measure()
			return n, nil
		case '{':
			n := &node{kind: objectNode}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("object key is %T", keyTok)
				}
				child, err := parseNode(dec)
				if err != nil {
					return nil, err
				}
				n.keys = append(n.keys, quote(key))
				n.children = append(n.children, child)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			n.measure()
			return n, nil
		}
		return nil, fmt.Errorf("unexpected delimiter %q", v)
	case string:
		return scalar(quote(v)), nil
	case json.Number:
		return scalar(v.String()), nil
	case bool:
		if v {
			return scalar("true"), nil
		}
		return scalar("false"), nil
	case nil:
		return scalar("null"), nil
	}
	return nil, fmt.Errorf("unexpected token %T", tok)
}

func scalar(text string) *node {
	return &node{kind: scalarNode, text: text, flat: utf8.RuneCountInString(text)}
}

// measure computes the one-line width from the children.
func (n *node) measure() {
	n.flat = 2
	for i, c := range n.children {
		if i > 0 {
			n.flat += 2 // ", "
		}
		if n.kind == objectNode {
			n.flat += utf8.RuneCountInString(n.keys[i]) + 2 // ": "
		}
		n.flat += c.flat
	}
}

func quote(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	return strings.TrimSuffix(buf.String(), "\n")
}

type printer struct {
	w     *bufio.Writer
	width int
}

// format writes n starting at column indent. allowance is the number of
// characters that will follow n on its last line.
func (p *printer) format(n *node, indent, allowance int) {
	if n.kind == scalarNode || len(n.children) == 0 || n.flat <= p.width-indent-allowance {
		p.flat(n)
		return
	}

	open, closeCh := byte('['), byte(']')
	if n.kind == objectNode {
		open, closeCh = '{', '}'
	}

	p.w.WriteByte(open)
	indent++
	last := len(n.children) - 1
	for i, c := range n.children {
		if i > 0 {
			p.w.WriteString(",\n")
			p.w.WriteString(strings.Repeat(" ", indent))
		}

		childAllowance := 1
		if i == last {
			childAllowance = allowance + 1
		}

		if n.kind == objectNode {
			key := n.keys[i]
			p.w.WriteString(key)
			p.w.WriteString(": ")
			p.format(c, indent+utf8.RuneCountInString(key)+2, childAllowance)
		} else {
			p.format(c, indent, childAllowance)
		}
	}
	p.w.WriteByte(closeCh)
}

// flat writes n on a single line.
func (p *printer) flat(n *node) {
	switch n.kind {
	case scalarNode:
		p.w.WriteString(n.text)
	case arrayNode:
		p.w.WriteByte('[')
		for i, c := range n.children {
			if i > 0 {
				p.w.WriteString(", ")
			}
			p.flat(c)
		}
		p.w.WriteByte(']')
	case objectNode:
		p.w.WriteByte('{')
		for i, c := range n.children {
			if i > 0 {
				p.w.WriteString(", ")
			}
			p.w.WriteString(n.keys[i])
			p.w.WriteString(": ")
			p.flat(c)
		}
		p.w.WriteByte('}')
	}
}
