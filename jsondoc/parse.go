package jsondoc

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
)

// ErrTrailingData is returned when input continues after the root value.
var ErrTrailingData = errors.New("jsondoc: trailing data after document")

// Parse builds a Document from JSON text, keeping object member order.
func Parse(data []byte) (*Document, error) {
	return Read(bytes.NewReader(data))
}

// Read builds a Document from a JSON stream.
func Read(r io.Reader) (*Document, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	p := &parser{dec: dec}
	root, err := p.value()
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		if err != nil {
			return nil, fmt.Errorf("jsondoc: %w", err)
		}
		return nil, ErrTrailingData
	}
	return &Document{Root: root}, nil
}

type parser struct {
	dec *json.Decoder
}

func (p *parser) value() (*Node, error) {
	tok, err := p.dec.Token()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("jsondoc: unexpected end of input")
		}
		return nil, fmt.Errorf("jsondoc: %w", err)
	}
	return p.node(tok)
}

func (p *parser) node(tok json.Token) (*Node, error) {
	switch v := tok.(type) {
	case nil:
		return NewNull(), nil
	case bool:
		return NewBool(v), nil
	case string:
		return NewString(v), nil
	case json.Number:
		return number(string(v)), nil
	case float64:
		return NewReal(v), nil
	case json.Delim:
		switch v {
		case '[':
			return p.array()
		case '{':
			return p.object()
		}
		return nil, fmt.Errorf("jsondoc: unexpected delimiter %q", rune(v))
	}
	return nil, fmt.Errorf("jsondoc: unexpected token %T", tok)
}

func (p *parser) array() (*Node, error) {
	arr := NewArray()
	for p.dec.More() {
		elem, err := p.value()
		if err != nil {
			return nil, err
		}
		arr.elems = append(arr.elems, elem)
	}
	if _, err := p.dec.Token(); err != nil { // ']'
		return nil, fmt.Errorf("jsondoc: %w", err)
	}
	return arr, nil
}

func (p *parser) object() (*Node, error) {
	obj := NewObject()
	for p.dec.More() {
		tok, err := p.dec.Token()
		if err != nil {
			return nil, fmt.Errorf("jsondoc: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("jsondoc: object key is %T", tok)
		}
		val, err := p.value()
		if err != nil {
			return nil, err
		}
		// Duplicate keys are kept; Get returns the first.
		obj.elems = append(obj.elems, &Node{kind: KindString, s: key, value: val})
	}
	if _, err := p.dec.Token(); err != nil { // '}'
		return nil, fmt.Errorf("jsondoc: %w", err)
	}
	return obj, nil
}

// number classifies a numeric literal the way the document model expects:
// non-negative integers are unsigned, negative integers signed, anything
// with a fraction or exponent (or out of integer range) is real.
func number(text string) *Node {
	if !strings.ContainsAny(text, ".eE") {
		if strings.HasPrefix(text, "-") {
			if i, err := strconv.ParseInt(text, 10, 64); err == nil {
				return NewInt(i)
			}
		} else if u, err := strconv.ParseUint(text, 10, 64); err == nil {
			return NewUint(u)
		}
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return NewRaw(text)
	}
	return NewReal(f)
}
