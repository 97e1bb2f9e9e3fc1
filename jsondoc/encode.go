package jsondoc

import (
	"bytes"
	"strconv"

	json "github.com/goccy/go-json"
)

// MarshalJSON writes n with object members in insertion order.
func (n *Node) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := n.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (n *Node) encode(buf *bytes.Buffer) error {
	switch n.Kind() {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		buf.WriteString(strconv.FormatBool(n.b))
	case KindInt:
		buf.WriteString(strconv.FormatInt(n.i, 10))
	case KindUint:
		buf.WriteString(strconv.FormatUint(n.u, 10))
	case KindReal:
		buf.WriteString(strconv.FormatFloat(n.f, 'g', -1, 64))
	case KindRaw:
		buf.WriteString(n.s)
	case KindString:
		return writeString(buf, n.s)
	case KindArray:
		buf.WriteByte('[')
		for i, e := range n.elems {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := e.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindObject:
		buf.WriteByte('{')
		for i, k := range n.elems {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeString(buf, k.s); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := k.value.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	}
	return nil
}

func writeString(buf *bytes.Buffer, s string) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}

// Interface converts n to plain Go values (maps lose member order).
func (n *Node) Interface() any {
	switch n.Kind() {
	case KindBool:
		return n.b
	case KindInt:
		return n.i
	case KindUint:
		return n.u
	case KindReal:
		return n.f
	case KindString, KindRaw:
		return n.s
	case KindArray:
		out := make([]any, len(n.elems))
		for i, e := range n.elems {
			out[i] = e.Interface()
		}
		return out
	case KindObject:
		out := make(map[string]any, len(n.elems))
		for _, k := range n.elems {
			if _, dup := out[k.s]; !dup {
				out[k.s] = k.value.Interface()
			}
		}
		return out
	}
	return nil
}
