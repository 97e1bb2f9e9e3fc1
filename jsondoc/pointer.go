package jsondoc

import (
	"strconv"
	"strings"
)

// Pointer resolves an RFC 6901 JSON pointer relative to n.
// The empty pointer addresses n itself. Malformed pointers, missing
// members and out-of-range indices all return nil.
func (n *Node) Pointer(ptr string) *Node {
	if n == nil {
		return nil
	}
	if ptr == "" {
		return n
	}
	if ptr[0] != '/' {
		return nil
	}
	cur := n
	for _, tok := range strings.Split(ptr[1:], "/") {
		tok = unescapeToken(tok)
		switch cur.Kind() {
		case KindObject:
			cur = cur.Get(tok)
		case KindArray:
			idx, ok := arrayIndex(tok)
			if !ok {
				return nil
			}
			cur = cur.Index(idx)
		default:
			return nil
		}
		if cur == nil {
			return nil
		}
	}
	return cur
}

// Split breaks a pointer into its unescaped reference tokens.
func Split(ptr string) []string {
	if ptr == "" || ptr[0] != '/' {
		return nil
	}
	toks := strings.Split(ptr[1:], "/")
	for i, t := range toks {
		toks[i] = unescapeToken(t)
	}
	return toks
}

// Join builds a pointer from reference tokens.
func Join(toks ...string) string {
	var sb strings.Builder
	for _, t := range toks {
		sb.WriteByte('/')
		t = strings.ReplaceAll(t, "~", "~0")
		sb.WriteString(strings.ReplaceAll(t, "/", "~1"))
	}
	return sb.String()
}

func unescapeToken(tok string) string {
	if !strings.Contains(tok, "~") {
		return tok
	}
	tok = strings.ReplaceAll(tok, "~1", "/")
	return strings.ReplaceAll(tok, "~0", "~")
}

// arrayIndex accepts decimal digits without leading zeros. The "-"
// token (one past the end) never addresses an existing element.
func arrayIndex(tok string) (int, bool) {
	if tok == "" || (len(tok) > 1 && tok[0] == '0') {
		return 0, false
	}
	for i := 0; i < len(tok); i++ {
		if tok[i] < '0' || tok[i] > '9' {
			return 0, false
		}
	}
	idx, err := strconv.Atoi(tok)
	if err != nil {
		return 0, false
	}
	return idx, true
}
