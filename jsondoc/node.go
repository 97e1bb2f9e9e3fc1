// Package jsondoc holds an ordered, mutable JSON tree.
//
// Nodes are addressed with RFC 6901 pointers and walked with array and
// object cursors. The evaluator observes nodes through handles and never
// owns them; the host that parsed or built a Document keeps it alive.
package jsondoc

import "fmt"

// Kind is the JSON type tag of a node.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt  // signed integer (negative literals)
	KindUint // unsigned integer (non-negative literals)
	KindReal
	KindString
	KindArray
	KindObject
	KindRaw // unparsed number text kept verbatim
)

var kindNames = [...]string{
	KindNull:   "null",
	KindBool:   "bool",
	KindInt:    "sint",
	KindUint:   "uint",
	KindReal:   "real",
	KindString: "string",
	KindArray:  "array",
	KindObject: "object",
	KindRaw:    "raw",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Node is a single JSON value.
//
// Object members are stored as key nodes in insertion order; each key node
// is a string node whose Value method returns the paired member value.
type Node struct {
	kind  Kind
	b     bool
	i     int64
	u     uint64
	f     float64
	s     string
	elems []*Node // array elements or object keys
	value *Node   // member value when this node is an object key
}

// Document owns a parsed tree.
type Document struct {
	Root *Node
}

// ---------------------------------------------------------------------------
// Constructors
// ---------------------------------------------------------------------------

func NewNull() *Node                { return &Node{kind: KindNull} }
func NewBool(b bool) *Node          { return &Node{kind: KindBool, b: b} }
func NewInt(i int64) *Node          { return &Node{kind: KindInt, i: i} }
func NewUint(u uint64) *Node        { return &Node{kind: KindUint, u: u} }
func NewReal(f float64) *Node       { return &Node{kind: KindReal, f: f} }
func NewString(s string) *Node      { return &Node{kind: KindString, s: s} }
func NewRaw(text string) *Node      { return &Node{kind: KindRaw, s: text} }
func NewArray(elems ...*Node) *Node { return &Node{kind: KindArray, elems: elems} }
func NewObject() *Node              { return &Node{kind: KindObject} }

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

// Kind returns the node's type tag. A nil node reports KindNull.
func (n *Node) Kind() Kind {
	if n == nil {
		return KindNull
	}
	return n.kind
}

func (n *Node) IsNull() bool      { return n.Kind() == KindNull }
func (n *Node) IsContainer() bool { k := n.Kind(); return k == KindArray || k == KindObject }

// IsInteger reports whether the node holds a signed or unsigned integer.
func (n *Node) IsInteger() bool { k := n.Kind(); return k == KindInt || k == KindUint }

func (n *Node) Bool() bool {
	if n.Kind() != KindBool {
		return false
	}
	return n.b
}

// Int returns the integer value. Unsigned values above the int64 range wrap.
func (n *Node) Int() int64 {
	switch n.Kind() {
	case KindInt:
		return n.i
	case KindUint:
		return int64(n.u)
	}
	return 0
}

func (n *Node) Uint() uint64 {
	switch n.Kind() {
	case KindUint:
		return n.u
	case KindInt:
		return uint64(n.i)
	}
	return 0
}

// Float returns the numeric value of any number node.
func (n *Node) Float() float64 {
	switch n.Kind() {
	case KindReal:
		return n.f
	case KindInt:
		return float64(n.i)
	case KindUint:
		return float64(n.u)
	}
	return 0
}

// Str returns the text of a string, raw, or key node.
func (n *Node) Str() string {
	switch n.Kind() {
	case KindString, KindRaw:
		return n.s
	}
	return ""
}

// Len returns the element count of an array, the member count of an
// object, or the byte length of a string. Other kinds report zero.
func (n *Node) Len() int {
	switch n.Kind() {
	case KindArray, KindObject:
		return len(n.elems)
	case KindString:
		return len(n.s)
	}
	return 0
}

// Index returns the i'th array element, or nil.
func (n *Node) Index(i int) *Node {
	if n.Kind() != KindArray || i < 0 || i >= len(n.elems) {
		return nil
	}
	return n.elems[i]
}

// Get returns the value of the first member named key, or nil.
func (n *Node) Get(key string) *Node {
	if n.Kind() != KindObject {
		return nil
	}
	for _, k := range n.elems {
		if k.s == key {
			return k.value
		}
	}
	return nil
}

// Value returns the member value paired with an object key node.
// Nodes that are not object keys return nil.
func (n *Node) Value() *Node {
	if n == nil {
		return nil
	}
	return n.value
}

// Keys returns the object's key nodes in insertion order.
func (n *Node) Keys() []*Node {
	if n.Kind() != KindObject {
		return nil
	}
	return n.elems
}

// ---------------------------------------------------------------------------
// Mutation
// ---------------------------------------------------------------------------

// Append adds elements to an array node.
func (n *Node) Append(elems ...*Node) *Node {
	if n.Kind() != KindArray {
		panic("jsondoc: Append on " + n.Kind().String())
	}
	n.elems = append(n.elems, elems...)
	return n
}

// Set replaces the value of an existing member or adds a new one.
func (n *Node) Set(key string, v *Node) *Node {
	if n.Kind() != KindObject {
		panic("jsondoc: Set on " + n.Kind().String())
	}
	if v == nil {
		v = NewNull()
	}
	for _, k := range n.elems {
		if k.s == key {
			k.value = v
			return n
		}
	}
	n.elems = append(n.elems, &Node{kind: KindString, s: key, value: v})
	return n
}

// Remove deletes the first member named key and reports whether it existed.
func (n *Node) Remove(key string) bool {
	if n.Kind() != KindObject {
		return false
	}
	for i, k := range n.elems {
		if k.s == key {
			n.elems = append(n.elems[:i], n.elems[i+1:]...)
			return true
		}
	}
	return false
}
