package vm

import (
	"fmt"

	"github.com/chazu/kutes/jsondoc"
)

// ---------------------------------------------------------------------------
// Cell: the universal value
// ---------------------------------------------------------------------------

// Cell is a fixed-size tagged value. The type field decides which of the
// remaining fields are meaningful; accessors panic when called on the
// wrong variant since that is a programming error, not a script error.
//
// Cells are copied by value. Block, string, and path cells alias their
// Series, so copies share the underlying storage.
type Cell struct {
	typ   Type
	bind  Binding // word variants
	atom  Atom    // word variants
	index int32   // word binding slot
	n     int64   // logic, char, int, datatype mask
	f     float64 // double
	ser   *Series // string, block, paren, path variants
	pos   int     // series start offset
	ref   any     // context, function, error, JSON handle, binding target
}

// ---------------------------------------------------------------------------
// Constructors
// ---------------------------------------------------------------------------

func Unset() Cell              { return Cell{typ: TypeUnset} }
func None() Cell               { return Cell{typ: TypeNone} }
func Int(n int64) Cell         { return Cell{typ: TypeInt, n: n} }
func Double(f float64) Cell    { return Cell{typ: TypeDouble, f: f} }
func Char(r rune) Cell         { return Cell{typ: TypeChar, n: int64(r)} }
func Datatype(m TypeMask) Cell { return Cell{typ: TypeDatatype, n: int64(m)} }

func Logic(b bool) Cell {
	c := Cell{typ: TypeLogic}
	if b {
		c.n = 1
	}
	return c
}

// String returns a string cell over a new series.
func String(s string) Cell {
	return Cell{typ: TypeString, ser: NewText(s)}
}

// Block returns a block cell over ser.
func Block(ser *Series) Cell {
	return Cell{typ: TypeBlock, ser: ser}
}

// SeriesCell returns a cell of block-like or string type t over ser.
func SeriesCell(t Type, ser *Series, pos int) Cell {
	if !t.IsSeries() {
		panic("vm: SeriesCell with non-series type " + t.String())
	}
	return Cell{typ: t, ser: ser, pos: pos}
}

// Word returns an unbound word cell of variant t.
func Word(t Type, atom Atom) Cell {
	if !t.IsWord() {
		panic("vm: Word with non-word type " + t.String())
	}
	return Cell{typ: t, atom: atom}
}

func ContextCell(ctx *Context) Cell { return Cell{typ: TypeContext, ref: ctx} }
func ErrorCell(e *Error) Cell       { return Cell{typ: TypeError, ref: e} }

// FuncCell wraps a native or user function.
func FuncCell(fn *Function) Cell {
	if fn.native != nil {
		return Cell{typ: TypeNative, ref: fn}
	}
	return Cell{typ: TypeFunc, ref: fn}
}

// JSONValue wraps a document node. A nil node yields unset.
func JSONValue(n *jsondoc.Node) Cell {
	if n == nil {
		return Unset()
	}
	return Cell{typ: TypeJSONValue, ref: n}
}

func arrayIterCell(it *jsondoc.ArrayIter) Cell   { return Cell{typ: TypeArrayIter, ref: it} }
func objectIterCell(it *jsondoc.ObjectIter) Cell { return Cell{typ: TypeObjectIter, ref: it} }

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

func (c Cell) Type() Type { return c.typ }

func (c Cell) IsUnset() bool { return c.typ == TypeUnset }

func (c Cell) must(t Type) {
	if c.typ != t {
		panic(fmt.Sprintf("vm: %s accessed as %s", c.typ, t))
	}
}

func (c Cell) Int() int64 {
	c.must(TypeInt)
	return c.n
}

func (c Cell) Double() float64 {
	c.must(TypeDouble)
	return c.f
}

func (c Cell) Logic() bool {
	c.must(TypeLogic)
	return c.n != 0
}

func (c Cell) Char() rune {
	c.must(TypeChar)
	return rune(c.n)
}

func (c Cell) Mask() TypeMask {
	c.must(TypeDatatype)
	return TypeMask(c.n)
}

// Atom returns the atom of a word variant.
func (c Cell) Atom() Atom {
	if !c.typ.IsWord() {
		panic(fmt.Sprintf("vm: %s accessed as word", c.typ))
	}
	return c.atom
}

// Series returns the backing series of a string or block variant.
func (c Cell) Series() *Series {
	if !c.typ.IsSeries() {
		panic(fmt.Sprintf("vm: %s accessed as series", c.typ))
	}
	return c.ser
}

// Cells returns the visible cells of a block variant.
func (c Cell) Cells() []Cell {
	if !c.typ.IsBlock() {
		panic(fmt.Sprintf("vm: %s accessed as block", c.typ))
	}
	return c.ser.cellsFrom(c.pos)
}

// Text returns the visible text of a string cell.
func (c Cell) Text() string {
	c.must(TypeString)
	return c.ser.textFrom(c.pos)
}

func (c Cell) Context() *Context {
	c.must(TypeContext)
	return c.ref.(*Context)
}

// Function returns the function of a native or func cell.
func (c Cell) Function() *Function {
	if c.typ != TypeNative && c.typ != TypeFunc {
		panic(fmt.Sprintf("vm: %s accessed as function", c.typ))
	}
	return c.ref.(*Function)
}

func (c Cell) Err() *Error {
	c.must(TypeError)
	return c.ref.(*Error)
}

// Node returns the document node of a jval! handle.
func (c Cell) Node() *jsondoc.Node {
	c.must(TypeJSONValue)
	return c.ref.(*jsondoc.Node)
}

func (c Cell) arrayIter() *jsondoc.ArrayIter {
	c.must(TypeArrayIter)
	return c.ref.(*jsondoc.ArrayIter)
}

func (c Cell) objectIter() *jsondoc.ObjectIter {
	c.must(TypeObjectIter)
	return c.ref.(*jsondoc.ObjectIter)
}

// Truthy reports whether c counts as true for conditionals: everything
// except false, none, and unset.
func (c Cell) Truthy() bool {
	switch c.typ {
	case TypeUnset, TypeNone:
		return false
	case TypeLogic:
		return c.n != 0
	}
	return true
}

// withType returns a copy of c retagged as another variant of the same
// family (word to lit-word, path to set-path, and so on).
func (c Cell) withType(t Type) Cell {
	c.typ = t
	return c
}

// Equal compares two cells by value. Words compare by atom, series by
// content, handles and contexts by identity. Series that contain
// themselves compare equal when their cycles match.
func Equal(a, b Cell) bool {
	return equal(a, b, nil)
}

// seriesPair is a pair of series positions being compared.
type seriesPair struct {
	a, b       *Series
	apos, bpos int
}

func equal(a, b Cell, open map[seriesPair]bool) bool {
	switch {
	case a.typ == TypeInt && b.typ == TypeDouble:
		return float64(a.n) == b.f
	case a.typ == TypeDouble && b.typ == TypeInt:
		return a.f == float64(b.n)
	case a.typ.IsWord() && b.typ.IsWord():
		return a.atom == b.atom
	}
	if a.typ != b.typ {
		return false
	}
	switch a.typ {
	case TypeUnset, TypeNone:
		return true
	case TypeLogic, TypeChar, TypeInt, TypeDatatype:
		return a.n == b.n
	case TypeDouble:
		return a.f == b.f
	case TypeString:
		return a.Text() == b.Text()
	case TypeBlock, TypeParen, TypePath, TypeLitPath, TypeSetPath:
		ac, bc := a.Cells(), b.Cells()
		if len(ac) != len(bc) {
			return false
		}
		key := seriesPair{a.ser, b.ser, a.pos, b.pos}
		if open[key] {
			return true
		}
		if open == nil {
			open = make(map[seriesPair]bool)
		}
		open[key] = true
		defer delete(open, key)
		for i := range ac {
			if !equal(ac[i], bc[i], open) {
				return false
			}
		}
		return true
	}
	return a.ref == b.ref
}
