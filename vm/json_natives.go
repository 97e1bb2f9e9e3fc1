package vm

import (
	"unicode/utf8"

	"github.com/chazu/kutes/jsondoc"
)

// ---------------------------------------------------------------------------
// JSON bridge natives
// ---------------------------------------------------------------------------
//
// Every bridge native treats a missing node, a node of the wrong kind and
// a handle of the wrong kind as an ordinary unset result. Scripts test
// results with value? rather than catching errors.

// maxStringValue bounds the strings jval copies out of a document.
const maxStringValue = 255

func (vm *VM) registerJSONNatives() {
	vm.mustDefine("joit inp string!/jval! /ptr", nativeJoit)
	vm.mustDefine("jait inp string!/jval! /ptr", nativeJait)
	vm.mustDefine("jlen inp string!/jval! /ptr", nativeJlen)
	vm.mustDefine("janv iter", nativeJanv)
	vm.mustDefine("jonk iter", nativeJonk)
	vm.mustDefine("jonv key", nativeJonv)
	vm.mustDefine("jptr pth string! /root ptr", nativeJptr)
	vm.mustDefine("jval ptr", nativeJval)
}

// ambientRoot returns the node scripts address by default: the value of
// jroot when it holds a handle, else the root set by the host.
func (i *Interpreter) ambientRoot() *jsondoc.Node {
	if c := i.ctx.Cell(i.rootEntry); c.typ == TypeJSONValue {
		return c.Node()
	}
	return i.root
}

// target resolves the first argument of jait, joit and jlen. With /ptr the
// argument is a handle; otherwise it is a pointer into the ambient root.
func (i *Interpreter) target(a Args) *jsondoc.Node {
	inp := a.At(0)
	if a.Option(0) {
		if inp.typ != TypeJSONValue {
			return nil
		}
		return inp.Node()
	}
	if inp.typ != TypeString {
		return nil
	}
	return i.ambientRoot().Pointer(inp.Text())
}

func nativeJait(i *Interpreter, a Args, res *Cell) error {
	*res = Unset()
	if it, ok := i.target(a).ArrayIter(); ok {
		*res = arrayIterCell(it)
	}
	return nil
}

func nativeJoit(i *Interpreter, a Args, res *Cell) error {
	*res = Unset()
	if it, ok := i.target(a).ObjectIter(); ok {
		*res = objectIterCell(it)
	}
	return nil
}

func nativeJlen(i *Interpreter, a Args, res *Cell) error {
	n := i.target(a)
	if n == nil {
		*res = Unset()
		return nil
	}
	*res = Int(int64(n.Len()))
	return nil
}

func nativeJanv(i *Interpreter, a Args, res *Cell) error {
	*res = Unset()
	if c := a.At(0); c.typ == TypeArrayIter {
		*res = JSONValue(c.arrayIter().Next())
	}
	return nil
}

func nativeJonk(i *Interpreter, a Args, res *Cell) error {
	*res = Unset()
	if c := a.At(0); c.typ == TypeObjectIter {
		*res = JSONValue(c.objectIter().Next())
	}
	return nil
}

func nativeJonv(i *Interpreter, a Args, res *Cell) error {
	*res = Unset()
	if c := a.At(0); c.typ == TypeJSONValue {
		*res = JSONValue(c.Node().Value())
	}
	return nil
}

// jptr resolves a pointer against the /root handle or the ambient root.
// An empty pointer yields unset rather than the root itself.
func nativeJptr(i *Interpreter, a Args, res *Cell) error {
	*res = Unset()
	ptr := a.At(0).Text()
	if ptr == "" {
		return nil
	}
	root := i.ambientRoot()
	if h := a.OptionArg(0, 0); h != nil {
		if h.typ != TypeJSONValue {
			return nil
		}
		root = h.Node()
	}
	*res = JSONValue(root.Pointer(ptr))
	return nil
}

// jval converts a scalar node to a value. Containers stay handles; null,
// raw and empty strings are unset.
func nativeJval(i *Interpreter, a Args, res *Cell) error {
	*res = Unset()
	c := a.At(0)
	if c.typ != TypeJSONValue {
		return nil
	}
	*res = nodeValue(c.Node())
	return nil
}

func nodeValue(n *jsondoc.Node) Cell {
	switch n.Kind() {
	case jsondoc.KindString:
		s := n.Str()
		if s == "" {
			return Unset()
		}
		return String(truncateUTF8(s, maxStringValue))
	case jsondoc.KindInt, jsondoc.KindUint:
		return Int(n.Int())
	case jsondoc.KindReal:
		return Double(n.Float())
	case jsondoc.KindBool:
		return Logic(n.Bool())
	case jsondoc.KindArray, jsondoc.KindObject:
		return JSONValue(n)
	}
	return Unset()
}

// truncateUTF8 cuts s to at most limit bytes without splitting a rune.
func truncateUTF8(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}
