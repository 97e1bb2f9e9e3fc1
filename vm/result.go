package vm

import "github.com/chazu/kutes/jsondoc"

// Kind classifies an evaluation result for the host.
type Kind uint8

const (
	KindUnset Kind = iota
	KindString
	KindInt
	KindBool
	KindDouble
	KindJSON
	KindError
	KindOther
)

var kindNames = [...]string{
	KindUnset:  "unset",
	KindString: "string",
	KindInt:    "int",
	KindBool:   "bool",
	KindDouble: "double",
	KindJSON:   "json",
	KindError:  "error",
	KindOther:  "other",
}

func (k Kind) String() string { return kindNames[k] }

// Result is the value of an evaluation as seen by the host.
type Result struct {
	Kind  Kind
	Value Cell
	Err   *Error

	vm *VM
}

func newResult(vm *VM, v Cell) Result {
	r := Result{Value: v, vm: vm}
	switch v.typ {
	case TypeUnset:
		r.Kind = KindUnset
	case TypeString:
		r.Kind = KindString
	case TypeInt:
		r.Kind = KindInt
	case TypeLogic:
		r.Kind = KindBool
	case TypeDouble:
		r.Kind = KindDouble
	case TypeJSONValue:
		r.Kind = KindJSON
	case TypeError:
		r.Kind = KindError
		r.Err = v.Err()
	default:
		r.Kind = KindOther
	}
	return r
}

// Str returns the text of a string result.
func (r Result) Str() string {
	if r.Kind != KindString {
		return ""
	}
	return r.Value.Text()
}

// Int returns the value of an int result.
func (r Result) Int() int64 {
	if r.Kind != KindInt {
		return 0
	}
	return r.Value.Int()
}

// Bool returns the value of a bool result.
func (r Result) Bool() bool {
	return r.Kind == KindBool && r.Value.Logic()
}

// Double returns the value of a double result.
func (r Result) Double() float64 {
	if r.Kind != KindDouble {
		return 0
	}
	return r.Value.Double()
}

// Node returns the document node of a json result.
func (r Result) Node() *jsondoc.Node {
	if r.Kind != KindJSON {
		return nil
	}
	return r.Value.Node()
}

// String forms the result value as text. Unset forms as the empty string.
func (r Result) String() string {
	switch {
	case r.Kind == KindError && r.Err != nil:
		return r.Err.Error()
	case r.vm == nil:
		return ""
	}
	return r.vm.Form(r.Value)
}
