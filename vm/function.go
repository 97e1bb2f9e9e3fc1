package vm

import (
	"encoding/binary"
	"fmt"
)

// ---------------------------------------------------------------------------
// Argument programs
// ---------------------------------------------------------------------------

// opcode is an argument-program instruction.
type opcode uint8

const (
	opEnd           opcode = iota
	opFetchArg             // evaluate the next source value onto the stack
	opLitArg               // push the next source cell unevaluated
	opCheckType            // [type] check the top argument's datatype
	opCheckTypeMask        // [8 bytes] check the top argument against a mask
	opClearLocals          // [n] push n none locals
	opOptionRecord         // reserve the option flags cell
	opVariant              // [n] push the integer n
)

// maxOptions is the size of the option flag set.
const maxOptions = 8

// OptionEntry describes one /option of a function.
type OptionEntry struct {
	Atom     Atom
	ArgCount int
	Offset   int // program offset of the option's argument fetches, 0 if none
}

// ArgProgram describes how a call collects its arguments. It is built once
// per function and shared by every call.
type ArgProgram struct {
	code    []byte
	options []OptionEntry
	slots   int // stack cells a call may push, option record included
}

// optionIndex returns the option number for atom, or -1.
func (p *ArgProgram) optionIndex(atom Atom) int {
	for n, o := range p.options {
		if o.Atom == atom {
			return n
		}
	}
	return -1
}

// Options returns the option table.
func (p *ArgProgram) Options() []OptionEntry { return p.options }

// optionRecord is the per-call option state kept in the cell below the
// arguments: which options were given and where each option's arguments
// start relative to the argument base.
type optionRecord struct {
	flags uint8
	pos   [maxOptions]uint16
}

func (r *optionRecord) has(n int) bool { return r != nil && r.flags&(1<<n) != 0 }

// ---------------------------------------------------------------------------
// Functions
// ---------------------------------------------------------------------------

// NativeFunc implements a native. res points at the call's result cell.
// A native that replaced its own frame returns the value of one of the
// Interpreter's reframe helpers.
type NativeFunc func(i *Interpreter, a Args, res *Cell) error

// Function is a native or user-defined function.
type Function struct {
	name   string
	prog   *ArgProgram
	native NativeFunc
	body   *Series // user functions: body bound to this function's frame
}

// Name returns the name the function was defined under, if any.
func (fn *Function) Name() string { return fn.name }

// Program returns the function's argument program.
func (fn *Function) Program() *ArgProgram { return fn.prog }

// usesStack reports whether a user call needs a stack-map entry.
func (fn *Function) usesStack() bool {
	return fn.prog.slots > 0
}

// Args is a native's view of its call arguments on the operand stack.
type Args struct {
	cells []Cell
	opts  *optionRecord
}

// Len returns the number of argument cells, locals included.
func (a Args) Len() int { return len(a.cells) }

// At returns a pointer to argument n (0-based).
func (a Args) At(n int) *Cell { return &a.cells[n] }

// Option reports whether option n was given.
func (a Args) Option(n int) bool { return a.opts.has(n) }

// OptionArg returns argument k of option n, or nil if the option is absent.
func (a Args) OptionArg(n, k int) *Cell {
	if !a.opts.has(n) {
		return nil
	}
	return &a.cells[int(a.opts.pos[n])+k]
}

// ---------------------------------------------------------------------------
// Spec compiler
// ---------------------------------------------------------------------------

// slot locates a function word on the stack.
type slot struct {
	bind  Binding
	index int32
}

type progBuilder struct {
	vm      *VM
	main    []byte
	opts    []OptionEntry
	optCode [][]byte
	slots   map[Atom]slot
	externs map[Atom]bool
	locals  []Atom
	nmain   int // stack cells pushed by the main program
	nopt    int // option arguments
	lastArg bool
}

// compileSpec builds an argument program from a spec block and returns the
// word slots a user function body binds against.
func (vm *VM) compileSpec(spec []Cell) (*progBuilder, error) {
	b := &progBuilder{
		vm:      vm,
		slots:   make(map[Atom]slot),
		externs: make(map[Atom]bool),
	}
	cur := -1 // current option, -1 for the main program
	inLocals, inExtern := false, false

	emit := func(bs ...byte) {
		if cur < 0 {
			b.main = append(b.main, bs...)
		} else {
			b.optCode[cur] = append(b.optCode[cur], bs...)
		}
	}
	addArg := func(atom Atom, op opcode) error {
		if _, dup := b.slots[atom]; dup {
			return scriptError("duplicate function argument %s", vm.atoms.Name(atom))
		}
		emit(byte(op))
		if cur < 0 {
			b.slots[atom] = slot{BindFrame, int32(b.nmain)}
			b.nmain++
		} else {
			o := &b.opts[cur]
			b.slots[atom] = slot{BindOptionArg, int32(cur<<8 | o.ArgCount)}
			o.ArgCount++
			b.nopt++
		}
		b.lastArg = true
		return nil
	}

	for _, c := range spec {
		switch c.typ {
		case TypeWord, TypeLitWord:
			name := vm.atoms.Name(c.atom)
			if c.typ == TypeWord && (name == "|" || name == "local") {
				inLocals, inExtern, cur = true, false, -1
				b.lastArg = false
				continue
			}
			if inExtern {
				b.externs[c.atom] = true
				continue
			}
			if inLocals {
				b.addLocal(c.atom)
				continue
			}
			op := opFetchArg
			if c.typ == TypeLitWord {
				op = opLitArg
			}
			if err := addArg(c.atom, op); err != nil {
				return nil, err
			}

		case TypeDatatype:
			if !b.lastArg {
				return nil, scriptError("datatype %s does not follow an argument", c.Mask())
			}
			if t, ok := c.Mask().Single(); ok {
				emit(byte(opCheckType), byte(t))
			} else {
				var buf [8]byte
				binary.LittleEndian.PutUint64(buf[:], uint64(c.Mask()))
				emit(byte(opCheckTypeMask))
				emit(buf[:]...)
			}
			b.lastArg = false

		case TypeOption:
			inLocals = false
			b.lastArg = false
			if vm.atoms.Name(c.atom) == "extern" {
				inExtern, cur = true, -1
				continue
			}
			inExtern = false
			if len(b.opts) == maxOptions {
				return nil, scriptError("more than %d function options", maxOptions)
			}
			if _, dup := b.slots[c.atom]; dup {
				return nil, scriptError("duplicate function option %s", vm.atoms.Name(c.atom))
			}
			b.slots[c.atom] = slot{BindOption, int32(len(b.opts))}
			b.opts = append(b.opts, OptionEntry{Atom: c.atom})
			b.optCode = append(b.optCode, nil)
			cur = len(b.opts) - 1

		case TypeInt:
			if cur >= 0 || c.n < 0 || c.n > 255 {
				return nil, scriptError("invalid function variant %d", c.n)
			}
			b.main = append(b.main, byte(opVariant), byte(c.n))
			b.nmain++
			b.lastArg = false

		case TypeString:
			// Documentation.

		default:
			return nil, scriptError("invalid function spec value %s", c.typ)
		}
	}
	return b, nil
}

func (b *progBuilder) addLocal(atom Atom) {
	if _, dup := b.slots[atom]; dup || b.externs[atom] {
		return
	}
	b.slots[atom] = slot{BindFrame, int32(b.nmain + len(b.locals))}
	b.locals = append(b.locals, atom)
}

// collectLocals adds every set-word of body that is not already an
// argument, option, or extern word. body must be acyclic.
func (b *progBuilder) collectLocals(body []Cell) {
	for _, c := range body {
		switch {
		case c.typ == TypeSetWord:
			b.addLocal(c.atom)
		case c.typ == TypeBlock || c.typ == TypeParen:
			b.collectLocals(c.Cells())
		}
	}
}

// program assembles the final byte code.
func (b *progBuilder) program() (*ArgProgram, error) {
	if len(b.locals) > 255 {
		return nil, scriptError("too many function locals")
	}
	p := &ArgProgram{options: b.opts}
	if len(b.opts) > 0 {
		p.code = append(p.code, byte(opOptionRecord))
		p.slots++
	}
	p.code = append(p.code, b.main...)
	if n := len(b.locals); n > 0 {
		p.code = append(p.code, byte(opClearLocals), byte(n))
	}
	p.code = append(p.code, byte(opEnd))
	for n, oc := range b.optCode {
		if len(oc) == 0 {
			continue
		}
		p.options[n].Offset = len(p.code)
		p.code = append(p.code, oc...)
		p.code = append(p.code, byte(opEnd))
	}
	p.slots += b.nmain + len(b.locals) + b.nopt
	return p, nil
}

// NewNative builds a native function from a spec such as "jptr pth /root ptr".
func (vm *VM) NewNative(spec string, fn NativeFunc) (*Function, error) {
	blk, err := vm.Read(spec)
	if err != nil {
		return nil, err
	}
	cells := blk.cells
	if len(cells) == 0 || cells[0].typ != TypeWord {
		return nil, fmt.Errorf("native spec %q must start with a name", spec)
	}
	b, err := vm.compileSpec(cells[1:])
	if err != nil {
		return nil, fmt.Errorf("native %s: %w", vm.atoms.Name(cells[0].atom), err)
	}
	prog, err := b.program()
	if err != nil {
		return nil, err
	}
	return &Function{name: vm.atoms.Name(cells[0].atom), prog: prog, native: fn}, nil
}

// newUserFunc compiles spec, copies body, and binds the copy to the new
// function's frame.
func (vm *VM) newUserFunc(spec, body Cell) (*Function, error) {
	b, err := vm.compileSpec(spec.Cells())
	if err != nil {
		return nil, err
	}
	copied, err := NewBlock(body.Cells()...).deepCopy()
	if err != nil {
		return nil, err
	}
	b.collectLocals(copied.cells)
	prog, err := b.program()
	if err != nil {
		return nil, err
	}
	fn := &Function{prog: prog, body: copied}
	bindToFunction(fn.body, fn, b.slots)
	return fn, nil
}
