package vm

import (
	"encoding/binary"
	"errors"
	"time"

	"github.com/chazu/kutes/jsondoc"
)

// ---------------------------------------------------------------------------
// Interpreter: per-thread evaluation state
// ---------------------------------------------------------------------------

// stackMapEntry records where the arguments of an active user function
// call live, so frame-bound words in its body can find them.
type stackMapEntry struct {
	fn      *Function
	argsPos int
	frame   int
}

// Interpreter evaluates scripts against one thread context. It is not
// safe for concurrent use; give each goroutine its own Interpreter.
type Interpreter struct {
	vm  *VM
	ctx *Context // thread context: script words

	// Execution state
	stack    []Cell      // operand stack (fixed size)
	sp       int         // next free slot
	frames   []EvalFrame // frame stack (fixed capacity)
	stackMap []stackMapEntry

	exception Cell // current exception, unset when none
	scratch   Cell // target for option-flag lookups

	root      *jsondoc.Node // ambient JSON root
	rootEntry int           // thread context entry of the jroot word
	clock     func() time.Time
	scripts   map[uint64]*Script
}

// NewInterpreter creates an interpreter sharing vm's natives. The VM's
// environment is frozen on first use.
func (vm *VM) NewInterpreter() *Interpreter {
	vm.Freeze()
	i := &Interpreter{
		vm:      vm,
		ctx:     NewContext(64),
		stack:   make([]Cell, vm.cfg.MaxStack),
		frames:  make([]EvalFrame, 0, vm.cfg.MaxFrames),
		clock:   time.Now,
		scripts: make(map[uint64]*Script),
	}
	i.rootEntry = i.ctx.Append(vm.atoms.Intern("jroot"))
	return i
}

// VM returns the environment the interpreter runs in.
func (i *Interpreter) VM() *VM { return i.vm }

// Context returns the thread context holding script words.
func (i *Interpreter) Context() *Context { return i.ctx }

// SetClock replaces the time source used by now.
func (i *Interpreter) SetClock(clock func() time.Time) { i.clock = clock }

// SetRoot sets the ambient JSON document used by pointer-taking natives
// and exposed to scripts as jroot.
func (i *Interpreter) SetRoot(n *jsondoc.Node) {
	i.root = n
	*i.ctx.Cell(i.rootEntry) = JSONValue(n)
}

// Root returns the ambient JSON document.
func (i *Interpreter) Root() *jsondoc.Node { return i.root }

// Exception returns the current exception cell; unset when none.
func (i *Interpreter) Exception() Cell { return i.exception }

// ResetException clears the exception and any frames left by a failed
// evaluation.
func (i *Interpreter) ResetException() {
	i.exception = Unset()
	i.truncateFrames(0)
	i.sp = 0
}

// StackDepth returns the operand stack height.
func (i *Interpreter) StackDepth() int { return i.sp }

// FrameDepth returns the frame stack height.
func (i *Interpreter) FrameDepth() int { return len(i.frames) }

// ---------------------------------------------------------------------------
// Main interpreter loop
// ---------------------------------------------------------------------------

// run processes frames until the frame stack drops to base.
func (i *Interpreter) run(base int) error {
	for len(i.frames) > base {
		f := i.topFrame()
		var err error

		switch f.kind {
		case frameDoBlock, frameFuncBody:
			if f.it >= f.end {
				i.finishBlock(f)
				continue
			}
			f.it, err = i.eval1(f.block, f.it, f.end, f.result)

		case frameReduce:
			if f.it >= f.end {
				i.sp = f.origStack
				i.popFrame()
				continue
			}
			// No other frame appends to out until this value is stored.
			f.out.cells = append(f.out.cells, Unset())
			f.it, err = i.eval1(f.block, f.it, f.end, &f.out.cells[len(f.out.cells)-1])

		case frameSet:
			err = i.applySet(f)
			if err == nil {
				i.sp = f.origStack
				i.popFrame()
			}

		case frameCatch:
			// Guarded frames finished without an exception.
			i.sp = f.origStack
			i.truncateFrames(len(i.frames) - f.state)

		case frameInvoke:
			var done bool
			done, err = f.invoke(i, f)
			if err == nil && done {
				i.sp = f.origStack
				i.popFrame()
			}

		case frameCallNative, frameCallUser:
			err = i.runCall(f)

		case frameOptionIter:
			// The call above consumed its options and is gone.
			i.popFrame()
		}

		if err != nil {
			if err = i.unwind(err, base); err != nil {
				return err
			}
		}
	}
	return nil
}

// finishBlock ends a DoBlock or FuncBody frame whose cells are exhausted.
func (i *Interpreter) finishBlock(f *EvalFrame) {
	i.sp = f.origStack
	n := len(i.frames) - 1
	if f.kind == frameFuncBody && n > 0 && i.frames[n-1].kind == frameOptionIter {
		n--
	}
	i.truncateFrames(n)
}

// eval1 evaluates the value at it, storing it in res, and returns the
// position after it. Values that need more work push frames and store into
// res once those frames finish.
func (i *Interpreter) eval1(blk *Series, it, end int, res *Cell) (int, error) {
	cells := blk.cells
	c := &cells[it]

	switch c.typ {
	case TypeWord:
		v, err := i.lookup(c)
		if err != nil {
			return it, err
		}
		switch v.typ {
		case TypeNative, TypeFunc:
			return it + 1, i.pushCall(v.ref.(*Function), res)
		case TypeUnset:
			return it, scriptError("unset word '%s", i.vm.atoms.Name(c.atom))
		}
		*res = *v

	case TypeLitWord:
		*res = c.withType(TypeWord)

	case TypeGetWord:
		v, err := i.lookup(c)
		if err != nil {
			return it, err
		}
		*res = *v

	case TypeSetWord, TypeSetPath:
		start := it
		for it < end && (cells[it].typ == TypeSetWord || cells[it].typ == TypeSetPath) {
			it++
		}
		if it == end {
			return it, scriptError("end of block")
		}
		f, err := i.pushFrame(frameSet)
		if err != nil {
			return it, err
		}
		f.block, f.it, f.end = blk, start, it
		f.result = res
		return i.eval1(blk, it, end, res)

	case TypeParen:
		if err := i.pushDoBlock(*c, res); err != nil {
			return it, err
		}

	case TypePath:
		v, rest, err := i.resolvePath(*c)
		if err != nil {
			return it, err
		}
		if v.typ == TypeNative || v.typ == TypeFunc {
			ser := c.ser
			if rest < len(ser.cells) {
				f, err := i.pushFrame(frameOptionIter)
				if err != nil {
					return it, err
				}
				f.block, f.it, f.end = ser, rest, len(ser.cells)
			}
			return it + 1, i.pushCall(v.ref.(*Function), res)
		}
		*res = v

	case TypeLitPath:
		*res = c.withType(TypePath)

	case TypeNative, TypeFunc:
		return it + 1, i.pushCall(c.ref.(*Function), res)

	default:
		*res = *c
	}
	return it + 1, nil
}

// pushCall starts argument collection for fn.
func (i *Interpreter) pushCall(fn *Function, res *Cell) error {
	if i.sp+fn.prog.slots > len(i.stack) {
		return scriptError("stack overflow")
	}
	kind := frameCallUser
	if fn.native != nil {
		kind = frameCallNative
	}
	f, err := i.pushFrame(kind)
	if err != nil {
		return err
	}
	f.fn = fn
	f.result = res
	f.argsPos = i.sp
	return nil
}

func (i *Interpreter) push(c Cell) {
	i.stack[i.sp] = c
	i.sp++
}

// runCall steps the argument program of the call frame f. It returns with
// f still on top when an argument pushed frames that must finish first.
func (i *Interpreter) runCall(f *EvalFrame) error {
	code := f.fn.prog.code
	for {
		op := opcode(code[f.pc])
		f.pc++

		switch op {
		case opFetchArg:
			df := i.sourceFrame(len(i.frames) - 1)
			if df == nil || df.it >= df.end {
				return scriptError("end of block")
			}
			i.push(Unset())
			depth := len(i.frames)
			next, err := i.eval1(df.block, df.it, df.end, &i.stack[i.sp-1])
			df.it = next
			if err != nil {
				return err
			}
			if len(i.frames) > depth {
				return nil
			}

		case opLitArg:
			df := i.sourceFrame(len(i.frames) - 1)
			if df == nil || df.it >= df.end {
				return scriptError("end of block")
			}
			i.push(df.block.cells[df.it])
			df.it++

		case opCheckType:
			t := Type(code[f.pc])
			f.pc++
			if top := i.stack[i.sp-1]; top.typ != t {
				return i.argTypeError(f, top)
			}

		case opCheckTypeMask:
			m := TypeMask(binary.LittleEndian.Uint64(code[f.pc:]))
			f.pc += 8
			if top := i.stack[i.sp-1]; !m.Has(top.typ) {
				return i.argTypeError(f, top)
			}

		case opOptionRecord:
			i.push(Cell{typ: TypeUnset, ref: &optionRecord{}})
			f.argsPos = i.sp

		case opVariant:
			i.push(Int(int64(code[f.pc])))
			f.pc++

		case opClearLocals:
			n := int(code[f.pc])
			f.pc++
			for ; n > 0; n-- {
				i.push(None())
			}

		case opEnd:
			more, err := i.recordOptions(f)
			if err != nil {
				return err
			}
			if !more {
				return i.dispatch(f)
			}
		}
	}
}

// recordOptions consumes option words left in the call path. It returns
// true after pointing f.pc at an option's argument fetches.
func (i *Interpreter) recordOptions(f *EvalFrame) (bool, error) {
	n := len(i.frames) - 2
	if n < 0 || i.frames[n].kind != frameOptionIter {
		return false, nil
	}
	oi := &i.frames[n]
	prog := f.fn.prog
	for oi.it < oi.end {
		node := oi.block.cells[oi.it]
		oi.it++
		if node.typ != TypeWord {
			return false, scriptError("invalid option %s", i.vm.Mold(node))
		}
		idx := prog.optionIndex(node.atom)
		if idx < 0 {
			return false, scriptError("invalid option %s", i.vm.atoms.Name(node.atom))
		}
		rec := i.stack[f.argsPos-1].ref.(*optionRecord)
		if rec.has(idx) {
			return false, scriptError("invalid option %s", i.vm.atoms.Name(node.atom))
		}
		rec.flags |= 1 << idx
		if off := prog.options[idx].Offset; off > 0 {
			rec.pos[idx] = uint16(i.sp - f.argsPos)
			f.pc = off
			return true, nil
		}
	}
	return false, nil
}

func (i *Interpreter) argTypeError(f *EvalFrame, got Cell) error {
	n := i.sp - f.argsPos
	e := typeError("unexpected %s for argument %d", got.typ, n)
	e.ArgN = n
	return e
}

// dispatch runs a native once its arguments are collected, or turns a
// user call frame into the function's body frame.
func (i *Interpreter) dispatch(f *EvalFrame) error {
	fn := f.fn
	var rec *optionRecord
	if len(fn.prog.options) > 0 {
		rec = i.stack[f.argsPos-1].ref.(*optionRecord)
	}

	if fn.native != nil {
		err := fn.native(i, Args{cells: i.stack[f.argsPos:i.sp], opts: rec}, f.result)
		if err == errReframed {
			return nil
		}
		if err != nil {
			return err
		}
		i.finishCall(f)
		return nil
	}

	if fn.usesStack() {
		i.stackMap = append(i.stackMap, stackMapEntry{fn: fn, argsPos: f.argsPos, frame: len(i.frames) - 1})
	}
	f.kind = frameFuncBody
	f.block, f.it, f.end = fn.body, 0, len(fn.body.cells)
	*f.result = Unset()
	return nil
}

// applySet stores the Set frame's value into each pending target.
func (i *Interpreter) applySet(f *EvalFrame) error {
	v := *f.result
	for k := f.it; k < f.end; k++ {
		target := f.block.cells[k]
		var err error
		if target.typ == TypeSetWord {
			err = i.setWord(&target, v)
		} else {
			err = i.setPath(target, v)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Unwinding
// ---------------------------------------------------------------------------

// unwind walks the frame stack from the top looking for a frame that
// absorbs err. It returns nil when evaluation can resume, or the error to
// hand back to the host after discarding every frame above base.
func (i *Interpreter) unwind(err error, base int) error {
	i.exception = exceptionCell(err)
	internal := isInternal(err)
	where := ""

	for k := len(i.frames) - 1; k >= base; k-- {
		f := &i.frames[k]
		if where == "" && (f.kind == frameDoBlock || f.kind == frameFuncBody) {
			where = i.vm.moldNear(f.block, f.it, f.end)
		}
		if internal {
			continue
		}
		switch f.kind {
		case frameCatch:
			if err == errReturn {
				continue
			}
			if f.catch(i, f, i.exception) {
				i.sp = f.origStack
				i.truncateFrames(k + 1 - f.state)
				i.exception = Unset()
				return nil
			}
		case frameFuncBody:
			if err == errReturn {
				i.truncateFrames(k + 1)
				i.finishBlock(f)
				i.exception = Unset()
				return nil
			}
		}
	}

	i.truncateFrames(base)
	var t *thrown
	var e *Error
	switch {
	case errors.As(err, &t):
		e = &Error{Kind: ErrThrow, Message: "uncaught throw " + i.vm.Mold(t.value), Value: t.value}
	case errors.As(err, &e):
		if e.Where == "" {
			e.Where = where
		}
	default:
		e = internalError("%v", err)
	}
	return e
}
