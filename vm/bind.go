package vm

// ---------------------------------------------------------------------------
// Word binding
// ---------------------------------------------------------------------------

// Binding says where a word cell finds its value.
type Binding uint8

const (
	BindUnbound   Binding = iota
	BindContext           // entry `index` of the context in ref
	BindFrame             // stack slot `index` of the active call of the function in ref
	BindOption            // flag of option `index` of the function in ref
	BindOptionArg         // argument index&0xff of option index>>8
)

// binder resolves a bound word to the cell it currently denotes.
type binder interface {
	resolve(i *Interpreter, w *Cell) (*Cell, error)
}

var binders = [...]binder{
	BindUnbound:   unboundBinder{},
	BindContext:   contextBinder{},
	BindFrame:     frameBinder{},
	BindOption:    optionBinder{},
	BindOptionArg: optionArgBinder{},
}

type unboundBinder struct{}

func (unboundBinder) resolve(i *Interpreter, w *Cell) (*Cell, error) {
	return nil, scriptError("word '%s is unbound", i.vm.atoms.Name(w.atom))
}

type contextBinder struct{}

func (contextBinder) resolve(i *Interpreter, w *Cell) (*Cell, error) {
	return w.ref.(*Context).Cell(int(w.index)), nil
}

// activeArgs finds the argument base of the innermost active call of fn.
func (i *Interpreter) activeArgs(w *Cell) (int, error) {
	fn := w.ref.(*Function)
	for k := len(i.stackMap) - 1; k >= 0; k-- {
		if i.stackMap[k].fn == fn {
			return i.stackMap[k].argsPos, nil
		}
	}
	return 0, scriptError("word '%s is not in an active function", i.vm.atoms.Name(w.atom))
}

type frameBinder struct{}

func (frameBinder) resolve(i *Interpreter, w *Cell) (*Cell, error) {
	base, err := i.activeArgs(w)
	if err != nil {
		return nil, err
	}
	return &i.stack[base+int(w.index)], nil
}

type optionBinder struct{}

func (optionBinder) resolve(i *Interpreter, w *Cell) (*Cell, error) {
	base, err := i.activeArgs(w)
	if err != nil {
		return nil, err
	}
	rec := i.stack[base-1].ref.(*optionRecord)
	i.scratch = Logic(rec.has(int(w.index)))
	return &i.scratch, nil
}

type optionArgBinder struct{}

func (optionArgBinder) resolve(i *Interpreter, w *Cell) (*Cell, error) {
	base, err := i.activeArgs(w)
	if err != nil {
		return nil, err
	}
	rec := i.stack[base-1].ref.(*optionRecord)
	opt, n := int(w.index>>8), int(w.index&0xff)
	if !rec.has(opt) {
		i.scratch = None()
		return &i.scratch, nil
	}
	return &i.stack[base+int(rec.pos[opt])+n], nil
}

// lookup returns the cell a word denotes.
func (i *Interpreter) lookup(w *Cell) (*Cell, error) {
	return binders[w.bind].resolve(i, w)
}

// setWord stores v through a word. Words of the shared environment are
// read-only.
func (i *Interpreter) setWord(w *Cell, v Cell) error {
	if w.bind == BindContext && w.ref.(*Context).Frozen() {
		return scriptError("word '%s is protected", i.vm.atoms.Name(w.atom))
	}
	p, err := i.lookup(w)
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// ---------------------------------------------------------------------------
// Binding blocks
// ---------------------------------------------------------------------------

// bindDefault binds the words of blk for evaluation on this thread:
// words already in the thread context bind there; set-words are added to
// it; other words bind to the shared environment if defined there, or to
// a new unset thread entry.
func (i *Interpreter) bindDefault(blk *Series) {
	env := i.vm.env
	for k := range blk.cells {
		c := &blk.cells[k]
		switch {
		case c.typ == TypeOption:
		case c.typ.IsWord():
			if n := i.ctx.Lookup(c.atom); n >= 0 {
				bindTo(c, i.ctx, n)
			} else if c.typ == TypeSetWord {
				bindTo(c, i.ctx, i.ctx.Append(c.atom))
			} else if n := env.Lookup(c.atom); n >= 0 {
				bindTo(c, env, n)
			} else {
				bindTo(c, i.ctx, i.ctx.Append(c.atom))
			}
		case c.typ.IsBlock():
			i.bindDefault(c.ser)
		}
	}
}

func bindTo(c *Cell, ctx *Context, n int) {
	c.bind = BindContext
	c.ref = ctx
	c.index = int32(n)
}

// bindToContext rebinds the words of blk whose atoms are in ctx.
func bindToContext(blk *Series, ctx *Context) {
	for k := range blk.cells {
		c := &blk.cells[k]
		switch {
		case c.typ == TypeOption:
		case c.typ.IsWord():
			if n := ctx.Lookup(c.atom); n >= 0 {
				bindTo(c, ctx, n)
			}
		case c.typ.IsBlock():
			bindToContext(c.ser, ctx)
		}
	}
}

// bindToFunction binds the words of a function body to its arguments,
// locals, and options.
func bindToFunction(blk *Series, fn *Function, slots map[Atom]slot) {
	for k := range blk.cells {
		c := &blk.cells[k]
		switch {
		case c.typ == TypeOption:
		case c.typ.IsWord():
			if s, ok := slots[c.atom]; ok {
				c.bind = s.bind
				c.index = s.index
				c.ref = fn
			}
		case c.typ.IsBlock():
			bindToFunction(c.ser, fn, slots)
		}
	}
}
