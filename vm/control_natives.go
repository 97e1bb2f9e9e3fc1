package vm

import "strings"

// ---------------------------------------------------------------------------
// Control natives
// ---------------------------------------------------------------------------

func (vm *VM) registerControlNatives() {
	vm.mustDefine("do value", nativeDo)
	vm.mustDefine("if test body", nativeIf)
	vm.mustDefine("either test a b", nativeEither)
	vm.mustDefine("while cond block! body block!", nativeWhile)
	vm.mustDefine("value? w", nativeValueQ)
	vm.mustDefine("join a b", nativeJoin)
	vm.mustDefine("reduce blk block!", nativeReduce)
	vm.mustDefine("catch body block!", nativeCatch)
	vm.mustDefine("try body block!", nativeTry)
	vm.mustDefine("throw value", nativeThrow)
	vm.mustDefine("func spec block! body block!", nativeFunc)
	vm.mustDefine("does body block!", nativeDoes)
	vm.mustDefine("return value", nativeReturn)
	vm.mustDefine("not value", nativeNot)
	vm.mustDefine("equal? a b", nativeEqualQ)
	vm.mustDefine("++ 'w word!", nativeIncr)
	vm.mustDefine("-- 'w word!", nativeDecr)
	vm.mustDefine("set w value", nativeSet)
	vm.mustDefine("get w", nativeGet)
	vm.mustDefine("context blk block!", nativeContext)
	vm.mustDefine("type? value", nativeTypeQ)
	vm.mustDefine("form value", nativeForm)
	vm.mustDefine("mold value", nativeMold)
}

// do evaluates a block or paren in place of the call; any other value is
// its own result.
func nativeDo(i *Interpreter, a Args, res *Cell) error {
	v := *a.At(0)
	if v.typ != TypeBlock && v.typ != TypeParen {
		*res = v
		return nil
	}
	i.replaceCall()
	if err := i.pushDoBlock(v, res); err != nil {
		return err
	}
	return errReframed
}

// doBranch runs a branch chosen by a conditional. Non-block branches are
// returned as values.
func doBranch(i *Interpreter, branch Cell, res *Cell) error {
	if branch.typ != TypeBlock {
		*res = branch
		return nil
	}
	i.replaceCall()
	if err := i.pushDoBlock(branch, res); err != nil {
		return err
	}
	return errReframed
}

// if runs body when test is truthy. When body is not a block it is a
// pattern: the block following it runs when test equals the pattern.
func nativeIf(i *Interpreter, a Args, res *Cell) error {
	test, body := *a.At(0), *a.At(1)
	if body.typ == TypeBlock {
		if !test.Truthy() {
			*res = None()
			return nil
		}
		return doBranch(i, body, res)
	}

	src := i.sourceFrame(len(i.frames) - 1)
	if src == nil || src.it >= src.end {
		return scriptError("end of block")
	}
	branch := src.block.cells[src.it]
	if branch.typ != TypeBlock {
		e := typeError("unexpected %s for argument 3", branch.typ)
		e.ArgN = 3
		return e
	}
	src.it++
	if !Equal(test, body) {
		*res = None()
		return nil
	}
	return doBranch(i, branch, res)
}

func nativeEither(i *Interpreter, a Args, res *Cell) error {
	if a.At(0).Truthy() {
		return doBranch(i, *a.At(1), res)
	}
	return doBranch(i, *a.At(2), res)
}

// while alternates between its condition and body blocks. The Invoke
// frame keeps both in data; tmp receives each condition value.
func nativeWhile(i *Interpreter, a Args, res *Cell) error {
	cond, body := *a.At(0), *a.At(1)
	i.replaceCall()
	f, err := i.pushInvoke(whileStep, res)
	if err != nil {
		return err
	}
	f.data[0], f.data[1] = cond, body
	*res = Unset()
	return errReframed
}

func whileStep(i *Interpreter, f *EvalFrame) (bool, error) {
	if f.state == 0 {
		f.state = 1
		return false, i.pushDoBlock(f.data[0], &f.tmp)
	}
	if !f.tmp.Truthy() {
		return true, nil
	}
	f.state = 0
	return false, i.pushDoBlock(f.data[1], f.result)
}

// value? reports whether a word holds a value.
func nativeValueQ(i *Interpreter, a Args, res *Cell) error {
	w := a.At(0)
	if !w.typ.IsWord() {
		*res = Logic(w.typ != TypeUnset)
		return nil
	}
	v, err := i.lookup(w)
	*res = Logic(err == nil && v.typ != TypeUnset)
	return nil
}

// join appends the form of b to a. A block b is reduced first.
func nativeJoin(i *Interpreter, a Args, res *Cell) error {
	first, second := *a.At(0), *a.At(1)
	if second.typ != TypeBlock {
		*res = i.joinValues(first, []Cell{second})
		return nil
	}
	i.replaceCall()
	f, err := i.pushInvoke(joinStep, res)
	if err != nil {
		return err
	}
	out := NewSeries(len(second.Cells()))
	f.data[0], f.tmp = first, Block(out)
	if err := i.pushReduce(second, out); err != nil {
		return err
	}
	return errReframed
}

func joinStep(i *Interpreter, f *EvalFrame) (bool, error) {
	*f.result = i.joinValues(f.data[0], f.tmp.Cells())
	return true, nil
}

// joinValues builds a new series of a's type. Blocks gain the values as
// cells; anything else becomes a string of formed values.
func (i *Interpreter) joinValues(a Cell, vals []Cell) Cell {
	if a.typ == TypeBlock {
		out := NewBlock(append(append([]Cell{}, a.Cells()...), vals...)...)
		return Block(out)
	}
	var sb strings.Builder
	open := openSet{}
	i.vm.write(&sb, a, false, open)
	for _, v := range vals {
		i.vm.write(&sb, v, false, open)
	}
	return String(sb.String())
}

func nativeReduce(i *Interpreter, a Args, res *Cell) error {
	blk := *a.At(0)
	out := NewSeries(len(blk.Cells()))
	i.replaceCall()
	*res = Block(out)
	if err := i.pushReduce(blk, out); err != nil {
		return err
	}
	return errReframed
}

// catch evaluates body and absorbs a thrown value, which becomes the
// result. Errors pass through.
func nativeCatch(i *Interpreter, a Args, res *Cell) error {
	return i.guard(*a.At(0), res, func(i *Interpreter, f *EvalFrame, exc Cell) bool {
		if exc.typ == TypeError {
			return false
		}
		*f.result = exc
		return true
	})
}

// try evaluates body and absorbs type and script errors, which become the
// result as error! values.
func nativeTry(i *Interpreter, a Args, res *Cell) error {
	return i.guard(*a.At(0), res, func(i *Interpreter, f *EvalFrame, exc Cell) bool {
		if exc.typ != TypeError {
			return false
		}
		*f.result = exc
		return true
	})
}

// guard replaces the call with a Catch frame over a DoBlock of body.
func (i *Interpreter) guard(body Cell, res *Cell, fn catchFunc) error {
	i.replaceCall()
	if _, err := i.pushCatch(fn, res); err != nil {
		return err
	}
	if err := i.pushDoBlock(body, res); err != nil {
		return err
	}
	return errReframed
}

func nativeThrow(i *Interpreter, a Args, res *Cell) error {
	return &thrown{value: *a.At(0)}
}

func nativeFunc(i *Interpreter, a Args, res *Cell) error {
	fn, err := i.vm.newUserFunc(*a.At(0), *a.At(1))
	if err != nil {
		return err
	}
	*res = FuncCell(fn)
	return nil
}

func nativeDoes(i *Interpreter, a Args, res *Cell) error {
	fn, err := i.vm.newUserFunc(Block(NewSeries(0)), *a.At(0))
	if err != nil {
		return err
	}
	*res = FuncCell(fn)
	return nil
}

// return stores its value as the result of the innermost function body
// and unwinds to it.
func nativeReturn(i *Interpreter, a Args, res *Cell) error {
	for k := len(i.frames) - 1; k >= 0; k-- {
		if f := &i.frames[k]; f.kind == frameFuncBody {
			*f.result = *a.At(0)
			return errReturn
		}
	}
	return scriptError("return outside of function")
}

func nativeNot(i *Interpreter, a Args, res *Cell) error {
	*res = Logic(!a.At(0).Truthy())
	return nil
}

func nativeEqualQ(i *Interpreter, a Args, res *Cell) error {
	*res = Logic(Equal(*a.At(0), *a.At(1)))
	return nil
}

func nativeIncr(i *Interpreter, a Args, res *Cell) error { return i.step(a.At(0), 1, res) }
func nativeDecr(i *Interpreter, a Args, res *Cell) error { return i.step(a.At(0), -1, res) }

// step adds delta to the number held by word w. The result is the old
// value.
func (i *Interpreter) step(w *Cell, delta int64, res *Cell) error {
	p, err := i.lookup(w)
	if err != nil {
		return err
	}
	old := *p
	var v Cell
	switch old.typ {
	case TypeInt:
		v = Int(old.n + delta)
	case TypeDouble:
		v = Double(old.f + float64(delta))
	case TypeChar:
		v = Char(rune(old.n + delta))
	default:
		return typeError("cannot step %s '%s", old.typ, i.vm.atoms.Name(w.atom))
	}
	if err := i.setWord(w, v); err != nil {
		return err
	}
	*res = old
	return nil
}

// set assigns value to a word, or to each word of a block. A block value
// assigned to a block of words is spread across them.
func nativeSet(i *Interpreter, a Args, res *Cell) error {
	w, v := *a.At(0), *a.At(1)
	switch {
	case w.typ.IsWord():
		if err := i.setWord(&w, v); err != nil {
			return err
		}
	case w.typ == TypeBlock:
		words := w.Cells()
		for n := range words {
			if !words[n].typ.IsWord() {
				return typeError("set expected word! in block, got %s", words[n].typ)
			}
			val := v
			if v.typ == TypeBlock {
				vals := v.Cells()
				val = None()
				if n < len(vals) {
					val = vals[n]
				}
			}
			if err := i.setWord(&words[n], val); err != nil {
				return err
			}
		}
	default:
		return typeError("unexpected %s for argument 1", w.typ)
	}
	*res = v
	return nil
}

func nativeGet(i *Interpreter, a Args, res *Cell) error {
	w := a.At(0)
	if !w.typ.IsWord() {
		return typeError("unexpected %s for argument 1", w.typ)
	}
	v, err := i.lookup(w)
	if err != nil {
		return err
	}
	*res = *v
	return nil
}

// context makes a new context holding the block's top-level set-words,
// evaluates the block bound to it, and returns the context.
func nativeContext(i *Interpreter, a Args, res *Cell) error {
	src := a.At(0)
	ctx := NewContext(8)
	for _, c := range src.Cells() {
		if c.typ == TypeSetWord {
			ctx.Intern(c.atom)
		}
	}
	body, err := NewBlock(src.Cells()...).deepCopy()
	if err != nil {
		return err
	}
	bindToContext(body, ctx)

	i.replaceCall()
	f, err := i.pushInvoke(contextStep, res)
	if err != nil {
		return err
	}
	f.data[0] = ContextCell(ctx)
	if err := i.pushDoBlock(Block(body), &f.tmp); err != nil {
		return err
	}
	return errReframed
}

func contextStep(i *Interpreter, f *EvalFrame) (bool, error) {
	*f.result = f.data[0]
	return true, nil
}

func nativeTypeQ(i *Interpreter, a Args, res *Cell) error {
	*res = Datatype(MaskOf(a.At(0).typ))
	return nil
}

func nativeForm(i *Interpreter, a Args, res *Cell) error {
	*res = String(i.vm.Form(*a.At(0)))
	return nil
}

func nativeMold(i *Interpreter, a Args, res *Cell) error {
	*res = String(i.vm.Mold(*a.At(0)))
	return nil
}
