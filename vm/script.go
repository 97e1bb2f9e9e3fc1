package vm

import (
	"errors"

	"github.com/zeebo/xxh3"
)

// ---------------------------------------------------------------------------
// Scripts: compiled source bound to one interpreter
// ---------------------------------------------------------------------------

// Script is source text read and bound to an interpreter's thread
// context. It can be run any number of times on that interpreter.
type Script struct {
	Source string
	block  Cell
	hash   uint64
}

// Compile reads and binds text. Compiled scripts are cached by source, so
// compiling the same expression again is a map lookup. A full cache is
// emptied before the next script is added; scripts already returned stay
// valid.
func (i *Interpreter) Compile(text string) (*Script, error) {
	h := xxh3.HashString(text)
	if s, ok := i.scripts[h]; ok && s.Source == text {
		return s, nil
	}
	blk, err := i.vm.Read(text)
	if err != nil {
		return nil, err
	}
	i.bindDefault(blk)
	s := &Script{Source: text, block: Block(blk), hash: h}
	if len(i.scripts) >= i.vm.cfg.MaxScripts {
		log.Debugf("script cache full, dropping %d scripts", len(i.scripts))
		clear(i.scripts)
	}
	i.scripts[h] = s
	log.Debugf("compiled script %016x (%d cells)", h, blk.Len())
	return s, nil
}

// CachedScripts returns the number of compiled scripts held.
func (i *Interpreter) CachedScripts() int { return len(i.scripts) }

// Run evaluates a compiled script. On failure the returned Result has
// KindError and the interpreter's exception state is reset, so it is
// ready for the next script.
func (i *Interpreter) Run(s *Script) (Result, error) {
	i.ResetException()
	i.stack[0] = Unset()
	i.sp = 1
	if err := i.pushDoBlock(s.block, &i.stack[0]); err != nil {
		return i.fail(err)
	}
	if err := i.run(0); err != nil {
		return i.fail(err)
	}
	v := i.stack[0]
	i.sp = 0
	return newResult(i.vm, v), nil
}

// Evaluate compiles and runs text.
func (i *Interpreter) Evaluate(text string) (Result, error) {
	s, err := i.Compile(text)
	if err != nil {
		var e *Error
		if !errors.As(err, &e) {
			e = scriptError("%v", err)
		}
		return Result{Kind: KindError, Err: e, vm: i.vm}, e
	}
	return i.Run(s)
}

func (i *Interpreter) fail(err error) (Result, error) {
	var e *Error
	if !errors.As(err, &e) {
		e = internalError("%v", err)
	}
	log.Debugf("evaluation failed: %s", e)
	i.ResetException()
	return Result{Kind: KindError, Value: ErrorCell(e), Err: e, vm: i.vm}, e
}
