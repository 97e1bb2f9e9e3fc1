package vm

import "unicode/utf8"

// ---------------------------------------------------------------------------
// Path resolution
// ---------------------------------------------------------------------------

// resolvePath evaluates a path's head word and applies each selector in
// turn. Selection stops early at a function value; rest is then the index
// of the first unconsumed node, which the caller treats as option words.
func (i *Interpreter) resolvePath(p Cell) (v Cell, rest int, err error) {
	nodes := p.ser.cells
	start := p.pos
	if start >= len(nodes) {
		return Unset(), 0, scriptError("path must start with a word!/get-word!")
	}
	head := &nodes[start]
	if head.typ != TypeWord && head.typ != TypeGetWord {
		return Unset(), 0, scriptError("path must start with a word!/get-word!")
	}
	cell, err := i.lookup(head)
	if err != nil {
		return Unset(), 0, err
	}
	if cell.typ == TypeUnset {
		return Unset(), 0, scriptError("path word '%s is unset", i.vm.atoms.Name(head.atom))
	}
	v = *cell

	for k := start + 1; k < len(nodes); k++ {
		if v.typ == TypeNative || v.typ == TypeFunc {
			return v, k, nil
		}
		sel, err := i.selector(&nodes[k])
		if err != nil {
			return Unset(), 0, err
		}
		if v, err = i.selectValue(v, sel); err != nil {
			return Unset(), 0, err
		}
	}
	return v, len(nodes), nil
}

// selector returns the selecting value of a path node: words and integers
// select as themselves, get-words select by their value.
func (i *Interpreter) selector(node *Cell) (Cell, error) {
	switch node.typ {
	case TypeWord, TypeInt:
		return *node, nil
	case TypeGetWord:
		v, err := i.lookup(node)
		if err != nil {
			return Unset(), err
		}
		return *v, nil
	}
	return Unset(), scriptError("invalid path node %s", node.typ)
}

// selectValue applies one selector to v.
func (i *Interpreter) selectValue(v, sel Cell) (Cell, error) {
	switch v.typ {
	case TypeContext:
		if sel.typ.IsWord() {
			ctx := v.Context()
			if n := ctx.Lookup(sel.atom); n >= 0 {
				return *ctx.Cell(n), nil
			}
			return Unset(), scriptError("context has no word '%s", i.vm.atoms.Name(sel.atom))
		}

	case TypeBlock, TypeParen:
		cells := v.Cells()
		switch {
		case sel.typ == TypeInt:
			n := sel.n - 1
			if n < 0 || n >= int64(len(cells)) {
				return None(), nil
			}
			return cells[n], nil
		case sel.typ.IsWord():
			if n := findWord(cells, sel.atom); n >= 0 && n+1 < len(cells) {
				return cells[n+1], nil
			}
			return None(), nil
		}

	case TypeString:
		if sel.typ == TypeInt {
			text := v.Text()
			n := sel.n
			for _, r := range text {
				if n--; n == 0 {
					return Char(r), nil
				}
			}
			return None(), nil
		}
	}
	return Unset(), scriptError("cannot select %s with %s", v.typ, sel.typ)
}

func findWord(cells []Cell, atom Atom) int {
	for n, c := range cells {
		if c.typ.IsWord() && c.atom == atom {
			return n
		}
	}
	return -1
}

// setPath assigns v to the node a set-path addresses.
func (i *Interpreter) setPath(p Cell, v Cell) error {
	nodes := p.ser.cells[p.pos:]
	if len(nodes) < 2 {
		return scriptError("set-path needs a selector")
	}
	// Resolve every node but the last.
	parent := SeriesCell(TypePath, NewBlock(nodes[:len(nodes)-1]...), 0)
	container, rest, err := i.resolvePath(parent)
	if err != nil {
		return err
	}
	if rest != len(parent.ser.cells) {
		return scriptError("cannot set path through %s", container.typ)
	}
	sel, err := i.selector(&nodes[len(nodes)-1])
	if err != nil {
		return err
	}

	switch container.typ {
	case TypeContext:
		if sel.typ.IsWord() {
			ctx := container.Context()
			if ctx.Frozen() {
				return scriptError("context is protected")
			}
			if n := ctx.Lookup(sel.atom); n >= 0 {
				*ctx.Cell(n) = v
				return nil
			}
			return scriptError("context has no word '%s", i.vm.atoms.Name(sel.atom))
		}

	case TypeBlock, TypeParen:
		cells := container.Cells()
		switch {
		case sel.typ == TypeInt:
			n := sel.n - 1
			if n < 0 || n >= int64(len(cells)) {
				return scriptError("cannot set path: index %d out of range", sel.n)
			}
			cells[n] = v
			return nil
		case sel.typ.IsWord():
			if n := findWord(cells, sel.atom); n >= 0 && n+1 < len(cells) {
				cells[n+1] = v
				return nil
			}
			return scriptError("cannot set path: no value after '%s", i.vm.atoms.Name(sel.atom))
		}

	case TypeString:
		if sel.typ == TypeInt && v.typ == TypeChar {
			return setChar(container, sel.n, v.Char())
		}
	}
	return scriptError("cannot set path: %s with %s", container.typ, sel.typ)
}

// setChar replaces the n'th (1-based) character of a string cell.
func setChar(s Cell, n int64, r rune) error {
	text := s.ser.text[s.pos:]
	off := 0
	for ; n > 1 && off < len(text); n-- {
		_, size := utf8.DecodeRune(text[off:])
		off += size
	}
	if n != 1 || off >= len(text) {
		return scriptError("cannot set path: string index out of range")
	}
	_, size := utf8.DecodeRune(text[off:])
	buf := utf8.AppendRune(nil, r)
	out := append(append(append([]byte{}, text[:off]...), buf...), text[off+size:]...)
	s.ser.text = append(s.ser.text[:s.pos], out...)
	return nil
}
