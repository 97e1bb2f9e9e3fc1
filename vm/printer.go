package vm

import (
	"strconv"
	"strings"
)

// Form renders a value as plain text: strings and chars without quotes,
// blocks as their space-separated contents.
func (vm *VM) Form(c Cell) string {
	var sb strings.Builder
	vm.write(&sb, c, false, openSet{})
	return sb.String()
}

// Mold renders a value as source text that reads back as the same value.
func (vm *VM) Mold(c Cell) string {
	var sb strings.Builder
	vm.write(&sb, c, true, openSet{})
	return sb.String()
}

// openSet holds the series and contexts being written. One that is
// reached again from inside itself is written as an ellipsis.
type openSet map[any]bool

func (vm *VM) write(sb *strings.Builder, c Cell, mold bool, open openSet) {
	var key any
	switch {
	case c.typ.IsBlock():
		key = c.ser
	case c.typ == TypeContext:
		key = c.ref
	}
	if key != nil {
		if open[key] {
			sb.WriteString("[...]")
			return
		}
		open[key] = true
		defer delete(open, key)
	}

	switch c.typ {
	case TypeUnset:
		if mold {
			sb.WriteString("unset")
		}
	case TypeNone:
		sb.WriteString("none")
	case TypeLogic:
		sb.WriteString(strconv.FormatBool(c.n != 0))
	case TypeChar:
		if mold {
			sb.WriteByte('\'')
			writeEscaped(sb, string(rune(c.n)), '\'')
			sb.WriteByte('\'')
		} else {
			sb.WriteRune(rune(c.n))
		}
	case TypeInt:
		sb.WriteString(strconv.FormatInt(c.n, 10))
	case TypeDouble:
		sb.WriteString(formatDouble(c.f))
	case TypeWord:
		sb.WriteString(vm.atoms.Name(c.atom))
	case TypeLitWord:
		sb.WriteByte('\'')
		sb.WriteString(vm.atoms.Name(c.atom))
	case TypeSetWord:
		sb.WriteString(vm.atoms.Name(c.atom))
		sb.WriteByte(':')
	case TypeGetWord:
		sb.WriteByte(':')
		sb.WriteString(vm.atoms.Name(c.atom))
	case TypeOption:
		sb.WriteByte('/')
		sb.WriteString(vm.atoms.Name(c.atom))
	case TypeString:
		if mold {
			sb.WriteByte('"')
			writeEscaped(sb, c.Text(), '"')
			sb.WriteByte('"')
		} else {
			sb.WriteString(c.Text())
		}
	case TypeBlock:
		if mold {
			sb.WriteByte('[')
		}
		vm.writeCells(sb, c.Cells(), " ", mold, open)
		if mold {
			sb.WriteByte(']')
		}
	case TypeParen:
		sb.WriteByte('(')
		vm.writeCells(sb, c.Cells(), " ", mold, open)
		sb.WriteByte(')')
	case TypePath:
		vm.writeCells(sb, c.Cells(), "/", true, open)
	case TypeLitPath:
		sb.WriteByte('\'')
		vm.writeCells(sb, c.Cells(), "/", true, open)
	case TypeSetPath:
		vm.writeCells(sb, c.Cells(), "/", true, open)
		sb.WriteByte(':')
	case TypeDatatype:
		sb.WriteString(c.Mask().String())
	case TypeContext:
		ctx := c.Context()
		sb.WriteString("context [")
		for n := 0; n < ctx.Len(); n++ {
			if n > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(vm.atoms.Name(ctx.AtomAt(n)))
			sb.WriteString(": ")
			vm.write(sb, *ctx.Cell(n), true, open)
		}
		sb.WriteByte(']')
	case TypeNative:
		sb.WriteString("native!")
	case TypeFunc:
		sb.WriteString("func!")
	case TypeError:
		sb.WriteString(c.Err().Error())
	case TypeJSONValue:
		if b, err := c.Node().MarshalJSON(); err == nil {
			sb.Write(b)
		}
	default:
		sb.WriteString(c.typ.String())
	}
}

func (vm *VM) writeCells(sb *strings.Builder, cells []Cell, sep string, mold bool, open openSet) {
	for n, c := range cells {
		if n > 0 {
			sb.WriteString(sep)
		}
		vm.write(sb, c, mold, open)
	}
}

// moldNear renders up to three cells around position it, for error traces.
func (vm *VM) moldNear(blk *Series, it, end int) string {
	from := it - 1
	if from < 0 {
		from = 0
	}
	to := from + 3
	if to > end {
		to = end
	}
	if from >= to {
		return ""
	}
	var sb strings.Builder
	vm.writeCells(&sb, blk.cells[from:to], " ", true, openSet{blk: true})
	return sb.String()
}

// formatDouble prints integral values with a trailing .0 so they read
// back as doubles.
func formatDouble(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEnI") {
		s += ".0"
	}
	return s
}

func writeEscaped(sb *strings.Builder, s string, quote rune) {
	for _, r := range s {
		switch r {
		case '\n':
			sb.WriteString("^/")
		case '\t':
			sb.WriteString("^-")
		case '^', quote:
			sb.WriteByte('^')
			sb.WriteRune(r)
		default:
			sb.WriteRune(r)
		}
	}
}
