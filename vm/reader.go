package vm

import (
	"errors"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/chazu/kutes/compiler"
)

// Read tokenizes text into an unbound block.
func (vm *VM) Read(text string) (*Series, error) {
	toks, err := compiler.Tokenize(text)
	if err != nil {
		var se *compiler.SyntaxError
		if errors.As(err, &se) {
			return nil, scriptError("syntax error at %s: %s", se.Pos, se.Msg)
		}
		return nil, scriptError("%v", err)
	}
	r := &reader{vm: vm, toks: toks}
	blk, err := r.block(compiler.TokenEOF)
	if err != nil {
		return nil, err
	}
	return blk, nil
}

type reader struct {
	vm   *VM
	toks []compiler.Token
	pos  int
}

// block reads cells until the closing token.
func (r *reader) block(end compiler.TokenType) (*Series, error) {
	out := NewSeries(8)
	for {
		tok := r.toks[r.pos]
		r.pos++

		switch tok.Type {
		case end:
			return out, nil
		case compiler.TokenEOF:
			e := scriptError("syntax error at %s: missing %s", tok.Pos, end)
			e.Incomplete = true
			return nil, e
		case compiler.TokenRBracket, compiler.TokenRParen:
			return nil, scriptError("syntax error at %s: unexpected %s", tok.Pos, tok.Type)
		case compiler.TokenLBracket, compiler.TokenLParen:
			closer, typ := compiler.TokenRBracket, TypeBlock
			if tok.Type == compiler.TokenLParen {
				closer, typ = compiler.TokenRParen, TypeParen
			}
			inner, err := r.block(closer)
			if err != nil {
				return nil, err
			}
			out.Append(SeriesCell(typ, inner, 0))
		default:
			c, err := r.value(tok)
			if err != nil {
				return nil, err
			}
			out.Append(c)
		}
	}
}

func (r *reader) value(tok compiler.Token) (Cell, error) {
	atoms := r.vm.atoms
	switch tok.Type {
	case compiler.TokenInteger:
		n, err := strconv.ParseInt(tok.Literal, 10, 64)
		if err != nil {
			return Unset(), scriptError("syntax error at %s: %v", tok.Pos, err)
		}
		return Int(n), nil
	case compiler.TokenDecimal:
		f, err := strconv.ParseFloat(tok.Literal, 64)
		if err != nil {
			return Unset(), scriptError("syntax error at %s: %v", tok.Pos, err)
		}
		return Double(f), nil
	case compiler.TokenString:
		return String(tok.Literal), nil
	case compiler.TokenChar:
		ch, _ := utf8.DecodeRuneInString(tok.Literal)
		return Char(ch), nil
	case compiler.TokenDatatype:
		m, err := ParseTypeMask(tok.Literal)
		if err != nil {
			return Unset(), scriptError("syntax error at %s: %v", tok.Pos, err)
		}
		return Datatype(m), nil
	case compiler.TokenWord:
		return Word(TypeWord, atoms.Intern(tok.Literal)), nil
	case compiler.TokenSetWord:
		return Word(TypeSetWord, atoms.Intern(tok.Literal)), nil
	case compiler.TokenGetWord:
		return Word(TypeGetWord, atoms.Intern(tok.Literal)), nil
	case compiler.TokenLitWord:
		return Word(TypeLitWord, atoms.Intern(tok.Literal)), nil
	case compiler.TokenOption:
		return Word(TypeOption, atoms.Intern(tok.Literal)), nil
	case compiler.TokenPath:
		return r.path(TypePath, tok.Literal)
	case compiler.TokenSetPath:
		return r.path(TypeSetPath, tok.Literal)
	case compiler.TokenLitPath:
		return r.path(TypeLitPath, tok.Literal)
	}
	return Unset(), scriptError("syntax error at %s: unexpected %s", tok.Pos, tok.Type)
}

// path builds a path series: a head word followed by word, integer, and
// get-word selectors.
func (r *reader) path(t Type, text string) (Cell, error) {
	segs := strings.Split(text, "/")
	ser := NewSeries(len(segs))
	for _, seg := range segs {
		switch {
		case strings.HasPrefix(seg, ":"):
			ser.Append(Word(TypeGetWord, r.vm.atoms.Intern(seg[1:])))
		case seg[0] >= '0' && seg[0] <= '9':
			n, err := strconv.ParseInt(seg, 10, 64)
			if err != nil {
				return Unset(), scriptError("invalid path selector %s", seg)
			}
			ser.Append(Int(n))
		default:
			ser.Append(Word(TypeWord, r.vm.atoms.Intern(seg)))
		}
	}
	return SeriesCell(t, ser, 0), nil
}
