package vm

import (
	"fmt"
	"strings"
)

// Type is the variant tag of a Cell.
type Type uint8

const (
	TypeUnset Type = iota
	TypeNone
	TypeLogic
	TypeChar
	TypeInt
	TypeDouble
	TypeWord
	TypeLitWord
	TypeSetWord
	TypeGetWord
	TypeOption
	TypeString
	TypeBlock
	TypeParen
	TypePath
	TypeLitPath
	TypeSetPath
	TypeDatatype
	TypeContext
	TypeNative
	TypeFunc
	TypeError

	// External handles onto JSON documents.
	TypeJSONValue
	TypeArrayIter
	TypeObjectIter

	typeCount
)

var typeNames = [typeCount]string{
	TypeUnset:      "unset!",
	TypeNone:       "none!",
	TypeLogic:      "logic!",
	TypeChar:       "char!",
	TypeInt:        "int!",
	TypeDouble:     "double!",
	TypeWord:       "word!",
	TypeLitWord:    "lit-word!",
	TypeSetWord:    "set-word!",
	TypeGetWord:    "get-word!",
	TypeOption:     "option!",
	TypeString:     "string!",
	TypeBlock:      "block!",
	TypeParen:      "paren!",
	TypePath:       "path!",
	TypeLitPath:    "lit-path!",
	TypeSetPath:    "set-path!",
	TypeDatatype:   "datatype!",
	TypeContext:    "context!",
	TypeNative:     "native!",
	TypeFunc:       "func!",
	TypeError:      "error!",
	TypeJSONValue:  "jval!",
	TypeArrayIter:  "jait!",
	TypeObjectIter: "joit!",
}

func (t Type) String() string {
	if t < typeCount {
		return typeNames[t]
	}
	return fmt.Sprintf("type%d!", uint8(t))
}

// IsWord reports whether t is one of the word variants.
func (t Type) IsWord() bool {
	return t >= TypeWord && t <= TypeOption
}

// IsBlock reports whether t holds a series of cells.
func (t Type) IsBlock() bool {
	return t >= TypeBlock && t <= TypeSetPath
}

// IsSeries reports whether t holds a series (cells or text).
func (t Type) IsSeries() bool {
	return t == TypeString || t.IsBlock()
}

// IsHandle reports whether t is an external JSON handle.
func (t Type) IsHandle() bool {
	return t >= TypeJSONValue && t <= TypeObjectIter
}

// TypeByName maps a datatype name such as "string!" to its Type.
func TypeByName(name string) (Type, bool) {
	for t, n := range typeNames {
		if n == name {
			return Type(t), true
		}
	}
	return 0, false
}

// TypeMask is a set of datatypes, one bit per Type.
type TypeMask uint64

// MaskOf builds a mask from types.
func MaskOf(types ...Type) TypeMask {
	var m TypeMask
	for _, t := range types {
		m |= 1 << t
	}
	return m
}

// Has reports whether t is in the mask.
func (m TypeMask) Has(t Type) bool {
	return m&(1<<t) != 0
}

// Single returns the only type in the mask, if there is exactly one.
func (m TypeMask) Single() (Type, bool) {
	if m == 0 || m&(m-1) != 0 {
		return 0, false
	}
	for t := Type(0); t < typeCount; t++ {
		if m.Has(t) {
			return t, true
		}
	}
	return 0, false
}

func (m TypeMask) String() string {
	var names []string
	for t := Type(0); t < typeCount; t++ {
		if m.Has(t) {
			names = append(names, t.String())
		}
	}
	return strings.Join(names, "/")
}

// ParseTypeMask parses "string!" or "string!/jval!".
func ParseTypeMask(text string) (TypeMask, error) {
	var m TypeMask
	for _, name := range strings.Split(text, "/") {
		t, ok := TypeByName(name)
		if !ok {
			return 0, fmt.Errorf("unknown datatype %s", name)
		}
		m |= MaskOf(t)
	}
	return m, nil
}
