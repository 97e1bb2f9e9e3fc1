package compiler

import "fmt"

// ---------------------------------------------------------------------------
// Token types for script source
// ---------------------------------------------------------------------------

// TokenType represents the type of a token.
type TokenType int

const (
	// Special tokens
	TokenEOF TokenType = iota
	TokenError

	// Literals
	TokenInteger  // 42, -7
	TokenDecimal  // 3.14, -0.5
	TokenString   // "text", {text}
	TokenChar     // 'a', '^/'
	TokenDatatype // string!, string!/jval!

	// Words
	TokenWord    // foo, ++, value?
	TokenSetWord // foo:
	TokenGetWord // :foo
	TokenLitWord // 'foo
	TokenOption  // /foo

	// Paths
	TokenPath    // a/b/1
	TokenSetPath // a/b:
	TokenLitPath // 'a/b

	// Delimiters
	TokenLBracket // [
	TokenRBracket // ]
	TokenLParen   // (
	TokenRParen   // )
)

var tokenNames = map[TokenType]string{
	TokenEOF:      "EOF",
	TokenError:    "ERROR",
	TokenInteger:  "INTEGER",
	TokenDecimal:  "DECIMAL",
	TokenString:   "STRING",
	TokenChar:     "CHAR",
	TokenDatatype: "DATATYPE",
	TokenWord:     "WORD",
	TokenSetWord:  "SET-WORD",
	TokenGetWord:  "GET-WORD",
	TokenLitWord:  "LIT-WORD",
	TokenOption:   "OPTION",
	TokenPath:     "PATH",
	TokenSetPath:  "SET-PATH",
	TokenLitPath:  "LIT-PATH",
	TokenLBracket: "[",
	TokenRBracket: "]",
	TokenLParen:   "(",
	TokenRParen:   ")",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Token(%d)", t)
}

// Position is a location in source text.
type Position struct {
	Offset int // byte offset
	Line   int // 1-based line number
	Column int // 1-based column number
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Token represents a lexical token.
//
// Literal holds the decoded text: string and char contents with escapes
// resolved, words without their sigils (`foo` for `'foo`, `:foo` and
// `foo:`), and paths as their slash-joined segments.
type Token struct {
	Type    TokenType
	Literal string
	Pos     Position
}

func (t Token) String() string {
	if t.Type == TokenEOF {
		return "EOF"
	}
	if t.Type == TokenError {
		return fmt.Sprintf("ERROR(%s)", t.Literal)
	}
	if len(t.Literal) > 20 {
		return fmt.Sprintf("%s(%q...)", t.Type, t.Literal[:20])
	}
	return fmt.Sprintf("%s(%q)", t.Type, t.Literal)
}

// IsDelimiter reports whether r ends a word.
func IsDelimiter(r rune) bool {
	switch r {
	case 0, ' ', '\t', '\n', '\r', '[', ']', '(', ')', '{', '}', '"', ';':
		return true
	}
	return false
}
