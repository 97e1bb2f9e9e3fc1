package compiler

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ---------------------------------------------------------------------------
// Lexer: Tokenizer for script source
// ---------------------------------------------------------------------------

// Lexer tokenizes script source.
type Lexer struct {
	input     string
	pos       int  // current position in input
	readPos   int  // reading position (after current char)
	ch        rune // current character
	line      int  // current line (1-based)
	col       int  // current column (1-based)
	lineStart int  // offset of current line start
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{
		input: input,
		line:  1,
		col:   0,
	}
	l.readChar()
	return l
}

// readChar reads the next character.
func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0 // EOF
		l.pos = l.readPos
		l.col++
		return
	}
	r, size := utf8.DecodeRuneInString(l.input[l.readPos:])
	if l.ch == '\n' {
		l.line++
		l.col = 0
		l.lineStart = l.readPos
	}
	l.ch = r
	l.pos = l.readPos
	l.readPos += size
	l.col++
}

// position returns the current position.
func (l *Lexer) position() Position {
	return Position{
		Offset: l.pos,
		Line:   l.line,
		Column: l.col,
	}
}

// NextToken returns the next token.
func (l *Lexer) NextToken() Token {
	l.skipWhitespaceAndComments()

	pos := l.position()

	switch {
	case l.ch == 0:
		return Token{Type: TokenEOF, Literal: "", Pos: pos}

	case l.ch == '[':
		l.readChar()
		return Token{Type: TokenLBracket, Literal: "[", Pos: pos}

	case l.ch == ']':
		l.readChar()
		return Token{Type: TokenRBracket, Literal: "]", Pos: pos}

	case l.ch == '(':
		l.readChar()
		return Token{Type: TokenLParen, Literal: "(", Pos: pos}

	case l.ch == ')':
		l.readChar()
		return Token{Type: TokenRParen, Literal: ")", Pos: pos}

	case l.ch == '"':
		return l.readQuotedString(pos)

	case l.ch == '{':
		return l.readBraceString(pos)

	case l.ch == '}':
		l.readChar()
		return Token{Type: TokenError, Literal: "unexpected }", Pos: pos}

	case l.ch == '\'' && l.isCharLiteral():
		return l.readCharLiteral(pos)

	default:
		return l.readRun(pos)
	}
}

// skipWhitespaceAndComments skips whitespace and ; line comments.
func (l *Lexer) skipWhitespaceAndComments() {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
			l.readChar()
		}
		if l.ch == ';' {
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
			continue
		}
		break
	}
}

// readEscape decodes the character after a ^ escape marker.
func (l *Lexer) readEscape() (rune, bool) {
	l.readChar() // consume ^
	var r rune
	switch l.ch {
	case '/':
		r = '\n'
	case '-':
		r = '\t'
	case 0:
		return 0, false
	default:
		r = l.ch
	}
	l.readChar()
	return r, true
}

// readQuotedString reads a "..." string. Newlines are not allowed inside.
func (l *Lexer) readQuotedString(pos Position) Token {
	l.readChar() // consume opening "

	var sb strings.Builder
	for l.ch != '"' {
		switch l.ch {
		case 0, '\n':
			return Token{Type: TokenError, Literal: "unterminated string", Pos: pos}
		case '^':
			r, ok := l.readEscape()
			if !ok {
				return Token{Type: TokenError, Literal: "unterminated string", Pos: pos}
			}
			sb.WriteRune(r)
		default:
			sb.WriteRune(l.ch)
			l.readChar()
		}
	}
	l.readChar() // consume closing "
	return Token{Type: TokenString, Literal: sb.String(), Pos: pos}
}

// readBraceString reads a {...} string; braces nest.
func (l *Lexer) readBraceString(pos Position) Token {
	l.readChar() // consume opening {

	var sb strings.Builder
	depth := 1
	for {
		switch l.ch {
		case 0:
			return Token{Type: TokenError, Literal: "unterminated string", Pos: pos}
		case '^':
			r, ok := l.readEscape()
			if !ok {
				return Token{Type: TokenError, Literal: "unterminated string", Pos: pos}
			}
			sb.WriteRune(r)
			continue
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				l.readChar()
				return Token{Type: TokenString, Literal: sb.String(), Pos: pos}
			}
		}
		sb.WriteRune(l.ch)
		l.readChar()
	}
}

// isCharLiteral reports whether the ' at the current position opens a
// character literal ('a' or '^/') rather than a lit-word.
func (l *Lexer) isCharLiteral() bool {
	rest := l.input[l.readPos:]
	if strings.HasPrefix(rest, "^") {
		_, size := utf8.DecodeRuneInString(rest[1:])
		return size > 0 && strings.HasPrefix(rest[1+size:], "'")
	}
	r, size := utf8.DecodeRuneInString(rest)
	if size == 0 || r == '\'' {
		return false
	}
	return strings.HasPrefix(rest[size:], "'")
}

// readCharLiteral reads a character literal.
func (l *Lexer) readCharLiteral(pos Position) Token {
	l.readChar() // consume opening '
	var r rune
	if l.ch == '^' {
		r, _ = l.readEscape()
	} else {
		r = l.ch
		l.readChar()
	}
	l.readChar() // consume closing '
	return Token{Type: TokenChar, Literal: string(r), Pos: pos}
}

// readRun reads everything up to the next delimiter and classifies it.
func (l *Lexer) readRun(pos Position) Token {
	start := l.pos
	for !IsDelimiter(l.ch) {
		l.readChar()
	}
	text := l.input[start:l.pos]
	if text == "" {
		ch := l.ch
		l.readChar()
		return Token{Type: TokenError, Literal: fmt.Sprintf("unexpected character: %c", ch), Pos: pos}
	}
	return classify(text, pos)
}

func classify(text string, pos Position) Token {
	tok := func(t TokenType, lit string) Token {
		return Token{Type: t, Literal: lit, Pos: pos}
	}
	bad := func(msg string) Token {
		return Token{Type: TokenError, Literal: msg + ": " + text, Pos: pos}
	}

	if isNumberStart(text) {
		if _, err := strconv.ParseInt(text, 10, 64); err == nil {
			return tok(TokenInteger, text)
		}
		if _, err := strconv.ParseFloat(text, 64); err == nil {
			return tok(TokenDecimal, text)
		}
		return bad("invalid number")
	}

	switch text[0] {
	case '\'':
		body := text[1:]
		if !validWordPath(body) {
			return bad("invalid lit-word")
		}
		if strings.Contains(body, "/") {
			return tok(TokenLitPath, body)
		}
		return tok(TokenLitWord, body)
	case ':':
		body := text[1:]
		if !validWord(body) {
			return bad("invalid get-word")
		}
		return tok(TokenGetWord, body)
	case '/':
		if strings.Trim(text, "/") == "" {
			return tok(TokenWord, text)
		}
		body := text[1:]
		if !validWord(body) {
			return bad("invalid option")
		}
		return tok(TokenOption, body)
	}

	if strings.HasSuffix(text, ":") && len(text) > 1 {
		body := text[:len(text)-1]
		if !validWordPath(body) {
			return bad("invalid set-word")
		}
		if strings.Contains(body, "/") {
			return tok(TokenSetPath, body)
		}
		return tok(TokenSetWord, body)
	}

	if strings.Contains(text, "/") {
		if !validWordPath(text) {
			return bad("invalid path")
		}
		if isDatatypeMask(text) {
			return tok(TokenDatatype, text)
		}
		return tok(TokenPath, text)
	}
	if len(text) > 1 && strings.HasSuffix(text, "!") {
		return tok(TokenDatatype, text)
	}
	if strings.ContainsAny(text, ":'") {
		return bad("invalid word")
	}
	return tok(TokenWord, text)
}

func isNumberStart(text string) bool {
	i := 0
	if text[0] == '-' || text[0] == '+' {
		i = 1
	}
	if i < len(text) && text[i] == '.' {
		i++
	}
	return i < len(text) && isDigit(rune(text[i]))
}

func validWord(s string) bool {
	return s != "" && !strings.ContainsAny(s, ":'/") && !isDigit(rune(s[0]))
}

// validWordPath checks a slash-separated path: a word (or :word) head
// followed by word, integer, or :word segments.
func validWordPath(s string) bool {
	segs := strings.Split(s, "/")
	for i, seg := range segs {
		if i > 0 && strings.HasPrefix(seg, ":") {
			seg = seg[1:]
		}
		if seg == "" {
			return false
		}
		if i > 0 && isDigit(rune(seg[0])) {
			if _, err := strconv.Atoi(seg); err != nil {
				return false
			}
			continue
		}
		if !validWord(seg) {
			return false
		}
	}
	return true
}

func isDatatypeMask(s string) bool {
	for _, seg := range strings.Split(s, "/") {
		if len(seg) < 2 || !strings.HasSuffix(seg, "!") {
			return false
		}
	}
	return true
}

// Helper functions

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// Tokenize returns all tokens from the input, stopping at EOF or the
// first error. The final token is TokenEOF on success.
func Tokenize(input string) ([]Token, error) {
	l := NewLexer(input)
	var tokens []Token
	for {
		tok := l.NextToken()
		if tok.Type == TokenError {
			return tokens, &SyntaxError{Pos: tok.Pos, Msg: tok.Literal}
		}
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF {
			return tokens, nil
		}
	}
}

// SyntaxError reports malformed source text.
type SyntaxError struct {
	Pos Position
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at %s: %s", e.Pos, e.Msg)
}
