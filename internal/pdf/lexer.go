// Package pdf is a minimal PDF scanner. It understands enough of the file
// syntax to locate the trailer, index indirect objects and walk the page
// tree, and it records the byte span of everything it parses so callers can
// splice new revisions of a dictionary without a full object model.
package pdf

import (
	"errors"
	"fmt"
)

// TokenKind identifies a lexical token.
type TokenKind int

const (
	TokenEOF TokenKind = iota
	TokenNumber
	TokenName
	TokenString
	TokenHexString
	TokenKeyword
	TokenArrayStart
	TokenArrayEnd
	TokenDictStart
	TokenDictEnd
)

func (k TokenKind) String() string {
	switch k {
	case TokenEOF:
		return "EOF"
	case TokenNumber:
		return "number"
	case TokenName:
		return "name"
	case TokenString:
		return "string"
	case TokenHexString:
		return "hex string"
	case TokenKeyword:
		return "keyword"
	case TokenArrayStart:
		return "["
	case TokenArrayEnd:
		return "]"
	case TokenDictStart:
		return "<<"
	case TokenDictEnd:
		return ">>"
	}
	return fmt.Sprintf("TokenKind(%d)", int(k))
}

// Token is a lexical token together with its byte span [Start, End).
//
// Value holds the name without the leading slash, the keyword or number
// text, the hex digits of a hex string, or the raw bytes between the
// parentheses of a literal string.
type Token struct {
	Kind  TokenKind
	Value string
	Start int
	End   int
}

var ErrUnexpectedEOF = errors.New("unexpected end of data")

func isWhitespace(c byte) bool {
	switch c {
	case 0, '\t', '\n', '\f', '\r', ' ':
		return true
	}
	return false
}

func isDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func isRegular(c byte) bool {
	return !isWhitespace(c) && !isDelimiter(c)
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// Lexer splits PDF bytes into tokens. Comments and whitespace are skipped.
type Lexer struct {
	data []byte
	pos  int
}

// NewLexer returns a lexer positioned at pos.
func NewLexer(data []byte, pos int) *Lexer {
	return &Lexer{data: data, pos: pos}
}

// Pos returns the offset of the next unread byte.
func (l *Lexer) Pos() int { return l.pos }

// SetPos moves the lexer to pos.
func (l *Lexer) SetPos(pos int) { l.pos = pos }

func (l *Lexer) skipSpace() {
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		if isWhitespace(c) {
			l.pos++
			continue
		}
		if c == '%' {
			for l.pos < len(l.data) && l.data[l.pos] != '\n' && l.data[l.pos] != '\r' {
				l.pos++
			}
			continue
		}
		return
	}
}

// Next returns the next token.
func (l *Lexer) Next() (Token, error) {
	l.skipSpace()
	start := l.pos
	if l.pos >= len(l.data) {
		return Token{Kind: TokenEOF, Start: start, End: start}, nil
	}

	c := l.data[l.pos]
	switch {
	case c == '[':
		l.pos++
		return Token{Kind: TokenArrayStart, Start: start, End: l.pos}, nil
	case c == ']':
		l.pos++
		return Token{Kind: TokenArrayEnd, Start: start, End: l.pos}, nil
	case c == '<':
		if l.pos+1 < len(l.data) && l.data[l.pos+1] == '<' {
			l.pos += 2
			return Token{Kind: TokenDictStart, Start: start, End: l.pos}, nil
		}
		return l.hexString()
	case c == '>':
		if l.pos+1 < len(l.data) && l.data[l.pos+1] == '>' {
			l.pos += 2
			return Token{Kind: TokenDictEnd, Start: start, End: l.pos}, nil
		}
		return Token{}, fmt.Errorf("unexpected '>' at offset %d", start)
	case c == '(':
		return l.literalString()
	case c == '/':
		l.pos++
		for l.pos < len(l.data) && isRegular(l.data[l.pos]) {
			l.pos++
		}
		return Token{Kind: TokenName, Value: string(l.data[start+1 : l.pos]), Start: start, End: l.pos}, nil
	case c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9'):
		l.pos++
		for l.pos < len(l.data) {
			d := l.data[l.pos]
			if (d >= '0' && d <= '9') || d == '.' {
				l.pos++
				continue
			}
			break
		}
		return Token{Kind: TokenNumber, Value: string(l.data[start:l.pos]), Start: start, End: l.pos}, nil
	case isRegular(c):
		for l.pos < len(l.data) && isRegular(l.data[l.pos]) {
			l.pos++
		}
		return Token{Kind: TokenKeyword, Value: string(l.data[start:l.pos]), Start: start, End: l.pos}, nil
	}

	return Token{}, fmt.Errorf("unexpected byte %q at offset %d", c, start)
}

// Peek returns the next token without consuming it.
func (l *Lexer) Peek() (Token, error) {
	pos := l.pos
	tok, err := l.Next()
	l.pos = pos
	return tok, err
}

func (l *Lexer) hexString() (Token, error) {
	start := l.pos
	l.pos++
	digits := make([]byte, 0, 64)
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		l.pos++
		switch {
		case c == '>':
			return Token{Kind: TokenHexString, Value: string(digits), Start: start, End: l.pos}, nil
		case isHexDigit(c):
			digits = append(digits, c)
		case isWhitespace(c):
		default:
			return Token{}, fmt.Errorf("invalid hex string byte %q at offset %d", c, l.pos-1)
		}
	}
	return Token{}, fmt.Errorf("hex string at offset %d: %w", start, ErrUnexpectedEOF)
}

func (l *Lexer) literalString() (Token, error) {
	start := l.pos
	l.pos++
	depth := 1
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		l.pos++
		switch c {
		case '\\':
			l.pos++
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return Token{Kind: TokenString, Value: string(l.data[start+1 : l.pos-1]), Start: start, End: l.pos}, nil
			}
		}
	}
	return Token{}, fmt.Errorf("string at offset %d: %w", start, ErrUnexpectedEOF)
}
