package pdf

import (
	"fmt"
	"strconv"
)

// Kind identifies the type of a parsed object.
type Kind int

const (
	Null Kind = iota
	Bool
	Number
	Name
	String
	HexString
	Array
	Dict
	Reference
	Keyword
)

// Ref is an indirect object reference.
type Ref struct {
	Number     int
	Generation int
}

func (r Ref) String() string {
	return fmt.Sprintf("%d %d R", r.Number, r.Generation)
}

// Object is a parsed PDF object. Start and End delimit its text in the
// buffer it was parsed from.
type Object struct {
	Kind  Kind
	Value string
	Items []Object
	Keys  []string
	Ref   Ref

	Start int
	End   int
}

// Key returns the value stored under key in a dictionary.
func (o Object) Key(key string) (Object, bool) {
	if o.Kind != Dict {
		return Object{}, false
	}
	for i, k := range o.Keys {
		if k == key {
			return o.Items[i], true
		}
	}
	return Object{}, false
}

// Has reports whether a dictionary contains key.
func (o Object) Has(key string) bool {
	_, ok := o.Key(key)
	return ok
}

// Int returns the integer value of a number.
func (o Object) Int() (int64, bool) {
	if o.Kind != Number {
		return 0, false
	}
	n, err := strconv.ParseInt(o.Value, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(o.Value, 64)
		if ferr != nil {
			return 0, false
		}
		return int64(f), true
	}
	return n, true
}

// Float returns the value of a number.
func (o Object) Float() (float64, bool) {
	if o.Kind != Number {
		return 0, false
	}
	f, err := strconv.ParseFloat(o.Value, 64)
	return f, err == nil
}

// IsName reports whether o is the name n.
func (o Object) IsName(n string) bool {
	return o.Kind == Name && o.Value == n
}

// Text returns the source text of o within src.
func (o Object) Text(src []byte) []byte {
	return src[o.Start:o.End]
}

// Parser builds objects from a token stream.
type Parser struct {
	lex *Lexer
}

// NewParser returns a parser reading data from pos.
func NewParser(data []byte, pos int) *Parser {
	return &Parser{lex: NewLexer(data, pos)}
}

// Lexer exposes the underlying lexer.
func (p *Parser) Lexer() *Lexer { return p.lex }

// ParseObject parses one object. "n g R" sequences are returned as a
// single Reference.
func (p *Parser) ParseObject() (Object, error) {
	tok, err := p.lex.Next()
	if err != nil {
		return Object{}, err
	}
	return p.parseFrom(tok)
}

func (p *Parser) parseFrom(tok Token) (Object, error) {
	switch tok.Kind {
	case TokenEOF:
		return Object{}, ErrUnexpectedEOF
	case TokenNumber:
		if ref, ok := p.tryReference(tok); ok {
			return ref, nil
		}
		return Object{Kind: Number, Value: tok.Value, Start: tok.Start, End: tok.End}, nil
	case TokenName:
		return Object{Kind: Name, Value: tok.Value, Start: tok.Start, End: tok.End}, nil
	case TokenString:
		return Object{Kind: String, Value: tok.Value, Start: tok.Start, End: tok.End}, nil
	case TokenHexString:
		return Object{Kind: HexString, Value: tok.Value, Start: tok.Start, End: tok.End}, nil
	case TokenKeyword:
		switch tok.Value {
		case "null":
			return Object{Kind: Null, Start: tok.Start, End: tok.End}, nil
		case "true", "false":
			return Object{Kind: Bool, Value: tok.Value, Start: tok.Start, End: tok.End}, nil
		}
		return Object{Kind: Keyword, Value: tok.Value, Start: tok.Start, End: tok.End}, nil
	case TokenArrayStart:
		return p.parseArray(tok)
	case TokenDictStart:
		return p.parseDict(tok)
	}
	return Object{}, fmt.Errorf("unexpected %s at offset %d", tok.Kind, tok.Start)
}

// tryReference checks whether tok starts an "n g R" sequence.
func (p *Parser) tryReference(tok Token) (Object, bool) {
	save := p.lex.Pos()
	gen, err := p.lex.Next()
	if err != nil || gen.Kind != TokenNumber {
		p.lex.SetPos(save)
		return Object{}, false
	}
	r, err := p.lex.Next()
	if err != nil || r.Kind != TokenKeyword || r.Value != "R" {
		p.lex.SetPos(save)
		return Object{}, false
	}
	n, err1 := strconv.Atoi(tok.Value)
	g, err2 := strconv.Atoi(gen.Value)
	if err1 != nil || err2 != nil || n < 0 || g < 0 {
		p.lex.SetPos(save)
		return Object{}, false
	}
	return Object{Kind: Reference, Ref: Ref{Number: n, Generation: g}, Start: tok.Start, End: r.End}, true
}

func (p *Parser) parseArray(open Token) (Object, error) {
	obj := Object{Kind: Array, Start: open.Start}
	for {
		tok, err := p.lex.Next()
		if err != nil {
			return Object{}, err
		}
		if tok.Kind == TokenArrayEnd {
			obj.End = tok.End
			return obj, nil
		}
		item, err := p.parseFrom(tok)
		if err != nil {
			return Object{}, fmt.Errorf("array at offset %d: %w", open.Start, err)
		}
		obj.Items = append(obj.Items, item)
	}
}

func (p *Parser) parseDict(open Token) (Object, error) {
	obj := Object{Kind: Dict, Start: open.Start}
	for {
		tok, err := p.lex.Next()
		if err != nil {
			return Object{}, err
		}
		if tok.Kind == TokenDictEnd {
			obj.End = tok.End
			return obj, nil
		}
		if tok.Kind != TokenName {
			return Object{}, fmt.Errorf("dictionary at offset %d: expected name, got %s at offset %d", open.Start, tok.Kind, tok.Start)
		}
		value, err := p.ParseObject()
		if err != nil {
			return Object{}, fmt.Errorf("dictionary at offset %d: %w", open.Start, err)
		}
		obj.Keys = append(obj.Keys, tok.Value)
		obj.Items = append(obj.Items, value)
	}
}
