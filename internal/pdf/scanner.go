package pdf

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"

	"github.com/digitorus/efirma-pdfsign/common"
)

// Indirect is an indirect object. Value offsets refer to Src, which is the
// document itself or, for objects stored in an object stream, the decoded
// stream data.
type Indirect struct {
	Ref      Ref
	Value    Object
	Src      []byte
	Offset   int
	InStream bool

	// Stream data span in Src, when the object is a stream.
	StreamStart int
	StreamEnd   int
}

// IsStream reports whether the object carries stream data.
func (o Indirect) IsStream() bool {
	return o.StreamEnd > o.StreamStart
}

// Text returns the source text of the object value.
func (o Indirect) Text() []byte {
	return o.Value.Text(o.Src)
}

type header struct {
	generation int
	offset     int
}

// Document is an index over the bytes of a PDF file: the last %%EOF, the
// startxref value, the trailer and the location of every "n g obj" header.
// It never builds a full object graph.
type Document struct {
	data []byte

	// EOF is the offset of the last %%EOF marker.
	EOF int
	// StartXref is the offset recorded after the last startxref keyword.
	StartXref int64
	// XrefType is "table" for a classic cross-reference table and
	// "stream" for a cross-reference stream.
	XrefType string
	// Trailer is the trailer dictionary, or the dictionary of the
	// cross-reference stream.
	Trailer Object

	headers    map[int]header
	maxObject  int
	objStreams []*objectStream
	loadedObjs bool
}

func notRecognized(format string, args ...any) error {
	return common.NewError(common.ErrPdfStructureNotRecognized, format, args...)
}

// Open indexes data. The slice is not copied and must not be modified while
// the Document is in use.
func Open(data []byte) (*Document, error) {
	head := data
	if len(head) > 1024 {
		head = head[:1024]
	}
	if !bytes.Contains(head, []byte("%PDF-")) {
		return nil, notRecognized("%%PDF header not found")
	}

	d := &Document{data: data, headers: make(map[int]header)}

	d.EOF = bytes.LastIndex(data, []byte("%%EOF"))
	if d.EOF < 0 {
		return nil, notRecognized("%%%%EOF marker not found")
	}

	sx := lastKeyword(data[:d.EOF], "startxref")
	if sx < 0 {
		return nil, notRecognized("startxref not found")
	}
	tok, err := NewLexer(data, sx+len("startxref")).Next()
	if err != nil || tok.Kind != TokenNumber {
		return nil, notRecognized("startxref is not followed by an offset")
	}
	d.StartXref, err = strconv.ParseInt(tok.Value, 10, 64)
	if err != nil {
		return nil, notRecognized("invalid startxref offset %q", tok.Value)
	}

	d.scanObjects()

	if err := d.readTrailer(); err != nil {
		return nil, err
	}
	return d, nil
}

// Data returns the indexed bytes.
func (d *Document) Data() []byte { return d.data }

// hasKeywordAt reports whether kw starts at i as a whole token.
func hasKeywordAt(data []byte, i int, kw string) bool {
	if !bytes.HasPrefix(data[i:], []byte(kw)) {
		return false
	}
	if i > 0 && isRegular(data[i-1]) {
		return false
	}
	end := i + len(kw)
	return end == len(data) || !isRegular(data[end])
}

func lastKeyword(data []byte, kw string) int {
	for end := len(data); end > 0; {
		i := bytes.LastIndex(data[:end], []byte(kw))
		if i < 0 {
			return -1
		}
		if hasKeywordAt(data, i, kw) {
			return i
		}
		end = i
	}
	return -1
}

// scanObjects records every "n g obj" header. The bytes are tokenized, so
// keywords inside strings and comments are ignored, and stream bodies are
// skipped so binary data cannot produce false matches. A later header for
// the same object number replaces an earlier one.
func (d *Document) scanObjects() {
	data := d.data
	lex := NewLexer(data, 0)
	var prev2, prev Token
	for {
		lex.skipSpace()
		pos := lex.Pos()
		tok, err := lex.Next()
		if err != nil {
			// Stray delimiter or unterminated string: resume one byte later.
			lex.SetPos(pos + 1)
			prev2, prev = Token{}, Token{}
			continue
		}
		if tok.Kind == TokenEOF {
			return
		}

		if tok.Kind == TokenKeyword {
			switch tok.Value {
			case "obj":
				if isUint(prev2) && isUint(prev) {
					n, _ := strconv.Atoi(prev2.Value)
					g, _ := strconv.Atoi(prev.Value)
					d.headers[n] = header{generation: g, offset: prev2.Start}
					if n > d.maxObject {
						d.maxObject = n
					}
				}
			case "stream":
				if prev.Kind == TokenDictEnd {
					end := bytes.Index(data[tok.End:], []byte("endstream"))
					if end < 0 {
						return
					}
					lex.SetPos(tok.End + end + len("endstream"))
					prev2, prev = Token{}, Token{}
					continue
				}
			}
		}
		prev2, prev = prev, tok
	}
}

// isUint reports whether tok is an unsigned integer.
func isUint(tok Token) bool {
	if tok.Kind != TokenNumber || tok.Value == "" {
		return false
	}
	for i := 0; i < len(tok.Value); i++ {
		if tok.Value[i] < '0' || tok.Value[i] > '9' {
			return false
		}
	}
	return true
}

func (d *Document) readTrailer() error {
	off := int(d.StartXref)
	if off >= 0 && off < len(d.data) {
		lex := NewLexer(d.data, off)
		tok, err := lex.Next()
		if err == nil && tok.Kind == TokenKeyword && tok.Value == "xref" {
			d.XrefType = "table"
			return d.readTableTrailer(lex)
		}
		if err == nil && tok.Kind == TokenNumber {
			obj, err := parseIndirectAt(d.data, off, d)
			if err == nil {
				if typ, _ := obj.Value.Key("Type"); typ.IsName("XRef") {
					d.XrefType = "stream"
					d.Trailer = obj.Value
					return d.checkTrailer()
				}
			}
		}
	}

	// The startxref offset does not point at a cross-reference section.
	// Fall back to the last trailer keyword.
	if t := lastKeyword(d.data[:d.EOF], "trailer"); t >= 0 {
		d.XrefType = "table"
		return d.readTableTrailer(NewLexer(d.data, t))
	}
	return notRecognized("no cross-reference section at offset %d", d.StartXref)
}

func (d *Document) readTableTrailer(lex *Lexer) error {
	for {
		tok, err := lex.Next()
		if err != nil {
			return notRecognized("cross-reference table: %v", err)
		}
		if tok.Kind == TokenEOF {
			return notRecognized("trailer not found")
		}
		if tok.Kind == TokenKeyword && tok.Value == "trailer" {
			break
		}
	}

	p := &Parser{lex: lex}
	trailer, err := p.ParseObject()
	if err != nil || trailer.Kind != Dict {
		return notRecognized("trailer dictionary not readable")
	}
	d.Trailer = trailer
	return d.checkTrailer()
}

func (d *Document) checkTrailer() error {
	root, ok := d.Trailer.Key("Root")
	if !ok || root.Kind != Reference {
		return notRecognized("/Root not found in trailer")
	}
	return nil
}

// Encrypted reports whether the trailer references an encryption dictionary.
func (d *Document) Encrypted() bool {
	return d.Trailer.Has("Encrypt")
}

// Size returns the trailer /Size value.
func (d *Document) Size() int {
	if s, ok := d.Trailer.Key("Size"); ok {
		if n, ok := s.Int(); ok {
			return int(n)
		}
	}
	return 0
}

// MaxObjectNumber returns the highest object number found in the file.
func (d *Document) MaxObjectNumber() int {
	return d.maxObject
}

// NextObjectNumber returns the first object number that is free in both the
// object index and the trailer /Size.
func (d *Document) NextObjectNumber() int {
	n := d.maxObject
	if s := d.Size() - 1; s > n {
		n = s
	}
	return n + 1
}

// RootRef returns the catalog reference.
func (d *Document) RootRef() Ref {
	root, _ := d.Trailer.Key("Root")
	return root.Ref
}

// InfoRef returns the document information dictionary reference.
func (d *Document) InfoRef() (Ref, bool) {
	info, ok := d.Trailer.Key("Info")
	if !ok || info.Kind != Reference {
		return Ref{}, false
	}
	return info.Ref, true
}

// TrailerText returns the source text of trailer key, if present.
func (d *Document) TrailerText(key string) ([]byte, bool) {
	v, ok := d.Trailer.Key(key)
	if !ok {
		return nil, false
	}
	return v.Text(d.data), true
}

// Object returns indirect object n.
func (d *Document) Object(n int) (Indirect, error) {
	h, direct := d.headers[n]

	var streamObj Indirect
	var streamAt = -1
	if !direct || d.hasNewerObjectStream(h.offset) {
		if obj, at, ok := d.fromObjectStreams(n); ok {
			streamObj, streamAt = obj, at
		}
	}

	if direct && h.offset > streamAt {
		obj, err := parseIndirectAt(d.data, h.offset, d)
		if err != nil {
			return Indirect{}, notRecognized("object %d at offset %d: %v", n, h.offset, err)
		}
		return obj, nil
	}
	if streamAt >= 0 {
		return streamObj, nil
	}
	return Indirect{}, notRecognized("object %d not found", n)
}

// Deref resolves o if it is a reference.
func (d *Document) Deref(o Object) (Object, error) {
	if o.Kind != Reference {
		return o, nil
	}
	obj, err := d.Object(o.Ref.Number)
	if err != nil {
		return Object{}, err
	}
	return obj.Value, nil
}

// Catalog returns the document catalog.
func (d *Document) Catalog() (Indirect, error) {
	catalog, err := d.Object(d.RootRef().Number)
	if err != nil {
		return Indirect{}, err
	}
	if catalog.Value.Kind != Dict {
		return Indirect{}, notRecognized("/Root %s is not a dictionary", d.RootRef())
	}
	return catalog, nil
}

// parseIndirectAt parses "n g obj ... endobj" at off. doc, when set,
// resolves an indirect stream /Length.
func parseIndirectAt(src []byte, off int, doc *Document) (Indirect, error) {
	p := NewParser(src, off)
	lex := p.Lexer()

	nt, err := lex.Next()
	if err != nil || nt.Kind != TokenNumber {
		return Indirect{}, fmt.Errorf("expected object number")
	}
	gt, err := lex.Next()
	if err != nil || gt.Kind != TokenNumber {
		return Indirect{}, fmt.Errorf("expected generation number")
	}
	kw, err := lex.Next()
	if err != nil || kw.Kind != TokenKeyword || kw.Value != "obj" {
		return Indirect{}, fmt.Errorf("expected obj keyword")
	}

	n, _ := strconv.Atoi(nt.Value)
	g, _ := strconv.Atoi(gt.Value)

	value, err := p.ParseObject()
	if err != nil {
		return Indirect{}, err
	}

	obj := Indirect{
		Ref:    Ref{Number: n, Generation: g},
		Value:  value,
		Src:    src,
		Offset: off,
	}

	next, err := lex.Peek()
	if err == nil && next.Kind == TokenKeyword && next.Value == "stream" && value.Kind == Dict {
		start := next.End
		if start < len(src) && src[start] == '\r' {
			start++
		}
		if start < len(src) && src[start] == '\n' {
			start++
		}
		obj.StreamStart = start
		obj.StreamEnd = streamEnd(src, start, value, doc)
	}
	return obj, nil
}

func streamEnd(src []byte, start int, dict Object, doc *Document) int {
	if l, ok := dict.Key("Length"); ok {
		if l.Kind == Reference && doc != nil {
			l, _ = doc.Deref(l)
		}
		if n, ok := l.Int(); ok && n >= 0 && start+int(n) <= len(src) {
			end := start + int(n)
			rest := bytes.TrimLeft(src[end:min(end+32, len(src))], "\r\n ")
			if bytes.HasPrefix(rest, []byte("endstream")) {
				return end
			}
		}
	}
	i := bytes.Index(src[start:], []byte("endstream"))
	if i < 0 {
		return start
	}
	end := start + i
	for end > start && (src[end-1] == '\n' || src[end-1] == '\r') {
		end--
	}
	return end
}

// ObjectNumbers returns the numbers of all indexed objects in ascending order.
func (d *Document) ObjectNumbers() []int {
	nums := make([]int, 0, len(d.headers))
	for n := range d.headers {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	return nums
}
