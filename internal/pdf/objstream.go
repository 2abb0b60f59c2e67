package pdf

import (
	"bytes"
	"compress/zlib"
	"io"
	"sort"
	"strconv"
)

// objectStream is a decoded /Type /ObjStm stream.
type objectStream struct {
	offset  int
	data    []byte
	first   int
	objects map[int]int
}

func (d *Document) loadObjectStreams() {
	if d.loadedObjs {
		return
	}
	d.loadedObjs = true

	for _, n := range d.ObjectNumbers() {
		h := d.headers[n]
		head := d.data[h.offset:min(h.offset+512, len(d.data))]
		if !bytes.Contains(head, []byte("/ObjStm")) {
			continue
		}
		obj, err := parseIndirectAt(d.data, h.offset, d)
		if err != nil || !obj.IsStream() {
			continue
		}
		if typ, _ := obj.Value.Key("Type"); !typ.IsName("ObjStm") {
			continue
		}
		if s, ok := d.decodeObjectStream(obj); ok {
			d.objStreams = append(d.objStreams, s)
		}
	}

	// Newest first.
	sort.Slice(d.objStreams, func(i, j int) bool {
		return d.objStreams[i].offset > d.objStreams[j].offset
	})
}

func (d *Document) decodeObjectStream(obj Indirect) (*objectStream, bool) {
	raw := obj.Src[obj.StreamStart:obj.StreamEnd]

	filter, hasFilter := obj.Value.Key("Filter")
	if hasFilter {
		if filter.Kind == Array && len(filter.Items) == 1 {
			filter = filter.Items[0]
		}
		if !filter.IsName("FlateDecode") {
			return nil, false
		}
		if obj.Value.Has("DecodeParms") {
			return nil, false
		}
		zr, err := zlib.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, false
		}
		defer zr.Close()
		if raw, err = io.ReadAll(zr); err != nil {
			return nil, false
		}
	}

	nObj, _ := obj.Value.Key("N")
	firstObj, _ := obj.Value.Key("First")
	n, ok1 := nObj.Int()
	first, ok2 := firstObj.Int()
	if !ok1 || !ok2 || first < 0 || int(first) > len(raw) {
		return nil, false
	}

	s := &objectStream{
		offset:  obj.Offset,
		data:    raw,
		first:   int(first),
		objects: make(map[int]int, n),
	}

	lex := NewLexer(raw[:first], 0)
	for i := int64(0); i < n; i++ {
		num, err1 := lex.Next()
		off, err2 := lex.Next()
		if err1 != nil || err2 != nil || num.Kind != TokenNumber || off.Kind != TokenNumber {
			return nil, false
		}
		objNum, _ := strconv.Atoi(num.Value)
		objOff, _ := strconv.Atoi(off.Value)
		s.objects[objNum] = objOff
		if objNum > d.maxObject {
			d.maxObject = objNum
		}
	}
	return s, true
}

// hasNewerObjectStream reports whether an object stream appears after offset.
func (d *Document) hasNewerObjectStream(offset int) bool {
	d.loadObjectStreams()
	return len(d.objStreams) > 0 && d.objStreams[0].offset > offset
}

// fromObjectStreams returns object n from the newest object stream that
// holds it, along with the offset of that stream.
func (d *Document) fromObjectStreams(n int) (Indirect, int, bool) {
	d.loadObjectStreams()
	for _, s := range d.objStreams {
		off, ok := s.objects[n]
		if !ok {
			continue
		}
		pos := s.first + off
		if pos >= len(s.data) {
			continue
		}
		value, err := NewParser(s.data, pos).ParseObject()
		if err != nil {
			continue
		}
		return Indirect{
			Ref:      Ref{Number: n},
			Value:    value,
			Src:      s.data,
			Offset:   pos,
			InStream: true,
		}, s.offset, true
	}
	return Indirect{}, -1, false
}
