package sign

import (
	"bytes"
	"fmt"

	"github.com/digitorus/efirma-pdfsign/common"
	"github.com/digitorus/efirma-pdfsign/internal/pdf"
)

// Slot locates the /Contents hex digits and the /ByteRange array of a
// signature dictionary.
type Slot struct {
	// ContentsStart is the offset of the first hex digit, ContentsEnd the
	// offset of the closing '>'.
	ContentsStart int
	ContentsEnd   int
	// ByteRangeStart and ByteRangeEnd delimit the array including its
	// brackets.
	ByteRangeStart int
	ByteRangeEnd   int
}

// Capacity returns the number of hex digits the slot holds.
func (s Slot) Capacity() int {
	return s.ContentsEnd - s.ContentsStart
}

var (
	contentsKey  = []byte("/Contents")
	byteRangeKey = []byte("/ByteRange")
	endobj       = []byte("endobj")
)

// FindSignatureSlot locates the last /Contents key whose value is a hex
// string, and the /ByteRange array of the same object.
func FindSignatureSlot(data []byte) (Slot, error) {
	end := len(data)
	for {
		i := bytes.LastIndex(data[:end], contentsKey)
		if i < 0 {
			return Slot{}, common.NewError(common.ErrPdfStructureNotRecognized, "no /Contents hex string found")
		}
		end = i

		lex := pdf.NewLexer(data, i)
		name, err := lex.Next()
		if err != nil || name.Kind != pdf.TokenName || name.Value != "Contents" {
			continue
		}
		value, err := lex.Next()
		if err != nil || value.Kind != pdf.TokenHexString {
			continue
		}

		slot := Slot{ContentsStart: value.Start + 1, ContentsEnd: value.End - 1}
		start, stop, err := findByteRange(data, i, value.End)
		if err != nil {
			return Slot{}, err
		}
		slot.ByteRangeStart, slot.ByteRangeEnd = start, stop
		return slot, nil
	}
}

// findByteRange looks for /ByteRange between the previous and the next
// endobj around the /Contents entry at [from, to).
func findByteRange(data []byte, from, to int) (int, int, error) {
	lower := 0
	if i := bytes.LastIndex(data[:from], endobj); i >= 0 {
		lower = i + len(endobj)
	}
	upper := len(data)
	if i := bytes.Index(data[to:], endobj); i >= 0 {
		upper = to + i
	}

	candidates := make([]int, 0, 2)
	if i := bytes.LastIndex(data[lower:from], byteRangeKey); i >= 0 {
		candidates = append(candidates, lower+i)
	}
	if i := bytes.Index(data[to:upper], byteRangeKey); i >= 0 {
		candidates = append(candidates, to+i)
	}

	for _, at := range candidates {
		p := pdf.NewParser(data, at)
		name, err := p.ParseObject()
		if err != nil || !name.IsName("ByteRange") {
			continue
		}
		arr, err := p.ParseObject()
		if err != nil || arr.Kind != pdf.Array || len(arr.Items) != 4 {
			continue
		}
		return arr.Start, arr.End, nil
	}
	return 0, 0, common.NewError(common.ErrPdfStructureNotRecognized, "no /ByteRange array next to /Contents")
}

// CalculateByteRange returns the byte range that excludes the /Contents
// hex string, delimiters included, of the last signature in data.
func CalculateByteRange(data []byte) (ByteRange, Slot, error) {
	slot, err := FindSignatureSlot(data)
	if err != nil {
		return ByteRange{}, Slot{}, err
	}
	return byteRangeFor(slot, len(data)), slot, nil
}

func byteRangeFor(slot Slot, total int) ByteRange {
	return ByteRange{
		0,
		int64(slot.ContentsStart - 1),
		int64(slot.ContentsEnd + 1),
		int64(total - (slot.ContentsEnd + 1)),
	}
}

// String renders the fixed width array written into the placeholder.
func (br ByteRange) String() string {
	return fmt.Sprintf("[%010d %010d %010d %010d]", br[0], br[1], br[2], br[3])
}

// WriteByteRange writes br over the /ByteRange array of slot. The array
// keeps its width.
func WriteByteRange(data []byte, slot Slot, br ByteRange) error {
	text := br.String()
	if len(text) != slot.ByteRangeEnd-slot.ByteRangeStart {
		return common.NewError(common.ErrByteRangeIntegrityViolation,
			"byte range %s does not fit the %d byte placeholder", text, slot.ByteRangeEnd-slot.ByteRangeStart)
	}
	copy(data[slot.ByteRangeStart:slot.ByteRangeEnd], text)
	return nil
}

// signedSpans returns the two spans of data covered by br.
func signedSpans(data []byte, br ByteRange) ([][]byte, error) {
	if br[0] < 0 || br[1] < 0 || br[2] < br[0]+br[1] || br[3] < 0 || br[2]+br[3] > int64(len(data)) {
		return nil, common.NewError(common.ErrByteRangeIntegrityViolation, "byte range %v outside of %d bytes", br, len(data))
	}
	return [][]byte{
		data[br[0] : br[0]+br[1]],
		data[br[2] : br[2]+br[3]],
	}, nil
}
