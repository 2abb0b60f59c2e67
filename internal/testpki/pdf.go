package testpki

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"strings"
	"testing"
)

// PDFOptions controls SamplePDF.
type PDFOptions struct {
	Pages int
	// XrefStream writes a cross-reference stream instead of a table.
	XrefStream bool
	// ObjectStream stores the catalog and page tree in an object stream.
	// It implies XrefStream.
	ObjectStream bool
	// Info adds a document information dictionary.
	Info bool
	// Encrypt adds an /Encrypt entry to the trailer.
	Encrypt bool
	// MediaBox overrides the US Letter page size.
	MediaBox [4]float64
	// AcroForm adds an interactive form dictionary to the catalog.
	AcroForm bool
}

type pdfObject struct {
	num        int
	body       string
	stream     []byte
	compressed bool
}

// SamplePDF generates a small but well-formed PDF document.
func SamplePDF(t *testing.T, opts PDFOptions) []byte {
	if opts.Pages <= 0 {
		opts.Pages = 1
	}
	if opts.ObjectStream {
		opts.XrefStream = true
	}
	if opts.MediaBox == [4]float64{} {
		opts.MediaBox = [4]float64{0, 0, 612, 792}
	}

	n := opts.Pages
	var objects []pdfObject

	catalog := "<< /Type /Catalog /Pages 2 0 R"
	next := 3 + 2*n
	if opts.AcroForm {
		catalog += fmt.Sprintf(" /AcroForm %d 0 R", next)
	}
	catalog += " >>"
	objects = append(objects, pdfObject{num: 1, body: catalog, compressed: opts.ObjectStream})

	kids := make([]string, n)
	for i := range n {
		kids[i] = fmt.Sprintf("%d 0 R", 3+i)
	}
	objects = append(objects, pdfObject{
		num: 2,
		body: fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d /MediaBox [%g %g %g %g] >>",
			strings.Join(kids, " "), n, opts.MediaBox[0], opts.MediaBox[1], opts.MediaBox[2], opts.MediaBox[3]),
		compressed: opts.ObjectStream,
	})

	for i := range n {
		objects = append(objects, pdfObject{
			num: 3 + i,
			body: fmt.Sprintf("<< /Type /Page /Parent 2 0 R /Contents %d 0 R /Resources << /Font << /F1 << /Type /Font /Subtype /Type1 /BaseFont /Helvetica >> >> >> >>",
				3+n+i),
			compressed: opts.ObjectStream,
		})
	}
	for i := range n {
		content := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (Page %d) Tj ET", i+1)
		objects = append(objects, pdfObject{num: 3 + n + i, body: "<< /Length %d >>", stream: []byte(content)})
	}

	if opts.AcroForm {
		objects = append(objects, pdfObject{num: next, body: "<< /Fields [] >>"})
		next++
	}

	infoNum, encryptNum := 0, 0
	if opts.Info {
		infoNum = next
		next++
		objects = append(objects, pdfObject{num: infoNum, body: "<< /Title (Sample document) /Author (testpki) /Producer (testpki) /CreationDate (D:20240101120000Z) >>"})
	}
	if opts.Encrypt {
		encryptNum = next
		next++
		objects = append(objects, pdfObject{num: encryptNum, body: "<< /Filter /Standard /V 1 /R 2 /O <00> /U <00> /P -4 >>"})
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n")

	offsets := make(map[int]int)
	compressed := make(map[int]int)

	writeObject := func(o pdfObject) {
		offsets[o.num] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n", o.num)
		if o.stream != nil {
			fmt.Fprintf(&buf, o.body, len(o.stream))
			buf.WriteString("\nstream\n")
			buf.Write(o.stream)
			buf.WriteString("\nendstream")
		} else {
			buf.WriteString(o.body)
		}
		buf.WriteString("\nendobj\n")
	}

	var packed []pdfObject
	for _, o := range objects {
		if o.compressed {
			packed = append(packed, o)
			continue
		}
		writeObject(o)
	}

	if len(packed) > 0 {
		objStm := next
		next++
		var header, body bytes.Buffer
		for i, o := range packed {
			fmt.Fprintf(&header, "%d %d ", o.num, body.Len())
			body.WriteString(o.body)
			body.WriteString("\n")
			compressed[o.num] = i
		}
		data := append(header.Bytes(), body.Bytes()...)
		writeObject(pdfObject{
			num:    objStm,
			body:   fmt.Sprintf("<< /Type /ObjStm /N %d /First %d /Filter /FlateDecode /Length %%d >>", len(packed), header.Len()),
			stream: deflate(t, data),
		})
		for num := range compressed {
			offsets[num] = -objStm
		}
	}

	trailer := "/Root 1 0 R /ID [<0123456789ABCDEF0123456789ABCDEF> <0123456789ABCDEF0123456789ABCDEF>]"
	if infoNum > 0 {
		trailer += fmt.Sprintf(" /Info %d 0 R", infoNum)
	}
	if encryptNum > 0 {
		trailer += fmt.Sprintf(" /Encrypt %d 0 R", encryptNum)
	}

	if !opts.XrefStream {
		xref := buf.Len()
		fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f\r\n", next)
		for i := 1; i < next; i++ {
			fmt.Fprintf(&buf, "%010d 00000 n\r\n", offsets[i])
		}
		fmt.Fprintf(&buf, "trailer\n<< /Size %d %s >>\nstartxref\n%d\n%%%%EOF\n", next, trailer, xref)
		return buf.Bytes()
	}

	xrefNum := next
	size := next + 1
	xref := buf.Len()
	offsets[xrefNum] = xref

	var entries bytes.Buffer
	entry := func(typ byte, field2 uint32, field3 uint16) {
		entries.WriteByte(typ)
		_ = binary.Write(&entries, binary.BigEndian, field2)
		_ = binary.Write(&entries, binary.BigEndian, field3)
	}
	entry(0, 0, 65535)
	for i := 1; i < size; i++ {
		switch off := offsets[i]; {
		case off < 0:
			entry(2, uint32(-off), uint16(compressed[i]))
		default:
			entry(1, uint32(off), 0)
		}
	}

	writeObject(pdfObject{
		num: xrefNum,
		body: fmt.Sprintf("<< /Type /XRef /Size %d /W [1 4 2] /Filter /FlateDecode %s /Length %%d >>",
			size, trailer),
		stream: deflate(t, entries.Bytes()),
	})
	fmt.Fprintf(&buf, "startxref\n%d\n%%%%EOF\n", xref)
	return buf.Bytes()
}

func deflate(t *testing.T, data []byte) []byte {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		Fail(t, "failed to compress: %v", err)
	}
	if err := zw.Close(); err != nil {
		Fail(t, "failed to compress: %v", err)
	}
	return buf.Bytes()
}
