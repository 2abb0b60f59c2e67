package extract

import (
	"bytes"
	"crypto/x509"
	"encoding/asn1"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"iter"

	pdflib "github.com/digitorus/pdf"
	"github.com/digitorus/pkcs7"

	"github.com/digitorus/efirma-pdfsign/common"
)

// Signature represents a signature dictionary in the PDF.
type Signature struct {
	// Field is the fully qualified name of the form field holding the
	// signature.
	Field string
	Obj   pdflib.Value
	File  io.ReaderAt
}

// Object returns the underlying low-level PDF value for the signature dictionary.
func (s *Signature) Object() pdflib.Value {
	return s.Obj
}

// Name returns the name of the person or authority signing the document.
func (s *Signature) Name() string {
	return s.Obj.Key("Name").Text()
}

// Reason returns the /Reason entry.
func (s *Signature) Reason() string {
	return s.Obj.Key("Reason").Text()
}

// Location returns the /Location entry.
func (s *Signature) Location() string {
	return s.Obj.Key("Location").Text()
}

// ContactInfo returns the /ContactInfo entry.
func (s *Signature) ContactInfo() string {
	return s.Obj.Key("ContactInfo").Text()
}

// SigningTime returns the raw /M date string, empty when absent.
func (s *Signature) SigningTime() string {
	return s.Obj.Key("M").Text()
}

// Filter returns the name of the preferred signature handler.
func (s *Signature) Filter() string {
	return s.Obj.Key("Filter").Name()
}

// SubFilter returns the encoding format of the signature.
func (s *Signature) SubFilter() string {
	return s.Obj.Key("SubFilter").Name()
}

// Contents returns the decoded /Contents string, padding included.
func (s *Signature) Contents() []byte {
	return []byte(s.Obj.Key("Contents").RawString())
}

// DER returns the CMS structure without the zero padding of its slot.
func (s *Signature) DER() ([]byte, error) {
	return TrimDER(s.Contents())
}

// PKCS7 parses the CMS structure.
func (s *Signature) PKCS7() (*pkcs7.PKCS7, error) {
	der, err := s.DER()
	if err != nil {
		return nil, err
	}
	p7, err := pkcs7.Parse(der)
	if err != nil {
		return nil, fmt.Errorf("failed to parse PKCS#7: %w", err)
	}
	return p7, nil
}

// Certificates returns the certificates embedded in the CMS structure.
func (s *Signature) Certificates() ([]*x509.Certificate, error) {
	p7, err := s.PKCS7()
	if err != nil {
		return nil, err
	}
	return p7.Certificates, nil
}

// ByteRange returns the array of byte offsets that define the range(s) of the file covered by the signature.
func (s *Signature) ByteRange() []int64 {
	br := s.Obj.Key("ByteRange")
	if br.IsNull() || br.Len() == 0 {
		return nil
	}

	ranges := make([]int64, 0, br.Len())
	for i := 0; i < br.Len(); i++ {
		ranges = append(ranges, br.Index(i).Int64())
	}
	return ranges
}

// SignedData returns a reader that provides the actual bytes of the document covered by the signature.
func (s *Signature) SignedData() (io.Reader, error) {
	ranges := s.ByteRange()
	if len(ranges) == 0 || len(ranges)%2 != 0 {
		return nil, errors.New("invalid or missing ByteRange")
	}

	return &ByteRangeReader{
		File:   s.File,
		Ranges: ranges,
	}, nil
}

// TrimDER returns the leading DER element of contents. Signature slots are
// padded with zeros after the encoding.
func TrimDER(contents []byte) ([]byte, error) {
	var outer asn1.RawValue
	rest, err := asn1.Unmarshal(contents, &outer)
	if err != nil {
		return nil, common.WrapError(common.ErrPdfStructureNotRecognized, err, "signature contents are not DER")
	}
	if outer.Class != asn1.ClassUniversal || outer.Tag != asn1.TagSequence || !outer.IsCompound {
		if len(bytes.Trim(contents, "\x00")) == 0 {
			return nil, common.NewError(common.ErrPdfStructureNotRecognized, "signature slot is empty")
		}
		return nil, common.NewError(common.ErrPdfStructureNotRecognized, "signature contents are not a SEQUENCE")
	}
	if len(bytes.Trim(rest, "\x00")) != 0 {
		return nil, common.NewError(common.ErrPdfStructureNotRecognized, "%d unexpected bytes after the signature", len(rest))
	}
	return contents[:len(contents)-len(rest)], nil
}

// CertificatesPEM encodes certs as consecutive PEM blocks.
func CertificatesPEM(certs []*x509.Certificate) []byte {
	var buf bytes.Buffer
	for _, cert := range certs {
		_ = pem.Encode(&buf, &pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw})
	}
	return buf.Bytes()
}

// Open reads the document structure of data.
func Open(data []byte) (rdr *pdflib.Reader, err error) {
	defer func() {
		if r := recover(); r != nil {
			rdr = nil
			err = common.NewError(common.ErrPdfStructureNotRecognized, "failed to read document (%v)", r)
		}
	}()

	rdr, err = pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, common.WrapError(common.ErrPdfStructureNotRecognized, err, "failed to read document")
	}
	return rdr, nil
}

// Signatures opens data and iterates over its signature dictionaries.
func Signatures(data []byte) iter.Seq2[*Signature, error] {
	return func(yield func(*Signature, error) bool) {
		rdr, err := Open(data)
		if err != nil {
			yield(nil, err)
			return
		}
		for sig, err := range Iter(rdr, bytes.NewReader(data)) {
			if !yield(sig, err) {
				return
			}
		}
	}
}

// Iter returns an iterator over all signature dictionaries in the PDF reader.
func Iter(rdr *pdflib.Reader, file io.ReaderAt) iter.Seq2[*Signature, error] {
	return func(yield func(*Signature, error) bool) {
		root := rdr.Trailer().Key("Root")
		acroForm := root.Key("AcroForm")

		sigFlags := acroForm.Key("SigFlags")
		if sigFlags.IsNull() {
			return
		}

		fields := acroForm.Key("Fields")

		var traverse func(pdflib.Value, string) bool
		traverse = func(arr pdflib.Value, parent string) bool {
			if arr.IsNull() || arr.Kind() != pdflib.Array {
				return true
			}
			for i := 0; i < arr.Len(); i++ {
				field := arr.Index(i)
				name := field.Key("T").Text()
				if parent != "" {
					name = parent + "." + name
				}

				if field.Key("FT").Name() == "Sig" {
					v := field.Key("V")
					isSig := v.Key("Type").Name() == "Sig" ||
						(!v.Key("Filter").IsNull() && !v.Key("Contents").IsNull())

					if isSig {
						sig := &Signature{
							Field: name,
							Obj:   v,
							File:  file,
						}
						if !yield(sig, nil) {
							return false
						}
					}
				}

				kids := field.Key("Kids")
				if !kids.IsNull() {
					if !traverse(kids, name) {
						return false
					}
				}
			}
			return true
		}

		traverse(fields, "")
	}
}

// ByteRangeReader implements io.Reader to look like a continuous stream
// over the non-contiguous byte ranges.
type ByteRangeReader struct {
	File      io.ReaderAt
	Ranges    []int64
	rangeIdx  int
	readInCur int64
}

func (r *ByteRangeReader) Read(p []byte) (n int, err error) {
	for n < len(p) && r.rangeIdx+1 < len(r.Ranges) {
		start := r.Ranges[r.rangeIdx]
		length := r.Ranges[r.rangeIdx+1]

		remaining := length - r.readInCur
		if remaining <= 0 {
			r.rangeIdx += 2
			r.readInCur = 0
			continue
		}

		chunk := p[n:]
		if int64(len(chunk)) > remaining {
			chunk = chunk[:remaining]
		}

		read, readErr := r.File.ReadAt(chunk, start+r.readInCur)
		n += read
		r.readInCur += int64(read)

		if readErr != nil {
			if readErr == io.EOF && r.readInCur == length {
				continue
			}
			if readErr == io.EOF {
				return n, io.ErrUnexpectedEOF
			}
			return n, readErr
		}
	}

	if n == 0 && r.rangeIdx+1 >= len(r.Ranges) {
		return 0, io.EOF
	}
	return n, nil
}
