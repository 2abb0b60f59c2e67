// Package pdfsign signs PDF documents with a detached PKCS #7 signature made
// with an e.firma (SAT) certificate and key, or with a PKCS #12 bundle.
//
// Basic usage:
//
//	doc, err := pdfsign.OpenFile("contrato.pdf")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	cert, session, err := certstore.LoadFromPair(cer, key, password)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	doc.Sign(cert, session).
//	    Reason("Aprobación").
//	    Location("Ciudad de México")
//
//	results, err := doc.Write(output)
//
// Every signature is appended as an incremental update, so the bytes of the
// original document stay untouched.
package pdfsign

import (
	"fmt"
	"io"
	"os"

	pdflib "github.com/digitorus/pdf"
	"github.com/rs/zerolog"

	"github.com/digitorus/efirma-pdfsign/common"
	"github.com/digitorus/efirma-pdfsign/extract"
	"github.com/digitorus/efirma-pdfsign/verify"
)

// Document is a PDF document that can be signed, verified or inspected.
type Document struct {
	data []byte
	rdr  *pdflib.Reader
	log  zerolog.Logger

	// Staged operations
	pendingSigns []*SignBuilder
}

// Open reads the PDF document available from reader. The size parameter must
// be the total size of the PDF in bytes.
func Open(reader io.ReaderAt, size int64) (*Document, error) {
	data := make([]byte, size)
	if _, err := reader.ReadAt(data, 0); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read PDF: %w", err)
	}
	return OpenBytes(data)
}

// OpenBytes initializes a Document from data held in memory.
func OpenBytes(data []byte) (*Document, error) {
	rdr, err := extract.Open(data)
	if err != nil {
		return nil, err
	}
	return &Document{
		data: data,
		rdr:  rdr,
		log:  zerolog.Nop(),
	}, nil
}

// OpenFile is a convenience method to initialize a Document from a file on disk.
func OpenFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return OpenBytes(data)
}

// SetLogger sets the logger of the signing and verification stages.
func (d *Document) SetLogger(logger zerolog.Logger) {
	d.log = logger
}

// Bytes returns the current content of the document.
func (d *Document) Bytes() []byte {
	return d.data
}

// Reader returns the low-level PDF reader of the current content.
func (d *Document) Reader() *pdflib.Reader {
	return d.rdr
}

// Info returns the document information dictionary and the page count.
func (d *Document) Info() (common.DocumentInfo, error) {
	return verify.Info(d.data)
}
