package sign

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/digitorus/efirma-pdfsign/certstore"
	"github.com/digitorus/efirma-pdfsign/internal/pdf"
	"github.com/digitorus/efirma-pdfsign/internal/testpki"
)

const testPassword = "test1234"

// loadSigner returns the certificate and an open key session for id, loaded
// through a PKCS #12 bundle so the shared test key is never zeroed.
func loadSigner(t *testing.T, id *testpki.Identity) (*certstore.Certificate, *certstore.KeySession) {
	t.Helper()
	cert, session, err := certstore.LoadFromPKCS12(id.PFX(t, testPassword, testpki.PFXModern), testPassword)
	if err != nil {
		t.Fatalf("LoadFromPKCS12: %v", err)
	}
	return cert, session
}

// testOptions returns the defaults with a fixed page and a quiet logger.
func testOptions() Options {
	opts := DefaultOptions()
	opts.Page = 1
	return opts
}

// buildPDF lays out objects numbered from 1 with a classic xref table.
func buildPDF(objects []string, trailer string) []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, body := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f\r\n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n\r\n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d %s >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, trailer, xref)
	return buf.Bytes()
}

// openSigned indexes a signed document and fails the test when it cannot.
func openSigned(t *testing.T, data []byte) *pdf.Document {
	t.Helper()
	doc, err := pdf.Open(data)
	if err != nil {
		t.Fatalf("signed output cannot be opened: %v", err)
	}
	return doc
}

// resolve returns the dictionary value of key, following a reference.
func resolve(t *testing.T, doc *pdf.Document, dict pdf.Object, key string) pdf.Object {
	t.Helper()
	v, ok := dict.Key(key)
	if !ok {
		t.Fatalf("/%s not found", key)
	}
	v, err := doc.Deref(v)
	if err != nil {
		t.Fatalf("/%s: %v", key, err)
	}
	return v
}

// formFields returns the /Fields array of the document's AcroForm.
func formFields(t *testing.T, doc *pdf.Document) (pdf.Object, pdf.Indirect) {
	t.Helper()
	catalog, err := doc.Catalog()
	if err != nil {
		t.Fatalf("Catalog: %v", err)
	}
	acroForm := resolve(t, doc, catalog.Value, "AcroForm")
	return resolve(t, doc, acroForm, "Fields"), catalog
}
