package extract_test

import (
	"bytes"
	"context"
	"encoding/pem"
	"errors"
	"io"
	"testing"

	"github.com/digitorus/efirma-pdfsign/common"
	"github.com/digitorus/efirma-pdfsign/extract"
	"github.com/digitorus/efirma-pdfsign/internal/testpki"
	"github.com/digitorus/efirma-pdfsign/sign"
)

const testPassword = "test1234"

func signedDocument(tb testing.TB, id *testpki.Identity, input []byte) []byte {
	t, _ := tb.(*testing.T)
	output, _, err := sign.SignWithPKCS12(context.Background(), input, id.PFX(t, testPassword, testpki.PFXModern), testPassword, sign.DefaultOptions())
	if err != nil {
		tb.Fatalf("SignWithPKCS12: %v", err)
	}
	return output
}

func TestSignatureExtraction(t *testing.T) {
	id := testpki.NewIdentity(t, testpki.IdentityOptions{WithCA: true})
	signed := signedDocument(t, id, testpki.SamplePDF(t, testpki.PDFOptions{Pages: 2}))

	found := 0
	for sig, err := range extract.Signatures(signed) {
		if err != nil {
			t.Fatalf("Iteration error: %v", err)
		}
		found++

		if sig.Field != "Signature1" {
			t.Errorf("Field = %q", sig.Field)
		}
		if sig.Name() != "JUAN PÉREZ LÓPEZ" {
			t.Errorf("Name = %q", sig.Name())
		}
		if sig.Reason() != sign.DefaultReason || sig.Location() != sign.DefaultLocation {
			t.Errorf("Reason %q, Location %q", sig.Reason(), sig.Location())
		}
		if sig.Filter() != "Adobe.PPKLite" || sig.SubFilter() != "adbe.pkcs7.detached" {
			t.Errorf("Filter %q, SubFilter %q", sig.Filter(), sig.SubFilter())
		}
		if sig.SigningTime() == "" {
			t.Error("SigningTime is empty")
		}

		der, err := sig.DER()
		if err != nil {
			t.Fatalf("DER: %v", err)
		}
		if len(der) >= len(sig.Contents()) {
			t.Errorf("DER is %d bytes, contents %d, padding not trimmed", len(der), len(sig.Contents()))
		}

		certs, err := sig.Certificates()
		if err != nil {
			t.Fatalf("Certificates: %v", err)
		}
		if len(certs) != 2 || !certs[0].Equal(id.Certificate) {
			t.Errorf("found %d certificates", len(certs))
		}

		encoded := extract.CertificatesPEM(certs)
		block, rest := pem.Decode(encoded)
		if block == nil || block.Type != "CERTIFICATE" || !bytes.Equal(block.Bytes, certs[0].Raw) {
			t.Error("first PEM block is not the signer certificate")
		}
		if block, _ := pem.Decode(rest); block == nil {
			t.Error("second PEM block missing")
		}

		br := sig.ByteRange()
		if len(br) != 4 || br[0] != 0 || br[2]+br[3] != int64(len(signed)) {
			t.Errorf("ByteRange = %v", br)
		}

		reader, err := sig.SignedData()
		if err != nil {
			t.Fatalf("SignedData: %v", err)
		}
		data, err := io.ReadAll(reader)
		if err != nil {
			t.Fatalf("Failed to read SignedData: %v", err)
		}
		want := append(append([]byte(nil), signed[:br[1]]...), signed[br[2]:]...)
		if !bytes.Equal(data, want) {
			t.Errorf("SignedData returned %d bytes, want %d", len(data), len(want))
		}
	}

	if found != 1 {
		t.Errorf("found %d signatures, want 1", found)
	}
}

func TestSignaturesUnsigned(t *testing.T) {
	for sig := range extract.Signatures(testpki.SamplePDF(t, testpki.PDFOptions{Pages: 1})) {
		t.Errorf("unexpected signature %v", sig)
	}
}

func TestSignaturesNotPDF(t *testing.T) {
	for _, err := range extract.Signatures([]byte("not a pdf")) {
		if !errors.Is(err, common.ErrPdfStructureNotRecognized) {
			t.Errorf("error %v, want %v", err, common.ErrPdfStructureNotRecognized)
		}
		return
	}
	t.Error("no error reported")
}

func TestTrimDER(t *testing.T) {
	der := []byte{0x30, 0x03, 0x02, 0x01, 0x05}

	got, err := extract.TrimDER(append(der, 0, 0, 0, 0))
	if err != nil || !bytes.Equal(got, der) {
		t.Errorf("TrimDER = %x, %v", got, err)
	}
	if _, err := extract.TrimDER(append(der, 0x01)); err == nil {
		t.Error("trailing data accepted")
	}
	for _, contents := range [][]byte{{0, 0}, {0, 0, 0}, make([]byte, 64)} {
		if _, err := extract.TrimDER(contents); !errors.Is(err, common.ErrPdfStructureNotRecognized) {
			t.Errorf("empty slot of %d bytes: %v", len(contents), err)
		}
	}
	if _, err := extract.TrimDER([]byte{0x04, 0x01, 0x05, 0, 0}); !errors.Is(err, common.ErrPdfStructureNotRecognized) {
		t.Errorf("OCTET STRING accepted: %v", err)
	}
}

func TestByteRangeReader(t *testing.T) {
	file := bytes.NewReader([]byte("0123456789abcdef"))

	tests := []struct {
		ranges []int64
		want   string
	}{
		{[]int64{0, 4, 8, 8}, "012389abcdef"},
		{[]int64{0, 0, 10, 6}, "abcdef"},
		{[]int64{2, 3}, "234"},
	}
	for _, tt := range tests {
		got, err := io.ReadAll(&extract.ByteRangeReader{File: file, Ranges: tt.ranges})
		if err != nil || string(got) != tt.want {
			t.Errorf("ranges %v: %q, %v; want %q", tt.ranges, got, err, tt.want)
		}
	}

	// One byte at a time crosses range boundaries.
	r := &extract.ByteRangeReader{File: file, Ranges: []int64{0, 2, 14, 2}}
	var out []byte
	p := make([]byte, 1)
	for {
		n, err := r.Read(p)
		out = append(out, p[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
	}
	if string(out) != "01ef" {
		t.Errorf("byte-wise read %q", out)
	}

	_, err := io.ReadAll(&extract.ByteRangeReader{File: file, Ranges: []int64{10, 10}})
	if err == nil {
		t.Error("reading past the end succeeded")
	}
}
