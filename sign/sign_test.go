package sign

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/asn1"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	dpdf "github.com/digitorus/pdf"
	"github.com/digitorus/pkcs7"

	"github.com/digitorus/efirma-pdfsign/common"
	"github.com/digitorus/efirma-pdfsign/internal/testpki"
)

// checkSignedOutput checks the properties every signed document has and
// returns the parsed CMS structure of the last signature.
func checkSignedOutput(t *testing.T, input, output []byte, result *Result) *pkcs7.PKCS7 {
	t.Helper()

	if !bytes.HasPrefix(output, []byte("%PDF")) {
		t.Fatalf("output does not start with %%PDF")
	}
	if !bytes.HasPrefix(output, input) {
		t.Fatalf("original bytes were modified")
	}
	if !result.ByteRange.Covers(int64(len(output))) {
		t.Errorf("byte range %v does not cover %d bytes", result.ByteRange, len(output))
	}

	br, slot, err := CalculateByteRange(output)
	if err != nil {
		t.Fatalf("CalculateByteRange: %v", err)
	}
	if br != result.ByteRange {
		t.Errorf("recomputed byte range %v, reported %v", br, result.ByteRange)
	}
	if got := string(output[slot.ByteRangeStart:slot.ByteRangeEnd]); got != br.String() {
		t.Errorf("/ByteRange in file = %s, want %s", got, br.String())
	}

	spans, err := signedSpans(output, br)
	if err != nil {
		t.Fatalf("signedSpans: %v", err)
	}
	digest := ContentDigest(spans)
	if hex.EncodeToString(digest) != result.Hash {
		t.Errorf("Result.Hash = %s, want %x", result.Hash, digest)
	}

	der, err := hex.DecodeString(string(output[slot.ContentsStart : slot.ContentsStart+result.SignatureSize]))
	if err != nil {
		t.Fatalf("contents are not hex: %v", err)
	}
	p7, err := pkcs7.Parse(der)
	if err != nil {
		t.Fatalf("pkcs7.Parse: %v", err)
	}

	var messageDigest []byte
	if err := p7.UnmarshalSignedAttribute(asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 4}, &messageDigest); err != nil {
		t.Fatalf("messageDigest attribute: %v", err)
	}
	if !bytes.Equal(messageDigest, digest) {
		t.Errorf("messageDigest %x does not match the byte range digest %x", messageDigest, digest)
	}

	p7.Content = bytes.Join(spans, nil)
	if err := p7.Verify(); err != nil {
		t.Errorf("pkcs7 Verify: %v", err)
	}
	return p7
}

func TestSignTenPagePKCS12(t *testing.T) {
	id := testpki.NewIdentity(t, testpki.IdentityOptions{WithCA: true})
	input := testpki.SamplePDF(t, testpki.PDFOptions{Pages: 10, Info: true})

	opts := testOptions()
	opts.Page = 0
	opts.Date = time.Date(2025, 3, 14, 9, 26, 53, 0, time.FixedZone("CST", -6*3600))

	output, result, err := SignWithPKCS12(context.Background(), input, id.PFX(t, testPassword, testpki.PFXModern), testPassword, opts)
	if err != nil {
		t.Fatalf("SignWithPKCS12: %v", err)
	}

	p7 := checkSignedOutput(t, input, output, result)

	if n := bytes.Count(output, []byte("/SubFilter /adbe.pkcs7.detached")); n != 1 {
		t.Errorf("found %d /SubFilter entries, want 1", n)
	}
	if len(p7.Signers) != 1 {
		t.Errorf("found %d signers, want 1", len(p7.Signers))
	}
	if len(p7.Certificates) != 2 {
		t.Errorf("found %d certificates, want signer and CA", len(p7.Certificates))
	}

	if result.SignDate != "2025-03-14T09:26:53-06:00" {
		t.Errorf("SignDate = %q", result.SignDate)
	}
	if !strings.Contains(result.Signer, "JUAN PÉREZ LÓPEZ") {
		t.Errorf("Signer = %q", result.Signer)
	}
	if result.CertificationLevel != NotCertified.Description() {
		t.Errorf("CertificationLevel = %q", result.CertificationLevel)
	}
	if result.SignatureSize > result.Capacity {
		t.Errorf("signature size %d exceeds capacity %d", result.SignatureSize, result.Capacity)
	}

	// The widget lands on the last page.
	doc := openSigned(t, output)
	page, err := doc.Page(0)
	if err != nil {
		t.Fatalf("Page: %v", err)
	}
	annots := resolve(t, doc, page.Value, "Annots")
	if len(annots.Items) != 1 {
		t.Fatalf("last page has %d annotations, want 1", len(annots.Items))
	}
	if count, _ := doc.PageCount(); count != 10 {
		t.Errorf("PageCount = %d, want 10", count)
	}

	// The signing date is also written to the Info dictionary.
	info, ok := doc.InfoRef()
	if !ok {
		t.Fatal("trailer lost /Info")
	}
	infoObj, err := doc.Object(info.Number)
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if mod, _ := infoObj.Value.Key("ModDate"); mod.Value != "D:20250314092653-06'00'" {
		t.Errorf("/ModDate = %q", mod.Value)
	}
	if title, _ := infoObj.Value.Key("Title"); title.Value != "Sample document" {
		t.Errorf("/Title = %q, existing keys must be kept", title.Value)
	}
}

func TestSignLayouts(t *testing.T) {
	id := testpki.NewIdentity(t, testpki.IdentityOptions{})

	tests := []struct {
		name    string
		pdf     testpki.PDFOptions
		visible bool
	}{
		{"xref table, invisible", testpki.PDFOptions{Pages: 1}, false},
		{"xref table, visible", testpki.PDFOptions{Pages: 2}, true},
		{"xref stream", testpki.PDFOptions{Pages: 2, XrefStream: true}, true},
		{"object stream", testpki.PDFOptions{Pages: 3, ObjectStream: true, Info: true}, true},
		{"indirect AcroForm", testpki.PDFOptions{Pages: 1, AcroForm: true}, false},
		{"A4 page", testpki.PDFOptions{Pages: 1, MediaBox: [4]float64{0, 0, 595, 842}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := testpki.SamplePDF(t, tt.pdf)
			cert, session := loadSigner(t, id)

			opts := testOptions()
			opts.Visible = tt.visible

			output, result, err := SignPDF(context.Background(), input, cert, session, opts)
			if err != nil {
				t.Fatalf("SignPDF: %v", err)
			}
			checkSignedOutput(t, input, output, result)

			doc := openSigned(t, output)
			want := "table"
			if tt.pdf.XrefStream || tt.pdf.ObjectStream {
				want = "stream"
			}
			if doc.XrefType != want {
				t.Errorf("new section written as %s, want %s", doc.XrefType, want)
			}

			fields, _ := formFields(t, doc)
			if len(fields.Items) != 1 {
				t.Fatalf("form has %d fields, want 1", len(fields.Items))
			}
			widget, err := doc.Object(fields.Items[0].Ref.Number)
			if err != nil {
				t.Fatalf("widget: %v", err)
			}
			if ft, _ := widget.Value.Key("FT"); !ft.IsName("Sig") {
				t.Errorf("widget /FT = %q", ft.Value)
			}
			flags, _ := widget.Value.Key("F")
			hasAP := widget.Value.Has("AP")
			if tt.visible && (flags.Value != "4" || !hasAP) {
				t.Errorf("visible widget: /F %s, /AP %v", flags.Value, hasAP)
			}
			if !tt.visible && (flags.Value != "132" || hasAP) {
				t.Errorf("invisible widget: /F %s, /AP %v", flags.Value, hasAP)
			}

			sig := resolve(t, doc, widget.Value, "V")
			if sub, _ := sig.Key("SubFilter"); !sub.IsName("adbe.pkcs7.detached") {
				t.Errorf("/SubFilter = %q", sub.Value)
			}

			// A second, independent reader must accept the update.
			r, err := dpdf.NewReader(bytes.NewReader(output), int64(len(output)))
			if err != nil {
				t.Fatalf("digitorus/pdf cannot read the output: %v", err)
			}
			if n := r.NumPage(); n != tt.pdf.Pages {
				t.Errorf("digitorus/pdf NumPage = %d, want %d", n, tt.pdf.Pages)
			}
			v := r.Trailer().Key("Root").Key("AcroForm").Key("Fields").Index(0).Key("V")
			if v.Key("Filter").Name() != "Adobe.PPKLite" {
				t.Errorf("digitorus/pdf sees /Filter %q", v.Key("Filter").Name())
			}
		})
	}
}

func TestSignAllocatesAfterLastObject(t *testing.T) {
	id := testpki.NewIdentity(t, testpki.IdentityOptions{})
	input := testpki.SamplePDF(t, testpki.PDFOptions{Pages: 2})
	doc := openSigned(t, input)

	cert, _ := loadSigner(t, id)
	sc, err := NewSignContext(input, cert, testOptions())
	if err != nil {
		t.Fatalf("NewSignContext: %v", err)
	}
	output, err := sc.InsertPlaceholder()
	if err != nil {
		t.Fatalf("InsertPlaceholder: %v", err)
	}

	next := uint32(doc.NextObjectNumber())
	if sc.SignatureObjectId != next || sc.WidgetObjectId != next+1 || sc.AppearanceObjectId != next+2 {
		t.Errorf("allocated %d %d %d, want %d %d %d",
			sc.SignatureObjectId, sc.WidgetObjectId, sc.AppearanceObjectId, next, next+1, next+2)
	}

	// The sample has no Info dictionary, so one is created.
	if sc.InfoObjectId != next+3 {
		t.Errorf("Info allocated as %d, want %d", sc.InfoObjectId, next+3)
	}

	updated := openSigned(t, output)
	if got := updated.Size(); got != int(next)+4 {
		t.Errorf("/Size = %d, want %d", got, next+4)
	}
	if updated.StartXref != sc.NewXrefStart {
		t.Errorf("startxref %d, want %d", updated.StartXref, sc.NewXrefStart)
	}
	if prev, _ := updated.Trailer.Key("Prev"); prev.Value != fmt.Sprint(doc.StartXref) {
		t.Errorf("/Prev = %s, want %d", prev.Value, doc.StartXref)
	}
	if id, _ := updated.TrailerText("ID"); !bytes.Contains(id, []byte("0123456789ABCDEF")) {
		t.Errorf("/ID not carried over: %s", id)
	}

	// The placeholder is all zeros and sized to the capacity.
	if sc.Slot.Capacity() != sc.Capacity {
		t.Errorf("slot holds %d digits, capacity %d", sc.Slot.Capacity(), sc.Capacity)
	}
	if strings.Trim(string(output[sc.Slot.ContentsStart:sc.Slot.ContentsEnd]), "0") != "" {
		t.Error("placeholder is not zero filled")
	}
	if got := string(output[sc.Slot.ByteRangeStart:sc.Slot.ByteRangeEnd]); got != signatureByteRangePlaceholder {
		t.Errorf("placeholder byte range = %s", got)
	}
}

func TestEmbedSignatureKeepsLength(t *testing.T) {
	id := testpki.NewIdentity(t, testpki.IdentityOptions{})
	cert, _ := loadSigner(t, id)

	sc, err := NewSignContext(testpki.SamplePDF(t, testpki.PDFOptions{}), cert, testOptions())
	if err != nil {
		t.Fatalf("NewSignContext: %v", err)
	}
	placeholder, err := sc.InsertPlaceholder()
	if err != nil {
		t.Fatalf("InsertPlaceholder: %v", err)
	}
	size := len(placeholder)

	before, _, err := CalculateByteRange(placeholder)
	if err != nil {
		t.Fatalf("CalculateByteRange: %v", err)
	}
	if err := sc.updateByteRange(); err != nil {
		t.Fatalf("updateByteRange: %v", err)
	}
	after, _, err := CalculateByteRange(sc.OutputBuffer.Buff.Bytes())
	if err != nil {
		t.Fatalf("CalculateByteRange: %v", err)
	}
	if before != after {
		t.Errorf("byte range changed by writing it: %v -> %v", before, after)
	}

	der := bytes.Repeat([]byte{0xAB}, 300)
	if err := EmbedSignature(sc.OutputBuffer, sc.Slot, sc.ByteRangeValues, der); err != nil {
		t.Fatalf("EmbedSignature: %v", err)
	}
	out := sc.OutputBuffer.Buff.Bytes()
	if len(out) != size {
		t.Errorf("length changed from %d to %d", size, len(out))
	}
	contents := string(out[sc.Slot.ContentsStart:sc.Slot.ContentsEnd])
	if !strings.HasPrefix(contents, strings.Repeat("ab", 300)) || strings.Trim(contents[600:], "0") != "" {
		t.Error("contents are not the hex signature padded with zeros")
	}

	// Embedding is repeatable.
	if err := EmbedSignature(sc.OutputBuffer, sc.Slot, sc.ByteRangeValues, der); err != nil {
		t.Errorf("second EmbedSignature: %v", err)
	}
}

func TestSignatureTooLarge(t *testing.T) {
	id := testpki.NewIdentity(t, testpki.IdentityOptions{})
	input := testpki.SamplePDF(t, testpki.PDFOptions{})

	cert, session := loadSigner(t, id)
	opts := testOptions()
	opts.Capacity = 64

	output, result, err := SignPDF(context.Background(), input, cert, session, opts)
	if !errors.Is(err, common.ErrSignatureTooLarge) {
		t.Fatalf("SignPDF error = %v, want ErrSignatureTooLarge", err)
	}
	if output != nil || result != nil {
		t.Error("output returned on failure")
	}
	if !session.Closed() {
		t.Error("key session left open")
	}

	// The embedder does not touch the buffer when the signature is too big.
	sc, err := NewSignContext(input, cert, opts)
	if err != nil {
		t.Fatalf("NewSignContext: %v", err)
	}
	placeholder, err := sc.InsertPlaceholder()
	if err != nil {
		t.Fatalf("InsertPlaceholder: %v", err)
	}
	snapshot := append([]byte(nil), placeholder...)

	err = EmbedSignature(sc.OutputBuffer, sc.Slot, sc.ByteRangeValues, make([]byte, 33))
	var e *common.Error
	if !errors.As(err, &e) || e.Kind != common.ErrSignatureTooLarge {
		t.Fatalf("EmbedSignature error = %v", err)
	}
	if !strings.Contains(e.Msg, "66") || !strings.Contains(e.Msg, "64") || !strings.Contains(e.Msg, "2 over") {
		t.Errorf("message does not report the sizes: %q", e.Msg)
	}
	if !bytes.Equal(sc.OutputBuffer.Buff.Bytes(), snapshot) {
		t.Error("buffer modified by a failed embed")
	}
}

func TestCertificationLevels(t *testing.T) {
	id := testpki.NewIdentity(t, testpki.IdentityOptions{})
	input := testpki.SamplePDF(t, testpki.PDFOptions{})

	tests := []struct {
		level CertificationLevel
		perm  string
	}{
		{NotCertified, ""},
		{NoChangesAllowed, "1"},
		{FormFillingAllowed, "2"},
		{FormFillingAndAnnotationsAllowed, "3"},
		{CertificationLevel(9), ""},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("level %d", tt.level), func(t *testing.T) {
			cert, session := loadSigner(t, id)
			opts := testOptions()
			opts.CertificationLevel = tt.level

			output, result, err := SignPDF(context.Background(), input, cert, session, opts)
			if err != nil {
				t.Fatalf("SignPDF: %v", err)
			}
			if result.CertificationLevel != tt.level.Description() {
				t.Errorf("CertificationLevel = %q", result.CertificationLevel)
			}

			doc := openSigned(t, output)
			catalog, err := doc.Catalog()
			if err != nil {
				t.Fatalf("Catalog: %v", err)
			}
			perms, hasPerms := catalog.Value.Key("Perms")
			hasTransform := bytes.Contains(output, []byte("/TransformMethod /DocMDP"))

			if tt.perm == "" {
				if hasPerms || hasTransform {
					t.Error("approval signature carries DocMDP entries")
				}
				return
			}
			if !hasPerms || !perms.Has("DocMDP") {
				t.Fatal("catalog /Perms /DocMDP missing")
			}
			if !bytes.Contains(output, []byte("/TransformParams << /Type /TransformParams /P "+tt.perm+" /V /1.2 >>")) {
				t.Errorf("/TransformParams with /P %s not found", tt.perm)
			}
		})
	}
}

func TestResign(t *testing.T) {
	first := testpki.NewIdentity(t, testpki.IdentityOptions{})
	second := testpki.NewIdentity(t, testpki.IdentityOptions{CommonName: "MARÍA GARCÍA", RFC: "GAMA900202XY3", Profile: testpki.RSA_1024})
	input := testpki.SamplePDF(t, testpki.PDFOptions{Pages: 2})

	cert, session := loadSigner(t, first)
	once, firstResult, err := SignPDF(context.Background(), input, cert, session, testOptions())
	if err != nil {
		t.Fatalf("first SignPDF: %v", err)
	}

	cert, session = loadSigner(t, second)
	opts := testOptions()
	opts.Page = 2
	twice, secondResult, err := SignPDF(context.Background(), once, cert, session, opts)
	if err != nil {
		t.Fatalf("second SignPDF: %v", err)
	}
	checkSignedOutput(t, once, twice, secondResult)

	// The first signature still covers exactly the first revision.
	if !bytes.HasPrefix(twice, once) {
		t.Fatal("first revision changed")
	}
	if firstResult.ByteRange[2]+firstResult.ByteRange[3] != int64(len(once)) {
		t.Errorf("first byte range %v does not end at %d", firstResult.ByteRange, len(once))
	}
	if firstResult.ByteRange.Covers(int64(len(twice))) {
		t.Error("first byte range claims to cover the re-signed file")
	}
	if n := bytes.Count(twice, []byte("/SubFilter /adbe.pkcs7.detached")); n != 2 {
		t.Errorf("found %d signatures, want 2", n)
	}

	doc := openSigned(t, twice)
	fields, _ := formFields(t, doc)
	if len(fields.Items) != 2 {
		t.Fatalf("form has %d fields, want 2", len(fields.Items))
	}
	var names []string
	for _, f := range fields.Items {
		w, err := doc.Object(f.Ref.Number)
		if err != nil {
			t.Fatalf("field %s: %v", f.Ref, err)
		}
		name, _ := w.Value.Key("T")
		names = append(names, name.Value)
	}
	if names[0] != "Signature1" || names[1] != "Signature2" {
		t.Errorf("field names = %v", names)
	}
}

func TestSignRejects(t *testing.T) {
	id := testpki.NewIdentity(t, testpki.IdentityOptions{})

	tests := []struct {
		name  string
		input []byte
		page  int
	}{
		{"encrypted", testpki.SamplePDF(t, testpki.PDFOptions{Encrypt: true}), 1},
		{"page out of range", testpki.SamplePDF(t, testpki.PDFOptions{Pages: 2}), 3},
		{"not a pdf", []byte("hello"), 1},
		{"no root", []byte("%PDF-1.4\nxref\n0 1\n0000000000 65535 f\r\ntrailer\n<< /Size 1 >>\nstartxref\n9\n%%EOF\n"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cert, session := loadSigner(t, id)
			opts := testOptions()
			opts.Page = tt.page

			output, _, err := SignPDF(context.Background(), tt.input, cert, session, opts)
			if !errors.Is(err, common.ErrPdfStructureNotRecognized) {
				t.Errorf("error = %v, want ErrPdfStructureNotRecognized", err)
			}
			if output != nil {
				t.Error("output returned on failure")
			}
			if !session.Closed() {
				t.Error("key session left open")
			}
		})
	}
}

func TestSignCanceled(t *testing.T) {
	id := testpki.NewIdentity(t, testpki.IdentityOptions{})
	cert, session := loadSigner(t, id)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	output, _, err := SignPDF(ctx, testpki.SamplePDF(t, testpki.PDFOptions{}), cert, session, testOptions())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if output != nil {
		t.Error("output returned on failure")
	}
}

func TestSignWithPair(t *testing.T) {
	id := testpki.NewIdentity(t, testpki.IdentityOptions{})
	input := testpki.SamplePDF(t, testpki.PDFOptions{})
	key := id.EfirmaKey(t, "12345678a", testpki.KeyPKCS8TripleDES)

	output, result, err := SignWithPair(context.Background(), input, id.CertificateDER(), key, "12345678a", testOptions())
	if err != nil {
		t.Fatalf("SignWithPair: %v", err)
	}
	checkSignedOutput(t, input, output, result)

	_, _, err = SignWithPair(context.Background(), input, id.CertificateDER(), key, "incorrecta", testOptions())
	if !errors.Is(err, common.ErrCannotDecryptKey) {
		t.Errorf("wrong password error = %v", err)
	}
}

func TestSignIndirectArrays(t *testing.T) {
	id := testpki.NewIdentity(t, testpki.IdentityOptions{})

	// Page with an indirect /Annots array and a catalog with a direct
	// AcroForm holding an indirect /Fields array.
	input := buildPDF([]string{
		"<< /Type /Catalog /Pages 2 0 R /AcroForm << /Fields 5 0 R /DA (/Helv 0 Tf 0 g) >> >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 300 300] /Annots 4 0 R >>",
		"[]",
		"[ ]",
	}, "/Root 1 0 R")

	cert, session := loadSigner(t, id)
	output, result, err := SignPDF(context.Background(), input, cert, session, testOptions())
	if err != nil {
		t.Fatalf("SignPDF: %v", err)
	}
	checkSignedOutput(t, input, output, result)

	doc := openSigned(t, output)
	annots, err := doc.Object(4)
	if err != nil || len(annots.Value.Items) != 1 {
		t.Fatalf("/Annots revision = %+v, %v", annots.Value, err)
	}
	fields, catalog := formFields(t, doc)
	if len(fields.Items) != 1 || fields.Items[0].Ref != annots.Value.Items[0].Ref {
		t.Errorf("/Fields = %+v", fields.Items)
	}
	acroForm, _ := catalog.Value.Key("AcroForm")
	if flags, _ := acroForm.Key("SigFlags"); flags.Value != "3" {
		t.Errorf("/SigFlags = %q", flags.Value)
	}
	if da, _ := acroForm.Key("DA"); da.Value != "/Helv 0 Tf 0 g" {
		t.Errorf("existing /DA lost: %q", da.Value)
	}

	// The 300pt page pushes the visible box down and left.
	widget, _ := doc.Object(fields.Items[0].Ref.Number)
	rect := resolve(t, doc, widget.Value, "Rect")
	x2, _ := rect.Items[2].Float()
	y2, _ := rect.Items[3].Float()
	if x2 > 290 || y2 > 290 {
		t.Errorf("box %v is not kept inside the page", rect.Items)
	}
}

func TestSignKeywordsInStrings(t *testing.T) {
	id := testpki.NewIdentity(t, testpki.IdentityOptions{})

	input := buildPDF([]string{
		"<< /Title (Live stream recording) /Subject (see 3 0 obj) >>",
		"<< /Type /Catalog /Pages 3 0 R >>",
		"<< /Type /Pages /Kids [4 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 3 0 R /MediaBox [0 0 612 792] /Contents 5 0 R >>",
		"<< /Length 7 >>\nstream\n0 0 m S\nendstream",
	}, "/Root 2 0 R /Info 1 0 R")

	cert, session := loadSigner(t, id)
	output, result, err := SignPDF(context.Background(), input, cert, session, testOptions())
	if err != nil {
		t.Fatalf("SignPDF: %v", err)
	}
	checkSignedOutput(t, input, output, result)

	doc := openSigned(t, output)
	if n, err := doc.PageCount(); err != nil || n != 1 {
		t.Errorf("PageCount = %d, %v", n, err)
	}
}

func TestSignatureDictionary(t *testing.T) {
	id := testpki.NewIdentity(t, testpki.IdentityOptions{})
	cert, _ := loadSigner(t, id)

	opts := testOptions()
	opts.ContactInfo = "contacto@example.com"
	opts.Date = time.Date(2024, 12, 1, 10, 0, 0, 0, time.UTC)

	placeholder, err := InsertPlaceholder(testpki.SamplePDF(t, testpki.PDFOptions{}), cert, opts)
	if err != nil {
		t.Fatalf("InsertPlaceholder: %v", err)
	}

	for _, want := range []string{
		"/Type /Sig /Filter /Adobe.PPKLite /SubFilter /adbe.pkcs7.detached",
		"/Name " + pdfString("JUAN PÉREZ LÓPEZ"),
		"/Reason " + pdfString(DefaultReason),
		"/Location " + pdfString(DefaultLocation),
		"/ContactInfo (contacto@example.com)",
		"/M (D:20241201100000+00'00')",
		"/T (Signature1)",
	} {
		if !bytes.Contains(placeholder, []byte(want)) {
			t.Errorf("%q not found", want)
		}
	}

	opts.IncludeTimestamp = false
	placeholder, err = InsertPlaceholder(testpki.SamplePDF(t, testpki.PDFOptions{}), cert, opts)
	if err != nil {
		t.Fatalf("InsertPlaceholder: %v", err)
	}
	if bytes.Contains(placeholder, []byte("/M (D:")) {
		t.Error("/M written without IncludeTimestamp")
	}
}

func TestContentDigest(t *testing.T) {
	want := sha256.Sum256([]byte("abcdef"))
	if got := ContentDigest([][]byte{[]byte("abc"), []byte("def")}); !bytes.Equal(got, want[:]) {
		t.Errorf("ContentDigest = %x", got)
	}
}
