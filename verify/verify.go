package verify

import (
	"bytes"
	"crypto/sha256"
	"encoding/asn1"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/digitorus/pkcs7"
	"github.com/rs/zerolog"

	"github.com/digitorus/efirma-pdfsign/certstore"
	"github.com/digitorus/efirma-pdfsign/common"
	"github.com/digitorus/efirma-pdfsign/extract"
	"github.com/digitorus/efirma-pdfsign/internal/pdf"
	"github.com/digitorus/efirma-pdfsign/sign"
)

var (
	oidAttributeDigest      = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 4}
	oidAttributeSigningTime = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 5}
)

// Limitations lists what a Report does not establish.
var Limitations = []string{
	"the certificate chain is not validated",
	"revocation status (OCSP, CRL) is not checked",
	"the CMS signature value is not verified, only the embedded messageDigest is compared",
}

// Report is the outcome of validating a document.
type Report struct {
	Document   common.DocumentInfo    `json:"document" yaml:"document"`
	Signatures []common.SignatureInfo `json:"signatures" yaml:"signatures"`
	// Valid is set when the document has at least one signature and every
	// digest matches.
	Valid       bool     `json:"valid" yaml:"valid"`
	Limitations []string `json:"limitations" yaml:"limitations"`
}

// Validator checks the digest consistency of signed documents.
type Validator struct {
	log zerolog.Logger
}

// NewValidator returns a Validator logging to logger.
func NewValidator(logger zerolog.Logger) *Validator {
	return &Validator{log: logger}
}

// Validate validates data with a quiet Validator.
func Validate(data []byte) (*Report, error) {
	return NewValidator(zerolog.Nop()).Validate(data)
}

// File validates the document stored at path.
func File(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Validate(data)
}

// Info reads the metadata of data without looking at its signatures.
func Info(data []byte) (common.DocumentInfo, error) {
	var info common.DocumentInfo
	rdr, err := extract.Open(data)
	if err != nil {
		return info, err
	}
	info.Pages = rdr.NumPage()
	parseDocumentInfo(rdr.Trailer().Key("Info"), &info)
	return info, nil
}

// Validate reads the metadata of data and checks every signature found in
// its form fields. Documents without form fields fall back to the last
// /Contents and /ByteRange pair.
func (v *Validator) Validate(data []byte) (*Report, error) {
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		return nil, common.NewError(common.ErrPdfStructureNotRecognized, "missing %%PDF header")
	}

	rdr, err := extract.Open(data)
	if err != nil {
		return nil, err
	}

	report := &Report{Limitations: Limitations}
	report.Document.Pages = rdr.NumPage()
	parseDocumentInfo(rdr.Trailer().Key("Info"), &report.Document)

	for sig, err := range extract.Iter(rdr, bytes.NewReader(data)) {
		if err != nil {
			return nil, err
		}

		info := common.SignatureInfo{
			Name:        sig.Name(),
			Reason:      sig.Reason(),
			Location:    sig.Location(),
			ContactInfo: sig.ContactInfo(),
			SubFilter:   sig.SubFilter(),
		}
		if m := sig.SigningTime(); m != "" {
			if t, err := parseDate(m); err == nil {
				info.SigningTime = &t
			}
		}
		v.check(data, sig.ByteRange(), sig.Contents(), &info)
		report.Signatures = append(report.Signatures, info)
	}

	if len(report.Signatures) == 0 {
		if info, ok := v.lastSignature(data); ok {
			report.Signatures = append(report.Signatures, info)
		}
	}

	report.Valid = len(report.Signatures) > 0
	for _, info := range report.Signatures {
		report.Valid = report.Valid && info.DigestMatches
	}
	return report, nil
}

// lastSignature reads the last signature slot of data without going through
// the document structure.
func (v *Validator) lastSignature(data []byte) (common.SignatureInfo, bool) {
	slot, err := sign.FindSignatureSlot(data)
	if err != nil {
		return common.SignatureInfo{}, false
	}

	var info common.SignatureInfo
	arr, err := pdf.NewParser(data, slot.ByteRangeStart).ParseObject()
	if err != nil {
		info.Error = fmt.Sprintf("failed to read /ByteRange: %v", err)
		return info, true
	}
	ranges := make([]int64, 0, len(arr.Items))
	for _, item := range arr.Items {
		n, _ := item.Int()
		ranges = append(ranges, n)
	}

	contents, err := hex.DecodeString(string(data[slot.ContentsStart:slot.ContentsEnd]))
	if err != nil {
		info.ByteRange = ranges
		info.Error = fmt.Sprintf("failed to decode /Contents: %v", err)
		return info, true
	}

	v.check(data, ranges, contents, &info)
	return info, true
}

// check recomputes the digest over ranges and compares it to the
// messageDigest attribute of the CMS structure in contents.
func (v *Validator) check(data []byte, ranges []int64, contents []byte, info *common.SignatureInfo) {
	info.ByteRange = ranges

	size := int64(len(data))
	if err := checkRanges(ranges, size); err != nil {
		info.Error = err.Error()
		return
	}
	info.CoversWholeDoc = sign.ByteRange{ranges[0], ranges[1], ranges[2], ranges[3]}.Covers(size)

	h := sha256.New()
	if _, err := io.Copy(h, &extract.ByteRangeReader{File: bytes.NewReader(data), Ranges: ranges}); err != nil {
		info.Error = fmt.Sprintf("failed to read byte range: %v", err)
		return
	}
	digest := h.Sum(nil)
	info.DocumentHash = hex.EncodeToString(digest)

	der, err := extract.TrimDER(contents)
	if err != nil {
		info.Error = err.Error()
		return
	}
	p7, err := pkcs7.Parse(der)
	if err != nil {
		info.Error = fmt.Sprintf("failed to parse PKCS#7: %v", err)
		return
	}

	var messageDigest []byte
	if err := p7.UnmarshalSignedAttribute(oidAttributeDigest, &messageDigest); err != nil {
		info.Error = fmt.Sprintf("failed to read messageDigest: %v", err)
		return
	}
	info.MessageDigest = hex.EncodeToString(messageDigest)
	info.DigestMatches = bytes.Equal(messageDigest, digest)

	var signingTime time.Time
	if err := p7.UnmarshalSignedAttribute(oidAttributeSigningTime, &signingTime); err == nil {
		info.SigningTime = &signingTime
	}

	if signer := p7.GetOnlySigner(); signer != nil {
		if cert, err := certstore.ParseCertificate(signer.Raw); err == nil {
			info.Signer = cert.DN()
			info.SerialNumber = cert.SerialHex()
		}
	}

	v.log.Debug().
		Str("document_hash", info.DocumentHash).
		Str("message_digest", info.MessageDigest).
		Bool("digest_matches", info.DigestMatches).
		Bool("covers_whole_document", info.CoversWholeDoc).
		Msg("signature checked")
}

// checkRanges accepts two (offset, length) pairs inside a file of size
// bytes, in ascending order.
func checkRanges(ranges []int64, size int64) error {
	if len(ranges) != 4 {
		return common.NewError(common.ErrByteRangeIntegrityViolation, "/ByteRange has %d values, want 4", len(ranges))
	}
	for i := 0; i < 4; i += 2 {
		start, length := ranges[i], ranges[i+1]
		if start < 0 || length < 0 || start+length > size {
			return common.NewError(common.ErrByteRangeIntegrityViolation, "/ByteRange %v outside of %d bytes", ranges, size)
		}
	}
	if ranges[2] < ranges[0]+ranges[1] {
		return common.NewError(common.ErrByteRangeIntegrityViolation, "/ByteRange %v overlaps", ranges)
	}
	return nil
}
