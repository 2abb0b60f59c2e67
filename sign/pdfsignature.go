package sign

import (
	"bytes"
	"strconv"
)

// signatureByteRangePlaceholder has the width of the final
// "[%010d %010d %010d %010d]" array.
const signatureByteRangePlaceholder = "[0000000000 0000000000 0000000000 0000000000]"

// createSignaturePlaceholder returns the dictionary of the signature object.
// /Contents is the last key so the hex slot is the last one in the object.
func (context *SignContext) createSignaturePlaceholder() []byte {
	// Using a buffer because it's way faster than concatenating.
	var signature_buffer bytes.Buffer
	signature_buffer.WriteString("<< /Type /Sig")
	signature_buffer.WriteString(" /Filter /Adobe.PPKLite")
	signature_buffer.WriteString(" /SubFilter /adbe.pkcs7.detached")

	if name := context.Certificate.CommonName(); name != "" {
		signature_buffer.WriteString(" /Name ")
		signature_buffer.WriteString(pdfString(name))
	}
	if context.Options.Reason != "" {
		signature_buffer.WriteString(" /Reason ")
		signature_buffer.WriteString(pdfString(context.Options.Reason))
	}
	if context.Options.Location != "" {
		signature_buffer.WriteString(" /Location ")
		signature_buffer.WriteString(pdfString(context.Options.Location))
	}
	if context.Options.ContactInfo != "" {
		signature_buffer.WriteString(" /ContactInfo ")
		signature_buffer.WriteString(pdfString(context.Options.ContactInfo))
	}
	if context.Options.IncludeTimestamp {
		signature_buffer.WriteString(" /M ")
		signature_buffer.WriteString(pdfDateTime(context.SignDate))
	}

	if level := context.Options.CertificationLevel.Normalize(); level.Certifies() {
		signature_buffer.WriteString(" /Reference [")
		signature_buffer.WriteString(" << /Type /SigRef")
		signature_buffer.WriteString(" /TransformMethod /DocMDP")
		signature_buffer.WriteString(" /TransformParams <<")
		signature_buffer.WriteString(" /Type /TransformParams")
		signature_buffer.WriteString(" /P " + strconv.Itoa(int(level)))
		signature_buffer.WriteString(" /V /1.2")
		signature_buffer.WriteString(" >>")
		signature_buffer.WriteString(" >>")
		signature_buffer.WriteString(" ]")
	}

	// Placeholders, replaced once the signature is known.
	signature_buffer.WriteString(" /ByteRange ")
	signature_buffer.WriteString(signatureByteRangePlaceholder)
	signature_buffer.WriteString(" /Contents <")
	signature_buffer.Write(bytes.Repeat([]byte("0"), context.Capacity))
	signature_buffer.WriteString(">")

	signature_buffer.WriteString(" >>")

	return signature_buffer.Bytes()
}
