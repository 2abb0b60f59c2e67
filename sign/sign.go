package sign

import (
	"crypto/x509"
	"errors"
	"fmt"
	"time"

	"github.com/mattetti/filebuffer"

	"github.com/digitorus/efirma-pdfsign/certstore"
	"github.com/digitorus/efirma-pdfsign/common"
	"github.com/digitorus/efirma-pdfsign/fonts"
	"github.com/digitorus/efirma-pdfsign/internal/pdf"
)

var errCertificateRequired = errors.New("certificate is required")

// NewSignContext indexes data and prepares an incremental update carrying a
// signature of cert.
func NewSignContext(data []byte, cert *certstore.Certificate, opts Options) (*SignContext, error) {
	if cert == nil || cert.X509 == nil {
		return nil, errCertificateRequired
	}

	doc, err := pdf.Open(data)
	if err != nil {
		return nil, err
	}
	if doc.Encrypted() {
		return nil, common.NewError(common.ErrPdfStructureNotRecognized, "encrypted documents cannot be signed")
	}

	opts.CertificationLevel = opts.CertificationLevel.Normalize()

	sign_date := opts.Date
	if sign_date.IsZero() {
		sign_date = time.Now()
	}

	context := &SignContext{
		Document:    doc,
		Certificate: cert,
		Options:     opts,
		SignDate:    sign_date,
		Capacity:    opts.Capacity,
		log:         opts.Logger,
	}

	if context.Capacity <= 0 {
		context.Capacity, err = SignatureCapacity(cert.X509, context.chain())
		if err != nil {
			return nil, err
		}
	}
	// Keep the slot a whole number of bytes.
	context.Capacity += context.Capacity % 2

	return context, nil
}

// chain returns the extra certificates embedded in the CMS structure.
func (context *SignContext) chain() []*x509.Certificate {
	if !context.Options.EmbedChain {
		return nil
	}
	return context.Certificate.Chain
}

// InsertPlaceholder appends an incremental update holding an empty
// signature to data and returns the new document.
func InsertPlaceholder(data []byte, cert *certstore.Certificate, opts Options) ([]byte, error) {
	context, err := NewSignContext(data, cert, opts)
	if err != nil {
		return nil, err
	}
	return context.InsertPlaceholder()
}

// InsertPlaceholder writes the original document followed by the signature,
// widget, appearance and updated objects, the cross-reference section and
// the trailer into OutputBuffer.
func (context *SignContext) InsertPlaceholder() ([]byte, error) {
	doc := context.Document
	data := doc.Data()

	// Reset state, the context may be reused.
	context.OutputBuffer = filebuffer.New(nil)
	context.xrefEntries = nil
	context.revisions = nil
	context.InfoObjectId = 0
	context.AppearanceObjectId = 0
	context.nextObjectId = uint32(doc.NextObjectNumber())

	// Copy old file into new buffer.
	if _, err := context.OutputBuffer.Write(data); err != nil {
		return nil, err
	}
	// New objects start on a line of their own.
	if n := len(data); n == 0 || (data[n-1] != '\n' && data[n-1] != '\r') {
		if _, err := context.OutputBuffer.Write([]byte("\n")); err != nil {
			return nil, err
		}
	}

	page, err := doc.Page(context.Options.Page)
	if err != nil {
		return nil, err
	}
	context.PageRef = page.Ref

	catalog, err := doc.Catalog()
	if err != nil {
		return nil, err
	}
	context.existingSignatures = context.countFormFields(catalog)

	context.SignatureObjectId = context.allocateObject()
	context.WidgetObjectId = context.allocateObject()

	var rect [4]float64
	var appearance []byte
	if context.Options.Visible {
		context.AppearanceObjectId = context.allocateObject()

		font := fonts.Standard(fonts.Helvetica)
		lines := context.signatureLines()
		width, height := appearanceSize(font, lines)
		rect = signatureRect(doc.MediaBox(page), context.Options.X, context.Options.Y, width, height)

		appearance, err = context.createAppearance(rect, font, lines)
		if err != nil {
			return nil, fmt.Errorf("failed to create appearance: %w", err)
		}
	}

	var info []byte
	if context.Options.UpdateInfo {
		info, err = context.createInfo()
		if err != nil {
			return nil, fmt.Errorf("failed to update info: %w", err)
		}
		if info != nil {
			context.InfoObjectId = context.allocateObject()
		}
	}

	if err := context.createIncPageUpdate(page); err != nil {
		return nil, err
	}
	if err := context.createCatalog(catalog); err != nil {
		return nil, err
	}

	// Write the widget and its appearance.
	if err := context.writeObject(context.WidgetObjectId, 0, context.createVisualSignature(context.Options.Visible, rect)); err != nil {
		return nil, err
	}
	if appearance != nil {
		if err := context.writeObject(context.AppearanceObjectId, 0, appearance); err != nil {
			return nil, err
		}
	}

	// Write the updated page, catalog and form objects.
	for _, rev := range context.revisions {
		if len(rev.edits) == 0 {
			continue
		}
		if err := context.writeRevision(rev); err != nil {
			return nil, err
		}
	}
	if info != nil {
		if err := context.writeObject(context.InfoObjectId, 0, info); err != nil {
			return nil, err
		}
	}

	// The signature object goes last so its /Contents is the last one in
	// the file.
	signature_offset := context.OutputBuffer.Buff.Len()
	if err := context.writeObject(context.SignatureObjectId, 0, context.createSignaturePlaceholder()); err != nil {
		return nil, err
	}
	context.log.Debug().
		Int("offset", signature_offset).
		Int("capacity", context.Capacity).
		Uint32("object", context.SignatureObjectId).
		Msg("signature placeholder written")

	if err := context.writeXref(); err != nil {
		return nil, err
	}

	output := context.OutputBuffer.Buff.Bytes()
	br, slot, err := CalculateByteRange(output)
	if err != nil {
		return nil, err
	}
	if slot.ContentsStart < signature_offset || slot.Capacity() != context.Capacity {
		return nil, common.NewError(common.ErrByteRangeIntegrityViolation, "signature slot not found at offset %d", signature_offset)
	}
	context.Slot = slot
	context.ByteRangeValues = br

	return output, nil
}

// updateByteRange writes the final byte range into the placeholder.
func (context *SignContext) updateByteRange() error {
	if err := WriteByteRange(context.OutputBuffer.Buff.Bytes(), context.Slot, context.ByteRangeValues); err != nil {
		return err
	}
	context.log.Debug().
		Str("byte_range", context.ByteRangeValues.String()).
		Msg("byte range written")
	return nil
}

// signedSpans returns the two spans covered by the byte range.
func (context *SignContext) signedSpans() ([][]byte, error) {
	return signedSpans(context.OutputBuffer.Buff.Bytes(), context.ByteRangeValues)
}

// replaceSignature embeds der into the placeholder.
func (context *SignContext) replaceSignature(der []byte) error {
	context.log.Debug().
		Int("der_length", len(der)).
		Int("hex_length", 2*len(der)).
		Int("capacity", context.Capacity).
		Msg("embedding signature")
	return EmbedSignature(context.OutputBuffer, context.Slot, context.ByteRangeValues, der)
}

// result describes the signature written by this context.
func (context *SignContext) result(hash []byte, der []byte) *Result {
	return &Result{
		Signer:             context.Certificate.DN(),
		SignDate:           context.SignDate.Format(time.RFC3339),
		Reason:             context.Options.Reason,
		Location:           context.Options.Location,
		CertificationLevel: context.Options.CertificationLevel.Description(),
		Hash:               fmt.Sprintf("%x", hash),
		ByteRange:          context.ByteRangeValues,
		SerialNumber:       context.Certificate.SerialHex(),
		Capacity:           context.Capacity,
		SignatureSize:      2 * len(der),
	}
}
