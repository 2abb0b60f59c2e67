package pdfsign

import (
	"time"

	"github.com/digitorus/efirma-pdfsign/certstore"
	"github.com/digitorus/efirma-pdfsign/sign"
)

// SignBuilder configures one staged signature. It starts from
// sign.DefaultOptions and is applied by Document.Write.
type SignBuilder struct {
	doc     *Document
	cert    *certstore.Certificate
	session *certstore.KeySession
	opts    sign.Options
}

// Sign stages a signature made with cert and the key held by session. The
// session is closed once the signature has been written.
func (d *Document) Sign(cert *certstore.Certificate, session *certstore.KeySession) *SignBuilder {
	sb := &SignBuilder{
		doc:     d,
		cert:    cert,
		session: session,
		opts:    sign.DefaultOptions(),
	}
	d.pendingSigns = append(d.pendingSigns, sb)
	return sb
}

// Options replaces every option of the signature at once.
func (b *SignBuilder) Options(opts sign.Options) *SignBuilder {
	b.opts = opts
	return b
}

// Reason sets the reason for signing.
func (b *SignBuilder) Reason(reason string) *SignBuilder {
	b.opts.Reason = reason
	return b
}

// Location sets the location of the signatory.
func (b *SignBuilder) Location(location string) *SignBuilder {
	b.opts.Location = location
	return b
}

// Contact sets the contact information of the signatory.
func (b *SignBuilder) Contact(contact string) *SignBuilder {
	b.opts.ContactInfo = contact
	return b
}

// Text replaces the lines drawn in the visible signature.
func (b *SignBuilder) Text(text string) *SignBuilder {
	b.opts.SignatureText = text
	return b
}

// Page selects the page of the signature widget. 0 is the last page.
func (b *SignBuilder) Page(page int) *SignBuilder {
	b.opts.Page = page
	return b
}

// Position sets the lower left corner of the visible signature, in points.
func (b *SignBuilder) Position(x, y float64) *SignBuilder {
	b.opts.X, b.opts.Y = x, y
	return b
}

// Invisible leaves the signature out of the page content.
func (b *SignBuilder) Invisible() *SignBuilder {
	b.opts.Visible = false
	return b
}

// Certify makes the signature a certification signature with the given
// permissions.
func (b *SignBuilder) Certify(level sign.CertificationLevel) *SignBuilder {
	b.opts.CertificationLevel = level
	return b
}

// Date sets the signing time. The zero value means the time of Write.
func (b *SignBuilder) Date(t time.Time) *SignBuilder {
	b.opts.Date = t
	return b
}

// WithoutTimestamp leaves the signing time out of /M and the visible text.
func (b *SignBuilder) WithoutTimestamp() *SignBuilder {
	b.opts.IncludeTimestamp = false
	return b
}

// WithoutChain embeds only the signer certificate.
func (b *SignBuilder) WithoutChain() *SignBuilder {
	b.opts.EmbedChain = false
	return b
}

// Capacity reserves n hex characters for the signature instead of deriving
// the size from the certificate.
func (b *SignBuilder) Capacity(n int) *SignBuilder {
	b.opts.Capacity = n
	return b
}
