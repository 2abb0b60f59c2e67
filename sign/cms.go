package sign

import (
	"bytes"
	"crypto"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/asn1"
	"fmt"
	"sort"
	"time"

	"golang.org/x/crypto/cryptobyte"
	cryptobyte_asn1 "golang.org/x/crypto/cryptobyte/asn1"
)

var (
	oidData                 = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 7, 1}
	oidSignedData           = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 7, 2}
	oidAttributeContentType = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 3}
	oidAttributeDigest      = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 4}
	oidAttributeSigningTime = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 5}
	oidSHA256               = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 1}
	oidSHA256WithRSA        = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 11}

	tagSignedAttributes = cryptobyte_asn1.Tag(0).ContextSpecific().Constructed()
	tagCertificates     = cryptobyte_asn1.Tag(0).ContextSpecific().Constructed()
	tagExplicitContent  = cryptobyte_asn1.Tag(0).ContextSpecific().Constructed()
)

// ContentDigest returns the SHA-256 digest of the concatenated spans.
func ContentDigest(spans [][]byte) []byte {
	h := sha256.New()
	for _, span := range spans {
		h.Write(span)
	}
	return h.Sum(nil)
}

// BuildSignedData returns the DER encoding of a detached CMS SignedData over
// spans, signed by signer with SHA-256 and RSA PKCS #1 v1.5. The signer
// certificate and chain are embedded.
func BuildSignedData(spans [][]byte, cert *x509.Certificate, chain []*x509.Certificate, signer crypto.Signer, signingTime time.Time) ([]byte, error) {
	if cert == nil || signer == nil {
		return nil, fmt.Errorf("certificate and signer are required")
	}

	attrs, err := signedAttributes(ContentDigest(spans), signingTime)
	if err != nil {
		return nil, fmt.Errorf("failed to encode signed attributes: %w", err)
	}

	// The signature covers the attributes under the universal SET tag.
	digest := sha256.Sum256(attrs)
	signature, err := signer.Sign(rand.Reader, digest[:], crypto.SHA256)
	if err != nil {
		return nil, fmt.Errorf("failed to sign attributes: %w", err)
	}

	// Inside SignerInfo they are carried as [0] IMPLICIT, same length and
	// content.
	implicitAttrs := make([]byte, len(attrs))
	copy(implicitAttrs, attrs)
	implicitAttrs[0] = byte(tagSignedAttributes)

	var b cryptobyte.Builder
	b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) { // ContentInfo
		b.AddASN1ObjectIdentifier(oidSignedData)
		b.AddASN1(tagExplicitContent, func(b *cryptobyte.Builder) {
			b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) { // SignedData
				b.AddASN1Int64(1)
				b.AddASN1(cryptobyte_asn1.SET, func(b *cryptobyte.Builder) { // digestAlgorithms
					addAlgorithmIdentifier(b, oidSHA256)
				})
				b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) { // encapContentInfo
					b.AddASN1ObjectIdentifier(oidData)
				})
				b.AddASN1(tagCertificates, func(b *cryptobyte.Builder) {
					b.AddBytes(cert.Raw)
					for _, c := range chain {
						b.AddBytes(c.Raw)
					}
				})
				b.AddASN1(cryptobyte_asn1.SET, func(b *cryptobyte.Builder) { // signerInfos
					b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) { // SignerInfo
						b.AddASN1Int64(1)
						b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) { // IssuerAndSerialNumber
							b.AddBytes(cert.RawIssuer)
							b.AddASN1BigInt(cert.SerialNumber)
						})
						addAlgorithmIdentifier(b, oidSHA256)
						b.AddBytes(implicitAttrs)
						addAlgorithmIdentifier(b, oidSHA256WithRSA)
						b.AddASN1OctetString(signature)
					})
				})
			})
		})
	})

	return b.Bytes()
}

func addAlgorithmIdentifier(b *cryptobyte.Builder, oid asn1.ObjectIdentifier) {
	b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1ObjectIdentifier(oid)
		b.AddASN1NULL()
	})
}

// signedAttributes returns the DER SET OF content-type, message-digest and
// signing-time, in DER order.
func signedAttributes(digest []byte, signingTime time.Time) ([]byte, error) {
	signingTime = signingTime.UTC()

	attributes := []func(*cryptobyte.Builder){
		func(b *cryptobyte.Builder) {
			b.AddASN1ObjectIdentifier(oidAttributeContentType)
			b.AddASN1(cryptobyte_asn1.SET, func(b *cryptobyte.Builder) {
				b.AddASN1ObjectIdentifier(oidData)
			})
		},
		func(b *cryptobyte.Builder) {
			b.AddASN1ObjectIdentifier(oidAttributeDigest)
			b.AddASN1(cryptobyte_asn1.SET, func(b *cryptobyte.Builder) {
				b.AddASN1OctetString(digest)
			})
		},
		func(b *cryptobyte.Builder) {
			b.AddASN1ObjectIdentifier(oidAttributeSigningTime)
			b.AddASN1(cryptobyte_asn1.SET, func(b *cryptobyte.Builder) {
				if y := signingTime.Year(); y >= 1950 && y < 2050 {
					b.AddASN1UTCTime(signingTime)
				} else {
					b.AddASN1GeneralizedTime(signingTime)
				}
			})
		},
	}

	encoded := make([][]byte, 0, len(attributes))
	for _, attribute := range attributes {
		var b cryptobyte.Builder
		b.AddASN1(cryptobyte_asn1.SEQUENCE, attribute)
		der, err := b.Bytes()
		if err != nil {
			return nil, err
		}
		encoded = append(encoded, der)
	}

	// DER requires SET OF elements in ascending order of their encoding.
	sort.Slice(encoded, func(i, j int) bool { return bytes.Compare(encoded[i], encoded[j]) < 0 })

	var b cryptobyte.Builder
	b.AddASN1(cryptobyte_asn1.SET, func(b *cryptobyte.Builder) {
		for _, der := range encoded {
			b.AddBytes(der)
		}
	})
	return b.Bytes()
}
