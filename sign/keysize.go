package sign

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"fmt"

	"github.com/digitorus/pkcs7"

	"github.com/digitorus/efirma-pdfsign/common"
)

const (
	// signerInfoOverhead covers the SignerInfo, attribute and algorithm
	// identifier encodings.
	signerInfoOverhead = 512
	// capacityMargin is added on top of the computed budget, in hex
	// characters.
	capacityMargin = 1024
)

// SignatureCapacity returns the number of hex characters to reserve for a
// SignedData produced with cert, its RSA key and the given chain.
func SignatureCapacity(cert *x509.Certificate, chain []*x509.Certificate) (int, error) {
	pub, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok || pub.N == nil {
		return 0, common.NewError(common.ErrUnsupportedKeyFormat, "certificate public key is %T, only RSA is supported", cert.PublicKey)
	}

	capacity := hex.EncodedLen(signerInfoOverhead)

	capacity += hex.EncodedLen(pub.Size())

	// Digest twice: messageDigest attribute and the digest algorithm space.
	capacity += hex.EncodedLen(sha256.Size * 2)

	degenerated, err := pkcs7.DegenerateCertificate(cert.Raw)
	if err != nil {
		return 0, fmt.Errorf("failed to degenerate certificate: %w", err)
	}
	capacity += hex.EncodedLen(len(degenerated))

	// IssuerAndSerialNumber repeats the issuer name.
	capacity += hex.EncodedLen(len(cert.RawIssuer))

	for _, c := range chain {
		capacity += hex.EncodedLen(len(c.Raw))
	}

	return capacity + capacityMargin, nil
}

// checkSigner verifies that signer holds the RSA key of cert.
func checkSigner(signer crypto.Signer, cert *x509.Certificate) error {
	if signer == nil {
		return common.NewError(common.ErrUnsupportedKeyFormat, "no private key, the key session is closed")
	}
	pub, ok := signer.Public().(*rsa.PublicKey)
	if !ok {
		return common.NewError(common.ErrUnsupportedKeyFormat, "private key is %T, only RSA is supported", signer.Public())
	}
	if !pub.Equal(cert.PublicKey) {
		return common.NewError(common.ErrUnsupportedKeyFormat, "private key does not belong to the certificate")
	}
	return nil
}
