package certstore

import (
	"errors"
	"strings"

	"software.sslmate.com/src/go-pkcs12"

	"github.com/digitorus/efirma-pdfsign/common"
)

// LoadFromPKCS12 loads the certificate and private key from a PKCS#12 (.pfx,
// .p12) bundle. A shrouded key bag is used when present, otherwise the plain
// key bag. Extra certificates end up in Certificate.Chain.
func LoadFromPKCS12(pfx []byte, password string) (*Certificate, *KeySession, error) {
	key, cert, caCerts, err := pkcs12.DecodeChain(pfx, password)
	if err != nil {
		return nil, nil, classifyPKCS12Error(err)
	}

	rsaKey, err := asRSA(key)
	if err != nil {
		return nil, nil, err
	}

	if err := matchCertificate(cert, rsaKey); err != nil {
		zeroKey(rsaKey)
		return nil, nil, err
	}

	return newCertificate(cert, caCerts, SourcePFX), newKeySession(rsaKey), nil
}

func classifyPKCS12Error(err error) error {
	switch {
	case errors.Is(err, pkcs12.ErrIncorrectPassword), errors.Is(err, pkcs12.ErrDecryption):
		return common.WrapError(common.ErrWrongPassword, err, "cannot open PFX")
	case strings.Contains(err.Error(), "certificate missing"),
		strings.Contains(err.Error(), "private key missing"):
		return common.WrapError(common.ErrCertificateOrKeyMissingInPFX, err, "PFX must contain one certificate and one private key")
	default:
		// Unreadable containers are reported the same way as a bad password.
		return common.WrapError(common.ErrWrongPassword, err, "wrong password or corrupt PFX")
	}
}
