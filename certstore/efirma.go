package certstore

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"

	"github.com/youmark/pkcs8"

	"github.com/digitorus/efirma-pdfsign/common"
)

const msgCannotDecrypt = "could not decrypt the private key, check the password"

// LoadFromPair loads an e.firma certificate (.cer) and its password protected
// private key (.key). Both may be DER or PEM encoded.
//
// The key is first read as an encrypted PKCS#8 structure. When that fails it
// is read as a PKCS#5 wrapped key: a legacy encrypted PEM block, or an
// unencrypted PKCS#8 or PKCS#1 key.
func LoadFromPair(certData, keyData []byte, password string) (*Certificate, *KeySession, error) {
	cert, err := ParseCertificate(certData)
	if err != nil {
		return nil, nil, err
	}

	key, err := decryptPrivateKey(keyData, []byte(password))
	if err != nil {
		return nil, nil, err
	}

	if err := matchCertificate(cert.X509, key); err != nil {
		zeroKey(key)
		return nil, nil, err
	}

	cert.Source = SourceEfirma
	return cert, newKeySession(key), nil
}

func decryptPrivateKey(data, password []byte) (*rsa.PrivateKey, error) {
	der := data
	if block, _ := pem.Decode(data); block != nil {
		// Keys converted with "openssl rsa -des3" carry DEK-Info headers.
		if x509.IsEncryptedPEMBlock(block) {
			plain, err := x509.DecryptPEMBlock(block, password)
			if err != nil {
				return nil, common.WrapError(common.ErrCannotDecryptKey, err, msgCannotDecrypt)
			}
			return parsePlainKey(plain)
		}
		der = block.Bytes
	}

	key, err := pkcs8.ParsePKCS8PrivateKey(der, password)
	if err == nil {
		return asRSA(key)
	}

	if plain, perr := parsePlainKey(der); perr == nil {
		return plain, nil
	} else if errors.Is(perr, common.ErrUnsupportedKeyFormat) {
		return nil, perr
	}

	return nil, common.WrapError(common.ErrCannotDecryptKey, err, msgCannotDecrypt)
}

// parsePlainKey parses an unencrypted PKCS#8 or PKCS#1 key.
func parsePlainKey(der []byte) (*rsa.PrivateKey, error) {
	if key, err := x509.ParsePKCS8PrivateKey(der); err == nil {
		return asRSA(key)
	}
	key, err := x509.ParsePKCS1PrivateKey(der)
	if err != nil {
		return nil, common.WrapError(common.ErrCannotDecryptKey, err, msgCannotDecrypt)
	}
	return key, nil
}

func asRSA(key any) (*rsa.PrivateKey, error) {
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, common.NewError(common.ErrUnsupportedKeyFormat, "private key is %T, only RSA is supported", key)
	}
	return rsaKey, nil
}
