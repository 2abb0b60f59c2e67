package certstore

import (
	"crypto"
	"crypto/rsa"
	"crypto/x509"
	"math/big"

	"github.com/digitorus/efirma-pdfsign/common"
)

// KeySession owns an RSA private key for the duration of one signing
// operation. Close wipes the key; a closed session cannot sign.
type KeySession struct {
	key *rsa.PrivateKey
}

func newKeySession(key *rsa.PrivateKey) *KeySession {
	return &KeySession{key: key}
}

// Signer returns the key as a crypto.Signer, or nil once the session is closed.
func (s *KeySession) Signer() crypto.Signer {
	if s == nil || s.key == nil {
		return nil
	}
	return s.key
}

// PublicKey returns the public half of the key, or nil once closed.
func (s *KeySession) PublicKey() *rsa.PublicKey {
	if s == nil || s.key == nil {
		return nil
	}
	return &s.key.PublicKey
}

// Closed reports whether Close has been called.
func (s *KeySession) Closed() bool {
	return s == nil || s.key == nil
}

// Close zeroes the private exponent, the primes and the CRT values and drops
// the key. It is safe to call more than once.
func (s *KeySession) Close() error {
	if s == nil || s.key == nil {
		return nil
	}
	zeroKey(s.key)
	s.key = nil
	return nil
}

func zeroKey(k *rsa.PrivateKey) {
	zeroInt(k.D)
	for _, p := range k.Primes {
		zeroInt(p)
	}
	zeroInt(k.Precomputed.Dp)
	zeroInt(k.Precomputed.Dq)
	zeroInt(k.Precomputed.Qinv)
}

func zeroInt(x *big.Int) {
	if x == nil {
		return
	}
	clear(x.Bits())
	x.SetInt64(0)
}

// matchCertificate checks that key is the private half of cert's public key.
func matchCertificate(cert *x509.Certificate, key *rsa.PrivateKey) error {
	pub, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return common.NewError(common.ErrUnsupportedKeyFormat, "certificate public key is %T, only RSA is supported", cert.PublicKey)
	}
	if !pub.Equal(&key.PublicKey) {
		return common.NewError(common.ErrUnsupportedKeyFormat, "private key does not belong to the certificate")
	}
	return nil
}
