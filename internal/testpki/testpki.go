package testpki

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	_ "crypto/sha1"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/pem"
	"fmt"
	"io"
	"log"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/youmark/pkcs8"
	"software.sslmate.com/src/go-pkcs12"
)

// BytesReader implements io.ReaderAt for in-memory byte slices.
type BytesReader struct {
	Data []byte
}

func NewBytesReader(data []byte) *BytesReader {
	return &BytesReader{Data: data}
}

func (r *BytesReader) ReadAt(p []byte, off int64) (n int, err error) {
	if off >= int64(len(r.Data)) {
		return 0, io.EOF
	}
	n = copy(p, r.Data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// KeyProfile defines the cryptographic settings for a test key.
type KeyProfile string

const (
	RSA_1024   KeyProfile = "RSA_1024"
	RSA_2048   KeyProfile = "RSA_2048"
	RSA_4096   KeyProfile = "RSA_4096"
	ECDSA_P256 KeyProfile = "ECDSA_P256"
)

var (
	oidName                = asn1.ObjectIdentifier{2, 5, 4, 41}
	oidX500UniqueID        = asn1.ObjectIdentifier{2, 5, 4, 45}
	oidSerialNumber        = asn1.ObjectIdentifier{2, 5, 4, 5}
	oidEmailAddress        = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 1}
	sharedKeyOnce          sync.Once
	sharedKey, sharedCAKey *rsa.PrivateKey
)

// SharedKeys returns two RSA 2048 keys generated once per test binary.
func SharedKeys(t *testing.T) (leaf, ca *rsa.PrivateKey) {
	sharedKeyOnce.Do(func() {
		sharedKey = GenerateKey(t, RSA_2048).(*rsa.PrivateKey)
		sharedCAKey = GenerateKey(t, RSA_2048).(*rsa.PrivateKey)
	})
	return sharedKey, sharedCAKey
}

// IdentityOptions configures a test signer.
type IdentityOptions struct {
	CommonName string
	RFC        string
	CURP       string
	NotBefore  time.Time
	NotAfter   time.Time
	// Profile selects a freshly generated key. The shared RSA 2048 key is
	// used when empty.
	Profile KeyProfile
	// WithCA issues the certificate from a test CA instead of self-signing.
	WithCA bool
}

// Identity is a certificate with its private key, shaped like an e.firma
// certificate issued by the SAT.
type Identity struct {
	Key         crypto.Signer
	Certificate *x509.Certificate
	CA          *x509.Certificate
}

// RSAKey returns the identity key as RSA. It fails the test for other keys.
func (id *Identity) RSAKey(t *testing.T) *rsa.PrivateKey {
	k, ok := id.Key.(*rsa.PrivateKey)
	if !ok {
		Fail(t, "identity key is %T", id.Key)
	}
	return k
}

// Chain returns the issuing certificates, if any.
func (id *Identity) Chain() []*x509.Certificate {
	if id.CA == nil {
		return nil
	}
	return []*x509.Certificate{id.CA}
}

// DefaultNotBefore starts the validity of test certificates. It lies in the
// past so tests may pin signing times after it.
var DefaultNotBefore = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

// NewIdentity creates a test identity.
func NewIdentity(t *testing.T, opts IdentityOptions) *Identity {
	if opts.CommonName == "" {
		opts.CommonName = "JUAN PÉREZ LÓPEZ"
	}
	if opts.RFC == "" {
		opts.RFC = "PELJ800101AB1"
	}
	if opts.CURP == "" {
		opts.CURP = "PELJ800101HDFRPN09"
	}
	if opts.NotBefore.IsZero() {
		opts.NotBefore = DefaultNotBefore
	}
	if opts.NotAfter.IsZero() {
		opts.NotAfter = time.Now().Add(4 * 365 * 24 * time.Hour)
	}

	leafKey, caKey := SharedKeys(t)
	var key crypto.Signer = leafKey
	if opts.Profile != "" {
		key = GenerateKey(t, opts.Profile)
	}

	serial, _ := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 152))
	template := &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			CommonName:   opts.CommonName,
			Organization: []string{opts.CommonName},
			Country:      []string{"MX"},
			ExtraNames: []pkix.AttributeTypeAndValue{
				{Type: oidName, Value: opts.CommonName},
				{Type: oidX500UniqueID, Value: opts.RFC + " / " + opts.CURP},
				{Type: oidSerialNumber, Value: " / " + opts.CURP},
				{Type: oidEmailAddress, Value: "firmante@example.com"},
			},
		},
		NotBefore:             opts.NotBefore,
		NotAfter:              opts.NotAfter,
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageContentCommitment,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageEmailProtection, x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
	}

	issuer, issuerKey := template, key
	var ca *x509.Certificate
	if opts.WithCA {
		ca = newCA(t, caKey)
		issuer, issuerKey = ca, caKey
	}

	der, err := x509.CreateCertificate(rand.Reader, template, issuer, key.Public(), issuerKey)
	if err != nil {
		Fail(t, "failed to create certificate: %v", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		Fail(t, "failed to parse certificate: %v", err)
	}

	return &Identity{Key: key, Certificate: cert, CA: ca}
}

func newCA(t *testing.T, key *rsa.PrivateKey) *x509.Certificate {
	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject: pkix.Name{
			CommonName:         "AC DEL SERVICIO DE ADMINISTRACION TRIBUTARIA DE PRUEBA",
			Organization:       []string{"SERVICIO DE ADMINISTRACION TRIBUTARIA"},
			OrganizationalUnit: []string{"SAT-IES Authority"},
			Country:            []string{"MX"},
		},
		NotBefore:             DefaultNotBefore.AddDate(-1, 0, 0),
		NotAfter:              time.Now().Add(10 * 365 * 24 * time.Hour),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, key.Public(), key)
	if err != nil {
		Fail(t, "failed to create CA certificate: %v", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		Fail(t, "failed to parse CA certificate: %v", err)
	}
	return cert
}

// CertificateDER returns the certificate as a .cer file.
func (id *Identity) CertificateDER() []byte {
	return id.Certificate.Raw
}

// CertificatePEM returns the PEM encoded certificate.
func (id *Identity) CertificatePEM() []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: id.Certificate.Raw})
}

// KeyFormat selects how EfirmaKey encodes the private key.
type KeyFormat int

const (
	// KeyPKCS8TripleDES is the DER PBES2 / 3DES form distributed by the SAT.
	KeyPKCS8TripleDES KeyFormat = iota
	// KeyPKCS8AES256PEM is a PEM "ENCRYPTED PRIVATE KEY" block.
	KeyPKCS8AES256PEM
	// KeyLegacyPEM is a PEM block with DEK-Info headers.
	KeyLegacyPEM
	// KeyPlainPKCS1 is an unencrypted PKCS#1 DER key.
	KeyPlainPKCS1
)

// EfirmaKey returns the identity key encoded as a .key file.
func (id *Identity) EfirmaKey(t *testing.T, password string, format KeyFormat) []byte {
	switch format {
	case KeyPKCS8TripleDES:
		der, err := pkcs8.MarshalPrivateKey(id.Key, []byte(password), &pkcs8.Opts{
			Cipher: pkcs8.TripleDESCBC,
			KDFOpts: pkcs8.PBKDF2Opts{
				SaltSize:       8,
				IterationCount: 2048,
				HMACHash:       crypto.SHA1,
			},
		})
		if err != nil {
			Fail(t, "failed to encrypt key: %v", err)
		}
		return der
	case KeyPKCS8AES256PEM:
		der, err := pkcs8.MarshalPrivateKey(id.Key, []byte(password), pkcs8.DefaultOpts)
		if err != nil {
			Fail(t, "failed to encrypt key: %v", err)
		}
		return pem.EncodeToMemory(&pem.Block{Type: "ENCRYPTED PRIVATE KEY", Bytes: der})
	case KeyLegacyPEM:
		//nolint:staticcheck // legacy PEM encryption is what older tooling produces
		block, err := x509.EncryptPEMBlock(rand.Reader, "RSA PRIVATE KEY",
			x509.MarshalPKCS1PrivateKey(id.RSAKey(t)), []byte(password), x509.PEMCipher3DES)
		if err != nil {
			Fail(t, "failed to encrypt PEM block: %v", err)
		}
		return pem.EncodeToMemory(block)
	case KeyPlainPKCS1:
		return x509.MarshalPKCS1PrivateKey(id.RSAKey(t))
	}
	Fail(t, "unknown key format %d", format)
	return nil
}

// PFXEncoding selects the PKCS#12 encoder.
type PFXEncoding int

const (
	PFXModern PFXEncoding = iota
	PFXLegacy
	// PFXCertificatesOnly produces a trust store without a private key.
	PFXCertificatesOnly
)

// PFX returns the identity as a PKCS#12 bundle.
func (id *Identity) PFX(t *testing.T, password string, encoding PFXEncoding) []byte {
	var (
		data []byte
		err  error
	)
	switch encoding {
	case PFXModern:
		data, err = pkcs12.Modern.Encode(id.Key, id.Certificate, id.Chain(), password)
	case PFXLegacy:
		data, err = pkcs12.LegacyRC2.Encode(id.Key, id.Certificate, id.Chain(), password)
	case PFXCertificatesOnly:
		data, err = pkcs12.Modern.EncodeTrustStore([]*x509.Certificate{id.Certificate}, password)
	default:
		err = fmt.Errorf("unknown encoding %d", encoding)
	}
	if err != nil {
		Fail(t, "failed to encode PFX: %v", err)
	}
	return data
}

func Fail(t *testing.T, format string, args ...interface{}) {
	if t != nil {
		t.Helper()
		t.Fatalf(format, args...)
	} else {
		log.Fatalf(format, args...)
	}
}

func GenerateKey(t *testing.T, profile KeyProfile) crypto.Signer {
	switch profile {
	case RSA_1024:
		k, err := rsa.GenerateKey(rand.Reader, 1024)
		if err != nil {
			Fail(t, "failed to generate RSA 1024 key: %v", err)
		}
		return k
	case RSA_2048:
		k, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			Fail(t, "failed to generate RSA 2048 key: %v", err)
		}
		return k
	case RSA_4096:
		k, err := rsa.GenerateKey(rand.Reader, 4096)
		if err != nil {
			Fail(t, "failed to generate RSA 4096 key: %v", err)
		}
		return k
	case ECDSA_P256:
		k, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		if err != nil {
			Fail(t, "failed to generate P-256 key: %v", err)
		}
		return k
	default:
		Fail(t, "unknown key profile: %s", profile)
		return nil
	}
}
