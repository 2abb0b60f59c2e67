// Package certstore loads signing certificates and their RSA private keys
// from e.firma pairs (.cer + encrypted .key) and PKCS#12 bundles.
//
// The package keeps no global state. Every load returns a Certificate and a
// KeySession owned by the caller; the session must be closed when signing is
// done so the key material is wiped.
package certstore

import (
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/pem"
	"fmt"
	"math"
	"math/big"
	"strings"
	"time"

	"github.com/digitorus/efirma-pdfsign/common"
)

// Source identifies where a certificate was loaded from.
type Source string

const (
	SourceEfirma Source = "efirma"
	SourcePFX    Source = "pfx"
)

// Certificate is an immutable view over a parsed X.509 signing certificate.
type Certificate struct {
	X509 *x509.Certificate

	// Subject and Issuer map short attribute names (CN, O, C, ...) to values.
	Subject map[string]string
	Issuer  map[string]string

	SerialNumber *big.Int
	NotBefore    time.Time
	NotAfter     time.Time
	Raw          []byte

	// Chain holds any additional certificates shipped with the key material.
	Chain  []*x509.Certificate
	Source Source
}

var attributeNames = map[string]string{
	"2.5.4.3":              "CN",
	"2.5.4.4":              "SN",
	"2.5.4.5":              "serialNumber",
	"2.5.4.6":              "C",
	"2.5.4.7":              "L",
	"2.5.4.8":              "ST",
	"2.5.4.9":              "street",
	"2.5.4.10":             "O",
	"2.5.4.11":             "OU",
	"2.5.4.12":             "title",
	"2.5.4.17":             "postalCode",
	"2.5.4.41":             "name",
	"2.5.4.42":             "GN",
	"2.5.4.45":             "x500UniqueIdentifier",
	"1.2.840.113549.1.9.1": "emailAddress",
	"1.2.840.113549.1.9.2": "unstructuredName",
}

func shortName(oid asn1.ObjectIdentifier) string {
	if name, ok := attributeNames[oid.String()]; ok {
		return name
	}
	return oid.String()
}

func nameMap(name pkix.Name) map[string]string {
	m := make(map[string]string, len(name.Names))
	for _, atv := range name.Names {
		key := shortName(atv.Type)
		value := fmt.Sprint(atv.Value)
		if prev, ok := m[key]; ok {
			value = prev + ", " + value
		}
		m[key] = value
	}
	return m
}

// ParseCertificate parses a DER or PEM encoded certificate.
func ParseCertificate(data []byte) (*Certificate, error) {
	der := data
	if block, _ := pem.Decode(data); block != nil {
		der = block.Bytes
	}

	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, common.WrapError(common.ErrUnsupportedKeyFormat, err, "cannot parse certificate")
	}
	return newCertificate(cert, nil, SourceEfirma), nil
}

func newCertificate(cert *x509.Certificate, chain []*x509.Certificate, source Source) *Certificate {
	return &Certificate{
		X509:         cert,
		Subject:      nameMap(cert.Subject),
		Issuer:       nameMap(cert.Issuer),
		SerialNumber: new(big.Int).Set(cert.SerialNumber),
		NotBefore:    cert.NotBefore,
		NotAfter:     cert.NotAfter,
		Raw:          cert.Raw,
		Chain:        chain,
		Source:       source,
	}
}

// DN returns the subject distinguished name.
func (c *Certificate) DN() string {
	return c.X509.Subject.String()
}

// CommonName returns the signer name shown in signature dictionaries.
func (c *Certificate) CommonName() string {
	if cn := c.Subject["CN"]; cn != "" {
		return cn
	}
	return c.Subject["name"]
}

// SerialHex returns the serial number as upper case hex.
func (c *Certificate) SerialHex() string {
	return strings.ToUpper(c.SerialNumber.Text(16))
}

// IsValid reports whether now lies within the certificate validity period.
// Both ends are inclusive.
func IsValid(cert *Certificate, now time.Time) bool {
	return !now.Before(cert.NotBefore) && !now.After(cert.NotAfter)
}

// Summary is a read-only view of the fields users care about.
type Summary struct {
	Name          string    `json:"name" yaml:"name"`
	Organization  string    `json:"organization" yaml:"organization"`
	RFC           string    `json:"rfc,omitempty" yaml:"rfc,omitempty"`
	Issuer        string    `json:"issuer" yaml:"issuer"`
	SerialNumber  string    `json:"serial_number" yaml:"serial_number"`
	ValidFrom     time.Time `json:"valid_from" yaml:"valid_from"`
	ValidTo       time.Time `json:"valid_to" yaml:"valid_to"`
	DaysRemaining int       `json:"days_remaining" yaml:"days_remaining"`
	Valid         bool      `json:"valid" yaml:"valid"`
	Source        Source    `json:"source" yaml:"source"`
}

// Summarize derives a Summary for cert as seen at now.
func Summarize(cert *Certificate, now time.Time) Summary {
	s := Summary{
		Name:          cert.CommonName(),
		Organization:  cert.Subject["O"],
		Issuer:        cert.Issuer["CN"],
		SerialNumber:  cert.SerialHex(),
		ValidFrom:     cert.NotBefore,
		ValidTo:       cert.NotAfter,
		DaysRemaining: int(math.Floor(cert.NotAfter.Sub(now).Hours() / 24)),
		Valid:         IsValid(cert, now),
		Source:        cert.Source,
	}
	if s.Organization == "" {
		s.Organization = s.Name
	}

	// SAT certificates carry "RFC / CURP" in x500UniqueIdentifier.
	if uid := cert.Subject["x500UniqueIdentifier"]; uid != "" {
		rfc, _, _ := strings.Cut(uid, "/")
		s.RFC = strings.TrimSpace(rfc)
	}
	return s
}
