package sign

import (
	"bytes"
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/asn1"
	"errors"
	"testing"
	"time"

	"github.com/digitorus/pkcs7"

	"github.com/digitorus/efirma-pdfsign/common"
	"github.com/digitorus/efirma-pdfsign/internal/testpki"
)

func TestBuildSignedData(t *testing.T) {
	id := testpki.NewIdentity(t, testpki.IdentityOptions{WithCA: true})
	spans := [][]byte{[]byte("%PDF-1.7 first span"), []byte("second span %%EOF")}
	signingTime := time.Date(2025, 3, 14, 15, 26, 53, 0, time.UTC)

	der, err := BuildSignedData(spans, id.Certificate, id.Chain(), id.Key, signingTime)
	if err != nil {
		t.Fatalf("BuildSignedData: %v", err)
	}

	p7, err := pkcs7.Parse(der)
	if err != nil {
		t.Fatalf("pkcs7.Parse: %v", err)
	}
	if len(p7.Content) != 0 {
		t.Errorf("signature is not detached, %d bytes of content", len(p7.Content))
	}
	if len(p7.Certificates) != 2 {
		t.Errorf("found %d certificates, want 2", len(p7.Certificates))
	}

	signer := p7.Signers[0]
	if !signer.DigestAlgorithm.Algorithm.Equal(oidSHA256) {
		t.Errorf("digest algorithm %v", signer.DigestAlgorithm.Algorithm)
	}
	if signer.IssuerAndSerialNumber.SerialNumber.Cmp(id.Certificate.SerialNumber) != 0 {
		t.Errorf("serial number %v, want %v", signer.IssuerAndSerialNumber.SerialNumber, id.Certificate.SerialNumber)
	}
	if len(signer.UnauthenticatedAttributes) != 0 {
		t.Errorf("found %d unsigned attributes", len(signer.UnauthenticatedAttributes))
	}
	if len(signer.AuthenticatedAttributes) != 3 {
		t.Errorf("found %d signed attributes, want 3", len(signer.AuthenticatedAttributes))
	}

	var contentType asn1.ObjectIdentifier
	if err := p7.UnmarshalSignedAttribute(oidAttributeContentType, &contentType); err != nil || !contentType.Equal(oidData) {
		t.Errorf("content type %v, %v", contentType, err)
	}
	var gotTime time.Time
	if err := p7.UnmarshalSignedAttribute(oidAttributeSigningTime, &gotTime); err != nil || !gotTime.Equal(signingTime) {
		t.Errorf("signing time %v, %v", gotTime, err)
	}

	p7.Content = bytes.Join(spans, nil)
	if err := p7.Verify(); err != nil {
		t.Errorf("Verify: %v", err)
	}

	p7.Content = []byte("tampered")
	if err := p7.Verify(); err == nil {
		t.Error("Verify accepted other content")
	}
}

func TestSignedAttributesRetagging(t *testing.T) {
	id := testpki.NewIdentity(t, testpki.IdentityOptions{})
	spans := [][]byte{[]byte("abc"), []byte("def")}
	signingTime := time.Date(2024, 12, 31, 23, 59, 59, 0, time.UTC)

	der, err := BuildSignedData(spans, id.Certificate, nil, id.Key, signingTime)
	if err != nil {
		t.Fatalf("BuildSignedData: %v", err)
	}
	p7, err := pkcs7.Parse(der)
	if err != nil {
		t.Fatalf("pkcs7.Parse: %v", err)
	}

	attrs, err := signedAttributes(ContentDigest(spans), signingTime)
	if err != nil {
		t.Fatalf("signedAttributes: %v", err)
	}
	if attrs[0] != 0x31 {
		t.Fatalf("attributes start with tag %#x", attrs[0])
	}
	if !bytes.Contains(der, append([]byte{0xA0}, attrs[1:]...)) {
		t.Error("SignerInfo does not carry the attributes as [0] IMPLICIT")
	}

	pub := id.Certificate.PublicKey.(*rsa.PublicKey)
	signature := p7.Signers[0].EncryptedDigest

	digest := sha256.Sum256(attrs)
	if err := rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest[:], signature); err != nil {
		t.Errorf("signature does not cover the SET encoding: %v", err)
	}

	implicit := append([]byte{0xA0}, attrs[1:]...)
	digest = sha256.Sum256(implicit)
	if err := rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest[:], signature); err == nil {
		t.Error("signature verified over the [0] encoding")
	}
}

func TestSignedAttributesOrderAndTime(t *testing.T) {
	digest := ContentDigest([][]byte{[]byte("x")})

	tests := []struct {
		name string
		at   time.Time
		tag  byte
	}{
		{"utc time", time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC), 0x17},
		{"last utc year", time.Date(2049, 12, 31, 0, 0, 0, 0, time.UTC), 0x17},
		{"generalized time", time.Date(2060, 6, 1, 12, 0, 0, 0, time.UTC), 0x18},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attrs, err := signedAttributes(digest, tt.at)
			if err != nil {
				t.Fatalf("signedAttributes: %v", err)
			}

			var set asn1.RawValue
			if _, err := asn1.Unmarshal(attrs, &set); err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}

			var elements []asn1.RawValue
			rest := set.Bytes
			for len(rest) > 0 {
				var e asn1.RawValue
				rest, err = asn1.Unmarshal(rest, &e)
				if err != nil {
					t.Fatalf("attribute: %v", err)
				}
				elements = append(elements, e)
			}
			if len(elements) != 3 {
				t.Fatalf("found %d attributes, want 3", len(elements))
			}
			for i := 1; i < len(elements); i++ {
				if bytes.Compare(elements[i-1].FullBytes, elements[i].FullBytes) >= 0 {
					t.Errorf("attribute %d is not in DER order", i)
				}
			}

			type attribute struct {
				Type   asn1.ObjectIdentifier
				Values asn1.RawValue `asn1:"set"`
			}
			var found []asn1.ObjectIdentifier
			var signingTime *attribute
			for _, e := range elements {
				var attr attribute
				if _, err := asn1.Unmarshal(e.FullBytes, &attr); err != nil {
					t.Fatalf("attribute: %v", err)
				}
				found = append(found, attr.Type)
				if attr.Type.Equal(oidAttributeSigningTime) {
					signingTime = &attr
				}
			}
			if signingTime == nil {
				t.Fatalf("no signing time attribute in %v", found)
			}
			if tag := signingTime.Values.Bytes[0]; tag != tt.tag {
				t.Errorf("signing time tag %#x, want %#x", tag, tt.tag)
			}

			// contentType and signingTime sort before the longer messageDigest.
			if !found[len(found)-1].Equal(oidAttributeDigest) {
				t.Errorf("attribute order %v, messageDigest not last", found)
			}
		})
	}
}

func TestSignatureCapacity(t *testing.T) {
	spans := [][]byte{[]byte("a"), []byte("b")}
	for _, profile := range []testpki.KeyProfile{testpki.RSA_1024, testpki.RSA_2048, testpki.RSA_4096} {
		t.Run(string(profile), func(t *testing.T) {
			id := testpki.NewIdentity(t, testpki.IdentityOptions{Profile: profile, WithCA: true})

			capacity, err := SignatureCapacity(id.Certificate, id.Chain())
			if err != nil {
				t.Fatalf("SignatureCapacity: %v", err)
			}
			der, err := BuildSignedData(spans, id.Certificate, id.Chain(), id.Key, time.Now())
			if err != nil {
				t.Fatalf("BuildSignedData: %v", err)
			}
			if 2*len(der) > capacity {
				t.Errorf("signature needs %d hex characters, capacity is %d", 2*len(der), capacity)
			}

			withoutChain, err := SignatureCapacity(id.Certificate, nil)
			if err != nil {
				t.Fatalf("SignatureCapacity: %v", err)
			}
			if withoutChain >= capacity {
				t.Errorf("chain does not grow the capacity: %d >= %d", withoutChain, capacity)
			}
		})
	}
}

func TestSignatureCapacityRejectsECDSA(t *testing.T) {
	id := testpki.NewIdentity(t, testpki.IdentityOptions{Profile: testpki.ECDSA_P256})

	_, err := SignatureCapacity(id.Certificate, nil)
	if !errors.Is(err, common.ErrUnsupportedKeyFormat) {
		t.Errorf("SignatureCapacity error %v, want %v", err, common.ErrUnsupportedKeyFormat)
	}
	if err := checkSigner(id.Key, id.Certificate); !errors.Is(err, common.ErrUnsupportedKeyFormat) {
		t.Errorf("checkSigner error %v, want %v", err, common.ErrUnsupportedKeyFormat)
	}
}

func TestCheckSignerMismatch(t *testing.T) {
	a := testpki.NewIdentity(t, testpki.IdentityOptions{})
	b := testpki.NewIdentity(t, testpki.IdentityOptions{Profile: testpki.RSA_1024})

	if err := checkSigner(a.Key, a.Certificate); err != nil {
		t.Errorf("checkSigner: %v", err)
	}
	if err := checkSigner(b.Key, a.Certificate); !errors.Is(err, common.ErrUnsupportedKeyFormat) {
		t.Errorf("mismatched key error %v", err)
	}
	if err := checkSigner(nil, a.Certificate); !errors.Is(err, common.ErrUnsupportedKeyFormat) {
		t.Errorf("nil signer error %v", err)
	}
}
