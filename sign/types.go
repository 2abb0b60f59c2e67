package sign

import (
	"crypto"
	"time"

	"github.com/mattetti/filebuffer"
	"github.com/rs/zerolog"

	"github.com/digitorus/efirma-pdfsign/certstore"
	"github.com/digitorus/efirma-pdfsign/internal/pdf"
)

// CertificationLevel selects the DocMDP permissions of a signature.
type CertificationLevel int

// Certification levels map to the DocMDP permission values of the same
// number. NotCertified produces an approval signature.
const (
	NotCertified CertificationLevel = iota
	NoChangesAllowed
	FormFillingAllowed
	FormFillingAndAnnotationsAllowed
)

var certificationLevelNames = map[CertificationLevel]string{
	NotCertified:                     "No certificado (permite modificaciones y más firmas)",
	NoChangesAllowed:                 "Certificado - No se permiten cambios",
	FormFillingAllowed:               "Certificado - Permitido llenar formularios",
	FormFillingAndAnnotationsAllowed: "Certificado - Permitidas anotaciones y formularios",
}

// Valid reports whether l is one of the four defined levels.
func (l CertificationLevel) Valid() bool {
	return l >= NotCertified && l <= FormFillingAndAnnotationsAllowed
}

// Normalize returns l, or NotCertified when l is out of range.
func (l CertificationLevel) Normalize() CertificationLevel {
	if !l.Valid() {
		return NotCertified
	}
	return l
}

// Description returns the human readable name of the level.
func (l CertificationLevel) Description() string {
	return certificationLevelNames[l.Normalize()]
}

// Certifies reports whether the level produces a certification signature.
func (l CertificationLevel) Certifies() bool {
	return l.Normalize() != NotCertified
}

const (
	DefaultReason   = "Firma Electrónica"
	DefaultLocation = "México"
	DefaultProducer = "Firma Electrónica México v1.0"
	DefaultX        = 50
	DefaultY        = 700
)

// Options controls how a document is signed.
type Options struct {
	// Visible draws a signature box on the target page. An invisible
	// signature still gets a widget with an empty rectangle.
	Visible bool
	// Page is the 1-based target page. 0 selects the last page.
	Page int
	// X and Y give the lower left corner of the visible box in points.
	X float64
	Y float64

	Reason      string
	Location    string
	ContactInfo string

	CertificationLevel CertificationLevel

	// IncludeTimestamp writes the local signing time into /M and the
	// visible box. It has nothing to do with RFC 3161 time stamps.
	IncludeTimestamp bool

	// SignatureText replaces the default lines of the visible box.
	// Lines are separated by '\n'.
	SignatureText string

	// Capacity overrides the number of hex characters reserved for the
	// signature. Zero derives it from the certificate.
	Capacity int

	// EmbedChain adds the certificates shipped with the key material to
	// the CMS structure.
	EmbedChain bool

	// UpdateInfo writes a new revision of the document information
	// dictionary with /ModDate and /Producer.
	UpdateInfo bool
	Producer   string

	// Date is the signing time. The zero value means time.Now().
	Date time.Time

	Logger zerolog.Logger
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Visible:          true,
		Page:             1,
		X:                DefaultX,
		Y:                DefaultY,
		Reason:           DefaultReason,
		Location:         DefaultLocation,
		IncludeTimestamp: true,
		EmbedChain:       true,
		UpdateInfo:       true,
		Producer:         DefaultProducer,
		Logger:           zerolog.Nop(),
	}
}

// ByteRange holds the offset and length of the two signed spans.
type ByteRange [4]int64

// Covers reports whether the ranges end at size, i.e. nothing was appended
// after the signed revision.
func (br ByteRange) Covers(size int64) bool {
	return br[0] == 0 && br[2]+br[3] == size
}

// Result describes a completed signature.
type Result struct {
	Signer             string    `json:"signer" yaml:"signer"`
	SignDate           string    `json:"sign_date" yaml:"sign_date"`
	Reason             string    `json:"reason" yaml:"reason"`
	Location           string    `json:"location" yaml:"location"`
	CertificationLevel string    `json:"certification_level" yaml:"certification_level"`
	Hash               string    `json:"hash" yaml:"hash"`
	ByteRange          ByteRange `json:"byte_range" yaml:"byte_range"`
	SerialNumber       string    `json:"serial_number" yaml:"serial_number"`
	Capacity           int       `json:"capacity" yaml:"capacity"`
	SignatureSize      int       `json:"signature_size" yaml:"signature_size"`
}

type xrefEntry struct {
	ID         uint32
	Generation int
	Offset     int64
}

// SignContext holds the state of one incremental update.
type SignContext struct {
	Document     *pdf.Document
	OutputBuffer *filebuffer.Buffer
	Certificate  *certstore.Certificate
	Signer       crypto.Signer
	Options      Options
	SignDate     time.Time

	// Capacity is the number of hex characters reserved in /Contents.
	Capacity int

	SignatureObjectId  uint32
	WidgetObjectId     uint32
	AppearanceObjectId uint32
	InfoObjectId       uint32
	PageRef            pdf.Ref

	// Slot locates /ByteRange and /Contents of the new signature.
	Slot            Slot
	ByteRangeValues ByteRange
	NewXrefStart    int64

	nextObjectId       uint32
	existingSignatures int
	xrefEntries        []xrefEntry
	revisions          []*revision
	log                zerolog.Logger
}
