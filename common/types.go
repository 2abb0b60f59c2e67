package common

import (
	"time"
)

// DocumentInfo contains document information that can be extracted from any PDF.
type DocumentInfo struct {
	Author   string `json:"author" yaml:"author"`
	Creator  string `json:"creator" yaml:"creator"`
	Producer string `json:"producer" yaml:"producer"`
	Subject  string `json:"subject" yaml:"subject"`
	Title    string `json:"title" yaml:"title"`

	Pages        int        `json:"pages" yaml:"pages"`
	Keywords     []string   `json:"keywords" yaml:"keywords"`
	ModDate      *time.Time `json:"mod_date,omitempty" yaml:"mod_date,omitempty"`
	CreationDate *time.Time `json:"creation_date,omitempty" yaml:"creation_date,omitempty"`
}

// SignatureInfo contains information about one embedded signature and the
// outcome of recomputing its digest.
type SignatureInfo struct {
	Name        string     `json:"name" yaml:"name"`
	Reason      string     `json:"reason" yaml:"reason"`
	Location    string     `json:"location" yaml:"location"`
	ContactInfo string     `json:"contact_info" yaml:"contact_info"`
	SubFilter   string     `json:"sub_filter" yaml:"sub_filter"`
	SigningTime *time.Time `json:"signing_time,omitempty" yaml:"signing_time,omitempty"`

	ByteRange      []int64 `json:"byte_range" yaml:"byte_range"`
	CoversWholeDoc bool    `json:"covers_whole_document" yaml:"covers_whole_document"`

	// DocumentHash is the hex SHA-256 of the bytes selected by ByteRange.
	DocumentHash string `json:"document_hash" yaml:"document_hash"`
	// MessageDigest is the hex messageDigest attribute embedded in the CMS.
	MessageDigest string `json:"message_digest" yaml:"message_digest"`
	DigestMatches bool   `json:"digest_matches" yaml:"digest_matches"`

	Signer       string `json:"signer" yaml:"signer"`
	SerialNumber string `json:"serial_number" yaml:"serial_number"`
	Error        string `json:"error,omitempty" yaml:"error,omitempty"`
}
