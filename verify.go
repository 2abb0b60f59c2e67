package pdfsign

import (
	"github.com/digitorus/efirma-pdfsign/verify"
)

// Verify recomputes the digest of every signature of the document and
// compares it to the signed messageDigest. See verify.Limitations for what
// the report does not establish.
func (d *Document) Verify() (*verify.Report, error) {
	return verify.NewValidator(d.log).Validate(d.data)
}
