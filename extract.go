package pdfsign

import (
	"bytes"
	"iter"

	"github.com/digitorus/efirma-pdfsign/extract"
)

// Signatures returns an iterator over all signature dictionaries in the document.
func (d *Document) Signatures() iter.Seq2[*extract.Signature, error] {
	return extract.Iter(d.rdr, bytes.NewReader(d.data))
}
