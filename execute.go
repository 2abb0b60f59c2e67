package pdfsign

import (
	"context"
	"fmt"
	"io"

	"github.com/digitorus/efirma-pdfsign/extract"
	"github.com/digitorus/efirma-pdfsign/sign"
)

// Write applies the staged signatures and writes the resulting document to
// output. If multiple signatures were staged, each one is a new incremental
// update over the previous one.
func (d *Document) Write(output io.Writer) ([]*sign.Result, error) {
	return d.WriteContext(context.Background(), output)
}

// WriteContext is Write with a context that can cancel the signing.
func (d *Document) WriteContext(ctx context.Context, output io.Writer) ([]*sign.Result, error) {
	pending := d.pendingSigns
	d.pendingSigns = nil

	results := make([]*sign.Result, 0, len(pending))
	data := d.data
	for i, sb := range pending {
		opts := sb.opts
		opts.Logger = d.log

		signed, result, err := sign.SignPDF(ctx, data, sb.cert, sb.session, opts)
		if err != nil {
			// Sessions of signatures that were never applied still hold keys.
			for _, rest := range pending[i+1:] {
				_ = rest.session.Close()
			}
			return nil, fmt.Errorf("signature %d: %w", i+1, err)
		}
		data = signed
		results = append(results, result)
	}

	if len(pending) > 0 {
		rdr, err := extract.Open(data)
		if err != nil {
			return nil, err
		}
		d.data, d.rdr = data, rdr
	}

	if _, err := output.Write(data); err != nil {
		return nil, fmt.Errorf("failed to write document: %w", err)
	}
	return results, nil
}
