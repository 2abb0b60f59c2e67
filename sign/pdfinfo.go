package sign

import (
	"bytes"
	"fmt"

	"github.com/digitorus/efirma-pdfsign/internal/pdf"
)

// DefaultCreator is set on documents that do not name a creator yet.
const DefaultCreator = "Sistema de Firma Electrónica"

// createInfo writes a new revision of the document information dictionary.
// Existing keys are kept; /ModDate and /Producer are set. A document without
// an information dictionary gets a new one in InfoObjectId.
func (context *SignContext) createInfo() ([]byte, error) {
	producer := context.Options.Producer
	if producer == "" {
		producer = DefaultProducer
	}

	if ref, ok := context.Document.InfoRef(); ok {
		obj, err := context.Document.Object(ref.Number)
		if err == nil && obj.Value.Kind == pdf.Dict && !obj.IsStream() {
			rev, err := context.revise(obj)
			if err != nil {
				return nil, err
			}
			info := rev.obj.Value
			setKey(rev, info, "ModDate", pdfDateTime(context.SignDate))
			setKey(rev, info, "Producer", pdfString(producer))
			if !info.Has("Creator") {
				setKey(rev, info, "Creator", pdfString(DefaultCreator))
			}
			return nil, nil
		}
		// A dangling /Info is replaced by a fresh dictionary.
	}

	var info bytes.Buffer
	info.WriteString("<<")
	fmt.Fprintf(&info, " /Producer %s", pdfString(producer))
	fmt.Fprintf(&info, " /Creator %s", pdfString(DefaultCreator))
	fmt.Fprintf(&info, " /ModDate %s", pdfDateTime(context.SignDate))
	info.WriteString(" >>")
	return info.Bytes(), nil
}
