package sign

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/digitorus/efirma-pdfsign/internal/pdf"
)

const (
	// annotFlagPrint is set on visible widgets.
	annotFlagPrint = 4
	// annotFlagHiddenLocked (Hidden | Print | Locked) is set on invisible
	// widgets.
	annotFlagHiddenLocked = 132
)

// fieldName returns a /T value that does not clash with existing signature
// fields of the same form.
func (context *SignContext) fieldName() string {
	return "Signature" + strconv.Itoa(context.existingSignatures+1)
}

// createVisualSignature returns the widget annotation dictionary of the
// signature field.
func (context *SignContext) createVisualSignature(visible bool, rect [4]float64) []byte {
	var visual_signature bytes.Buffer
	visual_signature.WriteString("<< /Type /Annot")
	visual_signature.WriteString(" /Subtype /Widget")
	visual_signature.WriteString(" /FT /Sig")
	visual_signature.WriteString(" /T " + pdfString(context.fieldName()))
	fmt.Fprintf(&visual_signature, " /V %d 0 R", context.SignatureObjectId)
	visual_signature.WriteString(" /P " + context.PageRef.String())

	if visible {
		fmt.Fprintf(&visual_signature, " /Rect [%.2f %.2f %.2f %.2f]", rect[0], rect[1], rect[2], rect[3])
		fmt.Fprintf(&visual_signature, " /F %d", annotFlagPrint)
		fmt.Fprintf(&visual_signature, " /AP << /N %d 0 R >>", context.AppearanceObjectId)
	} else {
		visual_signature.WriteString(" /Rect [0 0 0 0]")
		fmt.Fprintf(&visual_signature, " /F %d", annotFlagHiddenLocked)
	}

	visual_signature.WriteString(" >>")
	return visual_signature.Bytes()
}

// createIncPageUpdate adds the widget to /Annots of the target page.
func (context *SignContext) createIncPageUpdate(page pdf.Indirect) error {
	rev, err := context.revise(page)
	if err != nil {
		return fmt.Errorf("failed to update page %s: %w", page.Ref, err)
	}
	return context.appendToArray(rev, rev.obj.Value, "Annots", fmt.Sprintf("%d 0 R", context.WidgetObjectId))
}
