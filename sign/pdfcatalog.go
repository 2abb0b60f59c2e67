package sign

import (
	"fmt"

	"github.com/digitorus/efirma-pdfsign/common"
	"github.com/digitorus/efirma-pdfsign/internal/pdf"
)

// sigFlags sets SignaturesExist and AppendOnly.
const sigFlags = "3"

// countFormFields returns the number of fields already in the form, so the
// new field gets a fresh name.
func (context *SignContext) countFormFields(catalog pdf.Indirect) int {
	acroForm, ok := catalog.Value.Key("AcroForm")
	if !ok {
		return 0
	}
	acroForm, err := context.Document.Deref(acroForm)
	if err != nil {
		return 0
	}
	fields, ok := acroForm.Key("Fields")
	if !ok {
		return 0
	}
	fields, err = context.Document.Deref(fields)
	if err != nil {
		return 0
	}
	return len(fields.Items)
}

// createCatalog registers the signature field in the AcroForm and, for
// certification signatures, the DocMDP permission.
func (context *SignContext) createCatalog(catalog pdf.Indirect) error {
	rev, err := context.revise(catalog)
	if err != nil {
		return fmt.Errorf("failed to update catalog: %w", err)
	}
	root := rev.obj.Value
	widget := fmt.Sprintf("%d 0 R", context.WidgetObjectId)

	acroForm, ok := root.Key("AcroForm")
	switch {
	case !ok || acroForm.Kind == pdf.Null:
		if ok {
			rev.replace(acroForm, "<< /Fields ["+widget+"] /SigFlags "+sigFlags+" >>")
		} else {
			rev.insertBeforeEnd(root, " /AcroForm << /Fields ["+widget+"] /SigFlags "+sigFlags+" >>")
		}
	case acroForm.Kind == pdf.Dict:
		if err := context.appendToArray(rev, acroForm, "Fields", widget); err != nil {
			return err
		}
		setKey(rev, acroForm, "SigFlags", sigFlags)
	case acroForm.Kind == pdf.Reference:
		formRev, err := context.reviseRef(acroForm.Ref)
		if err != nil {
			return fmt.Errorf("failed to load /AcroForm: %w", err)
		}
		if formRev.obj.Value.Kind != pdf.Dict {
			return common.NewError(common.ErrPdfStructureNotRecognized, "/AcroForm %s is not a dictionary", acroForm.Ref)
		}
		if err := context.appendToArray(formRev, formRev.obj.Value, "Fields", widget); err != nil {
			return err
		}
		setKey(formRev, formRev.obj.Value, "SigFlags", sigFlags)
	default:
		return common.NewError(common.ErrPdfStructureNotRecognized, "/AcroForm has unexpected type")
	}

	if context.Options.CertificationLevel.Certifies() {
		docMDP := fmt.Sprintf("%d 0 R", context.SignatureObjectId)
		if perms, ok := root.Key("Perms"); ok && perms.Kind == pdf.Dict {
			setKey(rev, perms, "DocMDP", docMDP)
		} else {
			setKey(rev, root, "Perms", "<< /DocMDP "+docMDP+" >>")
		}
	}

	return nil
}
