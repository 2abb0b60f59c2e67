package sign

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/digitorus/efirma-pdfsign/common"
	"github.com/digitorus/efirma-pdfsign/internal/pdf"
)

// edit replaces src[start:end] of a revised object with text. An insertion
// has start == end.
type edit struct {
	start int
	end   int
	text  string
}

// revision is a new copy of an existing object, written into the update
// section with the same object number. The original text is kept and only
// the edited spans change.
type revision struct {
	obj   pdf.Indirect
	edits []edit
}

// insertBeforeEnd inserts text just before the closing delimiter of a
// dictionary or array of the revised object.
func (r *revision) insertBeforeEnd(o pdf.Object, text string) {
	pos := o.End - 1
	if o.Kind == pdf.Dict {
		pos = o.End - 2
	}
	r.edits = append(r.edits, edit{start: pos, end: pos, text: text})
}

// replace swaps the text of value o.
func (r *revision) replace(o pdf.Object, text string) {
	r.edits = append(r.edits, edit{start: o.Start, end: o.End, text: text})
}

// bytes renders the complete "n g obj ... endobj" text.
func (r *revision) bytes() []byte {
	edits := make([]edit, len(r.edits))
	copy(edits, r.edits)
	sort.SliceStable(edits, func(i, j int) bool { return edits[i].start < edits[j].start })

	src := r.obj.Src
	pos := r.obj.Value.Start

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%d %d obj\n", r.obj.Ref.Number, r.obj.Ref.Generation)
	for _, e := range edits {
		if e.start < pos {
			// Nested in a replaced span.
			continue
		}
		buf.Write(src[pos:e.start])
		buf.WriteString(e.text)
		pos = e.end
	}
	buf.Write(src[pos:r.obj.Value.End])
	buf.WriteString("\nendobj\n")
	return buf.Bytes()
}

// revise returns the pending revision of obj, creating it on first use.
func (context *SignContext) revise(obj pdf.Indirect) (*revision, error) {
	for _, r := range context.revisions {
		if r.obj.Ref.Number == obj.Ref.Number {
			return r, nil
		}
	}
	if obj.IsStream() || (obj.Value.Kind != pdf.Dict && obj.Value.Kind != pdf.Array) {
		return nil, common.NewError(common.ErrPdfStructureNotRecognized, "object %s cannot be updated", obj.Ref)
	}
	r := &revision{obj: obj}
	context.revisions = append(context.revisions, r)
	return r, nil
}

// reviseRef loads object n and returns its pending revision.
func (context *SignContext) reviseRef(ref pdf.Ref) (*revision, error) {
	for _, r := range context.revisions {
		if r.obj.Ref.Number == ref.Number {
			return r, nil
		}
	}
	obj, err := context.Document.Object(ref.Number)
	if err != nil {
		return nil, err
	}
	return context.revise(obj)
}

// setKey sets key in dict, replacing an existing value.
func setKey(rev *revision, dict pdf.Object, key, value string) {
	if v, ok := dict.Key(key); ok {
		rev.replace(v, value)
		return
	}
	rev.insertBeforeEnd(dict, " /"+key+" "+value)
}

// appendToArray adds item to the array stored under key in dict. The array
// may be missing, direct or held in its own object.
func (context *SignContext) appendToArray(rev *revision, dict pdf.Object, key, item string) error {
	v, ok := dict.Key(key)
	switch {
	case !ok:
		rev.insertBeforeEnd(dict, " /"+key+" ["+item+"]")
	case v.Kind == pdf.Array:
		rev.insertBeforeEnd(v, " "+item)
	case v.Kind == pdf.Reference:
		target, err := context.reviseRef(v.Ref)
		if err != nil {
			return fmt.Errorf("failed to load /%s: %w", key, err)
		}
		if target.obj.Value.Kind != pdf.Array {
			return common.NewError(common.ErrPdfStructureNotRecognized, "/%s %s is not an array", key, v.Ref)
		}
		target.insertBeforeEnd(target.obj.Value, " "+item)
	default:
		rev.replace(v, "["+item+"]")
	}
	return nil
}
