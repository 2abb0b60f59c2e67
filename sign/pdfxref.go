package sign

import (
	"fmt"
	"sort"
)

// writeObject appends "id gen obj ... endobj" and records its offset.
func (context *SignContext) writeObject(id uint32, generation int, body []byte) error {
	offset := int64(context.OutputBuffer.Buff.Len())

	if _, err := fmt.Fprintf(context.OutputBuffer, "%d %d obj\n", id, generation); err != nil {
		return fmt.Errorf("failed to write object header: %w", err)
	}
	if _, err := context.OutputBuffer.Write(body); err != nil {
		return fmt.Errorf("failed to write object: %w", err)
	}
	if _, err := context.OutputBuffer.Write([]byte("\nendobj\n")); err != nil {
		return fmt.Errorf("failed to write object trailer: %w", err)
	}

	context.xrefEntries = append(context.xrefEntries, xrefEntry{ID: id, Generation: generation, Offset: offset})
	return nil
}

// writeRevision appends a pending revision of an existing object.
func (context *SignContext) writeRevision(rev *revision) error {
	offset := int64(context.OutputBuffer.Buff.Len())
	if _, err := context.OutputBuffer.Write(rev.bytes()); err != nil {
		return fmt.Errorf("failed to write object %s: %w", rev.obj.Ref, err)
	}
	context.xrefEntries = append(context.xrefEntries, xrefEntry{
		ID:         uint32(rev.obj.Ref.Number),
		Generation: rev.obj.Ref.Generation,
		Offset:     offset,
	})
	return nil
}

// allocateObject returns the next free object number.
func (context *SignContext) allocateObject() uint32 {
	id := context.nextObjectId
	context.nextObjectId++
	return id
}

// xrefSubsection is a run of consecutive object numbers.
type xrefSubsection struct {
	start   uint32
	entries []xrefEntry
}

// xrefSubsections sorts entries and groups them into consecutive runs.
func xrefSubsections(entries []xrefEntry) []xrefSubsection {
	sorted := make([]xrefEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	var sections []xrefSubsection
	for _, e := range sorted {
		n := len(sections)
		if n > 0 {
			last := &sections[n-1]
			if last.start+uint32(len(last.entries)) == e.ID {
				last.entries = append(last.entries, e)
				continue
			}
		}
		sections = append(sections, xrefSubsection{start: e.ID, entries: []xrefEntry{e}})
	}
	return sections
}

// trailerSize returns /Size for the new section.
func (context *SignContext) trailerSize() int {
	size := context.Document.Size()
	for _, e := range context.xrefEntries {
		if int(e.ID)+1 > size {
			size = int(e.ID) + 1
		}
	}
	return size
}

// writeXref writes the cross-reference section in the form used by the
// previous section, followed by the trailer.
func (context *SignContext) writeXref() error {
	switch context.Document.XrefType {
	case "stream":
		if err := context.writeXrefStream(); err != nil {
			return fmt.Errorf("failed to write xref stream: %w", err)
		}
	default:
		if err := context.writeIncrXrefTable(); err != nil {
			return fmt.Errorf("failed to write xref table: %w", err)
		}
	}
	return context.writeTrailer()
}
