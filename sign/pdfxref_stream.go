package sign

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"math"
)

// writeXrefStream appends a cross-reference stream covering the new and
// updated objects, including itself.
func (context *SignContext) writeXrefStream() error {
	id := context.allocateObject()
	context.NewXrefStart = int64(context.OutputBuffer.Buff.Len())
	context.xrefEntries = append(context.xrefEntries, xrefEntry{ID: id, Offset: context.NewXrefStart})

	sections := xrefSubsections(context.xrefEntries)

	var buffer bytes.Buffer
	if err := writeXrefStreamEntries(&buffer, sections); err != nil {
		return fmt.Errorf("failed to write xref stream entries: %w", err)
	}

	streamBytes, err := encodeXrefStream(buffer.Bytes())
	if err != nil {
		return fmt.Errorf("failed to encode xref stream: %w", err)
	}

	var xrefStreamObject bytes.Buffer
	writeXrefStreamHeader(&xrefStreamObject, context, sections, len(streamBytes))
	writeBufferStream(&xrefStreamObject, streamBytes)

	// The entry was recorded above, write the bytes directly.
	if _, err := fmt.Fprintf(context.OutputBuffer, "%d 0 obj\n", id); err != nil {
		return err
	}
	if _, err := context.OutputBuffer.Write(xrefStreamObject.Bytes()); err != nil {
		return err
	}
	if _, err := context.OutputBuffer.Write([]byte("\nendobj\n")); err != nil {
		return err
	}
	return nil
}

// writeXrefStreamEntries writes one type 1 row per entry.
func writeXrefStreamEntries(buffer *bytes.Buffer, sections []xrefSubsection) error {
	for _, section := range sections {
		for _, entry := range section.entries {
			if entry.Offset > math.MaxUint32 {
				return fmt.Errorf("offset %d of object %d does not fit the xref stream", entry.Offset, entry.ID)
			}
			if entry.Generation > math.MaxUint8 {
				return fmt.Errorf("generation %d of object %d does not fit the xref stream", entry.Generation, entry.ID)
			}
			writeXrefStreamLine(buffer, 1, uint32(entry.Offset), byte(entry.Generation))
		}
	}
	return nil
}

// encodeXrefStream compresses the rows with FlateDecode and no predictor.
func encodeXrefStream(data []byte) ([]byte, error) {
	var b bytes.Buffer
	w := zlib.NewWriter(&b)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// writeXrefStreamHeader writes the stream dictionary, which doubles as the
// trailer.
func writeXrefStreamHeader(buffer *bytes.Buffer, context *SignContext, sections []xrefSubsection, streamLength int) {
	buffer.WriteString("<< /Type /XRef")
	buffer.WriteString(context.trailerEntries())
	buffer.WriteString(" /W [1 4 1]")

	buffer.WriteString(" /Index [")
	for i, section := range sections {
		if i > 0 {
			buffer.WriteString(" ")
		}
		fmt.Fprintf(buffer, "%d %d", section.start, len(section.entries))
	}
	buffer.WriteString("]")

	buffer.WriteString(" /Filter /FlateDecode")
	fmt.Fprintf(buffer, " /Length %d", streamLength)
	buffer.WriteString(" >>\n")
}

// writeXrefStreamLine writes a single row: type, offset and generation.
func writeXrefStreamLine(b *bytes.Buffer, xreftype byte, offset uint32, gen byte) {
	b.WriteByte(xreftype)

	offsetBytes := make([]byte, 4)
	binary.BigEndian.PutUint32(offsetBytes, offset)
	b.Write(offsetBytes)

	b.WriteByte(gen)
}
