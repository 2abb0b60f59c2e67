package sign

import (
	"fmt"
)

// writeIncrXrefTable writes the incremental cross-reference table to the output buffer.
func (context *SignContext) writeIncrXrefTable() error {
	context.NewXrefStart = int64(context.OutputBuffer.Buff.Len())

	// Write xref header
	if _, err := context.OutputBuffer.Write([]byte("xref\n")); err != nil {
		return fmt.Errorf("failed to write incremental xref header: %w", err)
	}

	for _, section := range xrefSubsections(context.xrefEntries) {
		if _, err := fmt.Fprintf(context.OutputBuffer, "%d %d\n", section.start, len(section.entries)); err != nil {
			return fmt.Errorf("failed to write xref subsection header: %w", err)
		}

		for _, entry := range section.entries {
			xrefLine := fmt.Sprintf("%010d %05d n\r\n", entry.Offset, entry.Generation)
			if _, err := context.OutputBuffer.Write([]byte(xrefLine)); err != nil {
				return fmt.Errorf("failed to write incremental xref entry: %w", err)
			}
		}
	}

	return nil
}
