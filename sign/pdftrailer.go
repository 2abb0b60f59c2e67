package sign

import (
	"bytes"
	"fmt"
	"strconv"
)

// trailerEntries returns the keys shared by a trailer dictionary and an
// xref stream dictionary.
func (context *SignContext) trailerEntries() string {
	var b bytes.Buffer
	fmt.Fprintf(&b, " /Size %d", context.trailerSize())
	b.WriteString(" /Root " + context.Document.RootRef().String())
	fmt.Fprintf(&b, " /Prev %d", context.Document.StartXref)

	if context.InfoObjectId != 0 {
		fmt.Fprintf(&b, " /Info %d 0 R", context.InfoObjectId)
	} else if info, ok := context.Document.TrailerText("Info"); ok {
		b.WriteString(" /Info ")
		b.Write(info)
	}
	if id, ok := context.Document.TrailerText("ID"); ok {
		b.WriteString(" /ID ")
		b.Write(id)
	}
	return b.String()
}

func (context *SignContext) writeTrailer() error {
	if context.Document.XrefType != "stream" {
		trailer := "trailer\n<<" + context.trailerEntries() + " >>\n"
		if _, err := context.OutputBuffer.Write([]byte(trailer)); err != nil {
			return err
		}
	}

	if _, err := context.OutputBuffer.Write([]byte("startxref\n")); err != nil {
		return err
	}

	// Write the new xref start position.
	if _, err := context.OutputBuffer.Write([]byte(strconv.FormatInt(context.NewXrefStart, 10) + "\n")); err != nil {
		return err
	}

	// Write PDF ending.
	if _, err := context.OutputBuffer.Write([]byte("%%EOF\n")); err != nil {
		return err
	}

	return nil
}
