package sign

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// pdfString encodes text as a PDF text string. ASCII text is written as a
// literal string; anything else as UTF-16BE with a byte order mark, in hex
// so the encoded bytes never need escaping.
func pdfString(text string) string {
	if !isASCII(text) {
		enc := unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewEncoder()
		res, _, err := transform.String(enc, text)
		if err == nil {
			return "<" + strings.ToUpper(hex.EncodeToString([]byte(res))) + ">"
		}
	}
	return "(" + escapeLiteral(text) + ")"
}

func escapeLiteral(text string) string {
	text = strings.ReplaceAll(text, "\\", "\\\\")
	text = strings.ReplaceAll(text, ")", "\\)")
	text = strings.ReplaceAll(text, "(", "\\(")
	text = strings.ReplaceAll(text, "\r", "\\r")
	text = strings.ReplaceAll(text, "\n", "\\n")
	return text
}

// winAnsiString encodes text for a content stream shown with a standard
// Type 1 font in WinAnsiEncoding. Runes outside the code page become '?'.
func winAnsiString(text string) string {
	enc := charmap.Windows1252.NewEncoder()
	var b strings.Builder
	for _, r := range text {
		out, err := enc.String(string(r))
		if err != nil {
			out = "?"
		}
		b.WriteString(out)
	}
	return "(" + escapeLiteral(b.String()) + ")"
}

// pdfDateTime formats date as a PDF date string, D:YYYYMMDDHHmmSS+HH'mm'.
func pdfDateTime(date time.Time) string {
	_, offset := date.Zone()
	sign := "+"
	if offset < 0 {
		sign = "-"
		offset = -offset
	}
	return fmt.Sprintf("(D:%s%s%02d'%02d')", date.Format("20060102150405"), sign, offset/3600, (offset%3600)/60)
}

func isASCII(s string) bool {
	for _, r := range s {
		if r > '\u007F' {
			return false
		}
	}
	return true
}
