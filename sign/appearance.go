package sign

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/digitorus/efirma-pdfsign/fonts"
)

const (
	appearanceFontSize   = 10
	appearanceLineHeight = 15
	appearanceMinWidth   = 250
	appearancePadding    = 10
	appearanceBorder     = 1.5

	// pageMargin keeps the visible box away from the page edges.
	pageMargin = 10

	// signDateLayout is the day-first local date used in the box.
	signDateLayout = "02/01/2006, 15:04:05"
)

// signatureLines returns the text lines of the visible signature box.
func (context *SignContext) signatureLines() []string {
	if context.Options.SignatureText != "" {
		text := strings.ReplaceAll(context.Options.SignatureText, "\r\n", "\n")
		return strings.Split(text, "\n")
	}

	name := context.Certificate.CommonName()
	if name == "" {
		name = "Usuario"
	}

	lines := []string{"Firmado digitalmente por:", name}
	if context.Options.IncludeTimestamp {
		lines = append(lines, "Fecha: "+context.SignDate.Format(signDateLayout))
	}
	if context.Options.Reason != "" {
		lines = append(lines, "Razón: "+context.Options.Reason)
	}
	if context.Options.Location != "" {
		lines = append(lines, "Ubicación: "+context.Options.Location)
	}
	return lines
}

// appearanceSize returns the box size needed to show lines.
func appearanceSize(font *fonts.Font, lines []string) (width, height float64) {
	width = appearanceMinWidth
	for _, line := range lines {
		if w := font.StringWidth(line, appearanceFontSize) + 2*appearancePadding; w > width {
			width = w
		}
	}
	height = float64(len(lines)*appearanceLineHeight + 20)
	return width, height
}

// signatureRect places a width x height box at (x, y) and keeps it inside
// mediaBox with a margin.
func signatureRect(mediaBox [4]float64, x, y, width, height float64) [4]float64 {
	x = min(x, mediaBox[2]-width-pageMargin)
	y = min(y, mediaBox[3]-height-pageMargin)
	x = max(x, mediaBox[0]+pageMargin)
	y = max(y, mediaBox[1]+pageMargin)
	return [4]float64{x, y, x + width, y + height}
}

// writeAppearanceHeader writes the header for the appearance stream.
//
// Should be closed by writeFormTypeAndLength.
func writeAppearanceHeader(buffer *bytes.Buffer, rectWidth, rectHeight float64) {
	buffer.WriteString("<<\n")
	buffer.WriteString("  /Type /XObject\n")
	buffer.WriteString("  /Subtype /Form\n")
	fmt.Fprintf(buffer, "  /BBox [0 0 %.2f %.2f]\n", rectWidth, rectHeight)
	buffer.WriteString("  /Matrix [1 0 0 1 0 0]\n")
}

func createFontResource(buffer *bytes.Buffer, font *fonts.Font) {
	buffer.WriteString("   /Font <<\n")
	buffer.WriteString("     /F1 <<\n")
	buffer.WriteString("       /Type /Font\n")
	buffer.WriteString("       /Subtype /Type1\n")
	buffer.WriteString("       /BaseFont /" + font.Name + "\n")
	buffer.WriteString("       /Encoding /WinAnsiEncoding\n")
	buffer.WriteString("     >>\n")
	buffer.WriteString("   >>\n")
}

func writeFormTypeAndLength(buffer *bytes.Buffer, streamLength int) {
	buffer.WriteString("  /FormType 1\n")
	fmt.Fprintf(buffer, "  /Length %d\n", streamLength)
	buffer.WriteString(">>\n")
}

func writeBufferStream(buffer *bytes.Buffer, stream []byte) {
	buffer.WriteString("stream\n")
	buffer.Write(stream)
	buffer.WriteString("\nendstream")
}

// drawBox fills the box in light grey and strokes a black border inside it.
func drawBox(buffer *bytes.Buffer, rectWidth, rectHeight float64) {
	inset := appearanceBorder / 2
	buffer.WriteString("q\n")
	buffer.WriteString("0.95 0.95 0.95 rg\n")
	buffer.WriteString("0 0 0 RG\n")
	fmt.Fprintf(buffer, "%.2f w\n", appearanceBorder)
	fmt.Fprintf(buffer, "%.2f %.2f %.2f %.2f re\n", inset, inset, rectWidth-appearanceBorder, rectHeight-appearanceBorder)
	buffer.WriteString("B\n")
	buffer.WriteString("Q\n")
}

func drawLines(buffer *bytes.Buffer, lines []string, rectHeight float64) {
	buffer.WriteString("BT\n")
	fmt.Fprintf(buffer, "/F1 %d Tf\n", appearanceFontSize)
	buffer.WriteString("0 g\n")
	fmt.Fprintf(buffer, "%d %.2f Td\n", appearancePadding, rectHeight-appearanceLineHeight)
	for i, line := range lines {
		if i > 0 {
			fmt.Fprintf(buffer, "0 %d Td\n", -appearanceLineHeight)
		}
		buffer.WriteString(winAnsiString(line) + " Tj\n")
	}
	buffer.WriteString("ET")
}

// createAppearance returns the form XObject drawn in the visible widget.
func (context *SignContext) createAppearance(rect [4]float64, font *fonts.Font, lines []string) ([]byte, error) {
	rectWidth := rect[2] - rect[0]
	rectHeight := rect[3] - rect[1]

	if rectWidth < 1 || rectHeight < 1 {
		return nil, fmt.Errorf("invalid rectangle dimensions: width %.2f and height %.2f must be greater than 0", rectWidth, rectHeight)
	}

	var appearance_stream_buffer bytes.Buffer
	drawBox(&appearance_stream_buffer, rectWidth, rectHeight)
	drawLines(&appearance_stream_buffer, lines, rectHeight)

	var appearance_buffer bytes.Buffer
	writeAppearanceHeader(&appearance_buffer, rectWidth, rectHeight)

	appearance_buffer.WriteString("  /Resources <<\n")
	createFontResource(&appearance_buffer, font)
	appearance_buffer.WriteString("  >>\n")

	writeFormTypeAndLength(&appearance_buffer, appearance_stream_buffer.Len())
	writeBufferStream(&appearance_buffer, appearance_stream_buffer.Bytes())

	return appearance_buffer.Bytes(), nil
}
