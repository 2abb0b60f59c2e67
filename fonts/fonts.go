// Package fonts provides the standard PDF fonts used in signature
// appearances together with metrics for measuring text.
//
// The standard fonts are never embedded. Their widths are approximated with
// the metrics of the Go fonts, which have a similar design.
package fonts

import (
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

// StandardType represents standard PDF fonts that are available in all PDF readers
// without embedding.
type StandardType int

const (
	// Helvetica is the standard sans-serif font.
	Helvetica StandardType = iota
	// HelveticaBold is bold Helvetica.
	HelveticaBold
	// Courier is the standard monospace font.
	Courier
)

var standardFonts = map[StandardType]struct {
	name string
	ttf  []byte
}{
	Helvetica:     {"Helvetica", goregular.TTF},
	HelveticaBold: {"Helvetica-Bold", gobold.TTF},
	Courier:       {"Courier", gomono.TTF},
}

// Font is a font resource that can be used in PDF appearances.
type Font struct {
	Name    string   // PostScript name of the font
	Metrics *Metrics // Metrics for text measurement, nil when unavailable
}

// Standard returns a standard PDF font with approximate metrics.
func Standard(ft StandardType) *Font {
	std, ok := standardFonts[ft]
	if !ok {
		std = standardFonts[Helvetica]
	}
	m, err := ParseTTFMetrics(std.ttf)
	if err != nil {
		m = nil
	}
	return &Font{Name: std.name, Metrics: m}
}

// StringWidth returns the width of text in points at size.
func (f *Font) StringWidth(text string, size float64) float64 {
	return f.Metrics.StringWidth(text, size)
}

// Metrics contains glyph advance widths in font units.
type Metrics struct {
	UnitsPerEm  int
	GlyphWidths map[rune]int
}

// ParseTTFMetrics parses a TrueType font and extracts the advance widths of
// the Latin-1 range.
func ParseTTFMetrics(data []byte) (*Metrics, error) {
	f, err := sfnt.Parse(data)
	if err != nil {
		return nil, err
	}

	unitsPerEm := f.UnitsPerEm()
	glyphWidths := make(map[rune]int)
	var buf sfnt.Buffer

	// Use unitsPerEm as the ppem so advances come out in font units.
	ppem := fixed.Int26_6(unitsPerEm) << 6

	for r := rune(32); r <= rune(255); r++ {
		idx, err := f.GlyphIndex(&buf, r)
		if err != nil || idx == 0 {
			continue
		}

		advance, err := f.GlyphAdvance(&buf, idx, ppem, font.HintingNone)
		if err != nil {
			continue
		}
		glyphWidths[r] = int(advance >> 6)
	}

	return &Metrics{
		UnitsPerEm:  int(unitsPerEm),
		GlyphWidths: glyphWidths,
	}, nil
}

// StringWidth returns the width of text in points at fontSize. Without
// metrics every glyph counts as half an em.
func (m *Metrics) StringWidth(text string, fontSize float64) float64 {
	if m == nil || m.UnitsPerEm == 0 {
		var n int
		for range text {
			n++
		}
		return float64(n) * fontSize * 0.5
	}

	var totalWidth int
	for _, r := range text {
		if width, ok := m.GlyphWidths[r]; ok {
			totalWidth += width
		} else {
			totalWidth += m.UnitsPerEm / 2
		}
	}
	return (float64(totalWidth) / float64(m.UnitsPerEm)) * fontSize
}
