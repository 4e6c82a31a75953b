// Package fonts supplies glyph advance widths for the bounds calculator.
//
// The default path uses the width table declared in the page's font
// resources, falling back to an approximate 500/1000 em for unknown codes.
// This is an intentional approximation: embedded font programs are not
// parsed for metrics unless the caller opts into shaped metrics (see
// shaper.go), and even then only when a font program is present. Computed
// text bounds are therefore estimates that can be off by a few points,
// which is why the glyph refiner never trusts them as a primary key.
package fonts

import "github.com/wudi/redactkit/document"

// DefaultWidth is the fallback glyph width in 1/1000 em units.
const DefaultWidth = 500

// Advance returns the width of the glyph for character code in 1/1000 em
// units, before scaling by font size.
func Advance(f *document.Font, code byte) float64 {
	if f != nil && f.Widths != nil {
		if w, ok := f.Widths[int(code)]; ok {
			return float64(w)
		}
	}
	return DefaultWidth
}

// Decode maps content-stream string bytes to runes. Simple fonts with
// Latin text map byte-per-character; anything beyond that (multi-byte
// CID encodings) keeps the byte value as the rune, which is good enough
// for the content-match correlation the refiner performs.
func Decode(f *document.Font, raw []byte) []rune {
	out := make([]rune, len(raw))
	for i, b := range raw {
		out[i] = rune(b)
	}
	return out
}
