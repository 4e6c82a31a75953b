package fonts

import (
	"bytes"

	"github.com/go-text/typesetting/di"
	gofont "github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	"golang.org/x/image/math/fixed"

	"github.com/wudi/redactkit/document"
)

// ShapedAdvances shapes text with the font's embedded program and returns
// one advance per input byte, in 1/1000 em units. It returns ok=false when
// the font has no embedded program, the program fails to parse, or shaping
// does not produce a one-glyph-per-character mapping; callers then fall
// back to the width table.
func ShapedAdvances(f *document.Font, raw []byte) ([]float64, bool) {
	if f == nil || len(f.FontFile) == 0 || len(raw) == 0 {
		return nil, false
	}
	face, err := gofont.ParseTTF(bytes.NewReader(f.FontFile))
	if err != nil {
		return nil, false
	}

	runes := Decode(f, raw)

	// Shape at a 1000-unit em so advances come out in PDF glyph-space
	// units directly.
	shaper := &shaping.HarfbuzzShaper{}
	input := shaping.Input{
		Text:      runes,
		RunStart:  0,
		RunEnd:    len(runes),
		Direction: di.DirectionLTR,
		Face:      face,
		Size:      fixed.Int26_6(1000 * 64),
		Script:    language.Latin,
		Language:  language.DefaultLanguage(),
	}
	output := shaper.Shape(input)

	// Ligatures or combining marks break the per-character mapping the
	// bounds calculator needs; reject those runs.
	if len(output.Glyphs) != len(runes) {
		return nil, false
	}
	advances := make([]float64, len(output.Glyphs))
	for i, g := range output.Glyphs {
		if int(g.ClusterIndex) != i {
			return nil, false
		}
		advances[i] = float64(g.XAdvance) / 64.0
	}
	return advances, true
}
