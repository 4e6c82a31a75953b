package contentstream

import (
	"github.com/wudi/redactkit/coords"
	"github.com/wudi/redactkit/fonts"
)

// Bounds calculation. All boxes come out in page space (bottom-left
// origin); no frame conversion happens here.
//
// Text bounds are approximate: advances come from the declared width
// table (or shaped metrics when enabled and a font program is embedded),
// not from full font-program parsing, and the box height is derived from
// the font size. Positions can be off by a few points, which is why the
// glyph refiner correlates by content, never by these coordinates alone.

// tjItem is one element of a show-text run: either shown bytes or a
// kerning adjustment in 1/1000 em units.
type tjItem struct {
	raw    []byte
	kern   float64
	isKern bool
}

// runMeasure is the measured geometry of one text run.
type runMeasure struct {
	box    coords.Rect
	width  float64 // text-space displacement of the whole run
	raw    []byte
	glyphs []GlyphBox
}

// measureRun computes the run box, per-character boxes, and the total
// text-space displacement for a show-text operation.
//
// Per-character advance:
//
//	((glyphWidth/1000) × size + charSpacing + wordSpacing-if-space) × horizScale/100
//
// TJ kern numbers subtract kern/1000 × size × horizScale/100.
func measureRun(ts *TextState, gs *GraphicsState, items []tjItem, shaped bool) runMeasure {
	size := ts.FontSize
	hs := ts.HorizScale / 100
	em := ts.Tm.Multiply(gs.CTM)

	var m runMeasure
	x := 0.0
	minX, maxX := 0.0, 0.0
	for _, it := range items {
		if it.isKern {
			x -= it.kern / 1000 * size * hs
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			continue
		}
		var shapedAdv []float64
		if shaped {
			shapedAdv, _ = fonts.ShapedAdvances(ts.Font, it.raw)
		}
		runes := fonts.Decode(ts.Font, it.raw)
		for i, b := range it.raw {
			w := fonts.Advance(ts.Font, b)
			if shapedAdv != nil {
				w = shapedAdv[i]
			}
			adv := (w/1000*size + ts.CharSpacing) * hs
			if b == ' ' {
				adv += ts.WordSpacing * hs
			}
			m.glyphs = append(m.glyphs, GlyphBox{
				Char:    runes[i],
				Box:     coords.TransformRect(em, coords.Rect{LLX: x, LLY: ts.Rise, URX: x + adv, URY: ts.Rise + size}),
				Offset:  x,
				Advance: adv,
			})
			x += adv
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
		}
		m.raw = append(m.raw, it.raw...)
	}
	m.width = x
	m.box = coords.TransformRect(em, coords.Rect{LLX: minX, LLY: ts.Rise, URX: maxX, URY: ts.Rise + size})
	return m
}

// pathBounds returns the bounding box of already-transformed path points.
func pathBounds(points []coords.Point) (coords.Rect, bool) {
	if len(points) == 0 {
		return coords.Rect{}, false
	}
	return coords.BoundsOf(points...), true
}

// imageBounds maps the unit square through the CTM; image XObjects are
// always drawn into that square.
func imageBounds(ctm coords.Matrix) coords.Rect {
	return coords.TransformRect(ctm, coords.Rect{URX: 1, URY: 1})
}
