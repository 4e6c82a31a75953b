package redact

import (
	"math"

	"github.com/wudi/redactkit/contentstream"
	"github.com/wudi/redactkit/coords"
	"github.com/wudi/redactkit/observability"
	"github.com/wudi/redactkit/textmap"
)

// DefaultTolerance is the vertical band, in points, within which a
// ground-truth letter may correlate to a self-computed glyph. Metric
// approximation can put self-computed positions several points off, so
// the band must absorb that without reaching into adjacent lines.
const DefaultTolerance = 3.0

// Refiner splits partially covered text runs at character granularity
// against ground-truth letter positions. Correlation is by content
// (rune equality within the vertical band); self-computed horizontal
// position only breaks ties between textually identical candidates.
// Ambiguity is resolved toward removal, never retention.
type Refiner struct {
	Letters   []textmap.Letter
	Tolerance float64
	Logger    observability.Logger

	// RasterFallback substitutes a rasterized image for kept spans whose
	// run matrix is rotated or skewed, trading text-searchability of the
	// remainder for positional fidelity. Off by default.
	RasterFallback bool
	RasterDPI      float64

	// Images collects raster outputs keyed by the XObject name the
	// caller must register.
	Images map[string][]byte

	nextImage int
}

// NewRefiner builds a refiner over the given ground-truth letters.
func NewRefiner(letters []textmap.Letter, log observability.Logger) *Refiner {
	if log == nil {
		log = observability.NopLogger{}
	}
	return &Refiner{Letters: letters, Tolerance: DefaultTolerance, Logger: log}
}

// Refine implements RefineFunc. It returns refined=false when the
// operation carries no per-character geometry, leaving the caller to
// remove the whole operation.
func (r *Refiner) Refine(op *contentstream.Operation, regions []coords.Rect) ([]contentstream.Operation, bool) {
	if op.Text == nil || len(op.Text.Glyphs) == 0 {
		return nil, false
	}
	glyphs := op.Text.Glyphs
	removed := make([]bool, len(glyphs))
	for i, g := range glyphs {
		letter, ok := r.correlate(g)
		if !ok {
			// No unique ground-truth match: treat the character as
			// inside the region rather than risk leaving it behind.
			r.Logger.Warn("glyph correlation ambiguous, removing",
				observability.String("char", string(g.Char)))
			removed[i] = true
			continue
		}
		for _, region := range regions {
			if letter.Box.Intersects(region) {
				removed[i] = true
				break
			}
		}
	}

	anyRemoved := false
	for _, rm := range removed {
		anyRemoved = anyRemoved || rm
	}
	if !anyRemoved {
		// The character pass found nothing inside the regions; the run
		// survives unmodified.
		return []contentstream.Operation{*op}, true
	}

	var out []contentstream.Operation
	for start := 0; start < len(glyphs); {
		if removed[start] {
			start++
			continue
		}
		end := start
		for end < len(glyphs) && !removed[end] {
			end++
		}
		out = append(out, r.emitSpan(op, start, end)...)
		start = end
	}
	return out, true
}

// emitSpan re-expresses glyphs [start,end) as one or more surviving
// operations.
func (r *Refiner) emitSpan(op *contentstream.Operation, start, end int) []contentstream.Operation {
	snap := *op.Text
	snap.Raw = append([]byte(nil), op.Text.Raw[start:end]...)
	snap.Glyphs = append([]contentstream.GlyphBox(nil), op.Text.Glyphs[start:end]...)
	snap.Tm = coords.Translate(op.Text.Glyphs[start].Offset, 0).Multiply(op.Text.Tm)

	box := snap.Glyphs[0].Box
	for _, g := range snap.Glyphs[1:] {
		box = box.Union(g.Box)
	}

	if r.RasterFallback && !snap.EffectiveMatrix().IsAxisAligned() {
		if ops, ok := r.rasterSpan(&snap, box); ok {
			return ops
		}
	}

	return []contentstream.Operation{{
		Kind:        contentstream.OpShowText,
		Operator:    "Tj",
		Operands:    []contentstream.Operand{contentstream.StringOperand{Value: snap.Raw}},
		BBox:        box,
		HasBBox:     true,
		Text:        &snap,
		Synthesized: true,
	}}
}

// correlate finds the unique ground-truth letter for a self-computed
// glyph. ok=false means no match or an unresolvable ambiguity.
func (r *Refiner) correlate(g contentstream.GlyphBox) (textmap.Letter, bool) {
	gc := g.Box.Center()
	var candidates []textmap.Letter
	for _, l := range r.Letters {
		if l.Char == g.Char && math.Abs(l.Box.Center().Y-gc.Y) <= r.Tolerance {
			candidates = append(candidates, l)
		}
	}
	switch len(candidates) {
	case 0:
		return textmap.Letter{}, false
	case 1:
		return candidates[0], true
	}
	best, bestDist, secondDist := candidates[0], math.MaxFloat64, math.MaxFloat64
	for _, l := range candidates {
		d := math.Abs(l.Box.Center().X - gc.X)
		switch {
		case d < bestDist:
			best, secondDist, bestDist = l, bestDist, d
		case d < secondDist:
			secondDist = d
		}
	}
	if secondDist-bestDist < 1e-6 {
		// Two equally plausible candidates: ambiguous.
		return textmap.Letter{}, false
	}
	return best, true
}
