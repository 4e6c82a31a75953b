// Package textmap defines the ground-truth letter-position collaborator
// the glyph refiner consults. The engine's own text bounds are
// approximations; a Source supplies per-character positions from an
// authoritative extractor (or OCR), which the refiner correlates against
// by content, never by coordinates alone.
package textmap

import (
	"context"

	"github.com/wudi/redactkit/coords"
)

// Letter is one ground-truth character with its page-space bounding box.
type Letter struct {
	Char rune
	Box  coords.Rect
}

// Source yields the ordered letters of a page. Implementations are
// treated as ground truth; results are recomputed per redaction call and
// never persisted by the engine.
type Source interface {
	Letters(ctx context.Context, pageIndex int) ([]Letter, error)
}

// Static is a fixed in-memory Source, keyed by page index. Used in tests
// and by callers that already extracted letter positions.
type Static map[int][]Letter

func (s Static) Letters(_ context.Context, pageIndex int) ([]Letter, error) {
	return s[pageIndex], nil
}
