package contentstream

import (
	"github.com/wudi/redactkit/coords"
	"github.com/wudi/redactkit/document"
)

// OpKind is the closed enumeration of recognized operators. Resolving the
// keyword to a kind once at parse time and dispatching on the enum (rather
// than on strings scattered through the code) makes an unhandled operator
// a compile-visible gap instead of a latent bug. Everything outside the
// set is OpGeneric and round-trips verbatim.
type OpKind int

const (
	OpGeneric OpKind = iota

	// Graphics state.
	OpSaveState      // q
	OpRestoreState   // Q
	OpConcatMatrix   // cm
	OpSetLineWidth   // w
	OpSetStrokeGray  // G
	OpSetFillGray    // g
	OpSetStrokeRGB   // RG
	OpSetFillRGB     // rg
	OpSetStrokeCMYK  // K
	OpSetFillCMYK    // k

	// Text objects and state.
	OpBeginText          // BT
	OpEndText            // ET
	OpSetFont            // Tf
	OpSetCharSpacing     // Tc
	OpSetWordSpacing     // Tw
	OpSetHorizScale      // Tz
	OpSetLeading         // TL
	OpSetRise            // Ts
	OpMoveText           // Td
	OpMoveTextSetLeading // TD
	OpSetTextMatrix      // Tm
	OpNextLine           // T*

	// Text showing.
	OpShowText               // Tj
	OpShowTextArray          // TJ
	OpNextLineShow           // '
	OpSetSpacingNextLineShow // "

	// Path construction.
	OpMoveTo    // m
	OpLineTo    // l
	OpCurveTo   // c
	OpCurveToV  // v
	OpCurveToY  // y
	OpClosePath // h
	OpRectangle // re

	// Path painting.
	OpStroke                  // S
	OpCloseStroke             // s
	OpFill                    // f, F
	OpFillEvenOdd             // f*
	OpFillStroke              // B
	OpFillStrokeEvenOdd       // B*
	OpCloseFillStroke         // b
	OpCloseFillStrokeEvenOdd  // b*
	OpEndPath                 // n

	// External objects.
	OpXObject // Do on an image XObject
)

var opKinds = map[string]OpKind{
	"q": OpSaveState, "Q": OpRestoreState, "cm": OpConcatMatrix, "w": OpSetLineWidth,
	"G": OpSetStrokeGray, "g": OpSetFillGray, "RG": OpSetStrokeRGB, "rg": OpSetFillRGB,
	"K": OpSetStrokeCMYK, "k": OpSetFillCMYK,
	"BT": OpBeginText, "ET": OpEndText, "Tf": OpSetFont,
	"Tc": OpSetCharSpacing, "Tw": OpSetWordSpacing, "Tz": OpSetHorizScale,
	"TL": OpSetLeading, "Ts": OpSetRise,
	"Td": OpMoveText, "TD": OpMoveTextSetLeading, "Tm": OpSetTextMatrix, "T*": OpNextLine,
	"Tj": OpShowText, "TJ": OpShowTextArray, "'": OpNextLineShow, "\"": OpSetSpacingNextLineShow,
	"m": OpMoveTo, "l": OpLineTo, "c": OpCurveTo, "v": OpCurveToV, "y": OpCurveToY,
	"h": OpClosePath, "re": OpRectangle,
	"S": OpStroke, "s": OpCloseStroke, "f": OpFill, "F": OpFill, "f*": OpFillEvenOdd,
	"B": OpFillStroke, "B*": OpFillStrokeEvenOdd, "b": OpCloseFillStroke, "b*": OpCloseFillStrokeEvenOdd,
	"n": OpEndPath,
	"Do": OpXObject,
}

// KindOf resolves an operator keyword to its kind.
func KindOf(operator string) OpKind {
	if k, ok := opKinds[operator]; ok {
		return k
	}
	return OpGeneric
}

// IsShowText reports whether the kind draws text.
func (k OpKind) IsShowText() bool {
	switch k {
	case OpShowText, OpShowTextArray, OpNextLineShow, OpSetSpacingNextLineShow:
		return true
	}
	return false
}

// IsPathConstruction reports whether the kind builds path geometry.
func (k OpKind) IsPathConstruction() bool {
	switch k {
	case OpMoveTo, OpLineTo, OpCurveTo, OpCurveToV, OpCurveToY, OpClosePath, OpRectangle:
		return true
	}
	return false
}

// IsPathPainting reports whether the kind paints the current path.
// OpEndPath is excluded: it discards the path without painting, and a
// pending clip (W, preserved as Generic) depends on it staying put.
func (k OpKind) IsPathPainting() bool {
	switch k {
	case OpStroke, OpCloseStroke, OpFill, OpFillEvenOdd, OpFillStroke,
		OpFillStrokeEvenOdd, OpCloseFillStroke, OpCloseFillStrokeEvenOdd:
		return true
	}
	return false
}

// GlyphBox is one self-computed character position inside a text run.
type GlyphBox struct {
	Char    rune
	Box     coords.Rect // page space
	Offset  float64     // text-space x offset of the glyph start, relative to run origin
	Advance float64     // text-space advance consumed by the glyph
}

// TextSnapshot captures the text state in force when a show-text operation
// was emitted, so the builder can re-establish it if the operators that
// originally carried it are removed.
type TextSnapshot struct {
	FontName    string
	FontSize    float64
	Font        *document.Font
	Tm          coords.Matrix // text matrix at the start of the run
	Tlm         coords.Matrix // text line matrix at the start of the run
	CTM         coords.Matrix
	CharSpacing float64
	WordSpacing float64
	HorizScale  float64 // percent
	Rise        float64
	Raw         []byte // shown bytes, concatenated for TJ
	Glyphs      []GlyphBox
}

// EffectiveMatrix returns Tm × CTM, the text-space to page-space mapping.
func (s *TextSnapshot) EffectiveMatrix() coords.Matrix {
	return s.Tm.Multiply(s.CTM)
}

// Operation is one typed instruction with its computed page-space bounds.
type Operation struct {
	Kind     OpKind
	Operator string
	Operands []Operand

	// Raw, when set, holds the verbatim source span for constructs the
	// engine does not interpret (inline images); the builder emits it
	// untouched.
	Raw []byte

	BBox    coords.Rect
	HasBBox bool

	// Text is set on show-text operations.
	Text *TextSnapshot

	// Synthesized marks operations created by the glyph refiner; the
	// builder positions them with an explicit Tm from the snapshot.
	Synthesized bool

	// Unsupported marks spans the engine preserves but cannot redact
	// (inline images, form XObjects). Callers must be told these exist.
	Unsupported bool
}

// GraphicsState is a value snapshot: q pushes a copy onto an explicit
// stack, Q restores. Fixed-size color arrays keep the copy semantics of
// plain assignment.
type GraphicsState struct {
	CTM         coords.Matrix
	LineWidth   float64
	StrokeColor Color
	FillColor   Color
}

// Color holds up to 4 components (gray, RGB, or CMYK).
type Color struct {
	Components [4]float64
	N          int
}

// TextState tracks the running text parameters; reset at every BT.
type TextState struct {
	FontName    string
	FontSize    float64
	Font        *document.Font
	Tm          coords.Matrix
	Tlm         coords.Matrix
	CharSpacing float64
	WordSpacing float64
	HorizScale  float64 // percent, 100 default
	Leading     float64
	Rise        float64
}

func newTextState() TextState {
	return TextState{Tm: coords.Identity(), Tlm: coords.Identity(), HorizScale: 100}
}
