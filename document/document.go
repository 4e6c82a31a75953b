// Package document holds the trimmed page model the redaction engine
// consumes from the surrounding document layer: raw content-stream bytes,
// the declared font resources, and the page dimensions. Parsing the
// document container itself is the caller's concern.
package document

import "github.com/wudi/redactkit/coords"

// Font describes a font resource declared by a page. Widths maps character
// codes to glyph widths in 1/1000 em units; codes missing from the map fall
// back to an approximate default. FontFile optionally carries the embedded
// font program for shaped metrics.
type Font struct {
	BaseFont string
	Subtype  string // Type1 (default), TrueType, Type0, Type3
	Widths   map[int]int
	FontFile []byte
}

// Resources holds the per-page resources the engine consults.
type Resources struct {
	Fonts    map[string]*Font
	XObjects map[string]XObject
}

// XObject identifies an external object a Do operator can reference.
type XObject struct {
	Subtype string // "Image" or "Form"
	Width   int
	Height  int
}

// Page is the engine's view of a single page.
type Page struct {
	Index     int
	Width     float64
	Height    float64
	Resources *Resources
	Content   []byte
}

// MediaBox returns the page extent as a rect at the origin.
func (p *Page) MediaBox() coords.Rect {
	return coords.Rect{URX: p.Width, URY: p.Height}
}

// SetContent replaces the page's content-stream bytes. This is the mutator
// the redactor's Apply step uses to commit a rebuilt stream.
func (p *Page) SetContent(data []byte) {
	p.Content = data
}

// Font resolves a font resource by name, or nil.
func (p *Page) Font(name string) *Font {
	if p.Resources == nil || p.Resources.Fonts == nil {
		return nil
	}
	return p.Resources.Fonts[name]
}
