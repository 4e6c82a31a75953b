package coords

// The engine works exclusively in page space (bottom-left origin, y up).
// UI layers typically work in a top-left pixel frame (y down). Conversion
// between the two frames happens only at the system boundary, via the two
// helpers below; nothing inside the engine calls them.

// ScreenToPage converts a rect from a top-left frame of the given page
// height into page space.
func ScreenToPage(pageHeight float64, r Rect) Rect {
	r = r.Normalized()
	h := r.Height()
	y := pageHeight - r.LLY - h
	return Rect{LLX: r.LLX, LLY: y, URX: r.URX, URY: y + h}
}

// PageToScreen converts a page-space rect into a top-left frame of the
// given page height. It is its own inverse with ScreenToPage.
func PageToScreen(pageHeight float64, r Rect) Rect {
	return ScreenToPage(pageHeight, r)
}
