package redact

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/wudi/redactkit/contentstream"
	"github.com/wudi/redactkit/coords"
	"github.com/wudi/redactkit/observability"
)

// DefaultRasterDPI is the raster fallback resolution.
const DefaultRasterDPI = 150.0

// rasterSpan renders a kept span into a PNG and substitutes an image
// draw placed over the span's page-space box. The caller registers the
// returned image as an XObject resource under the generated name.
func (r *Refiner) rasterSpan(snap *contentstream.TextSnapshot, box coords.Rect) ([]contentstream.Operation, bool) {
	dpi := r.RasterDPI
	if dpi <= 0 {
		dpi = DefaultRasterDPI
	}
	w := int(box.Width() * dpi / 72)
	h := int(box.Height() * dpi / 72)
	if w <= 0 || h <= 0 || w > 1<<14 || h > 1<<14 {
		return nil, false
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	drawer := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.Black),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(0, h-h/4),
	}
	drawer.DrawString(string(snap.Raw))

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		r.Logger.Error("raster fallback encode failed", observability.Error("err", err))
		return nil, false
	}

	if r.Images == nil {
		r.Images = make(map[string][]byte)
	}
	name := fmt.Sprintf("RxImg%d", r.nextImage)
	r.nextImage++
	r.Images[name] = buf.Bytes()

	nums := func(vals ...float64) []contentstream.Operand {
		ops := make([]contentstream.Operand, len(vals))
		for i, v := range vals {
			ops[i] = contentstream.NumberOperand{Value: v}
		}
		return ops
	}
	return []contentstream.Operation{
		{Kind: contentstream.OpSaveState, Operator: "q", Operands: []contentstream.Operand{}},
		{Kind: contentstream.OpConcatMatrix, Operator: "cm",
			Operands: nums(box.Width(), 0, 0, box.Height(), box.LLX, box.LLY)},
		{Kind: contentstream.OpXObject, Operator: "Do",
			Operands: []contentstream.Operand{contentstream.NameOperand{Value: name}},
			BBox:     box, HasBBox: true},
		{Kind: contentstream.OpRestoreState, Operator: "Q", Operands: []contentstream.Operand{}},
	}, true
}
