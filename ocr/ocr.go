//go:build cgo

// Package ocr provides a Tesseract-backed textmap.Source for documents
// whose authoritative text extractor is OCR (scanned pages). It wraps
// the Tesseract engine via gosseract, which requires a system Tesseract
// installation.
package ocr

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"

	"github.com/wudi/redactkit/coords"
	"github.com/wudi/redactkit/textmap"
)

// Render supplies a raster of a page for recognition: encoded image
// bytes (PNG/TIFF/JPEG), the page height in points, and the scale in
// pixels per point.
type Render func(pageIndex int) (img []byte, pageHeight, scale float64, err error)

// Source recognizes letter positions from page rasters. Close releases
// the Tesseract client.
type Source struct {
	client *gosseract.Client
	render Render
}

// NewSource creates an OCR-backed letter source.
func NewSource(render Render) *Source {
	return &Source{client: gosseract.NewClient(), render: render}
}

// Close releases OCR resources.
func (s *Source) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// Letters implements textmap.Source. Word-level boxes from Tesseract are
// split evenly across their runes; the refiner's content-primary
// correlation absorbs the resulting horizontal imprecision.
func (s *Source) Letters(ctx context.Context, pageIndex int) ([]textmap.Letter, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, pageHeight, scale, err := s.render(pageIndex)
	if err != nil {
		return nil, fmt.Errorf("render page %d: %w", pageIndex, err)
	}
	if scale <= 0 {
		return nil, fmt.Errorf("invalid raster scale %v", scale)
	}
	if err := s.client.SetImageFromBytes(img); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}
	boxes, err := s.client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("bounding boxes: %w", err)
	}

	var letters []textmap.Letter
	for _, b := range boxes {
		runes := []rune(b.Word)
		if len(runes) == 0 {
			continue
		}
		// Pixel frame is top-left; convert to page space at the boundary.
		word := coords.ScreenToPage(pageHeight, coords.Rect{
			LLX: float64(b.Box.Min.X) / scale,
			LLY: float64(b.Box.Min.Y) / scale,
			URX: float64(b.Box.Max.X) / scale,
			URY: float64(b.Box.Max.Y) / scale,
		})
		step := word.Width() / float64(len(runes))
		for i, ch := range runes {
			letters = append(letters, textmap.Letter{
				Char: ch,
				Box: coords.Rect{
					LLX: word.LLX + float64(i)*step,
					LLY: word.LLY,
					URX: word.LLX + float64(i+1)*step,
					URY: word.URY,
				},
			})
		}
	}
	return letters, nil
}
