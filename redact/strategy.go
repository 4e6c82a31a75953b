// Package redact decides which operations of a parsed content stream a
// set of target regions covers, optionally refines partially covered text
// runs at character granularity, and coordinates the single-pass
// parse → filter → rebuild flow per page.
package redact

import (
	"fmt"

	"github.com/wudi/redactkit/coords"
)

// Strategy governs how an operation's bounding box is tested against a
// region.
type Strategy int

const (
	// CenterPoint removes an operation when its box center lies inside
	// the region.
	CenterPoint Strategy = iota
	// AnyOverlap removes an operation when box and region intersect at
	// all.
	AnyOverlap
	// FullyContained removes an operation only when its box is entirely
	// inside the region.
	FullyContained
)

func (s Strategy) String() string {
	switch s {
	case CenterPoint:
		return "center-point"
	case AnyOverlap:
		return "any-overlap"
	case FullyContained:
		return "fully-contained"
	}
	return fmt.Sprintf("Strategy(%d)", int(s))
}

// ParseStrategy resolves a strategy name as used in job files.
func ParseStrategy(name string) (Strategy, error) {
	switch name {
	case "center-point":
		return CenterPoint, nil
	case "any-overlap", "":
		return AnyOverlap, nil
	case "fully-contained":
		return FullyContained, nil
	}
	return 0, fmt.Errorf("unknown strategy %q", name)
}

// Covers reports whether region covers box under the strategy.
func (s Strategy) Covers(box, region coords.Rect) bool {
	switch s {
	case CenterPoint:
		return region.ContainsPoint(box.Center())
	case AnyOverlap:
		return region.Intersects(box)
	case FullyContained:
		return region.ContainsRect(box)
	}
	return false
}
