// Package coords implements the 2D affine geometry used throughout the
// redaction engine: PDF-style 6-element matrices, points, and axis-aligned
// rectangles in page space (origin bottom-left, unit = point).
package coords

import (
	"errors"
	"math"
)

// Matrix is a PDF transformation matrix [a b c d e f].
type Matrix [6]float64

// Identity returns the identity matrix.
func Identity() Matrix { return Matrix{1, 0, 0, 1, 0, 0} }

// Translate returns a translation matrix.
func Translate(tx, ty float64) Matrix { return Matrix{1, 0, 0, 1, tx, ty} }

// Scale returns a scaling matrix.
func Scale(sx, sy float64) Matrix { return Matrix{sx, 0, 0, sy, 0, 0} }

// Rotate returns a rotation matrix for the given angle in radians.
func Rotate(angle float64) Matrix {
	c := math.Cos(angle)
	s := math.Sin(angle)
	return Matrix{c, s, -s, c, 0, 0}
}

// Multiply returns m × o (m applied first, then o).
func (m Matrix) Multiply(o Matrix) Matrix {
	return Matrix{
		m[0]*o[0] + m[1]*o[2],
		m[0]*o[1] + m[1]*o[3],
		m[2]*o[0] + m[3]*o[2],
		m[2]*o[1] + m[3]*o[3],
		m[4]*o[0] + m[5]*o[2] + o[4],
		m[4]*o[1] + m[5]*o[3] + o[5],
	}
}

// Transform maps p through m.
func (m Matrix) Transform(p Point) Point {
	return Point{
		X: m[0]*p.X + m[2]*p.Y + m[4],
		Y: m[1]*p.X + m[3]*p.Y + m[5],
	}
}

// Inverse returns the inverse of m, or an error if m is singular.
func (m Matrix) Inverse() (Matrix, error) {
	det := m[0]*m[3] - m[1]*m[2]
	if math.Abs(det) < 1e-10 {
		return Matrix{}, errors.New("matrix singular")
	}
	return Matrix{
		m[3] / det,
		-m[1] / det,
		-m[2] / det,
		m[0] / det,
		(m[2]*m[5] - m[3]*m[4]) / det,
		(m[1]*m[4] - m[0]*m[5]) / det,
	}, nil
}

// IsAxisAligned reports whether m has no rotation or skew component.
func (m Matrix) IsAxisAligned() bool { return m[1] == 0 && m[2] == 0 }

// Point is a location in page space.
type Point struct {
	X, Y float64
}

// Rect is an axis-aligned rectangle in page space, bottom-left origin.
type Rect struct {
	LLX, LLY, URX, URY float64
}

// XYWH builds a rect from its lower-left corner and extent.
func XYWH(x, y, w, h float64) Rect {
	return Rect{LLX: x, LLY: y, URX: x + w, URY: y + h}.Normalized()
}

// Normalized returns r with its corners reordered so LLX<=URX and LLY<=URY.
func (r Rect) Normalized() Rect {
	if r.LLX > r.URX {
		r.LLX, r.URX = r.URX, r.LLX
	}
	if r.LLY > r.URY {
		r.LLY, r.URY = r.URY, r.LLY
	}
	return r
}

// Width returns the horizontal extent of r.
func (r Rect) Width() float64 { return r.URX - r.LLX }

// Height returns the vertical extent of r.
func (r Rect) Height() float64 { return r.URY - r.LLY }

// IsEmpty reports whether r has zero area.
func (r Rect) IsEmpty() bool { return r.URX <= r.LLX || r.URY <= r.LLY }

// Center returns the midpoint of r.
func (r Rect) Center() Point {
	return Point{X: (r.LLX + r.URX) / 2, Y: (r.LLY + r.URY) / 2}
}

// ContainsPoint reports whether p lies inside r (edges inclusive).
func (r Rect) ContainsPoint(p Point) bool {
	return p.X >= r.LLX && p.X <= r.URX && p.Y >= r.LLY && p.Y <= r.URY
}

// ContainsRect reports whether o lies entirely inside r.
func (r Rect) ContainsRect(o Rect) bool {
	return o.LLX >= r.LLX && o.URX <= r.URX && o.LLY >= r.LLY && o.URY <= r.URY
}

// Intersects reports whether r and o share any area.
func (r Rect) Intersects(o Rect) bool {
	return r.LLX < o.URX && o.LLX < r.URX && r.LLY < o.URY && o.LLY < r.URY
}

// Union returns the smallest rect covering both r and o.
func (r Rect) Union(o Rect) Rect {
	return Rect{
		LLX: math.Min(r.LLX, o.LLX),
		LLY: math.Min(r.LLY, o.LLY),
		URX: math.Max(r.URX, o.URX),
		URY: math.Max(r.URY, o.URY),
	}
}

// BoundsOf returns the bounding box of the given points.
func BoundsOf(points ...Point) Rect {
	r := Rect{LLX: math.MaxFloat64, LLY: math.MaxFloat64, URX: -math.MaxFloat64, URY: -math.MaxFloat64}
	for _, p := range points {
		if p.X < r.LLX {
			r.LLX = p.X
		}
		if p.Y < r.LLY {
			r.LLY = p.Y
		}
		if p.X > r.URX {
			r.URX = p.X
		}
		if p.Y > r.URY {
			r.URY = p.Y
		}
	}
	return r
}

// TransformRect maps the four corners of r through m and returns their
// bounding box. The result is axis-aligned even when m rotates.
func TransformRect(m Matrix, r Rect) Rect {
	return BoundsOf(
		m.Transform(Point{X: r.LLX, Y: r.LLY}),
		m.Transform(Point{X: r.URX, Y: r.LLY}),
		m.Transform(Point{X: r.LLX, Y: r.URY}),
		m.Transform(Point{X: r.URX, Y: r.URY}),
	)
}
