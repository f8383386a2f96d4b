// Package geom holds the small value types shared by the window, input and
// drag-and-drop layers.
package geom

import "math"

// Size is a width/height pair. Logical sizes are in device-independent
// units; physical sizes are in pixels.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Empty reports whether the size has zero (or negative) area.
func (s Size) Empty() bool {
	return s.Width <= 0 || s.Height <= 0
}

// Scale converts a logical size into physical pixels, rounding up so the
// framebuffer always covers the logical area.
func (s Size) Scale(factor float64) Size {
	if factor <= 0 {
		factor = 1
	}
	return Size{
		Width:  int(math.Ceil(float64(s.Width) * factor)),
		Height: int(math.Ceil(float64(s.Height) * factor)),
	}
}

// Point is a position in window-local logical coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect describes a rectangular region.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Contains reports whether p lies inside r.
func (r Rect) Contains(p Point) bool {
	return p.X >= float64(r.X) && p.X < float64(r.X+r.Width) &&
		p.Y >= float64(r.Y) && p.Y < float64(r.Y+r.Height)
}
