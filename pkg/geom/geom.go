package geom

import (
	"math"
)

// Package geom holds the coordinate math shared by the canvas embedder and
// the episode simulator. All coordinates are normalized to a 1x1 canvas.
//
// Two coordinate conventions are in play:
//   - Source space: top-left origin, Y increases downward (pose detector output)
//   - Canvas space: bottom-left origin, Y increases upward (what we record and train on)
// FlipY converts between the two.

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

func (r Rect) X2() float64 {
	return r.X + r.W
}

func (r Rect) Y2() float64 {
	return r.Y + r.H
}

func (r Rect) Center() Point {
	return Point{
		X: r.X + r.W/2,
		Y: r.Y + r.H/2,
	}
}

// Contains is true if p lies inside the rectangle (borders inclusive)
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X2() && p.Y >= r.Y && p.Y <= r.Y2()
}

// FlipY converts a Y coordinate between top-left/Y-down and bottom-left/Y-up conventions
func FlipY(y float64) float64 {
	return 1.0 - y
}

func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func Clamp01(v float64) float64 {
	return Clamp(v, 0, 1)
}

// Round6 rounds to 6 decimal digits, so that values survive a JSON round
// trip byte-identically.
func Round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

// minCropDimension guards the divisions in relative-position math.
// Crops smaller than this are degenerate and treated as zoom 1.
const minCropDimension = 0.01

// HeightToZoom returns the zoom level implied by a crop height (zoom = 1/h).
// Degenerate heights map to zoom 1.
func HeightToZoom(h float64) float64 {
	if h < minCropDimension {
		return 1.0
	}
	return 1.0 / h
}

func ZoomToHeight(zoom float64) float64 {
	if zoom < 1.0 {
		zoom = 1.0
	}
	return 1.0 / zoom
}

// SizeForZoom derives the crop size for a zoom level at a fixed aspect ratio.
// If the implied width exceeds the canvas, the crop is re-derived from w=1,
// which lowers the effective zoom. Returns (w, h, effective zoom).
func SizeForZoom(zoom, aspectRatio float64) (w, h, effectiveZoom float64) {
	h = ZoomToHeight(zoom)
	w = h * aspectRatio
	if w > 1.0 {
		w = 1.0
		h = w / aspectRatio
	}
	return w, h, HeightToZoom(h)
}

// RelativeTo returns p's position within r, normalized to [0,1] on each axis.
// Degenerate rectangles short-circuit to 0 rather than dividing.
func (r Rect) RelativeTo(p Point) Point {
	rel := Point{}
	if r.W >= minCropDimension {
		rel.X = (p.X - r.X) / r.W
	}
	if r.H >= minCropDimension {
		rel.Y = (p.Y - r.Y) / r.H
	}
	return rel
}
