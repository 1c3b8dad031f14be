package box

import (
	"fmt"
	"math"
	"strconv"
)

// ID identifies a box within the collection that owns it
type ID uint64

// Point is a location in display space
type Point struct {
	X, Y float64
}

// Rect is an axis-aligned rectangle in display space (origin top-left, Y down)
type Rect struct {
	X, Y, Width, Height float64
}

// NewRect builds a rectangle from its corners
func NewRect(minX, minY, maxX, maxY float64) Rect {
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

func (r Rect) MinX() float64 { return r.X }
func (r Rect) MinY() float64 { return r.Y }
func (r Rect) MaxX() float64 { return r.X + r.Width }
func (r Rect) MaxY() float64 { return r.Y + r.Height }

// IsEmpty reports whether the rectangle has no area
func (r Rect) IsEmpty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Contains reports whether p lies inside r, edges included
func (r Rect) Contains(p Point) bool {
	if r.Width < 0 || r.Height < 0 {
		return false
	}
	return p.X >= r.MinX() && p.X <= r.MaxX() && p.Y >= r.MinY() && p.Y <= r.MaxY()
}

// ContainsRect reports whether o lies entirely inside r
func (r Rect) ContainsRect(o Rect) bool {
	if r.Width < 0 || r.Height < 0 || o.Width < 0 || o.Height < 0 {
		return false
	}
	return o.MinX() >= r.MinX() && o.MinY() >= r.MinY() && o.MaxX() <= r.MaxX() && o.MaxY() <= r.MaxY()
}

// Union returns the smallest rectangle covering both r and o
func (r Rect) Union(o Rect) Rect {
	return NewRect(
		math.Min(r.MinX(), o.MinX()),
		math.Min(r.MinY(), o.MinY()),
		math.Max(r.MaxX(), o.MaxX()),
		math.Max(r.MaxY(), o.MaxY()),
	)
}

// Box is one annotated character (or character run) on a page.
//
// Character may be empty, a single rune, a multi-rune grapheme or the tab
// used as an end-of-line marker. Selected is transient editor state and is
// never written to a box file.
type Box struct {
	id        ID
	rect      Rect
	Character string
	Page      int
	Selected  bool
}

// New creates a box that is not yet part of any collection
func New(chars string, rect Rect, page int) Box {
	return Box{Character: chars, rect: rect, Page: page}
}

// ID returns the key assigned by the owning collection, zero if unowned
func (b Box) ID() ID {
	return b.id
}

// Rect returns the bounding rectangle in display space
func (b Box) Rect() Rect {
	return b.rect
}

// SetRect replaces the bounding rectangle
func (b *Box) SetRect(r Rect) {
	b.rect = r
}

// X, Y, Width and Height are the integer projections of the rectangle shown
// in editors. They truncate, like the coordinate readouts they feed.
func (b Box) X() int      { return int(b.rect.X) }
func (b Box) Y() int      { return int(b.rect.Y) }
func (b Box) Width() int  { return int(b.rect.Width) }
func (b Box) Height() int { return int(b.rect.Height) }

// Contains reports whether p falls inside the box
func (b Box) Contains(p Point) bool {
	return b.rect.Contains(p)
}

func (b Box) String() string {
	return fmt.Sprintf("%s %s %s %s %s %d", b.Character,
		FormatCoord(b.rect.MinX()), FormatCoord(b.rect.MinY()),
		FormatCoord(b.rect.MaxX()), FormatCoord(b.rect.MaxY()), b.Page)
}

// FormatCoord rounds v to the nearest integer, halves away from zero, and
// renders it without decimals
func FormatCoord(v float64) string {
	return strconv.FormatFloat(math.Round(v), 'f', 0, 64)
}
