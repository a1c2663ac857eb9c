// Package geometry converts between native image pixels and on-screen
// rendered pixels.
package geometry

import "scandesk/internal/domain"

// Size is a width/height pair in pixels.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Valid reports whether both dimensions are positive.
func (s Size) Valid() bool {
	return s.Width > 0 && s.Height > 0
}

// SizeOf builds a Size from integer dimensions.
func SizeOf(width, height int) Size {
	return Size{Width: float64(width), Height: float64(height)}
}

// Mapper converts points between native and display space. It is a value
// and must be rebuilt on every layout change.
type Mapper struct {
	native     Size
	scale      domain.DisplayScale
	degenerate bool
}

// NewMapper computes the display scale for an image rendered at rendered
// whose native size is native. Unknown or zero dimensions yield an identity
// mapping flagged as degenerate.
func NewMapper(rendered, native Size) Mapper {
	if !native.Valid() || !rendered.Valid() {
		return Mapper{native: native, scale: domain.IdentityScale, degenerate: true}
	}
	return Mapper{
		native: native,
		scale: domain.DisplayScale{
			ScaleX: rendered.Width / native.Width,
			ScaleY: rendered.Height / native.Height,
		},
	}
}

// Scale returns the current display scale.
func (m Mapper) Scale() domain.DisplayScale {
	return m.scale
}

// Native returns the native image size the mapper was built for.
func (m Mapper) Native() Size {
	return m.native
}

// Degenerate reports whether the mapping fell back to identity.
func (m Mapper) Degenerate() bool {
	return m.degenerate
}

// ToDisplay maps a native point into display space.
func (m Mapper) ToDisplay(p domain.Point) domain.Point {
	return domain.Point{X: p.X * m.scale.ScaleX, Y: p.Y * m.scale.ScaleY}
}

// ToNative maps a display point (e.g. a pointer position) into native space.
func (m Mapper) ToNative(p domain.Point) domain.Point {
	return domain.Point{X: p.X / m.scale.ScaleX, Y: p.Y / m.scale.ScaleY}
}

// QuadToDisplay maps every corner of q into display space.
func (m Mapper) QuadToDisplay(q domain.Quadrilateral) domain.Quadrilateral {
	var out domain.Quadrilateral
	for i, p := range q {
		out[i] = m.ToDisplay(p)
	}
	return out
}
