package geometry

import "scandesk/internal/domain"

// SyntheticInset is the fraction trimmed from each side when no boundary
// was detected.
const SyntheticInset = 0.1

// SyntheticQuad returns the fallback rectangle inset 10% from every edge of
// a w×h image, ordered TL, TR, BR, BL.
func SyntheticQuad(size Size) domain.Quadrilateral {
	left := size.Width * SyntheticInset
	right := size.Width * (1 - SyntheticInset)
	top := size.Height * SyntheticInset
	bottom := size.Height * (1 - SyntheticInset)

	return domain.Quadrilateral{
		{X: left, Y: top},
		{X: right, Y: top},
		{X: right, Y: bottom},
		{X: left, Y: bottom},
	}
}

// Clamp limits p to [0, size.Width] × [0, size.Height].
func Clamp(p domain.Point, size Size) domain.Point {
	return domain.Point{
		X: clamp(p.X, 0, size.Width),
		Y: clamp(p.Y, 0, size.Height),
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
