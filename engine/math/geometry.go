package math

import "github.com/chewxy/math32"

// CalculateBounds computes the bounding box and sphere enclosing positions.
// The box extents are half-widths around the box center, and the sphere
// shares that center with the smallest radius reaching every position.
// An empty position list yields zero bounds.
func CalculateBounds(positions []Vec3) Bounds {
	if len(positions) == 0 {
		return Bounds{}
	}

	minP := Vec3{K_INFINITY, K_INFINITY, K_INFINITY}
	maxP := Vec3{-K_INFINITY, -K_INFINITY, -K_INFINITY}
	for _, p := range positions {
		minP = minP.Min(p)
		maxP = maxP.Max(p)
	}

	extents := maxP.Sub(minP).MulScalar(0.5)
	origin := extents.Add(minP)

	r2 := float32(0)
	for _, p := range positions {
		r2 = math32.Max(r2, p.Sub(origin).LengthSquared())
	}

	return Bounds{
		Origin:  origin,
		Radius:  math32.Sqrt(r2),
		Extents: extents,
	}
}

// OctahedralEncode maps a unit normal onto the [-1, 1] square.
func OctahedralEncode(n Vec3) Vec2 {
	l1 := math32.Abs(n.X) + math32.Abs(n.Y) + math32.Abs(n.Z)
	if l1 == 0 {
		return Vec2{}
	}
	p := Vec2{n.X / l1, n.Y / l1}
	if n.Z < 0 {
		p = Vec2{
			(1 - math32.Abs(p.Y)) * signNotZero(p.X),
			(1 - math32.Abs(p.X)) * signNotZero(p.Y),
		}
	}
	return p
}

// OctahedralDecode is the inverse of OctahedralEncode.
func OctahedralDecode(p Vec2) Vec3 {
	n := Vec3{p.X, p.Y, 1 - math32.Abs(p.X) - math32.Abs(p.Y)}
	if n.Z < 0 {
		n.X, n.Y = (1-math32.Abs(p.Y))*signNotZero(p.X), (1-math32.Abs(p.X))*signNotZero(p.Y)
	}
	return n.Normalized()
}

func signNotZero(v float32) float32 {
	if v < 0 {
		return -1
	}
	return 1
}
