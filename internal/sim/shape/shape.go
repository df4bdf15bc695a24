// Package shape holds bounded 3D occupancy masks.
//
// A shape has a fixed box of width (x) × height (y) × length (z) and an
// origin inside that box. Every accessor takes a relative flag: relative
// coordinates are offset by the origin before they are checked against the
// box. Addressing a coordinate outside the box is a programming error and
// panics with *OutOfBoundsError.
package shape

import (
	"fmt"

	"voxelsniper.dev/internal/sim/mathx"
)

// Shape is the read-only view shared by primitives and masks.
type Shape interface {
	Width() int
	Height() int
	Length() int
	Origin() mathx.Vec3i
	Get(x, y, z int, relative bool) bool
	// Mutable reports whether the shape may be written through Set/Unset.
	// Primitives are immutable and must be copied with NewMaskFrom first.
	Mutable() bool
}

type OutOfBoundsError struct {
	X, Y, Z               int
	Width, Height, Length int
}

func (e *OutOfBoundsError) Error() string {
	return fmt.Sprintf("shape: position (%d, %d, %d) outside box %dx%dx%d", e.X, e.Y, e.Z, e.Width, e.Height, e.Length)
}

// Resolve converts a possibly relative coordinate to an absolute one.
func Resolve(s Shape, x, y, z int, relative bool) (int, int, int) {
	if relative {
		o := s.Origin()
		return x + o.X, y + o.Y, z + o.Z
	}
	return x, y, z
}

// InBounds reports whether the coordinate resolves inside the box.
func InBounds(s Shape, x, y, z int, relative bool) bool {
	x, y, z = Resolve(s, x, y, z, relative)
	return x >= 0 && x < s.Width() && y >= 0 && y < s.Height() && z >= 0 && z < s.Length()
}

// Index is the y-major linear index shared by masks and material planes.
func Index(width, length, x, y, z int) int {
	return y*(width*length) + z*width + x
}

func mustInBounds(s Shape, x, y, z int) {
	if x < 0 || x >= s.Width() || y < 0 || y >= s.Height() || z < 0 || z >= s.Length() {
		panic(&OutOfBoundsError{X: x, Y: y, Z: z, Width: s.Width(), Height: s.Height(), Length: s.Length()})
	}
}

func checkDims(w, h, l int) {
	if w <= 0 || h <= 0 || l <= 0 {
		panic(fmt.Sprintf("shape: invalid dimensions %dx%dx%d", w, h, l))
	}
}

// Count returns the number of set voxels of any shape.
func Count(s Shape) int {
	if m, ok := s.(*Mask); ok {
		return m.Count()
	}
	n := 0
	for y := 0; y < s.Height(); y++ {
		for z := 0; z < s.Length(); z++ {
			for x := 0; x < s.Width(); x++ {
				if s.Get(x, y, z, false) {
					n++
				}
			}
		}
	}
	return n
}
