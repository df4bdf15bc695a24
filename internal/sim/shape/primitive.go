package shape

import (
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl64"

	"voxelsniper.dev/internal/sim/mathx"
)

// Cuboid is an immutable, fully set box.
type Cuboid struct {
	width, height, length int
	origin                mathx.Vec3i
}

func NewCuboid(width, height, length int, origin mathx.Vec3i) *Cuboid {
	checkDims(width, height, length)
	return &Cuboid{width: width, height: height, length: length, origin: origin}
}

func (c *Cuboid) Width() int          { return c.width }
func (c *Cuboid) Height() int         { return c.height }
func (c *Cuboid) Length() int         { return c.length }
func (c *Cuboid) Origin() mathx.Vec3i { return c.origin }
func (c *Cuboid) Mutable() bool       { return false }

func (c *Cuboid) Get(x, y, z int, relative bool) bool {
	x, y, z = Resolve(c, x, y, z, relative)
	mustInBounds(c, x, y, z)
	return true
}

// Ellipsoid is an immutable ellipsoid centred on its origin.
type Ellipsoid struct {
	width, height, length int
	origin                mathx.Vec3i
	radii                 mgl64.Vec3
}

// NewEllipsoid builds an ellipsoid with the given radii. The box spans
// 2*floor(r)+1 on each axis with the origin at the centre voxel.
func NewEllipsoid(rx, ry, rz float64) *Ellipsoid {
	ix, iy, iz := int(math.Floor(rx)), int(math.Floor(ry)), int(math.Floor(rz))
	return &Ellipsoid{
		width:  ix*2 + 1,
		height: iy*2 + 1,
		length: iz*2 + 1,
		origin: mathx.V(ix, iy, iz),
		radii:  mgl64.Vec3{rx + 0.5, ry + 0.5, rz + 0.5},
	}
}

func NewSphere(radius float64) *Ellipsoid { return NewEllipsoid(radius, radius, radius) }

func (e *Ellipsoid) Width() int          { return e.width }
func (e *Ellipsoid) Height() int         { return e.height }
func (e *Ellipsoid) Length() int         { return e.length }
func (e *Ellipsoid) Origin() mathx.Vec3i { return e.origin }
func (e *Ellipsoid) Mutable() bool       { return false }

func (e *Ellipsoid) Get(x, y, z int, relative bool) bool {
	x, y, z = Resolve(e, x, y, z, relative)
	mustInBounds(e, x, y, z)
	d := mgl64.Vec3{
		float64(x-e.origin.X) / e.radii.X(),
		float64(y-e.origin.Y) / e.radii.Y(),
		float64(z-e.origin.Z) / e.radii.Z(),
	}
	return d.Dot(d) <= 1
}

// Cylinder is an immutable vertical cylinder; the origin sits on the bottom
// layer, centred in x and z.
type Cylinder struct {
	width, height, length int
	origin                mathx.Vec3i
	radius                float64
}

func NewCylinder(radius float64, height int) *Cylinder {
	checkDims(1, height, 1)
	ir := int(math.Floor(radius))
	return &Cylinder{
		width:  ir*2 + 1,
		height: height,
		length: ir*2 + 1,
		origin: mathx.V(ir, 0, ir),
		radius: radius + 0.5,
	}
}

func (c *Cylinder) Width() int          { return c.width }
func (c *Cylinder) Height() int         { return c.height }
func (c *Cylinder) Length() int         { return c.length }
func (c *Cylinder) Origin() mathx.Vec3i { return c.origin }
func (c *Cylinder) Mutable() bool       { return false }

func (c *Cylinder) Get(x, y, z int, relative bool) bool {
	x, y, z = Resolve(c, x, y, z, relative)
	mustInBounds(c, x, y, z)
	d := mgl64.Vec2{float64(x - c.origin.X), float64(z - c.origin.Z)}
	return d.Len() <= c.radius
}

// Primitive builds a named primitive of the given size. Size is a radius:
// "voxel" of size 1 is a 3x3x3 cube with origin (1,1,1).
func Primitive(kind string, size float64) (Shape, bool) {
	if size < 0 || math.IsNaN(size) || math.IsInf(size, 0) {
		return nil, false
	}
	r := int(math.Floor(size))
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "voxel", "cube", "cuboid":
		return NewCuboid(r*2+1, r*2+1, r*2+1, mathx.V(r, r, r)), true
	case "ball", "sphere":
		return NewSphere(size), true
	case "disc", "disk", "cylinder":
		return NewCylinder(size, 1), true
	case "point", "single":
		return NewCuboid(1, 1, 1, mathx.V(0, 0, 0)), true
	}
	return nil, false
}

// DefaultElement is the structuring element used when a requested kernel
// is unknown.
func DefaultElement() Shape {
	return NewCuboid(3, 3, 3, mathx.V(1, 1, 1))
}
