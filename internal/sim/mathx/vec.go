package mathx

import "fmt"

// Vec3i is an integer block position or offset.
type Vec3i struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

func V(x, y, z int) Vec3i { return Vec3i{X: x, Y: y, Z: z} }

func (v Vec3i) Add(o Vec3i) Vec3i { return Vec3i{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z} }
func (v Vec3i) Sub(o Vec3i) Vec3i { return Vec3i{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z} }
func (v Vec3i) IsZero() bool      { return v.X == 0 && v.Y == 0 && v.Z == 0 }
func (v Vec3i) ToArray() [3]int   { return [3]int{v.X, v.Y, v.Z} }

func FromArray(a [3]int) Vec3i { return Vec3i{X: a[0], Y: a[1], Z: a[2]} }

func (v Vec3i) String() string { return fmt.Sprintf("(%d, %d, %d)", v.X, v.Y, v.Z) }

func Manhattan(a, b Vec3i) int {
	return AbsInt(a.X-b.X) + AbsInt(a.Y-b.Y) + AbsInt(a.Z-b.Z)
}
