package shape

import (
	"fmt"
	"math/bits"

	"voxelsniper.dev/internal/sim/mathx"
)

// Mask is a dense, mutable occupancy bitset.
type Mask struct {
	width, height, length int
	origin                mathx.Vec3i
	bits                  []uint64
}

func NewMask(width, height, length int, origin mathx.Vec3i) *Mask {
	checkDims(width, height, length)
	n := width * height * length
	return &Mask{
		width:  width,
		height: height,
		length: length,
		origin: origin,
		bits:   make([]uint64, (n+63)/64),
	}
}

// NewMaskFrom copies any shape into a new mutable mask.
func NewMaskFrom(s Shape) *Mask {
	if m, ok := s.(*Mask); ok {
		return m.Clone()
	}
	m := NewMask(s.Width(), s.Height(), s.Length(), s.Origin())
	for y := 0; y < s.Height(); y++ {
		for z := 0; z < s.Length(); z++ {
			for x := 0; x < s.Width(); x++ {
				if s.Get(x, y, z, false) {
					m.setBit(m.index(x, y, z))
				}
			}
		}
	}
	return m
}

func (m *Mask) Width() int          { return m.width }
func (m *Mask) Height() int         { return m.height }
func (m *Mask) Length() int         { return m.length }
func (m *Mask) Origin() mathx.Vec3i { return m.origin }
func (m *Mask) Mutable() bool       { return true }

func (m *Mask) SetOrigin(o mathx.Vec3i) { m.origin = o }

func (m *Mask) index(x, y, z int) int { return Index(m.width, m.length, x, y, z) }

func (m *Mask) setBit(i int)       { m.bits[i>>6] |= 1 << uint(i&63) }
func (m *Mask) clearBit(i int)     { m.bits[i>>6] &^= 1 << uint(i&63) }
func (m *Mask) testBit(i int) bool { return m.bits[i>>6]&(1<<uint(i&63)) != 0 }

func (m *Mask) Get(x, y, z int, relative bool) bool {
	x, y, z = Resolve(m, x, y, z, relative)
	mustInBounds(m, x, y, z)
	return m.testBit(m.index(x, y, z))
}

func (m *Mask) Set(x, y, z int, relative bool) {
	x, y, z = Resolve(m, x, y, z, relative)
	mustInBounds(m, x, y, z)
	m.setBit(m.index(x, y, z))
}

func (m *Mask) Unset(x, y, z int, relative bool) {
	x, y, z = Resolve(m, x, y, z, relative)
	mustInBounds(m, x, y, z)
	m.clearBit(m.index(x, y, z))
}

// GetIndex reads the bit at a linear index (see Index).
func (m *Mask) GetIndex(i int) bool { return m.testBit(i) }

// Fill sets every voxel in the box.
func (m *Mask) Fill() {
	n := m.width * m.height * m.length
	for i := range m.bits {
		m.bits[i] = ^uint64(0)
	}
	if r := n & 63; r != 0 {
		m.bits[len(m.bits)-1] = (1 << uint(r)) - 1
	}
}

func (m *Mask) Clear() {
	for i := range m.bits {
		m.bits[i] = 0
	}
}

func (m *Mask) Count() int {
	n := 0
	for _, w := range m.bits {
		n += bits.OnesCount64(w)
	}
	return n
}

func (m *Mask) Clone() *Mask {
	c := *m
	c.bits = append([]uint64(nil), m.bits...)
	return &c
}

// Packed returns the occupancy as little-endian packed bytes, one bit per
// voxel in index order.
func (m *Mask) Packed() []byte {
	n := m.width * m.height * m.length
	out := make([]byte, (n+7)/8)
	for i := range out {
		out[i] = byte(m.bits[i>>3] >> (uint(i&7) * 8))
	}
	return out
}

// MaskFromPacked is the inverse of Packed.
func MaskFromPacked(width, height, length int, origin mathx.Vec3i, packed []byte) (*Mask, error) {
	if width <= 0 || height <= 0 || length <= 0 {
		return nil, fmt.Errorf("shape: invalid dimensions %dx%dx%d", width, height, length)
	}
	m := NewMask(width, height, length, origin)
	n := width * height * length
	if len(packed) != (n+7)/8 {
		return nil, fmt.Errorf("shape: packed occupancy length %d, want %d", len(packed), (n+7)/8)
	}
	for i, b := range packed {
		m.bits[i>>3] |= uint64(b) << (uint(i&7) * 8)
	}
	if r := n & 63; r != 0 {
		m.bits[len(m.bits)-1] &= (1 << uint(r)) - 1
	}
	return m, nil
}
