// Package volume stores a material per voxel on top of a shape.
//
// Materials are interned in a per-volume Dictionary and the ids are kept in
// y-major byte planes. Volumes start with a single low plane and switch to a
// low+high pair the first time an id no longer fits in a byte.
package volume

import (
	"errors"
	"fmt"

	"voxelsniper.dev/internal/sim/material"
	"voxelsniper.dev/internal/sim/mathx"
	"voxelsniper.dev/internal/sim/shape"
)

var (
	ErrOutOfBounds    = errors.New("volume: position out of bounds")
	ErrDictionaryFull = errors.New("volume: material dictionary full")
	ErrCorrupt        = errors.New("volume: corrupt section")
)

const sentinel = 0xFF

type Volume struct {
	// shp is borrowed until the first occupancy change, then replaced by an
	// owned *shape.Mask.
	shp   shape.Shape
	owned bool

	dict  *Dictionary
	width PlaneWidth
	low   []byte
	high  []byte
}

// New creates a volume over s whose default material is def. Every set voxel
// of s starts as def.
func New(s shape.Shape, def material.Material) *Volume {
	n := s.Width() * s.Height() * s.Length()
	v := &Volume{
		shp:   s,
		dict:  NewDictionary(def),
		width: Narrow,
		low:   make([]byte, n),
	}
	v.fill(0)
	return v
}

func (v *Volume) Width() int                         { return v.shp.Width() }
func (v *Volume) Height() int                        { return v.shp.Height() }
func (v *Volume) Length() int                        { return v.shp.Length() }
func (v *Volume) Origin() mathx.Vec3i                { return v.shp.Origin() }
func (v *Volume) Shape() shape.Shape                 { return v.shp }
func (v *Volume) Dictionary() *Dictionary            { return v.dict }
func (v *Volume) PlaneWidth() PlaneWidth             { return v.width }
func (v *Volume) DefaultMaterial() material.Material { return v.dict.Default() }

// Count returns the number of set voxels.
func (v *Volume) Count() int { return shape.Count(v.shp) }

func (v *Volume) index(x, y, z int) int {
	return shape.Index(v.shp.Width(), v.shp.Length(), x, y, z)
}

func (v *Volume) resolve(x, y, z int, relative bool) (int, int, int, error) {
	if !shape.InBounds(v.shp, x, y, z, relative) {
		return 0, 0, 0, fmt.Errorf("%w: (%d, %d, %d) relative=%t", ErrOutOfBounds, x, y, z, relative)
	}
	x, y, z = shape.Resolve(v.shp, x, y, z, relative)
	return x, y, z, nil
}

func (v *Volume) readID(i int) (int, bool) {
	lo := v.low[i]
	if v.width == Narrow {
		if lo == sentinel {
			return 0, false
		}
		return int(lo), true
	}
	hi := v.high[i]
	if lo == sentinel && hi == sentinel {
		return 0, false
	}
	return int(hi)<<8 | int(lo), true
}

func (v *Volume) writeID(i, id int) {
	v.low[i] = byte(id)
	if v.width == Wide {
		v.high[i] = byte(id >> 8)
	}
}

func (v *Volume) writeSentinel(i int) {
	v.low[i] = sentinel
	if v.width == Wide {
		v.high[i] = sentinel
	}
}

// promote adds the high plane. Only the sentinel uses 0xFF in a narrow low
// plane, so the high byte mirrors it there and is zero elsewhere.
func (v *Volume) promote() {
	v.high = make([]byte, len(v.low))
	for i, lo := range v.low {
		if lo == sentinel {
			v.high[i] = sentinel
		}
	}
	v.width = Wide
}

func (v *Volume) register(m material.Material) (int, error) {
	id, err := v.dict.Register(m)
	if err != nil {
		return 0, err
	}
	if v.width == Narrow && id > narrowMaxID {
		v.promote()
	}
	return id, nil
}

func (v *Volume) ownMask() *shape.Mask {
	if !v.owned {
		v.shp = shape.NewMaskFrom(v.shp)
		v.owned = true
	}
	return v.shp.(*shape.Mask)
}

// Get returns the material at the voxel, or false when the voxel is unset.
func (v *Volume) Get(x, y, z int, relative bool) (material.Material, bool, error) {
	x, y, z, err := v.resolve(x, y, z, relative)
	if err != nil {
		return "", false, err
	}
	if !v.shp.Get(x, y, z, false) {
		return "", false, nil
	}
	i := v.index(x, y, z)
	id, ok := v.readID(i)
	if !ok {
		v.writeID(i, 0)
		return v.dict.Default(), true, nil
	}
	m, ok := v.dict.Lookup(id)
	if !ok {
		return "", false, fmt.Errorf("%w: id %d at (%d, %d, %d) not in dictionary", ErrCorrupt, id, x, y, z)
	}
	return m, true, nil
}

// Set writes m at the voxel and marks it set.
func (v *Volume) Set(x, y, z int, relative bool, m material.Material) error {
	x, y, z, err := v.resolve(x, y, z, relative)
	if err != nil {
		return err
	}
	id, err := v.register(m)
	if err != nil {
		return err
	}
	if !v.shp.Get(x, y, z, false) {
		v.ownMask().Set(x, y, z, false)
	}
	v.writeID(v.index(x, y, z), id)
	return nil
}

// Unset clears the voxel. The dictionary keeps any material it held.
func (v *Volume) Unset(x, y, z int, relative bool) error {
	x, y, z, err := v.resolve(x, y, z, relative)
	if err != nil {
		return err
	}
	if v.shp.Get(x, y, z, false) {
		v.ownMask().Unset(x, y, z, false)
	}
	v.writeSentinel(v.index(x, y, z))
	return nil
}

func (v *Volume) fill(id int) {
	w, l := v.shp.Width(), v.shp.Length()
	for y := 0; y < v.shp.Height(); y++ {
		for z := 0; z < l; z++ {
			for x := 0; x < w; x++ {
				i := shape.Index(w, l, x, y, z)
				if v.shp.Get(x, y, z, false) {
					v.writeID(i, id)
				} else {
					v.writeSentinel(i)
				}
			}
		}
	}
}

// Flood writes m into every set voxel and the sentinel everywhere else.
func (v *Volume) Flood(m material.Material) error {
	id, err := v.register(m)
	if err != nil {
		return err
	}
	v.fill(id)
	return nil
}

// Reset floods the default material.
func (v *Volume) Reset() { v.fill(0) }

// SetHorizontalLayer fills the layers [y, y+height) with m regardless of
// occupancy. Occupancy is left unchanged.
func (v *Volume) SetHorizontalLayer(m material.Material, y, height int) error {
	if height < 1 || y < 0 || y+height > v.shp.Height() {
		return fmt.Errorf("%w: layer y=%d height=%d in volume of height %d", ErrOutOfBounds, y, height, v.shp.Height())
	}
	id, err := v.register(m)
	if err != nil {
		return err
	}
	w, l := v.shp.Width(), v.shp.Length()
	start := shape.Index(w, l, 0, y, 0)
	end := shape.Index(w, l, w-1, y+height-1, l-1) + 1
	lo := byte(id)
	for i := start; i < end; i++ {
		v.low[i] = lo
	}
	if v.width == Wide {
		hi := byte(id >> 8)
		for i := start; i < end; i++ {
			v.high[i] = hi
		}
	}
	return nil
}

// SetDefaultMaterial makes m the default by swapping its id with id 0 and
// rewriting both ids in the planes, so every voxel keeps its material.
func (v *Volume) SetDefaultMaterial(m material.Material) error {
	if m == v.dict.Default() {
		return nil
	}
	id, err := v.register(m)
	if err != nil {
		return err
	}
	v.dict.Swap(0, id)
	for i := range v.low {
		cur, ok := v.readID(i)
		if !ok {
			continue
		}
		switch cur {
		case 0:
			v.writeID(i, id)
		case id:
			v.writeID(i, 0)
		}
	}
	return nil
}

// ForEach calls fn for each set voxel in y, z, x order with absolute box
// coordinates. It panics if a plane holds an id missing from the
// dictionary.
func (v *Volume) ForEach(fn func(x, y, z int, m material.Material)) {
	w, l := v.shp.Width(), v.shp.Length()
	for y := 0; y < v.shp.Height(); y++ {
		for z := 0; z < l; z++ {
			for x := 0; x < w; x++ {
				if !v.shp.Get(x, y, z, false) {
					continue
				}
				m, ok, err := v.Get(x, y, z, false)
				if err != nil {
					panic(err)
				}
				if !ok {
					continue
				}
				fn(x, y, z, m)
			}
		}
	}
}

// Clone returns a deep copy that owns its occupancy.
func (v *Volume) Clone() *Volume {
	c := &Volume{
		shp:   shape.NewMaskFrom(v.shp),
		owned: true,
		dict:  v.dict.clone(),
		width: v.width,
		low:   append([]byte(nil), v.low...),
	}
	if v.high != nil {
		c.high = append([]byte(nil), v.high...)
	}
	return c
}
