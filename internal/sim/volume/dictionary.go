package volume

import (
	"fmt"

	"voxelsniper.dev/internal/sim/material"
)

// PlaneWidth is the number of bytes used per voxel to store a dictionary id.
type PlaneWidth uint8

const (
	Narrow PlaneWidth = 1
	Wide   PlaneWidth = 2
)

func (w PlaneWidth) String() string {
	switch w {
	case Narrow:
		return "narrow"
	case Wide:
		return "wide"
	default:
		return fmt.Sprintf("PlaneWidth(%d)", uint8(w))
	}
}

const (
	// narrowMaxID is the largest id a narrow plane can hold; 0xFF is the
	// sentinel.
	narrowMaxID = 0xFE
	// wideMaxID is the largest id a wide plane can hold; 0xFFFF is the
	// sentinel.
	wideMaxID = 0xFFFE
)

// Dictionary maps materials to dense ids. Id 0 is always the volume default.
// Ids are handed out in registration order and never reused.
type Dictionary struct {
	byID []material.Material
	ids  map[material.Material]int
}

func NewDictionary(def material.Material) *Dictionary {
	return &Dictionary{
		byID: []material.Material{def},
		ids:  map[material.Material]int{def: 0},
	}
}

// Register returns the id for m, assigning the next id if m is new.
func (d *Dictionary) Register(m material.Material) (int, error) {
	if id, ok := d.ids[m]; ok {
		return id, nil
	}
	next := len(d.byID)
	if next > wideMaxID {
		return 0, fmt.Errorf("%w: cannot register %s", ErrDictionaryFull, m)
	}
	d.byID = append(d.byID, m)
	d.ids[m] = next
	return next, nil
}

func (d *Dictionary) ID(m material.Material) (int, bool) {
	id, ok := d.ids[m]
	return id, ok
}

func (d *Dictionary) Lookup(id int) (material.Material, bool) {
	if id < 0 || id >= len(d.byID) {
		return "", false
	}
	return d.byID[id], true
}

// Swap exchanges the materials bound to ids a and b. Planes are not touched.
func (d *Dictionary) Swap(a, b int) {
	ma, mb := d.byID[a], d.byID[b]
	d.byID[a], d.byID[b] = mb, ma
	d.ids[ma] = b
	d.ids[mb] = a
}

func (d *Dictionary) Default() material.Material { return d.byID[0] }

// MaxID is the highest assigned id.
func (d *Dictionary) MaxID() int { return len(d.byID) - 1 }

func (d *Dictionary) Len() int { return len(d.byID) }

// Entries returns the materials in id order.
func (d *Dictionary) Entries() []material.Material {
	return append([]material.Material(nil), d.byID...)
}

func (d *Dictionary) clone() *Dictionary {
	c := &Dictionary{
		byID: append([]material.Material(nil), d.byID...),
		ids:  make(map[material.Material]int, len(d.ids)),
	}
	for k, v := range d.ids {
		c.ids[k] = v
	}
	return c
}
