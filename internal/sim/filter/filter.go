// Package filter runs morphological operations over a target shape.
package filter

import (
	"errors"
	"fmt"

	"voxelsniper.dev/internal/sim/material"
	"voxelsniper.dev/internal/sim/mathx"
	"voxelsniper.dev/internal/sim/shape"
	"voxelsniper.dev/internal/sim/volume"
)

var (
	ErrMissingPrerequisite = errors.New("filter: missing prerequisite")
	ErrMissingShape        = fmt.Errorf("%w: no shape", ErrMissingPrerequisite)
	ErrMissingMaterial     = fmt.Errorf("%w: no material", ErrMissingPrerequisite)
)

// Reader is the read side of the host world.
type Reader interface {
	MaterialAt(x, y, z int) material.Material
	IsLiquid(m material.Material) bool
}

type Filter struct {
	Shape   shape.Shape
	Element shape.Shape
	Op      Operation
	World   Reader

	ExcludeFluid bool
	// UnsetUnresolved clears target voxels the operation had no result for,
	// so flushing the overlay leaves those world blocks alone.
	UnsetUnresolved bool
}

// Run computes the overlay for Shape placed with its origin at target. The
// overlay's default material is m.
func (f *Filter) Run(target mathx.Vec3i, m material.Material) (*volume.Volume, error) {
	if f.Shape == nil {
		return nil, ErrMissingShape
	}
	if m.IsZero() {
		return nil, ErrMissingMaterial
	}
	if f.World == nil {
		return nil, errors.New("filter: no world reader")
	}
	elem := f.Element
	if elem == nil {
		elem = shape.DefaultElement()
	}
	op := f.Op
	if op == nil {
		op = NewLinearBlend()
	}

	out := volume.New(f.Shape, m)
	origin := f.Shape.Origin()
	eo := elem.Origin()
	for x := 0; x < f.Shape.Width(); x++ {
		for y := 0; y < f.Shape.Height(); y++ {
			for z := 0; z < f.Shape.Length(); z++ {
				if !f.Shape.Get(x, y, z, false) {
					continue
				}
				pos := target.Add(mathx.V(x, y, z)).Sub(origin)
				f.sweep(op, elem, eo, pos)
				res, ok := op.Result()
				var err error
				switch {
				case ok:
					err = out.Set(x, y, z, false, res)
				case f.UnsetUnresolved:
					err = out.Unset(x, y, z, false)
				}
				op.Reset()
				if err != nil {
					return nil, fmt.Errorf("filter %s at %s: %w", op.Name(), pos, err)
				}
			}
		}
	}
	return out, nil
}

func (f *Filter) sweep(op Operation, elem shape.Shape, eo, pos mathx.Vec3i) {
	for a := 0; a < elem.Width(); a++ {
		for b := 0; b < elem.Height(); b++ {
			for c := 0; c < elem.Length(); c++ {
				if !elem.Get(a, b, c, false) {
					continue
				}
				off := mathx.V(a, b, c).Sub(eo)
				n := pos.Add(off)
				mat := f.World.MaterialAt(n.X, n.Y, n.Z)
				if f.ExcludeFluid && f.World.IsLiquid(mat) {
					continue
				}
				op.CheckPosition(pos, off, mat)
			}
		}
	}
}
