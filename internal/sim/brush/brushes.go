package brush

import (
	"voxelsniper.dev/internal/sim/filter"
	"voxelsniper.dev/internal/sim/material"
	"voxelsniper.dev/internal/sim/shape"
	"voxelsniper.dev/internal/sim/volume"
)

// shapeBrush sets the shape variable to a primitive sized by brush_size.
type shapeBrush struct{ kind string }

func (b shapeBrush) Name() string { return b.kind }

func (b shapeBrush) Run(ctx *Context) error {
	size, _ := ctx.Vars.Float(KeyBrushSize)
	s, ok := shape.Primitive(b.kind, size)
	if !ok {
		return &UnknownBrushError{Name: b.kind}
	}
	ctx.Vars.Set(KeyShape, s)
	return nil
}

func requireShape(ctx *Context, brushName string) (shape.Shape, error) {
	s, ok := ctx.Vars.Shape()
	if !ok {
		ctx.send("You must have at least one shape brush before your %s brush.", brushName)
		return nil, filter.ErrMissingShape
	}
	return s, nil
}

func requireMaterial(ctx *Context) (material.Material, error) {
	m, ok := ctx.Vars.Material(KeyMaterial)
	if !ok {
		ctx.send("You must select a material.")
		return "", filter.ErrMissingMaterial
	}
	return m, nil
}

// materialBrush fills the shape with the selected material. With a mask
// material set, only blocks currently holding that material are replaced.
type materialBrush struct{}

func (materialBrush) Name() string { return "material" }

func (b materialBrush) Run(ctx *Context) error {
	s, err := requireShape(ctx, b.Name())
	if err != nil {
		return err
	}
	m, err := requireMaterial(ctx)
	if err != nil {
		return err
	}
	at, ok := ctx.Vars.Vec(KeyTargetBlock)
	if !ok {
		return ErrNoTarget
	}
	v := volume.New(s, m)
	if mask, ok := ctx.Vars.Material(KeyMaskMaterial); ok {
		o := s.Origin()
		for y := 0; y < s.Height(); y++ {
			for z := 0; z < s.Length(); z++ {
				for x := 0; x < s.Width(); x++ {
					if !s.Get(x, y, z, false) {
						continue
					}
					if ctx.World.MaterialAt(at.X+x-o.X, at.Y+y-o.Y, at.Z+z-o.Z) != mask {
						if err := v.Unset(x, y, z, false); err != nil {
							return err
						}
					}
				}
			}
		}
	}
	ctx.Enqueue(v, at)
	return nil
}

// blendBrush smooths the shape with the linear blend operation.
type blendBrush struct{ op filter.Operation }

func (b *blendBrush) Name() string { return "blend" }

func (b *blendBrush) Run(ctx *Context) error {
	s, err := requireShape(ctx, b.Name())
	if err != nil {
		return err
	}
	m, err := requireMaterial(ctx)
	if err != nil {
		return err
	}
	at, ok := ctx.Vars.Vec(KeyTargetBlock)
	if !ok {
		return ErrNoTarget
	}
	kernel, ok := ctx.Vars.String(KeyKernel)
	if !ok {
		kernel = "voxel"
	}
	size, ok := ctx.Vars.Float(KeyKernelSize)
	if !ok {
		size = 1
	}
	elem, ok := shape.Primitive(kernel, size)
	if !ok {
		elem = shape.DefaultElement()
	}
	f := filter.Filter{
		Shape:        s,
		Element:      elem,
		Op:           b.op,
		World:        ctx.World,
		ExcludeFluid: ctx.Vars.Bool(KeyExcludeFluid, true),
	}
	v, err := f.Run(at, m)
	if err != nil {
		return err
	}
	ctx.Enqueue(v, at)
	return nil
}
