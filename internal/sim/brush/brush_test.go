package brush

import (
	"errors"
	"fmt"
	"testing"

	"voxelsniper.dev/internal/sim/filter"
	"voxelsniper.dev/internal/sim/material"
	"voxelsniper.dev/internal/sim/mathx"
	"voxelsniper.dev/internal/sim/volume"
)

// flatWorld is stone below y=0 and air above.
type flatWorld struct{}

func (flatWorld) MaterialAt(_, y, _ int) material.Material {
	if y < 0 {
		return "STONE"
	}
	return "AIR"
}

func (flatWorld) IsLiquid(material.Material) bool { return false }

type recorder struct {
	vols []*volume.Volume
	ats  []mathx.Vec3i
	msgs []string
}

func (r *recorder) ctx(vars *Vars) *Context {
	return &Context{
		Actor: "tester",
		World: flatWorld{},
		Vars:  vars,
		Enqueue: func(v *volume.Volume, at mathx.Vec3i) {
			r.vols = append(r.vols, v)
			r.ats = append(r.ats, at)
		},
		Send: func(format string, args ...any) { r.msgs = append(r.msgs, fmt.Sprintf(format, args...)) },
	}
}

func TestRegistry_Parse(t *testing.T) {
	reg := NewRegistry()
	c, err := reg.Parse("  Ball   material ")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if c.String() != "ball material" {
		t.Fatalf("chain=%q", c.String())
	}
	_, err = reg.Parse("ball glitter")
	var ub *UnknownBrushError
	if !errors.As(err, &ub) || ub.Name != "glitter" || !errors.Is(err, ErrUnknownBrush) {
		t.Fatalf("expected unknown brush glitter, got %v", err)
	}
}

func TestChain_MaterialNeedsShape(t *testing.T) {
	reg := NewRegistry()
	chain, _ := reg.Parse("material")
	vars := NewVars()
	vars.Set(KeyMaterial, material.Material("STONE"))
	vars.Set(KeyTargetBlock, mathx.V(0, 0, 0))
	var r recorder
	err := chain.Run(r.ctx(vars))
	if !errors.Is(err, filter.ErrMissingPrerequisite) {
		t.Fatalf("expected missing prerequisite, got %v", err)
	}
	if len(r.msgs) != 1 || r.msgs[0] != "You must have at least one shape brush before your material brush." {
		t.Fatalf("messages=%q", r.msgs)
	}
	if len(r.vols) != 0 {
		t.Fatalf("nothing should be enqueued")
	}
}

func TestChain_BallMaterial(t *testing.T) {
	reg := NewRegistry()
	chain, _ := reg.Parse("ball material")
	vars := NewVars()
	vars.Set(KeyBrushSize, 2.0)
	vars.Set(KeyMaterial, material.Material("GLASS"))
	vars.Set(KeyTargetBlock, mathx.V(5, 5, 5))
	var r recorder
	if err := chain.Run(r.ctx(vars)); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(r.vols) != 1 || r.ats[0] != mathx.V(5, 5, 5) {
		t.Fatalf("expected one enqueued volume at target")
	}
	v := r.vols[0]
	if v.Width() != 5 || v.DefaultMaterial() != "GLASS" {
		t.Fatalf("unexpected volume %dx? default %q", v.Width(), v.DefaultMaterial())
	}
}

func TestMaterialBrush_MaskMaterial(t *testing.T) {
	reg := NewRegistry()
	chain, _ := reg.Parse("voxel material")
	vars := NewVars()
	vars.Set(KeyBrushSize, 1.0)
	vars.Set(KeyMaterial, material.Material("DIRT"))
	vars.Set(KeyMaskMaterial, material.Material("STONE"))
	vars.Set(KeyTargetBlock, mathx.V(0, 0, 0))
	var r recorder
	if err := chain.Run(r.ctx(vars)); err != nil {
		t.Fatalf("Run: %v", err)
	}
	// Only the bottom layer (world y=-1) is stone.
	if got := r.vols[0].Count(); got != 9 {
		t.Fatalf("masked count=%d want 9", got)
	}
}

func TestBlendBrush(t *testing.T) {
	reg := NewRegistry()
	chain, _ := reg.Parse("voxel blend")
	vars := NewVars()
	vars.Set(KeyBrushSize, 1.0)
	vars.Set(KeyMaterial, material.Material("GLASS"))
	vars.Set(KeyTargetBlock, mathx.V(0, 0, 0))
	var r recorder
	if err := chain.Run(r.ctx(vars)); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(r.vols) != 1 {
		t.Fatalf("expected an overlay")
	}
	// Deep below the surface all neighbours are stone.
	vars.Set(KeyTargetBlock, mathx.V(0, -10, 0))
	if err := chain.Run(r.ctx(vars)); err != nil {
		t.Fatalf("Run: %v", err)
	}
	m, ok, _ := r.vols[1].Get(0, 0, 0, true)
	if !ok || m != "STONE" {
		t.Fatalf("centre got %q ok=%v", m, ok)
	}
}

func TestVars_SetParsed(t *testing.T) {
	v := NewVars()
	if err := v.SetParsed("kernel_size", "2.5"); err != nil {
		t.Fatalf("SetParsed: %v", err)
	}
	if f, _ := v.Float(KeyKernelSize); f != 2.5 {
		t.Fatalf("kernel_size=%v", f)
	}
	if err := v.SetParsed("exclude_fluid", "false"); err != nil || v.Bool(KeyExcludeFluid, true) {
		t.Fatalf("exclude_fluid not parsed: %v", err)
	}
	if err := v.SetParsed("brush_size", "-1"); err == nil {
		t.Fatalf("negative size accepted")
	}
	if err := v.SetParsed("colour", "red"); err == nil {
		t.Fatalf("unknown key accepted")
	}
}
