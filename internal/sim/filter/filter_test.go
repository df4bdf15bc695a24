package filter

import (
	"bytes"
	"errors"
	"testing"

	"voxelsniper.dev/internal/sim/material"
	"voxelsniper.dev/internal/sim/mathx"
	"voxelsniper.dev/internal/sim/shape"
)

const (
	air   = material.Material("AIR")
	stone = material.Material("STONE")
	dirt  = material.Material("DIRT")
	glass = material.Material("GLASS")
	water = material.Material("WATER")
)

type fakeWorld map[mathx.Vec3i]material.Material

func (w fakeWorld) MaterialAt(x, y, z int) material.Material {
	if m, ok := w[mathx.V(x, y, z)]; ok {
		return m
	}
	return air
}

func (w fakeWorld) IsLiquid(m material.Material) bool { return m == water }

type hashWorld struct{}

func (hashWorld) MaterialAt(x, y, z int) material.Material {
	switch mathx.Hash2(int64(y), x, z) % 3 {
	case 0:
		return stone
	case 1:
		return dirt
	}
	return air
}

func (hashWorld) IsLiquid(material.Material) bool { return false }

// mirrorWorld is stone for x<0, dirt for x>0 and water on the x=0 plane.
type mirrorWorld struct{}

func (mirrorWorld) MaterialAt(x, y, z int) material.Material {
	switch {
	case x < 0:
		return stone
	case x > 0:
		return dirt
	}
	return water
}

func (mirrorWorld) IsLiquid(m material.Material) bool { return m == water }

func single() shape.Shape { return shape.NewCuboid(1, 1, 1, mathx.V(0, 0, 0)) }

func TestRun_MissingPrerequisites(t *testing.T) {
	f := &Filter{World: fakeWorld{}}
	if _, err := f.Run(mathx.V(0, 0, 0), stone); !errors.Is(err, ErrMissingShape) || !errors.Is(err, ErrMissingPrerequisite) {
		t.Fatalf("expected ErrMissingShape, got %v", err)
	}
	f.Shape = single()
	if _, err := f.Run(mathx.V(0, 0, 0), ""); !errors.Is(err, ErrMissingMaterial) || !errors.Is(err, ErrMissingPrerequisite) {
		t.Fatalf("expected ErrMissingMaterial, got %v", err)
	}
}

func TestRun_TieLeavesVoxelUntouched(t *testing.T) {
	world := fakeWorld{
		mathx.V(9, 5, 0):  stone,
		mathx.V(11, 5, 0): dirt,
	}
	f := &Filter{
		Shape:   single(),
		Element: shape.NewCuboid(3, 1, 1, mathx.V(1, 0, 0)),
		Op:      NewLinearBlend(),
		World:   world,
	}
	out, err := f.Run(mathx.V(10, 5, 0), glass)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	m, ok, _ := out.Get(0, 0, 0, false)
	if !ok || m != glass {
		t.Fatalf("tie should leave the overlay default, got %q ok=%v", m, ok)
	}
	if out.Dictionary().Len() != 1 {
		t.Fatalf("no material should have been written")
	}

	f.UnsetUnresolved = true
	out, err = f.Run(mathx.V(10, 5, 0), glass)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, ok, _ := out.Get(0, 0, 0, false); ok {
		t.Fatalf("unresolved voxel should be unset")
	}
}

func TestRun_NearestMaterialWins(t *testing.T) {
	world := fakeWorld{
		mathx.V(-2, 0, 0): stone,
		mathx.V(-1, 0, 0): dirt,
		mathx.V(1, 0, 0):  dirt,
		mathx.V(2, 0, 0):  stone,
	}
	f := &Filter{
		Shape:   single(),
		Element: shape.NewCuboid(5, 1, 1, mathx.V(2, 0, 0)),
		World:   world,
	}
	out, err := f.Run(mathx.V(0, 0, 0), glass)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if m, _, _ := out.Get(0, 0, 0, false); m != dirt {
		t.Fatalf("got %q want %q", m, dirt)
	}
}

func TestRun_ExcludeFluid(t *testing.T) {
	world := fakeWorld{
		mathx.V(-1, 0, 0): water,
		mathx.V(1, 0, 0):  stone,
	}
	f := &Filter{
		Shape:        single(),
		Element:      shape.NewCuboid(3, 1, 1, mathx.V(1, 0, 0)),
		World:        world,
		ExcludeFluid: true,
	}
	out, err := f.Run(mathx.V(0, 0, 0), glass)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if m, _, _ := out.Get(0, 0, 0, false); m != stone {
		t.Fatalf("with fluid excluded got %q want %q", m, stone)
	}

	f.ExcludeFluid = false
	out, _ = f.Run(mathx.V(0, 0, 0), glass)
	if m, _, _ := out.Get(0, 0, 0, false); m != glass {
		t.Fatalf("water and stone tie, got %q", m)
	}
}

func TestRun_SelfOnlyElementChangesNothing(t *testing.T) {
	f := &Filter{
		Shape:   shape.NewCuboid(3, 3, 3, mathx.V(1, 1, 1)),
		Element: single(),
		World:   hashWorld{},
	}
	out, err := f.Run(mathx.V(4, 4, 4), glass)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	n := 0
	out.ForEach(func(x, y, z int, m material.Material) {
		n++
		if m != glass {
			t.Fatalf("(%d,%d,%d) changed to %q", x, y, z, m)
		}
	})
	if n != 27 {
		t.Fatalf("visited %d voxels, want 27", n)
	}
}

func TestRun_Deterministic(t *testing.T) {
	f := &Filter{
		Shape:   shape.NewSphere(3),
		Element: shape.DefaultElement(),
		World:   hashWorld{},
	}
	a, err := f.Run(mathx.V(100, 64, -20), glass)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	b, err := f.Run(mathx.V(100, 64, -20), glass)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	sa, sb := a.Section("a"), b.Section("a")
	if !bytes.Equal(sa.Low, sb.Low) || len(sa.Dictionary) != len(sb.Dictionary) {
		t.Fatalf("runs differ")
	}
	for i := range sa.Dictionary {
		if sa.Dictionary[i] != sb.Dictionary[i] {
			t.Fatalf("dictionary order differs at %d", i)
		}
	}
}

func TestLinearBlend_ResetWithoutVotes(t *testing.T) {
	b := NewLinearBlend()
	b.Reset()
	if _, ok := b.Result(); ok {
		t.Fatalf("no votes should give no result")
	}
	b.CheckPosition(mathx.V(0, 0, 0), mathx.V(0, 0, 0), stone)
	if _, ok := b.Result(); ok {
		t.Fatalf("zero offset must not vote")
	}
}

func TestRun_MirroredWorldBallElementTies(t *testing.T) {
	for _, r := range []float64{1, 2, 3, 4} {
		f := &Filter{
			Shape:        single(),
			Element:      shape.NewSphere(r),
			Op:           NewLinearBlend(),
			World:        mirrorWorld{},
			ExcludeFluid: true,
		}
		out, err := f.Run(mathx.V(0, 7, -3), glass)
		if err != nil {
			t.Fatalf("radius %v: Run: %v", r, err)
		}
		m, ok, _ := out.Get(0, 0, 0, false)
		if !ok || m != glass {
			t.Fatalf("radius %v: mirrored neighbourhood should tie, got %q ok=%v", r, m, ok)
		}
	}
}

func TestLinearBlend_EqualWeightsFromDifferentDistancesTie(t *testing.T) {
	b := NewLinearBlend()
	// one vote at length 2*sqrt(2) against two at sqrt(2)
	b.CheckPosition(mathx.V(0, 0, 0), mathx.V(2, 2, 0), stone)
	b.CheckPosition(mathx.V(0, 0, 0), mathx.V(1, 1, 0), dirt)
	b.CheckPosition(mathx.V(0, 0, 0), mathx.V(-1, 1, 0), dirt)
	b.CheckPosition(mathx.V(0, 0, 0), mathx.V(0, 0, 1), air)
	if m, ok := b.Result(); !ok || m != air {
		t.Fatalf("air should win over the tied stone and dirt, got %q ok=%v", m, ok)
	}

	b.Reset()
	b.CheckPosition(mathx.V(0, 0, 0), mathx.V(2, 2, 0), stone)
	b.CheckPosition(mathx.V(0, 0, 0), mathx.V(1, 1, 0), dirt)
	b.CheckPosition(mathx.V(0, 0, 0), mathx.V(-1, 1, 0), dirt)
	if m, ok := b.Result(); ok {
		t.Fatalf("equal weights should tie, got %q", m)
	}
}
