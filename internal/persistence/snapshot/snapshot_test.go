package snapshot

import (
	"path/filepath"
	"testing"

	"voxelsniper.dev/internal/sim/mathx"
	"voxelsniper.dev/internal/sim/shape"
	"voxelsniper.dev/internal/sim/volume"
)

func TestSectionFile_RoundTrip(t *testing.T) {
	v := volume.New(shape.NewSphere(2), "AIR")
	_ = v.Set(0, 0, 0, true, "STONE")
	_ = v.Unset(1, 0, 0, true)

	path := filepath.Join(t.TempDir(), "sections", "dome.zst")
	if err := WriteSection(path, 42, v.Section("dome")); err != nil {
		t.Fatalf("WriteSection: %v", err)
	}
	h, err := ReadHeader(path)
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if h.Kind != KindSection || h.Name != "dome" || h.Tick != 42 || h.Voxels != 125 {
		t.Fatalf("header=%+v", h)
	}
	sec, err := ReadSection(path)
	if err != nil {
		t.Fatalf("ReadSection: %v", err)
	}
	back, err := volume.FromSection(sec)
	if err != nil {
		t.Fatalf("FromSection: %v", err)
	}
	if m, ok, _ := back.Get(0, 0, 0, true); !ok || m != "STONE" {
		t.Fatalf("centre=%q ok=%v", m, ok)
	}
	if _, ok, _ := back.Get(1, 0, 0, true); ok {
		t.Fatalf("unset voxel came back set")
	}
	if back.Origin() != mathx.V(2, 2, 2) {
		t.Fatalf("origin=%v", back.Origin())
	}
	if _, err := ReadWorld(path); err == nil {
		t.Fatalf("reading a section as a world should fail")
	}
}

func TestWorldFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "world.zst")
	in := WorldV1{
		Header:  Header{Tick: 7},
		Seed:    1,
		Height:  4,
		Palette: []string{"AIR", "STONE"},
		Chunks:  []ChunkV1{{CX: -1, CZ: 2, Height: 4, Blocks: []uint16{0, 1, 1, 0}}},
	}
	if err := WriteWorld(path, in); err != nil {
		t.Fatalf("WriteWorld: %v", err)
	}
	out, err := ReadWorld(path)
	if err != nil {
		t.Fatalf("ReadWorld: %v", err)
	}
	if out.Header.Kind != KindWorld || out.Header.Tick != 7 || len(out.Chunks) != 1 || out.Chunks[0].CX != -1 || out.Chunks[0].Blocks[1] != 1 {
		t.Fatalf("unexpected world %+v", out)
	}
}
