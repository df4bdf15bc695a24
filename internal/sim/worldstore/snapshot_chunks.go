package worldstore

import (
	"fmt"

	"voxelsniper.dev/internal/persistence/snapshot"
	"voxelsniper.dev/internal/sim/material"
)

// Export converts the loaded chunks into a world snapshot.
func (s *Store) Export(tick uint64) snapshot.WorldV1 {
	keys := s.LoadedChunkKeys()
	out := snapshot.WorldV1{
		Header:    snapshot.Header{Tick: tick},
		Seed:      s.Gen.Seed,
		Height:    s.Gen.Height,
		BoundaryR: s.Gen.BoundaryR,
		GroundY:   s.Gen.GroundY,
		WaterY:    s.Gen.WaterY,
		Chunks:    make([]snapshot.ChunkV1, 0, len(keys)),
	}
	for i := 0; i < s.Mats.Len(); i++ {
		out.Palette = append(out.Palette, string(s.Mats.ByID(uint16(i))))
	}
	for _, k := range keys {
		ch := s.Chunks[k]
		out.Chunks = append(out.Chunks, snapshot.ChunkV1{
			CX:     k.CX,
			CZ:     k.CZ,
			Height: ch.Height,
			Blocks: append([]uint16(nil), ch.Blocks...),
		})
	}
	return out
}

// Import rebuilds a store from a snapshot. Palette ids are remapped onto
// mats, so a snapshot survives catalog reordering.
func Import(snap snapshot.WorldV1, mats *material.Registry) (*Store, error) {
	gen := Gen{
		Seed:      snap.Seed,
		Height:    snap.Height,
		BoundaryR: snap.BoundaryR,
		GroundY:   snap.GroundY,
		WaterY:    snap.WaterY,
	}
	s := New(gen, mats)
	remap := make([]uint16, len(snap.Palette))
	for i, name := range snap.Palette {
		id, ok := mats.ID(material.Material(name))
		if !ok {
			return nil, fmt.Errorf("snapshot material %q not in catalog", name)
		}
		remap[i] = id
	}
	want := ChunkSize * ChunkSize * gen.Height
	for _, c := range snap.Chunks {
		if c.Height != gen.Height {
			return nil, fmt.Errorf("snapshot chunk height mismatch: got %d want %d", c.Height, gen.Height)
		}
		if len(c.Blocks) != want {
			return nil, fmt.Errorf("snapshot chunk blocks length mismatch: got %d want %d", len(c.Blocks), want)
		}
		ch := newChunk(c.CX, c.CZ, gen.Height)
		for i, b := range c.Blocks {
			if int(b) >= len(remap) {
				return nil, fmt.Errorf("snapshot chunk (%d,%d): id %d outside palette", c.CX, c.CZ, b)
			}
			ch.Blocks[i] = remap[b]
		}
		_ = ch.Digest()
		s.Chunks[ChunkKey{CX: c.CX, CZ: c.CZ}] = ch
	}
	return s, nil
}
