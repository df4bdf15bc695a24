package worldstore

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"

	"voxelsniper.dev/internal/sim/material"
	"voxelsniper.dev/internal/sim/mathx"
)

func (s *Store) InBounds(x, y, z int) bool {
	if y < 0 || y >= s.Gen.Height {
		return false
	}
	if s.Gen.BoundaryR > 0 {
		if x < -s.Gen.BoundaryR || x > s.Gen.BoundaryR || z < -s.Gen.BoundaryR || z > s.Gen.BoundaryR {
			return false
		}
	}
	return true
}

func (s *Store) LoadedChunkKeys() []ChunkKey {
	keys := make([]ChunkKey, 0, len(s.Chunks))
	for k := range s.Chunks {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].CX != keys[j].CX {
			return keys[i].CX < keys[j].CX
		}
		return keys[i].CZ < keys[j].CZ
	})
	return keys
}

// GetBlock returns the palette id at a world position; air outside bounds.
func (s *Store) GetBlock(x, y, z int) uint16 {
	if !s.InBounds(x, y, z) {
		return s.air
	}
	ch := s.GetOrGenChunk(mathx.FloorDiv(x, ChunkSize), mathx.FloorDiv(z, ChunkSize))
	return ch.Get(mathx.Mod(x, ChunkSize), y, mathx.Mod(z, ChunkSize))
}

// SetBlock writes a palette id; writes outside bounds are dropped.
func (s *Store) SetBlock(x, y, z int, b uint16) {
	if !s.InBounds(x, y, z) {
		return
	}
	ch := s.GetOrGenChunk(mathx.FloorDiv(x, ChunkSize), mathx.FloorDiv(z, ChunkSize))
	ch.Set(mathx.Mod(x, ChunkSize), y, mathx.Mod(z, ChunkSize), b)
}

func (s *Store) GetOrGenChunk(cx, cz int) *Chunk {
	k := ChunkKey{CX: cx, CZ: cz}
	if ch, ok := s.Chunks[k]; ok {
		return ch
	}
	ch := newChunk(cx, cz, s.Gen.Height)
	s.generateChunk(ch)
	ch.dirty = true
	_ = ch.Digest()
	s.Chunks[k] = ch
	return ch
}

func (s *Store) MaterialAt(x, y, z int) material.Material {
	return s.Mats.ByID(s.GetBlock(x, y, z))
}

// SetMaterial writes m; unknown materials are ignored.
func (s *Store) SetMaterial(x, y, z int, m material.Material) {
	id, ok := s.Mats.ID(m)
	if !ok {
		return
	}
	s.SetBlock(x, y, z, id)
}

func (s *Store) IsLiquid(m material.Material) bool { return s.Mats.IsLiquid(m) }

// Digest hashes the digests of all loaded chunks in key order.
func (s *Store) Digest() string {
	h := sha256.New()
	for _, k := range s.LoadedChunkKeys() {
		d := s.Chunks[k].Digest()
		h.Write(d[:])
	}
	return hex.EncodeToString(h.Sum(nil))
}
