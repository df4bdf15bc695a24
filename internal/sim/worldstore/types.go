// Package worldstore is the in-memory block world snipers edit: lazily
// generated 16x16 column chunks of palette ids.
package worldstore

import (
	"crypto/sha256"
	"encoding/binary"

	"voxelsniper.dev/internal/sim/material"
)

const ChunkSize = 16

type ChunkKey struct {
	CX int
	CZ int
}

type Chunk struct {
	CX, CZ int
	Height int
	Blocks []uint16 // len = 16*16*Height, index x + z*16 + y*256

	dirty bool
	hash  [32]byte
}

func newChunk(cx, cz, height int) *Chunk {
	return &Chunk{CX: cx, CZ: cz, Height: height, Blocks: make([]uint16, ChunkSize*ChunkSize*height)}
}

func (c *Chunk) index(x, y, z int) int {
	return x + z*ChunkSize + y*ChunkSize*ChunkSize
}

func (c *Chunk) Get(x, y, z int) uint16 {
	return c.Blocks[c.index(x, y, z)]
}

func (c *Chunk) Set(x, y, z int, b uint16) {
	i := c.index(x, y, z)
	if c.Blocks[i] == b {
		return
	}
	c.Blocks[i] = b
	c.dirty = true
}

func (c *Chunk) Digest() [32]byte {
	if c.dirty || c.hash == ([32]byte{}) {
		h := sha256.New()
		var tmp [2]byte
		for _, v := range c.Blocks {
			binary.LittleEndian.PutUint16(tmp[:], v)
			h.Write(tmp[:])
		}
		copy(c.hash[:], h.Sum(nil))
		c.dirty = false
	}
	return c.hash
}

// Gen holds the flat terrain parameters.
type Gen struct {
	Seed      int64
	Height    int
	BoundaryR int
	GroundY   int
	WaterY    int
}

type Store struct {
	Gen    Gen
	Mats   *material.Registry
	Chunks map[ChunkKey]*Chunk

	air, bedrock, stone, dirt, grass, sand, water, coal, iron uint16
}

func New(gen Gen, mats *material.Registry) *Store {
	s := &Store{
		Gen:    gen,
		Mats:   mats,
		Chunks: map[ChunkKey]*Chunk{},
	}
	id := func(name material.Material) uint16 {
		if v, ok := mats.ID(name); ok {
			return v
		}
		v, _ := mats.ID(mats.Air())
		return v
	}
	s.air = id(mats.Air())
	s.bedrock = id("BEDROCK")
	s.stone = id("STONE")
	s.dirt = id("DIRT")
	s.grass = id("GRASS")
	s.sand = id("SAND")
	s.water = id("WATER")
	s.coal = id("COAL_ORE")
	s.iron = id("IRON_ORE")
	return s
}
