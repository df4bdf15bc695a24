// Package material names block materials and classifies them using the
// material catalog.
package material

import (
	"strings"

	"voxelsniper.dev/internal/sim/catalogs"
)

// Material is a catalog material id such as "STONE". The zero value means
// "no material".
type Material string

const Air Material = "AIR"

func (m Material) String() string { return string(m) }
func (m Material) IsZero() bool   { return m == "" }

// Registry resolves material names and palette ids against a catalog.
type Registry struct {
	cat *catalogs.MaterialCatalog
}

func NewRegistry(cat *catalogs.MaterialCatalog) *Registry {
	return &Registry{cat: cat}
}

// Lookup accepts case-insensitive names with an optional "minecraft:" prefix.
func (r *Registry) Lookup(name string) (Material, bool) {
	name = strings.TrimSpace(name)
	name = strings.TrimPrefix(strings.ToLower(name), "minecraft:")
	id := strings.ToUpper(name)
	if _, ok := r.cat.Defs[id]; !ok {
		return "", false
	}
	return Material(id), true
}

func (r *Registry) Air() Material { return Material(r.cat.Palette[0]) }

func (r *Registry) IsLiquid(m Material) bool {
	return r.cat.Defs[string(m)].Liquid
}

func (r *Registry) IsSolid(m Material) bool {
	def, ok := r.cat.Defs[string(m)]
	if !ok {
		return true
	}
	return def.Solid
}

func (r *Registry) ID(m Material) (uint16, bool) {
	id, ok := r.cat.Index[string(m)]
	return id, ok
}

// ByID returns the material at palette id, or Air for ids outside the palette.
func (r *Registry) ByID(id uint16) Material {
	if int(id) >= len(r.cat.Palette) {
		return r.Air()
	}
	return Material(r.cat.Palette[id])
}

func (r *Registry) Len() int { return len(r.cat.Palette) }
