package brush

import (
	"fmt"
	"strconv"
	"strings"

	"voxelsniper.dev/internal/sim/material"
	"voxelsniper.dev/internal/sim/mathx"
	"voxelsniper.dev/internal/sim/shape"
)

// Variable keys shared by brushes.
const (
	KeyShape        = "shape"
	KeyMaterial     = "material"
	KeyMaskMaterial = "mask_material"
	KeyTargetBlock  = "target_block"
	KeyExcludeFluid = "exclude_fluid"
	KeyKernel       = "kernel"
	KeyKernelSize   = "kernel_size"
	KeyBrushSize    = "brush_size"
)

// Vars is the typed variable bag a brush chain reads and writes.
type Vars struct {
	m map[string]any
}

func NewVars() *Vars { return &Vars{m: map[string]any{}} }

func (v *Vars) Set(key string, val any) { v.m[key] = val }
func (v *Vars) Delete(key string)       { delete(v.m, key) }
func (v *Vars) Clear()                  { v.m = map[string]any{} }

func (v *Vars) Has(key string) bool {
	_, ok := v.m[key]
	return ok
}

func (v *Vars) Get(key string) (any, bool) {
	val, ok := v.m[key]
	return val, ok
}

func (v *Vars) Shape() (shape.Shape, bool) {
	s, ok := v.m[KeyShape].(shape.Shape)
	return s, ok && s != nil
}

func (v *Vars) Material(key string) (material.Material, bool) {
	m, ok := v.m[key].(material.Material)
	return m, ok && !m.IsZero()
}

func (v *Vars) Float(key string) (float64, bool) {
	switch f := v.m[key].(type) {
	case float64:
		return f, true
	case int:
		return float64(f), true
	}
	return 0, false
}

func (v *Vars) String(key string) (string, bool) {
	s, ok := v.m[key].(string)
	return s, ok
}

// Bool returns def when key is unset.
func (v *Vars) Bool(key string, def bool) bool {
	b, ok := v.m[key].(bool)
	if !ok {
		return def
	}
	return b
}

func (v *Vars) Vec(key string) (mathx.Vec3i, bool) {
	p, ok := v.m[key].(mathx.Vec3i)
	return p, ok
}

// SetParsed stores a user supplied string under key, converting it to the
// type the key expects.
func (v *Vars) SetParsed(key, raw string) error {
	key = strings.ToLower(strings.TrimSpace(key))
	raw = strings.TrimSpace(raw)
	switch key {
	case KeyKernel:
		if raw == "" {
			return fmt.Errorf("%s: empty value", key)
		}
		v.Set(key, strings.ToLower(raw))
	case KeyKernelSize, KeyBrushSize:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil || f < 0 {
			return fmt.Errorf("%s: want a non-negative number, got %q", key, raw)
		}
		v.Set(key, f)
	case KeyExcludeFluid:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("%s: want a boolean, got %q", key, raw)
		}
		v.Set(key, b)
	default:
		return fmt.Errorf("unknown variable %q", key)
	}
	return nil
}
