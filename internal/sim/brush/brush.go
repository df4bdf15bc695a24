// Package brush implements the brush parts a sniper chains together, such
// as "ball material" or "voxel blend".
package brush

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"voxelsniper.dev/internal/sim/filter"
	"voxelsniper.dev/internal/sim/mathx"
	"voxelsniper.dev/internal/sim/volume"
)

var (
	ErrUnknownBrush = errors.New("brush: unknown brush")
	ErrNoTarget     = errors.New("brush: no target block")
)

// Context is what a brush sees while running.
type Context struct {
	Actor string
	World filter.Reader
	Vars  *Vars
	// Enqueue schedules v to be written with its origin at at.
	Enqueue func(v *volume.Volume, at mathx.Vec3i)
	Send    func(format string, args ...any)
}

func (c *Context) send(format string, args ...any) {
	if c.Send != nil {
		c.Send(format, args...)
	}
}

type Brush interface {
	Name() string
	Run(ctx *Context) error
}

// Chain runs its brushes in order and stops at the first error.
type Chain []Brush

func (c Chain) Run(ctx *Context) error {
	for _, b := range c {
		if err := b.Run(ctx); err != nil {
			return fmt.Errorf("%s: %w", b.Name(), err)
		}
	}
	return nil
}

func (c Chain) String() string {
	names := make([]string, len(c))
	for i, b := range c {
		names[i] = b.Name()
	}
	return strings.Join(names, " ")
}

type Registry struct {
	byName map[string]func() Brush
}

// NewRegistry returns a registry with the built-in brushes.
func NewRegistry() *Registry {
	r := &Registry{byName: map[string]func() Brush{}}
	for _, kind := range []string{"voxel", "ball", "disc"} {
		kind := kind
		r.Register(kind, func() Brush { return shapeBrush{kind: kind} })
	}
	r.Register("material", func() Brush { return materialBrush{} })
	r.Register("blend", func() Brush { return &blendBrush{op: filter.NewLinearBlend()} })
	return r
}

func (r *Registry) Register(name string, f func() Brush) { r.byName[name] = f }

func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.byName))
	for n := range r.byName {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Parse builds a chain from space separated brush names.
func (r *Registry) Parse(names string) (Chain, error) {
	fields := strings.Fields(strings.ToLower(names))
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: empty brush", ErrUnknownBrush)
	}
	chain := make(Chain, 0, len(fields))
	for _, f := range fields {
		mk, ok := r.byName[f]
		if !ok {
			return nil, &UnknownBrushError{Name: f}
		}
		chain = append(chain, mk())
	}
	return chain, nil
}

type UnknownBrushError struct{ Name string }

func (e *UnknownBrushError) Error() string { return fmt.Sprintf("brush: unknown brush %q", e.Name) }
func (e *UnknownBrushError) Unwrap() error { return ErrUnknownBrush }
