// Package sniper holds the per-actor editing session: brush settings, the
// pending edit queue and the undo history.
package sniper

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"

	"voxelsniper.dev/internal/sim/brush"
	"voxelsniper.dev/internal/sim/filter"
	"voxelsniper.dev/internal/sim/history"
	"voxelsniper.dev/internal/sim/material"
	"voxelsniper.dev/internal/sim/mathx"
	"voxelsniper.dev/internal/sim/tuning"
	"voxelsniper.dev/internal/sim/volume"
)

// ErrBusy is returned when a new edit is started while the previous one is
// still being flushed.
var ErrBusy = errors.New("sniper: edit in progress")

type Defaults struct {
	Brush        string
	Size         float64
	Material     material.Material
	ExcludeFluid bool
}

type Sniper struct {
	ID   string
	Name string

	Vars    *brush.Vars
	Pending history.Pending
	History *history.History

	// OnEdit is called when an edit finishes flushing, before it is pushed
	// onto the history.
	OnEdit func(e *history.Entry)
	// OnWrite is called for each voxel an edit changes, as it is written.
	OnWrite func(e *history.Entry, c history.Change)

	brushes    *brush.Registry
	defaults   Defaults
	msgs       tuning.Messages
	chain      brush.Chain
	processing bool
	last       *volume.Volume
	outbox     []string
}

func New(id, name string, brushes *brush.Registry, defaults Defaults, historySize int, msgs tuning.Messages) *Sniper {
	s := &Sniper{
		ID:       id,
		Name:     name,
		Vars:     brush.NewVars(),
		History:  history.New(historySize),
		brushes:  brushes,
		defaults: defaults,
		msgs:     msgs,
	}
	s.ResetSettings()
	return s
}

// ResetSettings restores the default brush, size and material.
func (s *Sniper) ResetSettings() {
	s.Vars.Clear()
	s.Vars.Set(brush.KeyBrushSize, s.defaults.Size)
	s.Vars.Set(brush.KeyExcludeFluid, s.defaults.ExcludeFluid)
	if !s.defaults.Material.IsZero() {
		s.Vars.Set(brush.KeyMaterial, s.defaults.Material)
	}
	chain, err := s.brushes.Parse(s.defaults.Brush)
	if err != nil {
		chain = nil
	}
	s.chain = chain
}

func (s *Sniper) Send(format string, args ...any) {
	if format == "" {
		return
	}
	s.outbox = append(s.outbox, fmt.Sprintf(format, args...))
}

// DrainMessages returns and clears the queued messages.
func (s *Sniper) DrainMessages() []string {
	out := s.outbox
	s.outbox = nil
	return out
}

func (s *Sniper) Brush() string { return s.chain.String() }

func (s *Sniper) SetBrush(names string) error {
	chain, err := s.brushes.Parse(names)
	if err != nil {
		var ub *brush.UnknownBrushError
		if errors.As(err, &ub) {
			s.Send(s.msgs.BrushNotFound, ub.Name)
		}
		return err
	}
	s.chain = chain
	s.Send(s.msgs.BrushSet, chain.String())
	return nil
}

func (s *Sniper) SetSize(size float64) {
	if size < 0 {
		size = 0
	}
	s.Vars.Set(brush.KeyBrushSize, size)
	s.Send(s.msgs.BrushSizeChanged, size)
}

func (s *Sniper) SetMaterial(m material.Material) {
	s.Vars.Set(brush.KeyMaterial, m)
	s.Send(s.msgs.MaterialSet, m)
}

func (s *Sniper) SetMaskMaterial(m material.Material) {
	s.Vars.Set(brush.KeyMaskMaterial, m)
	s.Send(s.msgs.MaterialMaskSet, m)
}

func (s *Sniper) Processing() bool { return s.processing }

// LastOverlay is the most recent volume queued by this sniper.
func (s *Sniper) LastOverlay() *volume.Volume { return s.last }

// Snipe runs the brush chain at target against world.
func (s *Sniper) Snipe(world filter.Reader, target mathx.Vec3i) error {
	if s.processing {
		s.Send(s.msgs.Busy)
		return ErrBusy
	}
	if len(s.chain) == 0 {
		s.Send(s.msgs.BrushNotFound, s.defaults.Brush)
		return brush.ErrUnknownBrush
	}
	s.Vars.Set(brush.KeyTargetBlock, target)
	ctx := &brush.Context{
		Actor:   s.ID,
		World:   world,
		Vars:    s.Vars,
		Enqueue: s.Enqueue,
		Send:    s.Send,
	}
	return s.chain.Run(ctx)
}

// Enqueue schedules an overlay to be written with its origin at at.
func (s *Sniper) Enqueue(v *volume.Volume, at mathx.Vec3i) {
	s.last = v
	q := history.NewShapeQueue(s.ID, v, at, s.finish)
	q.OnChange = s.write
	s.Pending.Add(q)
	s.processing = true
	s.Send(s.msgs.EditQueued, humanize.Comma(int64(v.Count())))
}

func (s *Sniper) write(e *history.Entry, c history.Change) {
	if s.OnWrite != nil {
		s.OnWrite(e, c)
	}
}

// finish pushes a flushed edit onto the history. An edit that changed
// nothing is dropped and leaves both stacks, redo included, as they were.
func (s *Sniper) finish(e *history.Entry) {
	if e.Len() == 0 {
		return
	}
	if s.OnEdit != nil {
		s.OnEdit(e)
	}
	_ = s.History.Push(e)
}

// Flush writes pending edits to w, spending at most budget voxels, and
// returns the number spent.
func (s *Sniper) Flush(w history.Writer, budget int) int {
	used := 0
	for used < budget {
		q, ok := s.Pending.Next()
		if !ok {
			break
		}
		used += q.Flush(w, budget-used)
		if !s.Pending.ClearNext(false) {
			break
		}
	}
	s.processing = s.Pending.Len() > 0
	return used
}

// Cancel drops all pending edits. A partially flushed edit stays in the
// world and is pushed onto the history with the changes it made, so it can
// be undone.
func (s *Sniper) Cancel() int {
	n := 0
	for s.Pending.ClearNext(true) {
		n++
	}
	s.processing = false
	return n
}

func (s *Sniper) UndoHistory(w history.Writer, n int) int {
	c := s.History.Undo(w, n)
	s.Send(s.msgs.Undo, humanize.Comma(int64(c)))
	return c
}

func (s *Sniper) RedoHistory(w history.Writer, n int) int {
	c := s.History.Redo(w, n)
	s.Send(s.msgs.Redo, humanize.Comma(int64(c)))
	return c
}
