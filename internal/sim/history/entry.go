// Package history records world edits as reversible entries and keeps the
// bounded undo/redo stacks of an actor.
package history

import (
	"errors"

	"github.com/google/uuid"

	"voxelsniper.dev/internal/sim/material"
	"voxelsniper.dev/internal/sim/mathx"
)

var (
	ErrFinished    = errors.New("history: entry already finished")
	ErrNotFinished = errors.New("history: entry not finished")
)

// Writer is the write side of the host world.
type Writer interface {
	MaterialAt(x, y, z int) material.Material
	SetMaterial(x, y, z int, m material.Material)
}

type Change struct {
	Pos  mathx.Vec3i       `json:"pos"`
	From material.Material `json:"from"`
	To   material.Material `json:"to"`
}

type State uint8

const (
	Building State = iota
	Finished
)

func (s State) String() string {
	if s == Finished {
		return "finished"
	}
	return "building"
}

// Entry is one atomic edit. Changes are appended while Building; a Finished
// entry is immutable.
type Entry struct {
	ID      string
	Actor   string
	state   State
	changes []Change
}

func NewEntry(actor string) *Entry {
	return &Entry{ID: uuid.NewString(), Actor: actor}
}

func (e *Entry) State() State      { return e.state }
func (e *Entry) Finished() bool    { return e.state == Finished }
func (e *Entry) Len() int          { return len(e.changes) }
func (e *Entry) Changes() []Change { return append([]Change(nil), e.changes...) }

func (e *Entry) Record(pos mathx.Vec3i, from, to material.Material) error {
	if e.state == Finished {
		return ErrFinished
	}
	e.changes = append(e.changes, Change{Pos: pos, From: from, To: to})
	return nil
}

func (e *Entry) Finish() { e.state = Finished }

// Inverse returns a finished entry that undoes e: changes in reverse order
// with From and To swapped.
func (e *Entry) Inverse() *Entry {
	inv := &Entry{ID: e.ID, Actor: e.Actor, state: Finished, changes: make([]Change, len(e.changes))}
	for i, c := range e.changes {
		inv.changes[len(e.changes)-1-i] = Change{Pos: c.Pos, From: c.To, To: c.From}
	}
	return inv
}

// Apply writes every change's To material in order.
func (e *Entry) Apply(w Writer) {
	for _, c := range e.changes {
		w.SetMaterial(c.Pos.X, c.Pos.Y, c.Pos.Z, c.To)
	}
}
