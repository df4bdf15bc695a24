package history

import (
	"voxelsniper.dev/internal/sim/material"
	"voxelsniper.dev/internal/sim/mathx"
	"voxelsniper.dev/internal/sim/volume"
)

// ChangeQueue is an edit that is flushed to the world over one or more
// ticks.
type ChangeQueue interface {
	Reset()
	Finished() bool
	// Flush applies at most budget voxels and returns the number visited.
	Flush(w Writer, budget int) int
	// Abort stops an unfinished queue, keeping what it already applied as
	// a finished edit.
	Abort()
}

// Pending is an actor's FIFO of change queues.
type Pending struct {
	q []ChangeQueue
}

// Add resets q and appends it.
func (p *Pending) Add(q ChangeQueue) {
	q.Reset()
	p.q = append(p.q, q)
}

func (p *Pending) Next() (ChangeQueue, bool) {
	if len(p.q) == 0 {
		return nil, false
	}
	return p.q[0], true
}

// ClearNext removes the head if it is finished, or unconditionally when
// force is set. A forced head that has not finished is aborted first. It
// reports whether an element was removed.
func (p *Pending) ClearNext(force bool) bool {
	if len(p.q) == 0 || !(force || p.q[0].Finished()) {
		return false
	}
	if !p.q[0].Finished() {
		p.q[0].Abort()
	}
	p.q[0] = nil
	p.q = p.q[1:]
	return true
}

func (p *Pending) Len() int { return len(p.q) }

func (p *Pending) Clear() { p.q = nil }

type placement struct {
	pos mathx.Vec3i
	m   material.Material
}

// ShapeQueue flushes a volume overlay into the world with the volume origin
// placed at At, recording what it overwrote.
type ShapeQueue struct {
	Actor    string
	Volume   *volume.Volume
	At       mathx.Vec3i
	OnFinish func(*Entry)
	// OnChange sees every recorded change in the tick it was written.
	OnChange func(e *Entry, c Change)

	items  []placement
	cursor int
	entry  *Entry
}

func NewShapeQueue(actor string, v *volume.Volume, at mathx.Vec3i, onFinish func(*Entry)) *ShapeQueue {
	return &ShapeQueue{Actor: actor, Volume: v, At: at, OnFinish: onFinish}
}

func (q *ShapeQueue) Reset() {
	q.items = q.items[:0]
	o := q.Volume.Origin()
	q.Volume.ForEach(func(x, y, z int, m material.Material) {
		q.items = append(q.items, placement{pos: q.At.Add(mathx.V(x, y, z)).Sub(o), m: m})
	})
	q.cursor = 0
	q.entry = NewEntry(q.Actor)
}

func (q *ShapeQueue) Finished() bool { return q.entry != nil && q.entry.Finished() }

// Entry returns the entry being recorded.
func (q *ShapeQueue) Entry() *Entry { return q.entry }

// Remaining is the number of voxels not yet flushed.
func (q *ShapeQueue) Remaining() int { return len(q.items) - q.cursor }

func (q *ShapeQueue) Flush(w Writer, budget int) int {
	if q.entry == nil {
		q.Reset()
	}
	if q.entry.Finished() {
		return 0
	}
	n := 0
	for q.cursor < len(q.items) && n < budget {
		it := q.items[q.cursor]
		q.cursor++
		n++
		from := w.MaterialAt(it.pos.X, it.pos.Y, it.pos.Z)
		if from == it.m {
			continue
		}
		w.SetMaterial(it.pos.X, it.pos.Y, it.pos.Z, it.m)
		// the world may refuse the write (out of bounds, unknown material)
		if w.MaterialAt(it.pos.X, it.pos.Y, it.pos.Z) != it.m {
			continue
		}
		if err := q.entry.Record(it.pos, from, it.m); err != nil {
			return n
		}
		if q.OnChange != nil {
			q.OnChange(q.entry, Change{Pos: it.pos, From: from, To: it.m})
		}
	}
	if q.cursor == len(q.items) {
		q.finish()
	}
	return n
}

// Abort finishes the entry with whatever has been flushed so far.
func (q *ShapeQueue) Abort() {
	if q.entry == nil || q.entry.Finished() {
		return
	}
	q.cursor = len(q.items)
	q.finish()
}

func (q *ShapeQueue) finish() {
	q.entry.Finish()
	if q.OnFinish != nil {
		q.OnFinish(q.entry)
	}
}
