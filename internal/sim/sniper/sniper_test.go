package sniper

import (
	"errors"
	"testing"

	"voxelsniper.dev/internal/sim/brush"
	"voxelsniper.dev/internal/sim/filter"
	"voxelsniper.dev/internal/sim/history"
	"voxelsniper.dev/internal/sim/material"
	"voxelsniper.dev/internal/sim/mathx"
	"voxelsniper.dev/internal/sim/tuning"
)

type mapWorld map[mathx.Vec3i]material.Material

func (w mapWorld) MaterialAt(x, y, z int) material.Material {
	if m, ok := w[mathx.V(x, y, z)]; ok {
		return m
	}
	return "AIR"
}

func (w mapWorld) SetMaterial(x, y, z int, m material.Material) { w[mathx.V(x, y, z)] = m }
func (w mapWorld) IsLiquid(m material.Material) bool            { return m == "WATER" }

func newSniper() *Sniper {
	d := tuning.Defaults()
	return New("S1", "tester", brush.NewRegistry(), Defaults{
		Brush:        d.DefaultBrush,
		Size:         d.DefaultBrushSize,
		Material:     material.Material(d.DefaultBrushMaterial),
		ExcludeFluid: d.ExcludeFluid,
	}, 5, d.Messages)
}

func TestResetSettings(t *testing.T) {
	s := newSniper()
	if s.Brush() != "voxel material" {
		t.Fatalf("brush=%q", s.Brush())
	}
	if m, _ := s.Vars.Material(brush.KeyMaterial); m != "AIR" {
		t.Fatalf("material=%q", m)
	}
	if f, _ := s.Vars.Float(brush.KeyBrushSize); f != 3 {
		t.Fatalf("size=%v", f)
	}
	s.SetMaterial("STONE")
	s.SetSize(1)
	s.ResetSettings()
	if m, _ := s.Vars.Material(brush.KeyMaterial); m != "AIR" {
		t.Fatalf("reset did not restore material")
	}
}

func TestSetBrush_Unknown(t *testing.T) {
	s := newSniper()
	s.DrainMessages()
	if err := s.SetBrush("voxel sparkle"); !errors.Is(err, brush.ErrUnknownBrush) {
		t.Fatalf("expected ErrUnknownBrush, got %v", err)
	}
	msgs := s.DrainMessages()
	if len(msgs) != 1 || msgs[0] != "Could not find a brush part named sparkle" {
		t.Fatalf("messages=%q", msgs)
	}
	if s.Brush() != "voxel material" {
		t.Fatalf("failed SetBrush must keep the old chain")
	}
}

func TestSnipeFlushUndoRedo(t *testing.T) {
	w := mapWorld{}
	s := newSniper()
	s.SetSize(1)
	s.SetMaterial("STONE")

	var edits []*history.Entry
	s.OnEdit = func(e *history.Entry) { edits = append(edits, e) }

	if err := s.Snipe(w, mathx.V(0, 10, 0)); err != nil {
		t.Fatalf("Snipe: %v", err)
	}
	if !s.Processing() {
		t.Fatalf("expected processing after snipe")
	}
	if err := s.Snipe(w, mathx.V(50, 10, 0)); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	if used := s.Flush(w, 20); used != 20 || !s.Processing() {
		t.Fatalf("first flush used=%d processing=%v", used, s.Processing())
	}
	if s.History.UndoLen() != 0 {
		t.Fatalf("unfinished edit must not reach history")
	}
	if used := s.Flush(w, 20); used != 7 || s.Processing() {
		t.Fatalf("second flush used=%d processing=%v", used, s.Processing())
	}
	if len(edits) != 1 || edits[0].Len() != 27 || s.History.UndoLen() != 1 {
		t.Fatalf("edit not recorded: edits=%d", len(edits))
	}
	if w.MaterialAt(1, 11, 1) != "STONE" {
		t.Fatalf("world not written")
	}

	s.DrainMessages()
	if n := s.UndoHistory(w, 3); n != 1 {
		t.Fatalf("UndoHistory=%d", n)
	}
	if w.MaterialAt(1, 11, 1) != "AIR" {
		t.Fatalf("undo did not restore")
	}
	if n := s.RedoHistory(w, 1); n != 1 || w.MaterialAt(1, 11, 1) != "STONE" {
		t.Fatalf("redo failed")
	}
	msgs := s.DrainMessages()
	if len(msgs) != 2 || msgs[0] != "Undid 1 changes." || msgs[1] != "Redid 1 changes." {
		t.Fatalf("messages=%q", msgs)
	}
}

func TestSnipe_MissingMaterial(t *testing.T) {
	s := newSniper()
	s.Vars.Delete(brush.KeyMaterial)
	err := s.Snipe(mapWorld{}, mathx.V(0, 0, 0))
	if !errors.Is(err, filter.ErrMissingMaterial) {
		t.Fatalf("expected ErrMissingMaterial, got %v", err)
	}
	if s.Processing() {
		t.Fatalf("failed snipe must not mark processing")
	}
}

func TestCancel(t *testing.T) {
	s := newSniper()
	s.SetMaterial("STONE")
	_ = s.Snipe(mapWorld{}, mathx.V(0, 0, 0))
	if n := s.Cancel(); n != 1 || s.Processing() || s.Pending.Len() != 0 {
		t.Fatalf("Cancel n=%d", n)
	}
}

func TestCancel_PartialEditIsUndoable(t *testing.T) {
	w := mapWorld{}
	s := newSniper()
	s.SetSize(1)
	s.SetMaterial("STONE")

	var writes []history.Change
	s.OnWrite = func(_ *history.Entry, c history.Change) { writes = append(writes, c) }
	var edits []*history.Entry
	s.OnEdit = func(e *history.Entry) { edits = append(edits, e) }

	if err := s.Snipe(w, mathx.V(0, 10, 0)); err != nil {
		t.Fatalf("Snipe: %v", err)
	}
	s.Flush(w, 10)
	if len(writes) != 10 || len(edits) != 0 {
		t.Fatalf("writes=%d edits=%d after partial flush", len(writes), len(edits))
	}
	if n := s.Cancel(); n != 1 {
		t.Fatalf("Cancel=%d", n)
	}
	if len(edits) != 1 || edits[0].Len() != 10 || !edits[0].Finished() || s.History.UndoLen() != 1 {
		t.Fatalf("partial edit not recorded: edits=%d undo=%d", len(edits), s.History.UndoLen())
	}
	if n := s.UndoHistory(w, 5); n != 1 {
		t.Fatalf("UndoHistory=%d", n)
	}
	for p, m := range w {
		if m != "AIR" {
			t.Fatalf("%v=%s after undo", p, m)
		}
	}
}

func TestNoopEditKeepsRedo(t *testing.T) {
	w := mapWorld{}
	s := newSniper()
	s.SetSize(1)
	s.SetMaterial("STONE")

	_ = s.Snipe(w, mathx.V(0, 10, 0))
	s.Flush(w, 100)
	s.UndoHistory(w, 1)
	if s.History.RedoLen() != 1 {
		t.Fatalf("RedoLen=%d", s.History.RedoLen())
	}

	// painting air over air changes nothing
	s.SetMaterial("AIR")
	if err := s.Snipe(w, mathx.V(0, 10, 0)); err != nil {
		t.Fatalf("Snipe: %v", err)
	}
	s.Flush(w, 100)
	if s.History.UndoLen() != 0 || s.History.RedoLen() != 1 {
		t.Fatalf("noop edit touched history: undo=%d redo=%d", s.History.UndoLen(), s.History.RedoLen())
	}
	if n := s.RedoHistory(w, 1); n != 1 || w.MaterialAt(0, 10, 0) != "STONE" {
		t.Fatalf("redo after noop edit failed")
	}
}
