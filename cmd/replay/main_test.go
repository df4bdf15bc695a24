package main

import (
	"io"
	"log"
	"strings"
	"testing"

	persistlog "voxelsniper.dev/internal/persistence/log"
	"voxelsniper.dev/internal/protocol"
	"voxelsniper.dev/internal/sim/catalogs"
	"voxelsniper.dev/internal/sim/engine"
	"voxelsniper.dev/internal/sim/material"
	"voxelsniper.dev/internal/sim/tuning"
	"voxelsniper.dev/internal/sim/worldstore"
)

func newEngine(t *testing.T, opts engine.Options) *engine.Engine {
	t.Helper()
	cats := catalogs.Builtin()
	store := worldstore.New(worldstore.Gen{Seed: 3, Height: 32, BoundaryR: 64, GroundY: 10, WaterY: 5}, material.NewRegistry(&cats.Materials))
	cfg := engine.ConfigFromTuning(tuning.Defaults())
	cfg.BlocksPerTick = 8
	cfg.DefaultBrushMaterial = "STONE"
	opts.Logger = log.New(io.Discard, "", 0)
	e, err := engine.New(cfg, cats, store, opts)
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	return e
}

func acts(id string, cmds ...protocol.CommandReq) []engine.ActionEnvelope {
	return []engine.ActionEnvelope{{SniperID: id, Act: protocol.ActMsg{Type: protocol.TypeAct, ProtocolVersion: protocol.Version, Commands: cmds}}}
}

func recordSession(t *testing.T, dir string) int {
	t.Helper()
	tl := persistlog.NewTickLogger(dir)
	e := newEngine(t, engine.Options{Ticks: []engine.TickSink{tl}})

	size := 1.0
	target := [3]int{4, 20, 4}
	e.StepOnce([]engine.JoinRequest{{Name: "alice"}}, nil, nil)
	e.StepOnce(nil, nil, acts("S0001",
		protocol.CommandReq{ID: "b", Type: protocol.CmdBrush, Brush: "ball material"},
		protocol.CommandReq{ID: "s", Type: protocol.CmdSize, Size: &size},
		protocol.CommandReq{ID: "x", Type: protocol.CmdSnipe, Target: &target},
	))
	steps := 2
	for i := 0; i < 4; i++ {
		e.StepOnce(nil, nil, nil)
		steps++
	}
	e.StepOnce(nil, nil, acts("S0001", protocol.CommandReq{ID: "u", Type: protocol.CmdUndo}))
	e.StepOnce(nil, []string{"S0001"}, nil)
	steps += 2
	if err := tl.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return steps
}

func TestReplay_ReproducesDigests(t *testing.T) {
	dir := t.TempDir()
	steps := recordSession(t, dir)

	files, err := persistlog.Files(dir+"/events", "events")
	if err != nil || len(files) == 0 {
		t.Fatalf("files=%v err=%v", files, err)
	}
	r := &replayer{eng: newEngine(t, engine.Options{})}
	if err := r.run(files); err != nil {
		t.Fatalf("replay: %v", err)
	}
	if r.checked != uint64(steps) {
		t.Fatalf("checked=%d want %d", r.checked, steps)
	}
}

func TestReplay_StopsAtToTick(t *testing.T) {
	dir := t.TempDir()
	recordSession(t, dir)
	files, _ := persistlog.Files(dir+"/events", "events")

	r := &replayer{eng: newEngine(t, engine.Options{}), to: 2}
	if err := r.run(files); err != nil {
		t.Fatalf("replay: %v", err)
	}
	if r.checked != 3 {
		t.Fatalf("checked=%d want 3", r.checked)
	}
}

func TestReplay_DetectsDigestMismatch(t *testing.T) {
	r := &replayer{eng: newEngine(t, engine.Options{})}
	err := r.apply(engine.TickLogEntry{Tick: 0, Digest: "bogus"}, "test")
	if err == nil || !strings.Contains(err.Error(), "digest mismatch") {
		t.Fatalf("err=%v", err)
	}
	err = r.apply(engine.TickLogEntry{Tick: 5}, "test")
	if err == nil || !strings.Contains(err.Error(), "tick mismatch") {
		t.Fatalf("err=%v", err)
	}
}
