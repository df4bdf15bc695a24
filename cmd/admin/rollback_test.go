package main

import (
	"path/filepath"
	"testing"

	persistlog "voxelsniper.dev/internal/persistence/log"
	"voxelsniper.dev/internal/sim/catalogs"
	"voxelsniper.dev/internal/sim/engine"
	"voxelsniper.dev/internal/sim/material"
	"voxelsniper.dev/internal/sim/worldstore"
)

func TestParseAABB_Normalizes(t *testing.T) {
	min, max, err := parseAABB("5,1,-2:0,3,4")
	if err != nil {
		t.Fatalf("parseAABB: %v", err)
	}
	if min != [3]int{0, 1, -2} || max != [3]int{5, 3, 4} {
		t.Fatalf("min=%v max=%v", min, max)
	}
	if _, _, err := parseAABB("1,2,3"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestRollback_RestoresFromAudit(t *testing.T) {
	dir := t.TempDir()
	l := persistlog.NewAuditLogger(dir)
	writes := []engine.AuditEntry{
		{Tick: 1, Actor: "S0001", Action: engine.ActionSetBlock, Pos: [3]int{0, 20, 0}, From: "AIR", To: "STONE"},
		{Tick: 2, Actor: "S0001", Action: engine.ActionSetBlock, Pos: [3]int{0, 20, 0}, From: "STONE", To: "GLASS"},
		{Tick: 2, Actor: "S0002", Action: engine.ActionSetBlock, Pos: [3]int{1, 20, 0}, From: "AIR", To: "SAND"},
		{Tick: 3, Actor: "S0001", Action: engine.ActionSetBlock, Pos: [3]int{50, 20, 0}, From: "AIR", To: "DIRT"},
	}
	for _, w := range writes {
		if err := l.WriteAudit(w); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	cats := catalogs.Builtin()
	store := worldstore.New(worldstore.Gen{Seed: 1, Height: 32, BoundaryR: 64, GroundY: 10, WaterY: 5}, material.NewRegistry(&cats.Materials))
	store.SetMaterial(0, 20, 0, "GLASS")
	store.SetMaterial(1, 20, 0, "SAND")
	store.SetMaterial(50, 20, 0, "DIRT")

	recs, err := readAudit(filepath.Join(dir, "audit"), auditFilter{Since: 0, To: 10, Min: [3]int{0, 0, 0}, Max: [3]int{10, 31, 10}, Actor: "S0001"})
	if err != nil {
		t.Fatalf("readAudit: %v", err)
	}
	if len(recs) != 2 || recs[0].Entry.Tick != 2 {
		t.Fatalf("recs: %+v", recs)
	}
	applied, skipped := applyRollback(store, recs)
	if applied != 2 || skipped != 0 {
		t.Fatalf("applied=%d skipped=%d", applied, skipped)
	}
	if got := store.MaterialAt(0, 20, 0); got != "AIR" {
		t.Fatalf("rolled back block: %s", got)
	}
	if got := store.MaterialAt(1, 20, 0); got != "SAND" {
		t.Fatalf("other actor touched: %s", got)
	}
	if got := store.MaterialAt(50, 20, 0); got != "DIRT" {
		t.Fatalf("outside aabb touched: %s", got)
	}
}
