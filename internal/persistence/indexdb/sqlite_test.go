package indexdb

import (
	"context"
	"path/filepath"
	"testing"

	"voxelsniper.dev/internal/sim/catalogs"
	"voxelsniper.dev/internal/sim/engine"
	"voxelsniper.dev/internal/sim/tuning"
)

func openTest(t *testing.T) *SQLiteIndex {
	t.Helper()
	idx, err := OpenSQLite(filepath.Join(t.TempDir(), "index.sqlite"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestSQLiteIndex_AuditsAndEdits(t *testing.T) {
	idx := openTest(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_ = idx.WriteAudit(engine.AuditEntry{Tick: 5, Actor: "S0001", Action: engine.ActionSetBlock, EntryID: "e1", Pos: [3]int{i, 20, 0}, From: "AIR", To: "STONE"})
	}
	_ = idx.WriteAudit(engine.AuditEntry{Tick: 6, Actor: "S0002", Action: engine.ActionUndo, EntryID: "e2", Pos: [3]int{9, 9, 9}, From: "STONE", To: "AIR"})
	_ = idx.WriteEdit(engine.EditLogEntry{Tick: 5, Actor: "S0001", Action: "EDIT", EntryID: "e1", Brush: "voxel material", Changes: 3})
	if err := idx.Sync(ctx); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	all, err := idx.Audits(ctx, "", 10)
	if err != nil {
		t.Fatalf("Audits: %v", err)
	}
	if len(all) != 4 || all[0].Actor != "S0002" || all[0].To != "AIR" {
		t.Fatalf("audits: %+v", all)
	}
	mine, err := idx.Audits(ctx, "S0001", 2)
	if err != nil {
		t.Fatalf("Audits: %v", err)
	}
	if len(mine) != 2 || mine[0].Pos != [3]int{2, 20, 0} {
		t.Fatalf("filtered audits: %+v", mine)
	}

	edits, err := idx.Edits(ctx, "", 0)
	if err != nil {
		t.Fatalf("Edits: %v", err)
	}
	if len(edits) != 1 || edits[0].Brush != "voxel material" || edits[0].Changes != 3 {
		t.Fatalf("edits: %+v", edits)
	}
}

func TestSQLiteIndex_SectionsAndSnapshots(t *testing.T) {
	idx := openTest(t)
	ctx := context.Background()

	idx.RecordSection(engine.SectionRecord{Tick: 1, Name: "cube", Actor: "S0001", Path: "/tmp/cube.section.zst", Voxels: 27})
	idx.RecordSection(engine.SectionRecord{Tick: 2, Name: "cube", Actor: "S0001", Path: "/tmp/cube.section.zst", Voxels: 64, Wide: true})
	idx.RecordWorldSnapshot("/tmp/100.world.zst", 100, 4)
	idx.RecordWorldSnapshot("/tmp/200.world.zst", 200, 6)
	if err := idx.Sync(ctx); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	secs, err := idx.Sections(ctx)
	if err != nil {
		t.Fatalf("Sections: %v", err)
	}
	if len(secs) != 1 || secs[0].Voxels != 64 || !secs[0].Wide {
		t.Fatalf("sections: %+v", secs)
	}
	path, tick, err := idx.LatestSnapshot(ctx)
	if err != nil || path != "/tmp/200.world.zst" || tick != 200 {
		t.Fatalf("latest: %q %d %v", path, tick, err)
	}
}

func TestSQLiteIndex_UpsertCatalogs(t *testing.T) {
	idx := openTest(t)
	cats := catalogs.Builtin()
	if err := idx.UpsertCatalogs(cats, tuning.Defaults()); err != nil {
		t.Fatalf("UpsertCatalogs: %v", err)
	}
	d, err := idx.CatalogDigest(context.Background(), "materials_palette")
	if err != nil || d != cats.Materials.PaletteDigest {
		t.Fatalf("digest: %q %v", d, err)
	}
}

func TestSQLiteIndex_QueueDropStats(t *testing.T) {
	s := &SQLiteIndex{ch: make(chan req, 1)}
	s.ch <- req{kind: reqAudit}

	_ = s.WriteAudit(engine.AuditEntry{Tick: 2})
	_ = s.WriteEdit(engine.EditLogEntry{Tick: 2})
	s.RecordSection(engine.SectionRecord{Name: "x"})
	s.RecordWorldSnapshot("/tmp/2.world.zst", 2, 1)

	st := s.Stats()
	if st.DropAuditTotal != 1 || st.DropEditTotal != 1 || st.DropSectionTotal != 1 || st.DropSnapshotTotal != 1 {
		t.Fatalf("drops: %+v", st)
	}
	if st.QueueDepth != 1 || st.QueueCapacity != 1 {
		t.Fatalf("queue stats mismatch: depth=%d cap=%d", st.QueueDepth, st.QueueCapacity)
	}
}
