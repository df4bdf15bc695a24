package log

import (
	"path/filepath"
	"testing"
	"time"

	"voxelsniper.dev/internal/sim/engine"
)

func TestJSONLZstdWriter_RotatesByHour(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2024, 5, 1, 10, 59, 0, 0, time.UTC)
	w := NewJSONLZstdWriter(dir, "audit").WithClock(func() time.Time { return now })

	if err := w.Write(engine.AuditEntry{Tick: 1, Actor: "S0001", Action: engine.ActionSetBlock}); err != nil {
		t.Fatalf("write: %v", err)
	}
	now = now.Add(2 * time.Minute)
	for i := 2; i <= 3; i++ {
		if err := w.Write(engine.AuditEntry{Tick: uint64(i), Actor: "S0001", Action: engine.ActionUndo}); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	files, err := Files(dir, "audit")
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	if len(files) != 2 || filepath.Base(files[0]) != "audit-2024-05-01-10.jsonl.zst" || filepath.Base(files[1]) != "audit-2024-05-01-11.jsonl.zst" {
		t.Fatalf("files: %v", files)
	}

	var ticks []uint64
	for _, f := range files {
		err := ReadJSONL(f, func(a engine.AuditEntry) error {
			ticks = append(ticks, a.Tick)
			return nil
		})
		if err != nil {
			t.Fatalf("ReadJSONL: %v", err)
		}
	}
	if len(ticks) != 3 || ticks[0] != 1 || ticks[2] != 3 {
		t.Fatalf("ticks: %v", ticks)
	}
}

func TestEditLogger_WritesUnderEditsDir(t *testing.T) {
	dir := t.TempDir()
	l := NewEditLogger(dir)
	if err := l.WriteEdit(engine.EditLogEntry{Tick: 4, Actor: "S0002", Action: "EDIT", Changes: 27}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	files, err := Files(filepath.Join(dir, "edits"), "edits")
	if err != nil || len(files) != 1 {
		t.Fatalf("files: %v %v", files, err)
	}
	var got []engine.EditLogEntry
	if err := ReadJSONL(files[0], func(e engine.EditLogEntry) error {
		got = append(got, e)
		return nil
	}); err != nil {
		t.Fatalf("ReadJSONL: %v", err)
	}
	if len(got) != 1 || got[0].Changes != 27 {
		t.Fatalf("entries: %+v", got)
	}
}
