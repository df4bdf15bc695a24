package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"voxelsniper.dev/internal/sim/engine"
)

func TestLatestSnapshot_PicksHighestTick(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"9.world.zst", "120.world.zst", "45.world.zst", "200.rollback.world.zst", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if got, want := latestSnapshot(dir), filepath.Join(dir, "120.world.zst"); got != want {
		t.Fatalf("latestSnapshot=%q want %q", got, want)
	}
	if got := latestSnapshot(filepath.Join(dir, "missing")); got != "" {
		t.Fatalf("missing dir: %q", got)
	}
}

func TestWriteMetrics(t *testing.T) {
	var buf bytes.Buffer
	m := engine.Metrics{Tick: 12, Snipers: 2, BlocksWritten: 27}
	m.QueueDepths.Inbox = 3
	writeMetrics(&buf, m, nil)
	out := buf.String()
	for _, want := range []string{
		"voxelsniper_tick 12\n",
		"voxelsniper_snipers 2\n",
		"voxelsniper_blocks_written_total 27\n",
		`voxelsniper_queue_depth{queue="inbox"} 3`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, "index_dropped") {
		t.Fatalf("index metrics without index")
	}
}

func TestIsLoopbackRemote(t *testing.T) {
	cases := map[string]bool{
		"127.0.0.1:5000": true,
		"[::1]:80":       true,
		"10.0.0.2:80":    false,
		"garbage":        false,
	}
	for in, want := range cases {
		if got := isLoopbackRemote(in); got != want {
			t.Fatalf("%s: got %v want %v", in, got, want)
		}
	}
}
