package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	persistlog "voxelsniper.dev/internal/persistence/log"
	"voxelsniper.dev/internal/persistence/snapshot"
	"voxelsniper.dev/internal/sim/catalogs"
	"voxelsniper.dev/internal/sim/engine"
	"voxelsniper.dev/internal/sim/material"
	"voxelsniper.dev/internal/sim/tuning"
	"voxelsniper.dev/internal/sim/worldstore"
)

func main() {
	var (
		snapPath   = flag.String("snapshot", "", "path to .world.zst to start from (optional; defaults to a fresh world)")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		eventsDir  = flag.String("events", "", "events dir containing events-*.jsonl.zst (default: <data>/events)")
		configDir  = flag.String("configs", "./configs", "config directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		fromTick   = flag.Uint64("from_tick", 0, "start verifying from tick (inclusive, optional)")
		toTick     = flag.Uint64("to_tick", 0, "stop at tick (inclusive, optional)")
	)
	flag.Parse()

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load catalogs:", err)
		os.Exit(1)
	}
	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if errors.Is(err, fs.ErrNotExist) {
		tune = tuning.Defaults()
	} else if err != nil {
		fmt.Fprintln(os.Stderr, "load tuning:", err)
		os.Exit(1)
	}

	mats := material.NewRegistry(&cats.Materials)
	var store *worldstore.Store
	startTick := uint64(0)
	if *snapPath != "" {
		snap, err := snapshot.ReadWorld(*snapPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "read snapshot:", err)
			os.Exit(1)
		}
		if store, err = worldstore.Import(snap, mats); err != nil {
			fmt.Fprintln(os.Stderr, "import snapshot:", err)
			os.Exit(1)
		}
		startTick = snap.Header.Tick + 1
		fmt.Printf("snapshot v%d tick=%d seed=%d height=%d chunks=%d palette=%d\n",
			snap.Header.Version, snap.Header.Tick, snap.Seed, snap.Height, len(snap.Chunks), len(snap.Palette))
	} else {
		store = worldstore.New(worldstore.Gen{
			Seed:      tune.World.Seed,
			Height:    tune.World.Height,
			BoundaryR: tune.World.BoundaryR,
			GroundY:   tune.World.GroundY,
			WaterY:    tune.World.WaterY,
		}, mats)
	}

	// Section saves during replay land in a scratch copy of the live dir.
	scratch, err := os.MkdirTemp("", "voxelsniper-replay-")
	if err != nil {
		fmt.Fprintln(os.Stderr, "scratch dir:", err)
		os.Exit(1)
	}
	defer os.RemoveAll(scratch)
	if err := copySections(filepath.Join(*dataDir, "sections"), scratch); err != nil {
		fmt.Fprintln(os.Stderr, "copy sections:", err)
		os.Exit(1)
	}

	cfg := engine.ConfigFromTuning(tune)
	cfg.SectionDir = scratch
	cfg.SnapshotDir = ""
	eng, err := engine.New(cfg, cats, store, engine.Options{Logger: log.New(io.Discard, "", 0)})
	if err != nil {
		fmt.Fprintln(os.Stderr, "engine:", err)
		os.Exit(1)
	}
	eng.SetTick(startTick)

	dir := strings.TrimSpace(*eventsDir)
	if dir == "" {
		dir = filepath.Join(*dataDir, "events")
	}
	files, err := persistlog.Files(dir, "events")
	if err != nil {
		fmt.Fprintln(os.Stderr, "list events:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no events files found in", dir)
		os.Exit(1)
	}

	verifyFrom := *fromTick
	if verifyFrom == 0 {
		verifyFrom = startTick
	}
	r := &replayer{eng: eng, start: startTick, verifyFrom: verifyFrom, to: *toTick}
	if err := r.run(files); err != nil {
		fmt.Fprintln(os.Stderr, "replay:", err)
		os.Exit(1)
	}
	fmt.Printf("replay ok: checked=%d ticks (from tick=%d)\n", r.checked, startTick)
}

func copySections(src, dst string) error {
	paths, err := filepath.Glob(filepath.Join(src, "*.section.zst"))
	if err != nil {
		return err
	}
	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(dst, filepath.Base(p)), b, 0o644); err != nil {
			return err
		}
	}
	return nil
}

var errDone = errors.New("replay: reached to_tick")

type replayer struct {
	eng        *engine.Engine
	start      uint64
	verifyFrom uint64
	to         uint64
	checked    uint64
}

func (r *replayer) run(files []string) error {
	for _, path := range files {
		if err := r.replayFile(path); err != nil {
			if errors.Is(err, errDone) {
				return nil
			}
			return err
		}
	}
	return nil
}

func (r *replayer) replayFile(path string) error {
	return persistlog.ReadJSONL(path, func(entry engine.TickLogEntry) error {
		return r.apply(entry, filepath.Base(path))
	})
}

func (r *replayer) apply(entry engine.TickLogEntry, src string) error {
	if entry.Tick < r.start {
		return nil
	}
	if r.to != 0 && entry.Tick > r.to {
		return errDone
	}
	if entry.Tick != r.eng.CurrentTick() {
		return fmt.Errorf("tick mismatch: want=%d got=%d (file=%s)", r.eng.CurrentTick(), entry.Tick, src)
	}

	joins := make([]engine.JoinRequest, 0, len(entry.Joins))
	for _, j := range entry.Joins {
		joins = append(joins, engine.JoinRequest{Name: j.Name})
	}
	acts := make([]engine.ActionEnvelope, 0, len(entry.Actions))
	for _, a := range entry.Actions {
		acts = append(acts, engine.ActionEnvelope{SniperID: a.SniperID, Act: a.Act})
	}

	tick, digest := r.eng.StepOnce(joins, entry.Leaves, acts)
	if tick != entry.Tick {
		return fmt.Errorf("internal tick mismatch: stepped=%d entry=%d (file=%s)", tick, entry.Tick, src)
	}
	if tick >= r.verifyFrom {
		r.checked++
		if digest != entry.Digest {
			return fmt.Errorf("digest mismatch at tick %d: got=%s want=%s", tick, digest, entry.Digest)
		}
	}
	return nil
}
