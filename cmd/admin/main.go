package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	persistlog "voxelsniper.dev/internal/persistence/log"
	"voxelsniper.dev/internal/persistence/snapshot"
	"voxelsniper.dev/internal/sim/catalogs"
	"voxelsniper.dev/internal/sim/engine"
	"voxelsniper.dev/internal/sim/material"
	"voxelsniper.dev/internal/sim/mathx"
	"voxelsniper.dev/internal/sim/volume"
	"voxelsniper.dev/internal/sim/worldstore"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "rollback":
			rollbackCmd(os.Args[2:])
			return
		case "db":
			dbCmd(os.Args[2:])
			return
		case "state":
			stateCmd(os.Args[2:])
			return
		case "sections":
			sectionsCmd(os.Args[2:])
			return
		case "section":
			sectionCmd(os.Args[2:])
			return
		}
	}
	snapshotsCmd(os.Args[1:])
}

func snapshotsCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	_ = fs.Parse(args)

	paths, _ := filepath.Glob(filepath.Join(*dataDir, "snapshots", "*.world.zst"))
	sort.Strings(paths)
	for _, p := range paths {
		h, err := snapshot.ReadHeader(p)
		if err != nil {
			fmt.Printf("%s\terror: %v\n", filepath.Base(p), err)
			continue
		}
		fmt.Printf("%s\ttick=%d\t%s\n", filepath.Base(p), h.Tick, fileSize(p))
	}
}

func sectionsCmd(args []string) {
	fs := flag.NewFlagSet("sections", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	_ = fs.Parse(args)

	paths, _ := filepath.Glob(filepath.Join(*dataDir, "sections", "*.section.zst"))
	sort.Strings(paths)
	for _, p := range paths {
		h, err := snapshot.ReadHeader(p)
		if err != nil {
			fmt.Printf("%s\terror: %v\n", filepath.Base(p), err)
			continue
		}
		fmt.Printf("%s\ttick=%d\tvoxels=%s\t%s\n", h.Name, h.Tick, humanize.Comma(int64(h.Voxels)), fileSize(p))
	}
}

func sectionCmd(args []string) {
	fs := flag.NewFlagSet("section", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	name := fs.String("name", "", "section name")
	path := fs.String("path", "", "section file (overrides -name)")
	_ = fs.Parse(args)

	p := strings.TrimSpace(*path)
	if p == "" {
		if strings.TrimSpace(*name) == "" {
			fmt.Fprintln(os.Stderr, "missing -name or -path")
			os.Exit(2)
		}
		p = engine.SectionPath(filepath.Join(*dataDir, "sections"), *name)
	}
	sec, err := snapshot.ReadSection(p)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read section:", err)
		os.Exit(1)
	}
	v, err := volume.FromSection(sec)
	if err != nil {
		fmt.Fprintln(os.Stderr, "decode section:", err)
		os.Exit(1)
	}
	counts := map[material.Material]int{}
	v.ForEach(func(_, _, _ int, m material.Material) { counts[m]++ })

	printJSON(struct {
		Name       string         `json:"name"`
		Size       [3]int         `json:"size"`
		Origin     [3]int         `json:"origin"`
		Default    string         `json:"default"`
		PlaneWidth string         `json:"plane_width"`
		Set        int            `json:"set"`
		Materials  map[string]int `json:"materials"`
	}{
		Name:       sec.Name,
		Size:       [3]int{v.Width(), v.Height(), v.Length()},
		Origin:     v.Origin().ToArray(),
		Default:    string(v.DefaultMaterial()),
		PlaneWidth: v.PlaneWidth().String(),
		Set:        v.Count(),
		Materials:  stringKeys(counts),
	})
}

func stringKeys(in map[material.Material]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[string(k)] = v
	}
	return out
}

func fileSize(p string) string {
	fi, err := os.Stat(p)
	if err != nil {
		return "?"
	}
	return humanize.Bytes(uint64(fi.Size()))
}

func rollbackCmd(args []string) {
	fs := flag.NewFlagSet("rollback", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	configDir := fs.String("configs", "./configs", "config directory")
	snapPath := fs.String("snapshot", "", "snapshot path to rollback from (optional; defaults to latest)")
	aabb := fs.String("aabb", "", "AABB filter: x1,y1,z1:x2,y2,z2 (required)")
	sinceTick := fs.Uint64("since_tick", 0, "rollback changes since tick (inclusive)")
	toTick := fs.Uint64("to_tick", 0, "rollback changes up to tick (inclusive, optional; defaults to snapshot tick)")
	actor := fs.String("actor", "", "only rollback changes by this sniper id (optional)")
	outPath := fs.String("out", "", "output snapshot path (optional)")
	_ = fs.Parse(args)

	if strings.TrimSpace(*aabb) == "" {
		fmt.Fprintln(os.Stderr, "missing -aabb")
		os.Exit(2)
	}
	snapDir := filepath.Join(*dataDir, "snapshots")
	snapshotToLoad := strings.TrimSpace(*snapPath)
	if snapshotToLoad == "" {
		snapshotToLoad = latestSnapshot(snapDir)
	}
	if snapshotToLoad == "" {
		fmt.Fprintln(os.Stderr, "no snapshot found; provide -snapshot or run server until it writes one")
		os.Exit(2)
	}

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load catalogs:", err)
		os.Exit(1)
	}
	snap, err := snapshot.ReadWorld(snapshotToLoad)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read snapshot:", err)
		os.Exit(1)
	}
	store, err := worldstore.Import(snap, material.NewRegistry(&cats.Materials))
	if err != nil {
		fmt.Fprintln(os.Stderr, "import snapshot:", err)
		os.Exit(1)
	}

	min, max, err := parseAABB(*aabb)
	if err != nil {
		fmt.Fprintln(os.Stderr, "bad -aabb:", err)
		os.Exit(2)
	}
	endTick := *toTick
	if endTick == 0 || endTick > snap.Header.Tick {
		endTick = snap.Header.Tick
	}

	f := auditFilter{Since: *sinceTick, To: endTick, Min: min, Max: max, Actor: strings.TrimSpace(*actor)}
	recs, err := readAudit(filepath.Join(*dataDir, "audit"), f)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read audit:", err)
		os.Exit(1)
	}
	if len(recs) == 0 {
		fmt.Println("no matching audit entries; nothing to rollback")
		return
	}

	applied, skipped := applyRollback(store, recs)

	if strings.TrimSpace(*outPath) == "" {
		*outPath = filepath.Join(snapDir, fmt.Sprintf("%d.rollback.world.zst", snap.Header.Tick))
	}
	if err := snapshot.WriteWorld(*outPath, store.Export(snap.Header.Tick)); err != nil {
		fmt.Fprintln(os.Stderr, "write snapshot:", err)
		os.Exit(1)
	}

	fmt.Printf("rollback ok: snapshot=%s tick=%d aabb=%s since=%d to=%d entries=%d applied=%d skipped=%d out=%s\n",
		filepath.Base(snapshotToLoad), snap.Header.Tick, *aabb, *sinceTick, endTick, len(recs), applied, skipped, *outPath)
}

type auditFilter struct {
	Since, To uint64
	Min, Max  [3]int
	Actor     string
}

func (f auditFilter) match(e engine.AuditEntry) bool {
	if e.Tick < f.Since || e.Tick > f.To {
		return false
	}
	if f.Actor != "" && e.Actor != f.Actor {
		return false
	}
	return withinAABB(e.Pos, f.Min, f.Max)
}

type auditRec struct {
	Seq   uint64
	Entry engine.AuditEntry
}

// readAudit returns matching audit entries newest first. Undo and redo
// writes are included: rolling back restores whatever each write replaced.
func readAudit(dir string, f auditFilter) ([]auditRec, error) {
	files, err := persistlog.Files(dir, "audit")
	if err != nil {
		return nil, err
	}
	out := make([]auditRec, 0, 1024)
	var seq uint64
	for _, path := range files {
		err := persistlog.ReadJSONL(path, func(e engine.AuditEntry) error {
			seq++
			if f.match(e) {
				out = append(out, auditRec{Seq: seq, Entry: e})
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Entry.Tick != out[j].Entry.Tick {
			return out[i].Entry.Tick > out[j].Entry.Tick
		}
		return out[i].Seq > out[j].Seq
	})
	return out, nil
}

func applyRollback(store *worldstore.Store, recs []auditRec) (applied, skipped int) {
	for _, r := range recs {
		p := mathx.FromArray(r.Entry.Pos)
		if !store.InBounds(p.X, p.Y, p.Z) {
			skipped++
			continue
		}
		from, ok := store.Mats.Lookup(r.Entry.From)
		if !ok {
			skipped++
			continue
		}
		store.SetMaterial(p.X, p.Y, p.Z, from)
		applied++
	}
	return applied, skipped
}

func withinAABB(pos [3]int, min, max [3]int) bool {
	return pos[0] >= min[0] && pos[0] <= max[0] &&
		pos[1] >= min[1] && pos[1] <= max[1] &&
		pos[2] >= min[2] && pos[2] <= max[2]
}

func parseAABB(s string) (min, max [3]int, err error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return min, max, fmt.Errorf("expected x1,y1,z1:x2,y2,z2")
	}
	a, err := parseVec3(parts[0])
	if err != nil {
		return min, max, err
	}
	b, err := parseVec3(parts[1])
	if err != nil {
		return min, max, err
	}
	for i := 0; i < 3; i++ {
		min[i], max[i] = a[i], b[i]
		if a[i] > b[i] {
			min[i], max[i] = b[i], a[i]
		}
	}
	return min, max, nil
}

func parseVec3(s string) ([3]int, error) {
	var v [3]int
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 3 {
		return v, fmt.Errorf("expected x,y,z")
	}
	for i := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(parts[i]))
		if err != nil {
			return v, err
		}
		v[i] = n
	}
	return v, nil
}

func latestSnapshot(dir string) string {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var best string
	var bestTick uint64
	for _, e := range ents {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".world.zst") {
			continue
		}
		tick, err := strconv.ParseUint(strings.TrimSuffix(name, ".world.zst"), 10, 64)
		if err != nil {
			continue
		}
		if best == "" || tick > bestTick {
			bestTick = tick
			best = filepath.Join(dir, name)
		}
	}
	return best
}
