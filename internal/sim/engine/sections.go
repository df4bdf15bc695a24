package engine

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/dustin/go-humanize"

	"voxelsniper.dev/internal/persistence/snapshot"
	"voxelsniper.dev/internal/protocol"
	"voxelsniper.dev/internal/sim/encoding"
	"voxelsniper.dev/internal/sim/mathx"
	"voxelsniper.dev/internal/sim/sniper"
	"voxelsniper.dev/internal/sim/volume"
)

var sectionName = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

func (e *Engine) sectionPath(name string) (string, cmdResult) {
	if e.cfg.SectionDir == "" {
		return "", fail(protocol.ErrBadRequest, "sections are disabled")
	}
	if !sectionName.MatchString(name) {
		return "", fail(protocol.ErrBadRequest, "bad section name %q", name)
	}
	return SectionPath(e.cfg.SectionDir, name), ok()
}

// SectionPath returns where a named section is stored.
func SectionPath(dir, name string) string {
	return filepath.Join(dir, name+".section.zst")
}

// saveSection writes the sniper's most recent overlay to disk.
func (e *Engine) saveSection(tick uint64, s *sniper.Sniper, name string) cmdResult {
	path, res := e.sectionPath(name)
	if res.code != "" {
		return res
	}
	v := s.LastOverlay()
	if v == nil {
		return fail(protocol.ErrNotFound, "no edit to save")
	}
	if err := os.MkdirAll(e.cfg.SectionDir, 0o755); err != nil {
		return fail(protocol.ErrInternal, "%v", err)
	}
	sec := v.Section(name)
	if err := snapshot.WriteSection(path, tick, sec); err != nil {
		e.log.Printf("save section %s: %v", name, err)
		return fail(protocol.ErrInternal, "save failed")
	}
	rec := SectionRecord{
		Tick:   tick,
		Name:   name,
		Actor:  s.ID,
		Path:   path,
		Voxels: sec.Voxels(),
		Wide:   sec.High != nil,
	}
	for _, r := range e.opts.Sections {
		r.RecordSection(rec)
	}
	e.log.Printf("section saved name=%s actor=%s voxels=%s", name, s.ID, humanize.Comma(int64(rec.Voxels)))
	return ok()
}

func (e *Engine) loadSection(name string) (volume.Section, cmdResult) {
	path, res := e.sectionPath(name)
	if res.code != "" {
		return volume.Section{}, res
	}
	sec, err := snapshot.ReadSection(path)
	if errors.Is(err, fs.ErrNotExist) {
		return sec, fail(protocol.ErrNotFound, "section %q not found", name)
	}
	if err != nil {
		return sec, fail(protocol.ErrInternal, "%v", err)
	}
	return sec, ok()
}

func (e *Engine) getSection(s *sniper.Sniper, name string) cmdResult {
	sec, res := e.loadSection(name)
	if res.code != "" {
		return res
	}
	e.sendJSON(s.ID, SectionMessage(sec))
	return ok()
}

// SectionMessage encodes a section for the wire.
func SectionMessage(sec volume.Section) protocol.SectionMsg {
	return protocol.SectionMsg{
		Type:            protocol.TypeSection,
		ProtocolVersion: protocol.Version,
		Name:            sec.Name,
		Size:            [3]int{sec.Width, sec.Height, sec.Length},
		Origin:          sec.Origin,
		Default:         sec.Default,
		Dictionary:      sec.Dictionary,
		Wide:            sec.High != nil,
		Occupancy:       base64.StdEncoding.EncodeToString(sec.Occupancy),
		Encoding:        "RLE",
		Data:            encoding.EncodeRLE(encoding.JoinPlanes(sec.Low, sec.High)),
	}
}

// SectionFromMessage is the inverse of SectionMessage.
func SectionFromMessage(m protocol.SectionMsg) (volume.Section, error) {
	if m.Encoding != "RLE" {
		return volume.Section{}, fmt.Errorf("section: unsupported encoding %q", m.Encoding)
	}
	occ, err := base64.StdEncoding.DecodeString(m.Occupancy)
	if err != nil {
		return volume.Section{}, fmt.Errorf("section: occupancy: %w", err)
	}
	ids, err := encoding.DecodeRLE(m.Data, m.Size[0]*m.Size[1]*m.Size[2])
	if err != nil {
		return volume.Section{}, fmt.Errorf("section: data: %w", err)
	}
	low, high := encoding.SplitPlanes(ids, m.Wide)
	return volume.Section{
		Name:       m.Name,
		Width:      m.Size[0],
		Height:     m.Size[1],
		Length:     m.Size[2],
		Origin:     m.Origin,
		Default:    m.Default,
		Dictionary: m.Dictionary,
		Occupancy:  occ,
		Low:        low,
		High:       high,
	}, nil
}

func (e *Engine) pasteSection(s *sniper.Sniper, name string, at mathx.Vec3i) cmdResult {
	if s.Processing() {
		s.Send(e.cfg.Messages.Busy)
		return fail(protocol.ErrBusy, "%v", sniper.ErrBusy)
	}
	sec, res := e.loadSection(name)
	if res.code != "" {
		return res
	}
	v, err := volume.FromSection(sec)
	if err != nil {
		return fail(protocol.ErrInternal, "%v", err)
	}
	for _, m := range v.Dictionary().Entries() {
		if _, known := e.mats.Lookup(string(m)); !known {
			return fail(protocol.ErrNotFound, "section uses unknown material %q", m)
		}
	}
	s.Enqueue(v, at)
	return ok()
}

func (e *Engine) snapshotAsync(tick uint64) {
	snap := e.store.Export(tick)
	e.bg.Add(1)
	go func() {
		defer e.bg.Done()
		if _, err := e.persistSnapshot(snap); err != nil {
			e.log.Printf("snapshot: %v", err)
		}
	}()
}

func (e *Engine) writeSnapshot(tick uint64) (string, error) {
	return e.persistSnapshot(e.store.Export(tick))
}

func (e *Engine) persistSnapshot(snap snapshot.WorldV1) (string, error) {
	if err := os.MkdirAll(e.cfg.SnapshotDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(e.cfg.SnapshotDir, fmt.Sprintf("%d.world.zst", snap.Header.Tick))
	start := time.Now()
	if err := snapshot.WriteWorld(path, snap); err != nil {
		return "", err
	}
	size := "?"
	if fi, err := os.Stat(path); err == nil {
		size = humanize.Bytes(uint64(fi.Size()))
	}
	e.log.Printf("snapshot tick=%d chunks=%d size=%s took=%s", snap.Header.Tick, len(snap.Chunks), size, time.Since(start).Round(time.Millisecond))
	for _, r := range e.opts.Snapshots {
		r.RecordWorldSnapshot(path, snap.Header.Tick, len(snap.Chunks))
	}
	return path, nil
}
