package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"voxelsniper.dev/internal/sim/volume"
)

const (
	KindSection = "section"
	KindWorld   = "world"
)

// Header is written as a JSON line ahead of the gob body so tools can list
// files without decoding them.
type Header struct {
	Version int    `json:"version"`
	Kind    string `json:"kind"`
	Name    string `json:"name,omitempty"`
	Tick    uint64 `json:"tick"`
	Voxels  int    `json:"voxels,omitempty"`
}

type SectionV1 struct {
	Header  Header         `json:"header"`
	Section volume.Section `json:"section"`
}

type WorldV1 struct {
	Header Header `json:"header"`

	Seed      int64 `json:"seed"`
	Height    int   `json:"height"`
	BoundaryR int   `json:"boundary_r"`
	GroundY   int   `json:"ground_y"`
	WaterY    int   `json:"water_y"`

	// Palette pins the material ids used in Chunks.
	Palette []string  `json:"palette"`
	Chunks  []ChunkV1 `json:"chunks"`
}

type ChunkV1 struct {
	CX     int      `json:"cx"`
	CZ     int      `json:"cz"`
	Height int      `json:"height"`
	Blocks []uint16 `json:"blocks"`
}

func WriteSection(path string, tick uint64, s volume.Section) error {
	snap := SectionV1{
		Header:  Header{Version: 1, Kind: KindSection, Name: s.Name, Tick: tick, Voxels: s.Voxels()},
		Section: s,
	}
	return write(path, snap.Header, &snap)
}

func ReadSection(path string) (volume.Section, error) {
	var snap SectionV1
	if err := read(path, &snap); err != nil {
		return volume.Section{}, err
	}
	if snap.Header.Kind != KindSection {
		return volume.Section{}, fmt.Errorf("%s: kind %q, want %q", path, snap.Header.Kind, KindSection)
	}
	return snap.Section, nil
}

func WriteWorld(path string, snap WorldV1) error {
	snap.Header.Version = 1
	snap.Header.Kind = KindWorld
	return write(path, snap.Header, &snap)
}

func ReadWorld(path string) (WorldV1, error) {
	var snap WorldV1
	if err := read(path, &snap); err != nil {
		return snap, err
	}
	if snap.Header.Kind != KindWorld {
		return snap, fmt.Errorf("%s: kind %q, want %q", path, snap.Header.Kind, KindWorld)
	}
	return snap, nil
}

// ReadHeader decodes only the JSON header line.
func ReadHeader(path string) (Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, err
	}
	defer dec.Close()

	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return h, fmt.Errorf("read header: %w", err)
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("decode header: %w", err)
	}
	return h, nil
}

func write(path string, h Header, body any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if err := encode(f, h, body); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func encode(f *os.File, h Header, body any) error {
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 256*1024)

	hb, _ := json.Marshal(h)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}
	if err := gob.NewEncoder(bw).Encode(body); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	return enc.Close()
}

func read(path string, body any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)
	// The gob body repeats the header.
	if _, err := br.ReadBytes('\n'); err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	if err := gob.NewDecoder(br).Decode(body); err != nil {
		return fmt.Errorf("gob decode: %w", err)
	}
	return nil
}
