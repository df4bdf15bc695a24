package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

type Catalogs struct {
	Materials MaterialCatalog
}

type MaterialCatalog struct {
	Palette       []string
	Index         map[string]uint16
	Defs          map[string]MaterialDef
	PaletteDigest string
	DefsDigest    string
}

type MaterialDef struct {
	ID     string `json:"id"`
	Solid  bool   `json:"solid"`
	Liquid bool   `json:"liquid,omitempty"`
}

// builtinMaterials is used when no materials.json is present.
var builtinMaterials = []MaterialDef{
	{ID: "AIR"},
	{ID: "BEDROCK", Solid: true},
	{ID: "CLAY", Solid: true},
	{ID: "COAL_ORE", Solid: true},
	{ID: "COBBLESTONE", Solid: true},
	{ID: "DIRT", Solid: true},
	{ID: "GLASS", Solid: true},
	{ID: "GRASS", Solid: true},
	{ID: "GRAVEL", Solid: true},
	{ID: "IRON_ORE", Solid: true},
	{ID: "LAVA", Liquid: true},
	{ID: "OAK_LOG", Solid: true},
	{ID: "OAK_PLANKS", Solid: true},
	{ID: "SAND", Solid: true},
	{ID: "SNOW", Solid: true},
	{ID: "STONE", Solid: true},
	{ID: "WATER", Liquid: true},
}

// Load reads <configDir>/materials.json. A missing file falls back to the
// builtin material set.
func Load(configDir string) (*Catalogs, error) {
	var c Catalogs
	if err := loadMaterials(filepath.Join(configDir, "materials.json"), &c.Materials); err != nil {
		return nil, err
	}
	return &c, nil
}

// Builtin returns catalogs built from the builtin material set.
func Builtin() *Catalogs {
	var c Catalogs
	raw, _ := json.Marshal(builtinMaterials)
	if err := buildMaterials(raw, builtinMaterials, &c.Materials); err != nil {
		panic(err)
	}
	return &c
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func loadMaterials(path string, out *MaterialCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			b, _ := json.Marshal(builtinMaterials)
			return buildMaterials(b, builtinMaterials, out)
		}
		return err
	}
	var defs []MaterialDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("materials.json: %w", err)
	}
	if err := buildMaterials(raw, defs, out); err != nil {
		return fmt.Errorf("materials.json: %w", err)
	}
	return nil
}

func buildMaterials(raw []byte, defs []MaterialDef, out *MaterialCatalog) error {
	out.DefsDigest = sha256Hex(raw)
	out.Defs = map[string]MaterialDef{}
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("empty id")
		}
		if d.Solid && d.Liquid {
			return fmt.Errorf("%s: material cannot be both solid and liquid", d.ID)
		}
		out.Defs[d.ID] = d
	}

	ids := make([]string, 0, len(out.Defs))
	for id := range out.Defs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	// Ensure AIR exists and is palette id 0.
	if _, ok := out.Defs["AIR"]; !ok {
		return fmt.Errorf("missing AIR")
	}
	ids = append([]string{"AIR"}, filterOut(ids, "AIR")...)
	if len(ids) > 0xFFFF {
		return fmt.Errorf("too many materials: %d", len(ids))
	}

	out.Palette = ids
	out.Index = make(map[string]uint16, len(ids))
	for i, id := range ids {
		out.Index[id] = uint16(i)
	}
	palJSON, _ := json.Marshal(ids)
	out.PaletteDigest = sha256Hex(palJSON)
	return nil
}

func filterOut(in []string, remove string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == remove {
			continue
		}
		out = append(out, s)
	}
	return out
}
