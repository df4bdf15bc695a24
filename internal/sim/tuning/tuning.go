package tuning

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	TickRateHz            int `yaml:"tick_rate_hz"`
	UndoHistorySize       int `yaml:"undo_history_size"`
	BlockChangesPerSecond int `yaml:"block_changes_per_second"`
	SnapshotEveryTicks    int `yaml:"snapshot_every_ticks"`

	DefaultBrush         string  `yaml:"default_brush"`
	DefaultBrushSize     float64 `yaml:"default_brush_size"`
	DefaultBrushMaterial string  `yaml:"default_brush_material"`
	ExcludeFluid         bool    `yaml:"exclude_fluid"`

	World    World    `yaml:"world"`
	Messages Messages `yaml:"messages"`
}

type World struct {
	Seed      int64 `yaml:"seed"`
	Height    int   `yaml:"height"`
	BoundaryR int   `yaml:"boundary_r"`
	GroundY   int   `yaml:"ground_y"`
	WaterY    int   `yaml:"water_y"`
}

// Messages are fmt formats sent to snipers.
type Messages struct {
	Undo             string `yaml:"undo"`
	Redo             string `yaml:"redo"`
	BrushSizeChanged string `yaml:"brush_size_changed"`
	BrushNotFound    string `yaml:"brush_not_found"`
	BrushSet         string `yaml:"brush_set"`
	MaterialNotFound string `yaml:"material_not_found"`
	MaterialSet      string `yaml:"material_set"`
	MaterialMaskSet  string `yaml:"material_mask_set"`
	Busy             string `yaml:"busy"`
	EditQueued       string `yaml:"edit_queued"`
}

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion:       "0.1",
		TickRateHz:            20,
		UndoHistorySize:       20,
		BlockChangesPerSecond: 160000,
		SnapshotEveryTicks:    6000,
		DefaultBrush:          "voxel material",
		DefaultBrushSize:      3,
		DefaultBrushMaterial:  "AIR",
		ExcludeFluid:          true,
		World: World{
			Seed:      1337,
			Height:    128,
			BoundaryR: 4096,
			GroundY:   64,
			WaterY:    60,
		},
		Messages: Messages{
			Undo:             "Undid %s changes.",
			Redo:             "Redid %s changes.",
			BrushSizeChanged: "Your brush size was changed to %.1f",
			BrushNotFound:    "Could not find a brush part named %s",
			BrushSet:         "Your brush has been set to %s",
			MaterialNotFound: "Could not find that material.",
			MaterialSet:      "Set material to %s",
			MaterialMaskSet:  "Set secondary material to %s",
			Busy:             "Your previous edit is still being applied.",
			EditQueued:       "Queued %s block changes.",
		},
	}
}

// Load reads a yaml file over Defaults, so a file only needs the keys it
// changes.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	var errs []string
	if t.TickRateHz <= 0 {
		errs = append(errs, "tick_rate_hz must be > 0")
	}
	if t.UndoHistorySize <= 0 {
		errs = append(errs, "undo_history_size must be > 0")
	}
	if t.BlockChangesPerSecond <= 0 {
		errs = append(errs, "block_changes_per_second must be > 0")
	}
	if t.DefaultBrushSize < 0 {
		errs = append(errs, "default_brush_size must be >= 0")
	}
	if t.World.Height <= 0 || t.World.Height > 1024 {
		errs = append(errs, "world.height must be in (0, 1024]")
	}
	if t.World.GroundY < 0 || t.World.GroundY >= t.World.Height {
		errs = append(errs, "world.ground_y must be inside the world height")
	}
	if t.World.BoundaryR <= 0 {
		errs = append(errs, "world.boundary_r must be > 0")
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// BlocksPerTick is the flush budget of one actor for one tick.
func (t Tuning) BlocksPerTick() int {
	if t.TickRateHz <= 0 {
		return t.BlockChangesPerSecond
	}
	n := t.BlockChangesPerSecond / t.TickRateHz
	if n < 1 {
		n = 1
	}
	return n
}
