package engine

import (
	"voxelsniper.dev/internal/protocol"
	"voxelsniper.dev/internal/sim/tuning"
)

type Config struct {
	TickRateHz      int
	BlocksPerTick   int
	UndoHistorySize int

	DefaultBrush         string
	DefaultBrushSize     float64
	DefaultBrushMaterial string
	ExcludeFluid         bool
	Messages             tuning.Messages

	// SectionDir holds saved sections; empty disables SAVE/GET/PASTE_SECTION.
	SectionDir string
	// SnapshotDir receives a world snapshot every SnapshotEveryTicks ticks;
	// empty or zero disables it.
	SnapshotDir        string
	SnapshotEveryTicks int
}

func ConfigFromTuning(t tuning.Tuning) Config {
	return Config{
		TickRateHz:           t.TickRateHz,
		BlocksPerTick:        t.BlocksPerTick(),
		UndoHistorySize:      t.UndoHistorySize,
		DefaultBrush:         t.DefaultBrush,
		DefaultBrushSize:     t.DefaultBrushSize,
		DefaultBrushMaterial: t.DefaultBrushMaterial,
		ExcludeFluid:         t.ExcludeFluid,
		Messages:             t.Messages,
		SnapshotEveryTicks:   t.SnapshotEveryTicks,
	}
}

type JoinRequest struct {
	Name string
	Out  chan []byte
	Resp chan JoinResponse
}

type JoinResponse struct {
	Welcome protocol.WelcomeMsg
}

type ActionEnvelope struct {
	SniperID string
	Act      protocol.ActMsg
}

// Audit actions.
const (
	ActionSetBlock = "SET_BLOCK"
	ActionUndo     = "UNDO"
	ActionRedo     = "REDO"
)

// AuditEntry records one block write.
type AuditEntry struct {
	Tick    uint64 `json:"tick"`
	Actor   string `json:"actor"`
	Action  string `json:"action"`
	EntryID string `json:"entry_id"`
	Pos     [3]int `json:"pos"`
	From    string `json:"from"`
	To      string `json:"to"`
}

// EditLogEntry summarizes a finished edit, undo or redo.
type EditLogEntry struct {
	Tick    uint64 `json:"tick"`
	Actor   string `json:"actor"`
	Action  string `json:"action"`
	EntryID string `json:"entry_id"`
	Brush   string `json:"brush,omitempty"`
	Changes int    `json:"changes"`
}

// SectionRecord describes a saved section file.
type SectionRecord struct {
	Tick   uint64 `json:"tick"`
	Name   string `json:"name"`
	Actor  string `json:"actor"`
	Path   string `json:"path"`
	Voxels int    `json:"voxels"`
	Wide   bool   `json:"wide"`
}

// TickLogEntry records the inputs of one tick and the world digest after it.
// Replaying the entries in order from the same starting world must
// reproduce every digest.
type TickLogEntry struct {
	Tick    uint64         `json:"tick"`
	Joins   []RecordedJoin `json:"joins,omitempty"`
	Leaves  []string       `json:"leaves,omitempty"`
	Actions []RecordedAct  `json:"actions,omitempty"`
	Digest  string         `json:"digest"`
}

type RecordedJoin struct {
	Name string `json:"name"`
}

type RecordedAct struct {
	SniperID string          `json:"sniper_id"`
	Act      protocol.ActMsg `json:"act"`
}

type TickSink interface {
	WriteTick(TickLogEntry) error
}

type AuditSink interface {
	WriteAudit(AuditEntry) error
}

type EditSink interface {
	WriteEdit(EditLogEntry) error
}

type SectionRecorder interface {
	RecordSection(SectionRecord)
}

type SnapshotRecorder interface {
	RecordWorldSnapshot(path string, tick uint64, chunks int)
}
