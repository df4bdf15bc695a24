package protocol

// ACT (client -> server): a batch of commands for the sender's sniper.
type ActMsg struct {
	Type            string       `json:"type"`
	ProtocolVersion string       `json:"protocol_version"`
	ActID           string       `json:"act_id,omitempty"`
	Commands        []CommandReq `json:"commands"`
}

// Command types.
const (
	CmdBrush        = "BRUSH"
	CmdMaterial     = "MATERIAL"
	CmdMaskMaterial = "MASK_MATERIAL"
	CmdSize         = "SIZE"
	CmdSetVar       = "SET_VAR"
	CmdReset        = "RESET"
	CmdSnipe        = "SNIPE"
	CmdCancel       = "CANCEL"
	CmdUndo         = "UNDO"
	CmdRedo         = "REDO"
	CmdSaveSection  = "SAVE_SECTION"
	CmdGetSection   = "GET_SECTION"
	CmdPasteSection = "PASTE_SECTION"
)

type CommandReq struct {
	ID   string `json:"id"`
	Type string `json:"type"`

	Brush    string   `json:"brush,omitempty"`
	Material string   `json:"material,omitempty"`
	Size     *float64 `json:"size,omitempty"`
	Key      string   `json:"key,omitempty"`
	Value    string   `json:"value,omitempty"`
	Target   *[3]int  `json:"target,omitempty"`
	N        int      `json:"n,omitempty"`
	Name     string   `json:"name,omitempty"`
}
