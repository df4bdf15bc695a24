package observerproto

// Version is the observer protocol version, separate from the sniper
// protocol.
const Version = "0.1"

// SubscribeMsg is the first message on an observer connection.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
}

// BootstrapResponse answers GET /observer/bootstrap.
type BootstrapResponse struct {
	ProtocolVersion string      `json:"protocol_version"`
	Tick            uint64      `json:"tick"`
	WorldParams     WorldParams `json:"world_params"`
	MaterialPalette []string    `json:"material_palette"`
}

type WorldParams struct {
	TickRateHz int    `json:"tick_rate_hz"`
	ChunkSize  [3]int `json:"chunk_size"`
	Height     int    `json:"height"`
	Seed       int64  `json:"seed"`
	BoundaryR  int    `json:"boundary_r"`
}

// TickMsg is pushed to observers once per tick.
type TickMsg struct {
	Type            string        `json:"type"`
	ProtocolVersion string        `json:"protocol_version"`
	Tick            uint64        `json:"tick"`
	Snipers         []SniperState `json:"snipers"`
	Edits           []EditInfo    `json:"edits,omitempty"`
}

type SniperState struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Brush      string `json:"brush"`
	Processing bool   `json:"processing"`
	Pending    int    `json:"pending"`
	UndoDepth  int    `json:"undo_depth"`
}

type EditInfo struct {
	Actor   string `json:"actor"`
	Action  string `json:"action"`
	EntryID string `json:"entry_id"`
	Changes int    `json:"changes"`
}
