package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	SniperName      string `json:"sniper_name"`
	MaxQueue        int    `json:"max_queue,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	SessionID       string         `json:"session_id"`
	SniperID        string         `json:"sniper_id"`
	WorldParams     WorldParams    `json:"world_params"`
	Catalogs        CatalogDigests `json:"catalogs"`
	Brushes         []string       `json:"brushes"`
}

type WorldParams struct {
	TickRateHz      int   `json:"tick_rate_hz"`
	Height          int   `json:"height"`
	BoundaryR       int   `json:"boundary_r"`
	Seed            int64 `json:"seed"`
	BlocksPerTick   int   `json:"blocks_per_tick"`
	UndoHistorySize int   `json:"undo_history_size"`
}

type CatalogDigests struct {
	MaterialPalette DigestRef `json:"material_palette"`
	MaterialDefs    string    `json:"material_defs_digest"`
}

type DigestRef struct {
	Digest string `json:"digest"`
	Count  int    `json:"count"`
}

// ACK (server -> client): result of one command.
type AckMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	AckFor          string `json:"ack_for"`
	Accepted        bool   `json:"accepted"`
	Code            string `json:"code,omitempty"`
	Message         string `json:"message,omitempty"`
	ServerTick      uint64 `json:"server_tick"`
}

// MSG (server -> client): user-facing text.
type MsgMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Tick            uint64 `json:"tick"`
	Text            string `json:"text"`
}

// EDIT (server -> client): an edit was applied, undone or redone.
type EditMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Tick            uint64 `json:"tick"`
	Action          string `json:"action"`
	EntryID         string `json:"entry_id"`
	Changes         int    `json:"changes"`
}

// SECTION (server -> client): a saved section with RLE encoded ids.
type SectionMsg struct {
	Type            string   `json:"type"`
	ProtocolVersion string   `json:"protocol_version"`
	Name            string   `json:"name"`
	Size            [3]int   `json:"size"`
	Origin          [3]int   `json:"origin"`
	Default         string   `json:"default"`
	Dictionary      []string `json:"dictionary"`
	Wide            bool     `json:"wide"`
	Occupancy       string   `json:"occupancy"` // base64 packed bits
	Encoding        string   `json:"encoding"`  // "RLE"
	Data            string   `json:"data"`
}
