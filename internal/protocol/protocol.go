package protocol

import "encoding/json"

const Version = "0.1"

// Message types.
const (
	TypeHello   = "HELLO"
	TypeWelcome = "WELCOME"
	TypeAct     = "ACT"
	TypeAck     = "ACK"
	TypeMsg     = "MSG"
	TypeEdit    = "EDIT"
	TypeSection = "SECTION"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
