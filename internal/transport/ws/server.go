// Package ws serves the sniper protocol over websockets.
package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"voxelsniper.dev/internal/protocol"
	"voxelsniper.dev/internal/sim/engine"
)

// Engine is the part of the engine a connection talks to.
type Engine interface {
	Join() chan<- engine.JoinRequest
	Leave() chan<- string
	Inbox() chan<- engine.ActionEnvelope
	CurrentTick() uint64
}

type Server struct {
	eng Engine
	log *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(eng Engine, logger *log.Logger) *Server {
	return &Server{
		eng: eng,
		log: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sniperID, out := s.handshake(conn)
		if sniperID == "" {
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b := <-out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			act, ok := s.decodeAct(msg, out)
			if !ok {
				continue
			}
			select {
			case s.eng.Inbox() <- engine.ActionEnvelope{SniperID: sniperID, Act: act}:
			case <-ctx.Done():
			}
			if ctx.Err() != nil {
				break
			}
		}
		cancel()
		s.eng.Leave() <- sniperID
	}
}

// decodeAct validates an ACT message. Rejected messages are answered with
// an E_PROTO_BAD_REQUEST ack.
func (s *Server) decodeAct(msg []byte, out chan []byte) (protocol.ActMsg, bool) {
	var act protocol.ActMsg
	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeAct {
		s.reject(out, "", "expected ACT")
		return act, false
	}
	if base.ProtocolVersion != protocol.Version {
		s.reject(out, "", "bad protocol_version")
		return act, false
	}
	if err := protocol.ValidateAct(msg); err != nil {
		s.reject(out, "", err.Error())
		return act, false
	}
	if err := json.Unmarshal(msg, &act); err != nil {
		s.reject(out, "", err.Error())
		return act, false
	}
	return act, true
}

func (s *Server) reject(out chan []byte, ackFor, message string) {
	b, err := json.Marshal(protocol.AckMsg{
		Type:            protocol.TypeAck,
		ProtocolVersion: protocol.Version,
		AckFor:          ackFor,
		Accepted:        false,
		Code:            protocol.ErrProtoBadRequest,
		Message:         message,
		ServerTick:      s.eng.CurrentTick(),
	})
	if err != nil {
		return
	}
	select {
	case out <- b:
	default:
	}
}

func (s *Server) handshake(conn *websocket.Conn) (sniperID string, out chan []byte) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		closeWith(conn, "expected HELLO")
		return "", nil
	}
	if base.ProtocolVersion != protocol.Version {
		closeWith(conn, "bad protocol_version")
		return "", nil
	}
	if err := protocol.ValidateHello(msg); err != nil {
		closeWith(conn, "invalid HELLO")
		return "", nil
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return "", nil
	}

	maxQ := hello.MaxQueue
	if maxQ <= 0 {
		maxQ = 64
	}
	if maxQ > 1024 {
		maxQ = 1024
	}
	out = make(chan []byte, maxQ)

	respCh := make(chan engine.JoinResponse, 1)
	s.eng.Join() <- engine.JoinRequest{Name: hello.SniperName, Out: out, Resp: respCh}
	resp := <-respCh

	if err := writeJSON(conn, resp.Welcome); err != nil {
		s.eng.Leave() <- resp.Welcome.SniperID
		return "", nil
	}
	if s.log != nil {
		s.log.Printf("ws: %s connected as %s", conn.RemoteAddr(), resp.Welcome.SniperID)
	}
	return resp.Welcome.SniperID, out
}

func closeWith(conn *websocket.Conn, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason), time.Now().Add(time.Second))
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
