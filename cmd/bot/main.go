package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/gorilla/websocket"

	"voxelsniper.dev/internal/protocol"
)

func main() {
	var (
		url        = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name       = flag.String("name", "bot", "sniper name")
		scriptPath = flag.String("script", "", "yaml script (optional; defaults to a built-in demo)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	script, err := LoadScript(*scriptPath)
	if err != nil {
		logger.Fatalf("script: %v", err)
	}

	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		SniperName:      *name,
		MaxQueue:        16,
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}

	msgs := make(chan []byte, 64)
	go func() {
		defer close(msgs)
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			msgs <- msg
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	r := &runner{conn: conn, logger: logger, script: script}
	for {
		select {
		case <-stop:
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			if done := r.handle(msg); done {
				logger.Printf("script %q finished", script.Name)
				return
			}
		}
	}
}

type runner struct {
	conn    *websocket.Conn
	logger  *log.Logger
	script  Script
	next    int
	waiting bool
	started bool
}

// handle reacts to one server message and returns true when the script is done.
func (r *runner) handle(msg []byte) bool {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return false
	}
	switch base.Type {
	case protocol.TypeWelcome:
		var w protocol.WelcomeMsg
		if err := json.Unmarshal(msg, &w); err != nil {
			return false
		}
		r.logger.Printf("WELCOME sniper_id=%s tick_rate=%d brushes=%v", w.SniperID, w.WorldParams.TickRateHz, w.Brushes)
		r.started = true
	case protocol.TypeAck:
		var a protocol.AckMsg
		if err := json.Unmarshal(msg, &a); err != nil {
			return false
		}
		if !a.Accepted {
			r.logger.Printf("ACK %s rejected code=%s msg=%s", a.AckFor, a.Code, a.Message)
		}
	case protocol.TypeMsg:
		var m protocol.MsgMsg
		if err := json.Unmarshal(msg, &m); err == nil {
			r.logger.Printf("MSG tick=%d %s", m.Tick, m.Text)
		}
	case protocol.TypeEdit:
		var e protocol.EditMsg
		if err := json.Unmarshal(msg, &e); err != nil {
			return false
		}
		r.logger.Printf("EDIT tick=%d action=%s entry=%s changes=%d", e.Tick, e.Action, e.EntryID, e.Changes)
		r.waiting = false
	case protocol.TypeSection:
		var s protocol.SectionMsg
		if err := json.Unmarshal(msg, &s); err == nil {
			r.logger.Printf("SECTION %s size=%v", s.Name, s.Size)
		}
	}
	if !r.started || r.waiting {
		return false
	}
	return r.advance()
}

// advance sends every command up to the next wait step in one ACT.
func (r *runner) advance() bool {
	var cmds []protocol.CommandReq
	for r.next < len(r.script.Steps) {
		st := r.script.Steps[r.next]
		r.next++
		if st.Wait != "" {
			r.waiting = true
			break
		}
		cmds = append(cmds, st.Command(fmt.Sprintf("C_%d", r.next)))
	}
	if len(cmds) > 0 {
		act := protocol.ActMsg{
			Type:            protocol.TypeAct,
			ProtocolVersion: protocol.Version,
			ActID:           fmt.Sprintf("A_%d", r.next),
			Commands:        cmds,
		}
		if err := r.conn.WriteJSON(act); err != nil {
			r.logger.Printf("send ACT: %v", err)
			return true
		}
	}
	return !r.waiting && r.next >= len(r.script.Steps)
}
