package observer

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"voxelsniper.dev/internal/observerproto"
	"voxelsniper.dev/internal/sim/catalogs"
	"voxelsniper.dev/internal/sim/engine"
	"voxelsniper.dev/internal/sim/material"
	"voxelsniper.dev/internal/sim/tuning"
	"voxelsniper.dev/internal/sim/worldstore"
)

func TestIsLoopbackRemote(t *testing.T) {
	cases := map[string]bool{
		"127.0.0.1:5000": true,
		"[::1]:80":       true,
		"10.0.0.2:9000":  false,
		"garbage":        false,
	}
	for in, want := range cases {
		if got := isLoopbackRemote(in); got != want {
			t.Fatalf("%s: got %v want %v", in, got, want)
		}
	}
}

func TestBootstrapAndTicks(t *testing.T) {
	cats := catalogs.Builtin()
	store := worldstore.New(worldstore.Gen{Seed: 3, Height: 32, BoundaryR: 64, GroundY: 10, WaterY: 5}, material.NewRegistry(&cats.Materials))
	cfg := engine.ConfigFromTuning(tuning.Defaults())
	cfg.TickRateHz = 100
	quiet := log.New(io.Discard, "", 0)
	eng, err := engine.New(cfg, cats, store, engine.Options{Logger: quiet})
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = eng.Run(ctx)
	}()

	s := NewServer(eng, quiet)
	mux := http.NewServeMux()
	mux.HandleFunc("/observer/bootstrap", s.BootstrapHandler())
	mux.HandleFunc("/observer/ws", s.WSHandler())
	srv := httptest.NewServer(mux)
	defer func() {
		srv.Close()
		cancel()
		<-done
	}()

	resp, err := http.Get(srv.URL + "/observer/bootstrap")
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	var boot observerproto.BootstrapResponse
	err = json.NewDecoder(resp.Body).Decode(&boot)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if boot.WorldParams.Height != 32 || len(boot.MaterialPalette) != len(cats.Materials.Palette) {
		t.Fatalf("bootstrap: %+v", boot)
	}

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/observer/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if err := conn.WriteJSON(observerproto.SubscribeMsg{Type: "SUBSCRIBE", ProtocolVersion: observerproto.Version}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	eng.Join() <- engine.JoinRequest{Name: "watched"}
	deadline := time.Now().Add(5 * time.Second)
	for {
		_ = conn.SetReadDeadline(deadline)
		var msg observerproto.TickMsg
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read tick: %v", err)
		}
		if msg.Type != "TICK" {
			t.Fatalf("type: %s", msg.Type)
		}
		if len(msg.Snipers) == 1 && msg.Snipers[0].Name == "watched" {
			return
		}
	}
}
