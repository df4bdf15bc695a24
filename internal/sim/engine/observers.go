package engine

import (
	"voxelsniper.dev/internal/observerproto"
	"voxelsniper.dev/internal/sim/worldstore"
)

type ObserverJoinRequest struct {
	SessionID string
	Out       chan []byte
}

func (e *Engine) ObserverJoin() chan<- ObserverJoinRequest { return e.obsJoin }
func (e *Engine) ObserverLeave() chan<- string             { return e.obsLeave }

// Bootstrap describes the world to a new observer. It only reads values
// that are fixed after New.
func (e *Engine) Bootstrap() observerproto.BootstrapResponse {
	return observerproto.BootstrapResponse{
		ProtocolVersion: observerproto.Version,
		Tick:            e.CurrentTick(),
		WorldParams: observerproto.WorldParams{
			TickRateHz: e.cfg.TickRateHz,
			ChunkSize:  [3]int{worldstore.ChunkSize, worldstore.ChunkSize, e.store.Gen.Height},
			Height:     e.store.Gen.Height,
			Seed:       e.store.Gen.Seed,
			BoundaryR:  e.store.Gen.BoundaryR,
		},
		MaterialPalette: append([]string(nil), e.cats.Materials.Palette...),
	}
}

func (e *Engine) broadcastObservers(tick uint64) {
	edits := e.tickEdits
	e.tickEdits = nil
	if len(e.observers) == 0 {
		return
	}
	msg := observerproto.TickMsg{
		Type:            "TICK",
		ProtocolVersion: observerproto.Version,
		Tick:            tick,
		Snipers:         make([]observerproto.SniperState, 0, len(e.order)),
		Edits:           edits,
	}
	for _, id := range e.order {
		s := e.snipers[id]
		msg.Snipers = append(msg.Snipers, observerproto.SniperState{
			ID:         s.ID,
			Name:       s.Name,
			Brush:      s.Brush(),
			Processing: s.Processing(),
			Pending:    s.Pending.Len(),
			UndoDepth:  s.History.UndoLen(),
		})
	}
	b, err := marshal(msg)
	if err != nil {
		e.log.Printf("observer tick: %v", err)
		return
	}
	for _, out := range e.observers {
		sendLatest(out, b)
	}
}
