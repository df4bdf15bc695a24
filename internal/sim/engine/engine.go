// Package engine runs the sniper world: a single goroutine owns the block
// store and every sniper session, and applies joins, commands and pending
// edits once per tick.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"voxelsniper.dev/internal/observerproto"
	"voxelsniper.dev/internal/protocol"
	"voxelsniper.dev/internal/sim/brush"
	"voxelsniper.dev/internal/sim/catalogs"
	"voxelsniper.dev/internal/sim/history"
	"voxelsniper.dev/internal/sim/material"
	"voxelsniper.dev/internal/sim/sniper"
	"voxelsniper.dev/internal/sim/worldstore"
)

// Options wires the engine's optional outputs.
type Options struct {
	Logger    *log.Logger
	Audit     []AuditSink
	Edits     []EditSink
	Sections  []SectionRecorder
	Snapshots []SnapshotRecorder
	Ticks     []TickSink
}

type Engine struct {
	cfg     Config
	cats    *catalogs.Catalogs
	mats    *material.Registry
	store   *worldstore.Store
	brushes *brush.Registry
	log     *log.Logger
	opts    Options

	tick       atomic.Uint64
	nextSniper uint64
	metrics    metrics

	snipers map[string]*sniper.Sniper
	order   []string
	clients map[string]chan []byte

	observers map[string]chan []byte
	tickEdits []observerproto.EditInfo

	join     chan JoinRequest
	leave    chan string
	inbox    chan ActionEnvelope
	obsJoin  chan ObserverJoinRequest
	obsLeave chan string
	stop     chan struct{}

	stopOnce sync.Once
	bg       sync.WaitGroup
}

func New(cfg Config, cats *catalogs.Catalogs, store *worldstore.Store, opts Options) (*Engine, error) {
	if cfg.TickRateHz <= 0 {
		return nil, fmt.Errorf("engine: tick rate must be > 0")
	}
	if cfg.BlocksPerTick <= 0 {
		return nil, fmt.Errorf("engine: blocks per tick must be > 0")
	}
	if cfg.UndoHistorySize <= 0 {
		cfg.UndoHistorySize = 20
	}
	if opts.Logger == nil {
		opts.Logger = log.New(os.Stdout, "[engine] ", log.LstdFlags|log.Lmicroseconds)
	}
	e := &Engine{
		cfg:     cfg,
		cats:    cats,
		mats:    store.Mats,
		store:   store,
		brushes: brush.NewRegistry(),
		log:     opts.Logger,
		opts:    opts,
		snipers: map[string]*sniper.Sniper{},
		clients: map[string]chan []byte{},

		observers: map[string]chan []byte{},

		join:     make(chan JoinRequest, 64),
		leave:    make(chan string, 64),
		inbox:    make(chan ActionEnvelope, 1024),
		obsJoin:  make(chan ObserverJoinRequest, 32),
		obsLeave: make(chan string, 32),
		stop:     make(chan struct{}),
	}
	return e, nil
}

func (e *Engine) Join() chan<- JoinRequest     { return e.join }
func (e *Engine) Leave() chan<- string         { return e.leave }
func (e *Engine) Inbox() chan<- ActionEnvelope { return e.inbox }
func (e *Engine) CurrentTick() uint64          { return e.tick.Load() }
func (e *Engine) TickRateHz() int              { return e.cfg.TickRateHz }

// Store exposes the block store. It must only be touched from the engine
// goroutine or while the engine is not running.
func (e *Engine) Store() *worldstore.Store { return e.store }

func (e *Engine) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(e.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	defer e.bg.Wait()

	var pendingActions []ActionEnvelope
	var pendingJoins []JoinRequest
	var pendingLeaves []string

	for {
		select {
		case <-ctx.Done():
			e.shutdown()
			return ctx.Err()
		case <-e.stop:
			e.shutdown()
			return nil
		case req := <-e.join:
			pendingJoins = append(pendingJoins, req)
		case id := <-e.leave:
			pendingLeaves = append(pendingLeaves, id)
		case env := <-e.inbox:
			pendingActions = append(pendingActions, env)
		case req := <-e.obsJoin:
			e.observers[req.SessionID] = req.Out
		case id := <-e.obsLeave:
			delete(e.observers, id)
		case <-ticker.C:
			e.step(pendingJoins, pendingLeaves, pendingActions)
			pendingJoins = pendingJoins[:0]
			pendingLeaves = pendingLeaves[:0]
			pendingActions = pendingActions[:0]
		}
	}
}

func (e *Engine) Stop() { e.stopOnce.Do(func() { close(e.stop) }) }

// StepOnce advances a single tick with the same ordering as Run. It is
// meant for tests and tools that drive the engine directly.
func (e *Engine) StepOnce(joins []JoinRequest, leaves []string, actions []ActionEnvelope) (tick uint64, digest string) {
	tick = e.tick.Load()
	e.step(joins, leaves, actions)
	return tick, e.store.Digest()
}

func (e *Engine) shutdown() {
	next := e.tick.Load()
	if e.cfg.SnapshotDir == "" || next == 0 {
		return
	}
	// Snapshots carry the last executed tick.
	if _, err := e.writeSnapshot(next - 1); err != nil {
		e.log.Printf("final snapshot: %v", err)
	}
}

func (e *Engine) step(joins []JoinRequest, leaves []string, actions []ActionEnvelope) {
	start := time.Now()
	tick := e.tick.Load()
	defer func() { e.metrics.observe(e, start) }()

	for _, j := range joins {
		e.handleJoin(j)
	}
	for _, id := range leaves {
		e.handleLeave(id)
	}
	for _, a := range actions {
		e.handleAct(tick, a)
	}
	for _, id := range e.order {
		n := e.snipers[id].Flush(e.store, e.cfg.BlocksPerTick)
		e.metrics.blocks.Add(uint64(n))
	}
	for _, id := range e.order {
		e.deliverMessages(tick, id)
	}
	e.broadcastObservers(tick)

	if len(e.opts.Ticks) > 0 {
		e.logTick(tick, joins, leaves, actions)
	}
	if e.cfg.SnapshotDir != "" && e.cfg.SnapshotEveryTicks > 0 && tick > 0 && tick%uint64(e.cfg.SnapshotEveryTicks) == 0 {
		e.snapshotAsync(tick)
	}
	e.tick.Add(1)
}

func (e *Engine) logTick(tick uint64, joins []JoinRequest, leaves []string, actions []ActionEnvelope) {
	entry := TickLogEntry{Tick: tick, Leaves: leaves, Digest: e.store.Digest()}
	for _, j := range joins {
		entry.Joins = append(entry.Joins, RecordedJoin{Name: j.Name})
	}
	for _, a := range actions {
		entry.Actions = append(entry.Actions, RecordedAct{SniperID: a.SniperID, Act: a.Act})
	}
	for _, s := range e.opts.Ticks {
		if err := s.WriteTick(entry); err != nil {
			e.log.Printf("tick log: %v", err)
		}
	}
}

func (e *Engine) handleJoin(req JoinRequest) {
	e.nextSniper++
	id := fmt.Sprintf("S%04d", e.nextSniper)
	name := req.Name
	if name == "" {
		name = id
	}
	s := sniper.New(id, name, e.brushes, sniper.Defaults{
		Brush:        e.cfg.DefaultBrush,
		Size:         e.cfg.DefaultBrushSize,
		Material:     e.defaultMaterial(),
		ExcludeFluid: e.cfg.ExcludeFluid,
	}, e.cfg.UndoHistorySize, e.cfg.Messages)
	s.OnEdit = func(en *history.Entry) { e.recordEntry(ActionSetBlock, s, en) }
	s.OnWrite = func(en *history.Entry, c history.Change) { e.writeAudit(ActionSetBlock, s, en, []history.Change{c}) }
	s.History.OnApply = func(action string, en *history.Entry) { e.recordEntry(action, s, en) }

	e.snipers[id] = s
	e.order = append(e.order, id)
	if req.Out != nil {
		e.clients[id] = req.Out
	}
	e.log.Printf("join sniper=%s name=%q", id, name)

	if req.Resp != nil {
		req.Resp <- JoinResponse{Welcome: e.welcome(id)}
	}
}

func (e *Engine) defaultMaterial() material.Material {
	if m, ok := e.mats.Lookup(e.cfg.DefaultBrushMaterial); ok {
		return m
	}
	return e.mats.Air()
}

func (e *Engine) welcome(id string) protocol.WelcomeMsg {
	mc := e.cats.Materials
	return protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       uuid.NewString(),
		SniperID:        id,
		WorldParams: protocol.WorldParams{
			TickRateHz:      e.cfg.TickRateHz,
			Height:          e.store.Gen.Height,
			BoundaryR:       e.store.Gen.BoundaryR,
			Seed:            e.store.Gen.Seed,
			BlocksPerTick:   e.cfg.BlocksPerTick,
			UndoHistorySize: e.cfg.UndoHistorySize,
		},
		Catalogs: protocol.CatalogDigests{
			MaterialPalette: protocol.DigestRef{Digest: mc.PaletteDigest, Count: len(mc.Palette)},
			MaterialDefs:    mc.DefsDigest,
		},
		Brushes: e.brushes.Names(),
	}
}

func (e *Engine) handleLeave(id string) {
	s, ok := e.snipers[id]
	if !ok {
		return
	}
	if n := s.Cancel(); n > 0 {
		e.log.Printf("leave sniper=%s dropped %d pending edits", id, n)
	}
	delete(e.snipers, id)
	delete(e.clients, id)
	for i, v := range e.order {
		if v == id {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
}

// writeAudit stamps changes with the current tick.
func (e *Engine) writeAudit(action string, s *sniper.Sniper, en *history.Entry, changes []history.Change) {
	tick := e.tick.Load()
	for _, sink := range e.opts.Audit {
		for _, c := range changes {
			if err := sink.WriteAudit(AuditEntry{
				Tick:    tick,
				Actor:   s.ID,
				Action:  action,
				EntryID: en.ID,
				Pos:     c.Pos.ToArray(),
				From:    string(c.From),
				To:      string(c.To),
			}); err != nil {
				e.log.Printf("audit: %v", err)
				break
			}
		}
	}
}

// recordEntry fans a finished, undone or redone entry out to the sinks and
// the owning client. Audit rows for edits were already written per voxel.
func (e *Engine) recordEntry(action string, s *sniper.Sniper, en *history.Entry) {
	tick := e.tick.Load()
	if action != ActionSetBlock {
		e.writeAudit(action, s, en, en.Changes())
	}
	editAction := "EDIT"
	if action != ActionSetBlock {
		editAction = action
	}
	for _, sink := range e.opts.Edits {
		if err := sink.WriteEdit(EditLogEntry{
			Tick:    tick,
			Actor:   s.ID,
			Action:  editAction,
			EntryID: en.ID,
			Brush:   s.Brush(),
			Changes: en.Len(),
		}); err != nil {
			e.log.Printf("edit log: %v", err)
		}
	}
	e.tickEdits = append(e.tickEdits, observerproto.EditInfo{
		Actor:   s.ID,
		Action:  editAction,
		EntryID: en.ID,
		Changes: en.Len(),
	})
	e.sendJSON(s.ID, protocol.EditMsg{
		Type:            protocol.TypeEdit,
		ProtocolVersion: protocol.Version,
		Tick:            tick,
		Action:          editAction,
		EntryID:         en.ID,
		Changes:         en.Len(),
	})
}

func (e *Engine) deliverMessages(tick uint64, id string) {
	s := e.snipers[id]
	for _, text := range s.DrainMessages() {
		e.sendJSON(id, protocol.MsgMsg{
			Type:            protocol.TypeMsg,
			ProtocolVersion: protocol.Version,
			Tick:            tick,
			Text:            text,
		})
	}
}

func (e *Engine) sendJSON(id string, v any) {
	out, ok := e.clients[id]
	if !ok {
		return
	}
	b, err := marshal(v)
	if err != nil {
		e.log.Printf("%v", err)
		return
	}
	sendLatest(out, b)
}

func marshal(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal %T: %w", v, err)
	}
	return b, nil
}

// sendLatest never blocks the tick: when the client queue is full the
// oldest message is dropped.
func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}

var errNoSniper = errors.New("engine: unknown sniper")

// SetTick sets the starting tick, for resuming from a snapshot. Call it
// before Run.
func (e *Engine) SetTick(t uint64) { e.tick.Store(t) }
