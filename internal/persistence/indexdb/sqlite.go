// Package indexdb keeps a queryable SQLite index of audits, edits, saved
// sections and world snapshots. The JSONL logs remain the source of truth;
// the index drops writes when it falls behind.
package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"voxelsniper.dev/internal/sim/catalogs"
	"voxelsniper.dev/internal/sim/engine"
	"voxelsniper.dev/internal/sim/tuning"
)

type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropAudit    atomic.Uint64
	dropEdit     atomic.Uint64
	dropSection  atomic.Uint64
	dropSnapshot atomic.Uint64
}

type reqKind int

const (
	reqAudit reqKind = iota + 1
	reqEdit
	reqSection
	reqSnapshot
	reqSync
)

type req struct {
	kind reqKind

	audit    engine.AuditEntry
	edit     engine.EditLogEntry
	section  engine.SectionRecord
	snapshot snapshotRow
	done     chan struct{}
}

type snapshotRow struct {
	Tick   uint64
	Path   string
	Chunks int
}

// Stats reports queue pressure.
type Stats struct {
	QueueDepth        int
	QueueCapacity     int
	DropAuditTotal    uint64
	DropEditTotal     uint64
	DropSectionTotal  uint64
	DropSnapshotTotal uint64
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		// A large brush emits tens of thousands of audit rows in one tick.
		ch: make(chan req, 262144),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS audits (
			tick INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			actor TEXT NOT NULL,
			action TEXT NOT NULL,
			entry_id TEXT NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			z INTEGER NOT NULL,
			from_material TEXT NOT NULL,
			to_material TEXT NOT NULL,
			PRIMARY KEY (tick, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_audits_actor_tick ON audits(actor, tick);`,
		`CREATE INDEX IF NOT EXISTS idx_audits_pos_tick ON audits(x, z, y, tick);`,
		`CREATE TABLE IF NOT EXISTS edits (
			tick INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			actor TEXT NOT NULL,
			action TEXT NOT NULL,
			entry_id TEXT NOT NULL,
			brush TEXT NOT NULL,
			changes INTEGER NOT NULL,
			PRIMARY KEY (tick, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_edits_entry ON edits(entry_id);`,
		`CREATE TABLE IF NOT EXISTS sections (
			name TEXT PRIMARY KEY,
			tick INTEGER NOT NULL,
			actor TEXT NOT NULL,
			path TEXT NOT NULL,
			voxels INTEGER NOT NULL,
			wide INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			tick INTEGER PRIMARY KEY,
			path TEXT NOT NULL,
			chunks INTEGER NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) Stats() Stats {
	return Stats{
		QueueDepth:        len(s.ch),
		QueueCapacity:     cap(s.ch),
		DropAuditTotal:    s.dropAudit.Load(),
		DropEditTotal:     s.dropEdit.Load(),
		DropSectionTotal:  s.dropSection.Load(),
		DropSnapshotTotal: s.dropSnapshot.Load(),
	}
}

func (s *SQLiteIndex) enqueue(r req, drops *atomic.Uint64) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- r:
	default:
		drops.Add(1)
	}
}

func (s *SQLiteIndex) WriteAudit(entry engine.AuditEntry) error {
	s.enqueue(req{kind: reqAudit, audit: entry}, &s.dropAudit)
	return nil
}

func (s *SQLiteIndex) WriteEdit(entry engine.EditLogEntry) error {
	s.enqueue(req{kind: reqEdit, edit: entry}, &s.dropEdit)
	return nil
}

func (s *SQLiteIndex) RecordSection(rec engine.SectionRecord) {
	s.enqueue(req{kind: reqSection, section: rec}, &s.dropSection)
}

func (s *SQLiteIndex) RecordWorldSnapshot(path string, tick uint64, chunks int) {
	s.enqueue(req{kind: reqSnapshot, snapshot: snapshotRow{Tick: tick, Path: path, Chunks: chunks}}, &s.dropSnapshot)
}

// Sync blocks until everything queued before it is committed.
func (s *SQLiteIndex) Sync(ctx context.Context) error {
	if s.closed.Load() {
		return fmt.Errorf("index closed")
	}
	done := make(chan struct{})
	select {
	case s.ch <- req{kind: reqSync, done: done}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// UpsertCatalogs stores the material catalog and the tuning actually in
// effect.
func (s *SQLiteIndex) UpsertCatalogs(cats *catalogs.Catalogs, tune tuning.Tuning) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)

	type kv struct {
		name   string
		digest string
		json   []byte
	}
	var rows []kv
	if b, err := json.Marshal(cats.Materials.Palette); err == nil {
		rows = append(rows, kv{name: "materials_palette", digest: cats.Materials.PaletteDigest, json: b})
	}
	if b, err := json.Marshal(cats.Materials.Defs); err == nil {
		rows = append(rows, kv{name: "materials_defs", digest: cats.Materials.DefsDigest, json: b})
	}
	if b, err := json.Marshal(tune); err == nil {
		sum := sha256.Sum256(b)
		rows = append(rows, kv{name: "tuning", digest: hex.EncodeToString(sum[:]), json: b})
	}

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if _, err := stmt.Exec(r.name, r.digest, string(r.json), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertAudit, _ := s.db.Prepare(`INSERT OR REPLACE INTO audits(tick,seq,actor,action,entry_id,x,y,z,from_material,to_material) VALUES(?,?,?,?,?,?,?,?,?,?)`)
	insertEdit, _ := s.db.Prepare(`INSERT OR REPLACE INTO edits(tick,seq,actor,action,entry_id,brush,changes) VALUES(?,?,?,?,?,?,?)`)
	insertSection, _ := s.db.Prepare(`INSERT OR REPLACE INTO sections(name,tick,actor,path,voxels,wide) VALUES(?,?,?,?,?,?)`)
	insertSnapshot, _ := s.db.Prepare(`INSERT OR REPLACE INTO snapshots(tick,path,chunks) VALUES(?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertAudit, insertEdit, insertSection, insertSnapshot} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 2 * time.Second

		auditSeq = newSeq()
		editSeq  = newSeq()
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	exec := func(st *sql.Stmt, args ...any) {
		if st == nil {
			return
		}
		if _, err := tx.Stmt(st).Exec(args...); err != nil {
			rollback()
			return
		}
		opCount++
	}

	for r := range s.ch {
		if r.kind == reqSync {
			commit()
			close(r.done)
			continue
		}
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqAudit:
			a := r.audit
			exec(insertAudit, int64(a.Tick), auditSeq.next(a.Tick), a.Actor, a.Action, a.EntryID,
				a.Pos[0], a.Pos[1], a.Pos[2], a.From, a.To)
		case reqEdit:
			e := r.edit
			exec(insertEdit, int64(e.Tick), editSeq.next(e.Tick), e.Actor, e.Action, e.EntryID, e.Brush, e.Changes)
		case reqSection:
			sec := r.section
			exec(insertSection, sec.Name, int64(sec.Tick), sec.Actor, sec.Path, sec.Voxels, sec.Wide)
		case reqSnapshot:
			sn := r.snapshot
			exec(insertSnapshot, int64(sn.Tick), sn.Path, sn.Chunks)
		}
		if tx != nil && (opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait) {
			commit()
		}
	}

	commit()
}

// seq numbers rows within a tick.
type seq struct {
	tick uint64
	n    int
	set  bool
}

func newSeq() *seq { return &seq{} }

func (s *seq) next(tick uint64) int {
	if !s.set || tick != s.tick {
		s.tick, s.n, s.set = tick, 0, true
	}
	n := s.n
	s.n++
	return n
}
