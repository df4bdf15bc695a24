package indexdb

import (
	"context"
	"database/sql"

	"voxelsniper.dev/internal/sim/engine"
)

// Audits returns the newest audit rows, optionally filtered by actor.
func (s *SQLiteIndex) Audits(ctx context.Context, actor string, limit int) ([]engine.AuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `SELECT tick,actor,action,entry_id,x,y,z,from_material,to_material
		FROM audits WHERE (?1 = '' OR actor = ?1) ORDER BY tick DESC, seq DESC LIMIT ?2`, actor, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []engine.AuditEntry
	for rows.Next() {
		var a engine.AuditEntry
		var tick int64
		if err := rows.Scan(&tick, &a.Actor, &a.Action, &a.EntryID, &a.Pos[0], &a.Pos[1], &a.Pos[2], &a.From, &a.To); err != nil {
			return nil, err
		}
		a.Tick = uint64(tick)
		out = append(out, a)
	}
	return out, rows.Err()
}

// Edits returns the newest edit rows, optionally filtered by actor.
func (s *SQLiteIndex) Edits(ctx context.Context, actor string, limit int) ([]engine.EditLogEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `SELECT tick,actor,action,entry_id,brush,changes
		FROM edits WHERE (?1 = '' OR actor = ?1) ORDER BY tick DESC, seq DESC LIMIT ?2`, actor, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []engine.EditLogEntry
	for rows.Next() {
		var e engine.EditLogEntry
		var tick int64
		if err := rows.Scan(&tick, &e.Actor, &e.Action, &e.EntryID, &e.Brush, &e.Changes); err != nil {
			return nil, err
		}
		e.Tick = uint64(tick)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteIndex) Sections(ctx context.Context) ([]engine.SectionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name,tick,actor,path,voxels,wide FROM sections ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []engine.SectionRecord
	for rows.Next() {
		var r engine.SectionRecord
		var tick int64
		if err := rows.Scan(&r.Name, &tick, &r.Actor, &r.Path, &r.Voxels, &r.Wide); err != nil {
			return nil, err
		}
		r.Tick = uint64(tick)
		out = append(out, r)
	}
	return out, rows.Err()
}

// LatestSnapshot returns the path of the newest recorded world snapshot.
func (s *SQLiteIndex) LatestSnapshot(ctx context.Context) (path string, tick uint64, err error) {
	var t int64
	err = s.db.QueryRowContext(ctx, `SELECT path,tick FROM snapshots ORDER BY tick DESC LIMIT 1`).Scan(&path, &t)
	if err == sql.ErrNoRows {
		return "", 0, nil
	}
	return path, uint64(t), err
}

// CatalogDigest returns the stored digest for a catalog row.
func (s *SQLiteIndex) CatalogDigest(ctx context.Context, name string) (string, error) {
	var d string
	err := s.db.QueryRowContext(ctx, `SELECT digest FROM catalogs WHERE name = ?`, name).Scan(&d)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return d, err
}
