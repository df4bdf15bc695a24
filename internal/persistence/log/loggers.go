// Package log writes hour-rotated, zstd-compressed JSONL streams for audit
// and edit records.
package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"voxelsniper.dev/internal/sim/engine"
)

// JSONLZstdWriter appends one JSON value per line to
// <dir>/<prefix>-YYYY-MM-DD-HH.jsonl.zst, opening a new file each UTC hour.
type JSONLZstdWriter struct {
	dir    string
	prefix string
	now    func() time.Time

	mu   sync.Mutex
	hour string
	f    *os.File
	enc  *zstd.Encoder
	bw   *bufio.Writer
}

func NewJSONLZstdWriter(dir, prefix string) *JSONLZstdWriter {
	return &JSONLZstdWriter{dir: dir, prefix: prefix, now: time.Now}
}

// WithClock replaces the clock used to pick the hour file.
func (w *JSONLZstdWriter) WithClock(now func() time.Time) *JSONLZstdWriter {
	w.now = now
	return w
}

func (w *JSONLZstdWriter) Write(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if hour := w.now().UTC().Format("2006-01-02-15"); hour != w.hour {
		if err := w.rotateLocked(hour); err != nil {
			return err
		}
	}
	if _, err := w.bw.Write(b); err != nil {
		return err
	}
	if err := w.bw.WriteByte('\n'); err != nil {
		return err
	}
	if err := w.bw.Flush(); err != nil {
		return err
	}
	return w.enc.Flush()
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *JSONLZstdWriter) Path(hour string) string {
	return filepath.Join(w.dir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, hour))
}

func (w *JSONLZstdWriter) rotateLocked(hour string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(w.Path(hour), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f, w.enc, w.hour = f, enc, hour
	w.bw = bufio.NewWriterSize(enc, 64*1024)
	return nil
}

func (w *JSONLZstdWriter) closeLocked() error {
	var err error
	if w.bw != nil {
		err = w.bw.Flush()
		w.bw = nil
	}
	if w.enc != nil {
		if cerr := w.enc.Close(); err == nil {
			err = cerr
		}
		w.enc = nil
	}
	if w.f != nil {
		if cerr := w.f.Close(); err == nil {
			err = cerr
		}
		w.f = nil
	}
	w.hour = ""
	return err
}

// ReadJSONL decodes every line of a file written by JSONLZstdWriter into a
// fresh T and passes it to fn. Appended sessions decode as concatenated
// zstd frames.
func ReadJSONL[T any](path string, fn func(T) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		var v T
		if err := json.Unmarshal(sc.Bytes(), &v); err != nil {
			return fmt.Errorf("%s:%d: %w", path, line, err)
		}
		if err := fn(v); err != nil {
			return err
		}
	}
	return sc.Err()
}

// Files lists the stream files for prefix under dir in hour order.
func Files(dir, prefix string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, prefix+"-*.jsonl.zst"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

// AuditLogger writes one line per block write.
type AuditLogger struct{ w *JSONLZstdWriter }

func NewAuditLogger(dataDir string) *AuditLogger {
	return &AuditLogger{w: NewJSONLZstdWriter(filepath.Join(dataDir, "audit"), "audit")}
}

func (l *AuditLogger) WriteAudit(v engine.AuditEntry) error { return l.w.Write(v) }
func (l *AuditLogger) Close() error                         { return l.w.Close() }

// EditLogger writes one line per finished edit, undo or redo.
type EditLogger struct{ w *JSONLZstdWriter }

func NewEditLogger(dataDir string) *EditLogger {
	return &EditLogger{w: NewJSONLZstdWriter(filepath.Join(dataDir, "edits"), "edits")}
}

func (l *EditLogger) WriteEdit(v engine.EditLogEntry) error { return l.w.Write(v) }
func (l *EditLogger) Close() error                          { return l.w.Close() }

// TickLogger writes one line per tick with its inputs and digest.
type TickLogger struct{ w *JSONLZstdWriter }

func NewTickLogger(dataDir string) *TickLogger {
	return &TickLogger{w: NewJSONLZstdWriter(filepath.Join(dataDir, "events"), "events")}
}

func (l *TickLogger) WriteTick(v engine.TickLogEntry) error { return l.w.Write(v) }
func (l *TickLogger) Close() error                          { return l.w.Close() }
