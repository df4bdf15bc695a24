package engine

import (
	"sync/atomic"
	"time"
)

type metrics struct {
	snipers   atomic.Int64
	observers atomic.Int64
	pending   atomic.Int64
	blocks    atomic.Uint64
	stepNanos atomic.Int64
}

func (m *metrics) observe(e *Engine, start time.Time) {
	pending := 0
	for _, s := range e.snipers {
		pending += s.Pending.Len()
	}
	m.snipers.Store(int64(len(e.snipers)))
	m.observers.Store(int64(len(e.observers)))
	m.pending.Store(int64(pending))
	m.stepNanos.Store(int64(time.Since(start)))
}

// Metrics is a point-in-time view that is safe to read from any goroutine.
type Metrics struct {
	Tick          uint64  `json:"tick"`
	Snipers       int     `json:"snipers"`
	Observers     int     `json:"observers"`
	PendingEdits  int     `json:"pending_edits"`
	BlocksWritten uint64  `json:"blocks_written"`
	StepMS        float64 `json:"step_ms"`
	QueueDepths   struct {
		Inbox int `json:"inbox"`
		Join  int `json:"join"`
		Leave int `json:"leave"`
	} `json:"queue_depths"`
}

func (e *Engine) Metrics() Metrics {
	var m Metrics
	m.Tick = e.tick.Load()
	m.Snipers = int(e.metrics.snipers.Load())
	m.Observers = int(e.metrics.observers.Load())
	m.PendingEdits = int(e.metrics.pending.Load())
	m.BlocksWritten = e.metrics.blocks.Load()
	m.StepMS = float64(e.metrics.stepNanos.Load()) / float64(time.Millisecond)
	m.QueueDepths.Inbox = len(e.inbox)
	m.QueueDepths.Join = len(e.join)
	m.QueueDepths.Leave = len(e.leave)
	return m
}
