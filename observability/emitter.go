package observability

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/time/rate"

	"swarm1.dev/core/telemetry"
)

// Emitter appends Events to a single process-wide JSONL log
// (runs/observability/hooks.jsonl). Writes are serialized by mu and
// best-effort: an I/O error is logged through telemetry and swallowed, so a
// full disk or permission error never aborts a graph run.
type Emitter struct {
	mu      sync.Mutex
	path    string
	logger  telemetry.Logger
	limiter *rate.Limiter
}

// NewEmitter constructs an Emitter writing to runs/observability/hooks.jsonl
// under baseDir. limiter guards the writer against a pathological graph
// busy-looping retries/events; pass nil for no throttling.
func NewEmitter(baseDir string, logger telemetry.Logger, limiter *rate.Limiter) *Emitter {
	return &Emitter{
		path:    filepath.Join(baseDir, "observability", "hooks.jsonl"),
		logger:  logger,
		limiter: limiter,
	}
}

// Emit appends one event. It never returns an error to the caller: logging
// at WARN and dropping the event is the documented behavior for I/O
// failures.
func (e *Emitter) Emit(ev Event) {
	if e.limiter != nil && !e.limiter.Allow() {
		return
	}
	line, err := json.Marshal(ev)
	if err != nil {
		e.logger.Warn(context.Background(), "observability: failed to marshal event", "event_type", ev.EventType, "err", err.Error())
		return
	}
	line = append(line, '\n')

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(e.path), 0o755); err != nil {
		e.logger.Warn(context.Background(), "observability: failed to create log directory", "err", err.Error())
		return
	}
	f, err := os.OpenFile(e.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		e.logger.Warn(context.Background(), "observability: failed to open hooks log", "err", err.Error())
		return
	}
	defer f.Close()
	if _, err := f.Write(line); err != nil {
		e.logger.Warn(context.Background(), "observability: failed to append event", "err", err.Error())
	}
}
