package compass

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
)

type EventKind string

const (
	EventReset      EventKind = "reset"
	EventSettings   EventKind = "settings"
	EventFlagsRead  EventKind = "flags-read"
	EventFlagsWrite EventKind = "flags-write"
	EventBurstRead  EventKind = "burst-read"
	EventStandby    EventKind = "standby"
	EventSync       EventKind = "sync"
)

// Event is a diagnostic record emitted by the driver. Data aliases driver
// buffers and must not be retained.
type Event struct {
	Kind     EventKind
	Register byte
	Data     []byte
}

// Tracer receives driver events. Implementations must not call back into
// the driver.
type Tracer interface {
	Trace(ctx context.Context, ev Event)
}

type TracerFunc func(ctx context.Context, ev Event)

func (f TracerFunc) Trace(ctx context.Context, ev Event) {
	f(ctx, ev)
}

type logTracer struct {
	logger *slog.Logger
}

// LogTracer writes events to logger at debug level.
func LogTracer(logger *slog.Logger) Tracer {
	if logger == nil {
		logger = slog.Default()
	}
	return &logTracer{logger: logger.With("device", "qmc5883l")}
}

func (t *logTracer) Trace(ctx context.Context, ev Event) {
	if !t.logger.Enabled(ctx, slog.LevelDebug) {
		return
	}
	t.logger.DebugContext(ctx, string(ev.Kind),
		"register", fmt.Sprintf("%#02x", ev.Register),
		"data", hex.EncodeToString(ev.Data))
}
