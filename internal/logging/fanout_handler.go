package logging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// sink is one destination of a fanout, named for error reporting.
type sink struct {
	name    string
	handler slog.Handler
}

// fanoutHandler sends each record to every sink whose level admits it. The
// terminal and the run log file carry independent levels.
type fanoutHandler struct {
	sinks []sink
}

func newFanoutHandler(sinks ...sink) slog.Handler {
	var kept []sink
	for _, s := range sinks {
		if s.handler != nil {
			kept = append(kept, s)
		}
	}
	switch len(kept) {
	case 0:
		return NoopHandler{}
	case 1:
		return kept[0].handler
	}
	return &fanoutHandler{sinks: kept}
}

func (h *fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, s := range h.sinks {
		if s.handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *fanoutHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	for _, s := range h.sinks {
		if !s.handler.Enabled(ctx, record.Level) {
			continue
		}
		if err := s.handler.Handle(ctx, record.Clone()); err != nil {
			errs = append(errs, fmt.Errorf("%s sink: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}

func (h *fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.derive(func(handler slog.Handler) slog.Handler { return handler.WithAttrs(attrs) })
}

func (h *fanoutHandler) WithGroup(name string) slog.Handler {
	return h.derive(func(handler slog.Handler) slog.Handler { return handler.WithGroup(name) })
}

func (h *fanoutHandler) derive(fn func(slog.Handler) slog.Handler) slog.Handler {
	next := make([]sink, len(h.sinks))
	for i, s := range h.sinks {
		next[i] = sink{name: s.name, handler: fn(s.handler)}
	}
	return &fanoutHandler{sinks: next}
}
