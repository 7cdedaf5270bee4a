package logger

import (
	"context"
	"log/slog"
	"maps"
)

// ContextExtractor extracts a slog attribute from context.
type ContextExtractor func(ctx context.Context) (slog.Attr, bool)

// LogHandlerDecorator wraps a slog.Handler and adds the attributes found by
// its extractors to every record. Extraction runs per record, so values set
// on a request context after the logger was built are still picked up.
//
// An extracted attribute never overrides a key set explicitly, either on the
// record or through Logger.With before any group was opened: a component
// logging logger.ClickID keeps its own value.
type LogHandlerDecorator struct {
	next       slog.Handler
	extractors []ContextExtractor
	keys       map[string]struct{}
	grouped    bool
}

// NewLogHandlerDecorator decorates next with extractors. Nil extractors are
// dropped.
func NewLogHandlerDecorator(next slog.Handler, extractors ...ContextExtractor) slog.Handler {
	clean := make([]ContextExtractor, 0, len(extractors))
	for _, ex := range extractors {
		if ex != nil {
			clean = append(clean, ex)
		}
	}
	return &LogHandlerDecorator{next: next, extractors: clean}
}

func (h *LogHandlerDecorator) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle appends the extracted attributes that are not already present and
// passes rec on.
func (h *LogHandlerDecorator) Handle(ctx context.Context, rec slog.Record) error {
	if len(h.extractors) == 0 {
		return h.next.Handle(ctx, rec)
	}

	var present map[string]struct{}
	rec.Attrs(func(a slog.Attr) bool {
		if present == nil {
			present = make(map[string]struct{}, rec.NumAttrs())
		}
		present[a.Key] = struct{}{}
		return true
	})
	for _, ex := range h.extractors {
		attr, ok := ex(ctx)
		if !ok || h.has(attr.Key) {
			continue
		}
		if _, dup := present[attr.Key]; dup {
			continue
		}
		rec.AddAttrs(attr)
	}
	return h.next.Handle(ctx, rec)
}

// WithAttrs remembers top-level keys so extractors do not repeat them.
func (h *LogHandlerDecorator) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := h.clone()
	c.next = h.next.WithAttrs(attrs)
	if !c.grouped {
		for _, a := range attrs {
			c.keys[a.Key] = struct{}{}
		}
	}
	return c
}

// WithGroup nests later attributes; extracted attributes land in the group
// like any other record attribute.
func (h *LogHandlerDecorator) WithGroup(name string) slog.Handler {
	c := h.clone()
	c.next = h.next.WithGroup(name)
	c.grouped = c.grouped || name != ""
	return c
}

func (h *LogHandlerDecorator) has(key string) bool {
	_, ok := h.keys[key]
	return ok
}

func (h *LogHandlerDecorator) clone() *LogHandlerDecorator {
	keys := make(map[string]struct{}, len(h.keys))
	maps.Copy(keys, h.keys)
	return &LogHandlerDecorator{
		next:       h.next,
		extractors: h.extractors,
		keys:       keys,
		grouped:    h.grouped,
	}
}
