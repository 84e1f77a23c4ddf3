package logging

import (
	"context"
	"log/slog"
)

// DefaultCaptureLevel is the lowest level Capture records.
const DefaultCaptureLevel = slog.LevelWarn

// CapturingHandler wraps an slog.Handler, recording records at or above a
// minimum level into a LogCollector under a source name. Every record the
// underlying handler accepts is still passed through.
type CapturingHandler struct {
	underlying slog.Handler
	collector  *LogCollector
	source     string
	minLevel   slog.Level
	attrs      []slog.Attr
	groups     []string
}

// NewCapturingHandler creates a CapturingHandler for source.
func NewCapturingHandler(underlying slog.Handler, collector *LogCollector, source string, minLevel slog.Level) *CapturingHandler {
	return &CapturingHandler{
		underlying: underlying,
		collector:  collector,
		source:     source,
		minLevel:   minLevel,
	}
}

// Capture returns a logger that records warnings and errors from source
// into collector.
func Capture(base *slog.Logger, collector *LogCollector, source string) *slog.Logger {
	return slog.New(NewCapturingHandler(base.Handler(), collector, source, DefaultCaptureLevel))
}

// Enabled reports whether the record is either captured or written.
func (h *CapturingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.minLevel || h.underlying.Enabled(ctx, level)
}

// Handle captures the record if it meets the minimum level, then passes it
// to the underlying handler if that handler accepts the level.
func (h *CapturingHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= h.minLevel {
		h.collector.Add(h.source, h.entry(r))
	}
	if !h.underlying.Enabled(ctx, r.Level) {
		return nil
	}
	return h.underlying.Handle(ctx, r)
}

func (h *CapturingHandler) entry(r slog.Record) LogEntry {
	attrs := make(map[string]any, r.NumAttrs()+len(h.attrs))
	for _, a := range h.attrs {
		attrs[a.Key] = resolveValue(a.Value)
	}

	// Record attrs added after WithGroup belong to the innermost group.
	target := attrs
	for _, g := range h.groups {
		next := make(map[string]any)
		target[g] = next
		target = next
	}
	r.Attrs(func(a slog.Attr) bool {
		target[a.Key] = resolveValue(a.Value)
		return true
	})

	return LogEntry{
		Time:       r.Time,
		Level:      r.Level.String(),
		Source:     h.source,
		Message:    r.Message,
		Attributes: attrs,
	}
}

// WithAttrs returns a CapturingHandler that also records attrs. It must
// wrap, not replace, so loggers derived with With keep capturing.
func (h *CapturingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	copy(newAttrs[len(h.attrs):], attrs)

	clone := *h
	clone.underlying = h.underlying.WithAttrs(attrs)
	clone.attrs = newAttrs
	return &clone
}

// WithGroup returns a CapturingHandler that nests later attributes under name.
func (h *CapturingHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	newGroups := make([]string, len(h.groups)+1)
	copy(newGroups, h.groups)
	newGroups[len(h.groups)] = name

	clone := *h
	clone.underlying = h.underlying.WithGroup(name)
	clone.groups = newGroups
	return &clone
}

// resolveValue converts a slog.Value to a JSON-serializable value.
func resolveValue(v slog.Value) any {
	v = v.Resolve()

	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindInt64:
		return v.Int64()
	case slog.KindUint64:
		return v.Uint64()
	case slog.KindFloat64:
		return v.Float64()
	case slog.KindBool:
		return v.Bool()
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time()
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return v.Any()
	case slog.KindGroup:
		attrs := v.Group()
		group := make(map[string]any, len(attrs))
		for _, attr := range attrs {
			group[attr.Key] = resolveValue(attr.Value)
		}
		return group
	default:
		return v.Any()
	}
}
