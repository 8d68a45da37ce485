package logsink

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// DefaultPackage is reported for records that carry no "package" attribute.
const DefaultPackage = "utils"

// Handler is an slog.Handler that passes every record to next and also
// forwards records at or above level to a Client.
type Handler struct {
	next   slog.Handler
	client *Client
	level  slog.Leveler
	pkg    string
	attrs  []slog.Attr
}

func NewHandler(next slog.Handler, client *Client, level slog.Leveler) *Handler {
	if level == nil {
		level = slog.LevelInfo
	}
	return &Handler{next: next, client: client, level: level, pkg: DefaultPackage}
}

func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level.Level() || h.next.Enabled(ctx, level)
}

func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= h.level.Level() {
		h.forward(r)
	}
	if h.next.Enabled(ctx, r.Level) {
		return h.next.Handle(ctx, r)
	}
	return nil
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.next = h.next.WithAttrs(attrs)
	clone.attrs = append(clone.attrs[:len(clone.attrs):len(clone.attrs)], attrs...)
	for _, a := range attrs {
		if a.Key == "package" {
			clone.pkg = a.Value.String()
		}
	}
	return &clone
}

func (h *Handler) WithGroup(name string) slog.Handler {
	clone := *h
	clone.next = h.next.WithGroup(name)
	return &clone
}

func (h *Handler) forward(r slog.Record) {
	pkg := h.pkg
	var b strings.Builder
	b.WriteString(r.Message)

	write := func(a slog.Attr) {
		if a.Key == "package" {
			pkg = a.Value.String()
			return
		}
		fmt.Fprintf(&b, " %s=%v", a.Key, a.Value.Resolve())
	}
	for _, a := range h.attrs {
		write(a)
	}
	r.Attrs(func(a slog.Attr) bool {
		write(a)
		return true
	})

	h.client.Log(Entry{
		Level:   LevelName(r.Level),
		Package: pkg,
		Message: b.String(),
	})
}

// LevelName maps an slog level onto the collector's level vocabulary.
func LevelName(l slog.Level) string {
	switch {
	case l < slog.LevelInfo:
		return "debug"
	case l < slog.LevelWarn:
		return "info"
	case l < slog.LevelError:
		return "warn"
	case l < slog.LevelError+4:
		return "error"
	default:
		return "fatal"
	}
}
