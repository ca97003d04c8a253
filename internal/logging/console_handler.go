package logging

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// consoleHiddenKeys are carried in the JSON file but omitted on the terminal.
var consoleHiddenKeys = map[string]struct{}{
	FieldRunID:     {},
	FieldEventType: {},
}

const continuationIndent = "    | "

// field is a flattened attribute: group names joined with dots.
type field struct {
	key   string
	value slog.Value
}

// prettyHandler renders "15:04:05 LEVEL component: message key=value" lines.
type prettyHandler struct {
	mu        *sync.Mutex
	writer    io.Writer
	level     slog.Leveler
	addSource bool

	prefix    string
	component string
	fields    []field
}

func newPrettyHandler(w io.Writer, lvl slog.Leveler, addSource bool) slog.Handler {
	return &prettyHandler{mu: &sync.Mutex{}, writer: w, level: lvl, addSource: addSource}
}

func (h *prettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *prettyHandler) Handle(_ context.Context, record slog.Record) error {
	if !h.Enabled(context.Background(), record.Level) {
		return nil
	}

	component := h.component
	fields := append([]field(nil), h.fields...)
	record.Attrs(func(attr slog.Attr) bool {
		fields = h.collect(fields, &component, h.prefix, attr)
		return true
	})

	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	var b strings.Builder
	b.Grow(128 + len(fields)*24)
	b.WriteString(formatTimestamp(ts))
	b.WriteByte(' ')
	b.WriteString(levelLabel(record.Level))
	b.WriteByte(' ')
	if component != "" {
		b.WriteString(component)
		b.WriteString(": ")
	}

	msg := strings.TrimSpace(record.Message)
	if msg == "" {
		msg = "(no message)"
	}
	// Tracebacks and other multi-line messages stay aligned under the entry.
	b.WriteString(strings.ReplaceAll(msg, "\n", "\n"+continuationIndent))

	if h.addSource {
		if src := record.Source(); src != nil {
			b.WriteString(" [" + filepath.Base(src.File) + ":" + strconv.Itoa(src.Line) + "]")
		}
	}

	for _, f := range fields {
		b.WriteByte(' ')
		b.WriteString(f.key)
		b.WriteByte('=')
		if IsSecretKey(f.key) {
			b.WriteString(redactedValue)
		} else {
			b.WriteString(formatValue(f.value))
		}
	}
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.writer, b.String())
	return err
}

// collect flattens attr into fields. The first component attribute becomes
// the line prefix instead of a key=value pair.
func (h *prettyHandler) collect(fields []field, component *string, prefix string, attr slog.Attr) []field {
	if attr.Equal(slog.Attr{}) {
		return fields
	}
	value := attr.Value.Resolve()
	if value.Kind() == slog.KindGroup {
		if attr.Key != "" {
			prefix += attr.Key + "."
		}
		for _, nested := range value.Group() {
			fields = h.collect(fields, component, prefix, nested)
		}
		return fields
	}

	key := prefix + attr.Key
	if attr.Key == "" {
		key = strings.TrimSuffix(prefix, ".")
	}
	if key == "" {
		return fields
	}
	if key == FieldComponent {
		if *component == "" {
			*component = attrString(value)
		}
		return fields
	}
	if _, hidden := consoleHiddenKeys[key]; hidden {
		return fields
	}
	return append(fields, field{key: key, value: value})
}

func (h *prettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := h.clone()
	for _, attr := range attrs {
		next.fields = next.collect(next.fields, &next.component, next.prefix, attr)
	}
	return next
}

func (h *prettyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := h.clone()
	next.prefix += name + "."
	return next
}

func (h *prettyHandler) clone() *prettyHandler {
	next := *h
	next.fields = append([]field(nil), h.fields...)
	return &next
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}
