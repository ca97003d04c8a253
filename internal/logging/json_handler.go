package logging

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"
)

// newJSONHandler writes one object per line keyed ts, level, msg, with
// nanosecond UTC timestamps. Credential-like attributes are masked.
func newJSONHandler(w io.Writer, lvl slog.Leveler, addSource bool) slog.Handler {
	replace := func(groups []string, attr slog.Attr) slog.Attr {
		if len(groups) > 0 {
			return redactAttr(attr)
		}
		switch attr.Key {
		case slog.TimeKey:
			attr.Key = "ts"
			if attr.Value.Kind() == slog.KindTime {
				attr.Value = slog.StringValue(attr.Value.Time().UTC().Format(time.RFC3339Nano))
			}
		case slog.MessageKey:
			return attr
		case slog.LevelKey:
			attr.Value = slog.StringValue(strings.ToLower(attr.Value.String()))
		case slog.SourceKey:
			if src, ok := attr.Value.Any().(*slog.Source); ok && src != nil {
				attr.Value = slog.StringValue(fmt.Sprintf("%s:%d", filepath.Base(src.File), src.Line))
			}
		default:
			return redactAttr(attr)
		}
		return attr
	}
	return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl, AddSource: addSource, ReplaceAttr: replace})
}
