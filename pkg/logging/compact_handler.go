package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Level labels padded to a fixed width so messages line up
var levelLabels = map[slog.Level]string{
	LevelTrace:      "[TRACE] ",
	slog.LevelDebug: "[DEBUG] ",
	slog.LevelInfo:  "[INFO]  ",
	slog.LevelWarn:  "[WARN]  ",
	slog.LevelError: "[ERROR] ",
}

// Correlation IDs are printed as their first eight characters
var shortIDs = map[string]string{
	"requestID": "req",
	"runID":     "run",
}

// Numeric keys carrying a unit in their name are printed as key=<n><unit>
var unitKeys = map[string]struct{ key, unit string }{
	"durationMs":     {"duration", "ms"},
	"loadW":          {"load", "W"},
	"massFlowKgPerS": {"mass_flow", "kg/s"},
}

// CompactHandler writes one line per record for console use:
//
//	[LEVEL] HH:MM:SS message | key=value key=value
type CompactHandler struct {
	level slog.Leveler
	mu    *sync.Mutex
	out   io.Writer
	attrs []string // rendered by WithAttrs under the group current at the time
	group string
}

// NewCompactHandler returns a handler writing to w. A nil opts logs at info.
func NewCompactHandler(w io.Writer, opts *slog.HandlerOptions) *CompactHandler {
	h := &CompactHandler{level: slog.LevelInfo, mu: &sync.Mutex{}, out: w}
	if opts != nil && opts.Level != nil {
		h.level = opts.Level
	}
	return h
}

func (h *CompactHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *CompactHandler) Handle(_ context.Context, r slog.Record) error {
	buf := make([]byte, 0, 256)

	if label, ok := levelLabels[r.Level]; ok {
		buf = append(buf, label...)
	} else {
		buf = fmt.Appendf(buf, "[%-5s] ", r.Level.String())
	}
	buf = r.Time.AppendFormat(buf, time.TimeOnly)
	buf = append(buf, ' ')
	buf = append(buf, r.Message...)

	sep := " | "
	for _, a := range h.attrs {
		buf = append(append(buf, sep...), a...)
		sep = " "
	}
	r.Attrs(func(a slog.Attr) bool {
		if !a.Equal(slog.Attr{}) {
			buf = appendAttr(append(buf, sep...), h.group, a)
			sep = " "
		}
		return true
	})
	buf = append(buf, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.out.Write(buf)
	return err
}

func appendAttr(buf []byte, group string, a slog.Attr) []byte {
	v := a.Value.Resolve()
	if group != "" {
		buf = append(buf, group+"."...)
	}

	if short, ok := shortIDs[a.Key]; ok && v.Kind() == slog.KindString && len(v.String()) > 8 {
		return append(append(buf, short+"="...), v.String()[:8]...)
	}
	if u, ok := unitKeys[a.Key]; ok {
		buf = append(buf, u.key+"="...)
		return append(appendValue(buf, v), u.unit...)
	}
	if a.Key == "error" {
		return strconv.AppendQuote(append(buf, "error="...), fmt.Sprint(v.Any()))
	}

	buf = append(buf, a.Key...)
	buf = append(buf, '=')
	return appendValue(buf, v)
}

func appendValue(buf []byte, v slog.Value) []byte {
	switch v.Kind() {
	case slog.KindString:
		if s := v.String(); strings.ContainsAny(s, " \t\n\"=") {
			return strconv.AppendQuote(buf, s)
		}
		return append(buf, v.String()...)
	case slog.KindInt64:
		return strconv.AppendInt(buf, v.Int64(), 10)
	case slog.KindUint64:
		return strconv.AppendUint(buf, v.Uint64(), 10)
	case slog.KindFloat64:
		return strconv.AppendFloat(buf, v.Float64(), 'g', -1, 64)
	case slog.KindBool:
		return strconv.AppendBool(buf, v.Bool())
	case slog.KindDuration:
		return append(buf, v.Duration().String()...)
	case slog.KindTime:
		return v.Time().AppendFormat(buf, time.RFC3339)
	default:
		return fmt.Append(buf, v.Any())
	}
}

func (h *CompactHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(make([]string, 0, len(h.attrs)+len(attrs)), h.attrs...)
	for _, a := range attrs {
		if !a.Equal(slog.Attr{}) {
			clone.attrs = append(clone.attrs, string(appendAttr(nil, h.group, a)))
		}
	}
	return &clone
}

func (h *CompactHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.group = name
	if h.group != "" {
		clone.group = h.group + "." + name
	}
	return &clone
}
