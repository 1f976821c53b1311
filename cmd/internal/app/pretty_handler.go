package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

const redacted = "[redacted]"

// secretKeys never reach a log sink in clear text, whatever the handler.
var secretKeys = map[string]bool{
	"password":         true,
	"confirm_password": true,
	"admin_secret":     true,
	"token":            true,
	"api_key":          true,
}

// redactSecrets is a slog ReplaceAttr hook shared by the JSON and pretty handlers.
func redactSecrets(_ []string, a slog.Attr) slog.Attr {
	if secretKeys[strings.ToLower(a.Key)] {
		return slog.String(a.Key, redacted)
	}
	return a
}

// fieldStyle renders one well-known attribute of the request and session events.
type fieldStyle struct {
	alias  string
	render func(v slog.Value, color bool) string
}

var prettyFields = map[string]fieldStyle{
	"method": {render: func(v slog.Value, c bool) string {
		return colorizeHTTPMethod(strings.ToUpper(strings.TrimSpace(v.String())), c)
	}},
	"path": {render: func(v slog.Value, c bool) string { return paint(v.String(), ansiCyan, c) }},
	"status": {render: func(v slog.Value, c bool) string {
		if n, ok := valueToInt64(v); ok {
			return colorizeStatusCode(int(n), c)
		}
		return quoteIfNeeded(valueToString(v))
	}},
	"status_class": {alias: "class", render: func(v slog.Value, c bool) string {
		return colorizeStatusClass(v.String(), c)
	}},
	"duration_ms": {alias: "duration", render: func(v slog.Value, c bool) string {
		if n, ok := valueToInt64(v); ok {
			return colorizeDurationMS(n, c)
		}
		return quoteIfNeeded(valueToString(v))
	}},
	"result": {render: func(v slog.Value, c bool) string {
		return colorizeResult(strings.ToLower(v.String()), c)
	}},
	"username":        {render: identityValue},
	"device_id":       {alias: "device", render: identityValue},
	"prior_device_id": {alias: "prior_device", render: identityValue},
	"err": {render: func(v slog.Value, c bool) string {
		return paint(quoteIfNeeded(valueToString(v)), ansiRed, c)
	}},
}

func identityValue(v slog.Value, color bool) string {
	return paint(quoteIfNeeded(valueToString(v)), ansiCyan, color)
}

// prettyHandler writes one line per record:
//
//	15:04:05.000 [INFO] auth.login.ok username=alice device=d-1
//
// Attributes added through WithAttrs are rendered once and reused.
type prettyHandler struct {
	w      io.Writer
	mu     *sync.Mutex
	opts   slog.HandlerOptions
	color  bool
	prefix string // open groups joined with "."
	pre    string // rendered WithAttrs output
}

func newPrettyHandler(w io.Writer, opts *slog.HandlerOptions, color bool) slog.Handler {
	h := &prettyHandler{w: w, mu: &sync.Mutex{}, color: color}
	if opts != nil {
		h.opts = *opts
	}
	return h
}

func (h *prettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	threshold := slog.LevelInfo
	if h.opts.Level != nil {
		threshold = h.opts.Level.Level()
	}
	return level >= threshold
}

func (h *prettyHandler) Handle(_ context.Context, r slog.Record) error {
	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	var b strings.Builder
	b.WriteString(paint(ts.Format("15:04:05.000"), ansiDim, h.color))
	b.WriteByte(' ')
	b.WriteString(levelTag(r.Level, h.color))
	b.WriteByte(' ')
	b.WriteString(paint(r.Message, ansiBright, h.color))

	if h.opts.AddSource && r.PC != 0 {
		frame, _ := runtime.CallersFrames([]uintptr{r.PC}).Next()
		if frame.File != "" {
			b.WriteString(" src=")
			b.WriteString(paint(fmt.Sprintf("%s:%d", filepath.Base(frame.File), frame.Line), ansiDim, h.color))
		}
	}

	b.WriteString(h.pre)
	r.Attrs(func(a slog.Attr) bool {
		h.writeAttr(&b, h.prefix, a)
		return true
	})
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *prettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	var b strings.Builder
	b.WriteString(h.pre)
	for _, a := range attrs {
		h.writeAttr(&b, h.prefix, a)
	}
	cp := *h
	cp.pre = b.String()
	return &cp
}

func (h *prettyHandler) WithGroup(name string) slog.Handler {
	name = strings.TrimSpace(name)
	if name == "" {
		return h
	}
	cp := *h
	cp.prefix = joinKey(h.prefix, name)
	return &cp
}

func (h *prettyHandler) writeAttr(b *strings.Builder, prefix string, a slog.Attr) {
	if h.opts.ReplaceAttr != nil && a.Value.Kind() != slog.KindGroup {
		a = h.opts.ReplaceAttr(groupsOf(prefix), a)
	}
	a.Value = a.Value.Resolve()
	key := strings.TrimSpace(a.Key)

	if a.Value.Kind() == slog.KindGroup {
		sub := prefix
		if key != "" {
			sub = joinKey(prefix, key)
		}
		for _, ga := range a.Value.Group() {
			h.writeAttr(b, sub, ga)
		}
		return
	}
	if key == "" || a.Equal(slog.Attr{}) {
		return
	}

	outKey, val := key, ""
	if st, ok := prettyFields[key]; ok && prefix == "" {
		if st.alias != "" {
			outKey = st.alias
		}
		val = st.render(a.Value, h.color)
	} else {
		val = quoteIfNeeded(valueToString(a.Value))
	}

	b.WriteByte(' ')
	b.WriteString(joinKey(prefix, outKey))
	b.WriteByte('=')
	b.WriteString(val)
}

func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

func groupsOf(prefix string) []string {
	if prefix == "" {
		return nil
	}
	return strings.Split(prefix, ".")
}

func valueToString(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindInt64:
		return strconv.FormatInt(v.Int64(), 10)
	case slog.KindUint64:
		return strconv.FormatUint(v.Uint64(), 10)
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindBool:
		return strconv.FormatBool(v.Bool())
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time().Format(time.RFC3339)
	default:
		return fmt.Sprint(v.Any())
	}
}

func quoteIfNeeded(s string) string {
	if s == "" || strings.ContainsAny(s, " \t\r\n\"=") {
		return strconv.Quote(s)
	}
	return s
}

func levelTag(level slog.Level, color bool) string {
	switch {
	case level >= slog.LevelError:
		return paint("[ERROR]", ansiRed, color)
	case level >= slog.LevelWarn:
		return paint("[WARN]", ansiYellow, color)
	case level < slog.LevelInfo:
		return paint("[DEBUG]", ansiMagenta, color)
	default:
		return paint("[INFO]", ansiBlue, color)
	}
}
