package app

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestStripANSI(t *testing.T) {
	t.Parallel()

	in := ansiBlue + "INFO" + ansiReset + " plain " + ansiRed + "ERR" + ansiReset
	got := stripANSI(in)
	want := "INFO plain ERR"
	if got != want {
		t.Fatalf("stripANSI()=%q want=%q", got, want)
	}
}

func TestPrettyHandler_PlainOutput(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(newPrettyHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}, false))

	log.Info("http.request",
		"method", "post",
		"path", "/auth/login",
		"status", 401,
		"status_class", "4xx",
		"duration_ms", int64(12),
		"device_id", "dev-1",
		"note", "two words",
	)

	line := buf.String()
	for _, want := range []string{
		"[INFO] http.request",
		"method=POST",
		"path=/auth/login",
		"status=401",
		"class=4xx",
		"duration=12ms",
		"device=dev-1",
		`note="two words"`,
	} {
		if !strings.Contains(line, want) {
			t.Fatalf("missing %q in %q", want, line)
		}
	}
	if strings.Contains(line, "\x1b[") {
		t.Fatalf("unexpected escape codes in %q", line)
	}
}

func TestPrettyHandler_GroupsAndAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(newPrettyHandler(&buf, nil, false)).
		With("component", "session").
		WithGroup("req")

	log.Warn("storage.read.fail", "op", "claim")

	line := buf.String()
	if !strings.Contains(line, "[WARN] storage.read.fail") {
		t.Fatalf("missing level in %q", line)
	}
	if !strings.Contains(line, "component=session") {
		t.Fatalf("missing handler attr in %q", line)
	}
	if !strings.Contains(line, "req.op=claim") {
		t.Fatalf("missing grouped attr in %q", line)
	}
}

func TestPrettyHandler_ColorWrapsLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(newPrettyHandler(&buf, nil, true))
	log.Error("server.fail", "result", "server_error")

	line := buf.String()
	if !strings.Contains(line, ansiRed+"[ERROR]"+ansiReset) {
		t.Fatalf("level not colored: %q", line)
	}
	if !strings.Contains(stripANSI(line), "result=server_error") {
		t.Fatalf("result missing: %q", stripANSI(line))
	}
}

func TestPrettyHandler_EnabledRespectsLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(newPrettyHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}, false))
	log.Info("hidden")
	log.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}
}

func TestPrettyHandler_GroupedKeysKeepTheirName(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(newPrettyHandler(&buf, nil, false))
	log.Info("auth.login.displaced",
		"device_id", "dev-2",
		slog.Group("prior", slog.String("device_id", "dev-1")),
	)

	line := buf.String()
	if !strings.Contains(line, "device=dev-2") || !strings.Contains(line, "prior.device_id=dev-1") {
		t.Fatalf("unexpected keys in %q", line)
	}
}

func TestPrettyHandler_WithAttrsRenderedOnce(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	opts := &slog.HandlerOptions{ReplaceAttr: redactSecrets}
	log := slog.New(newPrettyHandler(&buf, opts, false)).With("username", "alice", "token", "v4.public.xyz")

	log.Info("first")
	log.Info("second")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines=%d: %q", len(lines), buf.String())
	}
	for _, l := range lines {
		if !strings.Contains(l, "username=alice") || !strings.Contains(l, "token=[redacted]") {
			t.Fatalf("unexpected line %q", l)
		}
	}
}
