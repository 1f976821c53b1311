package app

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want slog.Level
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: "INFO", want: slog.LevelInfo},
		{in: "warn", want: slog.LevelWarn},
		{in: "warning", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "unknown", want: slog.LevelInfo},
		{in: "", want: slog.LevelInfo},
	}

	for _, tc := range cases {
		got := parseLogLevel(tc.in)
		if got != tc.want {
			t.Fatalf("parseLogLevel(%q)=%v want=%v", tc.in, got, tc.want)
		}
	}
}

func TestNewLogger_JSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewLogger("debug", "json", &buf)
	log.Debug("server.start", "addr", ":8080")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("not json: %v (%q)", err, buf.String())
	}
	if rec["msg"] != "server.start" || rec["addr"] != ":8080" {
		t.Fatalf("unexpected record: %v", rec)
	}
}

func TestNewLogger_PrettyNoColorForBuffers(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewLogger("info", "pretty", &buf)
	log.Info("server.start")

	if !strings.Contains(buf.String(), " [INFO] server.start") {
		t.Fatalf("unexpected pretty output: %q", buf.String())
	}
	if strings.Contains(buf.String(), "\x1b[") {
		t.Fatalf("buffer output must not be colored: %q", buf.String())
	}
}

func TestNewLogger_RedactsSecrets(t *testing.T) {
	t.Parallel()

	for _, format := range []string{"json", "pretty"} {
		var buf bytes.Buffer
		log := NewLogger("info", format, &buf)
		log.Info("cli.enroll", "username", "alice", "password", "pw1234", slog.Group("req", slog.String("admin_secret", "s3cret")))

		out := buf.String()
		if strings.Contains(out, "pw1234") || strings.Contains(out, "s3cret") {
			t.Fatalf("%s: secret leaked: %q", format, out)
		}
		if !strings.Contains(out, "alice") || !strings.Contains(out, redacted) {
			t.Fatalf("%s: unexpected output: %q", format, out)
		}
	}
}
