package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"aya/cmd/internal/app"
	"aya/cmd/internal/docstore"
)

type testIO struct {
	out    bytes.Buffer
	errOut bytes.Buffer
}

func newTestEnv(input string) (*env, *testIO) {
	tio := &testIO{}
	return &env{
		v:          app.NewViper(),
		in:         strings.NewReader(input),
		out:        &tio.out,
		errOut:     &tio.errOut,
		isTerminal: func() bool { return false },
		readSecret: func() ([]byte, error) { return nil, nil },
	}, tio
}

func run(t *testing.T, e *env, args ...string) error {
	t.Helper()
	root := newRootCommand(e)
	root.SetArgs(args)
	return root.ExecuteContext(context.Background())
}

func cheapArgon(t *testing.T) {
	t.Setenv("AYA_ARGON2_MEMORY_KIB", "8192")
	t.Setenv("AYA_ARGON2_ITERATIONS", "1")
	t.Setenv("AYA_ARGON2_PARALLELISM", "1")
}

func TestHashSHA256(t *testing.T) {
	t.Setenv("AYA_PASSWORD_SCHEME", "sha256")

	e, tio := newTestEnv("abcd\n")
	if err := run(t, e, "hash"); err != nil {
		t.Fatalf("hash: %v", err)
	}

	want := "88d4266fd4e6338d13b845fcf289579d209c897823b9217da3e161936f031589"
	if got := strings.TrimSpace(tio.out.String()); got != want {
		t.Fatalf("digest=%q want %q", got, want)
	}
}

func TestHashArgon2id(t *testing.T) {
	cheapArgon(t)
	t.Setenv("AYA_PASSWORD_SCHEME", "argon2id")

	e, tio := newTestEnv("secret-pw\n")
	if err := run(t, e, "hash"); err != nil {
		t.Fatalf("hash: %v", err)
	}
	if got := tio.out.String(); !strings.HasPrefix(got, "$argon2id$") {
		t.Fatalf("unexpected digest %q", got)
	}
}

func TestEnrollFileStorage(t *testing.T) {
	cheapArgon(t)
	t.Setenv("AYA_PASSWORD_SCHEME", "sha256")
	t.Setenv("AYA_ADMIN_SECRET", "s3cret")
	dir := t.TempDir()

	e, tio := newTestEnv("s3cret\npw1234\npw1234\n")
	if err := run(t, e, "enroll", "--storage", "file", "--data-dir", dir, "--username", "alice"); err != nil {
		t.Fatalf("enroll: %v (stderr=%q)", err, tio.errOut.String())
	}
	if !strings.Contains(tio.out.String(), `User "alice" created.`) {
		t.Fatalf("unexpected output %q", tio.out.String())
	}

	m, err := docstore.ReadJSONFile(filepath.Join(dir, docstore.CredentialsFile))
	if err != nil {
		t.Fatalf("read credentials: %v", err)
	}
	// sha256("pw1234")
	want := "fb72a905a57f81e8358e432b7c699ff6987200697366167e4ba962953b072868"
	if m["alice"] != want {
		t.Fatalf("stored digest=%q want %q", m["alice"], want)
	}
}

func TestEnrollRejections(t *testing.T) {
	cheapArgon(t)
	t.Setenv("AYA_ADMIN_SECRET", "s3cret")

	cases := []struct {
		name  string
		input string
		want  string
	}{
		{name: "bad secret", input: "nope\npw1234\npw1234\n", want: "invalid admin secret"},
		{name: "mismatch", input: "s3cret\npw1234\npw9999\n", want: "don't match"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e, _ := newTestEnv(tc.input)
			err := run(t, e, "enroll", "--storage", "memory", "--username", "alice")
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err=%v want containing %q", err, tc.want)
			}
		})
	}
}

func TestEnrollDuplicate(t *testing.T) {
	cheapArgon(t)
	t.Setenv("AYA_ADMIN_SECRET", "s3cret")
	dir := t.TempDir()

	e, _ := newTestEnv("s3cret\npw1234\npw1234\n")
	if err := run(t, e, "enroll", "--storage", "file", "--data-dir", dir, "-u", "alice"); err != nil {
		t.Fatalf("first enroll: %v", err)
	}

	e, _ = newTestEnv("s3cret\nother1\nother1\n")
	err := run(t, e, "enroll", "--storage", "file", "--data-dir", dir, "-u", "alice")
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("err=%v want username already exists", err)
	}
}

func TestMigrateImportDir(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()

	creds := `{"alice": "fb72a905a57f81e8358e432b7c699ff6987200697366167e4ba962953b072868"}`
	if err := os.WriteFile(filepath.Join(src, docstore.CredentialsFile), []byte(creds), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	e, tio := newTestEnv("")
	if err := run(t, e, "migrate", "--storage", "file", "--data-dir", dst, "--import-dir", src); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	out := tio.out.String()
	if !strings.Contains(out, "users_database.json: 1 imported, 0 already present") {
		t.Fatalf("unexpected output %q", out)
	}
	if !strings.Contains(out, "active_sessions.json: not found, skipped") {
		t.Fatalf("unexpected output %q", out)
	}

	m, err := docstore.ReadJSONFile(filepath.Join(dst, docstore.CredentialsFile))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(m) != 1 || m["alice"] == "" {
		t.Fatalf("imported=%v", m)
	}

	// A second import skips what is already there.
	e, tio = newTestEnv("")
	if err := run(t, e, "migrate", "--storage", "file", "--data-dir", dst, "--import-dir", src); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	if !strings.Contains(tio.out.String(), "0 imported, 1 already present") {
		t.Fatalf("unexpected output %q", tio.out.String())
	}
}

func TestMigrateRejectsMemory(t *testing.T) {
	e, _ := newTestEnv("")
	if err := run(t, e, "migrate", "--storage", "memory"); err == nil {
		t.Fatalf("expected error for memory storage")
	}
}

func TestUnknownStorage(t *testing.T) {
	e, _ := newTestEnv("s3cret\npw1234\npw1234\n")
	err := run(t, e, "enroll", "--storage", "tape", "-u", "alice")
	if err == nil || !strings.Contains(err.Error(), "unknown storage") {
		t.Fatalf("err=%v want unknown storage", err)
	}
}
