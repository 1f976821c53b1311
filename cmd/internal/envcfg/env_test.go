package envcfg

import (
	"testing"
	"time"
)

func TestEnvHelpers_Defaults(t *testing.T) {
	t.Setenv("AYA_TEST_STR", "")
	t.Setenv("AYA_TEST_BOOL", "not-a-bool")
	t.Setenv("AYA_TEST_INT", "-3")
	t.Setenv("AYA_TEST_DUR", "soon")

	if got := EnvString("AYA_TEST_STR", "def"); got != "def" {
		t.Fatalf("EnvString=%q want def", got)
	}
	if got := EnvBool("AYA_TEST_BOOL", true); !got {
		t.Fatalf("EnvBool should fall back to default")
	}
	if got := EnvInt("AYA_TEST_INT", 7); got != 7 {
		t.Fatalf("EnvInt=%d want 7", got)
	}
	if got := EnvDuration("AYA_TEST_DUR", time.Second); got != time.Second {
		t.Fatalf("EnvDuration=%v want 1s", got)
	}
}

func TestEnvHelpers_Overrides(t *testing.T) {
	t.Setenv("AYA_TEST_STR", "  value ")
	t.Setenv("AYA_TEST_BOOL", "false")
	t.Setenv("AYA_TEST_INT32", "12")
	t.Setenv("AYA_TEST_INT64", "4096")
	t.Setenv("AYA_TEST_DUR", "90s")
	t.Setenv("AYA_TEST_CSV", "a, b,,c ")

	if got := EnvString("AYA_TEST_STR", "def"); got != "value" {
		t.Fatalf("EnvString=%q want value", got)
	}
	if got := EnvBool("AYA_TEST_BOOL", true); got {
		t.Fatalf("EnvBool=%v want false", got)
	}
	if got := EnvInt32("AYA_TEST_INT32", 1); got != 12 {
		t.Fatalf("EnvInt32=%d want 12", got)
	}
	if got := EnvInt64("AYA_TEST_INT64", 1); got != 4096 {
		t.Fatalf("EnvInt64=%d want 4096", got)
	}
	if got := EnvDuration("AYA_TEST_DUR", time.Second); got != 90*time.Second {
		t.Fatalf("EnvDuration=%v want 90s", got)
	}
	got := EnvCSV("AYA_TEST_CSV", "")
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("EnvCSV=%v", got)
	}
}
