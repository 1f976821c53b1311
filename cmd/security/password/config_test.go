package password

import (
	"os"
	"testing"
)

func TestFromEnv_Defaults(t *testing.T) {
	// Ensure env is clean for this test.
	clearEnv := []string{
		"AYA_PASSWORD_SCHEME",
		"AYA_PASSWORD_REHASH_LEGACY",
		"AYA_PASSWORD_MIN_LEN",
		"AYA_PASSWORD_MAX_LEN",
		"AYA_PASSWORD_REJECT_VERY_WEAK",
		"AYA_ARGON2_MEMORY_KIB",
		"AYA_ARGON2_ITERATIONS",
		"AYA_ARGON2_PARALLELISM",
		"AYA_ARGON2_SALT_LEN",
		"AYA_ARGON2_KEY_LEN",
	}
	for _, k := range clearEnv {
		_ = os.Unsetenv(k)
	}

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv error: %v", err)
	}

	def := DefaultConfig()
	if cfg.Policy.MinLength != def.Policy.MinLength {
		t.Fatalf("min length mismatch")
	}
	if cfg.Params.MemoryKiB != def.Params.MemoryKiB {
		t.Fatalf("memory mismatch")
	}
	if cfg.Scheme != SchemeArgon2id || !cfg.RehashLegacy {
		t.Fatalf("scheme defaults mismatch: scheme=%q rehash=%v", cfg.Scheme, cfg.RehashLegacy)
	}
	if cfg.Policy.MinLength != 4 {
		t.Fatalf("expected 4-char minimum, got %d", cfg.Policy.MinLength)
	}
}

func TestFromEnv_Override(t *testing.T) {
	t.Setenv("AYA_PASSWORD_MIN_LEN", "10")
	t.Setenv("AYA_PASSWORD_MAX_LEN", "200")
	t.Setenv("AYA_PASSWORD_REJECT_VERY_WEAK", "true")
	t.Setenv("AYA_ARGON2_MEMORY_KIB", "32768")
	t.Setenv("AYA_ARGON2_ITERATIONS", "4")
	t.Setenv("AYA_ARGON2_PARALLELISM", "2")
	t.Setenv("AYA_ARGON2_SALT_LEN", "24")
	t.Setenv("AYA_ARGON2_KEY_LEN", "32")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv error: %v", err)
	}

	if cfg.Policy.MinLength != 10 || cfg.Policy.MaxLength != 200 || !cfg.Policy.RejectVeryWeak {
		t.Fatalf("policy override failed: %+v", cfg.Policy)
	}
	if cfg.Params.MemoryKiB != 32768 || cfg.Params.Iterations != 4 || cfg.Params.Parallelism != 2 {
		t.Fatalf("argon2 override failed: %+v", cfg.Params)
	}
	if cfg.Params.SaltLength != 24 || cfg.Params.KeyLength != 32 {
		t.Fatalf("len override failed: %+v", cfg.Params)
	}
}

func TestFromEnv_InvalidMinMax(t *testing.T) {
	t.Setenv("AYA_PASSWORD_MIN_LEN", "20")
	t.Setenv("AYA_PASSWORD_MAX_LEN", "10")

	_, err := FromEnv()
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestFromEnv_MinLenFloor(t *testing.T) {
	for _, v := range []string{"1", "3"} {
		t.Setenv("AYA_PASSWORD_MIN_LEN", v)
		if _, err := FromEnv(); err == nil {
			t.Fatalf("AYA_PASSWORD_MIN_LEN=%s: expected error below the %d-rune floor", v, MinPasswordRunes)
		}
	}

	t.Setenv("AYA_PASSWORD_MIN_LEN", "4")
	cfg, err := FromEnv()
	if err != nil || cfg.Policy.MinLength != MinPasswordRunes {
		t.Fatalf("min=%d err=%v", cfg.Policy.MinLength, err)
	}
}

func TestFromEnv_LegacyScheme(t *testing.T) {
	t.Setenv("AYA_PASSWORD_SCHEME", "sha256")
	t.Setenv("AYA_PASSWORD_REHASH_LEGACY", "off")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv error: %v", err)
	}
	if cfg.Scheme != SchemeSHA256 {
		t.Fatalf("scheme=%q want sha256", cfg.Scheme)
	}
	if cfg.RehashLegacy {
		t.Fatalf("expected rehash disabled")
	}
}

func TestFromEnv_UnknownScheme(t *testing.T) {
	t.Setenv("AYA_PASSWORD_SCHEME", "md5")

	if _, err := FromEnv(); err == nil {
		t.Fatalf("expected error for unknown scheme")
	}
}
