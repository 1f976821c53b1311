package password

import "testing"

func cheapConfig() Config {
	cfg := DefaultConfig()
	cfg.Params.MemoryKiB = 8 * 1024
	cfg.Params.Iterations = 1
	cfg.Params.Parallelism = 1
	return cfg
}

func TestHash_LegacySchemeIsDeterministic(t *testing.T) {
	t.Parallel()

	cfg := cheapConfig()
	cfg.Scheme = SchemeSHA256

	h1, err := cfg.Hash("pw12")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	h2, err := cfg.Hash("pw12")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if h1 != h2 {
		t.Fatalf("legacy digests must be reproducible: %q != %q", h1, h2)
	}
	if !isLegacyDigest(h1) {
		t.Fatalf("unexpected digest shape: %q", h1)
	}
}

func TestVerify_AcceptsLegacyDigestUnderArgonScheme(t *testing.T) {
	t.Parallel()

	cfg := cheapConfig()
	legacy := legacyDigest("Molecule@1")

	ok, err := cfg.Verify(legacy, "Molecule@1")
	if err != nil || !ok {
		t.Fatalf("expected legacy match, ok=%v err=%v", ok, err)
	}
	ok, err = cfg.Verify(legacy, "molecule@1")
	if err != nil || ok {
		t.Fatalf("expected case-sensitive mismatch, ok=%v err=%v", ok, err)
	}
	if !cfg.NeedsRehash(legacy) {
		t.Fatalf("legacy digest should need rehash under argon2id")
	}
}

func TestNeedsRehash(t *testing.T) {
	t.Parallel()

	cfg := cheapConfig()
	phc, err := cfg.Hash("pw-phc")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if cfg.NeedsRehash(phc) {
		t.Fatalf("argon2id digest must not need rehash")
	}

	cfg.RehashLegacy = false
	if cfg.NeedsRehash(legacyDigest("x")) {
		t.Fatalf("rehash disabled must report false")
	}

	cfg.RehashLegacy = true
	cfg.Scheme = SchemeSHA256
	if cfg.NeedsRehash(legacyDigest("x")) {
		t.Fatalf("legacy scheme must not upgrade its own digests")
	}
}

func TestParseScheme(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in      string
		want    Scheme
		wantErr bool
	}{
		{in: "", want: SchemeArgon2id},
		{in: "ARGON2ID", want: SchemeArgon2id},
		{in: "sha256", want: SchemeSHA256},
		{in: "legacy", want: SchemeSHA256},
		{in: "bcrypt", wantErr: true},
	}

	for _, tc := range cases {
		got, err := ParseScheme(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("ParseScheme(%q) expected error", tc.in)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("ParseScheme(%q)=%q,%v want=%q", tc.in, got, err, tc.want)
		}
	}
}
