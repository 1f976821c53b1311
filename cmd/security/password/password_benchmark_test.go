package password

import "testing"

// BenchmarkVerify compares login cost per stored digest format at production parameters.
func BenchmarkVerify(b *testing.B) {
	for _, sc := range []Scheme{SchemeArgon2id, SchemeSHA256} {
		b.Run(string(sc), func(b *testing.B) {
			cfg := DefaultConfig()
			cfg.Scheme = sc
			h, err := cfg.Hash("pw1234")
			if err != nil {
				b.Fatalf("Hash error: %v", err)
			}

			for b.Loop() {
				ok, err := cfg.Verify(h, "pw1234")
				if err != nil || !ok {
					b.Fatalf("Verify failed: ok=%v err=%v", ok, err)
				}
			}
		})
	}
}

// BenchmarkDummyVerify measures the unknown-user path, which must cost about as much as a real argon2id verify.
func BenchmarkDummyVerify(b *testing.B) {
	cfg := DefaultConfig()
	h, err := cfg.Hash("dummy-password-for-timing")
	if err != nil {
		b.Fatalf("Hash error: %v", err)
	}

	for b.Loop() {
		if ok, _ := cfg.Verify(h, "pw1234"); ok {
			b.Fatalf("unexpected match")
		}
	}
}
