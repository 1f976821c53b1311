package token

import "testing"

func TestHashSHA256Hex_KnownVector(t *testing.T) {
	t.Parallel()

	got := HashSHA256Hex("abc")
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got != want {
		t.Fatalf("HashSHA256Hex(abc)=%q want=%q", got, want)
	}
	if !IsSHA256Hex(got) {
		t.Fatalf("expected digest shape")
	}
}

func TestIsSHA256Hex(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want bool
	}{
		{in: HashSHA256Hex("x"), want: true},
		{in: "BA7816BF8F01CFEA414140DE5DAE2223B00361A396177A9CB410FF61F20015AD", want: false},
		{in: "abc", want: false},
		{in: "$argon2id$v=19$m=65536,t=3,p=1$c2FsdA$aGFzaA", want: false},
		{in: "", want: false},
	}

	for _, tc := range cases {
		if got := IsSHA256Hex(tc.in); got != tc.want {
			t.Fatalf("IsSHA256Hex(%q)=%v want=%v", tc.in, got, tc.want)
		}
	}
}

func TestSecretEqual(t *testing.T) {
	t.Parallel()

	if !SecretEqual("s3cret", "s3cret") {
		t.Fatalf("expected equal secrets to match")
	}
	if SecretEqual("s3cret", "s3cret!") {
		t.Fatalf("expected different secrets to mismatch")
	}
	if SecretEqual("", "") {
		t.Fatalf("empty secrets must never match")
	}
}

func TestCheckSecret(t *testing.T) {
	t.Parallel()

	if err := CheckSecret("   ", 8); err != ErrSecretMissing {
		t.Fatalf("expected ErrSecretMissing, got %v", err)
	}
	if err := CheckSecret("short", 8); err != ErrSecretTooShort {
		t.Fatalf("expected ErrSecretTooShort, got %v", err)
	}
	if err := CheckSecret("long-enough-secret", 8); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
}
