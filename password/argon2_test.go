package password

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
)

// fastArgon2 keeps the suite quick while staying at the accepted minimums.
func fastArgon2(t *testing.T, mutate func(*Argon2Config)) *Argon2 {
	t.Helper()
	cfg := Argon2Config{
		Memory:      minArgonMemoryKB,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	h, err := NewArgon2(cfg)
	if err != nil {
		t.Fatalf("NewArgon2 error: %v", err)
	}
	return h
}

func TestArgon2RoundTrip(t *testing.T) {
	h := fastArgon2(t, nil)

	stored, err := h.Hash("P@ssw0rd-Ascii")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if !strings.HasPrefix(stored, "$argon2id$v=19$m=8192,t=1,p=1$") {
		t.Fatalf("unexpected PHC prefix: %s", stored)
	}
	if strings.Contains(stored, "=$") || strings.HasSuffix(stored, "=") {
		t.Fatalf("PHC output must be unpadded: %s", stored)
	}

	if ok, err := h.Verify("P@ssw0rd-Ascii", stored); err != nil || !ok {
		t.Fatalf("Verify(correct) = %v, %v", ok, err)
	}
	if ok, err := h.Verify("p@ssw0rd-ascii", stored); err != nil || ok {
		t.Fatalf("Verify(wrong) = %v, %v", ok, err)
	}

	again, _ := h.Hash("P@ssw0rd-Ascii")
	if again == stored {
		t.Fatal("two hashes of one password must differ by salt")
	}
}

func TestArgon2AcceptsPaddedBase64(t *testing.T) {
	h := fastArgon2(t, nil)
	stored, err := h.Hash("padded")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	fields := strings.Split(stored, "$")
	for _, i := range []int{4, 5} {
		raw, err := base64.RawStdEncoding.DecodeString(fields[i])
		if err != nil {
			t.Fatalf("decode field %d: %v", i, err)
		}
		fields[i] = base64.StdEncoding.EncodeToString(raw)
	}
	if ok, err := h.Verify("padded", strings.Join(fields, "$")); err != nil || !ok {
		t.Fatalf("Verify(padded) = %v, %v", ok, err)
	}
}

func TestArgon2NeedsUpgrade(t *testing.T) {
	old := fastArgon2(t, nil)
	stored, err := old.Hash("test-password")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Argon2Config)
		want   bool
	}{
		{"same", nil, false},
		{"more memory", func(c *Argon2Config) { c.Memory *= 2 }, true},
		{"more passes", func(c *Argon2Config) { c.Time = 2 }, true},
		{"more threads", func(c *Argon2Config) { c.Parallelism = 2 }, true},
		{"longer key", func(c *Argon2Config) { c.KeyLength = 64 }, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := fastArgon2(t, tc.mutate).NeedsUpgrade(stored)
			if err != nil {
				t.Fatalf("NeedsUpgrade error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("NeedsUpgrade = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestArgon2RejectsMalformed(t *testing.T) {
	h := fastArgon2(t, nil)
	good, err := h.Hash("malformed-test")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	cases := map[string]string{
		"not phc":        "not-a-phc-hash",
		"wrong version":  strings.Replace(good, "$v=19$", "$v=18$", 1),
		"wrong algo":     strings.Replace(good, "$argon2id$", "$argon2i$", 1),
		"trailing param": strings.Replace(good, ",p=1$", ",p=1,x=2$", 1),
		"weak memory":    strings.Replace(good, "m=8192", "m=1024", 1),
		"bad salt":       strings.Join(append(strings.Split(good, "$")[:4], "!!", strings.Split(good, "$")[5]), "$"),
		"pbkdf2 format":  "c2FsdA==:a2V5",
	}
	for name, stored := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := h.Verify("malformed-test", stored); !errors.Is(err, ErrMalformedHash) {
				t.Fatalf("Verify error = %v, want ErrMalformedHash", err)
			}
			if _, err := h.NeedsUpgrade(stored); !errors.Is(err, ErrMalformedHash) {
				t.Fatalf("NeedsUpgrade error = %v, want ErrMalformedHash", err)
			}
		})
	}
}

func TestArgon2InputBounds(t *testing.T) {
	limited := fastArgon2(t, func(c *Argon2Config) { c.MaxPasswordBytes = 64 })

	if _, err := limited.Hash(""); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}
	if _, err := limited.Hash(strings.Repeat("a", 65)); !errors.Is(err, ErrTooLong) {
		t.Fatalf("expected ErrTooLong from Hash, got %v", err)
	}

	atMax := strings.Repeat("b", 64)
	stored, err := limited.Hash(atMax)
	if err != nil {
		t.Fatalf("64-byte password rejected: %v", err)
	}
	if ok, err := limited.Verify(atMax, stored); err != nil || !ok {
		t.Fatalf("Verify(max) = %v, %v", ok, err)
	}
	if _, err := limited.Verify(strings.Repeat("c", 65), stored); !errors.Is(err, ErrTooLong) {
		t.Fatalf("expected ErrTooLong from Verify, got %v", err)
	}

	// Short passwords are hashed; length policy lives in the engine.
	if _, err := limited.Hash("short"); err != nil {
		t.Fatalf("short password rejected: %v", err)
	}

	unlimited := fastArgon2(t, nil)
	if _, err := unlimited.Hash(strings.Repeat("d", DefaultMaxPasswordBytes+1)); !errors.Is(err, ErrTooLong) {
		t.Fatalf("expected default limit of %d bytes, got %v", DefaultMaxPasswordBytes, err)
	}
}

func TestArgon2ConfigValidation(t *testing.T) {
	base := DefaultArgon2Config()
	if _, err := NewArgon2(base); err != nil {
		t.Fatalf("default config rejected: %v", err)
	}

	for name, mutate := range map[string]func(*Argon2Config){
		"memory":  func(c *Argon2Config) { c.Memory = 1024 },
		"time":    func(c *Argon2Config) { c.Time = 0 },
		"threads": func(c *Argon2Config) { c.Parallelism = 0 },
		"salt":    func(c *Argon2Config) { c.SaltLength = 8 },
		"key":     func(c *Argon2Config) { c.KeyLength = 8 },
	} {
		cfg := base
		mutate(&cfg)
		if _, err := NewArgon2(cfg); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}
