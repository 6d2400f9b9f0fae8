package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Lower bounds for both configuration and parsed hashes. A stored hash below
// any of them is treated as malformed rather than verified cheaply.
const (
	minArgonMemoryKB = 8 * 1024
	minArgonTime     = 1
	minArgonThreads  = 1
	minArgonSaltLen  = 16
	minArgonKeyLen   = 16
)

// Argon2Config parameterizes the Argon2id hasher. Memory is in KiB.
type Argon2Config struct {
	Memory           uint32
	Time             uint32
	Parallelism      uint8
	SaltLength       uint32
	KeyLength        uint32
	MaxPasswordBytes int
}

// DefaultArgon2Config returns the parameters used when argon2id is selected
// without explicit tuning.
func DefaultArgon2Config() Argon2Config {
	return Argon2Config{
		Memory:      64 * 1024,
		Time:        3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func (c Argon2Config) validate() error {
	switch {
	case c.Memory < minArgonMemoryKB:
		return fmt.Errorf("password memory must be >= %d KiB", minArgonMemoryKB)
	case c.Time < minArgonTime:
		return errors.New("password time must be >= 1")
	case c.Parallelism < minArgonThreads:
		return errors.New("password parallelism must be >= 1")
	case c.SaltLength < minArgonSaltLen:
		return fmt.Errorf("password salt length must be >= %d", minArgonSaltLen)
	case c.KeyLength < minArgonKeyLen:
		return fmt.Errorf("password key length must be >= %d", minArgonKeyLen)
	}
	return nil
}

// Argon2 hashes passwords into PHC strings.
type Argon2 struct {
	config Argon2Config
}

// NewArgon2 validates cfg and returns a hasher.
func NewArgon2(cfg Argon2Config) (*Argon2, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Argon2{config: cfg}, nil
}

// phc is a decoded $argon2id$ credential.
type phc struct {
	memory  uint32
	time    uint32
	threads uint8
	salt    []byte
	key     []byte
}

func (p phc) derive(password string) []byte {
	return argon2.IDKey([]byte(password), p.salt, p.time, p.memory, p.threads, uint32(len(p.key)))
}

func (p phc) params() string {
	return fmt.Sprintf("m=%d,t=%d,p=%d", p.memory, p.time, p.threads)
}

func (p phc) String() string {
	enc := base64.RawStdEncoding
	return "$" + AlgorithmArgon2id +
		fmt.Sprintf("$v=%d$", argon2.Version) + p.params() +
		"$" + enc.EncodeToString(p.salt) +
		"$" + enc.EncodeToString(p.key)
}

// Hash derives an Argon2id key under a fresh salt. Password bytes are used
// as given, without Unicode normalization.
func (a *Argon2) Hash(password string) (string, error) {
	if err := checkInput(password, a.config.MaxPasswordBytes); err != nil {
		return "", err
	}

	h := phc{
		memory:  a.config.Memory,
		time:    a.config.Time,
		threads: a.config.Parallelism,
		salt:    make([]byte, a.config.SaltLength),
		key:     make([]byte, a.config.KeyLength),
	}
	if _, err := io.ReadFull(rand.Reader, h.salt); err != nil {
		return "", err
	}
	h.key = h.derive(password)
	return h.String(), nil
}

// Verify recomputes the key with the parameters encoded in stored, so
// credentials hashed under older settings keep verifying.
func (a *Argon2) Verify(password, stored string) (bool, error) {
	if err := checkInput(password, a.config.MaxPasswordBytes); err != nil {
		return false, err
	}

	h, err := decodePHC(stored)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(h.derive(password), h.key) == 1, nil
}

// NeedsUpgrade reports hashes produced with weaker cost parameters or a
// different key length than currently configured.
func (a *Argon2) NeedsUpgrade(stored string) (bool, error) {
	h, err := decodePHC(stored)
	if err != nil {
		return false, err
	}
	weaker := h.memory < a.config.Memory ||
		h.time < a.config.Time ||
		h.threads < a.config.Parallelism
	return weaker || uint32(len(h.key)) != a.config.KeyLength, nil
}

func malformed(reason string) error {
	return fmt.Errorf("%w: %s", ErrMalformedHash, reason)
}

// decodePHC accepts only the canonical layout Hash produces. Salt and key
// may carry base64 padding.
func decodePHC(s string) (phc, error) {
	var h phc

	fields := strings.Split(s, "$")
	if len(fields) != 6 || fields[0] != "" {
		return h, malformed("invalid PHC format")
	}
	if fields[1] != AlgorithmArgon2id {
		return h, malformed("unsupported algorithm")
	}
	if fields[2] != fmt.Sprintf("v=%d", argon2.Version) {
		return h, malformed("unsupported argon2 version")
	}

	if _, err := fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d", &h.memory, &h.time, &h.threads); err != nil {
		return h, malformed("invalid parameters")
	}
	// Sscanf tolerates trailing input; round-tripping rejects it.
	if h.params() != fields[3] {
		return h, malformed("invalid parameters")
	}
	if h.memory < minArgonMemoryKB || h.time < minArgonTime || h.threads < minArgonThreads {
		return h, malformed("parameters below minimum")
	}

	var err error
	if h.salt, err = decodeB64(fields[4]); err != nil || len(h.salt) < minArgonSaltLen {
		return h, malformed("invalid salt")
	}
	if h.key, err = decodeB64(fields[5]); err != nil || len(h.key) == 0 {
		return h, malformed("invalid hash")
	}
	return h, nil
}

func decodeB64(s string) ([]byte, error) {
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}
