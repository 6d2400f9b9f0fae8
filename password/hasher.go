package password

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyInput is returned when the plaintext password is empty.
	ErrEmptyInput = errors.New("password: empty input")
	// ErrMalformedHash is returned when a stored credential cannot be parsed.
	ErrMalformedHash = errors.New("password: malformed hash")
	// ErrTooLong is returned when the plaintext exceeds MaxPasswordBytes.
	ErrTooLong = errors.New("password: input too long")
)

// DefaultMaxPasswordBytes bounds the plaintext accepted by Hash and Verify
// when no explicit limit is configured.
const DefaultMaxPasswordBytes = 1024

const (
	AlgorithmPBKDF2   = "pbkdf2"
	AlgorithmArgon2id = "argon2id"
)

// Hasher is the credential hashing contract used by the Engine.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, stored string) (bool, error)
	NeedsUpgrade(stored string) (bool, error)
}

// Options selects and parameterizes a Hasher.
type Options struct {
	Algorithm        string
	PBKDF2           PBKDF2Config
	Argon2           Argon2Config
	MaxPasswordBytes int
}

// New builds the Hasher named by opts.Algorithm. An empty algorithm selects
// PBKDF2.
func New(opts Options) (Hasher, error) {
	switch opts.Algorithm {
	case "", AlgorithmPBKDF2:
		cfg := opts.PBKDF2
		if cfg.MaxPasswordBytes == 0 {
			cfg.MaxPasswordBytes = opts.MaxPasswordBytes
		}
		return NewPBKDF2(cfg)
	case AlgorithmArgon2id:
		cfg := opts.Argon2
		if cfg.MaxPasswordBytes == 0 {
			cfg.MaxPasswordBytes = opts.MaxPasswordBytes
		}
		return NewArgon2(cfg)
	default:
		return nil, fmt.Errorf("password: unsupported algorithm %q", opts.Algorithm)
	}
}

func checkInput(password string, max int) error {
	if password == "" {
		return ErrEmptyInput
	}
	if max <= 0 {
		max = DefaultMaxPasswordBytes
	}
	if len(password) > max {
		return ErrTooLong
	}
	return nil
}
