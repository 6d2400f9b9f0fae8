package password

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// MinPBKDF2Iterations is the lowest iteration count NewPBKDF2 accepts.
	MinPBKDF2Iterations = 100_000

	defaultPBKDF2SaltLength = 32
	defaultPBKDF2KeyLength  = 32
)

// PBKDF2Config parameterizes the PBKDF2-HMAC-SHA256 hasher. Zero salt and key
// lengths fall back to 32 bytes.
type PBKDF2Config struct {
	Iterations       int
	SaltLength       int
	KeyLength        int
	MaxPasswordBytes int
}

// DefaultPBKDF2Config returns the production parameters.
func DefaultPBKDF2Config() PBKDF2Config {
	return PBKDF2Config{
		Iterations: MinPBKDF2Iterations,
		SaltLength: defaultPBKDF2SaltLength,
		KeyLength:  defaultPBKDF2KeyLength,
	}
}

// PBKDF2 hashes passwords as base64(salt):base64(key). The iteration count is
// not encoded in the output, so every stored credential is verified with the
// configured count.
type PBKDF2 struct {
	config PBKDF2Config
}

// NewPBKDF2 validates cfg and returns a hasher. Fewer than
// MinPBKDF2Iterations iterations are rejected.
func NewPBKDF2(cfg PBKDF2Config) (*PBKDF2, error) {
	if cfg.Iterations < MinPBKDF2Iterations {
		return nil, fmt.Errorf("password iterations must be >= %d", MinPBKDF2Iterations)
	}
	if cfg.SaltLength == 0 {
		cfg.SaltLength = defaultPBKDF2SaltLength
	}
	if cfg.KeyLength == 0 {
		cfg.KeyLength = defaultPBKDF2KeyLength
	}
	if cfg.SaltLength < 16 {
		return nil, errors.New("password salt length must be >= 16")
	}
	if cfg.KeyLength < 16 {
		return nil, errors.New("password key length must be >= 16")
	}

	return &PBKDF2{config: cfg}, nil
}

// Hash derives a key from password under a fresh random salt.
func (p *PBKDF2) Hash(password string) (string, error) {
	if err := checkInput(password, p.config.MaxPasswordBytes); err != nil {
		return "", err
	}

	salt := make([]byte, p.config.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	key := pbkdf2.Key([]byte(password), salt, p.config.Iterations, p.config.KeyLength, sha256.New)

	return base64.StdEncoding.EncodeToString(salt) + ":" + base64.StdEncoding.EncodeToString(key), nil
}

// Verify re-derives the key with the stored salt and compares in constant
// time.
func (p *PBKDF2) Verify(password, stored string) (bool, error) {
	if err := checkInput(password, p.config.MaxPasswordBytes); err != nil {
		return false, err
	}

	salt, key, err := splitPBKDF2(stored)
	if err != nil {
		return false, err
	}

	computed := pbkdf2.Key([]byte(password), salt, p.config.Iterations, len(key), sha256.New)

	return subtle.ConstantTimeCompare(computed, key) == 1, nil
}

// NeedsUpgrade reports stored credentials with a shorter salt or key than
// currently configured.
func (p *PBKDF2) NeedsUpgrade(stored string) (bool, error) {
	salt, key, err := splitPBKDF2(stored)
	if err != nil {
		return false, err
	}

	return len(salt) < p.config.SaltLength || len(key) != p.config.KeyLength, nil
}

func splitPBKDF2(stored string) ([]byte, []byte, error) {
	parts := strings.Split(stored, ":")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, nil, ErrMalformedHash
	}

	salt, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, nil, fmt.Errorf("%w: salt encoding", ErrMalformedHash)
	}
	key, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, nil, fmt.Errorf("%w: key encoding", ErrMalformedHash)
	}
	if len(key) == 0 {
		return nil, nil, fmt.Errorf("%w: key length", ErrMalformedHash)
	}

	return salt, key, nil
}
