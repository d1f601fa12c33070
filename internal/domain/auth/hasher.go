package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// HashParams tune the argon2id derivation. Memory is expressed in KiB.
type HashParams struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultHashParams returns the production cost factors.
func DefaultHashParams() HashParams {
	return HashParams{
		Memory:      64 * 1024,
		Time:        3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// ErrInvalidHash indicates an encoded hash that cannot be decoded.
var ErrInvalidHash = errors.New("invalid encoded hash")

// Hasher derives salted argon2id hashes for passwords and for refresh
// tokens at rest. The encoded form embeds parameters and salt, so Verify
// is self-describing and survives cost-factor changes.
type Hasher struct {
	params HashParams
}

// NewHasher constructs a Hasher with the given cost factors.
func NewHasher(params HashParams) *Hasher {
	return &Hasher{params: params}
}

// Hash derives a key from the secret with a fresh random salt and encodes
// it as $argon2id$v=19$m=...,t=...,p=...$<b64 salt>$<b64 key>.
func (h *Hasher) Hash(secret string) (string, error) {
	salt := make([]byte, h.params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	key := argon2.IDKey([]byte(secret), salt, h.params.Time, h.params.Memory, h.params.Parallelism, h.params.KeyLength)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, h.params.Memory, h.params.Time, h.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify re-derives the candidate under the parameters embedded in encoded
// and compares in constant time. Both login passwords and presented
// refresh tokens are attacker-observable authentication decisions, so the
// same fixed-time comparison applies to each.
func (h *Hasher) Verify(candidate, encoded string) (bool, error) {
	params, salt, key, err := decodeHash(encoded)
	if err != nil {
		return false, err
	}
	derived := argon2.IDKey([]byte(candidate), salt, params.Time, params.Memory, params.Parallelism, uint32(len(key)))
	return subtle.ConstantTimeCompare(derived, key) == 1, nil
}

func decodeHash(encoded string) (HashParams, []byte, []byte, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return HashParams{}, nil, nil, ErrInvalidHash
	}
	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return HashParams{}, nil, nil, ErrInvalidHash
	}
	var params HashParams
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.Memory, &params.Time, &params.Parallelism); err != nil {
		return HashParams{}, nil, nil, ErrInvalidHash
	}
	// argon2.IDKey panics on zero cost factors.
	if params.Memory == 0 || params.Time == 0 || params.Parallelism == 0 {
		return HashParams{}, nil, nil, ErrInvalidHash
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return HashParams{}, nil, nil, ErrInvalidHash
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return HashParams{}, nil, nil, ErrInvalidHash
	}
	return params, salt, key, nil
}
