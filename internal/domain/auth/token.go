package auth

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
)

// SigningKey pairs a secret with the version tag written into the token
// header, so secrets can rotate without invalidating recent tokens.
type SigningKey struct {
	Version string
	Secret  string
}

// Keyring signs access tokens with the active secret and verifies against
// every recognized version. It is built once at startup and never mutated.
type Keyring struct {
	active  string
	secrets map[string][]byte
}

// NewKeyring validates the secret table and returns an immutable keyring.
func NewKeyring(keys []SigningKey, activeVersion string) (*Keyring, error) {
	if len(keys) == 0 {
		return nil, errors.New("keyring requires at least one signing key")
	}
	secrets := make(map[string][]byte, len(keys))
	for _, key := range keys {
		if key.Version == "" || key.Secret == "" {
			return nil, errors.New("signing key version and secret cannot be empty")
		}
		if _, dup := secrets[key.Version]; dup {
			return nil, fmt.Errorf("duplicate signing key version %q", key.Version)
		}
		secrets[key.Version] = []byte(key.Secret)
	}
	if _, ok := secrets[activeVersion]; !ok {
		return nil, fmt.Errorf("active signing key version %q not present in key table", activeVersion)
	}
	return &Keyring{active: activeVersion, secrets: secrets}, nil
}

// ActiveVersion returns the version used for signing.
func (k *Keyring) ActiveVersion() string {
	return k.active
}

// SignAccessToken mints a compact HS256 token carrying the claims and the
// active key version in the kid header.
func (k *Keyring) SignAccessToken(claims Claims) (string, error) {
	tc := accessTokenClaims{
		Role: string(claims.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(claims.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(claims.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, tc)
	token.Header["kid"] = k.active
	return token.SignedString(k.secrets[k.active])
}

// VerifyAccessToken parses and validates a token string. Failures collapse
// to ErrTokenExpired when expiry is the only problem and ErrTokenInvalid
// for everything else; no structural detail leaks to callers.
func (k *Keyring) VerifyAccessToken(raw string) (Claims, error) {
	parsed, err := jwt.ParseWithClaims(raw, &accessTokenClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %s", t.Method.Alg())
		}
		version, ok := t.Header["kid"].(string)
		if !ok {
			return nil, errors.New("token missing key version")
		}
		secret, ok := k.secrets[version]
		if !ok {
			return nil, fmt.Errorf("unrecognized key version %q", version)
		}
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, ErrTokenInvalid
	}
	tc, ok := parsed.Claims.(*accessTokenClaims)
	if !ok || !parsed.Valid {
		return Claims{}, ErrTokenInvalid
	}
	if tc.ExpiresAt == nil || tc.IssuedAt == nil {
		return Claims{}, ErrTokenInvalid
	}
	userID, err := strconv.ParseInt(tc.Subject, 10, 64)
	if err != nil {
		return Claims{}, ErrTokenInvalid
	}
	role := Role(tc.Role)
	if !role.Valid() {
		return Claims{}, ErrTokenInvalid
	}
	return Claims{
		UserID:    userID,
		Role:      role,
		IssuedAt:  tc.IssuedAt.Time,
		ExpiresAt: tc.ExpiresAt.Time,
	}, nil
}

type accessTokenClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}
