package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
)

// A refresh token is "<userID>.<random>". The user id travels in cleartext
// so the matching stored hash can be looked up without a table scan; only
// the random part is hashed and checked.
const refreshTokenRandomBytes = 32

var errMalformedRefreshToken = errors.New("malformed refresh token")

func newRefreshToken(userID int64) (token, random string, err error) {
	buf := make([]byte, refreshTokenRandomBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", err
	}
	random = base64.RawURLEncoding.EncodeToString(buf)
	return strconv.FormatInt(userID, 10) + "." + random, random, nil
}

func splitRefreshToken(raw string) (userID int64, random string, err error) {
	idPart, random, found := strings.Cut(raw, ".")
	if !found || random == "" {
		return 0, "", errMalformedRefreshToken
	}
	userID, err = strconv.ParseInt(idPart, 10, 64)
	if err != nil || userID <= 0 {
		return 0, "", errMalformedRefreshToken
	}
	return userID, random, nil
}
