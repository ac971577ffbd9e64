package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

func newSalt() ([]byte, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	return salt, nil
}

func saltedHash(salt, password []byte) []byte {
	h := sha256.New()
	_, _ = h.Write(salt)
	_, _ = h.Write(password)
	return h.Sum(nil)
}

// HashPassword returns hex-encoded salt and hash for storage.
func HashPassword(password string) (saltHex, hashHex string, err error) {
	salt, err := newSalt()
	if err != nil {
		return "", "", err
	}
	return hex.EncodeToString(salt), hex.EncodeToString(saltedHash(salt, []byte(password))), nil
}

// CheckPassword compares in constant time.
func CheckPassword(saltHex, hashHex, password string) bool {
	salt, err := hex.DecodeString(saltHex)
	if err != nil || len(salt) == 0 {
		return false
	}
	want, err := hex.DecodeString(hashHex)
	if err != nil || len(want) == 0 {
		return false
	}
	got := saltedHash(salt, []byte(password))
	return subtle.ConstantTimeCompare(want, got) == 1
}
