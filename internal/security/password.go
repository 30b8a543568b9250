package security

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
)

var ErrEmptySecret = errors.New("secret must not be empty")

// HashSecret maps a plaintext secret to its stored hash: hex-encoded
// SHA-256 over the raw bytes. The transform is deterministic and unsalted
// so that verification is a plain hash-equality check against the stored
// value.
//
// Known weakness: without a per-record salt and a slow hash, equal secrets
// produce equal hashes and offline cracking is cheap. A hardened scheme
// would change the stored format and break every existing hash, so it is
// not done here. See DESIGN.md.
func HashSecret(secret []byte) (string, error) {
	if len(secret) == 0 {
		return "", ErrEmptySecret
	}

	sum := sha256.Sum256(secret)

	return hex.EncodeToString(sum[:]), nil
}

// VerifySecret reports whether secret hashes to storedHash. The comparison
// is constant-time over the hex strings.
func VerifySecret(storedHash string, secret []byte) bool {
	computed, err := HashSecret(secret)
	if err != nil {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(computed), []byte(storedHash)) == 1
}
