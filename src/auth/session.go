package auth

import (
	"crypto/rand"
	"encoding/hex"
	"io"

	"git.flipper.school/flipper/flipper/src/oops"
)

const secretBytes = 32

// NewSecret returns 256 random bits as 64 hex characters. Session ids and
// session tokens are both made this way.
func NewSecret() string {
	b := make([]byte, secretBytes)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		panic(oops.New(err, "failed to generate session secret"))
	}
	return hex.EncodeToString(b)
}
