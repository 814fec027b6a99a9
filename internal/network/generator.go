package network

import (
	"crypto/rand"

	"github.com/google/uuid"
)

// Alphabets exclude visually ambiguous characters (0/O, 1/I) so credentials
// survive being read over the phone or typed from a printed voucher.
const (
	hotspotAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	alnumAlphabet   = "abcdefghjkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	digitAlphabet   = "0123456789"
)

// GenerateHotspotPassword produces a fresh voucher-style password of the
// form ISP-XXXX-XXXX. Each call is independent; collisions are not prevented
// here but are rejected by the router's duplicate-name handling upstream.
func GenerateHotspotPassword() string {
	return "ISP-" + randomFrom(hotspotAlphabet, 4) + "-" + randomFrom(hotspotAlphabet, 4)
}

// GeneratePIN produces a numeric PIN of the given length.
func GeneratePIN(length int) string {
	return randomFrom(digitAlphabet, length)
}

// GeneratePassword produces a generic alphanumeric password of the given
// length, using the same ambiguity-free alphabet as hotspot passwords.
func GeneratePassword(length int) string {
	return randomFrom(alnumAlphabet, length)
}

func randomFrom(alphabet string, length int) string {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		// Fallback to UUID material if crypto/rand fails
		copy(buf, uuid.New().String())
	}
	out := make([]byte, length)
	for i, b := range buf {
		out[i] = alphabet[int(b)%len(alphabet)]
	}
	return string(out)
}
