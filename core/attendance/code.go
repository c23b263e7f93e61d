package attendance

import (
	"math/rand"
	"strings"
	"time"
)

// codeAlphabet is the 36-symbol alphabet session codes are drawn from.
// Uppercase only; students may type codes in any case (see NormalizeCode).
const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

var randIntn = rand.Intn // mockable

func init() {
	rand.Seed(time.Now().UnixNano())
}

// GenerateCode returns a fixed-length code drawn from codeAlphabet.
// It does not enforce uniqueness; drawing until no active session holds the
// code is the registry's job.
func GenerateCode(length int) string {
	b := make([]byte, length)
	for i := range b {
		b[i] = codeAlphabet[randIntn(len(codeAlphabet))]
	}
	return string(b)
}

// NormalizeCode uppercases a submitted code and strips surrounding whitespace
// so lookups are case-insensitive.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
