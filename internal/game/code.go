package game

import (
	"crypto/rand"
	"math/big"
	"strings"
)

// CodeAlphabet is the 32-symbol set join codes are drawn from. 0, O, I, L
// and 1 are excluded so codes survive being read aloud or scrawled on a
// whiteboard.
const CodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const CodeLength = 6

// NewCode generates a join code, each character drawn uniformly from
// CodeAlphabet. Collision handling is the caller's job (regenerate when the
// store reports the code taken).
func NewCode() (string, error) {
	code := make([]byte, CodeLength)
	for i := 0; i < CodeLength; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(CodeAlphabet))))
		if err != nil {
			return "", err
		}
		code[i] = CodeAlphabet[num.Int64()]
	}
	return string(code), nil
}

// NormalizeCode folds user-typed codes to the canonical form: trimmed and
// upper-cased.
func NormalizeCode(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
