package game

import (
	"crypto/rand"
	"fmt"
	"io"
)

const inviteCodeLength = 6

// codeEntropy is replaced in tests.
var codeEntropy io.Reader = rand.Reader

func newInviteCode() (string, error) {
	const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	buf := make([]byte, inviteCodeLength)
	if _, err := io.ReadFull(codeEntropy, buf); err != nil {
		return "", fmt.Errorf("generate invite code: %w", err)
	}
	for i := range buf {
		buf[i] = alphabet[int(buf[i])%len(alphabet)]
	}
	return string(buf), nil
}

func normalizeInviteCode(code string) string {
	out := make([]byte, 0, len(code))
	for i := 0; i < len(code); i++ {
		c := code[i]
		switch {
		case c >= 'a' && c <= 'z':
			out = append(out, c-'a'+'A')
		case c == ' ' || c == '-':
		default:
			out = append(out, c)
		}
	}
	return string(out)
}
