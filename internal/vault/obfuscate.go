package vault

import (
	"encoding/base64"
	"strings"
)

// Tokens are stored with a reversible byte-shift over their base64 form.
// This is at-rest obfuscation against casual inspection of the vault file,
// not encryption, and must not be treated as a security boundary.

const (
	obfuscationPrefix = "ob:"
	obfuscationShift  = 3
)

func shiftPrintable(s string, shift int) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 33 && c <= 126 {
			c = byte((int(c)-33+shift%94+94)%94 + 33)
		}
		b.WriteByte(c)
	}
	return b.String()
}

// obfuscateToken encodes a token for storage: base64, shift each printable
// ASCII byte, prepend the format prefix.
func obfuscateToken(token string) string {
	if token == "" {
		return token
	}
	b64 := base64.StdEncoding.EncodeToString([]byte(token))
	return obfuscationPrefix + shiftPrintable(b64, obfuscationShift)
}

// deobfuscateToken reverses obfuscateToken. Values without the prefix are
// legacy plaintext and returned unchanged; undecodable values fall back to
// the stored string rather than failing the whole vault load.
func deobfuscateToken(stored string) string {
	if !strings.HasPrefix(stored, obfuscationPrefix) {
		return stored
	}
	b64 := shiftPrintable(stored[len(obfuscationPrefix):], -obfuscationShift)
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return stored
	}
	return string(raw)
}
