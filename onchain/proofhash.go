package onchain

import (
	"encoding/hex"
	"strings"
)

// DecodeProofHash recovers the proof-hash string stored on-chain as hex-encoded ASCII.
// Decoding stops at the first zero byte or the first pair that is not valid hex.
func DecodeProofHash(encoded string) string {
	s := strings.TrimSpace(encoded)
	if len(s) >= 2 && (s[:2] == "0x" || s[:2] == "0X") {
		s = s[2:]
	}

	var b strings.Builder
	for i := 0; i+1 < len(s); i += 2 {
		pair, err := hex.DecodeString(s[i : i+2])
		if err != nil || pair[0] == 0 {
			break
		}
		b.WriteByte(pair[0])
	}
	return b.String()
}

func DecodeProofHashBytes(raw [32]byte) string {
	return DecodeProofHash(hex.EncodeToString(raw[:]))
}
