package onchain

import (
	"encoding/hex"
	"strings"
)

const keyHexLen = 64

// LoanKey converts a loan id into the bytes32 key the verification contract is indexed by.
// A 0x-prefixed hex id keeps its payload; any other id is hex-encoded from its raw bytes.
// Either way the hex is right-padded with zeros to 32 bytes and truncated beyond that.
func LoanKey(loanId string) [32]byte {
	payload := hex.EncodeToString([]byte(loanId))
	if rest, ok := hexPayload(loanId); ok {
		payload = strings.ToLower(rest)
	}
	if len(payload) > keyHexLen {
		payload = payload[:keyHexLen]
	}
	payload += strings.Repeat("0", keyHexLen-len(payload))

	var key [32]byte
	b, _ := hex.DecodeString(payload)
	copy(key[:], b)
	return key
}

func hexPayload(s string) (string, bool) {
	if len(s) < 3 || (s[:2] != "0x" && s[:2] != "0X") {
		return "", false
	}
	rest := s[2:]
	for _, c := range rest {
		if !isHexDigit(c) {
			return "", false
		}
	}
	return rest, true
}

func isHexDigit(c rune) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
