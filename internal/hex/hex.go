// Package hex encodes and decodes the "0x"-prefixed hex used for hashes in
// logs, cursor files and the HTTP API.
package hex

import (
	"encoding/hex"
	"strings"
)

// Encode returns the hexadecimal encoding of src with "0x" prefix.
func Encode(src []byte) string {
	return "0x" + hex.EncodeToString(src)
}

// EncodeBare returns the hexadecimal encoding of src without a prefix.
func EncodeBare(src []byte) string {
	return hex.EncodeToString(src)
}

// Decode decodes a hex string, with or without "0x" prefix, into bytes.
// Unlike Encode it accepts upper-case digits, as explorers print them.
func Decode(s string) ([]byte, error) {
	s = strings.TrimPrefix(s, "0x")
	s = strings.TrimPrefix(s, "0X")
	return hex.DecodeString(s)
}
