package event

import (
	"encoding/base64"
	"fmt"

	"github.com/hedeqiang/tonwatch/internal/hex"
)

// HashFromBytes copies b into a Hash. b must be exactly 32 bytes long.
func HashFromBytes(b []byte) (Hash, error) {
	var h Hash
	if len(b) != len(h) {
		return h, fmt.Errorf("invalid hash length %d", len(b))
	}
	copy(h[:], b)
	return h, nil
}

// HashFromHex converts a hex string (with or without "0x") to a Hash.
func HashFromHex(s string) (Hash, error) {
	b, err := hex.Decode(s)
	if err != nil {
		return Hash{}, fmt.Errorf("invalid hash %q: %w", s, err)
	}
	return HashFromBytes(b)
}

// HashFromBase64 converts a standard or URL-safe base64 string to a Hash.
func HashFromBase64(s string) (Hash, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		b, err = base64.URLEncoding.DecodeString(s)
		if err != nil {
			return Hash{}, fmt.Errorf("invalid hash %q: %w", s, err)
		}
	}
	return HashFromBytes(b)
}

// MustHashFromHex is like HashFromHex but panics on error.
func MustHashFromHex(s string) Hash {
	h, err := HashFromHex(s)
	if err != nil {
		panic(err)
	}
	return h
}

// IsZero reports whether every byte of the hash is zero.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// Hex returns the "0x"-prefixed hex encoding of the hash.
func (h Hash) Hex() string {
	return hex.Encode(h[:])
}

// HexBare returns the hex encoding of the hash without prefix.
func (h Hash) HexBare() string {
	return hex.EncodeBare(h[:])
}

// Base64 returns the standard base64 encoding used by TON HTTP APIs.
func (h Hash) Base64() string {
	return base64.StdEncoding.EncodeToString(h[:])
}

// String implements fmt.Stringer.
func (h Hash) String() string {
	return h.Hex()
}
