// Package signature implements the canonicalization and HMAC scheme of each
// payment provider. Each provider has its own algorithm with its own field
// set; they deliberately do not share a canonicalization code path, because
// a field reordering or encoding slip silently breaks every signature.
//
// All functions are pure: the same fields and secret always yield the same
// tag, with no dependence on clock or locale.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"hash"
)

// Field is one named value fed into canonicalization. Slices of Field carry
// the provider-defined signing order; that order is part of the provider
// contract and must never be derived from map iteration.
type Field struct {
	Key   string
	Value string
}

func hmacHex(newHash func() hash.Hash, message, secret string) string {
	mac := hmac.New(newHash, []byte(secret))
	_, _ = mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

func hmacSHA256Hex(message, secret string) string {
	return hmacHex(sha256.New, message, secret)
}

func hmacSHA512Hex(message, secret string) string {
	return hmacHex(sha512.New, message, secret)
}

// tagsEqual compares two hex-encoded tags in constant time.
func tagsEqual(a, b string) bool {
	return hmac.Equal([]byte(a), []byte(b))
}
