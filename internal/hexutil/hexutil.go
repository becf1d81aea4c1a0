// Package hexutil wraps encoding/hex with the error-context
// conventions used for signature and key material throughout the
// signed envelope (component K).
package hexutil

import (
	"encoding/hex"
	"fmt"
)

// Encode returns the lowercase hex encoding of b.
func Encode(b []byte) string {
	return hex.EncodeToString(b)
}

// Decode parses a hex string produced by Encode, wrapping decode
// errors with the field name for context.
func Decode(field, s string) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decoding hex field %q: %w", field, err)
	}
	return b, nil
}
