package solana

import (
	"fmt"

	"github.com/mr-tron/base58"
)

// PublicKeyLength is the size of an ed25519 public key in bytes.
const PublicKeyLength = 32

// ValidateAddress checks that addr is a base58-encoded 32-byte public key.
func ValidateAddress(addr string) error {
	if addr == "" {
		return fmt.Errorf("empty address")
	}
	decoded, err := base58.Decode(addr)
	if err != nil {
		return fmt.Errorf("decode base58 address %q: %w", addr, err)
	}
	if len(decoded) != PublicKeyLength {
		return fmt.Errorf("address %q decodes to %d bytes, want %d", addr, len(decoded), PublicKeyLength)
	}
	return nil
}
