package market

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
)

// ErrInvalidAddress is returned for strings that are not a Solana public key.
var ErrInvalidAddress = errors.New("invalid solana address")

const pubkeyLen = 32

// ParseAddress trims and validates a base58-encoded 32-byte mint address.
func ParseAddress(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidAddress)
	}
	raw, err := base58.Decode(s)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if len(raw) != pubkeyLen {
		return "", fmt.Errorf("%w: decoded to %d bytes, want %d", ErrInvalidAddress, len(raw), pubkeyLen)
	}
	return s, nil
}

// Shorten renders an address as "abcd...wxyz".
func Shorten(addr string) string {
	if len(addr) <= 8 {
		return addr
	}
	return addr[:4] + "..." + addr[len(addr)-4:]
}
