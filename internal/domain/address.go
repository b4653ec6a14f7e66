package domain

import (
	"errors"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// ErrInvalidAddress is returned for strings that are not valid beneficiary
// addresses.
var ErrInvalidAddress = errors.New("invalid address")

// ValidateAddress checks that s is a base58-encoded 32-byte ed25519 point.
// Module accounts bypass this check; it applies to external beneficiaries
// and sinks only.
func ValidateAddress(s string) error {
	raw, err := base58.Decode(s)
	if err != nil {
		return ErrInvalidAddress
	}
	if len(raw) != 32 {
		return ErrInvalidAddress
	}
	if _, err := new(edwards25519.Point).SetBytes(raw); err != nil {
		return ErrInvalidAddress
	}
	return nil
}
