package ledger

import (
	"fmt"
	"strings"

	addresscodec "github.com/Peersyst/xrpl-go/address-codec"
)

// Lengths of decoded seed payloads: one prefix byte for secp256k1 family
// seeds, three for ed25519 seeds, followed by 16 bytes of entropy.
const (
	secpSeedPayload    = 1 + addresscodec.FamilySeedLength
	ed25519SeedPayload = 3 + addresscodec.FamilySeedLength
)

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

// checkDecode base58check-decodes s, rejecting input the codec cannot
// represent before it reaches it.
func checkDecode(s string) ([]byte, bool) {
	if s == "" || !isASCII(s) {
		return nil, false
	}
	payload, err := addresscodec.Base58CheckDecode(s)
	if err != nil {
		return nil, false
	}
	return payload, true
}

// EncodeAccountID renders a 20-byte account id as a classic address.
func EncodeAccountID(id []byte) (string, error) {
	addr, err := addresscodec.EncodeAccountIDToClassicAddress(id)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	return addr, nil
}

// DecodeAddress returns the account id of a classic address after checking
// its prefix, length and checksum.
func DecodeAddress(address string) ([]byte, error) {
	payload, ok := checkDecode(strings.TrimSpace(address))
	if !ok || len(payload) != 1+addresscodec.AccountAddressLength || payload[0] != addresscodec.AccountAddressPrefix {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}
	return payload[1:], nil
}

// IsValidAddress reports whether s is a well-formed classic address.
func IsValidAddress(s string) bool {
	_, err := DecodeAddress(s)
	return err == nil
}

// validSeed reports whether seed decodes to an ed25519 or secp256k1
// family seed.
func validSeed(seed string) bool {
	payload, ok := checkDecode(seed)
	if !ok {
		return false
	}
	switch len(payload) {
	case ed25519SeedPayload:
		return payload[0] == 0x01 && payload[1] == 0xE1 && payload[2] == 0x4B
	case secpSeedPayload:
		return payload[0] == addresscodec.FamilySeedPrefix
	}
	return false
}
