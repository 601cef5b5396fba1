package ledger

import (
	"encoding/hex"
	"fmt"
	"strings"
)

const currencyLength = 20

// EncodeCurrency returns the 20-byte representation of a currency code.
// Three-character codes use the standard layout; longer codes are either
// 40 hex digits or ASCII left-aligned and zero padded.
func EncodeCurrency(code string) ([]byte, error) {
	code = strings.TrimSpace(code)
	out := make([]byte, currencyLength)
	switch {
	case len(code) == 3:
		if strings.EqualFold(code, "XRP") {
			return nil, fmt.Errorf("%w: XRP is not an issued currency", ErrInvalidCurrency)
		}
		copy(out[12:15], code)
		return out, nil
	case len(code) == 2*currencyLength:
		raw, err := hex.DecodeString(code)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidCurrency, code)
		}
		return raw, nil
	case len(code) > 3 && len(code) <= currencyLength:
		copy(out, code)
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidCurrency, code)
	}
}

// CurrencyWireCode returns the code as it appears in JSON transactions:
// standard codes verbatim, everything else as 40 upper-case hex digits.
func CurrencyWireCode(code string) (string, error) {
	if len(strings.TrimSpace(code)) == 3 {
		if _, err := EncodeCurrency(code); err != nil {
			return "", err
		}
		return strings.TrimSpace(code), nil
	}
	raw, err := EncodeCurrency(code)
	if err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(raw)), nil
}

// SameCurrency compares two codes in canonical form, so "HUGS" equals its
// 40-hex padded encoding.
func SameCurrency(a, b string) bool {
	ra, errA := EncodeCurrency(a)
	rb, errB := EncodeCurrency(b)
	if errA != nil || errB != nil {
		return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
	}
	return hex.EncodeToString(ra) == hex.EncodeToString(rb)
}
