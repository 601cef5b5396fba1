package ledger

import (
	"fmt"
	"strings"

	"github.com/Peersyst/xrpl-go/pkg/crypto"
	xrplwallet "github.com/Peersyst/xrpl-go/xrpl/wallet"
)

// Wallet is a signing key pair derived from a family seed, ed25519 or
// secp256k1. It is never persisted; callers pass it per operation.
type Wallet struct {
	Seed    string
	Address string

	keys xrplwallet.Wallet
}

// NewWallet generates a fresh random ed25519 wallet.
func NewWallet() (*Wallet, error) {
	w, err := xrplwallet.New(crypto.ED25519())
	if err != nil {
		return nil, fmt.Errorf("generate wallet: %w", err)
	}
	return fromKeys(w), nil
}

// WalletFromSeed derives the wallet for a seed of either key type.
func WalletFromSeed(seed string) (*Wallet, error) {
	seed = strings.TrimSpace(seed)
	if !validSeed(seed) {
		return nil, ErrInvalidSeed
	}
	w, err := xrplwallet.FromSeed(seed, "")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSeed, err)
	}
	return fromKeys(w), nil
}

func fromKeys(w xrplwallet.Wallet) *Wallet {
	return &Wallet{Seed: w.Seed, Address: w.ClassicAddress.String(), keys: w}
}

// PublicKeyHex returns the 33-byte public key in upper-case hex.
func (w *Wallet) PublicKeyHex() string {
	return strings.ToUpper(w.keys.PublicKey)
}

// String never exposes the seed.
func (w *Wallet) String() string { return w.Address }
