package ledger

import (
	"fmt"
	"strings"
)

// Network identifies which ledger network the gateway talks to.
type Network string

const (
	Testnet Network = "testnet"
	Devnet  Network = "devnet"
	Mainnet Network = "mainnet"
)

// Default public endpoints per network.
var defaultRPCURLs = map[Network]string{
	Testnet: "https://s.altnet.rippletest.net:51234",
	Devnet:  "https://s.devnet.rippletest.net:51234",
	Mainnet: "https://xrplcluster.com",
}

// ParseNetwork accepts the configured network name. Empty means testnet.
func ParseNetwork(s string) (Network, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "testnet", "test", "altnet":
		return Testnet, nil
	case "devnet", "dev":
		return Devnet, nil
	case "mainnet", "main", "livenet":
		return Mainnet, nil
	default:
		return "", fmt.Errorf("unknown ledger network %q", s)
	}
}

// IsTest reports whether the network has a funding faucet.
func (n Network) IsTest() bool {
	return n == Testnet || n == Devnet
}

// DefaultRPCURL returns the public JSON-RPC endpoint for the network.
func (n Network) DefaultRPCURL() string {
	return defaultRPCURLs[n]
}

func (n Network) String() string { return string(n) }
