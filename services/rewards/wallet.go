package rewards

import (
	"context"

	"github.com/hugs-network/trivia_layer/internal/ledger"
)

// WalletResult carries a freshly generated wallet. The seed is returned to
// the caller once and never stored.
type WalletResult struct {
	OK         bool        `json:"ok"`
	Address    string      `json:"address,omitempty"`
	Seed       string      `json:"seed,omitempty"`
	Funded     bool        `json:"funded"`
	Active     bool        `json:"active"`
	FaucetInfo interface{} `json:"faucet_info,omitempty"`
	Error      string      `json:"error,omitempty"`
	Detail     string      `json:"detail,omitempty"`
}

// CreateWallet generates a wallet and, on a test network, tries to fund
// it. Funding problems are reported but never fail the call.
func (s *Service) CreateWallet(ctx context.Context) WalletResult {
	w, err := ledger.NewWallet()
	if err != nil {
		return WalletResult{Error: "create_wallet_failed", Detail: err.Error()}
	}
	out := WalletResult{OK: true, Address: w.Address, Seed: w.Seed}
	log := s.log.WithField("address", w.Address)

	switch {
	case !s.cfg.Network.IsTest():
		out.FaucetInfo = map[string]interface{}{"error": "no faucet on " + s.cfg.Network.String()}
	case s.funder == nil:
		out.FaucetInfo = map[string]interface{}{"error": "no faucet configured"}
	default:
		funded := s.funder.Fund(ctx, w.Address)
		out.Funded = funded.OK
		if funded.OK {
			if s.ledger != nil {
				out.Active = s.waitActive(ctx, w.Address, s.cfg.WalletActivationTimeout)
			}
		} else {
			out.FaucetInfo = funded.Detail
		}
	}

	log.WithField("funded", out.Funded).Info("wallet created")
	return out
}
