package rewards

import (
	"context"
	"fmt"
	"time"

	"github.com/hugs-network/trivia_layer/internal/ledger"
	"github.com/hugs-network/trivia_layer/internal/metrics"
)

// ActivationResult reports whether an account is active on the ledger.
type ActivationResult struct {
	Active bool        `json:"active"`
	Funded bool        `json:"funded,omitempty"`
	Error  Code        `json:"error,omitempty"`
	Detail interface{} `json:"detail,omitempty"`
}

// EnsureActive makes sure address exists on the ledger. Existing accounts
// succeed without further calls. On a test network a missing account is
// funded through the faucet and polled until it appears or the activation
// deadline passes; other networks have no funding path.
func (s *Service) EnsureActive(ctx context.Context, address string, network ledger.Network) ActivationResult {
	res := s.ensureActive(ctx, address, network, s.cfg.ActivationTimeout)
	metrics.RecordActivation(outcome(res.Active, res.Error))
	return res
}

func (s *Service) ensureActive(ctx context.Context, address string, network ledger.Network, deadline time.Duration) ActivationResult {
	log := s.log.WithField("address", address).WithField("network", network.String())

	if s.ledger == nil {
		return ActivationResult{Error: CodeNotActivated, Detail: "ledger not configured"}
	}
	if s.ledger.AccountExists(ctx, address) {
		return ActivationResult{Active: true}
	}
	if !network.IsTest() {
		log.Warn("account not activated and network has no faucet")
		return ActivationResult{
			Error:  CodeNotActivated,
			Detail: fmt.Sprintf("account not found on %s and no funding path exists", network),
		}
	}
	if s.funder == nil {
		return ActivationResult{Error: CodeFaucetFailed, Detail: "no faucet configured"}
	}

	funded := s.funder.Fund(ctx, address)
	if !funded.OK {
		log.WithField("detail", funded.Detail).Warn("faucet funding failed")
		return ActivationResult{Error: CodeFaucetFailed, Detail: funded.Detail}
	}

	if s.waitActive(ctx, address, deadline) {
		log.Info("account activated")
		return ActivationResult{Active: true, Funded: true}
	}
	log.Warn("account not visible before activation deadline")
	return ActivationResult{Funded: true, Error: CodeNotActivated, Detail: "activation_timeout"}
}

// waitActive polls for the account until it exists or wait elapses.
func (s *Service) waitActive(ctx context.Context, address string, wait time.Duration) bool {
	deadline := time.Now().Add(wait)
	for {
		if s.ledger.AccountExists(ctx, address) {
			return true
		}
		if !time.Now().Add(s.cfg.ActivationPollInterval).Before(deadline) {
			return false
		}
		if err := sleepCtx(ctx, s.cfg.ActivationPollInterval); err != nil {
			return false
		}
	}
}
