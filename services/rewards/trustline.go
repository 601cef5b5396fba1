package rewards

import (
	"context"
	"strings"

	"github.com/hugs-network/trivia_layer/internal/ledger"
	"github.com/hugs-network/trivia_layer/internal/metrics"
)

// TrustLineResult reports the trust line workflow outcome.
type TrustLineResult struct {
	OK      bool        `json:"ok"`
	Already bool        `json:"already,omitempty"`
	TxHash  string      `json:"tx_hash,omitempty"`
	Error   Code        `json:"error,omitempty"`
	Detail  interface{} `json:"detail,omitempty"`
}

// EnsureTrustLine makes address trust token from issuer, signing with the
// account's own seed. An existing line is reported with Already and no
// write. Activation failures are returned as they are. The TrustSet is
// submitted once; callers retry the whole operation.
func (s *Service) EnsureTrustLine(ctx context.Context, address, seed, token, issuer string) TrustLineResult {
	res := s.ensureTrustLine(ctx, address, seed, token, issuer)
	label := outcome(res.OK, res.Error)
	if res.Already {
		label = "already"
	}
	metrics.RecordTrustLine(label)
	return res
}

func (s *Service) ensureTrustLine(ctx context.Context, address, seed, token, issuer string) TrustLineResult {
	address = strings.TrimSpace(address)
	seed = strings.TrimSpace(seed)
	if token == "" {
		token = s.cfg.Token
	}
	if issuer == "" {
		issuer = s.cfg.Issuer
	}

	if address == "" || seed == "" {
		return TrustLineResult{Error: CodeInvalidParams, Detail: "address and seed are required"}
	}
	if issuer == "" {
		return TrustLineResult{Error: CodeIssuerNotConfigured}
	}
	if s.ledger == nil {
		return TrustLineResult{Error: CodeTrustSetFailed, Detail: "ledger not configured"}
	}

	wallet, err := ledger.WalletFromSeed(seed)
	if err != nil {
		return TrustLineResult{Error: CodeInvalidParams, Detail: err.Error()}
	}
	if wallet.Address != address {
		return TrustLineResult{Error: CodeInvalidParams, Detail: "seed does not belong to address"}
	}

	if s.hasTrustLine(ctx, address, token, issuer) {
		return TrustLineResult{OK: true, Already: true}
	}

	activation := s.EnsureActive(ctx, address, s.cfg.Network)
	if !activation.Active {
		return TrustLineResult{Error: activation.Error, Detail: activation.Detail}
	}

	limit, err := s.issuedAmount(token, issuer, s.cfg.TrustLimit)
	if err != nil {
		return TrustLineResult{Error: CodeInvalidParams, Detail: err.Error()}
	}

	log := s.log.WithField("address", address).WithField("token", token)
	submitted, err := s.ledger.Submit(ctx, ledger.NewTrustSet(address, limit), wallet)
	if err != nil {
		log.WithError(err).Warn("trust line submission failed")
		return TrustLineResult{Error: CodeTrustSetFailed, Detail: err.Error()}
	}

	log.WithField("tx_hash", submitted.Hash).Info("trust line created")
	return TrustLineResult{OK: true, TxHash: submitted.Hash}
}
