package rewards

import (
	"context"
	"strings"
	"time"

	"github.com/hugs-network/trivia_layer/internal/ledger"
	"github.com/hugs-network/trivia_layer/internal/metrics"
)

// RewardRequest asks for one reward payment. Seed is the recipient's own
// credential and is only used to create a missing trust line.
type RewardRequest struct {
	Address string  `json:"address"`
	Amount  float64 `json:"amount"`
	Token   string  `json:"token,omitempty"`
	Reason  string  `json:"reason,omitempty"`
	Seed    string  `json:"-"`
	Mode    Mode    `json:"mode,omitempty"`
}

// RewardResult is the settlement outcome. TxHash is the validated ledger
// hash in network mode and a synthetic id in mock mode.
type RewardResult struct {
	OK     bool        `json:"ok"`
	Mode   Mode        `json:"mode,omitempty"`
	TxHash string      `json:"tx_hash,omitempty"`
	Paid   float64     `json:"paid,omitempty"`
	Entry  *Entry      `json:"entry,omitempty"`
	Error  Code        `json:"error,omitempty"`
	Detail interface{} `json:"detail,omitempty"`
}

// PayReward settles one reward. Invalid input fails before any side
// effect. Mock mode appends to the local ledger. Network mode needs the
// issuer configured and a trust line on the recipient, created inline only
// when the recipient's seed was supplied.
func (s *Service) PayReward(ctx context.Context, req RewardRequest) RewardResult {
	start := time.Now()
	mode := req.Mode
	if mode == "" {
		mode = s.cfg.Mode
	}

	var res RewardResult
	if mode == ModeMock {
		res = s.payMock(req)
	} else {
		res = s.payNetwork(ctx, req)
	}
	res.Mode = mode

	metrics.RecordSettlement(string(mode), outcome(res.OK, res.Error), time.Since(start))
	return res
}

func (s *Service) validate(req *RewardRequest) *RewardResult {
	req.Address = strings.TrimSpace(req.Address)
	req.Token = strings.TrimSpace(req.Token)
	req.Reason = strings.TrimSpace(req.Reason)
	if req.Token == "" {
		req.Token = s.cfg.Token
	}
	if req.Address == "" {
		return &RewardResult{Error: CodeInvalidParams, Detail: "address is required"}
	}
	if !(req.Amount > 0) {
		return &RewardResult{Error: CodeInvalidParams, Detail: "amount must be positive"}
	}
	return nil
}

func (s *Service) payMock(req RewardRequest) RewardResult {
	if bad := s.validate(&req); bad != nil {
		return *bad
	}

	entry, err := s.mock.Append(req.Address, req.Amount, req.Token, req.Reason)
	if err != nil {
		s.log.WithError(err).WithField("address", req.Address).Error("mock ledger append failed")
		return RewardResult{Error: CodeRewardError, Detail: err.Error()}
	}

	s.log.WithField("address", req.Address).
		WithField("amount", req.Amount).
		WithField("tx_hash", entry.TxHash).
		Info("mock reward recorded")
	return RewardResult{OK: true, TxHash: entry.TxHash, Paid: req.Amount, Entry: &entry}
}

func (s *Service) payNetwork(ctx context.Context, req RewardRequest) RewardResult {
	if bad := s.validate(&req); bad != nil {
		return *bad
	}
	if s.cfg.Issuer == "" {
		return RewardResult{Error: CodeIssuerNotConfigured}
	}
	if s.cfg.IssuerSeed == "" {
		return RewardResult{Error: CodeMissingIssuerCredential}
	}
	if s.ledger == nil {
		return RewardResult{Error: CodeRewardError, Detail: "ledger not configured"}
	}

	issuerWallet, err := ledger.WalletFromSeed(s.cfg.IssuerSeed)
	if err != nil {
		return RewardResult{Error: CodeMissingIssuerCredential, Detail: err.Error()}
	}
	if issuerWallet.Address != s.cfg.Issuer {
		return RewardResult{Error: CodeMissingIssuerCredential, Detail: "issuer seed does not belong to issuer address"}
	}

	log := s.log.WithField("address", req.Address).WithField("amount", req.Amount)

	if !s.hasTrustLine(ctx, req.Address, req.Token, s.cfg.Issuer) {
		if req.Seed == "" {
			log.Info("recipient has no trust line")
			return RewardResult{Error: CodeNoTrustLine}
		}
		line := s.EnsureTrustLine(ctx, req.Address, req.Seed, req.Token, s.cfg.Issuer)
		if !line.OK {
			return RewardResult{Error: line.Error, Detail: line.Detail}
		}
	}

	amount, err := s.issuedAmount(req.Token, s.cfg.Issuer, ledger.FormatValue(req.Amount))
	if err != nil {
		return RewardResult{Error: CodeInvalidParams, Detail: err.Error()}
	}

	submitted, err := s.ledger.Submit(ctx, ledger.NewPayment(s.cfg.Issuer, req.Address, amount), issuerWallet)
	if err != nil {
		log.WithError(err).Error("reward payment failed")
		return RewardResult{Error: CodeRewardError, Detail: err.Error()}
	}

	log.WithField("tx_hash", submitted.Hash).Info("reward paid")
	return RewardResult{OK: true, TxHash: submitted.Hash, Paid: req.Amount}
}

// Balance returns the reward token balance of address. Mock mode sums the
// local ledger; network mode reads trust lines, where no line is zero.
func (s *Service) Balance(ctx context.Context, address, token string, mode Mode) (float64, error) {
	if token == "" {
		token = s.cfg.Token
	}
	if mode == "" {
		mode = s.cfg.Mode
	}
	if mode == ModeMock {
		return s.mock.Balance(address, token)
	}
	if s.ledger == nil || s.cfg.Issuer == "" {
		return 0, nil
	}
	return s.ledger.BalanceOf(ctx, address, token, s.cfg.Issuer), nil
}

// History returns recent rewards for address, newest first. Network mode
// returns ErrUnsupported.
func (s *Service) History(ctx context.Context, address, token string, limit int, mode Mode) ([]Entry, error) {
	if token == "" {
		token = s.cfg.Token
	}
	if mode == "" {
		mode = s.cfg.Mode
	}
	if limit <= 0 {
		limit = s.cfg.HistoryLimit
	}
	if mode != ModeMock {
		return nil, ErrUnsupported
	}
	return s.mock.History(address, token, limit)
}
