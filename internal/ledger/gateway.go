package ledger

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/hugs-network/trivia_layer/pkg/logger"
)

const (
	defaultFeeDrops      = 12
	defaultFeeCapDrops   = 2_000_000
	ledgerOffset         = 20
	defaultSubmitTimeout = 45 * time.Second
	defaultPollInterval  = time.Second
)

// GatewayConfig tunes submission behaviour.
type GatewayConfig struct {
	SubmitTimeout time.Duration
	PollInterval  time.Duration
	FeeCapDrops   uint64
}

// Gateway wraps the RPC client with the reads and writes the reward
// workflows rely on, normalising node responses into typed outcomes.
type Gateway struct {
	client        *Client
	submitTimeout time.Duration
	pollInterval  time.Duration
	feeCap        uint64
	log           *logger.Logger
}

// NewGateway creates a gateway over client.
func NewGateway(client *Client, cfg GatewayConfig, log *logger.Logger) *Gateway {
	if log == nil {
		log = logger.NewDefault("ledger")
	}
	if cfg.SubmitTimeout <= 0 {
		cfg.SubmitTimeout = defaultSubmitTimeout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.FeeCapDrops == 0 {
		cfg.FeeCapDrops = defaultFeeCapDrops
	}
	return &Gateway{
		client:        client,
		submitTimeout: cfg.SubmitTimeout,
		pollInterval:  cfg.PollInterval,
		feeCap:        cfg.FeeCapDrops,
		log:           log,
	}
}

// =============================================================================
// Reads
// =============================================================================

// AccountInfo reads the validated account root. A missing account returns
// an error matching ErrAccountNotFound.
func (g *Gateway) AccountInfo(ctx context.Context, address string) (AccountInfo, error) {
	return g.accountInfo(ctx, address, "validated")
}

func (g *Gateway) accountInfo(ctx context.Context, address, ledgerIndex string) (AccountInfo, error) {
	res, err := g.client.Call(ctx, "account_info", map[string]interface{}{
		"account":      address,
		"ledger_index": ledgerIndex,
		"strict":       true,
	})
	if err != nil {
		return AccountInfo{}, err
	}
	data := res.Get("account_data")
	if !data.Exists() {
		return AccountInfo{}, fmt.Errorf("account_info: missing account_data")
	}
	return AccountInfo{
		Address:  data.Get("Account").String(),
		Sequence: uint32(data.Get("Sequence").Uint()),
		Balance:  data.Get("Balance").Uint(),
	}, nil
}

// Status distinguishes an absent account from an unreachable node.
func (g *Gateway) Status(ctx context.Context, address string) AccountStatus {
	_, err := g.AccountInfo(ctx, address)
	switch {
	case err == nil:
		return StatusExists
	case errors.Is(err, ErrAccountNotFound):
		return StatusNotFound
	default:
		g.log.WithError(err).WithField("address", address).Debug("account lookup failed")
		return StatusUnreachable
	}
}

// AccountExists reports whether the account is in validated state. Absence
// and lookup failure both read as false.
func (g *Gateway) AccountExists(ctx context.Context, address string) bool {
	return g.Status(ctx, address) == StatusExists
}

// AccountLines returns every trust line of the account, following pages.
func (g *Gateway) AccountLines(ctx context.Context, address string) ([]TrustLine, error) {
	params := map[string]interface{}{
		"account":      address,
		"ledger_index": "validated",
	}
	var lines []TrustLine
	for {
		res, err := g.client.Call(ctx, "account_lines", params)
		if err != nil {
			return nil, err
		}
		res.Get("lines").ForEach(func(_, line gjson.Result) bool {
			lines = append(lines, TrustLine{
				Account:  line.Get("account").String(),
				Currency: line.Get("currency").String(),
				Balance:  line.Get("balance").String(),
				Limit:    line.Get("limit").String(),
			})
			return true
		})
		marker := res.Get("marker")
		if !marker.Exists() {
			return lines, nil
		}
		params["marker"] = marker.Value()
	}
}

// TrustLines returns the account's lines, or none if they cannot be read.
func (g *Gateway) TrustLines(ctx context.Context, address string) []TrustLine {
	lines, err := g.AccountLines(ctx, address)
	if err != nil {
		g.log.WithError(err).WithField("address", address).Debug("trust line lookup failed")
		return nil
	}
	return lines
}

// BalanceOf sums the balances of lines holding token from issuer. No line,
// or any read failure, is a zero balance.
func (g *Gateway) BalanceOf(ctx context.Context, address, token, issuer string) float64 {
	var total float64
	for _, line := range g.TrustLines(ctx, address) {
		if line.Matches(token, issuer) {
			total += line.BalanceValue()
		}
	}
	return total
}

// =============================================================================
// Writes
// =============================================================================

// Submit autofills sequencing and fee fields, signs with w, submits and
// blocks until the transaction is validated, expired, or the submit
// timeout elapses.
func (g *Gateway) Submit(ctx context.Context, tx *Transaction, w *Wallet) (SubmitResult, error) {
	ctx, cancel := context.WithTimeout(ctx, g.submitTimeout)
	defer cancel()

	if tx.Account == "" {
		tx.Account = w.Address
	}
	if err := g.autofill(ctx, tx); err != nil {
		return SubmitResult{}, fmt.Errorf("autofill: %w", err)
	}

	blob, hash, err := Sign(tx, w)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("sign: %w", err)
	}

	res, err := g.client.Call(ctx, "submit", map[string]interface{}{"tx_blob": blob})
	if err != nil {
		return SubmitResult{}, fmt.Errorf("submit: %w", err)
	}
	engine := res.Get("engine_result").String()
	if h := res.Get("tx_json.hash").String(); h != "" {
		hash = h
	}
	log := g.log.WithField("tx_hash", hash).WithField("type", string(tx.TransactionType))
	log.WithField("engine_result", engine).Debug("transaction submitted")

	if isFinalRejection(engine) {
		return SubmitResult{}, &EngineError{
			Result:  engine,
			Message: res.Get("engine_result_message").String(),
			Hash:    hash,
		}
	}

	result, err := g.waitValidated(ctx, hash, tx.LastLedgerSequence)
	if err != nil {
		log.WithError(err).Warn("transaction not confirmed")
		return SubmitResult{}, err
	}
	log.WithField("ledger_index", result.LedgerIndex).Info("transaction validated")
	return result, nil
}

func (g *Gateway) autofill(ctx context.Context, tx *Transaction) error {
	if tx.Sequence == 0 {
		info, err := g.accountInfo(ctx, tx.Account, "current")
		if err != nil {
			return fmt.Errorf("sequence: %w", err)
		}
		tx.Sequence = info.Sequence
	}
	if tx.Fee == 0 {
		tx.Fee = g.openLedgerFee(ctx)
	}
	if tx.LastLedgerSequence == 0 {
		res, err := g.client.Call(ctx, "ledger_current", nil)
		if err != nil {
			return fmt.Errorf("current ledger: %w", err)
		}
		tx.LastLedgerSequence = uint32(res.Get("ledger_current_index").Uint()) + ledgerOffset
	}
	return nil
}

func (g *Gateway) openLedgerFee(ctx context.Context) uint64 {
	fee := uint64(defaultFeeDrops)
	res, err := g.client.Call(ctx, "fee", nil)
	if err == nil {
		if v, perr := strconv.ParseUint(res.Get("drops.open_ledger_fee").String(), 10, 64); perr == nil && v > fee {
			fee = v
		}
	}
	if fee > g.feeCap {
		fee = g.feeCap
	}
	return fee
}

func (g *Gateway) waitValidated(ctx context.Context, hash string, lastLedger uint32) (SubmitResult, error) {
	ticker := time.NewTicker(g.pollInterval)
	defer ticker.Stop()

	for {
		res, err := g.client.Call(ctx, "tx", map[string]interface{}{"transaction": hash})
		switch {
		case err == nil && res.Get("validated").Bool():
			outcome := res.Get("meta.TransactionResult").String()
			if outcome != "tesSUCCESS" {
				return SubmitResult{}, &EngineError{Result: outcome, Hash: hash}
			}
			return SubmitResult{
				Hash:         hash,
				EngineResult: outcome,
				LedgerIndex:  uint32(res.Get("ledger_index").Uint()),
				Raw:          res.Raw,
			}, nil
		case err != nil && !IsRPCCode(err, "txnNotFound"):
			if ctx.Err() != nil {
				return SubmitResult{}, fmt.Errorf("%w: %s", ErrSubmitTimeout, hash)
			}
			g.log.WithError(err).WithField("tx_hash", hash).Debug("tx lookup failed")
		}

		if lastLedger != 0 && g.validatedIndex(ctx) > lastLedger {
			return SubmitResult{}, fmt.Errorf("%w: %s", ErrExpired, hash)
		}

		select {
		case <-ctx.Done():
			return SubmitResult{}, fmt.Errorf("%w: %s", ErrSubmitTimeout, hash)
		case <-ticker.C:
		}
	}
}

func (g *Gateway) validatedIndex(ctx context.Context) uint32 {
	res, err := g.client.Call(ctx, "ledger", map[string]interface{}{"ledger_index": "validated"})
	if err != nil {
		return 0
	}
	return uint32(res.Get("ledger_index").Uint())
}

// tem, tef and tel results never make it into a ledger.
func isFinalRejection(engine string) bool {
	for _, prefix := range []string{"tem", "tef", "tel"} {
		if strings.HasPrefix(engine, prefix) {
			return true
		}
	}
	return false
}
