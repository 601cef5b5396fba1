// Package rewards settles trivia rewards: it brings a player account
// through activation and trust-line setup and pays the reward token from
// the issuer, or records it in a local mock ledger.
package rewards

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hugs-network/trivia_layer/internal/faucet"
	"github.com/hugs-network/trivia_layer/internal/ledger"
	"github.com/hugs-network/trivia_layer/pkg/logger"
)

// Mode selects where rewards are paid.
type Mode string

const (
	ModeMock    Mode = "MOCK"
	ModeNetwork Mode = "NETWORK"
)

// ParseMode accepts MOCK, NETWORK or XRPL (case-insensitive). Empty is MOCK.
func ParseMode(s string) (Mode, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "MOCK":
		return ModeMock, nil
	case "NETWORK", "XRPL", "LEDGER":
		return ModeNetwork, nil
	default:
		return "", fmt.Errorf("unknown rewards mode %q", s)
	}
}

// Ledger is the subset of the ledger gateway the workflows use.
type Ledger interface {
	AccountExists(ctx context.Context, address string) bool
	TrustLines(ctx context.Context, address string) []ledger.TrustLine
	BalanceOf(ctx context.Context, address, token, issuer string) float64
	Submit(ctx context.Context, tx *ledger.Transaction, w *ledger.Wallet) (ledger.SubmitResult, error)
}

// Funder requests test-network funding. It reports failures in the result.
type Funder interface {
	Fund(ctx context.Context, address string) faucet.Result
}

// Config holds settlement settings.
type Config struct {
	Mode       Mode
	Network    ledger.Network
	Token      string
	Issuer     string
	IssuerSeed string

	DefaultReward float64
	TrustLimit    string
	HistoryLimit  int

	ActivationTimeout       time.Duration
	ActivationPollInterval  time.Duration
	WalletActivationTimeout time.Duration
}

const (
	DefaultToken         = "HUGS"
	DefaultRewardAmount  = 5
	DefaultHistoryLimit  = 50
	defaultActivation    = 15 * time.Second
	defaultActivationGap = 1200 * time.Millisecond
	defaultWalletWait    = 10 * time.Second
)

func (c *Config) applyDefaults() {
	if c.Mode == "" {
		c.Mode = ModeMock
	}
	if c.Network == "" {
		c.Network = ledger.Testnet
	}
	if c.Token == "" {
		c.Token = DefaultToken
	}
	if c.DefaultReward <= 0 {
		c.DefaultReward = DefaultRewardAmount
	}
	if c.TrustLimit == "" {
		c.TrustLimit = ledger.DefaultTrustLimit
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = DefaultHistoryLimit
	}
	if c.ActivationTimeout <= 0 {
		c.ActivationTimeout = defaultActivation
	}
	if c.ActivationPollInterval <= 0 {
		c.ActivationPollInterval = defaultActivationGap
	}
	if c.WalletActivationTimeout <= 0 {
		c.WalletActivationTimeout = defaultWalletWait
	}
}

// Service runs the activation, trust line and settlement workflows.
type Service struct {
	cfg    Config
	ledger Ledger
	funder Funder
	mock   *MockLedger
	log    *logger.Logger
}

// New constructs the rewards service. ledger and funder may be nil when
// only mock mode is used.
func New(cfg Config, l Ledger, funder Funder, mock *MockLedger, log *logger.Logger) *Service {
	cfg.applyDefaults()
	if log == nil {
		log = logger.NewDefault("rewards")
	}
	if mock == nil {
		mock = NewMockLedger(DefaultLedgerFile, cfg.Token)
	}
	return &Service{cfg: cfg, ledger: l, funder: funder, mock: mock, log: log}
}

// Config returns the effective configuration.
func (s *Service) Config() Config { return s.cfg }

// IssuerConfigured reports whether network payouts have both issuer
// address and credential.
func (s *Service) IssuerConfigured() bool {
	return s.cfg.Issuer != "" && s.cfg.IssuerSeed != ""
}

func (s *Service) hasTrustLine(ctx context.Context, address, token, issuer string) bool {
	for _, line := range s.ledger.TrustLines(ctx, address) {
		if line.Matches(token, issuer) {
			return true
		}
	}
	return false
}

func (s *Service) issuedAmount(token, issuer, value string) (ledger.IssuedAmount, error) {
	currency, err := ledger.CurrencyWireCode(token)
	if err != nil {
		return ledger.IssuedAmount{}, err
	}
	return ledger.IssuedAmount{Currency: currency, Issuer: issuer, Value: value}, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
