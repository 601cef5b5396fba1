package app

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"golang.org/x/time/rate"

	"github.com/hugs-network/trivia_layer/internal/app/system"
	"github.com/hugs-network/trivia_layer/internal/config"
	"github.com/hugs-network/trivia_layer/internal/faucet"
	"github.com/hugs-network/trivia_layer/internal/ledger"
	"github.com/hugs-network/trivia_layer/internal/scoreboard"
	"github.com/hugs-network/trivia_layer/internal/social"
	"github.com/hugs-network/trivia_layer/pkg/logger"
	"github.com/hugs-network/trivia_layer/services/payouts"
	"github.com/hugs-network/trivia_layer/services/rewards"
	"github.com/hugs-network/trivia_layer/services/trivia"
)

// Overrides replaces collaborators that would otherwise be built from
// configuration. Nil fields are built normally.
type Overrides struct {
	Platform   trivia.Platform
	Ledger     rewards.Ledger
	Funder     rewards.Funder
	RoundStore trivia.RoundStore
	Scoreboard *scoreboard.Store
}

// Application ties the services together.
type Application struct {
	Config *config.Config

	manager *system.Manager
	log     *logger.Logger
	closers []func() error

	Gateway    *ledger.Gateway
	Rewards    *rewards.Service
	Rounds     *trivia.Service
	Scheduler  *trivia.Scheduler
	Payouts    *payouts.Dispatcher
	Scoreboard *scoreboard.Store
}

// New builds the application from cfg.
func New(ctx context.Context, cfg *config.Config, ov Overrides, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.New("app", cfg.LogLevel, cfg.LogFormat)
	}
	a := &Application{Config: cfg, manager: system.NewManager(), log: log}

	network := cfg.Network()
	mode := cfg.RewardsMode()

	ledgerAPI := ov.Ledger
	if ledgerAPI == nil {
		client, err := ledger.NewClient(ledger.ClientConfig{RPCURL: cfg.RPCURL(), Timeout: cfg.Ledger.RPCTimeout})
		if err != nil {
			return nil, fmt.Errorf("ledger client: %w", err)
		}
		a.Gateway = ledger.NewGateway(client, ledger.GatewayConfig{
			SubmitTimeout: cfg.Ledger.SubmitTimeout,
			FeeCapDrops:   uint64(cfg.Ledger.FeeCapDrops),
		}, log.Named("ledger"))
		ledgerAPI = a.Gateway
	}

	funder := ov.Funder
	if funder == nil {
		url := cfg.Ledger.FaucetURL
		if url == "" {
			url = faucet.DefaultURL(network)
		}
		funder = faucet.New(faucet.Config{
			URL:              url,
			Timeout:          cfg.Ledger.FaucetTimeout,
			FailureThreshold: uint32(cfg.Ledger.BreakerTrips),
			Cooldown:         cfg.Ledger.BreakerCooloff,
		}, log.Named("faucet"))
	}

	a.Rewards = rewards.New(rewards.Config{
		Mode:                   mode,
		Network:                network,
		Token:                  cfg.Rewards.Token,
		Issuer:                 cfg.Rewards.Issuer,
		IssuerSeed:             cfg.Rewards.IssuerSeed,
		DefaultReward:          cfg.Rewards.RewardPerWin,
		TrustLimit:             cfg.Rewards.TrustLimit,
		HistoryLimit:           cfg.Rewards.HistoryLimit,
		ActivationTimeout:      cfg.Rewards.ActivationTimeout,
		ActivationPollInterval: cfg.Rewards.ActivationPoll,
	}, ledgerAPI, funder, rewards.NewMockLedger(cfg.Rewards.LedgerFile, cfg.Rewards.Token), log.Named("rewards"))

	board := ov.Scoreboard
	if board == nil {
		var err error
		board, err = scoreboard.Open(ctx, cfg.DB.Driver, cfg.DB.DSN, cfg.Rewards.RewardPerWin)
		if err != nil {
			return nil, fmt.Errorf("scoreboard: %w", err)
		}
		a.closers = append(a.closers, board.Close)
	}
	a.Scoreboard = board

	a.Payouts = payouts.New(payouts.Config{
		Amount:      cfg.Rewards.RewardPerWin,
		Token:       cfg.Rewards.Token,
		MaxAttempts: cfg.Rewards.PayoutRetries,
		Schedule:    cfg.Game.PayoutSchedule,
	}, board, board, a.Rewards, log.Named("payouts"))

	store := ov.RoundStore
	if store == nil {
		store = trivia.NewMemoryStore()
		if cfg.Redis.Addr != "" {
			client := redis.NewClient(&redis.Options{
				Addr:     cfg.Redis.Addr,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			})
			if err := client.Ping(ctx).Err(); err != nil {
				a.Close()
				return nil, fmt.Errorf("redis %s: %w", cfg.Redis.Addr, err)
			}
			a.closers = append(a.closers, client.Close)
			store = trivia.NewRedisStore(client, cfg.Redis.RoundTTL)
		}
	}

	platform := ov.Platform
	if platform == nil {
		var err error
		platform, err = buildPlatform(cfg, log)
		if err != nil {
			a.Close()
			return nil, err
		}
	}

	bank, err := trivia.LoadBank(cfg.Game.QuestionsFile)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Rounds = trivia.New(trivia.Config{
		DefaultCategory: cfg.Game.DefaultCategory,
		AbandonAfter:    cfg.Game.AbandonAfter,
	}, bank, store, platform, a.Payouts, board, log.Named("trivia"))

	a.Scheduler = trivia.NewScheduler(a.Rounds, trivia.SchedulerConfig{
		Schedule:       cfg.Game.RoundSchedule,
		WaitForReplies: cfg.Game.WaitForReplies,
		GradeAttempts:  cfg.Game.GradeAttempts,
	}, log.Named("trivia-scheduler"))

	if err := a.manager.Register(a.Payouts); err != nil {
		a.Close()
		return nil, err
	}
	if cfg.Game.Scheduler {
		if err := a.manager.Register(a.Scheduler); err != nil {
			a.Close()
			return nil, err
		}
	}

	log.WithField("mode", mode).WithField("network", network).Info("application configured")
	return a, nil
}

func buildPlatform(cfg *config.Config, log *logger.Logger) (trivia.Platform, error) {
	switch cfg.Social.Platform {
	case config.PlatformX:
		return social.NewX(social.XConfig{
			BaseURL:     cfg.Social.XBaseURL,
			BearerToken: cfg.Social.XBearerToken,
			BotUserID:   cfg.Social.XBotUserID,
			RateLimit:   rate.Limit(cfg.Social.XRatePerSecond),
		}, log.Named("social-x"))
	case config.PlatformTelegram:
		bot, err := social.NewTelegramBot(cfg.Social.TelegramToken)
		if err != nil {
			return nil, err
		}
		return social.NewTelegram(bot, cfg.Social.TelegramChatID, log.Named("social-telegram")), nil
	default:
		return social.NewMemory(), nil
	}
}

// Attach registers an additional lifecycle-managed service. Call before
// Start.
func (a *Application) Attach(svc system.Service) error {
	return a.manager.Register(svc)
}

// Start begins the background jobs.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop halts background jobs and releases stores.
func (a *Application) Stop(ctx context.Context) error {
	err := a.manager.Stop(ctx)
	a.Close()
	return err
}

// Close releases stores without touching background jobs.
func (a *Application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.WithError(err).Warn("close failed")
		}
	}
	a.closers = nil
}

// Logger returns the application logger.
func (a *Application) Logger() *logger.Logger { return a.log }
