// Package config loads process configuration from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"

	"github.com/hugs-network/trivia_layer/internal/ledger"
	"github.com/hugs-network/trivia_layer/services/rewards"
)

// Platform names accepted by PLATFORM.
const (
	PlatformMemory   = "memory"
	PlatformX        = "x"
	PlatformTelegram = "telegram"
)

// Config is the full process configuration.
type Config struct {
	HTTPAddr string `env:"HTTP_ADDR,default=:5000"`

	LogLevel  string `env:"LOG_LEVEL,default=info"`
	LogFormat string `env:"LOG_FORMAT,default=text"`

	Rewards RewardsConfig
	Ledger  LedgerConfig
	DB      DatabaseConfig
	Redis   RedisConfig
	Social  SocialConfig
	Game    GameConfig
	HTTP    HTTPConfig
}

// RewardsConfig selects and parameterizes reward settlement.
type RewardsConfig struct {
	Mode          string  `env:"REWARDS_MODE,default=MOCK"`
	Token         string  `env:"TOKEN_CODE,default=HUGS"`
	Issuer        string  `env:"ISSUER_ADDRESS"`
	IssuerSeed    string  `env:"ISSUER_SEED"`
	RewardPerWin  float64 `env:"REWARD_PER_WIN,default=5"`
	LedgerFile    string  `env:"REWARDS_LEDGER_FILE,default=/tmp/hugs_ledger.jsonl"`
	TrustLimit    string  `env:"TRUST_LIMIT,default=1000000"`
	HistoryLimit  int     `env:"HISTORY_LIMIT,default=50"`
	PayoutRetries int     `env:"PAYOUT_MAX_ATTEMPTS,default=5"`

	ActivationTimeout time.Duration `env:"ACTIVATION_TIMEOUT,default=15s"`
	ActivationPoll    time.Duration `env:"ACTIVATION_POLL_INTERVAL,default=1200ms"`
}

// LedgerConfig points at the ledger network.
type LedgerConfig struct {
	Network        string        `env:"XRPL_NETWORK,default=testnet"`
	RPCURL         string        `env:"XRPL_RPC_URL"`
	FaucetURL      string        `env:"XRPL_FAUCET_URL"`
	RPCTimeout     time.Duration `env:"XRPL_RPC_TIMEOUT,default=20s"`
	SubmitTimeout  time.Duration `env:"XRPL_SUBMIT_TIMEOUT,default=45s"`
	FaucetTimeout  time.Duration `env:"XRPL_FAUCET_TIMEOUT,default=20s"`
	FeeCapDrops    int64         `env:"XRPL_FEE_CAP_DROPS,default=2000000"`
	BreakerTrips   int           `env:"FAUCET_BREAKER_FAILURES,default=3"`
	BreakerCooloff time.Duration `env:"FAUCET_BREAKER_COOLDOWN,default=1m"`
}

// DatabaseConfig selects the scoreboard database.
type DatabaseConfig struct {
	Driver string `env:"DB_DRIVER,default=sqlite"`
	DSN    string `env:"DB_DSN,default=hugs.db"`
}

// RedisConfig enables the shared round store when Addr is set.
type RedisConfig struct {
	Addr     string        `env:"REDIS_ADDR"`
	Password string        `env:"REDIS_PASSWORD"`
	DB       int           `env:"REDIS_DB,default=0"`
	RoundTTL time.Duration `env:"ROUND_TTL,default=24h"`
}

// SocialConfig selects the platform rounds are posted to.
type SocialConfig struct {
	Platform       string  `env:"PLATFORM,default=memory"`
	XBaseURL       string  `env:"X_API_BASE_URL,default=https://api.twitter.com"`
	XBearerToken   string  `env:"X_BEARER_TOKEN"`
	XBotUserID     string  `env:"X_BOT_USER_ID"`
	XRatePerSecond float64 `env:"X_RATE_PER_SECOND,default=1"`
	TelegramToken  string  `env:"TELEGRAM_TOKEN"`
	TelegramChatID int64   `env:"TELEGRAM_CHAT_ID,default=0"`
}

// GameConfig controls the round lifecycle.
type GameConfig struct {
	QuestionsFile   string        `env:"QUESTIONS_FILE"`
	DefaultCategory string        `env:"DEFAULT_CATEGORY,default=general"`
	RoundSchedule   string        `env:"ROUND_SCHEDULE,default=@every 1h"`
	PayoutSchedule  string        `env:"PAYOUT_SCHEDULE,default=@every 5m"`
	WaitForReplies  time.Duration `env:"WAIT_FOR_REPLIES,default=120s"`
	GradeAttempts   int           `env:"MAX_FETCH_ATTEMPTS,default=1"`
	AbandonAfter    time.Duration `env:"ABANDON_AFTER,default=0s"`
	Scheduler       bool          `env:"SCHEDULER_ENABLED,default=false"`
}

// HTTPConfig holds the route layer settings.
type HTTPConfig struct {
	CORSOrigins    string        `env:"CORS_ORIGINS,default=*"`
	RatePerSecond  float64       `env:"RATE_LIMIT_RPS,default=10"`
	RateBurst      int           `env:"RATE_LIMIT_BURST,default=20"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT,default=90s"`
}

// Load reads .env when present and decodes the environment.
func Load() (*Config, error) {
	return LoadFile(".env")
}

// LoadFile reads the given env file when present and decodes the
// environment. Variables already set take precedence over the file.
func LoadFile(path string) (*Config, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decode environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that cannot be expressed as tags.
func (c *Config) Validate() error {
	if _, err := rewards.ParseMode(c.Rewards.Mode); err != nil {
		return err
	}
	if _, err := ledger.ParseNetwork(c.Ledger.Network); err != nil {
		return err
	}
	switch c.Social.Platform {
	case PlatformMemory:
	case PlatformX:
		if c.Social.XBearerToken == "" {
			return fmt.Errorf("PLATFORM=x requires X_BEARER_TOKEN")
		}
	case PlatformTelegram:
		if c.Social.TelegramToken == "" || c.Social.TelegramChatID == 0 {
			return fmt.Errorf("PLATFORM=telegram requires TELEGRAM_TOKEN and TELEGRAM_CHAT_ID")
		}
	default:
		return fmt.Errorf("unknown platform %q", c.Social.Platform)
	}
	if !(c.Rewards.RewardPerWin > 0) {
		return fmt.Errorf("REWARD_PER_WIN must be positive")
	}
	return nil
}

// RewardsMode returns the parsed rewards mode.
func (c *Config) RewardsMode() rewards.Mode {
	m, _ := rewards.ParseMode(c.Rewards.Mode)
	return m
}

// Network returns the parsed ledger network.
func (c *Config) Network() ledger.Network {
	n, _ := ledger.ParseNetwork(c.Ledger.Network)
	return n
}

// RPCURL is the configured ledger endpoint or the network default.
func (c *Config) RPCURL() string {
	if c.Ledger.RPCURL != "" {
		return c.Ledger.RPCURL
	}
	return c.Network().DefaultRPCURL()
}

// Origins splits CORSOrigins.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.HTTP.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
