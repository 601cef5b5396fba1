// Package httpapi exposes the reward, wallet and round operations over
// HTTP. Business failures are answered with 200 and {ok:false, error};
// only malformed requests get 4xx.
package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	app "github.com/hugs-network/trivia_layer/internal/app"
	"github.com/hugs-network/trivia_layer/internal/httputil"
	"github.com/hugs-network/trivia_layer/internal/metrics"
	"github.com/hugs-network/trivia_layer/internal/middleware"
	"github.com/hugs-network/trivia_layer/pkg/logger"
)

type handler struct {
	app *app.Application
	log *logger.Logger
}

// NewHandler returns the router wrapped in the middleware chain.
func NewHandler(application *app.Application) http.Handler {
	log := application.Logger().Named("http")
	h := &handler{app: application, log: log}

	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteError(w, http.StatusNotFound, "not_found", nil)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
	})
	r.Use(middleware.Metrics())

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", h.health).Methods(http.MethodGet)

	api.HandleFunc("/reward", h.reward).Methods(http.MethodPost)
	api.HandleFunc("/balance", h.balance).Methods(http.MethodGet)
	api.HandleFunc("/get_balance", h.getBalance).Methods(http.MethodGet)
	api.HandleFunc("/history", h.history).Methods(http.MethodGet)
	api.HandleFunc("/ensure_trustline", h.ensureTrustLine).Methods(http.MethodPost)
	api.HandleFunc("/testnet_trustline", h.ensureTrustLine).Methods(http.MethodPost)
	api.HandleFunc("/create_wallet", h.createWallet).Methods(http.MethodPost)

	api.HandleFunc("/start_game", h.startGame).Methods(http.MethodPost)
	api.HandleFunc("/start_round", h.startGame).Methods(http.MethodPost)
	api.HandleFunc("/question", h.question).Methods(http.MethodGet)
	api.HandleFunc("/rounds", h.postRound).Methods(http.MethodPost)
	api.HandleFunc("/rounds", h.listRounds).Methods(http.MethodGet)
	api.HandleFunc("/rounds/{id}/grade", h.gradeRound).Methods(http.MethodPost)
	api.HandleFunc("/rounds/{id}/abandon", h.abandonRound).Methods(http.MethodPost)

	api.HandleFunc("/players", h.linkPlayer).Methods(http.MethodPost)
	api.HandleFunc("/leaderboard", h.leaderboard).Methods(http.MethodGet)
	api.HandleFunc("/payouts", h.listPayouts).Methods(http.MethodGet)
	api.HandleFunc("/payouts/retry", h.retryPayouts).Methods(http.MethodPost)

	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	cfg := application.Config
	limiter := middleware.NewRateLimiter(cfg.HTTP.RatePerSecond, cfg.HTTP.RateBurst, log.Named("ratelimit"))
	if err := application.Attach(limiter); err != nil {
		log.WithError(err).Warn("rate limiter sweeper not registered")
	}
	cors := middleware.NewCORS(cfg.Origins())

	var chain http.Handler = r
	chain = limiter.Handler(chain)
	chain = cors.Handler(chain)
	chain = middleware.Logging(log)(chain)
	return chain
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	cfg := h.app.Config
	issuer := cfg.Rewards.Issuer
	if issuer == "" {
		issuer = "(not set)"
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"ok":                  true,
		"mode":                cfg.RewardsMode(),
		"network":             cfg.Network(),
		"rpc":                 cfg.RPCURL(),
		"token":               cfg.Rewards.Token,
		"issuer":              issuer,
		"reward":              cfg.Rewards.RewardPerWin,
		"issuer_seed_present": cfg.Rewards.IssuerSeed != "",
	})
}

func queryInt(r *http.Request, key string, def int) int {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	err := httputil.DecodeJSON(r, dst)
	if err == nil || errors.Is(err, httputil.ErrEmptyBody) {
		return true
	}
	httputil.WriteError(w, http.StatusBadRequest, "invalid_params", err.Error())
	return false
}
