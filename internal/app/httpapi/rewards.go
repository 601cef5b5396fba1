package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/hugs-network/trivia_layer/internal/httputil"
	"github.com/hugs-network/trivia_layer/services/rewards"
)

type rewardRequest struct {
	Address string   `json:"address"`
	Amount  *float64 `json:"amount"`
	Token   string   `json:"token"`
	Reason  string   `json:"reason"`
	Seed    string   `json:"seed"`
}

func (h *handler) reward(w http.ResponseWriter, r *http.Request) {
	var body rewardRequest
	if !decodeBody(w, r, &body) {
		return
	}
	if strings.TrimSpace(body.Address) == "" {
		httputil.WriteError(w, http.StatusBadRequest, string(rewards.CodeInvalidParams), "address is required")
		return
	}
	amount := h.app.Rewards.Config().DefaultReward
	if body.Amount != nil {
		amount = *body.Amount
	}

	res := h.app.Rewards.PayReward(r.Context(), rewards.RewardRequest{
		Address: body.Address,
		Amount:  amount,
		Token:   body.Token,
		Reason:  body.Reason,
		Seed:    body.Seed,
	})
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *handler) balance(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	address := strings.TrimSpace(q.Get("address"))
	if address == "" {
		httputil.WriteError(w, http.StatusBadRequest, string(rewards.CodeInvalidParams), "address is required")
		return
	}
	token := h.token(q.Get("token"))

	bal, err := h.app.Rewards.Balance(r.Context(), address, token, "")
	if err != nil {
		h.log.WithError(err).Error("balance lookup failed")
		httputil.WriteError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "token": token, "balance": bal})
}

func (h *handler) getBalance(w http.ResponseWriter, r *http.Request) {
	account := strings.TrimSpace(r.URL.Query().Get("account"))
	if account == "" {
		httputil.WriteError(w, http.StatusBadRequest, "missing_account", nil)
		return
	}
	bal, err := h.app.Rewards.Balance(r.Context(), account, "", "")
	if err != nil {
		h.log.WithError(err).Error("balance lookup failed")
		httputil.WriteError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "hugs": bal})
}

func (h *handler) history(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	address := strings.TrimSpace(q.Get("address"))
	if address == "" {
		httputil.WriteError(w, http.StatusBadRequest, string(rewards.CodeInvalidParams), "address is required")
		return
	}
	token := h.token(q.Get("token"))

	items, err := h.app.Rewards.History(r.Context(), address, token, queryInt(r, "limit", 0), "")
	if errors.Is(err, rewards.ErrUnsupported) {
		httputil.WriteError(w, http.StatusOK, string(rewards.CodeUnsupported), "history is only kept in mock mode")
		return
	}
	if err != nil {
		h.log.WithError(err).Error("history lookup failed")
		httputil.WriteError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "token": token, "items": items})
}

func (h *handler) ensureTrustLine(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Address string `json:"address"`
		Seed    string `json:"seed"`
		Token   string `json:"token"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if strings.TrimSpace(body.Address) == "" || strings.TrimSpace(body.Seed) == "" {
		httputil.WriteError(w, http.StatusBadRequest, string(rewards.CodeInvalidParams), "address and seed are required")
		return
	}
	res := h.app.Rewards.EnsureTrustLine(r.Context(), body.Address, body.Seed, body.Token, "")
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *handler) createWallet(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.app.Rewards.CreateWallet(r.Context()))
}

func (h *handler) token(raw string) string {
	if t := strings.TrimSpace(raw); t != "" {
		return t
	}
	return h.app.Rewards.Config().Token
}
