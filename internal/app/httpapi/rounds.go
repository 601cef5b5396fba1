package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/hugs-network/trivia_layer/internal/httputil"
	"github.com/hugs-network/trivia_layer/internal/ledger"
	"github.com/hugs-network/trivia_layer/internal/scoreboard"
	"github.com/hugs-network/trivia_layer/services/rewards"
	"github.com/hugs-network/trivia_layer/services/trivia"
)

func (h *handler) startGame(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Address string `json:"address"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if strings.TrimSpace(body.Address) == "" {
		httputil.WriteError(w, http.StatusBadRequest, "missing_address", nil)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"ok":      true,
		"message": "Game started",
		"level":   trivia.MinLevel,
		"round":   1,
		"reward":  h.app.Rewards.Config().DefaultReward,
	})
}

func (h *handler) question(w http.ResponseWriter, r *http.Request) {
	category, level, q := h.app.Rounds.Question(r.URL.Query().Get("category"), queryInt(r, "level", trivia.MinLevel))
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"ok":       true,
		"category": category,
		"level":    level,
		"question": q.Text,
		"answer":   q.Answer,
	})
}

func (h *handler) postRound(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Category string `json:"category"`
		Level    int    `json:"level"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	round, err := h.app.Rounds.PostRound(r.Context(), body.Category, body.Level)
	if err != nil {
		h.log.WithError(err).Warn("post round failed")
		httputil.WriteError(w, http.StatusOK, "post_failed", err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]interface{}{"ok": true, "round": round})
}

func (h *handler) listRounds(w http.ResponseWriter, r *http.Request) {
	active, err := h.app.Rounds.ActiveRounds(r.Context())
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	recent, err := h.app.Scoreboard.ListRounds(r.Context(), queryInt(r, "limit", 20))
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "active": active, "recent": recent})
}

func (h *handler) gradeRound(w http.ResponseWriter, r *http.Request) {
	out, err := h.app.Rounds.GradeRound(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.roundError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "outcome": out})
}

func (h *handler) abandonRound(w http.ResponseWriter, r *http.Request) {
	round, err := h.app.Rounds.AbandonRound(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.roundError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "round": round, "status": trivia.StatusAbandoned})
}

func (h *handler) roundError(w http.ResponseWriter, err error) {
	if errors.Is(err, trivia.ErrRoundNotFound) {
		httputil.WriteError(w, http.StatusNotFound, "round_not_found", err.Error())
		return
	}
	h.log.WithError(err).Error("round operation failed")
	httputil.WriteError(w, http.StatusInternalServerError, "server_error", err.Error())
}

func (h *handler) linkPlayer(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Handle  string `json:"handle"`
		Address string `json:"address"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	body.Address = strings.TrimSpace(body.Address)
	if scoreboard.NormalizeHandle(body.Handle) == "" || !ledger.IsValidAddress(body.Address) {
		httputil.WriteError(w, http.StatusBadRequest, string(rewards.CodeInvalidParams), "handle and a valid address are required")
		return
	}
	if err := h.app.Scoreboard.LinkAddress(r.Context(), body.Handle, body.Address); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"ok":      true,
		"handle":  scoreboard.NormalizeHandle(body.Handle),
		"address": body.Address,
	})
}

func (h *handler) leaderboard(w http.ResponseWriter, r *http.Request) {
	players, err := h.app.Scoreboard.Leaderboard(r.Context(), queryInt(r, "limit", 10))
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "players": players})
}

func (h *handler) listPayouts(w http.ResponseWriter, r *http.Request) {
	status := scoreboard.PayoutStatus(strings.TrimSpace(r.URL.Query().Get("status")))
	items, err := h.app.Scoreboard.ListPayouts(r.Context(), status, queryInt(r, "limit", 50))
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "items": items})
}

func (h *handler) retryPayouts(w http.ResponseWriter, r *http.Request) {
	report, err := h.app.Payouts.Retry(r.Context())
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "report": report})
}
