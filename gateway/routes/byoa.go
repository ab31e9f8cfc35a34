package routes

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nhb-labs/agentic-wallet/apperr"
	"github.com/nhb-labs/agentic-wallet/byoa"
	"github.com/nhb-labs/agentic-wallet/types"
)

type registerExternalAgentRequest struct {
	Name             string     `json:"name"`
	Kind             byoa.Kind  `json:"kind"`
	Endpoint         string     `json:"endpoint,omitempty"`
	SupportedIntents []string   `json:"supportedIntents"`
}

type registerExternalAgentResponse struct {
	AgentID         string `json:"agentId"`
	ControlToken    string `json:"controlToken"`
	WalletID        string `json:"walletId"`
	WalletPublicKey string `json:"walletPublicKey"`
}

// handleRegisterExternalAgent registers a BYOA agent and, since the only
// path to a bound wallet is the binder, immediately provisions one so the
// returned agent can submit intents without a second admin call.
func (a *api) handleRegisterExternalAgent(w http.ResponseWriter, r *http.Request) {
	var req registerExternalAgentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body", a.now)
		return
	}
	agentID, rawToken, err := a.cfg.Registry.Register(byoa.Registration{
		Name:             req.Name,
		Kind:             req.Kind,
		Endpoint:         req.Endpoint,
		SupportedIntents: req.SupportedIntents,
	})
	if err != nil {
		writeError(w, err, a.now)
		return
	}
	walletID, publicKey, err := a.cfg.Binder.BindNewWallet(agentID)
	if err != nil {
		writeError(w, err, a.now)
		return
	}
	writeJSON(w, http.StatusCreated, registerExternalAgentResponse{
		AgentID:         agentID,
		ControlToken:    rawToken,
		WalletID:        walletID,
		WalletPublicKey: publicKey,
	}, a.now)
}

func (a *api) handleListExternalAgents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.cfg.Registry.GetAll(), a.now)
}

func (a *api) handleGetExternalAgent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	agent, err := a.cfg.Registry.GetAgent(id)
	if err != nil {
		writeError(w, err, a.now)
		return
	}
	writeJSON(w, http.StatusOK, agent, a.now)
}

func (a *api) handleExternalAgentIntents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	count := queryInt(r, "count", 100)
	writeJSON(w, http.StatusOK, a.cfg.History.ListForAgent(id, count), a.now)
}

func (a *api) handleActivateExternalAgent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := a.cfg.Registry.Activate(id); err != nil {
		writeError(w, err, a.now)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "active"}, a.now)
}

func (a *api) handleDeactivateExternalAgent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := a.cfg.Registry.Deactivate(id); err != nil {
		writeError(w, err, a.now)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "inactive"}, a.now)
}

func (a *api) handleRevokeExternalAgent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := a.cfg.Registry.Revoke(id); err != nil {
		writeError(w, err, a.now)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "revoked"}, a.now)
}

// handleSubmitIntent hands the bearer token straight to the Intent Router,
// which runs its own authenticate/authorize/rate-limit/dispatch pipeline
// (spec step 1 is "authenticate via Registry" — the router's job, not this
// handler's). Only an unknown or revoked token produces a transport-level
// error here; a policy rejection comes back as a 422 envelope.
func (a *api) handleSubmitIntent(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r.Header.Get("Authorization"))
	if token == "" {
		writeError(w, apperr.Auth("missing bearer token"), a.now)
		return
	}
	var ext types.ExternalIntent
	if err := decodeJSON(r, &ext); err != nil {
		writeBadRequest(w, "invalid request body", a.now)
		return
	}

	result, err := a.cfg.IntentRouter.SubmitIntent(r.Context(), token, ext)
	if err != nil {
		writeError(w, err, a.now)
		return
	}
	if a.cfg.Metrics != nil {
		a.cfg.Metrics.RecordIntent(ext.Type, result.Status)
	}
	status := http.StatusOK
	if result.Status == types.OutcomeRejected {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, result, a.now)
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
