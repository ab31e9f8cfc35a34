package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nhb-labs/agentic-wallet/apperr"
	"github.com/nhb-labs/agentic-wallet/types"
)

// createAgentRequest is the wire shape for POST /agents; it mirrors
// types.AgentConfig but carries JSON tags the internal type deliberately
// omits (AgentConfig crosses no wire boundary on its own).
type createAgentRequest struct {
	Name              string                     `json:"name"`
	StrategyKind      string                     `json:"strategyKind"`
	StrategyParams    map[string]interface{}     `json:"strategyParams"`
	ExecutionSettings types.ExecutionSettings    `json:"executionSettings"`
}

type updateAgentConfigRequest struct {
	StrategyParams    map[string]interface{}  `json:"strategyParams"`
	ExecutionSettings *types.ExecutionSettings `json:"executionSettings"`
}

func (a *api) handleListAgents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.cfg.Orchestrator.GetAllAgents(), a.now)
}

func (a *api) handleGetAgent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	info, err := a.cfg.Orchestrator.GetAgent(id)
	if err != nil {
		writeError(w, err, a.now)
		return
	}
	writeJSON(w, http.StatusOK, info, a.now)
}

func (a *api) handleCreateAgent(w http.ResponseWriter, r *http.Request) {
	var req createAgentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body", a.now)
		return
	}
	info, err := a.cfg.Orchestrator.CreateAgent(types.AgentConfig{
		Name:              req.Name,
		StrategyKind:      req.StrategyKind,
		StrategyParams:    req.StrategyParams,
		ExecutionSettings: req.ExecutionSettings,
	})
	if err != nil {
		writeError(w, err, a.now)
		return
	}
	writeJSON(w, http.StatusCreated, info, a.now)
}

func (a *api) handleUpdateAgentConfig(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req updateAgentConfigRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body", a.now)
		return
	}
	info, err := a.cfg.Orchestrator.UpdateAgentConfig(id, types.AgentConfigPatch{
		StrategyParams:    req.StrategyParams,
		ExecutionSettings: req.ExecutionSettings,
	})
	if err != nil {
		writeError(w, err, a.now)
		return
	}
	writeJSON(w, http.StatusOK, info, a.now)
}

func (a *api) handleStartAgent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := a.cfg.Orchestrator.StartAgent(id); err != nil {
		writeError(w, err, a.now)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "started"}, a.now)
}

func (a *api) handleStopAgent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := a.cfg.Orchestrator.StopAgent(id); err != nil {
		writeError(w, err, a.now)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"}, a.now)
}

func (a *api) handleTransactions(w http.ResponseWriter, r *http.Request) {
	agentID := r.URL.Query().Get("agentId")
	if agentID != "" {
		txs, err := a.cfg.Orchestrator.GetAgentTransactions(agentID)
		if err != nil {
			writeError(w, err, a.now)
			return
		}
		writeJSON(w, http.StatusOK, txs, a.now)
		return
	}
	writeJSON(w, http.StatusOK, a.cfg.Orchestrator.GetAllTransactions(), a.now)
}

func (a *api) handleEvents(w http.ResponseWriter, r *http.Request) {
	count := queryInt(r, "count", 100)
	agentID := r.URL.Query().Get("agentId")
	if agentID != "" {
		writeJSON(w, http.StatusOK, a.cfg.Bus.GetAgentEvents(agentID, count), a.now)
		return
	}
	writeJSON(w, http.StatusOK, a.cfg.Bus.GetRecentEvents(count), a.now)
}

func (a *api) handleIntents(w http.ResponseWriter, r *http.Request) {
	count := queryInt(r, "count", 100)
	agentID := r.URL.Query().Get("agentId")
	if agentID != "" {
		writeJSON(w, http.StatusOK, a.cfg.History.ListForAgent(agentID, count), a.now)
		return
	}
	writeJSON(w, http.StatusOK, a.cfg.History.List(count), a.now)
}

func (a *api) handleListStrategies(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.cfg.Strategies.ListDTOs(), a.now)
}

func (a *api) handleGetStrategy(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	dto, err := a.cfg.Strategies.ToDTO(name)
	if err != nil {
		writeError(w, err, a.now)
		return
	}
	writeJSON(w, http.StatusOK, dto, a.now)
}

func (a *api) handleExplorer(w http.ResponseWriter, r *http.Request) {
	signature := chi.URLParam(r, "signature")
	if signature == "" {
		writeError(w, apperr.Validation("signature is required"), a.now)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"url": "https://explorer.solana.com/tx/" + signature + "?cluster=" + a.cfg.Network,
	}, a.now)
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n := 0
	for _, c := range raw {
		if c < '0' || c > '9' {
			return fallback
		}
		n = n*10 + int(c-'0')
	}
	return n
}
