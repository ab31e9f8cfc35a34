package routes

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nhb-labs/agentic-wallet/byoa"
	"github.com/nhb-labs/agentic-wallet/chain"
	"github.com/nhb-labs/agentic-wallet/eventbus"
	"github.com/nhb-labs/agentic-wallet/gateway/middleware"
	"github.com/nhb-labs/agentic-wallet/history"
	"github.com/nhb-labs/agentic-wallet/intentrouter"
	"github.com/nhb-labs/agentic-wallet/orchestrator"
	"github.com/nhb-labs/agentic-wallet/strategy"
	"github.com/nhb-labs/agentic-wallet/types"
	"github.com/nhb-labs/agentic-wallet/wallet"
)

const testAdminKey = "test-admin-key"

func newTestAPI(t *testing.T) http.Handler {
	t.Helper()
	v := wallet.NewVault("test-passphrase-long-enough")
	sim, err := chain.NewSimClient("devnet")
	require.NoError(t, err)
	strategies := strategy.NewRegistry()
	require.NoError(t, strategy.RegisterBuiltins(strategies))
	bus := eventbus.NewBus()
	historyStore := history.NewStore(100)

	orch := orchestrator.NewOrchestrator(v, sim, strategies, bus, historyStore)
	registry := byoa.NewRegistry()
	binder := byoa.NewBinder(registry, v, nil)
	router := intentrouter.NewRouter(registry, v, sim, bus, historyStore)
	auth := middleware.NewAuthenticator(middleware.AdminAuthConfig{AdminKey: testAdminKey}, registry, nil)

	return New(Config{
		Orchestrator:  orch,
		Registry:      registry,
		Binder:        binder,
		IntentRouter:  router,
		Strategies:    strategies,
		Bus:           bus,
		History:       historyStore,
		Chain:         sim,
		Authenticator: auth,
		Network:       "devnet",
	})
}

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}, admin bool) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if admin {
		req.Header.Set("X-Admin-Key", testAdminKey)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthReturnsOk(t *testing.T) {
	h := newTestAPI(t)
	rec := doJSON(t, h, http.MethodGet, "/health", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateAgentRequiresAdminKey(t *testing.T) {
	h := newTestAPI(t)
	rec := doJSON(t, h, http.MethodPost, "/api/agents", createAgentRequest{
		Name:           "bot",
		StrategyKind:   "balance_guard",
		StrategyParams: map[string]interface{}{"criticalBalance": 0.5, "airdropAmount": 1.0},
		ExecutionSettings: types.ExecutionSettings{
			CycleIntervalMs: 60_000, MaxActionsPerDay: 10, Enabled: true,
		},
	}, false)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCreateAgentAndFetchIt(t *testing.T) {
	h := newTestAPI(t)
	rec := doJSON(t, h, http.MethodPost, "/api/agents", createAgentRequest{
		Name:           "bot",
		StrategyKind:   "balance_guard",
		StrategyParams: map[string]interface{}{"criticalBalance": 0.5, "airdropAmount": 1.0},
		ExecutionSettings: types.ExecutionSettings{
			CycleIntervalMs: 60_000, MaxActionsPerDay: 10, Enabled: true,
		},
	}, true)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.True(t, created.Success)

	info := created.Data.(map[string]interface{})
	id := info["id"].(string)

	rec = doJSON(t, h, http.MethodGet, "/api/agents/"+id, nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestListStrategiesIncludesBuiltins(t *testing.T) {
	h := newTestAPI(t)
	rec := doJSON(t, h, http.MethodGet, "/api/strategies", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	list := resp.Data.([]interface{})
	require.NotEmpty(t, list)
}

func TestExplorerReturnsDeterministicURL(t *testing.T) {
	h := newTestAPI(t)
	rec := doJSON(t, h, http.MethodGet, "/api/explorer/sig123", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	data := resp.Data.(map[string]interface{})
	require.Contains(t, data["url"], "sig123")
	require.Contains(t, data["url"], "devnet")
}

func TestRegisterAndSubmitIntentRoundTrip(t *testing.T) {
	h := newTestAPI(t)
	rec := doJSON(t, h, http.MethodPost, "/api/byoa/register", registerExternalAgentRequest{
		Name:             "ext-bot",
		Kind:             byoa.KindLocal,
		SupportedIntents: []string{"QUERY_BALANCE"},
	}, true)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	data := resp.Data.(map[string]interface{})
	token := data["controlToken"].(string)
	require.NotEmpty(t, token)

	req := httptest.NewRequest(http.MethodPost, "/api/byoa/intents", bytes.NewReader(mustJSON(t, types.ExternalIntent{
		Type: "QUERY_BALANCE",
	})))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	intentRec := httptest.NewRecorder()
	h.ServeHTTP(intentRec, req)
	require.Equal(t, http.StatusOK, intentRec.Code)

	var intentResp envelope
	require.NoError(t, json.Unmarshal(intentRec.Body.Bytes(), &intentResp))
	require.True(t, intentResp.Success)
	result := intentResp.Data.(map[string]interface{})
	require.Equal(t, "executed", result["status"])
}

func TestSubmitIntentWithoutTokenIsUnauthorized(t *testing.T) {
	h := newTestAPI(t)
	req := httptest.NewRequest(http.MethodPost, "/api/byoa/intents", bytes.NewReader(mustJSON(t, types.ExternalIntent{Type: "QUERY_BALANCE"})))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func mustJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}
