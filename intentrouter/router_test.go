package intentrouter

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nhb-labs/agentic-wallet/byoa"
	"github.com/nhb-labs/agentic-wallet/chain"
	"github.com/nhb-labs/agentic-wallet/eventbus"
	"github.com/nhb-labs/agentic-wallet/history"
	"github.com/nhb-labs/agentic-wallet/types"
	"github.com/nhb-labs/agentic-wallet/wallet"
)

const lamportsPerSol = 1_000_000_000

func solLamports(sol float64) *big.Int {
	f := new(big.Float).Mul(big.NewFloat(sol), big.NewFloat(lamportsPerSol))
	out, _ := f.Int(nil)
	return out
}

func newTestRouter(t *testing.T, opts ...Option) (*Router, *byoa.Registry, *byoa.Binder, *chain.SimClient) {
	t.Helper()
	v := wallet.NewVault("test-passphrase-1234")
	t.Cleanup(v.Stop)
	sim, err := chain.NewSimClient("devnet")
	require.NoError(t, err)
	registry := byoa.NewRegistry()
	binder := byoa.NewBinder(registry, v, nil)
	bus := eventbus.NewBus()
	store := history.NewStore(100)

	r := NewRouter(registry, v, sim, bus, store, opts...)
	return r, registry, binder, sim
}

func registerAndBind(t *testing.T, registry *byoa.Registry, binder *byoa.Binder, name string, supported []string) (token string, walletPublicKey string) {
	t.Helper()
	id, token, err := registry.Register(byoa.Registration{Name: name, Kind: byoa.KindLocal, SupportedIntents: supported})
	require.NoError(t, err)
	_, pub, err := binder.BindNewWallet(id)
	require.NoError(t, err)
	return token, pub
}

// Scenario 4: an agent submits 31 QUERY_BALANCE intents inside a 60 second
// window; the first 30 execute, the 31st is rejected with a rate-limit
// error and never reaches the chain client.
func TestRateLimitRejectsThirtyFirstIntentInWindow(t *testing.T) {
	r, registry, binder, sim := newTestRouter(t)
	token, pub := registerAndBind(t, registry, binder, "rate-limited-agent", []string{"QUERY_BALANCE"})
	sim.SeedBalance(pub, solLamports(1.0))

	ctx := context.Background()
	for i := 0; i < 30; i++ {
		res, err := r.SubmitIntent(ctx, token, types.ExternalIntent{Type: "QUERY_BALANCE"})
		require.NoError(t, err)
		require.Equal(t, types.OutcomeExecuted, res.Status, "intent %d should execute", i)
	}

	res, err := r.SubmitIntent(ctx, token, types.ExternalIntent{Type: "QUERY_BALANCE"})
	require.NoError(t, err)
	require.Equal(t, types.OutcomeRejected, res.Status)
	require.Contains(t, res.Error, "rate limit")
}

// Scenario 5: an agent that only declared QUERY_BALANCE submits a
// TRANSFER_SOL intent; it is rejected for lacking the capability, naming
// the intent type, with no chain call.
func TestUnsupportedIntentTypeIsRejected(t *testing.T) {
	r, registry, binder, sim := newTestRouter(t)
	token, pub := registerAndBind(t, registry, binder, "read-only-agent", []string{"QUERY_BALANCE"})
	sim.SeedBalance(pub, solLamports(1.0))

	res, err := r.SubmitIntent(context.Background(), token, types.ExternalIntent{
		Type:      "TRANSFER_SOL",
		Amount:    solLamports(0.1),
		Recipient: "someone-else",
	})
	require.NoError(t, err)
	require.Equal(t, types.OutcomeRejected, res.Status)
	require.Contains(t, res.Error, "TRANSFER_SOL")
}

func TestQueryBalanceExecutesAndRecordsHistory(t *testing.T) {
	r, registry, binder, sim := newTestRouter(t)
	token, pub := registerAndBind(t, registry, binder, "balance-checker", []string{"QUERY_BALANCE"})
	sim.SeedBalance(pub, solLamports(2.5))

	res, err := r.SubmitIntent(context.Background(), token, types.ExternalIntent{Type: "QUERY_BALANCE"})
	require.NoError(t, err)
	require.Equal(t, types.OutcomeExecuted, res.Status)
	require.NotEmpty(t, res.Result["balance"])
}

func TestTransferSolExecutesThroughVaultAndChain(t *testing.T) {
	r, registry, binder, sim := newTestRouter(t)
	token, pub := registerAndBind(t, registry, binder, "transfer-agent", []string{"TRANSFER_SOL"})
	sim.SeedBalance(pub, solLamports(5.0))

	res, err := r.SubmitIntent(context.Background(), token, types.ExternalIntent{
		Type:      "TRANSFER_SOL",
		Amount:    solLamports(0.5),
		Recipient: "recipient-address",
	})
	require.NoError(t, err)
	require.Equal(t, types.OutcomeExecuted, res.Status)
	require.NotEmpty(t, res.Result["signature"])
}

func TestInactiveAgentIsRejected(t *testing.T) {
	r, registry, binder, sim := newTestRouter(t)
	token, pub := registerAndBind(t, registry, binder, "deactivated-agent", []string{"QUERY_BALANCE"})
	sim.SeedBalance(pub, solLamports(1.0))

	id, err := registry.AuthenticateToken(token)
	require.NoError(t, err)
	require.NoError(t, registry.Deactivate(id.ID))

	res, err := r.SubmitIntent(context.Background(), token, types.ExternalIntent{Type: "QUERY_BALANCE"})
	require.NoError(t, err)
	require.Equal(t, types.OutcomeRejected, res.Status)
}

func TestUnauthenticatedTokenReturnsTransportError(t *testing.T) {
	r, _, _, _ := newTestRouter(t)
	_, err := r.SubmitIntent(context.Background(), "never-issued", types.ExternalIntent{Type: "QUERY_BALANCE"})
	require.Error(t, err)
}
