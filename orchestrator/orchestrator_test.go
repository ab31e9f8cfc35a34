package orchestrator

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nhb-labs/agentic-wallet/chain"
	"github.com/nhb-labs/agentic-wallet/eventbus"
	"github.com/nhb-labs/agentic-wallet/history"
	"github.com/nhb-labs/agentic-wallet/strategy"
	"github.com/nhb-labs/agentic-wallet/types"
	"github.com/nhb-labs/agentic-wallet/wallet"
)

const lamportsPerSol = 1_000_000_000

func solLamports(sol float64) *big.Int {
	f := new(big.Float).Mul(big.NewFloat(sol), big.NewFloat(lamportsPerSol))
	out, _ := f.Int(nil)
	return out
}

func newTestOrchestrator(t *testing.T) (*Orchestrator, *chain.SimClient, *eventbus.Bus, *history.Store) {
	t.Helper()
	v := wallet.NewVault("test-passphrase-1234")
	t.Cleanup(v.Stop)
	sim, err := chain.NewSimClient("devnet")
	require.NoError(t, err)
	registry := strategy.NewRegistry()
	require.NoError(t, strategy.RegisterBuiltins(registry))
	bus := eventbus.NewBus()
	store := history.NewStore(100)

	o := NewOrchestrator(v, sim, registry, bus, store)
	t.Cleanup(o.Shutdown)
	return o, sim, bus, store
}

// Scenario 1 from the end-to-end seed list: an Accumulator agent below its
// minBalance airdrops once, recording a confirmed transaction and emitting
// AgentAction(decided_to_act) before Transaction.
func TestAccumulatorAirdropCycleEndToEnd(t *testing.T) {
	o, sim, bus, store := newTestOrchestrator(t)

	var events []types.SystemEvent
	bus.Subscribe(func(e types.SystemEvent) { events = append(events, e) })

	info, err := o.CreateAgent(types.AgentConfig{
		Name:         "accumulator-1",
		StrategyKind: "accumulator",
		StrategyParams: map[string]interface{}{
			"minBalance":        0.5,
			"targetBalance":     2.0,
			"airdropAmount":     1.0,
			"maxAirdropsPerDay": 5,
		},
		ExecutionSettings: types.ExecutionSettings{CycleIntervalMs: minCycleIntervalMs, MaxActionsPerDay: 10, Enabled: true},
	})
	require.NoError(t, err)

	sim.SeedBalance(info.WalletPublicKey, solLamports(0.2))

	o.runCycle(info.ID)

	txs, err := o.GetAgentTransactions(info.ID)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	require.Equal(t, types.IntentAirdrop, txs[0].Type)
	require.Equal(t, types.TxConfirmed, txs[0].Status)

	records := store.List(0)
	require.Len(t, records, 1)
	require.Equal(t, types.HistoryRequestAirdrop, records[0].Type)
	require.Equal(t, types.OutcomeExecuted, records[0].Status)

	var sawAction, sawTx bool
	var actionIdx, txIdx int
	for i, e := range events {
		if e.Kind == types.EventAgentAction && !sawAction {
			sawAction = true
			actionIdx = i
			require.Equal(t, "decided_to_act", e.Data["action"])
		}
		if e.Kind == types.EventTransaction && !sawTx {
			sawTx = true
			txIdx = i
		}
	}
	require.True(t, sawAction)
	require.True(t, sawTx)
	require.Less(t, actionIdx, txIdx, "AgentAction must be emitted before Transaction")
}

// Scenario 2: a Distributor cycling [self, X] with distributionProbability=1
// skips the self cycle with an explicit reasoning string and still advances
// its index, then transfers on the cycle that lands on X.
func TestDistributorSkipsSelfAcrossCycles(t *testing.T) {
	o, sim, bus, _ := newTestOrchestrator(t)

	var reasonings []string
	bus.Subscribe(func(e types.SystemEvent) {
		if e.Kind == types.EventAgentAction {
			reasonings = append(reasonings, e.Data["reasoning"].(string))
		}
	})

	info, err := o.CreateAgent(types.AgentConfig{
		Name:         "distributor-1",
		StrategyKind: "distributor",
		StrategyParams: map[string]interface{}{
			"recipients":              []interface{}{"placeholder-self", "recipient-X"},
			"amount":                  0.1,
			"distributionProbability": 1.0,
			"maxTransfersPerDay":      10,
		},
		ExecutionSettings: types.ExecutionSettings{CycleIntervalMs: minCycleIntervalMs, MaxActionsPerDay: 10, Enabled: true},
	})
	require.NoError(t, err)

	// recipients[0] must equal the wallet's own public key to exercise the
	// self-skip path; the real public key is only known after creation, so
	// rebuild the agent's strategy instance with it now.
	normalized, err := o.registry.ValidateParams("distributor", map[string]interface{}{
		"recipients":              []interface{}{info.WalletPublicKey, "recipient-X"},
		"amount":                  0.1,
		"distributionProbability": 1.0,
		"maxTransfersPerDay":      10,
	})
	require.NoError(t, err)
	strat, err := o.registry.New("distributor", normalized)
	require.NoError(t, err)

	o.mu.Lock()
	agent := o.agents[info.ID]
	agent.strategy = strat
	agent.info.StrategyParams = normalized
	o.mu.Unlock()

	sim.SeedBalance(info.WalletPublicKey, solLamports(5.0))

	o.runCycle(info.ID) // should skip self
	o.runCycle(info.ID) // should transfer to recipient-X

	require.GreaterOrEqual(t, len(reasonings), 1)
	require.Equal(t, "Skipping self as recipient", reasonings[0])

	txs, err := o.GetAgentTransactions(info.ID)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	require.Equal(t, "recipient-X", txs[0].Recipient)
}

// Scenario 6: updateAgentConfig replaces a running agent's ticker with the
// new cadence atomically rather than waiting for the old ticker to fire.
func TestUpdateAgentConfigReplacesTickerWhileRunning(t *testing.T) {
	o, sim, _, _ := newTestOrchestrator(t)

	info, err := o.CreateAgent(types.AgentConfig{
		Name:         "recadence",
		StrategyKind: "balance_guard",
		StrategyParams: map[string]interface{}{
			"criticalBalance":   0.1,
			"airdropAmount":     1.0,
			"maxAirdropsPerDay": 5,
		},
		ExecutionSettings: types.ExecutionSettings{CycleIntervalMs: minCycleIntervalMs, MaxActionsPerDay: 10, Enabled: true},
	})
	require.NoError(t, err)
	sim.SeedBalance(info.WalletPublicKey, solLamports(1.0))

	require.NoError(t, o.StartAgent(info.ID))
	defer o.StopAgent(info.ID)

	o.mu.Lock()
	oldTicker := o.agents[info.ID].ticker
	o.mu.Unlock()
	require.NotNil(t, oldTicker)

	newInterval := int64(minCycleIntervalMs + 5000)
	_, err = o.UpdateAgentConfig(info.ID, types.AgentConfigPatch{
		ExecutionSettings: &types.ExecutionSettings{CycleIntervalMs: newInterval, MaxActionsPerDay: 10, Enabled: true},
	})
	require.NoError(t, err)

	o.mu.Lock()
	newTicker := o.agents[info.ID].ticker
	gotInterval := o.agents[info.ID].info.ExecutionSettings.CycleIntervalMs
	o.mu.Unlock()

	require.NotSame(t, oldTicker, newTicker)
	require.Equal(t, newInterval, gotInterval)
}

func TestStartAgentTwiceFails(t *testing.T) {
	o, sim, _, _ := newTestOrchestrator(t)
	info, err := o.CreateAgent(types.AgentConfig{
		Name:              "dup-start",
		StrategyKind:      "balance_guard",
		StrategyParams:    map[string]interface{}{"criticalBalance": 0.1, "airdropAmount": 1.0},
		ExecutionSettings: types.ExecutionSettings{CycleIntervalMs: minCycleIntervalMs, MaxActionsPerDay: 10, Enabled: true},
	})
	require.NoError(t, err)
	sim.SeedBalance(info.WalletPublicKey, solLamports(1.0))

	require.NoError(t, o.StartAgent(info.ID))
	defer o.StopAgent(info.ID)
	require.Error(t, o.StartAgent(info.ID))
}

func TestNonOverlappingCycleGuardSkipsConcurrentTick(t *testing.T) {
	o, sim, _, _ := newTestOrchestrator(t)
	info, err := o.CreateAgent(types.AgentConfig{
		Name:              "overlap",
		StrategyKind:      "balance_guard",
		StrategyParams:    map[string]interface{}{"criticalBalance": 0.1, "airdropAmount": 1.0},
		ExecutionSettings: types.ExecutionSettings{CycleIntervalMs: minCycleIntervalMs, MaxActionsPerDay: 10, Enabled: true},
	})
	require.NoError(t, err)
	sim.SeedBalance(info.WalletPublicKey, solLamports(1.0))

	o.mu.Lock()
	agent := o.agents[info.ID]
	o.mu.Unlock()
	agent.cycleInProgress = 1 // simulate an in-flight cycle

	o.runCycle(info.ID) // must be a no-op

	txs, err := o.GetAgentTransactions(info.ID)
	require.NoError(t, err)
	require.Empty(t, txs)
}

func TestShutdownStopsAllAgents(t *testing.T) {
	o, sim, _, _ := newTestOrchestrator(t)
	info, err := o.CreateAgent(types.AgentConfig{
		Name:              "shutdown-me",
		StrategyKind:      "balance_guard",
		StrategyParams:    map[string]interface{}{"criticalBalance": 0.1, "airdropAmount": 1.0},
		ExecutionSettings: types.ExecutionSettings{CycleIntervalMs: minCycleIntervalMs, MaxActionsPerDay: 10, Enabled: true},
	})
	require.NoError(t, err)
	sim.SeedBalance(info.WalletPublicKey, solLamports(1.0))
	require.NoError(t, o.StartAgent(info.ID))

	o.Shutdown()

	got, err := o.GetAgent(info.ID)
	require.NoError(t, err)
	require.Equal(t, types.AgentStatusStopped, got.Status)
}

func TestCreateAgentDeletesWalletOnStrategyFactoryFailure(t *testing.T) {
	o, _, _, _ := newTestOrchestrator(t)
	_, err := o.CreateAgent(types.AgentConfig{
		Name:              "bad-strategy-params",
		StrategyKind:      "balance_guard",
		StrategyParams:    map[string]interface{}{"airdropAmount": 1.0}, // missing required criticalBalance
		ExecutionSettings: types.ExecutionSettings{CycleIntervalMs: minCycleIntervalMs, MaxActionsPerDay: 10, Enabled: true},
	})
	require.Error(t, err)
}
