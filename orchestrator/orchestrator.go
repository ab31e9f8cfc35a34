// Package orchestrator implements the Strategy Scheduler: it owns every
// managed built-in agent, runs each agent's decide-then-execute cycle on
// its own cadence with a non-overlapping guarantee, and records every
// on-chain action to a shared transaction ledger and intent-history feed.
package orchestrator

import (
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/nhb-labs/agentic-wallet/apperr"
	"github.com/nhb-labs/agentic-wallet/chain"
	"github.com/nhb-labs/agentic-wallet/eventbus"
	"github.com/nhb-labs/agentic-wallet/history"
	"github.com/nhb-labs/agentic-wallet/strategy"
	"github.com/nhb-labs/agentic-wallet/types"
)

// vaultAPI is the narrow slice of wallet.Vault the orchestrator depends on.
type vaultAPI interface {
	CreateWallet(label string) (types.WalletInfo, error)
	DeleteWallet(id string) error
	GetPublicKey(id string) (string, error)
	SignTransaction(id string, tx types.UnsignedTransaction) (types.SignedTransaction, error)
	ValidateIntent(id string, intent types.Intent, currentBalance, feeReserve *big.Int) error
	RecordTransfer(id string) error
}

// managedAgent is the orchestrator's internal record for one built-in
// agent: its public info plus the scheduling machinery driving its cycles.
type managedAgent struct {
	info     types.AgentInfo
	strategy strategy.Strategy

	ticker *time.Ticker
	stopCh chan struct{}

	cycleInProgress int32 // atomic: 0 idle, 1 running
	actionsToday    int
}

const (
	defaultMaxAgents      = 50
	defaultMaxTransactions = 10000
	minCycleIntervalMs     = 5000
	maxCycleIntervalMs     = 3_600_000
	recentSignatureDepth   = 10
)

// Orchestrator owns the set of managed agents and the transaction ledger.
type Orchestrator struct {
	mu     sync.Mutex
	agents map[string]*managedAgent

	vault    vaultAPI
	client   chain.Client
	registry *strategy.Registry
	bus      *eventbus.Bus
	history  *history.Store

	txLedger        *ledger
	maxTransactions int

	maxAgents int
	sendOpts  chain.SendOptions
	logger    *slog.Logger
	now       func() time.Time
	resetTimer *time.Timer
}

// Option configures an Orchestrator at construction time.
type Option func(*Orchestrator)

func WithMaxAgents(n int) Option       { return func(o *Orchestrator) { o.maxAgents = n } }
func WithMaxTransactions(n int) Option { return func(o *Orchestrator) { o.maxTransactions = n } }
func WithLogger(l *slog.Logger) Option { return func(o *Orchestrator) { o.logger = l } }
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}
func WithSendOptions(opts chain.SendOptions) Option {
	return func(o *Orchestrator) { o.sendOpts = opts }
}

// NewOrchestrator wires the orchestrator to its collaborators and arms the
// first daily-reset timer.
func NewOrchestrator(vault vaultAPI, client chain.Client, registry *strategy.Registry, bus *eventbus.Bus, historyStore *history.Store, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		agents:          make(map[string]*managedAgent),
		vault:           vault,
		client:          client,
		registry:        registry,
		bus:             bus,
		history:         historyStore,
		maxTransactions: defaultMaxTransactions,
		maxAgents:       defaultMaxAgents,
		logger:          slog.Default(),
		now:             time.Now,
		sendOpts:        chain.SendOptions{MaxRetries: 3, ConfirmationTimeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(o)
	}
	o.txLedger = newLedger(o.maxTransactions)
	o.armDailyReset()
	return o
}

// CreateAgent provisions a new managed agent: a fresh vault wallet and a
// strategy instance validated against the registry. If the strategy
// factory fails, the just-created wallet is deleted.
func (o *Orchestrator) CreateAgent(cfg types.AgentConfig) (types.AgentInfo, error) {
	o.mu.Lock()
	if len(o.agents) >= o.maxAgents {
		o.mu.Unlock()
		return types.AgentInfo{}, apperr.Capacity("max agents (%d) reached", o.maxAgents)
	}
	o.mu.Unlock()

	if cfg.ExecutionSettings.CycleIntervalMs < minCycleIntervalMs || cfg.ExecutionSettings.CycleIntervalMs > maxCycleIntervalMs {
		return types.AgentInfo{}, apperr.Validation("cycleIntervalMs must be between %d and %d", minCycleIntervalMs, maxCycleIntervalMs)
	}
	if cfg.ExecutionSettings.MaxActionsPerDay < 1 {
		return types.AgentInfo{}, apperr.Validation("maxActionsPerDay must be at least 1")
	}

	walletInfo, err := o.vault.CreateWallet(fmt.Sprintf("agent:%s", cfg.Name))
	if err != nil {
		return types.AgentInfo{}, err
	}

	strat, err := o.registry.New(cfg.StrategyKind, cfg.StrategyParams)
	if err != nil {
		if delErr := o.vault.DeleteWallet(walletInfo.ID); delErr != nil {
			o.logger.Error("failed to clean up orphaned wallet after strategy factory failure",
				"walletId", walletInfo.ID, "error", delErr)
		}
		return types.AgentInfo{}, err
	}

	normalizedParams, _ := o.registry.ValidateParams(cfg.StrategyKind, cfg.StrategyParams)

	agent := &managedAgent{
		info: types.AgentInfo{
			ID:                uuid.NewString(),
			Name:              cfg.Name,
			StrategyKind:      cfg.StrategyKind,
			WalletID:          walletInfo.ID,
			WalletPublicKey:   walletInfo.PublicKey,
			Status:            types.AgentStatusIdle,
			StrategyParams:    normalizedParams,
			ExecutionSettings: cfg.ExecutionSettings,
			CreatedAt:         o.now().UnixMilli(),
		},
		strategy: strat,
	}

	o.mu.Lock()
	o.agents[agent.info.ID] = agent
	o.mu.Unlock()

	o.bus.Emit(types.SystemEvent{
		Kind:    types.EventAgentCreated,
		AgentID: agent.info.ID,
		Data:    map[string]interface{}{"name": agent.info.Name, "strategyKind": agent.info.StrategyKind},
	})

	return agent.info, nil
}

// StartAgent requires executionSettings.Enabled, arms a ticker at the
// configured cadence, and runs an immediate first cycle.
func (o *Orchestrator) StartAgent(agentID string) error {
	o.mu.Lock()
	agent, ok := o.agents[agentID]
	if !ok {
		o.mu.Unlock()
		return apperr.NotFound("agent %s", agentID)
	}
	if agent.ticker != nil {
		o.mu.Unlock()
		return apperr.Validation("agent %s is already running", agentID)
	}
	if !agent.info.ExecutionSettings.Enabled {
		o.mu.Unlock()
		return apperr.Validation("agent %s execution settings are disabled", agentID)
	}
	agent.ticker = time.NewTicker(time.Duration(agent.info.ExecutionSettings.CycleIntervalMs) * time.Millisecond)
	agent.stopCh = make(chan struct{})
	agent.info.Status = types.AgentStatusIdle
	ticker, stopCh := agent.ticker, agent.stopCh
	o.mu.Unlock()

	go o.runCycle(agentID)
	go o.agentLoop(agentID, ticker, stopCh)
	return nil
}

func (o *Orchestrator) agentLoop(agentID string, ticker *time.Ticker, stopCh chan struct{}) {
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			o.runCycle(agentID)
		}
	}
}

// StopAgent cancels the ticker and transitions the agent to stopped. Any
// in-flight cycle runs to completion.
func (o *Orchestrator) StopAgent(agentID string) error {
	o.mu.Lock()
	agent, ok := o.agents[agentID]
	if !ok {
		o.mu.Unlock()
		return apperr.NotFound("agent %s", agentID)
	}
	if agent.ticker != nil {
		agent.ticker.Stop()
		close(agent.stopCh)
		agent.ticker = nil
		agent.stopCh = nil
	}
	agent.info.Status = types.AgentStatusStopped
	o.mu.Unlock()

	o.bus.Emit(types.SystemEvent{Kind: types.EventAgentStatusChanged, AgentID: agentID, Data: map[string]interface{}{"status": types.AgentStatusStopped}})
	return nil
}

// UpdateAgentConfig validates strategyParams through the registry and, if
// cycleIntervalMs changed while the agent is running, atomically replaces
// the ticker with the new cadence.
func (o *Orchestrator) UpdateAgentConfig(agentID string, patch types.AgentConfigPatch) (types.AgentInfo, error) {
	o.mu.Lock()
	agent, ok := o.agents[agentID]
	if !ok {
		o.mu.Unlock()
		return types.AgentInfo{}, apperr.NotFound("agent %s", agentID)
	}

	if patch.StrategyParams != nil {
		normalized, err := o.registry.ValidateParams(agent.info.StrategyKind, patch.StrategyParams)
		if err != nil {
			o.mu.Unlock()
			return types.AgentInfo{}, err
		}
		agent.info.StrategyParams = normalized
	}

	var needsRetick bool
	if patch.ExecutionSettings != nil {
		if patch.ExecutionSettings.CycleIntervalMs != 0 {
			if patch.ExecutionSettings.CycleIntervalMs < minCycleIntervalMs || patch.ExecutionSettings.CycleIntervalMs > maxCycleIntervalMs {
				o.mu.Unlock()
				return types.AgentInfo{}, apperr.Validation("cycleIntervalMs must be between %d and %d", minCycleIntervalMs, maxCycleIntervalMs)
			}
			needsRetick = patch.ExecutionSettings.CycleIntervalMs != agent.info.ExecutionSettings.CycleIntervalMs && agent.ticker != nil
			agent.info.ExecutionSettings.CycleIntervalMs = patch.ExecutionSettings.CycleIntervalMs
		}
		if patch.ExecutionSettings.MaxActionsPerDay != 0 {
			agent.info.ExecutionSettings.MaxActionsPerDay = patch.ExecutionSettings.MaxActionsPerDay
		}
		agent.info.ExecutionSettings.Enabled = patch.ExecutionSettings.Enabled
	}

	var oldTicker *time.Ticker
	var newTicker *time.Ticker
	var stopCh chan struct{}
	if needsRetick {
		oldTicker = agent.ticker
		newTicker = time.NewTicker(time.Duration(agent.info.ExecutionSettings.CycleIntervalMs) * time.Millisecond)
		agent.ticker = newTicker
		close(agent.stopCh)
		agent.stopCh = make(chan struct{})
		stopCh = agent.stopCh
	}
	result := agent.info
	o.mu.Unlock()

	if oldTicker != nil {
		oldTicker.Stop()
		go o.agentLoop(agentID, newTicker, stopCh)
	}
	return result, nil
}

// GetAgent returns one agent's public info.
func (o *Orchestrator) GetAgent(agentID string) (types.AgentInfo, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	agent, ok := o.agents[agentID]
	if !ok {
		return types.AgentInfo{}, apperr.NotFound("agent %s", agentID)
	}
	return agent.info, nil
}

// GetAllAgents returns every managed agent's public info.
func (o *Orchestrator) GetAllAgents() []types.AgentInfo {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]types.AgentInfo, 0, len(o.agents))
	for _, agent := range o.agents {
		out = append(out, agent.info)
	}
	return out
}

// GetStats returns aggregate counts across managed agents.
func (o *Orchestrator) GetStats() types.Stats {
	o.mu.Lock()
	stats := types.Stats{TotalAgents: len(o.agents)}
	for _, agent := range o.agents {
		if agent.ticker != nil {
			stats.RunningAgents++
		}
	}
	o.mu.Unlock()
	stats.TotalTxCount = o.txLedger.size()
	return stats
}

// GetAgentTransactions returns the ledger entries for one agent's wallet.
func (o *Orchestrator) GetAgentTransactions(agentID string) ([]types.TransactionRecord, error) {
	o.mu.Lock()
	agent, ok := o.agents[agentID]
	o.mu.Unlock()
	if !ok {
		return nil, apperr.NotFound("agent %s", agentID)
	}
	return o.txLedger.forWallet(agent.info.WalletID), nil
}

// GetAllTransactions returns every ledger entry across all agents.
func (o *Orchestrator) GetAllTransactions() []types.TransactionRecord {
	return o.txLedger.all()
}

// Shutdown cancels every ticker, transitions every agent to stopped, and
// releases the daily-reset timer.
func (o *Orchestrator) Shutdown() {
	o.mu.Lock()
	for _, agent := range o.agents {
		if agent.ticker != nil {
			agent.ticker.Stop()
			close(agent.stopCh)
			agent.ticker = nil
			agent.stopCh = nil
		}
		agent.info.Status = types.AgentStatusStopped
	}
	if o.resetTimer != nil {
		o.resetTimer.Stop()
	}
	o.mu.Unlock()
}

func (o *Orchestrator) armDailyReset() {
	delay := nextMidnight(o.now())
	o.resetTimer = time.AfterFunc(delay, o.resetDaily)
}

func (o *Orchestrator) resetDaily() {
	o.mu.Lock()
	for _, agent := range o.agents {
		agent.actionsToday = 0
		agent.strategy.ResetDaily()
	}
	count := len(o.agents)
	o.mu.Unlock()

	o.logger.Info("orchestrator daily counters reset", "agents", count, "timezone", o.now().Location().String())
	o.armDailyReset()
}

func nextMidnight(now time.Time) time.Duration {
	year, month, day := now.Date()
	midnight := time.Date(year, month, day+1, 0, 0, 0, 0, now.Location())
	return midnight.Sub(now)
}

func atomicTryAcquire(flag *int32) bool {
	return atomic.CompareAndSwapInt32(flag, 0, 1)
}

func atomicRelease(flag *int32) {
	atomic.StoreInt32(flag, 0)
}
