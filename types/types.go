// Package types holds the shared data shapes that cross component
// boundaries: intents, transaction records, agent context, and system
// events. Keeping them in one package lets the vault, orchestrator, intent
// router, and event bus agree on wire shape without importing each other.
package types

import "math/big"

// IntentKind tags the variant of an Intent.
type IntentKind string

const (
	IntentAirdrop       IntentKind = "airdrop"
	IntentTransferSol   IntentKind = "transfer_sol"
	IntentTransferToken IntentKind = "transfer_token"
	IntentQueryBalance  IntentKind = "query_balance"
	IntentAutonomous    IntentKind = "autonomous"
)

// Intent is a discriminated union of the actions an agent may request.
// Rather than a type hierarchy, each variant's payload lives in its own
// field; callers switch on Kind and read the field that applies.
type Intent struct {
	ID        string     `json:"id"`
	AgentID   string     `json:"agentId"`
	Timestamp int64      `json:"timestamp"`
	Kind      IntentKind `json:"kind"`

	// Airdrop
	Amount *big.Int `json:"amount,omitempty"`

	// TransferSol
	Recipient string `json:"recipient,omitempty"`

	// TransferToken
	Mint string `json:"mint,omitempty"`

	// Autonomous
	Action string                 `json:"action,omitempty"`
	Params map[string]interface{} `json:"params,omitempty"`
}

// AgentStatus is the lifecycle state of a managed built-in agent.
type AgentStatus string

const (
	AgentStatusIdle      AgentStatus = "idle"
	AgentStatusThinking  AgentStatus = "thinking"
	AgentStatusExecuting AgentStatus = "executing"
	AgentStatusWaiting   AgentStatus = "waiting"
	AgentStatusError     AgentStatus = "error"
	AgentStatusStopped   AgentStatus = "stopped"
)

// TransactionStatus tracks a transaction record through its lifecycle.
type TransactionStatus string

const (
	TxPending   TransactionStatus = "pending"
	TxSubmitted TransactionStatus = "submitted"
	TxConfirmed TransactionStatus = "confirmed"
	TxFinalized TransactionStatus = "finalized"
	TxFailed    TransactionStatus = "failed"
)

// TransactionRecord is the orchestrator's ledger entry for one on-chain (or
// simulated) action. Once Status reaches Confirmed, Finalized, or Failed the
// record is immutable.
type TransactionRecord struct {
	ID        string            `json:"id"`
	WalletID  string            `json:"walletId"`
	Type      IntentKind        `json:"type"`
	Status    TransactionStatus `json:"status"`
	Amount    *big.Int          `json:"amount,omitempty"`
	Recipient string            `json:"recipient,omitempty"`
	Mint      string            `json:"mint,omitempty"`
	Signature string            `json:"signature,omitempty"`
	Error     string            `json:"error,omitempty"`
	CreatedAt int64             `json:"createdAt"`
	UpdatedAt int64             `json:"updatedAt"`
}

// IntentHistoryType is the canonical, string-table form of an intent's type
// as recorded in the shared intent-history feed, independent of whether the
// intent originated from a built-in agent or an external one.
type IntentHistoryType string

const (
	HistoryRequestAirdrop IntentHistoryType = "REQUEST_AIRDROP"
	HistoryTransferSol    IntentHistoryType = "TRANSFER_SOL"
	HistoryTransferToken  IntentHistoryType = "TRANSFER_TOKEN"
	HistoryQueryBalance   IntentHistoryType = "QUERY_BALANCE"
	HistoryAutonomous     IntentHistoryType = "AUTONOMOUS"
)

// IntentOutcome is whether a history entry executed or was rejected before
// reaching the chain.
type IntentOutcome string

const (
	OutcomeExecuted IntentOutcome = "executed"
	OutcomeRejected IntentOutcome = "rejected"
)

// IntentHistoryRecord unifies built-in and external (BYOA) agent activity
// into one feed so dashboards never need to merge two sources.
type IntentHistoryRecord struct {
	IntentID  string                 `json:"intentId"`
	AgentID   string                 `json:"agentId"`
	Type      IntentHistoryType      `json:"type"`
	Params    map[string]interface{} `json:"params,omitempty"`
	Status    IntentOutcome          `json:"status"`
	Result    map[string]interface{} `json:"result,omitempty"`
	Error     string                 `json:"error,omitempty"`
	CreatedAt int64                  `json:"createdAt"`
}

// SystemEventKind tags the variant of a SystemEvent.
type SystemEventKind string

const (
	EventAgentCreated       SystemEventKind = "AgentCreated"
	EventAgentStatusChanged SystemEventKind = "AgentStatusChanged"
	EventAgentAction        SystemEventKind = "AgentAction"
	EventTransaction        SystemEventKind = "Transaction"
	EventBalanceChanged     SystemEventKind = "BalanceChanged"
	EventSystemError        SystemEventKind = "SystemError"
)

// SystemEvent is the discriminated union broadcast over the event bus. Data
// carries the variant-specific payload; every event also carries a
// monotonic ID assigned by the bus and an AgentID when the event concerns a
// specific agent (empty for bus-wide events like SystemError).
type SystemEvent struct {
	ID        int64                  `json:"id"`
	Kind      SystemEventKind        `json:"kind"`
	AgentID   string                 `json:"agentId,omitempty"`
	Timestamp int64                  `json:"timestamp"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// TokenBalance is one SPL-style token holding reported by the chain client.
type TokenBalance struct {
	Mint     string   `json:"mint"`
	Amount   *big.Int `json:"amount"`
	Decimals int      `json:"decimals"`
	UIAmount float64  `json:"uiAmount"`
}

// AgentContext is the snapshot of chain state assembled before a strategy's
// decision function runs.
type AgentContext struct {
	PublicKey        string         `json:"publicKey"`
	Balance          *big.Int       `json:"balance"`
	TokenBalances    []TokenBalance `json:"tokenBalances"`
	RecentSignatures []string       `json:"recentSignatures"`
}

// Decision is the result of a strategy's decide call.
type Decision struct {
	ShouldAct bool
	Intent    *Intent
	Reasoning string
}

// ExternalIntent is the wire shape an external (BYOA) agent submits to the
// Intent Router. Type is the string-table form used by supportedIntents
// checks; Amount/Recipient/Mint/Action/Params mirror Intent's variant
// fields and are interpreted the same way once translated.
type ExternalIntent struct {
	Type      string                 `json:"type"`
	Amount    *big.Int               `json:"amount,omitempty"`
	Recipient string                 `json:"recipient,omitempty"`
	Mint      string                 `json:"mint,omitempty"`
	Action    string                 `json:"action,omitempty"`
	Params    map[string]interface{} `json:"params,omitempty"`
}

// IntentResult is the deterministic shape the Intent Router returns to a
// caller; a policy rejection is delivered as Ok(rejected), never as a
// transport-level error.
type IntentResult struct {
	IntentID        string                 `json:"intentId"`
	Status          IntentOutcome          `json:"status"`
	Type            string                 `json:"type"`
	AgentID         string                 `json:"agentId"`
	WalletPublicKey string                 `json:"walletPublicKey"`
	Result          map[string]interface{} `json:"result,omitempty"`
	Error           string                 `json:"error,omitempty"`
	ExecutedAt      int64                  `json:"executedAt"`
}

// WalletInfo is the public-facing view of a vault wallet; it never carries
// secret material.
type WalletInfo struct {
	ID        string `json:"id"`
	PublicKey string `json:"publicKey"`
	Label     string `json:"label"`
	CreatedAt int64  `json:"createdAt"`
}

// Policy is the set of per-wallet spending constraints enforced by the
// vault before any transfer intent is signed.
type Policy struct {
	MaxTransferAmount  *big.Int `json:"maxTransferAmount"`
	MaxDailyTransfers  int      `json:"maxDailyTransfers"`
	MinResidualBalance *big.Int `json:"minResidualBalance"`
	AllowRecipients    []string `json:"allowRecipients,omitempty"`
	DenyRecipients     []string `json:"denyRecipients,omitempty"`
}

// PolicyPatch carries optional field updates for UpdatePolicy; nil fields
// are left unchanged.
type PolicyPatch struct {
	MaxTransferAmount  *big.Int
	MaxDailyTransfers  *int
	MinResidualBalance *big.Int
	AllowRecipients    []string
	DenyRecipients     []string
}

// ExecutionSettings controls a managed agent's cadence and daily budget.
type ExecutionSettings struct {
	CycleIntervalMs  int64 `json:"cycleIntervalMs"`
	MaxActionsPerDay int   `json:"maxActionsPerDay"`
	Enabled          bool  `json:"enabled"`
}

// AgentInfo is the orchestrator's public view of one managed agent.
type AgentInfo struct {
	ID                string                 `json:"id"`
	Name              string                 `json:"name"`
	StrategyKind      string                 `json:"strategyKind"`
	WalletID          string                 `json:"walletId"`
	WalletPublicKey   string                 `json:"walletPublicKey"`
	Status            AgentStatus            `json:"status"`
	StrategyParams    map[string]interface{} `json:"strategyParams"`
	ExecutionSettings ExecutionSettings      `json:"executionSettings"`
	CreatedAt         int64                  `json:"createdAt"`
	LastActionAt      int64                  `json:"lastActionAt,omitempty"`
	ErrorMessage      string                 `json:"errorMessage,omitempty"`
}

// AgentConfig is the input to creating a managed agent.
type AgentConfig struct {
	Name              string
	StrategyKind      string
	StrategyParams    map[string]interface{}
	ExecutionSettings ExecutionSettings
}

// AgentConfigPatch carries optional field updates for UpdateAgentConfig.
type AgentConfigPatch struct {
	StrategyParams    map[string]interface{}
	ExecutionSettings *ExecutionSettings
}

// Stats is the aggregate view returned by GetStats.
type Stats struct {
	TotalAgents   int `json:"totalAgents"`
	RunningAgents int `json:"runningAgents"`
	TotalTxCount  int `json:"totalTransactionCount"`
}

// UnsignedTransaction is the chain-agnostic envelope the vault signs. The
// chain client is responsible for building Message from real instructions;
// the vault never interprets its contents, only signs over the bytes.
type UnsignedTransaction struct {
	FeePayer string `json:"feePayer"`
	Message  []byte `json:"message"`
}

// SignedTransaction pairs an UnsignedTransaction's message with the
// signature produced by the vault.
type SignedTransaction struct {
	FeePayer  string `json:"feePayer"`
	Message   []byte `json:"message"`
	Signature []byte `json:"signature"`
}
