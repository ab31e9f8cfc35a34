package orchestrator

import (
	"math/big"
	"sync"

	"github.com/google/uuid"

	"github.com/nhb-labs/agentic-wallet/types"
)

// ledger is the orchestrator's bounded, append-mostly transaction log. It
// has its own mutex, separate from Orchestrator.mu, since transaction
// writes happen once per cycle per agent and should not contend with agent
// map reads from the HTTP layer.
type ledger struct {
	mu      sync.Mutex
	records []types.TransactionRecord
	index   map[string]int
	max     int
}

func newLedger(max int) *ledger {
	if max <= 0 {
		max = defaultMaxTransactions
	}
	return &ledger{index: make(map[string]int), max: max}
}

// begin inserts a pending transaction record and returns its id.
func (l *ledger) begin(walletID string, kind types.IntentKind, amount *big.Int, recipient, mint string, nowMillis int64) string {
	rec := types.TransactionRecord{
		ID:        uuid.NewString(),
		WalletID:  walletID,
		Type:      kind,
		Status:    types.TxPending,
		Amount:    amount,
		Recipient: recipient,
		Mint:      mint,
		CreatedAt: nowMillis,
		UpdatedAt: nowMillis,
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, rec)
	l.reindexLocked()
	l.trimLocked()
	return rec.ID
}

// update mutates a record in place by id; used to transition pending ->
// confirmed/failed. A miss (e.g. the record was trimmed) is silently
// ignored since the ledger is a bounded, best-effort view.
func (l *ledger) update(id string, status types.TransactionStatus, signature, errMsg string, nowMillis int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	idx, ok := l.index[id]
	if !ok {
		return
	}
	l.records[idx].Status = status
	l.records[idx].Signature = signature
	l.records[idx].Error = errMsg
	l.records[idx].UpdatedAt = nowMillis
}

func (l *ledger) forWallet(walletID string) []types.TransactionRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]types.TransactionRecord, 0)
	for _, rec := range l.records {
		if rec.WalletID == walletID {
			out = append(out, rec)
		}
	}
	return out
}

func (l *ledger) all() []types.TransactionRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]types.TransactionRecord, len(l.records))
	copy(out, l.records)
	return out
}

func (l *ledger) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// trimLocked drops the oldest records once the ledger exceeds max. Callers
// must hold l.mu.
func (l *ledger) trimLocked() {
	if len(l.records) <= l.max {
		return
	}
	l.records = l.records[len(l.records)-l.max:]
	l.reindexLocked()
}

func (l *ledger) reindexLocked() {
	l.index = make(map[string]int, len(l.records))
	for i := range l.records {
		l.index[l.records[i].ID] = i
	}
}
