// Package chain defines the Chain Client capability: the narrow interface
// the rest of the platform uses for every network call against the chain.
// Nothing outside this package depends on a concrete chain library; tests
// and local development use SimClient, an in-memory fake satisfying the
// same interface.
package chain

import (
	"context"
	"math/big"
	"time"

	"github.com/nhb-labs/agentic-wallet/types"
)

// BalanceResult is the native-balance response shape.
type BalanceResult struct {
	Native   *big.Int
	RawUnits *big.Int
}

// SendResult is returned once a transaction has been submitted (and,
// depending on opts, confirmed).
type SendResult struct {
	Signature string
	Slot      uint64
	Status    string
}

// SendOptions controls retry and confirmation behavior for SendTransaction.
type SendOptions struct {
	MaxRetries          int
	ConfirmationTimeout time.Duration
}

// Client is the capability the core depends on instead of a concrete chain
// library. The only component that performs network I/O against the chain
// is whatever concrete type implements this interface.
type Client interface {
	CheckHealth(ctx context.Context) error
	GetBalance(ctx context.Context, address string) (BalanceResult, error)
	GetTokenBalances(ctx context.Context, address string) ([]types.TokenBalance, error)

	// RequestAirdrop must fail if the configured network is not the
	// designated test network, and must reject amounts beyond a hard
	// per-request cap.
	RequestAirdrop(ctx context.Context, address string, amount *big.Int) (SendResult, error)

	BuildNativeTransfer(from, to string, amount *big.Int, memo string) (types.UnsignedTransaction, error)
	BuildTokenTransfer(owner, mint, recipient string, rawAmount *big.Int, decimals int, memo string) (types.UnsignedTransaction, error)
	BuildArbitraryTransaction(feePayer string, instructions []Instruction, memo string) (types.UnsignedTransaction, error)
	DeserializeAndRebindFeePayer(encoded string, feePayer string) (types.UnsignedTransaction, error)

	// SendTransaction retries transient errors with exponential backoff up
	// to opts.MaxRetries, never retries a NonRetryable error, and returns
	// once the transaction reaches "confirmed" commitment.
	SendTransaction(ctx context.Context, signed types.SignedTransaction, opts SendOptions) (SendResult, error)

	EstimateFee(ctx context.Context, tx types.UnsignedTransaction) (*big.Int, error)
}

// Instruction is an opaque, chain-specific instruction payload accepted by
// BuildArbitraryTransaction and the Autonomous execute_instructions /
// raw_transaction actions. The core never interprets its contents.
type Instruction struct {
	ProgramID string
	Data      []byte
	Accounts  []string
}

// NonRetryableError marks a chain error that must never be retried by
// SendTransaction's backoff loop.
type NonRetryableError struct {
	Reason string
}

func (e *NonRetryableError) Error() string { return "chain: non-retryable: " + e.Reason }

// Well-known non-retryable reasons, matching the closed set in the chain
// client contract.
const (
	ReasonInsufficientFunds = "insufficient funds"
	ReasonInvalidAccount    = "invalid account"
	ReasonInvalidBlockhash  = "invalid blockhash"
	ReasonTxTooLarge        = "transaction too large"
	ReasonAccountNotFound   = "account not found"
)

func isNonRetryable(err error) bool {
	_, ok := err.(*NonRetryableError)
	return ok
}
