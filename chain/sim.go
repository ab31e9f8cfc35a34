package chain

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nhb-labs/agentic-wallet/types"
)

// MainnetNetworkName is the value NETWORK must never equal; both the
// composition root and SimClient refuse to start against it.
const MainnetNetworkName = "mainnet-beta"

// DefaultAirdropHardCap is the per-request ceiling RequestAirdrop enforces
// when the caller does not configure one explicitly.
var DefaultAirdropHardCap = big.NewInt(10_000_000_000) // 10 SOL in lamports

// SimClient is an in-memory fake satisfying Client, used in tests and local
// development in place of a real RPC-backed implementation. Its send
// behavior can be overridden via the SendFunc field, mirroring the
// callback-adapter idiom the teacher uses for its own wallet interfaces
// (see services/payoutd/wallet.FuncWallet).
type SimClient struct {
	mu sync.Mutex

	network        string
	airdropCap     *big.Int
	balances       map[string]*big.Int
	tokenBalances  map[string]map[string]types.TokenBalance
	transientLeft  map[string]int // keyed by fee payer and message, for test-injected transient failures
	confirmedAfter time.Duration

	// SendFunc, when set, replaces SendTransaction's default simulated
	// send-and-confirm behavior.
	SendFunc func(ctx context.Context, signed types.SignedTransaction, opts SendOptions) (SendResult, error)
}

// NewSimClient constructs a fake chain client targeting the given network
// name. It refuses to start against the mainnet network name, matching the
// platform-wide fail-closed rule.
func NewSimClient(network string) (*SimClient, error) {
	if network == MainnetNetworkName {
		return nil, fmt.Errorf("chain: refusing to start against %s", MainnetNetworkName)
	}
	return &SimClient{
		network:       network,
		airdropCap:    DefaultAirdropHardCap,
		balances:      make(map[string]*big.Int),
		tokenBalances: make(map[string]map[string]types.TokenBalance),
		transientLeft: make(map[string]int),
	}, nil
}

// SeedBalance sets an address's native balance, for test and local-dev
// setup; it is not part of the Client interface.
func (s *SimClient) SeedBalance(address string, lamports *big.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[address] = new(big.Int).Set(lamports)
}

func (s *SimClient) CheckHealth(ctx context.Context) error {
	return nil
}

func (s *SimClient) GetBalance(ctx context.Context, address string) (BalanceResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bal, ok := s.balances[address]
	if !ok {
		bal = big.NewInt(0)
	}
	return BalanceResult{Native: new(big.Int).Set(bal), RawUnits: new(big.Int).Set(bal)}, nil
}

func (s *SimClient) GetTokenBalances(ctx context.Context, address string) ([]types.TokenBalance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	holdings := s.tokenBalances[address]
	out := make([]types.TokenBalance, 0, len(holdings))
	for _, tb := range holdings {
		out = append(out, tb)
	}
	return out, nil
}

func (s *SimClient) RequestAirdrop(ctx context.Context, address string, amount *big.Int) (SendResult, error) {
	if s.network == MainnetNetworkName {
		return SendResult{}, &NonRetryableError{Reason: "airdrops are disabled on mainnet"}
	}
	if amount == nil || amount.Sign() <= 0 {
		return SendResult{}, fmt.Errorf("chain: airdrop amount must be positive")
	}
	if amount.Cmp(s.airdropCap) > 0 {
		return SendResult{}, fmt.Errorf("chain: airdrop amount %s exceeds hard cap %s", amount, s.airdropCap)
	}

	s.mu.Lock()
	bal, ok := s.balances[address]
	if !ok {
		bal = big.NewInt(0)
	}
	bal = new(big.Int).Add(bal, amount)
	s.balances[address] = bal
	s.mu.Unlock()

	sig := simSignature("airdrop", address, amount.String())
	return SendResult{Signature: sig, Slot: simSlot(), Status: "confirmed"}, nil
}

func (s *SimClient) BuildNativeTransfer(from, to string, amount *big.Int, memo string) (types.UnsignedTransaction, error) {
	msg := fmt.Sprintf("transfer-sol:%s:%s:%s:%s", from, to, amount.String(), memo)
	return types.UnsignedTransaction{FeePayer: from, Message: []byte(msg)}, nil
}

func (s *SimClient) BuildTokenTransfer(owner, mint, recipient string, rawAmount *big.Int, decimals int, memo string) (types.UnsignedTransaction, error) {
	msg := fmt.Sprintf("transfer-token:%s:%s:%s:%s:%d:%s", owner, mint, recipient, rawAmount.String(), decimals, memo)
	return types.UnsignedTransaction{FeePayer: owner, Message: []byte(msg)}, nil
}

func (s *SimClient) BuildArbitraryTransaction(feePayer string, instructions []Instruction, memo string) (types.UnsignedTransaction, error) {
	msg := fmt.Sprintf("raw:%s:%d:%s", feePayer, len(instructions), memo)
	return types.UnsignedTransaction{FeePayer: feePayer, Message: []byte(msg)}, nil
}

func (s *SimClient) DeserializeAndRebindFeePayer(encoded string, feePayer string) (types.UnsignedTransaction, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return types.UnsignedTransaction{}, fmt.Errorf("chain: decode transaction: %w", err)
	}
	return types.UnsignedTransaction{FeePayer: feePayer, Message: raw}, nil
}

// SendTransaction retries transient errors up to opts.MaxRetries with
// exponential backoff, and never retries a *NonRetryableError.
func (s *SimClient) SendTransaction(ctx context.Context, signed types.SignedTransaction, opts SendOptions) (SendResult, error) {
	if s.SendFunc != nil {
		return s.SendFunc(ctx, signed, opts)
	}

	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		result, err := s.attemptSend(signed)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if isNonRetryable(err) {
			return SendResult{}, err
		}
		if attempt == maxRetries {
			break
		}
		backoff := time.Duration(1<<uint(attempt)) * 25 * time.Millisecond
		select {
		case <-ctx.Done():
			return SendResult{}, ctx.Err()
		case <-time.After(backoff):
		}
	}
	return SendResult{}, fmt.Errorf("chain: send failed after %d attempts: %w", maxRetries+1, lastErr)
}

func (s *SimClient) attemptSend(signed types.SignedTransaction) (SendResult, error) {
	sig := simSignature("tx", signed.FeePayer, fmt.Sprintf("%x", signed.Message))
	key := transientKey(signed)

	s.mu.Lock()
	remaining, tracked := s.transientLeft[key]
	if tracked && remaining > 0 {
		s.transientLeft[key] = remaining - 1
	}
	s.mu.Unlock()

	if tracked && remaining > 0 {
		return SendResult{}, fmt.Errorf("chain: transient RPC error, retrying")
	}
	return SendResult{Signature: sig, Slot: simSlot(), Status: "confirmed"}, nil
}

// InjectTransientFailures makes the next n attempts to send a given signed
// message fail with a retryable error before succeeding, for exercising the
// retry/backoff path in tests.
func (s *SimClient) InjectTransientFailures(signed types.SignedTransaction, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transientLeft[transientKey(signed)] = n
}

// transientKey identifies a signed message for failure injection; unlike
// simSignature it carries no timestamp, so repeated sends of the same
// message map to the same key.
func transientKey(signed types.SignedTransaction) string {
	return signed.FeePayer + ":" + hex.EncodeToString(signed.Message)
}

func (s *SimClient) EstimateFee(ctx context.Context, tx types.UnsignedTransaction) (*big.Int, error) {
	return big.NewInt(5000), nil
}

func simSignature(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
	}
	h.Write([]byte(time.Now().String()))
	return hex.EncodeToString(h.Sum(nil))[:64]
}

var slotCounter uint64

func simSlot() uint64 {
	return atomic.AddUint64(&slotCounter, 1)
}
