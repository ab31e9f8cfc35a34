// Package wallet implements the Wallet Vault: the sole holder of secret key
// material. It generates keypairs, encrypts them at rest, signs on demand,
// and enforces per-wallet spending policy before any signature is produced.
package wallet

import (
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nhb-labs/agentic-wallet/apperr"
	appcrypto "github.com/nhb-labs/agentic-wallet/crypto"
	"github.com/nhb-labs/agentic-wallet/types"
)

// walletRecord is the vault's internal, never-exported record. encrypted
// holds the sealed blob produced by appcrypto.Seal; the plaintext key only
// ever exists on SignTransaction's call stack.
type walletRecord struct {
	id        string
	address   appcrypto.Address
	label     string
	createdAt time.Time
	encrypted []byte
	policy    types.Policy
	dailyCtr  int
}

// Vault owns every wallet's keypair and policy. All mutation goes through
// the single mutex; the daily-reset goroutine takes the same lock as policy
// checks so a reset can never race a just-incremented counter.
type Vault struct {
	mu         sync.Mutex
	passphrase string
	wallets    map[string]*walletRecord
	logger     *slog.Logger

	resetTimer *time.Timer
	now        func() time.Time
}

// Option configures a Vault at construction time.
type Option func(*Vault)

// WithLogger overrides the vault's structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Vault) { v.logger = logger }
}

// WithClock overrides the vault's notion of "now", for deterministic tests
// of the daily-reset boundary.
func WithClock(now func() time.Time) Option {
	return func(v *Vault) { v.now = now }
}

// NewVault constructs a vault keyed by a vault-wide passphrase and arms the
// first daily-reset timer. The passphrase is never stored in plaintext
// anywhere but this struct's field and the KDF call inside Seal/Open.
func NewVault(passphrase string, opts ...Option) *Vault {
	v := &Vault{
		passphrase: passphrase,
		wallets:    make(map[string]*walletRecord),
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	v.armDailyReset()
	return v
}

// CreateWallet generates a fresh keypair, seals its secret material, and
// registers a default policy and zero daily counter. Only public info is
// returned; the caller never sees the private key.
func (v *Vault) CreateWallet(label string) (types.WalletInfo, error) {
	priv, err := appcrypto.GeneratePrivateKey()
	if err != nil {
		return types.WalletInfo{}, apperr.Crypto(err, "generate keypair")
	}
	salt, err := appcrypto.NewSalt()
	if err != nil {
		return types.WalletInfo{}, apperr.Crypto(err, "generate salt")
	}

	sealed, err := appcrypto.Seal(v.passphrase, salt, priv.Bytes())
	if err != nil {
		return types.WalletInfo{}, apperr.Crypto(err, "seal wallet secret")
	}

	rec := &walletRecord{
		id:        uuid.NewString(),
		address:   priv.PubKey().Address(),
		label:     label,
		createdAt: v.now(),
		encrypted: sealed,
		policy:    DefaultPolicy(),
	}

	v.mu.Lock()
	v.wallets[rec.id] = rec
	v.mu.Unlock()

	v.logger.Info("wallet created", "walletId", rec.id, "publicKey", rec.address.String())
	return toWalletInfo(rec), nil
}

// GetWallet returns the public view of a wallet.
func (v *Vault) GetWallet(id string) (types.WalletInfo, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	rec, ok := v.wallets[id]
	if !ok {
		return types.WalletInfo{}, apperr.NotFound("wallet %s", id)
	}
	return toWalletInfo(rec), nil
}

// GetPublicKey returns just the address for a wallet.
func (v *Vault) GetPublicKey(id string) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	rec, ok := v.wallets[id]
	if !ok {
		return "", apperr.NotFound("wallet %s", id)
	}
	return rec.address.String(), nil
}

// SignTransaction is the sole point where decryption occurs. The decrypted
// private key lives only in this call's stack frame and is zeroed before
// the function returns, including on every error path.
func (v *Vault) SignTransaction(id string, tx types.UnsignedTransaction) (types.SignedTransaction, error) {
	v.mu.Lock()
	rec, ok := v.wallets[id]
	var sealed []byte
	if ok {
		sealed = append([]byte(nil), rec.encrypted...)
	}
	v.mu.Unlock()
	if !ok {
		return types.SignedTransaction{}, apperr.NotFound("wallet %s", id)
	}

	plaintext, err := appcrypto.Open(v.passphrase, sealed)
	if err != nil {
		return types.SignedTransaction{}, apperr.Crypto(err, "decrypt wallet secret")
	}
	priv, err := appcrypto.PrivateKeyFromBytes(plaintext)
	for i := range plaintext {
		plaintext[i] = 0
	}
	if err != nil {
		return types.SignedTransaction{}, apperr.Crypto(err, "reconstruct private key")
	}

	sig := priv.Sign(tx.Message)
	return types.SignedTransaction{
		FeePayer:  tx.FeePayer,
		Message:   tx.Message,
		Signature: sig,
	}, nil
}

// ValidateIntent runs the pure policy-evaluation function against the
// wallet's current policy and daily counter.
func (v *Vault) ValidateIntent(id string, intent types.Intent, currentBalance, feeReserve *big.Int) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	rec, ok := v.wallets[id]
	if !ok {
		return apperr.NotFound("wallet %s", id)
	}
	return evaluatePolicy(rec.policy, rec.dailyCtr, intent, currentBalance, feeReserve)
}

// RecordTransfer increments the wallet's daily transfer counter. It shares
// the vault mutex with ValidateIntent so the read-then-increment sequence
// callers perform across the two calls is never clobbered by a concurrent
// daily reset.
func (v *Vault) RecordTransfer(id string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	rec, ok := v.wallets[id]
	if !ok {
		return apperr.NotFound("wallet %s", id)
	}
	rec.dailyCtr++
	return nil
}

// UpdatePolicy merges a patch into the wallet's policy and returns the
// resulting policy.
func (v *Vault) UpdatePolicy(id string, patch types.PolicyPatch) (types.Policy, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	rec, ok := v.wallets[id]
	if !ok {
		return types.Policy{}, apperr.NotFound("wallet %s", id)
	}
	rec.policy = applyPolicyPatch(rec.policy, patch)
	return rec.policy, nil
}

// DeleteWallet removes a wallet, its policy, and its counter. Every
// subsequent vault operation against id returns NotFound.
func (v *Vault) DeleteWallet(id string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.wallets[id]; !ok {
		return apperr.NotFound("wallet %s", id)
	}
	delete(v.wallets, id)
	return nil
}

func toWalletInfo(rec *walletRecord) types.WalletInfo {
	return types.WalletInfo{
		ID:        rec.id,
		PublicKey: rec.address.String(),
		Label:     rec.label,
		CreatedAt: rec.createdAt.UnixMilli(),
	}
}

// armDailyReset schedules resetDaily to fire at the next local-midnight
// boundary and has resetDaily reschedule itself after every trigger, per
// the host process's local timezone. The boundary choice is logged on every
// reset since the wall clock's timezone is otherwise implicit.
func (v *Vault) armDailyReset() {
	delay := nextMidnight(v.now())
	v.resetTimer = time.AfterFunc(delay, v.resetDaily)
}

func (v *Vault) resetDaily() {
	v.mu.Lock()
	for _, rec := range v.wallets {
		rec.dailyCtr = 0
	}
	count := len(v.wallets)
	v.mu.Unlock()

	loc := v.now().Location()
	v.logger.Info("daily transfer counters reset", "wallets", count, "timezone", loc.String())
	v.armDailyReset()
}

// Stop cancels the daily-reset timer; used by the composition root during
// graceful shutdown.
func (v *Vault) Stop() {
	if v.resetTimer != nil {
		v.resetTimer.Stop()
	}
}

func nextMidnight(now time.Time) time.Duration {
	year, month, day := now.Date()
	midnight := time.Date(year, month, day+1, 0, 0, 0, 0, now.Location())
	return midnight.Sub(now)
}
