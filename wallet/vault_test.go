package wallet

import (
	"math/big"
	"testing"
	"time"

	"github.com/nhb-labs/agentic-wallet/apperr"
	"github.com/nhb-labs/agentic-wallet/types"
)

func newTestVault() *Vault {
	return NewVault("test-passphrase-0123456789")
}

func TestCreateAndGetWallet(t *testing.T) {
	v := newTestVault()
	info, err := v.CreateWallet("agent-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if info.PublicKey == "" {
		t.Fatalf("expected a populated public key")
	}

	fetched, err := v.GetWallet(info.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if fetched.PublicKey != info.PublicKey {
		t.Fatalf("public key mismatch")
	}
}

func TestSignTransactionRoundTrip(t *testing.T) {
	v := newTestVault()
	info, err := v.CreateWallet("signer")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	signed, err := v.SignTransaction(info.ID, types.UnsignedTransaction{
		FeePayer: info.PublicKey,
		Message:  []byte("transfer instructions"),
	})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if len(signed.Signature) == 0 {
		t.Fatalf("expected a non-empty signature")
	}
}

func TestDeleteWalletMakesAllOperationsNotFound(t *testing.T) {
	v := newTestVault()
	info, err := v.CreateWallet("to-delete")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := v.DeleteWallet(info.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := v.GetWallet(info.ID); !apperr.Is(err, apperr.CodeNotFound) {
		t.Fatalf("expected NotFound from GetWallet, got %v", err)
	}
	if _, err := v.GetPublicKey(info.ID); !apperr.Is(err, apperr.CodeNotFound) {
		t.Fatalf("expected NotFound from GetPublicKey, got %v", err)
	}
	if _, err := v.SignTransaction(info.ID, types.UnsignedTransaction{}); !apperr.Is(err, apperr.CodeNotFound) {
		t.Fatalf("expected NotFound from SignTransaction, got %v", err)
	}
	if err := v.ValidateIntent(info.ID, types.Intent{Kind: types.IntentQueryBalance}, big.NewInt(0), big.NewInt(0)); !apperr.Is(err, apperr.CodeNotFound) {
		t.Fatalf("expected NotFound from ValidateIntent, got %v", err)
	}
	if err := v.RecordTransfer(info.ID); !apperr.Is(err, apperr.CodeNotFound) {
		t.Fatalf("expected NotFound from RecordTransfer, got %v", err)
	}
	if _, err := v.UpdatePolicy(info.ID, types.PolicyPatch{}); !apperr.Is(err, apperr.CodeNotFound) {
		t.Fatalf("expected NotFound from UpdatePolicy, got %v", err)
	}
	if err := v.DeleteWallet(info.ID); !apperr.Is(err, apperr.CodeNotFound) {
		t.Fatalf("expected NotFound from a second delete, got %v", err)
	}
}

func TestValidateIntentRejectsOverMaxTransfer(t *testing.T) {
	v := newTestVault()
	info, err := v.CreateWallet("policy-holder")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	policy := DefaultPolicy()
	over := new(big.Int).Add(policy.MaxTransferAmount, big.NewInt(1))

	intent := types.Intent{Kind: types.IntentTransferSol, Amount: over, Recipient: "recipient-address"}
	err = v.ValidateIntent(info.ID, intent, big.NewInt(1_000_000_000_000), big.NewInt(5000))
	if !apperr.Is(err, apperr.CodePolicyViolation) {
		t.Fatalf("expected PolicyViolation, got %v", err)
	}
}

func TestDailyResetIsAtomicWithCounter(t *testing.T) {
	v := newTestVault()
	info, err := v.CreateWallet("counter-holder")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := v.RecordTransfer(info.ID); err != nil {
		t.Fatalf("record: %v", err)
	}
	v.resetDaily()

	v.mu.Lock()
	ctr := v.wallets[info.ID].dailyCtr
	v.mu.Unlock()
	if ctr != 0 {
		t.Fatalf("expected daily counter reset to 0, got %d", ctr)
	}
}

func TestNextMidnightIsAlwaysInTheFuture(t *testing.T) {
	now := time.Date(2026, 7, 31, 23, 59, 58, 0, time.UTC)
	delay := nextMidnight(now)
	if delay <= 0 || delay > 2*time.Second {
		t.Fatalf("expected a short positive delay just before midnight, got %v", delay)
	}
}
