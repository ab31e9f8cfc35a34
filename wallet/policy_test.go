package wallet

import (
	"math/big"
	"testing"

	"github.com/nhb-labs/agentic-wallet/apperr"
	"github.com/nhb-labs/agentic-wallet/types"
)

func basicPolicy() types.Policy {
	return types.Policy{
		MaxTransferAmount:  big.NewInt(1000),
		MaxDailyTransfers:  3,
		MinResidualBalance: big.NewInt(100),
	}
}

func TestEvaluatePolicyDailyLimit(t *testing.T) {
	intent := types.Intent{Kind: types.IntentTransferSol, Amount: big.NewInt(1), Recipient: "r"}
	err := evaluatePolicy(basicPolicy(), 3, intent, big.NewInt(10_000), big.NewInt(0))
	if !apperr.Is(err, apperr.CodePolicyViolation) {
		t.Fatalf("expected daily limit violation, got %v", err)
	}
}

func TestEvaluatePolicyResidualFloor(t *testing.T) {
	policy := basicPolicy()
	intent := types.Intent{Kind: types.IntentTransferSol, Amount: big.NewInt(950), Recipient: "r"}
	err := evaluatePolicy(policy, 0, intent, big.NewInt(1000), big.NewInt(10))
	if !apperr.Is(err, apperr.CodePolicyViolation) {
		t.Fatalf("expected residual-balance violation, got %v", err)
	}
}

func TestEvaluatePolicyAllowDenyLists(t *testing.T) {
	policy := basicPolicy()
	policy.AllowRecipients = []string{"good"}
	intent := types.Intent{Kind: types.IntentTransferSol, Amount: big.NewInt(1), Recipient: "bad"}
	if err := evaluatePolicy(policy, 0, intent, big.NewInt(100_000), big.NewInt(0)); !apperr.Is(err, apperr.CodePolicyViolation) {
		t.Fatalf("expected allow-list rejection, got %v", err)
	}

	policy = basicPolicy()
	policy.DenyRecipients = []string{"blocked"}
	intent = types.Intent{Kind: types.IntentTransferSol, Amount: big.NewInt(1), Recipient: "blocked"}
	if err := evaluatePolicy(policy, 0, intent, big.NewInt(100_000), big.NewInt(0)); !apperr.Is(err, apperr.CodePolicyViolation) {
		t.Fatalf("expected deny-list rejection, got %v", err)
	}
}

func TestEvaluatePolicyAirdropAndQueryBalanceUnrestricted(t *testing.T) {
	policy := basicPolicy()
	if err := evaluatePolicy(policy, 2, types.Intent{Kind: types.IntentAirdrop, Amount: big.NewInt(999_999)}, big.NewInt(0), big.NewInt(0)); err != nil {
		t.Fatalf("expected airdrop to pass policy, got %v", err)
	}
	if err := evaluatePolicy(policy, 2, types.Intent{Kind: types.IntentQueryBalance}, big.NewInt(0), big.NewInt(0)); err != nil {
		t.Fatalf("expected query balance to pass policy, got %v", err)
	}
}

func TestEvaluatePolicyAutonomousRelaxedLimits(t *testing.T) {
	policy := basicPolicy()
	// Counter is at the non-autonomous limit (3) but below the doubled
	// autonomous limit (6), so an autonomous intent must still be admitted.
	intent := types.Intent{Kind: types.IntentAutonomous, Action: "query_balance"}
	if err := evaluatePolicy(policy, 3, intent, big.NewInt(10_000_000), big.NewInt(0)); err != nil {
		t.Fatalf("expected autonomous intent under doubled cap to pass, got %v", err)
	}

	atDoubledLimit := evaluatePolicy(policy, 6, intent, big.NewInt(10_000_000), big.NewInt(0))
	if !apperr.Is(atDoubledLimit, apperr.CodePolicyViolation) {
		t.Fatalf("expected autonomous intent at doubled cap to be rejected, got %v", atDoubledLimit)
	}
}

func TestEvaluatePolicyAutonomousSafetyFloorNeverZero(t *testing.T) {
	policy := basicPolicy()
	policy.MinResidualBalance = big.NewInt(0)
	intent := types.Intent{Kind: types.IntentAutonomous, Action: "raw_transaction", Amount: big.NewInt(1)}
	// Balance barely above zero after fees: the built-in safety floor should
	// still reject this even though the configured residual minimum is 0.
	err := evaluatePolicy(policy, 0, intent, big.NewInt(1001), big.NewInt(0))
	if !apperr.Is(err, apperr.CodePolicyViolation) {
		t.Fatalf("expected safety-floor rejection, got %v", err)
	}
}

func TestEvaluatePolicyUnsupportedIntent(t *testing.T) {
	err := evaluatePolicy(basicPolicy(), 0, types.Intent{Kind: "bogus"}, big.NewInt(0), big.NewInt(0))
	if !apperr.Is(err, apperr.CodeValidation) {
		t.Fatalf("expected validation error for unsupported kind, got %v", err)
	}
}

func TestApplyPolicyPatchOnlyOverwritesSetFields(t *testing.T) {
	policy := basicPolicy()
	newMax := 7
	patched := applyPolicyPatch(policy, types.PolicyPatch{MaxDailyTransfers: &newMax})
	if patched.MaxDailyTransfers != 7 {
		t.Fatalf("expected MaxDailyTransfers to update to 7, got %d", patched.MaxDailyTransfers)
	}
	if patched.MaxTransferAmount.Cmp(policy.MaxTransferAmount) != 0 {
		t.Fatalf("expected MaxTransferAmount to be left unchanged")
	}
}
