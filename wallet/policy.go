package wallet

import (
	"math/big"

	"github.com/nhb-labs/agentic-wallet/apperr"
	"github.com/nhb-labs/agentic-wallet/types"
)

// autonomousSafetyFloor is the hard floor on residual balance applied to
// Autonomous intents regardless of how a wallet's policy is configured. It
// exists so a misconfigured (or zeroed) minResidualBalance can never let an
// autonomous action drain a wallet to exactly zero.
var autonomousSafetyFloor = big.NewInt(1_000_000) // 0.001 SOL in lamports

// DefaultPolicy returns the policy a freshly created wallet starts with.
func DefaultPolicy() types.Policy {
	return types.Policy{
		MaxTransferAmount:  big.NewInt(10_000_000_000), // 10 SOL
		MaxDailyTransfers:  20,
		MinResidualBalance: big.NewInt(5_000_000), // 0.005 SOL
	}
}

// evaluatePolicy is the pure decision function behind Vault.ValidateIntent.
// It takes no locks and performs no I/O: every input it needs — the policy,
// the wallet's current daily counter, the intent, the pre-fetched balance,
// and a fee reserve estimate — is supplied by the caller.
func evaluatePolicy(policy types.Policy, dailyCounter int, intent types.Intent, balance, feeReserve *big.Int) error {
	autonomous := intent.Kind == types.IntentAutonomous

	limit := policy.MaxDailyTransfers
	if autonomous {
		limit *= 2
	}
	if intent.Kind != types.IntentQueryBalance && dailyCounter >= limit {
		return apperr.PolicyViolation("daily transfer limit of %d exceeded", limit)
	}

	switch intent.Kind {
	case types.IntentTransferSol:
		return evaluateTransferSol(policy, intent, balance, feeReserve, autonomous)
	case types.IntentTransferToken:
		return evaluateTransferToken(policy, intent, balance, feeReserve, autonomous)
	case types.IntentAirdrop, types.IntentQueryBalance:
		return nil
	case types.IntentAutonomous:
		return evaluateAutonomous(policy, intent, balance, feeReserve)
	default:
		return apperr.Validation("unsupported intent kind %q", intent.Kind)
	}
}

func evaluateTransferSol(policy types.Policy, intent types.Intent, balance, feeReserve *big.Int, autonomous bool) error {
	capAmount := new(big.Int).Set(policy.MaxTransferAmount)
	if autonomous {
		capAmount.Mul(capAmount, big.NewInt(2))
	}
	if intent.Amount == nil || intent.Amount.Sign() <= 0 {
		return apperr.Validation("transfer amount must be positive")
	}
	if intent.Amount.Cmp(capAmount) > 0 {
		return apperr.PolicyViolation("amount %s exceeds max transfer %s", intent.Amount, capAmount)
	}

	residualFloor := residualFloorFor(policy, autonomous)
	remaining := new(big.Int).Sub(balance, intent.Amount)
	remaining.Sub(remaining, feeReserve)
	if remaining.Cmp(residualFloor) < 0 {
		return apperr.PolicyViolation("transfer would leave balance below minimum residual %s", residualFloor)
	}
	return checkRecipient(policy, intent.Recipient)
}

func evaluateTransferToken(policy types.Policy, intent types.Intent, balance, feeReserve *big.Int, autonomous bool) error {
	if intent.Amount == nil || intent.Amount.Sign() <= 0 {
		return apperr.Validation("token transfer amount must be positive")
	}
	residualFloor := residualFloorFor(policy, autonomous)
	remaining := new(big.Int).Sub(balance, feeReserve)
	if remaining.Cmp(residualFloor) < 0 {
		return apperr.PolicyViolation("transfer would leave native balance below minimum residual %s", residualFloor)
	}
	return checkRecipient(policy, intent.Recipient)
}

// evaluateAutonomous applies the relaxed-but-nonzero policy described in the
// design notes: the action is still admitted under doubled limits, never
// silently stripped, but the residual floor can never fall below the
// built-in safety floor.
func evaluateAutonomous(policy types.Policy, intent types.Intent, balance, feeReserve *big.Int) error {
	switch intent.Action {
	case "transfer_sol", "execute_instructions", "raw_transaction", "swap":
		if intent.Amount != nil {
			return evaluateTransferSol(policy, intentWithKind(intent, types.IntentTransferSol), balance, feeReserve, true)
		}
	case "transfer_token":
		if intent.Amount != nil {
			return evaluateTransferToken(policy, intentWithKind(intent, types.IntentTransferToken), balance, feeReserve, true)
		}
	}
	residualFloor := residualFloorFor(policy, true)
	remaining := new(big.Int).Sub(balance, feeReserve)
	if remaining.Cmp(residualFloor) < 0 {
		return apperr.PolicyViolation("autonomous action would leave balance below safety floor %s", residualFloor)
	}
	return nil
}

func intentWithKind(intent types.Intent, kind types.IntentKind) types.Intent {
	clone := intent
	clone.Kind = kind
	return clone
}

func residualFloorFor(policy types.Policy, autonomous bool) *big.Int {
	if !autonomous {
		return policy.MinResidualBalance
	}
	if policy.MinResidualBalance.Cmp(autonomousSafetyFloor) >= 0 {
		return policy.MinResidualBalance
	}
	return autonomousSafetyFloor
}

func checkRecipient(policy types.Policy, recipient string) error {
	if len(policy.AllowRecipients) > 0 && !contains(policy.AllowRecipients, recipient) {
		return apperr.PolicyViolation("recipient %s is not in the allow-list", recipient)
	}
	if contains(policy.DenyRecipients, recipient) {
		return apperr.PolicyViolation("recipient %s is deny-listed", recipient)
	}
	return nil
}

func contains(list []string, target string) bool {
	for _, item := range list {
		if item == target {
			return true
		}
	}
	return false
}

// applyPolicyPatch merges non-nil fields of a patch into an existing policy.
func applyPolicyPatch(policy types.Policy, patch types.PolicyPatch) types.Policy {
	if patch.MaxTransferAmount != nil {
		policy.MaxTransferAmount = patch.MaxTransferAmount
	}
	if patch.MaxDailyTransfers != nil {
		policy.MaxDailyTransfers = *patch.MaxDailyTransfers
	}
	if patch.MinResidualBalance != nil {
		policy.MinResidualBalance = patch.MinResidualBalance
	}
	if patch.AllowRecipients != nil {
		policy.AllowRecipients = patch.AllowRecipients
	}
	if patch.DenyRecipients != nil {
		policy.DenyRecipients = patch.DenyRecipients
	}
	return policy
}
