package strategy

import (
	"math/big"
	"testing"

	"github.com/nhb-labs/agentic-wallet/types"
)

func TestAccumulatorAirdropsBelowMinBalance(t *testing.T) {
	r := newTestRegistry(t)
	s, err := r.New("accumulator", map[string]interface{}{
		"targetBalance":     1.0,
		"minBalance":        0.5,
		"airdropAmount":     1.0,
		"maxAirdropsPerDay": float64(5),
	})
	if err != nil {
		t.Fatalf("construct: %v", err)
	}

	ctx := types.AgentContext{PublicKey: "self", Balance: solToLamports(0.2)}
	decision := s.Decide(ctx)

	if !decision.ShouldAct {
		t.Fatalf("expected accumulator to act below minBalance")
	}
	if decision.Intent.Kind != types.IntentAirdrop {
		t.Fatalf("expected an Airdrop intent, got %v", decision.Intent.Kind)
	}
	if decision.Intent.Amount.Cmp(solToLamports(1.0)) != 0 {
		t.Fatalf("expected airdrop amount of 1.0 SOL, got %s", decision.Intent.Amount)
	}

	acc := s.(*accumulator)
	if acc.airdropsToday != 1 {
		t.Fatalf("expected airdropsToday to be 1, got %d", acc.airdropsToday)
	}
}

func TestDistributorSkipsSelfAndAdvancesIndex(t *testing.T) {
	r := newTestRegistry(t)
	s, err := r.New("distributor", map[string]interface{}{
		"recipients":              []string{"self-address", "recipient-x"},
		"amount":                  0.1,
		"distributionProbability": float64(1.0),
	})
	if err != nil {
		t.Fatalf("construct: %v", err)
	}

	ctx := types.AgentContext{PublicKey: "self-address", Balance: big.NewInt(1_000_000_000)}

	first := s.Decide(ctx)
	if first.ShouldAct {
		t.Fatalf("expected first cycle (self) to be a no-act")
	}
	if first.Reasoning != "Skipping self as recipient" {
		t.Fatalf("expected self-skip reasoning, got %q", first.Reasoning)
	}

	second := s.Decide(ctx)
	if !second.ShouldAct {
		t.Fatalf("expected second cycle (recipient-x) to act")
	}
	if second.Intent.Recipient != "recipient-x" {
		t.Fatalf("expected transfer to recipient-x, got %s", second.Intent.Recipient)
	}

	dist := s.(*distributor)
	if dist.index != 2 {
		t.Fatalf("expected index to advance to 2 after two cycles, got %d", dist.index)
	}
}

func TestBalanceGuardOnlyActsBelowCriticalThreshold(t *testing.T) {
	r := newTestRegistry(t)
	s, err := r.New("balance_guard", map[string]interface{}{
		"criticalBalance": 0.05,
		"airdropAmount":   0.2,
	})
	if err != nil {
		t.Fatalf("construct: %v", err)
	}

	above := s.Decide(types.AgentContext{Balance: solToLamports(0.1)})
	if above.ShouldAct {
		t.Fatalf("expected no action above critical threshold")
	}

	below := s.Decide(types.AgentContext{Balance: solToLamports(0.01)})
	if !below.ShouldAct {
		t.Fatalf("expected action below critical threshold")
	}
}

func TestScheduledPayerRespectsDailyCap(t *testing.T) {
	r := newTestRegistry(t)
	s, err := r.New("scheduled_payer", map[string]interface{}{
		"recipient":         "payee",
		"amount":            0.5,
		"maxPaymentsPerDay": float64(1),
	})
	if err != nil {
		t.Fatalf("construct: %v", err)
	}

	ctx := types.AgentContext{PublicKey: "self"}
	first := s.Decide(ctx)
	if !first.ShouldAct {
		t.Fatalf("expected first payment to execute")
	}
	second := s.Decide(ctx)
	if second.ShouldAct {
		t.Fatalf("expected second payment same day to be capped")
	}

	s.ResetDaily()
	third := s.Decide(ctx)
	if !third.ShouldAct {
		t.Fatalf("expected payment to resume after daily reset")
	}
}
