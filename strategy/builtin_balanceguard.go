package strategy

import (
	"fmt"
	"sync"

	"github.com/nhb-labs/agentic-wallet/types"
)

func balanceGuardDefinition() Definition {
	return Definition{
		Name:             "balance_guard",
		Label:            "Balance Guard",
		Description:      "Requests an airdrop only when the balance falls below a critical threshold.",
		Category:         "funding",
		Icon:             "shield",
		SupportedIntents: []types.IntentKind{types.IntentAirdrop, types.IntentQueryBalance},
		Params: []ParamField{
			{Key: "criticalBalance", Label: "Critical balance (SOL)", Type: FieldNumber, Required: true},
			{Key: "airdropAmount", Label: "Airdrop amount (SOL)", Type: FieldNumber, Required: true},
			{Key: "maxAirdropsPerDay", Label: "Max airdrops per day", Type: FieldNumber, Required: false, Default: float64(3)},
		},
		DefaultParams: map[string]interface{}{"maxAirdropsPerDay": float64(3)},
		Factory: func(params map[string]interface{}) (Strategy, error) {
			return &balanceGuard{
				criticalBalance:   numberParam(params, "criticalBalance", 0.1),
				airdropAmount:     numberParam(params, "airdropAmount", 0.5),
				maxAirdropsPerDay: intParam(params, "maxAirdropsPerDay", 3),
			}, nil
		},
	}
}

// balanceGuard is the simplest built-in strategy: a single critical
// threshold with no soft top-up band.
type balanceGuard struct {
	mu sync.Mutex

	criticalBalance   float64
	airdropAmount     float64
	maxAirdropsPerDay int
	airdropsToday     int
}

func (b *balanceGuard) Decide(ctx types.AgentContext) types.Decision {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.airdropsToday >= b.maxAirdropsPerDay {
		return types.Decision{ShouldAct: false, Reasoning: "daily airdrop cap reached"}
	}
	balanceSol := lamportsToSol(ctx.Balance)
	if balanceSol >= b.criticalBalance {
		return types.Decision{ShouldAct: false, Reasoning: "balance above critical threshold"}
	}
	b.airdropsToday++
	return types.Decision{
		ShouldAct: true,
		Intent:    &types.Intent{Kind: types.IntentAirdrop, Amount: solToLamports(b.airdropAmount)},
		Reasoning: fmt.Sprintf("balance %.4f SOL below critical threshold %.4f SOL", balanceSol, b.criticalBalance),
	}
}

func (b *balanceGuard) ResetDaily() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.airdropsToday = 0
}
