package strategy

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/nhb-labs/agentic-wallet/types"
)

func accumulatorDefinition() Definition {
	return Definition{
		Name:             "accumulator",
		Label:            "Accumulator",
		Description:      "Requests airdrops when balance drops below a threshold and occasionally tops up toward a target.",
		Category:         "funding",
		Icon:             "droplet",
		SupportedIntents: []types.IntentKind{types.IntentAirdrop, types.IntentQueryBalance},
		Params: []ParamField{
			{Key: "targetBalance", Label: "Target balance (SOL)", Type: FieldNumber, Required: true},
			{Key: "minBalance", Label: "Minimum balance (SOL)", Type: FieldNumber, Required: true},
			{Key: "airdropAmount", Label: "Airdrop amount (SOL)", Type: FieldNumber, Required: true},
			{Key: "maxAirdropsPerDay", Label: "Max airdrops per day", Type: FieldNumber, Required: false, Default: float64(5)},
		},
		DefaultParams: map[string]interface{}{"maxAirdropsPerDay": float64(5)},
		Factory: func(params map[string]interface{}) (Strategy, error) {
			return &accumulator{
				targetBalance:     numberParam(params, "targetBalance", 1.0),
				minBalance:        numberParam(params, "minBalance", 0.5),
				airdropAmount:     numberParam(params, "airdropAmount", 1.0),
				maxAirdropsPerDay: intParam(params, "maxAirdropsPerDay", 5),
				rng:               rand.New(rand.NewSource(1)),
			}, nil
		},
	}
}

// accumulator requests airdrops below minBalance and soft-tops toward
// targetBalance with low probability while between the two thresholds.
type accumulator struct {
	mu sync.Mutex

	targetBalance     float64
	minBalance        float64
	airdropAmount     float64
	maxAirdropsPerDay int
	airdropsToday     int
	rng               *rand.Rand
}

const softTopUpProbability = 0.1

func (a *accumulator) Decide(ctx types.AgentContext) types.Decision {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.airdropsToday >= a.maxAirdropsPerDay {
		return types.Decision{ShouldAct: false, Reasoning: "daily airdrop cap reached"}
	}

	balanceSol := lamportsToSol(ctx.Balance)
	switch {
	case balanceSol < a.minBalance:
		a.airdropsToday++
		return types.Decision{
			ShouldAct: true,
			Intent:    &types.Intent{Kind: types.IntentAirdrop, Amount: solToLamports(a.airdropAmount)},
			Reasoning: fmt.Sprintf("balance %.4f SOL below minimum %.4f SOL", balanceSol, a.minBalance),
		}
	case balanceSol < a.targetBalance && a.rng.Float64() < softTopUpProbability:
		a.airdropsToday++
		return types.Decision{
			ShouldAct: true,
			Intent:    &types.Intent{Kind: types.IntentAirdrop, Amount: solToLamports(a.airdropAmount)},
			Reasoning: fmt.Sprintf("soft top-up toward target %.4f SOL", a.targetBalance),
		}
	default:
		return types.Decision{ShouldAct: false, Reasoning: "balance within acceptable range"}
	}
}

func (a *accumulator) ResetDaily() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.airdropsToday = 0
}
