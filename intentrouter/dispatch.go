package intentrouter

import (
	"context"
	"math/big"

	"github.com/nhb-labs/agentic-wallet/apperr"
	"github.com/nhb-labs/agentic-wallet/byoa"
	"github.com/nhb-labs/agentic-wallet/chain"
	"github.com/nhb-labs/agentic-wallet/types"
)

// dispatchAirdrop counts against the same daily-transfer limit as every
// other spend path, so it validates and records through the vault exactly
// like signAndSend even though it has no unsigned transaction of its own
// to estimate a fee against.
func (r *Router) dispatchAirdrop(ctx context.Context, agent *byoa.Agent, intent types.Intent) (map[string]interface{}, error) {
	balRes, err := r.client.GetBalance(ctx, agent.WalletPublicKey)
	if err != nil {
		return nil, apperr.Chain(err, "get balance for %s", agent.WalletPublicKey)
	}
	if err := r.vault.ValidateIntent(agent.WalletID, intent, balRes.Native, big.NewInt(0)); err != nil {
		return nil, err
	}

	result, err := r.client.RequestAirdrop(ctx, agent.WalletPublicKey, intent.Amount)
	if err != nil {
		return nil, apperr.Chain(err, "request airdrop for %s", agent.WalletPublicKey)
	}
	if err := r.vault.RecordTransfer(agent.WalletID); err != nil {
		r.logger.Error("record transfer after successful airdrop", "walletId", agent.WalletID, "error", err)
	}
	r.emitTransaction(agent.ID, string(types.TxConfirmed), result.Signature)
	return map[string]interface{}{"signature": result.Signature}, nil
}

func (r *Router) dispatchTransferSol(ctx context.Context, agent *byoa.Agent, intent types.Intent) (map[string]interface{}, error) {
	unsigned, err := r.client.BuildNativeTransfer(agent.WalletPublicKey, intent.Recipient, intent.Amount, "")
	if err != nil {
		return nil, err
	}
	return r.signAndSend(ctx, agent, unsigned, intent)
}

func (r *Router) dispatchTransferToken(ctx context.Context, agent *byoa.Agent, intent types.Intent) (map[string]interface{}, error) {
	unsigned, err := r.client.BuildTokenTransfer(agent.WalletPublicKey, intent.Mint, intent.Recipient, intent.Amount, 0, "")
	if err != nil {
		return nil, err
	}
	return r.signAndSend(ctx, agent, unsigned, intent)
}

func (r *Router) dispatchQueryBalance(ctx context.Context, agent *byoa.Agent) (map[string]interface{}, error) {
	bal, err := r.client.GetBalance(ctx, agent.WalletPublicKey)
	if err != nil {
		return nil, apperr.Chain(err, "get balance for %s", agent.WalletPublicKey)
	}
	return map[string]interface{}{"balance": bal.Native.String()}, nil
}

// dispatchAutonomous mirrors the Orchestrator's autonomous sub-dispatcher:
// recognised action values map 1:1 to internal executors, execute_instructions
// and raw_transaction rebind the fee payer and refresh the blockhash before
// signing, and an unknown action carrying an instructions[] array is
// forward-compatibly treated as execute_instructions.
func (r *Router) dispatchAutonomous(ctx context.Context, agent *byoa.Agent, intent types.Intent) (map[string]interface{}, error) {
	action := intent.Action
	if _, hasInstructions := intent.Params["instructions"]; hasInstructions {
		if !isRecognizedAutonomousAction(action) {
			action = "execute_instructions"
		}
	}

	switch action {
	case "airdrop":
		return r.dispatchAirdrop(ctx, agent, intent)
	case "transfer_sol":
		return r.dispatchTransferSol(ctx, agent, intent)
	case "transfer_token":
		return r.dispatchTransferToken(ctx, agent, intent)
	case "query_balance":
		return r.dispatchQueryBalance(ctx, agent)
	case "execute_instructions", "raw_transaction":
		return r.dispatchRawTransaction(ctx, agent, intent)
	case "swap":
		return r.dispatchTransferSol(ctx, agent, intent)
	case "create_token":
		return nil, apperr.Validation("create_token is not supported")
	default:
		return nil, apperr.Validation("unrecognized autonomous action %q", intent.Action)
	}
}

func isRecognizedAutonomousAction(action string) bool {
	switch action {
	case "airdrop", "transfer_sol", "transfer_token", "query_balance", "execute_instructions", "raw_transaction", "swap", "create_token":
		return true
	}
	return false
}

func (r *Router) dispatchRawTransaction(ctx context.Context, agent *byoa.Agent, intent types.Intent) (map[string]interface{}, error) {
	var unsigned types.UnsignedTransaction
	var err error
	if encoded, ok := intent.Params["transaction"].(string); ok && encoded != "" {
		unsigned, err = r.client.DeserializeAndRebindFeePayer(encoded, agent.WalletPublicKey)
	} else {
		instructions := decodeInstructions(intent.Params["instructions"])
		unsigned, err = r.client.BuildArbitraryTransaction(agent.WalletPublicKey, instructions, "")
	}
	if err != nil {
		return nil, err
	}
	return r.signAndSend(ctx, agent, unsigned, intent)
}

// decodeInstructions mirrors the Orchestrator's loose-typed decode of a
// caller-supplied instructions[] payload.
func decodeInstructions(raw interface{}) []chain.Instruction {
	list, ok := raw.([]interface{})
	if !ok {
		return nil
	}
	out := make([]chain.Instruction, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		instr := chain.Instruction{}
		if programID, ok := m["programId"].(string); ok {
			instr.ProgramID = programID
		}
		if data, ok := m["data"].(string); ok {
			instr.Data = []byte(data)
		}
		if accounts, ok := m["accounts"].([]interface{}); ok {
			for _, a := range accounts {
				if s, ok := a.(string); ok {
					instr.Accounts = append(instr.Accounts, s)
				}
			}
		}
		out = append(out, instr)
	}
	return out
}

// signAndSend runs the same build-validate-sign-send pipeline the
// Orchestrator uses. Unlike the Orchestrator, the router has no bounded
// transaction ledger of its own — it emits a Transaction event directly and
// lets the shared intent-history store carry the durable record.
func (r *Router) signAndSend(ctx context.Context, agent *byoa.Agent, unsigned types.UnsignedTransaction, intent types.Intent) (map[string]interface{}, error) {
	balRes, err := r.client.GetBalance(ctx, agent.WalletPublicKey)
	if err != nil {
		return nil, apperr.Chain(err, "get balance for %s", agent.WalletPublicKey)
	}
	feeReserve, err := r.client.EstimateFee(ctx, unsigned)
	if err != nil {
		return nil, apperr.Chain(err, "estimate fee")
	}
	if err := r.vault.ValidateIntent(agent.WalletID, intent, balRes.Native, feeReserve); err != nil {
		return nil, err
	}

	signed, err := r.vault.SignTransaction(agent.WalletID, unsigned)
	if err != nil {
		return nil, err
	}

	result, err := r.client.SendTransaction(ctx, signed, r.sendOpts)
	if err != nil {
		return nil, err
	}

	if err := r.vault.RecordTransfer(agent.WalletID); err != nil {
		r.logger.Error("record transfer after successful send", "walletId", agent.WalletID, "error", err)
	}
	r.emitTransaction(agent.ID, string(types.TxConfirmed), result.Signature)
	return map[string]interface{}{"signature": result.Signature}, nil
}

func (r *Router) emitTransaction(agentID, status, signature string) {
	r.bus.Emit(types.SystemEvent{
		Kind:      types.EventTransaction,
		AgentID:   agentID,
		Timestamp: r.now().UnixMilli(),
		Data:      map[string]interface{}{"status": status, "signature": signature},
	})
}
