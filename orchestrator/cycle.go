package orchestrator

import (
	"context"
	"math/big"

	"github.com/google/uuid"

	"github.com/nhb-labs/agentic-wallet/apperr"
	"github.com/nhb-labs/agentic-wallet/chain"
	"github.com/nhb-labs/agentic-wallet/types"
)

// runCycle drives one managed agent through a single decide-then-execute
// pass. It is invoked both on a ticker fire and once immediately on
// startAgent; the cycleInProgress flag guarantees at most one in flight per
// agent at any instant, so a slow cycle simply causes the next tick to be
// dropped rather than queued.
func (o *Orchestrator) runCycle(agentID string) {
	o.mu.Lock()
	agent, ok := o.agents[agentID]
	if !ok || agent.info.Status == types.AgentStatusStopped {
		o.mu.Unlock()
		return
	}
	o.mu.Unlock()

	if !atomicTryAcquire(&agent.cycleInProgress) {
		return
	}
	defer atomicRelease(&agent.cycleInProgress)

	ctx := context.Background()
	o.setStatus(agent, types.AgentStatusThinking)

	agentCtx, err := o.assembleContext(ctx, agent)
	if err != nil {
		o.setError(agent, err)
		return
	}

	decision := agent.strategy.Decide(agentCtx)

	action := "decided_to_wait"
	if decision.ShouldAct {
		action = "decided_to_act"
	}
	o.bus.Emit(types.SystemEvent{
		Kind:      types.EventAgentAction,
		AgentID:   agentID,
		Timestamp: o.now().UnixMilli(),
		Data:      map[string]interface{}{"action": action, "reasoning": decision.Reasoning},
	})

	if decision.ShouldAct && decision.Intent != nil {
		o.setStatus(agent, types.AgentStatusExecuting)
		if err := o.executeIntent(ctx, agent, *decision.Intent, agentCtx.Balance); err != nil {
			o.setError(agent, err)
			return
		}
	}

	o.mu.Lock()
	agent.actionsToday++
	agent.info.LastActionAt = o.now().UnixMilli()
	agent.info.Status = types.AgentStatusIdle
	agent.info.ErrorMessage = ""
	o.mu.Unlock()
}

func (o *Orchestrator) setStatus(agent *managedAgent, status types.AgentStatus) {
	o.mu.Lock()
	agent.info.Status = status
	o.mu.Unlock()
	o.bus.Emit(types.SystemEvent{Kind: types.EventAgentStatusChanged, AgentID: agent.info.ID, Timestamp: o.now().UnixMilli(), Data: map[string]interface{}{"status": status}})
}

func (o *Orchestrator) setError(agent *managedAgent, err error) {
	o.mu.Lock()
	agent.info.Status = types.AgentStatusError
	agent.info.ErrorMessage = err.Error()
	o.mu.Unlock()
	o.bus.Emit(types.SystemEvent{Kind: types.EventSystemError, AgentID: agent.info.ID, Timestamp: o.now().UnixMilli(), Data: map[string]interface{}{"error": err.Error()}})
	o.logger.Error("agent cycle failed", "agentId", agent.info.ID, "error", err)
}

// assembleContext gathers the chain state a strategy's decide function
// needs: current balance, token holdings, and the wallet's most recent
// signed transaction signatures.
func (o *Orchestrator) assembleContext(ctx context.Context, agent *managedAgent) (types.AgentContext, error) {
	pubKey := agent.info.WalletPublicKey
	balRes, err := o.client.GetBalance(ctx, pubKey)
	if err != nil {
		return types.AgentContext{}, apperr.Chain(err, "get balance for %s", pubKey)
	}
	tokenBalances, err := o.client.GetTokenBalances(ctx, pubKey)
	if err != nil {
		return types.AgentContext{}, apperr.Chain(err, "get token balances for %s", pubKey)
	}
	return types.AgentContext{
		PublicKey:        pubKey,
		Balance:          balRes.Native,
		TokenBalances:    tokenBalances,
		RecentSignatures: o.recentSignatures(agent.info.WalletID, recentSignatureDepth),
	}, nil
}

func (o *Orchestrator) recentSignatures(walletID string, depth int) []string {
	records := o.txLedger.forWallet(walletID)
	out := make([]string, 0, depth)
	for i := len(records) - 1; i >= 0 && len(out) < depth; i-- {
		if records[i].Signature != "" {
			out = append(out, records[i].Signature)
		}
	}
	return out
}

// executeIntent dispatches a decided intent to its executor and writes a
// shared intent-history record mapping the internal kind to the canonical
// enum string table.
func (o *Orchestrator) executeIntent(ctx context.Context, agent *managedAgent, intent types.Intent, balance *big.Int) error {
	intent.AgentID = agent.info.ID
	if intent.ID == "" {
		intent.ID = uuid.NewString()
	}
	if intent.Timestamp == 0 {
		intent.Timestamp = o.now().UnixMilli()
	}

	switch intent.Kind {
	case types.IntentAirdrop:
		return o.executeAirdrop(ctx, agent, intent, balance)
	case types.IntentTransferSol:
		return o.executeTransferSol(ctx, agent, intent, balance)
	case types.IntentTransferToken:
		return o.executeTransferToken(ctx, agent, intent, balance)
	case types.IntentQueryBalance:
		return o.executeQueryBalance(agent, intent, balance)
	case types.IntentAutonomous:
		return o.executeAutonomous(ctx, agent, intent, balance)
	default:
		err := apperr.Validation("unknown intent kind %q", intent.Kind)
		o.recordHistory(intent, types.HistoryAutonomous, types.OutcomeRejected, nil, err)
		return err
	}
}

// executeAirdrop counts against the same daily-transfer limit as every
// other spend path, so it validates and records through the vault exactly
// like signAndSend even though it has no unsigned transaction of its own
// to estimate a fee against.
func (o *Orchestrator) executeAirdrop(ctx context.Context, agent *managedAgent, intent types.Intent, balance *big.Int) error {
	if err := o.vault.ValidateIntent(agent.info.WalletID, intent, balance, big.NewInt(0)); err != nil {
		o.recordHistory(intent, types.HistoryRequestAirdrop, types.OutcomeRejected, nil, err)
		return err
	}

	txID := o.txLedger.begin(agent.info.WalletID, types.IntentAirdrop, intent.Amount, "", "", o.now().UnixMilli())
	result, err := o.client.RequestAirdrop(ctx, agent.info.WalletPublicKey, intent.Amount)
	if err != nil {
		o.failTx(txID, err)
		o.recordHistory(intent, types.HistoryRequestAirdrop, types.OutcomeRejected, nil, err)
		return err
	}
	if err := o.vault.RecordTransfer(agent.info.WalletID); err != nil {
		o.logger.Error("record transfer after successful airdrop", "walletId", agent.info.WalletID, "error", err)
	}
	o.confirmTx(agent, txID, result.Signature)
	o.recordHistory(intent, types.HistoryRequestAirdrop, types.OutcomeExecuted, map[string]interface{}{"signature": result.Signature}, nil)
	return nil
}

func (o *Orchestrator) executeTransferSol(ctx context.Context, agent *managedAgent, intent types.Intent, balance *big.Int) error {
	unsigned, err := o.client.BuildNativeTransfer(agent.info.WalletPublicKey, intent.Recipient, intent.Amount, "")
	if err != nil {
		o.recordHistory(intent, types.HistoryTransferSol, types.OutcomeRejected, nil, err)
		return err
	}
	result, err := o.signAndSend(ctx, agent, types.IntentTransferSol, intent.Amount, intent.Recipient, "", unsigned, intent, balance)
	if err != nil {
		o.recordHistory(intent, types.HistoryTransferSol, types.OutcomeRejected, nil, err)
		return err
	}
	o.recordHistory(intent, types.HistoryTransferSol, types.OutcomeExecuted, map[string]interface{}{"signature": result.Signature}, nil)
	return nil
}

func (o *Orchestrator) executeTransferToken(ctx context.Context, agent *managedAgent, intent types.Intent, balance *big.Int) error {
	unsigned, err := o.client.BuildTokenTransfer(agent.info.WalletPublicKey, intent.Mint, intent.Recipient, intent.Amount, 0, "")
	if err != nil {
		o.recordHistory(intent, types.HistoryTransferToken, types.OutcomeRejected, nil, err)
		return err
	}
	result, err := o.signAndSend(ctx, agent, types.IntentTransferToken, intent.Amount, intent.Recipient, intent.Mint, unsigned, intent, balance)
	if err != nil {
		o.recordHistory(intent, types.HistoryTransferToken, types.OutcomeRejected, nil, err)
		return err
	}
	o.recordHistory(intent, types.HistoryTransferToken, types.OutcomeExecuted, map[string]interface{}{"signature": result.Signature}, nil)
	return nil
}

func (o *Orchestrator) executeQueryBalance(agent *managedAgent, intent types.Intent, balance *big.Int) error {
	o.recordHistory(intent, types.HistoryQueryBalance, types.OutcomeExecuted, map[string]interface{}{"balance": balance.String()}, nil)
	return nil
}

// executeAutonomous dispatches on intent.Action. execute_instructions and
// raw_transaction rebind the fee payer to the agent's own wallet and refresh
// the blockhash (DeserializeAndRebindFeePayer's job) before signing.
// Unknown actions carrying an instructions payload are forward-compatibly
// treated as execute_instructions.
func (o *Orchestrator) executeAutonomous(ctx context.Context, agent *managedAgent, intent types.Intent, balance *big.Int) error {
	action := intent.Action
	if _, hasInstructions := intent.Params["instructions"]; hasInstructions {
		if !isRecognizedAutonomousAction(action) {
			action = "execute_instructions"
		}
	}

	switch action {
	case "airdrop":
		return o.executeAutonomousAirdrop(ctx, agent, intent, balance)
	case "transfer_sol":
		return o.executeAutonomousTransferSol(ctx, agent, intent, balance)
	case "transfer_token":
		return o.executeAutonomousTransferToken(ctx, agent, intent, balance)
	case "query_balance":
		o.recordHistory(intent, types.HistoryAutonomous, types.OutcomeExecuted, map[string]interface{}{"balance": balance.String()}, nil)
		return nil
	case "execute_instructions", "raw_transaction":
		return o.executeAutonomousRawTransaction(ctx, agent, intent, balance)
	case "swap":
		return o.executeAutonomousTransferSol(ctx, agent, intent, balance)
	case "create_token":
		o.recordHistory(intent, types.HistoryAutonomous, types.OutcomeRejected, nil, apperr.Validation("create_token is not backed by a chain operation in this environment"))
		return apperr.Validation("create_token is not supported")
	default:
		err := apperr.Validation("unrecognized autonomous action %q", intent.Action)
		o.recordHistory(intent, types.HistoryAutonomous, types.OutcomeRejected, nil, err)
		return err
	}
}

func isRecognizedAutonomousAction(action string) bool {
	switch action {
	case "airdrop", "transfer_sol", "transfer_token", "query_balance", "execute_instructions", "raw_transaction", "swap", "create_token":
		return true
	}
	return false
}

func (o *Orchestrator) executeAutonomousAirdrop(ctx context.Context, agent *managedAgent, intent types.Intent, balance *big.Int) error {
	if err := o.vault.ValidateIntent(agent.info.WalletID, intent, balance, big.NewInt(0)); err != nil {
		o.recordHistory(intent, types.HistoryAutonomous, types.OutcomeRejected, nil, err)
		return err
	}

	txID := o.txLedger.begin(agent.info.WalletID, types.IntentAirdrop, intent.Amount, "", "", o.now().UnixMilli())
	result, err := o.client.RequestAirdrop(ctx, agent.info.WalletPublicKey, intent.Amount)
	if err != nil {
		o.failTx(txID, err)
		o.recordHistory(intent, types.HistoryAutonomous, types.OutcomeRejected, nil, err)
		return err
	}
	if err := o.vault.RecordTransfer(agent.info.WalletID); err != nil {
		o.logger.Error("record transfer after successful airdrop", "walletId", agent.info.WalletID, "error", err)
	}
	o.confirmTx(agent, txID, result.Signature)
	o.recordHistory(intent, types.HistoryAutonomous, types.OutcomeExecuted, map[string]interface{}{"signature": result.Signature}, nil)
	return nil
}

func (o *Orchestrator) executeAutonomousTransferSol(ctx context.Context, agent *managedAgent, intent types.Intent, balance *big.Int) error {
	unsigned, err := o.client.BuildNativeTransfer(agent.info.WalletPublicKey, intent.Recipient, intent.Amount, "")
	if err != nil {
		o.recordHistory(intent, types.HistoryAutonomous, types.OutcomeRejected, nil, err)
		return err
	}
	result, err := o.signAndSend(ctx, agent, types.IntentTransferSol, intent.Amount, intent.Recipient, "", unsigned, intent, balance)
	if err != nil {
		o.recordHistory(intent, types.HistoryAutonomous, types.OutcomeRejected, nil, err)
		return err
	}
	o.recordHistory(intent, types.HistoryAutonomous, types.OutcomeExecuted, map[string]interface{}{"signature": result.Signature}, nil)
	return nil
}

func (o *Orchestrator) executeAutonomousTransferToken(ctx context.Context, agent *managedAgent, intent types.Intent, balance *big.Int) error {
	unsigned, err := o.client.BuildTokenTransfer(agent.info.WalletPublicKey, intent.Mint, intent.Recipient, intent.Amount, 0, "")
	if err != nil {
		o.recordHistory(intent, types.HistoryAutonomous, types.OutcomeRejected, nil, err)
		return err
	}
	result, err := o.signAndSend(ctx, agent, types.IntentTransferToken, intent.Amount, intent.Recipient, intent.Mint, unsigned, intent, balance)
	if err != nil {
		o.recordHistory(intent, types.HistoryAutonomous, types.OutcomeRejected, nil, err)
		return err
	}
	o.recordHistory(intent, types.HistoryAutonomous, types.OutcomeExecuted, map[string]interface{}{"signature": result.Signature}, nil)
	return nil
}

func (o *Orchestrator) executeAutonomousRawTransaction(ctx context.Context, agent *managedAgent, intent types.Intent, balance *big.Int) error {
	var unsigned types.UnsignedTransaction
	var err error
	if encoded, ok := intent.Params["transaction"].(string); ok && encoded != "" {
		unsigned, err = o.client.DeserializeAndRebindFeePayer(encoded, agent.info.WalletPublicKey)
	} else {
		instructions := decodeInstructions(intent.Params["instructions"])
		unsigned, err = o.client.BuildArbitraryTransaction(agent.info.WalletPublicKey, instructions, "")
	}
	if err != nil {
		o.recordHistory(intent, types.HistoryAutonomous, types.OutcomeRejected, nil, err)
		return err
	}

	result, err := o.signAndSend(ctx, agent, types.IntentAutonomous, nil, "", "", unsigned, intent, balance)
	if err != nil {
		o.recordHistory(intent, types.HistoryAutonomous, types.OutcomeRejected, nil, err)
		return err
	}
	o.recordHistory(intent, types.HistoryAutonomous, types.OutcomeExecuted, map[string]interface{}{"signature": result.Signature}, nil)
	return nil
}

// decodeInstructions best-effort converts the loosely-typed params payload
// of an execute_instructions/raw_transaction autonomous intent into chain
// Instruction values; malformed entries are skipped rather than rejecting
// the whole batch, since the chain client re-validates on build.
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

// signAndSend runs the shared build-policy-sign-send-record pipeline every
// transfer path uses: estimate the fee, validate against the (possibly
// relaxed) policy, insert a pending ledger row, sign, send, and record the
// transfer on success.
func (o *Orchestrator) signAndSend(ctx context.Context, agent *managedAgent, recordKind types.IntentKind, amount *big.Int, recipient, mint string, unsigned types.UnsignedTransaction, validateIntent types.Intent, balance *big.Int) (chain.SendResult, error) {
	feeReserve, err := o.client.EstimateFee(ctx, unsigned)
	if err != nil {
		return chain.SendResult{}, apperr.Chain(err, "estimate fee")
	}
	if err := o.vault.ValidateIntent(agent.info.WalletID, validateIntent, balance, feeReserve); err != nil {
		return chain.SendResult{}, err
	}

	txID := o.txLedger.begin(agent.info.WalletID, recordKind, amount, recipient, mint, o.now().UnixMilli())

	signed, err := o.vault.SignTransaction(agent.info.WalletID, unsigned)
	if err != nil {
		o.failTx(txID, err)
		return chain.SendResult{}, err
	}

	result, err := o.client.SendTransaction(ctx, signed, o.sendOpts)
	if err != nil {
		o.failTx(txID, err)
		return chain.SendResult{}, err
	}

	if err := o.vault.RecordTransfer(agent.info.WalletID); err != nil {
		o.logger.Error("record transfer after successful send", "walletId", agent.info.WalletID, "error", err)
	}
	o.confirmTx(agent, txID, result.Signature)
	return result, nil
}

func (o *Orchestrator) confirmTx(agent *managedAgent, txID, signature string) {
	o.txLedger.update(txID, types.TxConfirmed, signature, "", o.now().UnixMilli())
	o.bus.Emit(types.SystemEvent{
		Kind:      types.EventTransaction,
		AgentID:   agent.info.ID,
		Timestamp: o.now().UnixMilli(),
		Data:      map[string]interface{}{"transactionId": txID, "status": string(types.TxConfirmed), "signature": signature},
	})
}

func (o *Orchestrator) failTx(txID string, err error) {
	o.txLedger.update(txID, types.TxFailed, "", err.Error(), o.now().UnixMilli())
}

// recordHistory writes one entry to the shared intent-history store,
// independent of whether the on-chain action succeeded.
func (o *Orchestrator) recordHistory(intent types.Intent, historyType types.IntentHistoryType, outcome types.IntentOutcome, result map[string]interface{}, err error) {
	rec := types.IntentHistoryRecord{
		IntentID:  intent.ID,
		AgentID:   intent.AgentID,
		Type:      historyType,
		Status:    outcome,
		Result:    result,
		CreatedAt: o.now().UnixMilli(),
	}
	if intent.Kind == types.IntentAutonomous {
		params := map[string]interface{}{"action": intent.Action}
		for k, v := range intent.Params {
			params[k] = v
		}
		rec.Params = params
	}
	if err != nil {
		rec.Error = err.Error()
	}
	o.history.Append(rec)
}
