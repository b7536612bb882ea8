package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/davecgh/go-spew/spew"
	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/krnl-labs/krnl-go/client/chain"
	"github.com/krnl-labs/krnl-go/client/signer"
	"github.com/krnl-labs/krnl-go/constants"
	"github.com/krnl-labs/krnl-go/logger"
	"github.com/krnl-labs/krnl-go/types/business"
	"go.uber.org/zap"
)

// ExecutionNode is the remote collaborator that carries out submitted
// workflow documents.
type ExecutionNode interface {
	ExecuteWorkflow(ctx context.Context, workflow map[string]interface{}) (json.RawMessage, string, error)
}

// WorkflowService submits finished intent workflows to the execution node
// and polls chain event logs for the matching completion event. Submission
// accepted, confirmation found and timeout are three independently
// observable outcomes.
type WorkflowService struct {
	node    ExecutionNode
	reader  chain.Reader
	intents *IntentService
	signer  signer.Signer
	valid   *ValidatorService

	pollInterval   time.Duration
	lookbackBlocks uint64

	// The sender's on-chain nonce is the only contended resource: two
	// in-flight intents for one sender race against nonce advancement, so
	// nonce-consuming flows are serialized per sender.
	senderLocks sync.Map

	logger *zap.Logger
}

// WorkflowServiceConfig configures the workflow service.
type WorkflowServiceConfig struct {
	PollInterval   time.Duration
	LookbackBlocks uint64
}

// NewWorkflowService creates the workflow submitter and confirmation poller.
func NewWorkflowService(
	node ExecutionNode,
	reader chain.Reader,
	intents *IntentService,
	sgnr signer.Signer,
	valid *ValidatorService,
	cfg WorkflowServiceConfig,
) *WorkflowService {
	pollInterval := cfg.PollInterval
	if pollInterval == 0 {
		pollInterval = constants.DefaultPollInterval
	}
	lookback := cfg.LookbackBlocks
	if lookback == 0 {
		lookback = constants.DefaultLogLookbackBlocks
	}

	return &WorkflowService{
		node:           node,
		reader:         reader,
		intents:        intents,
		signer:         sgnr,
		valid:          valid,
		pollInterval:   pollInterval,
		lookbackBlocks: lookback,
		logger:         logger.Log,
	}
}

// Submit performs the single request/response call to the execution node.
// The pre-flight check rejects any document that still contains an
// unresolved placeholder token.
func (s *WorkflowService) Submit(ctx context.Context, workflow map[string]interface{}) (*business.SubmissionResult, error) {
	if unresolved := UnresolvedPlaceholders(workflow); len(unresolved) > 0 {
		return nil, &business.ValidationError{
			Field:  "workflow",
			Reason: fmt.Sprintf("unresolved placeholders: %s", strings.Join(unresolved, "; ")),
		}
	}

	if s.logger.Core().Enabled(zap.DebugLevel) {
		s.logger.Debug("Submitting workflow document", zap.String("payload", spew.Sdump(workflow)))
	}

	result, requestID, err := s.node.ExecuteWorkflow(ctx, workflow)
	if err != nil {
		return nil, err
	}

	return &business.SubmissionResult{
		RequestID:   requestID,
		Result:      result,
		SubmittedAt: time.Now(),
	}, nil
}

// AwaitConfirmation polls the delegated account's event logs on a fixed
// interval until a log whose indexed intent-id topic equals intentID
// appears, or the timeout elapses. The scan range is bounded to the recent
// past; it never starts at genesis. The poller always terminates within
// timeout plus one poll interval.
func (s *WorkflowService) AwaitConfirmation(
	ctx context.Context,
	intentID common.Hash,
	account common.Address,
	timeout time.Duration,
) (*business.ConfirmationResult, error) {
	eventTopic := crypto.Keccak256Hash([]byte(constants.IntentExecutedEventSig))

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		if result := s.findConfirmation(ctx, intentID, account, eventTopic); result != nil {
			return result, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			s.logger.Warn("Confirmation poll timed out",
				zap.String("intent_id", intentID.Hex()),
				zap.Duration("timeout", timeout),
			)
			return nil, &business.ConfirmationTimeoutError{Subject: intentID, Timeout: timeout}
		case <-ticker.C:
		}
	}
}

// findConfirmation runs one polling cycle. Transient RPC errors are logged
// and absorbed; the next cycle re-reads everything fresh.
func (s *WorkflowService) findConfirmation(
	ctx context.Context,
	intentID common.Hash,
	account common.Address,
	eventTopic common.Hash,
) *business.ConfirmationResult {
	head, err := s.reader.BlockNumber(ctx)
	if err != nil {
		s.logger.Warn("Failed to read head block during poll", zap.Error(err))
		return nil
	}

	fromBlock := uint64(0)
	if head > s.lookbackBlocks {
		fromBlock = head - s.lookbackBlocks
	}

	logs, err := s.reader.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(head),
		Addresses: []common.Address{account},
		Topics:    [][]common.Hash{{eventTopic}, {intentID}},
	})
	if err != nil {
		s.logger.Warn("Log query failed during poll", zap.Error(err))
		return nil
	}
	if len(logs) == 0 {
		return nil
	}

	// First match wins; stop polling.
	match := logs[0]
	eventArgs := map[string]interface{}{
		"intent_id": intentID.Hex(),
	}
	if len(match.Topics) > 2 {
		eventArgs["executor"] = common.BytesToAddress(match.Topics[2].Bytes()).Hex()
	}
	if len(match.Data) > 0 {
		eventArgs["data"] = hexutil.Encode(match.Data)
	}

	// Gas accounting from the receipt is best-effort enrichment.
	if receipt, rerr := s.reader.TransactionReceipt(ctx, match.TxHash); rerr == nil && receipt != nil {
		eventArgs["gas_used"] = receipt.GasUsed
		if receipt.EffectiveGasPrice != nil {
			eventArgs["effective_gas_price"] = receipt.EffectiveGasPrice.String()
			eventArgs["total_gas_cost_wei"] = new(big.Int).Mul(
				new(big.Int).SetUint64(receipt.GasUsed),
				receipt.EffectiveGasPrice,
			).String()
		}
	}

	s.logger.Info("Intent execution confirmed",
		zap.String("intent_id", intentID.Hex()),
		zap.String("tx_hash", match.TxHash.Hex()),
		zap.Uint64("block_number", match.BlockNumber),
	)

	return &business.ConfirmationResult{
		TransactionHash: match.TxHash,
		BlockNumber:     match.BlockNumber,
		EventArgs:       eventArgs,
	}
}

// IntentFlowParams describes one end-to-end intent execution attempt.
type IntentFlowParams struct {
	Sender      common.Address
	Target      common.Address
	Value       *big.Int
	NodeAddress common.Address
	Delegate    *common.Address

	WorkflowTemplate map[string]interface{}
	Substitutions    map[string]string

	// ConfirmationTimeout of zero submits without awaiting confirmation.
	ConfirmationTimeout time.Duration
}

// IntentFlowResult reports each independently observable stage outcome.
type IntentFlowResult struct {
	Intent       *business.TransactionIntent
	Submission   *business.SubmissionResult
	Confirmation *business.ConfirmationResult
}

// RunIntentFlow executes the strictly sequential five-step flow: derive a
// fresh nonce, build the intent, sign its hash, validate the signature
// on-chain, then submit the workflow and optionally await confirmation. A
// failure at any stage aborts the remaining stages. Flows for the same
// sender are serialized; two intents must never race one nonce source.
func (s *WorkflowService) RunIntentFlow(ctx context.Context, params IntentFlowParams) (*IntentFlowResult, error) {
	lock := s.senderLock(params.Sender)
	lock.Lock()
	defer lock.Unlock()

	// Step 1: read the nonce fresh, after acquiring the sender lock.
	nonce, err := s.reader.NonceAt(ctx, params.Sender)
	if err != nil {
		return nil, err
	}
	chainNonce := new(big.Int).SetUint64(nonce)

	// Step 2: build the canonical intent.
	intent, err := s.intents.CreateIntent(CreateIntentParams{
		Sender:      params.Sender,
		Target:      params.Target,
		Value:       params.Value,
		Nonce:       chainNonce,
		ChainNonce:  chainNonce,
		NodeAddress: params.NodeAddress,
		Delegate:    params.Delegate,
	})
	if err != nil {
		return nil, err
	}

	// Step 3: request the external signature over the intent hash.
	sig, err := s.signer.SignHash(ctx, intent.ID)
	if err != nil {
		return &IntentFlowResult{Intent: intent}, err
	}

	// Step 4: on-chain validation before anything goes downstream.
	if _, err := s.valid.Validate(ctx, intent, sig, params.Sender); err != nil {
		return &IntentFlowResult{Intent: intent}, err
	}

	// Step 5: assemble and submit the workflow document.
	substitutions := s.intentSubstitutions(intent, sig, params.Substitutions)
	payload := BuildWorkflowPayload(params.WorkflowTemplate, substitutions)

	submission, err := s.Submit(ctx, payload)
	if err != nil {
		return &IntentFlowResult{Intent: intent}, err
	}

	result := &IntentFlowResult{Intent: intent, Submission: submission}

	if params.ConfirmationTimeout > 0 {
		confirmation, err := s.AwaitConfirmation(ctx, intent.ID, params.Sender, params.ConfirmationTimeout)
		if err != nil {
			// Submitted but unconfirmed is a reportable state of its own.
			return result, err
		}
		result.Confirmation = confirmation
	}

	return result, nil
}

func (s *WorkflowService) intentSubstitutions(
	intent *business.TransactionIntent,
	signature []byte,
	extra map[string]string,
) map[string]string {
	substitutions := map[string]string{
		"INTENT_ID":    intent.ID.Hex(),
		"SENDER":       intent.Sender.Hex(),
		"TARGET":       intent.Target.Hex(),
		"VALUE":        intent.Value.String(),
		"NONCE":        intent.Nonce.String(),
		"DEADLINE":     intent.Deadline.String(),
		"NODE_ADDRESS": intent.NodeAddress.Hex(),
		"SIGNATURE":    hexutil.Encode(signature),
	}
	for k, v := range extra {
		substitutions[k] = v
	}
	return substitutions
}

func (s *WorkflowService) senderLock(sender common.Address) *sync.Mutex {
	lock, _ := s.senderLocks.LoadOrStore(sender, &sync.Mutex{})
	return lock.(*sync.Mutex)
}
