package services

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/krnl-labs/krnl-go/constants"
	"github.com/krnl-labs/krnl-go/logger"
	"github.com/krnl-labs/krnl-go/types/business"
	"go.uber.org/zap"
)

// IntentService constructs canonical Transaction Intents and their
// deterministic identifiers. It performs no network I/O: the caller fetches
// the authoritative on-chain nonce immediately before calling CreateIntent.
type IntentService struct {
	deadlineWindow time.Duration
	logger         *zap.Logger
	now            func() time.Time
}

// NewIntentService creates an intent service with the fixed one-hour
// deadline window.
func NewIntentService() *IntentService {
	return &IntentService{
		deadlineWindow: constants.IntentDeadlineWindow,
		logger:         logger.Log,
		now:            time.Now,
	}
}

// CreateIntentParams contains the inputs for building an intent.
type CreateIntentParams struct {
	Sender common.Address
	Target common.Address

	// Value and Nonce accept hex strings or native integers; both are
	// normalized before use.
	Value interface{}
	Nonce interface{}

	// ChainNonce is the nonce currently stored by the authoritative
	// on-chain source for the sender, fetched fresh by the caller. A
	// mismatch with Nonce is a correctness failure, not a UX one.
	ChainNonce *big.Int

	NodeAddress    common.Address
	Delegate       *common.Address
	TargetFunction *[4]byte
}

// CreateIntent builds an immutable TransactionIntent. The identifier is
// derived, never chosen: id = keccak256(sender || nonce || deadline) with
// tight packing, so re-derivation anywhere reproduces the same value. The
// signature is never part of the hash inputs.
func (s *IntentService) CreateIntent(params CreateIntentParams) (*business.TransactionIntent, error) {
	if params.Sender == (common.Address{}) || params.Target == (common.Address{}) {
		return nil, business.ErrMissingAddress
	}

	value, err := NormalizeNumeric("value", params.Value)
	if err != nil {
		return nil, &business.ValidationError{Field: "value", Reason: err.Error()}
	}

	nonce, err := NormalizeNumeric("nonce", params.Nonce)
	if err != nil {
		return nil, &business.ValidationError{Field: "nonce", Reason: err.Error()}
	}

	if params.ChainNonce == nil {
		return nil, &business.ValidationError{Field: "chain_nonce", Reason: "authoritative on-chain nonce not supplied"}
	}
	if nonce.Cmp(params.ChainNonce) != 0 {
		return nil, fmt.Errorf("%w: supplied %s, on-chain %s",
			business.ErrInvalidNonce, nonce, params.ChainNonce)
	}

	createdAt := s.now()
	deadline := new(big.Int).SetInt64(createdAt.Add(s.deadlineWindow).Unix())

	intent := &business.TransactionIntent{
		Target:         params.Target,
		Value:          value,
		Nonce:          nonce,
		Deadline:       deadline,
		ID:             ComputeIntentID(params.Sender, nonce, deadline),
		Sender:         params.Sender,
		NodeAddress:    params.NodeAddress,
		Delegate:       params.Delegate,
		TargetFunction: params.TargetFunction,
		CreatedAt:      createdAt,
	}

	s.logger.Debug("Created transaction intent",
		zap.String("intent_id", intent.ID.Hex()),
		zap.String("sender", intent.Sender.Hex()),
		zap.String("nonce", nonce.String()),
	)

	return intent, nil
}

// ComputeIntentID derives the deterministic intent identifier. Packing is
// tight: 20-byte sender, 32-byte nonce, 32-byte deadline, in that exact
// order. The downstream validating contract recomputes the same hash, so
// order and width here are pinned to its encoding.
func ComputeIntentID(sender common.Address, nonce, deadline *big.Int) common.Hash {
	packed := make([]byte, 0, 84)
	packed = append(packed, sender.Bytes()...)
	packed = append(packed, common.LeftPadBytes(nonce.Bytes(), 32)...)
	packed = append(packed, common.LeftPadBytes(deadline.Bytes(), 32)...)
	return crypto.Keccak256Hash(packed)
}
