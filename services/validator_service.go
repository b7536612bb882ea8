package services

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/krnl-labs/krnl-go/client/chain"
	"github.com/krnl-labs/krnl-go/logger"
	"github.com/krnl-labs/krnl-go/types/business"
	"go.uber.org/zap"
)

// validatorABI is the delegated account's signature-validation entry point.
// The intent tuple's field order and widths here are the single source of
// truth: they must match what the account contract hashes internally, or a
// valid signature will be rejected as invalid.
const validatorABI = `[{
	"name": "validateIntentSignature",
	"type": "function",
	"stateMutability": "view",
	"inputs": [
		{"name": "intent", "type": "tuple", "components": [
			{"name": "target", "type": "address"},
			{"name": "value", "type": "uint256"},
			{"name": "nonce", "type": "uint256"},
			{"name": "deadline", "type": "uint256"},
			{"name": "id", "type": "bytes32"},
			{"name": "nodeAddress", "type": "address"}
		]},
		{"name": "signature", "type": "bytes"}
	],
	"outputs": [
		{"name": "isValid", "type": "bool"},
		{"name": "recovered", "type": "address"}
	]
}]`

// intentTuple mirrors the validator ABI's intent components, field for field
// and in the same order. Never reorder for convenience.
type intentTuple struct {
	Target      common.Address
	Value       *big.Int
	Nonce       *big.Int
	Deadline    *big.Int
	Id          [32]byte
	NodeAddress common.Address
}

// ValidatorService confirms a produced signature against the delegated
// account before anything is submitted downstream. The account contract
// performs the cryptographic recovery; this service only encodes the call
// and interprets the returned pair.
type ValidatorService struct {
	reader chain.Reader
	abi    abi.ABI
	logger *zap.Logger
}

// NewValidatorService creates the signature validator.
func NewValidatorService(reader chain.Reader) (*ValidatorService, error) {
	parsed, err := abi.JSON(strings.NewReader(validatorABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse validator ABI: %w", err)
	}
	return &ValidatorService{
		reader: reader,
		abi:    parsed,
		logger: logger.Log,
	}, nil
}

// Validate performs the read-only on-chain validation call. No state is
// changed and no gas is spent. If the account rejects the signature, the
// flow aborts with a SignatureMismatchError: an unvalidated signature is
// never forwarded.
func (s *ValidatorService) Validate(
	ctx context.Context,
	intent *business.TransactionIntent,
	signature []byte,
	account common.Address,
) (*business.ValidationResult, error) {
	sig, err := NormalizeSignature(signature)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", business.ErrMalformedSignature, err)
	}

	data, err := s.abi.Pack("validateIntentSignature", intentTuple{
		Target:      intent.Target,
		Value:       intent.Value,
		Nonce:       intent.Nonce,
		Deadline:    intent.Deadline,
		Id:          intent.ID,
		NodeAddress: intent.NodeAddress,
	}, sig)
	if err != nil {
		return nil, fmt.Errorf("failed to encode validation call: %w", err)
	}

	out, err := s.reader.CallContract(ctx, ethereum.CallMsg{
		To:   &account,
		Data: data,
	})
	if err != nil {
		return nil, fmt.Errorf("validation call failed: %w", err)
	}

	decoded, err := s.abi.Unpack("validateIntentSignature", out)
	if err != nil {
		return nil, fmt.Errorf("failed to decode validation result: %w", err)
	}
	if len(decoded) != 2 {
		return nil, fmt.Errorf("unexpected validation result arity: %d", len(decoded))
	}

	isValid, ok := decoded[0].(bool)
	if !ok {
		return nil, fmt.Errorf("unexpected type for isValid: %T", decoded[0])
	}
	recovered, ok := decoded[1].(common.Address)
	if !ok {
		return nil, fmt.Errorf("unexpected type for recovered signer: %T", decoded[1])
	}

	result := &business.ValidationResult{IsValid: isValid, RecoveredSigner: recovered}

	if !isValid {
		s.logger.Warn("On-chain signature validation failed",
			zap.String("intent_id", intent.ID.Hex()),
			zap.String("recovered", recovered.Hex()),
			zap.String("expected", intent.Sender.Hex()),
		)
		return result, &business.SignatureMismatchError{
			RecoveredSigner: recovered,
			ExpectedSigner:  intent.Sender,
		}
	}

	s.logger.Debug("Signature validated on-chain",
		zap.String("intent_id", intent.ID.Hex()),
		zap.String("recovered", recovered.Hex()),
	)

	return result, nil
}
