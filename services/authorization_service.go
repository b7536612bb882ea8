package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/krnl-labs/krnl-go/client/chain"
	"github.com/krnl-labs/krnl-go/client/signer"
	"github.com/krnl-labs/krnl-go/constants"
	"github.com/krnl-labs/krnl-go/logger"
	"github.com/krnl-labs/krnl-go/types/business"
	"go.uber.org/zap"
)

// Gas limit for the self-addressed enablement transaction. The transaction
// carries no calldata; the budget covers the authorization-list surcharge.
const enableGasLimit = 120_000

// AuthorizationService orchestrates delegation enablement: reading on-chain
// delegation state, building and signing the authorization tuple, assembling
// the enabling transaction through the codec bridge, broadcasting it and
// confirming it.
type AuthorizationService struct {
	reader      chain.Reader
	broadcaster chain.Broadcaster
	bridge      *CodecBridge
	signer      signer.Signer

	delegateContract common.Address
	chainID          *big.Int

	pollInterval       time.Duration
	maxReceiptAttempts int

	logger *zap.Logger
}

// AuthorizationServiceConfig configures the authorization service.
type AuthorizationServiceConfig struct {
	DelegateContract   common.Address
	ChainID            *big.Int
	PollInterval       time.Duration
	MaxReceiptAttempts int
}

// NewAuthorizationService creates the authorization manager.
func NewAuthorizationService(
	reader chain.Reader,
	broadcaster chain.Broadcaster,
	bridge *CodecBridge,
	sgnr signer.Signer,
	cfg AuthorizationServiceConfig,
) *AuthorizationService {
	pollInterval := cfg.PollInterval
	if pollInterval == 0 {
		pollInterval = constants.DefaultPollInterval
	}
	maxAttempts := cfg.MaxReceiptAttempts
	if maxAttempts == 0 {
		maxAttempts = constants.DefaultReceiptRetries
	}

	return &AuthorizationService{
		reader:             reader,
		broadcaster:        broadcaster,
		bridge:             bridge,
		signer:             sgnr,
		delegateContract:   cfg.DelegateContract,
		chainID:            cfg.ChainID,
		pollInterval:       pollInterval,
		maxReceiptAttempts: maxAttempts,
		logger:             logger.Log,
	}
}

// EnableResult reports the terminal state of an enablement attempt.
type EnableResult struct {
	State  business.EnablementState
	TxHash common.Hash
	Status *business.AuthorizationStatus
}

// CheckStatus recomputes the delegation state from on-chain account code.
// It is read-only, idempotent and repeatable: call it after every mutating
// step rather than trusting a stale flag.
func (s *AuthorizationService) CheckStatus(ctx context.Context, account common.Address) (*business.AuthorizationStatus, error) {
	code, err := s.reader.CodeAt(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("failed to read account code: %w", err)
	}

	status := &business.AuthorizationStatus{
		SmartAccountEnabled: len(code) > 0,
		IsAuthorized:        len(code) > 0 && bytes.Contains(code, s.delegateContract.Bytes()),
		ContractAddress:     s.delegateContract,
	}

	s.logger.Debug("Checked authorization status",
		zap.String("account", account.Hex()),
		zap.Bool("smart_account_enabled", status.SmartAccountEnabled),
		zap.Bool("is_authorized", status.IsAuthorized),
	)

	return status, nil
}

// Enable runs the full enablement flow for an account. A user-declined
// signature is a terminal Rejected outcome and is never retried. Exceeding
// the receipt-poll bound is a ConfirmationTimeout, not a transaction
// failure: the transaction may still land later.
func (s *AuthorizationService) Enable(ctx context.Context, account common.Address) (*EnableResult, error) {
	status, err := s.CheckStatus(ctx, account)
	if err != nil {
		return &EnableResult{State: business.EnablementFailed}, err
	}
	if status.IsAuthorized {
		return &EnableResult{State: business.EnablementEnabled, Status: status}, nil
	}

	s.logger.Info("Enabling delegation", zap.String("account", account.Hex()))

	// Re-read the nonce here, not earlier: it may have advanced while we
	// were suspended on the status check.
	nonce, err := s.reader.NonceAt(ctx, account)
	if err != nil {
		return &EnableResult{State: business.EnablementFailed}, err
	}

	// The tuple authorizes the account's next self-transaction, not the one
	// carrying it, hence nonce+1.
	tuple := business.AuthorizationTuple{
		ChainID:         s.chainID,
		ContractAddress: s.delegateContract,
		Nonce:           nonce + 1,
	}

	signedTuple, err := s.signer.SignAuthorization(ctx, tuple)
	if err != nil {
		if errors.Is(err, business.ErrSignatureRejected) {
			s.logger.Warn("Authorization signature declined", zap.String("account", account.Hex()))
			return &EnableResult{State: business.EnablementFailed}, err
		}
		return &EnableResult{State: business.EnablementFailed}, fmt.Errorf("failed to sign authorization tuple: %w", err)
	}

	gasPrice, err := s.reader.SuggestGasPrice(ctx)
	if err != nil {
		return &EnableResult{State: business.EnablementFailed}, err
	}
	tipCap, err := s.reader.SuggestGasTipCap(ctx)
	if err != nil {
		return &EnableResult{State: business.EnablementFailed}, err
	}

	unsigned, err := s.bridge.BuildUnsigned(TxFields{
		ChainID:              s.chainID,
		Nonce:                nonce,
		To:                   constants.ZeroAddress,
		Value:                big.NewInt(0),
		GasLimit:             int64(enableGasLimit),
		MaxFeePerGas:         new(big.Int).Mul(gasPrice, big.NewInt(2)),
		MaxPriorityFeePerGas: tipCap,
		AuthorizationList:    []business.AuthorizationTuple{signedTuple},
	})
	if err != nil {
		return &EnableResult{State: business.EnablementFailed}, err
	}

	sig, err := s.signer.SignHash(ctx, common.HexToHash(unsigned.SignHash))
	if err != nil {
		if errors.Is(err, business.ErrSignatureRejected) {
			s.logger.Warn("Transaction signature declined", zap.String("account", account.Hex()))
			return &EnableResult{State: business.EnablementFailed}, err
		}
		return &EnableResult{State: business.EnablementFailed}, fmt.Errorf("failed to sign enablement transaction: %w", err)
	}

	signed, err := s.bridge.Finalize(unsigned.UnsignedTx, sig, s.chainID)
	if err != nil {
		return &EnableResult{State: business.EnablementFailed}, err
	}

	txHash, err := s.broadcaster.SendRawTransaction(ctx, signed.SignedTx)
	if err != nil {
		return &EnableResult{State: business.EnablementFailed}, err
	}

	s.logger.Info("Enablement transaction broadcast",
		zap.String("account", account.Hex()),
		zap.String("tx_hash", txHash.Hex()),
	)

	if err := s.waitForReceipt(ctx, txHash); err != nil {
		return &EnableResult{State: business.EnablementAwaitingConfirmation, TxHash: txHash}, err
	}

	// Recompute from chain rather than trusting the receipt alone.
	status, err = s.CheckStatus(ctx, account)
	if err != nil {
		return &EnableResult{State: business.EnablementAwaitingConfirmation, TxHash: txHash}, err
	}

	return &EnableResult{State: business.EnablementConfirmed, TxHash: txHash, Status: status}, nil
}

// waitForReceipt polls for the transaction receipt on a fixed interval. One
// confirmation (head at least one block past the receipt) is sufficient;
// this is a liveness/UX tradeoff, not a finality guarantee.
func (s *AuthorizationService) waitForReceipt(ctx context.Context, txHash common.Hash) error {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for attempt := 0; attempt < s.maxReceiptAttempts; attempt++ {
		receipt, err := s.reader.TransactionReceipt(ctx, txHash)
		if err == nil && receipt != nil {
			head, headErr := s.reader.BlockNumber(ctx)
			if headErr == nil && head >= receipt.BlockNumber.Uint64()+1 {
				s.logger.Info("Enablement transaction confirmed",
					zap.String("tx_hash", txHash.Hex()),
					zap.Uint64("block_number", receipt.BlockNumber.Uint64()),
				)
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}

	return &business.ConfirmationTimeoutError{
		Subject: txHash,
		Timeout: time.Duration(s.maxReceiptAttempts) * s.pollInterval,
	}
}
