package business

import (
	"encoding/json"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// TransactionIntent is an off-chain description of a future on-chain action,
// identified by a deterministic hash and executed through the automation node
// rather than broadcast directly by the user.
type TransactionIntent struct {
	Target         common.Address  `json:"target"`
	Value          *big.Int        `json:"value"`
	Nonce          *big.Int        `json:"nonce"`
	Deadline       *big.Int        `json:"deadline"` // unix seconds
	ID             common.Hash     `json:"id"`
	Sender         common.Address  `json:"sender"`
	NodeAddress    common.Address  `json:"node_address"`
	Delegate       *common.Address `json:"delegate,omitempty"`
	TargetFunction *[4]byte        `json:"target_function,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// AuthorizationTuple is a signed (chainId, contractAddress, nonce) triple
// permitting an account's code to be set to point at ContractAddress.
// V is always parity {0, 1}; legacy 27/28 values are collapsed before the
// tuple is embedded in a transaction's authorization list.
type AuthorizationTuple struct {
	ChainID         *big.Int       `json:"chain_id"`
	ContractAddress common.Address `json:"contract_address"`
	Nonce           uint64         `json:"nonce"`
	R               common.Hash    `json:"r"`
	S               common.Hash    `json:"s"`
	V               uint8          `json:"v"`
}

// AuthorizationStatus is derived from on-chain account code on every check.
// It is never cached: pending transactions can change it at any time.
type AuthorizationStatus struct {
	SmartAccountEnabled bool           `json:"smart_account_enabled"`
	IsAuthorized        bool           `json:"is_authorized"`
	ContractAddress     common.Address `json:"contract_address"`
}

// EnablementState tracks the delegation-enablement state machine.
type EnablementState string

const (
	EnablementUnchecked            EnablementState = "unchecked"
	EnablementChecking             EnablementState = "checking"
	EnablementEnabled              EnablementState = "enabled"
	EnablementNotEnabled           EnablementState = "not_enabled"
	EnablementEnabling             EnablementState = "enabling"
	EnablementAwaitingConfirmation EnablementState = "awaiting_confirmation"
	EnablementConfirmed            EnablementState = "confirmed"
	EnablementFailed               EnablementState = "failed"
)

// SubmissionResult is returned when the execution node accepts a workflow.
// Acceptance is independent from on-chain confirmation; callers must be able
// to render "submitted but not yet confirmed".
type SubmissionResult struct {
	RequestID   string          `json:"request_id"`
	Result      json.RawMessage `json:"result"`
	SubmittedAt time.Time       `json:"submitted_at"`
}

// ConfirmationResult is created only when a polling cycle finds an event log
// whose indexed intent-id field equals the originating intent's ID.
type ConfirmationResult struct {
	TransactionHash common.Hash            `json:"transaction_hash"`
	BlockNumber     uint64                 `json:"block_number"`
	EventArgs       map[string]interface{} `json:"event_args"`
}

// ValidationResult is the decoded output of the delegated account's
// signature-validation entry point.
type ValidationResult struct {
	IsValid         bool           `json:"is_valid"`
	RecoveredSigner common.Address `json:"recovered_signer"`
}
