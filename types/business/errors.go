package business

import (
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Sentinel errors for the common validation failures. Stage errors always
// abort the remaining stages of an intent's flow; nothing is retried
// automatically except polling within its own declared timeout.
var (
	// ErrInvalidNonce means the supplied nonce does not match the
	// authoritative on-chain nonce. Stale nonces are a correctness hazard,
	// not a UX one.
	ErrInvalidNonce = errors.New("intent nonce does not match on-chain nonce")

	// ErrMissingAddress means a required sender or target address is absent.
	ErrMissingAddress = errors.New("sender or target address is missing")

	// ErrSignatureRejected means the external signer declined the request.
	// This is terminal and never retried.
	ErrSignatureRejected = errors.New("signature request declined by signer")

	// ErrMalformedSignature means a signature failed structural
	// normalization (wrong length or recovery id).
	ErrMalformedSignature = errors.New("malformed signature")
)

// ValidationError reports a bad or stale intent field, caught before any
// network call is made.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("intent validation failed on %s: %s", e.Field, e.Reason)
}

// CodecErrorKind distinguishes the two failure modes of the codec bridge.
type CodecErrorKind string

const (
	CodecSerialization CodecErrorKind = "serialization"
	CodecCompile       CodecErrorKind = "compile"
)

// CodecError reports a serialization or compile failure in the codec bridge.
type CodecError struct {
	Kind   CodecErrorKind
	Detail string
	Err    error
}

func (e *CodecError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("codec %s error: %s: %v", e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("codec %s error: %s", e.Kind, e.Detail)
}

func (e *CodecError) Unwrap() error { return e.Err }

// SignatureMismatchError means the delegated account's own validation entry
// point rejected the signature. The flow must abort; an unvalidated
// signature is never forwarded downstream.
type SignatureMismatchError struct {
	RecoveredSigner common.Address
	ExpectedSigner  common.Address
}

func (e *SignatureMismatchError) Error() string {
	return fmt.Sprintf("signature recovered to %s, expected %s",
		e.RecoveredSigner.Hex(), e.ExpectedSigner.Hex())
}

// SubmissionError carries the execution node's JSON-RPC error object, or a
// transport failure when the node was unreachable.
type SubmissionError struct {
	Code    int
	Message string
	Err     error
}

func (e *SubmissionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("workflow submission failed: %v", e.Err)
	}
	return fmt.Sprintf("execution node rejected workflow: code=%d message=%s", e.Code, e.Message)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// ConfirmationTimeoutError means no matching event was observed within the
// bound. The underlying transaction may still land later; the outcome is
// "unknown, may still complete", distinct from a submission failure.
type ConfirmationTimeoutError struct {
	// Subject is the intent id or transaction hash whose confirmation was
	// awaited.
	Subject common.Hash
	Timeout time.Duration
}

func (e *ConfirmationTimeoutError) Error() string {
	return fmt.Sprintf("no confirmation for %s within %s", e.Subject.Hex(), e.Timeout)
}

// BroadcastError surfaces the raw provider message from a failed
// eth_sendRawTransaction for diagnostics.
type BroadcastError struct {
	ProviderMessage string
	Err             error
}

func (e *BroadcastError) Error() string {
	return fmt.Sprintf("broadcast failed: %s", e.ProviderMessage)
}

func (e *BroadcastError) Unwrap() error { return e.Err }
