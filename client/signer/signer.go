// Package signer abstracts the external signing capability, e.g. an
// embedded-wallet provider. Both operations may be declined interactively by
// the user; a decline is surfaced as business.ErrSignatureRejected and is
// terminal for the flow that requested it.
package signer

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/krnl-labs/krnl-go/types/business"
)

// Signer is the external signing collaborator.
type Signer interface {
	// Address returns the account the signer controls.
	Address() common.Address

	// SignAuthorization signs an authorization tuple and returns it with
	// R, S and parity V filled in.
	SignAuthorization(ctx context.Context, tuple business.AuthorizationTuple) (business.AuthorizationTuple, error)

	// SignHash signs a raw 32-byte hash, returning a 65-byte signature
	// (32-byte r, 32-byte s, 1-byte recovery id).
	SignHash(ctx context.Context, hash common.Hash) ([]byte, error)
}
