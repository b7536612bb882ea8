package signer

import (
	"context"
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/krnl-labs/krnl-go/types/business"
)

// LocalSigner signs with an in-process ECDSA key. Used by the CLI and by
// tests; production callers plug in an embedded-wallet implementation.
type LocalSigner struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewLocalSigner creates a signer from a hex-encoded private key.
func NewLocalSigner(privateKeyHex string) (*LocalSigner, error) {
	key, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return &LocalSigner{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
	}, nil
}

// Address returns the account controlled by the key.
func (s *LocalSigner) Address() common.Address {
	return s.address
}

// SignAuthorization signs the tuple's (chainId, contractAddress, nonce)
// triple. The returned V is already parity {0, 1}.
func (s *LocalSigner) SignAuthorization(ctx context.Context, tuple business.AuthorizationTuple) (business.AuthorizationTuple, error) {
	if err := ctx.Err(); err != nil {
		return business.AuthorizationTuple{}, err
	}

	auth := types.SetCodeAuthorization{
		ChainID: *uint256.MustFromBig(tuple.ChainID),
		Address: tuple.ContractAddress,
		Nonce:   tuple.Nonce,
	}

	signed, err := types.SignSetCode(s.key, auth)
	if err != nil {
		return business.AuthorizationTuple{}, fmt.Errorf("failed to sign authorization: %w", err)
	}

	tuple.V = signed.V
	tuple.R = common.Hash(signed.R.Bytes32())
	tuple.S = common.Hash(signed.S.Bytes32())
	return tuple, nil
}

// SignHash signs a raw hash, returning r || s || v with v in {0, 1}.
func (s *LocalSigner) SignHash(ctx context.Context, hash common.Hash) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sig, err := crypto.Sign(hash.Bytes(), s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign hash: %w", err)
	}
	return sig, nil
}
