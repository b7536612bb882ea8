package signer_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/krnl-labs/krnl-go/client/signer"
	"github.com/krnl-labs/krnl-go/types/business"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPrivateKey = "59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d"

func TestNewLocalSigner(t *testing.T) {
	s, err := signer.NewLocalSigner(testPrivateKey)
	require.NoError(t, err)
	assert.NotEqual(t, common.Address{}, s.Address())

	_, err = signer.NewLocalSigner("not-a-key")
	require.Error(t, err)
}

func TestLocalSigner_SignHash(t *testing.T) {
	s, err := signer.NewLocalSigner(testPrivateKey)
	require.NoError(t, err)

	hash := crypto.Keccak256Hash([]byte("payload"))
	sig, err := s.SignHash(context.Background(), hash)
	require.NoError(t, err)
	require.Len(t, sig, 65)
	assert.LessOrEqual(t, sig[64], uint8(1), "recovery id is parity, never 27/28")

	// The signature recovers to the signer's own address.
	pub, err := crypto.SigToPub(hash.Bytes(), sig)
	require.NoError(t, err)
	assert.Equal(t, s.Address(), crypto.PubkeyToAddress(*pub))
}

func TestLocalSigner_SignAuthorization(t *testing.T) {
	s, err := signer.NewLocalSigner(testPrivateKey)
	require.NoError(t, err)

	tuple := business.AuthorizationTuple{
		ChainID:         big.NewInt(11155111),
		ContractAddress: common.HexToAddress("0xDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDD"),
		Nonce:           8,
	}

	signed, err := s.SignAuthorization(context.Background(), tuple)
	require.NoError(t, err)

	// Input fields are preserved; only the signature parts are filled in.
	assert.Equal(t, tuple.ChainID, signed.ChainID)
	assert.Equal(t, tuple.ContractAddress, signed.ContractAddress)
	assert.Equal(t, tuple.Nonce, signed.Nonce)
	assert.LessOrEqual(t, signed.V, uint8(1))
	assert.NotEqual(t, common.Hash{}, signed.R)
	assert.NotEqual(t, common.Hash{}, signed.S)

	// Round the tuple through geth's authority recovery to prove validity.
	auth := types.SetCodeAuthorization{
		ChainID: *uint256.MustFromBig(signed.ChainID),
		Address: signed.ContractAddress,
		Nonce:   signed.Nonce,
		V:       signed.V,
		R:       *new(uint256.Int).SetBytes(signed.R.Bytes()),
		S:       *new(uint256.Int).SetBytes(signed.S.Bytes()),
	}
	authority, err := auth.Authority()
	require.NoError(t, err)
	assert.Equal(t, s.Address(), authority)
}

func TestLocalSigner_ContextCancellation(t *testing.T) {
	s, err := signer.NewLocalSigner(testPrivateKey)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = s.SignHash(ctx, common.Hash{})
	assert.ErrorIs(t, err, context.Canceled)

	_, err = s.SignAuthorization(ctx, business.AuthorizationTuple{ChainID: big.NewInt(1)})
	assert.ErrorIs(t, err, context.Canceled)
}
