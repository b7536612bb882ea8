package codec_test

import (
	"context"
	"encoding/json"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/krnl-labs/krnl-go/client/codec"
	"github.com/krnl-labs/krnl-go/client/signer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPrivateKey = "59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d"

var testChainID = big.NewInt(11155111)

func buildRequest() codec.BuildUnsignedRequest {
	return codec.BuildUnsignedRequest{
		ChainID:              testChainID.String(),
		Nonce:                "7",
		To:                   "0xBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB",
		Value:                "1000",
		GasLimit:             "21000",
		MaxFeePerGas:         "40000000000",
		MaxPriorityFeePerGas: "2000000000",
	}
}

func invokeBuild(t *testing.T, g *codec.GethCodec, req codec.BuildUnsignedRequest) codec.BuildUnsignedResponse {
	t.Helper()
	reqJSON, err := json.Marshal(req)
	require.NoError(t, err)
	respJSON, err := g.Invoke(codec.OpBuildUnsigned, reqJSON)
	require.NoError(t, err)
	var resp codec.BuildUnsignedResponse
	require.NoError(t, json.Unmarshal(respJSON, &resp))
	return resp
}

func invokeFinalize(t *testing.T, g *codec.GethCodec, unsignedTx string, sig []byte) codec.FinalizeResponse {
	t.Helper()
	reqJSON, err := json.Marshal(&codec.FinalizeRequest{
		UnsignedTx: unsignedTx,
		Signature:  hexutil.Encode(sig),
		ChainID:    testChainID.String(),
	})
	require.NoError(t, err)
	respJSON, err := g.Invoke(codec.OpFinalize, reqJSON)
	require.NoError(t, err)
	var resp codec.FinalizeResponse
	require.NoError(t, json.Unmarshal(respJSON, &resp))
	return resp
}

func TestGethCodec_DynamicFeeRoundtrip(t *testing.T) {
	g := codec.NewGethCodec()
	localSigner, err := signer.NewLocalSigner(testPrivateKey)
	require.NoError(t, err)

	built := invokeBuild(t, g, buildRequest())
	assert.NotEmpty(t, built.UnsignedTx)
	assert.Len(t, built.SignHash, 2+64)

	// Building the same request again yields byte-identical output.
	assert.Equal(t, built, invokeBuild(t, g, buildRequest()))

	sig, err := localSigner.SignHash(context.Background(), common.HexToHash(built.SignHash))
	require.NoError(t, err)
	require.Len(t, sig, 65)

	finalized := invokeFinalize(t, g, built.UnsignedTx, sig)

	raw, err := hexutil.Decode(finalized.SignedTx)
	require.NoError(t, err)
	tx := new(types.Transaction)
	require.NoError(t, tx.UnmarshalBinary(raw))

	assert.Equal(t, uint8(types.DynamicFeeTxType), tx.Type())
	assert.Equal(t, uint64(7), tx.Nonce())
	assert.Equal(t, finalized.TxHash, tx.Hash().Hex())

	// The signature must recover to the key that produced it.
	sender, err := types.Sender(types.LatestSignerForChainID(testChainID), tx)
	require.NoError(t, err)
	assert.Equal(t, localSigner.Address(), sender)
}

func TestGethCodec_SetCodeTransaction(t *testing.T) {
	g := codec.NewGethCodec()
	localSigner, err := signer.NewLocalSigner(testPrivateKey)
	require.NoError(t, err)

	req := buildRequest()
	req.AuthorizationList = []codec.AuthorizationJSON{{
		ChainID: testChainID.String(),
		Address: "0xDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDD",
		Nonce:   "8",
		R:       "0x01",
		S:       "0x02",
		V:       1,
	}}

	built := invokeBuild(t, g, req)

	sig, err := localSigner.SignHash(context.Background(), common.HexToHash(built.SignHash))
	require.NoError(t, err)

	finalized := invokeFinalize(t, g, built.UnsignedTx, sig)

	raw, err := hexutil.Decode(finalized.SignedTx)
	require.NoError(t, err)
	tx := new(types.Transaction)
	require.NoError(t, tx.UnmarshalBinary(raw))

	assert.Equal(t, uint8(types.SetCodeTxType), tx.Type())
	authList := tx.SetCodeAuthorizations()
	require.Len(t, authList, 1)
	assert.Equal(t, uint64(8), authList[0].Nonce)

	sender, err := types.Sender(types.LatestSignerForChainID(testChainID), tx)
	require.NoError(t, err)
	assert.Equal(t, localSigner.Address(), sender)
}

func TestGethCodec_LegacyTransaction(t *testing.T) {
	g := codec.NewGethCodec()

	req := buildRequest()
	req.MaxFeePerGas = ""
	req.MaxPriorityFeePerGas = ""
	req.GasPrice = "20000000000"

	built := invokeBuild(t, g, req)

	raw, err := hexutil.Decode(built.UnsignedTx)
	require.NoError(t, err)
	tx := new(types.Transaction)
	require.NoError(t, tx.UnmarshalBinary(raw))
	assert.Equal(t, uint8(types.LegacyTxType), tx.Type())
	assert.Equal(t, "20000000000", tx.GasPrice().String())
}

func TestGethCodec_Errors(t *testing.T) {
	g := codec.NewGethCodec()

	tests := []struct {
		name    string
		op      string
		mutate  func(req *codec.BuildUnsignedRequest)
		errPart string
	}{
		{
			name:    "unknown operation",
			op:      "transmogrify",
			errPart: "unknown codec operation",
		},
		{
			name:    "non-decimal nonce",
			op:      codec.OpBuildUnsigned,
			mutate:  func(req *codec.BuildUnsignedRequest) { req.Nonce = "0x7" },
			errPart: "not a decimal integer",
		},
		{
			name:    "invalid to address",
			op:      codec.OpBuildUnsigned,
			mutate:  func(req *codec.BuildUnsignedRequest) { req.To = "nowhere" },
			errPart: "not a valid address",
		},
		{
			name: "out-of-parity authorization",
			op:   codec.OpBuildUnsigned,
			mutate: func(req *codec.BuildUnsignedRequest) {
				req.AuthorizationList = []codec.AuthorizationJSON{{
					ChainID: "1", Address: "0xDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDD",
					Nonce: "1", R: "0x01", S: "0x02", V: 27,
				}}
			},
			errPart: "parity",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := buildRequest()
			if tt.mutate != nil {
				tt.mutate(&req)
			}
			reqJSON, err := json.Marshal(req)
			require.NoError(t, err)

			_, err = g.Invoke(tt.op, reqJSON)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errPart)
		})
	}
}

func TestGethCodec_Finalize_RejectsShortSignature(t *testing.T) {
	g := codec.NewGethCodec()
	built := invokeBuild(t, g, buildRequest())

	reqJSON, err := json.Marshal(&codec.FinalizeRequest{
		UnsignedTx: built.UnsignedTx,
		Signature:  hexutil.Encode(make([]byte, 64)),
		ChainID:    testChainID.String(),
	})
	require.NoError(t, err)

	_, err = g.Invoke(codec.OpFinalize, reqJSON)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "65 bytes")
}
