package codec

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
)

// GethCodec is the default codec capability, backed by go-ethereum's
// transaction types. It selects the transaction envelope from the request:
// an authorization list produces a set-code transaction, a gas price a
// legacy one, and a fee-cap/tip-cap pair a dynamic-fee one.
type GethCodec struct{}

// NewGethCodec creates the default codec capability.
func NewGethCodec() *GethCodec {
	return &GethCodec{}
}

// Invoke dispatches a codec operation. Both operations are pure.
func (g *GethCodec) Invoke(op string, request []byte) ([]byte, error) {
	switch op {
	case OpBuildUnsigned:
		return g.buildUnsigned(request)
	case OpFinalize:
		return g.finalize(request)
	default:
		return nil, fmt.Errorf("unknown codec operation %q", op)
	}
}

func (g *GethCodec) buildUnsigned(request []byte) ([]byte, error) {
	var req BuildUnsignedRequest
	if err := json.Unmarshal(request, &req); err != nil {
		return nil, fmt.Errorf("failed to decode build request: %w", err)
	}

	chainID, err := parseDecimal("chain_id", req.ChainID)
	if err != nil {
		return nil, err
	}
	nonce, err := parseDecimal("nonce", req.Nonce)
	if err != nil {
		return nil, err
	}
	value, err := parseDecimal("value", req.Value)
	if err != nil {
		return nil, err
	}
	gasLimit, err := parseDecimal("gas_limit", req.GasLimit)
	if err != nil {
		return nil, err
	}
	if !common.IsHexAddress(req.To) {
		return nil, fmt.Errorf("to is not a valid address: %q", req.To)
	}
	to := common.HexToAddress(req.To)

	var data []byte
	if req.Data != "" {
		data, err = hexutil.Decode(req.Data)
		if err != nil {
			return nil, fmt.Errorf("data is not valid hex: %w", err)
		}
	}

	var inner types.TxData
	switch {
	case len(req.AuthorizationList) > 0:
		authList, err := decodeAuthList(req.AuthorizationList)
		if err != nil {
			return nil, err
		}
		fees, err := dynamicFees(req)
		if err != nil {
			return nil, err
		}
		inner = &types.SetCodeTx{
			ChainID:   uint256.MustFromBig(chainID),
			Nonce:     nonce.Uint64(),
			GasTipCap: uint256.MustFromBig(fees.tipCap),
			GasFeeCap: uint256.MustFromBig(fees.feeCap),
			Gas:       gasLimit.Uint64(),
			To:        to,
			Value:     uint256.MustFromBig(value),
			Data:      data,
			AuthList:  authList,
			V:         new(uint256.Int),
			R:         new(uint256.Int),
			S:         new(uint256.Int),
		}
	case req.GasPrice != "":
		gasPrice, err := parseDecimal("gas_price", req.GasPrice)
		if err != nil {
			return nil, err
		}
		inner = &types.LegacyTx{
			Nonce:    nonce.Uint64(),
			GasPrice: gasPrice,
			Gas:      gasLimit.Uint64(),
			To:       &to,
			Value:    value,
			Data:     data,
			V:        new(big.Int),
			R:        new(big.Int),
			S:        new(big.Int),
		}
	default:
		fees, err := dynamicFees(req)
		if err != nil {
			return nil, err
		}
		inner = &types.DynamicFeeTx{
			ChainID:   chainID,
			Nonce:     nonce.Uint64(),
			GasTipCap: fees.tipCap,
			GasFeeCap: fees.feeCap,
			Gas:       gasLimit.Uint64(),
			To:        &to,
			Value:     value,
			Data:      data,
			V:         new(big.Int),
			R:         new(big.Int),
			S:         new(big.Int),
		}
	}

	tx := types.NewTx(inner)
	signer := types.LatestSignerForChainID(chainID)
	signHash := signer.Hash(tx)

	raw, err := tx.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("failed to encode unsigned transaction: %w", err)
	}

	return json.Marshal(&BuildUnsignedResponse{
		UnsignedTx: hexutil.Encode(raw),
		SignHash:   signHash.Hex(),
	})
}

func (g *GethCodec) finalize(request []byte) ([]byte, error) {
	var req FinalizeRequest
	if err := json.Unmarshal(request, &req); err != nil {
		return nil, fmt.Errorf("failed to decode finalize request: %w", err)
	}

	chainID, err := parseDecimal("chain_id", req.ChainID)
	if err != nil {
		return nil, err
	}
	raw, err := hexutil.Decode(req.UnsignedTx)
	if err != nil {
		return nil, fmt.Errorf("unsigned_tx is not valid hex: %w", err)
	}
	sig, err := hexutil.Decode(req.Signature)
	if err != nil {
		return nil, fmt.Errorf("signature is not valid hex: %w", err)
	}
	if len(sig) != 65 {
		return nil, fmt.Errorf("signature must be 65 bytes, got %d", len(sig))
	}

	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(raw); err != nil {
		return nil, fmt.Errorf("failed to decode unsigned transaction: %w", err)
	}

	signer := types.LatestSignerForChainID(chainID)
	signed, err := tx.WithSignature(signer, sig)
	if err != nil {
		return nil, fmt.Errorf("failed to apply signature: %w", err)
	}

	rawSigned, err := signed.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("failed to encode signed transaction: %w", err)
	}

	return json.Marshal(&FinalizeResponse{
		SignedTx: hexutil.Encode(rawSigned),
		TxHash:   signed.Hash().Hex(),
	})
}

type feePair struct {
	feeCap *big.Int
	tipCap *big.Int
}

func dynamicFees(req BuildUnsignedRequest) (*feePair, error) {
	feeCap, err := parseDecimal("max_fee_per_gas", req.MaxFeePerGas)
	if err != nil {
		return nil, err
	}
	tipCap, err := parseDecimal("max_priority_fee_per_gas", req.MaxPriorityFeePerGas)
	if err != nil {
		return nil, err
	}
	return &feePair{feeCap: feeCap, tipCap: tipCap}, nil
}

func decodeAuthList(list []AuthorizationJSON) ([]types.SetCodeAuthorization, error) {
	out := make([]types.SetCodeAuthorization, 0, len(list))
	for i, a := range list {
		chainID, err := parseDecimal("authorization chain_id", a.ChainID)
		if err != nil {
			return nil, err
		}
		nonce, err := parseDecimal("authorization nonce", a.Nonce)
		if err != nil {
			return nil, err
		}
		if !common.IsHexAddress(a.Address) {
			return nil, fmt.Errorf("authorization %d address is invalid: %q", i, a.Address)
		}
		if a.V > 1 {
			return nil, fmt.Errorf("authorization %d recovery id must be parity {0,1}, got %d", i, a.V)
		}
		r, err := parseWord("authorization r", a.R)
		if err != nil {
			return nil, err
		}
		s, err := parseWord("authorization s", a.S)
		if err != nil {
			return nil, err
		}
		out = append(out, types.SetCodeAuthorization{
			ChainID: *uint256.MustFromBig(chainID),
			Address: common.HexToAddress(a.Address),
			Nonce:   nonce.Uint64(),
			V:       a.V,
			R:       *r,
			S:       *s,
		})
	}
	return out, nil
}

func parseDecimal(field, v string) (*big.Int, error) {
	if v == "" {
		return nil, fmt.Errorf("%s is required", field)
	}
	n, ok := new(big.Int).SetString(v, 10)
	if !ok {
		return nil, fmt.Errorf("%s is not a decimal integer: %q", field, v)
	}
	return n, nil
}

func parseWord(field, v string) (*uint256.Int, error) {
	b, err := hexutil.Decode(v)
	if err != nil {
		return nil, fmt.Errorf("%s is not valid hex: %w", field, err)
	}
	if len(b) > 32 {
		return nil, fmt.Errorf("%s exceeds 32 bytes", field)
	}
	return new(uint256.Int).SetBytes(b), nil
}
