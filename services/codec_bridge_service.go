package services

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/krnl-labs/krnl-go/client/codec"
	"github.com/krnl-labs/krnl-go/logger"
	"github.com/krnl-labs/krnl-go/types/business"
	"go.uber.org/zap"
)

// TxFields are the structured inputs to the codec bridge. Numeric fields
// accept hex strings or native integers. Exactly one fee mode is used:
// GasPrice for legacy transactions, or the fee-cap/tip-cap pair.
type TxFields struct {
	ChainID              interface{}
	Nonce                interface{}
	To                   string
	Value                interface{}
	GasLimit             interface{}
	GasPrice             interface{}
	MaxFeePerGas         interface{}
	MaxPriorityFeePerGas interface{}
	Data                 []byte
	AuthorizationList    []business.AuthorizationTuple
}

// UnsignedArtifact is the output of BuildUnsigned. Both fields are opaque
// hex strings that flow strictly forward; the bridge never parses them.
type UnsignedArtifact struct {
	UnsignedTx string
	SignHash   string
}

// SignedArtifact is the output of Finalize: a broadcastable transaction and
// its hash.
type SignedArtifact struct {
	SignedTx string
	TxHash   string
}

// CodecBridge is the narrow two-call contract around the external
// transaction-encoding capability. It normalizes structured fields into the
// codec's JSON boundary and maps failures into the codec error taxonomy.
// The bridge itself performs no network I/O.
type CodecBridge struct {
	capability codec.Capability
	logger     *zap.Logger
}

// NewCodecBridge creates a bridge around an explicitly constructed codec
// capability. The capability is injected, never resolved from a global.
func NewCodecBridge(capability codec.Capability) *CodecBridge {
	return &CodecBridge{
		capability: capability,
		logger:     logger.Log,
	}
}

// BuildUnsigned turns structured transaction fields into an unsigned
// transaction and its signing hash.
func (b *CodecBridge) BuildUnsigned(fields TxFields) (*UnsignedArtifact, error) {
	req, err := b.encodeFields(fields)
	if err != nil {
		return nil, &business.CodecError{Kind: business.CodecSerialization, Detail: "invalid transaction fields", Err: err}
	}

	reqJSON, err := json.Marshal(req)
	if err != nil {
		return nil, &business.CodecError{Kind: business.CodecSerialization, Detail: "failed to encode codec request", Err: err}
	}

	respJSON, err := b.capability.Invoke(codec.OpBuildUnsigned, reqJSON)
	if err != nil {
		return nil, &business.CodecError{Kind: business.CodecSerialization, Detail: "codec build failed", Err: err}
	}
	if derr := codec.DecodeError(respJSON); derr != nil {
		return nil, &business.CodecError{Kind: business.CodecSerialization, Detail: "codec build failed", Err: derr}
	}

	var resp codec.BuildUnsignedResponse
	if err := json.Unmarshal(respJSON, &resp); err != nil {
		return nil, &business.CodecError{Kind: business.CodecSerialization, Detail: "failed to decode codec response", Err: err}
	}

	b.logger.Debug("Built unsigned transaction", zap.String("sign_hash", resp.SignHash))
	return &UnsignedArtifact{UnsignedTx: resp.UnsignedTx, SignHash: resp.SignHash}, nil
}

// Finalize splices a signature into an unsigned transaction, producing the
// broadcastable form. The signature must be exactly 65 bytes once its
// recovery id has been normalized to parity.
func (b *CodecBridge) Finalize(unsignedTx string, signature []byte, chainID interface{}) (*SignedArtifact, error) {
	sig, err := NormalizeSignature(signature)
	if err != nil {
		return nil, &business.CodecError{Kind: business.CodecCompile, Detail: "invalid signature", Err: err}
	}

	chain, err := NormalizeNumeric("chain_id", chainID)
	if err != nil {
		return nil, &business.CodecError{Kind: business.CodecSerialization, Detail: "invalid chain id", Err: err}
	}

	reqJSON, err := json.Marshal(&codec.FinalizeRequest{
		UnsignedTx: unsignedTx,
		Signature:  hexutil.Encode(sig),
		ChainID:    chain.String(),
	})
	if err != nil {
		return nil, &business.CodecError{Kind: business.CodecSerialization, Detail: "failed to encode finalize request", Err: err}
	}

	respJSON, err := b.capability.Invoke(codec.OpFinalize, reqJSON)
	if err != nil {
		return nil, &business.CodecError{Kind: business.CodecCompile, Detail: "codec finalize failed", Err: err}
	}
	if derr := codec.DecodeError(respJSON); derr != nil {
		return nil, &business.CodecError{Kind: business.CodecCompile, Detail: "codec finalize failed", Err: derr}
	}

	var resp codec.FinalizeResponse
	if err := json.Unmarshal(respJSON, &resp); err != nil {
		return nil, &business.CodecError{Kind: business.CodecCompile, Detail: "failed to decode finalize response", Err: err}
	}

	b.logger.Debug("Finalized transaction", zap.String("tx_hash", resp.TxHash))
	return &SignedArtifact{SignedTx: resp.SignedTx, TxHash: resp.TxHash}, nil
}

func (b *CodecBridge) encodeFields(fields TxFields) (*codec.BuildUnsignedRequest, error) {
	chainID, err := NormalizeNumeric("chain_id", fields.ChainID)
	if err != nil {
		return nil, err
	}
	nonce, err := NormalizeUint64("nonce", fields.Nonce)
	if err != nil {
		return nil, err
	}
	value, err := NormalizeNumeric("value", fields.Value)
	if err != nil {
		return nil, err
	}
	gasLimit, err := NormalizeUint64("gas_limit", fields.GasLimit)
	if err != nil {
		return nil, err
	}
	if !common.IsHexAddress(fields.To) {
		return nil, fmt.Errorf("to is not a valid address: %q", fields.To)
	}

	req := &codec.BuildUnsignedRequest{
		ChainID:  chainID.String(),
		Nonce:    fmt.Sprintf("%d", nonce),
		To:       common.HexToAddress(fields.To).Hex(),
		Value:    value.String(),
		GasLimit: fmt.Sprintf("%d", gasLimit),
	}

	if fields.Data != nil {
		req.Data = hexutil.Encode(fields.Data)
	}

	if fields.GasPrice != nil {
		gasPrice, err := NormalizeNumeric("gas_price", fields.GasPrice)
		if err != nil {
			return nil, err
		}
		req.GasPrice = gasPrice.String()
	} else {
		feeCap, err := NormalizeNumeric("max_fee_per_gas", fields.MaxFeePerGas)
		if err != nil {
			return nil, err
		}
		tipCap, err := NormalizeNumeric("max_priority_fee_per_gas", fields.MaxPriorityFeePerGas)
		if err != nil {
			return nil, err
		}
		req.MaxFeePerGas = feeCap.String()
		req.MaxPriorityFeePerGas = tipCap.String()
	}

	for i, tuple := range fields.AuthorizationList {
		v, err := NormalizeParity(tuple.V)
		if err != nil {
			return nil, fmt.Errorf("authorization %d: %w", i, err)
		}
		authChain, err := NormalizeNumeric("authorization chain_id", tuple.ChainID)
		if err != nil {
			return nil, fmt.Errorf("authorization %d: %w", i, err)
		}
		req.AuthorizationList = append(req.AuthorizationList, codec.AuthorizationJSON{
			ChainID: authChain.String(),
			Address: tuple.ContractAddress.Hex(),
			Nonce:   fmt.Sprintf("%d", tuple.Nonce),
			R:       tuple.R.Hex(),
			S:       tuple.S.Hex(),
			V:       v,
		})
	}

	return req, nil
}

// NormalizeSignature validates and normalizes a raw signature to the 65-byte
// r || s || parity form the codec expects. Legacy 27/28 recovery ids are
// collapsed to {0, 1}.
func NormalizeSignature(sig []byte) ([]byte, error) {
	if len(sig) != 65 {
		return nil, fmt.Errorf("signature must be 65 bytes (32-byte r, 32-byte s, 1-byte recovery id), got %d", len(sig))
	}

	out := make([]byte, 65)
	copy(out, sig)

	v, err := NormalizeParity(out[64])
	if err != nil {
		return nil, err
	}
	out[64] = v
	return out, nil
}

// NormalizeParity collapses a legacy 27/28 recovery id to parity {0, 1}.
func NormalizeParity(v uint8) (uint8, error) {
	switch v {
	case 0, 1:
		return v, nil
	case 27, 28:
		return v - 27, nil
	default:
		return 0, fmt.Errorf("recovery id must be 0, 1, 27 or 28, got %d", v)
	}
}
