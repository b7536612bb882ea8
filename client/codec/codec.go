// Package codec exposes the external transaction-encoding capability.
// The capability is a pure function boundary: structured UTF-8 JSON in,
// structured UTF-8 JSON out, never raw binary handles and never network I/O.
package codec

import (
	"encoding/json"
	"fmt"
)

// Operation names understood by a Capability.
const (
	OpBuildUnsigned = "build_unsigned"
	OpFinalize      = "finalize"
)

// Capability invokes the external transaction codec. Implementations must be
// pure: the same request always produces the same response.
type Capability interface {
	Invoke(op string, request []byte) ([]byte, error)
}

// BuildUnsignedRequest describes the transaction fields handed to the codec.
// All numeric fields are decimal strings; the codec bridge has already
// normalized hex-string and native-integer inputs before this point.
type BuildUnsignedRequest struct {
	ChainID              string              `json:"chain_id"`
	Nonce                string              `json:"nonce"`
	To                   string              `json:"to"`
	Value                string              `json:"value"`
	GasLimit             string              `json:"gas_limit"`
	GasPrice             string              `json:"gas_price,omitempty"`
	MaxFeePerGas         string              `json:"max_fee_per_gas,omitempty"`
	MaxPriorityFeePerGas string              `json:"max_priority_fee_per_gas,omitempty"`
	Data                 string              `json:"data,omitempty"`
	AuthorizationList    []AuthorizationJSON `json:"authorization_list,omitempty"`
}

// AuthorizationJSON is the wire form of an authorization tuple. V is parity
// {0, 1}; the bridge collapses legacy 27/28 values before building a request.
type AuthorizationJSON struct {
	ChainID string `json:"chain_id"`
	Address string `json:"address"`
	Nonce   string `json:"nonce"`
	R       string `json:"r"`
	S       string `json:"s"`
	V       uint8  `json:"v"`
}

// BuildUnsignedResponse carries the two opaque artifacts of the first codec
// call. Both are hex strings; nothing outside the codec parses them.
type BuildUnsignedResponse struct {
	UnsignedTx string `json:"unsigned_tx"`
	SignHash   string `json:"sign_hash"`
}

// FinalizeRequest splices a 65-byte signature into an unsigned transaction.
type FinalizeRequest struct {
	UnsignedTx string `json:"unsigned_tx"`
	Signature  string `json:"signature"`
	ChainID    string `json:"chain_id"`
}

// FinalizeResponse carries the broadcastable transaction and its hash.
type FinalizeResponse struct {
	SignedTx string `json:"signed_tx"`
	TxHash   string `json:"tx_hash"`
}

// ErrorResponse is returned by a capability in place of a result payload.
type ErrorResponse struct {
	Error string `json:"error"`
}

// DecodeError extracts a codec-level error from a response body, if present.
func DecodeError(response []byte) error {
	var er ErrorResponse
	if err := json.Unmarshal(response, &er); err == nil && er.Error != "" {
		return fmt.Errorf("codec capability error: %s", er.Error)
	}
	return nil
}
