package chain

import (
	"context"
	"math/big"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/krnl-labs/krnl-go/logger"
	"github.com/krnl-labs/krnl-go/types/business"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Reader is the read-only chain RPC surface the services depend on.
// Every value read through it is authoritative at call time only; callers
// re-read rather than cache across suspension points.
type Reader interface {
	CodeAt(ctx context.Context, account common.Address) ([]byte, error)
	NonceAt(ctx context.Context, account common.Address) (uint64, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	BlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
}

// Broadcaster submits finalized raw transactions to the chain.
type Broadcaster interface {
	SendRawTransaction(ctx context.Context, rawTxHex string) (common.Hash, error)
}

// Client wraps a single chain RPC connection. It implements Reader and
// Broadcaster on top of go-ethereum's ethclient and raw rpc client.
type Client struct {
	eth    *ethclient.Client
	rpc    *rpc.Client
	logger *zap.Logger
}

// Dial connects to the chain RPC endpoint.
func Dial(ctx context.Context, rpcURL string) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to chain RPC")
	}

	c := &Client{
		eth:    ethclient.NewClient(rpcClient),
		rpc:    rpcClient,
		logger: logger.Log,
	}

	c.logger.Info("Connected to chain RPC", zap.String("endpoint", rpcURL))
	return c, nil
}

// CodeAt returns the code stored at the account at the latest block.
func (c *Client) CodeAt(ctx context.Context, account common.Address) ([]byte, error) {
	code, err := c.eth.CodeAt(ctx, account, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get code for %s", account.Hex())
	}
	return code, nil
}

// NonceAt returns the account's transaction count at the latest block.
func (c *Client) NonceAt(ctx context.Context, account common.Address) (uint64, error) {
	nonce, err := c.eth.NonceAt(ctx, account, nil)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to get nonce for %s", account.Hex())
	}
	return nonce, nil
}

// CallContract executes a read-only call at the latest block.
func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error) {
	out, err := c.eth.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, errors.Wrap(err, "eth_call failed")
	}
	return out, nil
}

// TransactionReceipt returns the receipt for a mined transaction, or
// ethereum.NotFound while it is still pending.
func (c *Client) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	return c.eth.TransactionReceipt(ctx, txHash)
}

// BlockNumber returns the current head block number.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	n, err := c.eth.BlockNumber(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "failed to get block number")
	}
	return n, nil
}

// FilterLogs queries event logs over the given block range and topics.
func (c *Client) FilterLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error) {
	logs, err := c.eth.FilterLogs(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "log query failed")
	}
	return logs, nil
}

// SuggestGasPrice returns the node's suggested gas price.
func (c *Client) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	price, err := c.eth.SuggestGasPrice(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get gas price")
	}
	return price, nil
}

// SuggestGasTipCap returns the node's suggested priority fee.
func (c *Client) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	tip, err := c.eth.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get gas tip cap")
	}
	return tip, nil
}

// SendRawTransaction broadcasts a finalized signed transaction. The raw
// provider error message is preserved for diagnostics: once a transaction is
// accepted it cannot be retracted, so the caller needs the exact reason when
// it is not.
func (c *Client) SendRawTransaction(ctx context.Context, rawTxHex string) (common.Hash, error) {
	var txHash common.Hash
	if err := c.rpc.CallContext(ctx, &txHash, "eth_sendRawTransaction", rawTxHex); err != nil {
		c.logger.Error("Broadcast rejected by provider", zap.Error(err))
		return common.Hash{}, &business.BroadcastError{ProviderMessage: err.Error(), Err: err}
	}

	c.logger.Info("Transaction broadcast", zap.String("tx_hash", txHash.Hex()))
	return txHash, nil
}

// Close closes the underlying RPC connection.
func (c *Client) Close() {
	c.rpc.Close()
	c.logger.Info("Closed chain RPC connection")
}
