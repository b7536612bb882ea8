// Package executionnode talks to the remote execution node: a JSON-RPC
// shaped HTTP endpoint that accepts fully-assembled workflow documents and
// carries out the on-chain action they describe.
package executionnode

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/krnl-labs/krnl-go/constants"
	"github.com/krnl-labs/krnl-go/logger"
	"github.com/krnl-labs/krnl-go/types/business"
	"go.uber.org/zap"
)

// Client submits workflow documents to the execution node over HTTP.
type Client struct {
	endpoint   string
	httpClient *http.Client
	logger     *zap.Logger
}

// ClientConfig configures the execution node client.
type ClientConfig struct {
	Endpoint   string
	RPCTimeout time.Duration
}

// NewClient creates a client for the execution node.
func NewClient(config ClientConfig) (*Client, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("execution node endpoint is required")
	}

	timeout := config.RPCTimeout
	if timeout == 0 {
		timeout = 90 * time.Second // blockchain-backed calls are slow
	}

	return &Client{
		endpoint:   config.Endpoint,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.Log,
	}, nil
}

type jsonRPCRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
	ID      string        `json:"id"`
}

type jsonRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *jsonRPCError   `json:"error,omitempty"`
	ID      string          `json:"id"`
}

type jsonRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// ExecuteWorkflow performs a single request/response call carrying the
// workflow document. A JSON-RPC error object from the node and a transport
// failure are both surfaced as a SubmissionError; the caller distinguishes
// them through the Code/Err fields.
func (c *Client) ExecuteWorkflow(ctx context.Context, workflow map[string]interface{}) (json.RawMessage, string, error) {
	requestID := uuid.NewString()

	req := &jsonRPCRequest{
		JSONRPC: "2.0",
		Method:  constants.ExecuteWorkflowMethod,
		Params:  []interface{}{workflow},
		ID:      requestID,
	}

	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, requestID, &business.SubmissionError{Err: fmt.Errorf("failed to marshal workflow request: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, requestID, &business.SubmissionError{Err: fmt.Errorf("failed to create request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, requestID, &business.SubmissionError{Err: fmt.Errorf("execution node unreachable: %w", err)}
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Warn("Failed to close response body", zap.Error(cerr))
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, requestID, &business.SubmissionError{Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, requestID, &business.SubmissionError{
			Err: fmt.Errorf("execution node returned HTTP %d: %s", resp.StatusCode, string(respBody)),
		}
	}

	var rpcResp jsonRPCResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return nil, requestID, &business.SubmissionError{Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	if rpcResp.Error != nil {
		c.logger.Warn("Execution node rejected workflow",
			zap.Int("code", rpcResp.Error.Code),
			zap.String("message", rpcResp.Error.Message),
			zap.String("request_id", requestID),
		)
		return nil, requestID, &business.SubmissionError{
			Code:    rpcResp.Error.Code,
			Message: rpcResp.Error.Message,
		}
	}

	c.logger.Info("Workflow accepted by execution node", zap.String("request_id", requestID))
	return rpcResp.Result, requestID, nil
}

// HealthCheck verifies the node is reachable by submitting an empty workflow.
// A node-level rejection still proves the server is alive; only a transport
// failure counts as unhealthy.
func (c *Client) HealthCheck(ctx context.Context) error {
	healthCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, _, err := c.ExecuteWorkflow(healthCtx, map[string]interface{}{})
	if err != nil {
		var subErr *business.SubmissionError
		if errors.As(err, &subErr) && subErr.Err == nil {
			// The node answered with a JSON-RPC error object: it is alive.
			return nil
		}
		return fmt.Errorf("execution node unavailable: %w", err)
	}
	return nil
}
